package analysis

import (
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/KaramelBytes/datalens-cli/internal/table"
)

const (
	highMissingThresholdPct = 10
	maxHighMissingColumns   = 8
	maxInconsistentGroups   = 8
	maxVariantExamples      = 3
)

func buildDataQuality(t *table.Table, cr *columnRoles) DataQuality {
	dq := DataQuality{
		HighMissingColumns:     []MissingColumn{},
		InconsistentCategories: []InconsistentCategory{},
	}
	if t.Empty() {
		return dq
	}
	rows := t.Rows()
	cols := t.Columns()
	dq.RowsAnalyzed = rows
	dq.ColumnsAnalyzed = len(cols)

	totalCells := rows * len(cols)
	if totalCells < 1 {
		totalCells = 1
	}
	var totalMissing int
	missing := make([]MissingColumn, 0, len(cols))
	for _, c := range cols {
		m := c.Missing()
		totalMissing += m
		missing = append(missing, MissingColumn{Column: c.Name(), MissingCount: m, MissingPct: pct(float64(m), float64(rows))})
	}
	dq.CompletenessPct = pct(float64(totalCells-totalMissing), float64(totalCells))

	sort.SliceStable(missing, func(i, j int) bool { return missing[i].MissingCount > missing[j].MissingCount })
	for _, m := range missing {
		if m.MissingPct < highMissingThresholdPct {
			continue
		}
		dq.HighMissingColumns = append(dq.HighMissingColumns, m)
		if len(dq.HighMissingColumns) == maxHighMissingColumns {
			break
		}
	}

	dq.DuplicateRows = countDuplicateRows(cols, rows)
	dq.DuplicatePct = pct(float64(dq.DuplicateRows), float64(rows))
	dq.InconsistentCategories = findInconsistentCategories(t, cr.categorical)
	return dq
}

// countDuplicateRows counts rows equal to an earlier row across every column.
// Nulls compare equal to nulls in the same position.
func countDuplicateRows(cols []table.Column, rows int) int {
	seen := make(map[string]struct{}, rows)
	var b strings.Builder
	dups := 0
	for i := 0; i < rows; i++ {
		b.Reset()
		for _, c := range cols {
			writeCellKey(&b, c.Value(i))
		}
		key := b.String()
		if _, ok := seen[key]; ok {
			dups++
			continue
		}
		seen[key] = struct{}{}
	}
	return dups
}

func writeCellKey(b *strings.Builder, v table.Value) {
	switch v.Kind() {
	case table.KindNull:
		b.WriteByte('n')
	case table.KindNumber:
		f, _ := v.Float()
		b.WriteByte('f')
		b.WriteString(strconv.FormatFloat(f, 'g', -1, 64))
	case table.KindTime:
		ts, _ := v.TimeValue()
		b.WriteByte('t')
		b.WriteString(strconv.FormatInt(ts.UnixNano(), 10))
	default:
		b.WriteByte('s')
		b.WriteString(strconv.Quote(v.String()))
	}
	b.WriteByte(0x1f)
}

// normalizeLabel folds a category label for variant detection.
func normalizeLabel(s string) string {
	return strings.ToLower(collapseSpace(norm.NFKC.String(s)))
}

type variantGroup struct {
	column   string
	colIdx   int
	first    int
	key      string
	affected int
	variants map[string]*labelCount
}

func findInconsistentCategories(t *table.Table, categorical []string) []InconsistentCategory {
	var groups []*variantGroup
	for ci, name := range categorical {
		col, ok := t.Column(name)
		if !ok {
			continue
		}
		byKey := map[string]*variantGroup{}
		var order []*variantGroup
		for i := 0; i < col.Len(); i++ {
			v := col.Value(i)
			if v.IsNull() {
				continue
			}
			raw := v.String()
			key := normalizeLabel(raw)
			if key == "" {
				continue
			}
			g := byKey[key]
			if g == nil {
				g = &variantGroup{column: name, colIdx: ci, first: i, key: key, variants: map[string]*labelCount{}}
				byKey[key] = g
				order = append(order, g)
			}
			g.affected++
			lc := g.variants[raw]
			if lc == nil {
				lc = &labelCount{label: raw, first: i}
				g.variants[raw] = lc
			}
			lc.count++
		}
		for _, g := range order {
			if len(g.variants) >= 2 {
				groups = append(groups, g)
			}
		}
	}
	sort.SliceStable(groups, func(i, j int) bool {
		if groups[i].affected != groups[j].affected {
			return groups[i].affected > groups[j].affected
		}
		if groups[i].colIdx != groups[j].colIdx {
			return groups[i].colIdx < groups[j].colIdx
		}
		return groups[i].first < groups[j].first
	})
	if len(groups) > maxInconsistentGroups {
		groups = groups[:maxInconsistentGroups]
	}
	out := make([]InconsistentCategory, 0, len(groups))
	for _, g := range groups {
		ranked := rankCounts(g.variants)
		examples := make([]string, 0, maxVariantExamples)
		for _, lc := range ranked {
			if len(examples) == maxVariantExamples {
				break
			}
			examples = append(examples, lc.label)
		}
		out = append(out, InconsistentCategory{
			Column:          g.column,
			NormalizedValue: g.key,
			VariantCount:    len(g.variants),
			AffectedRows:    g.affected,
			Examples:        examples,
		})
	}
	return out
}
