package analysis

import (
	"sort"

	"github.com/KaramelBytes/datalens-cli/internal/table"
)

const (
	maxSegmentColumns   = 4
	maxSegmentGroups    = 3
	maxSegmentsPerGroup = 5
)

// groupAgg accumulates one segment's metric in first-seen order.
type groupAgg struct {
	label string
	first int
	sum   float64
	count int
}

// groupBy sums vals per cleaned label of col, skipping rows where ok is false.
// The result keeps first-seen order.
func groupBy(col table.Column, vals []float64, ok []bool) []*groupAgg {
	idx := map[string]*groupAgg{}
	var order []*groupAgg
	for i := 0; i < col.Len(); i++ {
		if !ok[i] {
			continue
		}
		label := cleanLabel(col.Value(i))
		g := idx[label]
		if g == nil {
			g = &groupAgg{label: label, first: i}
			idx[label] = g
			order = append(order, g)
		}
		g.sum += vals[i]
		g.count++
	}
	return order
}

func buildSegments(t *table.Table, cr *columnRoles, metric string) []SegmentGroup {
	out := []SegmentGroup{}
	if t.Empty() || metric == "" || len(cr.categorical) == 0 {
		return out
	}
	mcol, _ := t.Column(metric)
	vals, ok := numericSeries(mcol)

	cats := cr.categorical
	if len(cats) > maxSegmentColumns {
		cats = cats[:maxSegmentColumns]
	}
	for _, name := range cats {
		col, _ := t.Column(name)
		groups := groupBy(col, vals, ok)
		if len(groups) == 0 {
			continue
		}
		sort.SliceStable(groups, func(i, j int) bool { return groups[i].sum > groups[j].sum })
		var total float64
		for _, g := range groups {
			total += g.sum
		}
		if total == 0 {
			total = 1
		}
		top := groups
		if len(top) > maxSegmentsPerGroup {
			top = top[:maxSegmentsPerGroup]
		}
		rows := make([]SegmentRow, 0, len(top))
		for _, g := range top {
			rows = append(rows, SegmentRow{
				Segment:  g.label,
				Sum:      g.sum,
				Mean:     g.sum / float64(g.count),
				Count:    g.count,
				SharePct: clampPct(round(g.sum/total*100, 2)),
			})
		}
		out = append(out, SegmentGroup{SegmentColumn: name, MetricColumn: metric, TopSegments: rows})
		if len(out) == maxSegmentGroups {
			break
		}
	}
	return out
}
