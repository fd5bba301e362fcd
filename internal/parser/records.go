package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/KaramelBytes/datalens-cli/internal/table"
)

// naTokens are read as nulls, compared after trimming.
var naTokens = map[string]bool{
	"": true, "na": true, "n/a": true, "nan": true, "-nan": true, "null": true,
	"none": true, "<na>": true, "#n/a": true, "#na": true, "nil": true,
}

func isNA(s string) bool {
	return naTokens[strings.ToLower(strings.TrimSpace(s))]
}

// buildTable types each column from its raw cells. A column becomes numeric
// only when every non-null cell parses as a number; otherwise it stays text.
func buildTable(header []string, records [][]string, opt Options) (*table.Table, error) {
	if opt.MaxRows > 0 && len(records) > opt.MaxRows {
		log.Debug().Int("rows", len(records)).Int("max_rows", opt.MaxRows).Msg("truncating dataset rows")
		records = records[:opt.MaxRows]
	}
	names := columnNames(header)
	cols := make([]table.Column, len(names))
	for c, name := range names {
		raw := make([]string, len(records))
		for r, rec := range records {
			if c < len(rec) {
				raw[r] = rec[c]
			}
		}
		cols[c] = typeColumn(name, raw)
	}
	t, err := table.New(cols...)
	if err != nil {
		return nil, fmt.Errorf("build table: %w", err)
	}
	return t, nil
}

func typeColumn(name string, raw []string) table.Column {
	values := make([]table.Value, len(raw))
	numeric := true
	nonNull := 0
	for i, s := range raw {
		if isNA(s) {
			continue
		}
		nonNull++
		f, ok := parseNumber(s)
		if !ok {
			numeric = false
			break
		}
		values[i] = table.Number(f)
	}
	if numeric && nonNull > 0 {
		return table.NewColumn(name, values)
	}
	for i, s := range raw {
		if isNA(s) {
			values[i] = table.Null()
			continue
		}
		values[i] = table.Text(s)
	}
	return table.NewColumn(name, values)
}

// columnNames trims headers, names blank ones by position and suffixes
// repeats with ".1", ".2" and so on.
func columnNames(header []string) []string {
	out := make([]string, len(header))
	seen := map[string]int{}
	taken := map[string]bool{}
	for i, h := range header {
		name := strings.TrimSpace(h)
		if name == "" {
			name = fmt.Sprintf("column_%d", i+1)
		}
		base := name
		for taken[name] {
			seen[base]++
			name = fmt.Sprintf("%s.%d", base, seen[base])
		}
		taken[name] = true
		out[i] = name
	}
	return out
}

// parseNumber accepts plain and locale-formatted numbers ("1,234.5",
// "1.234,5", "12.5%"). A lone comma followed by exactly three digits is a
// thousands separator; otherwise it is the decimal mark.
func parseNumber(s string) (float64, bool) {
	raw := strings.TrimSpace(s)
	raw = strings.TrimSuffix(raw, "%")
	raw = strings.ReplaceAll(raw, " ", "")
	raw = strings.ReplaceAll(raw, "\u00a0", "")
	if raw == "" {
		return 0, false
	}
	cpos := strings.LastIndex(raw, ",")
	dpos := strings.LastIndex(raw, ".")
	switch {
	case cpos >= 0 && dpos >= 0:
		if cpos > dpos {
			raw = strings.ReplaceAll(raw, ".", "")
			raw = strings.Replace(raw, ",", ".", 1)
		} else {
			raw = strings.ReplaceAll(raw, ",", "")
		}
	case cpos >= 0:
		if strings.Count(raw, ",") > 1 || len(raw)-cpos-1 == 3 {
			raw = strings.ReplaceAll(raw, ",", "")
		} else {
			raw = strings.Replace(raw, ",", ".", 1)
		}
	}
	if !decimalToken(raw) {
		return 0, false
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// decimalToken reports whether s holds only decimal digits, a sign, a point
// and an exponent. Keeps "inf", "nan" and hex floats out of numeric columns.
func decimalToken(s string) bool {
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case r == '+' || r == '-' || r == '.' || r == 'e' || r == 'E':
		default:
			return false
		}
	}
	return true
}
