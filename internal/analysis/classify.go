package analysis

import (
	"fmt"
	"strings"
	"time"

	"github.com/KaramelBytes/datalens-cli/internal/table"
)

// ColumnRole is the inferred semantic type of a column.
type ColumnRole uint8

const (
	RoleCategorical ColumnRole = iota
	RoleNumeric
	RoleDate
)

func (r ColumnRole) String() string {
	switch r {
	case RoleNumeric:
		return "numeric"
	case RoleDate:
		return "date"
	}
	return "categorical"
}

func (r ColumnRole) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

func (r *ColumnRole) UnmarshalText(b []byte) error {
	switch string(b) {
	case "numeric":
		*r = RoleNumeric
	case "date":
		*r = RoleDate
	case "categorical":
		*r = RoleCategorical
	default:
		return fmt.Errorf("unknown column role %q", b)
	}
	return nil
}

var dateHintTokens = []string{"date", "time", "month", "year", "day"}

// columnRoles is the classifier output shared by every downstream stage.
type columnRoles struct {
	order       []string
	roles       map[string]ColumnRole
	numeric     []string
	categorical []string
	dates       []string
	// parsed holds per-row timestamps for date columns; zero means unparseable or null.
	parsed map[string][]time.Time
}

func classifyColumns(t *table.Table, opt Options) *columnRoles {
	cr := &columnRoles{roles: map[string]ColumnRole{}, parsed: map[string][]time.Time{}}
	if t == nil {
		return cr
	}
	sampleSize := opt.DateSampleSize
	if sampleSize <= 0 {
		sampleSize = 300
	}
	for _, col := range t.Columns() {
		name := col.Name()
		cr.order = append(cr.order, name)
		role := RoleCategorical
		switch col.Dtype() {
		case table.DtypeNumeric:
			role = RoleNumeric
		case table.DtypeDatetime:
			role = RoleDate
			cr.parsed[name] = timesOf(col)
		case table.DtypeText:
			if parsed, ok := detectDateColumn(col, sampleSize); ok {
				role = RoleDate
				cr.parsed[name] = parsed
			}
		}
		cr.roles[name] = role
		switch role {
		case RoleNumeric:
			cr.numeric = append(cr.numeric, name)
		case RoleDate:
			cr.dates = append(cr.dates, name)
		default:
			cr.categorical = append(cr.categorical, name)
		}
	}
	return cr
}

func timesOf(col table.Column) []time.Time {
	out := make([]time.Time, col.Len())
	for i := range out {
		if ts, ok := col.Value(i).TimeValue(); ok {
			out[i] = ts
		}
	}
	return out
}

// detectDateColumn samples the first non-null cells of a text column and
// accepts it when enough of them parse as dates, then re-checks the full column.
func detectDateColumn(col table.Column, sampleSize int) ([]time.Time, bool) {
	var sampled, hits int
	for i := 0; i < col.Len() && sampled < sampleSize; i++ {
		v := col.Value(i)
		if v.IsNull() {
			continue
		}
		sampled++
		if _, ok := parseDate(v.String()); ok {
			hits++
		}
	}
	if sampled == 0 {
		return nil, false
	}
	ratio := float64(hits) / float64(sampled)
	hinted := containsAny(col.Name(), dateHintTokens)
	if ratio < 0.7 && !(hinted && ratio >= 0.5) {
		return nil, false
	}
	parsed := make([]time.Time, col.Len())
	full := 0
	for i := range parsed {
		v := col.Value(i)
		if v.IsNull() {
			continue
		}
		if ts, ok := parseDate(v.String()); ok {
			parsed[i] = ts
			full++
		}
	}
	if float64(full)/float64(col.Len()) < 0.5 {
		return nil, false
	}
	return parsed, true
}

var dateLayouts = []string{
	time.RFC3339Nano, time.RFC3339,
	"2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02 15:04", "2006-01-02",
	"2006/01/02", "2006/1/2", "2006.01.02",
	"01/02/2006", "1/2/2006", "1/2/2006 15:04", "1/2/2006 15:04:05", "01-02-2006",
	"2006-01", "2006/01",
	"Jan 2006", "January 2006", "Jan 2, 2006", "January 2, 2006", "2 Jan 2006", "02-Jan-2006", "2 January 2006",
}

// parseDate accepts only the layouts above; bare numbers and codes never parse.
func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if len(s) < 6 {
		return time.Time{}, false
	}
	for _, l := range dateLayouts {
		if ts, err := time.Parse(l, s); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

// preferredDateColumn picks the first date column whose name carries a date
// hint, falling back to the first date column.
func (cr *columnRoles) preferredDateColumn() string {
	for _, name := range cr.dates {
		if containsAny(name, dateHintTokens) {
			return name
		}
	}
	if len(cr.dates) > 0 {
		return cr.dates[0]
	}
	return ""
}

func (cr *columnRoles) schema(t *table.Table) []ColumnInfo {
	out := make([]ColumnInfo, 0, len(cr.order))
	for _, name := range cr.order {
		col, _ := t.Column(name)
		out = append(out, ColumnInfo{Column: name, Dtype: string(col.Dtype()), Role: cr.roles[name]})
	}
	return out
}
