package table

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Kind tags the scalar held by a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindNumber
	KindText
	KindTime
)

// Value is a nullable typed scalar stored in a column cell.
type Value struct {
	kind Kind
	num  float64
	str  string
	t    time.Time
}

// Null returns the missing value.
func Null() Value { return Value{} }

// Number wraps a float64. NaN and infinities are stored as null.
func Number(f float64) Value {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Value{}
	}
	return Value{kind: KindNumber, num: f}
}

// Text wraps a string.
func Text(s string) Value { return Value{kind: KindText, str: s} }

// Time wraps a timestamp. The zero time is stored as null.
func Time(t time.Time) Value {
	if t.IsZero() {
		return Value{}
	}
	return Value{kind: KindTime, t: t}
}

func (v Value) Kind() Kind { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }

// Float returns the numeric payload. Text cells are coerced when they parse
// as a plain float; everything else reports false.
func (v Value) Float() (float64, bool) {
	switch v.kind {
	case KindNumber:
		return v.num, true
	case KindText:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.str), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

// TimeValue returns the timestamp payload for time cells.
func (v Value) TimeValue() (time.Time, bool) {
	if v.kind != KindTime {
		return time.Time{}, false
	}
	return v.t, true
}

// String renders the cell the way it would appear in a CSV export. Null renders as "".
func (v Value) String() string {
	switch v.kind {
	case KindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case KindText:
		return v.str
	case KindTime:
		if v.t.Hour() == 0 && v.t.Minute() == 0 && v.t.Second() == 0 && v.t.Nanosecond() == 0 {
			return v.t.Format("2006-01-02")
		}
		return v.t.Format(time.RFC3339)
	}
	return ""
}

// Equal reports whether two cells hold the same kind and payload. Nulls are equal to each other.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNumber:
		return v.num == o.num
	case KindText:
		return v.str == o.str
	case KindTime:
		return v.t.Equal(o.t)
	}
	return true
}

// Dtype is the storage type derived from a column's non-null values.
type Dtype string

const (
	DtypeNumeric  Dtype = "numeric"
	DtypeDatetime Dtype = "datetime"
	DtypeText     Dtype = "text"
	DtypeEmpty    Dtype = "empty"
)

// Column is a named, ordered sequence of values.
type Column struct {
	name   string
	values []Value
	dtype  Dtype
}

// NewColumn copies values into a new column.
func NewColumn(name string, values []Value) Column {
	cp := make([]Value, len(values))
	copy(cp, values)
	return Column{name: name, values: cp, dtype: deriveDtype(cp)}
}

// Numbers builds a numeric column; nil entries are null.
func Numbers(name string, values ...*float64) Column {
	vals := make([]Value, len(values))
	for i, p := range values {
		if p != nil {
			vals[i] = Number(*p)
		}
	}
	return Column{name: name, values: vals, dtype: deriveDtype(vals)}
}

// Floats builds a numeric column without nulls.
func Floats(name string, values ...float64) Column {
	vals := make([]Value, len(values))
	for i, f := range values {
		vals[i] = Number(f)
	}
	return Column{name: name, values: vals, dtype: deriveDtype(vals)}
}

// Strings builds a text column without nulls.
func Strings(name string, values ...string) Column {
	vals := make([]Value, len(values))
	for i, s := range values {
		vals[i] = Text(s)
	}
	return Column{name: name, values: vals, dtype: deriveDtype(vals)}
}

func deriveDtype(values []Value) Dtype {
	var num, tm, other int
	for _, v := range values {
		switch v.kind {
		case KindNumber:
			num++
		case KindTime:
			tm++
		case KindText:
			other++
		}
	}
	switch {
	case num == 0 && tm == 0 && other == 0:
		return DtypeEmpty
	case other == 0 && tm == 0:
		return DtypeNumeric
	case other == 0 && num == 0:
		return DtypeDatetime
	}
	return DtypeText
}

func (c Column) Name() string { return c.name }
func (c Column) Len() int { return len(c.values) }
func (c Column) Dtype() Dtype { return c.dtype }
func (c Column) Value(i int) Value { return c.values[i] }

// Values returns a copy of the column's cells.
func (c Column) Values() []Value {
	cp := make([]Value, len(c.values))
	copy(cp, c.values)
	return cp
}

// Missing counts null cells.
func (c Column) Missing() int {
	n := 0
	for _, v := range c.values {
		if v.IsNull() {
			n++
		}
	}
	return n
}

var (
	ErrDuplicateColumn = errors.New("duplicate column name")
	ErrRaggedColumns   = errors.New("columns have different row counts")
)

// Table is an immutable ordered list of equally long named columns.
type Table struct {
	cols  []Column
	index map[string]int
	rows  int
}

// New assembles a table. Column names must be unique and all columns the same length.
func New(cols ...Column) (*Table, error) {
	t := &Table{cols: make([]Column, 0, len(cols)), index: make(map[string]int, len(cols))}
	for i, c := range cols {
		if _, dup := t.index[c.name]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateColumn, c.name)
		}
		if i == 0 {
			t.rows = c.Len()
		} else if c.Len() != t.rows {
			return nil, fmt.Errorf("%w: %q has %d rows, expected %d", ErrRaggedColumns, c.name, c.Len(), t.rows)
		}
		t.index[c.name] = i
		t.cols = append(t.cols, c)
	}
	return t, nil
}

// MustNew is New for fixtures; it panics on invalid input.
func MustNew(cols ...Column) *Table {
	t, err := New(cols...)
	if err != nil {
		panic(err)
	}
	return t
}

func (t *Table) Rows() int { return t.rows }
func (t *Table) NumCols() int { return len(t.cols) }

// Columns returns the columns in declaration order.
func (t *Table) Columns() []Column {
	cp := make([]Column, len(t.cols))
	copy(cp, t.cols)
	return cp
}

// Names returns the column names in declaration order.
func (t *Table) Names() []string {
	out := make([]string, len(t.cols))
	for i, c := range t.cols {
		out[i] = c.name
	}
	return out
}

// Column looks a column up by name.
func (t *Table) Column(name string) (Column, bool) {
	i, ok := t.index[name]
	if !ok {
		return Column{}, false
	}
	return t.cols[i], true
}

// Empty reports whether the table has no rows or no columns.
func (t *Table) Empty() bool { return t == nil || t.rows == 0 || len(t.cols) == 0 }
