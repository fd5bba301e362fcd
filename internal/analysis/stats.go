package analysis

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/KaramelBytes/datalens-cli/internal/table"
)

// round rounds half away from zero to the given number of decimals.
func round(x float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(x*p) / p
}

func pct(part, whole float64) float64 {
	if whole <= 0 {
		whole = 1
	}
	return clampPct(round(part/whole*100, 2))
}

func clampPct(p float64) float64 {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

func ptr[T any](v T) *T { return &v }

// quantile expects sorted input and interpolates linearly between closest ranks.
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	w := pos - float64(lo)
	return sorted[lo]*(1-w) + sorted[hi]*w
}

// meanStd returns the mean and the sample (n-1) standard deviation via Welford.
func meanStd(vals []float64) (mean, std float64) {
	var m2 float64
	for i, x := range vals {
		delta := x - mean
		mean += delta / float64(i+1)
		m2 += delta * (x - mean)
	}
	if len(vals) > 1 {
		std = math.Sqrt(m2 / float64(len(vals)-1))
	}
	return mean, std
}

// pairAcc accumulates the sums needed for an exact Pearson coefficient.
type pairAcc struct {
	n     float64
	sumX  float64
	sumY  float64
	sumXX float64
	sumYY float64
	sumXY float64
}

func (pa *pairAcc) add(x, y float64) {
	pa.n++
	pa.sumX += x
	pa.sumY += y
	pa.sumXX += x * x
	pa.sumYY += y * y
	pa.sumXY += x * y
}

// pearson reports false when the coefficient is undefined (constant input or too few rows).
func (pa *pairAcc) pearson(minRows int) (float64, bool) {
	if pa == nil || pa.n < float64(minRows) {
		return 0, false
	}
	denom := math.Sqrt((pa.n*pa.sumXX - pa.sumX*pa.sumX) * (pa.n*pa.sumYY - pa.sumY*pa.sumY))
	if denom == 0 || math.IsNaN(denom) {
		return 0, false
	}
	r := (pa.n*pa.sumXY - pa.sumX*pa.sumY) / denom
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0, false
	}
	if r > 1 {
		r = 1
	} else if r < -1 {
		r = -1
	}
	return r, true
}

// numericSeries coerces a column to floats; ok[i] is false where the cell is null or not numeric.
func numericSeries(col table.Column) (vals []float64, ok []bool) {
	n := col.Len()
	vals = make([]float64, n)
	ok = make([]bool, n)
	for i := 0; i < n; i++ {
		if f, good := col.Value(i).Float(); good {
			vals[i] = f
			ok[i] = true
		}
	}
	return vals, ok
}

func validValues(vals []float64, ok []bool) []float64 {
	out := make([]float64, 0, len(vals))
	for i, v := range vals {
		if ok[i] {
			out = append(out, v)
		}
	}
	return out
}

func sum(vals []float64) float64 {
	var s float64
	for _, v := range vals {
		s += v
	}
	return s
}

var nullLabels = map[string]bool{"nan": true, "none": true, "null": true, "<na>": true}

// cleanLabel maps null-like cells to "Unknown" and caps labels at 120 characters.
func cleanLabel(v table.Value) string {
	if v.IsNull() {
		return "Unknown"
	}
	text := strings.TrimSpace(v.String())
	if text == "" || nullLabels[strings.ToLower(text)] {
		return "Unknown"
	}
	r := []rune(text)
	if len(r) > 120 {
		return string(r[:120])
	}
	return text
}

func containsAny(name string, tokens []string) bool {
	lower := strings.ToLower(name)
	for _, tok := range tokens {
		if strings.Contains(lower, tok) {
			return true
		}
	}
	return false
}

// collapseSpace trims and folds internal whitespace runs into a single space.
func collapseSpace(s string) string {
	return strings.Join(strings.FieldsFunc(s, unicode.IsSpace), " ")
}

type labelCount struct {
	label string
	count int
	first int
}

// rankCounts orders labels by count descending, ties by first appearance.
func rankCounts(counts map[string]*labelCount) []labelCount {
	out := make([]labelCount, 0, len(counts))
	for _, c := range counts {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].count == out[j].count {
			return out[i].first < out[j].first
		}
		return out[i].count > out[j].count
	})
	return out
}
