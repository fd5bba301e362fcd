package analysis

import (
	"sort"

	"github.com/KaramelBytes/datalens-cli/internal/table"
)

const (
	maxCorrelations    = 8
	minCorrelationRows = 3
)

// buildCorrelations ranks Pearson coefficients over every numeric pair by
// absolute strength. Pairs are computed on rows where both sides are present.
func buildCorrelations(t *table.Table, numeric []string) []CorrelationEdge {
	edges := []CorrelationEdge{}
	if t.Empty() || len(numeric) < 2 {
		return edges
	}
	series := make([][]float64, len(numeric))
	valid := make([][]bool, len(numeric))
	for i, name := range numeric {
		col, _ := t.Column(name)
		series[i], valid[i] = numericSeries(col)
	}

	// The block must hold enough rows with at least one numeric value.
	blockRows := 0
	for r := 0; r < t.Rows(); r++ {
		for i := range numeric {
			if valid[i][r] {
				blockRows++
				break
			}
		}
	}
	if blockRows < minCorrelationRows {
		return edges
	}

	for i := 0; i < len(numeric); i++ {
		for j := i + 1; j < len(numeric); j++ {
			var acc pairAcc
			for r := 0; r < t.Rows(); r++ {
				if valid[i][r] && valid[j][r] {
					acc.add(series[i][r], series[j][r])
				}
			}
			r, ok := acc.pearson(minCorrelationRows)
			if !ok {
				continue
			}
			corr := round(r, 4)
			dir := "positive"
			if corr < 0 {
				dir = "negative"
			}
			edges = append(edges, CorrelationEdge{
				ColumnX:     numeric[i],
				ColumnY:     numeric[j],
				Correlation: corr,
				Strength:    abs(corr),
				Direction:   dir,
			})
		}
	}
	sort.SliceStable(edges, func(a, b int) bool { return edges[a].Strength > edges[b].Strength })
	if len(edges) > maxCorrelations {
		edges = edges[:maxCorrelations]
	}
	return edges
}
