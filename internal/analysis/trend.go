package analysis

import (
	"sort"
	"time"

	"github.com/KaramelBytes/datalens-cli/internal/table"
)

const (
	maxTrendPoints = 12
	minTrendRows   = 3
	periodLayout   = "2006-01"
)

// monthlySums buckets ok rows by calendar month of dates and returns the
// periods in chronological order.
func monthlySums(dates []time.Time, vals []float64, ok []bool) (periods []string, sums map[string]float64) {
	sums = map[string]float64{}
	for i, ts := range dates {
		if ts.IsZero() || !ok[i] {
			continue
		}
		p := ts.Format(periodLayout)
		if _, seen := sums[p]; !seen {
			periods = append(periods, p)
		}
		sums[p] += vals[i]
	}
	sort.Strings(periods)
	return periods, sums
}

// growth returns the signed percentage change, nil when previous is zero.
func growth(latest, previous float64) *float64 {
	if previous == 0 {
		return nil
	}
	d := latest - previous
	if previous < 0 {
		previous = -previous
	}
	return ptr(round(d/previous*100, 2))
}

func directionOf(g *float64) string {
	if g == nil || *g >= 0 {
		return "up"
	}
	return "down"
}

func buildTrend(t *table.Table, cr *columnRoles, metric string) Result[Trend] {
	if t.Empty() {
		return Unavailable[Trend]("dataset is empty")
	}
	dateCol := cr.preferredDateColumn()
	if dateCol == "" {
		return Unavailable[Trend]("no date column detected")
	}
	if metric == "" {
		return Unavailable[Trend]("no numeric metric column detected")
	}
	mcol, _ := t.Column(metric)
	vals, ok := numericSeries(mcol)
	dates := cr.parsed[dateCol]

	usable := 0
	for i := range dates {
		if !dates[i].IsZero() && ok[i] {
			usable++
		}
	}
	if usable < minTrendRows {
		return Unavailable[Trend]("fewer than 3 rows with both a date and a metric value")
	}
	periods, sums := monthlySums(dates, vals, ok)
	if len(periods) < 2 {
		return Unavailable[Trend]("fewer than 2 distinct months")
	}
	latest := sums[periods[len(periods)-1]]
	previous := sums[periods[len(periods)-2]]
	g := growth(latest, previous)

	tail := periods
	if len(tail) > maxTrendPoints {
		tail = tail[len(tail)-maxTrendPoints:]
	}
	points := make([]TrendPoint, 0, len(tail))
	for _, p := range tail {
		points = append(points, TrendPoint{Period: p, Value: sums[p]})
	}
	return Available(Trend{
		DateColumn:    dateCol,
		MetricColumn:  metric,
		LatestValue:   latest,
		PreviousValue: previous,
		GrowthPct:     g,
		Direction:     directionOf(g),
		Points:        points,
	})
}
