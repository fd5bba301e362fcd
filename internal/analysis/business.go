package analysis

import (
	"fmt"
	"sort"
	"time"

	"github.com/KaramelBytes/datalens-cli/internal/table"
)

const (
	maxBreakdownRows    = 30
	maxTopPnLSegments   = 3
	maxSimplifiedPoints = 12
	kpiPerUnitDecimals  = 4
)

func sumValid(vals []float64, ok []bool) (total float64, n int) {
	for i, v := range vals {
		if ok[i] {
			total += v
			n++
		}
	}
	return total, n
}

func buildBusinessSummary(t *table.Table, br BusinessRoles, p pnl) BusinessSummary {
	bs := BusinessSummary{
		RevenueColumn: br.Revenue,
		CostColumn:    br.Cost,
		ProfitDerived: br.ProfitDerived,
	}
	if br.Profit != "" {
		bs.ProfitColumn = br.Profit
	} else if br.ProfitDerived {
		bs.ProfitColumn = p.profitLabel
	}
	if t.Empty() {
		bs.ProfitDerived = false
		bs.ProfitColumn = ""
		bs.Message = ptr("Dataset is empty; no revenue, cost or profit to summarize.")
		return bs
	}
	if p.hasRevenue() {
		v, _ := sumValid(p.revenue, p.revenueOK)
		bs.TotalRevenue = ptr(v)
	}
	if p.hasCost() {
		v, _ := sumValid(p.cost, p.costOK)
		bs.TotalCost = ptr(v)
	}
	if p.hasProfit() {
		bs.ProfitAvailable = true
		v, _ := sumValid(p.profit, p.profitOK)
		bs.TotalProfit = ptr(v)
		var pos, neg, zero int
		for i, x := range p.profit {
			if !p.profitOK[i] {
				continue
			}
			switch {
			case x > 0:
				pos++
			case x < 0:
				neg++
			default:
				zero++
			}
		}
		bs.ProfitRows, bs.LossRows, bs.NeutralRows = ptr(pos), ptr(neg), ptr(zero)
	}
	if bs.TotalProfit != nil && bs.TotalRevenue != nil && *bs.TotalRevenue != 0 {
		bs.ProfitMarginPct = ptr(round(*bs.TotalProfit / *bs.TotalRevenue * 100, 2))
	}

	switch {
	case br.Revenue == "":
		bs.Message = ptr("No revenue-like column detected (expected a name containing revenue, sales, amount, total, gmv or value).")
	case !bs.ProfitAvailable:
		bs.Message = ptr(fmt.Sprintf("Revenue column '%s' detected, but no cost or profit column was found; profit cannot be computed.", br.Revenue))
	case *bs.TotalProfit < 0:
		bs.Message = ptr(fmt.Sprintf("The business is operating at a net loss of %.2f.", -*bs.TotalProfit))
	}
	return bs
}

func buildKPIs(t *table.Table, br BusinessRoles) KPIs {
	var k KPIs
	if t.Empty() {
		return k
	}
	var revTotal, volTotal float64
	var haveRev, haveVol bool
	if br.Revenue != "" {
		col, _ := t.Column(br.Revenue)
		if total, n := sumValid(numericSeries(col)); n > 0 {
			k.RevenueColumn = br.Revenue
			k.TotalRevenueLike = ptr(total)
			k.AvgRevenueLike = ptr(total / float64(n))
			revTotal, haveRev = total, true
		}
	}
	if br.Volume != "" {
		col, _ := t.Column(br.Volume)
		if total, n := sumValid(numericSeries(col)); n > 0 {
			k.VolumeColumn = br.Volume
			k.TotalVolumeLike = ptr(total)
			k.AvgVolumeLike = ptr(total / float64(n))
			volTotal, haveVol = total, true
		}
	}
	if haveRev && haveVol && volTotal > 0 {
		k.AvgValuePerUnit = ptr(round(revTotal/volTotal, kpiPerUnitDecimals))
	}
	return k
}

type pnlAgg struct {
	label            string
	profit, rev, cst float64
	rows             int
}

func buildProfitLossBreakdown(t *table.Table, br BusinessRoles, p pnl) Result[ProfitLossBreakdown] {
	if t.Empty() {
		return Unavailable[ProfitLossBreakdown]("dataset is empty")
	}
	if !p.hasProfit() {
		return Unavailable[ProfitLossBreakdown]("profit could not be computed: no profit column and no revenue/cost pair")
	}
	if br.Segment == "" {
		return Unavailable[ProfitLossBreakdown]("no categorical segment column detected")
	}
	col, _ := t.Column(br.Segment)
	idx := map[string]*pnlAgg{}
	var groups []*pnlAgg
	for i := 0; i < t.Rows(); i++ {
		if !p.profitOK[i] {
			continue
		}
		label := cleanLabel(col.Value(i))
		g := idx[label]
		if g == nil {
			g = &pnlAgg{label: label}
			idx[label] = g
			groups = append(groups, g)
		}
		g.profit += p.profit[i]
		if p.hasRevenue() && p.revenueOK[i] {
			g.rev += p.revenue[i]
		}
		if p.hasCost() && p.costOK[i] {
			g.cst += p.cost[i]
		}
		g.rows++
	}
	if len(groups) == 0 {
		return Unavailable[ProfitLossBreakdown]("no rows carry a profit value")
	}
	sort.SliceStable(groups, func(i, j int) bool { return groups[i].profit < groups[j].profit })

	all := make([]SegmentPnL, 0, len(groups))
	for _, g := range groups {
		row := SegmentPnL{Segment: g.label, Profit: g.profit, Rows: g.rows}
		if p.hasRevenue() {
			row.Revenue = ptr(g.rev)
			if g.rev != 0 {
				row.MarginPct = ptr(round(g.profit/g.rev*100, 2))
			}
		}
		if p.hasCost() {
			row.Cost = ptr(g.cst)
		}
		all = append(all, row)
	}

	b := ProfitLossBreakdown{
		SegmentColumn:     br.Segment,
		ProfitColumn:      p.profitLabel,
		TopProfitSegments: []SegmentPnL{},
		TopLossSegments:   []SegmentPnL{},
		all:               all,
	}
	b.Segments = all
	if len(b.Segments) > maxBreakdownRows {
		b.Segments = b.Segments[:maxBreakdownRows]
	}
	for i := len(all) - 1; i >= 0 && len(b.TopProfitSegments) < maxTopPnLSegments; i-- {
		if all[i].Profit > 0 {
			b.TopProfitSegments = append(b.TopProfitSegments, all[i])
		}
	}
	for i := 0; i < len(all) && len(b.TopLossSegments) < maxTopPnLSegments; i++ {
		if all[i].Profit < 0 {
			b.TopLossSegments = append(b.TopLossSegments, all[i])
		}
	}
	return Available(b)
}

// monthlyPnL sums every available series per calendar month of dates.
// Only months with at least one series value are kept.
func monthlyPnL(dates []time.Time, p pnl) []PnLPoint {
	type acc struct{ rev, cst, prf float64 }
	byPeriod := map[string]*acc{}
	var periods []string
	for i, ts := range dates {
		if ts.IsZero() {
			continue
		}
		hasAny := (p.hasRevenue() && p.revenueOK[i]) || (p.hasCost() && p.costOK[i]) || (p.hasProfit() && p.profitOK[i])
		if !hasAny {
			continue
		}
		key := ts.Format(periodLayout)
		a := byPeriod[key]
		if a == nil {
			a = &acc{}
			byPeriod[key] = a
			periods = append(periods, key)
		}
		if p.hasRevenue() && p.revenueOK[i] {
			a.rev += p.revenue[i]
		}
		if p.hasCost() && p.costOK[i] {
			a.cst += p.cost[i]
		}
		if p.hasProfit() && p.profitOK[i] {
			a.prf += p.profit[i]
		}
	}
	sort.Strings(periods)
	out := make([]PnLPoint, 0, len(periods))
	for _, key := range periods {
		a := byPeriod[key]
		pt := PnLPoint{Period: key}
		if p.hasRevenue() {
			pt.Revenue = ptr(a.rev)
		}
		if p.hasCost() {
			pt.Cost = ptr(a.cst)
		}
		if p.hasProfit() {
			pt.Profit = ptr(a.prf)
		}
		out = append(out, pt)
	}
	return out
}

func buildSimplifiedTrend(t *table.Table, cr *columnRoles, p pnl) Result[SimplifiedTrend] {
	if t.Empty() {
		return Unavailable[SimplifiedTrend]("dataset is empty")
	}
	dateCol := cr.preferredDateColumn()
	if dateCol == "" {
		return Unavailable[SimplifiedTrend]("no date column detected")
	}
	if !p.hasRevenue() && !p.hasCost() && !p.hasProfit() {
		return Unavailable[SimplifiedTrend]("no revenue, cost or profit column detected")
	}
	months := monthlyPnL(cr.parsed[dateCol], p)
	if len(months) == 0 {
		return Unavailable[SimplifiedTrend]("no dated rows carry revenue, cost or profit values")
	}

	st := SimplifiedTrend{DateColumn: dateCol, Series: []string{}, months: months}
	if p.hasRevenue() {
		st.Series = append(st.Series, "revenue")
	}
	if p.hasCost() {
		st.Series = append(st.Series, "cost")
	}
	if p.hasProfit() {
		st.Series = append(st.Series, "profit")
	}
	var pick func(PnLPoint) *float64
	switch {
	case p.hasProfit():
		st.GrowthMetric = "profit"
		pick = func(pt PnLPoint) *float64 { return pt.Profit }
	case p.hasRevenue():
		st.GrowthMetric = "revenue"
		pick = func(pt PnLPoint) *float64 { return pt.Revenue }
	}
	if pick != nil {
		st.LatestValue = pick(months[len(months)-1])
		if len(months) >= 2 {
			st.PreviousValue = pick(months[len(months)-2])
			st.GrowthPct = growth(*st.LatestValue, *st.PreviousValue)
			st.Direction = directionOf(st.GrowthPct)
		}
	}
	st.Points = months
	if len(st.Points) > maxSimplifiedPoints {
		st.Points = st.Points[len(st.Points)-maxSimplifiedPoints:]
	}
	return Available(st)
}
