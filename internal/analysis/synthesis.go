package analysis

import (
	"fmt"
	"sort"
	"strings"

	"github.com/samber/lo"
)

const (
	maxAlerts          = 6
	maxRecommendations = 6
	maxDrivers         = 5

	completenessFloorPct  = 90
	duplicateCeilingPct   = 1
	thinMarginPct         = 10
	trendDeclineAlertPct  = -8
	outlierReviewPct      = 5
	strongCorrelation     = 0.7
	concentrationSharePct = 40
	trendGrowthCallout    = 5
)

const (
	emptyExecutiveSummary = "Dataset is empty. Upload a CSV with at least one row to generate insights."
	emptyRecommendation   = "Upload non-empty data to start analysis."
	stableRecommendation  = "Dataset health is stable. Focus on deeper cohort or funnel analysis next."

	driverSourcePnL      = "profit_loss_breakdown"
	driverSourceSegments = "segments"
)

// fragments bundles the upstream stage outputs the synthesis rules read.
type fragments struct {
	rows, cols   int
	cr           *columnRoles
	br           BusinessRoles
	quality      DataQuality
	numeric      []NumericProfile
	correlations []CorrelationEdge
	segments     []SegmentGroup
	trend        Result[Trend]
	business     BusinessSummary
	breakdown    Result[ProfitLossBreakdown]
	simplified   Result[SimplifiedTrend]
}

func buildAlerts(f *fragments) []Alert {
	alerts := []Alert{}
	if f.rows == 0 {
		return alerts
	}
	dq := f.quality
	if dq.CompletenessPct < completenessFloorPct {
		alerts = append(alerts, Alert{SeverityWarning, "low_completeness",
			fmt.Sprintf("Only %.2f%% of cells are populated.", dq.CompletenessPct)})
	}
	if dq.DuplicatePct > duplicateCeilingPct {
		alerts = append(alerts, Alert{SeverityWarning, "duplicate_rows",
			fmt.Sprintf("%d duplicate rows (%.2f%%) detected.", dq.DuplicateRows, dq.DuplicatePct)})
	}
	if len(dq.HighMissingColumns) > 0 {
		top := dq.HighMissingColumns[0]
		alerts = append(alerts, Alert{SeverityWarning, "high_missing_columns",
			fmt.Sprintf("%d column(s) have at least 10%% missing values; worst is '%s' at %.2f%%.", len(dq.HighMissingColumns), top.Column, top.MissingPct)})
	}
	if len(dq.InconsistentCategories) > 0 {
		top := dq.InconsistentCategories[0]
		alerts = append(alerts, Alert{SeverityInfo, "inconsistent_categories",
			fmt.Sprintf("'%s' is spelled %d different ways in '%s'.", top.NormalizedValue, top.VariantCount, top.Column)})
	}
	bs := f.business
	if bs.TotalProfit != nil && *bs.TotalProfit < 0 {
		alerts = append(alerts, Alert{SeverityCritical, "net_loss",
			fmt.Sprintf("Total profit is negative (%.2f).", *bs.TotalProfit)})
	}
	if m := bs.ProfitMarginPct; m != nil && *m < thinMarginPct {
		sev, code := SeverityWarning, "thin_margin"
		if *m < 0 {
			sev, code = SeverityCritical, "negative_margin"
		}
		alerts = append(alerts, Alert{sev, code, fmt.Sprintf("Profit margin is %.2f%%.", *m)})
	}
	if tr, ok := f.trend.Get(); ok && tr.GrowthPct != nil && *tr.GrowthPct < trendDeclineAlertPct {
		alerts = append(alerts, Alert{SeverityWarning, "trend_decline",
			fmt.Sprintf("'%s' fell %.2f%% in %s versus the prior month.", tr.MetricColumn, -*tr.GrowthPct, tr.Points[len(tr.Points)-1].Period)})
	}
	if b, ok := f.breakdown.Get(); ok && len(b.TopLossSegments) > 0 {
		worst := b.TopLossSegments[0]
		alerts = append(alerts, Alert{SeverityCritical, "loss_segment",
			fmt.Sprintf("Segment '%s' in '%s' is losing money (%.2f).", worst.Segment, b.SegmentColumn, worst.Profit)})
	}
	sort.SliceStable(alerts, func(i, j int) bool { return alerts[i].Severity.rank() < alerts[j].Severity.rank() })
	if len(alerts) > maxAlerts {
		alerts = alerts[:maxAlerts]
	}
	return alerts
}

func buildKeyDrivers(f *fragments) KeyDrivers {
	kd := KeyDrivers{PositiveContributors: []Driver{}, NegativeContributors: []Driver{}}
	if len(f.correlations) > 0 {
		strongest := f.correlations[0]
		kd.StrongestCorrelation = &strongest
	}
	if b, ok := f.breakdown.Get(); ok {
		kd.Source = driverSourcePnL
		toDriver := func(s SegmentPnL, _ int) Driver {
			return Driver{Segment: s.Segment, SegmentColumn: b.SegmentColumn, Metric: b.ProfitColumn, Value: s.Profit}
		}
		// all is sorted ascending by profit.
		for i := len(b.all) - 1; i >= 0 && len(kd.PositiveContributors) < maxDrivers; i-- {
			if b.all[i].Profit > 0 {
				kd.PositiveContributors = append(kd.PositiveContributors, toDriver(b.all[i], i))
			}
		}
		losses := lo.Filter(b.all, func(s SegmentPnL, _ int) bool { return s.Profit < 0 })
		if len(losses) > maxDrivers {
			losses = losses[:maxDrivers]
		}
		kd.NegativeContributors = lo.Map(losses, toDriver)
		return kd
	}
	if len(f.segments) > 0 {
		kd.Source = driverSourceSegments
		g := f.segments[0]
		toDriver := func(s SegmentRow, _ int) Driver {
			return Driver{Segment: s.Segment, SegmentColumn: g.SegmentColumn, Metric: g.MetricColumn, Value: s.Sum}
		}
		pos := lo.Filter(g.TopSegments, func(s SegmentRow, _ int) bool { return s.Sum > 0 })
		neg := lo.Filter(g.TopSegments, func(s SegmentRow, _ int) bool { return s.Sum < 0 })
		sort.SliceStable(neg, func(i, j int) bool { return neg[i].Sum < neg[j].Sum })
		kd.PositiveContributors = lo.Map(pos, toDriver)
		kd.NegativeContributors = lo.Map(neg, toDriver)
	}
	return kd
}

func buildRecommendations(f *fragments) []string {
	if f.rows == 0 {
		return []string{emptyRecommendation}
	}
	var recs []string
	add := func(format string, args ...any) { recs = append(recs, fmt.Sprintf(format, args...)) }

	bs := f.business
	if bs.TotalProfit != nil && *bs.TotalProfit < 0 {
		add("Address the net loss of %.2f: review pricing and the largest cost lines in '%s'.", -*bs.TotalProfit, lo.Ternary(bs.CostColumn != "", bs.CostColumn, bs.ProfitColumn))
	}
	if b, ok := f.breakdown.Get(); ok && len(b.TopLossSegments) > 0 {
		worst := b.TopLossSegments[0]
		add("Fix or exit loss-making segment '%s' (%s), which lost %.2f.", worst.Segment, b.SegmentColumn, -worst.Profit)
	}
	if m := bs.ProfitMarginPct; m != nil && *m >= 0 && *m < thinMarginPct {
		add("Margin is thin at %.2f%%; tighten discounting or renegotiate input costs.", *m)
	}

	dq := f.quality
	if len(dq.HighMissingColumns) > 0 {
		top := dq.HighMissingColumns[0]
		add("Prioritize data quality cleanup for '%s' (%.2f%% missing).", top.Column, top.MissingPct)
	}
	if dq.DuplicatePct > 0 {
		add("Deduplicate records before modeling; duplicate rate is %.2f%%.", dq.DuplicatePct)
	}
	if p, ok := lo.Find(f.numeric, func(p NumericProfile) bool { return p.OutlierPct >= outlierReviewPct }); ok {
		add("Review outliers in '%s' where %.2f%% of values are outside IQR bounds.", p.Column, p.OutlierPct)
	}
	if c, ok := lo.Find(f.correlations, func(c CorrelationEdge) bool { return c.Strength >= strongCorrelation }); ok {
		add("Track '%s' and '%s' together; they show a %s correlation of %.4f.", c.ColumnX, c.ColumnY, c.Direction, c.Correlation)
	}
	if len(f.segments) > 0 && len(f.segments[0].TopSegments) > 0 {
		g := f.segments[0]
		if leader := g.TopSegments[0]; leader.SharePct >= concentrationSharePct {
			add("Revenue concentration risk: segment '%s' contributes %.2f%% of %s.", leader.Segment, leader.SharePct, g.MetricColumn)
		}
	}
	if tr, ok := f.trend.Get(); ok && tr.GrowthPct != nil {
		switch g := *tr.GrowthPct; {
		case g < 0:
			add("Investigate decline in %s; latest period fell %.2f%%.", tr.MetricColumn, -g)
		case g > trendGrowthCallout:
			add("Scale current strategy for %s; latest period grew %.2f%%.", tr.MetricColumn, g)
		}
	}
	if len(dq.InconsistentCategories) > 0 {
		ic := dq.InconsistentCategories[0]
		add("Standardize labels in '%s': %d spellings of '%s' (%s).", ic.Column, ic.VariantCount, ic.NormalizedValue, strings.Join(ic.Examples, ", "))
	}

	if len(recs) == 0 {
		return []string{stableRecommendation}
	}
	if len(recs) > maxRecommendations {
		recs = recs[:maxRecommendations]
	}
	return recs
}

func buildExecutiveSummary(f *fragments) string {
	if f.rows == 0 {
		return emptyExecutiveSummary
	}
	parts := []string{
		fmt.Sprintf("Analyzed %d rows across %d columns (%d numeric, %d categorical).",
			f.rows, f.cols, len(f.cr.numeric), len(f.cr.categorical)),
		fmt.Sprintf("Overall completeness is %.2f%%.", f.quality.CompletenessPct),
	}
	bs := f.business
	if bs.TotalRevenue != nil && bs.TotalProfit != nil {
		s := fmt.Sprintf("Total revenue is %.2f with %s of %.2f", *bs.TotalRevenue,
			lo.Ternary(*bs.TotalProfit < 0, "a net loss", "profit"), abs(*bs.TotalProfit))
		if bs.ProfitMarginPct != nil {
			s += fmt.Sprintf(" (%.2f%% margin)", *bs.ProfitMarginPct)
		}
		parts = append(parts, s+".")
	} else if bs.TotalRevenue != nil {
		parts = append(parts, fmt.Sprintf("Total revenue is %.2f; profit could not be computed.", *bs.TotalRevenue))
	}
	if tr, ok := f.trend.Get(); ok && tr.GrowthPct != nil {
		g := *tr.GrowthPct
		parts = append(parts, fmt.Sprintf("Time trend on '%s' %s by %.2f%% in the latest period.",
			tr.MetricColumn, lo.Ternary(g >= 0, "increased", "decreased"), abs(g)))
	}
	if len(f.segments) > 0 && len(f.segments[0].TopSegments) > 0 {
		g := f.segments[0]
		leader := g.TopSegments[0]
		parts = append(parts, fmt.Sprintf("Top segment for '%s' is '%s' at %.2f%% share.", g.MetricColumn, leader.Segment, leader.SharePct))
	}
	if b, ok := f.breakdown.Get(); ok && len(b.TopLossSegments) > 0 {
		parts = append(parts, fmt.Sprintf("Segment '%s' is the largest loss maker.", b.TopLossSegments[0].Segment))
	}
	return strings.Join(parts, " ")
}

func buildChartExplanations(f *fragments) []ChartExplanation {
	out := []ChartExplanation{}
	if tr, ok := f.trend.Get(); ok {
		out = append(out, ChartExplanation{
			Chart: "trend",
			Title: fmt.Sprintf("Monthly %s", tr.MetricColumn),
			Explanation: fmt.Sprintf("Sum of '%s' per calendar month of '%s' over the last %d months; the latest month moved %s versus the month before.",
				tr.MetricColumn, tr.DateColumn, len(tr.Points), tr.Direction),
		})
	}
	if st, ok := f.simplified.Get(); ok {
		out = append(out, ChartExplanation{
			Chart:       "pnl_trend",
			Title:       "Revenue, cost and profit by month",
			Explanation: fmt.Sprintf("Monthly totals of %s against '%s'.", strings.Join(st.Series, ", "), st.DateColumn),
		})
	}
	if b, ok := f.breakdown.Get(); ok {
		out = append(out, ChartExplanation{
			Chart:       "profit_by_segment",
			Title:       fmt.Sprintf("Profit by %s", b.SegmentColumn),
			Explanation: fmt.Sprintf("Each bar sums %s for one '%s' value; bars below zero are loss-making segments.", b.ProfitColumn, b.SegmentColumn),
		})
	}
	if len(f.segments) > 0 {
		g := f.segments[0]
		out = append(out, ChartExplanation{
			Chart:       "segment_share",
			Title:       fmt.Sprintf("%s by %s", g.MetricColumn, g.SegmentColumn),
			Explanation: fmt.Sprintf("Top %d '%s' values ranked by total %s, with each one's share of the overall sum.", len(g.TopSegments), g.SegmentColumn, g.MetricColumn),
		})
	}
	if len(f.correlations) > 0 {
		out = append(out, ChartExplanation{
			Chart:       "correlations",
			Title:       "Strongest numeric relationships",
			Explanation: "Pearson correlation between numeric column pairs, ordered by absolute strength; values near 1 or -1 move together.",
		})
	}
	return out
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
