package analysis_test

import (
	"bytes"
	"encoding/json"
	"math"
	"math/rand"
	"strings"
	"testing"

	"github.com/KaramelBytes/datalens-cli/internal/analysis"
	"github.com/KaramelBytes/datalens-cli/internal/table"
)

func analyze(t *testing.T, tbl *table.Table) *analysis.Report {
	t.Helper()
	r := analysis.Analyze(tbl, "", analysis.DefaultOptions())
	if r == nil {
		t.Fatalf("nil report")
	}
	return r
}

func f(v float64) *float64 { return &v }

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestEmptyTable(t *testing.T) {
	for name, tbl := range map[string]*table.Table{
		"no columns": table.MustNew(),
		"no rows":    table.MustNew(table.Floats("revenue"), table.Strings("region")),
		"nil":        nil,
	} {
		r := analysis.Analyze(tbl, "how did March go?", analysis.DefaultOptions())
		if r.DataQuality.RowsAnalyzed != 0 {
			t.Fatalf("%s: rows analyzed = %d", name, r.DataQuality.RowsAnalyzed)
		}
		if r.BusinessSummary.ProfitAvailable {
			t.Fatalf("%s: profit should be unavailable", name)
		}
		if r.DataQuality.CompletenessPct != 0 {
			t.Fatalf("%s: completeness = %v", name, r.DataQuality.CompletenessPct)
		}
		if len(r.Alerts) != 0 {
			t.Fatalf("%s: expected no alerts, got %+v", name, r.Alerts)
		}
		if !strings.Contains(r.ExecutiveSummary, "Dataset is empty") {
			t.Fatalf("%s: summary = %q", name, r.ExecutiveSummary)
		}
		if len(r.Recommendations) != 1 || r.Recommendations[0] != "Upload non-empty data to start analysis." {
			t.Fatalf("%s: recommendations = %v", name, r.Recommendations)
		}
		if r.Trend.OK() || r.ProfitLossBreakdown.OK() || r.SimplifiedTrend.OK() {
			t.Fatalf("%s: sections should be unavailable", name)
		}
		if r.Trend.Reason() == "" {
			t.Fatalf("%s: missing trend reason", name)
		}
		if r.Answer == nil || r.Answer.Resolution != analysis.ResolutionUnavailable {
			t.Fatalf("%s: answer = %+v", name, r.Answer)
		}
	}
}

func TestDerivedProfitAndBreakdown(t *testing.T) {
	tbl := table.MustNew(
		table.Floats("revenue", 100, 200, 300),
		table.Floats("cost", 60, 90, 150),
		table.Strings("region", "east", "east", "west"),
	)
	r := analyze(t, tbl)
	bs := r.BusinessSummary
	if !bs.ProfitAvailable || !bs.ProfitDerived {
		t.Fatalf("expected derived profit, got %+v", bs)
	}
	if bs.TotalProfit == nil || !near(*bs.TotalProfit, 300) {
		t.Fatalf("total profit = %v", bs.TotalProfit)
	}
	if bs.ProfitMarginPct == nil || *bs.ProfitMarginPct != 50.0 {
		t.Fatalf("margin = %v", bs.ProfitMarginPct)
	}
	if !near(*bs.TotalProfit, *bs.TotalRevenue-*bs.TotalCost) {
		t.Fatalf("profit %v != revenue %v - cost %v", *bs.TotalProfit, *bs.TotalRevenue, *bs.TotalCost)
	}
	pl, ok := r.ProfitLossBreakdown.Get()
	if !ok {
		t.Fatalf("breakdown unavailable: %s", r.ProfitLossBreakdown.Reason())
	}
	if pl.SegmentColumn != "region" {
		t.Fatalf("segment column = %q", pl.SegmentColumn)
	}
	if len(pl.Segments) != 2 || pl.Segments[0].Segment != "east" || pl.Segments[1].Segment != "west" {
		t.Fatalf("segments = %+v", pl.Segments)
	}
	if len(pl.TopLossSegments) != 0 || len(pl.TopProfitSegments) != 2 || pl.TopProfitSegments[0].Segment != "west" {
		t.Fatalf("top segments = %+v / %+v", pl.TopProfitSegments, pl.TopLossSegments)
	}
	if r.SimplifiedTrend.OK() || r.Trend.OK() {
		t.Fatalf("no date column, trends must be unavailable")
	}
	if r.KeyDrivers.Source != "profit_loss_breakdown" || len(r.KeyDrivers.PositiveContributors) != 2 {
		t.Fatalf("drivers = %+v", r.KeyDrivers)
	}
}

func TestDerivedProfitTreatsMissingSideAsZero(t *testing.T) {
	tbl := table.MustNew(
		table.Numbers("sales", f(100), nil, f(50), nil),
		table.Numbers("expense", f(40), f(10), nil, nil),
	)
	r := analyze(t, tbl)
	bs := r.BusinessSummary
	if bs.TotalProfit == nil || !near(*bs.TotalProfit, 100) {
		t.Fatalf("total profit = %v", bs.TotalProfit)
	}
	if !near(*bs.TotalProfit, *bs.TotalRevenue-*bs.TotalCost) {
		t.Fatalf("profit does not reconcile")
	}
	if *bs.ProfitRows != 2 || *bs.LossRows != 1 || *bs.NeutralRows != 0 {
		t.Fatalf("row counts = %d/%d/%d", *bs.ProfitRows, *bs.LossRows, *bs.NeutralRows)
	}
}

func TestExplicitProfitAndNetLoss(t *testing.T) {
	tbl := table.MustNew(
		table.Floats("revenue", 100, 100, 100, 100),
		table.Floats("cost", 150, 120, 80, 90),
		table.Floats("net_profit", -50, -20, 20, 10),
		table.Strings("product", "a", "b", "c", "d"),
	)
	r := analyze(t, tbl)
	if r.BusinessRoles.Profit != "net_profit" || r.BusinessRoles.ProfitDerived {
		t.Fatalf("roles = %+v", r.BusinessRoles)
	}
	if len(r.Alerts) == 0 || r.Alerts[0].Severity != analysis.SeverityCritical {
		t.Fatalf("expected a critical alert first, got %+v", r.Alerts)
	}
	codes := map[string]bool{}
	for _, a := range r.Alerts {
		codes[a.Code] = true
	}
	for _, want := range []string{"net_loss", "negative_margin", "loss_segment"} {
		if !codes[want] {
			t.Fatalf("missing alert %q in %+v", want, r.Alerts)
		}
	}
	pl, _ := r.ProfitLossBreakdown.Get()
	if len(pl.TopLossSegments) != 2 || pl.TopLossSegments[0].Segment != "a" {
		t.Fatalf("loss segments = %+v", pl.TopLossSegments)
	}
	if !strings.Contains(r.Recommendations[0], "net loss") {
		t.Fatalf("first recommendation = %q", r.Recommendations[0])
	}
}

func TestInconsistentCategories(t *testing.T) {
	tbl := table.MustNew(table.Strings("city", "NY", "ny", "NY ", "LA"))
	r := analyze(t, tbl)
	ic := r.DataQuality.InconsistentCategories
	if len(ic) != 1 {
		t.Fatalf("groups = %+v", ic)
	}
	if ic[0].NormalizedValue != "ny" || ic[0].VariantCount != 3 || ic[0].AffectedRows != 3 {
		t.Fatalf("group = %+v", ic[0])
	}
	if ic[0].Examples[0] != "NY" {
		t.Fatalf("examples = %v", ic[0].Examples)
	}
}

func TestOutliers(t *testing.T) {
	tbl := table.MustNew(table.Floats("x", 1, 2, 3, 4, 100))
	r := analyze(t, tbl)
	if len(r.NumericProfiles) != 1 {
		t.Fatalf("profiles = %+v", r.NumericProfiles)
	}
	p := r.NumericProfiles[0]
	if p.OutlierCount != 1 || p.OutlierPct != 20.0 {
		t.Fatalf("outliers = %d (%v%%)", p.OutlierCount, p.OutlierPct)
	}
	if p.Q1 != 2 || p.Median != 3 || p.Q3 != 4 {
		t.Fatalf("quartiles = %v %v %v", p.Q1, p.Median, p.Q3)
	}
}

func TestConstantColumnHasNoOutliers(t *testing.T) {
	tbl := table.MustNew(table.Floats("x", 5, 5, 5, 5))
	p := analyze(t, tbl).NumericProfiles[0]
	if p.OutlierCount != 0 || p.StdDev != 0 {
		t.Fatalf("profile = %+v", p)
	}
}

func monthlyRevenue() *table.Table {
	return table.MustNew(
		table.Strings("order_date", "2024-01-05", "2024-01-20", "2024-02-10"),
		table.Floats("revenue", 600, 400, 800),
	)
}

func TestTrendGrowth(t *testing.T) {
	r := analyze(t, monthlyRevenue())
	tr, ok := r.Trend.Get()
	if !ok {
		t.Fatalf("trend unavailable: %s", r.Trend.Reason())
	}
	if tr.GrowthPct == nil || *tr.GrowthPct != -20.0 || tr.Direction != "down" {
		t.Fatalf("trend = %+v growth=%v", tr, tr.GrowthPct)
	}
	if tr.DateColumn != "order_date" || tr.MetricColumn != "revenue" {
		t.Fatalf("columns = %s/%s", tr.DateColumn, tr.MetricColumn)
	}
	if len(tr.Points) != 2 || tr.Points[0].Period != "2024-01" || tr.Points[0].Value != 1000 {
		t.Fatalf("points = %+v", tr.Points)
	}
	if r.Schema[0].Role != analysis.RoleDate {
		t.Fatalf("order_date role = %v", r.Schema[0].Role)
	}
}

func TestTrendNeedsTwoMonths(t *testing.T) {
	tbl := table.MustNew(
		table.Strings("date", "2024-01-01", "2024-01-02", "2024-01-03"),
		table.Floats("sales", 1, 2, 3),
	)
	r := analyze(t, tbl)
	if r.Trend.OK() || !strings.Contains(r.Trend.Reason(), "2 distinct months") {
		t.Fatalf("trend should be unavailable, reason %q", r.Trend.Reason())
	}
}

func TestCorrelations(t *testing.T) {
	tbl := table.MustNew(
		table.Floats("ad_spend", 1, 2, 3, 4, 5),
		table.Floats("revenue", 10, 20, 30, 40, 50),
		table.Floats("returns", 5, 4, 3, 2, 1),
	)
	r := analyze(t, tbl)
	if len(r.TopCorrelations) != 3 {
		t.Fatalf("edges = %+v", r.TopCorrelations)
	}
	for _, c := range r.TopCorrelations {
		if c.Strength != 1 {
			t.Fatalf("edge %+v should be perfect", c)
		}
	}
	if r.TopCorrelations[1].Direction != "negative" {
		t.Fatalf("second edge = %+v", r.TopCorrelations[1])
	}
	if r.KeyDrivers.StrongestCorrelation == nil {
		t.Fatalf("strongest correlation missing")
	}
}

func TestCorrelationNeedsThreeRows(t *testing.T) {
	tbl := table.MustNew(table.Floats("a", 1, 2), table.Floats("b", 2, 4))
	if r := analyze(t, tbl); len(r.TopCorrelations) != 0 {
		t.Fatalf("edges = %+v", r.TopCorrelations)
	}
}

func TestHighMissingAndDuplicates(t *testing.T) {
	tbl := table.MustNew(
		table.Numbers("units", f(1), f(1), nil, f(4), nil),
		table.Strings("channel", "web", "web", "store", "web", "online"),
	)
	r := analyze(t, tbl)
	dq := r.DataQuality
	if dq.DuplicateRows != 1 || dq.DuplicatePct != 20 {
		t.Fatalf("duplicates = %d (%v%%)", dq.DuplicateRows, dq.DuplicatePct)
	}
	if len(dq.HighMissingColumns) != 1 || dq.HighMissingColumns[0].Column != "units" || dq.HighMissingColumns[0].MissingPct != 40 {
		t.Fatalf("high missing = %+v", dq.HighMissingColumns)
	}
	if dq.CompletenessPct != 80 {
		t.Fatalf("completeness = %v", dq.CompletenessPct)
	}
	if r.Alerts[0].Severity != analysis.SeverityWarning {
		t.Fatalf("alerts = %+v", r.Alerts)
	}
}

func TestAllNullColumnIsCategorical(t *testing.T) {
	tbl := table.MustNew(
		table.Numbers("notes", nil, nil, nil),
		table.Floats("amount", 1, 2, 3),
	)
	r := analyze(t, tbl)
	if r.Schema[0].Role != analysis.RoleCategorical {
		t.Fatalf("role = %v", r.Schema[0].Role)
	}
	if len(r.CategoricalProfiles) != 0 {
		t.Fatalf("all-null column should not be profiled: %+v", r.CategoricalProfiles)
	}
}

func TestRoleResolutionKeepsTokenOrder(t *testing.T) {
	tbl := table.MustNew(
		table.Floats("total_cost_savings", 1, 2, 3),
		table.Floats("opex", 1, 1, 1),
		table.Floats("qty", 3, 2, 1),
		table.Strings("team", "a", "b", "a"),
		table.Strings("plan", "x", "y", "z"),
	)
	br := analyze(t, tbl).BusinessRoles
	if br.Revenue != "total_cost_savings" || br.Cost != "opex" || br.Volume != "qty" {
		t.Fatalf("roles = %+v", br)
	}
	if br.Segment != "team" || br.Metric != "total_cost_savings" || !br.ProfitDerived {
		t.Fatalf("roles = %+v", br)
	}
}

func TestSegmentsFallBackToFirstCategorical(t *testing.T) {
	tbl := table.MustNew(
		table.Strings("customer", "a", "b", "a", "c"),
		table.Floats("score", 1, 2, 3, 4),
	)
	r := analyze(t, tbl)
	if r.BusinessRoles.Segment != "customer" || r.BusinessRoles.Metric != "score" {
		t.Fatalf("roles = %+v", r.BusinessRoles)
	}
	if len(r.Segments) != 1 {
		t.Fatalf("segments = %+v", r.Segments)
	}
	top := r.Segments[0].TopSegments
	if top[0].Segment != "a" || top[0].Sum != 4 || top[0].SharePct != 40 {
		t.Fatalf("top = %+v", top)
	}
	if r.KeyDrivers.Source != "segments" {
		t.Fatalf("drivers = %+v", r.KeyDrivers)
	}
}

// wideTable exercises every list cap with a fixed random seed.
func wideTable() *table.Table {
	rng := rand.New(rand.NewSource(42))
	const rows = 60
	var cols []table.Column
	dates := make([]string, rows)
	for i := range dates {
		dates[i] = []string{"2023-09", "2023-10", "2023-11", "2023-12", "2024-01", "2024-02", "2024-03", "2024-04",
			"2024-05", "2024-06", "2024-07", "2024-08", "2024-09", "2024-10", "2024-11"}[i%15] + "-15"
	}
	cols = append(cols, table.Strings("date", dates...))
	for _, name := range []string{"revenue", "cost", "units", "m1", "m2", "m3", "m4", "m5", "m6", "m7", "m8", "m9", "m10", "m11"} {
		vals := make([]*float64, rows)
		for i := range vals {
			if rng.Intn(6) == 0 && name != "revenue" && name != "cost" {
				continue
			}
			v := rng.Float64()*1000 - 200
			if name == "cost" {
				v = rng.Float64() * 1200
			}
			vals[i] = &v
		}
		cols = append(cols, table.Numbers(name, vals...))
	}
	for c := 0; c < 10; c++ {
		vals := make([]table.Value, rows)
		for i := range vals {
			switch k := rng.Intn(40); {
			case k == 0:
				vals[i] = table.Null()
			case k < 3:
				vals[i] = table.Text(" Label " + string(rune('A'+rng.Intn(3))))
			default:
				vals[i] = table.Text("label " + string(rune('a'+rng.Intn(35)%26)))
			}
		}
		name := "region"
		if c > 0 {
			name = "cat" + string(rune('a'+c))
		}
		cols = append(cols, table.NewColumn(name, vals))
	}
	return table.MustNew(cols...)
}

func TestPercentagesAndCaps(t *testing.T) {
	r := analyze(t, wideTable())

	inRange := func(what string, v float64) {
		if v < 0 || v > 100 || math.IsNaN(v) {
			t.Fatalf("%s = %v outside [0,100]", what, v)
		}
	}
	capped := func(what string, n, limit int) {
		if n > limit {
			t.Fatalf("%s has %d entries, cap %d", what, n, limit)
		}
	}
	dq := r.DataQuality
	inRange("completeness", dq.CompletenessPct)
	inRange("duplicates", dq.DuplicatePct)
	capped("high missing", len(dq.HighMissingColumns), 8)
	capped("inconsistent", len(dq.InconsistentCategories), 8)
	for _, m := range dq.HighMissingColumns {
		inRange("missing "+m.Column, m.MissingPct)
	}
	for _, ic := range dq.InconsistentCategories {
		capped("examples", len(ic.Examples), 3)
	}
	capped("numeric profiles", len(r.NumericProfiles), 12)
	for _, p := range r.NumericProfiles {
		inRange("missing "+p.Column, p.MissingPct)
		inRange("outliers "+p.Column, p.OutlierPct)
	}
	capped("categorical profiles", len(r.CategoricalProfiles), 8)
	for _, p := range r.CategoricalProfiles {
		inRange("missing "+p.Column, p.MissingPct)
		capped("top values", len(p.TopValues), 5)
		for _, tv := range p.TopValues {
			inRange("top value", tv.Pct)
		}
	}
	capped("correlations", len(r.TopCorrelations), 8)
	capped("segment groups", len(r.Segments), 3)
	for _, g := range r.Segments {
		capped("segments", len(g.TopSegments), 5)
		for _, s := range g.TopSegments {
			inRange("share", s.SharePct)
		}
	}
	capped("alerts", len(r.Alerts), 6)
	capped("recommendations", len(r.Recommendations), 6)
	capped("positive drivers", len(r.KeyDrivers.PositiveContributors), 5)
	capped("negative drivers", len(r.KeyDrivers.NegativeContributors), 5)
	if pl, ok := r.ProfitLossBreakdown.Get(); ok {
		capped("breakdown", len(pl.Segments), 30)
		capped("top profit", len(pl.TopProfitSegments), 3)
		capped("top loss", len(pl.TopLossSegments), 3)
	} else {
		t.Fatalf("breakdown unavailable: %s", r.ProfitLossBreakdown.Reason())
	}
	tr, ok := r.Trend.Get()
	if !ok || len(tr.Points) != 12 {
		t.Fatalf("trend points: %+v (%s)", tr.Points, r.Trend.Reason())
	}
	st, ok := r.SimplifiedTrend.Get()
	if !ok || len(st.Points) != 12 || st.Points[11].Period != "2024-11" {
		t.Fatalf("simplified points: %+v", st.Points)
	}
	for i := 1; i < len(r.Alerts); i++ {
		if rank(r.Alerts[i-1].Severity) > rank(r.Alerts[i].Severity) {
			t.Fatalf("alerts out of order: %+v", r.Alerts)
		}
	}
	bs := r.BusinessSummary
	if !near(*bs.TotalProfit, *bs.TotalRevenue-*bs.TotalCost) {
		t.Fatalf("profit %v != %v - %v", *bs.TotalProfit, *bs.TotalRevenue, *bs.TotalCost)
	}
}

func rank(s analysis.Severity) int {
	return map[analysis.Severity]int{analysis.SeverityCritical: 0, analysis.SeverityWarning: 1, analysis.SeverityInfo: 2}[s]
}

func TestIdempotent(t *testing.T) {
	tbl := wideTable()
	a, err := json.Marshal(analysis.Analyze(tbl, "what happened in 2024-06?", analysis.DefaultOptions()))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	b, err := json.Marshal(analysis.Analyze(tbl, "what happened in 2024-06?", analysis.DefaultOptions()))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Fatalf("reports differ between runs")
	}
}

func TestConcurrentAnalyze(t *testing.T) {
	tbl := wideTable()
	want, _ := json.Marshal(analysis.Analyze(tbl, "", analysis.DefaultOptions()))
	errs := make(chan string, 8)
	for i := 0; i < 8; i++ {
		go func() {
			got, _ := json.Marshal(analysis.Analyze(tbl, "", analysis.DefaultOptions()))
			if !bytes.Equal(got, want) {
				errs <- "mismatch"
				return
			}
			errs <- ""
		}()
	}
	for i := 0; i < 8; i++ {
		if msg := <-errs; msg != "" {
			t.Fatalf("concurrent run: %s", msg)
		}
	}
}

func TestReportJSONShape(t *testing.T) {
	r := analyze(t, monthlyRevenue())
	b, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	trend := m["trend"].(map[string]any)
	if trend["available"] != true || trend["direction"] != "down" {
		t.Fatalf("trend json = %v", trend)
	}
	pl := m["profit_loss_breakdown"].(map[string]any)
	if pl["available"] != false || pl["reason"] == "" {
		t.Fatalf("breakdown json = %v", pl)
	}
	schema := m["schema"].([]any)
	if schema[0].(map[string]any)["role"] != "date" {
		t.Fatalf("schema json = %v", schema)
	}
}
