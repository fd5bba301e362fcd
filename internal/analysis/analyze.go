// Package analysis builds deterministic analyst reports from a semantic table.
//
// Every stage reads the input table plus the classifier and role resolver
// outputs and returns its own fragment; Analyze merges them. The table is
// never modified, so concurrent calls on the same table are safe.
package analysis

import (
	"strings"
	"time"

	"github.com/KaramelBytes/datalens-cli/internal/table"
)

// Analyze builds the full report for t. A non-blank question also resolves a
// month-over-month answer into Report.Answer. A nil table is treated as empty.
func Analyze(t *table.Table, question string, opt Options) *Report {
	start := time.Now()
	opt = opt.withDefaults()
	if t == nil {
		t = table.MustNew()
	}
	cr := classifyColumns(t, opt)
	br := resolveRoles(cr)
	p := buildPnL(t, br)

	f := &fragments{
		rows: t.Rows(),
		cols: t.NumCols(),
		cr:   cr,
		br:   br,
	}
	f.quality = buildDataQuality(t, cr)
	f.numeric = buildNumericProfiles(t, cr.numeric)
	f.correlations = buildCorrelations(t, cr.numeric)
	f.segments = buildSegments(t, cr, br.Metric)
	f.trend = buildTrend(t, cr, br.Metric)
	f.business = buildBusinessSummary(t, br, p)
	f.breakdown = buildProfitLossBreakdown(t, br, p)
	f.simplified = buildSimplifiedTrend(t, cr, p)

	r := &Report{
		Schema:              cr.schema(t),
		BusinessRoles:       br,
		DataQuality:         f.quality,
		NumericProfiles:     f.numeric,
		CategoricalProfiles: buildCategoricalProfiles(t, cr.categorical),
		TopCorrelations:     f.correlations,
		Segments:            f.segments,
		Trend:               f.trend,
		KPIs:                buildKPIs(t, br),
		BusinessSummary:     f.business,
		ProfitLossBreakdown: f.breakdown,
		SimplifiedTrend:     f.simplified,
		ChartExplanations:   buildChartExplanations(f),
		KeyDrivers:          buildKeyDrivers(f),
		Alerts:              buildAlerts(f),
		Recommendations:     buildRecommendations(f),
		ExecutiveSummary:    buildExecutiveSummary(f),
	}
	if strings.TrimSpace(question) != "" {
		a := buildAnswer(t, cr, br, p, f.simplified, question)
		r.Answer = &a
	}

	opt.Logger.Debug().
		Int("rows", f.rows).
		Int("cols", f.cols).
		Int("numeric", len(cr.numeric)).
		Int("categorical", len(cr.categorical)).
		Int("dates", len(cr.dates)).
		Str("revenue", br.Revenue).
		Str("cost", br.Cost).
		Str("profit", br.Profit).
		Str("segment", br.Segment).
		Dur("took", time.Since(start)).
		Msg("analysis complete")
	return r
}

// Ask resolves only the month-over-month answer for question.
func Ask(t *table.Table, question string, opt Options) Answer {
	opt = opt.withDefaults()
	if t == nil {
		t = table.MustNew()
	}
	cr := classifyColumns(t, opt)
	br := resolveRoles(cr)
	p := buildPnL(t, br)
	return buildAnswer(t, cr, br, p, buildSimplifiedTrend(t, cr, p), question)
}
