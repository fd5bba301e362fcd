package analysis

import (
	"fmt"
	"strings"

	"github.com/KaramelBytes/datalens-cli/internal/utils"
)

// Markdown renders the report as a standalone document.
func (r *Report) Markdown() string {
	var b strings.Builder
	title := "Analyst report"
	if r.Name != "" {
		title += ": " + safeVal(r.Name)
	}
	b.WriteString("# " + title + "\n\n")
	b.WriteString(r.ExecutiveSummary + "\n")

	if len(r.Alerts) > 0 {
		b.WriteString("\n## Alerts\n\n")
		for _, a := range r.Alerts {
			b.WriteString(fmt.Sprintf("- **%s** `%s`: %s\n", a.Severity, a.Code, a.Message))
		}
	}
	b.WriteString("\n## Recommendations\n\n")
	for i, rec := range r.Recommendations {
		b.WriteString(fmt.Sprintf("%d. %s\n", i+1, rec))
	}

	if a := r.Answer; a != nil {
		b.WriteString("\n## Question\n\n")
		b.WriteString("> " + safeVal(a.Question) + "\n\n")
		b.WriteString(a.Text + "\n")
	}

	bs := r.BusinessSummary
	b.WriteString("\n## Business summary\n\n")
	if bs.Message != nil {
		b.WriteString("_" + *bs.Message + "_\n\n")
	}
	b.WriteString("| Measure | Value |\n| --- | --- |\n")
	writeRow(&b, "Revenue", fmtPtr(bs.TotalRevenue, "%.2f"))
	writeRow(&b, "Cost", fmtPtr(bs.TotalCost, "%.2f"))
	writeRow(&b, "Profit", fmtPtr(bs.TotalProfit, "%.2f"))
	writeRow(&b, "Margin", fmtPtr(bs.ProfitMarginPct, "%.2f%%"))
	if bs.ProfitRows != nil {
		writeRow(&b, "Profit / loss / neutral rows", fmt.Sprintf("%d / %d / %d", *bs.ProfitRows, *bs.LossRows, *bs.NeutralRows))
	}

	if pl, ok := r.ProfitLossBreakdown.Get(); ok {
		b.WriteString(fmt.Sprintf("\n## Profit by %s\n\n", safeVal(pl.SegmentColumn)))
		b.WriteString("| Segment | Profit | Revenue | Margin | Rows |\n| --- | --- | --- | --- | --- |\n")
		for _, s := range pl.Segments {
			b.WriteString(fmt.Sprintf("| %s | %.2f | %s | %s | %d |\n",
				safeVal(s.Segment), s.Profit, fmtPtr(s.Revenue, "%.2f"), fmtPtr(s.MarginPct, "%.2f%%"), s.Rows))
		}
	}

	if st, ok := r.SimplifiedTrend.Get(); ok {
		b.WriteString(fmt.Sprintf("\n## Monthly P&L (%s)\n\n", safeVal(st.DateColumn)))
		b.WriteString("| Period | Revenue | Cost | Profit |\n| --- | --- | --- | --- |\n")
		for _, p := range st.Points {
			b.WriteString(fmt.Sprintf("| %s | %s | %s | %s |\n", p.Period,
				fmtPtr(p.Revenue, "%.2f"), fmtPtr(p.Cost, "%.2f"), fmtPtr(p.Profit, "%.2f")))
		}
	}

	if tr, ok := r.Trend.Get(); ok {
		b.WriteString(fmt.Sprintf("\n## Trend: %s by month\n\n", safeVal(tr.MetricColumn)))
		b.WriteString(fmt.Sprintf("Latest %.2f vs previous %.2f, growth %s, direction %s.\n",
			tr.LatestValue, tr.PreviousValue, fmtPtr(tr.GrowthPct, "%.2f%%"), tr.Direction))
	}

	dq := r.DataQuality
	b.WriteString("\n## Data quality\n\n")
	b.WriteString(fmt.Sprintf("- Rows: %d, columns: %d\n", dq.RowsAnalyzed, dq.ColumnsAnalyzed))
	b.WriteString(fmt.Sprintf("- Completeness: %.2f%%\n", dq.CompletenessPct))
	b.WriteString(fmt.Sprintf("- Duplicate rows: %d (%.2f%%)\n", dq.DuplicateRows, dq.DuplicatePct))
	for _, m := range dq.HighMissingColumns {
		b.WriteString(fmt.Sprintf("- `%s` missing %.2f%%\n", safeName(m.Column), m.MissingPct))
	}
	for _, ic := range dq.InconsistentCategories {
		b.WriteString(fmt.Sprintf("- `%s`: %d spellings of \"%s\" (%s)\n",
			safeName(ic.Column), ic.VariantCount, safeVal(ic.NormalizedValue), safeVal(strings.Join(ic.Examples, ", "))))
	}

	if len(r.NumericProfiles) > 0 {
		b.WriteString("\n## Numeric columns\n\n")
		b.WriteString("| Column | Count | Min | Median | Mean | Max | Std | Outliers |\n| --- | --- | --- | --- | --- | --- | --- | --- |\n")
		for _, p := range r.NumericProfiles {
			b.WriteString(fmt.Sprintf("| %s | %d | %.4g | %.4g | %.4g | %.4g | %.4g | %d (%.2f%%) |\n",
				safeName(p.Column), p.Count, p.Min, p.Median, p.Mean, p.Max, p.StdDev, p.OutlierCount, p.OutlierPct))
		}
	}
	if len(r.CategoricalProfiles) > 0 {
		b.WriteString("\n## Categorical columns\n\n")
		for _, p := range r.CategoricalProfiles {
			b.WriteString(fmt.Sprintf("- `%s` (unique %d): ", safeName(p.Column), p.UniqueCount))
			for i, tv := range p.TopValues {
				if i > 0 {
					b.WriteString(", ")
				}
				b.WriteString(fmt.Sprintf("%s (%d)", safeVal(tv.Label), tv.Count))
			}
			b.WriteString("\n")
		}
	}
	if len(r.TopCorrelations) > 0 {
		b.WriteString("\n## Correlations\n\n")
		for _, c := range r.TopCorrelations {
			b.WriteString(fmt.Sprintf("- %s ~ %s: r=%.4f\n", safeName(c.ColumnX), safeName(c.ColumnY), c.Correlation))
		}
	}
	for _, g := range r.Segments {
		b.WriteString(fmt.Sprintf("\n## %s by %s\n\n", safeVal(g.MetricColumn), safeVal(g.SegmentColumn)))
		b.WriteString("| Segment | Sum | Mean | Count | Share |\n| --- | --- | --- | --- | --- |\n")
		for _, s := range g.TopSegments {
			b.WriteString(fmt.Sprintf("| %s | %.2f | %.2f | %d | %.2f%% |\n", safeVal(s.Segment), s.Sum, s.Mean, s.Count, s.SharePct))
		}
	}
	return b.String()
}

// PromptContext renders the fragments an LLM prompt builder embeds: schema,
// numeric profiles, correlations, trend and KPIs. Only aggregates and column
// names are included. The result is cut to roughly limit tokens.
func (r *Report) PromptContext(limit int) string {
	var b strings.Builder
	b.WriteString("[DATASET SUMMARY]\n")
	if r.Name != "" {
		b.WriteString(fmt.Sprintf("File: %s\n", r.Name))
	}
	b.WriteString(fmt.Sprintf("Rows: %d\nColumns: %d\n\n", r.DataQuality.RowsAnalyzed, len(r.Schema)))

	b.WriteString("[SCHEMA]\n")
	for _, c := range r.Schema {
		b.WriteString(fmt.Sprintf("- %s: %s (%s)\n", safeName(c.Column), c.Role, c.Dtype))
	}
	if len(r.NumericProfiles) > 0 {
		b.WriteString("\n[NUMERIC PROFILES]\n")
		for _, p := range r.NumericProfiles {
			b.WriteString(fmt.Sprintf("- %s: min %.4g, q1 %.4g, median %.4g, q3 %.4g, max %.4g, mean %.4g, std %.4g; outliers %d\n",
				safeName(p.Column), p.Min, p.Q1, p.Median, p.Q3, p.Max, p.Mean, p.StdDev, p.OutlierCount))
		}
	}
	if len(r.TopCorrelations) > 0 {
		b.WriteString("\n[CORRELATIONS]\n")
		for _, c := range r.TopCorrelations {
			b.WriteString(fmt.Sprintf("- %s ~ %s: r=%.3f\n", safeName(c.ColumnX), safeName(c.ColumnY), c.Correlation))
		}
	}
	if tr, ok := r.Trend.Get(); ok {
		b.WriteString("\n[TREND]\n")
		b.WriteString(fmt.Sprintf("%s by month of %s: ", tr.MetricColumn, tr.DateColumn))
		for i, p := range tr.Points {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(fmt.Sprintf("%s=%.2f", p.Period, p.Value))
		}
		b.WriteString(fmt.Sprintf("\ngrowth %s (%s)\n", fmtPtr(tr.GrowthPct, "%.2f%%"), tr.Direction))
	}
	k := r.KPIs
	if k.RevenueColumn != "" || k.VolumeColumn != "" {
		b.WriteString("\n[KPIS]\n")
		if k.RevenueColumn != "" {
			b.WriteString(fmt.Sprintf("- %s: total %s, avg %s\n", k.RevenueColumn, fmtPtr(k.TotalRevenueLike, "%.2f"), fmtPtr(k.AvgRevenueLike, "%.2f")))
		}
		if k.VolumeColumn != "" {
			b.WriteString(fmt.Sprintf("- %s: total %s, avg %s\n", k.VolumeColumn, fmtPtr(k.TotalVolumeLike, "%.2f"), fmtPtr(k.AvgVolumeLike, "%.2f")))
		}
		if k.AvgValuePerUnit != nil {
			b.WriteString(fmt.Sprintf("- value per unit: %.4f\n", *k.AvgValuePerUnit))
		}
	}
	return utils.TruncateToTokenLimit(b.String(), limit)
}

func writeRow(b *strings.Builder, label, value string) {
	b.WriteString("| " + label + " | " + value + " |\n")
}

func fmtPtr(v *float64, format string) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf(format, *v)
}

func safeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "(unnamed)"
	}
	return s
}

func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }
