package analysis

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/KaramelBytes/datalens-cli/internal/table"
)

// Resolution values record how the answer's target month was chosen.
const (
	ResolutionPeriod      = "explicit_period"
	ResolutionMonthName   = "month_name"
	ResolutionLatest      = "latest"
	ResolutionFallback    = "fallback_latest"
	ResolutionUnavailable = "unavailable"
)

var (
	periodPattern = regexp.MustCompile(`\b(\d{4})-(0[1-9]|1[0-2])\b`)
	monthPattern  = regexp.MustCompile(`(?i)\b(january|february|march|april|may|june|july|august|september|october|november|december|sept|jan|feb|mar|apr|jun|jul|aug|sep|oct|nov|dec)\b`)

	monthNumbers = map[string]time.Month{
		"jan": time.January, "january": time.January,
		"feb": time.February, "february": time.February,
		"mar": time.March, "march": time.March,
		"apr": time.April, "april": time.April,
		"may": time.May,
		"jun": time.June, "june": time.June,
		"jul": time.July, "july": time.July,
		"aug": time.August, "august": time.August,
		"sep": time.September, "sept": time.September, "september": time.September,
		"oct": time.October, "october": time.October,
		"nov": time.November, "november": time.November,
		"dec": time.December, "december": time.December,
	}

	titleCase = cases.Title(language.English)
)

// matchMonthName returns the longest month token in q, earliest on ties.
func matchMonthName(q string) (token string, m time.Month, ok bool) {
	best := []int(nil)
	for _, loc := range monthPattern.FindAllStringIndex(q, -1) {
		if best == nil || loc[1]-loc[0] > best[1]-best[0] {
			best = loc
		}
	}
	if best == nil {
		return "", 0, false
	}
	token = q[best[0]:best[1]]
	return token, monthNumbers[strings.ToLower(token)], true
}

// resolvePeriod picks the index of the target month in months, which must be
// chronological and non-empty.
func resolvePeriod(question string, months []PnLPoint) (idx int, requested, resolution string) {
	latest := len(months) - 1
	if loc := periodPattern.FindString(question); loc != "" {
		for i := latest; i >= 0; i-- {
			if months[i].Period == loc {
				return i, loc, ResolutionPeriod
			}
		}
		return latest, loc, ResolutionFallback
	}
	if token, month, ok := matchMonthName(question); ok {
		for i := latest; i >= 0; i-- {
			ts, err := time.Parse(periodLayout, months[i].Period)
			if err == nil && ts.Month() == month {
				return i, token, ResolutionMonthName
			}
		}
		return latest, token, ResolutionFallback
	}
	return latest, "", ResolutionLatest
}

func deltaOf(cur, prev *float64) *float64 {
	if cur == nil || prev == nil {
		return nil
	}
	return ptr(*cur - *prev)
}

// answerMetric prefers profit, then revenue, then cost.
func answerMetric(p pnl) (name string, pick func(PnLPoint) *float64, vals []float64, ok []bool) {
	switch {
	case p.hasProfit():
		return "profit", func(pt PnLPoint) *float64 { return pt.Profit }, p.profit, p.profitOK
	case p.hasRevenue():
		return "revenue", func(pt PnLPoint) *float64 { return pt.Revenue }, p.revenue, p.revenueOK
	default:
		return "cost", func(pt PnLPoint) *float64 { return pt.Cost }, p.cost, p.costOK
	}
}

func buildAnswer(t *table.Table, cr *columnRoles, br BusinessRoles, p pnl, st Result[SimplifiedTrend], question string) Answer {
	a := Answer{Question: question}
	trend, ok := st.Get()
	if !ok {
		a.Resolution = ResolutionUnavailable
		if tok, _, found := matchMonthName(question); found {
			a.RequestedPeriod = tok
		}
		if lit := periodPattern.FindString(question); lit != "" {
			a.RequestedPeriod = lit
		}
		a.Text = fmt.Sprintf("There is not enough dated revenue, cost or profit data to compare months (%s).", st.Reason())
		return a
	}
	months := trend.months
	idx, requested, resolution := resolvePeriod(question, months)
	a.Resolution = resolution
	a.RequestedPeriod = requested
	a.TargetPeriod = months[idx].Period

	metric, pick, vals, valsOK := answerMetric(p)
	a.Metric = metric
	cur := months[idx]
	a.Current = pick(cur)

	var prefix string
	if resolution == ResolutionFallback {
		prefix = fmt.Sprintf("No data for %s; using the latest available month %s. ", requested, a.TargetPeriod)
	}
	if idx == 0 {
		a.Text = prefix + fmt.Sprintf("%s is the earliest month in the data, so there is no prior month to compare %s against.", a.TargetPeriod, metric)
		return a
	}
	prev := months[idx-1]
	a.PreviousPeriod = prev.Period
	a.Previous = pick(prev)
	a.ProfitDelta = deltaOf(cur.Profit, prev.Profit)
	a.RevenueDelta = deltaOf(cur.Revenue, prev.Revenue)
	a.CostDelta = deltaOf(cur.Cost, prev.Cost)

	delta := *a.Current - *a.Previous
	a.ChangePct = growth(*a.Current, *a.Previous)
	switch {
	case delta > 0:
		a.Direction = "up"
	case delta < 0:
		a.Direction = "down"
	default:
		a.Direction = "flat"
	}
	a.LikelyFactor = likelyFactor(delta, a.RevenueDelta, a.CostDelta)
	if br.Segment != "" {
		a.TopDecline = topDecline(t, cr.parsed[trend.DateColumn], br.Segment, metric, vals, valsOK, prev.Period, cur.Period)
	}

	var b strings.Builder
	b.WriteString(prefix)
	verb := map[string]string{"up": "rose", "down": "fell", "flat": "was unchanged"}[a.Direction]
	if a.Direction == "flat" {
		fmt.Fprintf(&b, "%s %s in %s compared with %s", titleCase.String(metric), verb, a.TargetPeriod, a.PreviousPeriod)
	} else {
		mag := delta
		if mag < 0 {
			mag = -mag
		}
		fmt.Fprintf(&b, "%s %s by %.2f", titleCase.String(metric), verb, mag)
		if a.ChangePct != nil {
			fmt.Fprintf(&b, " (%+.2f%%)", *a.ChangePct)
		}
		fmt.Fprintf(&b, " in %s compared with %s", a.TargetPeriod, a.PreviousPeriod)
	}
	fmt.Fprintf(&b, ", from %.2f to %.2f. Most likely factor: %s.", *a.Previous, *a.Current, a.LikelyFactor)
	if a.TopDecline != nil {
		fmt.Fprintf(&b, " Largest segment decline: %s '%s' (%.2f).", a.TopDecline.SegmentColumn, a.TopDecline.Segment, a.TopDecline.Delta)
	}
	a.Text = b.String()
	return a
}

func likelyFactor(delta float64, revDelta, costDelta *float64) string {
	revDown := revDelta != nil && *revDelta < 0
	revUp := revDelta != nil && *revDelta > 0
	costUp := costDelta != nil && *costDelta > 0
	costDown := costDelta != nil && *costDelta < 0
	if delta < 0 {
		switch {
		case revDown && costUp:
			return "revenue fell while costs rose"
		case revDown:
			return "lower revenue"
		case costUp:
			return "higher costs"
		}
	}
	if delta > 0 {
		switch {
		case revUp && costDown:
			return "revenue grew while costs fell"
		case revUp:
			return "higher revenue"
		case costDown:
			return "lower costs"
		}
	}
	return "mix shift across segments"
}

// topDecline finds the segment whose metric dropped the most between the two
// periods. Ties keep the segment seen first.
func topDecline(t *table.Table, dates []time.Time, segment, metric string, vals []float64, ok []bool, prevPeriod, curPeriod string) *SegmentDelta {
	col, found := t.Column(segment)
	if !found || dates == nil {
		return nil
	}
	type pair struct{ prev, cur float64 }
	sums := map[string]*pair{}
	var order []string
	for i, ts := range dates {
		if ts.IsZero() || !ok[i] {
			continue
		}
		period := ts.Format(periodLayout)
		if period != prevPeriod && period != curPeriod {
			continue
		}
		label := cleanLabel(col.Value(i))
		s := sums[label]
		if s == nil {
			s = &pair{}
			sums[label] = s
			order = append(order, label)
		}
		if period == curPeriod {
			s.cur += vals[i]
		} else {
			s.prev += vals[i]
		}
	}
	var best *SegmentDelta
	for _, label := range order {
		s := sums[label]
		d := s.cur - s.prev
		if d >= 0 {
			continue
		}
		if best == nil || d < best.Delta {
			best = &SegmentDelta{SegmentColumn: segment, Segment: label, Metric: metric, Previous: s.prev, Current: s.cur, Delta: d}
		}
	}
	return best
}
