package analysis

import (
	"github.com/KaramelBytes/datalens-cli/internal/table"
)

var (
	revenueTokens = []string{"revenue", "sales", "amount", "total", "gmv", "value"}
	costTokens    = []string{"cost", "cogs", "expense", "spend", "ad_spend", "opex", "refund"}
	profitTokens  = []string{"profit", "margin", "earnings", "net_income"}
	volumeTokens  = []string{"quantity", "qty", "units", "orders", "count", "volume"}
	segmentTokens = []string{"region", "product", "category", "channel", "segment", "plan", "team"}
)

// BusinessRoles names the columns picked for each business meaning. An empty
// string means the role could not be resolved.
type BusinessRoles struct {
	Revenue       string `json:"revenue,omitempty"`
	Cost          string `json:"cost,omitempty"`
	Profit        string `json:"profit,omitempty"`
	Volume        string `json:"volume,omitempty"`
	Segment       string `json:"segment,omitempty"`
	Metric        string `json:"metric,omitempty"`
	ProfitDerived bool   `json:"profit_derived"`
}

// resolveRoles runs the greedy token scan in column order. The scan is
// order-stable: a column can only be claimed once across revenue, cost and profit.
func resolveRoles(cr *columnRoles) BusinessRoles {
	var br BusinessRoles
	br.Revenue = firstMatching(cr.numeric, revenueTokens)
	br.Cost = firstMatching(cr.numeric, costTokens, br.Revenue)
	br.Profit = firstMatching(cr.numeric, profitTokens, br.Revenue, br.Cost)
	br.Volume = firstMatching(cr.numeric, volumeTokens)
	br.ProfitDerived = br.Profit == "" && br.Revenue != "" && br.Cost != ""

	br.Segment = firstMatching(cr.categorical, segmentTokens)
	if br.Segment == "" && len(cr.categorical) > 0 {
		br.Segment = cr.categorical[0]
	}
	br.Metric = bestMetric(cr.numeric)
	return br
}

func firstMatching(columns []string, tokens []string, exclude ...string) string {
	for _, name := range columns {
		skip := false
		for _, ex := range exclude {
			if ex != "" && ex == name {
				skip = true
				break
			}
		}
		if !skip && containsAny(name, tokens) {
			return name
		}
	}
	return ""
}

// bestMetric prefers revenue-like names in token precedence order, then the
// first numeric column.
func bestMetric(numeric []string) string {
	if len(numeric) == 0 {
		return ""
	}
	for _, tok := range revenueTokens {
		for _, name := range numeric {
			if containsAny(name, []string{tok}) {
				return name
			}
		}
	}
	return numeric[0]
}

// pnl carries row-aligned revenue, cost and profit series. A nil slice means
// the series is unavailable.
type pnl struct {
	revenue, cost, profit       []float64
	revenueOK, costOK, profitOK []bool
	profitLabel                 string
}

func buildPnL(t *table.Table, br BusinessRoles) pnl {
	var p pnl
	if br.Revenue != "" {
		col, _ := t.Column(br.Revenue)
		p.revenue, p.revenueOK = numericSeries(col)
	}
	if br.Cost != "" {
		col, _ := t.Column(br.Cost)
		p.cost, p.costOK = numericSeries(col)
	}
	switch {
	case br.Profit != "":
		col, _ := t.Column(br.Profit)
		p.profit, p.profitOK = numericSeries(col)
		p.profitLabel = br.Profit
	case br.ProfitDerived:
		// A missing side counts as zero so that profit totals reconcile with
		// revenue minus cost; rows with both sides missing stay null.
		n := t.Rows()
		p.profit = make([]float64, n)
		p.profitOK = make([]bool, n)
		for i := 0; i < n; i++ {
			if !p.revenueOK[i] && !p.costOK[i] {
				continue
			}
			var r, c float64
			if p.revenueOK[i] {
				r = p.revenue[i]
			}
			if p.costOK[i] {
				c = p.cost[i]
			}
			p.profit[i] = r - c
			p.profitOK[i] = true
		}
		p.profitLabel = "profit"
	}
	return p
}

func (p pnl) hasRevenue() bool { return p.revenue != nil }
func (p pnl) hasCost() bool    { return p.cost != nil }
func (p pnl) hasProfit() bool  { return p.profit != nil }
