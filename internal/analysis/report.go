package analysis

// Report is the analyst report for one table. It is built fresh per call and
// never mutated afterwards.
type Report struct {
	Name                string                      `json:"dataset,omitempty"`
	Schema              []ColumnInfo                `json:"schema"`
	BusinessRoles       BusinessRoles               `json:"business_roles"`
	ExecutiveSummary    string                      `json:"executive_summary"`
	Recommendations     []string                    `json:"recommendations"`
	DataQuality         DataQuality                 `json:"data_quality"`
	NumericProfiles     []NumericProfile            `json:"numeric_profiles"`
	CategoricalProfiles []CategoricalProfile        `json:"categorical_profiles"`
	TopCorrelations     []CorrelationEdge           `json:"top_correlations"`
	Segments            []SegmentGroup              `json:"segments"`
	Trend               Result[Trend]               `json:"trend"`
	KPIs                KPIs                        `json:"kpis"`
	BusinessSummary     BusinessSummary             `json:"business_summary"`
	ProfitLossBreakdown Result[ProfitLossBreakdown] `json:"profit_loss_breakdown"`
	SimplifiedTrend     Result[SimplifiedTrend]     `json:"simplified_trend"`
	ChartExplanations   []ChartExplanation          `json:"chart_explanations"`
	KeyDrivers          KeyDrivers                  `json:"key_drivers"`
	Alerts              []Alert                     `json:"alerts"`
	Answer              *Answer                     `json:"answer,omitempty"`
}

// ColumnInfo lists a column with its storage type and inferred role.
type ColumnInfo struct {
	Column string     `json:"column"`
	Dtype  string     `json:"dtype"`
	Role   ColumnRole `json:"role"`
}

type DataQuality struct {
	RowsAnalyzed           int                    `json:"rows_analyzed"`
	ColumnsAnalyzed        int                    `json:"columns_analyzed"`
	DuplicateRows          int                    `json:"duplicate_rows"`
	DuplicatePct           float64                `json:"duplicate_pct"`
	CompletenessPct        float64                `json:"completeness_pct"`
	HighMissingColumns     []MissingColumn        `json:"high_missing_columns"`
	InconsistentCategories []InconsistentCategory `json:"inconsistent_categories"`
}

type MissingColumn struct {
	Column       string  `json:"column"`
	MissingCount int     `json:"missing_count"`
	MissingPct   float64 `json:"missing_pct"`
}

// InconsistentCategory is a normalized label spelled more than one way in a column.
type InconsistentCategory struct {
	Column          string   `json:"column"`
	NormalizedValue string   `json:"normalized_value"`
	VariantCount    int      `json:"variant_count"`
	AffectedRows    int      `json:"affected_rows"`
	Examples        []string `json:"examples"`
}

type NumericProfile struct {
	Column       string  `json:"column"`
	Count        int     `json:"count"`
	MissingPct   float64 `json:"missing_pct"`
	Min          float64 `json:"min"`
	Q1           float64 `json:"q1"`
	Median       float64 `json:"median"`
	Mean         float64 `json:"mean"`
	Q3           float64 `json:"q3"`
	Max          float64 `json:"max"`
	StdDev       float64 `json:"std_dev"`
	OutlierCount int     `json:"outlier_count"`
	OutlierPct   float64 `json:"outlier_pct"`
}

type CategoricalProfile struct {
	Column      string     `json:"column"`
	UniqueCount int        `json:"unique_count"`
	MissingPct  float64    `json:"missing_pct"`
	TopValues   []TopValue `json:"top_values"`
}

type TopValue struct {
	Label string  `json:"label"`
	Count int     `json:"count"`
	Pct   float64 `json:"pct"`
}

type CorrelationEdge struct {
	ColumnX     string  `json:"column_x"`
	ColumnY     string  `json:"column_y"`
	Correlation float64 `json:"correlation"`
	Strength    float64 `json:"strength"`
	Direction   string  `json:"direction"`
}

type SegmentGroup struct {
	SegmentColumn string       `json:"segment_column"`
	MetricColumn  string       `json:"metric_column"`
	TopSegments   []SegmentRow `json:"top_segments"`
}

type SegmentRow struct {
	Segment  string  `json:"segment"`
	Sum      float64 `json:"sum"`
	Mean     float64 `json:"mean"`
	Count    int     `json:"count"`
	SharePct float64 `json:"share_pct"`
}

type TrendPoint struct {
	Period string  `json:"period"`
	Value  float64 `json:"value"`
}

type Trend struct {
	DateColumn    string       `json:"date_column"`
	MetricColumn  string       `json:"metric_column"`
	LatestValue   float64      `json:"latest_value"`
	PreviousValue float64      `json:"previous_value"`
	GrowthPct     *float64     `json:"growth_pct"`
	Direction     string       `json:"direction"`
	Points        []TrendPoint `json:"points"`
}

type KPIs struct {
	RevenueColumn    string   `json:"revenue_column,omitempty"`
	TotalRevenueLike *float64 `json:"total_revenue_like,omitempty"`
	AvgRevenueLike   *float64 `json:"avg_revenue_like,omitempty"`
	VolumeColumn     string   `json:"volume_column,omitempty"`
	TotalVolumeLike  *float64 `json:"total_volume_like,omitempty"`
	AvgVolumeLike    *float64 `json:"avg_volume_like,omitempty"`
	AvgValuePerUnit  *float64 `json:"avg_value_per_unit,omitempty"`
}

type BusinessSummary struct {
	RevenueColumn   string   `json:"revenue_column,omitempty"`
	CostColumn      string   `json:"cost_column,omitempty"`
	ProfitColumn    string   `json:"profit_column,omitempty"`
	ProfitDerived   bool     `json:"profit_derived"`
	ProfitAvailable bool     `json:"profit_available"`
	TotalRevenue    *float64 `json:"total_revenue"`
	TotalCost       *float64 `json:"total_cost"`
	TotalProfit     *float64 `json:"total_profit"`
	ProfitMarginPct *float64 `json:"profit_margin_pct"`
	ProfitRows      *int     `json:"profit_rows"`
	LossRows        *int     `json:"loss_rows"`
	NeutralRows     *int     `json:"neutral_rows"`
	Message         *string  `json:"message"`
}

// SegmentPnL is one segment's profit and loss line.
type SegmentPnL struct {
	Segment   string   `json:"segment"`
	Profit    float64  `json:"profit"`
	Revenue   *float64 `json:"revenue,omitempty"`
	Cost      *float64 `json:"cost,omitempty"`
	MarginPct *float64 `json:"margin_pct"`
	Rows      int      `json:"rows"`
}

type ProfitLossBreakdown struct {
	SegmentColumn     string       `json:"segment_column"`
	ProfitColumn      string       `json:"profit_column"`
	Segments          []SegmentPnL `json:"segments"`
	TopProfitSegments []SegmentPnL `json:"top_profit_segments"`
	TopLossSegments   []SegmentPnL `json:"top_loss_segments"`

	all []SegmentPnL
}

// PnLPoint holds one month of revenue/cost/profit sums; absent series are nil.
type PnLPoint struct {
	Period  string   `json:"period"`
	Revenue *float64 `json:"revenue,omitempty"`
	Cost    *float64 `json:"cost,omitempty"`
	Profit  *float64 `json:"profit,omitempty"`
}

type SimplifiedTrend struct {
	DateColumn    string     `json:"date_column"`
	Series        []string   `json:"series"`
	GrowthMetric  string     `json:"growth_metric,omitempty"`
	LatestValue   *float64   `json:"latest_value"`
	PreviousValue *float64   `json:"previous_value"`
	GrowthPct     *float64   `json:"growth_pct"`
	Direction     string     `json:"direction,omitempty"`
	Points        []PnLPoint `json:"points"`

	// months is the full monthly table; Points keeps only the tail.
	months []PnLPoint
}

type ChartExplanation struct {
	Chart       string `json:"chart"`
	Title       string `json:"title"`
	Explanation string `json:"explanation"`
}

type Driver struct {
	Segment       string  `json:"segment"`
	SegmentColumn string  `json:"segment_column"`
	Metric        string  `json:"metric"`
	Value         float64 `json:"value"`
}

type KeyDrivers struct {
	Source               string           `json:"source,omitempty"`
	PositiveContributors []Driver         `json:"positive_contributors"`
	NegativeContributors []Driver         `json:"negative_contributors"`
	StrongestCorrelation *CorrelationEdge `json:"strongest_correlation"`
}

type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

func (s Severity) rank() int {
	switch s {
	case SeverityCritical:
		return 0
	case SeverityWarning:
		return 1
	}
	return 2
}

type Alert struct {
	Severity Severity `json:"severity"`
	Code     string   `json:"code"`
	Message  string   `json:"message"`
}

// SegmentDelta is a segment's change between the two compared months.
type SegmentDelta struct {
	SegmentColumn string  `json:"segment_column"`
	Segment       string  `json:"segment"`
	Metric        string  `json:"metric"`
	Previous      float64 `json:"previous"`
	Current       float64 `json:"current"`
	Delta         float64 `json:"delta"`
}

// Answer resolves a free-text month-over-month question.
type Answer struct {
	Question        string        `json:"question"`
	Resolution      string        `json:"resolution"`
	RequestedPeriod string        `json:"requested_period,omitempty"`
	TargetPeriod    string        `json:"target_period,omitempty"`
	PreviousPeriod  string        `json:"previous_period,omitempty"`
	Metric          string        `json:"metric,omitempty"`
	Current         *float64      `json:"current"`
	Previous        *float64      `json:"previous"`
	ProfitDelta     *float64      `json:"profit_delta"`
	RevenueDelta    *float64      `json:"revenue_delta"`
	CostDelta       *float64      `json:"cost_delta"`
	ChangePct       *float64      `json:"change_pct"`
	Direction       string        `json:"direction,omitempty"`
	LikelyFactor    string        `json:"likely_factor,omitempty"`
	TopDecline      *SegmentDelta `json:"top_decline,omitempty"`
	Text            string        `json:"answer"`
}
