package api

import "time"

type ForecastRow struct {
	Primary         string   `json:"primary"`
	Secondary       string   `json:"secondary"`
	Date            string   `json:"date"`
	PredictedDemand float64  `json:"predicted_demand"`
	UpperBound      *float64 `json:"upper_bound,omitempty"`
	LowerBound      *float64 `json:"lower_bound,omitempty"`
}

// OpenSessionRequest starts a results session after a successful upload and forecast run.
type OpenSessionRequest struct {
	ServiceSessionID   string        `json:"service_session_id"`
	PrimaryDimension   string        `json:"primary_dimension"`
	SecondaryDimension string        `json:"secondary_dimension"`
	DatasetName        string        `json:"dataset_name"`
	Dataset            string        `json:"dataset"`
	ForecastExportName string        `json:"forecast_export_name,omitempty"`
	ForecastExport     string        `json:"forecast_export,omitempty"`
	Forecast           []ForecastRow `json:"forecast"`
}

type Session struct {
	ID                 string        `json:"id"`
	ServiceSessionID   string        `json:"service_session_id"`
	PrimaryDimension   string        `json:"primary_dimension"`
	SecondaryDimension string        `json:"secondary_dimension"`
	Entities           []EntityGroup `json:"entities"`
	Selection          Selection     `json:"selection"`
}

type EntityGroup struct {
	Primary        string   `json:"primary"`
	SecondaryCount int      `json:"secondary_count"`
	Secondaries    []string `json:"secondaries"`
}

type Selection struct {
	Primary   string `json:"primary,omitempty"`
	Secondary string `json:"secondary,omitempty"`
	Month     string `json:"month,omitempty"`
}

type Months struct {
	Months []string `json:"months"`
}

type SweepRequest struct {
	SweepPercent float64 `json:"sweep_pct"`
	NumPoints    int     `json:"num_points"`
}

type Curve struct {
	Points         []ElasticityPoint `json:"points"`
	CurrentPrice   float64           `json:"current_price"`
	OptimalPrice   *float64          `json:"optimal_price"`
	OptimalRevenue *float64          `json:"optimal_revenue"`
	Elasticity     *float64          `json:"elasticity"`
}

type MonthlyPrice struct {
	Month        string   `json:"month"`
	OptimalPrice float64  `json:"optimal_price"`
	CurrentPrice float64  `json:"current_price"`
	Elasticity   *float64 `json:"elasticity,omitempty"`
}

type TimeSeriesRow struct {
	Date             string   `json:"date"`
	CurrentPrice     float64  `json:"current_price"`
	OptimalPrice     float64  `json:"optimal_price"`
	UpperBound       float64  `json:"upper_bound"`
	LowerBound       float64  `json:"lower_bound"`
	RevenueAtOptimal float64  `json:"revenue_at_optimal"`
	Elasticity       *float64 `json:"elasticity,omitempty"`
}

type AnalysisState struct {
	Token         uint64          `json:"token"`
	Selection     Selection       `json:"selection"`
	Curve         *Curve          `json:"curve,omitempty"`
	MonthlyPrices []MonthlyPrice  `json:"monthly_prices"`
	Rows          []TimeSeriesRow `json:"rows"`
	Notice        string          `json:"notice,omitempty"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}
