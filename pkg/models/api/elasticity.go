package api

// ElasticityPoint is one sweep point as returned by the pricing service.
type ElasticityPoint struct {
	Price   float64 `json:"price"`
	Demand  float64 `json:"demand"`
	Revenue float64 `json:"revenue"`
}

// ElasticityResponse is the pricing service response for both request modes.
type ElasticityResponse struct {
	Curve          []ElasticityPoint `json:"curve"`
	OptimalPrice   *float64          `json:"optimal_price"`
	OptimalRevenue *float64          `json:"optimal_revenue"`
	Elasticity     *float64          `json:"elasticity"`

	// Some deployments answer 200 with an error payload.
	Error string `json:"error,omitempty"`
	Code  string `json:"code,omitempty"`
}

// ServiceError is the error body of the pricing service.
// FastAPI style deployments populate Detail, others Error or Message.
type ServiceError struct {
	Code    string `json:"code"`
	Detail  string `json:"detail"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

// FallbackRequest recomputes the curve from raw rows without server-held session state.
type FallbackRequest struct {
	FileName       string   `json:"file_name"`
	FileContentB64 string   `json:"file_content_b64"`
	GroupKeys      []string `json:"group_keys"`
	GroupValues    []string `json:"group_values"`
	Month          string   `json:"month"`
	PriceColumn    string   `json:"price_col"`
	SweepPercent   float64  `json:"sweep_pct"`
	NumPoints      int      `json:"num_points"`
}
