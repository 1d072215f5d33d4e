package sessions

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/de-tools/pricing-atlas/pkg/models/api"
	"github.com/de-tools/pricing-atlas/pkg/models/domain"
	"github.com/de-tools/pricing-atlas/pkg/services/analysis"
	"github.com/de-tools/pricing-atlas/pkg/services/elasticity"
	"github.com/de-tools/pricing-atlas/pkg/store/dataset"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubQuerier func(sel domain.EntitySelection, sweep domain.SweepParams) (domain.ElasticityCurve, error)

func (f stubQuerier) Query(
	_ context.Context,
	sel domain.EntitySelection,
	_ string,
	sweep domain.SweepParams,
) (domain.ElasticityCurve, error) {
	return f(sel, sweep)
}

func okCurve(domain.EntitySelection, domain.SweepParams) (domain.ElasticityCurve, error) {
	return domain.ElasticityCurve{
		Points:       []domain.CurvePoint{{Price: 10, Demand: 100, Revenue: 1000}, {Price: 12, Demand: 90, Revenue: 1080}},
		OptimalPrice: domain.Float(12),
		Elasticity:   domain.Float(-0.5),
	}, nil
}

var defaultSweep = domain.SweepParams{Percent: 20, Points: 21}

func setupRouter(q elasticity.Querier) http.Handler {
	ctrl := analysis.NewController(analysis.Settings{
		NewQuerier:     func(*dataset.Cache) elasticity.Querier { return q },
		MaxConcurrency: 2,
	})
	router := chi.NewRouter()
	router.Route("/api/v1", NewHandler(ctrl, defaultSweep).Routes)
	return router
}

func openRequest() api.OpenSessionRequest {
	return api.OpenSessionRequest{
		ServiceSessionID:   "svc-1",
		PrimaryDimension:   "store",
		SecondaryDimension: "product",
		DatasetName:        "sales.csv",
		Dataset:            "store,product,price\nS1,P001,10\nS1,P002,11\nS2,P001,9\n",
		Forecast: []api.ForecastRow{
			{Primary: "S1", Secondary: "P001", Date: "2024-01-01", PredictedDemand: 100},
			{Primary: "S1", Secondary: "P001", Date: "2024-02-01", PredictedDemand: 120},
			{Primary: "S1", Secondary: "P002", Date: "2024-01-01", PredictedDemand: 40},
			{Primary: "S2", Secondary: "P001", Date: "2024-03-01", PredictedDemand: 70},
		},
	}
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func openSession(t *testing.T, h http.Handler) api.Session {
	t.Helper()
	rec := do(t, h, http.MethodPost, "/api/v1/sessions", openRequest())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var session api.Session
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&session))
	return session
}

func TestOpenSession(t *testing.T) {
	h := setupRouter(stubQuerier(okCurve))

	session := openSession(t, h)

	assert.NotEmpty(t, session.ID)
	assert.Equal(t, "svc-1", session.ServiceSessionID)
	assert.Equal(t, []api.EntityGroup{
		{Primary: "S1", SecondaryCount: 2, Secondaries: []string{"P001", "P002"}},
		{Primary: "S2", SecondaryCount: 1, Secondaries: []string{"P001"}},
	}, session.Entities)
	assert.Equal(t, api.Selection{Primary: "S1", Secondary: "P001", Month: "2024-01"}, session.Selection)
}

func TestOpenSession_BadRequests(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*api.OpenSessionRequest)
	}{
		{name: "missing dimensions", mutate: func(r *api.OpenSessionRequest) { r.PrimaryDimension = "" }},
		{name: "no forecast", mutate: func(r *api.OpenSessionRequest) { r.Forecast = nil }},
		{name: "bad forecast date", mutate: func(r *api.OpenSessionRequest) { r.Forecast[0].Date = "Jan 2024" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := setupRouter(stubQuerier(okCurve))
			req := openRequest()
			tt.mutate(&req)

			rec := do(t, h, http.MethodPost, "/api/v1/sessions", req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			var body api.ErrorResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.NotEmpty(t, body.Error)
		})
	}
}

func TestOpenSession_FromForecastExport(t *testing.T) {
	h := setupRouter(stubQuerier(okCurve))
	req := openRequest()
	req.Forecast = nil
	req.ForecastExportName = "forecast.csv"
	req.ForecastExport = "date,store,product,predicted\n2024-01-01,S1,P001,100\n2024-02-01,S1,P001,110\n"

	rec := do(t, h, http.MethodPost, "/api/v1/sessions", req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var session api.Session
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&session))
	assert.Len(t, session.Entities, 1)
}

func TestRunElasticity(t *testing.T) {
	var got domain.SweepParams
	h := setupRouter(stubQuerier(func(sel domain.EntitySelection, sweep domain.SweepParams) (domain.ElasticityCurve, error) {
		got = sweep
		return okCurve(sel, sweep)
	}))
	session := openSession(t, h)

	rec := do(t, h, http.MethodPost, "/api/v1/sessions/"+session.ID+"/elasticity", api.SweepRequest{SweepPercent: 30})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var state api.AnalysisState
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&state))
	require.NotNil(t, state.Curve)
	assert.Equal(t, 10.0, state.Curve.CurrentPrice)
	assert.Equal(t, domain.SweepParams{Percent: 30, Points: 21}, got)
	require.Len(t, state.Rows, 2)
	assert.Equal(t, "2024-01-01", state.Rows[0].Date)
	assert.Equal(t, 12.0, state.Rows[0].OptimalPrice)
	assert.InDelta(t, 1200.0, state.Rows[0].RevenueAtOptimal, 1e-9)

	rec = do(t, h, http.MethodGet, "/api/v1/sessions/"+session.ID+"/state", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var stored api.AnalysisState
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&stored))
	assert.Equal(t, state.Token, stored.Token)
}

func TestRunElasticity_DefaultSweepWithoutBody(t *testing.T) {
	var got domain.SweepParams
	h := setupRouter(stubQuerier(func(sel domain.EntitySelection, sweep domain.SweepParams) (domain.ElasticityCurve, error) {
		got = sweep
		return okCurve(sel, sweep)
	}))
	session := openSession(t, h)

	rec := do(t, h, http.MethodPost, "/api/v1/sessions/"+session.ID+"/elasticity", nil)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, defaultSweep, got)
}

func TestRunElasticity_InvalidSweep(t *testing.T) {
	h := setupRouter(stubQuerier(okCurve))
	session := openSession(t, h)

	rec := do(t, h, http.MethodPost, "/api/v1/sessions/"+session.ID+"/elasticity", api.SweepRequest{NumPoints: 200})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRunElasticity_QueryFailure(t *testing.T) {
	h := setupRouter(stubQuerier(func(domain.EntitySelection, domain.SweepParams) (domain.ElasticityCurve, error) {
		return domain.ElasticityCurve{}, &elasticity.QueryError{
			Kind:    elasticity.KindMissingPriceColumn,
			Status:  http.StatusBadRequest,
			Message: "Dataset has no price column",
		}
	}))
	session := openSession(t, h)

	rec := do(t, h, http.MethodPost, "/api/v1/sessions/"+session.ID+"/elasticity", nil)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var body api.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "missing-price-column", body.Kind)
	assert.Contains(t, body.Error, "Add a numeric price column")
}

func TestRunOptimalPrices_PartialNotice(t *testing.T) {
	h := setupRouter(stubQuerier(func(sel domain.EntitySelection, sweep domain.SweepParams) (domain.ElasticityCurve, error) {
		if sel.Month == "2024-02" {
			return domain.ElasticityCurve{}, &elasticity.QueryError{Kind: elasticity.KindMonthOutOfRange, Message: "no data for month"}
		}
		return okCurve(sel, sweep)
	}))
	session := openSession(t, h)

	rec := do(t, h, http.MethodPost, "/api/v1/sessions/"+session.ID+"/optimal-prices", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var state api.AnalysisState
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&state))
	require.Len(t, state.MonthlyPrices, 1)
	assert.Equal(t, "2024-01", state.MonthlyPrices[0].Month)
	assert.Equal(t, "Optimal prices computed for 1 of 2 months.", state.Notice)
	assert.Len(t, state.Rows, 2)
}

func TestSelection(t *testing.T) {
	h := setupRouter(stubQuerier(okCurve))
	session := openSession(t, h)
	base := "/api/v1/sessions/" + session.ID

	rec := do(t, h, http.MethodPut, base+"/selection", api.Selection{Primary: "S2"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var sel api.Selection
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&sel))
	assert.Equal(t, api.Selection{Primary: "S2", Secondary: "P001", Month: "2024-03"}, sel)

	rec = do(t, h, http.MethodGet, base+"/months", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var months api.Months
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&months))
	assert.Equal(t, []string{"2024-03"}, months.Months)

	rec = do(t, h, http.MethodPut, base+"/selection", api.Selection{Primary: "S9"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, base+"/selection", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&sel))
	assert.Equal(t, "S2", sel.Primary)
}

func TestSessionLifecycle(t *testing.T) {
	h := setupRouter(stubQuerier(okCurve))
	session := openSession(t, h)
	base := "/api/v1/sessions/" + session.ID

	rec := do(t, h, http.MethodGet, base+"/entities", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodDelete, base, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	for _, path := range []string{base + "/entities", base + "/state", base + "/months"} {
		rec = do(t, h, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
	}
	rec = do(t, h, http.MethodDelete, base, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
