package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/de-tools/pricing-atlas/pkg/adapters"
	"github.com/de-tools/pricing-atlas/pkg/models/api"
	"github.com/de-tools/pricing-atlas/pkg/models/domain"
	"github.com/de-tools/pricing-atlas/pkg/services/analysis"
	"github.com/de-tools/pricing-atlas/pkg/services/elasticity"
	"github.com/de-tools/pricing-atlas/pkg/store/dataset"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

type Handler struct {
	ctrl         analysis.Controller
	defaultSweep domain.SweepParams
}

func NewHandler(ctrl analysis.Controller, defaultSweep domain.SweepParams) *Handler {
	return &Handler{
		ctrl:         ctrl,
		defaultSweep: defaultSweep,
	}
}

// Routes mounts the session endpoints under the router it is given.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/sessions", h.OpenSession)
	r.Route("/sessions/{session}", func(r chi.Router) {
		r.Delete("/", h.CloseSession)
		r.Get("/entities", h.ListEntities)
		r.Get("/months", h.ListMonths)
		r.Get("/selection", h.GetSelection)
		r.Put("/selection", h.UpdateSelection)
		r.Post("/elasticity", h.RunElasticity)
		r.Post("/optimal-prices", h.RunOptimalPrices)
		r.Get("/state", h.GetState)
	})
}

func (h *Handler) OpenSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.OpenSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, fmt.Errorf("invalid session request: %w", err), "")
		return
	}

	forecast, err := forecastFromRequest(req)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err, "")
		return
	}

	opts := dataset.Options{}
	if req.Dataset != "" {
		opts.Raw = &dataset.Source{Name: req.DatasetName, Content: []byte(req.Dataset)}
	}
	if req.ForecastExport != "" {
		opts.ForecastExport = &dataset.Source{Name: req.ForecastExportName, Content: []byte(req.ForecastExport)}
	}

	session, err := h.ctrl.Open(ctx, analysis.SessionConfig{
		ServiceSessionID: req.ServiceSessionID,
		Forecast:         forecast,
		Cache:            dataset.NewCache(opts),
	})
	if err != nil {
		writeError(w, r, http.StatusUnprocessableEntity, err, "")
		return
	}

	writeJSON(w, r, http.StatusCreated, api.Session{
		ID:                 session.ID(),
		ServiceSessionID:   session.ServiceSessionID(),
		PrimaryDimension:   session.PrimaryDimension(),
		SecondaryDimension: session.SecondaryDimension(),
		Entities:           entityGroups(session),
		Selection:          adapters.MapSelectionDomainToApi(session.State().Selection),
	})
}

func (h *Handler) CloseSession(w http.ResponseWriter, r *http.Request) {
	if err := h.ctrl.Close(r.Context(), chi.URLParam(r, "session")); err != nil {
		writeError(w, r, statusFor(err), err, "")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListEntities(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, r, http.StatusOK, entityGroups(session))
}

func (h *Handler) ListMonths(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	months := session.Months()
	if months == nil {
		months = []string{}
	}
	writeJSON(w, r, http.StatusOK, api.Months{Months: months})
}

func (h *Handler) GetSelection(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, r, http.StatusOK, adapters.MapSelectionDomainToApi(session.State().Selection))
}

func (h *Handler) UpdateSelection(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	var req api.Selection
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, fmt.Errorf("invalid selection: %w", err), "")
		return
	}

	state, err := session.Select(analysis.SelectionChange{
		Primary:   req.Primary,
		Secondary: req.Secondary,
		Month:     req.Month,
	})
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err, "")
		return
	}
	writeJSON(w, r, http.StatusOK, adapters.MapSelectionDomainToApi(state.Selection))
}

func (h *Handler) RunElasticity(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, (*analysis.Session).RunSingle)
}

func (h *Handler) RunOptimalPrices(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, (*analysis.Session).RunAllMonths)
}

func (h *Handler) GetState(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, r, http.StatusOK, adapters.MapAnalysisStateDomainToApi(session.State()))
}

type runFunc func(*analysis.Session, context.Context, domain.SweepParams) (domain.AnalysisState, error)

func (h *Handler) run(w http.ResponseWriter, r *http.Request, fn runFunc) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	sweep, err := h.sweepFromRequest(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err, "")
		return
	}

	state, err := fn(session, r.Context(), sweep)
	if err != nil {
		kind := ""
		if k := elasticity.KindOf(err); k != elasticity.KindUnknown {
			kind = k.String()
		}
		msg := err
		if state.Notice != "" && !errors.Is(err, analysis.ErrSuperseded) {
			msg = errors.New(state.Notice)
		}
		writeError(w, r, statusFor(err), msg, kind)
		return
	}
	writeJSON(w, r, http.StatusOK, adapters.MapAnalysisStateDomainToApi(state))
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*analysis.Session, bool) {
	session, err := h.ctrl.Session(chi.URLParam(r, "session"))
	if err != nil {
		writeError(w, r, statusFor(err), err, "")
		return nil, false
	}
	return session, true
}

// sweepFromRequest reads an optional sweep body; missing fields take the configured defaults.
func (h *Handler) sweepFromRequest(r *http.Request) (domain.SweepParams, error) {
	sweep := h.defaultSweep

	var req api.SweepRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		return sweep, fmt.Errorf("invalid sweep parameters: %w", err)
	}
	if req.SweepPercent != 0 {
		sweep.Percent = req.SweepPercent
	}
	if req.NumPoints != 0 {
		sweep.Points = req.NumPoints
	}
	return sweep, sweep.Validate()
}

func forecastFromRequest(req api.OpenSessionRequest) (domain.ForecastSet, error) {
	if req.PrimaryDimension == "" || req.SecondaryDimension == "" {
		return domain.ForecastSet{}, fmt.Errorf("primary_dimension and secondary_dimension are required")
	}
	if len(req.Forecast) > 0 {
		return adapters.MapForecastRowsApiToDomain(req.PrimaryDimension, req.SecondaryDimension, req.Forecast)
	}
	if req.ForecastExport != "" {
		return dataset.ParseForecastCSV(strings.NewReader(req.ForecastExport), req.PrimaryDimension, req.SecondaryDimension)
	}
	return domain.ForecastSet{}, fmt.Errorf("forecast rows or a forecast export are required")
}

func entityGroups(session *analysis.Session) []api.EntityGroup {
	groups := session.Entities()
	res := make([]api.EntityGroup, 0, len(groups))
	for _, g := range groups {
		res = append(res, api.EntityGroup{
			Primary:        g.Primary,
			SecondaryCount: g.SecondaryCount,
			Secondaries:    session.Secondaries(g.Primary),
		})
	}
	return res
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, analysis.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, analysis.ErrSuperseded):
		return http.StatusConflict
	default:
		return http.StatusUnprocessableEntity
	}
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		zerolog.Ctx(r.Context()).Error().
			Err(err).
			Str("path", r.URL.Path).
			Msg("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, err error, kind string) {
	zerolog.Ctx(r.Context()).Warn().
		Err(err).
		Int("status", status).
		Msg("request failed")
	writeJSON(w, r, status, api.ErrorResponse{Error: err.Error(), Kind: kind})
}
