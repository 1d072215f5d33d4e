package analysis

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/de-tools/pricing-atlas/pkg/models/domain"
	"github.com/de-tools/pricing-atlas/pkg/services/elasticity"
	"github.com/de-tools/pricing-atlas/pkg/services/selection"
	"github.com/de-tools/pricing-atlas/pkg/services/synthesis"
	"github.com/de-tools/pricing-atlas/pkg/store/dataset"
	"github.com/rs/zerolog"
)

var (
	ErrSessionNotFound = errors.New("analysis session not found")
	ErrSuperseded      = errors.New("analysis run superseded by a newer request")
	ErrNoMonths        = errors.New("selected entity has no forecast months")
)

// SelectionChange carries the fields the user changed; empty fields are left as they are.
type SelectionChange struct {
	Primary   string
	Secondary string
	Month     string
}

// Session is one results session: the forecast, the retained dataset and the
// state shown to the user. State is replaced wholesale; a run commits only if
// no newer run or selection change was issued after it started.
type Session struct {
	id               string
	serviceSessionID string
	forecast         domain.ForecastSet
	cache            *dataset.Cache
	resolver         *selection.Resolver
	querier          elasticity.Querier
	aggregator       *elasticity.Aggregator
	now              func() time.Time

	mu     sync.Mutex
	state  domain.AnalysisState
	latest uint64
	cancel context.CancelFunc
}

func (s *Session) ID() string               { return s.id }
func (s *Session) ServiceSessionID() string { return s.serviceSessionID }
func (s *Session) Cache() *dataset.Cache    { return s.cache }

func (s *Session) PrimaryDimension() string   { return s.resolver.PrimaryDimension() }
func (s *Session) SecondaryDimension() string { return s.resolver.SecondaryDimension() }

func (s *Session) State() domain.AnalysisState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Entities() []domain.EntityGroup {
	return s.resolver.Entities()
}

func (s *Session) Secondaries(primary string) []string {
	return s.resolver.Secondaries(primary)
}

// Months returns the months available for the current selection.
func (s *Session) Months() []string {
	sel := s.State().Selection
	return s.resolver.Months(sel.Primary, sel.Secondary)
}

// Select applies a selection change. Any in-flight run is invalidated. Changing
// the entity discards the computed results; changing only the month keeps the
// monthly table but drops the single-month curve.
func (s *Session) Select(change SelectionChange) (domain.AnalysisState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.state.Selection
	next := current
	var err error

	if change.Primary != "" && change.Primary != next.Primary {
		if next, err = s.resolver.SelectPrimary(next, change.Primary); err != nil {
			return s.state, err
		}
	}
	if change.Secondary != "" && change.Secondary != next.Secondary {
		if next, err = s.resolver.SelectSecondary(next, change.Secondary); err != nil {
			return s.state, err
		}
	}
	if change.Month != "" && change.Month != next.Month {
		if next, err = s.resolver.SelectMonth(next, change.Month); err != nil {
			return s.state, err
		}
	}
	if next == current {
		return s.state, nil
	}

	s.invalidateLocked()
	state := domain.AnalysisState{
		Token:     s.latest,
		Selection: next,
		UpdatedAt: s.now(),
	}
	if next.Primary == current.Primary && next.Secondary == current.Secondary {
		state.Monthly = s.state.Monthly
	}
	state.Rows = s.rows(state)
	s.state = state
	return state, nil
}

// RunSingle queries the curve for the selected month.
func (s *Session) RunSingle(ctx context.Context, sweep domain.SweepParams) (domain.AnalysisState, error) {
	if err := sweep.Validate(); err != nil {
		return s.State(), err
	}
	ctx, token, sel, done := s.begin(ctx)
	defer done()

	if sel.Month == "" {
		return s.fail(token, ErrNoMonths)
	}

	logger := zerolog.Ctx(ctx)
	curve, err := s.querier.Query(ctx, s.resolver.EntitySelection(sel), s.serviceSessionID, sweep)
	if err != nil {
		logger.Error().Err(err).Str("month", sel.Month).Msg("elasticity query failed")
		return s.fail(token, err)
	}

	return s.commit(token, func(st domain.AnalysisState) domain.AnalysisState {
		st.Curve = &curve
		st.Monthly = nil
		st.Notice = ""
		return st
	})
}

// RunAllMonths builds the monthly optimal price table for the selected entity.
func (s *Session) RunAllMonths(ctx context.Context, sweep domain.SweepParams) (domain.AnalysisState, error) {
	if err := sweep.Validate(); err != nil {
		return s.State(), err
	}
	ctx, token, sel, done := s.begin(ctx)
	defer done()

	months := s.resolver.Months(sel.Primary, sel.Secondary)
	if len(months) == 0 {
		return s.fail(token, ErrNoMonths)
	}

	logger := zerolog.Ctx(ctx)
	table, err := s.aggregator.AggregateAllMonths(ctx, s.resolver.EntitySelection(sel), s.serviceSessionID, months, sweep)
	if err != nil {
		logger.Error().Err(err).Msg("optimal price aggregation failed")
		return s.fail(token, err)
	}
	if len(table) == 0 {
		return s.fail(token, fmt.Errorf("no month of %d could be priced", len(months)))
	}

	return s.commit(token, func(st domain.AnalysisState) domain.AnalysisState {
		st.Monthly = table
		st.Notice = ""
		if len(table) < len(months) {
			st.Notice = fmt.Sprintf("Optimal prices computed for %d of %d months.", len(table), len(months))
		}
		return st
	})
}

// Close cancels any in-flight run.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invalidateLocked()
}

func (s *Session) begin(parent context.Context) (context.Context, uint64, domain.Selection, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.invalidateLocked()
	ctx, cancel := context.WithCancel(parent)
	s.cancel = cancel
	token := s.latest

	done := func() {
		cancel()
		s.mu.Lock()
		if s.latest == token {
			s.cancel = nil
		}
		s.mu.Unlock()
	}
	return ctx, token, s.state.Selection, done
}

func (s *Session) invalidateLocked() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.latest++
}

func (s *Session) commit(
	token uint64,
	update func(domain.AnalysisState) domain.AnalysisState,
) (domain.AnalysisState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if token != s.latest {
		return s.state, ErrSuperseded
	}
	next := update(s.state)
	next.Token = token
	next.UpdatedAt = s.now()
	next.Rows = s.rows(next)
	s.state = next
	return next, nil
}

// fail records the user-facing message and keeps the previous results visible.
func (s *Session) fail(token uint64, cause error) (domain.AnalysisState, error) {
	state, err := s.commit(token, func(st domain.AnalysisState) domain.AnalysisState {
		st.Notice = userMessage(cause)
		return st
	})
	if err != nil {
		return state, err
	}
	return state, cause
}

func userMessage(err error) string {
	var qe *elasticity.QueryError
	if errors.As(err, &qe) {
		return qe.UserMessage()
	}
	if errors.Is(err, ErrNoMonths) {
		return "The selected entity has no forecast months. Pick a different entity."
	}
	return elasticity.UserMessage(err)
}

func (s *Session) rows(st domain.AnalysisState) []domain.TimeSeriesRow {
	fallback, ok := fallbackFor(st)
	if !ok {
		return nil
	}
	return synthesis.Synthesize(s.resolver.Forecast(s.forecast, st.Selection), fallback, st.Monthly)
}

// fallbackFor prefers the single-month curve; without one the earliest monthly record is broadcast.
func fallbackFor(st domain.AnalysisState) (synthesis.Fallback, bool) {
	if st.Curve != nil && len(st.Curve.Points) > 0 {
		return synthesis.FallbackFromCurve(*st.Curve), true
	}
	if len(st.Monthly) == 0 {
		return synthesis.Fallback{}, false
	}
	months := make([]string, 0, len(st.Monthly))
	for m := range st.Monthly {
		months = append(months, m)
	}
	sort.Strings(months)
	rec := st.Monthly[months[0]]
	return synthesis.Fallback{
		CurrentPrice: rec.CurrentPrice,
		OptimalPrice: rec.OptimalPrice,
		Elasticity:   rec.Elasticity,
	}, true
}
