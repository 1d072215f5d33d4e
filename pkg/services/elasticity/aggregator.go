package elasticity

import (
	"context"
	"fmt"
	"sync"

	"github.com/de-tools/pricing-atlas/pkg/models/domain"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const DefaultMaxConcurrency = 6

// Aggregator runs the single-month query for every forecast month of one entity.
type Aggregator struct {
	querier        Querier
	maxConcurrency int
}

func NewAggregator(querier Querier, maxConcurrency int) *Aggregator {
	if maxConcurrency <= 0 {
		maxConcurrency = DefaultMaxConcurrency
	}
	return &Aggregator{querier: querier, maxConcurrency: maxConcurrency}
}

// AggregateAllMonths queries every month independently. A month that fails is
// left out of the result; the batch fails only if the selection is invalid, the
// context is done, or every month failed because no session data could be recovered.
func (a *Aggregator) AggregateAllMonths(
	ctx context.Context,
	sel domain.EntitySelection,
	sessionID string,
	months []string,
	sweep domain.SweepParams,
) (map[string]domain.MonthlyPriceRecord, error) {
	logger := zerolog.Ctx(ctx)

	unique := dedupe(months)
	result := make(map[string]domain.MonthlyPriceRecord, len(unique))
	if len(unique) == 0 {
		return result, nil
	}
	if err := sel.WithMonth(unique[0]).Validate(); err != nil {
		return nil, fmt.Errorf("invalid selection: %w", err)
	}

	var (
		mu             sync.Mutex
		missingSession int
		lastErr        error
	)

	// Each month reports its own failure; returning nil keeps one month from cancelling the rest.
	g := new(errgroup.Group)
	g.SetLimit(a.maxConcurrency)
	for _, month := range unique {
		month := month // per-iteration copy; module targets go 1.21 (pre-1.22 loopvar semantics)
		g.Go(func() error {
			curve, err := a.querier.Query(ctx, sel.WithMonth(month), sessionID, sweep)
			if err == nil {
				rec, ok := RecordFromCurve(month, curve)
				if ok {
					mu.Lock()
					result[month] = rec
					mu.Unlock()
					return nil
				}
				err = &QueryError{Kind: KindUnknown, Message: "curve has no optimal price"}
			}

			logger.Warn().Err(err).Str("month", month).Msg("skipping month in optimal price aggregation")
			mu.Lock()
			if KindOf(err) == KindMissingSession {
				missingSession++
			}
			lastErr = err
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if missingSession == len(unique) {
		return nil, lastErr
	}
	if len(result) < len(unique) {
		logger.Info().
			Int("succeeded", len(result)).
			Int("requested", len(unique)).
			Msg("optimal price aggregation finished with missing months")
	}
	return result, nil
}

// RecordFromCurve builds the month entry; curves without an optimal price yield none.
func RecordFromCurve(month string, curve domain.ElasticityCurve) (domain.MonthlyPriceRecord, bool) {
	current, ok := curve.CurrentPrice()
	if !ok || curve.OptimalPrice == nil {
		return domain.MonthlyPriceRecord{}, false
	}
	rec := domain.MonthlyPriceRecord{
		Month:        month,
		OptimalPrice: *curve.OptimalPrice,
		CurrentPrice: current,
	}
	if curve.Elasticity != nil {
		e := *curve.Elasticity
		rec.Elasticity = &e
	}
	return rec, true
}

func dedupe(months []string) []string {
	seen := make(map[string]struct{}, len(months))
	res := make([]string, 0, len(months))
	for _, m := range months {
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		res = append(res, m)
	}
	return res
}
