package synthesis

import (
	"github.com/de-tools/pricing-atlas/pkg/models/domain"
)

const (
	upperBandFactor = 1.1
	lowerBandFactor = 0.9
)

// Fallback holds the single-month values broadcast to months without a table entry.
type Fallback struct {
	CurrentPrice float64
	OptimalPrice float64
	Elasticity   *float64
}

// FallbackFromCurve uses the curve's first sweep price as current price. A curve
// without an optimal price falls back to the current price.
func FallbackFromCurve(curve domain.ElasticityCurve) Fallback {
	current, _ := curve.CurrentPrice()
	fb := Fallback{CurrentPrice: current, OptimalPrice: current}
	if curve.OptimalPrice != nil {
		fb.OptimalPrice = *curve.OptimalPrice
	}
	if curve.Elasticity != nil {
		e := *curve.Elasticity
		fb.Elasticity = &e
	}
	return fb
}

// Synthesize returns exactly one row per forecast point, in forecast order.
// Bounds are a flat band around the optimal price.
func Synthesize(
	forecast []domain.ForecastPoint,
	fallback Fallback,
	table map[string]domain.MonthlyPriceRecord,
) []domain.TimeSeriesRow {
	rows := make([]domain.TimeSeriesRow, 0, len(forecast))
	for _, point := range forecast {
		current, optimal, elasticity := fallback.CurrentPrice, fallback.OptimalPrice, fallback.Elasticity
		if rec, ok := table[domain.MonthKey(point.Date)]; ok {
			current, optimal, elasticity = rec.CurrentPrice, rec.OptimalPrice, rec.Elasticity
		}

		row := domain.TimeSeriesRow{
			Date:             point.Date,
			CurrentPrice:     current,
			OptimalPrice:     optimal,
			UpperBound:       optimal * upperBandFactor,
			LowerBound:       optimal * lowerBandFactor,
			RevenueAtOptimal: point.PredictedDemand * optimal,
		}
		if elasticity != nil {
			e := *elasticity
			row.Elasticity = &e
		}
		rows = append(rows, row)
	}
	return rows
}
