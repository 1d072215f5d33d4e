package adapters

import (
	"fmt"
	"time"

	"github.com/de-tools/pricing-atlas/pkg/models/api"
	"github.com/de-tools/pricing-atlas/pkg/models/domain"
)

func MapSelectionDomainToApi(s domain.Selection) api.Selection {
	return api.Selection{Primary: s.Primary, Secondary: s.Secondary, Month: s.Month}
}

func MapAnalysisStateDomainToApi(s domain.AnalysisState) api.AnalysisState {
	res := api.AnalysisState{
		Token:         s.Token,
		Selection:     MapSelectionDomainToApi(s.Selection),
		MonthlyPrices: MapMonthlyDomainToApi(s.Monthly),
		Rows:          make([]api.TimeSeriesRow, 0, len(s.Rows)),
		Notice:        s.Notice,
		UpdatedAt:     s.UpdatedAt,
	}
	if s.Curve != nil {
		curve := MapCurveDomainToApi(*s.Curve)
		res.Curve = &curve
	}
	for _, r := range s.Rows {
		res.Rows = append(res.Rows, MapTimeSeriesRowDomainToApi(r))
	}
	return res
}

// MapForecastRowsApiToDomain groups uploaded forecast rows by entity.
func MapForecastRowsApiToDomain(primary, secondary string, rows []api.ForecastRow) (domain.ForecastSet, error) {
	set := domain.ForecastSet{
		PrimaryDimension:   primary,
		SecondaryDimension: secondary,
		Series:             make(map[domain.EntityKey][]domain.ForecastPoint),
	}
	for i, r := range rows {
		date, err := time.Parse("2006-01-02", r.Date)
		if err != nil {
			return domain.ForecastSet{}, fmt.Errorf("forecast row %d: invalid date %q", i, r.Date)
		}
		key := domain.EntityKey{Primary: r.Primary, Secondary: r.Secondary}
		set.Series[key] = append(set.Series[key], domain.ForecastPoint{
			Date:            date,
			PredictedDemand: r.PredictedDemand,
			UpperBound:      r.UpperBound,
			LowerBound:      r.LowerBound,
		})
	}
	set.Sort()
	return set, nil
}
