package adapters

import (
	"sort"

	"github.com/de-tools/pricing-atlas/pkg/models/api"
	"github.com/de-tools/pricing-atlas/pkg/models/domain"
)

func MapElasticityResponseToDomain(r api.ElasticityResponse) domain.ElasticityCurve {
	points := make([]domain.CurvePoint, 0, len(r.Curve))
	for _, p := range r.Curve {
		points = append(points, domain.CurvePoint{Price: p.Price, Demand: p.Demand, Revenue: p.Revenue})
	}
	return domain.ElasticityCurve{
		Points:         points,
		OptimalPrice:   r.OptimalPrice,
		OptimalRevenue: r.OptimalRevenue,
		Elasticity:     r.Elasticity,
	}
}

func MapCurveDomainToApi(c domain.ElasticityCurve) api.Curve {
	points := make([]api.ElasticityPoint, 0, len(c.Points))
	for _, p := range c.Points {
		points = append(points, api.ElasticityPoint{Price: p.Price, Demand: p.Demand, Revenue: p.Revenue})
	}
	current, _ := c.CurrentPrice()
	return api.Curve{
		Points:         points,
		CurrentPrice:   current,
		OptimalPrice:   c.OptimalPrice,
		OptimalRevenue: c.OptimalRevenue,
		Elasticity:     c.Elasticity,
	}
}

// MapMonthlyDomainToApi flattens the month table in month order.
func MapMonthlyDomainToApi(table map[string]domain.MonthlyPriceRecord) []api.MonthlyPrice {
	res := make([]api.MonthlyPrice, 0, len(table))
	for _, rec := range table {
		res = append(res, api.MonthlyPrice{
			Month:        rec.Month,
			OptimalPrice: rec.OptimalPrice,
			CurrentPrice: rec.CurrentPrice,
			Elasticity:   rec.Elasticity,
		})
	}
	sort.Slice(res, func(i, j int) bool {
		return res[i].Month < res[j].Month
	})
	return res
}

func MapTimeSeriesRowDomainToApi(r domain.TimeSeriesRow) api.TimeSeriesRow {
	return api.TimeSeriesRow{
		Date:             r.Date.Format("2006-01-02"),
		CurrentPrice:     r.CurrentPrice,
		OptimalPrice:     r.OptimalPrice,
		UpperBound:       r.UpperBound,
		LowerBound:       r.LowerBound,
		RevenueAtOptimal: r.RevenueAtOptimal,
		Elasticity:       r.Elasticity,
	}
}
