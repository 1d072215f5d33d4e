package domain

import (
	"sort"
	"time"
)

const monthLayout = "2006-01"

// ForecastPoint is one row of the demand forecast. The forecast timeline is the
// authoritative ordering every derived series aligns to.
type ForecastPoint struct {
	Date            time.Time
	PredictedDemand float64
	UpperBound      *float64
	LowerBound      *float64
}

// EntityKey identifies one (primary, secondary) slice of the forecast, e.g. store/product.
type EntityKey struct {
	Primary   string
	Secondary string
}

// ForecastSet is the forecasting collaborator's output grouped by entity.
type ForecastSet struct {
	PrimaryDimension   string
	SecondaryDimension string
	Series             map[EntityKey][]ForecastPoint
}

// Sort orders every series chronologically in place.
func (fs ForecastSet) Sort() {
	for _, points := range fs.Series {
		sort.SliceStable(points, func(i, j int) bool {
			return points[i].Date.Before(points[j].Date)
		})
	}
}

// MonthKey returns the calendar month of t as YYYY-MM.
func MonthKey(t time.Time) string {
	return t.Format(monthLayout)
}

// ValidMonth reports whether s is a YYYY-MM month key.
func ValidMonth(s string) bool {
	_, err := time.Parse(monthLayout, s)
	return err == nil && len(s) == len(monthLayout)
}

// Months returns the distinct calendar months of points in ascending order.
func Months(points []ForecastPoint) []string {
	seen := make(map[string]struct{}, len(points))
	months := make([]string, 0)
	for _, p := range points {
		key := MonthKey(p.Date)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		months = append(months, key)
	}
	sort.Strings(months)
	return months
}
