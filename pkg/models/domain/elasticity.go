package domain

import (
	"fmt"
	"time"
)

const (
	MinSweepPercent = 1.0
	MaxSweepPercent = 80.0
	MinSweepPoints  = 5
	MaxSweepPoints  = 51
)

// EntitySelection identifies exactly one elasticity query.
type EntitySelection struct {
	GroupKeys   []string
	GroupValues []string
	Month       string // YYYY-MM
}

func (s EntitySelection) Validate() error {
	if len(s.GroupKeys) == 0 {
		return fmt.Errorf("selection has no group keys")
	}
	if len(s.GroupKeys) != len(s.GroupValues) {
		return fmt.Errorf("selection has %d group keys but %d values", len(s.GroupKeys), len(s.GroupValues))
	}
	if !ValidMonth(s.Month) {
		return fmt.Errorf("invalid month %q, expected YYYY-MM", s.Month)
	}
	return nil
}

// WithMonth returns a copy of the selection targeting month.
func (s EntitySelection) WithMonth(month string) EntitySelection {
	return EntitySelection{
		GroupKeys:   append([]string(nil), s.GroupKeys...),
		GroupValues: append([]string(nil), s.GroupValues...),
		Month:       month,
	}
}

// SweepParams controls the candidate prices the service evaluates around the current price.
type SweepParams struct {
	Percent float64
	Points  int
}

func (p SweepParams) Validate() error {
	if p.Percent < MinSweepPercent || p.Percent > MaxSweepPercent {
		return fmt.Errorf("sweep percent %v outside [%v, %v]", p.Percent, MinSweepPercent, MaxSweepPercent)
	}
	if p.Points < MinSweepPoints || p.Points > MaxSweepPoints {
		return fmt.Errorf("sweep points %d outside [%d, %d]", p.Points, MinSweepPoints, MaxSweepPoints)
	}
	return nil
}

type CurvePoint struct {
	Price   float64
	Demand  float64
	Revenue float64
}

// ElasticityCurve is the price/demand/revenue sweep for one selection.
// Points[0] is the unperturbed (current) price.
type ElasticityCurve struct {
	Points         []CurvePoint
	OptimalPrice   *float64
	OptimalRevenue *float64
	Elasticity     *float64
}

// CurrentPrice returns the first sweep price, or false for an empty curve.
func (c ElasticityCurve) CurrentPrice() (float64, bool) {
	if len(c.Points) == 0 {
		return 0, false
	}
	return c.Points[0].Price, true
}

// Clone returns a deep copy so callers can hand the curve out without sharing pointers.
func (c ElasticityCurve) Clone() ElasticityCurve {
	return ElasticityCurve{
		Points:         append([]CurvePoint(nil), c.Points...),
		OptimalPrice:   clonePtr(c.OptimalPrice),
		OptimalRevenue: clonePtr(c.OptimalRevenue),
		Elasticity:     clonePtr(c.Elasticity),
	}
}

// MonthlyPriceRecord is the per-month outcome for the active entity.
type MonthlyPriceRecord struct {
	Month        string
	OptimalPrice float64
	CurrentPrice float64
	Elasticity   *float64
}

// TimeSeriesRow is one synthesized row per forecast date, shared by charts and exports.
type TimeSeriesRow struct {
	Date             time.Time
	CurrentPrice     float64
	OptimalPrice     float64
	UpperBound       float64
	LowerBound       float64
	RevenueAtOptimal float64
	Elasticity       *float64
}

func Float(v float64) *float64 {
	return &v
}

func clonePtr(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
