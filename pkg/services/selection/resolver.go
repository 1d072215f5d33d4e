package selection

import (
	"fmt"
	"slices"
	"sort"

	"github.com/de-tools/pricing-atlas/pkg/models/domain"
)

const DefaultCanonicalSecondary = "P001"

// Resolver derives the valid selection space from the forecast and the dataset.
// It is immutable after construction.
type Resolver struct {
	primaryDim   string
	secondaryDim string
	canonical    string
	secondaries  map[string][]string
	months       map[domain.EntityKey][]string
}

type Options struct {
	// CanonicalSecondary is preferred as the default secondary value when present.
	CanonicalSecondary string
	// DatasetDimensions are distinct values discovered in the raw dataset, keyed by column.
	// Only values that also have a forecast slice are selectable.
	DatasetDimensions map[string][]string
}

func NewResolver(forecast domain.ForecastSet, opts Options) *Resolver {
	if opts.CanonicalSecondary == "" {
		opts.CanonicalSecondary = DefaultCanonicalSecondary
	}

	r := &Resolver{
		primaryDim:   forecast.PrimaryDimension,
		secondaryDim: forecast.SecondaryDimension,
		canonical:    opts.CanonicalSecondary,
		secondaries:  make(map[string][]string),
		months:       make(map[domain.EntityKey][]string, len(forecast.Series)),
	}

	allowedPrimary := allowed(opts.DatasetDimensions, forecast.PrimaryDimension)
	allowedSecondary := allowed(opts.DatasetDimensions, forecast.SecondaryDimension)

	for key, points := range forecast.Series {
		if len(points) == 0 {
			continue
		}
		if allowedPrimary != nil && !allowedPrimary[key.Primary] {
			continue
		}
		if allowedSecondary != nil && !allowedSecondary[key.Secondary] {
			continue
		}
		r.secondaries[key.Primary] = append(r.secondaries[key.Primary], key.Secondary)
		r.months[key] = domain.Months(points)
	}
	for primary := range r.secondaries {
		sort.Strings(r.secondaries[primary])
	}
	return r
}

func allowed(dims map[string][]string, column string) map[string]bool {
	values, ok := dims[column]
	if !ok || len(values) == 0 {
		return nil
	}
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}

func (r *Resolver) PrimaryDimension() string   { return r.primaryDim }
func (r *Resolver) SecondaryDimension() string { return r.secondaryDim }

func (r *Resolver) Entities() []domain.EntityGroup {
	groups := make([]domain.EntityGroup, 0, len(r.secondaries))
	for primary, secondaries := range r.secondaries {
		groups = append(groups, domain.EntityGroup{Primary: primary, SecondaryCount: len(secondaries)})
	}
	sort.Slice(groups, func(i, j int) bool {
		return groups[i].Primary < groups[j].Primary
	})
	return groups
}

func (r *Resolver) Secondaries(primary string) []string {
	return slices.Clone(r.secondaries[primary])
}

// DefaultSecondary returns the canonical secondary value if the primary has it,
// otherwise the first value alphabetically.
func (r *Resolver) DefaultSecondary(primary string) (string, bool) {
	secondaries := r.secondaries[primary]
	if len(secondaries) == 0 {
		return "", false
	}
	if slices.Contains(secondaries, r.canonical) {
		return r.canonical, true
	}
	return secondaries[0], true
}

func (r *Resolver) Months(primary, secondary string) []string {
	return slices.Clone(r.months[domain.EntityKey{Primary: primary, Secondary: secondary}])
}

// Initial returns the default selection: first primary, its default secondary, first month.
func (r *Resolver) Initial() (domain.Selection, error) {
	groups := r.Entities()
	if len(groups) == 0 {
		return domain.Selection{}, fmt.Errorf("no entities available in forecast")
	}
	return r.SelectPrimary(domain.Selection{}, groups[0].Primary)
}

// SelectPrimary switches the primary value, resets the secondary to its default
// and keeps the month only if it is still available.
func (r *Resolver) SelectPrimary(current domain.Selection, primary string) (domain.Selection, error) {
	secondary, ok := r.DefaultSecondary(primary)
	if !ok {
		return current, fmt.Errorf("unknown %s %q", r.primaryDim, primary)
	}
	next := domain.Selection{Primary: primary, Secondary: secondary, Month: current.Month}
	return r.reconcileMonth(next), nil
}

func (r *Resolver) SelectSecondary(current domain.Selection, secondary string) (domain.Selection, error) {
	if !slices.Contains(r.secondaries[current.Primary], secondary) {
		return current, fmt.Errorf("unknown %s %q for %s %q", r.secondaryDim, secondary, r.primaryDim, current.Primary)
	}
	next := domain.Selection{Primary: current.Primary, Secondary: secondary, Month: current.Month}
	return r.reconcileMonth(next), nil
}

func (r *Resolver) SelectMonth(current domain.Selection, month string) (domain.Selection, error) {
	if !slices.Contains(r.Months(current.Primary, current.Secondary), month) {
		return current, fmt.Errorf("month %s is not in the forecast range", month)
	}
	current.Month = month
	return current, nil
}

// Reconcile re-validates a selection, e.g. after the forecast changed.
func (r *Resolver) Reconcile(current domain.Selection) domain.Selection {
	if _, ok := r.secondaries[current.Primary]; !ok {
		if next, err := r.Initial(); err == nil {
			return next
		}
		return domain.Selection{}
	}
	if !slices.Contains(r.secondaries[current.Primary], current.Secondary) {
		current.Secondary, _ = r.DefaultSecondary(current.Primary)
	}
	return r.reconcileMonth(current)
}

func (r *Resolver) reconcileMonth(sel domain.Selection) domain.Selection {
	months := r.months[domain.EntityKey{Primary: sel.Primary, Secondary: sel.Secondary}]
	if len(months) == 0 {
		sel.Month = ""
		return sel
	}
	if !slices.Contains(months, sel.Month) {
		sel.Month = months[0]
	}
	return sel
}

// EntitySelection converts a selection into the query shape, keys ordered primary first.
func (r *Resolver) EntitySelection(sel domain.Selection) domain.EntitySelection {
	return domain.EntitySelection{
		GroupKeys:   []string{r.primaryDim, r.secondaryDim},
		GroupValues: []string{sel.Primary, sel.Secondary},
		Month:       sel.Month,
	}
}

// Forecast returns the forecast slice for the selected entity.
func (r *Resolver) Forecast(forecast domain.ForecastSet, sel domain.Selection) []domain.ForecastPoint {
	return forecast.Series[domain.EntityKey{Primary: sel.Primary, Secondary: sel.Secondary}]
}
