package domain

import "time"

// EntityGroup is one primary value with the number of secondary values under it.
type EntityGroup struct {
	Primary        string
	SecondaryCount int
}

// Selection is the user's current choice. An empty Month means the entity has no forecast months.
type Selection struct {
	Primary   string
	Secondary string
	Month     string
}

// AnalysisState is what the results view shows. It is never mutated; every
// change produces a new value.
type AnalysisState struct {
	Token     uint64
	Selection Selection
	Curve     *ElasticityCurve
	Monthly   map[string]MonthlyPriceRecord
	Rows      []TimeSeriesRow
	Notice    string
	UpdatedAt time.Time
}
