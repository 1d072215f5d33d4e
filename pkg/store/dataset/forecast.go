package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/de-tools/pricing-atlas/pkg/models/domain"
)

var dateLayouts = []string{"2006-01-02", "2006-01-02 15:04:05", time.RFC3339, "2006-01"}

var (
	demandColumns = []string{"predicted", "forecast", "yhat", "predicted_demand"}
	upperColumns  = []string{"upper", "upper_bound", "yhat_upper"}
	lowerColumns  = []string{"lower", "lower_bound", "yhat_lower"}
	dateColumns   = []string{"date", "ds", "timestamp"}
)

// ParseForecastCSV reads an exported forecast file into a ForecastSet keyed by
// the primary and secondary dimension columns.
func ParseForecastCSV(r io.Reader, primary, secondary string) (domain.ForecastSet, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return domain.ForecastSet{}, fmt.Errorf("failed to read forecast header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}

	dateIdx, ok := lookup(cols, dateColumns)
	if !ok {
		return domain.ForecastSet{}, fmt.Errorf("forecast file has no date column")
	}
	demandIdx, ok := lookup(cols, demandColumns)
	if !ok {
		return domain.ForecastSet{}, fmt.Errorf("forecast file has no predicted demand column")
	}
	primaryIdx, ok := cols[strings.ToLower(primary)]
	if !ok {
		return domain.ForecastSet{}, fmt.Errorf("forecast file has no %q column", primary)
	}
	secondaryIdx, ok := cols[strings.ToLower(secondary)]
	if !ok {
		return domain.ForecastSet{}, fmt.Errorf("forecast file has no %q column", secondary)
	}
	upperIdx, hasUpper := lookup(cols, upperColumns)
	lowerIdx, hasLower := lookup(cols, lowerColumns)

	set := domain.ForecastSet{
		PrimaryDimension:   primary,
		SecondaryDimension: secondary,
		Series:             make(map[domain.EntityKey][]domain.ForecastPoint),
	}

	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return domain.ForecastSet{}, fmt.Errorf("line %d: %w", line, err)
		}

		date, err := parseDate(field(record, dateIdx))
		if err != nil {
			return domain.ForecastSet{}, fmt.Errorf("line %d: %w", line, err)
		}
		demand, err := strconv.ParseFloat(field(record, demandIdx), 64)
		if err != nil {
			return domain.ForecastSet{}, fmt.Errorf("line %d: invalid predicted demand: %w", line, err)
		}

		point := domain.ForecastPoint{Date: date, PredictedDemand: demand}
		if hasUpper {
			point.UpperBound = optionalFloat(field(record, upperIdx))
		}
		if hasLower {
			point.LowerBound = optionalFloat(field(record, lowerIdx))
		}

		key := domain.EntityKey{Primary: field(record, primaryIdx), Secondary: field(record, secondaryIdx)}
		set.Series[key] = append(set.Series[key], point)
	}

	set.Sort()
	return set, nil
}

func lookup(cols map[string]int, names []string) (int, bool) {
	for _, n := range names {
		if i, ok := cols[n]; ok {
			return i, true
		}
	}
	return 0, false
}

func field(record []string, i int) string {
	if i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

func optionalFloat(s string) *float64 {
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}
