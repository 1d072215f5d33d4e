package elasticity

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies pricing service failures.
type Kind int

const (
	KindUnknown Kind = iota
	// KindSessionExpired is recoverable: the client retries from the cached dataset.
	KindSessionExpired
	KindMissingSession
	KindMissingPriceColumn
	KindMonthOutOfRange
	KindAmbiguousAggregation
)

func (k Kind) String() string {
	switch k {
	case KindSessionExpired:
		return "session-expired"
	case KindMissingSession:
		return "missing-session"
	case KindMissingPriceColumn:
		return "missing-price-column"
	case KindMonthOutOfRange:
		return "month-out-of-range"
	case KindAmbiguousAggregation:
		return "ambiguous-aggregation"
	default:
		return "unknown"
	}
}

var codeKinds = map[string]Kind{
	"session_expired":       KindSessionExpired,
	"no_session_data":       KindSessionExpired,
	"missing_session":       KindMissingSession,
	"missing_price_column":  KindMissingPriceColumn,
	"month_out_of_range":    KindMonthOutOfRange,
	"ambiguous_aggregation": KindAmbiguousAggregation,
}

var messageKinds = []struct {
	kind    Kind
	needles []string
}{
	{KindSessionExpired, []string{"no stored session data", "session data not found", "session expired"}},
	{KindMissingPriceColumn, []string{"price column", "price_col", "no price"}},
	{KindMonthOutOfRange, []string{"month out of range", "month is out of range", "no data for month", "month not found"}},
	{KindAmbiguousAggregation, []string{"ambiguous"}},
	{KindMissingSession, []string{"session"}},
}

// Classify maps a service error to a Kind. A structured code wins; the message
// is matched only when the code is absent or unknown.
func Classify(code, message string) Kind {
	if kind, ok := codeKinds[strings.ToLower(strings.TrimSpace(code))]; ok {
		return kind
	}

	msg := strings.ToLower(message)
	for _, mk := range messageKinds {
		for _, needle := range mk.needles {
			if strings.Contains(msg, needle) {
				return mk.kind
			}
		}
	}
	return KindUnknown
}

// QueryError is returned by Client.Query for every failure the caller observes.
type QueryError struct {
	Kind    Kind
	Status  int
	Message string
	Err     error
}

func (e *QueryError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s (HTTP %d): %s", e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

// UserMessage returns the text shown to the user for this failure.
func (e *QueryError) UserMessage() string {
	switch e.Kind {
	case KindMissingPriceColumn:
		return fmt.Sprintf("%s. Add a numeric price column to the dataset and run the forecast again.", e.Message)
	case KindMissingSession, KindSessionExpired:
		return "The forecast session has expired and the original dataset is no longer available. " +
			"Upload the dataset and run the forecast again."
	case KindMonthOutOfRange:
		return "There is no data for the selected month. Pick a different month."
	case KindAmbiguousAggregation:
		return "The pricing service could not aggregate the data for this selection. " +
			"Retry, or contact support if the problem persists."
	default:
		return fmt.Sprintf("Price elasticity request failed: %s", e.Message)
	}
}

// KindOf returns the Kind of err, or KindUnknown if err is not a QueryError.
func KindOf(err error) Kind {
	var qe *QueryError
	if errors.As(err, &qe) {
		return qe.Kind
	}
	return KindUnknown
}

// UserMessage returns the user-facing text for any error returned by this package.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var qe *QueryError
	if errors.As(err, &qe) {
		return qe.UserMessage()
	}
	return fmt.Sprintf("Price elasticity request failed: %s", err.Error())
}
