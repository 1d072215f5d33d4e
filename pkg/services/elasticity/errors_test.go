package elasticity

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		message string
		want    Kind
	}{
		{name: "structured code wins", code: "month_out_of_range", message: "No stored session data", want: KindMonthOutOfRange},
		{name: "session expired message", message: "No stored session data for session abc", want: KindSessionExpired},
		{name: "price column", message: "Price column 'price' not found in dataset", want: KindMissingPriceColumn},
		{name: "month", message: "Month out of range: 2030-01", want: KindMonthOutOfRange},
		{name: "month phrase", message: "Selected month is out of range", want: KindMonthOutOfRange},
		{name: "no data for month", message: "No data for month 2024-07", want: KindMonthOutOfRange},
		{name: "ambiguous", message: "The truth value of a Series is ambiguous", want: KindAmbiguousAggregation},
		{name: "session missing", message: "session id is required", want: KindMissingSession},
		{name: "unknown code falls back to message", code: "E42", message: "session expired", want: KindSessionExpired},
		{name: "unknown", message: "internal server error", want: KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.code, tt.message))
		})
	}
}

func TestQueryError_Unwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := fmt.Errorf("query: %w", &QueryError{Kind: KindUnknown, Message: "connection refused", Err: cause})

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, KindUnknown, KindOf(err))
	assert.Contains(t, UserMessage(err), "connection refused")
}

func TestUserMessage(t *testing.T) {
	assert.Empty(t, UserMessage(nil))
	assert.Contains(t,
		UserMessage(&QueryError{Kind: KindMissingPriceColumn, Message: "Price column 'price' not found"}),
		"Price column 'price' not found",
	)
	assert.Contains(t, UserMessage(&QueryError{Kind: KindMonthOutOfRange}), "different month")
	assert.Contains(t, UserMessage(&QueryError{Kind: KindMissingSession}), "Upload the dataset")
	assert.Contains(t, UserMessage(errors.New("boom")), "boom")
}
