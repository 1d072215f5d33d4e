package dataset

import (
	"strings"
	"testing"
	"time"

	"github.com/de-tools/pricing-atlas/pkg/models/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseForecastCSV(t *testing.T) {
	input := `date,store,product,predicted,upper,lower
2024-02-01,S1,P001,110,120,100
2024-01-01,S1,P001,100,,90
2024-01-01,S2,P009,50,55,45
`
	set, err := ParseForecastCSV(strings.NewReader(input), "store", "product")
	require.NoError(t, err)

	assert.Equal(t, "store", set.PrimaryDimension)
	require.Len(t, set.Series, 2)

	series := set.Series[domain.EntityKey{Primary: "S1", Secondary: "P001"}]
	require.Len(t, series, 2)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), series[0].Date)
	assert.Nil(t, series[0].UpperBound)
	require.NotNil(t, series[0].LowerBound)
	assert.Equal(t, 90.0, *series[0].LowerBound)
	assert.Equal(t, 110.0, series[1].PredictedDemand)
}

func TestParseForecastCSV_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "missing date column", input: "store,product,predicted\nS1,P1,1\n"},
		{name: "missing demand column", input: "date,store,product\n2024-01-01,S1,P1\n"},
		{name: "missing dimension", input: "date,store,predicted\n2024-01-01,S1,1\n"},
		{name: "bad date", input: "date,store,product,predicted\nyesterday,S1,P1,1\n"},
		{name: "bad demand", input: "date,store,product,predicted\n2024-01-01,S1,P1,lots\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseForecastCSV(strings.NewReader(tt.input), "store", "product")
			assert.Error(t, err)
		})
	}
}
