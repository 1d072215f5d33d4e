package export

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/de-tools/pricing-atlas/pkg/models/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func testState() domain.AnalysisState {
	return domain.AnalysisState{
		Selection: domain.Selection{Primary: "S1", Secondary: "P001", Month: "2024-01"},
		Curve: &domain.ElasticityCurve{
			Points: []domain.CurvePoint{
				{Price: 8, Demand: 110, Revenue: 880},
				{Price: 10, Demand: 100, Revenue: 1000},
				{Price: 12, Demand: 90, Revenue: 1080},
			},
			OptimalPrice: domain.Float(12),
			Elasticity:   domain.Float(-0.5),
		},
		Rows: []domain.TimeSeriesRow{
			{
				Date:             time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
				CurrentPrice:     10,
				OptimalPrice:     12,
				UpperBound:       13.2,
				LowerBound:       10.8,
				RevenueAtOptimal: 1200,
				Elasticity:       domain.Float(-0.5),
			},
			{
				Date:             time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
				CurrentPrice:     10,
				OptimalPrice:     12,
				UpperBound:       13.2,
				LowerBound:       10.8,
				RevenueAtOptimal: 2400,
			},
		},
	}
}

func TestFormatFromPath(t *testing.T) {
	tests := []struct {
		path    string
		want    Format
		wantErr bool
	}{
		{path: "out.csv", want: FormatCSV},
		{path: "/tmp/Report.XLSX", want: FormatXLSX},
		{path: "out.json", wantErr: true},
		{path: "out", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := FormatFromPath(tt.path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWriteCSV(t *testing.T) {
	data, err := Encode(FormatCSV, testState())
	require.NoError(t, err)

	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, timeSeriesHeader, records[0])
	assert.Equal(t, []string{"2024-01-01", "10.0000", "12.0000", "10.8000", "13.2000", "1200.0000", "-0.5000"}, records[1])
	assert.Equal(t, "", records[2][6])
}

func TestWriteXLSX(t *testing.T) {
	data, err := Encode(FormatXLSX, testState())
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{TimeSeriesSheet, CurveSheet}, f.GetSheetList())

	rows, err := f.GetRows(TimeSeriesSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, timeSeriesHeader, rows[0])
	assert.Equal(t, "2024-01-01", rows[1][0])
	assert.Equal(t, "12", rows[1][2])

	curve, err := f.GetRows(CurveSheet)
	require.NoError(t, err)
	require.Len(t, curve, 4)
	assert.Equal(t, []string{"12", "90", "1080"}, curve[3])
}

func TestWriteXLSX_WithoutCurve(t *testing.T) {
	state := testState()
	state.Curve = nil

	data, err := Encode(FormatXLSX, state)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{TimeSeriesSheet}, f.GetSheetList())
}
