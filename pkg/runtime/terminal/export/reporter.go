package export

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/template"

	"github.com/de-tools/pricing-atlas/pkg/models/domain"
)

type TableConfig struct {
	DateWidth  int
	ValueWidth int
}

func DefaultTableConfig() TableConfig {
	return TableConfig{
		DateWidth:  10,
		ValueWidth: 12,
	}
}

// Report is what the analyze command prints for one selection.
type Report struct {
	PrimaryDimension   string
	SecondaryDimension string
	Selection          domain.Selection
	Curve              *domain.ElasticityCurve
	Monthly            []domain.MonthlyPriceRecord
	Rows               []domain.TimeSeriesRow
	Notice             string
}

func NewReport(primaryDim, secondaryDim string, state domain.AnalysisState) *Report {
	monthly := make([]domain.MonthlyPriceRecord, 0, len(state.Monthly))
	for _, rec := range state.Monthly {
		monthly = append(monthly, rec)
	}
	sort.Slice(monthly, func(i, j int) bool { return monthly[i].Month < monthly[j].Month })

	return &Report{
		PrimaryDimension:   primaryDim,
		SecondaryDimension: secondaryDim,
		Selection:          state.Selection,
		Curve:              state.Curve,
		Monthly:            monthly,
		Rows:               state.Rows,
		Notice:             state.Notice,
	}
}

type Reporter struct {
	writer io.Writer
	config TableConfig
}

func NewReporter(writer io.Writer) *Reporter {
	if writer == nil {
		writer = os.Stdout
	}
	return &Reporter{
		writer: writer,
		config: DefaultTableConfig(),
	}
}

func (c *Reporter) Handle(report *Report) error {
	funcMap := template.FuncMap{
		"formatRow": func(date string, values ...any) string {
			var b strings.Builder
			fmt.Fprintf(&b, "| %-*s |", c.config.DateWidth, date)
			for _, v := range values {
				switch x := v.(type) {
				case float64:
					fmt.Fprintf(&b, " %*.2f |", c.config.ValueWidth, x)
				case *float64:
					if x == nil {
						fmt.Fprintf(&b, " %*s |", c.config.ValueWidth, "-")
					} else {
						fmt.Fprintf(&b, " %*.4f |", c.config.ValueWidth, *x)
					}
				default:
					fmt.Fprintf(&b, " %*v |", c.config.ValueWidth, x)
				}
			}
			return b.String()
		},
		"separator": func(columns int) string {
			return "+" + strings.Repeat("-", c.config.DateWidth+2) + "+" +
				strings.Repeat(strings.Repeat("-", c.config.ValueWidth+2)+"+", columns)
		},
		"date": func(r domain.TimeSeriesRow) string { return r.Date.Format("2006-01-02") },
		"opt": func(v *float64) string {
			if v == nil {
				return "-"
			}
			return fmt.Sprintf("%.4f", *v)
		},
	}

	tmpl := `
Price elasticity for {{.PrimaryDimension}}={{.Selection.Primary}}, {{.SecondaryDimension}}={{.Selection.Secondary}}
Month: {{.Selection.Month}}
{{if .Notice}}
Notice: {{.Notice}}
{{end}}{{with .Curve}}
=== Curve ===
Optimal price: {{opt .OptimalPrice}}  Optimal revenue: {{opt .OptimalRevenue}}  Elasticity: {{opt .Elasticity}}
{{end}}{{if .Monthly}}
=== Optimal price by month ===
{{separator 3}}
{{formatRow "Month" "Current" "Optimal" "Elasticity"}}
{{separator 3}}
{{range .Monthly}}{{formatRow .Month .CurrentPrice .OptimalPrice .Elasticity}}
{{end}}{{separator 3}}
{{end}}
=== Time series ===
{{separator 6}}
{{formatRow "Date" "Current" "Optimal" "Lower" "Upper" "Revenue"}}
{{separator 6}}
{{range .Rows}}{{formatRow (date .) .CurrentPrice .OptimalPrice .LowerBound .UpperBound .RevenueAtOptimal}}
{{end}}{{separator 6}}
`

	t, err := template.New("report").Funcs(funcMap).Parse(tmpl)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}

	return t.Execute(c.writer, report)
}
