package export

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/template"
)

type SecondaryListing struct {
	Name    string
	Default bool
	Months  []string
}

type EntityListing struct {
	Primary     string
	Secondaries []SecondaryListing
}

type EntitiesReport struct {
	PrimaryDimension   string
	SecondaryDimension string
	Entities           []EntityListing
}

// EntitiesReporter prints the selectable entities and their forecast months.
type EntitiesReporter struct {
	writer io.Writer
}

func NewEntitiesReporter(writer io.Writer) *EntitiesReporter {
	if writer == nil {
		writer = os.Stdout
	}
	return &EntitiesReporter{writer: writer}
}

func (c *EntitiesReporter) Handle(report *EntitiesReport) error {
	tmpl := `
{{.PrimaryDimension}} / {{.SecondaryDimension}} ({{len .Entities}} entities)
{{range .Entities}}
=== {{.Primary}} ===
{{range .Secondaries}}- {{.Name}}{{if .Default}} (default){{end}}: {{join .Months ", "}}
{{end}}{{end}}`
	t, err := template.New("entities").Funcs(template.FuncMap{"join": strings.Join}).Parse(tmpl)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}

	return t.Execute(c.writer, report)
}
