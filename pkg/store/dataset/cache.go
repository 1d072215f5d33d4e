package dataset

import (
	"bytes"
	"encoding/base64"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
)

// Source is one file the service can recompute from.
type Source struct {
	Name    string
	Content []byte
}

// Encoded returns the content in the text encoding used on the wire.
func (s Source) Encoded() string {
	return base64.StdEncoding.EncodeToString(s.Content)
}

// Cache retains the uploaded dataset for the lifetime of one results session.
// It is immutable after NewCache and may be read concurrently.
type Cache struct {
	raw            *Source
	forecastExport *Source
}

type Options struct {
	Raw            *Source
	ForecastExport *Source
}

func NewCache(opts Options) *Cache {
	c := &Cache{}
	if opts.Raw != nil && len(opts.Raw.Content) > 0 {
		raw := Source{Name: opts.Raw.Name, Content: bytes.Clone(opts.Raw.Content)}
		c.raw = &raw
	}
	if opts.ForecastExport != nil && len(opts.ForecastExport.Content) > 0 {
		fe := Source{Name: opts.ForecastExport.Name, Content: bytes.Clone(opts.ForecastExport.Content)}
		c.forecastExport = &fe
	}
	return c
}

// Source returns the originally uploaded file, falling back to the exported
// forecast file. The returned content must not be modified.
func (c *Cache) Source() (Source, bool) {
	if c == nil {
		return Source{}, false
	}
	if c.raw != nil {
		return *c.raw, true
	}
	if c.forecastExport != nil {
		return *c.forecastExport, true
	}
	return Source{}, false
}

func (c *Cache) Empty() bool {
	_, ok := c.Source()
	return !ok
}

// Dimensions discovers the distinct values of the given columns in the raw dataset.
// Values are sorted; unknown columns map to an empty slice.
func (c *Cache) Dimensions(columns ...string) (map[string][]string, error) {
	res := make(map[string][]string, len(columns))
	for _, col := range columns {
		res[col] = []string{}
	}
	if c == nil || c.raw == nil {
		return res, nil
	}

	reader := csv.NewReader(bytes.NewReader(c.raw.Content))
	reader.FieldsPerRecord = -1
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset header: %w", err)
	}

	index := make(map[string]int, len(columns))
	for i, h := range header {
		name := strings.TrimSpace(h)
		for _, col := range columns {
			if strings.EqualFold(name, col) {
				index[col] = i
			}
		}
	}

	seen := make(map[string]map[string]struct{}, len(index))
	for col := range index {
		seen[col] = make(map[string]struct{})
	}

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read dataset row: %w", err)
		}
		for col, i := range index {
			if i >= len(record) {
				continue
			}
			v := strings.TrimSpace(record[i])
			if v == "" {
				continue
			}
			seen[col][v] = struct{}{}
		}
	}

	for col, values := range seen {
		list := make([]string, 0, len(values))
		for v := range values {
			list = append(list, v)
		}
		sort.Strings(list)
		res[col] = list
	}
	return res, nil
}
