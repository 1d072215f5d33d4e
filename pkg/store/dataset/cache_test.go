package dataset

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const salesCSV = `date,store,product,price,units
2024-01-01,S1,P002,10,100
2024-01-01,S1,P001,12,80
2024-02-01,S2,P003,11,90
2024-02-01,S1,P001,12,85
`

func TestCache_Source(t *testing.T) {
	t.Run("prefers raw dataset", func(t *testing.T) {
		c := NewCache(Options{
			Raw:            &Source{Name: "sales.csv", Content: []byte(salesCSV)},
			ForecastExport: &Source{Name: "forecast.csv", Content: []byte("date,predicted\n")},
		})
		src, ok := c.Source()
		require.True(t, ok)
		assert.Equal(t, "sales.csv", src.Name)
	})

	t.Run("falls back to forecast export", func(t *testing.T) {
		c := NewCache(Options{ForecastExport: &Source{Name: "forecast.csv", Content: []byte("date,predicted\n")}})
		src, ok := c.Source()
		require.True(t, ok)
		assert.Equal(t, "forecast.csv", src.Name)
	})

	t.Run("empty", func(t *testing.T) {
		c := NewCache(Options{Raw: &Source{Name: "empty.csv"}})
		assert.True(t, c.Empty())

		var nilCache *Cache
		assert.True(t, nilCache.Empty())
	})
}

func TestCache_DoesNotAliasInput(t *testing.T) {
	content := []byte(salesCSV)
	c := NewCache(Options{Raw: &Source{Name: "sales.csv", Content: content}})
	content[0] = 'X'

	src, _ := c.Source()
	assert.True(t, strings.HasPrefix(string(src.Content), "date"))
}

func TestSource_Encoded(t *testing.T) {
	src := Source{Name: "a.csv", Content: []byte(salesCSV)}
	decoded, err := base64.StdEncoding.DecodeString(src.Encoded())
	require.NoError(t, err)
	assert.Equal(t, salesCSV, string(decoded))
}

func TestCache_Dimensions(t *testing.T) {
	c := NewCache(Options{Raw: &Source{Name: "sales.csv", Content: []byte(salesCSV)}})

	dims, err := c.Dimensions("store", "product", "region")
	require.NoError(t, err)
	assert.Equal(t, []string{"S1", "S2"}, dims["store"])
	assert.Equal(t, []string{"P001", "P002", "P003"}, dims["product"])
	assert.Empty(t, dims["region"])
}
