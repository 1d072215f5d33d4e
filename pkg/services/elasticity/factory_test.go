package elasticity

import (
	"testing"

	"github.com/de-tools/pricing-atlas/pkg/store/dataset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClientFactory(t *testing.T) {
	t.Run("requires base url", func(t *testing.T) {
		_, err := NewClientFactory(FactoryConfig{})
		assert.Error(t, err)
	})

	t.Run("rejects a table with no usable value", func(t *testing.T) {
		_, err := NewClientFactory(FactoryConfig{
			Transport:    TransportConfig{BaseURL: "http://localhost"},
			Epsilon:      0.01,
			Placeholders: []float64{0, 0.001},
		})
		assert.Error(t, err)
	})

	t.Run("binds each cache to its own client", func(t *testing.T) {
		factory, err := NewClientFactory(FactoryConfig{
			Transport:    TransportConfig{BaseURL: "http://localhost/"},
			Placeholders: []float64{-0.3},
		})
		require.NoError(t, err)

		a := dataset.NewCache(dataset.Options{Raw: &dataset.Source{Name: "a.csv", Content: []byte("x\n1\n")}})
		b := dataset.NewCache(dataset.Options{})

		ca, ok := factory(a).(*Client)
		require.True(t, ok)
		cb, ok := factory(b).(*Client)
		require.True(t, ok)

		assert.Same(t, a, ca.cache)
		assert.Same(t, b, cb.cache)
		assert.Same(t, ca.http, cb.http)
		assert.Same(t, ca.normalizer, cb.normalizer)
		assert.Equal(t, DefaultPriceColumn, ca.priceColumn)
	})
}
