// internal/parse/parse_test.go
package parse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrice(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{"$29.99", 29.99},
		{"19.99", 19.99},
		{"1,299.00", 1299.0},
		{"$1,299.00 - $1,399.00", 1299.0},
		{"USD 45", 45},
	}

	for _, c := range cases {
		got := Price(c.in)
		require.NotNil(t, got, "input %q", c.in)
		assert.Equal(t, c.want, *got, "input %q", c.in)
	}

	assert.Nil(t, Price(""))
	assert.Nil(t, Price("currently unavailable"))
}

func TestSales(t *testing.T) {
	assert.Equal(t, 2000, Sales("2K+ bought in past month"))
	assert.Equal(t, 500, Sales("500+ bought"))
	assert.Equal(t, 1500000, Sales("1.5M+ bought"))
	assert.Equal(t, 0, Sales(""))
	assert.Equal(t, 0, Sales("bought recently"))
	assert.Equal(t, 0, Sales("300 bought")) // no plus marker, no volume claim
}

func TestChunk(t *testing.T) {
	chunks := Chunk([]string{"a", "b", "c", "d", "e"}, 2)
	require.Len(t, chunks, 3)
	assert.Equal(t, []string{"a", "b"}, chunks[0])
	assert.Equal(t, []string{"e"}, chunks[2])

	assert.Nil(t, Chunk(nil, 2))
	assert.Nil(t, Chunk([]string{"a"}, 0))
}
