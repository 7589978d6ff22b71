package types

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePrice(t *testing.T) {
	tests := []struct {
		in   string
		want *float64
	}{
		{"HK$1,234.50", Float64(1234.5)},
		{"HK$100 - HK$200", Float64(100)},
		{"1234", Float64(1234)},
		{"$0", Float64(0)},
		{"HK$ 12,000", Float64(12000)},
		{"1.2.3", Float64(1.2)},
		{"", nil},
		{"free", nil},
		{"HK$", nil},
		{".", nil},
		{"- 50", nil},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := ParsePrice(tt.in)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.InDelta(t, *tt.want, *got, 1e-9)
		})
	}
}

func TestParsePriceRoundTrip(t *testing.T) {
	for _, in := range []string{"1234", "0.99", "HK$88,888.8", "15"} {
		first := ParsePrice(in)
		require.NotNil(t, first, in)

		again := ParsePrice(FormatPrice(first))
		require.NotNil(t, again, in)
		assert.InDelta(t, *first, *again, 1e-9)

		// Reparsing the plain formatted number is stable too.
		plain := ParsePrice(strconv.FormatFloat(*first, 'f', 2, 64))
		require.NotNil(t, plain)
		assert.InDelta(t, *first, *plain, 1e-9)
	}
}
