package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoerceFloat(t *testing.T) {
	tests := []struct {
		in   string
		want *float64
	}{
		{"5.23", fp(5.23)},
		{"5.23%", fp(5.23)},
		{" 5.23 % ", fp(5.23)},
		{"1,234.50", fp(1234.50)},
		{"1,234,567", fp(1234567)},
		{"$12.30", fp(12.30)},
		{"€9.99", fp(9.99)},
		{`"2,085,728.08"`, fp(2085728.08)},
		{"(123.45)", fp(-123.45)},
		{"-0.5", fp(-0.5)},
		{"0", fp(0)},
		{"", nil},
		{"-", nil},
		{"--", nil},
		{"N/A", nil},
		{"n/a", nil},
		{"NaN", nil},
		{"not a number", nil},
		{"12.3.4", nil},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := CoerceFloat(tt.in)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.InDelta(t, *tt.want, *got, 1e-9)
		})
	}
}

func fp(v float64) *float64 { return &v }
