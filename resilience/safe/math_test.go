//go:build unit

package safe

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDivide(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		numerator   decimal.Decimal
		denominator decimal.Decimal
		want        string
		wantErr     error
	}{
		{
			name:        "simple division",
			numerator:   decimal.NewFromInt(10),
			denominator: decimal.NewFromInt(4),
			want:        "2.5",
		},
		{
			name:        "zero numerator",
			numerator:   decimal.Zero,
			denominator: decimal.NewFromInt(7),
			want:        "0",
		},
		{
			name:        "zero denominator",
			numerator:   decimal.NewFromInt(1),
			denominator: decimal.Zero,
			wantErr:     ErrDivisionByZero,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := Divide(tt.numerator, tt.denominator)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestPercentage(t *testing.T) {
	t.Parallel()

	got, err := Percentage(decimal.NewFromInt(1), decimal.NewFromInt(4))
	require.NoError(t, err)
	assert.Equal(t, "25", got.String())

	_, err = Percentage(decimal.NewFromInt(1), decimal.Zero)
	assert.ErrorIs(t, err, ErrDivisionByZero)
}

func TestRatio(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 0.25, Ratio(1, 4), 1e-9)
	assert.InDelta(t, 1.0, Ratio(8, 8), 1e-9)
	assert.Zero(t, Ratio(5, 0), "zero denominator reads as zero rate")
	assert.Zero(t, Ratio(0, 10))
}
