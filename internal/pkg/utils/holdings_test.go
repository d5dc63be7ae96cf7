package utils

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"token_portfolio/internal/domain/entity"
)

func TestParseHoldings(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    float64
		wantErr bool
	}{
		{name: "integer", input: "3", want: 3},
		{name: "decimal", input: "0.0500", want: 0.05},
		{name: "surrounding space", input: "  12.5 ", want: 12.5},
		{name: "thousands separator", input: "1,000", want: 1000},
		{name: "zero", input: "0", want: 0},
		{name: "empty", input: "", wantErr: true},
		{name: "blank", input: "   ", wantErr: true},
		{name: "letters", input: "abc", wantErr: true},
		{name: "negative", input: "-2", wantErr: true},
		{name: "nan", input: "NaN", wantErr: true},
		{name: "infinity", input: "Inf", wantErr: true},
		{name: "beyond float64 range", input: "1e400", wantErr: true},
		{name: "large but finite", input: "1e300", want: 1e300},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseHoldings(tt.input)
			assert.InDelta(t, tt.want, got, 1e-12)
			if tt.wantErr {
				var inputErr *entity.InputError
				assert.True(t, errors.As(err, &inputErr), "expected InputError, got %v", err)
				assert.Zero(t, got)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestFormatDecimalRoundTrip(t *testing.T) {
	for _, f := range []float64{0, 1, 0.1 + 0.2, 10803.46, 1e-9, 123456789.123} {
		s, err := FormatDecimal(f)
		assert.NoError(t, err)
		assert.NotContains(t, s, "e")
		back, err := ParseDecimal(s)
		assert.NoError(t, err)
		assert.Equal(t, f, back)
	}
}

func TestFormatDecimalRejectsNonFinite(t *testing.T) {
	for _, f := range []float64{math.Inf(1), math.Inf(-1), math.NaN()} {
		s, err := FormatDecimal(f)
		assert.Error(t, err)
		assert.Empty(t, s)
	}
}

func TestParseDecimalRejectsOutOfRange(t *testing.T) {
	_, err := ParseDecimal("1e400")
	assert.Error(t, err)
}

func TestBatchStrings(t *testing.T) {
	assert.Equal(t, [][]string{}, BatchStrings(nil, 2))
	assert.Equal(t, [][]string{{"a", "b"}, {"c"}}, BatchStrings([]string{"a", "b", "c"}, 2))
	assert.Equal(t, [][]string{{"a", "b", "c"}}, BatchStrings([]string{"a", "b", "c"}, 0))
}

func TestUniqueStrings(t *testing.T) {
	assert.Equal(t, []string{"btc", "eth"}, UniqueStrings([]string{"btc", "", "eth", "btc"}))
}
