package utils

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestParseLocaleDecimal(t *testing.T) {
	tests := []struct {
		in     string
		want   string
		wantOk bool
	}{
		{"0,85", "0.85", true},
		{"1.234,56", "1234.56", true},
		{"1234.56", "1234.56", true},
		{"0,055131", "0.055131", true},
		{"R$ 10,50", "10.5", true},
		{"1.234.567", "1234567", true},
		{"15", "15", true},
		{"", "0", false},
		{"abc", "0", false},
		{"1,2,3", "0", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseLocaleDecimal(tt.in)
			assert.Equal(t, tt.wantOk, ok)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestWithNewRqID(t *testing.T) {
	ctx := WithNewRqID(context.Background())
	assert.NotEmpty(t, GetRequestIDFromCtx(ctx))
	assert.Empty(t, GetRequestIDFromCtx(context.Background()))
}

func TestFormatMoney(t *testing.T) {
	assert.Equal(t, "R$1.234,56", FormatMoney(decimal.RequireFromString("1234.555")))
	assert.Equal(t, "R$0,00", FormatMoney(decimal.Zero))
	assert.Equal(t, "R$450,00", FormatMoney(decimal.NewFromInt(450)))
}

func TestFormatPercent(t *testing.T) {
	assert.Equal(t, "1,16%", FormatPercent(decimal.RequireFromString("1.163")))
	assert.Equal(t, "40,00%", FormatPercent(decimal.NewFromInt(40)))
}
