package telegram

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		raw       string
		allowZero bool
		want      string
		ok        bool
	}{
		{"1.500,50", false, "1500.5", true},
		{"1500.50", false, "1500.5", true},
		{"R$ 200", false, "200", true},
		{"0", true, "0", true},
		{"0", false, "0", false},
		{"-10", true, "0", false},
		{"abc", true, "0", false},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := parseAmount(tt.raw, tt.allowZero)
			assert.Equal(t, tt.ok, ok)
			assert.True(t, decimal.RequireFromString(tt.want).Equal(got), got.String())
		})
	}
}

func TestParseBuyArgs(t *testing.T) {
	now := time.Date(2025, 3, 12, 10, 0, 0, 0, time.UTC)

	code, in, err := parseBuyArgs([]string{"hglg11", "10", "160,50"}, now)
	require.NoError(t, err)
	assert.Equal(t, "HGLG11", code)
	assert.True(t, decimal.NewFromInt(10).Equal(in.Quantity))
	assert.True(t, decimal.RequireFromString("160.5").Equal(in.UnitPrice))
	assert.Equal(t, now, in.Date)

	_, in, err = parseBuyArgs([]string{"KNCR11", "3", "100", "05/02/2025"}, now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 2, 5, 0, 0, 0, 0, time.UTC), in.Date)

	for _, args := range [][]string{
		{"KNCR11", "3"},
		{"KNCR11", "0", "100"},
		{"KNCR11", "3", "x"},
		{"KNCR11", "3", "100", "2025-02-05"},
	} {
		_, _, err := parseBuyArgs(args, now)
		assert.Error(t, err, args)
	}
}
