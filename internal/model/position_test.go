package model

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestPosition_ApplyPurchase(t *testing.T) {
	p := Position{}
	p.ApplyPurchase(d("10"), d("100"))
	assert.True(t, p.Quantity.Equal(d("10")))
	assert.True(t, p.AverageCost.Equal(d("100")))

	p.ApplyPurchase(d("10"), d("110"))
	assert.True(t, p.Quantity.Equal(d("20")))
	assert.True(t, p.AverageCost.Equal(d("105")), p.AverageCost.String())
}

func TestPosition_RevertPurchase(t *testing.T) {
	p := Position{Quantity: d("20"), AverageCost: d("105")}
	p.RevertPurchase(d("10"), d("110"))
	assert.True(t, p.Quantity.Equal(d("10")))
	assert.True(t, p.AverageCost.Equal(d("100")), p.AverageCost.String())

	p.RevertPurchase(d("15"), d("100"))
	assert.True(t, p.Quantity.IsZero())
	assert.True(t, p.AverageCost.IsZero())
}

func TestPosition_RevertPurchaseClampsNegativeTotal(t *testing.T) {
	p := Position{Quantity: d("10"), AverageCost: d("1")}
	p.RevertPurchase(d("5"), d("100"))
	assert.True(t, p.Quantity.Equal(d("5")))
	assert.True(t, p.AverageCost.IsZero())
}

func TestCategory_IsYieldBearing(t *testing.T) {
	tests := []struct {
		category Category
		want     bool
	}{
		{CategoryReitPaper, true},
		{CategoryReitLogistics, true},
		{CategoryReitShopping, true},
		{CategoryReitHybrid, true},
		{CategoryLiquidFixedIncome, false},
		{CategoryEquities, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.category), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.category.IsYieldBearing())
		})
	}
}

func TestParseCategory(t *testing.T) {
	c, ok := ParseCategory(" REIT_Paper ")
	assert.True(t, ok)
	assert.Equal(t, CategoryReitPaper, c)

	_, ok = ParseCategory("crypto")
	assert.False(t, ok)
}

func TestInstrument_IsReference(t *testing.T) {
	inst := Instrument{Code: "tesouro-brstnclf1ru6"}
	assert.True(t, inst.IsReference("BRSTNCLF1RU6"))
	assert.False(t, inst.IsReference(""))
	assert.False(t, Instrument{Code: "MXRF11"}.IsReference("BRSTNCLF1RU6"))
}

func TestInstrument_UpdatedOn(t *testing.T) {
	loc := time.FixedZone("BRT", -3*60*60)
	inst := Instrument{UpdatedAt: time.Date(2025, 3, 10, 22, 30, 0, 0, loc)}

	assert.True(t, inst.UpdatedOn(time.Date(2025, 3, 11, 5, 0, 0, 0, time.UTC)))
	assert.False(t, inst.UpdatedOn(time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)))
	assert.False(t, Instrument{}.UpdatedOn(time.Now()))
}
