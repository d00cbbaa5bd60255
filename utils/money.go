package utils

import (
	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

const currencyCode = money.BRL

// FormatMoney renders an amount in reais, e.g. "R$1.234,56".
func FormatMoney(amount decimal.Decimal) string {
	cur := money.GetCurrency(currencyCode)
	factor, _ := decimal.NewFromInt(10).PowInt32(int32(cur.Fraction))
	cents := amount.Mul(factor).Round(0)
	return money.New(cents.IntPart(), currencyCode).Display()
}

// FormatPercent renders a percentage with two decimals and a comma separator.
func FormatPercent(p decimal.Decimal) string {
	s := p.StringFixed(2)
	out := []byte(s)
	for i := range out {
		if out[i] == '.' {
			out[i] = ','
		}
	}
	return string(out) + "%"
}
