package utils

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseLocaleDecimal parses numbers published by Brazilian sources. A value with
// a '.' and no ',' is read as invariant ("1234.56"), anything else as pt-BR
// ("1.234,56"). Unparseable input yields zero and false.
func ParseLocaleDecimal(raw string) (decimal.Decimal, bool) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "R$")
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, false
	}

	if !strings.Contains(s, ",") {
		if strings.Count(s, ".") > 1 {
			s = strings.ReplaceAll(s, ".", "")
		}
		v, err := decimal.NewFromString(s)
		if err != nil {
			return decimal.Zero, false
		}
		return v, true
	}

	s = strings.ReplaceAll(s, ".", "")
	s = strings.Replace(s, ",", ".", 1)
	v, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return v, true
}
