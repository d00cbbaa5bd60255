package model

import (
	"strings"
	"time"
)

// HolidayKindDiscretionary marks optional days off that don't close the market.
const HolidayKindDiscretionary = "facultativo"

type Holiday struct {
	Date         time.Time
	Name         string
	Kind         string
	Level        string
	Jurisdiction string
}

func (h Holiday) IsDiscretionary() bool {
	return strings.EqualFold(strings.TrimSpace(h.Kind), HolidayKindDiscretionary)
}
