package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Category string

const (
	CategoryLiquidFixedIncome Category = "liquid_fixed_income"
	CategoryReitPaper         Category = "reit_paper"
	CategoryReitLogistics     Category = "reit_logistics"
	CategoryReitShopping      Category = "reit_shopping"
	CategoryReitHybrid        Category = "reit_hybrid"
	CategoryEquities          Category = "equities"
)

var Categories = []Category{
	CategoryLiquidFixedIncome,
	CategoryReitPaper,
	CategoryReitLogistics,
	CategoryReitShopping,
	CategoryReitHybrid,
	CategoryEquities,
}

const reitPrefix = "reit_"

// IsYieldBearing reports whether instruments of the category pay monthly distributions.
func (c Category) IsYieldBearing() bool {
	return strings.HasPrefix(string(c), reitPrefix)
}

func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

func ParseCategory(s string) (Category, bool) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	return c, c.Valid()
}

type Instrument struct {
	ID                           uuid.UUID
	Code                         string
	Name                         string
	Category                     Category
	CurrentPrice                 decimal.Decimal
	LastDistribution             decimal.Decimal
	ExpectedMonthlyReturnPercent decimal.Decimal
	UpdatedAt                    time.Time
}

// IsReference reports whether the instrument tracks the policy-rate reference bond.
// Matching is by substring so that both ISIN and ticker style codes work.
func (i Instrument) IsReference(referenceCode string) bool {
	if referenceCode == "" {
		return false
	}
	return strings.Contains(strings.ToUpper(i.Code), strings.ToUpper(referenceCode))
}

// IsLiquid reports whether the instrument follows the policy-rate resolution path.
func (i Instrument) IsLiquid(referenceCode string) bool {
	return i.Category == CategoryLiquidFixedIncome || i.IsReference(referenceCode)
}

// UpdatedOn compares UTC calendar dates.
func (i Instrument) UpdatedOn(day time.Time) bool {
	if i.UpdatedAt.IsZero() {
		return false
	}
	return SameUTCDate(i.UpdatedAt, day)
}

// InstrumentUpdate is the resolved market data for one instrument, not yet persisted.
type InstrumentUpdate struct {
	InstrumentID                 uuid.UUID
	Code                         string
	CurrentPrice                 decimal.Decimal
	LastDistribution             decimal.Decimal
	ExpectedMonthlyReturnPercent decimal.Decimal
	UpdatedAt                    time.Time
}

func (u InstrumentUpdate) ApplyTo(i Instrument) Instrument {
	i.CurrentPrice = u.CurrentPrice
	i.LastDistribution = u.LastDistribution
	i.ExpectedMonthlyReturnPercent = u.ExpectedMonthlyReturnPercent
	i.UpdatedAt = u.UpdatedAt
	return i
}

type OutcomeStatus string

const (
	OutcomeUpdated OutcomeStatus = "updated"
	OutcomeSkipped OutcomeStatus = "skipped"
	OutcomeFailed  OutcomeStatus = "failed"
)

// ResolveOutcome is the per-instrument result of a market rate resolution batch.
type ResolveOutcome struct {
	Code   string
	Status OutcomeStatus
	Reason string
	Err    error
	Update *InstrumentUpdate
}

func SameUTCDate(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}

// UTCDate truncates t to midnight of its UTC calendar date.
func UTCDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
