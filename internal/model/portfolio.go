package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TransactionKind string

const (
	TransactionPurchase     TransactionKind = "purchase"
	TransactionSale         TransactionKind = "sale"
	TransactionDistribution TransactionKind = "distribution"
	TransactionContribution TransactionKind = "contribution"
	TransactionWithdrawal   TransactionKind = "withdrawal"
)

type Transaction struct {
	ID           uuid.UUID
	InstrumentID *uuid.UUID
	Kind         TransactionKind
	Quantity     decimal.Decimal
	UnitPrice    decimal.Decimal
	TotalValue   decimal.Decimal
	Date         time.Time
	Note         string
}

type AllocationTarget struct {
	ID            uuid.UUID
	Category      Category
	TargetPercent decimal.Decimal
	Phase         int
	Active        bool
}

type NetWorthSnapshot struct {
	ID            uuid.UUID
	Date          time.Time
	TotalValue    decimal.Decimal
	PassiveIncome decimal.Decimal
}

// PositionView is a position enriched with instrument data for presentation.
type PositionView struct {
	Position
	Name                         string
	Value                        decimal.Decimal
	Percent                      decimal.Decimal
	ExpectedMonthlyReturnPercent decimal.Decimal
}

type PortfolioPage struct {
	PortfolioSummary
	CurPage    int
	TotalPages int
	Positions  []PositionView
}

type PortfolioSummary struct {
	TotalValue      decimal.Decimal
	PassiveIncome   decimal.Decimal
	PositionsCount  int
	LastSnapshotDay time.Time
}

// Report is everything the spreadsheet export needs.
type Report struct {
	GeneratedAt     time.Time
	Summary         PortfolioSummary
	Positions       []PositionView
	Forecast        Forecast
	Recommendations []Recommendation
	Transactions    []Transaction
}

var hundred = decimal.NewFromInt(100)

// MonthlyPassiveIncome sums the expected monthly income of the positions.
// Liquid instruments earn their monthly rate on value, the rest pay their last
// distribution per unit. Positions without a known instrument are skipped.
func MonthlyPassiveIncome(positions []Position, instruments []Instrument, referenceCode string) decimal.Decimal {
	byID := make(map[uuid.UUID]Instrument, len(instruments))
	for _, inst := range instruments {
		byID[inst.ID] = inst
	}

	income := decimal.Zero
	for _, p := range positions {
		inst, ok := byID[p.InstrumentID]
		if !ok {
			continue
		}
		if inst.IsLiquid(referenceCode) {
			income = income.Add(p.Value().Mul(inst.ExpectedMonthlyReturnPercent).Div(hundred))
		} else {
			income = income.Add(p.Quantity.Mul(inst.LastDistribution))
		}
	}

	return income
}
