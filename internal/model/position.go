package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Position is a holding of one instrument. Code and Category are denormalized
// from the instrument so reports don't need a join.
type Position struct {
	InstrumentID uuid.UUID
	Code         string
	Category     Category
	Quantity     decimal.Decimal
	AverageCost  decimal.Decimal
	CurrentPrice decimal.Decimal
	UpdatedAt    time.Time
}

func (p Position) Value() decimal.Decimal {
	return p.Quantity.Mul(p.CurrentPrice)
}

// ApplyPurchase adds quantity at unitPrice using weighted average cost.
func (p *Position) ApplyPurchase(quantity, unitPrice decimal.Decimal) {
	newQty := p.Quantity.Add(quantity)
	if !newQty.IsPositive() {
		p.Quantity = decimal.Zero
		p.AverageCost = decimal.Zero
		return
	}

	total := p.Quantity.Mul(p.AverageCost).Add(quantity.Mul(unitPrice))
	p.Quantity = newQty
	p.AverageCost = total.Div(newQty)
}

// RevertPurchase undoes a previously applied purchase. A position that drops
// to zero or below is emptied.
func (p *Position) RevertPurchase(quantity, unitPrice decimal.Decimal) {
	newQty := p.Quantity.Sub(quantity)
	if !newQty.IsPositive() {
		p.Quantity = decimal.Zero
		p.AverageCost = decimal.Zero
		return
	}

	total := p.Quantity.Mul(p.AverageCost).Sub(quantity.Mul(unitPrice))
	if total.IsNegative() {
		total = decimal.Zero
	}
	p.Quantity = newQty
	p.AverageCost = total.Div(newQty)
}

func TotalValue(positions []Position) decimal.Decimal {
	total := decimal.Zero
	for _, p := range positions {
		total = total.Add(p.Value())
	}
	return total
}
