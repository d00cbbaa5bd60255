package rebalanceService

import (
	"fmt"
	"sort"

	"github.com/KotFed0t/liberdade/internal/model"
	"github.com/KotFed0t/liberdade/internal/service"
	"github.com/shopspring/decimal"
)

var (
	// NoiseThreshold is the smallest gap, in currency units, worth acting on.
	NoiseThreshold = decimal.NewFromInt(10)

	hundred = decimal.NewFromInt(100)
)

const reportingScale = 2

// Recommend compares the current allocation against the active targets after
// the planned contribution and suggests one trade per unbalanced category.
func Recommend(targets []model.AllocationTarget, positions []model.Position, instruments []model.Instrument, contribution decimal.Decimal) ([]model.Recommendation, error) {
	if len(targets) == 0 {
		return nil, fmt.Errorf("%w: no active allocation targets", service.ErrConfiguration)
	}

	byCategory := make(map[model.Category][]model.Position)
	for _, p := range positions {
		byCategory[p.Category] = append(byCategory[p.Category], p)
	}

	projectedTotal := model.TotalValue(positions).Add(contribution)
	currentTotal := model.TotalValue(positions)

	recommendations := make([]model.Recommendation, 0, len(targets))
	for _, target := range targets {
		held := byCategory[target.Category]

		targetValue := projectedTotal.Mul(target.TargetPercent).Div(hundred)
		currentValue := model.TotalValue(held)
		gap := targetValue.Sub(currentValue)

		if gap.Abs().LessThanOrEqual(NoiseThreshold) {
			continue
		}

		rec := model.Recommendation{
			Category:      target.Category,
			CurrentValue:  currentValue.Round(reportingScale),
			TargetValue:   targetValue.Round(reportingScale),
			TargetPercent: target.TargetPercent,
		}
		if currentTotal.IsPositive() {
			rec.CurrentPercent = currentValue.Mul(hundred).Div(currentTotal).Round(reportingScale)
		}

		if gap.IsPositive() {
			rec.Action = model.ActionBuy
			rec.InstrumentCode, rec.ReferencePrice = buyCandidate(target.Category, held, instruments)
		} else {
			rec.Action = model.ActionSell
			rec.InstrumentCode, rec.ReferencePrice = sellCandidate(held)
		}

		amount := gap.Abs()
		rec.SuggestedAmount = amount.Round(reportingScale)
		if rec.ReferencePrice.IsPositive() {
			rec.SuggestedQuantity = amount.Div(rec.ReferencePrice).Round(reportingScale)
		}

		recommendations = append(recommendations, rec)
	}

	sort.SliceStable(recommendations, func(i, j int) bool {
		return recommendations[i].SuggestedAmount.GreaterThan(recommendations[j].SuggestedAmount)
	})

	return recommendations, nil
}

// buyCandidate reinforces the smallest holding of the category, or picks the
// lowest-coded known instrument when nothing is held yet.
func buyCandidate(category model.Category, held []model.Position, instruments []model.Instrument) (string, decimal.Decimal) {
	if len(held) > 0 {
		smallest := held[0]
		for _, p := range held[1:] {
			if p.Value().LessThan(smallest.Value()) {
				smallest = p
			}
		}
		return smallest.Code, smallest.CurrentPrice
	}

	var candidate *model.Instrument
	for i := range instruments {
		inst := &instruments[i]
		if inst.Category != category {
			continue
		}
		if candidate == nil || inst.Code < candidate.Code {
			candidate = inst
		}
	}
	if candidate == nil {
		return "", decimal.Zero
	}
	return candidate.Code, candidate.CurrentPrice
}

func sellCandidate(held []model.Position) (string, decimal.Decimal) {
	if len(held) == 0 {
		return "", decimal.Zero
	}
	largest := held[0]
	for _, p := range held[1:] {
		if p.Value().GreaterThan(largest.Value()) {
			largest = p
		}
	}
	return largest.Code, largest.CurrentPrice
}
