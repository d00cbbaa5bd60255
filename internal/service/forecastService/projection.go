package forecastService

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/KotFed0t/liberdade/internal/model"
	"github.com/KotFed0t/liberdade/internal/service"
	"github.com/KotFed0t/liberdade/internal/service/calendarService"
	"github.com/shopspring/decimal"
)

const (
	// MaxMonths bounds the monthly phase; hitting it means the goal is never reached.
	MaxMonths = 1200

	workingScale   = 16
	reportingScale = 2
)

var hundred = decimal.NewFromInt(100)

type Calendar interface {
	IsBusinessDay(ctx context.Context, date time.Time, jurisdiction string) (bool, error)
	BusinessDaysInMonth(ctx context.Context, year int, month time.Month, jurisdiction string) (int, error)
}

type ProjectionInput struct {
	Positions           []model.Position
	MonthlyRatePercent  decimal.Decimal
	MonthlyContribution decimal.Decimal
	Goal                decimal.Decimal
	Today               time.Time
	Jurisdiction        string
}

// DailyEquivalent returns rd such that (1+rd)^k == 1+r, where r is a fraction.
func DailyEquivalent(r decimal.Decimal, k int) decimal.Decimal {
	if k <= 0 {
		k = calendarService.DefaultBusinessDays
	}
	rd := math.Pow(1+r.InexactFloat64(), 1/float64(k)) - 1
	return decimal.NewFromFloat(rd)
}

// Project forecasts when the monthly passive income reaches the goal.
// The current month is compounded per business day, later months per month
// with the contribution added after each month's yield.
func Project(ctx context.Context, cal Calendar, in ProjectionInput) (model.Forecast, error) {
	if !in.MonthlyRatePercent.IsPositive() {
		return model.Forecast{}, fmt.Errorf("%w: monthly rate must be positive, got %s", service.ErrValidation, in.MonthlyRatePercent)
	}

	r := in.MonthlyRatePercent.Div(hundred)
	v0 := model.TotalValue(in.Positions)
	today := dateOf(in.Today)

	forecast := model.Forecast{
		CurrentNetWorth:      v0.Round(reportingScale),
		CurrentPassiveIncome: v0.Mul(r).Round(reportingScale),
		RequiredNetWorth:     in.Goal.DivRound(r, workingScale).Round(reportingScale),
		MonthlyRatePercent:   in.MonthlyRatePercent,
		MonthlyContribution:  in.MonthlyContribution,
		Goal:                 in.Goal,
		Evolution:            []model.EvolutionPoint{},
	}

	if v0.Mul(r).GreaterThanOrEqual(in.Goal) {
		forecast.GoalDate = today
		return forecast, nil
	}

	balance, evolution, err := compoundCurrentMonth(ctx, cal, in.Jurisdiction, today, v0, r)
	if err != nil {
		return model.Forecast{}, err
	}
	forecast.Evolution = evolution

	months := 0
	for balance.Mul(r).LessThan(in.Goal) && months < MaxMonths {
		balance = balance.Add(balance.Mul(r)).Round(workingScale)
		balance = balance.Add(in.MonthlyContribution)
		months++
	}

	forecast.MonthsRemaining = months
	if months >= MaxMonths && balance.Mul(r).LessThan(in.Goal) {
		forecast.GoalDate = model.GoalNeverReached
	} else {
		forecast.GoalDate = addMonthsClamped(endOfMonth(today), months)
	}

	return forecast, nil
}

// compoundCurrentMonth walks tomorrow..end of month and compounds on business days.
func compoundCurrentMonth(ctx context.Context, cal Calendar, jurisdiction string, today time.Time, v0, r decimal.Decimal) (decimal.Decimal, []model.EvolutionPoint, error) {
	k := calendarService.BusinessDaysOrDefault(cal.BusinessDaysInMonth(ctx, today.Year(), today.Month(), jurisdiction))
	rd := DailyEquivalent(r, k)

	balance := v0
	evolution := make([]model.EvolutionPoint, 0, k)
	last := endOfMonth(today)

	for day := today.AddDate(0, 0, 1); !day.After(last); day = day.AddDate(0, 0, 1) {
		if err := ctx.Err(); err != nil {
			return decimal.Zero, nil, err
		}

		businessDay, err := cal.IsBusinessDay(ctx, day, jurisdiction)
		if err != nil {
			businessDay = !calendarService.IsWeekend(day)
		}
		if !businessDay {
			continue
		}

		balance = balance.Add(balance.Mul(rd)).Round(workingScale)
		evolution = append(evolution, model.EvolutionPoint{
			ElapsedDays:          int(math.Round(day.Sub(today).Hours() / 24)),
			Date:                 day,
			Balance:              balance.Round(reportingScale),
			ImpliedMonthlyIncome: balance.Mul(r).Round(reportingScale),
		})
	}

	return balance, evolution, nil
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func endOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), calendarService.DaysInMonth(t.Year(), t.Month()), 0, 0, 0, 0, t.Location())
}

// addMonthsClamped adds months keeping the day of month, clamped to the target month's length.
func addMonthsClamped(t time.Time, months int) time.Time {
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location()).AddDate(0, months, 0)
	day := min(t.Day(), calendarService.DaysInMonth(first.Year(), first.Month()))
	return time.Date(first.Year(), first.Month(), day, 0, 0, 0, 0, t.Location())
}
