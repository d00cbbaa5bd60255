package forecastService

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/KotFed0t/liberdade/internal/model"
	"github.com/KotFed0t/liberdade/internal/service"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// weekdayCalendar treats every weekday as a business day.
type weekdayCalendar struct {
	err error
}

func (c weekdayCalendar) IsBusinessDay(_ context.Context, date time.Time, _ string) (bool, error) {
	if c.err != nil {
		return false, c.err
	}
	wd := date.Weekday()
	return wd != time.Saturday && wd != time.Sunday, nil
}

func (c weekdayCalendar) BusinessDaysInMonth(_ context.Context, year int, month time.Month, _ string) (int, error) {
	if c.err != nil {
		return 0, c.err
	}
	n := 0
	for d := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC); d.Month() == month; d = d.AddDate(0, 0, 1) {
		if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
			n++
		}
	}
	return n, nil
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func positionsWorth(value string) []model.Position {
	return []model.Position{{Code: "BRSTNCLF1RU6", Quantity: decimal.NewFromInt(1), CurrentPrice: dec(value)}}
}

func TestDailyEquivalent(t *testing.T) {
	for _, r := range []string{"0", "0.0085", "0.01", "0.05"} {
		for _, k := range []int{1, 18, 21, 23} {
			rd := DailyEquivalent(dec(r), k)
			compounded := math.Pow(1+rd.InexactFloat64(), float64(k))
			assert.InDelta(t, 1+dec(r).InexactFloat64(), compounded, 1e-9, "r=%s k=%d", r, k)
		}
	}
}

func TestProject_MonthlyScenario(t *testing.T) {
	// last day of the month: nothing left to compound daily
	today := time.Date(2025, time.January, 31, 9, 30, 0, 0, time.UTC)

	f, err := Project(context.Background(), weekdayCalendar{}, ProjectionInput{
		Positions:           positionsWorth("10000"),
		MonthlyRatePercent:  dec("1"),
		MonthlyContribution: dec("500"),
		Goal:                dec("150"),
		Today:               today,
	})
	require.NoError(t, err)

	assert.Empty(t, f.Evolution)
	assert.Equal(t, 9, f.MonthsRemaining)
	assert.Equal(t, time.Date(2025, time.October, 31, 0, 0, 0, 0, time.UTC), f.GoalDate)
	assert.True(t, f.CurrentNetWorth.Equal(dec("10000")))
	assert.True(t, f.CurrentPassiveIncome.Equal(dec("100")))
	assert.True(t, f.RequiredNetWorth.Equal(dec("15000")))
	assert.True(t, f.Reachable())
}

func TestProject_EarlyExit(t *testing.T) {
	today := time.Date(2025, time.March, 12, 0, 0, 0, 0, time.UTC)

	for _, contribution := range []string{"0", "1500", "100000"} {
		f, err := Project(context.Background(), weekdayCalendar{}, ProjectionInput{
			Positions:           positionsWorth("60000"),
			MonthlyRatePercent:  dec("0.85"),
			MonthlyContribution: dec(contribution),
			Goal:                dec("450"),
			Today:               today,
		})
		require.NoError(t, err)
		assert.Equal(t, 0, f.MonthsRemaining)
		assert.Equal(t, today, f.GoalDate)
		assert.Empty(t, f.Evolution)
	}
}

func TestProject_CurrentMonthSeries(t *testing.T) {
	// Wed 2025-03-12: 13 weekdays remain, 21 in the month
	today := time.Date(2025, time.March, 12, 0, 0, 0, 0, time.UTC)

	f, err := Project(context.Background(), weekdayCalendar{}, ProjectionInput{
		Positions:           positionsWorth("10000"),
		MonthlyRatePercent:  dec("1"),
		MonthlyContribution: dec("500"),
		Goal:                dec("450"),
		Today:               today,
	})
	require.NoError(t, err)
	require.Len(t, f.Evolution, 13)

	first := f.Evolution[0]
	assert.Equal(t, 1, first.ElapsedDays)
	assert.Equal(t, time.Date(2025, time.March, 13, 0, 0, 0, 0, time.UTC), first.Date)

	prev := decimal.Zero
	for _, p := range f.Evolution {
		assert.True(t, p.Balance.GreaterThanOrEqual(prev), "balances must not decrease")
		assert.NotEqual(t, time.Saturday, p.Date.Weekday())
		assert.NotEqual(t, time.Sunday, p.Date.Weekday())
		assert.True(t, p.Balance.Equal(p.Balance.Round(2)))
		prev = p.Balance
	}

	// 13 of 21 daily steps compound to (1.01)^(13/21)
	expected := 10000 * math.Pow(1.01, 13.0/21.0)
	assert.InDelta(t, expected, f.Evolution[12].Balance.InexactFloat64(), 0.01)
	assert.Equal(t, 19, f.Evolution[12].ElapsedDays)

	assert.Greater(t, f.MonthsRemaining, 0)
	assert.True(t, f.GoalDate.After(today))
}

func TestProject_NeverReached(t *testing.T) {
	today := time.Date(2025, time.March, 31, 0, 0, 0, 0, time.UTC)

	f, err := Project(context.Background(), weekdayCalendar{}, ProjectionInput{
		MonthlyRatePercent:  dec("0.01"),
		MonthlyContribution: decimal.Zero,
		Goal:                dec("450"),
		Today:               today,
	})
	require.NoError(t, err)
	assert.Equal(t, MaxMonths, f.MonthsRemaining)
	assert.Equal(t, model.GoalNeverReached, f.GoalDate)
	assert.False(t, f.Reachable())
	assert.True(t, f.CurrentNetWorth.IsZero())
}

func TestProject_CalendarFailureUsesWeekdays(t *testing.T) {
	today := time.Date(2025, time.March, 12, 0, 0, 0, 0, time.UTC)
	in := ProjectionInput{
		Positions:           positionsWorth("10000"),
		MonthlyRatePercent:  dec("1"),
		MonthlyContribution: dec("500"),
		Goal:                dec("450"),
		Today:               today,
	}

	withCalendar, err := Project(context.Background(), weekdayCalendar{}, in)
	require.NoError(t, err)
	withoutCalendar, err := Project(context.Background(), weekdayCalendar{err: errors.New("down")}, in)
	require.NoError(t, err)

	// March 2025 has 21 weekdays, which is also the default count
	assert.Equal(t, withCalendar.Evolution, withoutCalendar.Evolution)
	assert.Equal(t, withCalendar.MonthsRemaining, withoutCalendar.MonthsRemaining)
}

func TestProject_GoalDateClampsDay(t *testing.T) {
	assert.Equal(t,
		time.Date(2025, time.February, 28, 0, 0, 0, 0, time.UTC),
		addMonthsClamped(time.Date(2025, time.January, 31, 0, 0, 0, 0, time.UTC), 1),
	)
	assert.Equal(t,
		time.Date(2026, time.April, 30, 0, 0, 0, 0, time.UTC),
		addMonthsClamped(time.Date(2025, time.April, 30, 0, 0, 0, 0, time.UTC), 12),
	)
}

func TestProject_InvalidRate(t *testing.T) {
	_, err := Project(context.Background(), weekdayCalendar{}, ProjectionInput{MonthlyRatePercent: decimal.Zero, Today: time.Now()})
	assert.ErrorIs(t, err, service.ErrValidation)
}

func TestProject_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Project(ctx, weekdayCalendar{}, ProjectionInput{
		Positions:          positionsWorth("100"),
		MonthlyRatePercent: dec("1"),
		Goal:               dec("450"),
		Today:              time.Date(2025, time.March, 12, 0, 0, 0, 0, time.UTC),
	})
	assert.ErrorIs(t, err, context.Canceled)
}
