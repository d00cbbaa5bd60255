package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// GoalNeverReached is the goal date reported when the projection hits its month cap.
var GoalNeverReached = time.Date(9999, time.December, 31, 0, 0, 0, 0, time.UTC)

type EvolutionPoint struct {
	ElapsedDays          int
	Date                 time.Time
	Balance              decimal.Decimal
	ImpliedMonthlyIncome decimal.Decimal
}

type Forecast struct {
	CurrentNetWorth      decimal.Decimal
	CurrentPassiveIncome decimal.Decimal
	RequiredNetWorth     decimal.Decimal
	MonthsRemaining      int
	GoalDate             time.Time
	MonthlyRatePercent   decimal.Decimal
	MonthlyContribution  decimal.Decimal
	Goal                 decimal.Decimal
	Evolution            []EvolutionPoint
}

func (f Forecast) Reachable() bool {
	return !f.GoalDate.Equal(GoalNeverReached)
}

type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
)

type Recommendation struct {
	Category          Category
	InstrumentCode    string
	Action            Action
	SuggestedAmount   decimal.Decimal
	SuggestedQuantity decimal.Decimal
	ReferencePrice    decimal.Decimal
	CurrentValue      decimal.Decimal
	TargetValue       decimal.Decimal
	CurrentPercent    decimal.Decimal
	TargetPercent     decimal.Decimal
}

// CycleReport summarizes one run of the daily update.
type CycleReport struct {
	Date            time.Time
	Skipped         bool
	SkipReason      string
	Outcomes        []ResolveOutcome
	Snapshot        *NetWorthSnapshot
	SnapshotCreated bool
}

func (r CycleReport) Count(status OutcomeStatus) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == status {
			n++
		}
	}
	return n
}
