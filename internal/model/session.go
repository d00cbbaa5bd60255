package model

import "github.com/shopspring/decimal"

type action int

const (
	DefaultAction action = iota
	ExpectingContribution
	ExpectingGoal
)

// Session keeps per-chat forecast preferences between commands.
type Session struct {
	Action       action
	Contribution *decimal.Decimal
	Goal         *decimal.Decimal
}
