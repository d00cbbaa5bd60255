package marketModel

import (
	"time"

	"github.com/shopspring/decimal"
)

// RateObservation is one element of a BCB SGS series response.
type RateObservation struct {
	Data  string `json:"data"`
	Valor string `json:"valor"`
}

type DailyRate struct {
	Date        time.Time
	RatePercent decimal.Decimal
}

// ArchiveTrade is a parsed row of the monthly negotiation archive.
type ArchiveTrade struct {
	Date         time.Time
	Code         string
	AveragePrice decimal.Decimal
}

type RawEarnings struct {
	DateCom []RawEarning `json:"dateCom"`
}

type RawEarning struct {
	EarningType         string `json:"earningType"`
	ResultAbsoluteValue string `json:"resultAbsoluteValue"`
	RankDateCom         int    `json:"rankDateCom"`
}

type Distribution struct {
	Kind  string
	Value decimal.Decimal
	Rank  int
}

type RawHoliday struct {
	Date  string `json:"date"`
	Name  string `json:"name"`
	Type  string `json:"type"`
	Level string `json:"level"`
}
