package dbModel

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Position struct {
	InstrumentID uuid.UUID       `db:"instrument_id"`
	Code         string          `db:"code"`
	Category     string          `db:"category"`
	Quantity     decimal.Decimal `db:"quantity"`
	AverageCost  decimal.Decimal `db:"average_cost"`
	CurrentPrice decimal.Decimal `db:"current_price"`
	UpdatedAt    time.Time       `db:"updated_at"`
}

type Transaction struct {
	ID           uuid.UUID       `db:"transaction_id"`
	InstrumentID uuid.NullUUID   `db:"instrument_id"`
	Kind         string          `db:"kind"`
	Quantity     decimal.Decimal `db:"quantity"`
	UnitPrice    decimal.Decimal `db:"unit_price"`
	TotalValue   decimal.Decimal `db:"total_value"`
	TradeDate    time.Time       `db:"trade_date"`
	Note         string          `db:"note"`
}
