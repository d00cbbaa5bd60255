package dbModel

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Instrument struct {
	ID                           uuid.UUID       `db:"instrument_id"`
	Code                         string          `db:"code"`
	Name                         string          `db:"name"`
	Category                     string          `db:"category"`
	CurrentPrice                 decimal.Decimal `db:"current_price"`
	LastDistribution             decimal.Decimal `db:"last_distribution"`
	ExpectedMonthlyReturnPercent decimal.Decimal `db:"expected_monthly_return_percent"`
	UpdatedAt                    sql.NullTime    `db:"updated_at"`
}

type AllocationTarget struct {
	ID            uuid.UUID       `db:"target_id"`
	Category      string          `db:"category"`
	TargetPercent decimal.Decimal `db:"target_percent"`
	Phase         int             `db:"phase"`
	Active        bool            `db:"active"`
}

type Snapshot struct {
	ID            uuid.UUID       `db:"snapshot_id"`
	SnapshotDate  time.Time       `db:"snapshot_date"`
	TotalValue    decimal.Decimal `db:"total_value"`
	PassiveIncome decimal.Decimal `db:"passive_income"`
}

type Holiday struct {
	HolidayDate  time.Time `db:"holiday_date"`
	Name         string    `db:"name"`
	Kind         string    `db:"kind"`
	Level        string    `db:"level"`
	Jurisdiction string    `db:"jurisdiction"`
}
