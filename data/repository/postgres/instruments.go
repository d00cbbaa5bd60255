package postgres

import (
	"context"
	"log/slog"
	"time"

	"github.com/KotFed0t/liberdade/internal/converter/dbConverter"
	"github.com/KotFed0t/liberdade/internal/model"
	"github.com/KotFed0t/liberdade/internal/model/dbModel"
	"github.com/KotFed0t/liberdade/utils"
	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver
)

const instrumentColumns = `instrument_id, code, name, category, current_price,
	last_distribution, expected_monthly_return_percent, updated_at`

func (r *Postgres) InsertInstrument(ctx context.Context, instrument model.Instrument) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.InsertInstrument"
	query := `
		INSERT INTO instruments(` + instrumentColumns + `)
		VALUES(:instrument_id, :code, :name, :category, :current_price,
			:last_distribution, :expected_monthly_return_percent, :updated_at)
		`

	slog.Debug("InsertInstrument start", slog.String("rqID", rqID), slog.String("op", op), slog.String("code", instrument.Code))
	defer func() {
		if err != nil {
			slog.Error("InsertInstrument failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("InsertInstrument completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	_, err = r.txOrDb(ctx).NamedExecContext(ctx, query, dbConverter.InstrumentToDb(instrument))
	return mapErr(err)
}

func (r *Postgres) GetInstrument(ctx context.Context, instrumentID uuid.UUID) (instrument model.Instrument, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.GetInstrument"
	query := `SELECT ` + instrumentColumns + ` FROM instruments WHERE instrument_id = $1`

	slog.Debug("GetInstrument start", slog.String("rqID", rqID), slog.String("op", op), slog.String("instrumentID", instrumentID.String()))
	defer func() {
		if err != nil {
			slog.Error("GetInstrument failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetInstrument completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	dbInstrument := dbModel.Instrument{}
	err = r.txOrDb(ctx).GetContext(ctx, &dbInstrument, query, instrumentID)
	if err != nil {
		return model.Instrument{}, mapErr(err)
	}

	return dbConverter.ConvertInstrument(dbInstrument), nil
}

func (r *Postgres) GetInstrumentByCode(ctx context.Context, code string) (instrument model.Instrument, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.GetInstrumentByCode"
	query := `SELECT ` + instrumentColumns + ` FROM instruments WHERE UPPER(code) = UPPER($1)`

	slog.Debug("GetInstrumentByCode start", slog.String("rqID", rqID), slog.String("op", op), slog.String("code", code))
	defer func() {
		if err != nil {
			slog.Debug("GetInstrumentByCode failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetInstrumentByCode completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	dbInstrument := dbModel.Instrument{}
	err = r.txOrDb(ctx).GetContext(ctx, &dbInstrument, query, code)
	if err != nil {
		return model.Instrument{}, mapErr(err)
	}

	return dbConverter.ConvertInstrument(dbInstrument), nil
}

func (r *Postgres) GetInstruments(ctx context.Context) (instruments []model.Instrument, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.GetInstruments"
	query := `SELECT ` + instrumentColumns + ` FROM instruments ORDER BY code`

	slog.Debug("GetInstruments start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		if err != nil {
			slog.Error("GetInstruments failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetInstruments completed", slog.String("rqID", rqID), slog.String("op", op), slog.Int("count", len(instruments)))
		}
	}()

	var rows []dbModel.Instrument
	err = r.txOrDb(ctx).SelectContext(ctx, &rows, query)
	if err != nil {
		return nil, err
	}

	instruments = make([]model.Instrument, 0, len(rows))
	for _, row := range rows {
		instruments = append(instruments, dbConverter.ConvertInstrument(row))
	}

	return instruments, nil
}

// UpdateInstrumentsMarketData writes resolved market data in a single statement.
func (r *Postgres) UpdateInstrumentsMarketData(ctx context.Context, updates []model.InstrumentUpdate) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.UpdateInstrumentsMarketData"

	if len(updates) == 0 {
		return nil
	}

	query := `
		UPDATE instruments AS i
		SET current_price = u.current_price,
			last_distribution = u.last_distribution,
			expected_monthly_return_percent = u.expected_return,
			updated_at = COALESCE(u.updated_at, i.updated_at)
		FROM UNNEST(
			$1::uuid[],
			$2::numeric[],
			$3::numeric[],
			$4::numeric[],
			$5::timestamptz[]
		) AS u(instrument_id, current_price, last_distribution, expected_return, updated_at)
		WHERE i.instrument_id = u.instrument_id
		`

	ids := make([]string, 0, len(updates))
	prices := make([]string, 0, len(updates))
	distributions := make([]string, 0, len(updates))
	returns := make([]string, 0, len(updates))
	updatedAts := make([]*time.Time, 0, len(updates))
	for _, u := range updates {
		ids = append(ids, u.InstrumentID.String())
		prices = append(prices, u.CurrentPrice.String())
		distributions = append(distributions, u.LastDistribution.String())
		returns = append(returns, u.ExpectedMonthlyReturnPercent.String())
		// never-priced instruments keep a NULL updated_at
		var updatedAt *time.Time
		if !u.UpdatedAt.IsZero() {
			at := u.UpdatedAt
			updatedAt = &at
		}
		updatedAts = append(updatedAts, updatedAt)
	}

	slog.Debug("UpdateInstrumentsMarketData start", slog.String("rqID", rqID), slog.String("op", op), slog.Int("updates", len(updates)))
	defer func() {
		if err != nil {
			slog.Error("UpdateInstrumentsMarketData failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("UpdateInstrumentsMarketData completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	_, err = r.txOrDb(ctx).ExecContext(ctx, query, ids, prices, distributions, returns, updatedAts)
	return err
}
