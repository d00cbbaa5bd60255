package postgres

import (
	"context"
	"log/slog"

	"github.com/KotFed0t/liberdade/internal/converter/dbConverter"
	"github.com/KotFed0t/liberdade/internal/model"
	"github.com/KotFed0t/liberdade/internal/model/dbModel"
	"github.com/KotFed0t/liberdade/utils"
	"github.com/google/uuid"
)

const positionSelect = `
	SELECT p.instrument_id, i.code, i.category, p.quantity, p.average_cost,
		p.current_price, p.updated_at
	FROM positions p
	JOIN instruments i ON i.instrument_id = p.instrument_id
	`

func (r *Postgres) GetPositions(ctx context.Context) (positions []model.Position, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.GetPositions"
	query := positionSelect + ` WHERE p.quantity > 0 ORDER BY i.code`

	slog.Debug("GetPositions start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		if err != nil {
			slog.Error("GetPositions failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetPositions completed", slog.String("rqID", rqID), slog.String("op", op), slog.Int("count", len(positions)))
		}
	}()

	return r.selectPositions(ctx, query)
}

// GetPositionsPage fetches limit+1 rows to tell whether a next page exists.
func (r *Postgres) GetPositionsPage(ctx context.Context, limit, offset int) (positions []model.Position, hasNextPage bool, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.GetPositionsPage"
	query := positionSelect + ` WHERE p.quantity > 0 ORDER BY i.code LIMIT $1 OFFSET $2`

	slog.Debug("GetPositionsPage start", slog.String("rqID", rqID), slog.String("op", op), slog.Int("limit", limit), slog.Int("offset", offset))
	defer func() {
		if err != nil {
			slog.Error("GetPositionsPage failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetPositionsPage completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	positions, err = r.selectPositions(ctx, query, limit+1, offset)
	if err != nil {
		return nil, false, err
	}

	if len(positions) > limit {
		return positions[:limit], true, nil
	}

	return positions, false, nil
}

func (r *Postgres) GetPosition(ctx context.Context, instrumentID uuid.UUID) (position model.Position, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.GetPosition"
	query := positionSelect + ` WHERE p.instrument_id = $1 FOR UPDATE OF p`

	slog.Debug("GetPosition start", slog.String("rqID", rqID), slog.String("op", op), slog.String("instrumentID", instrumentID.String()))
	defer func() {
		if err != nil {
			slog.Debug("GetPosition failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetPosition completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	dbPosition := dbModel.Position{}
	err = r.txOrDb(ctx).GetContext(ctx, &dbPosition, query, instrumentID)
	if err != nil {
		return model.Position{}, mapErr(err)
	}

	return dbConverter.ConvertPosition(dbPosition), nil
}

func (r *Postgres) UpsertPosition(ctx context.Context, position model.Position) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.UpsertPosition"
	query := `
		INSERT INTO positions(instrument_id, quantity, average_cost, current_price, updated_at)
		VALUES(:instrument_id, :quantity, :average_cost, :current_price, :updated_at)
		ON CONFLICT (instrument_id) DO UPDATE
		SET quantity = EXCLUDED.quantity,
			average_cost = EXCLUDED.average_cost,
			current_price = EXCLUDED.current_price,
			updated_at = EXCLUDED.updated_at
		`

	slog.Debug("UpsertPosition start", slog.String("rqID", rqID), slog.String("op", op), slog.String("code", position.Code))
	defer func() {
		if err != nil {
			slog.Error("UpsertPosition failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("UpsertPosition completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	_, err = r.txOrDb(ctx).NamedExecContext(ctx, query, dbConverter.PositionToDb(position))
	return mapErr(err)
}

// SyncPositionPrices copies each instrument's current price onto its position.
func (r *Postgres) SyncPositionPrices(ctx context.Context) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.SyncPositionPrices"
	query := `
		UPDATE positions AS p
		SET current_price = i.current_price,
			updated_at = NOW()
		FROM instruments i
		WHERE i.instrument_id = p.instrument_id
		AND p.current_price IS DISTINCT FROM i.current_price
		`

	slog.Debug("SyncPositionPrices start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		if err != nil {
			slog.Error("SyncPositionPrices failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("SyncPositionPrices completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	_, err = r.txOrDb(ctx).ExecContext(ctx, query)
	return err
}

func (r *Postgres) selectPositions(ctx context.Context, query string, args ...any) ([]model.Position, error) {
	rows, err := r.txOrDb(ctx).QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var positions []model.Position
	for rows.Next() {
		var row dbModel.Position
		err = rows.StructScan(&row)
		if err != nil {
			return nil, err
		}
		positions = append(positions, dbConverter.ConvertPosition(row))
	}

	return positions, rows.Err()
}
