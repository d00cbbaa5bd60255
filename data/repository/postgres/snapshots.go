package postgres

import (
	"context"
	"log/slog"
	"time"

	"github.com/KotFed0t/liberdade/internal/converter/dbConverter"
	"github.com/KotFed0t/liberdade/internal/model"
	"github.com/KotFed0t/liberdade/internal/model/dbModel"
	"github.com/KotFed0t/liberdade/utils"
)

func (r *Postgres) GetActiveAllocationTargets(ctx context.Context) (targets []model.AllocationTarget, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.GetActiveAllocationTargets"
	query := `
		SELECT target_id, category, target_percent, phase, active
		FROM allocation_targets
		WHERE active
		ORDER BY category
		`

	slog.Debug("GetActiveAllocationTargets start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		if err != nil {
			slog.Error("GetActiveAllocationTargets failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetActiveAllocationTargets completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	var rows []dbModel.AllocationTarget
	err = r.txOrDb(ctx).SelectContext(ctx, &rows, query)
	if err != nil {
		return nil, err
	}

	targets = make([]model.AllocationTarget, 0, len(rows))
	for _, row := range rows {
		targets = append(targets, dbConverter.ConvertAllocationTarget(row))
	}

	return targets, nil
}

func (r *Postgres) SnapshotExists(ctx context.Context, date time.Time) (exists bool, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.SnapshotExists"
	query := `SELECT EXISTS(SELECT 1 FROM net_worth_snapshots WHERE snapshot_date = $1::date)`

	slog.Debug("SnapshotExists start", slog.String("rqID", rqID), slog.String("op", op), slog.Time("date", date))
	defer func() {
		if err != nil {
			slog.Error("SnapshotExists failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("SnapshotExists completed", slog.String("rqID", rqID), slog.String("op", op), slog.Bool("exists", exists))
		}
	}()

	err = r.txOrDb(ctx).GetContext(ctx, &exists, query, date.Format(time.DateOnly))
	return exists, err
}

// InsertSnapshot reports created=false when a snapshot for the date already exists.
func (r *Postgres) InsertSnapshot(ctx context.Context, snapshot model.NetWorthSnapshot) (created bool, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.InsertSnapshot"
	query := `
		INSERT INTO net_worth_snapshots(snapshot_id, snapshot_date, total_value, passive_income)
		VALUES($1, $2::date, $3, $4)
		ON CONFLICT (snapshot_date) DO NOTHING
		`

	slog.Debug("InsertSnapshot start", slog.String("rqID", rqID), slog.String("op", op), slog.Time("date", snapshot.Date))
	defer func() {
		if err != nil {
			slog.Error("InsertSnapshot failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("InsertSnapshot completed", slog.String("rqID", rqID), slog.String("op", op), slog.Bool("created", created))
		}
	}()

	res, err := r.txOrDb(ctx).ExecContext(
		ctx,
		query,
		snapshot.ID,
		snapshot.Date.Format(time.DateOnly),
		snapshot.TotalValue,
		snapshot.PassiveIncome,
	)
	if err != nil {
		return false, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}

	return affected > 0, nil
}

func (r *Postgres) GetLastSnapshot(ctx context.Context) (snapshot model.NetWorthSnapshot, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.GetLastSnapshot"
	query := `
		SELECT snapshot_id, snapshot_date, total_value, passive_income
		FROM net_worth_snapshots
		ORDER BY snapshot_date DESC
		LIMIT 1
		`

	slog.Debug("GetLastSnapshot start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		if err != nil {
			slog.Debug("GetLastSnapshot failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetLastSnapshot completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	row := dbModel.Snapshot{}
	err = r.txOrDb(ctx).GetContext(ctx, &row, query)
	if err != nil {
		return model.NetWorthSnapshot{}, mapErr(err)
	}

	return dbConverter.ConvertSnapshot(row), nil
}
