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

// GetHolidays returns the stored holidays of a year, discretionary ones included.
func (r *Postgres) GetHolidays(ctx context.Context, jurisdiction string, year int) (holidays []model.Holiday, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.GetHolidays"
	query := `
		SELECT holiday_date, name, kind, level, jurisdiction
		FROM holidays
		WHERE jurisdiction = $1
		AND holiday_date >= make_date($2::int, 1, 1)
		AND holiday_date < make_date($2::int + 1, 1, 1)
		ORDER BY holiday_date
		`

	slog.Debug("GetHolidays start", slog.String("rqID", rqID), slog.String("op", op), slog.String("jurisdiction", jurisdiction), slog.Int("year", year))
	defer func() {
		if err != nil {
			slog.Error("GetHolidays failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetHolidays completed", slog.String("rqID", rqID), slog.String("op", op), slog.Int("count", len(holidays)))
		}
	}()

	var rows []dbModel.Holiday
	err = r.txOrDb(ctx).SelectContext(ctx, &rows, query, jurisdiction, year)
	if err != nil {
		return nil, err
	}

	holidays = make([]model.Holiday, 0, len(rows))
	for _, row := range rows {
		holidays = append(holidays, dbConverter.ConvertHoliday(row))
	}

	return holidays, nil
}

func (r *Postgres) InsertHolidays(ctx context.Context, holidays []model.Holiday) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.InsertHolidays"

	if len(holidays) == 0 {
		return nil
	}

	query := `
		INSERT INTO holidays(holiday_date, name, kind, level, jurisdiction)
		SELECT u.holiday_date, u.name, u.kind, u.level, u.jurisdiction
		FROM UNNEST(
			$1::date[],
			$2::text[],
			$3::text[],
			$4::text[],
			$5::text[]
		) AS u(holiday_date, name, kind, level, jurisdiction)
		ON CONFLICT (holiday_date, jurisdiction, name) DO NOTHING
		`

	dates := make([]string, 0, len(holidays))
	names := make([]string, 0, len(holidays))
	kinds := make([]string, 0, len(holidays))
	levels := make([]string, 0, len(holidays))
	jurisdictions := make([]string, 0, len(holidays))
	for _, h := range holidays {
		dates = append(dates, h.Date.Format(time.DateOnly))
		names = append(names, h.Name)
		kinds = append(kinds, h.Kind)
		levels = append(levels, h.Level)
		jurisdictions = append(jurisdictions, h.Jurisdiction)
	}

	slog.Debug("InsertHolidays start", slog.String("rqID", rqID), slog.String("op", op), slog.Int("holidays", len(holidays)))
	defer func() {
		if err != nil {
			slog.Error("InsertHolidays failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("InsertHolidays completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	_, err = r.txOrDb(ctx).ExecContext(ctx, query, dates, names, kinds, levels, jurisdictions)
	return err
}
