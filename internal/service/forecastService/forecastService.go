package forecastService

import (
	"context"
	"log/slog"
	"time"

	"github.com/KotFed0t/liberdade/internal/model"
	"github.com/KotFed0t/liberdade/utils"
	"github.com/shopspring/decimal"
)

type Repository interface {
	GetPositions(ctx context.Context) ([]model.Position, error)
	GetInstruments(ctx context.Context) ([]model.Instrument, error)
}

type Options struct {
	ReferenceCode             string
	Jurisdiction              string
	DefaultMonthlyRatePercent decimal.Decimal
	Location                  *time.Location
}

type ForecastService struct {
	repo     Repository
	calendar Calendar
	opts     Options
	now      func() time.Time
}

func New(repo Repository, calendar Calendar, opts Options) *ForecastService {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &ForecastService{
		repo:     repo,
		calendar: calendar,
		opts:     opts,
		now:      time.Now,
	}
}

// ReferenceRate picks the highest positive expected monthly return among the
// instruments tracking the reference code, or the fallback when none qualifies.
func ReferenceRate(instruments []model.Instrument, referenceCode string, fallback decimal.Decimal) decimal.Decimal {
	best := decimal.Zero
	for _, inst := range instruments {
		if !inst.IsReference(referenceCode) {
			continue
		}
		if inst.ExpectedMonthlyReturnPercent.GreaterThan(best) {
			best = inst.ExpectedMonthlyReturnPercent
		}
	}
	if !best.IsPositive() {
		return fallback
	}
	return best
}

func (s *ForecastService) Forecast(ctx context.Context, contribution, goal decimal.Decimal) (model.Forecast, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "ForecastService.Forecast"

	slog.Debug(
		"Forecast start",
		slog.String("rqID", rqID),
		slog.String("op", op),
		slog.String("contribution", contribution.String()),
		slog.String("goal", goal.String()),
	)
	defer func() {
		slog.Debug("Forecast finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	positions, err := s.repo.GetPositions(ctx)
	if err != nil {
		slog.Error("got error from repo.GetPositions", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Forecast{}, err
	}

	instruments, err := s.repo.GetInstruments(ctx)
	if err != nil {
		slog.Error("got error from repo.GetInstruments", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Forecast{}, err
	}

	rate := ReferenceRate(instruments, s.opts.ReferenceCode, s.opts.DefaultMonthlyRatePercent)

	forecast, err := Project(ctx, s.calendar, ProjectionInput{
		Positions:           positions,
		MonthlyRatePercent:  rate,
		MonthlyContribution: contribution,
		Goal:                goal,
		Today:               s.now().In(s.opts.Location),
		Jurisdiction:        s.opts.Jurisdiction,
	})
	if err != nil {
		slog.Error("projection failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Forecast{}, err
	}

	slog.Info(
		"forecast computed",
		slog.String("rqID", rqID),
		slog.String("op", op),
		slog.String("rate", rate.String()),
		slog.Int("monthsRemaining", forecast.MonthsRemaining),
		slog.Bool("reachable", forecast.Reachable()),
	)

	return forecast, nil
}
