package holidayService

import (
	"context"
	"errors"
	"log/slog"

	"github.com/KotFed0t/liberdade/internal/model"
	"github.com/KotFed0t/liberdade/utils"
)

type Cache interface {
	GetHolidays(ctx context.Context, jurisdiction string, year int) ([]model.Holiday, error)
	SetHolidays(ctx context.Context, jurisdiction string, year int, holidays []model.Holiday) error
}

type Repository interface {
	GetHolidays(ctx context.Context, jurisdiction string, year int) ([]model.Holiday, error)
	InsertHolidays(ctx context.Context, holidays []model.Holiday) error
}

type Api interface {
	GetHolidays(ctx context.Context, jurisdiction string, year int) ([]model.Holiday, error)
}

var ErrUnavailable = errors.New("error holidays unavailable")

// HolidayService resolves holidays from the cache, then storage, then the
// remote provider. Remote results are persisted so each year is fetched once.
type HolidayService struct {
	cache Cache
	repo  Repository
	api   Api
}

func New(cache Cache, repo Repository, api Api) *HolidayService {
	return &HolidayService{cache: cache, repo: repo, api: api}
}

// GetHolidays returns the non-discretionary holidays of the year.
func (s *HolidayService) GetHolidays(ctx context.Context, jurisdiction string, year int) ([]model.Holiday, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "HolidayService.GetHolidays"

	slog.Debug("GetHolidays start", slog.String("rqID", rqID), slog.String("op", op), slog.String("jurisdiction", jurisdiction), slog.Int("year", year))

	holidays, err := s.cache.GetHolidays(ctx, jurisdiction, year)
	if err == nil {
		return nonDiscretionary(holidays), nil
	}

	holidays, err = s.repo.GetHolidays(ctx, jurisdiction, year)
	if err != nil {
		slog.Warn("can't get holidays from repo", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
	}

	if len(holidays) == 0 {
		holidays, err = s.api.GetHolidays(ctx, jurisdiction, year)
		if err != nil {
			slog.Error("can't get holidays from api", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
			return nil, errors.Join(ErrUnavailable, err)
		}

		if err = s.repo.InsertHolidays(ctx, holidays); err != nil {
			slog.Warn("can't persist holidays", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		}
	}

	go func(ctx context.Context) {
		_ = s.cache.SetHolidays(ctx, jurisdiction, year, holidays)
	}(context.WithoutCancel(ctx))

	slog.Debug("GetHolidays completed", slog.String("rqID", rqID), slog.String("op", op), slog.Int("count", len(holidays)))

	return nonDiscretionary(holidays), nil
}

func nonDiscretionary(holidays []model.Holiday) []model.Holiday {
	res := make([]model.Holiday, 0, len(holidays))
	for _, h := range holidays {
		if h.IsDiscretionary() {
			continue
		}
		res = append(res, h)
	}
	return res
}
