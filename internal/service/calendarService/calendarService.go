package calendarService

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/KotFed0t/liberdade/internal/model"
	"github.com/KotFed0t/liberdade/utils"
	"github.com/patrickmn/go-cache"
)

// DefaultBusinessDays is used when the holiday list can't be resolved.
const DefaultBusinessDays = 21

type HolidayProvider interface {
	GetHolidays(ctx context.Context, jurisdiction string, year int) ([]model.Holiday, error)
}

type holidaySet map[string]struct{}

// CalendarService answers business-day questions for a jurisdiction.
// Holiday sets are memoized per (jurisdiction, year).
type CalendarService struct {
	provider HolidayProvider
	memo     *cache.Cache
}

func New(provider HolidayProvider, memoTTL time.Duration) *CalendarService {
	return &CalendarService{
		provider: provider,
		memo:     cache.New(memoTTL, 2*memoTTL),
	}
}

func IsWeekend(date time.Time) bool {
	wd := date.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

func dayKey(y int, m time.Month, d int) string {
	return fmt.Sprintf("%04d-%02d-%02d", y, int(m), d)
}

func (s *CalendarService) holidays(ctx context.Context, jurisdiction string, year int) (holidaySet, error) {
	memoKey := fmt.Sprintf("%s:%d", jurisdiction, year)
	if set, ok := s.memo.Get(memoKey); ok {
		return set.(holidaySet), nil
	}

	list, err := s.provider.GetHolidays(ctx, jurisdiction, year)
	if err != nil {
		return nil, err
	}

	set := make(holidaySet, len(list))
	for _, h := range list {
		if h.IsDiscretionary() {
			continue
		}
		y, m, d := h.Date.Date()
		set[dayKey(y, m, d)] = struct{}{}
	}

	s.memo.SetDefault(memoKey, set)

	return set, nil
}

// IsBusinessDay is false on weekends and on non-discretionary holidays.
// The calendar date of date is used as is, without zone conversion.
func (s *CalendarService) IsBusinessDay(ctx context.Context, date time.Time, jurisdiction string) (bool, error) {
	if IsWeekend(date) {
		return false, nil
	}

	y, m, d := date.Date()
	set, err := s.holidays(ctx, jurisdiction, y)
	if err != nil {
		slog.Warn(
			"can't resolve holidays",
			slog.String("rqID", utils.GetRequestIDFromCtx(ctx)),
			slog.String("op", "CalendarService.IsBusinessDay"),
			slog.String("err", err.Error()),
		)
		return false, err
	}

	_, isHoliday := set[dayKey(y, m, d)]
	return !isHoliday, nil
}

func (s *CalendarService) BusinessDaysInMonth(ctx context.Context, year int, month time.Month, jurisdiction string) (int, error) {
	set, err := s.holidays(ctx, jurisdiction, year)
	if err != nil {
		slog.Warn(
			"can't resolve holidays",
			slog.String("rqID", utils.GetRequestIDFromCtx(ctx)),
			slog.String("op", "CalendarService.BusinessDaysInMonth"),
			slog.String("err", err.Error()),
		)
		return 0, err
	}

	count := 0
	last := DaysInMonth(year, month)
	for d := 1; d <= last; d++ {
		date := time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
		if IsWeekend(date) {
			continue
		}
		if _, isHoliday := set[dayKey(year, month, d)]; isHoliday {
			continue
		}
		count++
	}

	return count, nil
}

// BusinessDaysOrDefault applies DefaultBusinessDays when the count is unavailable.
func BusinessDaysOrDefault(n int, err error) int {
	if err != nil || n <= 0 {
		return DefaultBusinessDays
	}
	return n
}

func DaysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
