package dailyUpdateService

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/KotFed0t/liberdade/internal/model"
	"github.com/KotFed0t/liberdade/internal/service"
	"github.com/KotFed0t/liberdade/internal/service/calendarService"
	"github.com/KotFed0t/liberdade/utils"
	"github.com/google/uuid"
)

const lockName = "daily-cycle"

type Repository interface {
	WithinTransaction(ctx context.Context, tFunc func(ctx context.Context) error) error
	GetInstruments(ctx context.Context) ([]model.Instrument, error)
	GetPositions(ctx context.Context) ([]model.Position, error)
	UpdateInstrumentsMarketData(ctx context.Context, updates []model.InstrumentUpdate) error
	SyncPositionPrices(ctx context.Context) error
	SnapshotExists(ctx context.Context, date time.Time) (bool, error)
	InsertSnapshot(ctx context.Context, snapshot model.NetWorthSnapshot) (created bool, err error)
}

type Resolver interface {
	Resolve(ctx context.Context, instruments []model.Instrument, now time.Time) ([]model.ResolveOutcome, error)
}

type Calendar interface {
	IsBusinessDay(ctx context.Context, date time.Time, jurisdiction string) (bool, error)
}

type Locker interface {
	TryLock(ctx context.Context, name string, ttl time.Duration) (release func(context.Context) error, acquired bool, err error)
}

type Notifier interface {
	NotifyDailyCycle(ctx context.Context, report model.CycleReport) error
}

type Options struct {
	ReferenceCode string
	Jurisdiction  string
	LockTTL       time.Duration
	Location      *time.Location
}

// DailyUpdateService runs the resolve, commit and snapshot pipeline once per business day.
type DailyUpdateService struct {
	repo     Repository
	resolver Resolver
	calendar Calendar
	locker   Locker
	notifier Notifier
	opts     Options
	now      func() time.Time
}

func New(repo Repository, resolver Resolver, calendar Calendar, locker Locker, opts Options) *DailyUpdateService {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &DailyUpdateService{
		repo:     repo,
		resolver: resolver,
		calendar: calendar,
		locker:   locker,
		opts:     opts,
		now:      time.Now,
	}
}

// SetNotifier is optional; without it cycle reports are only logged.
func (s *DailyUpdateService) SetNotifier(notifier Notifier) {
	s.notifier = notifier
}

// Run is the scheduled entrypoint.
func (s *DailyUpdateService) Run(ctx context.Context) error {
	_, err := s.RunDailyCycle(ctx, s.now(), false)
	if errors.Is(err, service.ErrCycleInProgress) {
		return nil
	}
	return err
}

// RunDailyCycle refreshes market data, propagates prices to positions and
// records the day's net worth snapshot. force skips the business-day check.
// On cancellation whatever was resolved is still committed and ctx.Err() is returned.
func (s *DailyUpdateService) RunDailyCycle(ctx context.Context, now time.Time, force bool) (report model.CycleReport, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "DailyUpdateService.RunDailyCycle"

	report.Date = model.UTCDate(now)

	slog.Info("RunDailyCycle start", slog.String("rqID", rqID), slog.String("op", op), slog.Time("now", now), slog.Bool("force", force))
	defer func() {
		if err != nil {
			slog.Error("RunDailyCycle failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Info(
				"RunDailyCycle completed",
				slog.String("rqID", rqID),
				slog.String("op", op),
				slog.Bool("skipped", report.Skipped),
				slog.Int("updated", report.Count(model.OutcomeUpdated)),
				slog.Int("failed", report.Count(model.OutcomeFailed)),
				slog.Bool("snapshotCreated", report.SnapshotCreated),
			)
		}
	}()

	release, acquired, err := s.locker.TryLock(ctx, lockName, s.opts.LockTTL)
	if err != nil {
		return report, fmt.Errorf("acquire lock: %w", err)
	}
	if !acquired {
		slog.Warn("daily cycle is running elsewhere", slog.String("rqID", rqID), slog.String("op", op))
		return report, service.ErrCycleInProgress
	}
	defer func() {
		if relErr := release(context.WithoutCancel(ctx)); relErr != nil {
			slog.Warn("can't release daily cycle lock", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", relErr.Error()))
		}
	}()

	if !force && !s.isBusinessDay(ctx, now) {
		report.Skipped = true
		report.SkipReason = "not a business day"
		return report, nil
	}

	instruments, err := s.repo.GetInstruments(ctx)
	if err != nil {
		return report, err
	}

	outcomes, resolveErr := s.resolver.Resolve(ctx, instruments, now)
	report.Outcomes = outcomes

	updates := make([]model.InstrumentUpdate, 0, len(outcomes))
	for _, o := range outcomes {
		if o.Status == model.OutcomeUpdated && o.Update != nil {
			updates = append(updates, *o.Update)
		}
	}

	// commit what was resolved even when the batch was cancelled
	commitCtx := context.WithoutCancel(ctx)
	err = s.repo.WithinTransaction(commitCtx, func(txCtx context.Context) error {
		if err := s.repo.UpdateInstrumentsMarketData(txCtx, updates); err != nil {
			return err
		}
		return s.repo.SyncPositionPrices(txCtx)
	})
	if err != nil {
		return report, fmt.Errorf("commit market data: %w", err)
	}

	if resolveErr != nil {
		return report, resolveErr
	}

	snapshot, created, err := s.snapshot(ctx, report.Date)
	if err != nil {
		return report, err
	}
	report.Snapshot = snapshot
	report.SnapshotCreated = created

	s.notify(ctx, report)

	return report, nil
}

func (s *DailyUpdateService) isBusinessDay(ctx context.Context, now time.Time) bool {
	local := now.In(s.opts.Location)
	ok, err := s.calendar.IsBusinessDay(ctx, local, s.opts.Jurisdiction)
	if err != nil {
		return !calendarService.IsWeekend(local)
	}
	return ok
}

// snapshot values the re-read portfolio and stores it once per date.
func (s *DailyUpdateService) snapshot(ctx context.Context, date time.Time) (*model.NetWorthSnapshot, bool, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "DailyUpdateService.snapshot"

	exists, err := s.repo.SnapshotExists(ctx, date)
	if err != nil {
		return nil, false, err
	}
	if exists {
		slog.Info("snapshot already recorded", slog.String("rqID", rqID), slog.String("op", op), slog.String("date", date.Format(time.DateOnly)))
		return nil, false, nil
	}

	positions, err := s.repo.GetPositions(ctx)
	if err != nil {
		return nil, false, err
	}
	instruments, err := s.repo.GetInstruments(ctx)
	if err != nil {
		return nil, false, err
	}

	snapshot := model.NetWorthSnapshot{
		ID:            uuid.New(),
		Date:          date,
		TotalValue:    model.TotalValue(positions).Round(2),
		PassiveIncome: model.MonthlyPassiveIncome(positions, instruments, s.opts.ReferenceCode).Round(2),
	}

	created, err := s.repo.InsertSnapshot(ctx, snapshot)
	if err != nil {
		return nil, false, err
	}
	if !created {
		return nil, false, nil
	}

	return &snapshot, true, nil
}

func (s *DailyUpdateService) notify(ctx context.Context, report model.CycleReport) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.NotifyDailyCycle(ctx, report); err != nil {
		slog.Warn(
			"can't notify about daily cycle",
			slog.String("rqID", utils.GetRequestIDFromCtx(ctx)),
			slog.String("op", "DailyUpdateService.notify"),
			slog.String("err", err.Error()),
		)
	}
}
