package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/KotFed0t/liberdade/utils"
	"github.com/go-co-op/gocron/v2"
	"github.com/jonboulle/clockwork"
)

type taskFn func(ctx context.Context) error

// TimeOfDay is a wall-clock time in the scheduler's location.
type TimeOfDay struct {
	Hour   int
	Minute int
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// ParseTimeOfDay parses "HH:MM".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	parsed, err := time.Parse("15:04", s)
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("invalid time of day %q: %w", s, err)
	}
	return TimeOfDay{Hour: parsed.Hour(), Minute: parsed.Minute()}, nil
}

// NextTrigger returns the first instant strictly after now that falls on at,
// in now's location.
func NextTrigger(now time.Time, at TimeOfDay) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), at.Hour, at.Minute, 0, 0, now.Location())
	if !next.After(now) {
		next = time.Date(now.Year(), now.Month(), now.Day()+1, at.Hour, at.Minute, 0, 0, now.Location())
	}
	return next
}

// RetryPolicy retries a failed run after a fixed backoff.
type RetryPolicy struct {
	MaxRetries int
	Backoff    time.Duration
}

type Scheduler struct {
	scheduler gocron.Scheduler
	clock     clockwork.Clock
	location  *time.Location
	jobs      map[string]gocron.Job
}

func New(clock clockwork.Clock, location *time.Location) *Scheduler {
	if location == nil {
		location = time.UTC
	}
	scheduler, err := gocron.NewScheduler(
		gocron.WithClock(clock),
		gocron.WithLocation(location),
	)
	if err != nil {
		panic(err.Error())
	}
	return &Scheduler{
		scheduler: scheduler,
		clock:     clock,
		location:  location,
		jobs:      make(map[string]gocron.Job),
	}
}

func (s *Scheduler) Start() {
	s.scheduler.Start()
}

func (s *Scheduler) Stop() {
	_ = s.scheduler.Shutdown()
}

func (s *Scheduler) createJob(jobDefinition gocron.JobDefinition, name string, fn taskFn) {
	opts := []gocron.JobOption{
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	}

	job, err := s.scheduler.NewJob(
		jobDefinition,
		gocron.NewTask(s.taskWithRecover(fn, name)),
		opts...,
	)

	if err != nil {
		slog.Error("Scheduler creating job error", slog.String("jobName", name))
		panic(err.Error())
	}

	s.jobs[name] = job
}

// NewDailyJob runs fn every day at the given wall-clock time, retrying failed runs.
func (s *Scheduler) NewDailyJob(name string, fn taskFn, at TimeOfDay, retry RetryPolicy) {
	atTimes := gocron.NewAtTimes(gocron.NewAtTime(uint(at.Hour), uint(at.Minute), 0))
	s.createJob(gocron.DailyJob(1, atTimes), name, s.withRetry(fn, name, retry))

	slog.Info(
		"daily job scheduled",
		slog.String("jobName", name),
		slog.String("at", at.String()),
		slog.Time("nextRun", NextTrigger(s.clock.Now().In(s.location), at)),
	)
}

// NextRun reports when the named job fires next.
func (s *Scheduler) NextRun(name string) (time.Time, error) {
	job, ok := s.jobs[name]
	if !ok {
		return time.Time{}, fmt.Errorf("unknown job %q", name)
	}
	return job.NextRun()
}

// withRetry waits a fixed backoff between attempts. A cancelled ctx aborts the wait.
func (s *Scheduler) withRetry(fn taskFn, name string, retry RetryPolicy) taskFn {
	return func(ctx context.Context) error {
		var err error
		for attempt := 0; ; attempt++ {
			err = fn(ctx)
			if err == nil || attempt >= retry.MaxRetries {
				return err
			}

			slog.Warn(
				"job attempt failed, retrying",
				slog.String("jobName", name),
				slog.Int("attempt", attempt+1),
				slog.Duration("backoff", retry.Backoff),
				slog.String("err", err.Error()),
			)

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-s.clock.After(retry.Backoff):
			}
		}
	}
}

func (s *Scheduler) taskWithRecover(fn taskFn, jobName string) func(ctx context.Context) {
	return func(ctx context.Context) {
		defer func() {
			if r := recover(); r != nil {
				slog.Error(
					"Panic recovered in scheduler job",
					slog.String("jobName", jobName),
					slog.Any("panic", r),
					slog.String("stacktrace", string(debug.Stack())),
				)
			}
		}()

		ctx = utils.WithNewRqID(ctx)
		rqID := utils.GetRequestIDFromCtx(ctx)

		slog.Info("job start", slog.String("jobName", jobName), slog.String("rqID", rqID))

		err := fn(ctx)
		if err != nil {
			slog.Error("job failed", slog.String("jobName", jobName), slog.String("rqID", rqID), slog.Any("error", err))
		} else {
			slog.Info("job completed", slog.String("jobName", jobName), slog.String("rqID", rqID))
		}
	}
}
