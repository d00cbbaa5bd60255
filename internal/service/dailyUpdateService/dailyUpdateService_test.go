package dailyUpdateService

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/KotFed0t/liberdade/internal/model"
	"github.com/KotFed0t/liberdade/internal/service"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// memRepo keeps instruments, positions and snapshots in memory.
type memRepo struct {
	mu          sync.Mutex
	instruments []model.Instrument
	positions   []model.Position
	snapshots   map[string]model.NetWorthSnapshot
	commitErr   error
	commits     int
}

func newMemRepo(instruments []model.Instrument, positions []model.Position) *memRepo {
	return &memRepo{instruments: instruments, positions: positions, snapshots: map[string]model.NetWorthSnapshot{}}
}

func (r *memRepo) WithinTransaction(ctx context.Context, tFunc func(ctx context.Context) error) error {
	r.commits++
	return tFunc(ctx)
}

func (r *memRepo) GetInstruments(context.Context) ([]model.Instrument, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.Instrument(nil), r.instruments...), nil
}

func (r *memRepo) GetPositions(context.Context) ([]model.Position, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.Position(nil), r.positions...), nil
}

func (r *memRepo) UpdateInstrumentsMarketData(_ context.Context, updates []model.InstrumentUpdate) error {
	if r.commitErr != nil {
		return r.commitErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range updates {
		for i := range r.instruments {
			if r.instruments[i].ID == u.InstrumentID {
				r.instruments[i] = u.ApplyTo(r.instruments[i])
			}
		}
	}
	return nil
}

func (r *memRepo) SyncPositionPrices(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.positions {
		for _, inst := range r.instruments {
			if inst.ID == r.positions[i].InstrumentID {
				r.positions[i].CurrentPrice = inst.CurrentPrice
			}
		}
	}
	return nil
}

func (r *memRepo) SnapshotExists(_ context.Context, date time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.snapshots[date.Format(time.DateOnly)]
	return ok, nil
}

func (r *memRepo) InsertSnapshot(_ context.Context, snapshot model.NetWorthSnapshot) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := snapshot.Date.Format(time.DateOnly)
	if _, ok := r.snapshots[key]; ok {
		return false, nil
	}
	r.snapshots[key] = snapshot
	return true, nil
}

type resolverMock struct{ mock.Mock }

func (m *resolverMock) Resolve(ctx context.Context, instruments []model.Instrument, now time.Time) ([]model.ResolveOutcome, error) {
	args := m.Called(ctx, instruments, now)
	o, _ := args.Get(0).([]model.ResolveOutcome)
	return o, args.Error(1)
}

type calendarStub struct {
	businessDay bool
	err         error
}

func (c calendarStub) IsBusinessDay(context.Context, time.Time, string) (bool, error) {
	return c.businessDay, c.err
}

type lockStub struct {
	held     bool
	released int
}

func (l *lockStub) TryLock(context.Context, string, time.Duration) (func(context.Context) error, bool, error) {
	if l.held {
		return nil, false, nil
	}
	l.held = true
	return func(context.Context) error {
		l.held = false
		l.released++
		return nil
	}, true, nil
}

type notifierMock struct{ mock.Mock }

func (m *notifierMock) NotifyDailyCycle(ctx context.Context, report model.CycleReport) error {
	return m.Called(ctx, report).Error(0)
}

var (
	tesouroID = uuid.New()
	hglgID    = uuid.New()
	// Wednesday
	now = time.Date(2025, time.March, 12, 11, 0, 0, 0, time.UTC)
)

func fixtures() ([]model.Instrument, []model.Position) {
	instruments := []model.Instrument{
		{ID: tesouroID, Code: "BRSTNCLF1RU6", Category: model.CategoryLiquidFixedIncome, CurrentPrice: dec("16000"), ExpectedMonthlyReturnPercent: dec("1")},
		{ID: hglgID, Code: "HGLG11", Category: model.CategoryReitLogistics, CurrentPrice: dec("150"), LastDistribution: dec("1.10")},
	}
	positions := []model.Position{
		{InstrumentID: tesouroID, Code: "BRSTNCLF1RU6", Category: model.CategoryLiquidFixedIncome, Quantity: dec("0.5"), CurrentPrice: dec("16000")},
		{InstrumentID: hglgID, Code: "HGLG11", Category: model.CategoryReitLogistics, Quantity: dec("10"), CurrentPrice: dec("150")},
		// orphan position is valued but earns nothing
		{InstrumentID: uuid.New(), Code: "GONE11", Category: model.CategoryReitPaper, Quantity: dec("1"), CurrentPrice: dec("100")},
	}
	return instruments, positions
}

func hglgUpdate() []model.ResolveOutcome {
	return []model.ResolveOutcome{
		{Code: "BRSTNCLF1RU6", Status: model.OutcomeSkipped, Reason: "no update"},
		{Code: "HGLG11", Status: model.OutcomeUpdated, Update: &model.InstrumentUpdate{
			InstrumentID:                 hglgID,
			Code:                         "HGLG11",
			CurrentPrice:                 dec("160"),
			LastDistribution:             dec("1.60"),
			ExpectedMonthlyReturnPercent: dec("1"),
			UpdatedAt:                    now,
		}},
	}
}

func TestRunDailyCycle(t *testing.T) {
	repo := newMemRepo(fixtures())
	resolver := &resolverMock{}
	resolver.On("Resolve", mock.Anything, mock.Anything, now).Return(hglgUpdate(), nil)
	notifier := &notifierMock{}
	notifier.On("NotifyDailyCycle", mock.Anything, mock.Anything).Return(nil).Once()
	lock := &lockStub{}

	s := New(repo, resolver, calendarStub{businessDay: true}, lock, Options{ReferenceCode: "BRSTNCLF1RU6", LockTTL: time.Minute})
	s.SetNotifier(notifier)

	report, err := s.RunDailyCycle(context.Background(), now, false)
	require.NoError(t, err)

	assert.False(t, report.Skipped)
	assert.Equal(t, 1, report.Count(model.OutcomeUpdated))
	require.True(t, report.SnapshotCreated)
	require.NotNil(t, report.Snapshot)

	// 0.5*16000 + 10*160 + 100
	assert.True(t, report.Snapshot.TotalValue.Equal(dec("9700")), report.Snapshot.TotalValue.String())
	// 8000*1% + 10*1.60
	assert.True(t, report.Snapshot.PassiveIncome.Equal(dec("96")), report.Snapshot.PassiveIncome.String())
	assert.Equal(t, time.Date(2025, time.March, 12, 0, 0, 0, 0, time.UTC), report.Snapshot.Date)

	assert.True(t, repo.positions[1].CurrentPrice.Equal(dec("160")), "prices propagated to positions")
	assert.Equal(t, 1, lock.released)
	notifier.AssertExpectations(t)
}

func TestRunDailyCycle_TwiceSameDayKeepsOneSnapshot(t *testing.T) {
	repo := newMemRepo(fixtures())
	resolver := &resolverMock{}
	resolver.On("Resolve", mock.Anything, mock.Anything, mock.Anything).Return(hglgUpdate(), nil)

	s := New(repo, resolver, calendarStub{businessDay: true}, &lockStub{}, Options{ReferenceCode: "BRSTNCLF1RU6"})

	first, err := s.RunDailyCycle(context.Background(), now, false)
	require.NoError(t, err)
	second, err := s.RunDailyCycle(context.Background(), now.Add(3*time.Hour), false)
	require.NoError(t, err)

	assert.True(t, first.SnapshotCreated)
	assert.False(t, second.SnapshotCreated)
	assert.Nil(t, second.Snapshot)
	assert.Len(t, repo.snapshots, 1)
}

func TestRunDailyCycle_SkipsNonBusinessDay(t *testing.T) {
	repo := newMemRepo(fixtures())
	resolver := &resolverMock{}

	s := New(repo, resolver, calendarStub{businessDay: false}, &lockStub{}, Options{})

	report, err := s.RunDailyCycle(context.Background(), now, false)
	require.NoError(t, err)
	assert.True(t, report.Skipped)
	resolver.AssertNotCalled(t, "Resolve", mock.Anything, mock.Anything, mock.Anything)
	assert.Empty(t, repo.snapshots)
}

func TestRunDailyCycle_CalendarFailureUsesWeekdays(t *testing.T) {
	repo := newMemRepo(fixtures())
	resolver := &resolverMock{}
	resolver.On("Resolve", mock.Anything, mock.Anything, mock.Anything).Return(nil, nil)

	s := New(repo, resolver, calendarStub{err: errors.New("down")}, &lockStub{}, Options{})

	saturday := time.Date(2025, time.March, 15, 11, 0, 0, 0, time.UTC)
	report, err := s.RunDailyCycle(context.Background(), saturday, false)
	require.NoError(t, err)
	assert.True(t, report.Skipped)

	report, err = s.RunDailyCycle(context.Background(), now, false)
	require.NoError(t, err)
	assert.False(t, report.Skipped)
}

func TestRunDailyCycle_ForceIgnoresCalendar(t *testing.T) {
	repo := newMemRepo(fixtures())
	resolver := &resolverMock{}
	resolver.On("Resolve", mock.Anything, mock.Anything, mock.Anything).Return(nil, nil)

	s := New(repo, resolver, calendarStub{businessDay: false}, &lockStub{}, Options{})

	report, err := s.RunDailyCycle(context.Background(), now, true)
	require.NoError(t, err)
	assert.False(t, report.Skipped)
	assert.True(t, report.SnapshotCreated)
}

func TestRunDailyCycle_LockHeld(t *testing.T) {
	s := New(newMemRepo(fixtures()), &resolverMock{}, calendarStub{businessDay: true}, &lockStub{held: true}, Options{})

	_, err := s.RunDailyCycle(context.Background(), now, false)
	assert.ErrorIs(t, err, service.ErrCycleInProgress)

	// the scheduled entrypoint treats a concurrent run as done
	assert.NoError(t, s.Run(context.Background()))
}

func TestRunDailyCycle_CancelledStillCommits(t *testing.T) {
	repo := newMemRepo(fixtures())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	resolver := &resolverMock{}
	resolver.On("Resolve", mock.Anything, mock.Anything, now).Return(hglgUpdate()[1:], context.Canceled)

	s := New(repo, resolver, calendarStub{businessDay: true}, &lockStub{}, Options{})

	report, err := s.RunDailyCycle(ctx, now, false)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, report.Count(model.OutcomeUpdated))
	assert.Equal(t, 1, repo.commits)
	assert.True(t, repo.instruments[1].CurrentPrice.Equal(dec("160")))
	assert.Empty(t, repo.snapshots)
}

func TestRunDailyCycle_CommitFailure(t *testing.T) {
	repo := newMemRepo(fixtures())
	repo.commitErr = errors.New("db down")
	resolver := &resolverMock{}
	resolver.On("Resolve", mock.Anything, mock.Anything, mock.Anything).Return(hglgUpdate(), nil)

	s := New(repo, resolver, calendarStub{businessDay: true}, &lockStub{}, Options{})

	_, err := s.RunDailyCycle(context.Background(), now, false)
	assert.Error(t, err)
	assert.Empty(t, repo.snapshots)
}
