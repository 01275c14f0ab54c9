package scheduler_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Raimguhinov/alarm-go/internal/alarm"
	"github.com/Raimguhinov/alarm-go/internal/metrics"
	"github.com/Raimguhinov/alarm-go/internal/scheduler"
	"github.com/Raimguhinov/alarm-go/internal/storage/memory"
	"github.com/Raimguhinov/alarm-go/pkg/logger"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTimer struct {
	mu     sync.Mutex
	armed  map[uuid.UUID]time.Time
	arms   int
	cancel int
}

func newFakeTimer() *fakeTimer {
	return &fakeTimer{armed: map[uuid.UUID]time.Time{}}
}

func (f *fakeTimer) ArmOnce(id uuid.UUID, at time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.armed[id] = at
	f.arms++
}

func (f *fakeTimer) Cancel(id uuid.UUID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.armed, id)
	f.cancel++
}

func (f *fakeTimer) armedAt(id uuid.UUID) (time.Time, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	at, ok := f.armed[id]
	return at, ok
}

func (f *fakeTimer) armedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.armed)
}

type fakePresenter struct {
	mu    sync.Mutex
	shown []uuid.UUID
}

func (f *fakePresenter) Show(id uuid.UUID, title, message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.shown = append(f.shown, id)
}

func (f *fakePresenter) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.shown)
}

func intp(v int) *int { return &v }

func testAlarm(hour, minute int, days ...time.Weekday) *alarm.Alarm {
	a := &alarm.Alarm{
		ID:      uuid.New(),
		Title:   "wake up",
		Message: "rise and shine",
		Hour:    intp(hour),
		Minute:  intp(minute),
		Repeat:  make(alarm.RepeatMask, alarm.DaysInWeek),
		Enabled: true,
	}
	for _, d := range days {
		a.Repeat[d] = true
	}
	return a
}

func newScheduler(t *testing.T) (*scheduler.Scheduler, *memory.Repository, *fakeTimer, *fakePresenter) {
	t.Helper()

	store := memory.New()
	timer := newFakeTimer()
	presenter := &fakePresenter{}
	l := logger.New("error", "local")
	rec := metrics.New(prometheus.NewRegistry())

	s := scheduler.New(store, timer, presenter, l, rec)
	// Sunday 2024-06-02, 10:00 UTC.
	s.SetNow(func() time.Time {
		return time.Date(2024, time.June, 2, 10, 0, 0, 0, time.UTC)
	})
	return s, store, timer, presenter
}

func TestSchedule_ArmsNextTrigger(t *testing.T) {
	s, store, timer, _ := newScheduler(t)
	a := testAlarm(8, 30, time.Monday)

	require.NoError(t, s.Schedule(context.Background(), a))

	at, ok := timer.armedAt(a.ID)
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, time.June, 3, 8, 30, 0, 0, time.UTC), at)

	stored, err := store.Get(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.Title, stored.Title)
}

func TestSchedule_Idempotent(t *testing.T) {
	s, _, timer, _ := newScheduler(t)
	a := testAlarm(8, 30, time.Monday)

	require.NoError(t, s.Schedule(context.Background(), a))
	require.NoError(t, s.Schedule(context.Background(), a))

	assert.Equal(t, 1, timer.armedCount())
	assert.Equal(t, 2, timer.arms)
}

func TestSchedule_DisabledCancelsTimer(t *testing.T) {
	s, _, timer, _ := newScheduler(t)
	a := testAlarm(8, 30, time.Monday)

	require.NoError(t, s.Schedule(context.Background(), a))
	require.Equal(t, 1, timer.armedCount())

	a.Enabled = false
	require.NoError(t, s.Schedule(context.Background(), a))
	assert.Zero(t, timer.armedCount())
}

func TestSchedule_NoTimeNothingArmed(t *testing.T) {
	s, _, timer, _ := newScheduler(t)
	a := testAlarm(8, 30)
	a.Hour = nil
	a.Minute = nil

	require.NoError(t, s.Schedule(context.Background(), a))
	assert.Zero(t, timer.armedCount())
}

func TestSchedule_InvalidConfig(t *testing.T) {
	s, store, _, _ := newScheduler(t)
	a := testAlarm(8, 30)
	a.Minute = nil

	err := s.Schedule(context.Background(), a)
	require.ErrorIs(t, err, alarm.ErrInvalidConfig)

	// Invalid configs are rejected before persisting.
	_, err = store.Get(context.Background(), a.ID)
	require.ErrorIs(t, err, alarm.ErrNotFound)
}

func TestOnFired_RepeatingRearms(t *testing.T) {
	s, _, timer, presenter := newScheduler(t)
	a := testAlarm(8, 30, time.Sunday)

	require.NoError(t, s.Schedule(context.Background(), a))

	first, ok := timer.armedAt(a.ID)
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, time.June, 9, 8, 30, 0, 0, time.UTC), first)

	// The platform fires; now has advanced past the trigger.
	s.SetNow(func() time.Time {
		return time.Date(2024, time.June, 9, 8, 30, 0, 0, time.UTC)
	})
	timer.Cancel(a.ID)
	s.OnFired(context.Background(), a.ID)

	assert.Equal(t, 1, presenter.count())

	next, ok := timer.armedAt(a.ID)
	require.True(t, ok, "repeating alarm must re-arm after firing")
	assert.Equal(t, time.Date(2024, time.June, 16, 8, 30, 0, 0, time.UTC), next)
}

func TestOnFired_OneShotNotRearmed(t *testing.T) {
	s, _, timer, presenter := newScheduler(t)
	a := testAlarm(8, 30)

	require.NoError(t, s.Schedule(context.Background(), a))
	timer.Cancel(a.ID)

	s.OnFired(context.Background(), a.ID)

	assert.Equal(t, 1, presenter.count())
	assert.Zero(t, timer.armedCount())
}

func TestOnFired_DisabledAlarmIsNoop(t *testing.T) {
	s, store, timer, presenter := newScheduler(t)
	a := testAlarm(8, 30, time.Sunday)
	a.Enabled = false

	// Disabled between the timer firing and the callback taking the id lock.
	require.NoError(t, store.Upsert(context.Background(), a))

	s.OnFired(context.Background(), a.ID)

	assert.Zero(t, presenter.count(), "disabled alarm must not be presented")
	assert.Zero(t, timer.armedCount(), "disabled alarm must never be armed")
}

func TestUpdate_PreservesCreatedAt(t *testing.T) {
	s, store, timer, _ := newScheduler(t)
	a := testAlarm(8, 30, time.Monday)

	require.NoError(t, s.Schedule(context.Background(), a))
	created, err := store.Get(context.Background(), a.ID)
	require.NoError(t, err)

	edited := testAlarm(9, 15, time.Tuesday)
	edited.ID = a.ID
	require.NoError(t, s.Update(context.Background(), edited))

	stored, err := store.Get(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, created.CreatedAt, stored.CreatedAt)
	assert.Equal(t, intp(9), stored.Hour)

	at, ok := timer.armedAt(a.ID)
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, time.June, 4, 9, 15, 0, 0, time.UTC), at)
}

func TestUpdate_UnknownAlarm(t *testing.T) {
	s, _, timer, _ := newScheduler(t)
	a := testAlarm(8, 30, time.Monday)

	err := s.Update(context.Background(), a)
	require.ErrorIs(t, err, alarm.ErrNotFound)
	assert.Zero(t, timer.armedCount())
}

func TestUpdate_DisableCancelsTimer(t *testing.T) {
	s, _, timer, _ := newScheduler(t)
	a := testAlarm(8, 30, time.Monday)

	require.NoError(t, s.Schedule(context.Background(), a))
	require.Equal(t, 1, timer.armedCount())

	edited := testAlarm(8, 30, time.Monday)
	edited.ID = a.ID
	edited.Enabled = false
	require.NoError(t, s.Update(context.Background(), edited))
	assert.Zero(t, timer.armedCount())
}

func TestOnFired_DeletedAlarmIsNoop(t *testing.T) {
	s, _, timer, presenter := newScheduler(t)
	a := testAlarm(8, 30, time.Monday)

	require.NoError(t, s.Schedule(context.Background(), a))
	require.NoError(t, s.Remove(context.Background(), a.ID))

	s.OnFired(context.Background(), a.ID)

	assert.Zero(t, presenter.count())
	assert.Zero(t, timer.armedCount())
}

func TestRemove_CancelsTimer(t *testing.T) {
	s, store, timer, _ := newScheduler(t)
	a := testAlarm(8, 30, time.Monday)

	require.NoError(t, s.Schedule(context.Background(), a))
	require.NoError(t, s.Remove(context.Background(), a.ID))

	assert.Zero(t, timer.armedCount())
	_, err := store.Get(context.Background(), a.ID)
	require.ErrorIs(t, err, alarm.ErrNotFound)
}

func TestCancel_UnarmedIsNoop(t *testing.T) {
	s, _, timer, _ := newScheduler(t)

	s.Cancel(uuid.New())
	assert.Zero(t, timer.armedCount())
}

func TestRestoreAll_ArmsEnabledOnly(t *testing.T) {
	s, store, timer, _ := newScheduler(t)

	enabled := testAlarm(8, 30, time.Monday)
	disabled := testAlarm(9, 0, time.Tuesday)
	disabled.Enabled = false
	noTime := testAlarm(0, 0)
	noTime.Hour = nil
	noTime.Minute = nil

	for _, a := range []*alarm.Alarm{enabled, disabled, noTime} {
		require.NoError(t, store.Upsert(context.Background(), a))
	}

	require.NoError(t, s.RestoreAll(context.Background()))

	assert.Equal(t, 1, timer.armedCount())
	_, ok := timer.armedAt(enabled.ID)
	assert.True(t, ok)
}

func TestConcurrentScheduleAndFire(t *testing.T) {
	s, _, timer, _ := newScheduler(t)
	a := testAlarm(8, 30, time.Monday)
	require.NoError(t, s.Schedule(context.Background(), a))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Schedule(context.Background(), a)
			s.OnFired(context.Background(), a.ID)
		}()
	}
	wg.Wait()

	// Per-id serialization keeps exactly one pending timer.
	assert.Equal(t, 1, timer.armedCount())
}
