// Package scheduler orchestrates arming, cancelling and re-arming of alarms
// against the timer, store and presenter ports.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Raimguhinov/alarm-go/internal/alarm"
	"github.com/Raimguhinov/alarm-go/internal/metrics"
	"github.com/Raimguhinov/alarm-go/pkg/logger"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Store is the persistence port the scheduler reads configs from.
type Store interface {
	Get(ctx context.Context, id uuid.UUID) (*alarm.Alarm, error)
	Upsert(ctx context.Context, a *alarm.Alarm) error
	Remove(ctx context.Context, id uuid.UUID) error
	GetAll(ctx context.Context) ([]alarm.Alarm, error)
}

// Timer is the one-shot timer port. ArmOnce replaces any pending timer for
// the same id; Cancel of an unarmed id is a no-op. Implementations are
// expected to wake the host from idle where the platform requires it.
type Timer interface {
	ArmOnce(id uuid.UUID, at time.Time)
	Cancel(id uuid.UUID)
}

// Presenter shows a user-visible alert for a fired alarm, fire-and-forget.
type Presenter interface {
	Show(id uuid.UUID, title, message string)
}

// Scheduler serializes all arm/cancel/fire traffic per alarm id, so a fire
// event racing a concurrent edit or delete of the same alarm cannot interleave.
type Scheduler struct {
	store     Store
	timer     Timer
	presenter Presenter
	logger    *logger.Logger
	metrics   *metrics.Recorder
	now       func() time.Time

	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func New(store Store, timer Timer, presenter Presenter, l *logger.Logger, rec *metrics.Recorder) *Scheduler {
	return &Scheduler{
		store:     store,
		timer:     timer,
		presenter: presenter,
		logger:    l,
		metrics:   rec,
		now:       time.Now,
		locks:     make(map[uuid.UUID]*sync.Mutex),
	}
}

// SetNow overrides the clock source, for tests.
func (s *Scheduler) SetNow(now func() time.Time) {
	s.now = now
}

// lock returns the per-id mutex, creating it on first use. Entries are kept
// for the alarm's lifetime; the map stays small (one entry per alarm ever
// scheduled in this process).
func (s *Scheduler) lock(id uuid.UUID) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	return l
}

// Schedule persists the alarm and arms its next trigger. A disabled alarm has
// its pending timer cancelled; an alarm with no upcoming trigger ends up
// unarmed, which is a valid terminal state. Calling Schedule twice for the
// same id replaces the pending timer, it never duplicates firings.
func (s *Scheduler) Schedule(ctx context.Context, a *alarm.Alarm) error {
	if err := a.Validate(); err != nil {
		return fmt.Errorf("scheduler - Schedule: %w", err)
	}

	l := s.lock(a.ID)
	l.Lock()
	defer l.Unlock()

	if err := s.store.Upsert(ctx, a); err != nil {
		return fmt.Errorf("scheduler - Schedule - store.Upsert: %w", err)
	}

	if !a.Enabled {
		s.timer.Cancel(a.ID)
		return nil
	}
	return s.arm(a)
}

// Update replaces the config of an existing alarm, keeping its creation time.
// The read of the previous record and the persist of the new one run under
// the same id lock, so two concurrent updates cannot interleave.
func (s *Scheduler) Update(ctx context.Context, a *alarm.Alarm) error {
	if err := a.Validate(); err != nil {
		return fmt.Errorf("scheduler - Update: %w", err)
	}

	l := s.lock(a.ID)
	l.Lock()
	defer l.Unlock()

	prev, err := s.store.Get(ctx, a.ID)
	if err != nil {
		return fmt.Errorf("scheduler - Update - store.Get: %w", err)
	}
	a.CreatedAt = prev.CreatedAt

	if err := s.store.Upsert(ctx, a); err != nil {
		return fmt.Errorf("scheduler - Update - store.Upsert: %w", err)
	}

	if !a.Enabled {
		s.timer.Cancel(a.ID)
		return nil
	}
	return s.arm(a)
}

// arm computes the next trigger and arms the timer. Callers hold the id lock.
func (s *Scheduler) arm(a *alarm.Alarm) error {
	at, ok, err := a.NextTrigger(s.now())
	if err != nil {
		return fmt.Errorf("scheduler - arm: %w", err)
	}
	if !ok {
		// Nothing to arm; drop a stale timer from a previous config.
		s.timer.Cancel(a.ID)
		s.logger.Debug("scheduler: no trigger", slog.String("id", a.ID.String()))
		return nil
	}

	s.timer.ArmOnce(a.ID, at)
	s.logger.Info("scheduler: armed",
		slog.String("id", a.ID.String()),
		slog.Time("at", at),
	)
	return nil
}

// Cancel drops the pending timer for id. Cancelling an unarmed id is a no-op.
func (s *Scheduler) Cancel(id uuid.UUID) {
	l := s.lock(id)
	l.Lock()
	defer l.Unlock()

	s.timer.Cancel(id)
}

// Remove deletes the alarm from the store and cancels its timer under the
// same id lock, so a concurrent fire sees either the full alarm or nothing.
func (s *Scheduler) Remove(ctx context.Context, id uuid.UUID) error {
	l := s.lock(id)
	l.Lock()
	defer l.Unlock()

	if err := s.store.Remove(ctx, id); err != nil {
		return fmt.Errorf("scheduler - Remove - store.Remove: %w", err)
	}
	s.timer.Cancel(id)
	return nil
}

// OnFired handles a timer delivery: rehydrate the config, present the
// notification once, then re-arm repeating alarms. An id whose config was
// deleted or disabled since arming is a no-op. One-shot alarms are not
// re-armed.
func (s *Scheduler) OnFired(ctx context.Context, id uuid.UUID) {
	l := s.lock(id)
	l.Lock()
	defer l.Unlock()

	a, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, alarm.ErrNotFound) {
			s.logger.Debug("scheduler: fired alarm no longer exists", slog.String("id", id.String()))
			return
		}
		s.logger.Error("scheduler.OnFired", logger.Err(err))
		return
	}

	if !a.Enabled {
		// The fire lost a race against a concurrent disable. The persisted
		// state wins: nothing is shown and nothing is re-armed.
		s.logger.Debug("scheduler: fired alarm is disabled", slog.String("id", id.String()))
		return
	}

	s.metrics.IncFired(a.IsRepeating())
	s.presenter.Show(a.ID, a.Title, a.Message)

	if !a.IsRepeating() {
		return
	}
	if err := s.arm(a); err != nil {
		s.logger.Error("scheduler.OnFired re-arm", logger.Err(err))
		return
	}
	s.metrics.IncRearmed()
}

// RestoreAll re-arms every enabled persisted alarm, used at boot.
func (s *Scheduler) RestoreAll(ctx context.Context) error {
	alarms, err := s.store.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("scheduler - RestoreAll - store.GetAll: %w", err)
	}

	g, _ := errgroup.WithContext(ctx)
	for i := range alarms {
		a := alarms[i]
		if !a.Enabled {
			continue
		}
		g.Go(func() error {
			l := s.lock(a.ID)
			l.Lock()
			defer l.Unlock()
			return s.arm(&a)
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("scheduler - RestoreAll: %w", err)
	}

	s.logger.Info("scheduler: restore complete", slog.Int("alarms", len(alarms)))
	return nil
}
