// Package timer implements the one-shot timer port on in-process timers.
//
// The scheduler keys at most one pending timer per alarm id: arming an id that
// is already armed replaces the pending timer, cancelling an unarmed id is a
// no-op. Deployments that need to wake sleeping hosts should swap this for a
// platform timer service behind the same port.
package timer

import (
	"sync"
	"time"

	"github.com/Raimguhinov/alarm-go/internal/metrics"
	"github.com/Raimguhinov/alarm-go/pkg/logger"
	"github.com/google/uuid"
)

// Handler receives the fired alarm id.
type Handler func(id uuid.UUID)

type entry struct {
	timer *time.Timer
	gen   uint64
}

type Service struct {
	logger  *logger.Logger
	metrics *metrics.Recorder

	mu      sync.Mutex
	handler Handler
	timers  map[uuid.UUID]entry
	gen     uint64
	stopped bool
}

func New(l *logger.Logger, rec *metrics.Recorder) *Service {
	return &Service{
		logger:  l,
		metrics: rec,
		timers:  make(map[uuid.UUID]entry),
	}
}

// SetHandler installs the fire callback. Must be called before the first
// ArmOnce; kept separate from New because the scheduler and the timer service
// reference each other.
func (s *Service) SetHandler(h Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handler = h
}

// ArmOnce schedules a single fire at the given instant, replacing any pending
// timer for the same id.
func (s *Service) ArmOnce(id uuid.UUID, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return
	}
	if prev, ok := s.timers[id]; ok {
		prev.timer.Stop()
		s.metrics.DecArmed()
	}

	s.gen++
	gen := s.gen
	s.timers[id] = entry{
		timer: time.AfterFunc(time.Until(at), func() {
			s.fire(id, gen)
		}),
		gen: gen,
	}
	s.metrics.IncArmed()
	s.logger.Debug("timer armed", "id", id, "at", at)
}

// Cancel stops the pending timer for id, if any.
func (s *Service) Cancel(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.timers[id]; ok {
		prev.timer.Stop()
		delete(s.timers, id)
		s.metrics.DecArmed()
		s.logger.Debug("timer cancelled", "id", id)
	}
}

// Armed reports whether id currently has a pending timer.
func (s *Service) Armed(id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.timers[id]
	return ok
}

// Stop cancels every pending timer; the service accepts no further arms.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopped = true
	for id, e := range s.timers {
		e.timer.Stop()
		delete(s.timers, id)
		s.metrics.DecArmed()
	}
}

func (s *Service) fire(id uuid.UUID, gen uint64) {
	s.mu.Lock()
	// A timer that lost the race against Cancel or a replacing ArmOnce must
	// not deliver.
	e, ok := s.timers[id]
	if !ok || e.gen != gen {
		s.mu.Unlock()
		return
	}
	delete(s.timers, id)
	s.metrics.DecArmed()
	h := s.handler
	s.mu.Unlock()

	if h != nil {
		h(id)
	}
}
