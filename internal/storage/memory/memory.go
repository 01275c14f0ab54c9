// Package memory implements an ephemeral alarm store for tests and local runs.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Raimguhinov/alarm-go/internal/alarm"
	"github.com/google/uuid"
)

type Repository struct {
	mu     sync.RWMutex
	alarms map[uuid.UUID]alarm.Alarm
}

func New() *Repository {
	return &Repository{alarms: make(map[uuid.UUID]alarm.Alarm)}
}

func (r *Repository) Get(_ context.Context, id uuid.UUID) (*alarm.Alarm, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.alarms[id]
	if !ok {
		return nil, alarm.ErrNotFound
	}
	cp := a
	cp.Repeat = append(alarm.RepeatMask(nil), a.Repeat...)
	return &cp, nil
}

func (r *Repository) Upsert(_ context.Context, a *alarm.Alarm) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *a
	cp.Repeat = append(alarm.RepeatMask(nil), a.Repeat...)
	now := time.Now().UTC()
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = now
	}
	cp.UpdatedAt = now
	r.alarms[a.ID] = cp
	return nil
}

func (r *Repository) Remove(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.alarms, id)
	return nil
}

func (r *Repository) GetAll(_ context.Context) ([]alarm.Alarm, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	alarms := make([]alarm.Alarm, 0, len(r.alarms))
	for _, a := range r.alarms {
		a.Repeat = append(alarm.RepeatMask(nil), a.Repeat...)
		alarms = append(alarms, a)
	}
	sort.Slice(alarms, func(i, j int) bool {
		return alarms[i].CreatedAt.Before(alarms[j].CreatedAt)
	})
	return alarms, nil
}

func (r *Repository) Close() {}
