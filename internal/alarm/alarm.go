// Package alarm holds the alarm domain model and the trigger-time computation.
package alarm

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrInvalidConfig is returned for alarms that violate the model
	// invariants: a repeat mask that is not exactly one entry per weekday,
	// or an hour given without a minute (and vice versa).
	ErrInvalidConfig = errors.New("invalid alarm config")

	// ErrNotFound is returned by stores for ids with no persisted alarm.
	ErrNotFound = errors.New("alarm not found")
)

// RepeatMask marks the weekdays an alarm recurs on, indexed Sunday=0..Saturday=6.
// An all-false mask means the alarm is one-shot.
type RepeatMask []bool

// DaysInWeek is the only valid RepeatMask length.
const DaysInWeek = 7

func (m RepeatMask) Validate() error {
	if len(m) != DaysInWeek {
		return fmt.Errorf("%w: repeat mask has %d entries, want %d", ErrInvalidConfig, len(m), DaysInWeek)
	}
	return nil
}

// HasActive reports whether at least one weekday is flagged, i.e. the alarm repeats.
func (m RepeatMask) HasActive() bool {
	for _, day := range m {
		if day {
			return true
		}
	}
	return false
}

// Bits packs the mask into an integer, bit i = weekday i. Storage backends
// persist the mask in this form.
func (m RepeatMask) Bits() uint32 {
	var bits uint32
	for i, day := range m {
		if day {
			bits |= 1 << i
		}
	}
	return bits
}

// MaskFromBits is the inverse of Bits.
func MaskFromBits(bits uint32) RepeatMask {
	m := make(RepeatMask, DaysInWeek)
	for i := range m {
		m[i] = bits&(1<<i) != 0
	}
	return m
}

// Alarm is the scheduling record the core operates on. Hour and Minute are
// optional: an alarm without both has no valid time and is never armed.
type Alarm struct {
	ID        uuid.UUID  `json:"id"`
	Title     string     `json:"title"`
	Message   string     `json:"message"`
	Hour      *int       `json:"hour,omitempty"`
	Minute    *int       `json:"minute,omitempty"`
	Repeat    RepeatMask `json:"repeat"`
	Enabled   bool       `json:"enabled"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func (a *Alarm) Validate() error {
	if err := a.Repeat.Validate(); err != nil {
		return err
	}
	if (a.Hour == nil) != (a.Minute == nil) {
		return fmt.Errorf("%w: hour and minute must be set together", ErrInvalidConfig)
	}
	if a.Hour != nil && (*a.Hour < 0 || *a.Hour > 23) {
		return fmt.Errorf("%w: hour %d out of range", ErrInvalidConfig, *a.Hour)
	}
	if a.Minute != nil && (*a.Minute < 0 || *a.Minute > 59) {
		return fmt.Errorf("%w: minute %d out of range", ErrInvalidConfig, *a.Minute)
	}
	return nil
}

// IsRepeating reports whether the alarm re-arms itself after firing.
func (a *Alarm) IsRepeating() bool {
	return a.Repeat.HasActive()
}

// Schedulable reports whether the alarm may be armed at all.
func (a *Alarm) Schedulable() bool {
	return a.Enabled && a.Hour != nil && a.Minute != nil
}
