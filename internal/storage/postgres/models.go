package postgres

import (
	"time"

	"github.com/Raimguhinov/alarm-go/internal/alarm"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type alarmRow struct {
	ID        uuid.UUID        `json:"id"`
	Title     pgtype.Text      `json:"title"`
	Message   pgtype.Text      `json:"message"`
	FireHour  pgtype.Int4      `json:"fireHour"`
	FireMin   pgtype.Int4      `json:"fireMinute"`
	Weekdays  pgtype.Int4      `json:"weekdays"`
	Enabled   pgtype.Bool      `json:"enabled"`
	CreatedAt pgtype.Timestamp `json:"createdAt"`
	UpdatedAt pgtype.Timestamp `json:"updatedAt"`
}

func (r *alarmRow) ToDomain() *alarm.Alarm {
	a := &alarm.Alarm{
		ID:        r.ID,
		Title:     r.Title.String,
		Message:   r.Message.String,
		Repeat:    alarm.MaskFromBits(uint32(r.Weekdays.Int32)),
		Enabled:   r.Enabled.Bool,
		CreatedAt: r.CreatedAt.Time,
		UpdatedAt: r.UpdatedAt.Time,
	}
	if r.FireHour.Valid {
		h := int(r.FireHour.Int32)
		a.Hour = &h
	}
	if r.FireMin.Valid {
		m := int(r.FireMin.Int32)
		a.Minute = &m
	}
	return a
}

func fromDomain(a *alarm.Alarm, now time.Time) *alarmRow {
	r := &alarmRow{
		ID:        a.ID,
		Title:     pgtype.Text{String: a.Title, Valid: true},
		Message:   pgtype.Text{String: a.Message, Valid: true},
		Weekdays:  pgtype.Int4{Int32: int32(a.Repeat.Bits()), Valid: true},
		Enabled:   pgtype.Bool{Bool: a.Enabled, Valid: true},
		CreatedAt: pgtype.Timestamp{Time: a.CreatedAt, Valid: true},
		UpdatedAt: pgtype.Timestamp{Time: now, Valid: true},
	}
	if a.CreatedAt.IsZero() {
		r.CreatedAt = pgtype.Timestamp{Time: now, Valid: true}
	}
	if a.Hour != nil {
		r.FireHour = pgtype.Int4{Int32: int32(*a.Hour), Valid: true}
	}
	if a.Minute != nil {
		r.FireMin = pgtype.Int4{Int32: int32(*a.Minute), Valid: true}
	}
	return r
}
