// Package sqlite implements the alarm store on an embedded sqlite database
// for single-node deployments.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Raimguhinov/alarm-go/internal/alarm"
	"github.com/Raimguhinov/alarm-go/pkg/logger"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

type Repository struct {
	db     *sql.DB
	logger *logger.Logger
}

// New opens (or creates) the database file and bootstraps the schema.
// Use ":memory:" for an ephemeral store.
func New(ctx context.Context, path string, l *logger.Logger) (*Repository, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite - New - sql.Open: %w", err)
	}

	// modernc sqlite serializes writes itself; a single connection avoids
	// SQLITE_BUSY under concurrent upserts.
	db.SetMaxOpenConns(1)

	_, err = db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS alarms (
			id          TEXT PRIMARY KEY,
			title       TEXT NOT NULL DEFAULT '',
			message     TEXT NOT NULL DEFAULT '',
			fire_hour   INTEGER,
			fire_minute INTEGER,
			weekdays    INTEGER NOT NULL DEFAULT 0,
			enabled     INTEGER NOT NULL DEFAULT 1,
			created_at  TIMESTAMP NOT NULL,
			updated_at  TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite - New - create table: %w", err)
	}

	return &Repository{db: db, logger: l}, nil
}

func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*alarm.Alarm, error) {
	r.logger.Debug("sqlite.Get")

	row := r.db.QueryRowContext(ctx, `
		SELECT id, title, message, fire_hour, fire_minute, weekdays, enabled, created_at, updated_at
		FROM alarms
		WHERE id = ?
	`, id.String())

	a, err := scanAlarm(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, alarm.ErrNotFound
		}
		r.logger.Error("sqlite.Get", logger.Err(err))
		return nil, err
	}
	return a, nil
}

func (r *Repository) Upsert(ctx context.Context, a *alarm.Alarm) error {
	r.logger.Debug("sqlite.Upsert")

	now := time.Now().UTC()
	createdAt := a.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}

	var hour, minute any
	if a.Hour != nil {
		hour = *a.Hour
	}
	if a.Minute != nil {
		minute = *a.Minute
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO alarms
			(id, title, message, fire_hour, fire_minute, weekdays, enabled, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			title       = excluded.title,
			message     = excluded.message,
			fire_hour   = excluded.fire_hour,
			fire_minute = excluded.fire_minute,
			weekdays    = excluded.weekdays,
			enabled     = excluded.enabled,
			updated_at  = excluded.updated_at
	`, a.ID.String(), a.Title, a.Message, hour, minute,
		int64(a.Repeat.Bits()), a.Enabled, createdAt, now)
	if err != nil {
		r.logger.Error("sqlite.Upsert", logger.Err(err))
		return err
	}
	return nil
}

func (r *Repository) Remove(ctx context.Context, id uuid.UUID) error {
	r.logger.Debug("sqlite.Remove")

	if _, err := r.db.ExecContext(ctx, `DELETE FROM alarms WHERE id = ?`, id.String()); err != nil {
		r.logger.Error("sqlite.Remove", logger.Err(err))
		return err
	}
	return nil
}

func (r *Repository) GetAll(ctx context.Context) ([]alarm.Alarm, error) {
	r.logger.Debug("sqlite.GetAll")

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, title, message, fire_hour, fire_minute, weekdays, enabled, created_at, updated_at
		FROM alarms
		ORDER BY created_at
	`)
	if err != nil {
		r.logger.Error("sqlite.GetAll", logger.Err(err))
		return nil, err
	}
	defer rows.Close()

	var alarms []alarm.Alarm
	for rows.Next() {
		a, err := scanAlarm(rows.Scan)
		if err != nil {
			r.logger.Error("sqlite.GetAll", logger.Err(err))
			return nil, err
		}
		alarms = append(alarms, *a)
	}
	return alarms, rows.Err()
}

func (r *Repository) Close() {
	if err := r.db.Close(); err != nil {
		r.logger.Error("sqlite.Close", logger.Err(err))
	}
}

func scanAlarm(scan func(dest ...any) error) (*alarm.Alarm, error) {
	var (
		rawID                string
		a                    alarm.Alarm
		hour, minute         sql.NullInt64
		weekdays             int64
		createdAt, updatedAt time.Time
	)

	err := scan(&rawID, &a.Title, &a.Message, &hour, &minute, &weekdays, &a.Enabled, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	a.ID, err = uuid.Parse(rawID)
	if err != nil {
		return nil, fmt.Errorf("sqlite - scanAlarm - uuid.Parse: %w", err)
	}
	if hour.Valid {
		h := int(hour.Int64)
		a.Hour = &h
	}
	if minute.Valid {
		m := int(minute.Int64)
		a.Minute = &m
	}
	a.Repeat = alarm.MaskFromBits(uint32(weekdays))
	a.CreatedAt = createdAt
	a.UpdatedAt = updatedAt

	return &a, nil
}
