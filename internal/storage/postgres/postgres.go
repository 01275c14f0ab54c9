// Package postgres implements the alarm store on a pgx pool.
package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/Raimguhinov/alarm-go/internal/alarm"
	"github.com/Raimguhinov/alarm-go/pkg/logger"
	"github.com/Raimguhinov/alarm-go/pkg/postgres"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type Repository struct {
	client *postgres.Postgres
	logger *logger.Logger
}

// New bootstraps the schema and returns the store.
func New(ctx context.Context, client *postgres.Postgres, l *logger.Logger) (*Repository, error) {
	r := &Repository{
		client: client,
		logger: l,
	}

	_, err := client.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS alarms (
			id          uuid PRIMARY KEY,
			title       text NOT NULL DEFAULT '',
			message     text NOT NULL DEFAULT '',
			fire_hour   smallint,
			fire_minute smallint,
			weekdays    integer NOT NULL DEFAULT 0,
			enabled     boolean NOT NULL DEFAULT true,
			created_at  timestamp NOT NULL,
			updated_at  timestamp NOT NULL
		)
	`)
	if err != nil {
		err = client.ToPgErr(err)
		l.Error("postgres.New", logger.Err(err))
		return nil, err
	}
	return r, nil
}

func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*alarm.Alarm, error) {
	r.logger.Debug("postgres.Get")

	var row alarmRow

	err := r.client.Pool.QueryRow(ctx, `
		SELECT
			id, title, message, fire_hour, fire_minute, weekdays, enabled, created_at, updated_at
		FROM
			alarms
		WHERE
			id = $1
	`, id).Scan(
		&row.ID, &row.Title, &row.Message, &row.FireHour, &row.FireMin,
		&row.Weekdays, &row.Enabled, &row.CreatedAt, &row.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, alarm.ErrNotFound
		}
		err = r.client.ToPgErr(err)
		r.logger.Error("postgres.Get", logger.Err(err))
		return nil, err
	}

	return row.ToDomain(), nil
}

func (r *Repository) Upsert(ctx context.Context, a *alarm.Alarm) error {
	r.logger.Debug("postgres.Upsert")

	row := fromDomain(a, time.Now().UTC())

	_, err := r.client.Pool.Exec(ctx, `
		INSERT INTO alarms
			(id, title, message, fire_hour, fire_minute, weekdays, enabled, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			title       = EXCLUDED.title,
			message     = EXCLUDED.message,
			fire_hour   = EXCLUDED.fire_hour,
			fire_minute = EXCLUDED.fire_minute,
			weekdays    = EXCLUDED.weekdays,
			enabled     = EXCLUDED.enabled,
			updated_at  = EXCLUDED.updated_at
	`, row.ID, row.Title, row.Message, row.FireHour, row.FireMin,
		row.Weekdays, row.Enabled, row.CreatedAt, row.UpdatedAt)
	if err != nil {
		err = r.client.ToPgErr(err)
		r.logger.Error("postgres.Upsert", logger.Err(err))
		return err
	}
	return nil
}

func (r *Repository) Remove(ctx context.Context, id uuid.UUID) error {
	r.logger.Debug("postgres.Remove")

	_, err := r.client.Pool.Exec(ctx, `
		DELETE FROM alarms WHERE id = $1
	`, id)
	if err != nil {
		err = r.client.ToPgErr(err)
		r.logger.Error("postgres.Remove", logger.Err(err))
		return err
	}
	return nil
}

func (r *Repository) GetAll(ctx context.Context) ([]alarm.Alarm, error) {
	r.logger.Debug("postgres.GetAll")

	rows, err := r.client.Pool.Query(ctx, `
		SELECT
			id, title, message, fire_hour, fire_minute, weekdays, enabled, created_at, updated_at
		FROM
			alarms
		ORDER BY
			created_at
	`)
	if err != nil {
		err = r.client.ToPgErr(err)
		r.logger.Error("postgres.GetAll", logger.Err(err))
		return nil, err
	}
	defer rows.Close()

	var alarms []alarm.Alarm

	for rows.Next() {
		var row alarmRow
		err = rows.Scan(
			&row.ID, &row.Title, &row.Message, &row.FireHour, &row.FireMin,
			&row.Weekdays, &row.Enabled, &row.CreatedAt, &row.UpdatedAt,
		)
		if err != nil {
			err = r.client.ToPgErr(err)
			r.logger.Error("postgres.GetAll", logger.Err(err))
			return nil, err
		}
		alarms = append(alarms, *row.ToDomain())
	}
	return alarms, rows.Err()
}

func (r *Repository) Close() {
	r.client.Close()
}
