package notify

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/Raimguhinov/alarm-go/internal/metrics"
	"github.com/Raimguhinov/alarm-go/pkg/logger"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

// FiredEvent is the payload published for every alarm fire.
type FiredEvent struct {
	ID      uuid.UUID `json:"id"`
	Title   string    `json:"title"`
	Message string    `json:"message"`
	FiredAt time.Time `json:"fired_at"`
}

// NATS publishes fired alarms to a subject so other services (bots, mobile
// push gateways) can react.
type NATS struct {
	conn    *nats.Conn
	subject string
	logger  *logger.Logger
	metrics *metrics.Recorder
}

func NewNATS(url, subject string, l *logger.Logger, rec *metrics.Recorder) (*NATS, error) {
	conn, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("notify - NewNATS - nats.Connect: %w", err)
	}

	return &NATS{
		conn:    conn,
		subject: subject,
		logger:  l,
		metrics: rec,
	}, nil
}

func (p *NATS) Show(id uuid.UUID, title, message string) {
	payload, err := json.Marshal(FiredEvent{
		ID:      id,
		Title:   title,
		Message: message,
		FiredAt: time.Now().UTC(),
	})
	if err != nil {
		p.logger.Error("notify.NATS marshal", logger.Err(err))
		p.metrics.IncNotification("nats", err)
		return
	}

	if err := p.conn.Publish(p.subject, payload); err != nil {
		p.logger.Error("notify.NATS publish", logger.Err(err))
		p.metrics.IncNotification("nats", err)
		return
	}
	p.metrics.IncNotification("nats", nil)
}

func (p *NATS) Close() {
	p.conn.Close()
}
