// Package notify implements the notification presenter port.
//
// Presenters are fire-and-forget: a failed delivery is logged and counted but
// never surfaces to the scheduler, so a lost notification cannot cost future
// firings.
package notify

import (
	"log/slog"

	"github.com/Raimguhinov/alarm-go/internal/metrics"
	"github.com/Raimguhinov/alarm-go/pkg/logger"
	"github.com/google/uuid"
)

// Presenter shows a user-visible alert for a fired alarm.
type Presenter interface {
	Show(id uuid.UUID, title, message string)
}

// Log writes fired alarms to the structured log.
type Log struct {
	logger  *logger.Logger
	metrics *metrics.Recorder
}

func NewLog(l *logger.Logger, rec *metrics.Recorder) *Log {
	return &Log{logger: l, metrics: rec}
}

func (p *Log) Show(id uuid.UUID, title, message string) {
	p.logger.Info("alarm fired",
		slog.String("id", id.String()),
		slog.String("title", title),
		slog.String("message", message),
	)
	p.metrics.IncNotification("log", nil)
}

// Fanout delivers to every presenter in order.
type Fanout []Presenter

func (f Fanout) Show(id uuid.UUID, title, message string) {
	for _, p := range f {
		p.Show(id, title, message)
	}
}
