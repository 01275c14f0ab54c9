// Package metrics exposes Prometheus instrumentation for the scheduler.
package metrics

import (
	prom "github.com/prometheus/client_golang/prometheus"
)

// Recorder holds the scheduler metrics. All methods are nil-safe so callers
// can run without instrumentation.
type Recorder struct {
	armed         prom.Gauge
	fired         *prom.CounterVec
	rearmed       prom.Counter
	notifications *prom.CounterVec
}

// New constructs and registers the metrics on reg.
func New(reg *prom.Registry) *Recorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	r := &Recorder{
		armed: prom.NewGauge(prom.GaugeOpts{
			Namespace: "alarmgo",
			Name:      "armed_timers",
			Help:      "Number of currently armed one-shot timers",
		}),
		fired: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "alarmgo",
			Name:      "fires_total",
			Help:      "Alarm fires by kind (one_shot or repeating)",
		}, []string{"kind"}),
		rearmed: prom.NewCounter(prom.CounterOpts{
			Namespace: "alarmgo",
			Name:      "rearms_total",
			Help:      "Automatic re-arms of repeating alarms after a fire",
		}),
		notifications: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "alarmgo",
			Name:      "notifications_total",
			Help:      "Notification deliveries by presenter and result",
		}, []string{"presenter", "result"}),
	}
	reg.MustRegister(r.armed, r.fired, r.rearmed, r.notifications)
	return r
}

func (r *Recorder) IncArmed() {
	if r == nil {
		return
	}
	r.armed.Inc()
}

func (r *Recorder) DecArmed() {
	if r == nil {
		return
	}
	r.armed.Dec()
}

func (r *Recorder) IncFired(repeating bool) {
	if r == nil {
		return
	}
	kind := "one_shot"
	if repeating {
		kind = "repeating"
	}
	r.fired.WithLabelValues(kind).Inc()
}

func (r *Recorder) IncRearmed() {
	if r == nil {
		return
	}
	r.rearmed.Inc()
}

func (r *Recorder) IncNotification(presenter string, err error) {
	if r == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.notifications.WithLabelValues(presenter, result).Inc()
}
