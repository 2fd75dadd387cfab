// Package metrics turns session activity events into Prometheus series.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/rl1809/stock-keeper/internal/core/domain"
)

const namespace = "stockkeeper"

type Recorder struct {
	sessionsActive prometheus.Gauge
	sessionsEnded  *prometheus.CounterVec
	recordsAdded   prometheus.Counter
	unitsAdded     prometheus.Counter
	recordsRemoved prometheus.Counter
	rejections     *prometheus.CounterVec
}

// NewRecorder creates the collectors and registers them with reg.
func NewRecorder(reg prometheus.Registerer) (*Recorder, error) {
	r := &Recorder{
		sessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Number of open inventory sessions.",
		}),
		sessionsEnded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_ended_total",
			Help:      "Sessions ended, by reason.",
		}, []string{"reason"}),
		recordsAdded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_added_total",
			Help:      "Inventory records added across all sessions.",
		}),
		unitsAdded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "units_added_total",
			Help:      "Sum of quantities of added records.",
		}),
		recordsRemoved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_removed_total",
			Help:      "Inventory records removed across all sessions.",
		}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rejections_total",
			Help:      "Rejected operations, by operation and error kind.",
		}, []string{"operation", "kind"}),
	}

	for _, c := range []prometheus.Collector{
		r.sessionsActive, r.sessionsEnded, r.recordsAdded,
		r.unitsAdded, r.recordsRemoved, r.rejections,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Recorder) Observe(ev domain.Event) {
	switch ev.Type {
	case domain.EventSessionOpened:
		r.sessionsActive.Inc()
	case domain.EventSessionClosed:
		r.sessionsActive.Dec()
		r.sessionsEnded.WithLabelValues("closed").Inc()
	case domain.EventSessionExpired:
		r.sessionsActive.Dec()
		r.sessionsEnded.WithLabelValues("expired").Inc()
	case domain.EventRecordAdded:
		r.recordsAdded.Inc()
		r.unitsAdded.Add(float64(ev.Quantity))
	case domain.EventRecordRemoved:
		r.recordsRemoved.Inc()
	case domain.EventAddRejected:
		r.rejections.WithLabelValues("add", string(ev.Kind)).Inc()
	case domain.EventRemoveRejected:
		r.rejections.WithLabelValues("remove", string(ev.Kind)).Inc()
	}
}
