// Package metrics owns the service's Prometheus collectors. Components receive
// a *Collector instead of keeping counters of their own; a nil *Collector is a
// valid no-op.
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "useridentity"

// Result labels
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// Password change kinds
const (
	ChangeReset   = "reset"
	ChangeAdmin   = "admin"
	ChangeUpgrade = "upgrade"
)

type Collector struct {
	AuthAttempts    *prometheus.CounterVec
	PasswordChanges *prometheus.CounterVec
	IndexDrift      prometheus.Counter
	ReindexRuns     *prometheus.CounterVec
	Users           prometheus.Gauge
}

// NewCollector creates the collectors and registers them with reg
// (prometheus.DefaultRegisterer when nil).
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	c := &Collector{
		AuthAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_attempts_total",
			Help:      "Authentication attempts partitioned by result.",
		}, []string{"result"}),
		PasswordChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "password_changes_total",
			Help:      "Persisted password changes partitioned by kind.",
		}, []string{"kind"}),
		IndexDrift: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "index_drift_events_total",
			Help:      "Detected divergences between the credential store and the search index.",
		}),
		ReindexRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reindex_runs_total",
			Help:      "Completed reindex runs partitioned by result.",
		}, []string{"result"}),
		Users: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "users",
			Help:      "Users in the credential store as of the last reindex.",
		}),
	}

	for _, col := range []prometheus.Collector{c.AuthAttempts, c.PasswordChanges, c.IndexDrift, c.ReindexRuns, c.Users} {
		if err := reg.Register(col); err != nil {
			var already prometheus.AlreadyRegisteredError
			if errors.As(err, &already) {
				continue
			}
			return nil, err
		}
	}

	return c, nil
}

func result(ok bool) string {
	if ok {
		return ResultSuccess
	}
	return ResultFailure
}

func (c *Collector) AuthAttempt(ok bool) {
	if c == nil {
		return
	}
	c.AuthAttempts.WithLabelValues(result(ok)).Inc()
}

func (c *Collector) PasswordChanged(kind string) {
	if c == nil {
		return
	}
	c.PasswordChanges.WithLabelValues(kind).Inc()
}

func (c *Collector) DriftDetected() {
	if c == nil {
		return
	}
	c.IndexDrift.Inc()
}

func (c *Collector) ReindexFinished(ok bool, users int) {
	if c == nil {
		return
	}
	c.ReindexRuns.WithLabelValues(result(ok)).Inc()
	if ok {
		c.Users.Set(float64(users))
	}
}
