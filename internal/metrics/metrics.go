package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	Dismissals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobmanager_dismissals_total",
			Help: "Job card dismissals by source (manual, engine).",
		},
		[]string{"source"},
	)

	Hidden = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "jobmanager_hidden_total",
		Help: "Job cards hidden by the hide pass.",
	})

	StorageErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobmanager_storage_errors_total",
			Help: "Storage operations that failed and were skipped, by tier and operation.",
		},
		[]string{"tier", "op"},
	)

	Records = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "jobmanager_dismissal_records",
			Help: "Dismissal records currently persisted, by tier.",
		},
		[]string{"tier"},
	)

	Commands = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobmanager_commands_total",
			Help: "Commands handled by the engine, by action and status.",
		},
		[]string{"action", "status"},
	)

	registerOnce sync.Once
)

// Init registers every collector with the default registry.
// Must be called once at startup; the counters work unregistered in tests.
func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(Dismissals, Hidden, StorageErrors, Records, Commands)
	})
}
