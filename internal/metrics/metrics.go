package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Namespace for all eventboard metrics
const namespace = "eventboard"

// Registry is the Prometheus registry every eventboard metric is registered with.
var Registry = prometheus.NewRegistry()

// AppInfo exposes the running version as labels; the value is always 1.
var AppInfo = promauto.With(Registry).NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "app_info",
		Help:      "Application version information (always set to 1, version info in labels)",
	},
	[]string{"version", "environment"},
)

// Realtime notification metrics
var (
	// NotificationsTotal counts notifications published by kind
	NotificationsTotal = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Total number of change notifications published",
		},
		[]string{"kind"},
	)

	// NotificationsDropped counts frames not delivered because a listener's buffer was full
	NotificationsDropped = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_dropped_total",
			Help:      "Total number of notification frames dropped for slow listeners",
		},
	)

	// RealtimeListeners is the number of connected realtime listeners
	RealtimeListeners = promauto.With(Registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "realtime_listeners",
			Help:      "Number of connected realtime listeners",
		},
	)
)

// WriteConflicts counts conditional event writes that lost to a concurrent writer.
var WriteConflicts = promauto.With(Registry).NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "event_write_conflicts_total",
		Help:      "Total number of conditional event writes whose guard did not match",
	},
	[]string{"operation"},
)

var initOnce sync.Once

// Init registers the runtime collectors and records version information.
// Only the first call has an effect.
func Init(version, environment string) {
	initOnce.Do(func() {
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		AppInfo.WithLabelValues(version, environment).Set(1)
	})
}

// Handler serves the registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry})
}
