package hashcache

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	hits   prometheus.Counter
	misses prometheus.Counter
	errors prometheus.Counter
}

func newMetrics() *metrics {
	return &metrics{
		hits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "snapcheck",
			Subsystem: "hashcache",
			Name:      "hits_total",
			Help:      "Content hash lookups served from the cache.",
		}),
		misses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "snapcheck",
			Subsystem: "hashcache",
			Name:      "misses_total",
			Help:      "Content hash lookups that computed the hash.",
		}),
		errors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "snapcheck",
			Subsystem: "hashcache",
			Name:      "errors_total",
			Help:      "Content hash computations that failed.",
		}),
	}
}

func (m *metrics) register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{m.hits, m.misses, m.errors} {
		if err := reg.Register(c); err != nil {
			return fmt.Errorf("register hashcache metrics: %w", err)
		}
	}
	return nil
}

