package lexicon

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("lexigraph.lexicon")

var (
	// rebuildTotal counts rebuild attempts by result: success, failure,
	// cancelled or busy.
	rebuildTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lexigraph_rebuild_total",
		Help: "Total graph rebuilds by result",
	}, []string{"result"})

	rebuildPhaseDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "lexigraph_rebuild_phase_duration_seconds",
		Help:    "Rebuild phase duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 16), // 1ms to ~33s
	}, []string{"phase"})

	graphNodes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "lexigraph_graph_nodes",
		Help: "Entries in the published graph",
	})

	graphEdges = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "lexigraph_graph_edges",
		Help: "Links in the published graph",
	})

	graphCycles = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "lexigraph_graph_cycles",
		Help: "Strongly connected components with more than one entry",
	})

	queryTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lexigraph_query_total",
		Help: "Total queries by operation and result",
	}, []string{"operation", "result"})
)
