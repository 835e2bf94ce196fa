package driver

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	ticksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "sakamoto",
			Subsystem: "driver",
			Name:      "ticks_total",
			Help:      "Total number of completed tree-wide updates",
		},
	)

	phaseDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "sakamoto",
			Subsystem: "driver",
			Name:      "phase_duration_seconds",
			Help:      "Duration of tree-wide lifecycle phases in seconds",
			Buckets:   []float64{.0001, .0005, .001, .0025, .005, .01, .016, .033, .05, .1, .5, 1},
		},
		[]string{"phase"},
	)

	phaseErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sakamoto",
			Subsystem: "driver",
			Name:      "phase_errors_total",
			Help:      "Total number of hook failures per phase",
		},
		[]string{"phase"},
	)

	treeNodes = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "sakamoto",
			Subsystem: "driver",
			Name:      "tree_nodes",
			Help:      "Number of entities in the driven tree",
		},
	)

	reloadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sakamoto",
			Subsystem: "driver",
			Name:      "reloads_total",
			Help:      "Total number of applied tree reloads",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(ticksTotal, phaseDuration, phaseErrorsTotal, treeNodes, reloadsTotal)
}
