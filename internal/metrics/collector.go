// Package metrics exposes operational counters for a recording session
// over a Prometheus endpoint.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	framesProducedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "capturectl_frames_produced_total",
			Help: "Frames captured by the producer.",
		})

	framesPersistedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "capturectl_frames_persisted_total",
			Help: "Frames persisted to storage, per sink worker.",
		},
		[]string{"worker"})

	sinkQueueDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "capturectl_sink_queue_depth",
			Help: "Frames waiting in a sink channel.",
		},
		[]string{"worker"})

	recordersActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "capturectl_recorders_active",
			Help: "Recorders currently running in the session.",
		})

	backpressureStops = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "capturectl_backpressure_stops_total",
			Help: "Sessions stopped early because a sink channel saturated.",
		})
)

func init() {
	prometheus.MustRegister(
		framesProducedTotal,
		framesPersistedTotal,
		sinkQueueDepth,
		recordersActive,
		backpressureStops,
	)
}

// FrameProduced counts one captured frame.
func FrameProduced() {
	framesProducedTotal.Inc()
}

// FramePersisted counts one frame persisted by the given sink worker.
func FramePersisted(workerID int) {
	framesPersistedTotal.WithLabelValues(strconv.Itoa(workerID)).Inc()
}

// SetSinkQueueDepth records the current depth of a sink channel.
func SetSinkQueueDepth(workerID, depth int) {
	sinkQueueDepth.WithLabelValues(strconv.Itoa(workerID)).Set(float64(depth))
}

// SetActiveRecorders records the size of the active recorder set.
func SetActiveRecorders(n int) {
	recordersActive.Set(float64(n))
}

// BackpressureStop counts one saturation-forced early stop.
func BackpressureStop() {
	backpressureStops.Inc()
}
