// Package metrics defines the prometheus collectors updated by the engine.
//
// Collectors are always updated. They are exported to a registry only once
// Register has been called.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	namespace = "textserde"

	formatLabelName    = "format"
	directionLabelName = "direction"
	statusLabelName    = "status"

	DirectionSerialize   = "serialize"
	DirectionDeserialize = "deserialize"

	StatusSuccess = "success"
	StatusFailure = "failure"
)

var (
	// Payload sizes in bytes.
	sizeBuckets = prometheus.ExponentialBuckets(16, 4, 10)

	Operations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "number of serialization and deserialization calls",
		}, []string{formatLabelName, directionLabelName, statusLabelName})

	PayloadBytes = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "payload_bytes",
			Help:      "size of produced or consumed payloads",
			Buckets:   sizeBuckets,
		}, []string{formatLabelName, directionLabelName})

	ShapeBuilds = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "shape",
			Name:      "builds_total",
			Help:      "number of type shapes built",
		})

	CyclesBroken = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_broken_total",
			Help:      "number of cyclic references replaced by the circular marker",
		})

	MembersSkipped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "members_skipped_total",
			Help:      "number of members omitted because reading them panicked",
		})

	registerOnce sync.Once
)

// Register registers every collector with r. Only the first call has an effect.
func Register(r prometheus.Registerer) {
	registerOnce.Do(func() {
		r.MustRegister(Operations)
		r.MustRegister(PayloadBytes)
		r.MustRegister(ShapeBuilds)
		r.MustRegister(CyclesBroken)
		r.MustRegister(MembersSkipped)
	})
}

// ObserveOperation records the outcome of one top-level call.
func ObserveOperation(format string, direction string, size int, err error) {
	status := StatusSuccess
	if err != nil {
		status = StatusFailure
	}
	Operations.WithLabelValues(format, direction, status).Inc()
	if err == nil {
		PayloadBytes.WithLabelValues(format, direction).Observe(float64(size))
	}
}
