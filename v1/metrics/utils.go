package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Aleph-Alpha/avrokafka/v1/observability"
)

// ObserveOperation records one completed operation. It implements
// observability.Observer.
func (m *Metrics) ObserveOperation(op observability.OperationContext) {
	status := "success"
	if op.Error != nil {
		status = "error"
	}

	m.operationsTotal.WithLabelValues(op.Component, op.Operation, status).Inc()
	m.operationDuration.WithLabelValues(op.Component, op.Operation).Observe(op.Duration.Seconds())
	if op.Size > 0 {
		m.payloadBytes.WithLabelValues(op.Component, op.Operation).Observe(float64(op.Size))
	}

	if hit, ok := op.Metadata["cache_hit"].(bool); ok {
		result := "miss"
		if hit {
			result = "hit"
		}
		m.cacheLookups.WithLabelValues(op.Component, op.Operation, result).Inc()
	}
}

// CreateCounter creates a new CounterVec metric and registers it.
func (m *Metrics) CreateCounter(name, help string, labels []string) *prometheus.CounterVec {
	counter := createCounterVec(m.namespace, name, help, labels)
	m.registerer.MustRegister(counter)
	return counter
}

// CreateHistogram creates a new HistogramVec metric and registers it.
func (m *Metrics) CreateHistogram(name, help string, labels []string, buckets []float64) *prometheus.HistogramVec {
	hist := createHistogramVec(m.namespace, name, help, labels, buckets)
	m.registerer.MustRegister(hist)
	return hist
}

// CreateGauge creates a new GaugeVec metric and registers it.
func (m *Metrics) CreateGauge(name, help string, labels []string) *prometheus.GaugeVec {
	gauge := createGaugeVec(m.namespace, name, help, labels)
	m.registerer.MustRegister(gauge)
	return gauge
}

func createCounterVec(namespace, name, help string, labels []string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		},
		labels,
	)
}

func createHistogramVec(namespace, name, help string, labels []string, buckets []float64) *prometheus.HistogramVec {
	return prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
			Buckets:   buckets,
		},
		labels,
	)
}

func createGaugeVec(namespace, name, help string, labels []string) *prometheus.GaugeVec {
	return prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		},
		labels,
	)
}
