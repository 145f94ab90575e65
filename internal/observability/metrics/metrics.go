package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "nfe_"

	resultSuccess = "success"
	resultError   = "error"
)

var (
	registerOnce sync.Once

	soapRequests *prometheus.CounterVec
	soapLatency  *prometheus.HistogramVec

	emissionTotal   *prometheus.CounterVec
	emissionLatency *prometheus.HistogramVec

	validationFailures prometheus.Counter
	pollAttempts       prometheus.Histogram
)

// Init registra las métricas en el registry por defecto. Idempotente.
func Init() {
	registerOnce.Do(func() {
		soapRequests = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "soap_requests_total",
				Help: "Total SEFAZ SOAP calls by operation and result",
			},
			[]string{"operation", "result"},
		)
		soapLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "soap_latency_seconds",
				Help:    "SEFAZ SOAP call latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation", "result"},
		)

		emissionTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "emissions_total",
				Help: "Total NFe emissions by final status",
			},
			[]string{"status"},
		)
		emissionLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "emission_latency_seconds",
				Help:    "End-to-end emission latency in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"status"},
		)

		validationFailures = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "validation_failures_total",
				Help: "Total documents blocked by validation",
			},
		)
		pollAttempts = prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "poll_attempts",
				Help:    "Receipt queries needed until a final answer",
				Buckets: []float64{1, 2, 3, 5, 8, 13},
			},
		)

		prometheus.MustRegister(
			soapRequests,
			soapLatency,
			emissionTotal,
			emissionLatency,
			validationFailures,
			pollAttempts,
		)
	})
}

// ObserveSOAPCall registra una llamada SOAP (status, autorizacion, retorno).
func ObserveSOAPCall(operation string, err error, duration time.Duration) {
	if operation == "" {
		operation = "unknown"
	}
	result := resultSuccess
	if err != nil {
		result = resultError
	}
	if soapRequests != nil {
		soapRequests.WithLabelValues(operation, result).Inc()
	}
	if soapLatency != nil {
		soapLatency.WithLabelValues(operation, result).Observe(duration.Seconds())
	}
}

// ObserveEmission registra el estado final de una emisión y su duración.
func ObserveEmission(status string, duration time.Duration) {
	if status == "" {
		status = "unknown"
	}
	if emissionTotal != nil {
		emissionTotal.WithLabelValues(status).Inc()
	}
	if emissionLatency != nil {
		emissionLatency.WithLabelValues(status).Observe(duration.Seconds())
	}
}

// IncValidationFailure incrementa el contador de documentos rechazados por validación local.
func IncValidationFailure() {
	if validationFailures != nil {
		validationFailures.Inc()
	}
}

// ObservePollAttempts registra cuántas consultas de recibo hicieron falta.
func ObservePollAttempts(n int) {
	if n <= 0 {
		return
	}
	if pollAttempts != nil {
		pollAttempts.Observe(float64(n))
	}
}

// Exported constants for callers.
const (
	ResultSuccess = resultSuccess
	ResultError   = resultError
)
