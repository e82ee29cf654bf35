// Package metrics holds the Prometheus collectors shared by the generation flows
// and the HTTP layer. Collectors register with the default registry on init.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "ayurahar"

// Outcome labels for GenerationRequests.
const (
	OutcomeOK                = "ok"
	OutcomeBackendError      = "backend_error"
	OutcomeContractViolation = "contract_violation"
	OutcomeInvalidInput      = "invalid_input"
	OutcomeEmpty             = "empty"
)

var (
	// GenerationRequests counts generation flows by task and outcome.
	GenerationRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "generation_requests_total",
		Help:      "Generation flows by task and outcome.",
	}, []string{"task", "outcome"})

	// GenerationDuration observes end-to-end generation latency per task.
	GenerationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "generation_duration_seconds",
		Help:      "End-to-end generation latency.",
		Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
	}, []string{"task"})

	// BackendAttempts counts individual Gemini API attempts, including retries.
	BackendAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "backend_attempts_total",
		Help:      "Gemini API attempts by task and result.",
	}, []string{"task", "result"})

	// NutritionLookups counts store lookups made while enriching a plan.
	NutritionLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "nutrition_lookups_total",
		Help:      "Food name lookups against the nutrition store by result.",
	}, []string{"result"})
)
