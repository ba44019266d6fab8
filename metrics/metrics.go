package metrics

import (
	"github.com/tessellated-io/haqq-delegator/delegation"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "haqq_delegator"

// PipelineMetrics counts delegation attempts, partitioned by chain.
type PipelineMetrics struct {
	AttemptsTotal  *prometheus.CounterVec
	FailuresTotal  *prometheus.CounterVec
	StageDuration  *prometheus.HistogramVec
	SimulatedGas   *prometheus.HistogramVec
	FeeAmountTotal *prometheus.CounterVec
}

func NewPipelineMetrics(registerer prometheus.Registerer) *PipelineMetrics {
	factory := promauto.With(registerer)

	return &PipelineMetrics{
		AttemptsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "attempts_total",
			Help:      "Total finished delegation attempts by outcome",
		}, []string{"chain", "outcome"}),

		FailuresTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "failures_total",
			Help:      "Total failed delegation attempts by the stage they failed in",
		}, []string{"chain", "stage"}),

		StageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "stage_duration_seconds",
			Help:      "Time spent in each pipeline stage",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"chain", "stage"}),

		SimulatedGas: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "simulated_gas_used",
			Help:      "Gas used by delegation simulations",
			Buckets:   prometheus.ExponentialBuckets(50000, 2, 8),
		}, []string{"chain"}),

		FeeAmountTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "fees_paid_total",
			Help:      "Total fees of successfully broadcast delegations, in base units",
		}, []string{"chain", "denom"}),
	}
}

// Observer returns a pipeline observer that records stage timings and outcomes for the chain.
func (m *PipelineMetrics) Observer(chain string) delegation.Observer {
	return func(transition delegation.Transition) {
		if transition.From != delegation.StateIdle {
			m.StageDuration.WithLabelValues(chain, transition.From.String()).Observe(transition.Elapsed.Seconds())
		}

		switch transition.To {
		case delegation.StateSucceeded:
			m.AttemptsTotal.WithLabelValues(chain, "succeeded").Inc()
		case delegation.StateFailed:
			m.AttemptsTotal.WithLabelValues(chain, "failed").Inc()
			m.FailuresTotal.WithLabelValues(chain, transition.From.String()).Inc()
		}
	}
}

// ObserveAttempt records the gas and fee figures of a finished attempt.
func (m *PipelineMetrics) ObserveAttempt(chain string, attempt *delegation.Attempt) {
	if attempt.SimulationGasUsed > 0 {
		m.SimulatedGas.WithLabelValues(chain).Observe(float64(attempt.SimulationGasUsed))
	}

	if attempt.State != delegation.StateSucceeded {
		return
	}
	fee, err := parseAmount(attempt.Fee.Amount)
	if err == nil {
		m.FeeAmountTotal.WithLabelValues(chain, attempt.Fee.Denom).Add(fee)
	}
}
