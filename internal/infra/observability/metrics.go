package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
	"github.com/shopspring/decimal"
)

// Metrics holds all Prometheus metrics for the credit line service.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	operations        *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	balance           prometheus.Gauge
	accruedInterest   prometheus.Gauge
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		operations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "creditline_operations_total",
				Help: "Ledger operations by kind and outcome.",
			},
			[]string{"operation", "outcome"},
		),
		operationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "creditline_operation_duration_seconds",
				Help:    "Duration of ledger operations.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		balance: factory.NewGauge(prometheus.GaugeOpts{
			Name: "creditline_outstanding_balance",
			Help: "Outstanding principal after the last operation.",
		}),
		accruedInterest: factory.NewGauge(prometheus.GaugeOpts{
			Name: "creditline_accrued_interest",
			Help: "Interest accrued but not yet posted after the last operation.",
		}),
	}
}

// RecordOperation counts an operation and observes its duration.
func (m *Metrics) RecordOperation(operation, outcome string, d time.Duration) {
	m.operations.WithLabelValues(operation, outcome).Inc()
	m.operationDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// SetAccountState publishes the balance and unposted interest.
func (m *Metrics) SetAccountState(balance, accrued decimal.Decimal) {
	m.balance.Set(balance.InexactFloat64())
	m.accruedInterest.Set(accrued.InexactFloat64())
}

// OperationCount returns the cumulative count for an operation/outcome pair.
func (m *Metrics) OperationCount(operation, outcome string) float64 {
	return counterValue(m.operations.WithLabelValues(operation, outcome))
}

// BalanceValue returns the last published outstanding balance.
func (m *Metrics) BalanceValue() float64 {
	out := &dto.Metric{}
	if err := m.balance.Write(out); err != nil || out.Gauge == nil {
		return 0
	}
	return out.Gauge.GetValue()
}

func counterValue(c prometheus.Counter) float64 {
	out := &dto.Metric{}
	if err := c.Write(out); err != nil {
		return 0
	}
	if out.Counter != nil && out.Counter.Value != nil {
		return *out.Counter.Value
	}
	return 0
}
