package metrics

import (
	"log"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusSink implements Sink using the Prometheus client library.
// Registration errors are logged but never propagated; a metric that fails
// to register simply stops being exported.
type PrometheusSink struct {
	deliveriesTotal      *prometheus.CounterVec
	deliveryDuration     prometheus.Histogram
	verifyFailuresTotal  *prometheus.CounterVec
	classificationsTotal *prometheus.CounterVec
	renewalAttemptsTotal *prometheus.CounterVec
	renewalOutcomesTotal *prometheus.CounterVec
}

// NewPrometheusSink creates a Prometheus metrics sink registered on reg.
func NewPrometheusSink(reg prometheus.Registerer) *PrometheusSink {
	s := &PrometheusSink{
		deliveriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "livegate_deliveries_total",
			Help: "Total number of processed webhook deliveries by outcome.",
		}, []string{"outcome"}),
		deliveryDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "livegate_delivery_duration_seconds",
			Help:    "Duration of webhook delivery processing in seconds.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		verifyFailuresTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "livegate_verification_failures_total",
			Help: "Total number of HMAC verification failures by reason.",
		}, []string{"reason"}),
		classificationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "livegate_live_classifications_total",
			Help: "Total number of live-status classifications by result.",
		}, []string{"result"}),
		renewalAttemptsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "livegate_renewal_attempts_total",
			Help: "Total number of hub registration attempts by HTTP status class.",
		}, []string{"status"}),
		renewalOutcomesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "livegate_renewal_outcomes_total",
			Help: "Total number of final renewal run outcomes.",
		}, []string{"outcome"}),
	}

	s.register(reg, s.deliveriesTotal, "livegate_deliveries_total")
	s.register(reg, s.deliveryDuration, "livegate_delivery_duration_seconds")
	s.register(reg, s.verifyFailuresTotal, "livegate_verification_failures_total")
	s.register(reg, s.classificationsTotal, "livegate_live_classifications_total")
	s.register(reg, s.renewalAttemptsTotal, "livegate_renewal_attempts_total")
	s.register(reg, s.renewalOutcomesTotal, "livegate_renewal_outcomes_total")
	return s
}

func (s *PrometheusSink) register(reg prometheus.Registerer, c prometheus.Collector, name string) {
	if err := reg.Register(c); err != nil {
		log.Printf("WARN: failed to register metric %s: %v", name, err)
	}
}

func (s *PrometheusSink) DeliveryProcessed(outcome string, duration time.Duration) {
	s.deliveriesTotal.WithLabelValues(outcome).Inc()
	s.deliveryDuration.Observe(duration.Seconds())
}

func (s *PrometheusSink) VerificationFailure(reason string) {
	s.verifyFailuresTotal.WithLabelValues(reason).Inc()
}

func (s *PrometheusSink) LiveClassification(result string) {
	s.classificationsTotal.WithLabelValues(result).Inc()
}

func (s *PrometheusSink) RenewalAttempt(status string) {
	s.renewalAttemptsTotal.WithLabelValues(status).Inc()
}

func (s *PrometheusSink) RenewalOutcome(outcome string) {
	s.renewalOutcomesTotal.WithLabelValues(outcome).Inc()
}
