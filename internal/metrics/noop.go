package metrics

import "time"

// Noop is a Sink that discards all metrics. Used when no registry is wired
// and as a default in tests.
type Noop struct{}

func (Noop) DeliveryProcessed(string, time.Duration) {}
func (Noop) VerificationFailure(string)              {}
func (Noop) LiveClassification(string)               {}
func (Noop) RenewalAttempt(string)                   {}
func (Noop) RenewalOutcome(string)                   {}
