package metrics

import "time"

// Sink defines the interface for recording metrics.
// All methods are fire-and-forget: implementations MUST NOT block or
// propagate errors.
type Sink interface {
	// Delivery pipeline metrics
	DeliveryProcessed(outcome string, duration time.Duration)
	VerificationFailure(reason string)
	LiveClassification(result string)

	// Subscription renewal metrics
	RenewalAttempt(status string)
	RenewalOutcome(outcome string)
}

// Outcome constants for DeliveryProcessed.
const (
	OutcomeDispatched     = "dispatched"
	OutcomeSkippedNotLive = "skipped_not_live"
	OutcomeSkippedDup     = "skipped_duplicate"
	OutcomeRejected       = "rejected"
	OutcomeError          = "error"
)

// Reason constants for VerificationFailure.
const (
	ReasonMissingSignature     = "missing_signature"
	ReasonUnsupportedAlgorithm = "unsupported_algorithm"
	ReasonSignatureMismatch    = "signature_mismatch"
)

// Result constants for LiveClassification.
const (
	ResultLive    = "live"
	ResultNotLive = "not_live"
	ResultError   = "error"
)

// Outcome constants for RenewalOutcome.
const (
	RenewalSuccess = "success"
	RenewalFailed  = "failed"
)
