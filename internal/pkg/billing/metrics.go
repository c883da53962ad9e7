package billing

import "time"

// Outcome labels shared by metrics and logs.
const (
	OutcomeApplied   = "applied"
	OutcomeNoop      = "noop"
	OutcomeConflict  = "conflict"
	OutcomeNotFound  = "not_found"
	OutcomeError     = "error"
	OutcomeDuplicate = "duplicate"
	OutcomeRejected  = "rejected"
	OutcomeIgnored   = "ignored"
	OutcomeCreated   = "created"
	OutcomeSkipped   = "skipped"
)

// Metrics receives billing telemetry. Implementations must be safe for concurrent use.
type Metrics interface {
	OrderCreated(plan string)
	OrderTransition(to string, outcome string)
	Verification(valid bool)
	WebhookReceived(eventType string, outcome string)
	SubscriptionGrant(outcome string)
	GatewayCall(operation string, duration time.Duration, err error)
}

// NoopMetrics discards everything.
type NoopMetrics struct{}

func (NoopMetrics) OrderCreated(string) {}
func (NoopMetrics) OrderTransition(string, string) {}
func (NoopMetrics) Verification(bool) {}
func (NoopMetrics) WebhookReceived(string, string) {}
func (NoopMetrics) SubscriptionGrant(string) {}
func (NoopMetrics) GatewayCall(string, time.Duration, error) {}
