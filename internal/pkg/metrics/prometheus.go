package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace is the metric prefix used by the application
const Namespace = "payfox"

// Billing implements billing.Metrics using Prometheus
type Billing struct {
	ordersCreatedTotal      *prometheus.CounterVec
	orderTransitionsTotal   *prometheus.CounterVec
	verificationsTotal      *prometheus.CounterVec
	webhookEventsTotal      *prometheus.CounterVec
	subscriptionGrantsTotal *prometheus.CounterVec
	gatewayCallsTotal       *prometheus.CounterVec
	gatewayCallDuration     *prometheus.HistogramVec
}

// NewBilling registers the billing collectors on reg
func NewBilling(reg prometheus.Registerer) *Billing {
	factory := promauto.With(reg)

	return &Billing{
		ordersCreatedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "billing",
			Name:      "orders_created_total",
			Help:      "Total number of gateway orders created.",
		}, []string{"plan"}),

		orderTransitionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "billing",
			Name:      "order_transitions_total",
			Help:      "Order status transition attempts by target status and outcome.",
		}, []string{"to", "outcome"}),

		verificationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "billing",
			Name:      "payment_verifications_total",
			Help:      "Checkout signature verifications by result.",
		}, []string{"valid"}),

		webhookEventsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "billing",
			Name:      "webhook_events_total",
			Help:      "Webhook deliveries by event type and outcome.",
		}, []string{"event_type", "outcome"}),

		subscriptionGrantsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "billing",
			Name:      "subscription_grants_total",
			Help:      "Subscription grant attempts by outcome.",
		}, []string{"outcome"}),

		gatewayCallsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "billing",
			Name:      "gateway_calls_total",
			Help:      "Calls to the payment gateway by operation and status.",
		}, []string{"operation", "status"}),

		gatewayCallDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "billing",
			Name:      "gateway_call_duration_seconds",
			Help:      "Duration of payment gateway calls in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
	}
}

func (m *Billing) OrderCreated(plan string) {
	m.ordersCreatedTotal.WithLabelValues(plan).Inc()
}

func (m *Billing) OrderTransition(to, outcome string) {
	m.orderTransitionsTotal.WithLabelValues(to, outcome).Inc()
}

func (m *Billing) Verification(valid bool) {
	label := "false"
	if valid {
		label = "true"
	}
	m.verificationsTotal.WithLabelValues(label).Inc()
}

func (m *Billing) WebhookReceived(eventType, outcome string) {
	m.webhookEventsTotal.WithLabelValues(eventType, outcome).Inc()
}

func (m *Billing) SubscriptionGrant(outcome string) {
	m.subscriptionGrantsTotal.WithLabelValues(outcome).Inc()
}

func (m *Billing) GatewayCall(operation string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.gatewayCallsTotal.WithLabelValues(operation, status).Inc()
	m.gatewayCallDuration.WithLabelValues(operation).Observe(duration.Seconds())
}
