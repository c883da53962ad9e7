package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/PayFox/internal/pkg/billing"
)

var _ billing.Metrics = (*Billing)(nil)

func TestBillingCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewBilling(reg)

	m.OrderCreated("pro")
	m.OrderCreated("pro")
	m.OrderTransition("captured", billing.OutcomeApplied)
	m.OrderTransition("captured", billing.OutcomeConflict)
	m.Verification(true)
	m.Verification(false)
	m.WebhookReceived("payment.captured", billing.OutcomeDuplicate)
	m.SubscriptionGrant(billing.OutcomeCreated)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.ordersCreatedTotal.WithLabelValues("pro")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.orderTransitionsTotal.WithLabelValues("captured", "conflict")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.verificationsTotal.WithLabelValues("false")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.webhookEventsTotal.WithLabelValues("payment.captured", "duplicate")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.subscriptionGrantsTotal.WithLabelValues("created")))
}

func TestBillingGatewayCalls(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewBilling(reg)

	m.GatewayCall("create_order", 120*time.Millisecond, nil)
	m.GatewayCall("create_order", time.Second, errors.New("timeout"))

	assert.Equal(t, float64(1), testutil.ToFloat64(m.gatewayCallsTotal.WithLabelValues("create_order", "success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.gatewayCallsTotal.WithLabelValues("create_order", "error")))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "payfox_billing_gateway_call_duration_seconds")
}

func TestNewBillingTwiceOnSameRegistryPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewBilling(reg)
	assert.Panics(t, func() { NewBilling(reg) })
}
