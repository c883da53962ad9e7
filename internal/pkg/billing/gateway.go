package billing

import "context"

// Gateway is the remote payment provider. Implementations wrap every transport
// failure in ErrGatewayUnavailable and perform no business validation.
type Gateway interface {
	CreateOrder(ctx context.Context, req OrderRequest) (*GatewayOrder, error)
	CreateSubscription(ctx context.Context, req SubscriptionRequest) (*GatewaySubscription, error)
}

type OrderRequest struct {
	AmountMinor int64
	Currency    string
	Receipt     string
	Notes       map[string]string
}

// GatewayOrder is an order as created by the gateway. Raw keeps the full response
// so it can be handed back to the checkout client unchanged.
type GatewayOrder struct {
	ID       string
	Amount   int64
	Currency string
	Receipt  string
	Status   string
	Raw      map[string]interface{}
}

type SubscriptionRequest struct {
	PlanID         string
	CustomerNotify int
	TotalCount     int
	Notes          map[string]string
}

type GatewaySubscription struct {
	ID     string
	PlanID string
	Status string
	Raw    map[string]interface{}
}

// Body returns the gateway response as sent to clients.
func (o *GatewayOrder) Body() map[string]interface{} {
	if o.Raw != nil {
		return o.Raw
	}
	return map[string]interface{}{
		"id":       o.ID,
		"entity":   "order",
		"amount":   o.Amount,
		"currency": o.Currency,
		"receipt":  o.Receipt,
		"status":   o.Status,
	}
}

func (s *GatewaySubscription) Body() map[string]interface{} {
	if s.Raw != nil {
		return s.Raw
	}
	return map[string]interface{}{
		"id":      s.ID,
		"entity":  "subscription",
		"plan_id": s.PlanID,
		"status":  s.Status,
	}
}
