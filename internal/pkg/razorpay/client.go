package razorpay

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2/log"
	sdk "github.com/razorpay/razorpay-go"

	"github.com/ManuelReschke/PayFox/internal/pkg/billing"
)

// DefaultTimeout bounds a single gateway call
const DefaultTimeout = 15 * time.Second

// Client implements billing.Gateway on top of the Razorpay SDK
type Client struct {
	api     *sdk.Client
	timeout time.Duration
}

// NewClient creates a gateway client for the given API key pair
func NewClient(keyID, keySecret string) (*Client, error) {
	if keyID == "" || keySecret == "" {
		return nil, fmt.Errorf("razorpay key id and secret are required")
	}
	return &Client{
		api:     sdk.NewClient(keyID, keySecret),
		timeout: DefaultTimeout,
	}, nil
}

// CreateOrder creates a remote order for an already validated amount
func (c *Client) CreateOrder(ctx context.Context, req billing.OrderRequest) (*billing.GatewayOrder, error) {
	data := map[string]interface{}{
		"amount":   req.AmountMinor,
		"currency": req.Currency,
		"receipt":  req.Receipt,
	}
	if notes := notesPayload(req.Notes); notes != nil {
		data["notes"] = notes
	}

	body, err := c.call(ctx, func() (map[string]interface{}, error) {
		return c.api.Order.Create(data, nil)
	})
	if err != nil {
		log.Errorf("[Razorpay] order creation failed for receipt %s: %v", req.Receipt, err)
		return nil, fmt.Errorf("%w: create order: %v", billing.ErrGatewayUnavailable, err)
	}

	order, err := orderFromBody(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", billing.ErrGatewayUnavailable, err)
	}
	return order, nil
}

// CreateSubscription creates a recurring subscription for an external plan id
func (c *Client) CreateSubscription(ctx context.Context, req billing.SubscriptionRequest) (*billing.GatewaySubscription, error) {
	data := map[string]interface{}{
		"plan_id":         req.PlanID,
		"customer_notify": req.CustomerNotify,
		"total_count":     req.TotalCount,
	}
	if notes := notesPayload(req.Notes); notes != nil {
		data["notes"] = notes
	}

	body, err := c.call(ctx, func() (map[string]interface{}, error) {
		return c.api.Subscription.Create(data, nil)
	})
	if err != nil {
		log.Errorf("[Razorpay] subscription creation failed for plan %s: %v", req.PlanID, err)
		return nil, fmt.Errorf("%w: create subscription: %v", billing.ErrGatewayUnavailable, err)
	}

	sub, err := subscriptionFromBody(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", billing.ErrGatewayUnavailable, err)
	}
	return sub, nil
}

type callResult struct {
	body map[string]interface{}
	err  error
}

// call runs a blocking SDK request and gives up when ctx or the client timeout
// expires first. The SDK request itself keeps running in the background.
func (c *Client) call(ctx context.Context, fn func() (map[string]interface{}, error)) (map[string]interface{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	done := make(chan callResult, 1)
	go func() {
		body, err := fn()
		done <- callResult{body: body, err: err}
	}()

	select {
	case res := <-done:
		return res.body, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func notesPayload(notes map[string]string) map[string]interface{} {
	if len(notes) == 0 {
		return nil
	}
	out := make(map[string]interface{}, len(notes))
	for k, v := range notes {
		if v == "" {
			continue
		}
		out[k] = v
	}
	return out
}

func orderFromBody(body map[string]interface{}) (*billing.GatewayOrder, error) {
	id := stringField(body, "id")
	if id == "" {
		return nil, fmt.Errorf("order response without id")
	}
	return &billing.GatewayOrder{
		ID:       id,
		Amount:   int64Field(body, "amount"),
		Currency: stringField(body, "currency"),
		Receipt:  stringField(body, "receipt"),
		Status:   stringField(body, "status"),
		Raw:      body,
	}, nil
}

func subscriptionFromBody(body map[string]interface{}) (*billing.GatewaySubscription, error) {
	id := stringField(body, "id")
	if id == "" {
		return nil, fmt.Errorf("subscription response without id")
	}
	return &billing.GatewaySubscription{
		ID:     id,
		PlanID: stringField(body, "plan_id"),
		Status: stringField(body, "status"),
		Raw:    body,
	}, nil
}

func stringField(body map[string]interface{}, key string) string {
	switch v := body[key].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func int64Field(body map[string]interface{}, key string) int64 {
	switch v := body[key].(type) {
	case float64:
		return int64(v)
	case int:
		return int64(v)
	case int64:
		return v
	case json.Number:
		n, _ := v.Int64()
		return n
	case string:
		n, _ := strconv.ParseInt(v, 10, 64)
		return n
	default:
		return 0
	}
}
