package checkout

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultTimeout = 20 * time.Second

// Client talks to the PayFox HTTP API on behalf of a checkout page or a test harness.
type Client struct {
	baseURL    string
	httpClient *http.Client
	header     http.Header
}

type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithSessionCookie sends the signed-in user's session cookie with every request.
func WithSessionCookie(value string) Option {
	return func(c *Client) { c.header.Set("Cookie", "session_id="+value) }
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
		header:     http.Header{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type OrderRequest struct {
	PlanID    string   `json:"planId,omitempty"`
	Amount    *float64 `json:"amount,omitempty"`
	Currency  string   `json:"currency,omitempty"`
	Receipt   string   `json:"receipt,omitempty"`
	UserEmail string   `json:"userEmail,omitempty"`
}

// Order is the gateway order handed to the checkout widget. Amount is in minor units.
type Order struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
	Warning  string `json:"warning,omitempty"`
}

// PaymentResult is what the checkout widget hands to its success handler.
type PaymentResult struct {
	OrderID   string `json:"razorpay_order_id"`
	PaymentID string `json:"razorpay_payment_id"`
	Signature string `json:"razorpay_signature"`
}

type Subscription struct {
	ID        string    `json:"id"`
	PlanID    string    `json:"plan_id"`
	PlanName  string    `json:"plan_name"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

type Verification struct {
	Valid        bool          `json:"valid"`
	DBUpdated    bool          `json:"dbUpdated"`
	Warning      string        `json:"warning,omitempty"`
	Subscription *Subscription `json:"subscription"`
}

// CreateOrder asks the server for a gateway order.
func (c *Client) CreateOrder(ctx context.Context, req OrderRequest) (*Order, error) {
	var out Order
	if err := c.do(ctx, http.MethodPost, "/api/razorpay/order", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Verify submits a checkout result for signature verification. An invalid
// signature is reported as ErrVerificationFailed.
func (c *Client) Verify(ctx context.Context, res PaymentResult) (*Verification, error) {
	var out Verification
	if err := c.do(ctx, http.MethodPost, "/api/razorpay/verify", res, &out); err != nil {
		return nil, err
	}
	if !out.Valid {
		return &out, ErrVerificationFailed
	}
	return &out, nil
}

// MySubscriptions lists the active subscriptions of the session user.
func (c *Client) MySubscriptions(ctx context.Context) ([]Subscription, error) {
	var out struct {
		Subscriptions []Subscription `json:"subscriptions"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/subscriptions/me", nil, &out); err != nil {
		return nil, err
	}
	return out.Subscriptions, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	for k, v := range c.header {
		req.Header[k] = v
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apiError(resp.StatusCode, raw)
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func apiError(status int, raw []byte) error {
	var body struct {
		Error  string `json:"error"`
		Reason string `json:"reason"`
		Hint   string `json:"hint"`
	}
	_ = json.Unmarshal(raw, &body)
	e := &APIError{StatusCode: status, Code: body.Error, Message: body.Hint}
	if e.Code == "" {
		e.Code = body.Reason
	}
	if e.Code == "" {
		e.Code = http.StatusText(status)
	}
	return e
}
