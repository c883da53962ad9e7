package checkout

import (
	"context"
	"fmt"
	"sync"
)

// Completion is the outcome of one checkout. It is settled exactly once, either
// with a verification or with an error; later attempts are ignored.
type Completion struct {
	once   sync.Once
	done   chan struct{}
	result *Verification
	err    error
}

func NewCompletion() *Completion {
	return &Completion{done: make(chan struct{})}
}

// Resolve settles the completion successfully. It reports whether this call won.
func (c *Completion) Resolve(v *Verification) bool {
	return c.settle(v, nil)
}

// Reject settles the completion with err. It reports whether this call won.
func (c *Completion) Reject(err error) bool {
	return c.settle(nil, err)
}

func (c *Completion) settle(v *Verification, err error) bool {
	won := false
	c.once.Do(func() {
		c.result, c.err = v, err
		won = true
		close(c.done)
	})
	return won
}

// Done is closed once the completion is settled.
func (c *Completion) Done() <-chan struct{} {
	return c.done
}

// Wait blocks until the completion is settled or ctx is done.
func (c *Completion) Wait(ctx context.Context) (*Verification, error) {
	select {
	case <-c.done:
		return c.result, c.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// PaymentFailure is what the gateway's checkout reports when a payment fails.
type PaymentFailure struct {
	Code        string `json:"code"`
	Description string `json:"description"`
	Reason      string `json:"reason"`
	OrderID     string `json:"order_id"`
	PaymentID   string `json:"payment_id"`
}

func (f PaymentFailure) err() error {
	msg := f.Description
	if msg == "" {
		msg = f.Reason
	}
	if msg == "" {
		msg = f.Code
	}
	if msg == "" {
		return ErrPaymentFailed
	}
	return fmt.Errorf("%w: %s", ErrPaymentFailed, msg)
}
