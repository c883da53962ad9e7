package checkout

import (
	"context"
	"errors"
	"fmt"
)

// Checkout is one pay-button press: an order on the server plus the completion
// the gateway widget's callbacks settle.
type Checkout struct {
	Order      *Order
	client     *Client
	completion *Completion
}

// Begin creates the order the checkout widget is opened with.
func (c *Client) Begin(ctx context.Context, req OrderRequest) (*Checkout, error) {
	order, err := c.CreateOrder(ctx, req)
	if err != nil {
		return nil, err
	}
	return &Checkout{Order: order, client: c, completion: NewCompletion()}, nil
}

// OnSuccess handles the widget's success callback: the result is verified on
// the server and the completion settles with the outcome. When the server could
// not be reached or answered with a 5xx, the error is returned and the checkout
// stays open so the same result can be submitted again.
func (co *Checkout) OnSuccess(ctx context.Context, res PaymentResult) error {
	select {
	case <-co.completion.Done():
		return ErrAlreadyCompleted
	default:
	}
	if res.OrderID == "" {
		res.OrderID = co.Order.ID
	}
	if res.OrderID != co.Order.ID {
		err := fmt.Errorf("%w: result for order %s, expected %s", ErrVerificationFailed, res.OrderID, co.Order.ID)
		co.completion.Reject(err)
		return err
	}

	v, err := co.client.Verify(ctx, res)
	if err != nil {
		if !rejectedByServer(err) {
			return err
		}
		if !errors.Is(err, ErrVerificationFailed) {
			err = fmt.Errorf("%w: %v", ErrVerificationFailed, err)
		}
		co.completion.Reject(err)
		return err
	}
	if !co.completion.Resolve(v) {
		return ErrAlreadyCompleted
	}
	return nil
}

// rejectedByServer reports whether the server gave a final answer on a result:
// an invalid signature or a 4xx. Transport errors and 5xx answers are retryable.
func rejectedByServer(err error) bool {
	if errors.Is(err, ErrVerificationFailed) {
		return true
	}
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode >= 400 && apiErr.StatusCode < 500
}

// OnFailure handles the widget's payment.failed callback.
func (co *Checkout) OnFailure(f PaymentFailure) error {
	err := f.err()
	if !co.completion.Reject(err) {
		return ErrAlreadyCompleted
	}
	return nil
}

// Wait blocks until the checkout settles.
func (co *Checkout) Wait(ctx context.Context) (*Verification, error) {
	return co.completion.Wait(ctx)
}

func (co *Checkout) Done() <-chan struct{} {
	return co.completion.Done()
}
