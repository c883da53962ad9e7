package checkout

import (
	"errors"
	"fmt"
)

var (
	// ErrPaymentFailed is the gateway reporting that the payment did not go through.
	ErrPaymentFailed = errors.New("payment failed")
	// ErrVerificationFailed means the payment went through at the gateway but the
	// server did not accept its signature.
	ErrVerificationFailed = errors.New("payment verification failed")
	// ErrAlreadySubscribed is returned when the server refuses a second subscription.
	ErrAlreadySubscribed = errors.New("already subscribed")
	// ErrAlreadyCompleted is returned when a checkout is completed twice.
	ErrAlreadyCompleted = errors.New("checkout already completed")
)

// APIError is a non-2xx answer from the PayFox API.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("payfox api: %d %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("payfox api: %d %s", e.StatusCode, e.Code)
}

// Is lets errors.Is match a 409 against ErrAlreadySubscribed.
func (e *APIError) Is(target error) bool {
	return target == ErrAlreadySubscribed && e.StatusCode == 409
}
