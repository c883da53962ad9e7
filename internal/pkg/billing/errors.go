package billing

import "errors"

var (
	// ErrInvalidRequest is returned for malformed or missing input. No state changes.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrAlreadySubscribed is returned when the caller already holds an active subscription.
	ErrAlreadySubscribed = errors.New("already subscribed")
	// ErrGatewayUnavailable wraps failures of the remote payment gateway.
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
	// ErrStorageFailure wraps local persistence failures.
	ErrStorageFailure = errors.New("storage failure")
	// ErrSignatureInvalid is returned when a gateway signature does not verify.
	ErrSignatureInvalid = errors.New("invalid signature")
	// ErrPlanNotConfigured is returned when a plan has no gateway plan id configured.
	ErrPlanNotConfigured = errors.New("plan not configured")
	// ErrUnauthorized is returned when no caller identity can be established.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrOrderNotFound is returned by stores when no order matches.
	ErrOrderNotFound = errors.New("order not found")
)
