package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/PayFox/app/models"
)

// VerifyPayment authenticates a checkout result and, when valid, captures the
// order and grants the subscription. Local bookkeeping problems are reported as
// warnings; the signature alone decides Valid.
func (s *Service) VerifyPayment(ctx context.Context, in VerifyInput) (*VerifyResult, error) {
	orderID := strings.TrimSpace(in.OrderID)
	paymentID := strings.TrimSpace(in.PaymentID)
	signature := strings.TrimSpace(in.Signature)
	if orderID == "" || paymentID == "" || signature == "" {
		return nil, fmt.Errorf("%w: missing fields", ErrInvalidRequest)
	}

	valid := VerifyPayment(s.cfg.KeySecret, orderID, paymentID, signature)
	s.metrics.Verification(valid)
	if !valid {
		log.Warnf("[Billing] rejected payment signature for order %s payment %s", orderID, paymentID)
		return &VerifyResult{Valid: false}, nil
	}

	res := &VerifyResult{Valid: true}
	order, err := s.applyTransition(ctx, orderID, models.OrderStatusCaptured, paymentID)
	switch {
	case errors.Is(err, ErrOrderNotFound):
		log.Warnf("[Billing] verified payment %s for unknown order %s", paymentID, orderID)
		res.Warning = WarningOrderNotFound
	case err != nil:
		// The webhook for this capture will retry the bookkeeping.
		log.Errorf("[Billing] capturing order %s failed: %v", orderID, err)
		res.Warning = WarningDBUpdateFailed
		return res, nil
	default:
		res.Order = order
		res.DBUpdated = order.Status == models.OrderStatusCaptured
		if !res.DBUpdated {
			res.Warning = WarningOrderStateConflict
			return res, nil
		}
	}

	sub, warning := s.grantSubscription(ctx, grantInput{
		Order:     order,
		OrderID:   orderID,
		PaymentID: paymentID,
		Fallback:  Identity{UserID: in.Caller.SessionUserID, Email: in.Caller.SessionEmail},
	})
	res.Subscription = sub
	if res.Warning == "" {
		res.Warning = warning
	}
	return res, nil
}
