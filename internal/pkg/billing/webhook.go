package billing

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/PayFox/app/models"
)

// Gateway event types handled by the reconciliation engine.
const (
	EventPaymentCaptured = "payment.captured"
	EventPaymentFailed   = "payment.failed"
	EventOrderPaid       = "order.paid"
	EventRefundProcessed = "refund.processed"
)

const unknownEventType = "unknown"

type paymentEntity struct {
	ID      string `json:"id"`
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
	Email   string `json:"email"`
}

type orderEntity struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type refundEntity struct {
	ID        string `json:"id"`
	PaymentID string `json:"payment_id"`
}

// webhookEnvelope is the subset of the gateway webhook body the engine reads.
type webhookEnvelope struct {
	Event   string `json:"event"`
	Payload struct {
		Payment *struct {
			Entity paymentEntity `json:"entity"`
		} `json:"payment"`
		Order *struct {
			Entity orderEntity `json:"entity"`
		} `json:"order"`
		Refund *struct {
			Entity refundEntity `json:"entity"`
		} `json:"refund"`
	} `json:"payload"`
}

func (e *webhookEnvelope) payment() paymentEntity {
	if e.Payload.Payment == nil {
		return paymentEntity{}
	}
	return e.Payload.Payment.Entity
}

func (e *webhookEnvelope) order() orderEntity {
	if e.Payload.Order == nil {
		return orderEntity{}
	}
	return e.Payload.Order.Entity
}

func (e *webhookEnvelope) refund() refundEntity {
	if e.Payload.Refund == nil {
		return refundEntity{}
	}
	return e.Payload.Refund.Entity
}

func parseWebhook(body []byte) (*webhookEnvelope, error) {
	var env webhookEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, err
	}
	env.Event = strings.TrimSpace(env.Event)
	return &env, nil
}

// webhookEventID falls back to a payload hash when the gateway sent no delivery id.
func webhookEventID(headerID string, body []byte) string {
	if id := strings.TrimSpace(headerID); id != "" {
		return id
	}
	sum := sha256.Sum256(body)
	return "hash:" + hex.EncodeToString(sum[:])
}

// HandleWebhook authenticates, logs and dispatches one webhook delivery. Every
// delivery is written to the ledger before anything else happens. The returned
// result is always non-nil; the error classifies failures (ErrStorageFailure,
// ErrSignatureInvalid, ErrInvalidRequest or a handler error).
func (s *Service) HandleWebhook(ctx context.Context, in WebhookInput) (*WebhookResult, error) {
	verified := VerifyWebhook(s.cfg.WebhookSecret, in.Body, in.Signature)

	env, parseErr := parseWebhook(in.Body)
	eventType := unknownEventType
	if parseErr == nil && env.Event != "" {
		eventType = env.Event
	}

	res := &WebhookResult{
		EventID:  webhookEventID(in.EventID, in.Body),
		Event:    eventType,
		Verified: verified,
	}

	event := &models.WebhookEvent{
		EventID:   res.EventID,
		EventType: eventType,
		Payload:   string(in.Body),
		Signature: truncate(strings.TrimSpace(in.Signature), 191),
		Verified:  verified,
	}
	if verified {
		key := res.EventID
		event.DedupKey = &key
	}

	created, stored, err := s.repo.RecordWebhookEvent(ctx, event)
	if err != nil {
		s.metrics.WebhookReceived(eventType, OutcomeError)
		log.Errorf("[Billing] could not log webhook %s (%s): %v", res.EventID, eventType, err)
		res.Message = "webhook could not be recorded"
		return res, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}

	if !verified {
		s.archive(ctx, stored)
		s.markProcessed(ctx, stored.ID, ErrSignatureInvalid.Error())
		s.metrics.WebhookReceived(eventType, OutcomeRejected)
		log.Warnf("[Billing] webhook %s (%s) failed signature verification", res.EventID, eventType)
		res.Message = "bad signature"
		return res, ErrSignatureInvalid
	}
	if !created {
		s.metrics.WebhookReceived(eventType, OutcomeDuplicate)
		log.Infof("[Billing] duplicate webhook %s (%s) skipped", res.EventID, eventType)
		res.Duplicate = true
		res.Message = "already processed"
		return res, nil
	}
	s.archive(ctx, stored)

	if parseErr != nil {
		s.markProcessed(ctx, stored.ID, "invalid payload: "+parseErr.Error())
		s.metrics.WebhookReceived(eventType, OutcomeError)
		res.Message = "invalid payload"
		return res, fmt.Errorf("%w: %v", ErrInvalidRequest, parseErr)
	}

	msg, outcome, handleErr := s.dispatch(ctx, env)
	processingError := ""
	if handleErr != nil {
		processingError = handleErr.Error()
	}
	s.markProcessed(ctx, stored.ID, processingError)
	s.metrics.WebhookReceived(eventType, outcome)

	res.Message = msg
	if handleErr != nil {
		log.Errorf("[Billing] webhook %s (%s) handler failed: %v", res.EventID, eventType, handleErr)
		return res, handleErr
	}
	res.Processed = true
	return res, nil
}

func (s *Service) markProcessed(ctx context.Context, id uint, processingError string) {
	if err := s.repo.MarkWebhookProcessed(ctx, id, processingError); err != nil {
		log.Errorf("[Billing] marking webhook %d processed failed: %v", id, err)
	}
}

// dispatch runs the business transition for one verified event.
func (s *Service) dispatch(ctx context.Context, env *webhookEnvelope) (string, string, error) {
	switch env.Event {
	case EventPaymentCaptured:
		p := env.payment()
		return s.captureFromWebhook(ctx, p.OrderID, p.ID, p.Email)
	case EventOrderPaid:
		orderID := env.order().ID
		if orderID == "" {
			orderID = env.payment().OrderID
		}
		return s.captureFromWebhook(ctx, orderID, env.payment().ID, env.payment().Email)
	case EventPaymentFailed:
		p := env.payment()
		return s.transitionFromWebhook(ctx, p.OrderID, models.OrderStatusFailed, p.ID)
	case EventRefundProcessed:
		return s.refundFromWebhook(ctx, env)
	default:
		return "event ignored", OutcomeIgnored, nil
	}
}

// captureFromWebhook captures the order and grants its subscription. The payer
// email from the payload owns the grant when the order row has no owner.
func (s *Service) captureFromWebhook(ctx context.Context, orderID, paymentID, payerEmail string) (string, string, error) {
	if orderID == "" {
		return "no order reference in payload", OutcomeIgnored, nil
	}
	order, msg, outcome, err := s.webhookTransition(ctx, orderID, models.OrderStatusCaptured, paymentID)
	if order == nil || err != nil || order.Status != models.OrderStatusCaptured {
		return msg, outcome, err
	}

	if paymentID == "" {
		paymentID = order.PaymentID
	}
	in := grantInput{Order: order, OrderID: orderID, PaymentID: paymentID}
	if IdentityOf(order).IsZero() {
		in.Fallback = s.resolveIdentity(ctx, Caller{ClaimedEmail: payerEmail})
	}
	_, warning := s.grantSubscription(ctx, in)
	switch warning {
	case "":
	case WarningSubscriptionNotCreated:
		return msg + ", subscription not created", OutcomeError, fmt.Errorf("%w: subscription for order %s not created", ErrStorageFailure, orderID)
	default:
		msg += " (" + warning + ")"
	}
	return msg, outcome, nil
}

func (s *Service) transitionFromWebhook(ctx context.Context, orderID string, to models.OrderStatus, paymentID string) (string, string, error) {
	if orderID == "" {
		return "no order reference in payload", OutcomeIgnored, nil
	}
	_, msg, outcome, err := s.webhookTransition(ctx, orderID, to, paymentID)
	return msg, outcome, err
}

func (s *Service) refundFromWebhook(ctx context.Context, env *webhookEnvelope) (string, string, error) {
	orderID := env.payment().OrderID
	paymentID := env.refund().PaymentID
	if paymentID == "" {
		paymentID = env.payment().ID
	}
	if orderID == "" && paymentID != "" {
		order, err := s.repo.FindOrderByPaymentID(ctx, paymentID)
		switch {
		case errors.Is(err, ErrOrderNotFound):
			return "no matching order", OutcomeNotFound, nil
		case err != nil:
			return "order lookup failed", OutcomeError, fmt.Errorf("%w: %v", ErrStorageFailure, err)
		}
		orderID = order.GatewayOrderID
	}
	// The refund keeps the original payment id on the order.
	return s.transitionFromWebhook(ctx, orderID, models.OrderStatusRefunded, "")
}

func (s *Service) webhookTransition(ctx context.Context, orderID string, to models.OrderStatus, paymentID string) (*models.PaymentOrder, string, string, error) {
	order, err := s.applyTransition(ctx, orderID, to, paymentID)
	switch {
	case errors.Is(err, ErrOrderNotFound):
		return nil, "no matching order", OutcomeNotFound, nil
	case err != nil:
		return nil, "order update failed", OutcomeError, err
	case order.Status != to:
		return order, fmt.Sprintf("order is %s, transition to %s ignored", order.Status, to), OutcomeConflict, nil
	default:
		return order, "order " + string(to), OutcomeApplied, nil
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
