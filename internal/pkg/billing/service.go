package billing

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ManuelReschke/PayFox/app/models"
	"github.com/ManuelReschke/PayFox/internal/pkg/pricing"
)

// Deps are the collaborators of the billing service. Repo and Gateway are required.
type Deps struct {
	Repo     Repository
	Gateway  Gateway
	Identity IdentityResolver
	Metrics  Metrics
	Locker   Locker
	Archiver Archiver
}

// Service is the reconciliation engine: it is the only writer that moves orders
// and subscriptions between states.
type Service struct {
	repo     Repository
	gateway  Gateway
	identity IdentityResolver
	metrics  Metrics
	locker   Locker
	archiver Archiver
	cfg      Config
	now      func() time.Time
}

// NewService creates a billing service from injected collaborators.
func NewService(deps Deps, cfg Config) *Service {
	if deps.Metrics == nil {
		deps.Metrics = NoopMetrics{}
	}
	if deps.Locker == nil {
		deps.Locker = noopLocker{}
	}
	if cfg.Currency == "" {
		cfg.Currency = pricing.DefaultCurrency
	}
	return &Service{
		repo:     deps.Repo,
		gateway:  deps.Gateway,
		identity: deps.Identity,
		metrics:  deps.Metrics,
		locker:   deps.Locker,
		archiver: deps.Archiver,
		cfg:      cfg,
		now:      time.Now,
	}
}

// NewServiceFromDB wires the GORM repository into a service.
func NewServiceFromDB(db *gorm.DB, deps Deps, cfg Config) *Service {
	deps.Repo = NewRepository(db)
	return NewService(deps, cfg)
}

// CreateOrder creates a gateway order for a plan (amount derived from the pricing
// table) or, on the legacy path, for an explicit amount in major units.
func (s *Service) CreateOrder(ctx context.Context, in CreateOrderInput) (*CreateOrderResult, error) {
	var (
		plan    pricing.Plan
		hasPlan bool
	)
	if planID := strings.TrimSpace(in.PlanID); planID != "" {
		p, ok := pricing.Lookup(planID)
		if !ok {
			return nil, fmt.Errorf("%w: unknown plan %q", ErrInvalidRequest, planID)
		}
		plan, hasPlan = p, true
	} else if in.Amount == nil || math.IsNaN(*in.Amount) || math.IsInf(*in.Amount, 0) || *in.Amount <= 0 {
		return nil, fmt.Errorf("%w: amount required", ErrInvalidRequest)
	}

	// Plan prices are quoted in the table's currency; only legacy orders pick one.
	currency := pricing.DefaultCurrency
	if !hasPlan {
		currency = strings.ToUpper(strings.TrimSpace(in.Currency))
		if currency == "" {
			currency = s.cfg.Currency
		}
	}
	receipt := strings.TrimSpace(in.Receipt)
	if receipt == "" {
		receipt = fmt.Sprintf("rcpt_%d", s.now().UnixMilli())
	}

	identity := s.resolveIdentity(ctx, in.Caller)
	if err := s.ensureNotSubscribed(ctx, identity); err != nil {
		return nil, err
	}

	var amount int64
	if hasPlan {
		amount = plan.AmountMinor()
	} else {
		amount = int64(math.Round(*in.Amount * 100))
		if amount <= 0 {
			return nil, fmt.Errorf("%w: amount too small", ErrInvalidRequest)
		}
	}

	start := time.Now()
	gwOrder, err := s.gateway.CreateOrder(ctx, OrderRequest{
		AmountMinor: amount,
		Currency:    currency,
		Receipt:     receipt,
		Notes:       notesFor(plan, identity),
	})
	s.metrics.GatewayCall("create_order", time.Since(start), err)
	if err != nil {
		return nil, gatewayError(err)
	}

	order := &models.PaymentOrder{
		GatewayOrderID: gwOrder.ID,
		Amount:         amount,
		Currency:       currency,
		Status:         models.OrderStatusPending,
		UserID:         identity.UserID,
		Email:          identity.Email,
		PlanID:         string(plan.ID),
		PlanName:       plan.Name,
		Receipt:        receipt,
	}
	res := &CreateOrderResult{GatewayOrder: gwOrder, Order: order}
	if err := s.repo.CreateOrder(ctx, order); err != nil {
		log.Warnf("[Billing] order %s created at gateway but not persisted: %v", gwOrder.ID, err)
		res.Order = nil
		res.Warning = WarningOrderNotPersisted
	}

	s.metrics.OrderCreated(planLabel(plan))
	log.Infof("[Billing] created order %s amount=%d %s plan=%s identity=%s", gwOrder.ID, amount, currency, planLabel(plan), identity.Key())
	return res, nil
}

// CreateSubscription starts a recurring gateway subscription for a configured plan.
func (s *Service) CreateSubscription(ctx context.Context, in CreateSubscriptionInput) (*GatewaySubscription, error) {
	plan, ok := pricing.Lookup(in.PlanID)
	if !ok {
		return nil, fmt.Errorf("%w: invalid plan", ErrInvalidRequest)
	}
	externalID := pricing.ExternalPlanID(plan.ID)
	if externalID == "" {
		return nil, fmt.Errorf("%w: set %s", ErrPlanNotConfigured, pricing.ExternalPlanEnvKey(plan.ID))
	}

	identity := s.resolveIdentity(ctx, in.Caller)
	if err := s.ensureNotSubscribed(ctx, identity); err != nil {
		return nil, err
	}

	start := time.Now()
	sub, err := s.gateway.CreateSubscription(ctx, SubscriptionRequest{
		PlanID:         externalID,
		CustomerNotify: 1,
		TotalCount:     12,
		Notes:          notesFor(plan, identity),
	})
	s.metrics.GatewayCall("create_subscription", time.Since(start), err)
	if err != nil {
		return nil, gatewayError(err)
	}
	log.Infof("[Billing] created gateway subscription %s plan=%s identity=%s", sub.ID, plan.ID, identity.Key())
	return sub, nil
}

// GetActiveSubscriptions lists the active subscriptions of an identity, by user id
// first and by email when that yields nothing.
func (s *Service) GetActiveSubscriptions(ctx context.Context, identity Identity) ([]models.Subscription, error) {
	identity.Email = models.NormalizeEmail(identity.Email)
	if identity.IsZero() {
		return nil, ErrUnauthorized
	}
	subs, err := s.findActive(ctx, identity)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}
	return subs, nil
}

func (s *Service) findActive(ctx context.Context, identity Identity) ([]models.Subscription, error) {
	if identity.UserID != 0 {
		subs, err := s.repo.ListActiveByUserID(ctx, identity.UserID)
		if err != nil {
			return nil, err
		}
		if len(subs) > 0 {
			return subs, nil
		}
	}
	if identity.Email != "" {
		subs, err := s.repo.ListActiveByEmail(ctx, identity.Email)
		if err != nil {
			return nil, err
		}
		if len(subs) > 0 {
			return subs, nil
		}
	}
	return []models.Subscription{}, nil
}

// ensureNotSubscribed is the best-effort pre-check run before spending gateway
// resources. Storage errors let the request through; capture time re-checks.
func (s *Service) ensureNotSubscribed(ctx context.Context, identity Identity) error {
	if identity.IsZero() {
		return nil
	}
	existing, err := s.findActive(ctx, identity)
	if err != nil {
		log.Warnf("[Billing] subscription pre-check failed for %s: %v", identity.Key(), err)
		return nil
	}
	if len(existing) > 0 {
		return fmt.Errorf("%w: %s", ErrAlreadySubscribed, identity.Key())
	}
	return nil
}

// applyTransition moves an order along the state machine. Illegal edges are
// logged conflicts, not errors.
func (s *Service) applyTransition(ctx context.Context, orderID string, to models.OrderStatus, paymentID string) (*models.PaymentOrder, error) {
	order, changed, err := s.repo.TransitionOrder(ctx, orderID, to, paymentID)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			s.metrics.OrderTransition(string(to), OutcomeNotFound)
			return nil, err
		}
		s.metrics.OrderTransition(string(to), OutcomeError)
		return nil, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}

	switch {
	case changed:
		s.metrics.OrderTransition(string(to), OutcomeApplied)
		log.Infof("[Billing] order %s -> %s", orderID, to)
	case order.Status == to:
		s.metrics.OrderTransition(string(to), OutcomeNoop)
	default:
		s.metrics.OrderTransition(string(to), OutcomeConflict)
		log.Warnf("[Billing] conflict: order %s is %s, ignoring transition to %s", orderID, order.Status, to)
	}
	return order, nil
}

type grantInput struct {
	Order     *models.PaymentOrder
	OrderID   string
	PaymentID string
	// Fallback is used when the order row is unknown or carries no identity.
	Fallback Identity
}

// grantSubscription creates the active subscription for a captured payment unless
// the identity already holds one. It returns a warning instead of an error: the
// payment itself has already succeeded.
func (s *Service) grantSubscription(ctx context.Context, in grantInput) (*models.Subscription, string) {
	identity := IdentityOf(in.Order)
	if identity.IsZero() {
		identity = in.Fallback
		identity.Email = models.NormalizeEmail(identity.Email)
	}
	if identity.IsZero() {
		s.metrics.SubscriptionGrant(OutcomeSkipped)
		log.Warnf("[Billing] order %s captured without a known owner, no subscription granted", in.OrderID)
		return nil, WarningNoOwner
	}

	unlock, err := s.locker.Lock(ctx, "billing:subscription:"+identity.Key())
	if err != nil {
		log.Warnf("[Billing] identity lock unavailable for %s, continuing without it: %v", identity.Key(), err)
	} else {
		defer unlock()
	}

	existing, err := s.findActive(ctx, identity)
	if err != nil {
		s.metrics.SubscriptionGrant(OutcomeError)
		log.Errorf("[Billing] subscription pre-check failed for %s: %v", identity.Key(), err)
		return nil, WarningSubscriptionNotCreated
	}
	for i := range existing {
		if existing[i].OrderID == in.OrderID {
			s.metrics.SubscriptionGrant(OutcomeNoop)
			return &existing[i], ""
		}
	}
	if len(existing) > 0 {
		s.metrics.SubscriptionGrant(OutcomeDuplicate)
		log.Warnf("[Billing] %s already has an active subscription, not granting another for order %s", identity.Key(), in.OrderID)
		return nil, WarningAlreadySubscribed
	}

	planID, planName := models.OneTimePlanID, models.OneTimePlanName
	if in.Order != nil && in.Order.PlanID != "" {
		planID, planName = in.Order.PlanID, in.Order.PlanName
	}
	key := identity.Key()
	sub := &models.Subscription{
		ID:        uuid.NewString(),
		UserID:    identity.UserID,
		Email:     identity.Email,
		PlanID:    planID,
		PlanName:  planName,
		OrderID:   in.OrderID,
		PaymentID: in.PaymentID,
		Status:    models.SubscriptionStatusActive,
		ActiveKey: &key,
		StartedAt: s.now(),
	}
	if err := s.repo.CreateSubscription(ctx, sub); err != nil {
		if errors.Is(err, ErrAlreadySubscribed) {
			s.metrics.SubscriptionGrant(OutcomeDuplicate)
			log.Warnf("[Billing] concurrent grant for %s rejected by storage", key)
			return nil, WarningAlreadySubscribed
		}
		s.metrics.SubscriptionGrant(OutcomeError)
		log.Errorf("[Billing] creating subscription for %s failed: %v", key, err)
		return nil, WarningSubscriptionNotCreated
	}

	s.metrics.SubscriptionGrant(OutcomeCreated)
	log.Infof("[Billing] subscription %s (%s) granted to %s for order %s", sub.ID, planID, key, in.OrderID)
	return sub, ""
}

func notesFor(plan pricing.Plan, identity Identity) map[string]string {
	userID := ""
	if identity.UserID != 0 {
		userID = strconv.FormatUint(uint64(identity.UserID), 10)
	}
	return map[string]string{
		"planId":    string(plan.ID),
		"planName":  plan.Name,
		"userEmail": identity.Email,
		"userId":    userID,
	}
}

func planLabel(plan pricing.Plan) string {
	if plan.ID == "" {
		return "custom"
	}
	return string(plan.ID)
}

func gatewayError(err error) error {
	if errors.Is(err, ErrGatewayUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
}
