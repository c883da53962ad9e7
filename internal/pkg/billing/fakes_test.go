package billing

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ManuelReschke/PayFox/app/models"
)

// memRepo is an in-memory Repository that enforces the same uniqueness rules as
// the MySQL schema: one row per active key and one row per webhook dedup key.
type memRepo struct {
	mu       sync.Mutex
	orders   map[string]*models.PaymentOrder
	subs     []*models.Subscription
	events   []*models.WebhookEvent
	nextID   uint
	failSubs error
	failList error
	failTx   error
	failLog  error
}

func newMemRepo() *memRepo {
	return &memRepo{orders: map[string]*models.PaymentOrder{}}
}

func (r *memRepo) CreateOrder(_ context.Context, order *models.PaymentOrder) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.orders[order.GatewayOrderID]; ok {
		return fmt.Errorf("duplicate order %s", order.GatewayOrderID)
	}
	r.nextID++
	order.ID = r.nextID
	order.CreatedAt = time.Now()
	cp := *order
	r.orders[order.GatewayOrderID] = &cp
	return nil
}

func (r *memRepo) GetOrder(_ context.Context, id string) (*models.PaymentOrder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (r *memRepo) FindOrderByPaymentID(_ context.Context, paymentID string) (*models.PaymentOrder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.orders {
		if o.PaymentID == paymentID {
			cp := *o
			return &cp, nil
		}
	}
	return nil, ErrOrderNotFound
}

func (r *memRepo) TransitionOrder(_ context.Context, id string, to models.OrderStatus, paymentID string) (*models.PaymentOrder, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failTx != nil {
		return nil, false, r.failTx
	}
	o, ok := r.orders[id]
	if !ok {
		return nil, false, ErrOrderNotFound
	}
	changed := false
	if o.Status.CanTransitionTo(to) {
		o.Status = to
		if paymentID != "" {
			o.PaymentID = paymentID
		}
		changed = true
	}
	cp := *o
	return &cp, changed, nil
}

func (r *memRepo) ListActiveByUserID(_ context.Context, userID uint) ([]models.Subscription, error) {
	return r.listActive(func(s *models.Subscription) bool { return s.UserID == userID })
}

func (r *memRepo) ListActiveByEmail(_ context.Context, email string) ([]models.Subscription, error) {
	return r.listActive(func(s *models.Subscription) bool { return s.Email == email })
}

func (r *memRepo) listActive(match func(*models.Subscription) bool) ([]models.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failList != nil {
		return nil, r.failList
	}
	out := []models.Subscription{}
	for _, s := range r.subs {
		if s.Status == models.SubscriptionStatusActive && match(s) {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (r *memRepo) CreateSubscription(_ context.Context, sub *models.Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failSubs != nil {
		return r.failSubs
	}
	if sub.ActiveKey != nil {
		for _, s := range r.subs {
			if s.ActiveKey != nil && *s.ActiveKey == *sub.ActiveKey {
				return fmt.Errorf("%w: duplicate active key %s", ErrAlreadySubscribed, *sub.ActiveKey)
			}
		}
	}
	cp := *sub
	r.subs = append(r.subs, &cp)
	return nil
}

func (r *memRepo) RecordWebhookEvent(_ context.Context, event *models.WebhookEvent) (bool, *models.WebhookEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failLog != nil {
		return false, nil, r.failLog
	}
	if event.DedupKey != nil {
		for _, e := range r.events {
			if e.DedupKey != nil && *e.DedupKey == *event.DedupKey {
				cp := *e
				return false, &cp, nil
			}
		}
	}
	r.nextID++
	event.ID = r.nextID
	cp := *event
	r.events = append(r.events, &cp)
	return true, event, nil
}

func (r *memRepo) MarkWebhookProcessed(_ context.Context, id uint, processingError string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.events {
		if e.ID == id {
			now := time.Now()
			e.ProcessedAt = &now
			e.ProcessingError = processingError
			return nil
		}
	}
	return errors.New("webhook event not found")
}

func (r *memRepo) order(id string) models.PaymentOrder {
	r.mu.Lock()
	defer r.mu.Unlock()
	return *r.orders[id]
}

func (r *memRepo) putOrder(o models.PaymentOrder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders[o.GatewayOrderID] = &o
}

func (r *memRepo) activeFor(key string) []models.Subscription {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Subscription
	for _, s := range r.subs {
		if s.ActiveKey != nil && *s.ActiveKey == key {
			out = append(out, *s)
		}
	}
	return out
}

func (r *memRepo) subscriptionCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs)
}

func (r *memRepo) webhookEvents() []models.WebhookEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.WebhookEvent, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

type fakeGateway struct {
	mu        sync.Mutex
	orders    []OrderRequest
	subs      []SubscriptionRequest
	err       error
	nextOrder int
}

func (g *fakeGateway) CreateOrder(_ context.Context, req OrderRequest) (*GatewayOrder, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return nil, g.err
	}
	g.orders = append(g.orders, req)
	g.nextOrder++
	return &GatewayOrder{
		ID:       fmt.Sprintf("order_test%d", g.nextOrder),
		Amount:   req.AmountMinor,
		Currency: req.Currency,
		Receipt:  req.Receipt,
		Status:   "created",
	}, nil
}

func (g *fakeGateway) CreateSubscription(_ context.Context, req SubscriptionRequest) (*GatewaySubscription, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return nil, g.err
	}
	g.subs = append(g.subs, req)
	return &GatewaySubscription{ID: "sub_test1", PlanID: req.PlanID, Status: "created"}, nil
}

func (g *fakeGateway) orderCalls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.orders)
}

type fakeResolver struct {
	users map[string]uint
	err   error
}

func (f fakeResolver) LookupUserIDByEmail(_ context.Context, email string) (uint, error) {
	if f.err != nil {
		return 0, f.err
	}
	return f.users[email], nil
}

type fakeLocker struct {
	mu    sync.Mutex
	keys  []string
	err   error
	inner sync.Mutex
}

func (l *fakeLocker) Lock(_ context.Context, key string) (func(), error) {
	l.mu.Lock()
	l.keys = append(l.keys, key)
	err := l.err
	l.mu.Unlock()
	if err != nil {
		return nil, err
	}
	l.inner.Lock()
	return l.inner.Unlock, nil
}

type fakeArchiver struct {
	mu     sync.Mutex
	events []string
	err    error
}

func (a *fakeArchiver) ArchiveWebhook(_ context.Context, event *models.WebhookEvent) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, event.EventID)
	return a.err
}

// recordingMetrics keeps counts per "kind:label:outcome".
type recordingMetrics struct {
	mu     sync.Mutex
	counts map[string]int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{counts: map[string]int{}}
}

func (m *recordingMetrics) inc(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[key]++
}

func (m *recordingMetrics) get(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[key]
}

func (m *recordingMetrics) OrderCreated(plan string) { m.inc("order:" + plan) }
func (m *recordingMetrics) OrderTransition(to, outcome string) {
	m.inc("transition:" + to + ":" + outcome)
}
func (m *recordingMetrics) Verification(valid bool) { m.inc(fmt.Sprintf("verify:%t", valid)) }
func (m *recordingMetrics) WebhookReceived(eventType, outcome string) {
	m.inc("webhook:" + eventType + ":" + outcome)
}
func (m *recordingMetrics) SubscriptionGrant(outcome string) { m.inc("grant:" + outcome) }
func (m *recordingMetrics) GatewayCall(op string, _ time.Duration, err error) {
	m.inc(fmt.Sprintf("gateway:%s:%t", op, err == nil))
}

const (
	testKeySecret     = "key_secret_test"
	testWebhookSecret = "whsec_test"
)

type harness struct {
	svc      *Service
	repo     *memRepo
	gateway  *fakeGateway
	metrics  *recordingMetrics
	locker   *fakeLocker
	archiver *fakeArchiver
}

func newHarness(users map[string]uint) *harness {
	h := &harness{
		repo:     newMemRepo(),
		gateway:  &fakeGateway{},
		metrics:  newRecordingMetrics(),
		locker:   &fakeLocker{},
		archiver: &fakeArchiver{},
	}
	h.svc = NewService(Deps{
		Repo:     h.repo,
		Gateway:  h.gateway,
		Identity: fakeResolver{users: users},
		Metrics:  h.metrics,
		Locker:   h.locker,
		Archiver: h.archiver,
	}, Config{KeySecret: testKeySecret, WebhookSecret: testWebhookSecret, Currency: "INR"})
	h.svc.now = func() time.Time { return time.UnixMilli(1700000000000) }
	return h
}

func paymentSignature(orderID, paymentID string) string {
	return Sign(testKeySecret, PaymentMessage(orderID, paymentID))
}

func webhookBody(event, orderID, paymentID string) []byte {
	return []byte(fmt.Sprintf(`{"entity":"event","event":%q,"payload":{"payment":{"entity":{"id":%q,"order_id":%q,"status":"captured","notes":[]}}}}`, event, paymentID, orderID))
}
