package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ManuelReschke/PayFox/app/models"
)

// OrderStore persists payment orders and applies status transitions.
type OrderStore interface {
	CreateOrder(ctx context.Context, order *models.PaymentOrder) error
	GetOrder(ctx context.Context, gatewayOrderID string) (*models.PaymentOrder, error)
	FindOrderByPaymentID(ctx context.Context, paymentID string) (*models.PaymentOrder, error)
	// TransitionOrder moves an order to status `to` only if its current status is a
	// legal source for `to`, and returns the row as stored after the attempt.
	// changed is false when the row did not move.
	TransitionOrder(ctx context.Context, gatewayOrderID string, to models.OrderStatus, paymentID string) (order *models.PaymentOrder, changed bool, err error)
}

// SubscriptionStore persists subscriptions. CreateSubscription fails with
// ErrAlreadySubscribed when the storage layer rejects a second active row.
type SubscriptionStore interface {
	ListActiveByUserID(ctx context.Context, userID uint) ([]models.Subscription, error)
	ListActiveByEmail(ctx context.Context, email string) ([]models.Subscription, error)
	CreateSubscription(ctx context.Context, sub *models.Subscription) error
}

// WebhookLedger is the append-only log of inbound webhook deliveries.
type WebhookLedger interface {
	// RecordWebhookEvent inserts the event. For events with a dedup key an existing
	// row with the same key is returned instead and created is false.
	RecordWebhookEvent(ctx context.Context, event *models.WebhookEvent) (created bool, stored *models.WebhookEvent, err error)
	MarkWebhookProcessed(ctx context.Context, id uint, processingError string) error
}

// Repository provides DB operations used by the billing service.
type Repository interface {
	OrderStore
	SubscriptionStore
	WebhookLedger
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a billing repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) CreateOrder(ctx context.Context, order *models.PaymentOrder) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *gormRepository) GetOrder(ctx context.Context, gatewayOrderID string) (*models.PaymentOrder, error) {
	var order models.PaymentOrder
	err := r.db.WithContext(ctx).Where("gateway_order_id = ?", gatewayOrderID).First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return &order, nil
}

func (r *gormRepository) FindOrderByPaymentID(ctx context.Context, paymentID string) (*models.PaymentOrder, error) {
	var order models.PaymentOrder
	err := r.db.WithContext(ctx).Where("payment_id = ?", paymentID).First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return &order, nil
}

func (r *gormRepository) TransitionOrder(ctx context.Context, gatewayOrderID string, to models.OrderStatus, paymentID string) (*models.PaymentOrder, bool, error) {
	updates := map[string]interface{}{
		"status":     to,
		"updated_at": time.Now(),
	}
	if paymentID != "" {
		updates["payment_id"] = paymentID
	}

	tx := r.db.WithContext(ctx).
		Model(&models.PaymentOrder{}).
		Where("gateway_order_id = ? AND status IN ?", gatewayOrderID, models.TransitionSources(to)).
		Updates(updates)
	if tx.Error != nil {
		return nil, false, tx.Error
	}

	order, err := r.GetOrder(ctx, gatewayOrderID)
	if err != nil {
		return nil, false, err
	}
	return order, tx.RowsAffected > 0, nil
}

func (r *gormRepository) ListActiveByUserID(ctx context.Context, userID uint) ([]models.Subscription, error) {
	subs := []models.Subscription{}
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, models.SubscriptionStatusActive).
		Order("created_at asc").
		Find(&subs).Error
	return subs, err
}

func (r *gormRepository) ListActiveByEmail(ctx context.Context, email string) ([]models.Subscription, error) {
	subs := []models.Subscription{}
	err := r.db.WithContext(ctx).
		Where("email = ? AND status = ?", email, models.SubscriptionStatusActive).
		Order("created_at asc").
		Find(&subs).Error
	return subs, err
}

func (r *gormRepository) CreateSubscription(ctx context.Context, sub *models.Subscription) error {
	err := r.db.WithContext(ctx).Create(sub).Error
	if isDuplicateKey(err) {
		return fmt.Errorf("%w: %v", ErrAlreadySubscribed, err)
	}
	return err
}

func (r *gormRepository) RecordWebhookEvent(ctx context.Context, event *models.WebhookEvent) (bool, *models.WebhookEvent, error) {
	db := r.db.WithContext(ctx)
	if event.DedupKey == nil {
		if err := db.Create(event).Error; err != nil {
			return false, nil, err
		}
		return true, event, nil
	}

	tx := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "dedup_key"}},
		DoNothing: true,
	}).Create(event)
	if tx.Error != nil {
		return false, nil, tx.Error
	}
	if tx.RowsAffected > 0 {
		return true, event, nil
	}

	var stored models.WebhookEvent
	if err := db.Where("dedup_key = ?", *event.DedupKey).First(&stored).Error; err != nil {
		return false, nil, err
	}
	return false, &stored, nil
}

func (r *gormRepository) MarkWebhookProcessed(ctx context.Context, id uint, processingError string) error {
	now := time.Now()
	updates := map[string]interface{}{
		"processed_at":     &now,
		"processing_error": processingError,
	}
	return r.db.WithContext(ctx).Model(&models.WebhookEvent{}).Where("id = ?", id).Updates(updates).Error
}

// isDuplicateKey matches both gorm's translated error and the raw MySQL 1062.
func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var myErr *mysql.MySQLError
	return errors.As(err, &myErr) && myErr.Number == 1062
}
