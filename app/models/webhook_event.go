package models

import "time"

// WebhookEvent is the audit and idempotency ledger for inbound gateway webhooks.
// DedupKey is only set for verified deliveries so that a forged delivery cannot
// claim the event id of a genuine one.
type WebhookEvent struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	EventID         string     `gorm:"type:varchar(191);not null;index" json:"event_id"`
	DedupKey        *string    `gorm:"type:varchar(191);uniqueIndex:ux_webhook_events_dedup" json:"-"`
	EventType       string     `gorm:"type:varchar(100);not null;index" json:"event_type"`
	Payload         string     `gorm:"type:longtext;not null" json:"payload"`
	Signature       string     `gorm:"type:varchar(191)" json:"signature"`
	Verified        bool       `gorm:"default:false;index" json:"verified"`
	ProcessedAt     *time.Time `gorm:"type:timestamp;default:null" json:"processed_at,omitempty"`
	ProcessingError string     `gorm:"type:text" json:"processing_error"`
	CreatedAt       time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (WebhookEvent) TableName() string { return "webhook_events" }

func (e *WebhookEvent) IsProcessed() bool {
	return e.ProcessedAt != nil
}
