package billing

import (
	"context"

	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/PayFox/app/models"
)

// Archiver copies raw webhook deliveries to long-term storage.
type Archiver interface {
	ArchiveWebhook(ctx context.Context, event *models.WebhookEvent) error
}

// archive is best-effort: the ledger row is the record of truth.
func (s *Service) archive(ctx context.Context, event *models.WebhookEvent) {
	if s.archiver == nil || event == nil {
		return
	}
	if err := s.archiver.ArchiveWebhook(ctx, event); err != nil {
		log.Warnf("[Billing] archiving webhook %d (%s) failed: %v", event.ID, event.EventID, err)
	}
}
