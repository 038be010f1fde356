package notifications

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/minds-hub/backend/internal/models"
	"github.com/minds-hub/backend/internal/observability"
)

// Deliverer sends stored notifications and records the outcome on their rows.
type Deliverer struct {
	store  Store
	sender Sender
	logger *zap.Logger
}

// NewDeliverer creates a deliverer.
func NewDeliverer(store Store, sender Sender, logger *zap.Logger) *Deliverer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Deliverer{store: store, sender: sender, logger: logger}
}

// Deliver sends notification id unless it was already sent. A send error is returned so the
// caller can retry; the row stays pending.
func (d *Deliverer) Deliver(ctx context.Context, id uuid.UUID) error {
	n, err := d.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if n == nil {
		d.logger.Warn("notification vanished before delivery", zap.String("notification_id", id.String()))
		return nil
	}
	if n.Status == models.NotificationStatusSent {
		return nil
	}
	return d.deliver(ctx, n)
}

func (d *Deliverer) deliver(ctx context.Context, n *models.Notification) error {
	ref, err := d.sender.Send(ctx, n.Channel, n.Recipient, n.Message)
	if err != nil {
		observability.RecordDelivery(string(n.Channel), models.NotificationStatusFailed)
		return fmt.Errorf("send %s: %w", n.Channel, err)
	}
	observability.RecordDelivery(string(n.Channel), models.NotificationStatusSent)
	if err := d.store.MarkSent(ctx, n.ID, ref); err != nil {
		// Sent already; retrying would message the person twice.
		d.logger.Error("mark sent failed", zap.String("notification_id", n.ID.String()), zap.Error(err))
		return nil
	}
	n.Status = models.NotificationStatusSent
	n.ProviderRef = ref
	return nil
}

// Fail marks notification id failed with cause.
func (d *Deliverer) Fail(ctx context.Context, id uuid.UUID, cause error) {
	d.fail(ctx, &models.Notification{ID: id}, cause)
}

func (d *Deliverer) fail(ctx context.Context, n *models.Notification, cause error) {
	d.logger.Warn("notification failed", zap.String("notification_id", n.ID.String()), zap.Error(cause))
	if err := d.store.MarkFailed(ctx, n.ID, cause.Error()); err != nil {
		d.logger.Error("mark failed failed", zap.String("notification_id", n.ID.String()), zap.Error(err))
		return
	}
	n.Status = models.NotificationStatusFailed
	n.ErrorMessage = cause.Error()
}
