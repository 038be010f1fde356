package notifications

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/minds-hub/backend/internal/booking"
	"github.com/minds-hub/backend/internal/models"
	"github.com/minds-hub/backend/internal/observability"
	"github.com/minds-hub/backend/pkg/queue"
)

// ErrActivityNotFound is returned by Remind for an unknown activity.
var ErrActivityNotFound = errors.New("activity not found")

// Store persists notification rows.
type Store interface {
	Create(ctx context.Context, n *models.Notification) error
	Get(ctx context.Context, id uuid.UUID) (*models.Notification, error)
	MarkSent(ctx context.Context, id uuid.UUID, providerRef string) error
	MarkFailed(ctx context.Context, id uuid.UUID, reason string) error
	ConfirmedAttendees(ctx context.Context, activityID uuid.UUID) ([]uuid.UUID, error)
}

// UserLookup loads a user with contact details.
type UserLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// ActivityLookup loads an activity.
type ActivityLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Activity, error)
}

// Enqueuer hands a stored notification to the worker.
type Enqueuer interface {
	EnqueueNotification(ctx context.Context, payload queue.NotificationPayload) error
}

// Summary counts the outcome of a staff send.
type Summary struct {
	Queued  int `json:"queued"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
}

// Dispatcher turns lifecycle events and staff requests into notification rows and gets them
// delivered: through the worker queue when one is configured, otherwise inline.
type Dispatcher struct {
	store      Store
	users      UserLookup
	activities ActivityLookup
	queue      Enqueuer
	deliverer  *Deliverer
	logger     *zap.Logger
}

// NewDispatcher creates a dispatcher. Pass a nil q to deliver inline with sender.
func NewDispatcher(store Store, users UserLookup, activities ActivityLookup, q Enqueuer, sender Sender, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		store:      store,
		users:      users,
		activities: activities,
		queue:      q,
		deliverer:  NewDeliverer(store, sender, logger),
		logger:     logger,
	}
}

var _ booking.Notifier = (*Dispatcher)(nil)

// Notify implements booking.Notifier. Every failure is logged or recorded on the row.
func (d *Dispatcher) Notify(ctx context.Context, ev booking.Event) {
	log := d.logger.With(
		zap.String("kind", string(ev.Kind)),
		zap.String("user_id", ev.PersonID.String()),
		zap.String("activity_id", ev.ActivityID.String()),
	)
	u, err := d.users.GetByID(ctx, ev.PersonID)
	if err != nil || u == nil {
		log.Warn("notify: user unavailable", zap.Error(err))
		return
	}
	a, err := d.activities.GetByID(ctx, ev.ActivityID)
	if err != nil || a == nil {
		log.Warn("notify: activity unavailable", zap.Error(err))
		return
	}

	recipients := Recipients(u, ev.Kind)
	if len(recipients) == 0 {
		log.Debug("notify: no phone on file")
		return
	}
	for _, r := range recipients {
		activityID := a.ID
		n := &models.Notification{
			UserID:     u.ID,
			ActivityID: &activityID,
			Kind:       ev.Kind,
			Message:    Compose(ev.Kind, u, a, r.Caregiver),
			Channel:    r.Channel,
			Recipient:  r.To,
		}
		_ = d.submit(ctx, n)
	}
}

// SendManual sends a staff-written message to each user on channel. Users without a phone
// are skipped.
func (d *Dispatcher) SendManual(ctx context.Context, userIDs []uuid.UUID, channel models.Channel, message string) (Summary, error) {
	var sum Summary
	for _, id := range userIDs {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		u, err := d.users.GetByID(ctx, id)
		if err != nil {
			return sum, fmt.Errorf("load user: %w", err)
		}
		if u == nil || u.Phone == "" {
			sum.Skipped++
			continue
		}
		n := &models.Notification{
			UserID:    u.ID,
			Kind:      models.NotificationManual,
			Message:   message,
			Channel:   channel,
			Recipient: u.Phone,
		}
		if err := d.submit(ctx, n); err != nil {
			sum.Failed++
			continue
		}
		sum.Queued++
	}
	return sum, nil
}

// Remind sends a reminder to everyone confirmed on an activity.
func (d *Dispatcher) Remind(ctx context.Context, activityID uuid.UUID) (Summary, error) {
	var sum Summary
	a, err := d.activities.GetByID(ctx, activityID)
	if err != nil {
		return sum, fmt.Errorf("load activity: %w", err)
	}
	if a == nil {
		return sum, ErrActivityNotFound
	}
	ids, err := d.store.ConfirmedAttendees(ctx, activityID)
	if err != nil {
		return sum, err
	}
	for _, id := range ids {
		u, err := d.users.GetByID(ctx, id)
		if err != nil {
			return sum, fmt.Errorf("load user: %w", err)
		}
		if u == nil {
			sum.Skipped++
			continue
		}
		recipients := Recipients(u, models.NotificationReminder)
		if len(recipients) == 0 {
			sum.Skipped++
			continue
		}
		for _, r := range recipients {
			n := &models.Notification{
				UserID:     u.ID,
				ActivityID: &a.ID,
				Kind:       models.NotificationReminder,
				Message:    Compose(models.NotificationReminder, u, a, r.Caregiver),
				Channel:    r.Channel,
				Recipient:  r.To,
			}
			if err := d.submit(ctx, n); err != nil {
				sum.Failed++
				continue
			}
			sum.Queued++
		}
	}
	return sum, nil
}

// submit stores n as pending and enqueues or delivers it. A failure after the row exists
// marks the row failed.
func (d *Dispatcher) submit(ctx context.Context, n *models.Notification) error {
	if err := d.store.Create(ctx, n); err != nil {
		d.logger.Error("store notification failed", zap.String("user_id", n.UserID.String()), zap.Error(err))
		return err
	}
	var err error
	if d.queue != nil {
		err = d.queue.EnqueueNotification(ctx, queue.NotificationPayload{NotificationID: n.ID})
		if err != nil {
			observability.RecordDelivery(string(n.Channel), "enqueue_failed")
		}
	} else {
		err = d.deliverer.deliver(ctx, n)
	}
	if err != nil {
		d.deliverer.fail(ctx, n, err)
		return err
	}
	return nil
}
