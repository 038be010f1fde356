package notifications

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/minds-hub/backend/internal/models"
)

const notificationColumns = `id, user_id, activity_id, kind, message, channel, recipient, status,
	COALESCE(provider_ref, ''), COALESCE(error_message, ''), sent_at, created_at`

func scanNotification(row pgx.Row) (*models.Notification, error) {
	var n models.Notification
	err := row.Scan(&n.ID, &n.UserID, &n.ActivityID, &n.Kind, &n.Message, &n.Channel, &n.Recipient, &n.Status,
		&n.ProviderRef, &n.ErrorMessage, &n.SentAt, &n.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// Repository handles notifications persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a notifications repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts n as pending and fills its ID and timestamps.
func (r *Repository) Create(ctx context.Context, n *models.Notification) error {
	const q = `INSERT INTO notifications (user_id, activity_id, kind, message, channel, recipient, status)
		VALUES ($1, $2, $3, $4, $5, $6, 'pending')
		RETURNING id, status, created_at`
	err := r.pool.QueryRow(ctx, q, n.UserID, n.ActivityID, string(n.Kind), n.Message, string(n.Channel), n.Recipient).
		Scan(&n.ID, &n.Status, &n.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

// Get returns a notification by ID, or nil when none exists.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*models.Notification, error) {
	n, err := scanNotification(r.pool.QueryRow(ctx, `SELECT `+notificationColumns+` FROM notifications WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("get notification: %w", err)
	}
	return n, nil
}

// MarkSent records a successful delivery.
func (r *Repository) MarkSent(ctx context.Context, id uuid.UUID, providerRef string) error {
	const q = `UPDATE notifications SET status = 'sent', provider_ref = NULLIF($2, ''), error_message = NULL, sent_at = NOW()
		WHERE id = $1`
	if _, err := r.pool.Exec(ctx, q, id, providerRef); err != nil {
		return fmt.Errorf("mark sent: %w", err)
	}
	return nil
}

// MarkFailed records a delivery failure. A sent notification is never downgraded.
func (r *Repository) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	const q = `UPDATE notifications SET status = 'failed', error_message = $2 WHERE id = $1 AND status <> 'sent'`
	if _, err := r.pool.Exec(ctx, q, id, reason); err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}
	return nil
}

// ListByUser returns a user's notifications, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.Notification, error) {
	q := `SELECT ` + notificationColumns + ` FROM notifications WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`
	rows, err := r.pool.Query(ctx, q, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()
	list := []models.Notification{}
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		list = append(list, *n)
	}
	return list, rows.Err()
}

// ConfirmedAttendees returns everyone with a confirmed registration or match for an activity.
func (r *Repository) ConfirmedAttendees(ctx context.Context, activityID uuid.UUID) ([]uuid.UUID, error) {
	const q = `SELECT user_id FROM registrations WHERE activity_id = $1 AND status = 'confirmed'
		UNION
		SELECT volunteer_id FROM volunteer_matches WHERE activity_id = $1 AND status = 'confirmed'`
	rows, err := r.pool.Query(ctx, q, activityID)
	if err != nil {
		return nil, fmt.Errorf("list attendees: %w", err)
	}
	defer rows.Close()
	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
