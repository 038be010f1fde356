package registrations

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/minds-hub/backend/internal/activities"
	"github.com/minds-hub/backend/internal/models"
)

// Attendee is one person booked onto an activity, as shown to staff.
type Attendee struct {
	RecordID  uuid.UUID     `json:"id"`
	UserID    uuid.UUID     `json:"user_id"`
	FullName  string        `json:"full_name"`
	Email     string        `json:"email"`
	Phone     string        `json:"phone,omitempty"`
	Status    models.Status `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
}

// Repository serves read-only registration and match listings. Writes go through booking.Service.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a registrations repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListByUser returns a participant's registrations with their activities, newest activity first.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID, status models.Status) ([]models.RegistrationWithActivity, error) {
	q := `SELECT r.id, r.user_id, r.activity_id, r.status, r.created_at, r.updated_at, ` + activities.Columns("a") + `
		FROM registrations r JOIN activities a ON a.id = r.activity_id
		WHERE r.user_id = $1 AND ($2::text = '' OR r.status = $2)
		ORDER BY a.date DESC, a.start_time DESC`
	rows, err := r.pool.Query(ctx, q, userID, string(status))
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	defer rows.Close()

	list := []models.RegistrationWithActivity{}
	for rows.Next() {
		var (
			item models.RegistrationWithActivity
			row  activities.Row
		)
		reg := &item.Registration
		dest := append([]any{&reg.ID, &reg.UserID, &reg.ActivityID, &reg.Status, &reg.CreatedAt, &reg.UpdatedAt}, row.Targets()...)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan registration: %w", err)
		}
		item.Activity = row.Activity()
		list = append(list, item)
	}
	return list, rows.Err()
}

// ListMatchesByVolunteer returns a volunteer's matches with their activities, newest activity first.
func (r *Repository) ListMatchesByVolunteer(ctx context.Context, volunteerID uuid.UUID, status models.Status) ([]models.VolunteerMatchWithActivity, error) {
	q := `SELECT vm.id, vm.volunteer_id, vm.activity_id, vm.status, vm.matched_at, vm.updated_at, ` + activities.Columns("a") + `
		FROM volunteer_matches vm JOIN activities a ON a.id = vm.activity_id
		WHERE vm.volunteer_id = $1 AND ($2::text = '' OR vm.status = $2)
		ORDER BY a.date DESC, a.start_time DESC`
	rows, err := r.pool.Query(ctx, q, volunteerID, string(status))
	if err != nil {
		return nil, fmt.Errorf("list matches: %w", err)
	}
	defer rows.Close()

	list := []models.VolunteerMatchWithActivity{}
	for rows.Next() {
		var (
			item models.VolunteerMatchWithActivity
			row  activities.Row
		)
		m := &item.VolunteerMatch
		dest := append([]any{&m.ID, &m.VolunteerID, &m.ActivityID, &m.Status, &m.MatchedAt, &m.UpdatedAt}, row.Targets()...)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		item.Activity = row.Activity()
		list = append(list, item)
	}
	return list, rows.Err()
}

// ListAttendees returns the participants (role participant) or volunteers (role volunteer)
// booked onto an activity.
func (r *Repository) ListAttendees(ctx context.Context, activityID uuid.UUID, role models.Role, status models.Status) ([]Attendee, error) {
	q := `SELECT r.id, u.id, u.full_name, u.email, COALESCE(u.phone, ''), r.status, r.created_at
		FROM registrations r JOIN users u ON u.id = r.user_id
		WHERE r.activity_id = $1 AND ($2::text = '' OR r.status = $2)
		ORDER BY r.created_at`
	if role == models.RoleVolunteer {
		q = `SELECT vm.id, u.id, u.full_name, u.email, COALESCE(u.phone, ''), vm.status, vm.matched_at
			FROM volunteer_matches vm JOIN users u ON u.id = vm.volunteer_id
			WHERE vm.activity_id = $1 AND ($2::text = '' OR vm.status = $2)
			ORDER BY vm.matched_at`
	}
	rows, err := r.pool.Query(ctx, q, activityID, string(status))
	if err != nil {
		return nil, fmt.Errorf("list attendees: %w", err)
	}
	defer rows.Close()

	list := []Attendee{}
	for rows.Next() {
		var a Attendee
		if err := rows.Scan(&a.RecordID, &a.UserID, &a.FullName, &a.Email, &a.Phone, &a.Status, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan attendee: %w", err)
		}
		list = append(list, a)
	}
	return list, rows.Err()
}
