package registrations

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/minds-hub/backend/internal/activities"
	"github.com/minds-hub/backend/internal/booking"
	"github.com/minds-hub/backend/internal/models"
)

// Store is the Postgres implementation of booking.Store.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a booking store over pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// InTx runs fn in a read committed transaction. The transaction rolls back when fn fails or
// panics, or when ctx is cancelled before commit.
func (s *Store) InTx(ctx context.Context, fn func(tx booking.Tx) error) error {
	return inTx(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(&txStore{tx: tx})
	})
}

type beginner interface {
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
}

func inTx(ctx context.Context, db beginner, fn func(tx pgx.Tx) error) error {
	tx, err := db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	// No-op once committed.
	defer func() { _ = tx.Rollback(context.WithoutCancel(ctx)) }()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

type txStore struct {
	tx pgx.Tx
}

func (s *txStore) Person(ctx context.Context, id uuid.UUID) (*booking.Person, error) {
	const q = `SELECT id, role, COALESCE(membership_type, ''), wheelchair_required FROM users WHERE id = $1`
	var p booking.Person
	err := s.tx.QueryRow(ctx, q, id).Scan(&p.ID, &p.Role, &p.MembershipType, &p.WheelchairRequired)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *txStore) HasConfirmed(ctx context.Context, role models.Role, personID, activityID uuid.UUID) (bool, error) {
	q := `SELECT EXISTS (SELECT 1 FROM registrations WHERE user_id = $1 AND activity_id = $2 AND status = 'confirmed')`
	if role == models.RoleVolunteer {
		q = `SELECT EXISTS (SELECT 1 FROM volunteer_matches WHERE volunteer_id = $1 AND activity_id = $2 AND status = 'confirmed')`
	}
	var exists bool
	err := s.tx.QueryRow(ctx, q, personID, activityID).Scan(&exists)
	return exists, err
}

func (s *txStore) ConfirmedOn(ctx context.Context, personID uuid.UUID, date time.Time) ([]booking.Booked, error) {
	q := `SELECT 'participant', ` + activities.Columns("a") + `
		FROM registrations r JOIN activities a ON a.id = r.activity_id
		WHERE r.user_id = $1 AND r.status = 'confirmed' AND a.date = $2
		UNION ALL
		SELECT 'volunteer', ` + activities.Columns("a") + `
		FROM volunteer_matches vm JOIN activities a ON a.id = vm.activity_id
		WHERE vm.volunteer_id = $1 AND vm.status = 'confirmed' AND a.date = $2`
	rows, err := s.tx.Query(ctx, q, personID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []booking.Booked
	for rows.Next() {
		var (
			role models.Role
			row  activities.Row
		)
		if err := rows.Scan(append([]any{&role}, row.Targets()...)...); err != nil {
			return nil, err
		}
		out = append(out, booking.Booked{Role: role, Activity: row.Activity()})
	}
	return out, rows.Err()
}

func (s *txStore) CountConfirmedRegistrations(ctx context.Context, personID uuid.UUID, from, to time.Time) (int, error) {
	const q = `SELECT COUNT(*) FROM registrations r JOIN activities a ON a.id = r.activity_id
		WHERE r.user_id = $1 AND r.status = 'confirmed' AND a.date BETWEEN $2 AND $3`
	var n int
	err := s.tx.QueryRow(ctx, q, personID, from, to).Scan(&n)
	return n, err
}

func (s *txStore) Counter(ctx context.Context, activityID uuid.UUID) (*booking.Counter, error) {
	const q = `SELECT current_participants, max_capacity FROM activities WHERE id = $1 FOR UPDATE`
	var c booking.Counter
	err := s.tx.QueryRow(ctx, q, activityID).Scan(&c.Current, &c.Max)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *txStore) SetParticipants(ctx context.Context, activityID uuid.UUID, n int) error {
	_, err := s.tx.Exec(ctx, `UPDATE activities SET current_participants = $2, updated_at = NOW() WHERE id = $1`, activityID, n)
	return err
}

func (s *txStore) LockActivity(ctx context.Context, id uuid.UUID) (*models.Activity, error) {
	return activities.Scan(s.tx.QueryRow(ctx, `SELECT `+activities.Columns("")+` FROM activities WHERE id = $1 FOR UPDATE`, id))
}

const registrationColumns = `id, user_id, activity_id, status, created_at, updated_at`

func scanRegistration(row pgx.Row) (*models.Registration, error) {
	var r models.Registration
	err := row.Scan(&r.ID, &r.UserID, &r.ActivityID, &r.Status, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *txStore) GetRegistration(ctx context.Context, id uuid.UUID) (*models.Registration, error) {
	return scanRegistration(s.tx.QueryRow(ctx, `SELECT `+registrationColumns+` FROM registrations WHERE id = $1`, id))
}

func (s *txStore) InsertRegistration(ctx context.Context, userID, activityID uuid.UUID) (*models.Registration, error) {
	const q = `INSERT INTO registrations (user_id, activity_id, status) VALUES ($1, $2, 'confirmed') RETURNING ` + registrationColumns
	return scanRegistration(s.tx.QueryRow(ctx, q, userID, activityID))
}

func (s *txStore) CancelRegistration(ctx context.Context, id uuid.UUID) error {
	_, err := s.tx.Exec(ctx, `UPDATE registrations SET status = 'cancelled', updated_at = NOW() WHERE id = $1 AND status = 'confirmed'`, id)
	return err
}

const matchColumns = `id, volunteer_id, activity_id, status, matched_at, updated_at`

func scanMatch(row pgx.Row) (*models.VolunteerMatch, error) {
	var m models.VolunteerMatch
	err := row.Scan(&m.ID, &m.VolunteerID, &m.ActivityID, &m.Status, &m.MatchedAt, &m.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *txStore) GetMatch(ctx context.Context, id uuid.UUID) (*models.VolunteerMatch, error) {
	return scanMatch(s.tx.QueryRow(ctx, `SELECT `+matchColumns+` FROM volunteer_matches WHERE id = $1`, id))
}

func (s *txStore) InsertMatch(ctx context.Context, volunteerID, activityID uuid.UUID) (*models.VolunteerMatch, error) {
	const q = `INSERT INTO volunteer_matches (volunteer_id, activity_id, status) VALUES ($1, $2, 'confirmed') RETURNING ` + matchColumns
	return scanMatch(s.tx.QueryRow(ctx, q, volunteerID, activityID))
}

func (s *txStore) CancelMatch(ctx context.Context, id uuid.UUID) error {
	_, err := s.tx.Exec(ctx, `UPDATE volunteer_matches SET status = 'cancelled', updated_at = NOW() WHERE id = $1 AND status = 'confirmed'`, id)
	return err
}
