package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/minds-hub/backend/internal/models"
	"github.com/minds-hub/backend/pkg/database"
)

// ErrEmailTaken is returned by Create when the email is already registered.
var ErrEmailTaken = errors.New("email already registered")

const userColumns = `id, email, password_hash, full_name, role, COALESCE(membership_type, ''),
	COALESCE(phone, ''), COALESCE(caregiver_phone, ''), preferred_language, wheelchair_required,
	created_at, updated_at`

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Email, &u.Password, &u.FullName, &u.Role, &u.MembershipType,
		&u.Phone, &u.CaregiverPhone, &u.PreferredLanguage, &u.WheelchairRequired,
		&u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Repository handles user persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an auth repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetByID returns a user by ID, or nil when none exists.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// GetByEmail returns a user by email, or nil when none exists.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email))
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

// List returns users, optionally only those with role, for staff screens.
func (r *Repository) List(ctx context.Context, role models.Role) ([]models.UserPublic, error) {
	q := `SELECT ` + userColumns + ` FROM users`
	var args []any
	if role != "" {
		q += ` WHERE role = $1`
		args = append(args, string(role))
	}
	rows, err := r.pool.Query(ctx, q+` ORDER BY full_name, email`, args...)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()
	list := []models.UserPublic{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		list = append(list, u.ToPublic())
	}
	return list, rows.Err()
}

// CreateUserParams holds the fields captured at sign-up.
type CreateUserParams struct {
	Email              string
	PasswordHash       string
	FullName           string
	Role               models.Role
	MembershipType     models.MembershipType
	Phone              string
	CaregiverPhone     string
	PreferredLanguage  string
	WheelchairRequired bool
}

// Create inserts a new user.
func (r *Repository) Create(ctx context.Context, p CreateUserParams) (*models.User, error) {
	const q = `INSERT INTO users (email, password_hash, full_name, role, membership_type, phone, caregiver_phone,
			preferred_language, wheelchair_required)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), NULLIF($7, ''), $8, $9)
		RETURNING ` + userColumns
	u, err := scanUser(r.pool.QueryRow(ctx, q, p.Email, p.PasswordHash, p.FullName, string(p.Role),
		string(p.MembershipType), p.Phone, p.CaregiverPhone, p.PreferredLanguage, p.WheelchairRequired))
	if database.IsUniqueViolation(err, "") {
		return nil, ErrEmailTaken
	}
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

// ProfileUpdate carries optional profile changes. Nil fields are left as they are.
type ProfileUpdate struct {
	FullName           *string
	MembershipType     *models.MembershipType
	Phone              *string
	CaregiverPhone     *string
	PreferredLanguage  *string
	WheelchairRequired *bool
}

// UpdateProfile applies p and returns the updated user, or nil when the user does not exist.
func (r *Repository) UpdateProfile(ctx context.Context, id uuid.UUID, p ProfileUpdate) (*models.User, error) {
	var membership *string
	if p.MembershipType != nil {
		m := string(*p.MembershipType)
		membership = &m
	}
	const q = `UPDATE users SET
			full_name = COALESCE($2, full_name),
			membership_type = CASE WHEN $3::text IS NULL THEN membership_type ELSE NULLIF($3, '') END,
			phone = CASE WHEN $4::text IS NULL THEN phone ELSE NULLIF($4, '') END,
			caregiver_phone = CASE WHEN $5::text IS NULL THEN caregiver_phone ELSE NULLIF($5, '') END,
			preferred_language = COALESCE($6, preferred_language),
			wheelchair_required = COALESCE($7, wheelchair_required),
			updated_at = NOW()
		WHERE id = $1
		RETURNING ` + userColumns
	u, err := scanUser(r.pool.QueryRow(ctx, q, id, p.FullName, membership, p.Phone, p.CaregiverPhone,
		p.PreferredLanguage, p.WheelchairRequired))
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return u, nil
}
