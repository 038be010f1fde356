// Package booking decides whether registrations and volunteer matches may be created or
// cancelled, and keeps activity participant counts consistent with confirmed registrations.
package booking

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/minds-hub/backend/internal/models"
)

// Booked is a confirmed registration or match together with its activity.
type Booked struct {
	Role     models.Role
	Activity models.Activity
}

// Person is the slice of a user the rules need.
type Person struct {
	ID                 uuid.UUID
	Role               models.Role
	MembershipType     models.MembershipType
	WheelchairRequired bool
}

// Reader is the read-only view used by the Validator.
type Reader interface {
	// Person returns nil when the user does not exist.
	Person(ctx context.Context, id uuid.UUID) (*Person, error)
	// HasConfirmed reports a confirmed record for (person, activity) in the table for role.
	HasConfirmed(ctx context.Context, role models.Role, personID, activityID uuid.UUID) (bool, error)
	// ConfirmedOn lists confirmed registrations and matches of person on date.
	ConfirmedOn(ctx context.Context, personID uuid.UUID, date time.Time) ([]Booked, error)
	// CountConfirmedRegistrations counts confirmed registrations with activity dates in [from, to].
	CountConfirmedRegistrations(ctx context.Context, personID uuid.UUID, from, to time.Time) (int, error)
}

// Counter is an activity's capacity state.
type Counter struct {
	Current int
	Max     int
}

// CapacityStore is the row-level access the Ledger needs. Reads lock the activity row.
type CapacityStore interface {
	// Counter returns nil when the activity does not exist.
	Counter(ctx context.Context, activityID uuid.UUID) (*Counter, error)
	SetParticipants(ctx context.Context, activityID uuid.UUID, n int) error
}

// Tx is one unit of work. Every mutation made through it commits or rolls back together.
type Tx interface {
	Reader
	CapacityStore

	// LockActivity reads the activity and holds its row lock until the transaction ends.
	// It returns nil when the activity does not exist.
	LockActivity(ctx context.Context, id uuid.UUID) (*models.Activity, error)

	GetRegistration(ctx context.Context, id uuid.UUID) (*models.Registration, error)
	InsertRegistration(ctx context.Context, userID, activityID uuid.UUID) (*models.Registration, error)
	CancelRegistration(ctx context.Context, id uuid.UUID) error

	GetMatch(ctx context.Context, id uuid.UUID) (*models.VolunteerMatch, error)
	InsertMatch(ctx context.Context, volunteerID, activityID uuid.UUID) (*models.VolunteerMatch, error)
	CancelMatch(ctx context.Context, id uuid.UUID) error
}

// Store opens transactions. InTx commits when fn returns nil and rolls back otherwise,
// returning fn's error unchanged.
type Store interface {
	InTx(ctx context.Context, fn func(tx Tx) error) error
}
