package models

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a registration or volunteer match.
type Status string

const (
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

// Registration is a participant's booking for an activity.
type Registration struct {
	ID         uuid.UUID `json:"id"`
	UserID     uuid.UUID `json:"user_id"`
	ActivityID uuid.UUID `json:"activity_id"`
	Status     Status    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// RegistrationWithActivity embeds the booked activity for listings.
type RegistrationWithActivity struct {
	Registration
	Activity Activity `json:"activity"`
}

// VolunteerMatch is a volunteer's commitment to help at an activity.
type VolunteerMatch struct {
	ID          uuid.UUID `json:"id"`
	VolunteerID uuid.UUID `json:"volunteer_id"`
	ActivityID  uuid.UUID `json:"activity_id"`
	Status      Status    `json:"status"`
	MatchedAt   time.Time `json:"matched_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// VolunteerMatchWithActivity embeds the matched activity for listings.
type VolunteerMatchWithActivity struct {
	VolunteerMatch
	Activity Activity `json:"activity"`
}
