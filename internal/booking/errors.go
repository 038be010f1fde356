package booking

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/minds-hub/backend/internal/models"
	"github.com/minds-hub/backend/pkg/timerange"
)

// Kind classifies an expected, caller-recoverable rejection.
type Kind string

const (
	KindNotFound          Kind = "not_found"
	KindFull              Kind = "full"
	KindAlreadyRegistered Kind = "already_registered"
	KindAlreadyCancelled  Kind = "already_cancelled"
	KindTimeConflict      Kind = "time_conflict"
	KindQuotaExceeded     Kind = "quota_exceeded"
	KindForbidden         Kind = "forbidden"
	KindPastActivity      Kind = "past_activity"
	KindAccessibility     Kind = "accessibility"
)

// Conflict identifies the confirmed booking that overlaps a candidate activity.
type Conflict struct {
	ActivityID uuid.UUID       `json:"activity_id"`
	Title      string          `json:"title"`
	Date       time.Time       `json:"date"`
	TimeRange  timerange.Range `json:"time_range"`
	Role       models.Role     `json:"role"`
}

// Error is a rejected lifecycle transition. Anything that is not an *Error is a system failure.
type Error struct {
	Kind     Kind                  `json:"kind"`
	Detail   string                `json:"detail"`
	Conflict *Conflict             `json:"conflict,omitempty"`
	Tier     models.MembershipType `json:"tier,omitempty"`
	Limit    int                   `json:"limit,omitempty"`
}

func (e *Error) Error() string {
	return string(e.Kind) + ": " + e.Detail
}

// Is matches any *Error of the same kind, so errors.Is(err, &Error{Kind: KindFull}) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// KindOf extracts the rejection kind from err.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// IsKind reports whether err is a rejection of kind k.
func IsKind(err error, k Kind) bool {
	got, ok := KindOf(err)
	return ok && got == k
}

func notFound(what string, id uuid.UUID) *Error {
	return &Error{Kind: KindNotFound, Detail: fmt.Sprintf("%s %s not found", what, id)}
}

func forbidden(detail string) *Error {
	return &Error{Kind: KindForbidden, Detail: detail}
}

func full(a *models.Activity) *Error {
	return &Error{
		Kind:   KindFull,
		Detail: fmt.Sprintf("activity %q is full (%d/%d)", a.Title, a.CurrentParticipants, a.MaxCapacity),
	}
}

func alreadyRegistered(role models.Role) *Error {
	detail := "already registered for this activity"
	if role == models.RoleVolunteer {
		detail = "already matched to this activity"
	}
	return &Error{Kind: KindAlreadyRegistered, Detail: detail}
}

func alreadyCancelled(what string) *Error {
	return &Error{Kind: KindAlreadyCancelled, Detail: what + " is already cancelled"}
}

func timeConflict(b Booked) *Error {
	r := b.Activity.TimeRange()
	return &Error{
		Kind:   KindTimeConflict,
		Detail: fmt.Sprintf("time conflict with activity %q (%s)", b.Activity.Title, r),
		Conflict: &Conflict{
			ActivityID: b.Activity.ID,
			Title:      b.Activity.Title,
			Date:       b.Activity.Date,
			TimeRange:  r,
			Role:       b.Role,
		},
	}
}

func quotaExceeded(tier models.MembershipType, limit int) *Error {
	return &Error{
		Kind:   KindQuotaExceeded,
		Detail: fmt.Sprintf("weekly registration limit reached: %s membership allows %d activities per week", tier, limit),
		Tier:   tier,
		Limit:  limit,
	}
}
