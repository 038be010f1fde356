package booking

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/minds-hub/backend/internal/models"
	"github.com/minds-hub/backend/pkg/timerange"
)

// Validator runs the admission rules for a candidate activity. It never writes.
//
// Rules run in a fixed order and stop at the first failure: capacity, duplicate,
// time overlap, weekly quota. Capacity and quota only apply to participants;
// volunteers do not consume capacity and have no tier.
type Validator struct{}

// ValidateRegistration checks whether personID may register as a participant for a.
func (v Validator) ValidateRegistration(ctx context.Context, r Reader, personID uuid.UUID, a *models.Activity) error {
	return v.validate(ctx, r, models.RoleParticipant, personID, a)
}

// ValidateMatch checks whether personID may be matched as a volunteer to a.
func (v Validator) ValidateMatch(ctx context.Context, r Reader, personID uuid.UUID, a *models.Activity) error {
	return v.validate(ctx, r, models.RoleVolunteer, personID, a)
}

func (v Validator) validate(ctx context.Context, r Reader, role models.Role, personID uuid.UUID, a *models.Activity) error {
	if role == models.RoleParticipant && a.IsFull() {
		return full(a)
	}

	dup, err := r.HasConfirmed(ctx, role, personID, a.ID)
	if err != nil {
		return fmt.Errorf("check duplicate: %w", err)
	}
	if dup {
		return alreadyRegistered(role)
	}

	if err := v.checkOverlap(ctx, r, personID, a); err != nil {
		return err
	}

	if role == models.RoleParticipant {
		return v.checkQuota(ctx, r, personID, a)
	}
	return nil
}

// checkOverlap compares against both the person's registrations and matches on the same date.
func (Validator) checkOverlap(ctx context.Context, r Reader, personID uuid.UUID, a *models.Activity) error {
	booked, err := r.ConfirmedOn(ctx, personID, a.Date)
	if err != nil {
		return fmt.Errorf("load same-day bookings: %w", err)
	}
	for _, b := range booked {
		if timerange.Overlaps(a.StartTime, a.EndTime, b.Activity.StartTime, b.Activity.EndTime) {
			return timeConflict(b)
		}
	}
	return nil
}

func (Validator) checkQuota(ctx context.Context, r Reader, personID uuid.UUID, a *models.Activity) error {
	p, err := r.Person(ctx, personID)
	if err != nil {
		return fmt.Errorf("load person: %w", err)
	}
	if p == nil {
		return nil
	}
	limit, ok := p.MembershipType.WeeklyLimit()
	if !ok {
		return nil
	}
	monday, sunday := timerange.WeekBounds(a.Date)
	n, err := r.CountConfirmedRegistrations(ctx, personID, monday, sunday)
	if err != nil {
		return fmt.Errorf("count weekly registrations: %w", err)
	}
	if n >= limit {
		return quotaExceeded(p.MembershipType, limit)
	}
	return nil
}
