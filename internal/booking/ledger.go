package booking

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Ledger maintains current_participants. It must run inside the same transaction as the
// registration write it accounts for.
type Ledger struct{}

// Increment adds one participant. Capacity is not re-checked here: the Validator checked it
// under the same row lock, and the activities table rejects any overshoot.
func (Ledger) Increment(ctx context.Context, s CapacityStore, activityID uuid.UUID) error {
	c, err := s.Counter(ctx, activityID)
	if err != nil {
		return fmt.Errorf("read participants: %w", err)
	}
	if c == nil {
		return notFound("activity", activityID)
	}
	if err := s.SetParticipants(ctx, activityID, c.Current+1); err != nil {
		return fmt.Errorf("increment participants: %w", err)
	}
	return nil
}

// Decrement removes one participant. At zero there is nothing to reverse and it does nothing.
func (Ledger) Decrement(ctx context.Context, s CapacityStore, activityID uuid.UUID) error {
	c, err := s.Counter(ctx, activityID)
	if err != nil {
		return fmt.Errorf("read participants: %w", err)
	}
	if c == nil {
		return notFound("activity", activityID)
	}
	if c.Current <= 0 {
		return nil
	}
	if err := s.SetParticipants(ctx, activityID, c.Current-1); err != nil {
		return fmt.Errorf("decrement participants: %w", err)
	}
	return nil
}
