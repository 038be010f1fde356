package booking

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/minds-hub/backend/internal/models"
	"github.com/minds-hub/backend/internal/observability"
	"github.com/minds-hub/backend/pkg/timerange"
)

// Event describes a committed lifecycle transition.
type Event struct {
	Kind       models.NotificationKind
	PersonID   uuid.UUID
	ActivityID uuid.UUID
	RecordID   uuid.UUID
}

// Notifier is told about committed transitions. Implementations record their own failures;
// nothing they do can affect the transition.
type Notifier interface {
	Notify(ctx context.Context, ev Event)
}

// CapacityFeed receives the participant count of an activity after each committed change.
type CapacityFeed interface {
	PublishCapacity(activityID uuid.UUID, current, max int)
}

// Option configures a Service.
type Option func(*Service)

// WithCapacityFeed publishes capacity changes after commit.
func WithCapacityFeed(f CapacityFeed) Option {
	return func(s *Service) { s.feed = f }
}

// WithClock overrides the clock used to reject matches for past activities.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithDispatchTimeout bounds each background notification call.
func WithDispatchTimeout(d time.Duration) Option {
	return func(s *Service) { s.dispatchTimeout = d }
}

// Service runs the registration and volunteer match lifecycles.
type Service struct {
	store           Store
	validator       Validator
	ledger          Ledger
	notifier        Notifier
	feed            CapacityFeed
	logger          *zap.Logger
	now             func() time.Time
	dispatchTimeout time.Duration
	inflight        sync.WaitGroup
}

// NewService creates a booking service. notifier may be nil.
func NewService(store Store, notifier Notifier, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		store:           store,
		notifier:        notifier,
		logger:          logger,
		now:             time.Now,
		dispatchTimeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateRegistration books personID onto activityID as a participant.
func (s *Service) CreateRegistration(ctx context.Context, personID, activityID uuid.UUID) (*models.Registration, error) {
	var (
		reg   *models.Registration
		after models.Activity
	)
	err := s.store.InTx(ctx, func(tx Tx) error {
		a, err := tx.LockActivity(ctx, activityID)
		if err != nil {
			return fmt.Errorf("lock activity: %w", err)
		}
		if a == nil {
			return notFound("activity", activityID)
		}
		if err := s.validator.ValidateRegistration(ctx, tx, personID, a); err != nil {
			return err
		}
		reg, err = tx.InsertRegistration(ctx, personID, activityID)
		if err != nil {
			return fmt.Errorf("insert registration: %w", err)
		}
		if err := s.ledger.Increment(ctx, tx, activityID); err != nil {
			return err
		}
		after = *a
		after.CurrentParticipants++
		return nil
	})
	s.record("create_registration", err)
	if err != nil {
		return nil, err
	}

	s.logger.Info("registration confirmed",
		zap.String("registration_id", reg.ID.String()),
		zap.String("user_id", personID.String()),
		zap.String("activity_id", activityID.String()),
	)
	s.publishCapacity(&after)
	s.dispatch(Event{Kind: models.NotificationRegistrationConfirmed, PersonID: personID, ActivityID: activityID, RecordID: reg.ID})
	return reg, nil
}

// CancelRegistration cancels a confirmed registration. Only its owner or staff may cancel.
func (s *Service) CancelRegistration(ctx context.Context, registrationID, callerID uuid.UUID, callerIsStaff bool) error {
	var (
		reg   *models.Registration
		after models.Activity
	)
	err := s.store.InTx(ctx, func(tx Tx) error {
		var err error
		reg, err = tx.GetRegistration(ctx, registrationID)
		if err != nil {
			return fmt.Errorf("load registration: %w", err)
		}
		if reg == nil {
			return notFound("registration", registrationID)
		}
		if reg.UserID != callerID && !callerIsStaff {
			return forbidden("only the registrant or staff may cancel this registration")
		}
		if reg.Status == models.StatusCancelled {
			return alreadyCancelled("registration")
		}
		// Activity row first, matching the lock order of CreateRegistration.
		a, err := tx.LockActivity(ctx, reg.ActivityID)
		if err != nil {
			return fmt.Errorf("lock activity: %w", err)
		}
		if a == nil {
			return notFound("activity", reg.ActivityID)
		}
		// Re-read under the activity lock: a concurrent cancel may have won.
		if reg, err = tx.GetRegistration(ctx, registrationID); err != nil {
			return fmt.Errorf("reload registration: %w", err)
		}
		if reg == nil {
			return notFound("registration", registrationID)
		}
		if reg.Status == models.StatusCancelled {
			return alreadyCancelled("registration")
		}
		if err := tx.CancelRegistration(ctx, registrationID); err != nil {
			return fmt.Errorf("cancel registration: %w", err)
		}
		if err := s.ledger.Decrement(ctx, tx, reg.ActivityID); err != nil {
			return err
		}
		reg.Status = models.StatusCancelled
		after = *a
		if after.CurrentParticipants > 0 {
			after.CurrentParticipants--
		}
		return nil
	})
	s.record("cancel_registration", err)
	if err != nil {
		return err
	}

	s.logger.Info("registration cancelled",
		zap.String("registration_id", registrationID.String()),
		zap.String("caller_id", callerID.String()),
		zap.Bool("by_staff", callerIsStaff && reg.UserID != callerID),
	)
	s.publishCapacity(&after)
	s.dispatch(Event{Kind: models.NotificationRegistrationCancelled, PersonID: reg.UserID, ActivityID: reg.ActivityID, RecordID: reg.ID})
	return nil
}

// CreateMatch commits volunteerID to help at activityID. Matches never change capacity.
func (s *Service) CreateMatch(ctx context.Context, volunteerID, activityID uuid.UUID) (*models.VolunteerMatch, error) {
	var m *models.VolunteerMatch
	err := s.store.InTx(ctx, func(tx Tx) error {
		a, err := tx.LockActivity(ctx, activityID)
		if err != nil {
			return fmt.Errorf("lock activity: %w", err)
		}
		if a == nil {
			return notFound("activity", activityID)
		}
		if a.Date.Before(timerange.DateOf(s.now())) {
			return &Error{Kind: KindPastActivity, Detail: "cannot match to a past activity"}
		}
		p, err := tx.Person(ctx, volunteerID)
		if err != nil {
			return fmt.Errorf("load volunteer: %w", err)
		}
		if p != nil && p.WheelchairRequired && !a.WheelchairAccessible {
			return &Error{Kind: KindAccessibility, Detail: fmt.Sprintf("activity %q is not wheelchair accessible", a.Title)}
		}
		if err := s.validator.ValidateMatch(ctx, tx, volunteerID, a); err != nil {
			return err
		}
		m, err = tx.InsertMatch(ctx, volunteerID, activityID)
		if err != nil {
			return fmt.Errorf("insert match: %w", err)
		}
		return nil
	})
	s.record("create_match", err)
	if err != nil {
		return nil, err
	}

	s.logger.Info("volunteer matched",
		zap.String("match_id", m.ID.String()),
		zap.String("volunteer_id", volunteerID.String()),
		zap.String("activity_id", activityID.String()),
	)
	s.dispatch(Event{Kind: models.NotificationMatchConfirmed, PersonID: volunteerID, ActivityID: activityID, RecordID: m.ID})
	return m, nil
}

// CancelMatch cancels a confirmed volunteer match. Only the volunteer or staff may cancel.
func (s *Service) CancelMatch(ctx context.Context, matchID, callerID uuid.UUID, callerIsStaff bool) error {
	var m *models.VolunteerMatch
	err := s.store.InTx(ctx, func(tx Tx) error {
		var err error
		m, err = tx.GetMatch(ctx, matchID)
		if err != nil {
			return fmt.Errorf("load match: %w", err)
		}
		if m == nil {
			return notFound("volunteer match", matchID)
		}
		if m.VolunteerID != callerID && !callerIsStaff {
			return forbidden("only the volunteer or staff may cancel this match")
		}
		if m.Status == models.StatusCancelled {
			return alreadyCancelled("volunteer match")
		}
		if a, err := tx.LockActivity(ctx, m.ActivityID); err != nil {
			return fmt.Errorf("lock activity: %w", err)
		} else if a == nil {
			return notFound("activity", m.ActivityID)
		}
		if m, err = tx.GetMatch(ctx, matchID); err != nil {
			return fmt.Errorf("reload match: %w", err)
		}
		if m == nil {
			return notFound("volunteer match", matchID)
		}
		if m.Status == models.StatusCancelled {
			return alreadyCancelled("volunteer match")
		}
		if err := tx.CancelMatch(ctx, matchID); err != nil {
			return fmt.Errorf("cancel match: %w", err)
		}
		m.Status = models.StatusCancelled
		return nil
	})
	s.record("cancel_match", err)
	if err != nil {
		return err
	}

	s.logger.Info("volunteer match cancelled",
		zap.String("match_id", matchID.String()),
		zap.String("caller_id", callerID.String()),
	)
	s.dispatch(Event{Kind: models.NotificationMatchCancelled, PersonID: m.VolunteerID, ActivityID: m.ActivityID, RecordID: m.ID})
	return nil
}

// Wait blocks until background notification calls have returned.
func (s *Service) Wait() {
	s.inflight.Wait()
}

// dispatch hands ev to the notifier on its own goroutine and context, detached from the
// request that committed the transition.
func (s *Service) dispatch(ev Event) {
	if s.notifier == nil {
		return
	}
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("notifier panicked", zap.Any("panic", r), zap.String("kind", string(ev.Kind)))
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), s.dispatchTimeout)
		defer cancel()
		s.notifier.Notify(ctx, ev)
	}()
}

func (s *Service) publishCapacity(a *models.Activity) {
	if s.feed == nil {
		return
	}
	s.feed.PublishCapacity(a.ID, a.CurrentParticipants, a.MaxCapacity)
}

func (s *Service) record(op string, err error) {
	switch k, ok := KindOf(err); {
	case err == nil:
		observability.RecordTransition(op, "ok")
	case ok:
		observability.RecordTransition(op, string(k))
	default:
		observability.RecordTransition(op, "error")
		s.logger.Error(op+" failed", zap.Error(err))
	}
}
