package notifications

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/minds-hub/backend/internal/models"
	"github.com/minds-hub/backend/pkg/queue"
	"github.com/minds-hub/backend/pkg/timerange"
)

type memStore struct {
	mu        sync.Mutex
	rows      map[uuid.UUID]*models.Notification
	order     []uuid.UUID
	attendees map[uuid.UUID][]uuid.UUID
	createErr error
}

func newMemStore() *memStore {
	return &memStore{rows: map[uuid.UUID]*models.Notification{}, attendees: map[uuid.UUID][]uuid.UUID{}}
}

func (s *memStore) Create(_ context.Context, n *models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	n.ID = uuid.New()
	n.Status = models.NotificationStatusPending
	n.CreatedAt = time.Now()
	cp := *n
	s.rows[n.ID] = &cp
	s.order = append(s.order, n.ID)
	return nil
}

func (s *memStore) Get(_ context.Context, id uuid.UUID) (*models.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.rows[id]
	if !ok {
		return nil, nil
	}
	cp := *n
	return &cp, nil
}

func (s *memStore) MarkSent(_ context.Context, id uuid.UUID, ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.rows[id]
	n.Status = models.NotificationStatusSent
	n.ProviderRef = ref
	return nil
}

func (s *memStore) MarkFailed(_ context.Context, id uuid.UUID, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n := s.rows[id]; n != nil && n.Status != models.NotificationStatusSent {
		n.Status = models.NotificationStatusFailed
		n.ErrorMessage = reason
	}
	return nil
}

func (s *memStore) ConfirmedAttendees(_ context.Context, activityID uuid.UUID) ([]uuid.UUID, error) {
	return s.attendees[activityID], nil
}

func (s *memStore) all() []models.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Notification, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.rows[id])
	}
	return out
}

type fakeUsers map[uuid.UUID]*models.User

func (f fakeUsers) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	return f[id], nil
}

type fakeActivities map[uuid.UUID]*models.Activity

func (f fakeActivities) GetByID(_ context.Context, id uuid.UUID) (*models.Activity, error) {
	return f[id], nil
}

type sent struct {
	channel models.Channel
	to      string
	body    string
}

type fakeSender struct {
	mu   sync.Mutex
	err  error
	sent []sent
}

func (f *fakeSender) Send(_ context.Context, ch models.Channel, to, body string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.sent = append(f.sent, sent{channel: ch, to: to, body: body})
	return "SM" + uuid.NewString()[:8], nil
}

func (f *fakeSender) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type fakeEnqueuer struct {
	err error
	ids []uuid.UUID
}

func (f *fakeEnqueuer) EnqueueNotification(_ context.Context, p queue.NotificationPayload) error {
	if f.err != nil {
		return f.err
	}
	f.ids = append(f.ids, p.NotificationID)
	return nil
}

var errProvider = errors.New("provider unavailable")

func taiChi() *models.Activity {
	zh := "太极"
	return &models.Activity{
		ID:           uuid.New(),
		Title:        "Morning Tai Chi",
		Date:         time.Date(2026, 1, 22, 0, 0, 0, 0, time.UTC),
		StartTime:    timerange.Clock(9, 0),
		EndTime:      timerange.Clock(10, 30),
		Location:     "Hall A",
		MaxCapacity:  10,
		Translations: models.Translations{TitleZh: &zh},
	}
}

func participant() *models.User {
	return &models.User{
		ID:                uuid.New(),
		FullName:          "Tan Ah Kow",
		Role:              models.RoleParticipant,
		Phone:             "+6591234567",
		CaregiverPhone:    "+6598765432",
		PreferredLanguage: models.LanguageEnglish,
	}
}

func volunteer() *models.User {
	return &models.User{
		ID:                uuid.New(),
		FullName:          "Priya",
		Role:              models.RoleVolunteer,
		Phone:             "+6581112222",
		CaregiverPhone:    "+6580000000",
		PreferredLanguage: models.LanguageEnglish,
	}
}
