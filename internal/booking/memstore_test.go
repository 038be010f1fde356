package booking

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/minds-hub/backend/internal/models"
	"github.com/minds-hub/backend/pkg/timerange"
)

var errCheckViolation = errors.New("activities_participants_check violated")

// memStore is an in-memory Store with the locking of the Postgres store: LockActivity and
// Counter take a per-activity row lock held until the transaction ends, and a failed or
// panicking transaction is undone. Writes are visible to other transactions before commit.
// It enforces the same constraints as the database schema.
type memStore struct {
	mu sync.Mutex // guards every field below

	rows          map[uuid.UUID]*sync.Mutex
	people        map[uuid.UUID]Person
	activities    map[uuid.UUID]models.Activity
	registrations map[uuid.UUID]models.Registration
	matches       map[uuid.UUID]models.VolunteerMatch

	// failInsert makes the next InsertRegistration fail, to exercise rollback.
	failInsert bool
}

func newMemStore() *memStore {
	return &memStore{
		rows:          map[uuid.UUID]*sync.Mutex{},
		people:        map[uuid.UUID]Person{},
		activities:    map[uuid.UUID]models.Activity{},
		registrations: map[uuid.UUID]models.Registration{},
		matches:       map[uuid.UUID]models.VolunteerMatch{},
	}
}

func (m *memStore) addPerson(role models.Role, tier models.MembershipType) uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.New()
	m.people[id] = Person{ID: id, Role: role, MembershipType: tier}
	return id
}

func (m *memStore) addActivity(title string, date time.Time, start, end timerange.TimeOfDay, max int) uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.New()
	m.activities[id] = models.Activity{
		ID:                   id,
		Title:                title,
		Date:                 date,
		StartTime:            start,
		EndTime:              end,
		MaxCapacity:          max,
		WheelchairAccessible: true,
	}
	return id
}

func (m *memStore) activity(id uuid.UUID) models.Activity {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.activities[id]
}

func (m *memStore) confirmedRegistrations(activityID uuid.UUID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, r := range m.registrations {
		if r.ActivityID == activityID && r.Status == models.StatusConfirmed {
			n++
		}
	}
	return n
}

func (m *memStore) rowLock(id uuid.UUID) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.rows[id]
	if !ok {
		l = &sync.Mutex{}
		m.rows[id] = l
	}
	return l
}

func (m *memStore) InTx(_ context.Context, fn func(tx Tx) error) error {
	tx := &memTx{m: m, held: map[uuid.UUID]bool{}}
	committed := false
	defer func() {
		if !committed {
			tx.rollback()
		}
		tx.release()
	}()

	if err := fn(tx); err != nil {
		return err
	}
	committed = true
	return nil
}

// memTx is one transaction. Every method takes memStore.mu for its own duration only.
type memTx struct {
	m    *memStore
	held map[uuid.UUID]bool
	undo []func()
}

// lockRow blocks until this transaction holds the row lock for id.
func (t *memTx) lockRow(id uuid.UUID) {
	if t.held[id] {
		return
	}
	t.m.rowLock(id).Lock()
	t.held[id] = true
}

func (t *memTx) release() {
	for id := range t.held {
		t.m.rowLock(id).Unlock()
	}
	t.held = map[uuid.UUID]bool{}
}

func (t *memTx) rollback() {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
}

func (t *memTx) Person(_ context.Context, id uuid.UUID) (*Person, error) {
	// Yield so that unlocked check-then-act sequences interleave.
	runtime.Gosched()
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	p, ok := t.m.people[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (t *memTx) HasConfirmed(_ context.Context, role models.Role, personID, activityID uuid.UUID) (bool, error) {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	if role == models.RoleVolunteer {
		for _, v := range t.m.matches {
			if v.VolunteerID == personID && v.ActivityID == activityID && v.Status == models.StatusConfirmed {
				return true, nil
			}
		}
		return false, nil
	}
	for _, r := range t.m.registrations {
		if r.UserID == personID && r.ActivityID == activityID && r.Status == models.StatusConfirmed {
			return true, nil
		}
	}
	return false, nil
}

func (t *memTx) ConfirmedOn(_ context.Context, personID uuid.UUID, date time.Time) ([]Booked, error) {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	var out []Booked
	for _, r := range t.m.registrations {
		if r.UserID != personID || r.Status != models.StatusConfirmed {
			continue
		}
		if a := t.m.activities[r.ActivityID]; a.Date.Equal(date) {
			out = append(out, Booked{Role: models.RoleParticipant, Activity: a})
		}
	}
	for _, v := range t.m.matches {
		if v.VolunteerID != personID || v.Status != models.StatusConfirmed {
			continue
		}
		if a := t.m.activities[v.ActivityID]; a.Date.Equal(date) {
			out = append(out, Booked{Role: models.RoleVolunteer, Activity: a})
		}
	}
	return out, nil
}

func (t *memTx) CountConfirmedRegistrations(_ context.Context, personID uuid.UUID, from, to time.Time) (int, error) {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	n := 0
	for _, r := range t.m.registrations {
		if r.UserID != personID || r.Status != models.StatusConfirmed {
			continue
		}
		d := t.m.activities[r.ActivityID].Date
		if !d.Before(from) && !d.After(to) {
			n++
		}
	}
	return n, nil
}

func (t *memTx) Counter(_ context.Context, id uuid.UUID) (*Counter, error) {
	t.lockRow(id)
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	a, ok := t.m.activities[id]
	if !ok {
		return nil, nil
	}
	return &Counter{Current: a.CurrentParticipants, Max: a.MaxCapacity}, nil
}

func (t *memTx) SetParticipants(_ context.Context, id uuid.UUID, n int) error {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	a, ok := t.m.activities[id]
	if !ok {
		return errors.New("activity row missing")
	}
	if n < 0 || n > a.MaxCapacity {
		return errCheckViolation
	}
	prev := a
	t.undo = append(t.undo, func() { t.m.activities[id] = prev })
	a.CurrentParticipants = n
	t.m.activities[id] = a
	return nil
}

func (t *memTx) LockActivity(_ context.Context, id uuid.UUID) (*models.Activity, error) {
	t.lockRow(id)
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	a, ok := t.m.activities[id]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (t *memTx) GetRegistration(_ context.Context, id uuid.UUID) (*models.Registration, error) {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	r, ok := t.m.registrations[id]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (t *memTx) InsertRegistration(_ context.Context, userID, activityID uuid.UUID) (*models.Registration, error) {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	if t.m.failInsert {
		t.m.failInsert = false
		return nil, errors.New("insert failed")
	}
	now := time.Now()
	r := models.Registration{
		ID: uuid.New(), UserID: userID, ActivityID: activityID,
		Status: models.StatusConfirmed, CreatedAt: now, UpdatedAt: now,
	}
	t.m.registrations[r.ID] = r
	t.undo = append(t.undo, func() { delete(t.m.registrations, r.ID) })
	return &r, nil
}

func (t *memTx) CancelRegistration(_ context.Context, id uuid.UUID) error {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	prev := t.m.registrations[id]
	t.undo = append(t.undo, func() { t.m.registrations[id] = prev })
	r := prev
	r.Status = models.StatusCancelled
	r.UpdatedAt = time.Now()
	t.m.registrations[id] = r
	return nil
}

func (t *memTx) GetMatch(_ context.Context, id uuid.UUID) (*models.VolunteerMatch, error) {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	v, ok := t.m.matches[id]
	if !ok {
		return nil, nil
	}
	return &v, nil
}

func (t *memTx) InsertMatch(_ context.Context, volunteerID, activityID uuid.UUID) (*models.VolunteerMatch, error) {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	now := time.Now()
	v := models.VolunteerMatch{
		ID: uuid.New(), VolunteerID: volunteerID, ActivityID: activityID,
		Status: models.StatusConfirmed, MatchedAt: now, UpdatedAt: now,
	}
	t.m.matches[v.ID] = v
	t.undo = append(t.undo, func() { delete(t.m.matches, v.ID) })
	return &v, nil
}

func (t *memTx) CancelMatch(_ context.Context, id uuid.UUID) error {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	prev := t.m.matches[id]
	t.undo = append(t.undo, func() { t.m.matches[id] = prev })
	v := prev
	v.Status = models.StatusCancelled
	v.UpdatedAt = time.Now()
	t.m.matches[id] = v
	return nil
}

// recordingNotifier captures events handed to it.
type recordingNotifier struct {
	mu     sync.Mutex
	events []Event
	panics bool
}

func (n *recordingNotifier) Notify(_ context.Context, ev Event) {
	n.mu.Lock()
	n.events = append(n.events, ev)
	n.mu.Unlock()
	if n.panics {
		panic("provider exploded")
	}
}

func (n *recordingNotifier) kinds() []models.NotificationKind {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]models.NotificationKind, 0, len(n.events))
	for _, ev := range n.events {
		out = append(out, ev.Kind)
	}
	return out
}

type capacityUpdate struct {
	activityID   uuid.UUID
	current, max int
}

type recordingFeed struct {
	mu      sync.Mutex
	updates []capacityUpdate
}

func (f *recordingFeed) PublishCapacity(activityID uuid.UUID, current, max int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, capacityUpdate{activityID, current, max})
}
