package notifications

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/minds-hub/backend/internal/booking"
	"github.com/minds-hub/backend/internal/models"
	"github.com/minds-hub/backend/pkg/queue"
)

func newRedisQueue(t *testing.T) *queue.Queue {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return queue.NewQueue(client, zaptest.NewLogger(t))
}

func TestProcessor_DeliversQueuedNotifications(t *testing.T) {
	f := newFixture()
	q := newRedisQueue(t)
	d := NewDispatcher(f.store, f.users, f.acts, q, f.sender, zaptest.NewLogger(t))
	u, a := participant(), taiChi()
	f.users[u.ID], f.acts[a.ID] = u, a
	d.Notify(context.Background(), booking.Event{Kind: models.NotificationRegistrationConfirmed, PersonID: u.ID, ActivityID: a.ID})

	p := NewProcessor(q, NewDeliverer(f.store, f.sender, zaptest.NewLogger(t)), zaptest.NewLogger(t),
		WithPollWait(time.Second), WithRetryBackoff(10*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return f.sender.count() == 2 }, 5*time.Second, 20*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not stop")
	}
	for _, n := range f.store.all() {
		assert.Equal(t, models.NotificationStatusSent, n.Status)
	}
}

func TestProcessor_DeadLetterMarksFailed(t *testing.T) {
	f := newFixture()
	f.sender.err = errProvider
	q := newRedisQueue(t)
	ctx := context.Background()

	n := &models.Notification{UserID: uuid.New(), Kind: models.NotificationManual, Message: "hi", Channel: models.ChannelSMS, Recipient: "+6590000000"}
	require.NoError(t, f.store.Create(ctx, n))
	require.NoError(t, q.EnqueueNotification(ctx, queue.NotificationPayload{NotificationID: n.ID}))

	p := NewProcessor(q, NewDeliverer(f.store, f.sender, zaptest.NewLogger(t)), zaptest.NewLogger(t))
	for attempt := 1; attempt <= queue.MaxRetries; attempt++ {
		job, err := q.Dequeue(ctx, time.Second)
		require.NoError(t, err)
		require.NotNil(t, job, "attempt %d", attempt)
		err = p.Process(ctx, job)
		require.Error(t, err)
		p.handleFailure(ctx, job, err)

		got, _ := f.store.Get(ctx, n.ID)
		if attempt < queue.MaxRetries {
			assert.Equal(t, models.NotificationStatusPending, got.Status)
		} else {
			assert.Equal(t, models.NotificationStatusFailed, got.Status)
			assert.Contains(t, got.ErrorMessage, "provider unavailable")
		}
	}

	depth, err := q.Depth(ctx, queue.QueueDLQ)
	require.NoError(t, err)
	assert.EqualValues(t, 1, depth)
	depth, err = q.Depth(ctx, queue.QueueNotifications)
	require.NoError(t, err)
	assert.Zero(t, depth)
}

func TestProcessor_DropsMalformedJobs(t *testing.T) {
	f := newFixture()
	p := NewProcessor(newRedisQueue(t), NewDeliverer(f.store, f.sender, zaptest.NewLogger(t)), zaptest.NewLogger(t))

	assert.NoError(t, p.Process(context.Background(), &queue.Job{ID: "1", Type: "email"}))
	assert.NoError(t, p.Process(context.Background(), &queue.Job{ID: "2", Type: queue.JobTypeNotification, Payload: json.RawMessage(`"nope"`)}))
	assert.Zero(t, f.sender.count())
}

func TestProcessor_LostRetryMarksFailed(t *testing.T) {
	f := newFixture()
	f.sender.err = errProvider
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	q := queue.NewQueue(client, zaptest.NewLogger(t))
	ctx := context.Background()

	n := &models.Notification{UserID: uuid.New(), Kind: models.NotificationManual, Message: "hi", Channel: models.ChannelSMS, Recipient: "+6590000000"}
	require.NoError(t, f.store.Create(ctx, n))
	require.NoError(t, q.EnqueueNotification(ctx, queue.NotificationPayload{NotificationID: n.ID}))

	p := NewProcessor(q, NewDeliverer(f.store, f.sender, zaptest.NewLogger(t)), zaptest.NewLogger(t))
	job, err := q.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	require.NotNil(t, job)
	err = p.Process(ctx, job)
	require.Error(t, err)

	// Redis goes away between the pop and the re-push.
	mr.Close()
	p.handleFailure(ctx, job, err)

	got, _ := f.store.Get(ctx, n.ID)
	require.NotNil(t, got)
	assert.Equal(t, models.NotificationStatusFailed, got.Status)
	assert.Contains(t, got.ErrorMessage, "provider unavailable")
}
