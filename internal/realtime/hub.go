package realtime

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// PingInterval and PongWait are used for heartbeat.
	PingInterval = 30
	PongWait     = 60

	// EventCapacity carries an activity's participant count.
	EventCapacity = "capacity"
)

// CapacityEvent is the payload of EventCapacity.
type CapacityEvent struct {
	ActivityID          uuid.UUID `json:"activity_id"`
	CurrentParticipants int       `json:"current_participants"`
	MaxCapacity         int       `json:"max_capacity"`
	AvailableSpots      int       `json:"available_spots"`
	IsFull              bool      `json:"is_full"`
}

// Hub maintains activity_id -> set of connections and broadcasts messages.
// With Redis configured, events are published and every instance broadcasts what it receives.
type Hub struct {
	// activityID -> map[clientID]*Client
	rooms    map[uuid.UUID]map[string]*Client
	subs     map[uuid.UUID]func() // cancel Redis subscription per activity
	mu       sync.RWMutex
	logger   *zap.Logger
	redis    RedisPublisher
	redisSub RedisSubscriber
}

// RedisPublisher is the interface for publishing to Redis (for cross-instance broadcast).
type RedisPublisher interface {
	PublishActivityEvent(activityID uuid.UUID, event string, payload []byte) error
}

// RedisSubscriber subscribes to activity channels and invokes handler for incoming events.
type RedisSubscriber interface {
	SubscribeActivity(activityID uuid.UUID, handler func(event string, payload []byte)) (cancel func(), err error)
}

// NewHub creates a new WebSocket hub. redisPub and redisSub may be nil for a single instance.
func NewHub(logger *zap.Logger, redisPub RedisPublisher, redisSub RedisSubscriber) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		rooms:    make(map[uuid.UUID]map[string]*Client),
		subs:     make(map[uuid.UUID]func()),
		logger:   logger,
		redis:    redisPub,
		redisSub: redisSub,
	}
}

// Register adds a client to an activity room. Starts the Redis subscription for the activity
// on its first client.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	if h.rooms[c.ActivityID] == nil {
		h.rooms[c.ActivityID] = make(map[string]*Client)
		if h.redisSub != nil {
			activityID := c.ActivityID
			cancel, err := h.redisSub.SubscribeActivity(activityID, func(event string, payload []byte) {
				h.Broadcast(activityID, event, json.RawMessage(payload))
			})
			if err != nil {
				h.logger.Warn("activity subscribe failed", zap.String("activity_id", activityID.String()), zap.Error(err))
			} else {
				h.subs[activityID] = cancel
			}
		}
	}
	h.rooms[c.ActivityID][c.ID] = c
	h.mu.Unlock()
	h.logger.Debug("client watching activity", zap.String("client_id", c.ID), zap.String("activity_id", c.ActivityID.String()))
}

// Unregister removes a client from its room and closes its send channel. Cancels the Redis subscription when the last
// client leaves.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if m, ok := h.rooms[c.ActivityID]; ok {
		if _, ok := m[c.ID]; ok {
			delete(m, c.ID)
			close(c.send)
		}
		if len(m) == 0 {
			delete(h.rooms, c.ActivityID)
			if cancel, ok := h.subs[c.ActivityID]; ok {
				cancel()
				delete(h.subs, c.ActivityID)
			}
		}
	}
	h.mu.Unlock()
	h.logger.Debug("client left activity", zap.String("client_id", c.ID), zap.String("activity_id", c.ActivityID.String()))
}

// Broadcast sends a message to all local clients watching an activity.
func (h *Hub) Broadcast(activityID uuid.UUID, event string, payload interface{}) {
	var data []byte
	switch v := payload.(type) {
	case []byte:
		data = v
	case json.RawMessage:
		data = v
	default:
		data, _ = json.Marshal(payload)
	}
	msg := WSMessage{Event: event, Data: data}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.rooms[activityID] {
		select {
		case c.send <- msg:
		default:
			// buffer full, skip
		}
	}
}

// Publish delivers an event to every instance. Without Redis it broadcasts locally; with
// Redis the subscription callback performs the broadcast, including on this instance.
func (h *Hub) Publish(activityID uuid.UUID, event string, payload interface{}) {
	if h.redis == nil {
		h.Broadcast(activityID, event, payload)
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	if err := h.redis.PublishActivityEvent(activityID, event, data); err != nil {
		h.logger.Warn("publish activity event failed", zap.String("activity_id", activityID.String()), zap.Error(err))
		h.Broadcast(activityID, event, json.RawMessage(data))
	}
}

// PublishCapacity implements booking.CapacityFeed.
func (h *Hub) PublishCapacity(activityID uuid.UUID, current, max int) {
	spots := max - current
	if spots < 0 {
		spots = 0
	}
	h.Publish(activityID, EventCapacity, CapacityEvent{
		ActivityID:          activityID,
		CurrentParticipants: current,
		MaxCapacity:         max,
		AvailableSpots:      spots,
		IsFull:              current >= max,
	})
}

// Watchers returns the number of local clients watching an activity.
func (h *Hub) Watchers(activityID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[activityID])
}

// SendToClient sends a message to a single client.
func (h *Hub) SendToClient(activityID uuid.UUID, clientID string, event string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.rooms[activityID][clientID]
	if !ok {
		return
	}
	select {
	case c.send <- WSMessage{Event: event, Data: data}:
	default:
	}
}

// Close cancels every Redis subscription.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, cancel := range h.subs {
		cancel()
		delete(h.subs, id)
	}
}
