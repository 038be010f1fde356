package realtime

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/minds-hub/backend/internal/middleware"
	"github.com/minds-hub/backend/internal/models"
	"github.com/minds-hub/backend/pkg/response"
)

const (
	writeWait      = 10 * time.Second
	maxFrameSize   = 4096
	sendBufferSize = 64
)

// The feed authenticates with the token query parameter, so any origin may connect.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// WSMessage is the frame exchanged with watchers.
type WSMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Client is one watcher of an activity's capacity.
type Client struct {
	ID         string
	ActivityID uuid.UUID
	UserID     uuid.UUID
	Role       models.Role
	hub        *Hub
	conn       *websocket.Conn
	send       chan WSMessage
	logger     *zap.Logger
}

// ServeWs handles GET /ws?activity_id=...&token=...
func ServeWs(hub *Hub, authn middleware.Authenticator, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		activityID, err := uuid.Parse(c.Query("activity_id"))
		if err != nil {
			response.BadRequest(c, "activity_id must be a valid id")
			return
		}
		token := c.Query("token")
		if token == "" {
			response.Unauthorized(c, "token required")
			return
		}
		who, err := authn.Authenticate(token)
		if err != nil {
			response.Unauthorized(c, "invalid token")
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn("websocket upgrade failed", zap.String("activity_id", activityID.String()), zap.Error(err))
			return
		}

		client := &Client{
			ID:         uuid.NewString(),
			ActivityID: activityID,
			UserID:     who.UserID,
			Role:       who.Role,
			hub:        hub,
			conn:       conn,
			send:       make(chan WSMessage, sendBufferSize),
			logger:     logger,
		}
		hub.Register(client)
		go client.writeLoop()
		client.readLoop()
	}
}

func (c *Client) extendDeadline() {
	_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
}

// readLoop keeps the connection alive and answers application pings. Watchers never
// change state through the socket.
func (c *Client) readLoop() {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxFrameSize)
	c.extendDeadline()
	c.conn.SetPongHandler(func(string) error {
		c.extendDeadline()
		return nil
	})

	for {
		var msg WSMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("watcher disconnected", zap.String("client_id", c.ID), zap.Error(err))
			}
			return
		}
		c.extendDeadline()
		if msg.Event == "ping" {
			c.hub.SendToClient(c.ActivityID, c.ID, "pong", map[string]int64{"at": time.Now().Unix()})
		}
	}
}

// writeLoop drains send and heartbeats until send is closed by Unregister.
func (c *Client) writeLoop() {
	heartbeat := time.NewTicker(PingInterval * time.Second)
	defer func() {
		heartbeat.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-heartbeat.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
