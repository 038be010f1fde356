package notifications

import (
	"context"
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/minds-hub/backend/internal/middleware"
	"github.com/minds-hub/backend/internal/models"
	"github.com/minds-hub/backend/pkg/response"
)

// Lister lists a user's notifications.
type Lister interface {
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.Notification, error)
}

// Handler handles notification endpoints.
type Handler struct {
	lister     Lister
	dispatcher *Dispatcher
	logger     *zap.Logger
}

// NewHandler creates a notifications handler.
func NewHandler(lister Lister, dispatcher *Dispatcher, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{lister: lister, dispatcher: dispatcher, logger: logger}
}

// SendRequest is the body for POST /users/:user_id/notifications.
type SendRequest struct {
	Message string         `json:"message" binding:"required,max=1000"`
	Channel models.Channel `json:"channel"`
}

// BulkRequest is the body for POST /notifications/bulk.
type BulkRequest struct {
	UserIDs []uuid.UUID    `json:"user_ids" binding:"required,min=1,max=500"`
	Message string         `json:"message" binding:"required,max=1000"`
	Channel models.Channel `json:"channel"`
}

func channelOrDefault(ch models.Channel) (models.Channel, bool) {
	if ch == "" {
		return models.ChannelSMS, true
	}
	return ch, ch.Valid()
}

// List handles GET /me/notifications and GET /users/:user_id/notifications (staff).
func (h *Handler) List(c *gin.Context) {
	userID := middleware.CallerID(c)
	if raw := c.Param("user_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			response.BadRequest(c, "invalid user id")
			return
		}
		if id != userID && !middleware.IsStaff(c) {
			response.Forbidden(c, "cannot view another user's notifications")
			return
		}
		userID = id
	}
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 200 {
			response.BadRequest(c, "limit must be between 1 and 200")
			return
		}
		limit = n
	}
	list, err := h.lister.ListByUser(c.Request.Context(), userID, limit)
	if err != nil {
		h.logger.Error("list notifications failed", zap.Error(err))
		response.Internal(c, "failed to list notifications")
		return
	}
	response.OK(c, list)
}

// Send handles POST /users/:user_id/notifications (staff).
func (h *Handler) Send(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("user_id"))
	if err != nil {
		response.BadRequest(c, "invalid user id")
		return
	}
	var req SendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	h.send(c, []uuid.UUID{userID}, req.Channel, req.Message)
}

// SendBulk handles POST /notifications/bulk (staff).
func (h *Handler) SendBulk(c *gin.Context) {
	var req BulkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	h.send(c, req.UserIDs, req.Channel, req.Message)
}

func (h *Handler) send(c *gin.Context, userIDs []uuid.UUID, ch models.Channel, message string) {
	channel, ok := channelOrDefault(ch)
	if !ok {
		response.BadRequest(c, "channel must be sms or whatsapp")
		return
	}
	sum, err := h.dispatcher.SendManual(c.Request.Context(), userIDs, channel, message)
	if err != nil {
		h.logger.Error("manual send failed", zap.Error(err))
		response.Internal(c, "failed to send notifications")
		return
	}
	response.Accepted(c, sum)
}

// Remind handles POST /activities/:id/reminders (staff).
func (h *Handler) Remind(c *gin.Context) {
	activityID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid activity id")
		return
	}
	sum, err := h.dispatcher.Remind(c.Request.Context(), activityID)
	if errors.Is(err, ErrActivityNotFound) {
		response.NotFound(c, "activity not found")
		return
	}
	if err != nil {
		h.logger.Error("reminders failed", zap.String("activity_id", activityID.String()), zap.Error(err))
		response.Internal(c, "failed to send reminders")
		return
	}
	response.Accepted(c, sum)
}
