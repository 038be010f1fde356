package registrations

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/minds-hub/backend/internal/booking"
	"github.com/minds-hub/backend/internal/middleware"
	"github.com/minds-hub/backend/internal/models"
	"github.com/minds-hub/backend/pkg/response"
)

// Lifecycle is the booking.Service surface the handler drives.
type Lifecycle interface {
	CreateRegistration(ctx context.Context, personID, activityID uuid.UUID) (*models.Registration, error)
	CancelRegistration(ctx context.Context, registrationID, callerID uuid.UUID, callerIsStaff bool) error
	CreateMatch(ctx context.Context, volunteerID, activityID uuid.UUID) (*models.VolunteerMatch, error)
	CancelMatch(ctx context.Context, matchID, callerID uuid.UUID, callerIsStaff bool) error
}

// UserLookup loads the person staff are booking for.
type UserLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// CreateRequest is the body for POST /registrations and POST /matches.
type CreateRequest struct {
	ActivityID string `json:"activity_id" binding:"required,uuid"`
	// UserID names the person when staff book on their behalf.
	UserID string `json:"user_id" binding:"omitempty,uuid"`
}

// Handler handles registration and volunteer match endpoints.
type Handler struct {
	lifecycle Lifecycle
	repo      *Repository
	users     UserLookup
	logger    *zap.Logger
}

// NewHandler creates a registrations handler.
func NewHandler(lifecycle Lifecycle, repo *Repository, users UserLookup, logger *zap.Logger) *Handler {
	return &Handler{lifecycle: lifecycle, repo: repo, users: users, logger: logger}
}

var kindStatus = map[booking.Kind]int{
	booking.KindNotFound:          http.StatusNotFound,
	booking.KindFull:              http.StatusConflict,
	booking.KindAlreadyRegistered: http.StatusConflict,
	booking.KindAlreadyCancelled:  http.StatusConflict,
	booking.KindTimeConflict:      http.StatusConflict,
	booking.KindQuotaExceeded:     http.StatusConflict,
	booking.KindForbidden:         http.StatusForbidden,
	booking.KindPastActivity:      http.StatusBadRequest,
	booking.KindAccessibility:     http.StatusConflict,
}

// writeError answers a rejection with its status and kind; anything else is a 500.
func (h *Handler) writeError(c *gin.Context, op string, err error) {
	var berr *booking.Error
	if errors.As(err, &berr) {
		status, known := kindStatus[berr.Kind]
		if !known {
			status = http.StatusBadRequest
		}
		var details interface{}
		switch {
		case berr.Conflict != nil:
			details = gin.H{"conflict": berr.Conflict}
		case berr.Limit > 0:
			details = gin.H{"tier": berr.Tier, "limit": berr.Limit}
		}
		response.Rejected(c, status, string(berr.Kind), berr.Detail, details)
		return
	}
	h.logger.Error(op+" failed", zap.Error(err))
	response.Internal(c, "failed to "+op)
}

// target resolves whose booking this is and answers the request itself when it cannot be
// made. Callers book themselves; staff name the person in user_id. Either way that person must
// hold role.
func (h *Handler) target(c *gin.Context, req *CreateRequest, role models.Role) (uuid.UUID, bool) {
	if req.UserID == "" {
		switch {
		case middleware.CallerRole(c) == role:
			return middleware.CallerID(c), true
		case middleware.IsStaff(c):
			response.BadRequest(c, "user_id is required when staff book")
		default:
			response.Forbidden(c, "only a "+string(role)+" can make this booking")
		}
		return uuid.Nil, false
	}
	if !middleware.IsStaff(c) {
		response.Forbidden(c, "only staff may book for someone else")
		return uuid.Nil, false
	}

	id, _ := uuid.Parse(req.UserID)
	u, err := h.users.GetByID(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("load booking target", zap.String("user_id", id.String()), zap.Error(err))
		response.Internal(c, "failed to load user")
		return uuid.Nil, false
	}
	if u == nil {
		response.NotFound(c, "user not found")
		return uuid.Nil, false
	}
	if u.Role != role {
		response.BadRequest(c, "user is not a "+string(role))
		return uuid.Nil, false
	}
	return id, true
}

// Create handles POST /registrations (participants, or staff naming a participant in user_id).
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	activityID, _ := uuid.Parse(req.ActivityID)
	personID, ok := h.target(c, &req, models.RoleParticipant)
	if !ok {
		return
	}

	reg, err := h.lifecycle.CreateRegistration(c.Request.Context(), personID, activityID)
	if err != nil {
		h.writeError(c, "create registration", err)
		return
	}
	response.Created(c, reg)
}

// Cancel handles POST /registrations/:id/cancel (owner or staff).
func (h *Handler) Cancel(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid registration id")
		return
	}
	if err := h.lifecycle.CancelRegistration(c.Request.Context(), id, middleware.CallerID(c), middleware.IsStaff(c)); err != nil {
		h.writeError(c, "cancel registration", err)
		return
	}
	response.OK(c, gin.H{"id": id, "status": models.StatusCancelled})
}

// CreateMatch handles POST /matches (volunteers, or staff naming a volunteer in user_id).
func (h *Handler) CreateMatch(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	activityID, _ := uuid.Parse(req.ActivityID)
	volunteerID, ok := h.target(c, &req, models.RoleVolunteer)
	if !ok {
		return
	}

	m, err := h.lifecycle.CreateMatch(c.Request.Context(), volunteerID, activityID)
	if err != nil {
		h.writeError(c, "create match", err)
		return
	}
	response.Created(c, m)
}

// CancelMatch handles POST /matches/:id/cancel (volunteer or staff).
func (h *Handler) CancelMatch(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid match id")
		return
	}
	if err := h.lifecycle.CancelMatch(c.Request.Context(), id, middleware.CallerID(c), middleware.IsStaff(c)); err != nil {
		h.writeError(c, "cancel match", err)
		return
	}
	response.OK(c, gin.H{"id": id, "status": models.StatusCancelled})
}

// subject resolves :user_id, or the caller on /me routes. Only staff may read other users.
func subject(c *gin.Context) (uuid.UUID, bool) {
	caller := middleware.CallerID(c)
	raw := c.Param("user_id")
	if raw == "" {
		return caller, true
	}
	id, err := uuid.Parse(raw)
	if err != nil || (id != caller && !middleware.IsStaff(c)) {
		return uuid.Nil, false
	}
	return id, true
}

func statusFilter(c *gin.Context) (models.Status, bool) {
	s := models.Status(c.Query("status"))
	return s, s == "" || s == models.StatusConfirmed || s == models.StatusCancelled
}

// ListForUser handles GET /me/registrations and GET /users/:user_id/registrations.
func (h *Handler) ListForUser(c *gin.Context) {
	userID, ok := subject(c)
	if !ok {
		response.Forbidden(c, "cannot view another user's registrations")
		return
	}
	status, ok := statusFilter(c)
	if !ok {
		response.BadRequest(c, "invalid status")
		return
	}
	list, err := h.repo.ListByUser(c.Request.Context(), userID, status)
	if err != nil {
		h.writeError(c, "list registrations", err)
		return
	}
	response.OK(c, list)
}

// ListMatchesForUser handles GET /me/matches and GET /users/:user_id/matches.
func (h *Handler) ListMatchesForUser(c *gin.Context) {
	userID, ok := subject(c)
	if !ok {
		response.Forbidden(c, "cannot view another user's matches")
		return
	}
	status, ok := statusFilter(c)
	if !ok {
		response.BadRequest(c, "invalid status")
		return
	}
	list, err := h.repo.ListMatchesByVolunteer(c.Request.Context(), userID, status)
	if err != nil {
		h.writeError(c, "list matches", err)
		return
	}
	response.OK(c, list)
}

func (h *Handler) listAttendees(c *gin.Context, role models.Role) {
	activityID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid activity id")
		return
	}
	status, ok := statusFilter(c)
	if !ok {
		response.BadRequest(c, "invalid status")
		return
	}
	list, err := h.repo.ListAttendees(c.Request.Context(), activityID, role, status)
	if err != nil {
		h.writeError(c, "list attendees", err)
		return
	}
	response.OK(c, list)
}

// ListForActivity handles GET /activities/:id/registrations (staff only).
func (h *Handler) ListForActivity(c *gin.Context) {
	h.listAttendees(c, models.RoleParticipant)
}

// ListMatchesForActivity handles GET /activities/:id/matches (staff only).
func (h *Handler) ListMatchesForActivity(c *gin.Context) {
	h.listAttendees(c, models.RoleVolunteer)
}
