package activities

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/minds-hub/backend/internal/middleware"
	"github.com/minds-hub/backend/internal/models"
	"github.com/minds-hub/backend/pkg/response"
	"github.com/minds-hub/backend/pkg/timerange"
)

const maxPageSize = 100

// CapacityFeed receives capacity after a staff edit.
type CapacityFeed interface {
	PublishCapacity(activityID uuid.UUID, current, max int)
}

// Request is the body for POST /activities and PUT /activities/:id.
type Request struct {
	Title                string              `json:"title" binding:"required"`
	Description          string              `json:"description"`
	Date                 string              `json:"date" binding:"required"`
	StartTime            timerange.TimeOfDay `json:"start_time"`
	EndTime              timerange.TimeOfDay `json:"end_time"`
	Location             string              `json:"location"`
	MaxCapacity          int                 `json:"max_capacity" binding:"required"`
	ProgramType          string              `json:"program_type"`
	WheelchairAccessible *bool               `json:"wheelchair_accessible"`
	PaymentRequired      bool                `json:"payment_required"`
	Translations         models.Translations `json:"translations"`
}

// apply validates req against today and copies it onto a. Participant counts are untouched.
func (req *Request) apply(a *models.Activity, today time.Time) error {
	date, err := timerange.ParseDate(req.Date)
	if err != nil {
		return errors.New("date must be YYYY-MM-DD")
	}
	if date.Before(timerange.DateOf(today)) {
		return errors.New("date cannot be in the past")
	}
	if !(timerange.Range{Start: req.StartTime, End: req.EndTime}).Valid() {
		return errors.New("start_time must be before end_time")
	}
	if req.MaxCapacity <= 0 {
		return errors.New("max_capacity must be positive")
	}

	a.Title = req.Title
	a.Description = req.Description
	a.Date = date
	a.StartTime = req.StartTime
	a.EndTime = req.EndTime
	a.Location = req.Location
	a.MaxCapacity = req.MaxCapacity
	a.ProgramType = req.ProgramType
	a.WheelchairAccessible = req.WheelchairAccessible == nil || *req.WheelchairAccessible
	a.PaymentRequired = req.PaymentRequired
	a.Translations = req.Translations
	return nil
}

// ActivityView adds derived fields for clients.
type ActivityView struct {
	models.Activity
	AvailableSpots int  `json:"available_spots"`
	IsFull         bool `json:"is_full"`
}

func view(a models.Activity) ActivityView {
	return ActivityView{Activity: a, AvailableSpots: a.AvailableSpots(), IsFull: a.IsFull()}
}

func views(list []models.Activity) []ActivityView {
	out := make([]ActivityView, len(list))
	for i, a := range list {
		out[i] = view(a)
	}
	return out
}

// UserLookup loads the caller's profile.
type UserLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Handler handles activity HTTP endpoints.
type Handler struct {
	repo   *Repository
	users  UserLookup
	feed   CapacityFeed
	logger *zap.Logger
	now    func() time.Time
}

// NewHandler creates an activity handler. feed may be nil.
func NewHandler(repo *Repository, users UserLookup, feed CapacityFeed, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, users: users, feed: feed, logger: logger, now: time.Now}
}

// List handles GET /activities. Query: from, to (YYYY-MM-DD), program_type, limit, offset.
func (h *Handler) List(c *gin.Context) {
	var f Filter
	for _, p := range []struct {
		key string
		dst **time.Time
	}{{"from", &f.From}, {"to", &f.To}} {
		if s := c.Query(p.key); s != "" {
			d, err := timerange.ParseDate(s)
			if err != nil {
				response.BadRequest(c, "invalid "+p.key)
				return
			}
			*p.dst = &d
		}
	}
	f.ProgramType = c.Query("program_type")
	f.Limit = maxPageSize
	if s := c.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			response.BadRequest(c, "invalid limit")
			return
		}
		if n < maxPageSize {
			f.Limit = n
		}
	}
	if s := c.Query("offset"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			response.BadRequest(c, "invalid offset")
			return
		}
		f.Offset = n
	}

	list, err := h.repo.List(c.Request.Context(), f)
	if err != nil {
		h.logger.Error("list activities", zap.Error(err))
		response.Internal(c, "failed to list activities")
		return
	}
	response.OK(c, views(list))
}

// GetByID handles GET /activities/:id.
func (h *Handler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid activity id")
		return
	}
	a, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("get activity", zap.Error(err))
		response.Internal(c, "failed to load activity")
		return
	}
	if a == nil {
		response.NotFound(c, "activity not found")
		return
	}
	response.OK(c, view(*a))
}

// Create handles POST /activities (staff only).
func (h *Handler) Create(c *gin.Context) {
	var req Request
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	a := &models.Activity{}
	if err := req.apply(a, h.now()); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	staffID := middleware.CallerID(c)
	a.CreatedByStaffID = &staffID

	if err := h.repo.Create(c.Request.Context(), a); err != nil {
		h.logger.Error("create activity", zap.Error(err))
		response.Internal(c, "failed to create activity")
		return
	}
	h.logger.Info("activity created", zap.String("activity_id", a.ID.String()), zap.String("staff_id", staffID.String()))
	response.Created(c, view(*a))
}

// Update handles PUT /activities/:id (staff only).
func (h *Handler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid activity id")
		return
	}
	var req Request
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	var invalid error
	a, err := h.repo.Update(c.Request.Context(), id, func(a *models.Activity) error {
		if err := req.apply(a, h.now()); err != nil {
			invalid = err
			return err
		}
		return nil
	})
	switch {
	case invalid != nil:
		response.BadRequest(c, invalid.Error())
		return
	case errors.Is(err, ErrNotFound):
		response.NotFound(c, "activity not found")
		return
	case errors.Is(err, ErrCapacityTooLow):
		response.Conflict(c, err.Error())
		return
	case err != nil:
		h.logger.Error("update activity", zap.Error(err))
		response.Internal(c, "failed to update activity")
		return
	}
	if h.feed != nil {
		h.feed.PublishCapacity(a.ID, a.CurrentParticipants, a.MaxCapacity)
	}
	response.OK(c, view(*a))
}

// Delete handles DELETE /activities/:id (staff only).
func (h *Handler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid activity id")
		return
	}
	switch err := h.repo.Delete(c.Request.Context(), id); {
	case errors.Is(err, ErrNotFound):
		response.NotFound(c, "activity not found")
	case errors.Is(err, ErrHasRegistrations):
		response.Conflict(c, "cannot delete an activity with confirmed registrations; cancel them first")
	case err != nil:
		h.logger.Error("delete activity", zap.Error(err))
		response.Internal(c, "failed to delete activity")
	default:
		h.logger.Info("activity deleted", zap.String("activity_id", id.String()))
		response.NoContent(c)
	}
}

// Available handles GET /volunteer/activities (volunteers): upcoming activities the caller
// is not matched to, limited to accessible ones when the volunteer needs them.
func (h *Handler) Available(c *gin.Context) {
	volunteerID := middleware.CallerID(c)
	u, err := h.users.GetByID(c.Request.Context(), volunteerID)
	if err != nil {
		h.logger.Error("load volunteer profile", zap.Error(err))
		response.Internal(c, "failed to load profile")
		return
	}
	accessibleOnly := u != nil && u.WheelchairRequired
	list, err := h.repo.AvailableForVolunteer(c.Request.Context(), volunteerID, timerange.DateOf(h.now()), accessibleOnly)
	if err != nil {
		h.logger.Error("list available activities", zap.Error(err))
		response.Internal(c, "failed to list activities")
		return
	}
	response.OK(c, views(list))
}
