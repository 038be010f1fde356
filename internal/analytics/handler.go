package analytics

import (
	"context"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/minds-hub/backend/pkg/response"
	"github.com/minds-hub/backend/pkg/timerange"
)

const (
	maxAttendanceSpan = 366 * 24 * time.Hour
	defaultTrendWeeks = 4
	maxTrendWeeks     = 52
)

// Source runs the reporting queries.
type Source interface {
	Totals(ctx context.Context, today time.Time) (*Totals, error)
	Attendance(ctx context.Context, from, to time.Time) ([]Attendance, error)
	WeeklyTrends(ctx context.Context, today time.Time, weeks int) ([]WeekCount, error)
	ProgramBreakdown(ctx context.Context) (map[string]int, error)
}

// Trends is the body of GET /analytics/trends.
type Trends struct {
	Weekly   []WeekCount    `json:"weekly_registrations"`
	Programs map[string]int `json:"program_breakdown"`
}

// Handler handles the staff analytics endpoints.
type Handler struct {
	source Source
	logger *zap.Logger
	now    func() time.Time
}

// NewHandler creates an analytics handler.
func NewHandler(source Source, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{source: source, logger: logger, now: time.Now}
}

// Summary handles GET /analytics/summary.
func (h *Handler) Summary(c *gin.Context) {
	t, err := h.source.Totals(c.Request.Context(), timerange.DateOf(h.now()))
	if err != nil {
		h.logger.Error("analytics summary failed", zap.Error(err))
		response.Internal(c, "failed to load analytics")
		return
	}
	response.OK(c, t)
}

// Attendance handles GET /analytics/attendance?from=YYYY-MM-DD&to=YYYY-MM-DD. Defaults to the
// 30 days either side of today.
func (h *Handler) Attendance(c *gin.Context) {
	today := timerange.DateOf(h.now())
	from, to := today.AddDate(0, 0, -30), today.AddDate(0, 0, 30)
	if raw := c.Query("from"); raw != "" {
		d, err := timerange.ParseDate(raw)
		if err != nil {
			response.BadRequest(c, "from must be YYYY-MM-DD")
			return
		}
		from = d
	}
	if raw := c.Query("to"); raw != "" {
		d, err := timerange.ParseDate(raw)
		if err != nil {
			response.BadRequest(c, "to must be YYYY-MM-DD")
			return
		}
		to = d
	}
	if to.Before(from) || to.Sub(from) > maxAttendanceSpan {
		response.BadRequest(c, "from must precede to by at most a year")
		return
	}

	list, err := h.source.Attendance(c.Request.Context(), from, to)
	if err != nil {
		h.logger.Error("attendance report failed", zap.Error(err))
		response.Internal(c, "failed to load attendance")
		return
	}
	response.OK(c, list)
}

// Trends handles GET /analytics/trends?weeks=N (default 4, at most 52).
func (h *Handler) Trends(c *gin.Context) {
	weeks := defaultTrendWeeks
	if raw := c.Query("weeks"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxTrendWeeks {
			response.BadRequest(c, "weeks must be between 1 and 52")
			return
		}
		weeks = n
	}

	var out Trends
	today := timerange.DateOf(h.now())
	g, ctx := errgroup.WithContext(c.Request.Context())
	g.Go(func() (err error) {
		out.Weekly, err = h.source.WeeklyTrends(ctx, today, weeks)
		return err
	})
	g.Go(func() (err error) {
		out.Programs, err = h.source.ProgramBreakdown(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		h.logger.Error("analytics trends failed", zap.Error(err))
		response.Internal(c, "failed to load trends")
		return
	}
	response.OK(c, out)
}
