package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/minds-hub/backend/pkg/database"
	"github.com/minds-hub/backend/pkg/timerange"
)

// Totals is the staff dashboard summary.
type Totals struct {
	Activities              int     `json:"total_activities"`
	UpcomingActivities      int     `json:"upcoming_activities"`
	ConfirmedRegistrations  int     `json:"confirmed_registrations"`
	CancelledRegistrations  int     `json:"cancelled_registrations"`
	Participants            int     `json:"participants"`
	Volunteers              int     `json:"volunteers"`
	UpcomingWithVolunteer   int     `json:"upcoming_with_volunteer"`
	VolunteerCoveragePct    float64 `json:"volunteer_coverage_percent"`
	UpcomingSeatsTaken      int     `json:"upcoming_seats_taken"`
	UpcomingSeatsTotal      int     `json:"upcoming_seats_total"`
	UpcomingFillRatePercent float64 `json:"upcoming_fill_rate_percent"`
}

// finish derives the percentages from the counts.
func (t *Totals) finish() {
	t.VolunteerCoveragePct = percent(t.UpcomingWithVolunteer, t.UpcomingActivities)
	t.UpcomingFillRatePercent = percent(t.UpcomingSeatsTaken, t.UpcomingSeatsTotal)
}

func percent(part, whole int) float64 {
	if whole <= 0 {
		return 0
	}
	return float64(int(float64(part)/float64(whole)*1000+0.5)) / 10
}

// Attendance is one activity's bookings.
type Attendance struct {
	ActivityID          uuid.UUID           `json:"activity_id"`
	Title               string              `json:"title"`
	ProgramType         string              `json:"program_type"`
	Date                string              `json:"date"`
	StartTime           timerange.TimeOfDay `json:"start_time"`
	EndTime             timerange.TimeOfDay `json:"end_time"`
	CurrentParticipants int                 `json:"current_participants"`
	MaxCapacity         int                 `json:"max_capacity"`
	Volunteers          int                 `json:"volunteers"`
	Cancellations       int                 `json:"cancellations"`
	FillRatePercent     float64             `json:"fill_rate_percent"`
}

// WeekCount is the confirmed registrations for activities dated within one week.
type WeekCount struct {
	WeekStart     string `json:"week_start"`
	WeekEnd       string `json:"week_end"`
	Registrations int    `json:"registrations"`
}

// Uncategorized labels activities without a program type.
const Uncategorized = "Uncategorized"

// trendWindows returns the weeks seven-day windows ending the day before today, oldest first.
func trendWindows(today time.Time, weeks int) []WeekCount {
	out := make([]WeekCount, weeks)
	for i := 0; i < weeks; i++ {
		start := today.AddDate(0, 0, -7*(i+1))
		out[weeks-1-i] = WeekCount{
			WeekStart: start.Format(time.DateOnly),
			WeekEnd:   start.AddDate(0, 0, 6).Format(time.DateOnly),
		}
	}
	return out
}

// Repository runs the reporting queries.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an analytics repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Totals computes the dashboard counts as of today, running the queries concurrently.
func (r *Repository) Totals(ctx context.Context, today time.Time) (*Totals, error) {
	var t Totals
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		const q = `SELECT COUNT(*),
				COUNT(*) FILTER (WHERE date >= $1),
				COALESCE(SUM(current_participants) FILTER (WHERE date >= $1), 0),
				COALESCE(SUM(max_capacity) FILTER (WHERE date >= $1), 0)
			FROM activities`
		return r.pool.QueryRow(ctx, q, today).Scan(&t.Activities, &t.UpcomingActivities, &t.UpcomingSeatsTaken, &t.UpcomingSeatsTotal)
	})
	g.Go(func() error {
		const q = `SELECT COUNT(*) FILTER (WHERE status = 'confirmed'), COUNT(*) FILTER (WHERE status = 'cancelled')
			FROM registrations`
		return r.pool.QueryRow(ctx, q).Scan(&t.ConfirmedRegistrations, &t.CancelledRegistrations)
	})
	g.Go(func() error {
		const q = `SELECT COUNT(*) FILTER (WHERE role = 'participant'), COUNT(*) FILTER (WHERE role = 'volunteer')
			FROM users`
		return r.pool.QueryRow(ctx, q).Scan(&t.Participants, &t.Volunteers)
	})
	g.Go(func() error {
		const q = `SELECT COUNT(DISTINCT a.id) FROM activities a
			JOIN volunteer_matches vm ON vm.activity_id = a.id AND vm.status = 'confirmed'
			WHERE a.date >= $1`
		return r.pool.QueryRow(ctx, q, today).Scan(&t.UpcomingWithVolunteer)
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("analytics totals: %w", err)
	}
	t.finish()
	return &t, nil
}

// Attendance lists per-activity bookings for activities dated within [from, to].
func (r *Repository) Attendance(ctx context.Context, from, to time.Time) ([]Attendance, error) {
	const q = `SELECT a.id, a.title, COALESCE(a.program_type, ''), a.date, a.start_time, a.end_time,
			a.current_participants, a.max_capacity,
			(SELECT COUNT(*) FROM volunteer_matches vm WHERE vm.activity_id = a.id AND vm.status = 'confirmed'),
			(SELECT COUNT(*) FROM registrations r WHERE r.activity_id = a.id AND r.status = 'cancelled')
		FROM activities a
		WHERE a.date BETWEEN $1 AND $2
		ORDER BY a.date, a.start_time`
	rows, err := r.pool.Query(ctx, q, from, to)
	if err != nil {
		return nil, fmt.Errorf("attendance: %w", err)
	}
	defer rows.Close()

	list := []Attendance{}
	for rows.Next() {
		var (
			a          Attendance
			date       time.Time
			start, end pgtype.Time
		)
		if err := rows.Scan(&a.ActivityID, &a.Title, &a.ProgramType, &date, &start, &end,
			&a.CurrentParticipants, &a.MaxCapacity, &a.Volunteers, &a.Cancellations); err != nil {
			return nil, fmt.Errorf("scan attendance: %w", err)
		}
		a.Date = date.Format(time.DateOnly)
		a.StartTime, a.EndTime = database.FromPGTime(start), database.FromPGTime(end)
		a.FillRatePercent = percent(a.CurrentParticipants, a.MaxCapacity)
		list = append(list, a)
	}
	return list, rows.Err()
}

// WeeklyTrends counts confirmed registrations per week over the last weeks weeks, oldest first.
// Week i (0 = most recent) covers the dates today-7(i+1) through today-7i-1.
func (r *Repository) WeeklyTrends(ctx context.Context, today time.Time, weeks int) ([]WeekCount, error) {
	trend := trendWindows(today, weeks)
	const q = `SELECT ($1::date - a.date - 1) / 7 AS week, COUNT(*)
		FROM registrations r JOIN activities a ON a.id = r.activity_id
		WHERE r.status = 'confirmed' AND a.date >= $1::date - $2::int * 7 AND a.date < $1::date
		GROUP BY week`
	rows, err := r.pool.Query(ctx, q, today, weeks)
	if err != nil {
		return nil, fmt.Errorf("weekly trends: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var week, n int
		if err := rows.Scan(&week, &n); err != nil {
			return nil, fmt.Errorf("scan weekly trend: %w", err)
		}
		if i := weeks - 1 - week; i >= 0 && i < weeks {
			trend[i].Registrations = n
		}
	}
	return trend, rows.Err()
}

// ProgramBreakdown counts activities per program type.
func (r *Repository) ProgramBreakdown(ctx context.Context) (map[string]int, error) {
	const q = `SELECT COALESCE(NULLIF(program_type, ''), '` + Uncategorized + `'), COUNT(*)
		FROM activities GROUP BY 1`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("program breakdown: %w", err)
	}
	defer rows.Close()

	out := map[string]int{}
	for rows.Next() {
		var (
			program string
			n       int
		)
		if err := rows.Scan(&program, &n); err != nil {
			return nil, fmt.Errorf("scan program breakdown: %w", err)
		}
		out[program] = n
	}
	return out, rows.Err()
}
