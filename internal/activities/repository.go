package activities

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/minds-hub/backend/internal/models"
	"github.com/minds-hub/backend/pkg/database"
)

var (
	ErrNotFound         = errors.New("activity not found")
	ErrCapacityTooLow   = errors.New("max_capacity cannot be lower than current participants")
	ErrHasRegistrations = errors.New("activity still has confirmed registrations")
)

var columnNames = []string{
	"id", "title", "description", "date", "start_time", "end_time", "location",
	"max_capacity", "current_participants", "program_type", "wheelchair_accessible",
	"payment_required", "created_by_staff_id",
	"title_zh", "title_ms", "title_ta", "description_zh", "description_ms", "description_ta",
	"created_at", "updated_at",
}

// Columns returns the activity select list, each column qualified with alias when given.
func Columns(alias string) string {
	if alias == "" {
		return strings.Join(columnNames, ", ")
	}
	qualified := make([]string, len(columnNames))
	for i, c := range columnNames {
		qualified[i] = alias + "." + c
	}
	return strings.Join(qualified, ", ")
}

// Row holds scan targets for one activity in the order of Columns.
type Row struct {
	a          models.Activity
	start, end pgtype.Time
}

// Targets returns the destinations for rows.Scan.
func (r *Row) Targets() []any {
	t := &r.a.Translations
	return []any{
		&r.a.ID, &r.a.Title, &r.a.Description, &r.a.Date, &r.start, &r.end, &r.a.Location,
		&r.a.MaxCapacity, &r.a.CurrentParticipants, &r.a.ProgramType, &r.a.WheelchairAccessible,
		&r.a.PaymentRequired, &r.a.CreatedByStaffID,
		&t.TitleZh, &t.TitleMs, &t.TitleTa, &t.DescriptionZh, &t.DescriptionMs, &t.DescriptionTa,
		&r.a.CreatedAt, &r.a.UpdatedAt,
	}
}

// Activity returns the scanned activity.
func (r *Row) Activity() models.Activity {
	a := r.a
	a.StartTime = database.FromPGTime(r.start)
	a.EndTime = database.FromPGTime(r.end)
	return a
}

// Scan reads a single activity row. It returns nil, nil when there is no row.
func Scan(row pgx.Row) (*models.Activity, error) {
	var r Row
	if err := row.Scan(r.Targets()...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	a := r.Activity()
	return &a, nil
}

func collect(rows pgx.Rows) ([]models.Activity, error) {
	defer rows.Close()
	list := []models.Activity{}
	for rows.Next() {
		var r Row
		if err := rows.Scan(r.Targets()...); err != nil {
			return nil, err
		}
		list = append(list, r.Activity())
	}
	return list, rows.Err()
}

// Filter narrows List. Zero fields do not filter.
type Filter struct {
	From        *time.Time
	To          *time.Time
	ProgramType string
	Limit       int
	Offset      int
}

// Repository handles activity persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an activity repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a new activity.
func (r *Repository) Create(ctx context.Context, a *models.Activity) error {
	const q = `INSERT INTO activities (title, description, date, start_time, end_time, location, max_capacity,
			program_type, wheelchair_accessible, payment_required, created_by_staff_id,
			title_zh, title_ms, title_ta, description_zh, description_ms, description_ta)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		RETURNING id, current_participants, created_at, updated_at`
	t := a.Translations
	return r.pool.QueryRow(ctx, q,
		a.Title, a.Description, a.Date, database.PGTime(a.StartTime), database.PGTime(a.EndTime), a.Location, a.MaxCapacity,
		a.ProgramType, a.WheelchairAccessible, a.PaymentRequired, a.CreatedByStaffID,
		t.TitleZh, t.TitleMs, t.TitleTa, t.DescriptionZh, t.DescriptionMs, t.DescriptionTa,
	).Scan(&a.ID, &a.CurrentParticipants, &a.CreatedAt, &a.UpdatedAt)
}

// GetByID returns an activity by ID, or nil when it does not exist.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Activity, error) {
	a, err := Scan(r.pool.QueryRow(ctx, `SELECT `+Columns("")+` FROM activities WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("get activity: %w", err)
	}
	return a, nil
}

// List returns activities ordered by date and start time.
func (r *Repository) List(ctx context.Context, f Filter) ([]models.Activity, error) {
	var (
		conds []string
		args  []any
	)
	if f.From != nil {
		args = append(args, *f.From)
		conds = append(conds, fmt.Sprintf("date >= $%d", len(args)))
	}
	if f.To != nil {
		args = append(args, *f.To)
		conds = append(conds, fmt.Sprintf("date <= $%d", len(args)))
	}
	if f.ProgramType != "" {
		args = append(args, f.ProgramType)
		conds = append(conds, fmt.Sprintf("program_type = $%d", len(args)))
	}
	q := `SELECT ` + Columns("") + ` FROM activities`
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY date, start_time"
	if f.Limit > 0 {
		args = append(args, f.Limit)
		q += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if f.Offset > 0 {
		args = append(args, f.Offset)
		q += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	return collect(rows)
}

// Update loads the activity under a row lock, lets apply modify it, and writes it back.
// The lock keeps a concurrent registration from slipping past a capacity reduction.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, apply func(a *models.Activity) error) (a *models.Activity, err error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	a, err = Scan(tx.QueryRow(ctx, `SELECT `+Columns("")+` FROM activities WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, fmt.Errorf("lock activity: %w", err)
	}
	if a == nil {
		return nil, ErrNotFound
	}
	if err = apply(a); err != nil {
		return nil, err
	}
	if a.MaxCapacity < a.CurrentParticipants {
		return nil, ErrCapacityTooLow
	}

	const q = `UPDATE activities SET title = $2, description = $3, date = $4, start_time = $5, end_time = $6,
			location = $7, max_capacity = $8, program_type = $9, wheelchair_accessible = $10, payment_required = $11,
			title_zh = $12, title_ms = $13, title_ta = $14, description_zh = $15, description_ms = $16, description_ta = $17,
			updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`
	t := a.Translations
	if err = tx.QueryRow(ctx, q, id,
		a.Title, a.Description, a.Date, database.PGTime(a.StartTime), database.PGTime(a.EndTime),
		a.Location, a.MaxCapacity, a.ProgramType, a.WheelchairAccessible, a.PaymentRequired,
		t.TitleZh, t.TitleMs, t.TitleTa, t.DescriptionZh, t.DescriptionMs, t.DescriptionTa,
	).Scan(&a.UpdatedAt); err != nil {
		return nil, fmt.Errorf("update activity: %w", err)
	}
	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return a, nil
}

// Delete removes an activity that has no confirmed registrations. Its cancelled registrations
// and matches go with it.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) (err error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	var locked uuid.UUID
	if err = tx.QueryRow(ctx, `SELECT id FROM activities WHERE id = $1 FOR UPDATE`, id).Scan(&locked); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = ErrNotFound
			return err
		}
		return fmt.Errorf("lock activity: %w", err)
	}
	var confirmed int
	if err = tx.QueryRow(ctx, `SELECT COUNT(*) FROM registrations WHERE activity_id = $1 AND status = 'confirmed'`, id).Scan(&confirmed); err != nil {
		return fmt.Errorf("count registrations: %w", err)
	}
	if confirmed > 0 {
		err = ErrHasRegistrations
		return err
	}
	if _, err = tx.Exec(ctx, `DELETE FROM activities WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete activity: %w", err)
	}
	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// AvailableForVolunteer lists activities dated on or after from that the volunteer has no
// confirmed match for. accessibleOnly keeps wheelchair-accessible activities only.
func (r *Repository) AvailableForVolunteer(ctx context.Context, volunteerID uuid.UUID, from time.Time, accessibleOnly bool) ([]models.Activity, error) {
	q := `SELECT ` + Columns("a") + `
		FROM activities a
		WHERE a.date >= $1
		  AND NOT EXISTS (
			SELECT 1 FROM volunteer_matches vm
			WHERE vm.activity_id = a.id AND vm.volunteer_id = $2 AND vm.status = 'confirmed'
		  )`
	if accessibleOnly {
		q += ` AND a.wheelchair_accessible`
	}
	q += ` ORDER BY a.date, a.start_time`
	rows, err := r.pool.Query(ctx, q, from, volunteerID)
	if err != nil {
		return nil, fmt.Errorf("list available activities: %w", err)
	}
	return collect(rows)
}
