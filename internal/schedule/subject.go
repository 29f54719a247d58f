package schedule

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

// Subject is a recurring weekly class slot. Start and end are wall-clock
// "HH:MM" strings in the configured timezone; AttendanceWindow extends the
// eligible interval past the nominal end, in minutes.
type Subject struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Code             string    `json:"code"`
	DayOfWeek        string    `json:"day_of_week"`
	StartTime        string    `json:"start_time"`
	EndTime          string    `json:"end_time"`
	AttendanceWindow int       `json:"attendance_window"`
	CreatedAt        time.Time `json:"created_at"`
}

var (
	// ErrDuplicateCode is returned when a subject code already exists.
	ErrDuplicateCode = errors.New("subject code already exists")
	// ErrNotFound is returned when a referenced subject is absent.
	ErrNotFound = errors.New("subject not found")
)

// Validate checks the slot definition: known weekday, parseable clock
// times, start strictly before end, non-negative window.
func (s Subject) Validate() error {
	if !validDay(s.DayOfWeek) {
		return fmt.Errorf("invalid day of week %q", s.DayOfWeek)
	}
	start, err := parseClock(s.StartTime)
	if err != nil {
		return fmt.Errorf("invalid start time: %w", err)
	}
	end, err := parseClock(s.EndTime)
	if err != nil {
		return fmt.Errorf("invalid end time: %w", err)
	}
	if start >= end {
		return errors.New("start time must be before end time")
	}
	if s.AttendanceWindow < 0 {
		return errors.New("attendance window must not be negative")
	}
	return nil
}

func validDay(day string) bool {
	for d := time.Sunday; d <= time.Saturday; d++ {
		if day == d.String() {
			return true
		}
	}
	return false
}

// parseClock converts "HH:MM" to minutes since midnight.
func parseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}

// Repository persists subjects in Postgres. Read-mostly: the resolver only
// ever reads, mutation is an admin concern.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a subject, surfacing code collisions as ErrDuplicateCode.
func (r *Repository) Create(ctx context.Context, s Subject) (Subject, error) {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO subjects (id, name, code, day_of_week, start_time, end_time, attendance_window)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING created_at
	`, s.ID, s.Name, s.Code, s.DayOfWeek, s.StartTime, s.EndTime, s.AttendanceWindow)
	if err := row.Scan(&s.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return Subject{}, ErrDuplicateCode
		}
		return Subject{}, err
	}
	return s, nil
}

// List returns all subjects ordered by day then start time.
func (r *Repository) List(ctx context.Context) ([]Subject, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, code, day_of_week, start_time, end_time, attendance_window, created_at
		FROM subjects
		ORDER BY day_of_week, start_time
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Subject
	for rows.Next() {
		var s Subject
		if err := rows.Scan(&s.ID, &s.Name, &s.Code, &s.DayOfWeek, &s.StartTime, &s.EndTime, &s.AttendanceWindow, &s.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, rows.Err()
}

// Update rewrites a subject definition.
func (r *Repository) Update(ctx context.Context, s Subject) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE subjects
		SET name = $2, code = $3, day_of_week = $4, start_time = $5, end_time = $6, attendance_window = $7
		WHERE id = $1
	`, s.ID, s.Name, s.Code, s.DayOfWeek, s.StartTime, s.EndTime, s.AttendanceWindow)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateCode
		}
		return err
	}
	return notFoundOnZero(res)
}

// Delete removes a subject by id.
func (r *Repository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM subjects WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return notFoundOnZero(res)
}

func notFoundOnZero(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
