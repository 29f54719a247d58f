package attendance

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Record is an immutable attendance fact. SubjectID is nil for the
// no-active-class case; MarkedOn is the calendar day in the configured
// timezone and carries the daily-uniqueness constraint together with
// student and subject.
type Record struct {
	ID           string    `json:"id"`
	StudentID    string    `json:"student_id"`
	SubjectID    *string   `json:"subject_id,omitempty"`
	MarkedAt     time.Time `json:"marked_at"`
	MarkedOn     string    `json:"marked_on"`
	Status       string    `json:"status"`
	LocationInfo string    `json:"location_info,omitempty"`
}

// Row is a query result joined with student and subject display fields.
type Row struct {
	StudentName string    `json:"name"`
	RollNumber  string    `json:"roll_number"`
	MarkedAt    time.Time `json:"timestamp"`
	Status      string    `json:"status"`
	SubjectName string    `json:"subject_name"`
	SubjectCode string    `json:"subject_code"`
}

// Stats summarises attendance for the admin dashboard.
type Stats struct {
	TotalStudents   int `json:"total_students"`
	TodayPresent    int `json:"today_present"`
	TodayAbsent     int `json:"today_absent"`
	TotalSubjects   int `json:"total_subjects"`
	MonthAttendance int `json:"month_attendance"`
}

// Repository owns attendance record creation exclusively.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Insert appends a record. For subject-bound records the partial unique
// index on (student_id, subject_id, marked_on) makes the check-and-insert
// a single atomic statement: a duplicate day simply inserts nothing and is
// reported as inserted=false. Subjectless records are outside the index
// and therefore always append.
func (r *Repository) Insert(ctx context.Context, rec Record) (Record, bool, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Status == "" {
		rec.Status = "Present"
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO attendance (id, student_id, subject_id, marked_at, marked_on, status, location_info)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT DO NOTHING
		RETURNING id
	`, rec.ID, rec.StudentID, rec.SubjectID, rec.MarkedAt, rec.MarkedOn, rec.Status, rec.LocationInfo)
	var id string
	if err := row.Scan(&id); err != nil {
		if err == sql.ErrNoRows {
			return Record{}, false, nil
		}
		return Record{}, false, err
	}
	return rec, true, nil
}

// Query returns records for a calendar day, optionally narrowed to one
// subject and/or one student. studentID empty means all students (admin
// scope).
func (r *Repository) Query(ctx context.Context, day, subjectID, studentID string) ([]Row, error) {
	query := `
		SELECT s.name, s.roll_number, a.marked_at, a.status,
		       COALESCE(sub.name, 'N/A'), COALESCE(sub.code, 'N/A')
		FROM attendance a
		JOIN students s ON a.student_id = s.id
		LEFT JOIN subjects sub ON a.subject_id = sub.id
		WHERE a.marked_on = $1`
	args := []any{day}
	if subjectID != "" {
		args = append(args, subjectID)
		query += ` AND a.subject_id = $2`
	}
	if studentID != "" {
		args = append(args, studentID)
		if subjectID != "" {
			query += ` AND a.student_id = $3`
		} else {
			query += ` AND a.student_id = $2`
		}
	}
	query += ` ORDER BY a.marked_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Row
	for rows.Next() {
		var row Row
		if err := rows.Scan(&row.StudentName, &row.RollNumber, &row.MarkedAt, &row.Status, &row.SubjectName, &row.SubjectCode); err != nil {
			return nil, err
		}
		res = append(res, row)
	}
	return res, rows.Err()
}

// HistoryRow is one line of a student's full history.
type HistoryRow struct {
	Date        string    `json:"date"`
	MarkedAt    time.Time `json:"timestamp"`
	Status      string    `json:"status"`
	SubjectName string    `json:"subject_name"`
	SubjectCode string    `json:"subject_code"`
}

// History returns a student's complete attendance, newest first.
func (r *Repository) History(ctx context.Context, studentID string) ([]HistoryRow, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT a.marked_on::text, a.marked_at, a.status,
		       COALESCE(sub.name, 'N/A'), COALESCE(sub.code, 'N/A')
		FROM attendance a
		LEFT JOIN subjects sub ON a.subject_id = sub.id
		WHERE a.student_id = $1
		ORDER BY a.marked_at DESC
	`, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []HistoryRow
	for rows.Next() {
		var row HistoryRow
		if err := rows.Scan(&row.Date, &row.MarkedAt, &row.Status, &row.SubjectName, &row.SubjectCode); err != nil {
			return nil, err
		}
		res = append(res, row)
	}
	return res, rows.Err()
}

// StatsFor computes dashboard figures for the given day in the configured
// zone.
func (r *Repository) StatsFor(ctx context.Context, today time.Time) (Stats, error) {
	var st Stats
	day := today.Format("2006-01-02")
	monthStart := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, today.Location()).Format("2006-01-02")
	nextMonth := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, today.Location()).AddDate(0, 1, 0).Format("2006-01-02")

	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM students`).Scan(&st.TotalStudents); err != nil {
		return Stats{}, err
	}
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(DISTINCT student_id) FROM attendance WHERE marked_on = $1`, day).Scan(&st.TodayPresent); err != nil {
		return Stats{}, err
	}
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM subjects`).Scan(&st.TotalSubjects); err != nil {
		return Stats{}, err
	}
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM attendance WHERE marked_on >= $1 AND marked_on < $2`,
		monthStart, nextMonth).Scan(&st.MonthAttendance); err != nil {
		return Stats{}, err
	}
	st.TodayAbsent = st.TotalStudents - st.TodayPresent
	return st, nil
}
