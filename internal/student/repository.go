package student

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"faceattend/internal/face"
)

// Student is an enrolled person. Exactly one descriptor is held per
// student; it is written at registration and never mutated afterwards.
type Student struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	RollNumber   string    `json:"roll_number"`
	PhotoURL     *string   `json:"photo_url,omitempty"`
	RegisteredAt time.Time `json:"registered_at"`
}

var (
	// ErrDuplicateRoll is returned when a roll number is already enrolled.
	ErrDuplicateRoll = errors.New("roll number already exists")
	// ErrNotFound is returned when a referenced student is absent.
	ErrNotFound = errors.New("student not found")
)

// Repository owns student records and their descriptors exclusively.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Create enrolls a student with their descriptor and credential hash.
func (r *Repository) Create(ctx context.Context, s Student, passwordHash string, descriptor face.Descriptor) (Student, error) {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO students (id, name, roll_number, password_hash, encoding, photo_url)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING registered_at
	`, s.ID, s.Name, s.RollNumber, passwordHash, face.EncodeDescriptor(descriptor), s.PhotoURL)
	if err := row.Scan(&s.RegisteredAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Student{}, ErrDuplicateRoll
		}
		return Student{}, err
	}
	return s, nil
}

// List returns all students without descriptors.
func (r *Repository) List(ctx context.Context) ([]Student, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, roll_number, photo_url, registered_at
		FROM students
		ORDER BY registered_at, roll_number
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Student
	for rows.Next() {
		var s Student
		if err := rows.Scan(&s.ID, &s.Name, &s.RollNumber, &s.PhotoURL, &s.RegisteredAt); err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, rows.Err()
}

// Candidates returns every enrollee with their descriptor in ascending
// enrollment order. The matcher depends on this order being stable.
func (r *Repository) Candidates(ctx context.Context) ([]face.Candidate, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, roll_number, name, encoding
		FROM students
		ORDER BY registered_at, roll_number
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []face.Candidate
	for rows.Next() {
		var c face.Candidate
		var raw []byte
		if err := rows.Scan(&c.StudentID, &c.RollNumber, &c.Name, &raw); err != nil {
			return nil, err
		}
		if c.Descriptor, err = face.DecodeDescriptor(raw); err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

// Candidate returns a single enrollee with their descriptor, for the
// self-verification path.
func (r *Repository) Candidate(ctx context.Context, id string) (face.Candidate, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, roll_number, name, encoding
		FROM students WHERE id = $1
	`, id)
	var c face.Candidate
	var raw []byte
	if err := row.Scan(&c.StudentID, &c.RollNumber, &c.Name, &raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return face.Candidate{}, ErrNotFound
		}
		return face.Candidate{}, err
	}
	var err error
	if c.Descriptor, err = face.DecodeDescriptor(raw); err != nil {
		return face.Candidate{}, err
	}
	return c, nil
}

// Update changes name and roll number, and the password hash when one is
// provided. The descriptor is immutable.
func (r *Repository) Update(ctx context.Context, id, name, rollNumber string, passwordHash *string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE students
		SET name = $2, roll_number = $3, password_hash = COALESCE($4, password_hash)
		WHERE id = $1
	`, id, name, rollNumber, passwordHash)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateRoll
		}
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a student. Their attendance rows go with them via the
// schema's cascade.
func (r *Repository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM students WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
