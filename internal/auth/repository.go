package auth

import (
	"context"
	"database/sql"
	"errors"
)

// Account is a credential row, admin or student.
type Account struct {
	ID           string
	Name         string
	PasswordHash string
}

// ErrAccountNotFound is returned when no account matches an identifier.
var ErrAccountNotFound = errors.New("account not found")

// Repository reads and updates credentials for both principal kinds.
// Students are looked up by roll number, admins by username.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// AdminByUsername returns an admin account.
func (r *Repository) AdminByUsername(ctx context.Context, username string) (Account, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, username, password_hash FROM admins WHERE username = $1`, username)
	return scanAccount(row)
}

// StudentByRoll returns a student account.
func (r *Repository) StudentByRoll(ctx context.Context, rollNumber string) (Account, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, name, password_hash FROM students WHERE roll_number = $1`, rollNumber)
	return scanAccount(row)
}

func scanAccount(row *sql.Row) (Account, error) {
	var a Account
	if err := row.Scan(&a.ID, &a.Name, &a.PasswordHash); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Account{}, ErrAccountNotFound
		}
		return Account{}, err
	}
	return a, nil
}

// EnsureAdmin seeds an admin account when none exists under the username.
// An existing account keeps its password.
func (r *Repository) EnsureAdmin(ctx context.Context, username, passwordHash string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO admins (username, password_hash)
		VALUES ($1, $2)
		ON CONFLICT (username) DO NOTHING
	`, username, passwordHash)
	return err
}

// SetPassword replaces the password hash for the given principal kind.
func (r *Repository) SetPassword(ctx context.Context, role, id, hash string) error {
	table := "students"
	if role == RoleAdmin {
		table = "admins"
	}
	res, err := r.db.ExecContext(ctx, `UPDATE `+table+` SET password_hash = $2 WHERE id = $1`, id, hash)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrAccountNotFound
	}
	return nil
}
