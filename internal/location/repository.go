package location

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
)

// Location is auxiliary context attached informationally to attendance
// events. No geofencing is computed from it.
type Location struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	WifiSSID  *string  `json:"wifi_ssid,omitempty"`
	IPRange   *string  `json:"ip_range,omitempty"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	Radius    int      `json:"radius"`
}

// ErrNotFound is returned when a referenced location is absent or already
// deactivated.
var ErrNotFound = errors.New("location not found")

// Repository persists locations with soft deletion via is_active.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a location.
func (r *Repository) Create(ctx context.Context, l Location) (Location, error) {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	if l.Radius <= 0 {
		l.Radius = 100
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO locations (id, name, wifi_ssid, ip_range, latitude, longitude, radius)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, l.ID, l.Name, l.WifiSSID, l.IPRange, l.Latitude, l.Longitude, l.Radius)
	if err != nil {
		return Location{}, err
	}
	return l, nil
}

// List returns active locations only.
func (r *Repository) List(ctx context.Context) ([]Location, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, wifi_ssid, ip_range, latitude, longitude, radius
		FROM locations
		WHERE is_active
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Location
	for rows.Next() {
		var l Location
		if err := rows.Scan(&l.ID, &l.Name, &l.WifiSSID, &l.IPRange, &l.Latitude, &l.Longitude, &l.Radius); err != nil {
			return nil, err
		}
		res = append(res, l)
	}
	return res, rows.Err()
}

// Update rewrites an active location.
func (r *Repository) Update(ctx context.Context, l Location) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE locations
		SET name = $2, wifi_ssid = $3, ip_range = $4, latitude = $5, longitude = $6, radius = $7
		WHERE id = $1 AND is_active
	`, l.ID, l.Name, l.WifiSSID, l.IPRange, l.Latitude, l.Longitude, l.Radius)
	if err != nil {
		return err
	}
	return notFoundOnZero(res)
}

// Deactivate soft-deletes a location.
func (r *Repository) Deactivate(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE locations SET is_active = FALSE WHERE id = $1 AND is_active`, id)
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
