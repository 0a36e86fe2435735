// Package repository contains data access logic separated from HTTP handlers.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	"github.com/google/uuid"

	"github.com/iliyamo/testdrive-marketplace/internal/model"
)

// CarRepo encapsulates all database queries related to car listings.
type CarRepo struct {
	db *sql.DB
}

// NewCarRepo constructs a CarRepo with the provided DB handle.
func NewCarRepo(db *sql.DB) *CarRepo {
	return &CarRepo{db: db}
}

const carColumns = `c.id, c.owner_id, c.make, c.model, c.year, c.color, c.price, c.mileage,
	c.transmission, c.fuel_type, COALESCE(c.description, ''), c.location, c.images, c.is_available,
	c.created_at, c.updated_at`

func scanCar(s scanner, extra ...any) (*model.Car, error) {
	var (
		c      model.Car
		images []byte
	)
	dest := []any{&c.ID, &c.OwnerID, &c.Make, &c.Model, &c.Year, &c.Color, &c.Price, &c.Mileage,
		&c.Transmission, &c.FuelType, &c.Description, &c.Location, &images, &c.IsAvailable,
		&c.CreatedAt, &c.UpdatedAt}
	if err := s.Scan(append(dest, extra...)...); err != nil {
		return nil, notFound(err)
	}
	imgs, err := decodeImages(images)
	if err != nil {
		return nil, err
	}
	c.Images = imgs
	return &c, nil
}

func encodeImages(images []string) ([]byte, error) {
	if images == nil {
		images = []string{}
	}
	return json.Marshal(images)
}

func decodeImages(raw []byte) ([]string, error) {
	out := []string{}
	if len(raw) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Create inserts a new car. The id is generated when empty, and the row is
// read back so timestamps are populated.
func (r *CarRepo) Create(ctx context.Context, c *model.Car) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	images, err := encodeImages(c.Images)
	if err != nil {
		return err
	}
	const q = `INSERT INTO cars (id, owner_id, make, model, year, color, price, mileage,
		transmission, fuel_type, description, location, images, is_available)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`
	if _, err := r.db.ExecContext(ctx, q, c.ID, c.OwnerID, c.Make, c.Model, c.Year, c.Color,
		c.Price, c.Mileage, c.Transmission, c.FuelType, c.Description, c.Location, images,
		c.IsAvailable); err != nil {
		return err
	}
	fresh, err := r.GetByID(ctx, c.ID)
	if err != nil {
		return err
	}
	*c = *fresh
	return nil
}

// GetByID fetches a car by its ID regardless of owner or availability.
func (r *CarRepo) GetByID(ctx context.Context, id string) (*model.Car, error) {
	return scanCar(r.db.QueryRowContext(ctx, "SELECT "+carColumns+" FROM cars c WHERE c.id = ?", id))
}

// ListAvailable returns available cars, newest first, joined with the owner's
// name. A non-empty keyword keeps only cars whose make, model, location or
// description contains it, ignoring case.
func (r *CarRepo) ListAvailable(ctx context.Context, keyword string) ([]model.CarWithOwner, error) {
	q := "SELECT " + carColumns + ", u.name FROM cars c JOIN users u ON u.id = c.owner_id WHERE c.is_available = 1"
	var args []any
	if kw := strings.ToLower(strings.TrimSpace(keyword)); kw != "" {
		like := "%" + escapeLike(kw) + "%"
		q += ` AND (LOWER(c.make) LIKE ? OR LOWER(c.model) LIKE ? OR LOWER(c.location) LIKE ?
			OR LOWER(COALESCE(c.description, '')) LIKE ?)`
		args = append(args, like, like, like, like)
	}
	q += " ORDER BY c.created_at DESC"
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.CarWithOwner{}
	for rows.Next() {
		var ownerName string
		c, err := scanCar(rows, &ownerName)
		if err != nil {
			return nil, err
		}
		out = append(out, model.CarWithOwner{Car: *c, OwnerName: ownerName})
	}
	return out, rows.Err()
}

// ListByOwner returns all cars of an owner, newest first, available or not.
func (r *CarRepo) ListByOwner(ctx context.Context, ownerID string) ([]model.Car, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+carColumns+" FROM cars c WHERE c.owner_id = ? ORDER BY c.created_at DESC", ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Car{}
	for rows.Next() {
		c, err := scanCar(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// Update writes every mutable attribute of c and reloads it.
func (r *CarRepo) Update(ctx context.Context, c *model.Car) error {
	images, err := encodeImages(c.Images)
	if err != nil {
		return err
	}
	const q = `UPDATE cars SET make=?, model=?, year=?, color=?, price=?, mileage=?, transmission=?,
		fuel_type=?, description=?, location=?, images=?, is_available=? WHERE id=?`
	if _, err := r.db.ExecContext(ctx, q, c.Make, c.Model, c.Year, c.Color, c.Price, c.Mileage,
		c.Transmission, c.FuelType, c.Description, c.Location, images, c.IsAvailable, c.ID); err != nil {
		return err
	}
	fresh, err := r.GetByID(ctx, c.ID)
	if err != nil {
		return err
	}
	*c = *fresh
	return nil
}

// SetAvailability sets the availability flag of a car.
func (r *CarRepo) SetAvailability(ctx context.Context, id string, available bool) error {
	_, err := r.db.ExecContext(ctx, "UPDATE cars SET is_available=? WHERE id=?", available, id)
	return err
}

// Delete removes a car together with its inactive (Rejected/Completed)
// requests. If any Pending or Approved request still references the car,
// nothing is deleted and ErrConflict is returned.
func (r *CarRepo) Delete(ctx context.Context, id string) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()
	var exists int
	if err = tx.QueryRowContext(ctx, `SELECT 1 FROM cars WHERE id = ? FOR UPDATE`, id).Scan(&exists); err != nil {
		return notFound(err)
	}
	var active int
	if err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM test_drive_requests WHERE car_id = ? AND status IN ('Pending','Approved')`,
		id).Scan(&active); err != nil {
		return err
	}
	if active > 0 {
		return ErrConflict
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM test_drive_requests WHERE car_id = ?`, id); err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `DELETE FROM cars WHERE id = ?`, id)
	return err
}

// escapeLike escapes LIKE wildcards so user keywords match literally.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
