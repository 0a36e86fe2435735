package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/testdrive-marketplace/internal/database"
	"github.com/iliyamo/testdrive-marketplace/internal/model"
)

// RequestRepo provides persistence for test-drive requests. Timestamps are
// stored in UTC with millisecond precision so newest-first ordering is stable
// for requests created within the same second.
type RequestRepo struct {
	db *sql.DB
}

// NewRequestRepo returns a new RequestRepo bound to the given database.
func NewRequestRepo(db *sql.DB) *RequestRepo { return &RequestRepo{db: db} }

const requestColumns = `r.id, r.journalist_id, r.car_id, r.owner_id, r.requested_date,
	COALESCE(r.message, ''), r.status, COALESCE(r.owner_response, ''), r.created_at, r.updated_at`

const requestDetailSelect = `SELECT ` + requestColumns + `,
	j.id, j.name, j.email, j.phone, j.publication,
	o.id, o.name, o.email, o.phone,
	c.id, c.make, c.model, c.year, c.location, c.images
	FROM test_drive_requests r
	JOIN users j ON j.id = r.journalist_id
	JOIN users o ON o.id = r.owner_id
	JOIN cars c  ON c.id = r.car_id`

func requestDest(req *model.Request, requested *sql.NullTime) []any {
	return []any{&req.ID, &req.JournalistID, &req.CarID, &req.OwnerID, requested,
		&req.Message, &req.Status, &req.OwnerResponse, &req.CreatedAt, &req.UpdatedAt}
}

func scanRequest(s scanner) (*model.Request, error) {
	var (
		req       model.Request
		requested sql.NullTime
	)
	if err := s.Scan(requestDest(&req, &requested)...); err != nil {
		return nil, notFound(err)
	}
	if requested.Valid {
		t := requested.Time
		req.RequestedDate = &t
	}
	return &req, nil
}

func scanRequestDetail(s scanner) (*model.RequestDetail, error) {
	var (
		d         model.RequestDetail
		requested sql.NullTime
		images    []byte
	)
	dest := append(requestDest(&d.Request, &requested),
		&d.Journalist.ID, &d.Journalist.Name, &d.Journalist.Email, &d.Journalist.Phone, &d.Journalist.Publication,
		&d.Owner.ID, &d.Owner.Name, &d.Owner.Email, &d.Owner.Phone,
		&d.Car.ID, &d.Car.Make, &d.Car.Model, &d.Car.Year, &d.Car.Location, &images)
	if err := s.Scan(dest...); err != nil {
		return nil, notFound(err)
	}
	if requested.Valid {
		t := requested.Time
		d.RequestedDate = &t
	}
	imgs, err := decodeImages(images)
	if err != nil {
		return nil, err
	}
	d.Car.Images = imgs
	return &d, nil
}

// Create inserts a new request. A violation of the one-active-request index
// is reported as ErrDuplicate.
func (r *RequestRepo) Create(ctx context.Context, req *model.Request) error {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	var requested sql.NullTime
	if req.RequestedDate != nil {
		requested = sql.NullTime{Time: req.RequestedDate.UTC(), Valid: true}
	}
	const q = `INSERT INTO test_drive_requests (id, journalist_id, car_id, owner_id, requested_date, message, status, owner_response)
		VALUES (?,?,?,?,?,?,?,?)`
	if _, err := r.db.ExecContext(ctx, q, req.ID, req.JournalistID, req.CarID, req.OwnerID, requested,
		req.Message, req.Status, req.OwnerResponse); err != nil {
		if database.IsDuplicateKey(err) {
			return ErrDuplicate
		}
		return err
	}
	fresh, err := r.GetByID(ctx, req.ID)
	if err != nil {
		return err
	}
	*req = *fresh
	return nil
}

// GetByID fetches the bare request row.
func (r *RequestRepo) GetByID(ctx context.Context, id string) (*model.Request, error) {
	return scanRequest(r.db.QueryRowContext(ctx,
		"SELECT "+requestColumns+" FROM test_drive_requests r WHERE r.id = ?", id))
}

// GetDetail fetches a request joined with journalist, owner and car.
func (r *RequestRepo) GetDetail(ctx context.Context, id string) (*model.RequestDetail, error) {
	return scanRequestDetail(r.db.QueryRowContext(ctx, requestDetailSelect+" WHERE r.id = ?", id))
}

// FindActive returns the Pending or Approved request of a journalist for a
// car, or ErrNotFound.
func (r *RequestRepo) FindActive(ctx context.Context, journalistID, carID string) (*model.Request, error) {
	return scanRequest(r.db.QueryRowContext(ctx,
		"SELECT "+requestColumns+` FROM test_drive_requests r
		 WHERE r.journalist_id = ? AND r.car_id = ? AND r.status IN ('Pending','Approved')
		 ORDER BY r.created_at DESC LIMIT 1`, journalistID, carID))
}

// ListByOwner returns every request addressed to an owner, newest first.
func (r *RequestRepo) ListByOwner(ctx context.Context, ownerID string) ([]model.RequestDetail, error) {
	return r.list(ctx, requestDetailSelect+" WHERE r.owner_id = ? ORDER BY r.created_at DESC", ownerID)
}

// ListByJournalist returns every request sent by a journalist, newest first.
func (r *RequestRepo) ListByJournalist(ctx context.Context, journalistID string) ([]model.RequestDetail, error) {
	return r.list(ctx, requestDetailSelect+" WHERE r.journalist_id = ? ORDER BY r.created_at DESC", journalistID)
}

func (r *RequestRepo) list(ctx context.Context, q string, args ...any) ([]model.RequestDetail, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.RequestDetail{}
	for rows.Next() {
		d, err := scanRequestDetail(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

// UpdateStatus sets the status and, when ownerResponse is non-nil, the owner
// response. Re-activating a request while another active one exists for the
// same pair is reported as ErrDuplicate.
func (r *RequestRepo) UpdateStatus(ctx context.Context, id string, status model.RequestStatus, ownerResponse *string) error {
	var err error
	if ownerResponse != nil {
		_, err = r.db.ExecContext(ctx,
			"UPDATE test_drive_requests SET status = ?, owner_response = ?, updated_at = ? WHERE id = ?",
			status, *ownerResponse, time.Now().UTC(), id)
	} else {
		_, err = r.db.ExecContext(ctx,
			"UPDATE test_drive_requests SET status = ?, updated_at = ? WHERE id = ?",
			status, time.Now().UTC(), id)
	}
	if database.IsDuplicateKey(err) {
		return ErrDuplicate
	}
	return err
}

// Delete removes a request. It returns ErrNotFound when nothing was deleted.
func (r *RequestRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM test_drive_requests WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
