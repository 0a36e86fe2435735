package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/iliyamo/testdrive-marketplace/internal/model"
)

// TestimonialRepo stores landing-page testimonials.
type TestimonialRepo struct {
	db *sql.DB
}

func NewTestimonialRepo(db *sql.DB) *TestimonialRepo { return &TestimonialRepo{db: db} }

const testimonialColumns = `id, name, role, image, text, is_active, created_at, updated_at`

func scanTestimonial(s scanner) (*model.Testimonial, error) {
	var t model.Testimonial
	if err := s.Scan(&t.ID, &t.Name, &t.Role, &t.Image, &t.Text, &t.IsActive, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, notFound(err)
	}
	return &t, nil
}

func (r *TestimonialRepo) Create(ctx context.Context, t *model.Testimonial) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if _, err := r.db.ExecContext(ctx,
		"INSERT INTO testimonials (id, name, role, image, text, is_active) VALUES (?,?,?,?,?,?)",
		t.ID, t.Name, t.Role, t.Image, t.Text, t.IsActive); err != nil {
		return err
	}
	fresh, err := r.GetByID(ctx, t.ID)
	if err != nil {
		return err
	}
	*t = *fresh
	return nil
}

func (r *TestimonialRepo) GetByID(ctx context.Context, id string) (*model.Testimonial, error) {
	return scanTestimonial(r.db.QueryRowContext(ctx,
		"SELECT "+testimonialColumns+" FROM testimonials WHERE id = ?", id))
}

// List returns testimonials newest first; activeOnly hides inactive ones.
func (r *TestimonialRepo) List(ctx context.Context, activeOnly bool) ([]model.Testimonial, error) {
	q := "SELECT " + testimonialColumns + " FROM testimonials"
	if activeOnly {
		q += " WHERE is_active = 1"
	}
	q += " ORDER BY created_at DESC"
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Testimonial{}
	for rows.Next() {
		t, err := scanTestimonial(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

func (r *TestimonialRepo) Update(ctx context.Context, t *model.Testimonial) error {
	if _, err := r.db.ExecContext(ctx,
		"UPDATE testimonials SET name=?, role=?, image=?, text=?, is_active=? WHERE id=?",
		t.Name, t.Role, t.Image, t.Text, t.IsActive, t.ID); err != nil {
		return err
	}
	fresh, err := r.GetByID(ctx, t.ID)
	if err != nil {
		return err
	}
	*t = *fresh
	return nil
}

func (r *TestimonialRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM testimonials WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
