package service

import (
	"context"
	"strings"

	"github.com/iliyamo/testdrive-marketplace/internal/apperr"
	"github.com/iliyamo/testdrive-marketplace/internal/model"
)

const msgTestimonialNotFound = "testimonial not found"

// TestimonialService manages landing-page testimonials. Writes are
// restricted to administrators by the router.
type TestimonialService struct {
	store TestimonialStore
}

func NewTestimonialService(store TestimonialStore) *TestimonialService {
	return &TestimonialService{store: store}
}

// TestimonialInput is used for both create and update. On update nil fields
// are kept.
type TestimonialInput struct {
	Name     *string
	Role     *string
	Image    *string
	Text     *string
	IsActive *bool
}

// ListActive returns the testimonials shown on the public site.
func (s *TestimonialService) ListActive(ctx context.Context) ([]model.Testimonial, error) {
	out, err := s.store.List(ctx, true)
	return out, storeErr(err, msgTestimonialNotFound)
}

// ListAll returns every testimonial, inactive ones included.
func (s *TestimonialService) ListAll(ctx context.Context) ([]model.Testimonial, error) {
	out, err := s.store.List(ctx, false)
	return out, storeErr(err, msgTestimonialNotFound)
}

// Get returns a testimonial. Inactive ones are reported as missing unless
// includeInactive is set.
func (s *TestimonialService) Get(ctx context.Context, id string, includeInactive bool) (*model.Testimonial, error) {
	t, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, msgTestimonialNotFound)
	}
	if !t.IsActive && !includeInactive {
		return nil, apperr.NotFoundf(msgTestimonialNotFound)
	}
	return t, nil
}

// Create stores a testimonial; it is active unless in says otherwise.
func (s *TestimonialService) Create(ctx context.Context, in TestimonialInput) (*model.Testimonial, error) {
	t := &model.Testimonial{IsActive: true}
	apply(t, in)
	if err := validateTestimonial(t); err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, t); err != nil {
		return nil, storeErr(err, msgTestimonialNotFound)
	}
	return t, nil
}

// Update applies the non-nil fields of in to testimonial id.
func (s *TestimonialService) Update(ctx context.Context, id string, in TestimonialInput) (*model.Testimonial, error) {
	t, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, msgTestimonialNotFound)
	}
	apply(t, in)
	if err := validateTestimonial(t); err != nil {
		return nil, err
	}
	if err := s.store.Update(ctx, t); err != nil {
		return nil, storeErr(err, msgTestimonialNotFound)
	}
	return t, nil
}

// Delete removes testimonial id.
func (s *TestimonialService) Delete(ctx context.Context, id string) error {
	return storeErr(s.store.Delete(ctx, id), msgTestimonialNotFound)
}

func apply(t *model.Testimonial, in TestimonialInput) {
	setString(&t.Name, in.Name)
	setString(&t.Role, in.Role)
	setString(&t.Image, in.Image)
	setString(&t.Text, in.Text)
	if in.IsActive != nil {
		t.IsActive = *in.IsActive
	}
}

func validateTestimonial(t *model.Testimonial) error {
	if t.Name == "" {
		return apperr.InvalidInputf("name is required")
	}
	if strings.TrimSpace(t.Text) == "" {
		return apperr.InvalidInputf("text is required")
	}
	return nil
}
