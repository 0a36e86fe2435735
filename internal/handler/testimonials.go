package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/testdrive-marketplace/internal/model"
	"github.com/iliyamo/testdrive-marketplace/internal/service"
)

// TestimonialHandler serves public testimonial reads and admin writes.
type TestimonialHandler struct {
	Testimonials *service.TestimonialService
}

func NewTestimonialHandler(t *service.TestimonialService) *TestimonialHandler {
	return &TestimonialHandler{Testimonials: t}
}

type testimonialReq struct {
	Name     *string `json:"name" validate:"omitempty,max=100"`
	Role     *string `json:"role" validate:"omitempty,max=100"`
	Image    *string `json:"image" validate:"omitempty,max=500"`
	Text     *string `json:"text" validate:"omitempty,max=2000"`
	IsActive *bool   `json:"isActive"`
}

func (r testimonialReq) input() service.TestimonialInput {
	return service.TestimonialInput{
		Name:     r.Name,
		Role:     r.Role,
		Image:    r.Image,
		Text:     r.Text,
		IsActive: r.IsActive,
	}
}

// List returns the active testimonials.
func (h *TestimonialHandler) List(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	out, err := h.Testimonials.ListActive(ctx)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

// ListAll returns every testimonial, including inactive ones.
func (h *TestimonialHandler) ListAll(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	out, err := h.Testimonials.ListAll(ctx)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

// Get returns a testimonial. Inactive ones are visible to admins only.
func (h *TestimonialHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	admin := false
	if u, err := currentUser(c); err == nil {
		admin = u.Role == model.RoleAdmin
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	t, err := h.Testimonials.Get(ctx, id, admin)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, t)
}

func (h *TestimonialHandler) Create(c echo.Context) error {
	var req testimonialReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	t, err := h.Testimonials.Create(ctx, req.input())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, t)
}

func (h *TestimonialHandler) Update(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req testimonialReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	t, err := h.Testimonials.Update(ctx, id, req.input())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, t)
}

func (h *TestimonialHandler) Delete(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	if err := h.Testimonials.Delete(ctx, id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "testimonial deleted", "id": id})
}
