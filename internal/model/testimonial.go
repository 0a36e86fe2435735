package model

import "time"

// Testimonial is an administrator-managed quote shown on the landing page.
type Testimonial struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	Image     string    `json:"image"`
	Text      string    `json:"text"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
