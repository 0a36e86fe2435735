package model

import "time"

// Role is the account role carried in the access token.
type Role string

const (
	RoleCarOwner   Role = "CarOwner"
	RoleJournalist Role = "Journalist"
	RoleAdmin      Role = "Admin"
)

// Valid reports whether r is a role an account may self-register with.
// Admin accounts are only ever seeded from configuration.
func (r Role) Valid() bool {
	return r == RoleCarOwner || r == RoleJournalist
}

// User represents an account as stored in the `users` table.
//
// Fields:
//  ID           – opaque UUID.
//  Email        – unique, stored lower-cased.
//  PasswordHash – bcrypt hash; empty for Firebase-only accounts.
//  FirebaseUID  – Firebase identity; empty for password accounts.
//  Journalist   – role-specific fields, meaningful for journalists only.
//  Owner        – role-specific fields, meaningful for car owners only.
type User struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Email        string            `json:"email"`
	PasswordHash string            `json:"-"`
	FirebaseUID  string            `json:"-"`
	Role         Role              `json:"role"`
	Phone        string            `json:"phone,omitempty"`
	Bio          string            `json:"bio,omitempty"`
	Avatar       string            `json:"avatar,omitempty"`
	Journalist   JournalistProfile `json:"journalistProfile"`
	Owner        OwnerProfile      `json:"ownerProfile"`
	CreatedAt    time.Time         `json:"createdAt"`
	UpdatedAt    time.Time         `json:"updatedAt"`
}

// JournalistProfile holds the fields a journalist shows to car owners.
type JournalistProfile struct {
	Publication  string `json:"publication,omitempty"`
	PortfolioURL string `json:"portfolioUrl,omitempty"`
	AudienceSize int    `json:"audienceSize,omitempty"`
}

// OwnerProfile holds the fields a car owner shows to journalists.
type OwnerProfile struct {
	CompanyName string `json:"companyName,omitempty"`
	Location    string `json:"location,omitempty"`
}

// HasPassword reports whether the account can log in with a password.
func (u *User) HasPassword() bool { return u.PasswordHash != "" }

// PublicProfile is the view of an account returned to anyone. Contact fields
// are never included and only the sub-profile matching the role is set.
type PublicProfile struct {
	ID         string             `json:"id"`
	Name       string             `json:"name"`
	Role       Role               `json:"role"`
	Bio        string             `json:"bio,omitempty"`
	Avatar     string             `json:"avatar,omitempty"`
	Journalist *JournalistProfile `json:"journalistProfile,omitempty"`
	Owner      *OwnerProfile      `json:"ownerProfile,omitempty"`
	CreatedAt  time.Time          `json:"createdAt"`
}

// Public strips private fields from u.
func (u *User) Public() PublicProfile {
	p := PublicProfile{
		ID:        u.ID,
		Name:      u.Name,
		Role:      u.Role,
		Bio:       u.Bio,
		Avatar:    u.Avatar,
		CreatedAt: u.CreatedAt,
	}
	switch u.Role {
	case RoleJournalist:
		j := u.Journalist
		p.Journalist = &j
	case RoleCarOwner:
		o := u.Owner
		p.Owner = &o
	}
	return p
}
