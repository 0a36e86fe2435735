package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/google/uuid"

	"github.com/iliyamo/testdrive-marketplace/internal/database"
	"github.com/iliyamo/testdrive-marketplace/internal/model"
)

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = `id, name, email, password_hash, firebase_uid, role, phone, COALESCE(bio, ''), avatar,
	publication, portfolio_url, audience_size, company_name, location, created_at, updated_at`

func scanUser(s scanner) (*model.User, error) {
	var (
		u        model.User
		hash     sql.NullString
		firebase sql.NullString
	)
	err := s.Scan(&u.ID, &u.Name, &u.Email, &hash, &firebase, &u.Role, &u.Phone, &u.Bio, &u.Avatar,
		&u.Journalist.Publication, &u.Journalist.PortfolioURL, &u.Journalist.AudienceSize,
		&u.Owner.CompanyName, &u.Owner.Location, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	u.PasswordHash = hash.String
	u.FirebaseUID = firebase.String
	return &u, nil
}

// Create inserts u, assigning a new id when u.ID is empty. The email is
// normalized to lower case so uniqueness is case-insensitive.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO users (id, name, email, password_hash, firebase_uid, role, phone, bio, avatar,
			publication, portfolio_url, audience_size, company_name, location)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		u.ID, u.Name, u.Email, nullString(u.PasswordHash), nullString(u.FirebaseUID), u.Role,
		u.Phone, u.Bio, u.Avatar, u.Journalist.Publication, u.Journalist.PortfolioURL,
		u.Journalist.AudienceSize, u.Owner.CompanyName, u.Owner.Location)
	if err != nil {
		if database.IsDuplicateKey(err) {
			return ErrDuplicate
		}
		return err
	}
	return r.reload(ctx, u)
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email))
}

// GetByFirebaseUID fetches the user linked to a Firebase identity.
func (r *UserRepo) GetByFirebaseUID(ctx context.Context, uid string) (*model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE firebase_uid=? LIMIT 1", uid))
}

// Update writes every mutable profile column of u. Email and role are not
// mutable through this path.
func (r *UserRepo) Update(ctx context.Context, u *model.User) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE users SET name=?, password_hash=?, firebase_uid=?, phone=?, bio=?, avatar=?,
			publication=?, portfolio_url=?, audience_size=?, company_name=?, location=?
		 WHERE id=?`,
		u.Name, nullString(u.PasswordHash), nullString(u.FirebaseUID), u.Phone, u.Bio, u.Avatar,
		u.Journalist.Publication, u.Journalist.PortfolioURL, u.Journalist.AudienceSize,
		u.Owner.CompanyName, u.Owner.Location, u.ID)
	if err != nil {
		if database.IsDuplicateKey(err) {
			return ErrDuplicate
		}
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// MySQL reports 0 for a no-op update too, so confirm the row exists.
		if _, err := r.GetByID(ctx, u.ID); err != nil {
			return err
		}
	}
	return r.reload(ctx, u)
}

func (r *UserRepo) reload(ctx context.Context, u *model.User) error {
	fresh, err := r.GetByID(ctx, u.ID)
	if err != nil {
		return err
	}
	*u = *fresh
	return nil
}
