// Package service holds the business rules of the marketplace. Services talk
// to storage through the small interfaces below, raise *apperr.Error values
// for every rule violation, and never see HTTP types.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/iliyamo/testdrive-marketplace/internal/apperr"
	"github.com/iliyamo/testdrive-marketplace/internal/model"
	"github.com/iliyamo/testdrive-marketplace/internal/queue"
	"github.com/iliyamo/testdrive-marketplace/internal/repository"
)

// UserStore is implemented by *repository.UserRepo.
type UserStore interface {
	Create(ctx context.Context, u *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByFirebaseUID(ctx context.Context, uid string) (*model.User, error)
	Update(ctx context.Context, u *model.User) error
}

// TokenStore is implemented by *repository.TokenRepo.
type TokenStore interface {
	StoreRefresh(ctx context.Context, userID, tokenHash string, exp time.Time) error
	ValidateRefresh(ctx context.Context, tokenHash string) (string, error)
	RevokeByHash(ctx context.Context, tokenHash string) error
	RevokeAllForUser(ctx context.Context, userID string) error
}

// CarStore is implemented by *repository.CarRepo.
type CarStore interface {
	Create(ctx context.Context, c *model.Car) error
	GetByID(ctx context.Context, id string) (*model.Car, error)
	ListAvailable(ctx context.Context, keyword string) ([]model.CarWithOwner, error)
	ListByOwner(ctx context.Context, ownerID string) ([]model.Car, error)
	Update(ctx context.Context, c *model.Car) error
	SetAvailability(ctx context.Context, id string, available bool) error
	Delete(ctx context.Context, id string) error
}

// RequestStore is implemented by *repository.RequestRepo.
type RequestStore interface {
	Create(ctx context.Context, req *model.Request) error
	GetByID(ctx context.Context, id string) (*model.Request, error)
	GetDetail(ctx context.Context, id string) (*model.RequestDetail, error)
	FindActive(ctx context.Context, journalistID, carID string) (*model.Request, error)
	ListByOwner(ctx context.Context, ownerID string) ([]model.RequestDetail, error)
	ListByJournalist(ctx context.Context, journalistID string) ([]model.RequestDetail, error)
	UpdateStatus(ctx context.Context, id string, status model.RequestStatus, ownerResponse *string) error
	Delete(ctx context.Context, id string) error
}

// TestimonialStore is implemented by *repository.TestimonialRepo.
type TestimonialStore interface {
	Create(ctx context.Context, t *model.Testimonial) error
	GetByID(ctx context.Context, id string) (*model.Testimonial, error)
	List(ctx context.Context, activeOnly bool) ([]model.Testimonial, error)
	Update(ctx context.Context, t *model.Testimonial) error
	Delete(ctx context.Context, id string) error
}

// EventPublisher is implemented by *queue.Publisher.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.RequestEvent) error
}

// storeErr turns a repository error into an application error. notFound is
// the client message used when the row does not exist.
func storeErr(err error, notFound string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return apperr.NotFoundf("%s", notFound)
	default:
		var ae *apperr.Error
		if errors.As(err, &ae) {
			return err
		}
		return apperr.Wrap(err, "storage failure")
	}
}
