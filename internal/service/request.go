package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/testdrive-marketplace/internal/apperr"
	"github.com/iliyamo/testdrive-marketplace/internal/metrics"
	"github.com/iliyamo/testdrive-marketplace/internal/model"
	"github.com/iliyamo/testdrive-marketplace/internal/queue"
	"github.com/iliyamo/testdrive-marketplace/internal/repository"
)

const (
	msgRequestNotFound = "test drive request not found"
	msgActiveExists    = "you already have an active request for this car"
)

// RequestService owns the test-drive request lifecycle:
//
//	Pending -> Approved | Rejected | Completed   (owner, any order)
//	Pending -> deleted                           (journalist withdrawal)
//
// Only the car owner recorded on a request may change its status and only
// its journalist may withdraw it. At most one Pending or Approved request
// exists per journalist and car; the storage layer enforces this with a
// unique index so concurrent creates cannot both succeed.
type RequestService struct {
	requests RequestStore
	cars     CarStore
	events   EventPublisher
	log      *zap.Logger
}

func NewRequestService(requests RequestStore, cars CarStore, events EventPublisher, log *zap.Logger) *RequestService {
	if log == nil {
		log = zap.NewNop()
	}
	return &RequestService{requests: requests, cars: cars, events: events, log: log}
}

// NewRequest carries the journalist-supplied part of a request.
type NewRequest struct {
	CarID         string
	RequestedDate *time.Time
	Message       string
}

// Withdrawn is returned after a successful withdrawal.
type Withdrawn struct {
	ID    string `json:"id"`
	CarID string `json:"carId"`
}

// CreateRequest files a Pending request from journalistID for in.CarID.
func (s *RequestService) CreateRequest(ctx context.Context, journalistID string, in NewRequest) (*model.Request, error) {
	car, err := s.cars.GetByID(ctx, in.CarID)
	if err != nil {
		return nil, storeErr(err, "car not found")
	}
	if !car.IsAvailable {
		return nil, apperr.InvalidStatef("car is not available for test drives")
	}
	if car.OwnerID == journalistID {
		return nil, apperr.InvalidStatef("you cannot request a test drive of your own car")
	}
	if _, err := s.requests.FindActive(ctx, journalistID, car.ID); err == nil {
		return nil, apperr.Conflictf(msgActiveExists)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, storeErr(err, msgRequestNotFound)
	}

	req := &model.Request{
		JournalistID:  journalistID,
		CarID:         car.ID,
		OwnerID:       car.OwnerID,
		RequestedDate: in.RequestedDate,
		Message:       strings.TrimSpace(in.Message),
		Status:        model.StatusPending,
	}
	if err := s.requests.Create(ctx, req); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			// lost a race with a concurrent create for the same pair
			return nil, apperr.Conflictf(msgActiveExists)
		}
		return nil, storeErr(err, msgRequestNotFound)
	}

	s.record(ctx, queue.EventRequestCreated, req)
	return req, nil
}

// ListIncoming returns the requests addressed to ownerID, newest first.
func (s *RequestService) ListIncoming(ctx context.Context, ownerID string) ([]model.RequestDetail, error) {
	out, err := s.requests.ListByOwner(ctx, ownerID)
	return out, storeErr(err, msgRequestNotFound)
}

// ListOutgoing returns the requests sent by journalistID, newest first.
func (s *RequestService) ListOutgoing(ctx context.Context, journalistID string) ([]model.RequestDetail, error) {
	out, err := s.requests.ListByJournalist(ctx, journalistID)
	return out, storeErr(err, msgRequestNotFound)
}

// GetByID returns a request with both parties and the car, visible only to
// the journalist and the owner on it.
func (s *RequestService) GetByID(ctx context.Context, id, callerID string) (*model.RequestDetail, error) {
	d, err := s.requests.GetDetail(ctx, id)
	if err != nil {
		return nil, storeErr(err, msgRequestNotFound)
	}
	if callerID != d.JournalistID && callerID != d.OwnerID {
		return nil, apperr.Forbiddenf("you are not allowed to view this request")
	}
	return d, nil
}

// UpdateStatus moves a request to status on behalf of its owner. Any current
// status may move to any owner-settable status. A non-nil ownerResponse
// replaces the stored response.
func (s *RequestService) UpdateStatus(ctx context.Context, id, callerID string, status model.RequestStatus, ownerResponse *string) (*model.RequestDetail, error) {
	req, err := s.requests.GetByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, msgRequestNotFound)
	}
	if callerID != req.OwnerID {
		return nil, apperr.Forbiddenf("only the car owner can update this request")
	}
	if !status.OwnerSettable() {
		return nil, apperr.InvalidInputf("status must be one of Approved, Rejected, Completed")
	}
	if ownerResponse != nil {
		trimmed := strings.TrimSpace(*ownerResponse)
		ownerResponse = &trimmed
	}
	if err := s.requests.UpdateStatus(ctx, id, status, ownerResponse); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperr.Conflictf("the journalist already has another active request for this car")
		}
		return nil, storeErr(err, msgRequestNotFound)
	}

	d, err := s.requests.GetDetail(ctx, id)
	if err != nil {
		return nil, storeErr(err, msgRequestNotFound)
	}
	s.record(ctx, queue.EventRequestStatusChanged, &d.Request)
	return d, nil
}

// CheckActive returns the Pending or Approved request of journalistID for
// carID.
func (s *RequestService) CheckActive(ctx context.Context, journalistID, carID string) (*model.Request, error) {
	req, err := s.requests.FindActive(ctx, journalistID, carID)
	if err != nil {
		return nil, storeErr(err, "no active request for this car")
	}
	return req, nil
}

// Withdraw deletes a Pending request on behalf of its journalist.
func (s *RequestService) Withdraw(ctx context.Context, id, callerID string) (*Withdrawn, error) {
	req, err := s.requests.GetByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, msgRequestNotFound)
	}
	if callerID != req.JournalistID {
		return nil, apperr.Forbiddenf("only the requesting journalist can withdraw this request")
	}
	if req.Status != model.StatusPending {
		return nil, apperr.InvalidStatef("cannot withdraw a request that is already %s", req.Status)
	}
	if err := s.requests.Delete(ctx, id); err != nil {
		return nil, storeErr(err, msgRequestNotFound)
	}

	s.record(ctx, queue.EventRequestWithdrawn, req)
	return &Withdrawn{ID: req.ID, CarID: req.CarID}, nil
}

// record counts the transition and publishes it. Publish failures are logged
// by the publisher and never fail the call.
func (s *RequestService) record(ctx context.Context, eventType string, req *model.Request) {
	status := string(req.Status)
	if eventType == queue.EventRequestWithdrawn {
		status = "Withdrawn"
	}
	metrics.RecordRequestTransition(status)
	s.log.Info("request lifecycle",
		zap.String("event", eventType),
		zap.String("request_id", req.ID),
		zap.String("car_id", req.CarID),
		zap.String("status", status))

	if s.events == nil {
		return
	}
	_ = s.events.Publish(ctx, queue.RequestEvent{
		Type:         eventType,
		RequestID:    req.ID,
		CarID:        req.CarID,
		JournalistID: req.JournalistID,
		OwnerID:      req.OwnerID,
		Status:       status,
		OccurredAt:   time.Now().UTC(),
	})
}
