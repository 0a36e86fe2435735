package model

import "time"

// RequestStatus is the lifecycle state of a test-drive request.
type RequestStatus string

const (
	StatusPending   RequestStatus = "Pending"
	StatusApproved  RequestStatus = "Approved"
	StatusRejected  RequestStatus = "Rejected"
	StatusCompleted RequestStatus = "Completed"
)

// Active reports whether a request in this status blocks a new request for
// the same journalist and car.
func (s RequestStatus) Active() bool {
	return s == StatusPending || s == StatusApproved
}

// OwnerSettable reports whether the car owner may move a request to s.
func (s RequestStatus) OwnerSettable() bool {
	return s == StatusApproved || s == StatusRejected || s == StatusCompleted
}

// Request is a journalist's ask to test-drive a car. OwnerID is copied from
// the car when the request is created and is never re-derived.
type Request struct {
	ID            string        `json:"id"`
	JournalistID  string        `json:"journalistId"`
	CarID         string        `json:"carId"`
	OwnerID       string        `json:"ownerId"`
	RequestedDate *time.Time    `json:"requestedDate,omitempty"`
	Message       string        `json:"message,omitempty"`
	Status        RequestStatus `json:"status"`
	OwnerResponse string        `json:"ownerResponse,omitempty"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}

// AccountSummary is the slice of an account embedded in request views.
type AccountSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Phone       string `json:"phone,omitempty"`
	Publication string `json:"publication,omitempty"`
}

// CarSummary is the slice of a listing embedded in request views.
type CarSummary struct {
	ID       string   `json:"id"`
	Make     string   `json:"make"`
	Model    string   `json:"model"`
	Year     int      `json:"year"`
	Location string   `json:"location"`
	Images   []string `json:"images"`
}

// RequestDetail is a request joined with both parties and the car.
type RequestDetail struct {
	Request
	Journalist AccountSummary `json:"journalist"`
	Owner      AccountSummary `json:"owner"`
	Car        CarSummary     `json:"car"`
}
