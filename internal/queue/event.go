// Package queue defines message payloads exchanged over the message broker.
package queue

import "time"

// Event types published on the request queue.
const (
	EventRequestCreated       = "request.created"
	EventRequestStatusChanged = "request.status_changed"
	EventRequestWithdrawn     = "request.withdrawn"
)

// RequestEvent is published whenever a test-drive request is created, has its
// status changed by the car owner, or is withdrawn by the journalist. It
// carries enough for downstream consumers to log or notify without querying
// the primary database.
type RequestEvent struct {
	Type         string    `json:"type"`
	RequestID    string    `json:"requestId"`
	CarID        string    `json:"carId"`
	JournalistID string    `json:"journalistId"`
	OwnerID      string    `json:"ownerId"`
	Status       string    `json:"status"`
	OccurredAt   time.Time `json:"occurredAt"`
}
