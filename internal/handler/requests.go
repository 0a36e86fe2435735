package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/testdrive-marketplace/internal/model"
	"github.com/iliyamo/testdrive-marketplace/internal/service"
)

// RequestHandler serves the test-drive request endpoints.
type RequestHandler struct {
	Requests *service.RequestService
}

func NewRequestHandler(requests *service.RequestService) *RequestHandler {
	return &RequestHandler{Requests: requests}
}

type createRequestReq struct {
	CarID         string     `json:"carId" validate:"required,uuid"`
	RequestedDate *time.Time `json:"requestedDate"`
	Message       string     `json:"message" validate:"max=2000"`
}

type updateStatusReq struct {
	Status        string  `json:"status" validate:"required"`
	OwnerResponse *string `json:"ownerResponse" validate:"omitempty,max=2000"`
}

// Create files a new request from the calling journalist.
func (h *RequestHandler) Create(c echo.Context) error {
	u, err := currentUser(c)
	if err != nil {
		return err
	}
	var req createRequestReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	r, err := h.Requests.CreateRequest(ctx, u.ID, service.NewRequest{
		CarID:         req.CarID,
		RequestedDate: req.RequestedDate,
		Message:       req.Message,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, r)
}

// Incoming lists the requests addressed to the calling owner.
func (h *RequestHandler) Incoming(c echo.Context) error {
	u, err := currentUser(c)
	if err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	out, err := h.Requests.ListIncoming(ctx, u.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

// Outgoing lists the requests filed by the calling journalist.
func (h *RequestHandler) Outgoing(c echo.Context) error {
	u, err := currentUser(c)
	if err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	out, err := h.Requests.ListOutgoing(ctx, u.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

func (h *RequestHandler) Get(c echo.Context) error {
	u, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	d, err := h.Requests.GetByID(ctx, id, u.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, d)
}

// UpdateStatus lets the owner approve, reject or complete a request.
func (h *RequestHandler) UpdateStatus(c echo.Context) error {
	u, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req updateStatusReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	d, err := h.Requests.UpdateStatus(ctx, id, u.ID, model.RequestStatus(req.Status), req.OwnerResponse)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, d)
}

// Check returns the caller's active request for a car, or 404.
func (h *RequestHandler) Check(c echo.Context) error {
	u, err := currentUser(c)
	if err != nil {
		return err
	}
	carID, err := pathID(c, "carId")
	if err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	r, err := h.Requests.CheckActive(ctx, u.ID, carID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, r)
}

// Withdraw deletes a Pending request of the calling journalist.
func (h *RequestHandler) Withdraw(c echo.Context) error {
	u, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	w, err := h.Requests.Withdraw(ctx, id, u.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message": "request withdrawn",
		"id":      w.ID,
		"carId":   w.CarID,
	})
}
