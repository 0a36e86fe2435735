package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/testdrive-marketplace/internal/middleware"
	"github.com/iliyamo/testdrive-marketplace/internal/model"
	"github.com/iliyamo/testdrive-marketplace/internal/service"
)

// UserHandler serves registration, sign-in and profile endpoints.
type UserHandler struct {
	Accounts *service.AccountService
}

func NewUserHandler(accounts *service.AccountService) *UserHandler {
	return &UserHandler{Accounts: accounts}
}

// ----- DTOs -----

type registerReq struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	Role     string `json:"role" validate:"required,oneof=CarOwner Journalist"`
	Phone    string `json:"phone" validate:"max=30"`
}

type loginReq struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type firebaseReq struct {
	IDToken string `json:"idToken" validate:"required"`
	Role    string `json:"role" validate:"omitempty,oneof=CarOwner Journalist"`
}

type refreshReq struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

type logoutReq struct {
	RefreshToken string `json:"refreshToken"`
}

type profileReq struct {
	Name         *string `json:"name" validate:"omitempty,min=1,max=100"`
	Phone        *string `json:"phone" validate:"omitempty,max=30"`
	Bio          *string `json:"bio" validate:"omitempty,max=2000"`
	Avatar       *string `json:"avatar" validate:"omitempty,max=500"`
	Password     *string `json:"password" validate:"omitempty,min=6,max=72"`
	Publication  *string `json:"publication" validate:"omitempty,max=200"`
	PortfolioURL *string `json:"portfolioUrl" validate:"omitempty,url"`
	AudienceSize *int    `json:"audienceSize" validate:"omitempty,min=0"`
	CompanyName  *string `json:"companyName" validate:"omitempty,max=200"`
	Location     *string `json:"location" validate:"omitempty,max=200"`
}

type authResp struct {
	User             *model.User `json:"user"`
	Token            string      `json:"token"`
	ExpiresAt        time.Time   `json:"expiresAt"`
	RefreshToken     string      `json:"refreshToken"`
	RefreshExpiresAt time.Time   `json:"refreshExpiresAt"`
}

func sessionResp(s *service.Session) authResp {
	return authResp{
		User:             s.User,
		Token:            s.AccessToken,
		ExpiresAt:        s.AccessExpiresAt,
		RefreshToken:     s.RefreshToken,
		RefreshExpiresAt: s.RefreshExpiresAt,
	}
}

// Register: create an account and sign it in.
func (h *UserHandler) Register(c echo.Context) error {
	var req registerReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	sess, err := h.Accounts.Register(ctx, service.Registration{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     model.Role(req.Role),
		Phone:    req.Phone,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, sessionResp(sess))
}

// Login: verify email and password.
func (h *UserHandler) Login(c echo.Context) error {
	var req loginReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	sess, err := h.Accounts.Authenticate(ctx, req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sessionResp(sess))
}

// FirebaseAuth: sign in with a Firebase ID token, creating the account on
// first use.
func (h *UserHandler) FirebaseAuth(c echo.Context) error {
	var req firebaseReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	sess, err := h.Accounts.AuthenticateFederated(ctx, req.IDToken, model.Role(req.Role))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sessionResp(sess))
}

// Refresh: rotate a refresh token.
func (h *UserHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	sess, err := h.Accounts.RefreshSession(ctx, req.RefreshToken)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sessionResp(sess))
}

// Logout revokes the refresh token in the body or, when the body has none
// and the caller is authenticated, every refresh token of the caller.
func (h *UserHandler) Logout(c echo.Context) error {
	var req logoutReq
	if err := c.Bind(&req); err != nil {
		req = logoutReq{}
	}
	userID := ""
	if u := middleware.CurrentUser(c); u != nil {
		userID = u.ID
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	if err := h.Accounts.Logout(ctx, userID, req.RefreshToken); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "logged out"})
}

// GetProfile returns the caller's own account.
func (h *UserHandler) GetProfile(c echo.Context) error {
	u, err := currentUser(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, u)
}

// UpdateProfile applies a partial update to the caller's account.
func (h *UserHandler) UpdateProfile(c echo.Context) error {
	u, err := currentUser(c)
	if err != nil {
		return err
	}
	var req profileReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	updated, err := h.Accounts.UpdateProfile(ctx, u.ID, service.ProfilePatch{
		Name:         req.Name,
		Phone:        req.Phone,
		Bio:          req.Bio,
		Avatar:       req.Avatar,
		Password:     req.Password,
		Publication:  req.Publication,
		PortfolioURL: req.PortfolioURL,
		AudienceSize: req.AudienceSize,
		CompanyName:  req.CompanyName,
		Location:     req.Location,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, updated)
}

// GetPublicProfile returns any account without contact details.
func (h *UserHandler) GetPublicProfile(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	p, err := h.Accounts.GetPublicProfile(ctx, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}
