package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/testdrive-marketplace/internal/apperr"
	"github.com/iliyamo/testdrive-marketplace/internal/federated"
	"github.com/iliyamo/testdrive-marketplace/internal/model"
	"github.com/iliyamo/testdrive-marketplace/internal/repository"
	"github.com/iliyamo/testdrive-marketplace/internal/utils"
)

const (
	msgUserNotFound       = "user not found"
	msgInvalidCredentials = "invalid email or password"
	minPasswordLen        = 6
)

// AuthConfig holds the token and hashing settings used by AccountService.
type AuthConfig struct {
	JWTSecret      string
	AccessTTLMin   int
	RefreshTTLDays int
	BcryptCost     int
}

// AccountService manages accounts, credentials and sessions.
type AccountService struct {
	users    UserStore
	tokens   TokenStore
	verifier federated.Verifier
	cfg      AuthConfig
	log      *zap.Logger
}

func NewAccountService(users UserStore, tokens TokenStore, verifier federated.Verifier, cfg AuthConfig, log *zap.Logger) *AccountService {
	if log == nil {
		log = zap.NewNop()
	}
	if verifier == nil {
		verifier = federated.Disabled{}
	}
	return &AccountService{users: users, tokens: tokens, verifier: verifier, cfg: cfg, log: log}
}

// Session is returned by every sign-in path.
type Session struct {
	User             *model.User
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// Registration is the input of Register.
type Registration struct {
	Name     string
	Email    string
	Password string
	Role     model.Role
	Phone    string
}

// ProfilePatch lists the profile fields to change; nil fields are kept.
// Journalist and Owner fields are ignored for accounts of the other role.
type ProfilePatch struct {
	Name         *string
	Phone        *string
	Bio          *string
	Avatar       *string
	Password     *string
	Publication  *string
	PortfolioURL *string
	AudienceSize *int
	CompanyName  *string
	Location     *string
}

// Register creates a password account and signs it in.
func (s *AccountService) Register(ctx context.Context, in Registration) (*Session, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = normalizeEmail(in.Email)
	switch {
	case in.Name == "":
		return nil, apperr.InvalidInputf("name is required")
	case in.Email == "":
		return nil, apperr.InvalidInputf("email is required")
	case len(in.Password) < minPasswordLen:
		return nil, apperr.InvalidInputf("password must be at least %d characters", minPasswordLen)
	case !in.Role.Valid():
		return nil, apperr.InvalidInputf("role must be CarOwner or Journalist")
	}

	if _, err := s.users.GetByEmail(ctx, in.Email); err == nil {
		return nil, apperr.Conflictf("an account with this email already exists")
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, storeErr(err, msgUserNotFound)
	}

	hash, err := utils.HashPassword(in.Password, s.cfg.BcryptCost)
	if err != nil {
		return nil, apperr.Wrap(err, "hash password failed")
	}
	u := &model.User{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         in.Role,
		Phone:        strings.TrimSpace(in.Phone),
	}
	if err := s.createUser(ctx, u); err != nil {
		return nil, err
	}
	s.log.Info("account registered", zap.String("user_id", u.ID), zap.String("role", string(u.Role)))
	return s.issue(ctx, u)
}

// Authenticate signs in with email and password. Unknown emails, accounts
// without a password and wrong passwords are indistinguishable.
func (s *AccountService) Authenticate(ctx context.Context, email, password string) (*Session, error) {
	u, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.Unauthorizedf(msgInvalidCredentials)
	}
	if err != nil {
		return nil, storeErr(err, msgUserNotFound)
	}
	if !utils.VerifyPassword(u.PasswordHash, password) {
		return nil, apperr.Unauthorizedf(msgInvalidCredentials)
	}
	return s.issue(ctx, u)
}

// AuthenticateFederated signs in with a federated ID token. The account is
// found by federated uid, then by email; when neither exists it is created
// with role, which is trusted only at creation. An existing account found
// by email is linked to the federated uid.
func (s *AccountService) AuthenticateFederated(ctx context.Context, idToken string, role model.Role) (*Session, error) {
	id, err := s.verifier.Verify(ctx, idToken)
	if err != nil {
		s.log.Debug("federated token rejected", zap.Error(err))
		return nil, apperr.Unauthorizedf("invalid federated token")
	}

	u, err := s.users.GetByFirebaseUID(ctx, id.UID)
	if err == nil {
		return s.issue(ctx, u)
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, storeErr(err, msgUserNotFound)
	}

	u, err = s.users.GetByEmail(ctx, normalizeEmail(id.Email))
	switch {
	case err == nil:
		if u.FirebaseUID == "" {
			u.FirebaseUID = id.UID
			if err := s.users.Update(ctx, u); err != nil {
				return nil, s.userWriteErr(err)
			}
			s.log.Info("federated identity linked", zap.String("user_id", u.ID))
		}
		return s.issue(ctx, u)
	case !errors.Is(err, repository.ErrNotFound):
		return nil, storeErr(err, msgUserNotFound)
	}

	if !role.Valid() {
		return nil, apperr.InvalidInputf("role must be CarOwner or Journalist for a new account")
	}
	name := id.Name
	if name == "" {
		name = strings.SplitN(id.Email, "@", 2)[0]
	}
	u = &model.User{
		Name:        name,
		Email:       normalizeEmail(id.Email),
		FirebaseUID: id.UID,
		Role:        role,
		Avatar:      id.Picture,
	}
	if err := s.createUser(ctx, u); err != nil {
		return nil, err
	}
	s.log.Info("account registered", zap.String("user_id", u.ID), zap.String("role", string(u.Role)), zap.Bool("federated", true))
	return s.issue(ctx, u)
}

// GetProfile returns the full account.
func (s *AccountService) GetProfile(ctx context.Context, id string) (*model.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, msgUserNotFound)
	}
	return u, nil
}

// GetPublicProfile returns the account without contact details.
func (s *AccountService) GetPublicProfile(ctx context.Context, id string) (*model.PublicProfile, error) {
	u, err := s.GetProfile(ctx, id)
	if err != nil {
		return nil, err
	}
	p := u.Public()
	return &p, nil
}

// UpdateProfile applies patch to the account. A new password is re-hashed.
func (s *AccountService) UpdateProfile(ctx context.Context, id string, patch ProfilePatch) (*model.User, error) {
	u, err := s.GetProfile(ctx, id)
	if err != nil {
		return nil, err
	}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, apperr.InvalidInputf("name cannot be empty")
		}
		u.Name = name
	}
	setString(&u.Phone, patch.Phone)
	setString(&u.Bio, patch.Bio)
	setString(&u.Avatar, patch.Avatar)
	switch u.Role {
	case model.RoleJournalist:
		setString(&u.Journalist.Publication, patch.Publication)
		setString(&u.Journalist.PortfolioURL, patch.PortfolioURL)
		if patch.AudienceSize != nil {
			if *patch.AudienceSize < 0 {
				return nil, apperr.InvalidInputf("audience size cannot be negative")
			}
			u.Journalist.AudienceSize = *patch.AudienceSize
		}
	case model.RoleCarOwner:
		setString(&u.Owner.CompanyName, patch.CompanyName)
		setString(&u.Owner.Location, patch.Location)
	}
	if patch.Password != nil {
		if len(*patch.Password) < minPasswordLen {
			return nil, apperr.InvalidInputf("password must be at least %d characters", minPasswordLen)
		}
		hash, err := utils.HashPassword(*patch.Password, s.cfg.BcryptCost)
		if err != nil {
			return nil, apperr.Wrap(err, "hash password failed")
		}
		u.PasswordHash = hash
	}
	if err := s.users.Update(ctx, u); err != nil {
		return nil, s.userWriteErr(err)
	}
	return u, nil
}

// RefreshSession exchanges a refresh token for a new session. The presented
// token is revoked.
func (s *AccountService) RefreshSession(ctx context.Context, raw string) (*Session, error) {
	hash := utils.HashRefreshRaw(strings.TrimSpace(raw))
	userID, err := s.tokens.ValidateRefresh(ctx, hash)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.Unauthorizedf("invalid refresh token")
	}
	if err != nil {
		return nil, storeErr(err, msgUserNotFound)
	}
	if err := s.tokens.RevokeByHash(ctx, hash); err != nil {
		return nil, storeErr(err, msgUserNotFound)
	}
	u, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.Unauthorizedf("invalid refresh token")
	}
	if err != nil {
		return nil, storeErr(err, msgUserNotFound)
	}
	return s.issue(ctx, u)
}

// Logout revokes raw when given, otherwise every refresh token of userID.
func (s *AccountService) Logout(ctx context.Context, userID, raw string) error {
	if raw = strings.TrimSpace(raw); raw != "" {
		return storeErr(s.tokens.RevokeByHash(ctx, utils.HashRefreshRaw(raw)), msgUserNotFound)
	}
	if userID == "" {
		return apperr.InvalidInputf("refresh token is required")
	}
	return storeErr(s.tokens.RevokeAllForUser(ctx, userID), msgUserNotFound)
}

// SeedAdmin makes sure an Admin account with email exists. An existing
// account with that email is left untouched.
func (s *AccountService) SeedAdmin(ctx context.Context, name, email, password string) error {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil
	}
	_, err := s.users.GetByEmail(ctx, email)
	if err == nil {
		return nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return storeErr(err, msgUserNotFound)
	}
	hash, err := utils.HashPassword(password, s.cfg.BcryptCost)
	if err != nil {
		return apperr.Wrap(err, "hash password failed")
	}
	u := &model.User{Name: name, Email: email, PasswordHash: hash, Role: model.RoleAdmin}
	if err := s.createUser(ctx, u); err != nil {
		if apperr.Is(err, apperr.Conflict) {
			return nil
		}
		return err
	}
	s.log.Info("admin account seeded", zap.String("user_id", u.ID))
	return nil
}

func (s *AccountService) issue(ctx context.Context, u *model.User) (*Session, error) {
	access, err := utils.NewAccessToken(s.cfg.JWTSecret, u.ID, string(u.Role), s.cfg.AccessTTLMin)
	if err != nil {
		return nil, apperr.Wrap(err, "issue access token failed")
	}
	refresh, err := utils.NewRefreshToken(s.cfg.RefreshTTLDays)
	if err != nil {
		return nil, apperr.Wrap(err, "issue refresh token failed")
	}
	if err := s.tokens.StoreRefresh(ctx, u.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return nil, apperr.Wrap(err, "save refresh token failed")
	}
	return &Session{
		User:             u,
		AccessToken:      access.Token,
		AccessExpiresAt:  access.Exp,
		RefreshToken:     refresh.Raw,
		RefreshExpiresAt: refresh.Exp,
	}, nil
}

func (s *AccountService) createUser(ctx context.Context, u *model.User) error {
	if err := s.users.Create(ctx, u); err != nil {
		// unique index on email or firebase uid, hit by a concurrent registration
		return s.userWriteErr(err)
	}
	return nil
}

func (s *AccountService) userWriteErr(err error) error {
	if errors.Is(err, repository.ErrDuplicate) {
		return apperr.Conflictf("an account with this email already exists")
	}
	return storeErr(err, msgUserNotFound)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
