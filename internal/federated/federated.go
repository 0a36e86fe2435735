// Package federated verifies identity tokens issued by an external identity
// provider and turns them into Identity values the account service trusts.
package federated

import (
	"context"
	"errors"
	"fmt"
	"strings"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"

	"github.com/iliyamo/testdrive-marketplace/internal/config"
)

// ErrInvalidToken is returned for any token that fails verification.
var ErrInvalidToken = errors.New("invalid federated token")

// Identity is the verified subset of a federated token's claims.
type Identity struct {
	UID     string
	Email   string
	Name    string
	Picture string
}

// Verifier checks a raw ID token.
type Verifier interface {
	Verify(ctx context.Context, idToken string) (Identity, error)
}

// tokenVerifier is the part of *auth.Client used here.
type tokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

// FirebaseVerifier verifies Firebase ID tokens with the Admin SDK.
type FirebaseVerifier struct {
	client tokenVerifier
}

// NewFirebaseVerifier builds the Admin SDK client for cfg. When cfg has no
// project id a Disabled verifier is returned instead.
func NewFirebaseVerifier(ctx context.Context, cfg config.FirebaseConfig) (Verifier, error) {
	if cfg.ProjectID == "" {
		return Disabled{}, nil
	}
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.ProjectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("firebase app: %w", err)
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase auth: %w", err)
	}
	return &FirebaseVerifier{client: client}, nil
}

// Verify checks signature, audience and expiry of idToken. Tokens without an
// email claim are rejected because accounts are keyed by email.
func (v *FirebaseVerifier) Verify(ctx context.Context, idToken string) (Identity, error) {
	if strings.TrimSpace(idToken) == "" {
		return Identity{}, ErrInvalidToken
	}
	tok, err := v.client.VerifyIDToken(ctx, idToken)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	id := Identity{
		UID:     tok.UID,
		Email:   claim(tok.Claims, "email"),
		Name:    claim(tok.Claims, "name"),
		Picture: claim(tok.Claims, "picture"),
	}
	if id.UID == "" || id.Email == "" {
		return Identity{}, ErrInvalidToken
	}
	return id, nil
}

func claim(claims map[string]interface{}, key string) string {
	if s, ok := claims[key].(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

// Disabled rejects every token. It is used when federated sign-in is not
// configured.
type Disabled struct{}

func (Disabled) Verify(context.Context, string) (Identity, error) {
	return Identity{}, ErrInvalidToken
}
