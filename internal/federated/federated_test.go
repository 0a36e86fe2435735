package federated

import (
	"context"
	"errors"
	"testing"

	"firebase.google.com/go/v4/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/testdrive-marketplace/internal/config"
)

type stubClient struct {
	tok *auth.Token
	err error
}

func (s stubClient) VerifyIDToken(context.Context, string) (*auth.Token, error) { return s.tok, s.err }

func TestFirebaseVerifierExtractsClaims(t *testing.T) {
	v := &FirebaseVerifier{client: stubClient{tok: &auth.Token{
		UID:    "fb-1",
		Claims: map[string]interface{}{"email": "jay@x.com", "name": "Jay", "picture": "https://img/p.png"},
	}}}
	id, err := v.Verify(context.Background(), "token")
	require.NoError(t, err)
	assert.Equal(t, Identity{UID: "fb-1", Email: "jay@x.com", Name: "Jay", Picture: "https://img/p.png"}, id)
}

func TestFirebaseVerifierRejects(t *testing.T) {
	cases := map[string]*FirebaseVerifier{
		"sdk error": {client: stubClient{err: errors.New("expired")}},
		"no email":  {client: stubClient{tok: &auth.Token{UID: "fb-1", Claims: map[string]interface{}{}}}},
	}
	for name, v := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := v.Verify(context.Background(), "token")
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}

	v := &FirebaseVerifier{client: stubClient{}}
	_, err := v.Verify(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestUnconfiguredVerifierIsDisabled(t *testing.T) {
	v, err := NewFirebaseVerifier(context.Background(), config.FirebaseConfig{})
	require.NoError(t, err)
	_, err = v.Verify(context.Background(), "anything")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
