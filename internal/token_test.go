package internal

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alturino/storefront/internal/config"
	"github.com/Alturino/storefront/internal/errors"
)

var authConfig = config.Auth{
	SecretKey: "secret-for-tests",
	Issuer:    "auth-service",
	Audience:  "audience-user",
}

func signed(t *testing.T, cfg config.Auth, claims jwt.RegisteredClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.SecretKey))
	require.NoError(t, err)
	return token
}

func TestVerifyToken(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name    string
		token   func(t *testing.T) string
		subject string
		err     error
	}{
		{
			name: "issued token is accepted",
			token: func(t *testing.T) string {
				token, err := IssueToken(authConfig, "u1", time.Hour)
				require.NoError(t, err)
				return token
			},
			subject: "u1",
		},
		{
			name: "expired token is rejected",
			token: func(t *testing.T) string {
				return signed(t, authConfig, jwt.RegisteredClaims{
					Issuer:    authConfig.Issuer,
					Subject:   "u1",
					Audience:  jwt.ClaimStrings{authConfig.Audience},
					IssuedAt:  jwt.NewNumericDate(now.Add(-2 * time.Hour)),
					ExpiresAt: jwt.NewNumericDate(now.Add(-time.Hour)),
				})
			},
			err: errors.ErrTokenInvalid,
		},
		{
			name: "missing expiry is rejected",
			token: func(t *testing.T) string {
				return signed(t, authConfig, jwt.RegisteredClaims{
					Issuer:   authConfig.Issuer,
					Subject:  "u1",
					Audience: jwt.ClaimStrings{authConfig.Audience},
				})
			},
			err: errors.ErrTokenInvalid,
		},
		{
			name: "wrong audience is rejected",
			token: func(t *testing.T) string {
				cfg := authConfig
				cfg.Audience = "someone-else"
				token, err := IssueToken(cfg, "u1", time.Hour)
				require.NoError(t, err)
				return token
			},
			err: errors.ErrTokenInvalid,
		},
		{
			name: "wrong secret is rejected",
			token: func(t *testing.T) string {
				cfg := authConfig
				cfg.SecretKey = "another-secret"
				token, err := IssueToken(cfg, "u1", time.Hour)
				require.NoError(t, err)
				return token
			},
			err: errors.ErrTokenInvalid,
		},
		{
			name: "empty subject is rejected",
			token: func(t *testing.T) string {
				token, err := IssueToken(authConfig, "", time.Hour)
				require.NoError(t, err)
				return token
			},
			err: errors.ErrEmptySubject,
		},
		{
			name: "garbage is rejected",
			token: func(t *testing.T) string {
				return "not-a-jwt"
			},
			err: errors.ErrTokenInvalid,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			c := context.Background()
			token, err := VerifyToken(c, test.token(t), authConfig)
			if test.err != nil {
				assert.ErrorIs(t, err, test.err)
				assert.Nil(t, token)
				return
			}
			require.NoError(t, err)

			c = AttachJwtToken(c, token)
			ownerId, err := OwnerIdFromJwtToken(c)
			require.NoError(t, err)
			assert.Equal(t, test.subject, ownerId)
		})
	}
}

func TestOwnerIdFromJwtTokenWithoutToken(t *testing.T) {
	ownerId, err := OwnerIdFromJwtToken(context.Background())
	assert.ErrorIs(t, err, errors.ErrUnauthenticated)
	assert.Empty(t, ownerId)
}
