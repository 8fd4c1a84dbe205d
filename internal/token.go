package internal

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Alturino/storefront/internal/config"
	"github.com/Alturino/storefront/internal/constants"
	"github.com/Alturino/storefront/internal/errors"
	"github.com/Alturino/storefront/internal/otel"
)

func VerifyToken(c context.Context, token string, cfg config.Auth) (*jwt.Token, error) {
	c, span := otel.Tracer.Start(c, "VerifyToken")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "VerifyToken").
		Logger()

	logger = logger.With().Str(constants.KEY_PROCESS, "parsing claims").Logger()
	logger.Trace().Msg("parsing claims")
	jwtToken, err := jwt.ParseWithClaims(token,
		&jwt.RegisteredClaims{},
		func(t *jwt.Token) (interface{}, error) {
			return []byte(cfg.SecretKey), nil
		},
		jwt.WithAudience(cfg.Audience),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithIssuer(cfg.Issuer),
	)
	if err != nil {
		err = fmt.Errorf("failed parsing claims with error=%w: %w", errors.ErrTokenInvalid, err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	logger.Trace().Msg("parsed claims")

	logger = logger.With().Str(constants.KEY_PROCESS, "validating token").Logger()
	logger.Trace().Msg("validating token")
	if !jwtToken.Valid {
		err = fmt.Errorf("failed validating token with error=%w", errors.ErrTokenInvalid)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	subject, err := jwtToken.Claims.GetSubject()
	if err != nil || subject == "" {
		err = fmt.Errorf("failed validating token with error=%w", errors.ErrEmptySubject)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	logger.Trace().Str(constants.KEY_USER_ID, subject).Msg("validated token")

	return jwtToken, nil
}

// IssueToken signs an HS256 token the way the external auth provider does. It
// exists for local development and tests; the cart service never issues tokens.
func IssueToken(cfg config.Auth, subject string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Issuer:    cfg.Issuer,
		Subject:   subject,
		Audience:  jwt.ClaimStrings{cfg.Audience},
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.SecretKey))
	if err != nil {
		return "", fmt.Errorf("failed signing token with error=%w", err)
	}
	return signed, nil
}

type jwtToken struct{}

func AttachJwtToken(c context.Context, jwt *jwt.Token) context.Context {
	return context.WithValue(c, jwtToken{}, jwt)
}

func JwtTokenFromContext(c context.Context) (*jwt.Token, bool) {
	token, ok := c.Value(jwtToken{}).(*jwt.Token)
	return token, ok && token != nil
}

// OwnerIdFromJwtToken returns the opaque subject of the verified token attached
// to c, or ErrUnauthenticated when the request carried none.
func OwnerIdFromJwtToken(c context.Context) (string, error) {
	c, span := otel.Tracer.Start(c, "OwnerIdFromJwtToken")
	defer span.End()

	logger := zerolog.Ctx(c).With().Str(constants.KEY_TAG, "OwnerIdFromJwtToken").Logger()

	logger = logger.With().Str(constants.KEY_PROCESS, "getting ownerId from jwtToken").Logger()
	logger.Trace().Msg("getting jwtToken from context")
	token, ok := JwtTokenFromContext(c)
	if !ok {
		err := fmt.Errorf("failed getting jwtToken from context with error=%w", errors.ErrUnauthenticated)
		otel.RecordError(err, span)
		logger.Debug().Err(err).Msg(err.Error())
		return "", err
	}

	subject, err := token.Claims.GetSubject()
	if err != nil {
		err = fmt.Errorf("failed getting subject from jwt with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return "", err
	}
	if subject == "" {
		err = fmt.Errorf("failed getting subject from jwt with error=%w", errors.ErrEmptySubject)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return "", err
	}
	span.AddEvent("got subject from jwtToken")
	logger.Trace().Str(constants.KEY_USER_ID, subject).Msg("got subject from jwtToken")

	return subject, nil
}
