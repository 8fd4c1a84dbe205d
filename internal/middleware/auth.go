package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/Alturino/storefront/internal"
	"github.com/Alturino/storefront/internal/config"
	"github.com/Alturino/storefront/internal/constants"
	inErrors "github.com/Alturino/storefront/internal/errors"
	inHttp "github.com/Alturino/storefront/internal/http"
	"github.com/Alturino/storefront/internal/otel"
)

func bearerToken(r *http.Request) (string, error) {
	authorization := strings.TrimSpace(r.Header.Get(inHttp.KEY_HEADER_AUTHORIZATION))
	if authorization == "" {
		return "", inErrors.ErrEmptyAuth
	}
	prefix := inHttp.VALUE_BEARER_PREFIX
	if len(authorization) <= len(prefix) || !strings.EqualFold(authorization[:len(prefix)], prefix) {
		return "", inErrors.ErrTokenInvalid
	}
	return strings.TrimSpace(authorization[len(prefix):]), nil
}

func verifyRequest(c context.Context, r *http.Request, cfg config.Auth) (*jwt.Token, error) {
	token, err := bearerToken(r)
	if err != nil {
		return nil, err
	}
	return internal.VerifyToken(c, token, cfg)
}

// Auth rejects requests without a valid bearer token.
func Auth(cfg config.Auth) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c, span := otel.Tracer.Start(r.Context(), "middleware Auth")
			defer span.End()

			logger := zerolog.Ctx(c).With().Str(constants.KEY_TAG, "middleware Auth").Logger()

			logger = logger.With().Str(constants.KEY_PROCESS, "verifying token").Logger()
			logger.Trace().Msg("verifying token")
			token, err := verifyRequest(c, r, cfg)
			if err != nil {
				err = fmt.Errorf("failed verifying token with error=%w", err)
				otel.RecordError(err, span)
				logger.Error().Err(err).Msg(err.Error())
				message := inErrors.ErrTokenInvalid.Error()
				if errors.Is(err, inErrors.ErrEmptyAuth) {
					message = inErrors.ErrEmptyAuth.Error()
				}
				inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
					"status":     inHttp.STATUS_FAILED,
					"statusCode": http.StatusUnauthorized,
					"message":    message,
				})
				return
			}
			logger.Trace().Msg("verified token")

			next.ServeHTTP(w, r.WithContext(internal.AttachJwtToken(r.Context(), token)))
		})
	}
}

// OptionalAuth attaches the token when one is present and valid and otherwise
// lets the request through anonymously.
func OptionalAuth(cfg config.Auth) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c, span := otel.Tracer.Start(r.Context(), "middleware OptionalAuth")
			defer span.End()

			logger := zerolog.Ctx(c).With().Str(constants.KEY_TAG, "middleware OptionalAuth").Logger()

			token, err := verifyRequest(c, r, cfg)
			if err != nil {
				logger.Debug().Err(err).Msg("continuing without identity")
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(internal.AttachJwtToken(r.Context(), token)))
		})
	}
}
