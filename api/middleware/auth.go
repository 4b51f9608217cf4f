package middleware

import (
	"net/http"
	"strings"

	"github.com/kiranakart/cart-engine/api/responses"
	"github.com/kiranakart/cart-engine/pkg/auth"
	"github.com/kiranakart/cart-engine/pkg/config"
	pkgerrors "github.com/kiranakart/cart-engine/pkg/errors"
	"github.com/kiranakart/cart-engine/pkg/logger"
)

const deviceIDHeader = "X-Device-Id"

// RequireDevice rejects any request that does not identify the device the
// cart session belongs to.
func RequireDevice(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			deviceID := strings.TrimSpace(r.Header.Get(deviceIDHeader))
			if deviceID == "" {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.New(pkgerrors.CodeValidation, "X-Device-Id header is required"))
				return
			}

			ctx := WithDeviceID(r.Context(), deviceID)
			if logg != nil {
				ctx = logg.WithDeviceID(ctx, deviceID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuth parses a bearer token when present. A missing header leaves
// the request anonymous; a malformed or invalid token is rejected so clients
// never silently operate on the guest cart while believing they are signed in.
func OptionalAuth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := strings.TrimSpace(r.Header.Get("Authorization"))
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}

			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || strings.TrimSpace(token) == "" {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.New(pkgerrors.CodeUnauthorized, "authorization header must be a bearer token"))
				return
			}

			claims, err := auth.ParseAccessToken(cfg, strings.TrimSpace(token))
			if err != nil {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid access token"))
				return
			}

			ctx := WithUserID(r.Context(), claims.UserID)
			if logg != nil {
				ctx = logg.WithUserID(ctx, claims.UserID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
