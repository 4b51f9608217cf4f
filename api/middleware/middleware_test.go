package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kiranakart/cart-engine/pkg/auth"
	"github.com/kiranakart/cart-engine/pkg/config"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "test-secret",
		Issuer:            "kiranakart",
		ExpirationMinutes: 15,
	}
}

func TestRequestIDMintedWhenAbsent(t *testing.T) {
	t.Parallel()

	var seen string
	handler := RequestID(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = RequestIDFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if seen == "" {
		t.Fatal("expected a generated request id")
	}
	if rec.Header().Get("X-Request-Id") != seen {
		t.Fatal("request id not echoed on the response")
	}
}

func TestRequestIDPreserved(t *testing.T) {
	t.Parallel()

	var seen string
	handler := RequestID(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = RequestIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-Id", "client-id-1")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if seen != "client-id-1" {
		t.Fatalf("expected client-id-1, got %q", seen)
	}
}

func TestRequireDeviceRejectsMissingHeader(t *testing.T) {
	t.Parallel()

	handler := RequireDevice(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run without a device id")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestRequireDevicePropagatesHeader(t *testing.T) {
	t.Parallel()

	var seen string
	handler := RequireDevice(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = DeviceIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Device-Id", "device-7")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if seen != "device-7" {
		t.Fatalf("expected device-7, got %q", seen)
	}
}

func TestOptionalAuthAnonymousPassesThrough(t *testing.T) {
	t.Parallel()

	called := false
	handler := OptionalAuth(testJWTConfig(), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		if _, ok := UserIDFromContext(r.Context()); ok {
			t.Fatal("anonymous request must not carry a user id")
		}
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if !called {
		t.Fatal("handler not reached")
	}
}

func TestOptionalAuthValidToken(t *testing.T) {
	t.Parallel()
	cfg := testJWTConfig()

	token, err := auth.MintAccessToken(cfg, time.Now(), auth.AccessTokenPayload{UserID: "user-42"})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	var seen string
	handler := OptionalAuth(cfg, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = UserIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if seen != "user-42" {
		t.Fatalf("expected user-42, got %q", seen)
	}
}

func TestOptionalAuthRejectsBadToken(t *testing.T) {
	t.Parallel()

	handler := OptionalAuth(testJWTConfig(), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run with an invalid token")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestRecovererConvertsPanics(t *testing.T) {
	t.Parallel()

	handler := Recoverer(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}
