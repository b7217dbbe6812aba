package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

func signTestToken(t *testing.T, key []byte, sub string, roles []string, expiry time.Time) string {
	t.Helper()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			ExpiresAt: jwt.NewNumericDate(expiry),
		},
		Roles: roles,
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
	if err != nil {
		t.Fatalf("sign test token: %v", err)
	}
	return tok
}

func runMiddleware(mw echo.MiddlewareFunc, req *http.Request) (*httptest.ResponseRecorder, error, echo.Context) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	var inner echo.Context
	err := mw(func(c echo.Context) error {
		inner = c
		return c.NoContent(http.StatusOK)
	})(c)
	return rec, err, inner
}

func TestJWTMiddleware_MissingHeader(t *testing.T) {
	mw := JWTMiddleware(JWTConfig{SigningKey: []byte("k")})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, err, _ := runMiddleware(mw, req)

	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %v", err)
	}
}

func TestJWTMiddleware_ValidToken(t *testing.T) {
	key := []byte("dev-key")
	mw := JWTMiddleware(JWTConfig{SigningKey: key})

	tok := signTestToken(t, key, "doc-1", []string{"doctor"}, time.Now().Add(time.Hour))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)

	_, err, inner := runMiddleware(mw, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx := inner.Request().Context()
	if got := UserIDFromContext(ctx); got != "doc-1" {
		t.Errorf("expected user id doc-1, got %q", got)
	}
	roles := RolesFromContext(ctx)
	if len(roles) != 1 || roles[0] != "doctor" {
		t.Errorf("expected roles [doctor], got %v", roles)
	}
}

func TestJWTMiddleware_ExpiredToken(t *testing.T) {
	key := []byte("dev-key")
	mw := JWTMiddleware(JWTConfig{SigningKey: key})

	tok := signTestToken(t, key, "doc-1", []string{"doctor"}, time.Now().Add(-time.Hour))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)

	_, err, _ := runMiddleware(mw, req)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for expired token, got %v", err)
	}
}

func TestDevAuthMiddleware_SetsDefaults(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, err, inner := runMiddleware(DevAuthMiddleware(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := UserIDFromContext(inner.Request().Context()); got != "dev-doctor" {
		t.Errorf("expected dev-doctor, got %q", got)
	}
}

func TestRequireRole(t *testing.T) {
	key := []byte("dev-key")
	jwtMW := JWTMiddleware(JWTConfig{SigningKey: key})
	guard := RequireRole("doctor")

	chain := func(req *http.Request) error {
		e := echo.New()
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		return jwtMW(func(c echo.Context) error {
			return guard(func(c echo.Context) error {
				return c.NoContent(http.StatusOK)
			})(c)
		})(c)
	}

	docTok := signTestToken(t, key, "doc-1", []string{"doctor"}, time.Now().Add(time.Hour))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+docTok)
	if err := chain(req); err != nil {
		t.Errorf("expected doctor to pass, got %v", err)
	}

	patTok := signTestToken(t, key, "pat-1", []string{"patient"}, time.Now().Add(time.Hour))
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+patTok)
	err := chain(req)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusForbidden {
		t.Errorf("expected 403 for patient role, got %v", err)
	}
}
