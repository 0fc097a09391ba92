package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/deppfellow/escuela/internal/config"
	"github.com/deppfellow/escuela/internal/errs"
	"github.com/deppfellow/escuela/internal/server"
	"github.com/deppfellow/escuela/internal/service"
)

type fakeTokens struct {
	claims *service.Claims
	err    error
}

func (f fakeTokens) ParseToken(string) (*service.Claims, error) { return f.claims, f.err }

func testServer() *server.Server {
	logger := zerolog.Nop()
	return &server.Server{
		Config: &config.Config{
			Auth: config.AuthConfig{MaxLoginAttempts: 2, LoginWindow: time.Minute},
		},
		Logger: &logger,
	}
}

// newEcho wires the global error handler so status codes match production.
func newEcho(s *server.Server) *echo.Echo {
	e := echo.New()
	e.HTTPErrorHandler = NewGlobalMiddlewares(s).GlobalErrorHandler
	return e
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errs.HTTPError {
	t.Helper()
	var body errs.HTTPError
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body: %v (%s)", err, rec.Body.String())
	}
	return body
}

func TestRequireAuth(t *testing.T) {
	s := testServer()

	tests := []struct {
		name   string
		header string
		tokens fakeTokens
		status int
		code   string
	}{
		{name: "missing header", status: http.StatusUnauthorized, code: errs.CodeTokenMissing},
		{name: "not bearer", header: "Basic YWRtaW46YWRtaW4=", status: http.StatusUnauthorized, code: errs.CodeTokenMissing},
		{name: "empty bearer", header: "Bearer ", status: http.StatusUnauthorized, code: errs.CodeTokenMissing},
		{name: "bad token", header: "Bearer abc", tokens: fakeTokens{err: jwt.ErrTokenMalformed}, status: http.StatusForbidden, code: errs.CodeTokenInvalid},
		{name: "expired token", header: "Bearer abc", tokens: fakeTokens{err: jwt.ErrTokenExpired}, status: http.StatusForbidden, code: errs.CodeTokenInvalid},
		{
			name:   "valid token",
			header: "Bearer abc",
			tokens: fakeTokens{claims: &service.Claims{Username: "admin", Role: service.RoleAdmin}},
			status: http.StatusOK,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			e := newEcho(s)
			auth := NewAuthMiddleware(s, tc.tokens)
			e.GET("/alumnos", func(c echo.Context) error {
				return c.String(http.StatusOK, GetUserID(c)+"/"+GetUserRole(c))
			}, auth.RequireAuth)

			req := httptest.NewRequest(http.MethodGet, "/alumnos", nil)
			if tc.header != "" {
				req.Header.Set(echo.HeaderAuthorization, tc.header)
			}
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			if rec.Code != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, rec.Code)
			}
			if tc.status == http.StatusOK {
				if rec.Body.String() != "admin/admin" {
					t.Fatalf("identity not stored in context: %s", rec.Body.String())
				}
				return
			}
			if body := decodeError(t, rec); body.Code != tc.code {
				t.Fatalf("expected code %s, got %s", tc.code, body.Code)
			}
		})
	}
}

func newThrottledLogin(t *testing.T) (*echo.Echo, *miniredis.Miniredis, *string) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	s := testServer()
	s.Redis = rdb

	password := new(string)
	e := newEcho(s)
	e.POST("/login", func(c echo.Context) error {
		if *password != "admin" {
			return errs.NewInvalidCredentialsError()
		}
		return c.JSON(http.StatusOK, map[string]string{"accessToken": "t"})
	}, NewRateLimitMiddleware(s).LoginThrottle())

	return e, mr, password
}

func postLogin(e *echo.Echo) int {
	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	req.RemoteAddr = "10.0.0.7:5555"
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec.Code
}

func TestLoginThrottle(t *testing.T) {
	e, mr, password := newThrottledLogin(t)

	*password = "wrong"
	for i := 0; i < 2; i++ {
		if code := postLogin(e); code != http.StatusUnauthorized {
			t.Fatalf("attempt %d: expected 401, got %d", i+1, code)
		}
	}

	if code := postLogin(e); code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after the limit, got %d", code)
	}

	// Correct credentials are refused too while the window is open.
	*password = "admin"
	if code := postLogin(e); code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 inside the window, got %d", code)
	}

	mr.FastForward(time.Minute + time.Second)

	if code := postLogin(e); code != http.StatusOK {
		t.Fatalf("expected 200 after the window, got %d", code)
	}
}

func TestLoginThrottleResetsOnSuccess(t *testing.T) {
	e, mr, password := newThrottledLogin(t)

	*password = "wrong"
	if code := postLogin(e); code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", code)
	}
	if !mr.Exists(loginFailuresPrefix + "10.0.0.7") {
		t.Fatalf("expected failure counter to exist")
	}

	*password = "admin"
	if code := postLogin(e); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if mr.Exists(loginFailuresPrefix + "10.0.0.7") {
		t.Fatalf("expected failure counter to be cleared")
	}
}

func TestLoginThrottleWithoutRedis(t *testing.T) {
	s := testServer()
	e := newEcho(s)
	e.POST("/login", func(c echo.Context) error {
		return errs.NewInvalidCredentialsError()
	}, NewRateLimitMiddleware(s).LoginThrottle())

	for i := 0; i < 5; i++ {
		if code := postLogin(e); code != http.StatusUnauthorized {
			t.Fatalf("attempt %d: expected 401, got %d", i+1, code)
		}
	}
}

func TestGlobalErrorHandlerHidesInternals(t *testing.T) {
	s := testServer()
	e := newEcho(s)
	e.GET("/boom", func(c echo.Context) error {
		return errs.NewInternalServerError()
	})
	e.GET("/raw", func(c echo.Context) error {
		return http.ErrHandlerTimeout
	})

	for _, path := range []string{"/boom", "/raw"} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("%s: expected 500, got %d", path, rec.Code)
		}
		if body := decodeError(t, rec); body.Message != "Internal Server Error" {
			t.Fatalf("%s: unexpected message %q", path, body.Message)
		}
	}

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown route, got %d", rec.Code)
	}
}
