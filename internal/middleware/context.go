package middleware

import (
	"github.com/labstack/echo/v4"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/rs/zerolog"

	"github.com/deppfellow/escuela/internal/logger"
	"github.com/deppfellow/escuela/internal/server"
)

// Keys under which request state lives in the echo.Context.
const (
	UserIDKey   = "user_id"
	UserRoleKey = "user_role"
	LoggerKey   = "logger"
)

// ContextEnhancer gives every request its own logger.
type ContextEnhancer struct {
	server *server.Server
}

func NewContextEnhancer(s *server.Server) *ContextEnhancer {
	return &ContextEnhancer{server: s}
}

// EnhanceContext derives the request logger from the server logger. It is
// also attached to the request context, so zerolog.Ctx works below the
// handler layer.
func (ce *ContextEnhancer) EnhanceContext() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			l := ce.server.Logger.With().
				Str("request_id", GetRequestID(c)).
				Str("method", c.Request().Method).
				Str("route", c.Path()).
				Str("ip", c.RealIP()).
				Logger()

			if txn := newrelic.FromContext(c.Request().Context()); txn != nil {
				l = logger.WithTraceContext(l, txn)
			}

			setLogger(c, l)
			return next(c)
		}
	}
}

func setLogger(c echo.Context, l zerolog.Logger) {
	c.Set(LoggerKey, &l)
	c.SetRequest(c.Request().WithContext(l.WithContext(c.Request().Context())))
}

// setIdentity records the authenticated user and adds it to the request
// logger.
func setIdentity(c echo.Context, username, role string) {
	c.Set(UserIDKey, username)
	c.Set(UserRoleKey, role)

	if l, ok := c.Get(LoggerKey).(*zerolog.Logger); ok {
		setLogger(c, l.With().Str("user_id", username).Str("user_role", role).Logger())
	}
}

// GetUserID returns the authenticated username, or "".
func GetUserID(c echo.Context) string {
	id, _ := c.Get(UserIDKey).(string)
	return id
}

// GetUserRole returns the authenticated role, or "".
func GetUserRole(c echo.Context) string {
	role, _ := c.Get(UserRoleKey).(string)
	return role
}

// GetLogger returns the request logger, or a disabled one when
// EnhanceContext did not run.
func GetLogger(c echo.Context) *zerolog.Logger {
	if l, ok := c.Get(LoggerKey).(*zerolog.Logger); ok {
		return l
	}
	nop := zerolog.Nop()
	return &nop
}
