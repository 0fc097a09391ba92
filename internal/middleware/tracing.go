package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/newrelic/go-agent/v3/integrations/nrecho-v4"
	"github.com/newrelic/go-agent/v3/integrations/nrpkgerrors"
	"github.com/newrelic/go-agent/v3/newrelic"

	"github.com/deppfellow/escuela/internal/server"
)

// TracingMiddleware reports requests to New Relic. Both middlewares are
// pass-through when the agent is disabled.
type TracingMiddleware struct {
	server *server.Server
	nrApp  *newrelic.Application
}

func NewTracingMiddleware(s *server.Server, nrApp *newrelic.Application) *TracingMiddleware {
	return &TracingMiddleware{server: s, nrApp: nrApp}
}

func (tm *TracingMiddleware) NewRelicMiddleware() echo.MiddlewareFunc {
	if tm.nrApp == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	return nrecho.Middleware(tm.nrApp)
}

// clientError reports whether err ends as a 4xx response. Those are the
// caller's fault and are not noticed as errors.
func clientError(err error) bool {
	return toHTTPError(err).Status < http.StatusInternalServerError
}

// EnhanceTracing adds request attributes to the transaction started by
// NewRelicMiddleware and notices server-side failures.
func (tm *TracingMiddleware) EnhanceTracing() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			txn := newrelic.FromContext(c.Request().Context())
			if txn == nil {
				return next(c)
			}

			txn.AddAttribute("http.real_ip", c.RealIP())
			txn.AddAttribute("request.id", GetRequestID(c))

			err := next(c)

			// The user is only known after RequireAuth, deeper in the chain.
			if user := GetUserID(c); user != "" {
				txn.AddAttribute("user.id", user)
				txn.AddAttribute("user.role", GetUserRole(c))
			}

			if err != nil && !clientError(err) {
				txn.NoticeError(nrpkgerrors.Wrap(err))
			}

			return err
		}
	}
}
