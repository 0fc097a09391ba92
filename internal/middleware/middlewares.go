package middleware

import (
	"github.com/newrelic/go-agent/v3/newrelic"

	"github.com/deppfellow/escuela/internal/server"
)

// Middlewares groups every middleware component so the router gets a
// single value to work with.
type Middlewares struct {
	// Global holds CORS, request logging, recovery, secure headers, body
	// limit and the global error handler.
	Global *GlobalMiddlewares

	// Auth checks access tokens on the protected routes.
	Auth *AuthMiddleware

	// ContextEnhancer attaches the request-scoped logger.
	ContextEnhancer *ContextEnhancer

	// Tracing installs New Relic and adds custom attributes.
	Tracing *TracingMiddleware

	// RateLimit throttles failed logins.
	RateLimit *RateLimitMiddleware
}

// NewMiddlewares constructs all middleware components. Tracing degrades to
// a no-op when New Relic is not configured.
func NewMiddlewares(s *server.Server, tokens TokenParser) *Middlewares {
	var nrApp *newrelic.Application
	if s.LoggerService != nil {
		nrApp = s.LoggerService.GetApplication()
	}

	return &Middlewares{
		Global:          NewGlobalMiddlewares(s),
		Auth:            NewAuthMiddleware(s, tokens),
		ContextEnhancer: NewContextEnhancer(s),
		Tracing:         NewTracingMiddleware(s, nrApp),
		RateLimit:       NewRateLimitMiddleware(s),
	}
}
