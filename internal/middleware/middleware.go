// Package middleware stores global and route-specific middleware.
//
// These intercept requests to handle cross-cutting concerns
// such as token authentication, login throttling, request logging,
// CORS, tracing and panic recovery
package middleware
