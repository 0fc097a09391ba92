package middleware

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/deppfellow/escuela/internal/errs"
	"github.com/deppfellow/escuela/internal/server"
)

const loginFailuresPrefix = "login:failures:"

// RateLimitMiddleware throttles failed logins per client IP, counting in
// Redis. Without Redis it lets everything through.
type RateLimitMiddleware struct {
	server *server.Server
}

func NewRateLimitMiddleware(s *server.Server) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		server: s,
	}
}

func (r *RateLimitMiddleware) RecordRateLimitHit(endpoint string) {
	if r.server.LoggerService != nil && r.server.LoggerService.GetApplication() != nil {
		r.server.LoggerService.GetApplication().RecordCustomEvent("RateLimitHit", map[string]interface{}{
			"endpoint": endpoint,
		})
	}
}

// LoginThrottle answers 429 once an IP has failed auth.max_login_attempts
// logins inside auth.login_window. A successful login resets the count.
// Redis errors are logged and the request proceeds.
func (r *RateLimitMiddleware) LoginThrottle() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			rdb := r.server.Redis
			if rdb == nil {
				return next(c)
			}

			ctx := c.Request().Context()
			key := loginFailuresPrefix + c.RealIP()
			limit := r.server.Config.Auth.MaxLoginAttempts

			failures, err := rdb.Get(ctx, key).Int()
			if err != nil && !errors.Is(err, redis.Nil) {
				GetLogger(c).Error().Err(err).Msg("failed to read login failures")
				return next(c)
			}

			if failures >= limit {
				r.RecordRateLimitHit(c.Path())
				retry := rdb.TTL(ctx, key).Val()
				if retry > 0 {
					c.Response().Header().Set("Retry-After", fmt.Sprintf("%d", int(retry.Round(time.Second).Seconds())))
				}
				return errs.NewTooManyRequestsError("Demasiados intentos, intente más tarde")
			}

			handlerErr := next(c)

			switch {
			case handlerErr == nil:
				if err := rdb.Del(ctx, key).Err(); err != nil {
					GetLogger(c).Error().Err(err).Msg("failed to reset login failures")
				}
			case errors.Is(handlerErr, &errs.HTTPError{Code: errs.CodeInvalidCredentials}):
				if err := r.recordFailure(ctx, rdb, key); err != nil {
					GetLogger(c).Error().Err(err).Msg("failed to record login failure")
				}
			}

			return handlerErr
		}
	}
}

// recordFailure bumps the counter. The window starts at the first failure.
func (r *RateLimitMiddleware) recordFailure(ctx context.Context, rdb *redis.Client, key string) error {
	n, err := rdb.Incr(ctx, key).Result()
	if err != nil {
		return err
	}
	if n == 1 {
		return rdb.Expire(ctx, key, r.server.Config.Auth.LoginWindow).Err()
	}
	return nil
}
