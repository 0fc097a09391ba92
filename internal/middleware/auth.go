package middleware

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/deppfellow/escuela/internal/errs"
	"github.com/deppfellow/escuela/internal/server"
	"github.com/deppfellow/escuela/internal/service"
)

// TokenParser verifies access tokens. *service.AuthService implements it.
type TokenParser interface {
	ParseToken(token string) (*service.Claims, error)
}

// AuthMiddleware guards the routes of the api group.
type AuthMiddleware struct {
	server *server.Server
	tokens TokenParser
}

// NewAuthMiddleware constructs an AuthMiddleware.
func NewAuthMiddleware(s *server.Server, tokens TokenParser) *AuthMiddleware {
	return &AuthMiddleware{
		server: s,
		tokens: tokens,
	}
}

// bearerToken returns the token of an "Authorization: Bearer <token>"
// header, or "" when there is none.
func bearerToken(c echo.Context) string {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// RequireAuth rejects requests without a valid access token.
//
// No token at all is a 401. A token that is malformed, signed with another
// key or algorithm, or expired is a 403. On success the username and role
// are stored under UserIDKey and UserRoleKey.
func (auth *AuthMiddleware) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()

		token := bearerToken(c)
		if token == "" {
			return errs.NewUnauthorizedError("Unauthorized", false)
		}

		claims, err := auth.tokens.ParseToken(token)
		if err != nil {
			event := GetLogger(c).Warn().
				Err(err).
				Dur("duration", time.Since(start))
			if errors.Is(err, jwt.ErrTokenExpired) {
				event.Msg("expired access token")
			} else {
				event.Msg("invalid access token")
			}
			return errs.NewForbiddenError("Forbidden", false)
		}

		setIdentity(c, claims.Username, claims.Role)

		GetLogger(c).Debug().
			Dur("duration", time.Since(start)).
			Msg("access token accepted")

		return next(c)
	}
}
