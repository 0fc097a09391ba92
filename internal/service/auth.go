package service

import (
	"context"
	"crypto/subtle"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/deppfellow/escuela/internal/config"
	"github.com/deppfellow/escuela/internal/errs"
)

const (
	// TokenTTL is the fixed lifetime of an access token. There is no refresh.
	TokenTTL = 8 * time.Hour

	// RoleAdmin is the only role the API knows about.
	RoleAdmin = "admin"
)

// Claims is the payload of an access token.
type Claims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// AuthService checks the administrator's credentials and issues and
// verifies HS256 access tokens. Tokens are never stored.
type AuthService struct {
	secret       []byte
	username     string
	passwordHash []byte

	// dummyHash is compared against when the username is wrong, so both
	// failure paths take the same time.
	dummyHash []byte

	now func() time.Time
}

// NewAuthService builds the service from an already resolved admin config
// (see config.LoadConfig).
func NewAuthService(auth config.AuthConfig, admin config.AdminConfig) (*AuthService, error) {
	cost, err := bcrypt.Cost([]byte(admin.PasswordHash))
	if err != nil {
		return nil, fmt.Errorf("admin password hash: %w", err)
	}

	dummy, err := bcrypt.GenerateFromPassword([]byte(strconv.FormatInt(time.Now().UnixNano(), 36)), cost)
	if err != nil {
		return nil, fmt.Errorf("generating dummy hash: %w", err)
	}

	return &AuthService{
		secret:       []byte(auth.SecretKey),
		username:     admin.Username,
		passwordHash: []byte(admin.PasswordHash),
		dummyHash:    dummy,
		now:          time.Now,
	}, nil
}

// Authenticate returns a fresh token for valid credentials and an
// INVALID_CREDENTIALS error otherwise. It does not say which part was wrong.
func (a *AuthService) Authenticate(ctx context.Context, username, password string) (string, error) {
	hash := a.passwordHash
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(a.username)) == 1
	if !userOK {
		hash = a.dummyHash
	}

	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil || !userOK {
		return "", errs.NewInvalidCredentialsError()
	}

	return a.IssueToken(a.username)
}

// IssueToken signs a token for username that expires TokenTTL from now.
func (a *AuthService) IssueToken(username string) (string, error) {
	now := a.now().UTC()
	claims := Claims{
		Username: username,
		Role:     RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenTTL)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// ParseToken verifies signature, algorithm and expiry.
func (a *AuthService) ParseToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(*jwt.Token) (interface{}, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}
