package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/deppfellow/escuela/internal/server"
	"github.com/deppfellow/escuela/internal/service"
	"github.com/deppfellow/escuela/internal/validation"
)

type AuthHandler struct {
	Handler
	auth *service.AuthService
}

func NewAuthHandler(s *server.Server, auth *service.AuthService) *AuthHandler {
	return &AuthHandler{Handler: NewHandler(s), auth: auth}
}

// LoginRequest has no required tags: empty credentials are just wrong
// credentials and get the same 401.
type LoginRequest struct {
	Username string `json:"username" validate:"max=255"`
	Password string `json:"password" validate:"max=72"`
}

func (r *LoginRequest) Validate() error { return validation.Struct(r) }

type LoginResponse struct {
	AccessToken string `json:"accessToken"`
}

func (h *AuthHandler) Login(c echo.Context, req *LoginRequest) (LoginResponse, error) {
	token, err := h.auth.Authenticate(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		return LoginResponse{}, err
	}
	return LoginResponse{AccessToken: token}, nil
}
