package handler

import (
	_ "embed"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/deppfellow/escuela/internal/server"
)

var (
	//go:embed docs/openapi.html
	openAPIPage []byte

	//go:embed docs/openapi.json
	openAPIDocument []byte
)

// OpenAPIHandler serves the API reference page and the document it renders.
// Both are compiled into the binary so the docs never drift from a
// deployment's working directory.
type OpenAPIHandler struct {
	Handler
}

func NewOpenAPIHandler(s *server.Server) *OpenAPIHandler {
	return &OpenAPIHandler{
		Handler: NewHandler(s),
	}
}

func (h *OpenAPIHandler) ServeOpenAPIUI(c echo.Context) error {
	c.Response().Header().Set("Cache-Control", "no-cache")

	if err := c.HTMLBlob(http.StatusOK, openAPIPage); err != nil {
		return fmt.Errorf("failed to write HTML response: %w", err)
	}
	return nil
}

func (h *OpenAPIHandler) ServeOpenAPIDocument(c echo.Context) error {
	c.Response().Header().Set("Cache-Control", "no-cache")
	return c.Blob(http.StatusOK, echo.MIMEApplicationJSON, openAPIDocument)
}
