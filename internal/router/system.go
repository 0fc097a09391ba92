package router

import (
	"github.com/labstack/echo/v4"

	"github.com/deppfellow/escuela/internal/handler"
	"github.com/deppfellow/escuela/internal/server"
)

// registerSystemRoutes mounts the endpoints that need no token: health,
// API docs and the stored photos.
func registerSystemRoutes(r *echo.Echo, h *handler.Handlers, s *server.Server) {
	r.GET("/status", h.Health.CheckHealth)

	r.GET("/docs", h.OpenAPI.ServeOpenAPIUI)
	r.GET("/docs/openapi.json", h.OpenAPI.ServeOpenAPIDocument)

	if s.Photos != nil {
		r.Static(s.Photos.PublicPath(), s.Photos.Dir())
	}
}
