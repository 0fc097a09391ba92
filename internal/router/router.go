// Package router builds the Echo instance: global middleware in a fixed
// order, the public system routes and the token-protected API.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/deppfellow/escuela/internal/handler"
	"github.com/deppfellow/escuela/internal/middleware"
	"github.com/deppfellow/escuela/internal/server"
	"github.com/deppfellow/escuela/internal/service"
)

func NewRouter(s *server.Server, h *handler.Handlers, services *service.Services) *echo.Echo {
	middlewares := middleware.NewMiddlewares(s, services.Auth)

	router := echo.New()
	router.HideBanner = true
	router.HidePort = true

	router.HTTPErrorHandler = middlewares.Global.GlobalErrorHandler

	// Tracing comes before the context enhancer so the request logger picks
	// up the New Relic transaction.
	router.Use(
		middleware.RequestID(),
		middlewares.Tracing.NewRelicMiddleware(),
		middlewares.Tracing.EnhanceTracing(),
		middlewares.ContextEnhancer.EnhanceContext(),
		middlewares.Global.RequestLogger(),
		middlewares.Global.Recover(),
		middlewares.Global.Secure(),
		middlewares.Global.CORS(),
		middlewares.Global.BodyLimit(),
	)

	registerSystemRoutes(router, h, s)
	registerAuthRoutes(router, h, middlewares)

	api := router.Group("", middlewares.Auth.RequireAuth)
	registerStudentRoutes(api, h)
	registerTeacherRoutes(api, h)
	registerSubjectRoutes(api, h)
	registerReportRoutes(api, h)

	return router
}
