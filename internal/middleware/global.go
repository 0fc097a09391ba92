package middleware

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/deppfellow/escuela/internal/errs"
	"github.com/deppfellow/escuela/internal/server"
	"github.com/deppfellow/escuela/internal/sqlerr"
)

// multipartOverhead is the room left for form fields next to the photo.
const multipartOverhead = 1 << 20

// GlobalMiddlewares groups the middleware applied to every route and the
// global error handler.
type GlobalMiddlewares struct {
	server *server.Server
}

func NewGlobalMiddlewares(s *server.Server) *GlobalMiddlewares {
	return &GlobalMiddlewares{server: s}
}

// CORS allows the configured dashboard origins. Requests without an Origin
// header (curl, the Go client) are not affected.
func (global *GlobalMiddlewares) CORS() echo.MiddlewareFunc {
	return middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: global.server.Config.Server.CORSAllowedOrigins,
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	})
}

// BodyLimit caps request bodies at the photo limit plus room for the
// other form fields.
func (global *GlobalMiddlewares) BodyLimit() echo.MiddlewareFunc {
	limit := global.server.Config.Storage.MaxUploadSize + multipartOverhead
	return middleware.BodyLimit(fmt.Sprintf("%dB", limit))
}

func (global *GlobalMiddlewares) Recover() echo.MiddlewareFunc {
	return middleware.Recover()
}

func (global *GlobalMiddlewares) Secure() echo.MiddlewareFunc {
	return middleware.Secure()
}

// toHTTPError maps any error returned by a handler onto the response
// body. Errors that are neither *errs.HTTPError nor *echo.HTTPError go
// through sqlerr.HandleError, which never exposes driver messages.
func toHTTPError(err error) *errs.HTTPError {
	var httpErr *errs.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr
	}

	var echoErr *echo.HTTPError
	if !errors.As(err, &echoErr) {
		if errors.As(sqlerr.HandleError(err), &httpErr) {
			return httpErr
		}
		return errs.NewInternalServerError()
	}

	if echoErr.Code == http.StatusNotFound {
		return errs.NewNotFoundError("Route not found", false, nil)
	}

	message, ok := echoErr.Message.(string)
	if !ok {
		message = http.StatusText(echoErr.Code)
	}
	return &errs.HTTPError{
		Code:    errs.MakeUpperCaseWithUnderscores(http.StatusText(echoErr.Code)),
		Message: message,
		Status:  echoErr.Code,
	}
}

// RequestLogger writes one "API" line per request. It runs before the
// global error handler has written anything, so the status of a failed
// request is derived from its error.
func (global *GlobalMiddlewares) RequestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:     true,
		LogStatus:  true,
		LogError:   true,
		LogLatency: true,
		LogHost:    true,
		LogMethod:  true,

		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			status := v.Status
			if v.Error != nil {
				status = toHTTPError(v.Error).Status
			}

			logger := GetLogger(c)

			var event *zerolog.Event
			switch {
			case status >= http.StatusInternalServerError:
				event = logger.Error().Err(v.Error)
			case status >= http.StatusBadRequest:
				event = logger.Warn()
			default:
				event = logger.Info()
			}

			event.
				Dur("latency", v.Latency).
				Int("status", status).
				Str("uri", v.URI).
				Str("host", v.Host).
				Str("user_agent", c.Request().UserAgent()).
				Msg("API")
			return nil
		},
	})
}

// GlobalErrorHandler is the single place where errors become responses.
// 5xx are logged with a stack, the client only sees a generic message.
func (global *GlobalMiddlewares) GlobalErrorHandler(err error, c echo.Context) {
	httpErr := toHTTPError(err)

	logger := GetLogger(c)
	event := logger.Warn()
	if httpErr.Status >= http.StatusInternalServerError {
		event = logger.Error().Stack()
	}
	event.
		Err(err).
		Int("status", httpErr.Status).
		Str("error_code", httpErr.Code).
		Msg(httpErr.Message)

	if c.Response().Committed {
		return
	}
	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(httpErr.Status)
		return
	}
	_ = c.JSON(httpErr.Status, httpErr)
}
