package handler

import (
	"reflect"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/newrelic/go-agent/v3/newrelic"

	"github.com/deppfellow/escuela/internal/middleware"
	"github.com/deppfellow/escuela/internal/server"
	"github.com/deppfellow/escuela/internal/validation"
)

// Handler carries the shared dependencies of every endpoint.
type Handler struct {
	server *server.Server
}

func NewHandler(s *server.Server) Handler {
	return Handler{server: s}
}

// HandlerFunc is a typed endpoint: it receives a bound and validated
// request and returns the response body or an error.
//
// Req is a pointer to a request struct, e.g. *CreateSubjectRequest.
type HandlerFunc[Req validation.Validatable, Res any] func(c echo.Context, req Req) (Res, error)

// newRequest returns a fresh zero value of the request type. The value
// given to Handle is only a type witness; sharing it would leak fields
// between concurrent requests.
func newRequest[Req validation.Validatable](witness Req) Req {
	t := reflect.TypeOf(witness)
	if t == nil || t.Kind() != reflect.Pointer {
		return witness
	}
	return reflect.New(t.Elem()).Interface().(Req)
}

type phase struct {
	name     string
	started  time.Time
	duration time.Duration
}

func begin(name string) phase { return phase{name: name, started: time.Now()} }

func (p *phase) end() time.Duration {
	p.duration = time.Since(p.started)
	return p.duration
}

// record adds "<phase>.status" and "<phase>.duration_ms" to the transaction.
func (p phase) record(txn *newrelic.Transaction, err error) {
	if txn == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "failed"
	}
	txn.AddAttribute(p.name+".status", status)
	txn.AddAttribute(p.name+".duration_ms", p.duration.Milliseconds())
}

// Handle adapts a typed endpoint to Echo. The request is bound and
// validated first, a failure there never reaches the endpoint. A success
// is written as JSON with the given status; errors are left to the global
// error handler.
//
//	g.POST("/materias", handler.Handle(h.Handler, h.Create, http.StatusCreated, &CreateSubjectRequest{}))
func Handle[Req validation.Validatable, Res any](
	h Handler,
	endpoint HandlerFunc[Req, Res],
	status int,
	witness Req,
) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := newRequest(witness)
		txn := newrelic.FromContext(c.Request().Context())
		if txn != nil {
			txn.AddAttribute("handler.name", c.Path())
		}

		logger := middleware.GetLogger(c).With().
			Str("route", c.Path()).
			Logger()

		validating := begin("validation")
		err := validation.BindAndValidate(c, req)
		validating.end()
		validating.record(txn, err)
		if err != nil {
			logger.Warn().Err(err).Dur("validation_duration", validating.duration).Msg("request rejected")
			return err
		}

		running := begin("handler")
		res, err := endpoint(c, req)
		running.end()
		running.record(txn, err)
		if err != nil {
			logger.Warn().Err(err).Dur("handler_duration", running.duration).Msg("request failed")
			return err
		}

		logger.Debug().
			Dur("validation_duration", validating.duration).
			Dur("handler_duration", running.duration).
			Msg("request handled")

		return c.JSON(status, res)
	}
}
