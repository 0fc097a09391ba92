// Package handler is the HTTP layer between the router and the services.
//
// Each endpoint is a typed function that receives a bound and validated
// request struct and returns the response body; Handle adapts it to Echo
// and takes care of logging, tracing and the JSON response.
package handler

import (
	"github.com/deppfellow/escuela/internal/server"
	"github.com/deppfellow/escuela/internal/service"
)

// Handlers groups every HTTP handler so the router receives one value.
type Handlers struct {
	Health   *HealthHandler
	OpenAPI  *OpenAPIHandler
	Auth     *AuthHandler
	Students *StudentHandler
	Teachers *TeacherHandler
	Subjects *SubjectHandler
	Reports  *ReportHandler
}

func NewHandlers(s *server.Server, services *service.Services) *Handlers {
	return &Handlers{
		Health:   NewHealthHandler(s),
		OpenAPI:  NewOpenAPIHandler(s),
		Auth:     NewAuthHandler(s, services.Auth),
		Students: NewStudentHandler(s, services.Students),
		Teachers: NewTeacherHandler(s, services.Teachers),
		Subjects: NewSubjectHandler(s, services.Subjects),
		Reports:  NewReportHandler(s, services.Reports),
	}
}
