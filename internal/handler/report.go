package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/deppfellow/escuela/internal/model"
	"github.com/deppfellow/escuela/internal/server"
	"github.com/deppfellow/escuela/internal/service"
)

type ReportHandler struct {
	Handler
	reports *service.ReportService
}

func NewReportHandler(s *server.Server, reports *service.ReportService) *ReportHandler {
	return &ReportHandler{Handler: NewHandler(s), reports: reports}
}

func (h *ReportHandler) Enrollments(c echo.Context, _ *ListRequest) ([]model.EnrollmentRow, error) {
	return h.reports.Enrollments(c.Request().Context())
}

func (h *ReportHandler) Summary(c echo.Context, _ *ListRequest) (model.Summary, error) {
	return h.reports.Summary(c.Request().Context())
}
