package service

import (
	"context"

	"github.com/deppfellow/escuela/internal/model"
	"github.com/deppfellow/escuela/internal/repository"
)

type ReportService struct {
	repos *repository.Repositories
}

func NewReportService(repos *repository.Repositories) *ReportService {
	return &ReportService{repos: repos}
}

func (s *ReportService) Enrollments(ctx context.Context) ([]model.EnrollmentRow, error) {
	return s.repos.Enrollments.ListRows(ctx)
}

func (s *ReportService) Summary(ctx context.Context) (model.Summary, error) {
	return s.repos.Reports.Summary(ctx)
}
