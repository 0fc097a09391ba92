package service

import (
	"context"

	"github.com/deppfellow/escuela/internal/model"
	"github.com/deppfellow/escuela/internal/repository"
)

type SubjectService struct {
	repos *repository.Repositories
}

func NewSubjectService(repos *repository.Repositories) *SubjectService {
	return &SubjectService{repos: repos}
}

func (s *SubjectService) Create(ctx context.Context, nombre string) (model.Subject, error) {
	return s.repos.Subjects.Create(ctx, nombre)
}

func (s *SubjectService) Rename(ctx context.Context, id int64, nombre string) (model.Subject, error) {
	return s.repos.Subjects.Rename(ctx, id, nombre)
}

func (s *SubjectService) Delete(ctx context.Context, id int64) error {
	return s.repos.Subjects.Delete(ctx, id)
}

func (s *SubjectService) ListWithTeachers(ctx context.Context) ([]model.SubjectWithTeachers, error) {
	return s.repos.Subjects.ListWithTeachers(ctx)
}

// AssignTeachers replaces the subject's whole teacher set.
func (s *SubjectService) AssignTeachers(ctx context.Context, id int64, teacherIDs []int64) error {
	return s.repos.Assignments.ReplaceTeachersForSubject(ctx, id, teacherIDs)
}
