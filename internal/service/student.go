package service

import (
	"context"
	"mime/multipart"

	"github.com/deppfellow/escuela/internal/model"
	"github.com/deppfellow/escuela/internal/repository"
	"github.com/deppfellow/escuela/internal/sqlerr"
)

type StudentService struct {
	repos  *repository.Repositories
	photos PhotoKeeper
}

func NewStudentService(repos *repository.Repositories, photos PhotoKeeper) *StudentService {
	return &StudentService{repos: repos, photos: photos}
}

// Create stores the photo, if any, then inserts the student. The photo is
// discarded again when the insert fails.
func (s *StudentService) Create(ctx context.Context, fields model.StudentFields, photo *multipart.FileHeader) (model.Student, error) {
	fotoURL, err := s.photos.save(ctx, "foto", photo)
	if err != nil {
		return model.Student{}, err
	}

	student, err := s.repos.Students.Create(ctx, fields, fotoURL)
	if err != nil {
		s.photos.discard(ctx, fotoURL)
		return model.Student{}, err
	}
	return student, nil
}

func (s *StudentService) List(ctx context.Context) ([]model.Student, error) {
	return s.repos.Students.List(ctx)
}

func (s *StudentService) Update(ctx context.Context, id int64, fields model.StudentFields) (model.Student, error) {
	return s.repos.Students.Update(ctx, id, fields)
}

// Delete removes the student row only. Enrollments stay until the caller
// clears them.
func (s *StudentService) Delete(ctx context.Context, id int64) error {
	fotoURL, err := s.repos.Students.Delete(ctx, id)
	if err != nil {
		return err
	}
	s.photos.discard(ctx, fotoURL)
	return nil
}

// Enroll adds a subject to an existing student.
func (s *StudentService) Enroll(ctx context.Context, alumnoID, materiaID int64) (model.Enrollment, error) {
	exists, err := s.repos.Students.Exists(ctx, alumnoID)
	if err != nil {
		return model.Enrollment{}, err
	}
	if !exists {
		return model.Enrollment{}, sqlerr.NotFound("alumnos")
	}
	return s.repos.Enrollments.Enroll(ctx, alumnoID, materiaID)
}

func (s *StudentService) Subjects(ctx context.Context, alumnoID int64) ([]model.Subject, error) {
	return s.repos.Enrollments.ListSubjectsForStudent(ctx, alumnoID)
}

// ClearSubjects removes every enrollment of the student. Having none is fine.
func (s *StudentService) ClearSubjects(ctx context.Context, alumnoID int64) (int64, error) {
	return s.repos.Enrollments.DeleteAllForStudent(ctx, alumnoID)
}
