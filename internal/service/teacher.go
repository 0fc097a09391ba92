package service

import (
	"context"
	"mime/multipart"

	"github.com/deppfellow/escuela/internal/model"
	"github.com/deppfellow/escuela/internal/repository"
)

type TeacherService struct {
	repos  *repository.Repositories
	photos PhotoKeeper
}

func NewTeacherService(repos *repository.Repositories, photos PhotoKeeper) *TeacherService {
	return &TeacherService{repos: repos, photos: photos}
}

func (s *TeacherService) Create(ctx context.Context, fields model.TeacherFields, photo *multipart.FileHeader) (model.Teacher, error) {
	fotoURL, err := s.photos.save(ctx, "foto", photo)
	if err != nil {
		return model.Teacher{}, err
	}

	teacher, err := s.repos.Teachers.Create(ctx, fields, fotoURL)
	if err != nil {
		s.photos.discard(ctx, fotoURL)
		return model.Teacher{}, err
	}
	return teacher, nil
}

func (s *TeacherService) List(ctx context.Context) ([]model.Teacher, error) {
	return s.repos.Teachers.List(ctx)
}
