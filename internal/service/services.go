// Package service contains the business logic.
//
// It sits between the handler and repository layers.
// It receives validated data from the handler, performs
// business operations, and calls repository methods to interact
// with the data
package service

import (
	"github.com/rs/zerolog"

	"github.com/deppfellow/escuela/internal/lib/job"
	"github.com/deppfellow/escuela/internal/repository"
	"github.com/deppfellow/escuela/internal/server"
)

type Services struct {
	Auth     *AuthService
	Students *StudentService
	Teachers *TeacherService
	Subjects *SubjectService
	Reports  *ReportService
	Job      *job.JobService
}

func NewServices(s *server.Server, repos *repository.Repositories) (*Services, error) {
	authService, err := NewAuthService(s.Config.Auth, s.Config.Admin)
	if err != nil {
		return nil, err
	}

	// A nil *JobService must not end up inside the interface.
	var cleaner PhotoCleaner
	if s.Job != nil {
		cleaner = s.Job
	}
	photos := NewPhotoKeeper(s.Photos, cleaner, s.Logger)

	return &Services{
		Auth:     authService,
		Students: NewStudentService(repos, photos),
		Teachers: NewTeacherService(repos, photos),
		Subjects: NewSubjectService(repos),
		Reports:  NewReportService(repos),
		Job:      s.Job,
	}, nil
}

// NewPhotoKeeper builds the photo handling shared by the record services.
// cleaner may be nil, photos are then removed inline.
func NewPhotoKeeper(store PhotoStore, cleaner PhotoCleaner, logger *zerolog.Logger) PhotoKeeper {
	return PhotoKeeper{store: store, cleaner: cleaner, logger: logger}
}
