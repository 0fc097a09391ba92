package service

import (
	"bytes"
	"context"
	"errors"
	"mime/multipart"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/rs/zerolog"

	"github.com/deppfellow/escuela/internal/config"
	"github.com/deppfellow/escuela/internal/errs"
	"github.com/deppfellow/escuela/internal/lib/storage"
	"github.com/deppfellow/escuela/internal/model"
	"github.com/deppfellow/escuela/internal/repository"
)

type fakeCleaner struct {
	urls []string
	err  error
}

func (f *fakeCleaner) EnqueuePhotoRemoval(_ context.Context, url string) error {
	f.urls = append(f.urls, url)
	return f.err
}

func newStudentService(t *testing.T, cleaner PhotoCleaner) (*StudentService, pgxmock.PgxPoolIface) {
	t.Helper()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet expectations: %v", err)
		}
		mock.Close()
	})

	store, err := storage.NewLocalStore(config.StorageConfig{
		UploadsDir:    filepath.Join(t.TempDir(), "uploads"),
		PublicPath:    "/uploads",
		MaxUploadSize: 1 << 20,
	})
	if err != nil {
		t.Fatalf("store: %v", err)
	}

	logger := zerolog.Nop()
	return NewStudentService(repository.NewRepositories(mock), NewPhotoKeeper(store, cleaner, &logger)), mock
}

func formFile(t *testing.T, content []byte) *multipart.FileHeader {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, _ := w.CreateFormFile("foto", "perfil.txt")
	_, _ = part.Write(content)
	_ = w.Close()
	form, err := multipart.NewReader(&body, w.Boundary()).ReadForm(1 << 20)
	if err != nil {
		t.Fatalf("read form: %v", err)
	}
	t.Cleanup(func() { _ = form.RemoveAll() })
	return form.File["foto"][0]
}

func TestCreateStudentRejectsNonImage(t *testing.T) {
	svc, _ := newStudentService(t, nil)

	_, err := svc.Create(context.Background(), model.StudentFields{Nombre: "Ana", Grado: 2, Email: "ana@escuela.mx"},
		formFile(t, []byte("plain text")))

	var httpErr *errs.HTTPError
	if !errors.As(err, &httpErr) || httpErr.Status != 400 {
		t.Fatalf("expected 400, got %v", err)
	}
	if len(httpErr.Errors) != 1 || httpErr.Errors[0].Field != "foto" {
		t.Fatalf("unexpected field errors %+v", httpErr.Errors)
	}
}

func TestDeleteStudentQueuesPhotoRemoval(t *testing.T) {
	cleaner := &fakeCleaner{}
	svc, mock := newStudentService(t, cleaner)

	url := "/uploads/foto-1-2.png"
	mock.ExpectQuery(regexp.QuoteMeta("DELETE FROM alumnos WHERE id = $1 RETURNING foto_url")).
		WithArgs(int64(3)).
		WillReturnRows(pgxmock.NewRows([]string{"foto_url"}).AddRow(&url))

	if err := svc.Delete(context.Background(), 3); err != nil {
		t.Fatalf("delete error: %v", err)
	}
	if len(cleaner.urls) != 1 || cleaner.urls[0] != url {
		t.Fatalf("expected removal of %s to be queued, got %v", url, cleaner.urls)
	}
}

func TestEnrollUnknownStudent(t *testing.T) {
	svc, mock := newStudentService(t, nil)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS (SELECT 1 FROM alumnos WHERE id = $1)")).
		WithArgs(int64(40)).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))

	_, err := svc.Enroll(context.Background(), 40, 2)
	if !errors.Is(err, pgx.ErrNoRows) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestEnrollExistingStudent(t *testing.T) {
	svc, mock := newStudentService(t, nil)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS (SELECT 1 FROM alumnos WHERE id = $1)")).
		WithArgs(int64(4)).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO alumnos_materias (alumno_id, materia_id)")).
		WithArgs(int64(4), int64(2)).
		WillReturnRows(pgxmock.NewRows([]string{"alumno_id", "materia_id"}).AddRow(int64(4), int64(2)))

	enrollment, err := svc.Enroll(context.Background(), 4, 2)
	if err != nil {
		t.Fatalf("enroll error: %v", err)
	}
	if enrollment != (model.Enrollment{AlumnoID: 4, MateriaID: 2}) {
		t.Fatalf("unexpected enrollment %+v", enrollment)
	}
}
