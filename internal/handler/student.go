package handler

import (
	"errors"
	"mime/multipart"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/deppfellow/escuela/internal/model"
	"github.com/deppfellow/escuela/internal/server"
	"github.com/deppfellow/escuela/internal/service"
	"github.com/deppfellow/escuela/internal/validation"
)

type StudentHandler struct {
	Handler
	students *service.StudentService
}

func NewStudentHandler(s *server.Server, students *service.StudentService) *StudentHandler {
	return &StudentHandler{Handler: NewHandler(s), students: students}
}

// CreateStudentRequest is the multipart form of POST /alumnos. The photo
// is read separately from the "foto" part; "materias" values are ignored.
type CreateStudentRequest struct {
	Nombre string `form:"nombre" validate:"required,max=255"`
	Grado  int    `form:"grado" validate:"required,gt=0"`
	Email  string `form:"email" validate:"required,email,max=255"`
}

func (r *CreateStudentRequest) Validate() error { return validation.Struct(r) }

type UpdateStudentRequest struct {
	ID     int64  `param:"id" validate:"required,gt=0"`
	Nombre string `json:"nombre" validate:"required,max=255"`
	Grado  int    `json:"grado" validate:"required,gt=0"`
	Email  string `json:"email" validate:"required,email,max=255"`
}

func (r *UpdateStudentRequest) Validate() error { return validation.Struct(r) }

// StudentIDRequest addresses one student by path id.
type StudentIDRequest struct {
	ID int64 `param:"id" validate:"required,gt=0"`
}

func (r *StudentIDRequest) Validate() error { return validation.Struct(r) }

type EnrollRequest struct {
	ID        int64 `param:"id" validate:"required,gt=0"`
	MateriaID int64 `json:"materia_id" validate:"required,gt=0"`
}

func (r *EnrollRequest) Validate() error { return validation.Struct(r) }

// ListRequest is used by endpoints that take no input.
type ListRequest struct{}

func (r *ListRequest) Validate() error { return nil }

// formPhoto returns the uploaded file of field, or nil when none was sent.
func formPhoto(c echo.Context, field string) (*multipart.FileHeader, error) {
	fh, err := c.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return fh, nil
}

func (h *StudentHandler) Create(c echo.Context, req *CreateStudentRequest) (model.Student, error) {
	photo, err := formPhoto(c, "foto")
	if err != nil {
		return model.Student{}, err
	}

	return h.students.Create(c.Request().Context(), model.StudentFields{
		Nombre: req.Nombre,
		Grado:  req.Grado,
		Email:  req.Email,
	}, photo)
}

func (h *StudentHandler) List(c echo.Context, _ *ListRequest) ([]model.Student, error) {
	return h.students.List(c.Request().Context())
}

func (h *StudentHandler) Update(c echo.Context, req *UpdateStudentRequest) (model.Student, error) {
	return h.students.Update(c.Request().Context(), req.ID, model.StudentFields{
		Nombre: req.Nombre,
		Grado:  req.Grado,
		Email:  req.Email,
	})
}

func (h *StudentHandler) Delete(c echo.Context, req *StudentIDRequest) (model.MessageResponse, error) {
	if err := h.students.Delete(c.Request().Context(), req.ID); err != nil {
		return model.MessageResponse{}, err
	}
	return model.MessageResponse{Message: "Alumno eliminado"}, nil
}

func (h *StudentHandler) Enroll(c echo.Context, req *EnrollRequest) (model.Enrollment, error) {
	return h.students.Enroll(c.Request().Context(), req.ID, req.MateriaID)
}

func (h *StudentHandler) Subjects(c echo.Context, req *StudentIDRequest) ([]model.Subject, error) {
	return h.students.Subjects(c.Request().Context(), req.ID)
}

func (h *StudentHandler) ClearSubjects(c echo.Context, req *StudentIDRequest) (model.MessageResponse, error) {
	if _, err := h.students.ClearSubjects(c.Request().Context(), req.ID); err != nil {
		return model.MessageResponse{}, err
	}
	return model.MessageResponse{Message: "Materias del alumno eliminadas"}, nil
}
