package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/deppfellow/escuela/internal/model"
	"github.com/deppfellow/escuela/internal/server"
	"github.com/deppfellow/escuela/internal/service"
	"github.com/deppfellow/escuela/internal/validation"
)

type SubjectHandler struct {
	Handler
	subjects *service.SubjectService
}

func NewSubjectHandler(s *server.Server, subjects *service.SubjectService) *SubjectHandler {
	return &SubjectHandler{Handler: NewHandler(s), subjects: subjects}
}

type CreateSubjectRequest struct {
	Nombre string `json:"nombre" validate:"required,max=255"`
}

func (r *CreateSubjectRequest) Validate() error { return validation.Struct(r) }

type RenameSubjectRequest struct {
	ID     int64  `param:"id" validate:"required,gt=0"`
	Nombre string `json:"nombre" validate:"required,max=255"`
}

func (r *RenameSubjectRequest) Validate() error { return validation.Struct(r) }

type SubjectIDRequest struct {
	ID int64 `param:"id" validate:"required,gt=0"`
}

func (r *SubjectIDRequest) Validate() error { return validation.Struct(r) }

// AssignTeachersRequest replaces the teacher set. An empty or missing
// maestro_ids clears it.
type AssignTeachersRequest struct {
	ID         int64   `param:"id" validate:"required,gt=0"`
	MaestroIDs []int64 `json:"maestro_ids" validate:"dive,gt=0"`
}

func (r *AssignTeachersRequest) Validate() error { return validation.Struct(r) }

func (h *SubjectHandler) Create(c echo.Context, req *CreateSubjectRequest) (model.Subject, error) {
	return h.subjects.Create(c.Request().Context(), req.Nombre)
}

func (h *SubjectHandler) Rename(c echo.Context, req *RenameSubjectRequest) (model.Subject, error) {
	return h.subjects.Rename(c.Request().Context(), req.ID, req.Nombre)
}

func (h *SubjectHandler) Delete(c echo.Context, req *SubjectIDRequest) (model.MessageResponse, error) {
	if err := h.subjects.Delete(c.Request().Context(), req.ID); err != nil {
		return model.MessageResponse{}, err
	}
	return model.MessageResponse{Message: "Materia eliminada"}, nil
}

func (h *SubjectHandler) ListWithTeachers(c echo.Context, _ *ListRequest) ([]model.SubjectWithTeachers, error) {
	return h.subjects.ListWithTeachers(c.Request().Context())
}

func (h *SubjectHandler) AssignTeachers(c echo.Context, req *AssignTeachersRequest) (model.MessageResponse, error) {
	if err := h.subjects.AssignTeachers(c.Request().Context(), req.ID, req.MaestroIDs); err != nil {
		return model.MessageResponse{}, err
	}
	return model.MessageResponse{Message: "Maestros asignados"}, nil
}
