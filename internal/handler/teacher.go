package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/deppfellow/escuela/internal/model"
	"github.com/deppfellow/escuela/internal/server"
	"github.com/deppfellow/escuela/internal/service"
	"github.com/deppfellow/escuela/internal/validation"
)

type TeacherHandler struct {
	Handler
	teachers *service.TeacherService
}

func NewTeacherHandler(s *server.Server, teachers *service.TeacherService) *TeacherHandler {
	return &TeacherHandler{Handler: NewHandler(s), teachers: teachers}
}

// CreateTeacherRequest is the multipart form of POST /maestros.
type CreateTeacherRequest struct {
	Nombre string `form:"nombre" validate:"required,max=255"`
	Email  string `form:"email" validate:"required,email,max=255"`
}

func (r *CreateTeacherRequest) Validate() error { return validation.Struct(r) }

func (h *TeacherHandler) Create(c echo.Context, req *CreateTeacherRequest) (model.Teacher, error) {
	photo, err := formPhoto(c, "foto")
	if err != nil {
		return model.Teacher{}, err
	}

	return h.teachers.Create(c.Request().Context(), model.TeacherFields{
		Nombre: req.Nombre,
		Email:  req.Email,
	}, photo)
}

func (h *TeacherHandler) List(c echo.Context, _ *ListRequest) ([]model.Teacher, error) {
	return h.teachers.List(c.Request().Context())
}
