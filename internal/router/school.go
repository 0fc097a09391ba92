package router

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/deppfellow/escuela/internal/handler"
	"github.com/deppfellow/escuela/internal/middleware"
)

func registerAuthRoutes(r *echo.Echo, h *handler.Handlers, m *middleware.Middlewares) {
	r.POST("/login",
		handler.Handle(h.Auth.Handler, h.Auth.Login, http.StatusOK, &handler.LoginRequest{}),
		m.RateLimit.LoginThrottle(),
	)
}

func registerStudentRoutes(g *echo.Group, h *handler.Handlers) {
	students := h.Students

	g.POST("/alumnos", handler.Handle(students.Handler, students.Create, http.StatusCreated, &handler.CreateStudentRequest{}))
	g.GET("/alumnos", handler.Handle(students.Handler, students.List, http.StatusOK, &handler.ListRequest{}))
	g.PUT("/alumnos/:id", handler.Handle(students.Handler, students.Update, http.StatusOK, &handler.UpdateStudentRequest{}))
	g.DELETE("/alumnos/:id", handler.Handle(students.Handler, students.Delete, http.StatusOK, &handler.StudentIDRequest{}))

	g.POST("/alumnos/:id/materias", handler.Handle(students.Handler, students.Enroll, http.StatusCreated, &handler.EnrollRequest{}))
	g.GET("/alumnos/:id/materias", handler.Handle(students.Handler, students.Subjects, http.StatusOK, &handler.StudentIDRequest{}))
	g.DELETE("/alumnos/:id/materias", handler.Handle(students.Handler, students.ClearSubjects, http.StatusOK, &handler.StudentIDRequest{}))
}

func registerTeacherRoutes(g *echo.Group, h *handler.Handlers) {
	teachers := h.Teachers

	g.POST("/maestros", handler.Handle(teachers.Handler, teachers.Create, http.StatusCreated, &handler.CreateTeacherRequest{}))
	g.GET("/maestros", handler.Handle(teachers.Handler, teachers.List, http.StatusOK, &handler.ListRequest{}))
}

func registerSubjectRoutes(g *echo.Group, h *handler.Handlers) {
	subjects := h.Subjects

	g.POST("/materias", handler.Handle(subjects.Handler, subjects.Create, http.StatusCreated, &handler.CreateSubjectRequest{}))
	g.PUT("/materias/:id", handler.Handle(subjects.Handler, subjects.Rename, http.StatusOK, &handler.RenameSubjectRequest{}))
	g.DELETE("/materias/:id", handler.Handle(subjects.Handler, subjects.Delete, http.StatusOK, &handler.SubjectIDRequest{}))
	g.PUT("/materias/:id/maestros", handler.Handle(subjects.Handler, subjects.AssignTeachers, http.StatusOK, &handler.AssignTeachersRequest{}))
	g.GET("/materias-con-maestros", handler.Handle(subjects.Handler, subjects.ListWithTeachers, http.StatusOK, &handler.ListRequest{}))
}

func registerReportRoutes(g *echo.Group, h *handler.Handlers) {
	g.GET("/inscripciones", handler.Handle(h.Reports.Handler, h.Reports.Enrollments, http.StatusOK, &handler.ListRequest{}))
	g.GET("/resumen", handler.Handle(h.Reports.Handler, h.Reports.Summary, http.StatusOK, &handler.ListRequest{}))
}
