// Package model holds the records exchanged between the repositories, the
// services and the HTTP layer. JSON names follow the column names used by
// the dashboard.
package model

// MessageResponse is the body of mutations that return no record.
type MessageResponse struct {
	Message string `json:"message"`
}

// Student is a row of alumnos.
type Student struct {
	ID      int64   `json:"id"`
	Nombre  string  `json:"nombre"`
	Grado   int     `json:"grado"`
	Email   string  `json:"email"`
	FotoURL *string `json:"foto_url"`
}

// StudentFields are the mutable columns of a student.
type StudentFields struct {
	Nombre string
	Grado  int
	Email  string
}

// Teacher is a row of maestros.
type Teacher struct {
	ID      int64   `json:"id"`
	Nombre  string  `json:"nombre"`
	Email   string  `json:"email"`
	FotoURL *string `json:"foto_url"`
}

// TeacherFields are the columns supplied when creating a teacher.
type TeacherFields struct {
	Nombre string
	Email  string
}

// TeacherRef is the compact teacher shape nested in subject listings.
type TeacherRef struct {
	ID     int64  `json:"id"`
	Nombre string `json:"nombre"`
}

// Subject is a row of materias.
type Subject struct {
	ID     int64  `json:"id"`
	Nombre string `json:"nombre"`
}

// SubjectWithTeachers is a subject plus every teacher assigned to it.
// Maestros is never nil so it always encodes as a JSON array.
type SubjectWithTeachers struct {
	ID       int64        `json:"id"`
	Nombre   string       `json:"nombre"`
	Maestros []TeacherRef `json:"maestros"`
}

// Enrollment is a row of alumnos_materias.
type Enrollment struct {
	AlumnoID  int64 `json:"alumno_id"`
	MateriaID int64 `json:"materia_id"`
}

// EnrollmentRow is one line of the flat student x subject x teacher
// listing. MaestroNombre is nil when the subject has no teacher.
type EnrollmentRow struct {
	AlumnoNombre  string  `json:"alumno_nombre"`
	MateriaNombre string  `json:"materia_nombre"`
	MaestroNombre *string `json:"maestro_nombre"`
}

// SubjectEnrollmentCount is one bar of the students-per-subject chart.
type SubjectEnrollmentCount struct {
	MateriaID int64  `json:"materia_id"`
	Nombre    string `json:"nombre"`
	Alumnos   int64  `json:"alumnos"`
}

// Summary holds the dashboard aggregates.
type Summary struct {
	TotalAlumnos       int64                    `json:"total_alumnos"`
	TotalMaestros      int64                    `json:"total_maestros"`
	TotalMaterias      int64                    `json:"total_materias"`
	TotalInscripciones int64                    `json:"total_inscripciones"`
	AlumnosPorMateria  []SubjectEnrollmentCount `json:"alumnos_por_materia"`
}
