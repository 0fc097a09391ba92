// Package repository handles all interactions with the database.
//
// It contains raw SQL queries and methods to fetch, persist,
// or update data, abstracting SQL logic away from the service layer.
// Absent rows on update/delete come back as sqlerr.NotFound so the global
// error handler can answer 404.
package repository

import (
	"github.com/deppfellow/escuela/internal/database"
)

// Repositories is a container for all repository instances.
type Repositories struct {
	Students    *StudentRepository
	Teachers    *TeacherRepository
	Subjects    *SubjectRepository
	Enrollments *EnrollmentRepository
	Assignments *AssignmentRepository
	Reports     *ReportRepository
}

// NewRepositories constructs the repository container on top of db, which
// is the pgx pool in production and a pgxmock pool in tests.
func NewRepositories(db database.DBTX) *Repositories {
	return &Repositories{
		Students:    NewStudentRepository(db),
		Teachers:    NewTeacherRepository(db),
		Subjects:    NewSubjectRepository(db),
		Enrollments: NewEnrollmentRepository(db),
		Assignments: NewAssignmentRepository(db),
		Reports:     NewReportRepository(db),
	}
}
