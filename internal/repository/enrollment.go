package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/deppfellow/escuela/internal/database"
	"github.com/deppfellow/escuela/internal/model"
)

type EnrollmentRepository struct {
	db database.DBTX
}

func NewEnrollmentRepository(db database.DBTX) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// Enroll links a student to a subject. A repeated pair violates the
// primary key and an unknown subject the foreign key.
func (r *EnrollmentRepository) Enroll(ctx context.Context, alumnoID, materiaID int64) (model.Enrollment, error) {
	var e model.Enrollment
	err := r.db.QueryRow(ctx, `
		INSERT INTO alumnos_materias (alumno_id, materia_id)
		VALUES ($1, $2)
		RETURNING alumno_id, materia_id
	`, alumnoID, materiaID).Scan(&e.AlumnoID, &e.MateriaID)
	if err != nil {
		return model.Enrollment{}, fmt.Errorf("enroll student %d in subject %d: %w", alumnoID, materiaID, err)
	}
	return e, nil
}

func (r *EnrollmentRepository) ListSubjectsForStudent(ctx context.Context, alumnoID int64) ([]model.Subject, error) {
	rows, err := r.db.Query(ctx, `
		SELECT m.id, m.nombre
		FROM materias m
		JOIN alumnos_materias am ON am.materia_id = m.id
		WHERE am.alumno_id = $1
		ORDER BY m.id
	`, alumnoID)
	if err != nil {
		return nil, fmt.Errorf("list subjects of student %d: %w", alumnoID, err)
	}

	subjects, err := pgx.CollectRows(rows, scanSubject)
	if err != nil {
		return nil, fmt.Errorf("scan subjects of student %d: %w", alumnoID, err)
	}
	return subjects, nil
}

// DeleteAllForStudent removes every enrollment of the student and reports
// how many there were. Zero is not an error.
func (r *EnrollmentRepository) DeleteAllForStudent(ctx context.Context, alumnoID int64) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM alumnos_materias WHERE alumno_id = $1`, alumnoID)
	if err != nil {
		return 0, fmt.Errorf("delete enrollments of student %d: %w", alumnoID, err)
	}
	return tag.RowsAffected(), nil
}

// ListRows returns one row per student, subject and assigned teacher.
// Subjects without teachers still appear, with a nil teacher name.
func (r *EnrollmentRepository) ListRows(ctx context.Context) ([]model.EnrollmentRow, error) {
	rows, err := r.db.Query(ctx, `
		SELECT
			a.nombre AS alumno_nombre,
			m.nombre AS materia_nombre,
			ma.nombre AS maestro_nombre
		FROM alumnos_materias am
		JOIN alumnos a ON a.id = am.alumno_id
		JOIN materias m ON m.id = am.materia_id
		LEFT JOIN maestros_materias mm ON mm.materia_id = am.materia_id
		LEFT JOIN maestros ma ON ma.id = mm.maestro_id
		ORDER BY a.nombre, m.nombre, ma.nombre
	`)
	if err != nil {
		return nil, fmt.Errorf("list enrollment rows: %w", err)
	}

	result, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.EnrollmentRow, error) {
		var e model.EnrollmentRow
		err := row.Scan(&e.AlumnoNombre, &e.MateriaNombre, &e.MaestroNombre)
		return e, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan enrollment rows: %w", err)
	}
	return result, nil
}
