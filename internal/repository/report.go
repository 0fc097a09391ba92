package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/deppfellow/escuela/internal/database"
	"github.com/deppfellow/escuela/internal/model"
)

type ReportRepository struct {
	db database.DBTX
}

func NewReportRepository(db database.DBTX) *ReportRepository {
	return &ReportRepository{db: db}
}

// Summary computes the dashboard aggregates. Enrollments of deleted
// students are not counted.
func (r *ReportRepository) Summary(ctx context.Context) (model.Summary, error) {
	var s model.Summary
	err := r.db.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM alumnos),
			(SELECT COUNT(*) FROM maestros),
			(SELECT COUNT(*) FROM materias),
			(SELECT COUNT(*) FROM alumnos_materias am JOIN alumnos a ON a.id = am.alumno_id)
	`).Scan(&s.TotalAlumnos, &s.TotalMaestros, &s.TotalMaterias, &s.TotalInscripciones)
	if err != nil {
		return model.Summary{}, fmt.Errorf("count records: %w", err)
	}

	rows, err := r.db.Query(ctx, `
		SELECT m.id, m.nombre, COUNT(a.id) AS alumnos
		FROM materias m
		LEFT JOIN alumnos_materias am ON am.materia_id = m.id
		LEFT JOIN alumnos a ON a.id = am.alumno_id
		GROUP BY m.id, m.nombre
		ORDER BY m.nombre, m.id
	`)
	if err != nil {
		return model.Summary{}, fmt.Errorf("count students per subject: %w", err)
	}

	s.AlumnosPorMateria, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.SubjectEnrollmentCount, error) {
		var c model.SubjectEnrollmentCount
		err := row.Scan(&c.MateriaID, &c.Nombre, &c.Alumnos)
		return c, err
	})
	if err != nil {
		return model.Summary{}, fmt.Errorf("scan students per subject: %w", err)
	}
	return s, nil
}
