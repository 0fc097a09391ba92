package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/deppfellow/escuela/internal/database"
	"github.com/deppfellow/escuela/internal/model"
	"github.com/deppfellow/escuela/internal/sqlerr"
)

const subjectsTable = "materias"

type SubjectRepository struct {
	db database.DBTX
}

func NewSubjectRepository(db database.DBTX) *SubjectRepository {
	return &SubjectRepository{db: db}
}

func (r *SubjectRepository) Create(ctx context.Context, nombre string) (model.Subject, error) {
	var s model.Subject
	err := r.db.QueryRow(ctx, `
		INSERT INTO materias (nombre)
		VALUES ($1)
		RETURNING id, nombre
	`, nombre).Scan(&s.ID, &s.Nombre)
	if err != nil {
		return model.Subject{}, fmt.Errorf("insert subject: %w", err)
	}
	return s, nil
}

func scanSubject(row pgx.CollectableRow) (model.Subject, error) {
	var s model.Subject
	err := row.Scan(&s.ID, &s.Nombre)
	return s, err
}

func (r *SubjectRepository) Rename(ctx context.Context, id int64, nombre string) (model.Subject, error) {
	var s model.Subject
	err := r.db.QueryRow(ctx, `
		UPDATE materias
		SET nombre = $1
		WHERE id = $2
		RETURNING id, nombre
	`, nombre, id).Scan(&s.ID, &s.Nombre)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Subject{}, sqlerr.NotFound(subjectsTable)
	}
	if err != nil {
		return model.Subject{}, fmt.Errorf("rename subject %d: %w", id, err)
	}
	return s, nil
}

// Delete removes the subject. Its enrollments and teaching assignments
// go with it through ON DELETE CASCADE.
func (r *SubjectRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM materias WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete subject %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return sqlerr.NotFound(subjectsTable)
	}
	return nil
}

// ListWithTeachers returns every subject with its teachers nested, ordered
// by subject name. Subjects without teachers carry an empty list.
func (r *SubjectRepository) ListWithTeachers(ctx context.Context) ([]model.SubjectWithTeachers, error) {
	rows, err := r.db.Query(ctx, `
		SELECT
			m.id,
			m.nombre,
			COALESCE(
				json_agg(json_build_object('id', ma.id, 'nombre', ma.nombre) ORDER BY ma.nombre)
					FILTER (WHERE ma.id IS NOT NULL),
				'[]'
			) AS maestros
		FROM materias m
		LEFT JOIN maestros_materias mm ON mm.materia_id = m.id
		LEFT JOIN maestros ma ON ma.id = mm.maestro_id
		GROUP BY m.id, m.nombre
		ORDER BY m.nombre, m.id
	`)
	if err != nil {
		return nil, fmt.Errorf("list subjects with teachers: %w", err)
	}

	subjects, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.SubjectWithTeachers, error) {
		var (
			s        model.SubjectWithTeachers
			maestros []byte
		)
		if err := row.Scan(&s.ID, &s.Nombre, &maestros); err != nil {
			return s, err
		}
		s.Maestros = []model.TeacherRef{}
		if err := json.Unmarshal(maestros, &s.Maestros); err != nil {
			return s, fmt.Errorf("decode teachers of subject %d: %w", s.ID, err)
		}
		return s, nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan subjects with teachers: %w", err)
	}
	return subjects, nil
}
