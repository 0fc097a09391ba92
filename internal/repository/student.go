package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/deppfellow/escuela/internal/database"
	"github.com/deppfellow/escuela/internal/model"
	"github.com/deppfellow/escuela/internal/sqlerr"
)

const studentsTable = "alumnos"

type StudentRepository struct {
	db database.DBTX
}

func NewStudentRepository(db database.DBTX) *StudentRepository {
	return &StudentRepository{db: db}
}

func scanStudent(row pgx.Row) (model.Student, error) {
	var s model.Student
	err := row.Scan(&s.ID, &s.Nombre, &s.Grado, &s.Email, &s.FotoURL)
	return s, err
}

// Create inserts a student. fotoURL is the already stored photo, or nil.
func (r *StudentRepository) Create(ctx context.Context, fields model.StudentFields, fotoURL *string) (model.Student, error) {
	student, err := scanStudent(r.db.QueryRow(ctx, `
		INSERT INTO alumnos (nombre, grado, email, foto_url)
		VALUES ($1, $2, $3, $4)
		RETURNING id, nombre, grado, email, foto_url
	`, fields.Nombre, fields.Grado, fields.Email, fotoURL))
	if err != nil {
		return model.Student{}, fmt.Errorf("insert student: %w", err)
	}
	return student, nil
}

// List returns every student ordered by id.
func (r *StudentRepository) List(ctx context.Context) ([]model.Student, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, nombre, grado, email, foto_url
		FROM alumnos
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}

	students, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Student, error) {
		return scanStudent(row)
	})
	if err != nil {
		return nil, fmt.Errorf("scan students: %w", err)
	}
	return students, nil
}

// Exists reports whether a student with id is stored.
func (r *StudentRepository) Exists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM alumnos WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check student %d: %w", id, err)
	}
	return exists, nil
}

// Update overwrites nombre, grado and email. The photo is left alone.
func (r *StudentRepository) Update(ctx context.Context, id int64, fields model.StudentFields) (model.Student, error) {
	student, err := scanStudent(r.db.QueryRow(ctx, `
		UPDATE alumnos
		SET nombre = $1, grado = $2, email = $3
		WHERE id = $4
		RETURNING id, nombre, grado, email, foto_url
	`, fields.Nombre, fields.Grado, fields.Email, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Student{}, sqlerr.NotFound(studentsTable)
	}
	if err != nil {
		return model.Student{}, fmt.Errorf("update student %d: %w", id, err)
	}
	return student, nil
}

// Delete removes the student and returns its photo URL, if any.
// Enrollments are not touched.
func (r *StudentRepository) Delete(ctx context.Context, id int64) (*string, error) {
	var fotoURL *string
	err := r.db.QueryRow(ctx, `DELETE FROM alumnos WHERE id = $1 RETURNING foto_url`, id).Scan(&fotoURL)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, sqlerr.NotFound(studentsTable)
	}
	if err != nil {
		return nil, fmt.Errorf("delete student %d: %w", id, err)
	}
	return fotoURL, nil
}
