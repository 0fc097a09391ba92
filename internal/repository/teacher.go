package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/deppfellow/escuela/internal/database"
	"github.com/deppfellow/escuela/internal/model"
)

type TeacherRepository struct {
	db database.DBTX
}

func NewTeacherRepository(db database.DBTX) *TeacherRepository {
	return &TeacherRepository{db: db}
}

func (r *TeacherRepository) Create(ctx context.Context, fields model.TeacherFields, fotoURL *string) (model.Teacher, error) {
	var t model.Teacher
	err := r.db.QueryRow(ctx, `
		INSERT INTO maestros (nombre, email, foto_url)
		VALUES ($1, $2, $3)
		RETURNING id, nombre, email, foto_url
	`, fields.Nombre, fields.Email, fotoURL).Scan(&t.ID, &t.Nombre, &t.Email, &t.FotoURL)
	if err != nil {
		return model.Teacher{}, fmt.Errorf("insert teacher: %w", err)
	}
	return t, nil
}

func (r *TeacherRepository) List(ctx context.Context) ([]model.Teacher, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, nombre, email, foto_url
		FROM maestros
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("list teachers: %w", err)
	}

	teachers, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Teacher, error) {
		var t model.Teacher
		err := row.Scan(&t.ID, &t.Nombre, &t.Email, &t.FotoURL)
		return t, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan teachers: %w", err)
	}
	return teachers, nil
}
