package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/deppfellow/escuela/internal/database"
	"github.com/deppfellow/escuela/internal/sqlerr"
)

// AssignmentRepository manages which teachers teach a subject.
type AssignmentRepository struct {
	db database.DBTX
}

func NewAssignmentRepository(db database.DBTX) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

// ReplaceTeachersForSubject makes teacherIDs the exact teacher set of the
// subject, in one transaction. An empty set clears it. On any error the
// previous set is left as it was.
//
// The subject row is locked first, so concurrent replacements of the same
// subject run one after the other.
func (r *AssignmentRepository) ReplaceTeachersForSubject(ctx context.Context, subjectID int64, teacherIDs []int64) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin teacher assignment: %w", err)
	}

	if err := replaceTeachers(ctx, tx, subjectID, uniqueIDs(teacherIDs)); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback teacher assignment: %w", rbErr))
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit teacher assignment: %w", err)
	}
	return nil
}

func replaceTeachers(ctx context.Context, tx pgx.Tx, subjectID int64, teacherIDs []int64) error {
	var locked int64
	err := tx.QueryRow(ctx, `SELECT id FROM materias WHERE id = $1 FOR UPDATE`, subjectID).Scan(&locked)
	if errors.Is(err, pgx.ErrNoRows) {
		return sqlerr.NotFound(subjectsTable)
	}
	if err != nil {
		return fmt.Errorf("lock subject %d: %w", subjectID, err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM maestros_materias WHERE materia_id = $1`, subjectID); err != nil {
		return fmt.Errorf("clear teachers of subject %d: %w", subjectID, err)
	}

	for _, teacherID := range teacherIDs {
		if _, err := tx.Exec(ctx, `
			INSERT INTO maestros_materias (materia_id, maestro_id)
			VALUES ($1, $2)
		`, subjectID, teacherID); err != nil {
			return fmt.Errorf("assign teacher %d to subject %d: %w", teacherID, subjectID, err)
		}
	}
	return nil
}

// uniqueIDs drops repeated ids, keeping first-seen order.
func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
