package sqlerr

import (
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/deppfellow/escuela/internal/errs"
)

var (
	uniqueKeyRe  = regexp.MustCompile(`_([^_]+)_(?:key|ukey)$`)
	foreignKeyRe = regexp.MustCompile(`^[a-z]+(?:_[a-z]+)*?_([a-z]+_id)_fkey$`)
)

// ErrCode reports the Code of err, or Other when err is not an *Error.
func ErrCode(err error) Code {
	var pgerr *Error
	if errors.As(err, &pgerr) {
		return pgerr.Code
	}
	var pg *pgconn.PgError
	if errors.As(err, &pg) {
		return MapCode(pg.Code)
	}
	return Other
}

// missingRow is pgx.ErrNoRows tagged with the table that was queried, so
// the 404 can name the entity.
type missingRow struct {
	table string
}

func (e *missingRow) Error() string { return "table " + e.table + ": " + pgx.ErrNoRows.Error() }

func (e *missingRow) Unwrap() error { return pgx.ErrNoRows }

// NotFound reports that no row of table matched. It satisfies
// errors.Is(err, pgx.ErrNoRows).
func NotFound(table string) error {
	return &missingRow{table: table}
}

// ConvertPgError converts a pgconn.PgError into an *Error.
func ConvertPgError(src *pgconn.PgError) *Error {
	return &Error{
		Code:           MapCode(src.Code),
		Severity:       MapSeverity(src.Severity),
		DatabaseCode:   src.Code,
		Message:        src.Message,
		SchemaName:     src.SchemaName,
		TableName:      src.TableName,
		ColumnName:     src.ColumnName,
		DataTypeName:   src.DataTypeName,
		ConstraintName: src.ConstraintName,
		driverErr:      src,
	}
}

// generateErrorCode builds a machine code such as MAESTROS_MATERIA_NOT_FOUND.
// The last segment of the table name is crudely singularized.
func generateErrorCode(tableName string, errType Code) string {
	if tableName == "" {
		tableName = "RECORD"
	}

	domain := strings.ToUpper(tableName)
	if strings.HasSuffix(domain, "S") && len(domain) > 1 {
		domain = domain[:len(domain)-1]
	}

	action := "ERROR"
	switch errType {
	case ForeignKeyViolation:
		action = "NOT_FOUND"
	case UniqueViolation:
		action = "ALREADY_EXISTS"
	case NotNullViolation:
		action = "REQUIRED"
	case CheckViolation, InvalidText, NumericOutOfRange:
		action = "INVALID"
	}

	return fmt.Sprintf("%s_%s", domain, action)
}

func formatUserFriendlyMessage(sqlErr *Error) string {
	entityName := getEntityName(sqlErr.TableName, sqlErr.ColumnName)

	switch sqlErr.Code {
	case ForeignKeyViolation:
		return fmt.Sprintf("The referenced %s does not exist", entityName)
	case UniqueViolation:
		return fmt.Sprintf("A %s with this identifier already exists", entityName)
	case NotNullViolation:
		fieldName := humanizeText(sqlErr.ColumnName)
		if fieldName == "" {
			fieldName = "field"
		}
		return fmt.Sprintf("The %s is required", fieldName)
	case CheckViolation:
		fieldName := humanizeText(sqlErr.ColumnName)
		if fieldName != "" {
			return fmt.Sprintf("The %s value does not meet required conditions", fieldName)
		}
		return "One or more values do not meet required conditions"
	case InvalidText, NumericOutOfRange:
		return "One or more values have an invalid format"
	default:
		return "An error occurred while processing your request"
	}
}

// getEntityName prefers a "<entity>_id" column, then the singular table name.
func getEntityName(tableName, columnName string) string {
	if columnName != "" && strings.HasSuffix(strings.ToLower(columnName), "_id") {
		entity := strings.TrimSuffix(strings.ToLower(columnName), "_id")
		return humanizeText(entity)
	}

	if tableName != "" {
		entity := tableName
		if strings.HasSuffix(entity, "s") && len(entity) > 1 {
			entity = entity[:len(entity)-1]
		}
		return humanizeText(entity)
	}

	return "record"
}

// humanizeText turns "alumno_id" into "Alumno Id".
func humanizeText(text string) string {
	if text == "" {
		return ""
	}
	return cases.Title(language.Spanish).String(strings.ReplaceAll(text, "_", " "))
}

// extractColumnForUniqueViolation reads the column out of constraint names
// like "unique_materias_nombre" or "materias_nombre_key". Composite primary
// keys ("alumnos_materias_pkey") yield "".
func extractColumnForUniqueViolation(constraintName string) string {
	if constraintName == "" {
		return ""
	}

	if strings.HasPrefix(constraintName, "unique_") {
		parts := strings.Split(constraintName, "_")
		if len(parts) >= 3 {
			return parts[len(parts)-1]
		}
	}

	if matches := uniqueKeyRe.FindStringSubmatch(constraintName); len(matches) > 1 {
		return matches[1]
	}

	return ""
}

// extractColumnForForeignKeyViolation reads "maestro_id" out of
// "maestros_materias_maestro_id_fkey". PostgreSQL leaves ColumnName empty
// for foreign key violations.
func extractColumnForForeignKeyViolation(constraintName string) string {
	if matches := foreignKeyRe.FindStringSubmatch(constraintName); len(matches) > 1 {
		return matches[1]
	}
	return ""
}

// fromPgError maps a constraint or data error onto a 400 with a domain
// code. Any other database failure is a 500.
func fromPgError(pgerr *pgconn.PgError) *errs.HTTPError {
	sqlErr := ConvertPgError(pgerr)
	if sqlErr.Code == ForeignKeyViolation && sqlErr.ColumnName == "" {
		sqlErr.ColumnName = extractColumnForForeignKeyViolation(sqlErr.ConstraintName)
	}

	code := generateErrorCode(sqlErr.TableName, sqlErr.Code)
	message := formatUserFriendlyMessage(sqlErr)

	switch sqlErr.Code {
	case ForeignKeyViolation:
		return errs.NewBadRequestError(message, false, &code, nil, nil)
	case UniqueViolation:
		if column := extractColumnForUniqueViolation(sqlErr.ConstraintName); column != "" {
			message = strings.ReplaceAll(message, "identifier", humanizeText(column))
		}
		return errs.NewBadRequestError(message, true, &code, nil, nil)
	case NotNullViolation:
		field := []errs.FieldError{{Field: strings.ToLower(sqlErr.ColumnName), Error: "is required"}}
		return errs.NewBadRequestError(message, true, &code, field, nil)
	case CheckViolation, InvalidText, NumericOutOfRange:
		return errs.NewBadRequestError(message, true, &code, nil, nil)
	}
	return errs.NewInternalServerError()
}

// HandleError converts a repository error into an *errs.HTTPError:
// constraint violations become 400s, missing rows 404s and everything
// else a generic 500. An *errs.HTTPError is returned unchanged.
func HandleError(err error) error {
	var httpErr *errs.HTTPError
	if errors.As(err, &httpErr) {
		return err
	}

	var pgerr *pgconn.PgError
	if errors.As(err, &pgerr) {
		return fromPgError(pgerr)
	}

	var missing *missingRow
	if errors.As(err, &missing) {
		return errs.NewNotFoundError(getEntityName(missing.table, "")+" not found", true, nil)
	}
	if errors.Is(err, pgx.ErrNoRows) || errors.Is(err, sql.ErrNoRows) {
		return errs.NewNotFoundError("Resource not found", false, nil)
	}

	return errs.NewInternalServerError()
}
