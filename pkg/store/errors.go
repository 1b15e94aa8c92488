package store

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// ErrInvalidTransition is wrapped by validation errors raised by the campaign
// state machine.
var ErrInvalidTransition = errors.New("invalid status transition")

// ErrRunInProgress is wrapped when a campaign already has an open run and
// parallel runs are not allowed.
var ErrRunInProgress = errors.New("campaign run already in progress")

// ValidationError reports a write rejected before reaching storage: missing
// required fields, unknown foreign keys or relation ids that do not resolve.
type ValidationError struct {
	Entity     string
	Field      string
	Message    string
	MissingIDs []uuid.UUID
	Err        error
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	b.WriteString("validation failed")
	if e.Entity != "" {
		b.WriteString(" for ")
		b.WriteString(e.Entity)
	}
	if e.Field != "" {
		b.WriteString(".")
		b.WriteString(e.Field)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if len(e.MissingIDs) > 0 {
		ids := make([]string, len(e.MissingIDs))
		for i, id := range e.MissingIDs {
			ids[i] = id.String()
		}
		sort.Strings(ids)
		b.WriteString(" (missing ids: ")
		b.WriteString(strings.Join(ids, ", "))
		b.WriteString(")")
	}
	return b.String()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func NewValidationError(entity, field, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Entity: entity, Field: field, Message: fmt.Sprintf(format, args...)}
}

// IntegrityError is a unique or foreign key violation raised by the database.
type IntegrityError struct {
	Entity string
	Op     string
	Err    error
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("integrity violation on %s %s: %v", e.Op, e.Entity, e.Err)
}

func (e *IntegrityError) Unwrap() error {
	return e.Err
}

func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

func IsIntegrity(err error) bool {
	var target *IntegrityError
	return errors.As(err, &target)
}

// IsConstraintViolation recognises unique and foreign key failures from every
// supported driver: translated GORM errors, pgx and lib/pq SQLSTATE class 23,
// and SQLite constraint messages.
func IsConstraintViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) || errors.Is(err, gorm.ErrForeignKeyViolated) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return strings.HasPrefix(pgErr.Code, "23")
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code.Class() == "23"
	}

	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "FOREIGN KEY constraint failed") ||
		strings.Contains(msg, "NOT NULL constraint failed")
}

// Classify wraps constraint violations into an IntegrityError and leaves
// every other error untouched.
func Classify(entity, op string, err error) error {
	if err == nil {
		return nil
	}
	if IsValidation(err) || IsIntegrity(err) {
		return err
	}
	if IsConstraintViolation(err) {
		return &IntegrityError{Entity: entity, Op: op, Err: err}
	}
	return fmt.Errorf("failed to %s %s: %w", op, entity, err)
}
