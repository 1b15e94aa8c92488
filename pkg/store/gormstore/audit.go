package gormstore

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/uspace/uatrack/pkg/metrics"
	"github.com/uspace/uatrack/pkg/model"
	"github.com/uspace/uatrack/pkg/store"
)

const (
	columnEnvironmentID = "environment_id"
	columnModifiedBy    = "modified_by"
)

// check is a pre-write step. Checks are composed per repository and run in
// order before the statement; the first failure aborts the write.
type check func(ctx context.Context, tx *gorm.DB, w *write) error

func (r *Repository[T]) runChecks(ctx context.Context, w *write, checks ...check) error {
	for _, c := range checks {
		if err := c(ctx, r.db.WithContext(ctx), w); err != nil {
			var verr *store.ValidationError
			if errors.As(err, &verr) {
				if verr.Entity == "" {
					verr.Entity = r.entity
				}
				metrics.ValidationFailures.WithLabelValues(verr.Entity, verr.Field).Inc()
			}
			return err
		}
	}
	return nil
}

func injectEnvironment(environmentID uuid.UUID) check {
	return func(ctx context.Context, _ *gorm.DB, w *write) error {
		if !w.has(columnEnvironmentID) || environmentID == uuid.Nil {
			return nil
		}
		return w.set(ctx, columnEnvironmentID, environmentID)
	}
}

func injectModifiedBy(modifiedBy string) check {
	return func(ctx context.Context, _ *gorm.DB, w *write) error {
		if !w.has(columnModifiedBy) {
			return nil
		}
		modifiedBy = strings.TrimSpace(modifiedBy)
		if modifiedBy == "" {
			return nil
		}
		return w.set(ctx, columnModifiedBy, modifiedBy)
	}
}

func requireModifiedBy() check {
	return func(ctx context.Context, _ *gorm.DB, w *write) error {
		if !w.has(columnModifiedBy) {
			return nil
		}
		value, _ := w.get(ctx, columnModifiedBy)
		if s, _ := value.(string); strings.TrimSpace(s) == "" {
			return store.NewValidationError("", columnModifiedBy, "is required")
		}
		return nil
	}
}

// requireEnvironment rejects writes to environment-scoped entities without an
// environment id or with an id that does not exist.
func requireEnvironment() check {
	return func(ctx context.Context, tx *gorm.DB, w *write) error {
		if !w.has(columnEnvironmentID) {
			return store.NewValidationError("", columnEnvironmentID, "entity is not environment scoped")
		}
		value, _ := w.get(ctx, columnEnvironmentID)
		id, ok := asUUID(value)
		if !ok {
			return store.NewValidationError("", columnEnvironmentID, "is required")
		}
		var count int64
		if err := tx.Model(&model.Environment{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return &store.ValidationError{
				Field:      columnEnvironmentID,
				Message:    "environment does not exist",
				MissingIDs: []uuid.UUID{id},
			}
		}
		return nil
	}
}

// ref is a required or optional foreign key checked before a write so that a
// dangling id surfaces as a validation error naming it.
type ref struct {
	column   string
	target   interface{}
	optional bool
}

func requireRefs(refs ...ref) check {
	return func(ctx context.Context, tx *gorm.DB, w *write) error {
		for _, rf := range refs {
			value, present := w.get(ctx, rf.column)
			if !present {
				if rf.optional || !w.isInsert() {
					continue
				}
				return store.NewValidationError("", rf.column, "is required")
			}
			id, ok := asUUID(value)
			if !ok {
				return store.NewValidationError("", rf.column, "is not a valid id")
			}
			var count int64
			if err := tx.Model(rf.target).Where("id = ?", id).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return &store.ValidationError{
					Field:      rf.column,
					Message:    "referenced row does not exist",
					MissingIDs: []uuid.UUID{id},
				}
			}
		}
		return nil
	}
}

func auditEnvChecks(environmentID uuid.UUID, modifiedBy string) []check {
	return []check{
		injectEnvironment(environmentID),
		injectModifiedBy(modifiedBy),
		requireEnvironment(),
		requireModifiedBy(),
	}
}

func auditChecks(modifiedBy string) []check {
	return []check{
		injectModifiedBy(modifiedBy),
		requireModifiedBy(),
	}
}

// AuditedRepository applies the audit and environment checks, plus the
// repository's foreign key checks, before delegating to Repository.
type AuditedRepository[T any] struct {
	*Repository[T]
	refs []ref
}

func NewAuditedRepository[T any](db *gorm.DB, logger *zap.Logger, refs ...ref) *AuditedRepository[T] {
	return &AuditedRepository[T]{Repository: NewRepository[T](db, logger), refs: refs}
}

func (r *AuditedRepository[T]) CreateWithAuditEnv(ctx context.Context, entity *T, environmentID uuid.UUID, modifiedBy string) error {
	return r.createChecked(ctx, entity, auditEnvChecks(environmentID, modifiedBy)...)
}

// CreateWithAudit is used for global reference entities that carry no
// environment.
func (r *AuditedRepository[T]) CreateWithAudit(ctx context.Context, entity *T, modifiedBy string) error {
	return r.createChecked(ctx, entity, auditChecks(modifiedBy)...)
}

func (r *AuditedRepository[T]) createChecked(ctx context.Context, entity *T, checks ...check) error {
	w, err := newInsert(r.db, entity)
	if err != nil {
		return err
	}
	checks = append(checks, requireRefs(r.refs...))
	if err := r.runChecks(ctx, w, checks...); err != nil {
		return err
	}
	return r.Create(ctx, entity)
}

// UpdateWithAuditEnv loads the row, refuses to move it to another
// environment, then applies fields with environment_id and modified_by
// injected.
func (r *AuditedRepository[T]) UpdateWithAuditEnv(ctx context.Context, id uuid.UUID, fields Fields, environmentID uuid.UUID, modifiedBy string) (*T, error) {
	checks := append(auditEnvChecks(environmentID, modifiedBy), r.requireSameEnvironment(id, environmentID))
	return r.updateChecked(ctx, id, fields, checks...)
}

func (r *AuditedRepository[T]) UpdateWithAudit(ctx context.Context, id uuid.UUID, fields Fields, modifiedBy string) (*T, error) {
	return r.updateChecked(ctx, id, fields, auditChecks(modifiedBy)...)
}

func (r *AuditedRepository[T]) updateChecked(ctx context.Context, id uuid.UUID, fields Fields, checks ...check) (*T, error) {
	fields = copyFields(fields)
	delete(fields, "id")

	w, err := newUpdate(r.db, new(T), fields)
	if err != nil {
		return nil, err
	}
	checks = append(checks, requireRefs(r.refs...))
	if err := r.runChecks(ctx, w, checks...); err != nil {
		return nil, err
	}

	entity, err := r.GetByID(ctx, id, true)
	if err != nil {
		return nil, err
	}
	if err := r.Update(ctx, entity, w.fields); err != nil {
		return nil, err
	}
	return entity, nil
}

func (r *AuditedRepository[T]) requireSameEnvironment(id, environmentID uuid.UUID) check {
	return func(ctx context.Context, tx *gorm.DB, w *write) error {
		var current []uuid.UUID
		if err := tx.Model(new(T)).Where("id = ?", id).Pluck(columnEnvironmentID, &current).Error; err != nil {
			return err
		}
		if len(current) == 0 {
			return &store.ValidationError{Field: "id", Message: "not found", MissingIDs: []uuid.UUID{id}}
		}
		if current[0] != environmentID {
			return store.NewValidationError("", columnEnvironmentID, "row %s belongs to another environment", id)
		}
		return nil
	}
}

func (r *AuditedRepository[T]) GetOrCreateWithAuditEnv(ctx context.Context, criteria, defaults Fields, environmentID uuid.UUID, modifiedBy string) (*T, bool, error) {
	criteria = copyFields(criteria)
	criteria[columnEnvironmentID] = environmentID
	checks := append(auditEnvChecks(environmentID, modifiedBy), requireRefs(r.refs...))
	return r.getOrCreate(ctx, criteria, defaults, checks...)
}

func (r *AuditedRepository[T]) GetOrCreateWithAudit(ctx context.Context, criteria, defaults Fields, modifiedBy string) (*T, bool, error) {
	checks := append(auditChecks(modifiedBy), requireRefs(r.refs...))
	return r.getOrCreate(ctx, criteria, defaults, checks...)
}

// ListByEnvironment returns every row of the environment, oldest first.
func (r *AuditedRepository[T]) ListByEnvironment(ctx context.Context, environmentID uuid.UUID) ([]T, error) {
	return r.FilterBy(ctx, Fields{columnEnvironmentID: environmentID})
}

func copyFields(fields Fields) Fields {
	out := make(Fields, len(fields)+2)
	for k, v := range fields {
		out[k] = v
	}
	return out
}
