package gormstore

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/uspace/uatrack/pkg/model"
	"github.com/uspace/uatrack/pkg/store"
)

type EnvironmentRepository struct {
	*Repository[model.Environment]
}

func NewEnvironmentRepository(db *gorm.DB, logger *zap.Logger) *EnvironmentRepository {
	return &EnvironmentRepository{Repository: NewRepository[model.Environment](db, logger)}
}

func (r *EnvironmentRepository) GetByName(ctx context.Context, name string) (*model.Environment, error) {
	return r.FindOne(ctx, Fields{"name": name})
}

// Ensure returns the environment called name, creating it when missing.
func (r *EnvironmentRepository) Ensure(ctx context.Context, name, description string) (*model.Environment, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, store.NewValidationError(r.entity, "name", "is required")
	}
	env, _, err := r.GetOrCreate(ctx, Fields{"name": name}, Fields{"description": description})
	return env, err
}

// ReferenceRepository serves the global catalogues (System, Section,
// Reason): audited, unique by name, not environment scoped.
type ReferenceRepository[T any] struct {
	*AuditedRepository[T]
}

func NewReferenceRepository[T any](db *gorm.DB, logger *zap.Logger) *ReferenceRepository[T] {
	return &ReferenceRepository[T]{AuditedRepository: NewAuditedRepository[T](db, logger)}
}

func (r *ReferenceRepository[T]) Create(ctx context.Context, entity *T, modifiedBy string) error {
	return r.CreateWithAudit(ctx, entity, modifiedBy)
}

func (r *ReferenceRepository[T]) Update(ctx context.Context, id uuid.UUID, fields Fields, modifiedBy string) (*T, error) {
	return r.UpdateWithAudit(ctx, id, fields, modifiedBy)
}

func (r *ReferenceRepository[T]) GetByName(ctx context.Context, name string) (*T, error) {
	return r.FindOne(ctx, Fields{"name": name})
}

// Ensure is the get-or-create used by imports and seeding.
func (r *ReferenceRepository[T]) Ensure(ctx context.Context, name, modifiedBy string) (*T, error) {
	entity, _, err := r.GetOrCreateWithAudit(ctx, Fields{"name": name}, nil, modifiedBy)
	return entity, err
}
