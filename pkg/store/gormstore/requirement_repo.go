package gormstore

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/uspace/uatrack/pkg/model"
)

// RequirementRepository requires every requirement to name at least one
// System and one Section.
type RequirementRepository struct {
	*LinkedRepository[model.Requirement]
}

func NewRequirementRepository(db *gorm.DB, logger *zap.Logger) *RequirementRepository {
	return &RequirementRepository{LinkedRepository: NewLinkedRepository[model.Requirement](db, logger,
		withRequiredLinks(model.LinkSystems, model.LinkSections),
	)}
}

func (r *RequirementRepository) GetByCode(ctx context.Context, environmentID uuid.UUID, code string) (*model.Requirement, error) {
	return r.findInEnvironment(ctx, environmentID, "code", code)
}
