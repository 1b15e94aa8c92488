package gormstore

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/uspace/uatrack/pkg/model"
)

type BlockRepository struct {
	*LinkedRepository[model.Block]
}

func NewBlockRepository(db *gorm.DB, logger *zap.Logger) *BlockRepository {
	return &BlockRepository{LinkedRepository: NewLinkedRepository[model.Block](db, logger,
		withLinks(model.LinkCases),
		withRefs(ref{column: "system_id", target: &model.System{}}),
		withPreload("System"),
	)}
}

func (r *BlockRepository) GetByCode(ctx context.Context, environmentID uuid.UUID, code string) (*model.Block, error) {
	return r.findInEnvironment(ctx, environmentID, "code", code)
}
