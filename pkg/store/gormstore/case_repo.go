package gormstore

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/uspace/uatrack/pkg/model"
)

type CaseRepository struct {
	*LinkedRepository[model.Case]
}

func NewCaseRepository(db *gorm.DB, logger *zap.Logger) *CaseRepository {
	return &CaseRepository{LinkedRepository: NewLinkedRepository[model.Case](db, logger,
		withLinks(
			model.LinkSystems,
			model.LinkSections,
			model.LinkOperators,
			model.LinkDrones,
			model.LinkUhubUsers,
			model.LinkUasZones,
		),
		withPreload("Steps"),
	)}
}

func (r *CaseRepository) GetByCode(ctx context.Context, environmentID uuid.UUID, code string) (*model.Case, error) {
	return r.findInEnvironment(ctx, environmentID, "code", code)
}

// GetWithRelations loads the case with its sets and its steps in position
// order.
func (r *CaseRepository) GetWithRelations(ctx context.Context, id uuid.UUID) (*model.Case, error) {
	c, err := r.LinkedRepository.GetWithRelations(ctx, id)
	if err != nil || c == nil {
		return c, err
	}
	sort.SliceStable(c.Steps, func(i, j int) bool { return c.Steps[i].Position < c.Steps[j].Position })
	return c, nil
}

func (r *CaseRepository) ListSteps(ctx context.Context, caseID uuid.UUID) ([]model.Step, error) {
	return NewStepRepository(r.db, r.logger).ListByCase(ctx, caseID)
}

// Delete removes the case with its steps and their requirement links. A
// case still referenced by a block is kept and an integrity error returned.
func (r *CaseRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	var deleted bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		steps := NewStepRepository(tx, r.logger)
		list, err := steps.ListByCase(ctx, id)
		if err != nil {
			return err
		}
		for _, step := range list {
			if _, err := steps.Delete(ctx, step.ID); err != nil {
				return err
			}
		}
		ok, err := r.on(tx).Delete(ctx, id)
		deleted = ok
		return err
	})
	return deleted, err
}

type StepRepository struct {
	*LinkedRepository[model.Step]
}

func NewStepRepository(db *gorm.DB, logger *zap.Logger) *StepRepository {
	return &StepRepository{LinkedRepository: NewLinkedRepository[model.Step](db, logger,
		withLinks(model.LinkRequirements),
		withRefs(ref{column: "case_id", target: &model.Case{}}),
	)}
}

// ListByCase returns the steps of a case in execution order.
func (r *StepRepository) ListByCase(ctx context.Context, caseID uuid.UUID) ([]model.Step, error) {
	var steps []model.Step
	err := r.db.WithContext(ctx).
		Where("case_id = ?", caseID).
		Order("position ASC").
		Find(&steps).Error
	return steps, err
}
