package gormstore

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/uspace/uatrack/pkg/metrics"
	"github.com/uspace/uatrack/pkg/model"
	"github.com/uspace/uatrack/pkg/store"
)

type StepRunRepository struct {
	*AuditedRepository[model.StepRun]
}

func NewStepRunRepository(db *gorm.DB, logger *zap.Logger) *StepRunRepository {
	return &StepRunRepository{AuditedRepository: NewAuditedRepository[model.StepRun](db, logger,
		ref{column: "case_run_id", target: &model.CaseRun{}},
		ref{column: "step_id", target: &model.Step{}},
		ref{column: "file_id", target: &model.File{}, optional: true},
	)}
}

func (r *StepRunRepository) Create(ctx context.Context, stepRun *model.StepRun, environmentID uuid.UUID, modifiedBy string) error {
	return r.CreateWithAuditEnv(ctx, stepRun, environmentID, modifiedBy)
}

// UpdateResult records the outcome of one step. A nil passed resets the
// step to pending; a nil fileID detaches the evidence.
func (r *StepRunRepository) UpdateResult(ctx context.Context, id uuid.UUID, passed *bool, notes string, fileID *uuid.UUID, modifiedBy string) (*model.StepRun, error) {
	current, err := r.GetByID(ctx, id, true)
	if err != nil {
		return nil, err
	}
	fields := Fields{
		"passed":  passed,
		"notes":   notes,
		"file_id": fileID,
	}
	return r.UpdateWithAuditEnv(ctx, id, fields, current.EnvironmentID, modifiedBy)
}

func (r *StepRunRepository) ListByCaseRun(ctx context.Context, caseRunID uuid.UUID) ([]model.StepRun, error) {
	return r.FilterBy(ctx, Fields{"case_run_id": caseRunID})
}

type CaseRunRepository struct {
	*AuditedRepository[model.CaseRun]
}

func NewCaseRunRepository(db *gorm.DB, logger *zap.Logger) *CaseRunRepository {
	return &CaseRunRepository{AuditedRepository: NewAuditedRepository[model.CaseRun](db, logger,
		ref{column: "campaign_run_id", target: &model.CampaignRun{}},
		ref{column: "case_id", target: &model.Case{}},
	)}
}

// Create inserts the case run and one step run per step of the case, in
// position order. It returns the number of step runs created.
func (r *CaseRunRepository) Create(ctx context.Context, caseRun *model.CaseRun, environmentID uuid.UUID, modifiedBy string) (int, error) {
	var created int
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := NewAuditedRepository[model.CaseRun](tx, r.logger, r.refs...).CreateWithAuditEnv(ctx, caseRun, environmentID, modifiedBy); err != nil {
			return err
		}

		steps, err := NewStepRepository(tx, r.logger).ListByCase(ctx, caseRun.CaseID)
		if err != nil {
			return store.Classify("Step", "list", err)
		}
		stepRuns := NewStepRunRepository(tx, r.logger)
		for _, step := range steps {
			stepRun := &model.StepRun{CaseRunID: caseRun.ID, StepID: step.ID}
			if err := stepRuns.Create(ctx, stepRun, environmentID, modifiedBy); err != nil {
				return err
			}
			caseRun.StepRuns = append(caseRun.StepRuns, *stepRun)
		}
		created = len(steps)
		return nil
	})
	return created, err
}

func (r *CaseRunRepository) ListByCampaignRun(ctx context.Context, campaignRunID uuid.UUID) ([]model.CaseRun, error) {
	return r.FilterBy(ctx, Fields{"campaign_run_id": campaignRunID})
}

// CampaignRunRepository is the execution orchestrator. Creating a run
// materializes the whole CaseRun and StepRun tree of the campaign and starts
// the campaign; Finalize and Cancel close it.
type CampaignRunRepository struct {
	*AuditedRepository[model.CampaignRun]
	policy ExecutionPolicy
}

func NewCampaignRunRepository(db *gorm.DB, logger *zap.Logger, policy ExecutionPolicy) *CampaignRunRepository {
	return &CampaignRunRepository{
		AuditedRepository: NewAuditedRepository[model.CampaignRun](db, logger,
			ref{column: "campaign_id", target: &model.Campaign{}},
		),
		policy: policy,
	}
}

func (r *CampaignRunRepository) on(tx *gorm.DB) *CampaignRunRepository {
	return NewCampaignRunRepository(tx, r.logger, r.policy)
}

func (r *CampaignRunRepository) Create(ctx context.Context, run *model.CampaignRun, environmentID uuid.UUID, modifiedBy string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := r.on(tx)
		campaigns := NewCampaignRepository(tx, r.logger)

		campaign, err := campaigns.GetByID(ctx, run.CampaignID, false)
		if err != nil {
			return err
		}
		if campaign == nil {
			return r.fail("campaign_id", "campaign does not exist", []uuid.UUID{run.CampaignID}, nil)
		}
		if campaign.EnvironmentID != environmentID {
			return r.fail("campaign_id", "campaign belongs to another environment", nil, nil)
		}

		start, err := repo.checkStart(ctx, campaign)
		if err != nil {
			return err
		}

		if run.StartedAt.IsZero() {
			run.StartedAt = time.Now().UTC()
		}
		run.EndedAt = nil
		if err := repo.CreateWithAuditEnv(ctx, run, environmentID, modifiedBy); err != nil {
			return err
		}

		caseIDs, err := orderedCaseIDs(ctx, tx, campaign.ID)
		if err != nil {
			return store.Classify(r.entity, "walk", err)
		}
		caseRuns := NewCaseRunRepository(tx, r.logger)
		var stepTotal int
		for _, caseID := range caseIDs {
			caseRun := &model.CaseRun{CampaignRunID: run.ID, CaseID: caseID}
			steps, err := caseRuns.Create(ctx, caseRun, environmentID, modifiedBy)
			if err != nil {
				return err
			}
			stepTotal += steps
			run.CaseRuns = append(run.CaseRuns, *caseRun)
		}
		metrics.RunTreeSize.WithLabelValues("case").Observe(float64(len(caseIDs)))
		metrics.RunTreeSize.WithLabelValues("step").Observe(float64(stepTotal))

		if start {
			if err := campaigns.Transition(ctx, campaign, model.CampaignRunning, modifiedBy); err != nil {
				return err
			}
		}

		r.logger.Info("campaign run created",
			zap.String("campaign_run_id", run.ID.String()),
			zap.String("campaign_id", campaign.ID.String()),
			zap.Int("case_runs", len(caseIDs)),
			zap.Int("step_runs", stepTotal),
		)
		return NewOutboxRepository(tx).Append(ctx, model.EventCampaignRunCreated, model.JSONB{
			"campaign_run_id": run.ID.String(),
			"campaign_id":     campaign.ID.String(),
			"environment_id":  environmentID.String(),
			"case_runs":       len(caseIDs),
			"step_runs":       stepTotal,
			"modified_by":     modifiedBy,
		})
	})
}

// checkStart applies the start policy and reports whether the campaign has
// to be moved to RUNNING.
func (r *CampaignRunRepository) checkStart(ctx context.Context, campaign *model.Campaign) (bool, error) {
	open, err := r.ActiveForCampaign(ctx, campaign.ID)
	if err != nil {
		return false, err
	}
	if open != nil && !r.policy.AllowParallelRuns {
		return false, r.fail("campaign_id", "campaign already has an open run", []uuid.UUID{open.ID}, store.ErrRunInProgress)
	}

	switch {
	case campaign.Status == model.CampaignDraft:
		return true, nil
	case campaign.Status == model.CampaignRunning && r.policy.AllowParallelRuns:
		return false, nil
	default:
		return false, invalidTransition("Campaign", campaign.Status, model.CampaignRunning)
	}
}

// Finalize closes the run and finishes the campaign once no other run of it
// is open.
func (r *CampaignRunRepository) Finalize(ctx context.Context, id uuid.UUID, notes, modifiedBy string) (*model.CampaignRun, error) {
	return r.close(ctx, id, model.CampaignFinished, notes, modifiedBy)
}

func (r *CampaignRunRepository) Cancel(ctx context.Context, id uuid.UUID, modifiedBy string) (*model.CampaignRun, error) {
	return r.close(ctx, id, model.CampaignCancelled, "", modifiedBy)
}

func (r *CampaignRunRepository) close(ctx context.Context, id uuid.UUID, target model.CampaignStatus, notes, modifiedBy string) (*model.CampaignRun, error) {
	var closed *model.CampaignRun
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := r.on(tx)
		campaigns := NewCampaignRepository(tx, r.logger)

		run, err := repo.GetByID(ctx, id, true)
		if err != nil {
			return err
		}
		campaign, err := campaigns.GetByID(ctx, run.CampaignID, true)
		if err != nil {
			return err
		}

		if !run.IsOpen() || campaign.Status.IsTerminal() {
			if r.policy.StrictTransitions {
				return invalidTransition("Campaign", campaign.Status, target)
			}
			r.logger.Warn("closing a run that is already closed",
				zap.String("campaign_run_id", run.ID.String()),
				zap.String("campaign_status", string(campaign.Status)),
				zap.String("target", string(target)),
			)
		}

		fields := Fields{"ended_at": time.Now().UTC()}
		if notes != "" {
			fields["notes"] = notes
		}
		updated, err := repo.UpdateWithAuditEnv(ctx, id, fields, run.EnvironmentID, modifiedBy)
		if err != nil {
			return err
		}
		closed = updated

		others, err := repo.openRunCount(ctx, campaign.ID)
		if err != nil {
			return err
		}
		switch {
		case others > 0:
			r.logger.Info("campaign keeps running", zap.String("campaign_id", campaign.ID.String()), zap.Int64("open_runs", others))
			return nil
		case campaign.Status.CanTransitionTo(target):
			return campaigns.Transition(ctx, campaign, target, modifiedBy)
		case r.policy.StrictTransitions:
			return invalidTransition("Campaign", campaign.Status, target)
		default:
			r.logger.Warn("campaign status left unchanged",
				zap.String("campaign_id", campaign.ID.String()),
				zap.String("status", string(campaign.Status)),
				zap.String("target", string(target)),
			)
			return nil
		}
	})
	if err != nil {
		return nil, err
	}
	return closed, nil
}

// ActiveForCampaign returns the most recent open run of the campaign, or nil.
func (r *CampaignRunRepository) ActiveForCampaign(ctx context.Context, campaignID uuid.UUID) (*model.CampaignRun, error) {
	var run model.CampaignRun
	res := r.db.WithContext(ctx).
		Where("campaign_id = ? AND ended_at IS NULL", campaignID).
		Order("started_at DESC").
		Limit(1).
		Find(&run)
	if res.Error != nil {
		return nil, store.Classify(r.entity, "get", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return &run, nil
}

func (r *CampaignRunRepository) ListByCampaign(ctx context.Context, campaignID uuid.UUID) ([]model.CampaignRun, error) {
	var runs []model.CampaignRun
	err := r.db.WithContext(ctx).
		Where("campaign_id = ?", campaignID).
		Order("started_at DESC").
		Find(&runs).Error
	if err != nil {
		return nil, store.Classify(r.entity, "list", err)
	}
	return runs, nil
}

// GetWithTree loads the run with its campaign, case runs ordered by case
// code and step runs ordered by step position.
func (r *CampaignRunRepository) GetWithTree(ctx context.Context, id uuid.UUID) (*model.CampaignRun, error) {
	var run model.CampaignRun
	res := r.db.WithContext(ctx).
		Preload("Campaign").
		Preload("CaseRuns.Case").
		Preload("CaseRuns.StepRuns.Step").
		Where("id = ?", id).
		Limit(1).
		Find(&run)
	if res.Error != nil {
		return nil, store.Classify(r.entity, "get", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}

	sort.SliceStable(run.CaseRuns, func(i, j int) bool {
		return caseCode(run.CaseRuns[i]) < caseCode(run.CaseRuns[j])
	})
	for i := range run.CaseRuns {
		stepRuns := run.CaseRuns[i].StepRuns
		sort.SliceStable(stepRuns, func(a, b int) bool {
			return stepPosition(stepRuns[a]) < stepPosition(stepRuns[b])
		})
	}
	return &run, nil
}

// Summary counts the step results of a run. Steps without a result are
// pending.
func (r *CampaignRunRepository) Summary(ctx context.Context, id uuid.UUID) (*model.RunSummary, error) {
	run, err := r.GetWithTree(ctx, id)
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, &store.ValidationError{Entity: r.entity, Field: "id", Message: "not found", MissingIDs: []uuid.UUID{id}}
	}

	summary := &model.RunSummary{
		CampaignRunID: run.ID,
		CampaignID:    run.CampaignID,
		CaseRuns:      len(run.CaseRuns),
		StartedAt:     run.StartedAt,
		EndedAt:       run.EndedAt,
	}
	if run.Campaign != nil {
		summary.Status = run.Campaign.Status
	}
	for _, caseRun := range run.CaseRuns {
		for _, stepRun := range caseRun.StepRuns {
			summary.StepRuns++
			switch {
			case stepRun.Passed == nil:
				summary.Pending++
			case *stepRun.Passed:
				summary.Passed++
			default:
				summary.Failed++
			}
		}
	}
	return summary, nil
}

func (r *CampaignRunRepository) openRunCount(ctx context.Context, campaignID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.CampaignRun{}).
		Where("campaign_id = ? AND ended_at IS NULL", campaignID).
		Count(&count).Error
	if err != nil {
		return 0, store.Classify(r.entity, "count", err)
	}
	return count, nil
}

func (r *CampaignRunRepository) fail(field, message string, missing []uuid.UUID, cause error) error {
	metrics.ValidationFailures.WithLabelValues(r.entity, field).Inc()
	return &store.ValidationError{Entity: r.entity, Field: field, Message: message, MissingIDs: missing, Err: cause}
}

// orderedCaseIDs walks Campaign → Blocks → Cases with blocks ordered by code
// and cases by code inside each block. A case reached through several blocks
// keeps its first position.
func orderedCaseIDs(ctx context.Context, db *gorm.DB, campaignID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := db.WithContext(ctx).
		Table("campaign_blocks").
		Joins("JOIN blocks ON blocks.id = campaign_blocks.block_id").
		Joins("JOIN block_cases ON block_cases.block_id = blocks.id").
		Joins("JOIN cases ON cases.id = block_cases.case_id").
		Where("campaign_blocks.campaign_id = ?", campaignID).
		Order("blocks.code ASC, blocks.id ASC, cases.code ASC, cases.id ASC").
		Pluck("block_cases.case_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return dedupe(ids), nil
}

func caseCode(caseRun model.CaseRun) string {
	if caseRun.Case == nil {
		return ""
	}
	return caseRun.Case.Code
}

func stepPosition(stepRun model.StepRun) int {
	if stepRun.Step == nil {
		return 0
	}
	return stepRun.Step.Position
}
