package gormstore

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/uspace/uatrack/pkg/metrics"
	"github.com/uspace/uatrack/pkg/model"
	"github.com/uspace/uatrack/pkg/store"
)

// CampaignRepository owns campaign definitions. Status is only moved by
// Transition, which the run orchestrator drives.
type CampaignRepository struct {
	*LinkedRepository[model.Campaign]
}

func NewCampaignRepository(db *gorm.DB, logger *zap.Logger) *CampaignRepository {
	return &CampaignRepository{LinkedRepository: NewLinkedRepository[model.Campaign](db, logger,
		withLinks(model.LinkBlocks),
		withRefs(ref{column: "system_id", target: &model.System{}}),
		withPreload("System"),
	)}
}

// Create always stores the campaign as DRAFT.
func (r *CampaignRepository) Create(ctx context.Context, campaign *model.Campaign, links Links, environmentID uuid.UUID, modifiedBy string) error {
	campaign.Status = model.CampaignDraft
	return r.LinkedRepository.Create(ctx, campaign, links, environmentID, modifiedBy)
}

func (r *CampaignRepository) Update(ctx context.Context, id uuid.UUID, fields Fields, links Links, environmentID uuid.UUID, modifiedBy string) (*model.Campaign, error) {
	for _, key := range []string{"status", "Status"} {
		if _, ok := fields[key]; ok {
			return nil, r.linkError("status", "is managed by campaign runs", nil)
		}
	}
	return r.LinkedRepository.Update(ctx, id, fields, links, environmentID, modifiedBy)
}

func (r *CampaignRepository) GetByCode(ctx context.Context, environmentID uuid.UUID, code string) (*model.Campaign, error) {
	return r.findInEnvironment(ctx, environmentID, "code", code)
}

// Transition moves the campaign to next when the state machine allows it and
// records a campaign.status_changed event in the same transaction.
func (r *CampaignRepository) Transition(ctx context.Context, campaign *model.Campaign, next model.CampaignStatus, modifiedBy string) error {
	from := campaign.Status
	if !from.CanTransitionTo(next) {
		return invalidTransition(r.entity, from, next)
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := r.on(tx)
		w, err := newUpdate(tx, campaign, Fields{"status": next})
		if err != nil {
			return err
		}
		if err := repo.runChecks(ctx, w, auditChecks(modifiedBy)...); err != nil {
			return err
		}
		if err := repo.Repository.Update(ctx, campaign, w.fields); err != nil {
			return err
		}
		campaign.Status = next

		metrics.CampaignTransitions.WithLabelValues(string(from), string(next)).Inc()
		r.logger.Info("campaign status changed",
			zap.String("campaign_id", campaign.ID.String()),
			zap.String("from", string(from)),
			zap.String("to", string(next)),
			zap.String("modified_by", modifiedBy),
		)

		return NewOutboxRepository(tx).Append(ctx, model.EventCampaignStatusChanged, model.JSONB{
			"campaign_id":    campaign.ID.String(),
			"environment_id": campaign.EnvironmentID.String(),
			"code":           campaign.Code,
			"from":           string(from),
			"to":             string(next),
			"modified_by":    modifiedBy,
		})
	})
}

func invalidTransition(entity string, from, to model.CampaignStatus) error {
	metrics.ValidationFailures.WithLabelValues(entity, "status").Inc()
	return &store.ValidationError{
		Entity:  entity,
		Field:   "status",
		Message: fmt.Sprintf("%s → %s is not allowed", from, to),
		Err:     store.ErrInvalidTransition,
	}
}
