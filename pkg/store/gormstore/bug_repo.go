package gormstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/uspace/uatrack/pkg/metrics"
	"github.com/uspace/uatrack/pkg/model"
	"github.com/uspace/uatrack/pkg/store"
)

const bugCreatedMessage = "Bug creado"

func statusChangedMessage(from, to model.BugStatus) string {
	return fmt.Sprintf("Estado cambiado: %s → %s", from, to)
}

// BugRepository keeps an append-only history next to every bug: one entry on
// creation and one per status change. History rows are never updated; they
// go away only with their bug.
type BugRepository struct {
	*LinkedRepository[model.Bug]
}

func NewBugRepository(db *gorm.DB, logger *zap.Logger) *BugRepository {
	return &BugRepository{LinkedRepository: NewLinkedRepository[model.Bug](db, logger,
		withLinks(model.LinkRequirements),
		withRefs(
			ref{column: "system_id", target: &model.System{}},
			ref{column: "campaign_run_id", target: &model.CampaignRun{}, optional: true},
			ref{column: "file_id", target: &model.File{}, optional: true},
		),
		withPreload("System", "CampaignRun", "File"),
	)}
}

func (r *BugRepository) on(tx *gorm.DB) *BugRepository {
	return &BugRepository{LinkedRepository: r.LinkedRepository.on(tx)}
}

func (r *BugRepository) Create(ctx context.Context, bug *model.Bug, links Links, environmentID uuid.UUID, modifiedBy string) error {
	if bug.Status == "" {
		bug.Status = model.BugOpen
	}
	if !bug.Status.IsValid() {
		return r.linkError("status", fmt.Sprintf("unknown status %q", bug.Status), nil)
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := r.on(tx)
		if err := repo.LinkedRepository.Create(ctx, bug, links, environmentID, modifiedBy); err != nil {
			return err
		}
		return repo.appendHistory(ctx, bug.ID, bug.Status, bugCreatedMessage, modifiedBy)
	})
}

// Update applies fields and links. When the payload changes the status a
// history entry and a bug.status_changed event are written with it.
func (r *BugRepository) Update(ctx context.Context, id uuid.UUID, fields Fields, links Links, environmentID uuid.UUID, modifiedBy string) (*model.Bug, error) {
	fields = copyFields(fields)
	next, hasStatus, err := r.takeStatus(fields)
	if err != nil {
		return nil, err
	}

	var updated *model.Bug
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := r.on(tx)
		current, err := repo.GetByID(ctx, id, true)
		if err != nil {
			return err
		}
		previous := current.Status

		bug, err := repo.LinkedRepository.Update(ctx, id, fields, links, environmentID, modifiedBy)
		if err != nil {
			return err
		}
		if hasStatus && next != previous {
			if err := repo.recordStatusChange(ctx, bug, previous, next, "", modifiedBy); err != nil {
				return err
			}
		}
		updated = bug
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// UpdateStatus sets the status and always appends a history entry, even when
// the status is unchanged. An empty description is replaced by the standard
// change message.
func (r *BugRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.BugStatus, description, modifiedBy string) (*model.Bug, error) {
	if !status.IsValid() {
		return nil, r.linkError("status", fmt.Sprintf("unknown status %q", status), nil)
	}

	var updated *model.Bug
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := r.on(tx)
		current, err := repo.GetByID(ctx, id, true)
		if err != nil {
			return err
		}
		previous := current.Status

		bug, err := repo.UpdateWithAuditEnv(ctx, id, Fields{"status": status}, current.EnvironmentID, modifiedBy)
		if err != nil {
			return err
		}
		if err := repo.recordStatusChange(ctx, bug, previous, status, description, modifiedBy); err != nil {
			return err
		}
		updated = bug
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// History lists the audit trail of a bug, oldest first.
func (r *BugRepository) History(ctx context.Context, bugID uuid.UUID) ([]model.BugHistory, error) {
	var entries []model.BugHistory
	err := r.db.WithContext(ctx).
		Where("bug_id = ?", bugID).
		Order("created_at ASC").
		Find(&entries).Error
	if err != nil {
		return nil, store.Classify("BugHistory", "list", err)
	}
	return entries, nil
}

func (r *BugRepository) GetWithHistory(ctx context.Context, id uuid.UUID) (*model.Bug, error) {
	var bug model.Bug
	res := r.withRelations(ctx).Where("id = ?", id).Limit(1).Find(&bug)
	if res.Error != nil {
		return nil, store.Classify(r.entity, "get", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return &bug, nil
}

// GetAllWithRelations returns every bug of the environment, newest first,
// with relations and history loaded.
func (r *BugRepository) GetAllWithRelations(ctx context.Context, environmentID uuid.UUID) ([]model.Bug, error) {
	var bugs []model.Bug
	err := r.withRelations(ctx).
		Where("environment_id = ?", environmentID).
		Order("created_at DESC").
		Find(&bugs).Error
	if err != nil {
		return nil, store.Classify(r.entity, "list", err)
	}
	return bugs, nil
}

func (r *BugRepository) ListByCampaignRun(ctx context.Context, campaignRunID uuid.UUID) ([]model.Bug, error) {
	return r.FilterBy(ctx, Fields{"campaign_run_id": campaignRunID})
}

// Delete removes the bug together with its history and requirement links.
func (r *BugRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	var deleted bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("bug_id = ?", id).Delete(&model.BugHistory{}).Error; err != nil {
			return store.Classify("BugHistory", "delete", err)
		}
		ok, err := r.on(tx).LinkedRepository.Delete(ctx, id)
		deleted = ok
		return err
	})
	return deleted, err
}

func (r *BugRepository) withRelations(ctx context.Context) *gorm.DB {
	query := r.db.WithContext(ctx)
	for _, name := range r.preloads {
		query = query.Preload(name)
	}
	return query.Preload("History", func(db *gorm.DB) *gorm.DB {
		return db.Order("created_at ASC")
	})
}

func (r *BugRepository) takeStatus(fields Fields) (model.BugStatus, bool, error) {
	var raw interface{}
	var found bool
	for _, key := range []string{"status", "Status"} {
		if value, ok := fields[key]; ok {
			raw, found = value, true
			delete(fields, key)
		}
	}
	if !found {
		return "", false, nil
	}

	var status model.BugStatus
	switch v := raw.(type) {
	case model.BugStatus:
		status = v
	case string:
		status = model.BugStatus(strings.ToUpper(strings.TrimSpace(v)))
	}
	if !status.IsValid() {
		return "", false, r.linkError("status", fmt.Sprintf("unknown status %v", raw), nil)
	}
	fields["status"] = status
	return status, true, nil
}

func (r *BugRepository) appendHistory(ctx context.Context, bugID uuid.UUID, status model.BugStatus, description, modifiedBy string) error {
	entry := &model.BugHistory{
		ID:          uuid.New(),
		BugID:       bugID,
		Status:      status,
		Description: description,
		ModifiedBy:  strings.TrimSpace(modifiedBy),
	}
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return store.Classify("BugHistory", "create", err)
	}
	metrics.BugHistoryEntries.WithLabelValues(string(status)).Inc()
	return nil
}

func (r *BugRepository) recordStatusChange(ctx context.Context, bug *model.Bug, from, to model.BugStatus, description, modifiedBy string) error {
	if description == "" {
		description = statusChangedMessage(from, to)
	}
	if err := r.appendHistory(ctx, bug.ID, to, description, modifiedBy); err != nil {
		return err
	}
	r.logger.Info("bug status changed",
		zap.String("bug_id", bug.ID.String()),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
	)
	return NewOutboxRepository(r.db).Append(ctx, model.EventBugStatusChanged, model.JSONB{
		"bug_id":         bug.ID.String(),
		"environment_id": bug.EnvironmentID.String(),
		"title":          bug.Title,
		"from":           string(from),
		"to":             string(to),
		"modified_by":    modifiedBy,
	})
}
