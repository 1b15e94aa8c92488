package gormstore

import (
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/uspace/uatrack/pkg/model"
)

// UnitOfWork exposes every repository bound to one transaction. It lives for
// the duration of a Store.Do callback and must not be shared between
// goroutines.
type UnitOfWork struct {
	tx *gorm.DB

	Environments *EnvironmentRepository
	Systems      *ReferenceRepository[model.System]
	Sections     *ReferenceRepository[model.Section]
	Reasons      *ReferenceRepository[model.Reason]

	Files     *FileRepository
	Emails    *EmailRepository
	Operators *OperatorRepository
	Drones    *DroneRepository
	UhubOrgs  *UhubOrgRepository
	UhubUsers *UhubUserRepository
	UasZones  *UasZoneRepository
	Uspaces   *UspaceRepository

	Requirements *RequirementRepository
	Cases        *CaseRepository
	Steps        *StepRepository
	Blocks       *BlockRepository
	Campaigns    *CampaignRepository

	CampaignRuns *CampaignRunRepository
	CaseRuns     *CaseRunRepository
	StepRuns     *StepRunRepository

	Bugs   *BugRepository
	Outbox *OutboxRepository
}

func newUnitOfWork(tx *gorm.DB, logger *zap.Logger, policy ExecutionPolicy) *UnitOfWork {
	return &UnitOfWork{
		tx: tx,

		Environments: NewEnvironmentRepository(tx, logger),
		Systems:      NewReferenceRepository[model.System](tx, logger),
		Sections:     NewReferenceRepository[model.Section](tx, logger),
		Reasons:      NewReferenceRepository[model.Reason](tx, logger),

		Files:     NewFileRepository(tx, logger),
		Emails:    NewEmailRepository(tx, logger),
		Operators: NewOperatorRepository(tx, logger),
		Drones:    NewDroneRepository(tx, logger),
		UhubOrgs:  NewUhubOrgRepository(tx, logger),
		UhubUsers: NewUhubUserRepository(tx, logger),
		UasZones:  NewUasZoneRepository(tx, logger),
		Uspaces:   NewUspaceRepository(tx, logger),

		Requirements: NewRequirementRepository(tx, logger),
		Cases:        NewCaseRepository(tx, logger),
		Steps:        NewStepRepository(tx, logger),
		Blocks:       NewBlockRepository(tx, logger),
		Campaigns:    NewCampaignRepository(tx, logger),

		CampaignRuns: NewCampaignRunRepository(tx, logger, policy),
		CaseRuns:     NewCaseRunRepository(tx, logger),
		StepRuns:     NewStepRunRepository(tx, logger),

		Bugs:   NewBugRepository(tx, logger),
		Outbox: NewOutboxRepository(tx),
	}
}

// Tx is the transaction handle, for queries no repository covers.
func (u *UnitOfWork) Tx() *gorm.DB {
	return u.tx
}
