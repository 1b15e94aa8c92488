package model

import (
	"time"

	"github.com/google/uuid"
)

type Bug struct {
	Audit
	EnvironmentID uuid.UUID     `gorm:"type:uuid;not null;index" json:"environment_id"`
	Environment   *Environment  `gorm:"foreignKey:EnvironmentID" json:"-"`
	Title         string        `gorm:"type:varchar(255);not null" json:"title"`
	Description   string        `gorm:"type:text" json:"description"`
	ServiceNowID  *string       `gorm:"type:varchar(64)" json:"service_now_id,omitempty"`
	Status        BugStatus     `gorm:"type:varchar(20);not null;default:'OPEN';index" json:"status"`
	Priority      string        `gorm:"type:varchar(16)" json:"priority"`
	SystemID      uuid.UUID     `gorm:"type:uuid;not null;index" json:"system_id"`
	System        *System       `gorm:"foreignKey:SystemID" json:"system,omitempty"`
	CampaignRunID *uuid.UUID    `gorm:"type:uuid;index" json:"campaign_run_id,omitempty"`
	CampaignRun   *CampaignRun  `gorm:"foreignKey:CampaignRunID" json:"campaign_run,omitempty"`
	FileID        *uuid.UUID    `gorm:"type:uuid" json:"file_id,omitempty"`
	File          *File         `gorm:"foreignKey:FileID" json:"file,omitempty"`
	Requirements  []Requirement `gorm:"many2many:bug_requirements;joinForeignKey:BugID;joinReferences:RequirementID" json:"requirements,omitempty"`
	History       []BugHistory  `gorm:"foreignKey:BugID;constraint:OnDelete:CASCADE" json:"history,omitempty"`
}

// BugHistory is an immutable entry of a bug's audit trail.
type BugHistory struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	BugID       uuid.UUID `gorm:"type:uuid;not null;index" json:"bug_id"`
	Status      BugStatus `gorm:"type:varchar(20);not null" json:"status"`
	Description string    `gorm:"type:text;not null" json:"description"`
	ModifiedBy  string    `gorm:"type:varchar(255);not null" json:"modified_by"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
}

func (BugHistory) TableName() string {
	return "bug_history"
}
