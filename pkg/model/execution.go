package model

import (
	"time"

	"github.com/google/uuid"
)

// CampaignRun is one execution of a Campaign. Its CaseRun and StepRun tree is
// created together with it.
type CampaignRun struct {
	Audit
	EnvironmentID uuid.UUID    `gorm:"type:uuid;not null;index" json:"environment_id"`
	Environment   *Environment `gorm:"foreignKey:EnvironmentID" json:"-"`
	CampaignID    uuid.UUID    `gorm:"type:uuid;not null;index" json:"campaign_id"`
	Campaign      *Campaign    `gorm:"foreignKey:CampaignID" json:"campaign,omitempty"`
	StartedAt     time.Time    `gorm:"not null" json:"started_at"`
	EndedAt       *time.Time   `gorm:"index" json:"ended_at,omitempty"`
	Notes         string       `gorm:"type:text" json:"notes"`
	CaseRuns      []CaseRun    `gorm:"foreignKey:CampaignRunID;constraint:OnDelete:CASCADE" json:"case_runs,omitempty"`
}

func (r *CampaignRun) IsOpen() bool {
	return r.EndedAt == nil
}

type CaseRun struct {
	Audit
	EnvironmentID uuid.UUID    `gorm:"type:uuid;not null;index" json:"environment_id"`
	Environment   *Environment `gorm:"foreignKey:EnvironmentID" json:"-"`
	CampaignRunID uuid.UUID    `gorm:"type:uuid;not null;uniqueIndex:idx_case_runs_run_case" json:"campaign_run_id"`
	CaseID        uuid.UUID    `gorm:"type:uuid;not null;uniqueIndex:idx_case_runs_run_case" json:"case_id"`
	Case          *Case        `gorm:"foreignKey:CaseID" json:"case,omitempty"`
	Notes         string       `gorm:"type:text" json:"notes"`
	StepRuns      []StepRun    `gorm:"foreignKey:CaseRunID;constraint:OnDelete:CASCADE" json:"step_runs,omitempty"`
}

// StepRun records the outcome of one Step. Passed is nil until a result is
// entered.
type StepRun struct {
	Audit
	EnvironmentID uuid.UUID    `gorm:"type:uuid;not null;index" json:"environment_id"`
	Environment   *Environment `gorm:"foreignKey:EnvironmentID" json:"-"`
	CaseRunID     uuid.UUID    `gorm:"type:uuid;not null;uniqueIndex:idx_step_runs_case_run_step" json:"case_run_id"`
	StepID        uuid.UUID    `gorm:"type:uuid;not null;uniqueIndex:idx_step_runs_case_run_step" json:"step_id"`
	Step          *Step        `gorm:"foreignKey:StepID" json:"step,omitempty"`
	Passed        *bool        `json:"passed"`
	Notes         string       `gorm:"type:text" json:"notes"`
	FileID        *uuid.UUID   `gorm:"type:uuid" json:"file_id,omitempty"`
	File          *File        `gorm:"foreignKey:FileID" json:"file,omitempty"`
}

// RunSummary aggregates step results of a CampaignRun.
type RunSummary struct {
	CampaignRunID uuid.UUID      `json:"campaign_run_id"`
	CampaignID    uuid.UUID      `json:"campaign_id"`
	Status        CampaignStatus `json:"status"`
	CaseRuns      int            `json:"case_runs"`
	StepRuns      int            `json:"step_runs"`
	Passed        int            `json:"passed"`
	Failed        int            `json:"failed"`
	Pending       int            `json:"pending"`
	StartedAt     time.Time      `json:"started_at"`
	EndedAt       *time.Time     `json:"ended_at,omitempty"`
}
