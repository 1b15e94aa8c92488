package model

import "github.com/google/uuid"

// Association names accepted in relation payloads. They match the struct
// field holding the many-to-many set.
const (
	LinkSystems       = "Systems"
	LinkSections      = "Sections"
	LinkOperators     = "Operators"
	LinkDrones        = "Drones"
	LinkUhubUsers     = "UhubUsers"
	LinkUasZones      = "UasZones"
	LinkCases         = "Cases"
	LinkBlocks        = "Blocks"
	LinkRequirements  = "Requirements"
	LinkOrganizations = "Organizations"
	LinkReasons       = "Reasons"
)

type Requirement struct {
	Audit
	EnvironmentID uuid.UUID    `gorm:"type:uuid;not null;uniqueIndex:idx_requirements_env_code" json:"environment_id"`
	Environment   *Environment `gorm:"foreignKey:EnvironmentID" json:"-"`
	Code          string       `gorm:"type:varchar(64);not null;uniqueIndex:idx_requirements_env_code" json:"code"`
	Title         string       `gorm:"type:varchar(255);not null" json:"title"`
	Description   string       `json:"description"`
	Priority      string       `gorm:"type:varchar(16)" json:"priority"`
	Systems       []System     `gorm:"many2many:requirement_systems;joinForeignKey:RequirementID;joinReferences:SystemID" json:"systems,omitempty"`
	Sections      []Section    `gorm:"many2many:requirement_sections;joinForeignKey:RequirementID;joinReferences:SectionID" json:"sections,omitempty"`
}

// Case is a test scenario. Its steps are executed in Position order.
type Case struct {
	Audit
	EnvironmentID uuid.UUID    `gorm:"type:uuid;not null;uniqueIndex:idx_cases_env_code" json:"environment_id"`
	Environment   *Environment `gorm:"foreignKey:EnvironmentID" json:"-"`
	Code          string       `gorm:"type:varchar(64);not null;uniqueIndex:idx_cases_env_code" json:"code"`
	Name          string       `gorm:"type:varchar(255);not null" json:"name"`
	Description   string       `json:"description"`
	Systems       []System     `gorm:"many2many:case_systems;joinForeignKey:CaseID;joinReferences:SystemID" json:"systems,omitempty"`
	Sections      []Section    `gorm:"many2many:case_sections;joinForeignKey:CaseID;joinReferences:SectionID" json:"sections,omitempty"`
	Operators     []Operator   `gorm:"many2many:case_operators;joinForeignKey:CaseID;joinReferences:OperatorID" json:"operators,omitempty"`
	Drones        []Drone      `gorm:"many2many:case_drones;joinForeignKey:CaseID;joinReferences:DroneID" json:"drones,omitempty"`
	UhubUsers     []UhubUser   `gorm:"many2many:case_uhub_users;joinForeignKey:CaseID;joinReferences:UhubUserID" json:"uhub_users,omitempty"`
	UasZones      []UasZone    `gorm:"many2many:case_uas_zones;joinForeignKey:CaseID;joinReferences:UasZoneID" json:"uas_zones,omitempty"`
	Steps         []Step       `gorm:"foreignKey:CaseID;constraint:OnDelete:CASCADE" json:"steps,omitempty"`
	Blocks        []Block      `gorm:"many2many:block_cases;joinForeignKey:CaseID;joinReferences:BlockID" json:"-"`
}

// Step is an action and its expected result inside a Case.
type Step struct {
	Audit
	EnvironmentID  uuid.UUID     `gorm:"type:uuid;not null;index" json:"environment_id"`
	Environment    *Environment  `gorm:"foreignKey:EnvironmentID" json:"-"`
	CaseID         uuid.UUID     `gorm:"type:uuid;not null;uniqueIndex:idx_steps_case_position" json:"case_id"`
	Position       int           `gorm:"not null;uniqueIndex:idx_steps_case_position" json:"position"`
	Action         string        `gorm:"type:text;not null" json:"action"`
	ExpectedResult string        `gorm:"type:text" json:"expected_result"`
	Requirements   []Requirement `gorm:"many2many:step_requirements;joinForeignKey:StepID;joinReferences:RequirementID" json:"requirements,omitempty"`
}

type Block struct {
	Audit
	EnvironmentID uuid.UUID    `gorm:"type:uuid;not null;uniqueIndex:idx_blocks_env_code" json:"environment_id"`
	Environment   *Environment `gorm:"foreignKey:EnvironmentID" json:"-"`
	Code          string       `gorm:"type:varchar(64);not null;uniqueIndex:idx_blocks_env_code" json:"code"`
	Name          string       `gorm:"type:varchar(255);not null" json:"name"`
	Description   string       `json:"description"`
	SystemID      uuid.UUID    `gorm:"type:uuid;not null;index" json:"system_id"`
	System        *System      `gorm:"foreignKey:SystemID" json:"system,omitempty"`
	Cases         []Case       `gorm:"many2many:block_cases;joinForeignKey:BlockID;joinReferences:CaseID" json:"cases,omitempty"`
}

type Campaign struct {
	Audit
	EnvironmentID uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_campaigns_env_code" json:"environment_id"`
	Environment   *Environment   `gorm:"foreignKey:EnvironmentID" json:"-"`
	Code          string         `gorm:"type:varchar(64);not null;uniqueIndex:idx_campaigns_env_code" json:"code"`
	Name          string         `gorm:"type:varchar(255);not null" json:"name"`
	Version       string         `gorm:"type:varchar(32)" json:"version"`
	Description   string         `json:"description"`
	Status        CampaignStatus `gorm:"type:varchar(20);not null;default:'DRAFT';index" json:"status"`
	SystemID      uuid.UUID      `gorm:"type:uuid;not null;index" json:"system_id"`
	System        *System        `gorm:"foreignKey:SystemID" json:"system,omitempty"`
	Blocks        []Block        `gorm:"many2many:campaign_blocks;joinForeignKey:CampaignID;joinReferences:BlockID" json:"blocks,omitempty"`
}
