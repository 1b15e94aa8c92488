package model

import "github.com/google/uuid"

type Email struct {
	Audit
	EnvironmentID uuid.UUID    `gorm:"type:uuid;not null;uniqueIndex:idx_emails_env_address" json:"environment_id"`
	Environment   *Environment `gorm:"foreignKey:EnvironmentID" json:"-"`
	Address       string       `gorm:"type:varchar(320);not null;uniqueIndex:idx_emails_env_address" json:"address"`
}

type Operator struct {
	Audit
	EnvironmentID uuid.UUID    `gorm:"type:uuid;not null;uniqueIndex:idx_operators_env_name" json:"environment_id"`
	Environment   *Environment `gorm:"foreignKey:EnvironmentID" json:"-"`
	Name          string       `gorm:"type:varchar(255);not null;uniqueIndex:idx_operators_env_name" json:"name"`
	EasaID        string       `gorm:"type:varchar(64)" json:"easa_id"`
	EmailID       uuid.UUID    `gorm:"type:uuid;not null;index" json:"email_id"`
	Email         *Email       `gorm:"foreignKey:EmailID" json:"email,omitempty"`
}

type Drone struct {
	Audit
	EnvironmentID uuid.UUID    `gorm:"type:uuid;not null;uniqueIndex:idx_drones_env_serial" json:"environment_id"`
	Environment   *Environment `gorm:"foreignKey:EnvironmentID" json:"-"`
	SerialNumber  string       `gorm:"type:varchar(128);not null;uniqueIndex:idx_drones_env_serial" json:"serial_number"`
	Model         string       `gorm:"type:varchar(255)" json:"model"`
	Manufacturer  string       `gorm:"type:varchar(255)" json:"manufacturer"`
	OperatorID    uuid.UUID    `gorm:"type:uuid;not null;index" json:"operator_id"`
	Operator      *Operator    `gorm:"foreignKey:OperatorID" json:"operator,omitempty"`
}

// UhubOrg is an organization registered in the U-space hub.
type UhubOrg struct {
	Audit
	EnvironmentID uuid.UUID    `gorm:"type:uuid;not null;uniqueIndex:idx_uhub_orgs_env_name" json:"environment_id"`
	Environment   *Environment `gorm:"foreignKey:EnvironmentID" json:"-"`
	Name          string       `gorm:"type:varchar(255);not null;uniqueIndex:idx_uhub_orgs_env_name" json:"name"`
	Role          string       `gorm:"type:varchar(64)" json:"role"`
}

type UhubUser struct {
	Audit
	EnvironmentID  uuid.UUID    `gorm:"type:uuid;not null;uniqueIndex:idx_uhub_users_env_username" json:"environment_id"`
	Environment    *Environment `gorm:"foreignKey:EnvironmentID" json:"-"`
	Username       string       `gorm:"type:varchar(255);not null;uniqueIndex:idx_uhub_users_env_username" json:"username"`
	EmailID        uuid.UUID    `gorm:"type:uuid;not null;index" json:"email_id"`
	Email          *Email       `gorm:"foreignKey:EmailID" json:"email,omitempty"`
	OrganizationID uuid.UUID    `gorm:"type:uuid;not null;index" json:"organization_id"`
	Organization   *UhubOrg     `gorm:"foreignKey:OrganizationID" json:"organization,omitempty"`
}

type UasZone struct {
	Audit
	EnvironmentID uuid.UUID    `gorm:"type:uuid;not null;uniqueIndex:idx_uas_zones_env_name" json:"environment_id"`
	Environment   *Environment `gorm:"foreignKey:EnvironmentID" json:"-"`
	Name          string       `gorm:"type:varchar(255);not null;uniqueIndex:idx_uas_zones_env_name" json:"name"`
	Identifier    string       `gorm:"type:varchar(64)" json:"identifier"`
	ZoneType      string       `gorm:"type:varchar(64)" json:"zone_type"`
	Organizations []UhubOrg    `gorm:"many2many:uas_zone_organizations;joinForeignKey:UasZoneID;joinReferences:OrganizationID" json:"organizations,omitempty"`
	Reasons       []Reason     `gorm:"many2many:uas_zone_reasons;joinForeignKey:UasZoneID;joinReferences:ReasonID" json:"reasons,omitempty"`
}

type Uspace struct {
	Audit
	EnvironmentID uuid.UUID    `gorm:"type:uuid;not null;uniqueIndex:idx_uspaces_env_code" json:"environment_id"`
	Environment   *Environment `gorm:"foreignKey:EnvironmentID" json:"-"`
	Code          string       `gorm:"type:varchar(64);not null;uniqueIndex:idx_uspaces_env_code" json:"code"`
	Name          string       `gorm:"type:varchar(255);not null" json:"name"`
	Description   string       `json:"description"`
}
