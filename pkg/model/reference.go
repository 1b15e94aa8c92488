package model

import "github.com/google/uuid"

// Environment partitions assets, test definitions, runs and bugs of one
// installation.
type Environment struct {
	Base
	Name        string `gorm:"type:varchar(255);not null;uniqueIndex" json:"name"`
	Description string `json:"description"`
}

type System struct {
	Audit
	Name        string `gorm:"type:varchar(255);not null;uniqueIndex" json:"name"`
	Description string `json:"description"`
}

type Section struct {
	Audit
	Name        string `gorm:"type:varchar(255);not null;uniqueIndex" json:"name"`
	Description string `json:"description"`
}

type Reason struct {
	Audit
	Name        string `gorm:"type:varchar(255);not null;uniqueIndex" json:"name"`
	Description string `json:"description"`
}

// File is an attachment (evidence, logs, screenshots) referenced by bugs and
// step runs.
type File struct {
	Audit
	EnvironmentID uuid.UUID    `gorm:"type:uuid;not null;uniqueIndex:idx_files_env_path" json:"environment_id"`
	Environment   *Environment `gorm:"foreignKey:EnvironmentID" json:"-"`
	Name          string       `gorm:"type:varchar(255);not null" json:"name"`
	Path          string       `gorm:"type:varchar(1024);not null;uniqueIndex:idx_files_env_path" json:"path"`
	MimeType      string       `gorm:"type:varchar(255)" json:"mime_type"`
}
