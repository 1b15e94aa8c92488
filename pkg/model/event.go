package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	OutboxStatusPending   = "pending"
	OutboxStatusPublished = "published"
	OutboxStatusFailed    = "failed"
)

const (
	EventCampaignStatusChanged = "campaign.status_changed"
	EventCampaignRunCreated    = "campaign_run.created"
	EventBugStatusChanged      = "bug.status_changed"
)

// DomainEvent is an outbox row written in the same transaction as the state
// change it describes.
type DomainEvent struct {
	EventID     uuid.UUID `gorm:"type:uuid;primaryKey"`
	EventType   string    `gorm:"type:varchar(64);not null;index"`
	Payload     JSONB     `gorm:"not null"`
	Status      string    `gorm:"type:varchar(16);not null;default:'pending';index"`
	CreatedAt   time.Time `gorm:"autoCreateTime;not null"`
	PublishedAt *time.Time
}

func (DomainEvent) TableName() string {
	return "domain_events"
}

func NewDomainEvent(eventType string, payload JSONB) *DomainEvent {
	return &DomainEvent{
		EventID:   uuid.New(),
		EventType: eventType,
		Payload:   payload,
		Status:    OutboxStatusPending,
	}
}
