// Package domain holds the webhook intake record and the contract of
// the reconciliation engine.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	billingdomain "github.com/polarishq/polaris/internal/billing/domain"
	identitydomain "github.com/polarishq/polaris/internal/identity/domain"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Source names the webhook surface an event arrived on.
const (
	SourceIdentity = "identity"
	SourceBilling  = "billing"
)

// Reconciliation outcomes, used for metrics and audit entries.
const (
	OutcomeApplied      = "applied"
	OutcomeDuplicate    = "duplicate"
	OutcomeDropped      = "dropped"
	OutcomeDegraded     = "degraded"
	OutcomeSkippedStale = "skipped_stale"
)

var (
	ErrInvalidEvent   = errors.New("invalid_event")
	ErrInvalidPayload = errors.New("invalid_payload")
)

// WebhookEventRecord stores each accepted webhook delivery, keyed by
// (source, provider_event_id). The unique key is what makes replays
// converge: a redelivered event inserts nothing and is reprocessed only
// when its first attempt never completed.
type WebhookEventRecord struct {
	ID              snowflake.ID   `json:"id" gorm:"primaryKey"`
	Source          string         `json:"source" gorm:"type:text;not null;uniqueIndex:ux_webhook_events_source_event"`
	ProviderEventID string         `json:"provider_event_id" gorm:"type:text;not null;uniqueIndex:ux_webhook_events_source_event"`
	EventType       string         `json:"event_type" gorm:"type:text;not null"`
	Payload         datatypes.JSON `json:"payload" gorm:"type:jsonb;not null"`
	ReceivedAt      time.Time      `json:"received_at" gorm:"not null"`
	ProcessedAt     *time.Time     `json:"processed_at"`
}

func (WebhookEventRecord) TableName() string { return "webhook_events" }

// Service applies canonical events to local state. Both methods are
// idempotent per provider event id.
type Service interface {
	// ApplyIdentityEvent reconciles one identity event. A persistence
	// failure is returned so the caller can signal the provider to
	// redeliver.
	ApplyIdentityEvent(ctx context.Context, providerEventID string, event identitydomain.Event, payload []byte) error

	// ApplyBillingEvent reconciles one billing event.
	ApplyBillingEvent(ctx context.Context, event billingdomain.Event, payload []byte) error
}

type Repository interface {
	InsertEvent(ctx context.Context, db *gorm.DB, record *WebhookEventRecord) (bool, error)
	FindEvent(ctx context.Context, db *gorm.DB, source, providerEventID string) (*WebhookEventRecord, error)
	MarkProcessed(ctx context.Context, db *gorm.DB, id snowflake.ID, processedAt time.Time) error
}
