package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/polarishq/polaris/internal/reconcile/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertEvent(ctx context.Context, db *gorm.DB, record *domain.WebhookEventRecord) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`INSERT INTO webhook_events (
			id, source, provider_event_id, event_type, payload, received_at, processed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (source, provider_event_id) DO NOTHING`,
		record.ID,
		record.Source,
		record.ProviderEventID,
		record.EventType,
		record.Payload,
		record.ReceivedAt,
		record.ProcessedAt,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) FindEvent(ctx context.Context, db *gorm.DB, source, providerEventID string) (*domain.WebhookEventRecord, error) {
	var item domain.WebhookEventRecord
	if err := db.WithContext(ctx).Raw(
		`SELECT id, source, provider_event_id, event_type, payload, received_at, processed_at
		 FROM webhook_events
		 WHERE source = ? AND provider_event_id = ?
		 LIMIT 1`,
		source,
		providerEventID,
	).Scan(&item).Error; err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) MarkProcessed(ctx context.Context, db *gorm.DB, id snowflake.ID, processedAt time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE webhook_events
		 SET processed_at = ?
		 WHERE id = ?`,
		processedAt,
		id,
	).Error
}
