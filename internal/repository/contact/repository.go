package repository

import (
	"context"
	"time"

	"github.com/aniladanir/review-messenger-service/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository interface {
	RecordSend(ctx context.Context, tenantID, phone, name string, at time.Time) error
}

type repo struct {
	db *gorm.DB
}

func NewContactRepository(db *gorm.DB) Repository {
	return &repo{db: db}
}

// RecordSend increments the contact's send count and stamps the last send time,
// creating the contact on first send.
func (r *repo) RecordSend(ctx context.Context, tenantID, phone, name string, at time.Time) error {
	at = at.UTC()
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "tenant_id"}, {Name: "phone"}},
			DoUpdates: clause.Assignments(map[string]any{
				"send_count":   gorm.Expr("send_count + 1"),
				"last_sent_at": at,
			}),
		}).
		Create(&domain.Contact{
			TenantID:   tenantID,
			Phone:      phone,
			Name:       name,
			SendCount:  1,
			LastSentAt: &at,
		}).Error
}
