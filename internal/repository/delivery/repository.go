package repository

import (
	"context"
	"errors"
	"time"

	"github.com/aniladanir/review-messenger-service/internal/domain"
	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, rec *domain.DeliveryRecord) error
	FindByID(ctx context.Context, id string) (*domain.DeliveryRecord, error)
	MarkSent(ctx context.Context, id, providerMessageID string) error
	MarkFailed(ctx context.Context, id, reason string) error
	ApplyProviderStatus(ctx context.Context, providerMessageID string, status domain.DeliveryStatus) (bool, error)
	SetEngagement(ctx context.Context, id string, kind domain.EngagementKind, at time.Time) (bool, error)
	TenantsForPhone(ctx context.Context, phone string) ([]string, error)
	CountCreatedSince(ctx context.Context, tenantID string, since time.Time) (int64, error)
}

type repo struct {
	db *gorm.DB
}

func NewDeliveryRepository(db *gorm.DB) Repository {
	return &repo{db: db}
}

// Create inserts a new record
func (r *repo) Create(ctx context.Context, rec *domain.DeliveryRecord) error {
	return r.db.WithContext(ctx).Create(rec).Error
}

// FindByID returns the record with given id or domain.ErrNotFound
func (r *repo) FindByID(ctx context.Context, id string) (*domain.DeliveryRecord, error) {
	var rec domain.DeliveryRecord
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// MarkSent moves a pending record to sent and stores the provider message id.
// The id is written only by this transition.
func (r *repo) MarkSent(ctx context.Context, id, providerMessageID string) error {
	return r.transition(ctx, id, domain.StatusSent, map[string]any{
		"provider_message_id": providerMessageID,
	})
}

// MarkFailed moves a pending record to failed after the provider rejected the send
func (r *repo) MarkFailed(ctx context.Context, id, reason string) error {
	return r.transition(ctx, id, domain.StatusFailed, map[string]any{
		"failure_reason": reason,
	})
}

func (r *repo) transition(ctx context.Context, id string, to domain.DeliveryStatus, fields map[string]any) error {
	fields["status"] = to
	fields["updated_at"] = time.Now().UTC()

	res := r.db.WithContext(ctx).Model(&domain.DeliveryRecord{}).
		Where("id = ? AND status = ?", id, domain.StatusPending).
		Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}

	// nothing updated: either the record is missing or it already left pending
	if _, err := r.FindByID(ctx, id); err != nil {
		return err
	}
	return domain.ErrInvalidTransition
}

// ApplyProviderStatus advances the record correlated by provider message id to
// status when the transition table allows it. Unknown ids and disallowed
// transitions are no-ops reported as (false, nil).
func (r *repo) ApplyProviderStatus(ctx context.Context, providerMessageID string, status domain.DeliveryStatus) (bool, error) {
	sources := domain.TransitionSources(status)
	if providerMessageID == "" || len(sources) == 0 {
		return false, nil
	}

	// only rows still in an allowed source status are touched
	res := r.db.WithContext(ctx).Model(&domain.DeliveryRecord{}).
		Where("provider_message_id = ? AND status IN ?", providerMessageID, sources).
		Updates(map[string]any{
			"status":     status,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// SetEngagement sets an engagement timestamp only if it was never set before
func (r *repo) SetEngagement(ctx context.Context, id string, kind domain.EngagementKind, at time.Time) (bool, error) {
	col, ok := kind.Column()
	if !ok {
		return false, domain.ErrValidation
	}

	res := r.db.WithContext(ctx).Model(&domain.DeliveryRecord{}).
		Where("id = ?", id).
		Where(col + " IS NULL").
		Update(col, at.UTC())
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// TenantsForPhone returns every tenant that ever created a record addressed to phone
func (r *repo) TenantsForPhone(ctx context.Context, phone string) ([]string, error) {
	var tenants []string
	err := r.db.WithContext(ctx).Model(&domain.DeliveryRecord{}).
		Where("phone = ?", phone).
		Distinct().
		Order("tenant_id").
		Pluck("tenant_id", &tenants).Error
	return tenants, err
}

// CountCreatedSince counts records a tenant created at or after since
func (r *repo) CountCreatedSince(ctx context.Context, tenantID string, since time.Time) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.DeliveryRecord{}).
		Where("tenant_id = ? AND created_at >= ?", tenantID, since).
		Count(&n).Error
	return n, err
}
