package repository

import (
	"context"
	"time"

	"github.com/aniladanir/review-messenger-service/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository interface {
	Exists(ctx context.Context, phone, tenantID string) (bool, error)
	Insert(ctx context.Context, phone, tenantID string) (bool, error)
	Delete(ctx context.Context, phone, tenantID string) (bool, error)
}

type repo struct {
	db *gorm.DB
}

func NewConsentRepository(db *gorm.DB) Repository {
	return &repo{db: db}
}

// Exists reports whether phone is blocked for tenant
func (r *repo) Exists(ctx context.Context, phone, tenantID string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.ConsentRecord{}).
		Where("phone = ? AND tenant_id = ?", phone, tenantID).
		Count(&n).Error
	return n > 0, err
}

// Insert creates the record unless it already exists and reports whether it created one
func (r *repo) Insert(ctx context.Context, phone, tenantID string) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&domain.ConsentRecord{
			Phone:     phone,
			TenantID:  tenantID,
			CreatedAt: time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// Delete removes the record if present and reports whether it removed one
func (r *repo) Delete(ctx context.Context, phone, tenantID string) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("phone = ? AND tenant_id = ?", phone, tenantID).
		Delete(&domain.ConsentRecord{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
