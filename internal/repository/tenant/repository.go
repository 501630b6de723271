package repository

import (
	"context"
	"errors"

	"github.com/aniladanir/review-messenger-service/internal/domain"
	"gorm.io/gorm"
)

// Repository reads tenants and their message templates. Both are managed
// elsewhere and never written here.
type Repository interface {
	FindTenant(ctx context.Context, id string) (*domain.Tenant, error)
	FindTemplate(ctx context.Context, tenantID, templateID string) (*domain.Template, error)
}

type repo struct {
	db *gorm.DB
}

func NewTenantRepository(db *gorm.DB) Repository {
	return &repo{db: db}
}

func (r *repo) FindTenant(ctx context.Context, id string) (*domain.Tenant, error) {
	var t domain.Tenant
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&t).Error; err != nil {
		return nil, notFound(err)
	}
	return &t, nil
}

// FindTemplate returns the template only if it belongs to tenantID
func (r *repo) FindTemplate(ctx context.Context, tenantID, templateID string) (*domain.Template, error) {
	var tpl domain.Template
	err := r.db.WithContext(ctx).
		Where("id = ? AND tenant_id = ?", templateID, tenantID).
		First(&tpl).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &tpl, nil
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.ErrNotFound
	}
	return err
}
