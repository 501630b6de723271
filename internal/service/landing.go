package service

import (
	"context"

	deliveryRepo "github.com/aniladanir/review-messenger-service/internal/repository/delivery"
	tenantRepo "github.com/aniladanir/review-messenger-service/internal/repository/tenant"
)

// LandingPages resolves where a tracking link sends the recipient.
type LandingPages struct {
	deliveries deliveryRepo.Repository
	tenants    tenantRepo.Repository
}

func NewLandingPages(deliveries deliveryRepo.Repository, tenants tenantRepo.Repository) *LandingPages {
	return &LandingPages{deliveries: deliveries, tenants: tenants}
}

// LandingURL returns the landing page of the tenant that sent recordID. An
// empty url means the tenant has none; unknown records yield domain.ErrNotFound.
func (l *LandingPages) LandingURL(ctx context.Context, recordID string) (string, error) {
	rec, err := l.deliveries.FindByID(ctx, recordID)
	if err != nil {
		return "", err
	}
	tenant, err := l.tenants.FindTenant(ctx, rec.TenantID)
	if err != nil {
		return "", err
	}
	return tenant.LandingURL, nil
}
