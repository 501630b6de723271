package service

import (
	"context"
	"fmt"
	"time"

	tenantRepo "github.com/aniladanir/review-messenger-service/internal/repository/tenant"
)

type PlanDecision struct {
	Allowed bool
	Reason  string
}

// PlanChecker decides whether a tenant's plan allows count more sends.
type PlanChecker interface {
	CheckCanSend(ctx context.Context, tenantID string, count int) (PlanDecision, error)
}

// SendCounter counts a tenant's send attempts since a point in time.
type SendCounter interface {
	CountCreatedSince(ctx context.Context, tenantID string, since time.Time) (int64, error)
}

// MonthlyPlan caps the send attempts a tenant creates per calendar month (UTC).
// A tenant limit of 0 means unlimited.
type MonthlyPlan struct {
	tenants tenantRepo.Repository
	counter SendCounter
	now     func() time.Time
}

func NewMonthlyPlan(tenants tenantRepo.Repository, counter SendCounter) *MonthlyPlan {
	return &MonthlyPlan{
		tenants: tenants,
		counter: counter,
		now:     time.Now,
	}
}

func (p *MonthlyPlan) CheckCanSend(ctx context.Context, tenantID string, count int) (PlanDecision, error) {
	tenant, err := p.tenants.FindTenant(ctx, tenantID)
	if err != nil {
		return PlanDecision{}, err
	}
	if tenant.MonthlyLimit <= 0 {
		return PlanDecision{Allowed: true}, nil
	}

	now := p.now().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	used, err := p.counter.CountCreatedSince(ctx, tenantID, monthStart)
	if err != nil {
		return PlanDecision{}, err
	}

	if used+int64(count) > int64(tenant.MonthlyLimit) {
		return PlanDecision{
			Allowed: false,
			Reason: fmt.Sprintf("monthly limit of %d messages reached (%d used, %d requested)",
				tenant.MonthlyLimit, used, count),
		}, nil
	}
	return PlanDecision{Allowed: true}, nil
}
