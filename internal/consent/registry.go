// Package consent is the per-tenant record of phones that must not be messaged.
package consent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aniladanir/review-messenger-service/internal/domain"
	"github.com/aniladanir/review-messenger-service/internal/phone"
	consentRepo "github.com/aniladanir/review-messenger-service/internal/repository/consent"
)

// History answers which tenants have ever sent to a phone.
type History interface {
	TenantsForPhone(ctx context.Context, phone string) ([]string, error)
}

// InboundResult describes what an inbound message did to the registry.
type InboundResult struct {
	Phone   string
	Keyword domain.Keyword
	// Tenants whose record was touched by the keyword.
	Tenants []string
}

type Registry struct {
	store   consentRepo.Repository
	history History
	logger  *slog.Logger
}

func NewRegistry(store consentRepo.Repository, history History, logger *slog.Logger) *Registry {
	return &Registry{
		store:   store,
		history: history,
		logger:  logger,
	}
}

// IsOptedOut reports whether tenant is blocked from messaging rawPhone.
func (r *Registry) IsOptedOut(ctx context.Context, rawPhone, tenantID string) (bool, error) {
	p, err := phone.Parse(rawPhone)
	if err != nil {
		return false, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	blocked, err := r.store.Exists(ctx, p, tenantID)
	if err != nil {
		return false, fmt.Errorf("%w: consent lookup: %v", domain.ErrPersistence, err)
	}
	return blocked, nil
}

// RecordOptOut blocks rawPhone for tenant. Repeating it has no further effect.
func (r *Registry) RecordOptOut(ctx context.Context, rawPhone, tenantID string) error {
	p, err := phone.Parse(rawPhone)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	created, err := r.store.Insert(ctx, p, tenantID)
	if err != nil {
		return fmt.Errorf("%w: record opt-out: %v", domain.ErrPersistence, err)
	}
	if created {
		r.logger.Info("recipient opted out", "phone", p, "tenantId", tenantID)
	}
	return nil
}

// RecordOptIn unblocks rawPhone for tenant. Repeating it has no further effect.
func (r *Registry) RecordOptIn(ctx context.Context, rawPhone, tenantID string) error {
	p, err := phone.Parse(rawPhone)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	removed, err := r.store.Delete(ctx, p, tenantID)
	if err != nil {
		return fmt.Errorf("%w: record opt-in: %v", domain.ErrPersistence, err)
	}
	if removed {
		r.logger.Info("recipient opted back in", "phone", p, "tenantId", tenantID)
	}
	return nil
}

// HandleInbound applies an inbound message body from rawPhone. An opt-out or
// opt-in keyword is applied to every tenant that has ever sent to the phone;
// any other body leaves the registry untouched.
//
// A failure for one tenant does not stop the others; all failures are returned joined.
func (r *Registry) HandleInbound(ctx context.Context, rawPhone, body string) (InboundResult, error) {
	p, err := phone.Parse(rawPhone)
	if err != nil {
		return InboundResult{}, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	res := InboundResult{Phone: p, Keyword: domain.ClassifyKeyword(body)}
	if res.Keyword == domain.KeywordNone {
		return res, nil
	}

	tenants, err := r.history.TenantsForPhone(ctx, p)
	if err != nil {
		return res, fmt.Errorf("%w: tenants for phone: %v", domain.ErrPersistence, err)
	}
	if len(tenants) == 0 {
		r.logger.Info("keyword from phone without send history", "phone", p, "keyword", res.Keyword.String())
		return res, nil
	}

	apply := r.RecordOptOut
	if res.Keyword == domain.KeywordOptIn {
		apply = r.RecordOptIn
	}

	var errs []error
	for _, tenantID := range tenants {
		if err := apply(ctx, p, tenantID); err != nil {
			errs = append(errs, fmt.Errorf("tenant %s: %w", tenantID, err))
			continue
		}
		res.Tenants = append(res.Tenants, tenantID)
	}

	return res, errors.Join(errs...)
}
