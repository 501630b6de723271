package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/aniladanir/review-messenger-service/internal/domain"
	"github.com/aniladanir/review-messenger-service/internal/provider"
	contactRepo "github.com/aniladanir/review-messenger-service/internal/repository/contact"
	deliveryRepo "github.com/aniladanir/review-messenger-service/internal/repository/delivery"
	tenantRepo "github.com/aniladanir/review-messenger-service/internal/repository/tenant"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeDeliveries struct {
	mu        sync.Mutex
	records   map[string]*domain.DeliveryRecord
	order     []string
	createErr error
}

var _ deliveryRepo.Repository = (*fakeDeliveries)(nil)

func newFakeDeliveries() *fakeDeliveries {
	return &fakeDeliveries{records: make(map[string]*domain.DeliveryRecord)}
}

func (f *fakeDeliveries) Create(_ context.Context, rec *domain.DeliveryRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	cp := *rec
	f.records[rec.ID] = &cp
	f.order = append(f.order, rec.ID)
	return nil
}

func (f *fakeDeliveries) FindByID(_ context.Context, id string) (*domain.DeliveryRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (f *fakeDeliveries) MarkSent(_ context.Context, id, providerMessageID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[id]
	if !ok {
		return domain.ErrNotFound
	}
	if rec.Status != domain.StatusPending {
		return domain.ErrInvalidTransition
	}
	rec.Status = domain.StatusSent
	rec.ProviderMessageID = &providerMessageID
	return nil
}

func (f *fakeDeliveries) MarkFailed(_ context.Context, id, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[id]
	if !ok {
		return domain.ErrNotFound
	}
	if rec.Status != domain.StatusPending {
		return domain.ErrInvalidTransition
	}
	rec.Status = domain.StatusFailed
	rec.FailureReason = reason
	return nil
}

func (f *fakeDeliveries) ApplyProviderStatus(context.Context, string, domain.DeliveryStatus) (bool, error) {
	return false, errors.New("not implemented")
}

func (f *fakeDeliveries) SetEngagement(context.Context, string, domain.EngagementKind, time.Time) (bool, error) {
	return false, errors.New("not implemented")
}

func (f *fakeDeliveries) TenantsForPhone(context.Context, string) ([]string, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeDeliveries) CountCreatedSince(_ context.Context, tenantID string, since time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, rec := range f.records {
		if rec.TenantID == tenantID && !rec.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (f *fakeDeliveries) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.records)
}

type fakeConsent struct {
	blocked map[string]bool
	err     error
}

func (f *fakeConsent) IsOptedOut(_ context.Context, phone, tenantID string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.blocked[phone+"|"+tenantID], nil
}

type fakePlan struct {
	decision  PlanDecision
	gotCounts []int
}

func (f *fakePlan) CheckCanSend(_ context.Context, _ string, count int) (PlanDecision, error) {
	f.gotCounts = append(f.gotCounts, count)
	return f.decision, nil
}

type fakeTenants struct {
	tenants   map[string]*domain.Tenant
	templates map[string]*domain.Template
}

var _ tenantRepo.Repository = (*fakeTenants)(nil)

func (f *fakeTenants) FindTenant(_ context.Context, id string) (*domain.Tenant, error) {
	t, ok := f.tenants[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return t, nil
}

func (f *fakeTenants) FindTemplate(_ context.Context, tenantID, templateID string) (*domain.Template, error) {
	tpl, ok := f.templates[templateID]
	if !ok || tpl.TenantID != tenantID {
		return nil, domain.ErrNotFound
	}
	return tpl, nil
}

type fakeContacts struct {
	mu    sync.Mutex
	sends map[string]int
	err   error
}

var _ contactRepo.Repository = (*fakeContacts)(nil)

func (f *fakeContacts) RecordSend(_ context.Context, tenantID, phone, _ string, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if f.sends == nil {
		f.sends = make(map[string]int)
	}
	f.sends[tenantID+"|"+phone]++
	return nil
}

type sentMessage struct {
	to, body, callbackURL string
	at                    time.Time
}

type fakeProvider struct {
	mu     sync.Mutex
	sent   []sentMessage
	failTo map[string]error
	onSend func(n int)
}

var _ provider.Sender = (*fakeProvider)(nil)

func (f *fakeProvider) Send(ctx context.Context, to, body, callbackURL string) (string, error) {
	f.mu.Lock()
	f.sent = append(f.sent, sentMessage{to: to, body: body, callbackURL: callbackURL, at: time.Now()})
	n := len(f.sent)
	err := f.failTo[to]
	hook := f.onSend
	f.mu.Unlock()

	if hook != nil {
		hook(n)
	}
	if err != nil {
		return "", err
	}
	// a real transport drops the request once its context is done
	if ctxErr := ctx.Err(); ctxErr != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrProvider, ctxErr)
	}
	return provider.NewMessageSID(), nil
}

func (f *fakeProvider) calls() []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]sentMessage, len(f.sent))
	copy(out, f.sent)
	return out
}

type fixture struct {
	deliveries *fakeDeliveries
	consent    *fakeConsent
	plan       *fakePlan
	contacts   *fakeContacts
	provider   *fakeProvider
	svc        MessageSender
}

func newFixture(t testing.TB, interval time.Duration) *fixture {
	t.Helper()
	return newFixtureWithSender(t, interval, nil)
}

// newFixtureWithSender builds the fixture around sender instead of the fake
// provider when sender is not nil.
func newFixtureWithSender(t testing.TB, interval time.Duration, sender provider.Sender) *fixture {
	t.Helper()

	f := &fixture{
		deliveries: newFakeDeliveries(),
		consent:    &fakeConsent{blocked: map[string]bool{}},
		plan:       &fakePlan{decision: PlanDecision{Allowed: true}},
		contacts:   &fakeContacts{},
		provider:   &fakeProvider{failTo: map[string]error{}},
	}
	tenants := &fakeTenants{
		tenants: map[string]*domain.Tenant{
			"t1": {ID: "t1", DisplayName: "Bright Smiles Dental", MessagingName: "Bright Smiles"},
		},
		templates: map[string]*domain.Template{
			"tpl1": {ID: "tpl1", TenantID: "t1", Body: "Hi {{first_name}}, thanks for visiting {{business_name}}! Leave a review: {{link}}"},
		},
	}

	if sender == nil {
		sender = f.provider
	}

	svc, err := NewMessageSenderService(f.deliveries, f.consent, f.plan, tenants, f.contacts, sender, discardLogger(), Options{
		CallbackURL:     "https://svc.example/v1/webhooks/provider",
		TrackingBaseURL: "https://svc.example/",
		BatchInterval:   interval,
	})
	if err != nil {
		t.Fatalf("NewMessageSenderService() error: %v", err)
	}
	f.svc = svc
	return f
}
