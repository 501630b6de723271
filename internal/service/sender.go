package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aniladanir/review-messenger-service/internal/domain"
	"github.com/aniladanir/review-messenger-service/internal/phone"
	"github.com/aniladanir/review-messenger-service/internal/provider"
	contactRepo "github.com/aniladanir/review-messenger-service/internal/repository/contact"
	deliveryRepo "github.com/aniladanir/review-messenger-service/internal/repository/delivery"
	tenantRepo "github.com/aniladanir/review-messenger-service/internal/repository/tenant"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

type MessageSender interface {
	Send(ctx context.Context, req SendRequest) (*domain.DeliveryRecord, error)
	SendBatch(ctx context.Context, req BatchRequest) (*BatchResult, error)
	GetDelivery(ctx context.Context, tenantID, id string) (*domain.DeliveryRecord, error)
}

// ConsentChecker answers whether a tenant may message a phone.
type ConsentChecker interface {
	IsOptedOut(ctx context.Context, phone, tenantID string) (bool, error)
}

type Recipient struct {
	Phone string `json:"phone"`
	Name  string `json:"name"`
	Notes string `json:"notes"`
}

type SendRequest struct {
	TenantID   string
	TemplateID string
	Recipient
}

type BatchRequest struct {
	TenantID   string
	TemplateID string
	Recipients []Recipient
}

type Outcome string

const (
	OutcomeSent          Outcome = "sent"
	OutcomeFailed        Outcome = "failed"
	OutcomeSkippedOptOut Outcome = "skipped_opt_out"
	OutcomeCanceled      Outcome = "canceled"
)

type RecipientResult struct {
	Phone    string  `json:"phone"`
	Outcome  Outcome `json:"outcome"`
	RecordID string  `json:"recordId,omitempty"`
	Error    string  `json:"error,omitempty"`
}

type BatchResult struct {
	Sent          int               `json:"sent"`
	Failed        int               `json:"failed"`
	SkippedOptOut int               `json:"skippedOptOut"`
	Canceled      int               `json:"canceled"`
	Results       []RecipientResult `json:"results"`
}

type Options struct {
	// CallbackURL receives the provider's delivery status callbacks.
	CallbackURL string
	// TrackingBaseURL prefixes the per-record tracking link.
	TrackingBaseURL string
	// BatchInterval is the minimum pause between provider calls in a batch.
	BatchInterval time.Duration
}

type service struct {
	deliveries deliveryRepo.Repository
	consent    ConsentChecker
	plans      PlanChecker
	tenants    tenantRepo.Repository
	contacts   contactRepo.Repository
	provider   provider.Sender
	logger     *slog.Logger
	opts       Options
	now        func() time.Time
}

func NewMessageSenderService(
	deliveries deliveryRepo.Repository,
	consent ConsentChecker,
	plans PlanChecker,
	tenants tenantRepo.Repository,
	contacts contactRepo.Repository,
	sender provider.Sender,
	logger *slog.Logger,
	opts Options,
) (MessageSender, error) {
	if opts.BatchInterval < 0 {
		return nil, fmt.Errorf("batch interval must not be negative: %s", opts.BatchInterval)
	}
	if deliveries == nil || consent == nil || plans == nil || tenants == nil || sender == nil {
		return nil, errors.New("message sender: missing dependency")
	}

	return &service{
		deliveries: deliveries,
		consent:    consent,
		plans:      plans,
		tenants:    tenants,
		contacts:   contacts,
		provider:   sender,
		logger:     logger,
		opts:       opts,
		now:        func() time.Time { return time.Now().UTC() },
	}, nil
}

// Send delivers one templated message. Consent and the plan ceiling are checked
// before any record is created.
func (s *service) Send(ctx context.Context, req SendRequest) (*domain.DeliveryRecord, error) {
	p, err := phone.Parse(req.Phone)
	if err != nil {
		return nil, fmt.Errorf("%w: phone: %v", domain.ErrValidation, err)
	}

	tenant, tpl, err := s.loadTemplate(ctx, req.TenantID, req.TemplateID)
	if err != nil {
		return nil, err
	}

	blocked, err := s.consent.IsOptedOut(ctx, p, tenant.ID)
	if err != nil {
		return nil, err
	}
	if blocked {
		return nil, domain.ErrConsentViolation
	}

	if err := s.checkPlan(ctx, tenant.ID, 1); err != nil {
		return nil, err
	}

	return s.deliver(ctx, tenant, tpl, p, req.Recipient)
}

// SendBatch sends one template to recipients strictly in order, pausing
// BatchInterval between provider calls. Opted-out recipients are skipped and a
// failure for one recipient does not stop the rest.
//
// When ctx is canceled the remaining recipients are not attempted and are
// reported as canceled; messages already handed to the provider stay sent.
func (s *service) SendBatch(ctx context.Context, req BatchRequest) (*BatchResult, error) {
	if len(req.Recipients) == 0 {
		return nil, fmt.Errorf("%w: no recipients", domain.ErrValidation)
	}

	tenant, tpl, err := s.loadTemplate(ctx, req.TenantID, req.TemplateID)
	if err != nil {
		return nil, err
	}

	if err := s.checkPlan(ctx, tenant.ID, len(req.Recipients)); err != nil {
		return nil, err
	}

	batchLogger := s.logger.With(slog.String("tenantId", tenant.ID), slog.Int("recipients", len(req.Recipients)))

	interval := rate.Inf
	if s.opts.BatchInterval > 0 {
		interval = rate.Every(s.opts.BatchInterval)
	}
	pacer := rate.NewLimiter(interval, 1)

	result := &BatchResult{Results: make([]RecipientResult, 0, len(req.Recipients))}
	for i, rcpt := range req.Recipients {
		if ctx.Err() != nil {
			result.cancelRest(req.Recipients[i:])
			break
		}

		res := RecipientResult{Phone: rcpt.Phone}

		p, err := phone.Parse(rcpt.Phone)
		if err != nil {
			res.Outcome, res.Error = OutcomeFailed, fmt.Sprintf("%v: phone: %v", domain.ErrValidation, err)
			result.add(res)
			continue
		}
		res.Phone = p

		blocked, err := s.consent.IsOptedOut(ctx, p, tenant.ID)
		if err != nil {
			res.Outcome, res.Error = OutcomeFailed, err.Error()
			result.add(res)
			continue
		}
		if blocked {
			res.Outcome = OutcomeSkippedOptOut
			result.add(res)
			continue
		}

		if err := pace(ctx, pacer); err != nil {
			result.cancelRest(req.Recipients[i:])
			break
		}

		rec, err := s.deliver(ctx, tenant, tpl, p, rcpt)
		if rec != nil {
			res.RecordID = rec.ID
		}
		if err != nil {
			res.Outcome, res.Error = OutcomeFailed, err.Error()
		} else {
			res.Outcome = OutcomeSent
		}
		result.add(res)
	}

	batchLogger.Info("batch finished",
		"sent", result.Sent,
		"failed", result.Failed,
		"skippedOptOut", result.SkippedOptOut,
		"canceled", result.Canceled)

	return result, nil
}

// GetDelivery returns a record owned by tenantID
func (s *service) GetDelivery(ctx context.Context, tenantID, id string) (*domain.DeliveryRecord, error) {
	rec, err := s.deliveries.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	if rec.TenantID != tenantID {
		return nil, domain.ErrNotFound
	}
	return rec, nil
}

func (s *service) loadTemplate(ctx context.Context, tenantID, templateID string) (*domain.Tenant, *domain.Template, error) {
	if strings.TrimSpace(tenantID) == "" {
		return nil, nil, fmt.Errorf("%w: tenant is required", domain.ErrValidation)
	}
	if strings.TrimSpace(templateID) == "" {
		return nil, nil, fmt.Errorf("%w: template is required", domain.ErrValidation)
	}

	tenant, err := s.tenants.FindTenant(ctx, tenantID)
	if err != nil {
		return nil, nil, lookupErr("tenant", err)
	}
	tpl, err := s.tenants.FindTemplate(ctx, tenantID, templateID)
	if err != nil {
		return nil, nil, lookupErr("template", err)
	}
	return tenant, tpl, nil
}

func lookupErr(what string, err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("%w: unknown %s", domain.ErrValidation, what)
	}
	return fmt.Errorf("%w: load %s: %v", domain.ErrPersistence, what, err)
}

func (s *service) checkPlan(ctx context.Context, tenantID string, count int) error {
	dec, err := s.plans.CheckCanSend(ctx, tenantID, count)
	if err != nil {
		return fmt.Errorf("%w: plan check: %v", domain.ErrPersistence, err)
	}
	if !dec.Allowed {
		return fmt.Errorf("%w: %s", domain.ErrPlanLimit, dec.Reason)
	}
	return nil
}

// deliver creates the pending record, hands the message to the provider and
// records the outcome. On provider rejection the failed record is returned
// together with an error wrapping domain.ErrProvider.
func (s *service) deliver(ctx context.Context, tenant *domain.Tenant, tpl *domain.Template, p string, rcpt Recipient) (*domain.DeliveryRecord, error) {
	rec := &domain.DeliveryRecord{
		ID:            uuid.NewString(),
		TenantID:      tenant.ID,
		Phone:         p,
		RecipientName: strings.TrimSpace(rcpt.Name),
		Notes:         rcpt.Notes,
		Status:        domain.StatusPending,
		CreatedAt:     s.now(),
	}
	if err := s.deliveries.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("%w: create delivery record: %v", domain.ErrPersistence, err)
	}

	recLogger := s.logger.With(slog.String("recordId", rec.ID), slog.String("tenantId", tenant.ID))

	body := RenderMessage(tpl.Body, rec.RecipientName, tenant.SenderName(), s.trackingLink(rec.ID))

	// an accepted send must be recorded with its provider id, so the call is
	// not aborted when the caller goes away; the client timeout still bounds it
	providerID, sendErr := s.provider.Send(context.WithoutCancel(ctx), p, body, s.opts.CallbackURL)
	if sendErr != nil {
		recLogger.Error("provider send failed", "error", sendErr.Error())
		rec.Status = domain.StatusFailed
		rec.FailureReason = sendErr.Error()
		// the record must reflect the failure even if the caller went away
		if err := s.deliveries.MarkFailed(context.WithoutCancel(ctx), rec.ID, sendErr.Error()); err != nil {
			recLogger.Error("failed to mark record failed", "error", err.Error())
			return rec, fmt.Errorf("%w: mark failed: %v (send error: %v)", domain.ErrPersistence, err, sendErr)
		}
		if !errors.Is(sendErr, domain.ErrProvider) {
			sendErr = fmt.Errorf("%w: %v", domain.ErrProvider, sendErr)
		}
		return rec, sendErr
	}

	rec.Status = domain.StatusSent
	rec.ProviderMessageID = &providerID
	if err := s.deliveries.MarkSent(context.WithoutCancel(ctx), rec.ID, providerID); err != nil {
		// the provider has the message; surface the mismatch instead of dropping it
		recLogger.Error("failed to mark record sent", "providerMessageId", providerID, "error", err.Error())
		return rec, fmt.Errorf("%w: mark sent: %v", domain.ErrPersistence, err)
	}
	recLogger.Info("message sent", "providerMessageId", providerID)

	if s.contacts != nil {
		if err := s.contacts.RecordSend(context.WithoutCancel(ctx), tenant.ID, p, rec.RecipientName, rec.CreatedAt); err != nil {
			recLogger.Warn("failed to update contact counters", "error", err.Error())
		}
	}

	return rec, nil
}

// pace blocks until the pacer grants the next provider call or ctx is done.
// Unlike rate.Limiter.Wait it does not give up early when the wait would
// outlast the ctx deadline.
func pace(ctx context.Context, pacer *rate.Limiter) error {
	r := pacer.Reserve()
	delay := r.Delay()
	if delay <= 0 {
		return nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		r.Cancel()
		return ctx.Err()
	}
}

func (s *service) trackingLink(recordID string) string {
	return strings.TrimRight(s.opts.TrackingBaseURL, "/") + "/r/" + recordID
}

func (r *BatchResult) add(res RecipientResult) {
	switch res.Outcome {
	case OutcomeSent:
		r.Sent++
	case OutcomeFailed:
		r.Failed++
	case OutcomeSkippedOptOut:
		r.SkippedOptOut++
	case OutcomeCanceled:
		r.Canceled++
	}
	r.Results = append(r.Results, res)
}

func (r *BatchResult) cancelRest(rest []Recipient) {
	for _, rcpt := range rest {
		r.add(RecipientResult{Phone: phone.Normalize(rcpt.Phone), Outcome: OutcomeCanceled})
	}
}
