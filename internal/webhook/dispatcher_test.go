package webhook

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/url"
	"testing"
	"time"

	"github.com/aniladanir/review-messenger-service/internal/cache/memory"
	"github.com/aniladanir/review-messenger-service/internal/consent"
	"github.com/aniladanir/review-messenger-service/internal/domain"
	"github.com/aniladanir/review-messenger-service/internal/persistant/testdb"
	"github.com/aniladanir/review-messenger-service/internal/provider"
	consentRepo "github.com/aniladanir/review-messenger-service/internal/repository/consent"
	deliveryRepo "github.com/aniladanir/review-messenger-service/internal/repository/delivery"
	"github.com/google/uuid"
)

const (
	testToken = "secret-token"
	testURL   = "https://svc.example/v1/webhooks/provider"
)

type harness struct {
	deliveries deliveryRepo.Repository
	registry   *consent.Registry
	dispatcher *Dispatcher
}

func newHarness(t *testing.T, authToken string) *harness {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	db := testdb.Open(t, &domain.DeliveryRecord{}, &domain.ConsentRecord{})
	deliveries := deliveryRepo.NewDeliveryRepository(db)
	registry := consent.NewRegistry(consentRepo.NewConsentRepository(db), deliveries, logger)

	return &harness{
		deliveries: deliveries,
		registry:   registry,
		dispatcher: NewDispatcher(registry, deliveries, memory.NewMemoryCache(), authToken, logger),
	}
}

// sentRecord stores a record already accepted by the provider under sid.
func (h *harness) sentRecord(t *testing.T, tenantID, phone, sid string) string {
	t.Helper()
	ctx := context.Background()

	rec := &domain.DeliveryRecord{
		ID:        uuid.NewString(),
		TenantID:  tenantID,
		Phone:     phone,
		Status:    domain.StatusPending,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.deliveries.Create(ctx, rec); err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if err := h.deliveries.MarkSent(ctx, rec.ID, sid); err != nil {
		t.Fatalf("MarkSent() error: %v", err)
	}
	return rec.ID
}

func (h *harness) status(t *testing.T, id string) domain.DeliveryStatus {
	t.Helper()
	rec, err := h.deliveries.FindByID(context.Background(), id)
	if err != nil {
		t.Fatalf("FindByID() error: %v", err)
	}
	return rec.Status
}

func statusForm(sid, status string) url.Values {
	return url.Values{"MessageSid": {sid}, "MessageStatus": {status}}
}

func (h *harness) post(t *testing.T, form url.Values) {
	t.Helper()
	sig := provider.ComputeSignature(testToken, testURL, form)
	if err := h.dispatcher.Handle(context.Background(), testURL, form, sig); err != nil {
		t.Fatalf("Handle() error: %v", err)
	}
}

func TestDeliveredNeverRegresses(t *testing.T) {
	h := newHarness(t, testToken)
	id := h.sentRecord(t, "t1", "+15550001111", "SM1")

	for _, status := range []string{"delivered", "sent", "queued", "delivered", "sent"} {
		h.post(t, statusForm("SM1", status))
	}

	if got := h.status(t, id); got != domain.StatusDelivered {
		t.Fatalf("status = %s, want delivered", got)
	}
}

func TestFailedIsSticky(t *testing.T) {
	h := newHarness(t, testToken)
	id := h.sentRecord(t, "t1", "+15550001111", "SM1")

	h.post(t, statusForm("SM1", "undelivered"))
	h.post(t, statusForm("SM1", "delivered"))

	if got := h.status(t, id); got != domain.StatusFailed {
		t.Fatalf("status = %s, want failed", got)
	}
}

func TestStatusNoOps(t *testing.T) {
	h := newHarness(t, testToken)
	id := h.sentRecord(t, "t1", "+15550001111", "SM1")

	h.post(t, statusForm("SM1", "accepted"))
	h.post(t, statusForm("SM-unknown", "delivered"))

	if got := h.status(t, id); got != domain.StatusSent {
		t.Fatalf("status = %s, want sent", got)
	}
}

func TestStatusBeforeSendRecordedAppliesOnRedelivery(t *testing.T) {
	h := newHarness(t, testToken)
	ctx := context.Background()

	rec := &domain.DeliveryRecord{
		ID:        uuid.NewString(),
		TenantID:  "t1",
		Phone:     "+15550001111",
		Status:    domain.StatusPending,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.deliveries.Create(ctx, rec); err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	// the callback overtakes MarkSent and matches nothing
	h.post(t, statusForm("SM1", "delivered"))
	if got := h.status(t, rec.ID); got != domain.StatusPending {
		t.Fatalf("status = %s, want pending", got)
	}

	if err := h.deliveries.MarkSent(ctx, rec.ID, "SM1"); err != nil {
		t.Fatalf("MarkSent() error: %v", err)
	}
	h.post(t, statusForm("SM1", "delivered"))

	if got := h.status(t, rec.ID); got != domain.StatusDelivered {
		t.Fatalf("status after redelivery = %s, want delivered", got)
	}
}

func TestInboundStopSilencesEveryTenantThatSent(t *testing.T) {
	h := newHarness(t, testToken)
	const p = "+15550001111"
	h.sentRecord(t, "tenant-a", p, "SM1")
	h.sentRecord(t, "tenant-b", p, "SM2")
	h.sentRecord(t, "tenant-c", "+15559990000", "SM3")

	h.post(t, url.Values{"MessageSid": {"SMin1"}, "From": {"(555) 000-1111"}, "Body": {" Stop "}})

	ctx := context.Background()
	for tenant, want := range map[string]bool{"tenant-a": true, "tenant-b": true, "tenant-c": false} {
		got, err := h.registry.IsOptedOut(ctx, p, tenant)
		if err != nil {
			t.Fatalf("IsOptedOut() error: %v", err)
		}
		if got != want {
			t.Errorf("opted out for %s = %v, want %v", tenant, got, want)
		}
	}

	h.post(t, url.Values{"MessageSid": {"SMin2"}, "From": {p}, "Body": {"START"}})
	if got, _ := h.registry.IsOptedOut(ctx, p, "tenant-a"); got {
		t.Error("opt-in should lift the block")
	}
}

func TestInvalidSignatureRejectedWithoutMutation(t *testing.T) {
	h := newHarness(t, testToken)
	id := h.sentRecord(t, "t1", "+15550001111", "SM1")

	form := statusForm("SM1", "delivered")
	for _, sig := range []string{"", "bm90LWEtc2lnbmF0dXJl", provider.ComputeSignature("wrong-token", testURL, form)} {
		err := h.dispatcher.Handle(context.Background(), testURL, form, sig)
		if !errors.Is(err, domain.ErrSignatureInvalid) {
			t.Fatalf("Handle(sig=%q) err = %v, want ErrSignatureInvalid", sig, err)
		}
	}

	// signature covers the URL too
	sig := provider.ComputeSignature(testToken, "https://other.example/hook", form)
	if err := h.dispatcher.Handle(context.Background(), testURL, form, sig); !errors.Is(err, domain.ErrSignatureInvalid) {
		t.Fatalf("err = %v, want ErrSignatureInvalid", err)
	}

	if got := h.status(t, id); got != domain.StatusSent {
		t.Fatalf("status = %s, want sent", got)
	}
}

func TestOfflineModeSkipsVerification(t *testing.T) {
	h := newHarness(t, "")
	id := h.sentRecord(t, "t1", "+15550001111", "SM1")

	if err := h.dispatcher.Handle(context.Background(), testURL, statusForm("SM1", "delivered"), ""); err != nil {
		t.Fatalf("Handle() error: %v", err)
	}
	if got := h.status(t, id); got != domain.StatusDelivered {
		t.Fatalf("status = %s, want delivered", got)
	}
}

type countingApplier struct {
	calls     int
	errs      []error
	unchanged int
}

func (c *countingApplier) ApplyProviderStatus(context.Context, string, domain.DeliveryStatus) (bool, error) {
	c.calls++
	if len(c.errs) > 0 {
		err := c.errs[0]
		c.errs = c.errs[1:]
		return false, err
	}
	if c.unchanged > 0 {
		c.unchanged--
		return false, nil
	}
	return true, nil
}

func TestDispatchShortCircuitsReplays(t *testing.T) {
	applier := &countingApplier{}
	d := NewDispatcher(nil, applier, memory.NewMemoryCache(), "", slog.New(slog.NewTextHandler(io.Discard, nil)))
	ev := StatusCallback{MessageSID: "SM1", Status: "delivered"}

	for range 3 {
		if err := d.Dispatch(context.Background(), ev); err != nil {
			t.Fatalf("Dispatch() error: %v", err)
		}
	}
	if applier.calls != 1 {
		t.Errorf("applier calls = %d, want 1", applier.calls)
	}

	// a different status for the same message is a distinct event
	if err := d.Dispatch(context.Background(), StatusCallback{MessageSID: "SM1", Status: "failed"}); err != nil {
		t.Fatalf("Dispatch() error: %v", err)
	}
	if applier.calls != 2 {
		t.Errorf("applier calls = %d, want 2", applier.calls)
	}
}

func TestDispatchRetriesAfterNoOp(t *testing.T) {
	applier := &countingApplier{unchanged: 1}
	d := NewDispatcher(nil, applier, memory.NewMemoryCache(), "", slog.New(slog.NewTextHandler(io.Discard, nil)))
	ev := StatusCallback{MessageSID: "SM1", Status: "delivered"}

	for range 3 {
		if err := d.Dispatch(context.Background(), ev); err != nil {
			t.Fatalf("Dispatch() error: %v", err)
		}
	}
	// the first call changed nothing, the second applied, the third is a replay
	if applier.calls != 2 {
		t.Errorf("applier calls = %d, want 2", applier.calls)
	}
}

func TestDispatchRetriesAfterFailure(t *testing.T) {
	applier := &countingApplier{errs: []error{errors.New("db down")}}
	d := NewDispatcher(nil, applier, memory.NewMemoryCache(), "", slog.New(slog.NewTextHandler(io.Discard, nil)))
	ev := StatusCallback{MessageSID: "SM1", Status: "delivered"}

	if err := d.Dispatch(context.Background(), ev); !errors.Is(err, domain.ErrPersistence) {
		t.Fatalf("err = %v, want ErrPersistence", err)
	}
	if err := d.Dispatch(context.Background(), ev); err != nil {
		t.Fatalf("Dispatch() error on redelivery: %v", err)
	}
	if applier.calls != 2 {
		t.Errorf("applier calls = %d, want 2", applier.calls)
	}
}

func TestHandleAcksProcessingFailures(t *testing.T) {
	applier := &countingApplier{errs: []error{errors.New("db down")}}
	d := NewDispatcher(nil, applier, nil, testToken, slog.New(slog.NewTextHandler(io.Discard, nil)))
	form := statusForm("SM1", "delivered")

	if err := d.Handle(context.Background(), testURL, form, provider.ComputeSignature(testToken, testURL, form)); err != nil {
		t.Fatalf("Handle() = %v, want nil so the provider is acknowledged", err)
	}
}
