package webhook

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/aniladanir/review-messenger-service/internal/cache"
	"github.com/aniladanir/review-messenger-service/internal/consent"
	"github.com/aniladanir/review-messenger-service/internal/domain"
	"github.com/aniladanir/review-messenger-service/internal/provider"
)

const (
	seenKeyPrefix = "webhook:seen:"
	seenTTL       = 24 * time.Hour
)

type InboundHandler interface {
	HandleInbound(ctx context.Context, rawPhone, body string) (consent.InboundResult, error)
}

type StatusApplier interface {
	ApplyProviderStatus(ctx context.Context, providerMessageID string, status domain.DeliveryStatus) (bool, error)
}

type Dispatcher struct {
	inbound   InboundHandler
	statuses  StatusApplier
	seen      cache.Cache
	authToken string
	logger    *slog.Logger
}

// NewDispatcher builds a dispatcher. An empty authToken disables signature
// checks and must only be used when no provider credentials exist. seen may be nil.
func NewDispatcher(inbound InboundHandler, statuses StatusApplier, seen cache.Cache, authToken string, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		inbound:   inbound,
		statuses:  statuses,
		seen:      seen,
		authToken: authToken,
		logger:    logger,
	}
}

// Verify checks the provider signature over fullURL and the form parameters.
func (d *Dispatcher) Verify(fullURL string, form url.Values, signature string) error {
	if d.authToken == "" {
		return nil
	}
	if !provider.ValidSignature(d.authToken, fullURL, form, signature) {
		d.logger.Warn("security: rejected provider callback with invalid signature",
			"url", fullURL,
			"signaturePresent", signature != "")
		return domain.ErrSignatureInvalid
	}
	return nil
}

// Handle verifies and processes one callback. Only a signature failure is
// returned; processing failures are logged so the provider still gets its acknowledgment.
func (d *Dispatcher) Handle(ctx context.Context, fullURL string, form url.Values, signature string) error {
	if err := d.Verify(fullURL, form, signature); err != nil {
		return err
	}

	ev := Classify(form)
	if err := d.Dispatch(ctx, ev); err != nil {
		d.logger.Error("failed to process provider callback", "event", ev.eventKind(), "error", err.Error())
	}
	return nil
}

// Dispatch applies a verified event. Every path is safe to repeat.
func (d *Dispatcher) Dispatch(ctx context.Context, ev Event) error {
	switch e := ev.(type) {
	case StatusCallback:
		return d.once(ctx, "status:"+e.MessageSID+":"+e.Status, e.MessageSID, func() (bool, error) {
			return d.applyStatus(ctx, e)
		})
	case InboundMessage:
		return d.once(ctx, "inbound:"+e.MessageSID, e.MessageSID, func() (bool, error) {
			return true, d.applyInbound(ctx, e)
		})
	case Unrecognized:
		d.logger.Info("ignoring unrecognized provider callback", "fields", e.Fields)
		return nil
	default:
		return fmt.Errorf("unsupported event %T", ev)
	}
}

// applyStatus reports whether the callback changed a record.
func (d *Dispatcher) applyStatus(ctx context.Context, e StatusCallback) (bool, error) {
	status, ok := MapStatus(e.Status)
	if !ok {
		d.logger.Info("ignoring unknown provider status", "messageSid", e.MessageSID, "status", e.Status)
		return false, nil
	}
	if e.MessageSID == "" {
		d.logger.Info("status callback without message sid", "status", e.Status)
		return false, nil
	}

	changed, err := d.statuses.ApplyProviderStatus(ctx, e.MessageSID, status)
	if err != nil {
		return false, fmt.Errorf("%w: apply status %s to %s: %v", domain.ErrPersistence, status, e.MessageSID, err)
	}
	if changed {
		d.logger.Info("delivery status updated", "messageSid", e.MessageSID, "status", string(status), "errorCode", e.ErrorCode)
	} else {
		d.logger.Debug("status callback left record unchanged", "messageSid", e.MessageSID, "status", e.Status)
	}
	return changed, nil
}

func (d *Dispatcher) applyInbound(ctx context.Context, e InboundMessage) error {
	res, err := d.inbound.HandleInbound(ctx, e.From, e.Body)
	if errors.Is(err, domain.ErrValidation) {
		d.logger.Info("inbound message from unusable sender", "from", e.From)
		return nil
	}
	if res.Keyword != domain.KeywordNone {
		d.logger.Info("consent keyword received",
			"phone", res.Phone,
			"keyword", res.Keyword.String(),
			"tenants", res.Tenants)
	}
	return err
}

// once runs fn unless the same event was already applied. The marker is kept
// only when fn reports that it applied the event; after a failure or a no-op a
// redelivery is processed again, since a status callback can arrive before the
// send that it belongs to has been recorded.
func (d *Dispatcher) once(ctx context.Context, key, sid string, fn func() (bool, error)) error {
	if d.seen == nil || sid == "" {
		_, err := fn()
		return err
	}

	key = seenKeyPrefix + key
	fresh, err := d.seen.SetNX(ctx, key, "1", seenTTL)
	if err != nil {
		d.logger.Warn("callback replay cache unavailable", "error", err.Error())
		_, err := fn()
		return err
	}
	if !fresh {
		d.logger.Info("duplicate provider callback", "key", key)
		return nil
	}

	applied, err := fn()
	if err != nil || !applied {
		if delErr := d.seen.Delete(context.WithoutCancel(ctx), key); delErr != nil {
			d.logger.Warn("failed to clear callback replay marker", "key", key, "error", delErr.Error())
		}
	}
	return err
}
