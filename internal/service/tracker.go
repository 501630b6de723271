package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/aniladanir/review-messenger-service/internal/domain"
)

// EngagementStore persists set-once engagement timestamps.
type EngagementStore interface {
	SetEngagement(ctx context.Context, id string, kind domain.EngagementKind, at time.Time) (bool, error)
}

type engagementEvent struct {
	recordID string
	kind     domain.EngagementKind
	at       time.Time
}

// Tracker records recipient engagement without blocking the caller. Events go
// through a bounded queue drained by Run; a full queue drops the event and a
// failed write is logged and forgotten.
type Tracker struct {
	store        EngagementStore
	queue        chan engagementEvent
	logger       *slog.Logger
	writeTimeout time.Duration
	now          func() time.Time
}

func NewTracker(store EngagementStore, logger *slog.Logger, queueSize int) *Tracker {
	if queueSize <= 0 {
		queueSize = 256
	}
	return &Tracker{
		store:        store,
		queue:        make(chan engagementEvent, queueSize),
		logger:       logger,
		writeTimeout: 5 * time.Second,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Track enqueues an engagement event and reports whether it was accepted.
func (t *Tracker) Track(recordID string, kind domain.EngagementKind) bool {
	if _, ok := kind.Column(); !ok || recordID == "" {
		return false
	}

	select {
	case t.queue <- engagementEvent{recordID: recordID, kind: kind, at: t.now()}:
		return true
	default:
		t.logger.Warn("engagement queue full, dropping event", "recordId", recordID, "kind", string(kind))
		return false
	}
}

// Run writes queued events until ctx is done, then drains what is left.
func (t *Tracker) Run(ctx context.Context) {
	for {
		select {
		case ev := <-t.queue:
			t.write(ev)
		case <-ctx.Done():
			for {
				select {
				case ev := <-t.queue:
					t.write(ev)
				default:
					return
				}
			}
		}
	}
}

func (t *Tracker) write(ev engagementEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), t.writeTimeout)
	defer cancel()

	changed, err := t.store.SetEngagement(ctx, ev.recordID, ev.kind, ev.at)
	if err != nil {
		t.logger.Warn("failed to record engagement", "recordId", ev.recordID, "kind", string(ev.kind), "error", err.Error())
		return
	}
	if changed {
		t.logger.Info("engagement recorded", "recordId", ev.recordID, "kind", string(ev.kind))
	}
}
