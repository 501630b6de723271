package repository

import (
	"context"
	"testing"

	"github.com/aniladanir/review-messenger-service/internal/domain"
	"github.com/aniladanir/review-messenger-service/internal/persistant/testdb"
)

func TestConsentRepository_InsertDeleteIdempotent(t *testing.T) {
	r := NewConsentRepository(testdb.Open(t, &domain.ConsentRecord{}))
	ctx := context.Background()
	const phone = "+15551234567"

	blocked, err := r.Exists(ctx, phone, "t1")
	if err != nil {
		t.Fatalf("Exists() error: %v", err)
	}
	if blocked {
		t.Fatalf("expected no record initially")
	}

	created, err := r.Insert(ctx, phone, "t1")
	if err != nil || !created {
		t.Fatalf("expected first Insert to create, created=%v err=%v", created, err)
	}
	created, err = r.Insert(ctx, phone, "t1")
	if err != nil {
		t.Fatalf("second Insert() error: %v", err)
	}
	if created {
		t.Fatalf("expected second Insert to be a no-op")
	}

	if blocked, _ := r.Exists(ctx, phone, "t1"); !blocked {
		t.Fatalf("expected phone blocked for t1")
	}
	if blocked, _ := r.Exists(ctx, phone, "t2"); blocked {
		t.Fatalf("expected phone allowed for t2")
	}

	removed, err := r.Delete(ctx, phone, "t1")
	if err != nil || !removed {
		t.Fatalf("expected Delete to remove, removed=%v err=%v", removed, err)
	}
	removed, err = r.Delete(ctx, phone, "t1")
	if err != nil {
		t.Fatalf("second Delete() error: %v", err)
	}
	if removed {
		t.Fatalf("expected second Delete to be a no-op")
	}
	if blocked, _ := r.Exists(ctx, phone, "t1"); blocked {
		t.Fatalf("expected phone allowed after delete")
	}
}
