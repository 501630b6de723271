package domain

import (
	"slices"
	"testing"
)

func TestTransitionSources(t *testing.T) {
	cases := []struct {
		from, to DeliveryStatus
		want     bool
	}{
		{StatusPending, StatusSent, true},
		{StatusPending, StatusFailed, true},
		{StatusSent, StatusDelivered, true},
		{StatusSent, StatusFailed, true},
		{StatusSent, StatusSent, false},
		{StatusSent, StatusPending, false},
		{StatusDelivered, StatusSent, false},
		{StatusDelivered, StatusPending, false},
		{StatusDelivered, StatusFailed, false},
		{StatusFailed, StatusDelivered, false},
		{StatusFailed, StatusSent, false},
		{StatusPending, StatusDelivered, false},
	}

	for _, tc := range cases {
		if got := slices.Contains(TransitionSources(tc.to), tc.from); got != tc.want {
			t.Errorf("%s -> %s allowed = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestTransitionSources_NothingMovesToPending(t *testing.T) {
	if src := TransitionSources(StatusPending); len(src) != 0 {
		t.Fatalf("expected no sources for pending, got %v", src)
	}
}

func TestEngagementKind_Column(t *testing.T) {
	if col, ok := EngagementViewed.Column(); !ok || col != "first_viewed_at" {
		t.Fatalf("unexpected column for viewed: %q %v", col, ok)
	}
	if _, ok := EngagementKind("bogus").Column(); ok {
		t.Fatalf("expected unknown kind to have no column")
	}
}
