package cache

import (
	"context"
	"testing"
	"time"

	"github.com/mavazi-pos/internal/models"
)

func TestDisabledCacheIsPassThrough(t *testing.T) {
	UseClient(nil, "")
	ctx := context.Background()

	first, err := MarkOnce(ctx, "webhook", "evt-1", time.Minute)
	if err != nil || !first {
		t.Fatalf("disabled MarkOnce want true got %v err=%v", first, err)
	}
	again, err := MarkOnce(ctx, "webhook", "evt-1", time.Minute)
	if err != nil || !again {
		t.Fatalf("disabled MarkOnce should not dedupe: %v err=%v", again, err)
	}
	if err := ForgetOnce(ctx, "webhook", "evt-1"); err != nil {
		t.Fatalf("disabled ForgetOnce failed: %v", err)
	}

	state, err := GetStaffAuthState(ctx, 3)
	if err != nil || state != nil {
		t.Fatalf("disabled GetStaffAuthState want nil got %+v err=%v", state, err)
	}
	if err := SetStaffAuthState(ctx, &StaffAuthState{StaffID: 3}); err != nil {
		t.Fatalf("disabled SetStaffAuthState failed: %v", err)
	}
}

func TestBuildKeyPrefixesAndTrims(t *testing.T) {
	UseClient(nil, " shop ")
	t.Cleanup(func() { UseClient(nil, "") })
	if got := BuildKey(" dedup:x "); got != "shop:dedup:x" {
		t.Fatalf("unexpected key: %s", got)
	}
	if got := BuildKey(""); got != "shop" {
		t.Fatalf("unexpected empty key: %s", got)
	}
	if got := dedupKey(" webhook ", " evt "); got != "dedup:webhook:evt" {
		t.Fatalf("unexpected dedup key: %s", got)
	}
}

func TestBuildStaffAuthState(t *testing.T) {
	staff := &models.Staff{ID: 9, Role: "cashier", IsActive: true, TokenVersion: 4}
	state := BuildStaffAuthState(staff)
	if state.StaffID != 9 || state.Role != "cashier" || !state.IsActive || state.TokenVersion != 4 {
		t.Fatalf("unexpected state: %+v", state)
	}
	if BuildStaffAuthState(nil) != nil {
		t.Fatalf("nil staff should build nil state")
	}
}
