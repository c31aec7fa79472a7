package workflow

import (
	"context"
	"errors"
	"testing"

	"github.com/pulsehq/socialpulse/internal/apperr"
	"github.com/pulsehq/socialpulse/internal/models"
	"github.com/pulsehq/socialpulse/internal/store"
	"github.com/pulsehq/socialpulse/internal/testutil"
)

func TestCreatePost_DefaultsToDraft(t *testing.T) {
	fake := testutil.NewFakeStore()
	svc := NewService(fake, nil)

	id, err := svc.CreatePost(context.Background(), Draft{
		Client:   "Lumina Tech",
		Platform: models.PlatformInstagram,
		Preview:  "x",
		Date:     "2025-12-25",
	})
	if err != nil {
		t.Fatal(err)
	}
	if id == "" {
		t.Fatal("expected assigned id")
	}

	writes := fake.WritesTo(store.CollectionPosts)
	if len(writes) != 1 {
		t.Fatalf("writes = %d", len(writes))
	}
	if writes[0].Fields["status"] != models.StatusDraft {
		t.Errorf("status = %v, want Draft", writes[0].Fields["status"])
	}
	if writes[0].Fields["image"] == "" {
		t.Error("expected default image")
	}
}

func TestCreatePost_ExplicitStatusKept(t *testing.T) {
	fake := testutil.NewFakeStore()
	svc := NewService(fake, nil)

	if _, err := svc.CreatePost(context.Background(), Draft{
		Client:   "Vibe Wear",
		Platform: models.PlatformTikTok,
		Status:   models.StatusPendingApproval,
	}); err != nil {
		t.Fatal(err)
	}
	w := fake.WritesTo(store.CollectionPosts)[0]
	if w.Fields["status"] != models.StatusPendingApproval {
		t.Errorf("status = %v", w.Fields["status"])
	}
}

func TestCreatePost_EmptyClientRejected(t *testing.T) {
	fake := testutil.NewFakeStore()
	svc := NewService(fake, nil)

	_, err := svc.CreatePost(context.Background(), Draft{Platform: models.PlatformInstagram})
	if !apperr.IsValidation(err) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	// Rejected before any write: no partial effect.
	if n := len(fake.Writes()); n != 0 {
		t.Errorf("writes = %d, want 0", n)
	}
}

func TestCreatePost_UnsupportedPlatformRejected(t *testing.T) {
	fake := testutil.NewFakeStore()
	svc := NewService(fake, nil)

	_, err := svc.CreatePost(context.Background(), Draft{Client: "Eco Eats", Platform: "Twitter"})
	if !apperr.IsValidation(err) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestCreatePost_AdapterFailureSurfaced(t *testing.T) {
	fake := testutil.NewFakeStore()
	fake.FailNext("create", errors.New("backend down"))
	svc := NewService(fake, nil)

	_, err := svc.CreatePost(context.Background(), Draft{Client: "Eco Eats", Platform: models.PlatformLinkedIn})
	if !apperr.IsAdapter(err) {
		t.Fatalf("expected AdapterError, got %v", err)
	}
}

// The engine enforces the approval graph instead of the permissive
// overwrite-anything behavior: that looseness was a gap, not a contract.
func TestSetStatus_EnforcesApprovalGraph(t *testing.T) {
	fake := testutil.NewFakeStore()
	statuses := map[string]string{"p1": models.StatusDraft}
	svc := NewService(fake, func(id string) (string, bool) {
		s, ok := statuses[id]
		return s, ok
	})
	ctx := context.Background()

	if err := svc.SetStatus(ctx, "p1", models.StatusApproved); !errors.Is(err, apperr.ErrInvalidTransition) {
		t.Errorf("Draft → Approved must be rejected, got %v", err)
	}
	if n := len(fake.Writes()); n != 0 {
		t.Errorf("rejected transition wrote %d times", n)
	}
}

func TestSetStatus_ValidStepWrites(t *testing.T) {
	fake := testutil.NewFakeStore()
	fake.Push(store.CollectionPosts, store.Snapshot{
		{ID: "p1", Fields: map[string]any{"status": models.StatusPendingApproval}},
	})
	svc := NewService(fake, func(string) (string, bool) {
		return models.StatusPendingApproval, true
	})

	if err := svc.SetStatus(context.Background(), "p1", models.StatusScheduled); err != nil {
		t.Fatal(err)
	}
	writes := fake.WritesTo(store.CollectionPosts)
	if len(writes) != 1 || writes[0].Op != "update" {
		t.Fatalf("writes = %+v", writes)
	}
	if writes[0].Fields["status"] != models.StatusScheduled {
		t.Errorf("status = %v", writes[0].Fields["status"])
	}
}

func TestSetStatus_UnknownPostWritesUnchecked(t *testing.T) {
	// No read-your-write guarantee: a post missing from the snapshot may
	// still be written (eventual-consistency fallback).
	fake := testutil.NewFakeStore()
	fake.Push(store.CollectionPosts, store.Snapshot{
		{ID: "p-new", Fields: map[string]any{"status": models.StatusDraft}},
	})
	svc := NewService(fake, func(string) (string, bool) { return "", false })

	if err := svc.SetStatus(context.Background(), "p-new", models.StatusApproved); err != nil {
		t.Fatalf("unknown post should write unchecked, got %v", err)
	}
}

func TestSetStatus_UnknownStatusValue(t *testing.T) {
	fake := testutil.NewFakeStore()
	svc := NewService(fake, nil)
	err := svc.SetStatus(context.Background(), "p1", "Published")
	if !apperr.IsValidation(err) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestSetStatus_MissingPost(t *testing.T) {
	fake := testutil.NewFakeStore()
	svc := NewService(fake, nil)
	err := svc.SetStatus(context.Background(), "ghost", models.StatusDraft)
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
