package store

import (
	"context"
	"testing"

	"github.com/pulsehq/socialpulse/internal/apperr"
)

func TestSignInAnonymously(t *testing.T) {
	h := newIdentityHub()
	id, err := h.SignInAnonymously(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !id.Anonymous || id.UID == "" {
		t.Errorf("unexpected identity: %+v", id)
	}
}

func TestSignInWithToken_Deterministic(t *testing.T) {
	h := newIdentityHub()
	a, err := h.SignInWithToken(context.Background(), "session-token")
	if err != nil {
		t.Fatal(err)
	}
	b, _ := h.SignInWithToken(context.Background(), "session-token")
	if a.UID != b.UID {
		t.Errorf("same token must map to same uid: %q vs %q", a.UID, b.UID)
	}
	if a.Anonymous {
		t.Error("token identity must not be anonymous")
	}
}

func TestSignInWithToken_Empty(t *testing.T) {
	h := newIdentityHub()
	_, err := h.SignInWithToken(context.Background(), "")
	if !apperr.IsAuth(err) {
		t.Errorf("expected AuthError, got %v", err)
	}
}

func TestOnIdentityChange_FiresForLateListener(t *testing.T) {
	h := newIdentityHub()
	if _, err := h.SignInAnonymously(context.Background()); err != nil {
		t.Fatal(err)
	}

	var got *Identity
	cancel := h.OnIdentityChange(func(id Identity) { got = &id })
	defer cancel()

	if got == nil {
		t.Fatal("listener registered after sign-in must hear current identity")
	}
}

func TestOnIdentityChange_CancelStopsDelivery(t *testing.T) {
	h := newIdentityHub()
	calls := 0
	cancel := h.OnIdentityChange(func(Identity) { calls++ })
	cancel()
	if _, err := h.SignInAnonymously(context.Background()); err != nil {
		t.Fatal(err)
	}
	if calls != 0 {
		t.Errorf("cancelled listener heard %d changes", calls)
	}
}
