package store

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/pulsehq/socialpulse/internal/apperr"
	"github.com/pulsehq/socialpulse/internal/checksum"
)

var errStoreClosed = errors.New("store closed")

// identityHub implements the IdentityProvider side shared by both reference
// adapters. Anonymous sign-ins mint a fresh uid; token sign-ins derive a
// stable uid from the token so the same token always maps to the same user.
type identityHub struct {
	mu        sync.Mutex
	current   *Identity
	nextCbID  int
	callbacks map[int]func(Identity)
}

func newIdentityHub() *identityHub {
	return &identityHub{callbacks: make(map[int]func(Identity))}
}

func (h *identityHub) SignInAnonymously(_ context.Context) (Identity, error) {
	id := Identity{UID: uuid.NewString(), Anonymous: true}
	h.setIdentity(id)
	return id, nil
}

func (h *identityHub) SignInWithToken(_ context.Context, token string) (Identity, error) {
	if token == "" {
		return Identity{}, apperr.NewAuthError("token", errors.New("empty token"))
	}
	id := Identity{UID: "user-" + checksum.Sum([]byte(token))[:12]}
	h.setIdentity(id)
	return id, nil
}

func (h *identityHub) OnIdentityChange(cb func(Identity)) (cancel func()) {
	h.mu.Lock()
	id := h.nextCbID
	h.nextCbID++
	h.callbacks[id] = cb
	current := h.current
	h.mu.Unlock()

	// Mirror the remote contract: a listener registered after sign-in still
	// hears the current identity.
	if current != nil {
		cb(*current)
	}
	return func() {
		h.mu.Lock()
		delete(h.callbacks, id)
		h.mu.Unlock()
	}
}

func (h *identityHub) setIdentity(id Identity) {
	h.mu.Lock()
	h.current = &id
	cbs := make([]func(Identity), 0, len(h.callbacks))
	for _, cb := range h.callbacks {
		cbs = append(cbs, cb)
	}
	h.mu.Unlock()
	for _, cb := range cbs {
		cb(id)
	}
}
