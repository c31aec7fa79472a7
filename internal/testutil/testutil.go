// Package testutil provides a scripted in-memory adapter and shared helpers
// for exercising the sync engine without a real backing store.
package testutil

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/pulsehq/socialpulse/internal/apperr"
	"github.com/pulsehq/socialpulse/internal/store"
)

// WriteOp records one adapter write for assertions.
type WriteOp struct {
	Op         string // "create" or "update"
	Collection string
	ID         string
	Fields     map[string]any
}

type fakeSub struct {
	push func(store.Snapshot)
	fail func(error)
	stop func()
}

// FakeStore is a scripted store.Store. Tests drive notifications explicitly
// with Push and inject failures with FailNext; all writes are recorded.
type FakeStore struct {
	mu          sync.Mutex
	collections map[string]store.Snapshot
	subs        map[string][]*fakeSub
	writes      []WriteOp
	nextID      int
	failNext    map[string]error // keyed by op: "create", "update", "subscribe"

	identity    *store.Identity
	idCallbacks []func(store.Identity)
	signInErr   error
}

var _ store.Store = (*FakeStore)(nil)

// NewFakeStore returns an empty scripted store.
func NewFakeStore() *FakeStore {
	return &FakeStore{
		collections: make(map[string]store.Snapshot),
		subs:        make(map[string][]*fakeSub),
		failNext:    make(map[string]error),
	}
}

// Subscribe implements store.Provider. The current snapshot is delivered
// immediately, matching the remote contract.
func (f *FakeStore) Subscribe(collection string) (*store.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failNext["subscribe"]; err != nil {
		delete(f.failNext, "subscribe")
		return nil, apperr.NewAdapterError("subscribe", collection, err)
	}

	fs := &fakeSub{}
	sub, push, fail, stop := store.NewSubscription(collection, func() {
		f.removeSub(collection, fs)
	})
	fs.push, fs.fail, fs.stop = push, fail, stop
	f.subs[collection] = append(f.subs[collection], fs)
	push(f.snapshotLocked(collection))
	return sub, nil
}

// Create implements store.Provider.
func (f *FakeStore) Create(_ context.Context, collection string, fields map[string]any) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failNext["create"]; err != nil {
		delete(f.failNext, "create")
		return "", apperr.NewAdapterError("create", collection, err)
	}
	f.nextID++
	id := fmt.Sprintf("doc-%d", f.nextID)
	f.collections[collection] = append(f.collections[collection], store.Document{ID: id, Fields: cloneFields(fields)})
	f.writes = append(f.writes, WriteOp{Op: "create", Collection: collection, ID: id, Fields: cloneFields(fields)})
	f.broadcastLocked(collection)
	return id, nil
}

// Update implements store.Provider with merge semantics.
func (f *FakeStore) Update(_ context.Context, collection, id string, fields map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failNext["update"]; err != nil {
		delete(f.failNext, "update")
		return apperr.NewAdapterError("update", collection, err)
	}
	snap := f.collections[collection]
	for i := range snap {
		if snap[i].ID == id {
			for k, v := range fields {
				snap[i].Fields[k] = v
			}
			f.writes = append(f.writes, WriteOp{Op: "update", Collection: collection, ID: id, Fields: cloneFields(fields)})
			f.broadcastLocked(collection)
			return nil
		}
	}
	return apperr.ErrNotFound
}

// Push replaces a collection's contents and notifies subscribers, simulating
// a remote-origin change.
func (f *FakeStore) Push(collection string, snap store.Snapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.collections[collection] = snap.Clone()
	f.broadcastLocked(collection)
}

// FailSubscribers delivers a subscription error to every subscriber of the
// collection without touching its contents.
func (f *FakeStore) FailSubscribers(collection string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	werr := apperr.NewAdapterError("subscribe", collection, err)
	for _, s := range f.subs[collection] {
		s.fail(werr)
	}
}

// FailNext makes the next call of the given op ("create", "update",
// "subscribe") fail with err.
func (f *FakeStore) FailNext(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failNext[op] = err
}

// Writes returns all recorded writes in order.
func (f *FakeStore) Writes() []WriteOp {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]WriteOp, len(f.writes))
	copy(out, f.writes)
	return out
}

// WritesTo returns recorded writes for one collection.
func (f *FakeStore) WritesTo(collection string) []WriteOp {
	var out []WriteOp
	for _, w := range f.Writes() {
		if w.Collection == collection {
			out = append(out, w)
		}
	}
	return out
}

// SubscriberCount returns the number of live subscriptions for collection.
func (f *FakeStore) SubscriberCount(collection string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs[collection])
}

// SignInAnonymously implements store.IdentityProvider.
func (f *FakeStore) SignInAnonymously(_ context.Context) (store.Identity, error) {
	f.mu.Lock()
	if err := f.signInErr; err != nil {
		f.mu.Unlock()
		return store.Identity{}, apperr.NewAuthError("anonymous", err)
	}
	id := store.Identity{UID: "anon-user", Anonymous: true}
	f.mu.Unlock()
	f.setIdentity(id)
	return id, nil
}

// SignInWithToken implements store.IdentityProvider.
func (f *FakeStore) SignInWithToken(_ context.Context, token string) (store.Identity, error) {
	f.mu.Lock()
	if err := f.signInErr; err != nil {
		f.mu.Unlock()
		return store.Identity{}, apperr.NewAuthError("token", err)
	}
	f.mu.Unlock()
	if token == "" {
		return store.Identity{}, apperr.NewAuthError("token", fmt.Errorf("empty token"))
	}
	id := store.Identity{UID: "token-user"}
	f.setIdentity(id)
	return id, nil
}

// FailSignIn makes subsequent sign-in attempts fail with err.
func (f *FakeStore) FailSignIn(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signInErr = err
}

// OnIdentityChange implements store.IdentityProvider.
func (f *FakeStore) OnIdentityChange(cb func(store.Identity)) (cancel func()) {
	f.mu.Lock()
	f.idCallbacks = append(f.idCallbacks, cb)
	idx := len(f.idCallbacks) - 1
	current := f.identity
	f.mu.Unlock()
	if current != nil {
		cb(*current)
	}
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		if idx < len(f.idCallbacks) {
			f.idCallbacks[idx] = func(store.Identity) {}
		}
	}
}

// Close implements store.Store, closing all live subscriptions.
func (f *FakeStore) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, list := range f.subs {
		for _, s := range list {
			s.stop()
		}
	}
	f.subs = make(map[string][]*fakeSub)
	return nil
}

func (f *FakeStore) setIdentity(id store.Identity) {
	f.mu.Lock()
	f.identity = &id
	cbs := make([]func(store.Identity), len(f.idCallbacks))
	copy(cbs, f.idCallbacks)
	f.mu.Unlock()
	for _, cb := range cbs {
		cb(id)
	}
}

func (f *FakeStore) snapshotLocked(collection string) store.Snapshot {
	snap := f.collections[collection]
	if snap == nil {
		return store.Snapshot{}
	}
	return snap.Clone()
}

func (f *FakeStore) broadcastLocked(collection string) {
	snap := f.snapshotLocked(collection)
	for _, s := range f.subs[collection] {
		s.push(snap.Clone())
	}
}

func (f *FakeStore) removeSub(collection string, target *fakeSub) {
	f.mu.Lock()
	defer f.mu.Unlock()
	list := f.subs[collection]
	for i, s := range list {
		if s == target {
			f.subs[collection] = append(list[:i], list[i+1:]...)
			s.stop()
			return
		}
	}
}

func cloneFields(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out
}

// Eventually polls cond until it returns true or the deadline passes.
func Eventually(t *testing.T, d time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}
