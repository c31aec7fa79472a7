// Package store defines the remote document-store adapter contract consumed
// by the sync engine, plus two reference implementations (SQLite-backed and
// directory-backed).
//
// A subscription delivers full snapshots: every notification carries the
// complete current contents of one collection. Consumers replace local state
// wholesale; there is no incremental diffing at this layer.
package store

import (
	"context"
	"sync"
)

// Well-known collection names watched by the dashboard.
const (
	CollectionClients     = "clients"
	CollectionPosts       = "posts"
	CollectionCompetitors = "competitors"
	CollectionMessages    = "messages"
)

// Document is one entity in a collection: a store-assigned id merged with its
// field payload.
type Document struct {
	ID     string         `json:"id"`
	Fields map[string]any `json:"fields"`
}

// Snapshot is the complete contents of one collection, ordered as delivered
// by the adapter. Consumers needing a different order must sort explicitly.
type Snapshot []Document

// Clone returns a copy whose documents and field maps are independent of the
// receiver. Subscribers receive clones so they can never mutate store state.
func (s Snapshot) Clone() Snapshot {
	if s == nil {
		return nil
	}
	out := make(Snapshot, len(s))
	for i, doc := range s {
		fields := make(map[string]any, len(doc.Fields))
		for k, v := range doc.Fields {
			fields[k] = v
		}
		out[i] = Document{ID: doc.ID, Fields: fields}
	}
	return out
}

// Identity is an adapter-level identity, independent of application login.
type Identity struct {
	UID       string `json:"uid"`
	Anonymous bool   `json:"anonymous"`
}

// Subscription is a live feed of snapshots for one collection. Updates and
// Errs are never closed while the subscription is active; both close when the
// subscription or the owning store shuts down.
type Subscription struct {
	collection string
	updates    chan Snapshot
	errs       chan error

	closeOnce sync.Once
	closeFn   func()
}

// Collection returns the collection this subscription watches.
func (s *Subscription) Collection() string { return s.collection }

// Updates returns the snapshot feed. Each value is a full replacement.
func (s *Subscription) Updates() <-chan Snapshot { return s.updates }

// Errs returns subscription errors. An error does not end the subscription;
// the last delivered snapshot remains valid (stale-but-available).
func (s *Subscription) Errs() <-chan error { return s.errs }

// Close releases the subscription. Safe to call more than once.
func (s *Subscription) Close() {
	s.closeOnce.Do(func() {
		if s.closeFn != nil {
			s.closeFn()
		}
	})
}

// NewSubscription builds a subscription for adapter implementations outside
// this package. push delivers a snapshot to the subscriber, fail delivers an
// error, and stop closes both channels. onClose, if non-nil, runs once when
// the consumer calls Close.
func NewSubscription(collection string, onClose func()) (sub *Subscription, push func(Snapshot), fail func(error), stop func()) {
	s := &Subscription{
		collection: collection,
		updates:    make(chan Snapshot, subscriberBuffer),
		errs:       make(chan error, 1),
		closeFn:    onClose,
	}
	var stopOnce sync.Once
	push = func(snap Snapshot) {
		select {
		case s.updates <- snap:
		default:
			// Full buffer: drop the oldest queued snapshot so the newest
			// always lands.
			select {
			case <-s.updates:
			default:
			}
			s.updates <- snap
		}
	}
	fail = func(err error) {
		select {
		case s.errs <- err:
		default:
		}
	}
	stop = func() {
		stopOnce.Do(func() {
			close(s.updates)
			close(s.errs)
		})
	}
	return s, push, fail, stop
}

// Provider is the collection side of the adapter contract.
type Provider interface {
	// Subscribe registers a snapshot feed for a collection. The current
	// snapshot is delivered immediately as the first notification.
	Subscribe(collection string) (*Subscription, error)

	// Create writes a new document and returns its assigned id.
	Create(ctx context.Context, collection string, fields map[string]any) (string, error)

	// Update merges partial fields into an existing document.
	Update(ctx context.Context, collection, id string, fields map[string]any) error
}

// IdentityProvider is the sign-in side of the adapter contract.
type IdentityProvider interface {
	SignInAnonymously(ctx context.Context) (Identity, error)
	SignInWithToken(ctx context.Context, token string) (Identity, error)

	// OnIdentityChange registers a callback fired on every identity change,
	// including the one caused by the initial sign-in. The returned function
	// cancels the registration.
	OnIdentityChange(cb func(Identity)) (cancel func())
}

// Store combines both adapter surfaces with a lifecycle.
type Store interface {
	Provider
	IdentityProvider
	Close() error
}
