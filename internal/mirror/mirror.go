// Package mirror keeps local snapshots consistent with remote collections.
//
// A Session owns one snapshot per watched collection. Every adapter
// notification replaces the snapshot wholesale; there is no merging of stale
// and fresh data. A single internal loop applies notifications, so callbacks
// for different collections may interleave but each notification is processed
// to completion before the next.
package mirror

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/pulsehq/socialpulse/internal/store"
)

// UpdateFunc receives the replaced snapshot after each notification. It runs
// on the session loop: keep it short and do not mutate the snapshot.
type UpdateFunc func(snap store.Snapshot)

// ErrorFunc receives subscription errors. The last-known snapshot stays
// intact (stale-but-available); no retry is attempted.
type ErrorFunc func(collection string, err error)

type applyMsg struct {
	collection string
	snap       store.Snapshot
	onUpdate   UpdateFunc
}

type snapReq struct {
	collection string
	resp       chan store.Snapshot
}

// Session is a set of live collection watches sharing one apply loop.
type Session struct {
	provider store.Provider
	logger   *slog.Logger
	seeder   *Seeder
	onError  ErrorFunc

	ctx    context.Context
	cancel context.CancelFunc

	applyCh   chan applyMsg
	snapReqCh chan snapReq
	stopCh    chan struct{}
	stopped   chan struct{}
	closed    atomic.Bool

	mu      sync.Mutex
	watches map[*Watch]struct{}
}

// Option configures a Session.
type Option func(*Session)

// WithSeeder attaches a seed bootstrapper, consulted on the first
// notification of its trigger collection.
func WithSeeder(s *Seeder) Option {
	return func(sess *Session) { sess.seeder = s }
}

// WithErrorFunc sets the subscription-error callback.
func WithErrorFunc(fn ErrorFunc) Option {
	return func(sess *Session) { sess.onError = fn }
}

// NewSession creates a session over the given adapter.
func NewSession(provider store.Provider, logger *slog.Logger, opts ...Option) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		provider:  provider,
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
		applyCh:   make(chan applyMsg),
		snapReqCh: make(chan snapReq),
		stopCh:    make(chan struct{}),
		stopped:   make(chan struct{}),
		watches:   make(map[*Watch]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	go s.run()
	return s
}

func (s *Session) run() {
	defer close(s.stopped)

	snapshots := make(map[string]store.Snapshot)
	seen := make(map[string]bool)

	for {
		select {
		case <-s.stopCh:
			return

		case msg := <-s.applyCh:
			// Wholesale replacement: the local snapshot is exactly the
			// notification's contents.
			snapshots[msg.collection] = msg.snap

			if !seen[msg.collection] {
				seen[msg.collection] = true
				if s.seeder != nil && msg.collection == s.seeder.Trigger() && len(msg.snap) == 0 {
					// First notification and the trigger collection is empty:
					// launch the seed batch. Later empty notifications never
					// re-trigger; a partially seeded store self-corrects
					// because any surviving record makes the collection
					// non-empty next session.
					go s.seeder.Run(s.ctx)
				}
			}

			if msg.onUpdate != nil {
				msg.onUpdate(msg.snap.Clone())
			}

		case req := <-s.snapReqCh:
			req.resp <- snapshots[req.collection].Clone()
		}
	}
}

// Watch subscribes to a collection and begins applying its notifications.
// onUpdate fires after each snapshot replacement, including the initial one.
func (s *Session) Watch(collection string, onUpdate UpdateFunc) (*Watch, error) {
	if s.closed.Load() {
		return nil, context.Canceled
	}
	sub, err := s.provider.Subscribe(collection)
	if err != nil {
		return nil, err
	}
	w := &Watch{collection: collection, sub: sub, session: s}
	s.mu.Lock()
	s.watches[w] = struct{}{}
	s.mu.Unlock()
	go s.pump(w, onUpdate)
	return w, nil
}

// pump forwards one subscription's notifications into the apply loop.
// Within a collection, notifications arrive and apply in adapter order.
func (s *Session) pump(w *Watch, onUpdate UpdateFunc) {
	updates := w.sub.Updates()
	errs := w.sub.Errs()
	for {
		select {
		case <-s.stopCh:
			return
		case snap, ok := <-updates:
			if !ok {
				return
			}
			select {
			case s.applyCh <- applyMsg{collection: w.collection, snap: snap, onUpdate: onUpdate}:
			case <-s.stopCh:
				return
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			s.logger.Warn("mirror: subscription error",
				slog.String("collection", w.collection),
				slog.String("error", err.Error()))
			if s.onError != nil {
				s.onError(w.collection, err)
			}
		}
	}
}

// Snapshot returns a copy of the current local snapshot for a collection.
// Returns nil when the collection has never been watched or notified.
func (s *Session) Snapshot(collection string) store.Snapshot {
	if s.closed.Load() {
		return nil
	}
	req := snapReq{collection: collection, resp: make(chan store.Snapshot, 1)}
	select {
	case s.snapReqCh <- req:
	case <-s.stopped:
		return nil
	}
	select {
	case snap := <-req.resp:
		return snap
	case <-s.stopped:
		return nil
	}
}

// Close releases every watch and stops the apply loop (bulk teardown).
// After Close returns, no further adapter notification updates any snapshot.
func (s *Session) Close() {
	if !s.closed.CompareAndSwap(false, true) {
		<-s.stopped
		return
	}
	s.mu.Lock()
	watches := make([]*Watch, 0, len(s.watches))
	for w := range s.watches {
		watches = append(watches, w)
	}
	s.watches = make(map[*Watch]struct{})
	s.mu.Unlock()
	for _, w := range watches {
		w.sub.Close()
	}
	s.cancel()
	close(s.stopCh)
	<-s.stopped
}

// Watch is one live collection subscription.
type Watch struct {
	collection string
	sub        *store.Subscription
	session    *Session
	closeOnce  sync.Once
}

// Collection returns the watched collection name.
func (w *Watch) Collection() string { return w.collection }

// Close releases this watch alone. The session and its other watches keep
// running.
func (w *Watch) Close() {
	w.closeOnce.Do(func() {
		w.session.mu.Lock()
		delete(w.session.watches, w)
		w.session.mu.Unlock()
		w.sub.Close()
	})
}
