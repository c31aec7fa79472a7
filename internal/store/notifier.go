package store

import (
	"sync/atomic"

	"github.com/pulsehq/socialpulse/internal/apperr"
)

// subscriberBuffer is the per-subscription snapshot channel capacity. On
// overflow the oldest queued snapshot is dropped so the newest always lands;
// consumers only ever care about the latest full snapshot.
const subscriberBuffer = 16

// loadFunc reads the current snapshot of a collection. The notifier calls it
// from its own loop, so loads are totally ordered with deliveries.
type loadFunc func(collection string) (Snapshot, error)

type subscribeReq struct {
	collection string
	resp       chan *Subscription
}

// notifier owns the subscriber registry for one store.
//
// Concurrency model: a single internal loop owns all mutable state (the
// per-collection subscriber sets). Subscribe, notify, and Close communicate
// with the loop through channels, so no mutexes are required. Because the
// loop both loads snapshots and delivers them, every subscriber of a
// collection observes notifications in a single total order.
type notifier struct {
	load loadFunc

	subscribeCh   chan subscribeReq
	unsubscribeCh chan *Subscription
	notifyCh      chan string

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

func newNotifier(load loadFunc) *notifier {
	n := &notifier{
		load:          load,
		subscribeCh:   make(chan subscribeReq),
		unsubscribeCh: make(chan *Subscription),
		notifyCh:      make(chan string, 256),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}
	go n.run()
	return n
}

func (n *notifier) run() {
	defer close(n.stopped)

	subs := make(map[string]map[*Subscription]struct{})

	deliver := func(sub *Subscription, snap Snapshot) {
		for {
			select {
			case sub.updates <- snap:
				return
			default:
			}
			// Buffer full: drop the oldest queued snapshot and retry. The
			// subscriber still converges on the latest state.
			select {
			case <-sub.updates:
			default:
			}
		}
	}

	broadcast := func(collection string) {
		set := subs[collection]
		if len(set) == 0 {
			return
		}
		snap, err := n.load(collection)
		if err != nil {
			werr := apperr.NewAdapterError("subscribe", collection, err)
			for sub := range set {
				select {
				case sub.errs <- werr:
				default:
				}
			}
			return
		}
		for sub := range set {
			deliver(sub, snap.Clone())
		}
	}

	for {
		select {
		case <-n.stopCh:
			for _, set := range subs {
				for sub := range set {
					close(sub.updates)
					close(sub.errs)
				}
			}
			return

		case req := <-n.subscribeCh:
			sub := &Subscription{
				collection: req.collection,
				updates:    make(chan Snapshot, subscriberBuffer),
				errs:       make(chan error, 1),
			}
			sub.closeFn = func() { n.unsubscribe(sub) }
			if subs[req.collection] == nil {
				subs[req.collection] = make(map[*Subscription]struct{})
			}
			subs[req.collection][sub] = struct{}{}

			// Initial notification carries the current snapshot, so an empty
			// collection is observable right away (seeding relies on this).
			if snap, err := n.load(req.collection); err != nil {
				sub.errs <- apperr.NewAdapterError("subscribe", req.collection, err)
			} else {
				deliver(sub, snap.Clone())
			}
			req.resp <- sub

		case sub := <-n.unsubscribeCh:
			set := subs[sub.collection]
			if _, ok := set[sub]; ok {
				delete(set, sub)
				close(sub.updates)
				close(sub.errs)
			}

		case collection := <-n.notifyCh:
			broadcast(collection)
		}
	}
}

// subscribe registers a new snapshot feed for collection.
func (n *notifier) subscribe(collection string) (*Subscription, error) {
	if n.closed.Load() {
		return nil, apperr.NewAdapterError("subscribe", collection, errStoreClosed)
	}
	req := subscribeReq{collection: collection, resp: make(chan *Subscription, 1)}
	select {
	case n.subscribeCh <- req:
	case <-n.stopped:
		return nil, apperr.NewAdapterError("subscribe", collection, errStoreClosed)
	}
	select {
	case sub := <-req.resp:
		return sub, nil
	case <-n.stopped:
		return nil, apperr.NewAdapterError("subscribe", collection, errStoreClosed)
	}
}

func (n *notifier) unsubscribe(sub *Subscription) {
	if n.closed.Load() {
		return
	}
	select {
	case n.unsubscribeCh <- sub:
	case <-n.stopped:
	}
}

// notify schedules a snapshot broadcast for collection after a write.
func (n *notifier) notify(collection string) {
	if n.closed.Load() {
		return
	}
	select {
	case n.notifyCh <- collection:
	case <-n.stopped:
	}
}

// close stops the loop and closes all subscriber channels.
func (n *notifier) close() {
	if n.closed.CompareAndSwap(false, true) {
		close(n.stopCh)
	}
	<-n.stopped
}
