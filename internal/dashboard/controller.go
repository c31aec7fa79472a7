// Package dashboard is the application-state controller: it owns the auth
// session and the live collection mirror, gates synchronization on login, and
// exposes read-only projections plus the workflow mutators as the single
// surface the HTTP and MCP layers talk to.
package dashboard

import (
	"context"
	"log/slog"
	"sync"

	"github.com/pulsehq/socialpulse/internal/auth"
	"github.com/pulsehq/socialpulse/internal/checksum"
	"github.com/pulsehq/socialpulse/internal/mirror"
	"github.com/pulsehq/socialpulse/internal/models"
	"github.com/pulsehq/socialpulse/internal/sse"
	"github.com/pulsehq/socialpulse/internal/store"
	"github.com/pulsehq/socialpulse/internal/workflow"
)

// watchedCollections are mirrored while the user is logged in.
var watchedCollections = []string{
	store.CollectionClients,
	store.CollectionPosts,
	store.CollectionCompetitors,
	store.CollectionMessages,
}

// Controller wires auth, mirror, and workflow together.
//
// Synchronization starts only once an adapter identity exists and the user is
// logged in, and is torn down synchronously inside Logout. All snapshot state
// lives in the mirror session's event loop; the controller itself holds only
// the session pointer under a small mutex.
type Controller struct {
	st     store.Store
	logger *slog.Logger
	broker *sse.Broker

	auth *auth.Manager
	flow *workflow.Service

	mu       sync.Mutex
	session  *mirror.Session
	loggedIn bool
}

// Option configures a Controller.
type Option func(*Controller)

// WithBroker attaches an SSE broker; state changes are published to it.
func WithBroker(b *sse.Broker) Option {
	return func(c *Controller) { c.broker = b }
}

// WithAuthOptions forwards options to the embedded auth manager, used by
// tests to shorten the biometric timers.
func WithAuthOptions(opts ...auth.Option) Option {
	return func(c *Controller) {
		c.auth = auth.NewManager(c.st, c.logger, opts...)
	}
}

// NewController builds the controller over a store adapter.
func NewController(st store.Store, logger *slog.Logger, opts ...Option) *Controller {
	c := &Controller{
		st:     st,
		logger: logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.auth == nil {
		c.auth = auth.NewManager(st, logger)
	}
	c.flow = workflow.NewService(st, c.postStatus)

	c.auth.SetTeardown(c.stopSync)
	c.auth.OnChange(c.authChanged)
	return c
}

// Start signs in against the adapter. Synchronization does not start here; it
// waits for the login gate.
func (c *Controller) Start(ctx context.Context, token string) error {
	return c.auth.Start(ctx, token)
}

// Close tears down synchronization and the auth session.
func (c *Controller) Close() {
	c.stopSync()
	c.auth.Close()
}

func (c *Controller) authChanged() {
	loggedIn := c.auth.LoggedIn()
	ready := c.auth.Ready()

	c.mu.Lock()
	was := c.loggedIn
	c.loggedIn = loggedIn
	c.mu.Unlock()

	if ready {
		c.startSync()
	}
	if c.broker == nil {
		return
	}
	switch {
	case loggedIn && !was:
		id, _ := c.auth.Identity()
		c.broker.Publish(sse.Event{Type: "auth.login", Data: map[string]string{"uid": id.UID}})
	case !loggedIn && was:
		c.broker.Publish(sse.Event{Type: "auth.logout", Data: map[string]string{}})
	}
}

// startSync spins up the mirror session and watches every dashboard
// collection. Idempotent; a second call while a session is live is a no-op.
func (c *Controller) startSync() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session != nil {
		return
	}

	seeder := mirror.NewSeeder(c.st, c.logger, store.CollectionClients, mirror.DefaultDatasets())
	s := mirror.NewSession(c.st, c.logger, mirror.WithSeeder(seeder))
	c.session = s

	for _, collection := range watchedCollections {
		collection := collection
		if _, err := s.Watch(collection, func(snap store.Snapshot) {
			c.collectionUpdated(collection, snap)
		}); err != nil {
			c.logger.Error("dashboard: watch failed",
				slog.String("collection", collection),
				slog.String("error", err.Error()))
		}
	}
	c.logger.Info("dashboard: synchronization started")
}

// stopSync closes the mirror session, which bulk-closes every watch. Runs
// synchronously inside Logout via the auth teardown hook.
func (c *Controller) stopSync() {
	c.mu.Lock()
	s := c.session
	c.session = nil
	c.mu.Unlock()
	if s == nil {
		return
	}
	s.Close()
	c.logger.Info("dashboard: synchronization stopped")
}

func (c *Controller) collectionUpdated(collection string, snap store.Snapshot) {
	if c.broker != nil {
		c.broker.PublishCollectionEvent(collection, checksum.Revision(snap))
	}
}

func (c *Controller) rawSnapshot(collection string) store.Snapshot {
	c.mu.Lock()
	s := c.session
	c.mu.Unlock()
	if s == nil {
		return nil
	}
	return s.Snapshot(collection)
}

// postStatus looks up a post's current status in the mirrored snapshot. The
// adapter gives no read-your-write guarantee, so a miss reports not-found and
// the workflow writes unchecked.
func (c *Controller) postStatus(postID string) (string, bool) {
	for _, doc := range c.rawSnapshot(store.CollectionPosts) {
		if doc.ID != postID {
			continue
		}
		status, ok := doc.Fields["status"].(string)
		return status, ok
	}
	return "", false
}

// Revision returns the SHA-256 digest of the collection's current snapshot,
// used as the projection ETag. Empty when the collection is not being synced.
func (c *Controller) Revision(collection string) string {
	snap := c.rawSnapshot(collection)
	if snap == nil {
		return ""
	}
	return checksum.Revision(snap)
}

func decodeAll[T any](logger *slog.Logger, snap store.Snapshot, setID func(*T, string)) []T {
	out := make([]T, 0, len(snap))
	for _, doc := range snap {
		var v T
		if err := models.DecodeFields(doc.Fields, &v); err != nil {
			logger.Warn("dashboard: skipping malformed document",
				slog.String("id", doc.ID),
				slog.String("error", err.Error()))
			continue
		}
		setID(&v, doc.ID)
		out = append(out, v)
	}
	return out
}

// Clients returns the mirrored clients projection.
func (c *Controller) Clients() []models.Client {
	return decodeAll(c.logger, c.rawSnapshot(store.CollectionClients),
		func(v *models.Client, id string) { v.ID = id })
}

// Posts returns the mirrored posts projection.
func (c *Controller) Posts() []models.Post {
	return decodeAll(c.logger, c.rawSnapshot(store.CollectionPosts),
		func(v *models.Post, id string) { v.ID = id })
}

// Messages returns the mirrored messages projection.
func (c *Controller) Messages() []models.Message {
	return decodeAll(c.logger, c.rawSnapshot(store.CollectionMessages),
		func(v *models.Message, id string) { v.ID = id })
}

// Competitors returns the mirrored competitors projection.
func (c *Controller) Competitors() []models.Competitor {
	return decodeAll(c.logger, c.rawSnapshot(store.CollectionCompetitors),
		func(v *models.Competitor, id string) { v.ID = id })
}

// Badges computes the sidebar badge counts from the current snapshots.
func (c *Controller) Badges() models.BadgeCounts {
	var b models.BadgeCounts
	for _, p := range c.Posts() {
		if p.Status == models.StatusPendingApproval {
			b.PendingApprovals++
		}
	}
	for _, m := range c.Messages() {
		if m.Unread {
			b.UnreadMessages++
		}
	}
	b.Competitors = len(c.rawSnapshot(store.CollectionCompetitors))
	return b
}

// CreatePost validates and writes a campaign post draft.
func (c *Controller) CreatePost(ctx context.Context, d workflow.Draft) (string, error) {
	id, err := c.flow.CreatePost(ctx, d)
	if err != nil {
		return "", err
	}
	if c.broker != nil {
		c.broker.Publish(sse.Event{Type: "post.created", Data: map[string]string{"id": id}})
	}
	return id, nil
}

// SetPostStatus moves a post through the approval workflow.
func (c *Controller) SetPostStatus(ctx context.Context, postID, status string) error {
	if err := c.flow.SetStatus(ctx, postID, status); err != nil {
		return err
	}
	if c.broker != nil {
		c.broker.Publish(sse.Event{Type: "post.status", Data: map[string]string{
			"id":     postID,
			"status": status,
		}})
	}
	return nil
}

// Login submits dashboard credentials.
func (c *Controller) Login(email, password string) error {
	return c.auth.SubmitCredentials(email, password)
}

// Logout clears the session; synchronization is torn down before this
// returns.
func (c *Controller) Logout() { c.auth.Logout() }

// LoggedIn reports the application login flag.
func (c *Controller) LoggedIn() bool { return c.auth.LoggedIn() }

// Ready reports whether synchronization is permitted.
func (c *Controller) Ready() bool { return c.auth.Ready() }

// Identity returns the adapter identity, if signed in.
func (c *Controller) Identity() (store.Identity, bool) { return c.auth.Identity() }

// Syncing reports whether a mirror session is live.
func (c *Controller) Syncing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session != nil
}

// RequestScan starts a biometric scan.
func (c *Controller) RequestScan(mod auth.Modality) error { return c.auth.RequestScan(mod) }

// CancelScan aborts an in-flight scan.
func (c *Controller) CancelScan() { c.auth.CancelScan() }

// ScanState returns the biometric scan state.
func (c *Controller) ScanState() auth.ScanState { return c.auth.ScanState() }

// SetBiometric toggles a modality in settings.
func (c *Controller) SetBiometric(mod auth.Modality, enabled bool) error {
	return c.auth.SetBiometric(mod, enabled)
}

// BiometricEnabled reports a modality's settings toggle.
func (c *Controller) BiometricEnabled(mod auth.Modality) bool {
	return c.auth.BiometricEnabled(mod)
}

// SetProfile stores the sign-up profile fields.
func (c *Controller) SetProfile(name, agency string) { c.auth.SetProfile(name, agency) }

// Profile returns the stored profile fields.
func (c *Controller) Profile() (name, agency string) { return c.auth.Profile() }
