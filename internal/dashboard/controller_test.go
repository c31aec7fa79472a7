package dashboard

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/pulsehq/socialpulse/internal/apperr"
	"github.com/pulsehq/socialpulse/internal/auth"
	"github.com/pulsehq/socialpulse/internal/models"
	"github.com/pulsehq/socialpulse/internal/sse"
	"github.com/pulsehq/socialpulse/internal/store"
	"github.com/pulsehq/socialpulse/internal/testutil"
	"github.com/pulsehq/socialpulse/internal/workflow"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func seededClients() store.Snapshot {
	return store.Snapshot{
		{ID: "c-1", Fields: map[string]any{"name": "Lumina Tech", "health": models.HealthExcellent}},
	}
}

func newController(t *testing.T, fs *testutil.FakeStore, opts ...Option) *Controller {
	t.Helper()
	opts = append(opts, WithAuthOptions(
		auth.WithScannerOptions(auth.WithScanDelays(20*time.Millisecond, 10*time.Millisecond))))
	c := NewController(fs, testLogger(), opts...)
	t.Cleanup(c.Close)
	if err := c.Start(context.Background(), ""); err != nil {
		t.Fatalf("Start: %v", err)
	}
	return c
}

func login(t *testing.T, c *Controller) {
	t.Helper()
	if err := c.Login("a@b.com", "pw"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	testutil.Eventually(t, time.Second, func() bool { return c.Syncing() })
}

func TestSyncGatedOnLogin(t *testing.T) {
	fs := testutil.NewFakeStore()
	defer fs.Close()
	c := newController(t, fs)

	if c.Syncing() {
		t.Fatal("sync must not start before login")
	}
	if n := fs.SubscriberCount(store.CollectionClients); n != 0 {
		t.Fatalf("subscribers before login = %d", n)
	}

	login(t, c)
	for _, collection := range watchedCollections {
		collection := collection
		testutil.Eventually(t, time.Second, func() bool {
			return fs.SubscriberCount(collection) == 1
		})
	}
}

func TestBiometricLoginStartsSync(t *testing.T) {
	fs := testutil.NewFakeStore()
	defer fs.Close()
	fs.Push(store.CollectionClients, seededClients())
	c := newController(t, fs)

	if err := c.RequestScan(auth.ModalityFace); err != nil {
		t.Fatalf("RequestScan: %v", err)
	}
	testutil.Eventually(t, time.Second, func() bool { return c.Syncing() })
}

func TestSeedRunsOnEmptyClients(t *testing.T) {
	fs := testutil.NewFakeStore()
	defer fs.Close()
	c := newController(t, fs)
	login(t, c)

	testutil.Eventually(t, time.Second, func() bool { return len(fs.Writes()) == 8 })
	testutil.Eventually(t, time.Second, func() bool { return len(c.Clients()) == 3 })

	names := make(map[string]bool)
	for _, cl := range c.Clients() {
		names[cl.Name] = true
	}
	for _, want := range []string{"Lumina Tech", "Vibe Wear", "Eco Eats"} {
		if !names[want] {
			t.Errorf("seeded clients missing %q", want)
		}
	}
}

func TestSeedSkippedWhenClientsExist(t *testing.T) {
	fs := testutil.NewFakeStore()
	defer fs.Close()
	fs.Push(store.CollectionClients, seededClients())
	c := newController(t, fs)
	login(t, c)

	time.Sleep(50 * time.Millisecond)
	if n := len(fs.Writes()); n != 0 {
		t.Fatalf("writes = %d, want 0 for a populated store", n)
	}
}

func TestBadgeCounts(t *testing.T) {
	fs := testutil.NewFakeStore()
	defer fs.Close()
	fs.Push(store.CollectionClients, seededClients())
	c := newController(t, fs)
	login(t, c)

	fs.Push(store.CollectionPosts, store.Snapshot{
		{ID: "p-1", Fields: map[string]any{"status": models.StatusPendingApproval}},
		{ID: "p-2", Fields: map[string]any{"status": models.StatusApproved}},
		{ID: "p-3", Fields: map[string]any{"status": models.StatusPendingApproval}},
	})
	fs.Push(store.CollectionMessages, store.Snapshot{
		{ID: "m-1", Fields: map[string]any{"sender": "Sarah", "unread": true}},
		{ID: "m-2", Fields: map[string]any{"sender": "Marcus", "unread": false}},
	})
	fs.Push(store.CollectionCompetitors, store.Snapshot{
		{ID: "x-1", Fields: map[string]any{"name": "Glow Agency"}},
	})

	testutil.Eventually(t, time.Second, func() bool {
		b := c.Badges()
		return b.PendingApprovals == 2 && b.UnreadMessages == 1 && b.Competitors == 1
	})
}

func TestProjectionsCarryDocumentIDs(t *testing.T) {
	fs := testutil.NewFakeStore()
	defer fs.Close()
	fs.Push(store.CollectionClients, seededClients())
	c := newController(t, fs)
	login(t, c)

	testutil.Eventually(t, time.Second, func() bool { return len(c.Clients()) == 1 })
	if got := c.Clients()[0].ID; got != "c-1" {
		t.Errorf("client id = %q, want c-1", got)
	}
}

func TestLogoutTearsDownSyncSynchronously(t *testing.T) {
	fs := testutil.NewFakeStore()
	defer fs.Close()
	fs.Push(store.CollectionClients, seededClients())
	c := newController(t, fs)
	login(t, c)

	c.Logout()
	if c.Syncing() {
		t.Fatal("sync must be stopped before Logout returns")
	}
	for _, collection := range watchedCollections {
		if n := fs.SubscriberCount(collection); n != 0 {
			t.Errorf("%s subscribers after logout = %d", collection, n)
		}
	}
	if c.Clients() != nil && len(c.Clients()) != 0 {
		t.Error("projections must be empty after logout")
	}
}

func TestRelogin(t *testing.T) {
	fs := testutil.NewFakeStore()
	defer fs.Close()
	fs.Push(store.CollectionClients, seededClients())
	c := newController(t, fs)
	login(t, c)
	c.Logout()
	login(t, c)
	testutil.Eventually(t, time.Second, func() bool { return len(c.Clients()) == 1 })
}

func TestCreatePostDefaultsAndEvents(t *testing.T) {
	fs := testutil.NewFakeStore()
	defer fs.Close()
	fs.Push(store.CollectionClients, seededClients())
	b := sse.NewBroker(time.Hour)
	defer b.Close()
	c := newController(t, fs, WithBroker(b))
	login(t, c)

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	id, err := c.CreatePost(context.Background(), workflow.Draft{
		Client:   "Lumina Tech",
		Platform: models.PlatformInstagram,
		Preview:  "Launch teaser",
	})
	if err != nil {
		t.Fatalf("CreatePost: %v", err)
	}

	testutil.Eventually(t, time.Second, func() bool {
		for _, p := range c.Posts() {
			if p.ID == id {
				return true
			}
		}
		return false
	})
	for _, p := range c.Posts() {
		if p.ID != id {
			continue
		}
		if p.Status != models.StatusDraft {
			t.Errorf("status = %q, want Draft", p.Status)
		}
		if p.Image == "" {
			t.Error("default image not applied")
		}
	}

	sawCreated := false
	deadline := time.After(time.Second)
	for !sawCreated {
		select {
		case msg := <-ch:
			if strings.Contains(string(msg), "post.created") {
				sawCreated = true
			}
		case <-deadline:
			t.Fatal("post.created event never published")
		}
	}
}

func TestSetPostStatusEnforcesTransitions(t *testing.T) {
	fs := testutil.NewFakeStore()
	defer fs.Close()
	fs.Push(store.CollectionClients, seededClients())
	c := newController(t, fs)
	login(t, c)

	id, err := c.CreatePost(context.Background(), workflow.Draft{
		Client:   "Lumina Tech",
		Platform: models.PlatformTikTok,
	})
	if err != nil {
		t.Fatalf("CreatePost: %v", err)
	}
	testutil.Eventually(t, time.Second, func() bool {
		_, ok := findPost(c, id)
		return ok
	})

	// Draft may not jump straight to Approved.
	if err := c.SetPostStatus(context.Background(), id, models.StatusApproved); !errors.Is(err, apperr.ErrInvalidTransition) {
		t.Fatalf("err = %v, want ErrInvalidTransition", err)
	}

	if err := c.SetPostStatus(context.Background(), id, models.StatusPendingApproval); err != nil {
		t.Fatalf("SetPostStatus: %v", err)
	}
	testutil.Eventually(t, time.Second, func() bool {
		p, ok := findPost(c, id)
		return ok && p.Status == models.StatusPendingApproval
	})
}

func findPost(c *Controller, id string) (models.Post, bool) {
	for _, p := range c.Posts() {
		if p.ID == id {
			return p, true
		}
	}
	return models.Post{}, false
}

func TestRevisionTracksSnapshot(t *testing.T) {
	fs := testutil.NewFakeStore()
	defer fs.Close()
	fs.Push(store.CollectionClients, seededClients())
	c := newController(t, fs)

	if rev := c.Revision(store.CollectionClients); rev != "" {
		t.Fatalf("revision before sync = %q, want empty", rev)
	}

	login(t, c)
	testutil.Eventually(t, time.Second, func() bool {
		return c.Revision(store.CollectionClients) != ""
	})
	before := c.Revision(store.CollectionClients)

	fs.Push(store.CollectionClients, store.Snapshot{
		{ID: "c-2", Fields: map[string]any{"name": "New Client"}},
	})
	testutil.Eventually(t, time.Second, func() bool {
		return c.Revision(store.CollectionClients) != before
	})
}
