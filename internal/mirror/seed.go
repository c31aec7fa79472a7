package mirror

import (
	"context"
	"log/slog"

	"github.com/pulsehq/socialpulse/internal/models"
	"github.com/pulsehq/socialpulse/internal/store"
)

// Dataset is a fixed set of records for one collection.
type Dataset struct {
	Collection string
	Records    []map[string]any
}

// Seeder writes fixed datasets when its trigger collection is first observed
// empty. Writes are sequential and best-effort: a failed record is logged and
// skipped, with no rollback. The three datasets form one seeding batch in
// intent but not in execution — consistency is eventual, not atomic.
type Seeder struct {
	provider store.Provider
	logger   *slog.Logger
	trigger  string
	datasets []Dataset
}

// NewSeeder builds a seeder. The trigger is the collection whose emptiness
// starts the batch; datasets are written in order.
func NewSeeder(provider store.Provider, logger *slog.Logger, trigger string, datasets []Dataset) *Seeder {
	return &Seeder{provider: provider, logger: logger, trigger: trigger, datasets: datasets}
}

// Trigger returns the collection whose first-empty snapshot starts seeding.
func (s *Seeder) Trigger() string { return s.trigger }

// Run writes every dataset record through the adapter, one write per record.
// It stops issuing new writes once ctx is cancelled; writes already issued
// run to completion.
func (s *Seeder) Run(ctx context.Context) {
	for _, ds := range s.datasets {
		for _, record := range ds.Records {
			if ctx.Err() != nil {
				s.logger.Info("seed: stopped early", slog.String("collection", ds.Collection))
				return
			}
			if _, err := s.provider.Create(ctx, ds.Collection, record); err != nil {
				s.logger.Warn("seed: write failed",
					slog.String("collection", ds.Collection),
					slog.String("error", err.Error()))
				continue
			}
		}
		s.logger.Info("seed: collection populated",
			slog.String("collection", ds.Collection),
			slog.Int("records", len(ds.Records)))
	}
}

// DefaultImage is applied to campaign posts created without an image.
const DefaultImage = "https://images.unsplash.com/photo-1611162617474-5b21e879e113?auto=format&fit=crop&q=80&w=200"

// DefaultDatasets returns the demo agency dataset written into an empty
// store: three clients, their first campaign posts, and two inbox messages.
func DefaultDatasets() []Dataset {
	clients := []models.Client{
		{Name: "Lumina Tech", Health: models.HealthExcellent, Posts: 12, Growth: "+14%", Website: "lumina.io", Category: "SaaS"},
		{Name: "Vibe Wear", Health: models.HealthGood, Posts: 8, Growth: "+8.2%", Website: "vibewear.com", Category: "Retail"},
		{Name: "Eco Eats", Health: models.HealthActionNeeded, Posts: 5, Growth: "-2.1%", Website: "ecoeats.eco", Category: "F&B"},
	}
	posts := []models.Post{
		{
			Client:   "Lumina Tech",
			Platform: models.PlatformInstagram,
			Status:   models.StatusScheduled,
			Date:     "2025-12-25T10:00:00Z",
			Preview:  "AI is changing the game...",
			Image:    "https://images.unsplash.com/photo-1677442136019-21780ecad995?auto=format&fit=crop&q=80&w=200",
		},
		{
			Client:   "Vibe Wear",
			Platform: models.PlatformTikTok,
			Status:   models.StatusPendingApproval,
			Date:     "2025-12-26T14:30:00Z",
			Preview:  "New winter collection drop ❄️",
			Image:    "https://images.unsplash.com/photo-1551488831-00ddcb6c6bd3?auto=format&fit=crop&q=80&w=200",
		},
		{
			Client:   "Eco Eats",
			Platform: models.PlatformLinkedIn,
			Status:   models.StatusPendingApproval,
			Date:     "2025-12-27T09:15:00Z",
			Preview:  "Sustainability in 2026.",
			Image:    "https://images.unsplash.com/photo-1542601906990-b4d3fb778b09?auto=format&fit=crop&q=80&w=200",
		},
	}
	messages := []models.Message{
		{Sender: "Sarah (Lumina)", Text: "Did the ad campaign start?", Time: "2h ago", Platform: models.PlatformLinkedIn, Unread: true},
		{Sender: "Marcus (Vibe)", Text: "Love the new reels!", Time: "5h ago", Platform: models.PlatformInstagram, Unread: false},
	}

	return []Dataset{
		{Collection: store.CollectionClients, Records: encodeAll(clients)},
		{Collection: store.CollectionPosts, Records: encodeAll(posts)},
		{Collection: store.CollectionMessages, Records: encodeAll(messages)},
	}
}

func encodeAll[T any](items []T) []map[string]any {
	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		fields, err := models.EncodeFields(item)
		if err != nil {
			// Seed data is compile-time fixed; an encode failure is a
			// programming error.
			panic(err)
		}
		out = append(out, fields)
	}
	return out
}
