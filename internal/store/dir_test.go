package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func testDir(t *testing.T) *Dir {
	t.Helper()
	d, err := OpenDir(t.TempDir(), "agency-test")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { d.Close() })
	return d
}

func TestDirCreate_WritesDocumentFile(t *testing.T) {
	d := testDir(t)
	id, err := d.Create(context.Background(), CollectionClients, map[string]any{
		"name":   "Lumina Tech",
		"health": "Excellent",
	})
	if err != nil {
		t.Fatal(err)
	}

	raw, err := os.ReadFile(filepath.Join(d.Root(), CollectionClients, id+".json"))
	if err != nil {
		t.Fatal(err)
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		t.Fatal(err)
	}
	if fields["name"] != "Lumina Tech" {
		t.Errorf("name = %v", fields["name"])
	}
}

func TestDirSubscribe_SeesExistingDocuments(t *testing.T) {
	d := testDir(t)
	ctx := context.Background()
	if _, err := d.Create(ctx, CollectionMessages, map[string]any{"sender": "Sarah (Lumina)", "unread": true}); err != nil {
		t.Fatal(err)
	}

	sub, err := d.Subscribe(CollectionMessages)
	if err != nil {
		t.Fatal(err)
	}
	defer sub.Close()

	snap := waitSnapshot(t, sub)
	if len(snap) != 1 {
		t.Fatalf("expected 1 doc in initial snapshot, got %d", len(snap))
	}
	if snap[0].Fields["unread"] != true {
		t.Errorf("unread = %v", snap[0].Fields["unread"])
	}
}

func TestDirUpdate_MergesFields(t *testing.T) {
	d := testDir(t)
	ctx := context.Background()
	id, err := d.Create(ctx, CollectionMessages, map[string]any{"sender": "Marcus (Vibe)", "unread": true})
	if err != nil {
		t.Fatal(err)
	}
	if err := d.Update(ctx, CollectionMessages, id, map[string]any{"unread": false}); err != nil {
		t.Fatal(err)
	}

	snap, err := d.loadSnapshot(CollectionMessages)
	if err != nil {
		t.Fatal(err)
	}
	if snap[0].Fields["unread"] != false {
		t.Errorf("unread = %v, want false", snap[0].Fields["unread"])
	}
	if snap[0].Fields["sender"] != "Marcus (Vibe)" {
		t.Error("update must preserve untouched fields")
	}
}

func TestDirCollectionName_Validated(t *testing.T) {
	d := testDir(t)
	if _, err := d.Create(context.Background(), "../escape", map[string]any{}); err == nil {
		t.Error("collection names must not escape the tenant root")
	}
}

func TestDirEmptyCollection_EmptySnapshot(t *testing.T) {
	d := testDir(t)
	snap, err := d.loadSnapshot(CollectionCompetitors)
	if err != nil {
		t.Fatal(err)
	}
	if len(snap) != 0 {
		t.Errorf("expected empty snapshot, got %d docs", len(snap))
	}
}
