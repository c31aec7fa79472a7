package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pulsehq/socialpulse/internal/apperr"
)

// Dir is the directory-backed reference adapter. Each document is one JSON
// file at <root>/<appID>/<collection>/<id>.json. Useful for local development:
// documents can be inspected and edited with ordinary tools, and external
// edits surface as notifications when a watcher (see watch.go) is attached.
type Dir struct {
	root  string // absolute path of <root>/<appID>
	n     *notifier
	*identityHub
}

// OpenDir creates the tenant directory under root if needed and returns the
// adapter.
func OpenDir(root, appID string) (*Dir, error) {
	abs, err := filepath.Abs(filepath.Join(root, appID))
	if err != nil {
		return nil, fmt.Errorf("store: resolve root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("store: create root: %w", err)
	}
	d := &Dir{root: abs, identityHub: newIdentityHub()}
	d.n = newNotifier(d.loadSnapshot)
	return d, nil
}

// Root returns the absolute tenant directory, for attaching a watcher.
func (d *Dir) Root() string { return d.root }

// collectionDir resolves a collection directory and rejects names that would
// escape the tenant root.
func (d *Dir) collectionDir(collection string) (string, error) {
	cleaned := filepath.Clean(collection)
	if cleaned == "." || cleaned == ".." || filepath.IsAbs(cleaned) || strings.Contains(cleaned, string(os.PathSeparator)) {
		return "", fmt.Errorf("store: invalid collection name: %s", collection)
	}
	return filepath.Join(d.root, cleaned), nil
}

// Subscribe implements Provider.
func (d *Dir) Subscribe(collection string) (*Subscription, error) {
	return d.n.subscribe(collection)
}

// Create implements Provider.
func (d *Dir) Create(_ context.Context, collection string, fields map[string]any) (string, error) {
	dir, err := d.collectionDir(collection)
	if err != nil {
		return "", apperr.NewAdapterError("create", collection, err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", apperr.NewAdapterError("create", collection, err)
	}
	id := uuid.NewString()
	if err := d.writeDoc(dir, id, fields); err != nil {
		return "", apperr.NewAdapterError("create", collection, err)
	}
	d.n.notify(collection)
	return id, nil
}

// Update implements Provider with merge semantics.
func (d *Dir) Update(_ context.Context, collection, id string, fields map[string]any) error {
	dir, err := d.collectionDir(collection)
	if err != nil {
		return apperr.NewAdapterError("update", collection, err)
	}
	path := filepath.Join(dir, id+".json")
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return apperr.ErrNotFound
	}
	if err != nil {
		return apperr.NewAdapterError("update", collection, err)
	}
	merged := make(map[string]any)
	if err := json.Unmarshal(raw, &merged); err != nil {
		return apperr.NewAdapterError("update", collection, err)
	}
	for k, v := range fields {
		merged[k] = v
	}
	if err := d.writeDoc(dir, id, merged); err != nil {
		return apperr.NewAdapterError("update", collection, err)
	}
	d.n.notify(collection)
	return nil
}

// writeDoc atomically writes a document: tmp file → fsync → rename.
func (d *Dir) writeDoc(dir, id string, fields map[string]any) error {
	raw, err := json.MarshalIndent(fields, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".pulse-tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()
	if _, err := tmp.Write(raw); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpName, filepath.Join(dir, id+".json")); err != nil {
		return err
	}
	success = true
	return nil
}

type docFile struct {
	id  string
	mod time.Time
}

// loadSnapshot reads all documents of a collection ordered by file mtime then
// id, approximating arrival order.
func (d *Dir) loadSnapshot(collection string) (Snapshot, error) {
	dir, err := d.collectionDir(collection)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return Snapshot{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: read %s: %w", collection, err)
	}

	var files []docFile
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") || strings.HasPrefix(name, ".") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, docFile{id: strings.TrimSuffix(name, ".json"), mod: info.ModTime()})
	}
	sort.Slice(files, func(i, j int) bool {
		if !files[i].mod.Equal(files[j].mod) {
			return files[i].mod.Before(files[j].mod)
		}
		return files[i].id < files[j].id
	})

	snap := Snapshot{}
	for _, f := range files {
		raw, err := os.ReadFile(filepath.Join(dir, f.id+".json"))
		if err != nil {
			return nil, fmt.Errorf("store: read %s/%s: %w", collection, f.id, err)
		}
		fields := make(map[string]any)
		if err := json.Unmarshal(raw, &fields); err != nil {
			return nil, fmt.Errorf("store: decode %s/%s: %w", collection, f.id, err)
		}
		snap = append(snap, Document{ID: f.id, Fields: fields})
	}
	return snap, nil
}

// Close stops the notifier. The directory itself is left intact.
func (d *Dir) Close() error {
	d.n.close()
	return nil
}
