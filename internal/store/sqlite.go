package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pulsehq/socialpulse/internal/apperr"
)

const documentsSchemaSQL = `
CREATE TABLE IF NOT EXISTS documents (
	app_id     TEXT NOT NULL,
	collection TEXT NOT NULL,
	id         TEXT NOT NULL,
	fields     TEXT NOT NULL DEFAULT '{}',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (app_id, collection, id)
);

CREATE INDEX IF NOT EXISTS idx_documents_arrival
	ON documents(app_id, collection, created_at);
`

// SQLite is the SQLite-backed reference adapter. Documents live in a single
// table keyed by (app, collection, id); every write triggers a full-snapshot
// broadcast to the collection's subscribers.
type SQLite struct {
	conn  *sql.DB
	appID string
	n     *notifier
	*identityHub
}

// OpenSQLite opens (or creates) the database at dsn, applies the schema, and
// scopes all operations to the given tenant appID.
func OpenSQLite(dsn, appID string) (*SQLite, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("store: open sqlite: %w", err)
	}
	if _, err := conn.Exec(documentsSchemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: apply schema: %w", err)
	}
	s := &SQLite{conn: conn, appID: appID, identityHub: newIdentityHub()}
	s.n = newNotifier(s.loadSnapshot)
	return s, nil
}

// Subscribe implements Provider.
func (s *SQLite) Subscribe(collection string) (*Subscription, error) {
	return s.n.subscribe(collection)
}

// Create implements Provider. The assigned id is returned once the row is
// durable; subscribers see the document on their next notification.
func (s *SQLite) Create(ctx context.Context, collection string, fields map[string]any) (string, error) {
	id := uuid.NewString()
	raw, err := json.Marshal(fields)
	if err != nil {
		return "", apperr.NewAdapterError("create", collection, err)
	}
	now := time.Now().UTC()
	_, err = s.conn.ExecContext(ctx, `
		INSERT INTO documents (app_id, collection, id, fields, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, s.appID, collection, id, string(raw), now, now)
	if err != nil {
		return "", apperr.NewAdapterError("create", collection, err)
	}
	s.n.notify(collection)
	return id, nil
}

// Update implements Provider with merge semantics: provided fields overwrite,
// absent fields are preserved.
func (s *SQLite) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return apperr.NewAdapterError("update", collection, err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	var rawFields string
	err = tx.QueryRowContext(ctx, `
		SELECT fields FROM documents WHERE app_id = ? AND collection = ? AND id = ?
	`, s.appID, collection, id).Scan(&rawFields)
	if err == sql.ErrNoRows {
		return apperr.ErrNotFound
	}
	if err != nil {
		return apperr.NewAdapterError("update", collection, err)
	}

	merged := make(map[string]any)
	if err := json.Unmarshal([]byte(rawFields), &merged); err != nil {
		return apperr.NewAdapterError("update", collection, err)
	}
	for k, v := range fields {
		merged[k] = v
	}
	raw, err := json.Marshal(merged)
	if err != nil {
		return apperr.NewAdapterError("update", collection, err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE documents SET fields = ?, updated_at = ?
		WHERE app_id = ? AND collection = ? AND id = ?
	`, string(raw), time.Now().UTC(), s.appID, collection, id)
	if err != nil {
		return apperr.NewAdapterError("update", collection, err)
	}
	if err := tx.Commit(); err != nil {
		return apperr.NewAdapterError("update", collection, err)
	}
	s.n.notify(collection)
	return nil
}

// loadSnapshot reads the full collection ordered by arrival.
func (s *SQLite) loadSnapshot(collection string) (Snapshot, error) {
	rows, err := s.conn.Query(`
		SELECT id, fields FROM documents
		WHERE app_id = ? AND collection = ?
		ORDER BY created_at, id
	`, s.appID, collection)
	if err != nil {
		return nil, fmt.Errorf("store: load %s: %w", collection, err)
	}
	defer rows.Close()

	snap := Snapshot{}
	for rows.Next() {
		var id, raw string
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("store: scan %s: %w", collection, err)
		}
		fields := make(map[string]any)
		if err := json.Unmarshal([]byte(raw), &fields); err != nil {
			return nil, fmt.Errorf("store: decode %s/%s: %w", collection, id, err)
		}
		snap = append(snap, Document{ID: id, Fields: fields})
	}
	return snap, rows.Err()
}

// Close stops the notifier and closes the database.
func (s *SQLite) Close() error {
	s.n.close()
	return s.conn.Close()
}
