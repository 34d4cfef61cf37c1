package store

import (
	"context"
	"database/sql"

	_ "modernc.org/sqlite"
)

// SavedLinksKey is the kv row holding the saved-link document.
const SavedLinksKey = "savedLinks"

// SQLiteBackend stores the document in a key/value table.
type SQLiteBackend struct {
	db  *sql.DB
	key string
}

// NewSQLiteBackend creates or opens the database at dbPath.
func NewSQLiteBackend(dbPath string) (*SQLiteBackend, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	// :memory: databases are per connection.
	db.SetMaxOpenConns(1)

	b := &SQLiteBackend{db: db, key: SavedLinksKey}
	if err := b.initSchema(); err != nil {
		db.Close()
		return nil, err
	}

	return b, nil
}

// Close closes the database connection.
func (b *SQLiteBackend) Close() error {
	return b.db.Close()
}

func (b *SQLiteBackend) initSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS kv (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
	`
	_, err := b.db.Exec(schema)
	return err
}

func (b *SQLiteBackend) Load(ctx context.Context) ([]byte, error) {
	row := b.db.QueryRowContext(ctx, "SELECT value FROM kv WHERE key = ?", b.key)

	var value string
	err := row.Scan(&value)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return []byte(value), nil
}

func (b *SQLiteBackend) Write(ctx context.Context, data []byte) error {
	_, err := b.db.ExecContext(ctx, `
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
	`, b.key, string(data))
	return err
}
