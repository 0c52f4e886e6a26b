package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/okian/rollbot/internal/domain/model"

	_ "modernc.org/sqlite"
)

const schema = `CREATE TABLE IF NOT EXISTS documents (
	name       TEXT PRIMARY KEY,
	body       TEXT NOT NULL,
	updated_at INTEGER NOT NULL
)`

// SQLiteStore keeps the same two documents as rows of one table so both
// are replaced in a single transaction.
type SQLiteStore struct {
	sqlDB *sql.DB
}

// OpenSQLite opens or creates the database at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: storage path is required", ErrPersistence)
	}
	cleanPath := filepath.Clean(path)
	if dir := filepath.Dir(cleanPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("%w: create %s: %v", ErrPersistence, dir, err)
		}
	}

	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open sqlite db: %v", ErrPersistence, err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("%w: ping sqlite db: %v", ErrPersistence, err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("%w: migrate: %v", ErrPersistence, err)
	}
	return &SQLiteStore{sqlDB: sqlDB}, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Load reads both documents. Missing rows load as empty.
func (s *SQLiteStore) Load(ctx context.Context) (model.Snapshot, error) {
	users, err := s.get(ctx, UsersDocument)
	if err != nil {
		return model.NewSnapshot(), err
	}
	characters, err := s.get(ctx, CharactersDocument)
	if err != nil {
		return model.NewSnapshot(), err
	}
	snap, err := decode(users, characters)
	if err != nil {
		return model.NewSnapshot(), fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return snap, nil
}

// Save upserts both documents in one transaction.
func (s *SQLiteStore) Save(ctx context.Context, snap model.Snapshot) error {
	users, characters, err := encode(snap)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %v", ErrPersistence, err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC().UnixMilli()
	for _, doc := range []struct {
		name string
		body []byte
	}{{UsersDocument, users}, {CharactersDocument, characters}} {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO documents (name, body, updated_at) VALUES (?, ?, ?)
			 ON CONFLICT(name) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at`,
			doc.name, string(doc.body), now,
		); err != nil {
			return fmt.Errorf("%w: upsert %s: %v", ErrPersistence, doc.name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", ErrPersistence, err)
	}
	return nil
}

func (s *SQLiteStore) get(ctx context.Context, name string) ([]byte, error) {
	var body string
	err := s.sqlDB.QueryRowContext(ctx, `SELECT body FROM documents WHERE name = ?`, name).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: select %s: %v", ErrPersistence, name, err)
	}
	return []byte(body), nil
}
