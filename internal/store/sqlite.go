package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"stopdesk/internal/domain"
)

// SQLiteStore keeps each stop document as a JSON blob next to its key and
// desk url code.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// :memory: databases are per connection.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.init(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) init() error {
	schema := `
	CREATE TABLE IF NOT EXISTS stops (
		id TEXT PRIMARY KEY,
		desk_url_code TEXT,
		doc TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_desk_url_code ON stops(desk_url_code);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) Upsert(ctx context.Context, key string, doc *domain.RawStop) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("json marshal: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO stops (id, desk_url_code, doc) VALUES (?, ?, ?)`,
		key, nullable(doc.DeskURLCode), string(data),
	)
	if err != nil {
		return fmt.Errorf("upsert stop: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, key string) (*domain.RawStop, error) {
	row := s.db.QueryRowContext(ctx, `SELECT doc FROM stops WHERE id = ?`, key)
	return scanDoc(row)
}

func (s *SQLiteStore) FindOne(ctx context.Context, field, value string) (*domain.RawStop, error) {
	if field != FieldDeskURLCode {
		return nil, ErrNotFound
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT doc FROM stops WHERE desk_url_code = ? ORDER BY id LIMIT 1`, value)
	return scanDoc(row)
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func scanDoc(row *sql.Row) (*domain.RawStop, error) {
	var data string
	if err := row.Scan(&data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query stop: %w", err)
	}
	var doc domain.RawStop
	if err := json.Unmarshal([]byte(data), &doc); err != nil {
		return nil, fmt.Errorf("json unmarshal: %w", err)
	}
	return &doc, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
