package tokenstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

type kvEntry struct {
	bun.BaseModel `bun:"table:kv_store,alias:kv"`

	Key       string    `bun:"item_key,pk"`
	Value     string    `bun:"item_value,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

// SQLStore is a Store backed by a SQL table through bun.
type SQLStore struct {
	db *bun.DB
}

// NewSQLStore wraps an open bun database. Call Migrate before first use.
func NewSQLStore(db *bun.DB) *SQLStore {
	return &SQLStore{db: db}
}

// OpenSQLite opens (or creates) a SQLite database at dsn and migrates it.
// Use ":memory:" for a throwaway database.
func OpenSQLite(ctx context.Context, dsn string) (*SQLStore, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, fmt.Errorf("tokenstore: open sqlite: %w", err)
	}
	// SQLite serializes writers; a single connection also keeps :memory: alive.
	sqldb.SetMaxOpenConns(1)

	s := NewSQLStore(bun.NewDB(sqldb, sqlitedialect.New()))
	if err := s.Migrate(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

// Migrate creates the key-value table if it does not exist.
func (s *SQLStore) Migrate(ctx context.Context) error {
	_, err := s.db.NewCreateTable().
		Model((*kvEntry)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("tokenstore: migrate: %w", err)
	}
	return nil
}

func (s *SQLStore) Get(ctx context.Context, key string) (string, bool, error) {
	if err := ValidateKey(key); err != nil {
		return "", false, err
	}

	var entry kvEntry
	err := s.db.NewSelect().
		Model(&entry).
		Where("item_key = ?", key).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("tokenstore: get %s: %w", key, err)
	}
	return entry.Value, true, nil
}

func (s *SQLStore) Set(ctx context.Context, key, value string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}

	entry := &kvEntry{Key: key, Value: value, UpdatedAt: time.Now().UTC()}
	_, err := s.db.NewInsert().
		Model(entry).
		On("CONFLICT (item_key) DO UPDATE").
		Set("item_value = EXCLUDED.item_value").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("tokenstore: set %s: %w", key, err)
	}
	return nil
}

func (s *SQLStore) Remove(ctx context.Context, key string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}

	_, err := s.db.NewDelete().
		Model((*kvEntry)(nil)).
		Where("item_key = ?", key).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("tokenstore: remove %s: %w", key, err)
	}
	return nil
}

// Ping checks the database connection.
func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the underlying database.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

var _ Store = (*SQLStore)(nil)
