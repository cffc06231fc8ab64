package metastore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/lib/pq"

	"github.com/spachava753/imagecrawl/internal/models"
)

// PostgresStore keeps each table as (partition_key, row_key, fields JSONB).
// Tables are created on first use.
type PostgresStore struct {
	DB *sql.DB

	mu     sync.Mutex
	tables map[string]bool
}

// OpenPostgres opens and pings the database at dsn.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening postgres database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging postgres database: %w", err)
	}
	return NewPostgresStore(db), nil
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{DB: db, tables: make(map[string]bool)}
}

// EnsureTable creates table if it does not exist.
func (s *PostgresStore) EnsureTable(ctx context.Context, table string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tables[table] {
		return nil
	}
	if _, err := s.DB.ExecContext(ctx, createTableSQL(table)); err != nil {
		return fmt.Errorf("creating postgres table `%s`: %w", table, err)
	}
	s.tables[table] = true
	return nil
}

// DropTable drops table if it exists.
func (s *PostgresStore) DropTable(ctx context.Context, table string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.DB.ExecContext(ctx, "DROP TABLE IF EXISTS "+pq.QuoteIdentifier(table)); err != nil {
		return fmt.Errorf("dropping postgres table `%s`: %w", table, err)
	}
	delete(s.tables, table)
	return nil
}

// Upsert implements Upserter.
func (s *PostgresStore) Upsert(ctx context.Context, rec models.Record) error {
	if err := s.EnsureTable(ctx, rec.Table); err != nil {
		return err
	}

	fields, err := json.Marshal(rec.Fields)
	if err != nil {
		return fmt.Errorf("marshaling fields: %w", err)
	}

	if _, err := s.DB.ExecContext(ctx, upsertSQL(rec.Table), rec.PartitionKey, rec.RowKey, fields); err != nil {
		return fmt.Errorf("upserting %s/%s into `%s`: %w", rec.PartitionKey, rec.RowKey, rec.Table, err)
	}
	return nil
}

// Get returns the fields stored under the given keys.
func (s *PostgresStore) Get(ctx context.Context, table, partitionKey, rowKey string) (map[string]any, error) {
	var raw []byte
	err := s.DB.QueryRowContext(
		ctx,
		fmt.Sprintf("SELECT fields FROM %s WHERE partition_key=$1 AND row_key=$2", pq.QuoteIdentifier(table)),
		partitionKey,
		rowKey,
	).Scan(&raw)
	if err != nil {
		return nil, fmt.Errorf("getting %s/%s from `%s`: %w", partitionKey, rowKey, table, err)
	}

	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("unmarshaling fields: %w", err)
	}
	return fields, nil
}

func createTableSQL(table string) string {
	return fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s ("+
			"partition_key TEXT NOT NULL, "+
			"row_key TEXT NOT NULL, "+
			"fields JSONB NOT NULL, "+
			"updated_at TIMESTAMPTZ NOT NULL DEFAULT now(), "+
			"PRIMARY KEY (partition_key, row_key))",
		pq.QuoteIdentifier(table),
	)
}

func upsertSQL(table string) string {
	return fmt.Sprintf(
		"INSERT INTO %s (partition_key, row_key, fields) VALUES ($1, $2, $3) "+
			"ON CONFLICT (partition_key, row_key) DO UPDATE SET fields=EXCLUDED.fields, updated_at=now()",
		pq.QuoteIdentifier(table),
	)
}
