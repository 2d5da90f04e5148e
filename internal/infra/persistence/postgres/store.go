// Package postgres provides a Postgres-backed persistent store that mirrors
// the in-memory semantics and snapshots each collection into a JSONB state
// table after every successful commit.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	"bookcore/internal/infra/persistence/memory"
	"bookcore/pkg/domain"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
)

var _ domain.PersistentStore = (*Store)(nil)

const (
	driverName = "pgx"
	defaultDSN = "postgres://localhost/bookcore?sslmode=disable"
)

var buckets = []string{"users", "companies", "services", "availabilities", "appointments"}

// Store persists state to Postgres while reusing the in-memory implementation
// for transactions.
type Store struct {
	*memory.Store
	db *sql.DB
	mu sync.Mutex
}

// NewStore opens a Postgres-backed store using the provided DSN (falls back to
// defaultDSN), ensures the snapshot table exists, and hydrates the in-memory
// store from any existing snapshot.
func NewStore(dsn string, engine *domain.RulesEngine) (*Store, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, domain.StoreIOError{Op: "open postgres", Err: err}
	}
	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		return nil, domain.StoreIOError{Op: "ping postgres", Err: err}
	}
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS state (
		bucket TEXT PRIMARY KEY,
		payload JSONB NOT NULL
	)`); err != nil {
		return nil, domain.StoreIOError{Op: "ensure state table", Err: err}
	}
	snapshot, loaded, err := loadSnapshot(ctx, db)
	if err != nil {
		return nil, err
	}
	mem := memory.NewStore(engine)
	if loaded {
		mem.ImportState(snapshot)
	}
	return &Store{Store: mem, db: db}, nil
}

func loadSnapshot(ctx context.Context, db *sql.DB) (memory.Snapshot, bool, error) {
	rows, err := db.QueryContext(ctx, `SELECT bucket, payload FROM state`)
	if err != nil {
		return memory.Snapshot{}, false, domain.StoreIOError{Op: "select state", Err: err}
	}
	defer func() { _ = rows.Close() }()

	snapshot := memory.Snapshot{}
	loaded := false
	for rows.Next() {
		var bucket string
		var payload []byte
		if err := rows.Scan(&bucket, &payload); err != nil {
			return memory.Snapshot{}, false, domain.StoreIOError{Op: "scan state", Err: err}
		}
		var decodeErr error
		switch bucket {
		case "users":
			decodeErr = json.Unmarshal(payload, &snapshot.Users)
		case "companies":
			decodeErr = json.Unmarshal(payload, &snapshot.Companies)
		case "services":
			decodeErr = json.Unmarshal(payload, &snapshot.Services)
		case "availabilities":
			decodeErr = json.Unmarshal(payload, &snapshot.Availabilities)
		case "appointments":
			decodeErr = json.Unmarshal(payload, &snapshot.Appointments)
		}
		if decodeErr != nil {
			return memory.Snapshot{}, false, domain.StoreIOError{Op: fmt.Sprintf("decode %s", bucket), Err: decodeErr}
		}
		loaded = true
	}
	if err := rows.Err(); err != nil {
		return memory.Snapshot{}, false, domain.StoreIOError{Op: "iterate state", Err: err}
	}
	return snapshot, loaded, nil
}

func (s *Store) persist(ctx context.Context) (retErr error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := s.ExportState()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.StoreIOError{Op: "begin persist", Err: err}
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	payloads := map[string]any{
		"users":          snapshot.Users,
		"companies":      snapshot.Companies,
		"services":       snapshot.Services,
		"availabilities": snapshot.Availabilities,
		"appointments":   snapshot.Appointments,
	}
	for _, bucket := range buckets {
		data, err := json.Marshal(payloads[bucket])
		if err != nil {
			retErr = domain.StoreIOError{Op: fmt.Sprintf("encode %s", bucket), Err: err}
			return retErr
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO state(bucket,payload) VALUES($1,$2) ON CONFLICT(bucket) DO UPDATE SET payload=excluded.payload`, bucket, data); err != nil {
			retErr = domain.StoreIOError{Op: fmt.Sprintf("upsert %s", bucket), Err: err}
			return retErr
		}
	}
	if err := tx.Commit(); err != nil {
		return domain.StoreIOError{Op: "commit persist", Err: err}
	}
	return nil
}

// RunInTransaction applies the provided function within a transaction, then
// snapshots to Postgres if successful.
func (s *Store) RunInTransaction(ctx context.Context, fn func(domain.Transaction) error) (domain.Result, error) {
	res, err := s.Store.RunInTransaction(ctx, fn)
	if err != nil {
		return res, err
	}
	if pErr := s.persist(ctx); pErr != nil {
		return res, pErr
	}
	return res, nil
}

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }
