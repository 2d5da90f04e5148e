// Package sqlite provides a SQLite-backed persistent store. It reuses the
// in-memory implementation for transactional semantics and snapshots every
// collection to a single state table as a JSON array after each successful
// commit.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"bookcore/internal/infra/persistence/memory"
	"bookcore/pkg/domain"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

var _ domain.PersistentStore = (*Store)(nil)

// Collection bucket names, one row per collection in the state table.
var buckets = []string{"users", "companies", "services", "availabilities", "appointments"}

// Store persists the in-memory state to a single SQLite table as JSON blobs.
type Store struct {
	*memory.Store
	db   *sql.DB
	mu   sync.Mutex
	path string
}

// NewStore constructs a snapshotting SQLite-backed persistent store.
func NewStore(path string, engine *domain.RulesEngine) (*Store, error) {
	if path == "" {
		path = "bookcore.db"
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, domain.StoreIOError{Op: "create dirs", Err: err}
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, domain.StoreIOError{Op: "open sqlite", Err: err}
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS state (
		bucket TEXT PRIMARY KEY,
		payload BLOB NOT NULL
	)`); err != nil {
		return nil, domain.StoreIOError{Op: "create state table", Err: err}
	}
	s := &Store{Store: memory.NewStore(engine), db: db, path: path}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) load() error {
	rows, err := s.db.Query(`SELECT bucket, payload FROM state`)
	if err != nil {
		return domain.StoreIOError{Op: "select state", Err: err}
	}
	defer func() { _ = rows.Close() }()

	snapshot := memory.Snapshot{}
	loaded := false
	for rows.Next() {
		var bucket string
		var payload []byte
		if err := rows.Scan(&bucket, &payload); err != nil {
			return domain.StoreIOError{Op: "scan state", Err: err}
		}
		if err := decodeBucket(&snapshot, bucket, payload); err != nil {
			return err
		}
		loaded = true
	}
	if err := rows.Err(); err != nil {
		return domain.StoreIOError{Op: "iterate state", Err: err}
	}
	if loaded {
		s.ImportState(snapshot)
	}
	return nil
}

func decodeBucket(snapshot *memory.Snapshot, bucket string, payload []byte) error {
	var err error
	switch bucket {
	case "users":
		err = json.Unmarshal(payload, &snapshot.Users)
	case "companies":
		err = json.Unmarshal(payload, &snapshot.Companies)
	case "services":
		err = json.Unmarshal(payload, &snapshot.Services)
	case "availabilities":
		err = json.Unmarshal(payload, &snapshot.Availabilities)
	case "appointments":
		err = json.Unmarshal(payload, &snapshot.Appointments)
	}
	if err != nil {
		return domain.StoreIOError{Op: fmt.Sprintf("decode %s", bucket), Err: err}
	}
	return nil
}

func encodeBucket(snapshot memory.Snapshot, bucket string) ([]byte, error) {
	switch bucket {
	case "users":
		return json.Marshal(snapshot.Users)
	case "companies":
		return json.Marshal(snapshot.Companies)
	case "services":
		return json.Marshal(snapshot.Services)
	case "availabilities":
		return json.Marshal(snapshot.Availabilities)
	case "appointments":
		return json.Marshal(snapshot.Appointments)
	}
	return nil, fmt.Errorf("unknown bucket %s", bucket)
}

func (s *Store) persist() (retErr error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := s.ExportState()
	tx, err := s.db.Begin()
	if err != nil {
		return domain.StoreIOError{Op: "begin persist", Err: err}
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	for _, bucket := range buckets {
		data, err := encodeBucket(snapshot, bucket)
		if err != nil {
			retErr = domain.StoreIOError{Op: fmt.Sprintf("encode %s", bucket), Err: err}
			return retErr
		}
		if _, err := tx.Exec(`INSERT INTO state(bucket,payload) VALUES(?,?) ON CONFLICT(bucket) DO UPDATE SET payload=excluded.payload`, bucket, data); err != nil {
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
// snapshots state to SQLite if successful.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx domain.Transaction) error) (domain.Result, error) {
	res, err := s.Store.RunInTransaction(ctx, fn)
	if err != nil {
		return res, err
	}
	if pErr := s.persist(); pErr != nil {
		return res, pErr
	}
	return res, nil
}

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Path returns the configured database path.
func (s *Store) Path() string { return s.path }
