package playerdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLiteStore serializes all access through one writer goroutine so a Load
// always observes every Save queued before it.
type SQLiteStore struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	// mu guards sends on ch against Close.
	mu     sync.RWMutex
	closed atomic.Bool
}

type reqKind int

const (
	reqSave reqKind = iota + 1
	reqLoad
)

type req struct {
	kind  reqKind
	rec   Record
	id    uuid.UUID
	reply chan result
}

type result struct {
	rec Record
	ok  bool
	err error
}

func OpenSQLite(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteStore{
		db: db,
		ch: make(chan req, 1024),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS players (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			activation_strategy TEXT NOT NULL,
			pattern TEXT NOT NULL,
			disabled_categories TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`INSERT OR IGNORE INTO meta(key,value) VALUES('schema_version','1');`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	var err error
	s.once.Do(func() {
		s.mu.Lock()
		s.closed.Store(true)
		close(s.ch)
		s.mu.Unlock()
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *SQLiteStore) Save(ctx context.Context, rec Record) error {
	if rec.ID == uuid.Nil {
		return fmt.Errorf("playerdb: save: nil player id")
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now().UTC()
	}
	r, err := s.do(ctx, req{kind: reqSave, rec: rec})
	if err != nil {
		return err
	}
	return r.err
}

func (s *SQLiteStore) Load(ctx context.Context, id uuid.UUID) (Record, bool, error) {
	r, err := s.do(ctx, req{kind: reqLoad, id: id})
	if err != nil {
		return Record{}, false, err
	}
	return r.rec, r.ok, r.err
}

func (s *SQLiteStore) do(ctx context.Context, q req) (result, error) {
	if s == nil {
		return result{}, ErrClosed
	}
	q.reply = make(chan result, 1)
	s.mu.RLock()
	if s.closed.Load() {
		s.mu.RUnlock()
		return result{}, ErrClosed
	}
	select {
	case s.ch <- q:
		s.mu.RUnlock()
	case <-ctx.Done():
		s.mu.RUnlock()
		return result{}, ctx.Err()
	}
	select {
	case r := <-q.reply:
		return r, nil
	case <-ctx.Done():
		return result{}, ctx.Err()
	}
}

func (s *SQLiteStore) loop() {
	upsert, err := s.db.Prepare(`INSERT OR REPLACE INTO players(id,name,activation_strategy,pattern,disabled_categories,updated_at) VALUES(?,?,?,?,?,?)`)
	if err != nil {
		for q := range s.ch {
			q.reply <- result{err: fmt.Errorf("playerdb: prepare: %w", err)}
		}
		return
	}
	defer upsert.Close()

	for q := range s.ch {
		switch q.kind {
		case reqSave:
			q.reply <- result{err: s.save(upsert, q.rec)}
		case reqLoad:
			rec, ok, err := s.load(q.id)
			q.reply <- result{rec: rec, ok: ok, err: err}
		}
	}
}

func (s *SQLiteStore) save(stmt *sql.Stmt, rec Record) error {
	disabled := rec.DisabledCategories
	if disabled == nil {
		disabled = []string{}
	}
	b, err := json.Marshal(disabled)
	if err != nil {
		return err
	}
	_, err = stmt.Exec(rec.ID.String(), rec.Name, rec.ActivationStrategy, rec.Pattern, string(b), rec.UpdatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("playerdb: save %s: %w", rec.ID, err)
	}
	return nil
}

func (s *SQLiteStore) load(id uuid.UUID) (Record, bool, error) {
	var name, strategy, pattern, disabled, updated string
	row := s.db.QueryRow(`SELECT name,activation_strategy,pattern,disabled_categories,updated_at FROM players WHERE id=?`, id.String())
	if err := row.Scan(&name, &strategy, &pattern, &disabled, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, false, nil
		}
		return Record{}, false, fmt.Errorf("playerdb: load %s: %w", id, err)
	}
	rec := Record{ID: id, Name: name, ActivationStrategy: strategy, Pattern: pattern}
	if err := json.Unmarshal([]byte(disabled), &rec.DisabledCategories); err != nil {
		return Record{}, false, fmt.Errorf("playerdb: load %s: disabled categories: %w", id, err)
	}
	if len(rec.DisabledCategories) == 0 {
		rec.DisabledCategories = nil
	}
	rec.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)
	return rec, true, nil
}
