package indexdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	persistlog "github.com/KyousabaMC/VeinMiner/internal/persistence/log"
	"github.com/KyousabaMC/VeinMiner/internal/persistence/snapshot"
)

const schemaVersion = "1"

// SQLiteIndex is a queryable read model of served vein mines and written
// snapshots. Writes are queued and applied in batches by one goroutine;
// the JSONL audit files remain the source of truth.
type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	dropAudit    atomic.Uint64
	dropSnapshot atomic.Uint64
	writeFail    atomic.Uint64
	written      atomic.Uint64
}

type Stats struct {
	QueueDepth        int    `json:"queue_depth"`
	QueueCapacity     int    `json:"queue_capacity"`
	WrittenTotal      uint64 `json:"written_total"`
	DropAuditTotal    uint64 `json:"drop_audit_total"`
	DropSnapshotTotal uint64 `json:"drop_snapshot_total"`
	WriteFailTotal    uint64 `json:"write_fail_total"`
}

type reqKind int

const (
	reqAudit reqKind = iota + 1
	reqSnapshot
)

type req struct {
	kind reqKind

	audit    persistlog.AuditEntry
	snapshot SnapshotRow
}

type SnapshotRow struct {
	Tick    uint64 `json:"tick"`
	Path    string `json:"path"`
	World   string `json:"world"`
	Seed    int64  `json:"seed"`
	Chunks  int    `json:"chunks"`
	Palette int    `json:"palette"`
	SavedAt string `json:"saved_at"`
}

// Path is the default index location under dataDir.
func Path(dataDir string) string {
	return filepath.Join(dataDir, "index", "veinminer.sqlite")
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	return openSQLite(path, 65536)
}

func openSQLite(path string, queue int) (*SQLiteIndex, error) {
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

	s := &SQLiteIndex{
		db: db,
		ch: make(chan req, queue),
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
		`CREATE TABLE IF NOT EXISTS vein_mines (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			time TEXT NOT NULL,
			player_id TEXT NOT NULL,
			player TEXT NOT NULL,
			world TEXT NOT NULL,
			category TEXT NOT NULL,
			pattern TEXT NOT NULL,
			x INTEGER NOT NULL,
			y INTEGER NOT NULL,
			z INTEGER NOT NULL,
			face TEXT NOT NULL,
			blocks INTEGER NOT NULL,
			raw_json TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_vein_mines_player_time ON vein_mines(player COLLATE NOCASE, time);`,
		`CREATE INDEX IF NOT EXISTS idx_vein_mines_category ON vein_mines(category, time);`,
		`CREATE TABLE IF NOT EXISTS snapshots (
			tick INTEGER PRIMARY KEY,
			path TEXT NOT NULL,
			world TEXT NOT NULL,
			seed INTEGER NOT NULL,
			chunks INTEGER NOT NULL,
			palette INTEGER NOT NULL,
			saved_at TEXT NOT NULL
		);`,
		`INSERT OR IGNORE INTO meta(key,value) VALUES('schema_version','` + schemaVersion + `');`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

// Close drains the queue, commits and closes the database.
func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *SQLiteIndex) WriteAudit(entry persistlog.AuditEntry) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- req{kind: reqAudit, audit: entry}:
	default:
		s.dropAudit.Add(1)
	}
	return nil
}

func (s *SQLiteIndex) RecordSnapshot(path string, snap snapshot.SnapshotV1) {
	if s == nil || s.closed.Load() {
		return
	}
	r := SnapshotRow{
		Tick:    snap.Header.Tick,
		Path:    path,
		World:   snap.Header.World,
		Seed:    snap.Seed,
		Chunks:  len(snap.Chunks),
		Palette: len(snap.Palette),
		SavedAt: snap.Header.SavedAt.UTC().Format(time.RFC3339Nano),
	}
	select {
	case s.ch <- req{kind: reqSnapshot, snapshot: r}:
	default:
		s.dropSnapshot.Add(1)
	}
}

func (s *SQLiteIndex) Stats() Stats {
	return Stats{
		QueueDepth:        len(s.ch),
		QueueCapacity:     cap(s.ch),
		WrittenTotal:      s.written.Load(),
		DropAuditTotal:    s.dropAudit.Load(),
		DropSnapshotTotal: s.dropSnapshot.Load(),
		WriteFailTotal:    s.writeFail.Load(),
	}
}

// RecentAudits queries indexed vein mines. Rows still queued are not
// visible until the next commit.
func (s *SQLiteIndex) RecentAudits(ctx context.Context, q AuditQuery) ([]persistlog.AuditEntry, error) {
	return QueryAudits(ctx, s.db, q)
}

func (s *SQLiteIndex) Snapshots(ctx context.Context, limit int) ([]SnapshotRow, error) {
	return QuerySnapshots(ctx, s.db, limit)
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertAudit, _ := s.db.Prepare(`INSERT INTO vein_mines(time,player_id,player,world,category,pattern,x,y,z,face,blocks,raw_json) VALUES(?,?,?,?,?,?,?,?,?,?,?,?)`)
	insertSnapshot, _ := s.db.Prepare(`INSERT OR REPLACE INTO snapshots(tick,path,world,seed,chunks,palette,saved_at) VALUES(?,?,?,?,?,?,?)`)
	defer func() {
		if insertAudit != nil {
			_ = insertAudit.Close()
		}
		if insertSnapshot != nil {
			_ = insertSnapshot.Close()
		}
	}()

	var (
		tx            *sql.Tx
		pending       uint64
		lastCommit    = time.Now()
		commitEvery   = 500
		commitMaxWait = time.Second
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		pending = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		if err := tx.Commit(); err != nil {
			s.writeFail.Add(pending)
		} else {
			s.written.Add(pending)
		}
		tx = nil
		pending = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		s.writeFail.Add(pending + 1)
		tx = nil
		pending = 0
		lastCommit = time.Now()
	}

	// An idle queue still commits within commitMaxWait.
	ticker := time.NewTicker(commitMaxWait)
	defer ticker.Stop()

	for {
		var r req
		var ok bool
		select {
		case r, ok = <-s.ch:
			if !ok {
				commit()
				return
			}
		case <-ticker.C:
			commit()
			continue
		}

		begin()
		if tx == nil {
			s.writeFail.Add(1)
			continue
		}
		switch r.kind {
		case reqAudit:
			a := r.audit
			raw, _ := json.Marshal(a)
			if insertAudit == nil {
				continue
			}
			if _, err := tx.Stmt(insertAudit).Exec(
				a.Time.UTC().Format(time.RFC3339Nano),
				a.PlayerID,
				a.Player,
				a.World,
				a.Category,
				a.Pattern,
				a.Origin[0], a.Origin[1], a.Origin[2],
				a.Face,
				len(a.Positions),
				string(raw),
			); err != nil {
				rollback()
				continue
			}
			pending++

		case reqSnapshot:
			sn := r.snapshot
			if insertSnapshot == nil {
				continue
			}
			if _, err := tx.Stmt(insertSnapshot).Exec(
				int64(sn.Tick),
				sn.Path,
				sn.World,
				sn.Seed,
				sn.Chunks,
				sn.Palette,
				sn.SavedAt,
			); err != nil {
				rollback()
				continue
			}
			pending++
		}
		if int(pending) >= commitEvery || time.Since(lastCommit) >= commitMaxWait {
			commit()
		}
	}
}

// AuditQuery filters indexed vein mines. Zero fields match everything.
type AuditQuery struct {
	Player   string
	Category string
	Since    time.Time
	Limit    int
}

// QueryAudits returns matching entries, newest last. It works on any open
// index database, including one opened read-only by tooling.
func QueryAudits(ctx context.Context, db *sql.DB, q AuditQuery) ([]persistlog.AuditEntry, error) {
	var where []string
	var params []any
	if q.Player != "" {
		where = append(where, `(player = ? COLLATE NOCASE OR player_id = ?)`)
		params = append(params, q.Player, q.Player)
	}
	if q.Category != "" {
		where = append(where, `category = ? COLLATE NOCASE`)
		params = append(params, q.Category)
	}
	if !q.Since.IsZero() {
		where = append(where, `time >= ?`)
		params = append(params, q.Since.UTC().Format(time.RFC3339Nano))
	}
	query := `SELECT raw_json FROM vein_mines`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, ` AND `)
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 50
	}
	query += ` ORDER BY id DESC LIMIT ?`
	params = append(params, limit)

	rows, err := db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []persistlog.AuditEntry
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var e persistlog.AuditEntry
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func QuerySnapshots(ctx context.Context, db *sql.DB, limit int) ([]SnapshotRow, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.QueryContext(ctx, `SELECT tick,path,world,seed,chunks,palette,saved_at FROM snapshots ORDER BY tick DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []SnapshotRow
	for rows.Next() {
		var r SnapshotRow
		var tick int64
		if err := rows.Scan(&tick, &r.Path, &r.World, &r.Seed, &r.Chunks, &r.Palette, &r.SavedAt); err != nil {
			return nil, err
		}
		r.Tick = uint64(tick)
		out = append(out, r)
	}
	return out, rows.Err()
}
