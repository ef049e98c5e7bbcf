package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/KyousabaMC/VeinMiner/internal/persistence/indexdb"
)

// dbCmd queries the sqlite player store and the audit index directly, so
// it also works while the server is down.
func dbCmd(args []string) {
	fs := flag.NewFlagSet("db", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	dbPath := fs.String("db", "", "sqlite db path (optional; defaults to <data>/players.db, or the index for audits|snapshots)")
	limit := fs.Int("limit", 20, "result limit")
	name := fs.String("name", "", "player name or id filter (players|audits)")
	category := fs.String("category", "", "category filter (audits)")
	since := fs.String("since", "", "RFC3339 lower bound (audits)")
	_ = fs.Parse(args)

	q := "players"
	if fs.NArg() > 0 {
		q = strings.TrimSpace(fs.Arg(0))
	}
	path := strings.TrimSpace(*dbPath)
	if path == "" {
		switch q {
		case "audits", "snapshots":
			path = indexdb.Path(*dataDir)
		default:
			path = filepath.Join(*dataDir, "players.db")
		}
	}
	if *limit <= 0 {
		*limit = 20
	}
	if _, err := os.Stat(path); err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	defer db.Close()

	switch q {
	case "players":
		recs, err := queryPlayers(db, *name, *limit)
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			os.Exit(1)
		}
		for _, r := range recs {
			printJSON(r)
		}

	case "stats":
		st, err := queryStats(db)
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			os.Exit(1)
		}
		printJSON(st)

	case "audits":
		aq := indexdb.AuditQuery{Player: *name, Category: *category, Limit: *limit}
		if *since != "" {
			t, err := parseTime(*since)
			if err != nil {
				fmt.Fprintln(os.Stderr, "since:", err)
				os.Exit(2)
			}
			aq.Since = t
		}
		entries, err := indexdb.QueryAudits(context.Background(), db, aq)
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			os.Exit(1)
		}
		for _, e := range entries {
			printJSON(e)
		}

	case "snapshots":
		rows, err := indexdb.QuerySnapshots(context.Background(), db, *limit)
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			os.Exit(1)
		}
		for _, r := range rows {
			printJSON(r)
		}

	default:
		fmt.Fprintln(os.Stderr, "unknown query (want players|stats|audits|snapshots):", q)
		os.Exit(2)
	}
}

type playerRow struct {
	ID                 string   `json:"id"`
	Name               string   `json:"name"`
	ActivationStrategy string   `json:"activation_strategy,omitempty"`
	Pattern            string   `json:"pattern,omitempty"`
	DisabledCategories []string `json:"disabled_categories"`
	UpdatedAt          string   `json:"updated_at"`
}

func queryPlayers(db *sql.DB, name string, limit int) ([]playerRow, error) {
	query := `SELECT id,name,activation_strategy,pattern,disabled_categories,updated_at FROM players`
	params := []any{}
	if name != "" {
		query += ` WHERE name = ? COLLATE NOCASE`
		params = append(params, name)
	}
	query += ` ORDER BY updated_at DESC LIMIT ?`
	params = append(params, limit)

	rows, err := db.Query(query, params...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []playerRow
	for rows.Next() {
		var r playerRow
		var disabled string
		if err := rows.Scan(&r.ID, &r.Name, &r.ActivationStrategy, &r.Pattern, &disabled, &r.UpdatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(disabled), &r.DisabledCategories); err != nil {
			return nil, fmt.Errorf("player %s: disabled categories: %w", r.ID, err)
		}
		if r.DisabledCategories == nil {
			r.DisabledCategories = []string{}
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type storeStats struct {
	SchemaVersion string         `json:"schema_version"`
	Players       int            `json:"players"`
	ByStrategy    map[string]int `json:"players_by_strategy"`
	ByPattern     map[string]int `json:"players_by_pattern"`
}

func queryStats(db *sql.DB) (storeStats, error) {
	st := storeStats{ByStrategy: map[string]int{}, ByPattern: map[string]int{}}
	if err := db.QueryRow(`SELECT value FROM meta WHERE key='schema_version'`).Scan(&st.SchemaVersion); err != nil {
		return st, err
	}
	if err := db.QueryRow(`SELECT COUNT(*) FROM players`).Scan(&st.Players); err != nil {
		return st, err
	}
	for col, m := range map[string]map[string]int{"activation_strategy": st.ByStrategy, "pattern": st.ByPattern} {
		rows, err := db.Query(`SELECT ` + col + `, COUNT(*) FROM players GROUP BY ` + col)
		if err != nil {
			return st, err
		}
		for rows.Next() {
			var k string
			var n int
			if err := rows.Scan(&k, &n); err != nil {
				rows.Close()
				return st, err
			}
			if k == "" {
				k = "(default)"
			}
			m[k] = n
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return st, err
		}
	}
	return st, nil
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}
