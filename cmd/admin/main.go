package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	persistlog "github.com/KyousabaMC/VeinMiner/internal/persistence/log"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "audit":
			auditCmd(os.Args[2:])
			return
		case "db":
			dbCmd(os.Args[2:])
			return
		case "state", "players", "reload", "snapshot", "strategy", "pattern", "category", "block":
			httpCmd(os.Args[1], os.Args[2:])
			return
		}
	}
	listCmd(os.Args[1:])
}

// listCmd prints the audit files under the data directory.
func listCmd(args []string) {
	fs := flag.NewFlagSet("admin", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	_ = fs.Parse(args)

	files, err := persistlog.ListAuditFiles(persistlog.AuditDir(*dataDir))
	if err != nil {
		fmt.Fprintln(os.Stderr, "read:", err)
		os.Exit(1)
	}
	for _, f := range files {
		fmt.Println(filepath.Base(f))
	}
}

type auditFilter struct {
	Player   string
	Category string
	Since    time.Time
	Until    time.Time
}

func (f auditFilter) match(e persistlog.AuditEntry) bool {
	if f.Player != "" && !strings.EqualFold(f.Player, e.Player) && f.Player != e.PlayerID {
		return false
	}
	if f.Category != "" && !strings.EqualFold(f.Category, e.Category) {
		return false
	}
	if !f.Since.IsZero() && e.Time.Before(f.Since) {
		return false
	}
	if !f.Until.IsZero() && e.Time.After(f.Until) {
		return false
	}
	return true
}

type auditSummary struct {
	Entries    int            `json:"entries"`
	Blocks     int            `json:"blocks"`
	MaxVein    int            `json:"max_vein"`
	ByPlayer   map[string]int `json:"blocks_by_player"`
	ByCategory map[string]int `json:"blocks_by_category"`
	ByPattern  map[string]int `json:"requests_by_pattern"`
}

func newAuditSummary() *auditSummary {
	return &auditSummary{ByPlayer: map[string]int{}, ByCategory: map[string]int{}, ByPattern: map[string]int{}}
}

func (s *auditSummary) add(e persistlog.AuditEntry) {
	n := len(e.Positions)
	s.Entries++
	s.Blocks += n
	if n > s.MaxVein {
		s.MaxVein = n
	}
	s.ByPlayer[e.Player] += n
	s.ByCategory[e.Category] += n
	s.ByPattern[e.Pattern]++
}

// auditCmd prints matching vein-mine audit entries, or a summary with -summary.
func auditCmd(args []string) {
	fs := flag.NewFlagSet("audit", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	player := fs.String("player", "", "player name or id filter")
	category := fs.String("category", "", "tool category filter")
	since := fs.String("since", "", "RFC3339 lower bound (optional)")
	until := fs.String("until", "", "RFC3339 upper bound (optional)")
	summary := fs.Bool("summary", false, "print totals instead of entries")
	_ = fs.Parse(args)

	filter := auditFilter{Player: strings.TrimSpace(*player), Category: strings.TrimSpace(*category)}
	var err error
	if filter.Since, err = parseTime(*since); err != nil {
		fmt.Fprintln(os.Stderr, "bad -since:", err)
		os.Exit(2)
	}
	if filter.Until, err = parseTime(*until); err != nil {
		fmt.Fprintln(os.Stderr, "bad -until:", err)
		os.Exit(2)
	}

	sum, err := scanAudit(persistlog.AuditDir(*dataDir), filter, func(e persistlog.AuditEntry) {
		if !*summary {
			printJSON(e)
		}
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "read audit:", err)
		os.Exit(1)
	}
	if *summary {
		printJSON(sum)
	}
}

func scanAudit(dir string, filter auditFilter, fn func(persistlog.AuditEntry)) (*auditSummary, error) {
	files, err := persistlog.ListAuditFiles(dir)
	if err != nil {
		return nil, err
	}
	sum := newAuditSummary()
	for _, path := range files {
		err := persistlog.ReadAuditFile(path, func(e persistlog.AuditEntry) error {
			if !filter.match(e) {
				return nil
			}
			sum.add(e)
			fn(e)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
	}
	return sum, nil
}

func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, s)
}
