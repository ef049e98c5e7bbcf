// Package playerdb persists per-player VeinMiner preferences.
package playerdb

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrClosed = errors.New("playerdb: store closed")

// Record is what survives a disconnect. Empty Pattern means the server
// default; empty ActivationStrategy means the server's default strategy.
type Record struct {
	ID                 uuid.UUID `json:"id"`
	Name               string    `json:"name"`
	ActivationStrategy string    `json:"activation_strategy,omitempty"`
	Pattern            string    `json:"pattern,omitempty"`
	DisabledCategories []string  `json:"disabled_categories,omitempty"`
	UpdatedAt          time.Time `json:"updated_at"`
}

type Store interface {
	// Load returns ok=false when nothing was stored for id.
	Load(ctx context.Context, id uuid.UUID) (rec Record, ok bool, err error)
	Save(ctx context.Context, rec Record) error
	Close() error
}

// Open picks a backend by kind ("sqlite" or "json") rooted at dataDir.
func Open(kind, dataDir string) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", "sqlite":
		return OpenSQLite(filepath.Join(dataDir, "players.db"))
	case "json":
		return OpenJSON(filepath.Join(dataDir, "players"))
	default:
		return nil, fmt.Errorf("playerdb: unknown storage type %q", kind)
	}
}
