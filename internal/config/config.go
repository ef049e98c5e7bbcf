// Package config loads veinminer.yaml and the VEINMINER_* runtime environment.
package config

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/KyousabaMC/VeinMiner/internal/protocol"
)

type Config struct {
	DefaultActivationStrategy string `yaml:"default_activation_strategy"`
	DefaultPattern            string `yaml:"default_pattern"`

	Client      protocol.ClientConfig `yaml:"client"`
	Limits      LimitsConfig          `yaml:"limits"`
	World       WorldConfig           `yaml:"world"`
	Patterns    PatternsConfig        `yaml:"patterns"`
	Categories  []CategorySpec        `yaml:"categories"`
	Aliases     []AliasSpec           `yaml:"aliases"`
	Permissions PermissionsConfig     `yaml:"permissions"`
	Storage     StorageConfig         `yaml:"storage"`
	Audit       AuditConfig           `yaml:"audit"`
	Log         LogConfig             `yaml:"log"`
}

type LimitsConfig struct {
	RayTraceDistance  int     `yaml:"ray_trace_distance"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	RequestBurst      int     `yaml:"request_burst"`
}

type WorldConfig struct {
	Name             string `yaml:"name"`
	Seed             int64  `yaml:"seed"`
	MinY             int    `yaml:"min_y"`
	MaxY             int    `yaml:"max_y"`
	SurfaceY         int    `yaml:"surface_y"`
	SurfaceAmplitude int    `yaml:"surface_amplitude"`
	OrePermille      int    `yaml:"ore_permille"`
	TreePermille     int    `yaml:"tree_permille"`
}

type PatternsConfig struct {
	CubeRadius int `yaml:"cube_radius"`
	// Permissions overrides the node of a pattern key. An empty value makes
	// the pattern available to everyone.
	Permissions map[string]string `yaml:"permissions,omitempty"`
}

type CategorySpec struct {
	ID             string   `yaml:"id"`
	Priority       int      `yaml:"priority"`
	Items          []string `yaml:"items"`
	Blocks         []string `yaml:"blocks"`
	MaxVeinSize    int      `yaml:"max_vein_size"`
	DisabledWorlds []string `yaml:"disabled_worlds,omitempty"`
}

type AliasSpec struct {
	Name   string   `yaml:"name"`
	Blocks []string `yaml:"blocks"`
}

// PermissionsConfig grants nodes to connected players. A node ending in ".*"
// grants every node under its prefix.
type PermissionsConfig struct {
	Default []string            `yaml:"default"`
	Players map[string][]string `yaml:"players,omitempty"`
}

type StorageConfig struct {
	Type          string        `yaml:"type"`
	FlushInterval time.Duration `yaml:"flush_interval"`

	// Snapshots persists world edits across restarts.
	Snapshots        bool          `yaml:"snapshots"`
	SnapshotInterval time.Duration `yaml:"snapshot_interval"`
	SnapshotKeep     int           `yaml:"snapshot_keep"`
}

type AuditConfig struct {
	Enabled bool `yaml:"enabled"`
	// Index mirrors audit entries and snapshots into a queryable sqlite db.
	Index bool `yaml:"index"`
}

type LogConfig struct {
	Level  string        `yaml:"level"`
	Format string        `yaml:"format"`
	Output string        `yaml:"output"`
	File   LogFileConfig `yaml:"file"`
}

type LogFileConfig struct {
	Path       string `yaml:"path"`
	Filename   string `yaml:"filename"`
	MaxSize    int    `yaml:"max_size"`
	MaxAge     int    `yaml:"max_age"`
	MaxBackups int    `yaml:"max_backups"`
	Compress   bool   `yaml:"compress"`
}

func Load(path string) (Config, error) {
	cfg := defaults()
	if strings.TrimSpace(path) == "" {
		cfg.Normalize()
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	return Parse(b)
}

// Parse decodes a YAML document over the defaults.
func Parse(b []byte) (Config, error) {
	cfg := defaults()
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("veinminer.yaml: %w", err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("veinminer.yaml: %w", err)
	}
	return cfg, nil
}

func defaults() Config {
	return Config{
		DefaultActivationStrategy: "SNEAK",
		DefaultPattern:            "veinminer:default",
		Client:                    protocol.DefaultClientConfig(),
		Limits: LimitsConfig{
			RayTraceDistance:  6,
			RequestsPerSecond: 10,
			RequestBurst:      5,
		},
		World: WorldConfig{
			Name:             "world",
			Seed:             1337,
			MinY:             -32,
			MaxY:             128,
			SurfaceY:         64,
			SurfaceAmplitude: 4,
			OrePermille:      1000,
			TreePermille:     350,
		},
		Patterns: PatternsConfig{CubeRadius: 2},
		Categories: []CategorySpec{
			{
				ID:          "pickaxe",
				Items:       []string{"wooden_pickaxe", "stone_pickaxe", "iron_pickaxe", "golden_pickaxe", "diamond_pickaxe", "netherite_pickaxe"},
				Blocks:      []string{"coal_ore", "deepslate_coal_ore", "iron_ore", "deepslate_iron_ore", "copper_ore", "deepslate_copper_ore", "gold_ore", "deepslate_gold_ore", "diamond_ore", "deepslate_diamond_ore"},
				MaxVeinSize: 64,
			},
			{
				ID:          "axe",
				Items:       []string{"wooden_axe", "stone_axe", "iron_axe", "golden_axe", "diamond_axe", "netherite_axe"},
				Blocks:      []string{"oak_log", "birch_log", "spruce_log", "jungle_log", "acacia_log", "dark_oak_log"},
				MaxVeinSize: 64,
			},
			{
				ID:          "shovel",
				Items:       []string{"wooden_shovel", "stone_shovel", "iron_shovel", "golden_shovel", "diamond_shovel", "netherite_shovel"},
				Blocks:      []string{"clay", "gravel", "sand"},
				MaxVeinSize: 64,
			},
		},
		Aliases: []AliasSpec{
			{Name: "coal", Blocks: []string{"coal_ore", "deepslate_coal_ore"}},
			{Name: "iron", Blocks: []string{"iron_ore", "deepslate_iron_ore"}},
			{Name: "copper", Blocks: []string{"copper_ore", "deepslate_copper_ore"}},
			{Name: "gold", Blocks: []string{"gold_ore", "deepslate_gold_ore"}},
			{Name: "diamond", Blocks: []string{"diamond_ore", "deepslate_diamond_ore"}},
		},
		Permissions: PermissionsConfig{
			Default: []string{"veinminer.veinmine.*", "veinminer.pattern.*"},
		},
		Storage: StorageConfig{
			Type:             "sqlite",
			FlushInterval:    30 * time.Second,
			Snapshots:        true,
			SnapshotInterval: 5 * time.Minute,
			SnapshotKeep:     3,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
			Output: "stdout",
			File: LogFileConfig{
				Path:       "logs",
				Filename:   "veinminer.log",
				MaxSize:    100,
				MaxAge:     7,
				MaxBackups: 3,
			},
		},
	}
}

func (c *Config) Normalize() {
	if c == nil {
		return
	}
	c.DefaultActivationStrategy = strings.ToUpper(strings.TrimSpace(c.DefaultActivationStrategy))
	if c.DefaultActivationStrategy == "" {
		c.DefaultActivationStrategy = "SNEAK"
	}
	c.DefaultPattern = strings.TrimSpace(c.DefaultPattern)
	if c.DefaultPattern == "" {
		c.DefaultPattern = "veinminer:default"
	}
	if c.Limits.RayTraceDistance <= 0 {
		c.Limits.RayTraceDistance = 6
	}
	if c.Limits.RequestsPerSecond > 0 && c.Limits.RequestBurst <= 0 {
		c.Limits.RequestBurst = 1
	}
	if strings.TrimSpace(c.World.Name) == "" {
		c.World.Name = "world"
	}
	if c.Patterns.CubeRadius <= 0 {
		c.Patterns.CubeRadius = 2
	}
	for i := range c.Categories {
		c.Categories[i].ID = strings.ToLower(strings.TrimSpace(c.Categories[i].ID))
		if c.Categories[i].MaxVeinSize == 0 {
			c.Categories[i].MaxVeinSize = 64
		}
	}
	for i := range c.Aliases {
		c.Aliases[i].Name = strings.TrimSpace(c.Aliases[i].Name)
	}
	c.Storage.Type = strings.ToLower(strings.TrimSpace(c.Storage.Type))
	if c.Storage.Type == "" {
		c.Storage.Type = "sqlite"
	}
	if c.Storage.FlushInterval <= 0 {
		c.Storage.FlushInterval = 30 * time.Second
	}
	if c.Storage.SnapshotInterval <= 0 {
		c.Storage.SnapshotInterval = 5 * time.Minute
	}
	if c.Storage.SnapshotKeep <= 0 {
		c.Storage.SnapshotKeep = 3
	}
	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
	if c.Log.Output == "" {
		c.Log.Output = "stdout"
	}
	if c.Log.File.Filename == "" {
		c.Log.File.Filename = "veinminer.log"
	}
}

func (c Config) Validate() error {
	c.Normalize()
	switch c.DefaultActivationStrategy {
	case "ALWAYS", "SNEAK", "STAND", "STANDING", "CLIENT", "NONE":
	default:
		return fmt.Errorf("default_activation_strategy %q is not a strategy", c.DefaultActivationStrategy)
	}
	if c.Limits.RequestsPerSecond < 0 {
		return fmt.Errorf("limits.requests_per_second must be >= 0")
	}
	if c.World.MaxY <= c.World.MinY {
		return fmt.Errorf("world max_y must be > min_y")
	}
	if len(c.Categories) == 0 {
		return fmt.Errorf("categories must not be empty")
	}
	seen := map[string]bool{}
	hand := false
	for i, cat := range c.Categories {
		if cat.ID == "" {
			return fmt.Errorf("categories[%d] id must not be empty", i)
		}
		if seen[cat.ID] {
			return fmt.Errorf("duplicate category id: %s", cat.ID)
		}
		seen[cat.ID] = true
		if len(cat.Items) == 0 {
			if hand {
				return fmt.Errorf("category %s: only one category may have no items", cat.ID)
			}
			hand = true
		}
		if len(cat.Blocks) == 0 {
			return fmt.Errorf("category %s blocks must not be empty", cat.ID)
		}
		if cat.MaxVeinSize < 0 {
			return fmt.Errorf("category %s max_vein_size must be >= 0", cat.ID)
		}
	}
	names := map[string]bool{}
	for i, a := range c.Aliases {
		if a.Name == "" {
			return fmt.Errorf("aliases[%d] name must not be empty", i)
		}
		if names[a.Name] {
			return fmt.Errorf("duplicate alias name: %s", a.Name)
		}
		names[a.Name] = true
		if len(a.Blocks) < 2 {
			return fmt.Errorf("alias %s needs at least two blocks", a.Name)
		}
	}
	switch c.Storage.Type {
	case "sqlite", "json":
	default:
		return fmt.Errorf("storage.type %q must be sqlite or json", c.Storage.Type)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("log.format %q must be json or console", c.Log.Format)
	}
	switch c.Log.Output {
	case "stdout", "file", "both":
	default:
		return fmt.Errorf("log.output %q must be stdout, file or both", c.Log.Output)
	}
	return nil
}

// Grants returns the nodes held by the named player: the defaults plus any
// per-player grants, sorted and deduplicated.
func (p PermissionsConfig) Grants(player string) []string {
	set := map[string]bool{}
	for _, n := range p.Default {
		set[n] = true
	}
	for name, nodes := range p.Players {
		if !strings.EqualFold(name, player) {
			continue
		}
		for _, n := range nodes {
			set[n] = true
		}
	}
	out := make([]string, 0, len(set))
	for n := range set {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// HasNode reports whether grants cover node, honouring ".*" and "*".
func HasNode(grants []string, node string) bool {
	for _, g := range grants {
		if g == node || g == "*" {
			return true
		}
		if strings.HasSuffix(g, ".*") && strings.HasPrefix(node, strings.TrimSuffix(g, "*")) {
			return true
		}
	}
	return false
}
