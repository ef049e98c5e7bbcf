package server

import (
	"fmt"

	"github.com/KyousabaMC/VeinMiner/internal/alias"
	"github.com/KyousabaMC/VeinMiner/internal/block"
	"github.com/KyousabaMC/VeinMiner/internal/config"
	"github.com/KyousabaMC/VeinMiner/internal/namespaced"
	"github.com/KyousabaMC/VeinMiner/internal/pattern"
	"github.com/KyousabaMC/VeinMiner/internal/session"
	"github.com/KyousabaMC/VeinMiner/internal/tool"
)

// BuildRegistries turns a validated config into one registry generation.
func BuildRegistries(cfg config.Config) (*session.Registries, error) {
	overrides := map[namespaced.Key]string{}
	for k, node := range cfg.Patterns.Permissions {
		key, err := namespaced.FromString(k, namespaced.VeinMiner)
		if err != nil {
			return nil, fmt.Errorf("patterns.permissions: %w", err)
		}
		overrides[key] = node
	}
	patterns, err := pattern.NewRegistry(pattern.Builtins(cfg.Patterns.CubeRadius, overrides)...)
	if err != nil {
		return nil, err
	}
	defaultKey, err := namespaced.FromString(cfg.DefaultPattern, namespaced.VeinMiner)
	if err != nil {
		return nil, fmt.Errorf("default_pattern: %w", err)
	}
	if !patterns.Has(defaultKey) {
		return nil, fmt.Errorf("default_pattern %s is not registered", defaultKey)
	}

	cats := make([]*tool.Category, 0, len(cfg.Categories))
	for _, c := range cfg.Categories {
		blocks, err := block.ParseList(c.Blocks)
		if err != nil {
			return nil, fmt.Errorf("category %s: %w", c.ID, err)
		}
		items := make([]namespaced.Key, 0, len(c.Items))
		for _, it := range c.Items {
			k, err := namespaced.FromString(it, namespaced.Minecraft)
			if err != nil {
				return nil, fmt.Errorf("category %s item: %w", c.ID, err)
			}
			items = append(items, k)
		}
		cats = append(cats, tool.NewCategory(c.ID, c.Priority, items, blocks, tool.Config{
			MaxVeinSize:    c.MaxVeinSize,
			DisabledWorlds: c.DisabledWorlds,
		}))
	}
	categories, err := tool.NewRegistry(cats...)
	if err != nil {
		return nil, err
	}

	groups := make([]alias.Group, 0, len(cfg.Aliases))
	for _, a := range cfg.Aliases {
		specs, err := block.ParseList(a.Blocks)
		if err != nil {
			return nil, fmt.Errorf("alias %s: %w", a.Name, err)
		}
		groups = append(groups, alias.Group{Name: a.Name, Specs: specs})
	}
	aliases, err := alias.NewRegistry(groups...)
	if err != nil {
		return nil, err
	}

	return &session.Registries{
		Patterns:          patterns,
		Categories:        categories,
		Aliases:           aliases,
		DefaultPatternKey: defaultKey,
		ClientConfig:      cfg.Client,
	}, nil
}
