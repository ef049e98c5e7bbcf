package server

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/KyousabaMC/VeinMiner/internal/block"
	"github.com/KyousabaMC/VeinMiner/internal/config"
	"github.com/KyousabaMC/VeinMiner/internal/namespaced"
	"github.com/KyousabaMC/VeinMiner/internal/session"
)

// PlayerInfo is the admin view of one connected player.
type PlayerInfo struct {
	ID                 string   `json:"id"`
	Name               string   `json:"name"`
	World              string   `json:"world"`
	State              string   `json:"state"`
	ClientMod          bool     `json:"client_mod"`
	Strategy           string   `json:"activation_strategy"`
	Pattern            string   `json:"pattern"`
	DisabledCategories []string `json:"disabled_categories"`
	PendingActions     int      `json:"pending_actions"`
	HeldItem           string   `json:"held_item,omitempty"`
	Sneaking           bool     `json:"sneaking"`
}

// Players lists connected players in join order.
func (s *Server) Players(ctx context.Context) ([]PlayerInfo, error) {
	var out []PlayerInfo
	err := s.do(ctx, func() {
		for _, sess := range s.manager.All() {
			out = append(out, s.playerInfo(sess))
		}
	})
	return out, err
}

func (s *Server) playerInfo(sess *session.Session) PlayerInfo {
	p := sess.Player()
	info := PlayerInfo{
		ID:                 p.UniqueID().String(),
		Name:               p.Name(),
		World:              p.WorldName(),
		State:              sess.State().String(),
		ClientMod:          sess.UsingClientMod(),
		Strategy:           string(sess.ActivationStrategy()),
		DisabledCategories: []string{},
		PendingActions:     sess.PendingActions(),
		Sneaking:           p.IsSneaking(),
	}
	if pat := sess.SelectedPattern(); pat != nil {
		info.Pattern = pat.Key().String()
	}
	for _, c := range sess.DisabledCategories() {
		info.DisabledCategories = append(info.DisabledCategories, c.ID())
	}
	if held := p.ItemInMainHand(); !held.IsEmpty() {
		info.HeldItem = held.String()
	}
	return info
}

// Reload validates cfg, swaps in a new registry generation and pushes it to
// every session. On error the running configuration is kept.
func (s *Server) Reload(ctx context.Context, cfg config.Config) error {
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		s.metrics.ReloadFailures.Add(1)
		return err
	}
	regs, err := BuildRegistries(cfg)
	if err != nil {
		s.metrics.ReloadFailures.Add(1)
		return err
	}
	return s.do(ctx, func() {
		s.cfg.Store(&cfg)
		s.applyLimits(cfg)
		s.env.SetRegistries(regs)
		for _, p := range s.players {
			p.grants = cfg.Permissions.Grants(p.name)
		}
		s.manager.Reconfigure()
		s.metrics.Reloads.Add(1)
		s.log.Info("configuration reloaded",
			zap.Int("categories", regs.Categories.Size()),
			zap.Int("patterns", regs.Patterns.Size()),
			zap.Int("aliases", regs.Aliases.Size()),
		)
	})
}

// withSession runs fn on the loop for the named player.
func (s *Server) withSession(ctx context.Context, name string, fn func(*session.Session) error) error {
	var ferr error
	err := s.do(ctx, func() {
		for _, sess := range s.manager.All() {
			if strings.EqualFold(sess.Player().Name(), name) {
				ferr = fn(sess)
				return
			}
		}
		ferr = fmt.Errorf("%w: %s", ErrUnknownPlayer, name)
	})
	if err != nil {
		return err
	}
	return ferr
}

// SetActivationStrategy is the command path for changing a player's mode.
func (s *Server) SetActivationStrategy(ctx context.Context, name, strategy string) error {
	st, err := session.ParseStrategy(strategy)
	if err != nil {
		return fmt.Errorf("%w: %s", session.ErrUnknownStrategy, strategy)
	}
	return s.withSession(ctx, name, func(sess *session.Session) error {
		_, err := sess.ChangeActivationStrategy(st)
		return err
	})
}

// SelectPattern is the command path for picking a pattern; the client is
// told about the change.
func (s *Server) SelectPattern(ctx context.Context, name, key string) error {
	k, err := namespaced.FromString(key, namespaced.VeinMiner)
	if err != nil {
		return fmt.Errorf("%w: %s", session.ErrUnknownPattern, key)
	}
	return s.withSession(ctx, name, func(sess *session.Session) error {
		_, err := sess.SelectPattern(k, session.CauseCommand)
		return err
	})
}

// SetCategoryEnabled toggles one category, or every category when id is "all".
func (s *Server) SetCategoryEnabled(ctx context.Context, name, id string, enabled bool) error {
	return s.withSession(ctx, name, func(sess *session.Session) error {
		if strings.EqualFold(id, "all") {
			sess.SetVeinMinerEnabled(enabled)
			return nil
		}
		_, err := sess.SetCategoryEnabled(id, enabled)
		return err
	})
}

// SetBlock edits the world from outside the loop.
func (s *Server) SetBlock(ctx context.Context, pos block.Position, state string) error {
	st, err := block.ParseState(state)
	if err != nil {
		return err
	}
	var ok bool
	if err := s.do(ctx, func() { ok = s.world.SetState(pos, st) }); err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("position %s is outside the world", pos)
	}
	return nil
}

func (s *Server) BlockAt(ctx context.Context, pos block.Position) (string, error) {
	var (
		st block.State
		ok bool
	)
	if err := s.do(ctx, func() { st, ok = s.world.StateAt(pos) }); err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("position %s is outside the world", pos)
	}
	return st.String(), nil
}
