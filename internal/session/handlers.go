package session

import (
	"errors"

	"go.uber.org/zap"

	"github.com/KyousabaMC/VeinMiner/internal/block"
	"github.com/KyousabaMC/VeinMiner/internal/namespaced"
	"github.com/KyousabaMC/VeinMiner/internal/protocol"
)

// HandleMessage decodes one plugin message payload and dispatches it.
// Malformed and foreign frames are dropped.
func (s *Session) HandleMessage(payload []byte) {
	if s.State() == StateDisconnected {
		return
	}
	msg, err := protocol.Decode(payload)
	if err != nil {
		if !errors.Is(err, protocol.ErrForeignChannel) {
			s.log.Debug("drop plugin message", zap.Error(err))
		}
		return
	}
	switch m := msg.(type) {
	case *protocol.HandshakeMsg:
		s.HandleHandshake(m)
	case *protocol.ToggleVeinMinerMsg:
		s.HandleToggleVeinMiner(m)
	case *protocol.RequestVeinMineMsg:
		s.HandleRequestVeinMine(m)
	case *protocol.SelectPatternMsg:
		s.HandleSelectPattern(m)
	default:
		s.log.Debug("drop clientbound message from client", zap.String("type", protocol.TypeOf(msg)))
	}
}

// HandleHandshake validates the client's protocol version and schedules the
// handshake response. Forcing the CLIENT strategy keeps the dirty flag from
// before the handshake rather than clearing it, so unsaved choices survive.
func (s *Session) HandleHandshake(m *protocol.HandshakeMsg) {
	if s.State() != StateVanillaOnly {
		return
	}
	server := s.env.protocolVersion()
	if m.ProtocolVersion != server {
		reason := "Your client-side version of VeinMiner is too new. Please downgrade."
		if server > m.ProtocolVersion {
			reason = "Your client-side version of VeinMiner is out of date. Please update."
		}
		s.log.Info("handshake rejected", zap.Int("client_version", m.ProtocolVersion), zap.Int("server_version", server))
		s.Disconnect()
		s.player.Kick(reason)
		return
	}

	s.usingClientMod = true
	wasDirty := s.dirty
	s.SetActivationStrategy(StrategyClient)
	s.dirty = wasDirty
	s.setState(StateHandshaking)

	// One tick later so the host has finished setting up the connection.
	s.env.Scheduler.RunLater(1, s.completeHandshake)
}

func (s *Session) completeHandshake() {
	if s.State() != StateHandshaking {
		return
	}
	s.send(protocol.NewHandshakeResponse())

	keys := s.PermittedPatterns()
	names := make([]string, 0, len(keys))
	for _, k := range keys {
		names = append(names, k.String())
	}
	s.send(protocol.NewSyncRegisteredPatterns(names))
	s.send(protocol.NewSetConfig(s.clientConfig))

	s.setState(StateClientCapable)
	for {
		fn, ok := s.queue.popOrMarkReady(func() { s.setState(StateReady) })
		if !ok {
			break
		}
		fn()
		if s.State() == StateDisconnected {
			return
		}
	}
	s.log.Debug("client ready")
}

func (s *Session) HandleToggleVeinMiner(m *protocol.ToggleVeinMinerMsg) {
	if !s.clientConfig.AllowActivationKeybind {
		return
	}
	ev := &ClientActivateEvent{Player: s.player, Activated: m.Activated}
	s.env.events().ClientActivate(ev)
	if ev.Cancelled {
		return
	}
	s.clientKeyPressed = ev.Activated
}

func (s *Session) HandleRequestVeinMine(m *protocol.RequestVeinMineMsg) {
	positions := s.allocateFor(block.FromArray(m.Position))
	out := make([][3]int, 0, len(positions))
	for _, p := range positions {
		out = append(out, p.ToArray())
	}
	s.send(protocol.NewVeinMineResults(out))
}

// allocateFor validates a client's claimed target and returns the vein to
// show it. Every rejection yields nil.
func (s *Session) allocateFor(claimed block.Position) []block.Position {
	if s.limiter != nil && !s.limiter.Allow() {
		return nil
	}
	regs := s.env.Registries()
	if regs == nil {
		return nil
	}
	cat, ok := regs.Categories.Resolve(s.player.ItemInMainHand())
	if !ok || !s.IsCategoryEnabled(cat.ID()) {
		return nil
	}
	cfg := cat.Config()
	if cfg.WorldDisabled(s.player.WorldName()) {
		return nil
	}

	target, face, ok := s.player.TargetBlock(s.env.rayTraceDistance())
	if !ok {
		return nil
	}
	if claimed.DistanceSquared(target) >= MaxClaimDistanceSquared {
		return nil
	}

	acc := s.player.World()
	if acc == nil {
		return nil
	}
	st, ok := acc.StateAt(claimed)
	if !ok {
		return nil
	}
	spec, ok := cat.Blocks().Match(st)
	if !ok {
		return nil
	}
	p := s.SelectedPattern()
	if p == nil {
		return nil
	}
	positions := p.Allocate(acc, claimed, face, spec, cfg, regs.Aliases.Lookup(spec))
	if len(positions) > 0 && s.env.OnVeinMine != nil {
		s.env.OnVeinMine(VeinMineRecord{
			PlayerID:  s.player.UniqueID(),
			Player:    s.player.Name(),
			World:     s.player.WorldName(),
			Category:  cat.ID(),
			Pattern:   p.Key(),
			Origin:    claimed,
			Face:      face,
			Positions: positions,
		})
	}
	return positions
}

func (s *Session) HandleSelectPattern(m *protocol.SelectPatternMsg) {
	if !s.clientConfig.AllowPatternSwitchingKeybind {
		return
	}
	regs := s.env.Registries()
	if regs == nil {
		return
	}
	def := regs.DefaultPattern()
	p := def
	if key, err := namespaced.FromString(m.Pattern, namespaced.VeinMiner); err == nil {
		p = regs.Patterns.GetOrDefault(key, def)
	}
	if p == nil {
		return
	}
	// A hook override or the default fallback must reach the client too.
	_, _ = s.changePattern(p, CauseClient, true)
}
