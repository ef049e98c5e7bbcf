// Package session implements the per-player VeinMiner state: preferences,
// the companion-client handshake and the plugin message handlers.
//
// A Session is owned by the game loop. Only ExecuteWhenClientIsReady's queue
// and State are safe to touch from other goroutines.
package session

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/KyousabaMC/VeinMiner/internal/namespaced"
	"github.com/KyousabaMC/VeinMiner/internal/pattern"
	"github.com/KyousabaMC/VeinMiner/internal/persistence/playerdb"
	"github.com/KyousabaMC/VeinMiner/internal/protocol"
	"github.com/KyousabaMC/VeinMiner/internal/tool"
)

type State int32

const (
	// StateVanillaOnly is the join state. Server-side features work; client
	// features wait for a handshake that may never come.
	StateVanillaOnly State = iota
	// StateHandshaking: version accepted, init messages scheduled.
	StateHandshaking
	// StateClientCapable: init messages sent, deferred actions draining.
	StateClientCapable
	StateReady
	StateDisconnected
)

func (s State) String() string {
	switch s {
	case StateVanillaOnly:
		return "VANILLA_ONLY"
	case StateHandshaking:
		return "HANDSHAKING"
	case StateClientCapable:
		return "CLIENT_CAPABLE"
	case StateReady:
		return "READY"
	case StateDisconnected:
		return "DISCONNECTED"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Execution reports how ExecuteWhenClientIsReady handled an action.
type Execution int

const (
	Deferred Execution = iota
	RanImmediately
)

var (
	ErrUnknownPattern    = errors.New("unknown pattern")
	ErrUnknownCategory   = errors.New("unknown tool category")
	ErrUnknownStrategy   = errors.New("unknown activation strategy")
	ErrNoPermission      = errors.New("no permission")
	ErrCancelled         = errors.New("cancelled")
	ErrClientModRequired = errors.New("activation strategy requires the client mod")
)

type Session struct {
	env    *Env
	player Player
	log    *zap.Logger

	state atomic.Int32
	queue actionQueue

	strategy ActivationStrategy
	disabled map[string]struct{}
	// zero means "use the server default"
	pattern namespaced.Key
	dirty   bool

	usingClientMod   bool
	clientKeyPressed bool
	clientConfig     protocol.ClientConfig

	limiter *rate.Limiter
}

// New builds a session for a freshly joined player. rec may be nil for a
// player with no stored data.
func New(env *Env, p Player, rec *playerdb.Record) *Session {
	s := &Session{
		env:      env,
		player:   p,
		log:      env.logger().With(zap.String("player", p.Name())),
		strategy: env.defaultStrategy(),
		disabled: map[string]struct{}{},
		limiter:  env.newLimiter(),
	}
	if regs := env.Registries(); regs != nil {
		s.clientConfig = regs.ClientConfig
	}
	if rec != nil {
		s.restore(*rec)
	}
	return s
}

func (s *Session) restore(rec playerdb.Record) {
	if rec.ActivationStrategy != "" {
		if st, err := ParseStrategy(rec.ActivationStrategy); err == nil {
			s.strategy = st
		} else {
			s.log.Warn("ignoring stored activation strategy", zap.String("value", rec.ActivationStrategy))
		}
	}
	if rec.Pattern != "" {
		if key, err := namespaced.FromString(rec.Pattern, namespaced.VeinMiner); err == nil {
			s.pattern = key
		}
	}
	for _, id := range rec.DisabledCategories {
		s.disabled[strings.ToLower(id)] = struct{}{}
	}
	s.PruneDisabledCategories()
}

// Snapshot returns the persistable part of the session.
func (s *Session) Snapshot() playerdb.Record {
	rec := playerdb.Record{
		ID:                 s.player.UniqueID(),
		Name:               s.player.Name(),
		ActivationStrategy: string(s.strategy),
	}
	if !s.pattern.IsZero() {
		rec.Pattern = s.pattern.String()
	}
	for _, c := range s.DisabledCategories() {
		rec.DisabledCategories = append(rec.DisabledCategories, c.ID())
	}
	return rec
}

func (s *Session) Player() Player { return s.player }
func (s *Session) State() State   { return State(s.state.Load()) }

func (s *Session) setState(st State) { s.state.Store(int32(st)) }

// IsClientReady reports whether client-directed messages can be delivered.
func (s *Session) IsClientReady() bool {
	st := s.State()
	return st == StateClientCapable || st == StateReady
}

func (s *Session) UsingClientMod() bool     { return s.usingClientMod }
func (s *Session) IsClientKeyPressed() bool { return s.clientKeyPressed }
func (s *Session) IsDirty() bool            { return s.dirty }
func (s *Session) SetDirty(dirty bool)      { s.dirty = dirty }
func (s *Session) PendingActions() int      { return s.queue.len() }

func (s *Session) ClientConfig() protocol.ClientConfig {
	return s.clientConfig
}

func (s *Session) observe(changed bool) bool {
	s.dirty = s.dirty || changed
	return changed
}

// ExecuteWhenClientIsReady runs fn now when the client is ready, otherwise
// queues it for the end of the handshake. Vanilla players never drain.
func (s *Session) ExecuteWhenClientIsReady(fn func()) Execution {
	if s.queue.pushUnlessReady(fn) {
		return Deferred
	}
	fn()
	return RanImmediately
}

// Disconnect stops all further client traffic. Queued actions are dropped.
func (s *Session) Disconnect() {
	s.setState(StateDisconnected)
	s.queue.clear()
}

func (s *Session) send(msg any) {
	if s.State() == StateDisconnected {
		return
	}
	b, err := protocol.Encode(msg)
	if err != nil {
		s.log.Error("encode plugin message", zap.Error(err))
		return
	}
	s.player.SendPluginMessage(protocol.Channel, b)
}

// sendWhenReady delivers msg to a client-mod user once the handshake is done.
func (s *Session) sendWhenReady(msg any) {
	if !s.usingClientMod {
		return
	}
	s.ExecuteWhenClientIsReady(func() { s.send(msg) })
}

// Activation strategy

func (s *Session) ActivationStrategy() ActivationStrategy { return s.strategy }

// SetActivationStrategy stores st unconditionally and reports a change.
func (s *Session) SetActivationStrategy(st ActivationStrategy) bool {
	changed := s.strategy != st
	s.strategy = st
	return s.observe(changed)
}

// ChangeActivationStrategy is the command path: it validates st first.
func (s *Session) ChangeActivationStrategy(st ActivationStrategy) (bool, error) {
	if !st.Valid() {
		return false, fmt.Errorf("%w: %q", ErrUnknownStrategy, st)
	}
	if st == StrategyClient && !s.usingClientMod {
		return false, ErrClientModRequired
	}
	return s.SetActivationStrategy(st), nil
}

// IsVeinMinerActive evaluates the activation strategy right now.
func (s *Session) IsVeinMinerActive() bool {
	return s.strategy.Active(s.player.IsSneaking(), s.usingClientMod, s.clientKeyPressed)
}

// Patterns

// SelectedPattern never returns nil while any pattern is registered. An
// unset or unregistered selection resolves to the current server default.
func (s *Session) SelectedPattern() pattern.Pattern {
	regs := s.env.Registries()
	if regs == nil {
		return nil
	}
	if !s.pattern.IsZero() {
		if p, ok := regs.Patterns.Get(s.pattern); ok {
			return p
		}
	}
	return regs.DefaultPattern()
}

// SetPattern stores p as an explicit choice. updateClient sends SET_PATTERN
// to a client-mod user when the choice changed.
func (s *Session) SetPattern(p pattern.Pattern, updateClient bool) bool {
	if p == nil {
		return false
	}
	changed := s.pattern != p.Key()
	s.pattern = p.Key()
	s.observe(changed)
	if changed && updateClient {
		s.sendWhenReady(protocol.NewSetPattern(p.Key().String()))
	}
	return changed
}

// SelectPattern is the command path for choosing a pattern.
func (s *Session) SelectPattern(key namespaced.Key, cause Cause) (bool, error) {
	regs := s.env.Registries()
	if regs == nil {
		return false, ErrUnknownPattern
	}
	p, ok := regs.Patterns.Get(key)
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrUnknownPattern, key)
	}
	return s.changePattern(p, cause, true)
}

func (s *Session) changePattern(p pattern.Pattern, cause Cause, updateClient bool) (bool, error) {
	if perm := p.Permission(); perm != "" && !s.player.HasPermission(perm) {
		return false, ErrNoPermission
	}
	ev := &PatternChangeEvent{
		Player:     s.player,
		OldPattern: s.SelectedPattern(),
		NewPattern: p,
		Cause:      cause,
	}
	s.env.events().PatternChange(ev)
	if ev.Cancelled || ev.NewPattern == nil {
		return false, ErrCancelled
	}
	return s.SetPattern(ev.NewPattern, updateClient), nil
}

// PermittedPatterns lists the keys this player may select, server default
// first when more than one pattern is registered.
func (s *Session) PermittedPatterns() []namespaced.Key {
	regs := s.env.Registries()
	if regs == nil {
		return nil
	}
	keys := regs.Patterns.Keys()
	if def := regs.DefaultPattern(); def != nil && len(keys) > 1 {
		for i, k := range keys {
			if k == def.Key() {
				copy(keys[1:i+1], keys[:i])
				keys[0] = k
				break
			}
		}
	}
	out := keys[:0]
	for _, k := range keys {
		p, ok := regs.Patterns.Get(k)
		if !ok {
			continue
		}
		if perm := p.Permission(); perm != "" && !s.player.HasPermission(perm) {
			continue
		}
		out = append(out, k)
	}
	return out
}

// Categories

func (s *Session) categories() *tool.Registry {
	if regs := s.env.Registries(); regs != nil {
		return regs.Categories
	}
	return nil
}

// DisabledCategories returns the disabled categories that are still
// registered, in registry order.
func (s *Session) DisabledCategories() []*tool.Category {
	var out []*tool.Category
	for _, c := range s.categories().All() {
		if _, ok := s.disabled[c.ID()]; ok {
			out = append(out, c)
		}
	}
	return out
}

// PruneDisabledCategories forgets disabled ids that are no longer registered.
// It does not mark the session dirty.
func (s *Session) PruneDisabledCategories() {
	cats := s.categories()
	if cats == nil {
		return
	}
	for id := range s.disabled {
		if !cats.Has(id) {
			delete(s.disabled, id)
		}
	}
}

func (s *Session) IsCategoryEnabled(id string) bool {
	_, disabled := s.disabled[strings.ToLower(id)]
	return !disabled
}

func (s *Session) SetCategoryEnabled(id string, enabled bool) (bool, error) {
	cat, ok := s.categories().Get(id)
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrUnknownCategory, id)
	}
	_, wasDisabled := s.disabled[cat.ID()]
	if enabled {
		delete(s.disabled, cat.ID())
		return s.observe(wasDisabled), nil
	}
	s.disabled[cat.ID()] = struct{}{}
	return s.observe(!wasDisabled), nil
}

// SetVeinMinerEnabled enables or disables every registered category.
func (s *Session) SetVeinMinerEnabled(enabled bool) bool {
	if enabled {
		changed := len(s.disabled) > 0
		s.disabled = map[string]struct{}{}
		return s.observe(changed)
	}
	changed := false
	for _, c := range s.categories().All() {
		if _, ok := s.disabled[c.ID()]; !ok {
			s.disabled[c.ID()] = struct{}{}
			changed = true
		}
	}
	return s.observe(changed)
}

func (s *Session) IsVeinMinerEnabled() bool {
	return len(s.DisabledCategories()) == 0
}

// IsVeinMinerDisabled reports whether every registered category is disabled.
func (s *Session) IsVeinMinerDisabled() bool {
	size := s.categories().Size()
	return size > 0 && len(s.DisabledCategories()) >= size
}

func (s *Session) IsVeinMinerPartiallyDisabled() bool {
	n := len(s.DisabledCategories())
	return n > 0 && n < s.categories().Size()
}

// Client config

// SetClientConfig replaces the snapshot. A ready client is told right away;
// a handshaking client receives the new snapshot with its init messages.
func (s *Session) SetClientConfig(cfg protocol.ClientConfig) {
	s.clientConfig = cfg
	if s.IsClientReady() {
		s.send(protocol.NewSetConfig(cfg))
	}
}

// ResyncPatterns resends the permitted pattern list to a ready client.
func (s *Session) ResyncPatterns() {
	if !s.IsClientReady() {
		return
	}
	keys := s.PermittedPatterns()
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k.String())
	}
	s.send(protocol.NewSyncRegisteredPatterns(out))
}

