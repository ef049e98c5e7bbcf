package session

import (
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/KyousabaMC/VeinMiner/internal/alias"
	"github.com/KyousabaMC/VeinMiner/internal/block"
	"github.com/KyousabaMC/VeinMiner/internal/namespaced"
	"github.com/KyousabaMC/VeinMiner/internal/pattern"
	"github.com/KyousabaMC/VeinMiner/internal/protocol"
	"github.com/KyousabaMC/VeinMiner/internal/tool"
)

const (
	DefaultRayTraceDistance = 6
	// MaxClaimDistanceSquared bounds how far a client's claimed target may be
	// from the server's own ray trace.
	MaxClaimDistanceSquared = 4
)

// Registries is one immutable generation of configuration. Reload builds a
// new one and swaps it on Env.
type Registries struct {
	Patterns          *pattern.Registry
	Categories        *tool.Registry
	Aliases           *alias.Registry
	DefaultPatternKey namespaced.Key
	ClientConfig      protocol.ClientConfig
}

// DefaultPattern resolves the configured default, falling back to the first
// registered pattern.
func (r *Registries) DefaultPattern() pattern.Pattern {
	if r == nil {
		return nil
	}
	if p, ok := r.Patterns.Get(r.DefaultPatternKey); ok {
		return p
	}
	if all := r.Patterns.All(); len(all) > 0 {
		return all[0]
	}
	return nil
}

// VeinMineRecord describes one served allocation.
type VeinMineRecord struct {
	PlayerID  uuid.UUID
	Player    string
	World     string
	Category  string
	Pattern   namespaced.Key
	Origin    block.Position
	Face      block.Face
	Positions []block.Position
}

// Env carries everything a session needs from the server. Fields are set
// before the first session is created; registries may be swapped any time.
type Env struct {
	Scheduler        Scheduler
	Events           Events
	ProtocolVersion  int
	RayTraceDistance int
	DefaultStrategy  ActivationStrategy

	// RequestLimit caps REQUEST_VEIN_MINE per session. Zero disables the cap.
	RequestLimit rate.Limit
	RequestBurst int

	// OnVeinMine is called for every non-empty result sent to a client.
	OnVeinMine func(VeinMineRecord)

	Logger *zap.Logger

	registries atomic.Pointer[Registries]
}

func (e *Env) Registries() *Registries { return e.registries.Load() }

func (e *Env) SetRegistries(r *Registries) { e.registries.Store(r) }

func (e *Env) events() Events {
	if e.Events == nil {
		return NopEvents{}
	}
	return e.Events
}

func (e *Env) logger() *zap.Logger {
	if e.Logger == nil {
		return zap.NewNop()
	}
	return e.Logger
}

func (e *Env) protocolVersion() int {
	if e.ProtocolVersion == 0 {
		return protocol.Version
	}
	return e.ProtocolVersion
}

func (e *Env) rayTraceDistance() int {
	if e.RayTraceDistance <= 0 {
		return DefaultRayTraceDistance
	}
	return e.RayTraceDistance
}

func (e *Env) defaultStrategy() ActivationStrategy {
	if e.DefaultStrategy == "" {
		return StrategySneak
	}
	return e.DefaultStrategy
}

func (e *Env) newLimiter() *rate.Limiter {
	if e.RequestLimit <= 0 {
		return nil
	}
	burst := e.RequestBurst
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(e.RequestLimit, burst)
}
