package session

import (
	"github.com/google/uuid"

	"github.com/KyousabaMC/VeinMiner/internal/block"
	"github.com/KyousabaMC/VeinMiner/internal/tool"
)

// Player is the host's view of a connected player. Methods are only called
// from the game loop.
type Player interface {
	UniqueID() uuid.UUID
	Name() string
	HasPermission(node string) bool
	// Kick disconnects the player with a human-readable reason.
	Kick(reason string)
	SendPluginMessage(channel string, payload []byte)

	ItemInMainHand() tool.Item
	// TargetBlock ray traces from the player's eye. ok is false when nothing
	// solid is hit within maxDistance blocks.
	TargetBlock(maxDistance int) (pos block.Position, face block.Face, ok bool)
	World() block.Accessor
	WorldName() string
	IsSneaking() bool
}

// Scheduler runs fn on the game loop after the given number of ticks.
type Scheduler interface {
	RunLater(ticks int, fn func())
}
