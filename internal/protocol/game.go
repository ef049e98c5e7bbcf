package protocol

import (
	"encoding/json"
	"fmt"
)

// GameChannel carries the stand-in game traffic: login and player state.
// A real host would provide these through its own connection.
const GameChannel = "minecraft:game"

const (
	TypeLogin       = "LOGIN"
	TypeWelcome     = "WELCOME"
	TypePlayerState = "PLAYER_STATE"
)

// LOGIN (client -> server), the first frame on a connection.
type LoginMsg struct {
	Channel string `json:"channel"`
	Type    string `json:"type"`
	Name    string `json:"name"`
	UUID    string `json:"uuid,omitempty"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Channel    string `json:"channel"`
	Type       string `json:"type"`
	PlayerID   string `json:"player_id"`
	World      string `json:"world"`
	TickRateHz int    `json:"tick_rate_hz"`
}

// PLAYER_STATE (client -> server): where the player looks and what they hold.
type PlayerStateMsg struct {
	Channel  string     `json:"channel"`
	Type     string     `json:"type"`
	Eye      [3]float64 `json:"eye"`
	Look     [3]float64 `json:"look"`
	Sneaking bool       `json:"sneaking"`
	HeldItem string     `json:"held_item,omitempty"`
	World    string     `json:"world,omitempty"`
}

func NewLogin(name, uuid string) *LoginMsg {
	return &LoginMsg{Channel: GameChannel, Type: TypeLogin, Name: name, UUID: uuid}
}

func NewWelcome(playerID, world string, tickRateHz int) *WelcomeMsg {
	return &WelcomeMsg{Channel: GameChannel, Type: TypeWelcome, PlayerID: playerID, World: world, TickRateHz: tickRateHz}
}

func NewPlayerState(eye, look [3]float64, sneaking bool, held, world string) *PlayerStateMsg {
	return &PlayerStateMsg{Channel: GameChannel, Type: TypePlayerState, Eye: eye, Look: look, Sneaking: sneaking, HeldItem: held, World: world}
}

// DecodeGame parses a game-channel frame.
func DecodeGame(b []byte) (any, error) {
	env, err := DecodeEnvelope(b)
	if err != nil {
		return nil, fmt.Errorf("protocol: decode envelope: %w", err)
	}
	if env.Channel != GameChannel {
		return nil, ErrForeignChannel
	}
	var msg any
	switch env.Type {
	case TypeLogin:
		msg = &LoginMsg{}
	case TypeWelcome:
		msg = &WelcomeMsg{}
	case TypePlayerState:
		msg = &PlayerStateMsg{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, env.Type)
	}
	if err := json.Unmarshal(b, msg); err != nil {
		return nil, fmt.Errorf("protocol: decode %s: %w", env.Type, err)
	}
	return msg, nil
}
