package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Version is the plugin-message protocol version. Client and server must
// agree exactly; the handshake rejects anything else.
const Version = 1

// Channel carries every VeinMiner plugin message.
const Channel = "veinminer:veinminer"

// Message types.
const (
	// serverbound
	TypeHandshake       = "HANDSHAKE"
	TypeToggleVeinMiner = "TOGGLE_VEIN_MINER"
	TypeRequestVeinMine = "REQUEST_VEIN_MINE"
	TypeSelectPattern   = "SELECT_PATTERN"

	// clientbound
	TypeHandshakeResponse      = "HANDSHAKE_RESPONSE"
	TypeSetConfig              = "SET_CONFIG"
	TypeSetPattern             = "SET_PATTERN"
	TypeSyncRegisteredPatterns = "SYNC_REGISTERED_PATTERNS"
	TypeVeinMineResults        = "VEIN_MINE_RESULTS"
)

var (
	ErrForeignChannel = errors.New("protocol: message on foreign channel")
	ErrUnknownType    = errors.New("protocol: unknown message type")
)

// Envelope lets us route unknown JSON messages by channel and type.
type Envelope struct {
	Channel string `json:"channel"`
	Type    string `json:"type"`
}

func DecodeEnvelope(b []byte) (Envelope, error) {
	var e Envelope
	err := json.Unmarshal(b, &e)
	return e, err
}

// Encode marshals a message. Messages built with the New* helpers already
// carry their channel and type.
func Encode(msg any) ([]byte, error) {
	return json.Marshal(msg)
}

// Decode parses a VeinMiner plugin message into its concrete type. Frames on
// other channels and unknown types are rejected with ErrForeignChannel and
// ErrUnknownType so callers can drop them.
func Decode(b []byte) (any, error) {
	env, err := DecodeEnvelope(b)
	if err != nil {
		return nil, fmt.Errorf("protocol: decode envelope: %w", err)
	}
	if env.Channel != Channel {
		return nil, ErrForeignChannel
	}
	var msg any
	switch env.Type {
	case TypeHandshake:
		msg = &HandshakeMsg{}
	case TypeToggleVeinMiner:
		msg = &ToggleVeinMinerMsg{}
	case TypeRequestVeinMine:
		msg = &RequestVeinMineMsg{}
	case TypeSelectPattern:
		msg = &SelectPatternMsg{}
	case TypeHandshakeResponse:
		msg = &HandshakeResponseMsg{}
	case TypeSetConfig:
		msg = &SetConfigMsg{}
	case TypeSetPattern:
		msg = &SetPatternMsg{}
	case TypeSyncRegisteredPatterns:
		msg = &SyncRegisteredPatternsMsg{}
	case TypeVeinMineResults:
		msg = &VeinMineResultsMsg{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, env.Type)
	}
	if err := json.Unmarshal(b, msg); err != nil {
		return nil, fmt.Errorf("protocol: decode %s: %w", env.Type, err)
	}
	return msg, nil
}

// TypeOf returns the wire type of a decoded message, or "" for foreign values.
func TypeOf(msg any) string {
	switch m := msg.(type) {
	case *HandshakeMsg:
		return m.Type
	case *ToggleVeinMinerMsg:
		return m.Type
	case *RequestVeinMineMsg:
		return m.Type
	case *SelectPatternMsg:
		return m.Type
	case *HandshakeResponseMsg:
		return m.Type
	case *SetConfigMsg:
		return m.Type
	case *SetPatternMsg:
		return m.Type
	case *SyncRegisteredPatternsMsg:
		return m.Type
	case *VeinMineResultsMsg:
		return m.Type
	case *LoginMsg:
		return m.Type
	case *WelcomeMsg:
		return m.Type
	case *PlayerStateMsg:
		return m.Type
	default:
		return ""
	}
}
