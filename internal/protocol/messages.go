package protocol

// ClientConfig is the snapshot of server policy pushed to the companion
// client with SET_CONFIG.
type ClientConfig struct {
	AllowActivationKeybind       bool `json:"allow_activation_keybind" yaml:"allow_activation_keybind"`
	AllowPatternSwitchingKeybind bool `json:"allow_pattern_switching_keybind" yaml:"allow_pattern_switching_keybind"`
	AllowWireframeRendering      bool `json:"allow_wireframe_rendering" yaml:"allow_wireframe_rendering"`
}

func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		AllowActivationKeybind:       true,
		AllowPatternSwitchingKeybind: true,
		AllowWireframeRendering:      true,
	}
}

// HANDSHAKE (client -> server)
type HandshakeMsg struct {
	Channel         string `json:"channel"`
	Type            string `json:"type"`
	ProtocolVersion int    `json:"protocol_version"`
}

// TOGGLE_VEIN_MINER (client -> server): activation key pressed or released.
type ToggleVeinMinerMsg struct {
	Channel   string `json:"channel"`
	Type      string `json:"type"`
	Activated bool   `json:"activated"`
}

// REQUEST_VEIN_MINE (client -> server): the client's claimed target block.
type RequestVeinMineMsg struct {
	Channel  string `json:"channel"`
	Type     string `json:"type"`
	Position [3]int `json:"position"`
}

// SELECT_PATTERN (client -> server)
type SelectPatternMsg struct {
	Channel string `json:"channel"`
	Type    string `json:"type"`
	Pattern string `json:"pattern"`
}

// HANDSHAKE_RESPONSE (server -> client)
type HandshakeResponseMsg struct {
	Channel string `json:"channel"`
	Type    string `json:"type"`
}

// SET_CONFIG (server -> client)
type SetConfigMsg struct {
	Channel string       `json:"channel"`
	Type    string       `json:"type"`
	Config  ClientConfig `json:"config"`
}

// SET_PATTERN (server -> client)
type SetPatternMsg struct {
	Channel string `json:"channel"`
	Type    string `json:"type"`
	Pattern string `json:"pattern"`
}

// SYNC_REGISTERED_PATTERNS (server -> client): pattern keys the player may
// select, server default first.
type SyncRegisteredPatternsMsg struct {
	Channel  string   `json:"channel"`
	Type     string   `json:"type"`
	Patterns []string `json:"patterns"`
}

// VEIN_MINE_RESULTS (server -> client). Positions is never null on the wire.
type VeinMineResultsMsg struct {
	Channel   string   `json:"channel"`
	Type      string   `json:"type"`
	Positions [][3]int `json:"positions"`
}

func NewHandshake(version int) *HandshakeMsg {
	return &HandshakeMsg{Channel: Channel, Type: TypeHandshake, ProtocolVersion: version}
}

func NewToggleVeinMiner(activated bool) *ToggleVeinMinerMsg {
	return &ToggleVeinMinerMsg{Channel: Channel, Type: TypeToggleVeinMiner, Activated: activated}
}

func NewRequestVeinMine(pos [3]int) *RequestVeinMineMsg {
	return &RequestVeinMineMsg{Channel: Channel, Type: TypeRequestVeinMine, Position: pos}
}

func NewSelectPattern(key string) *SelectPatternMsg {
	return &SelectPatternMsg{Channel: Channel, Type: TypeSelectPattern, Pattern: key}
}

func NewHandshakeResponse() *HandshakeResponseMsg {
	return &HandshakeResponseMsg{Channel: Channel, Type: TypeHandshakeResponse}
}

func NewSetConfig(cfg ClientConfig) *SetConfigMsg {
	return &SetConfigMsg{Channel: Channel, Type: TypeSetConfig, Config: cfg}
}

func NewSetPattern(key string) *SetPatternMsg {
	return &SetPatternMsg{Channel: Channel, Type: TypeSetPattern, Pattern: key}
}

func NewSyncRegisteredPatterns(keys []string) *SyncRegisteredPatternsMsg {
	if keys == nil {
		keys = []string{}
	}
	return &SyncRegisteredPatternsMsg{Channel: Channel, Type: TypeSyncRegisteredPatterns, Patterns: keys}
}

func NewVeinMineResults(positions [][3]int) *VeinMineResultsMsg {
	if positions == nil {
		positions = [][3]int{}
	}
	return &VeinMineResultsMsg{Channel: Channel, Type: TypeVeinMineResults, Positions: positions}
}
