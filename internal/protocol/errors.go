package protocol

// Close reason codes sent in websocket close frames.
const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"
	ErrProtoVersion    = "E_PROTO_VERSION"

	// Connection lifecycle.
	ErrLoginTaken   = "E_LOGIN_TAKEN"
	ErrServerBusy   = "E_SERVER_BUSY"
	ErrShuttingDown = "E_SHUTTING_DOWN"
	ErrKicked       = "E_KICKED"
	ErrInternal     = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest: {},
	ErrProtoVersion:    {},
	ErrLoginTaken:      {},
	ErrServerBusy:      {},
	ErrShuttingDown:    {},
	ErrKicked:          {},
	ErrInternal:        {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
