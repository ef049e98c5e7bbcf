package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/KyousabaMC/VeinMiner/internal/config"
	"github.com/KyousabaMC/VeinMiner/internal/logging"
	"github.com/KyousabaMC/VeinMiner/internal/protocol"
	"github.com/KyousabaMC/VeinMiner/internal/world"
)

// client plays a companion-mod player: it logs in, reports where it looks,
// completes the handshake and asks for a vein-mine preview.
type client struct {
	conn *websocket.Conn
	log  *zap.Logger

	pattern string
	target  *[3]int
	once    bool
}

func main() {
	var (
		url      = flag.String("url", "ws://localhost:8080/v1/ws", "ws url")
		name     = flag.String("name", "Steve", "player name")
		eye      = flag.String("eye", "0.5,80.62,0.5", "eye position x,y,z")
		yaw      = flag.Float64("yaw", 0, "look yaw in degrees")
		pitch    = flag.Float64("pitch", 45, "look pitch in degrees")
		held     = flag.String("held", "minecraft:diamond_pickaxe", "item in main hand")
		sneak    = flag.Bool("sneak", false, "sneaking")
		vanilla  = flag.Bool("vanilla", false, "skip the handshake and act like an unmodded client")
		pattern  = flag.String("pattern", "", "pattern to select after the handshake")
		target   = flag.String("target", "", "block x,y,z to request a vein-mine preview for")
		once     = flag.Bool("once", true, "exit after the first vein-mine result")
		logLevel = flag.String("log_level", "info", "debug|info|warn|error")
	)
	flag.Parse()

	logger, err := logging.New(config.LogConfig{Level: *logLevel, Format: "console", Output: "stdout"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "client: %v\n", err)
		os.Exit(2)
	}
	defer func() { _ = logger.Sync() }()

	eyePos, err := parseVec(*eye)
	if err != nil {
		logger.Fatal("bad -eye", zap.Error(err))
	}
	c := &client{log: logger, pattern: strings.TrimSpace(*pattern), once: *once}
	if strings.TrimSpace(*target) != "" {
		v, err := parseVec(*target)
		if err != nil {
			logger.Fatal("bad -target", zap.Error(err))
		}
		t := [3]int{int(v[0]), int(v[1]), int(v[2])}
		c.target = &t
	}

	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		logger.Fatal("dial", zap.Error(err))
	}
	defer conn.Close()
	c.conn = conn

	if err := c.send(protocol.NewLogin(*name, "")); err != nil {
		logger.Fatal("send LOGIN", zap.Error(err))
	}
	if err := c.send(protocol.NewPlayerState(eyePos, world.LookVector(*yaw, *pitch), *sneak, *held, "")); err != nil {
		logger.Fatal("send PLAYER_STATE", zap.Error(err))
	}
	if *vanilla {
		c.requestVeinMine()
	} else if err := c.send(protocol.NewHandshake(protocol.Version)); err != nil {
		logger.Fatal("send HANDSHAKE", zap.Error(err))
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	go func() {
		<-stop
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"))
		_ = conn.Close()
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			var ce *websocket.CloseError
			if errors.As(err, &ce) {
				logger.Info("connection closed", zap.Int("code", ce.Code), zap.String("reason", ce.Text))
			}
			return
		}
		if done := c.handle(msg); done {
			return
		}
	}
}

func (c *client) handle(b []byte) bool {
	env, err := protocol.DecodeEnvelope(b)
	if err != nil {
		c.log.Warn("bad frame", zap.Error(err))
		return false
	}
	if env.Channel == protocol.GameChannel {
		msg, err := protocol.DecodeGame(b)
		if err != nil {
			return false
		}
		if w, ok := msg.(*protocol.WelcomeMsg); ok {
			c.log.Info("WELCOME", zap.String("player_id", w.PlayerID), zap.String("world", w.World), zap.Int("tick_rate", w.TickRateHz))
		}
		return false
	}

	msg, err := protocol.Decode(b)
	if err != nil {
		c.log.Warn("bad plugin message", zap.Error(err))
		return false
	}
	switch m := msg.(type) {
	case *protocol.HandshakeResponseMsg:
		c.log.Info("HANDSHAKE_RESPONSE")
	case *protocol.SyncRegisteredPatternsMsg:
		c.log.Info("SYNC_REGISTERED_PATTERNS", zap.Strings("patterns", m.Patterns))
		if c.pattern != "" {
			_ = c.send(protocol.NewSelectPattern(c.pattern))
		}
	case *protocol.SetConfigMsg:
		c.log.Info("SET_CONFIG",
			zap.Bool("activation_keybind", m.Config.AllowActivationKeybind),
			zap.Bool("pattern_keybind", m.Config.AllowPatternSwitchingKeybind),
			zap.Bool("wireframe", m.Config.AllowWireframeRendering),
		)
		// SET_CONFIG closes the handshake.
		c.requestVeinMine()
	case *protocol.SetPatternMsg:
		c.log.Info("SET_PATTERN", zap.String("pattern", m.Pattern))
	case *protocol.VeinMineResultsMsg:
		c.log.Info("VEIN_MINE_RESULTS", zap.Int("blocks", len(m.Positions)), zap.Any("positions", m.Positions))
		return c.once
	default:
		c.log.Debug("message", zap.String("type", env.Type))
	}
	return false
}

func (c *client) requestVeinMine() {
	if c.target == nil {
		return
	}
	if err := c.send(protocol.NewRequestVeinMine(*c.target)); err != nil {
		c.log.Error("send REQUEST_VEIN_MINE", zap.Error(err))
	}
}

func (c *client) send(msg any) error {
	b, err := protocol.Encode(msg)
	if err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, b)
}

func parseVec(s string) ([3]float64, error) {
	var v [3]float64
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return v, fmt.Errorf("want x,y,z, got %q", s)
	}
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return v, fmt.Errorf("component %d: %w", i, err)
		}
		v[i] = f
	}
	return v, nil
}
