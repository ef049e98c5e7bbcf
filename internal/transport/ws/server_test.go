package ws

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/KyousabaMC/VeinMiner/internal/block"
	"github.com/KyousabaMC/VeinMiner/internal/config"
	"github.com/KyousabaMC/VeinMiner/internal/protocol"
	"github.com/KyousabaMC/VeinMiner/internal/server"
	"github.com/KyousabaMC/VeinMiner/internal/world"
)

func startServer(t *testing.T) (*server.Server, string) {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Limits.RequestsPerSecond = 0

	w, err := world.New("world", world.DefaultGen(3))
	require.NoError(t, err)
	w.Fill(block.Pos(0, 70, 0), block.Pos(10, 80, 10), block.Air)
	w.SetState(block.Pos(5, 75, 5), block.MustParseState("minecraft:iron_ore"))
	w.SetState(block.Pos(5, 75, 6), block.MustParseState("minecraft:iron_ore"))

	srv, err := server.New(server.Options{Config: cfg, TickRateHz: 50, World: w, Logger: zap.NewNop()})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = srv.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-srv.Done()
	})

	hs := httptest.NewServer(NewServer(srv, zap.NewNop()).Handler())
	t.Cleanup(hs.Close)
	return srv, "ws" + strings.TrimPrefix(hs.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	c, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func send(t *testing.T, c *websocket.Conn, msg any) {
	t.Helper()
	b, err := protocol.Encode(msg)
	require.NoError(t, err)
	require.NoError(t, c.WriteMessage(websocket.TextMessage, b))
}

func recv(t *testing.T, c *websocket.Conn) any {
	t.Helper()
	_ = c.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, b, err := c.ReadMessage()
	require.NoError(t, err)
	env, err := protocol.DecodeEnvelope(b)
	require.NoError(t, err)
	var msg any
	if env.Channel == protocol.GameChannel {
		msg, err = protocol.DecodeGame(b)
	} else {
		msg, err = protocol.Decode(b)
	}
	require.NoError(t, err)
	return msg
}

func closeErr(t *testing.T, c *websocket.Conn) *websocket.CloseError {
	t.Helper()
	_ = c.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		_, _, err := c.ReadMessage()
		if err == nil {
			continue
		}
		var ce *websocket.CloseError
		require.True(t, errors.As(err, &ce), "expected close frame, got %v", err)
		return ce
	}
}

func login(t *testing.T, url, name string) *websocket.Conn {
	t.Helper()
	c := dial(t, url)
	send(t, c, protocol.NewLogin(name, ""))
	welcome, ok := recv(t, c).(*protocol.WelcomeMsg)
	require.True(t, ok)
	assert.Equal(t, "world", welcome.World)
	return c
}

func TestSession_HandshakeAndVeinMine(t *testing.T) {
	_, url := startServer(t)
	c := login(t, url, "Steve")

	send(t, c, protocol.NewPlayerState([3]float64{5.5, 75.5, 2.5}, [3]float64{0, 0, 1}, true, "minecraft:iron_pickaxe", ""))
	send(t, c, protocol.NewHandshake(protocol.Version))
	assert.IsType(t, &protocol.HandshakeResponseMsg{}, recv(t, c))
	sync, ok := recv(t, c).(*protocol.SyncRegisteredPatternsMsg)
	require.True(t, ok)
	assert.Contains(t, sync.Patterns, "veinminer:tunnel")
	cfgMsg, ok := recv(t, c).(*protocol.SetConfigMsg)
	require.True(t, ok)
	assert.True(t, cfgMsg.Config.AllowActivationKeybind)

	send(t, c, protocol.NewRequestVeinMine([3]int{5, 75, 5}))
	res, ok := recv(t, c).(*protocol.VeinMineResultsMsg)
	require.True(t, ok)
	assert.Equal(t, [][3]int{{5, 75, 5}, {5, 75, 6}}, res.Positions)
}

func TestLogin_Rejections(t *testing.T) {
	_, url := startServer(t)
	login(t, url, "Steve")

	dup := dial(t, url)
	send(t, dup, protocol.NewLogin("STEVE", ""))
	ce := closeErr(t, dup)
	assert.Equal(t, websocket.ClosePolicyViolation, ce.Code)
	assert.True(t, strings.HasPrefix(ce.Text, protocol.ErrLoginTaken), ce.Text)

	bad := dial(t, url)
	send(t, bad, protocol.NewHandshake(protocol.Version))
	ce = closeErr(t, bad)
	assert.True(t, strings.HasPrefix(ce.Text, protocol.ErrProtoBadRequest), ce.Text)
}

func TestKick_ClosesWithReason(t *testing.T) {
	_, url := startServer(t)
	c := login(t, url, "Steve")

	send(t, c, protocol.NewHandshake(protocol.Version+1))
	ce := closeErr(t, c)
	assert.Equal(t, websocket.ClosePolicyViolation, ce.Code)
	assert.Contains(t, ce.Text, protocol.ErrKicked)
	assert.Contains(t, ce.Text, "too new")
}

func TestShutdown_ClosesGoingAway(t *testing.T) {
	srv, url := startServer(t)
	c := login(t, url, "Steve")

	srv.Stop()
	ce := closeErr(t, c)
	assert.Equal(t, websocket.CloseGoingAway, ce.Code)
	assert.True(t, strings.HasPrefix(ce.Text, protocol.ErrShuttingDown), ce.Text)
}
