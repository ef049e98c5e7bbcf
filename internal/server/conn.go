package server

import (
	"crypto/md5"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/KyousabaMC/VeinMiner/internal/block"
	"github.com/KyousabaMC/VeinMiner/internal/config"
	"github.com/KyousabaMC/VeinMiner/internal/protocol"
	"github.com/KyousabaMC/VeinMiner/internal/tool"
	"github.com/KyousabaMC/VeinMiner/internal/world"
)

// Conn is the loop's handle on one transport connection. The transport
// drains Out and closes the socket with the reason received on Kicked.
type Conn struct {
	Out  chan []byte
	kick chan Kick
}

// Kick carries a protocol close code and a human-readable reason.
type Kick struct {
	Code   string
	Reason string
}

// CloseText renders the kick for a websocket close frame, which caps the
// reason at 123 bytes.
func (k Kick) CloseText() string {
	s := k.Code
	if k.Reason != "" {
		s += ": " + k.Reason
	}
	if len(s) > 123 {
		s = s[:123]
	}
	return s
}

func NewConn(queue int) *Conn {
	if queue <= 0 {
		queue = 64
	}
	return &Conn{
		Out:  make(chan []byte, queue),
		kick: make(chan Kick, 1),
	}
}

func (c *Conn) Kicked() <-chan Kick { return c.kick }

// NewConn sizes a connection with the server's outbound queue bound.
func (s *Server) NewConn() *Conn { return NewConn(s.outQueue) }

// offlineUUID derives the id of a player that logged in without one, the
// same way offline-mode servers do.
func offlineUUID(name string) uuid.UUID {
	h := md5.Sum([]byte("OfflinePlayer:" + name))
	h[6] = h[6]&0x0f | 0x30
	h[8] = h[8]&0x3f | 0x80
	return uuid.UUID(h)
}

// player implements session.Player for a websocket connection. All fields are
// owned by the game loop.
type player struct {
	srv    *Server
	id     uuid.UUID
	name   string
	connID uint64
	conn   *Conn
	grants []string

	eye       [3]float64
	look      [3]float64
	sneaking  bool
	held      tool.Item
	worldName string

	kicked bool
}

func (p *player) UniqueID() uuid.UUID { return p.id }
func (p *player) Name() string        { return p.name }

func (p *player) HasPermission(node string) bool {
	if node == "" {
		return true
	}
	return config.HasNode(p.grants, node)
}

func (p *player) Kick(reason string) { p.kickWith(protocol.ErrKicked, reason) }

func (p *player) kickWith(code, reason string) {
	if p.kicked {
		return
	}
	p.kicked = true
	select {
	case p.conn.kick <- Kick{Code: code, Reason: reason}:
	default:
	}
	p.srv.kicks = append(p.srv.kicks, p)
	p.srv.metrics.Kicks.Add(1)
	p.srv.log.Info("player kicked", zap.String("player", p.name), zap.String("code", code), zap.String("reason", reason))
}

func (p *player) SendPluginMessage(channel string, payload []byte) {
	if p.kicked {
		return
	}
	if channel != protocol.Channel {
		p.srv.log.Debug("drop message on foreign channel", zap.String("channel", channel))
		return
	}
	select {
	case p.conn.Out <- payload:
		p.srv.metrics.MessagesOut.Add(1)
	default:
		// Messages are never dropped; a stalled client is kicked.
		p.kickWith(protocol.ErrServerBusy, "outbound queue full")
	}
}

func (p *player) ItemInMainHand() tool.Item { return p.held }

func (p *player) TargetBlock(maxDistance int) (block.Position, block.Face, bool) {
	return world.RayTrace(p.srv.world, p.eye, p.look, float64(maxDistance))
}

func (p *player) World() block.Accessor { return p.srv.world }

func (p *player) WorldName() string {
	if p.worldName != "" {
		return p.worldName
	}
	return p.srv.world.Name()
}

func (p *player) IsSneaking() bool { return p.sneaking }

func (p *player) applyState(m *protocol.PlayerStateMsg) {
	p.eye = m.Eye
	p.look = m.Look
	p.sneaking = m.Sneaking
	p.held = tool.ItemOf(m.HeldItem)
	p.worldName = strings.TrimSpace(m.World)
}
