package ws

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/KyousabaMC/VeinMiner/internal/protocol"
	"github.com/KyousabaMC/VeinMiner/internal/server"
)

const (
	loginTimeout = 5 * time.Second
	readTimeout  = 60 * time.Second
	writeTimeout = 5 * time.Second
	maxFrame     = 64 * 1024
)

type Server struct {
	srv *server.Server
	log *zap.Logger

	upgrader websocket.Upgrader
}

func NewServer(srv *server.Server, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		srv: srv,
		log: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  maxFrame,
			WriteBufferSize: maxFrame,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		conn.SetReadLimit(maxFrame)

		resp, c := s.login(r.Context(), conn)
		if c == nil {
			return
		}
		log := s.log.With(zap.String("player_id", resp.PlayerID.String()), zap.Uint64("conn_id", resp.ConnID))

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// Writer goroutine.
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case b := <-c.Out:
					if err := writeFrame(conn, b); err != nil {
						cancel()
						_ = conn.Close()
						return
					}
				case k := <-c.Kicked():
					drain(conn, c.Out)
					log.Info("closing kicked connection", zap.String("code", k.Code), zap.String("reason", k.Reason))
					closeWith(conn, closeCode(k.Code), k.CloseText())
					_ = conn.Close()
					return
				}
			}
		}()

		// Reader loop.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
			mt, msg, err := conn.ReadMessage()
			if err != nil {
				cancel()
				break
			}
			if mt != websocket.TextMessage {
				continue
			}
			if !s.srv.Submit(server.Frame{PlayerID: resp.PlayerID, ConnID: resp.ConnID, Payload: msg}) {
				break
			}
		}

		// Cleanup.
		s.srv.Leave(resp.PlayerID, resp.ConnID)
	}
}

// login reads the LOGIN frame and joins the player. A nil conn means the
// socket was already closed with a reason.
func (s *Server) login(ctx context.Context, conn *websocket.Conn) (server.JoinResponse, *server.Conn) {
	_ = conn.SetReadDeadline(time.Now().Add(loginTimeout))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return server.JoinResponse{}, nil
	}

	parsed, err := protocol.DecodeGame(msg)
	login, ok := parsed.(*protocol.LoginMsg)
	if err != nil || !ok {
		reject(conn, server.Kick{Code: protocol.ErrProtoBadRequest, Reason: "expected LOGIN"})
		return server.JoinResponse{}, nil
	}

	c := s.srv.NewConn()
	resp, err := s.srv.Join(ctx, login.Name, login.UUID, c)
	if err != nil {
		code := protocol.ErrInternal
		if errors.Is(err, server.ErrStopped) {
			code = protocol.ErrShuttingDown
		}
		reject(conn, server.Kick{Code: code, Reason: err.Error()})
		return server.JoinResponse{}, nil
	}
	if resp.Welcome == nil {
		reject(conn, server.Kick{Code: resp.Code, Reason: resp.Reason})
		return server.JoinResponse{}, nil
	}

	b, err := protocol.Encode(resp.Welcome)
	if err == nil {
		err = writeFrame(conn, b)
	}
	if err != nil {
		s.srv.Leave(resp.PlayerID, resp.ConnID)
		return server.JoinResponse{}, nil
	}
	s.log.Info("player connected", zap.String("name", login.Name), zap.String("player_id", resp.PlayerID.String()))
	return resp, c
}

func reject(conn *websocket.Conn, k server.Kick) {
	closeWith(conn, closeCode(k.Code), k.CloseText())
}

// drain flushes whatever the loop queued before the kick.
func drain(conn *websocket.Conn, out <-chan []byte) {
	for {
		select {
		case b := <-out:
			if writeFrame(conn, b) != nil {
				return
			}
		default:
			return
		}
	}
}

func closeCode(code string) int {
	switch code {
	case protocol.ErrShuttingDown:
		return websocket.CloseGoingAway
	case protocol.ErrServerBusy:
		return websocket.CloseTryAgainLater
	case protocol.ErrInternal:
		return websocket.CloseInternalServerErr
	default:
		return websocket.ClosePolicyViolation
	}
}

func closeWith(conn *websocket.Conn, code int, text string) {
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, text), time.Now().Add(time.Second))
}

func writeFrame(conn *websocket.Conn, b []byte) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteMessage(websocket.TextMessage, b)
}
