// Package server hosts the authoritative game loop: it owns the world, the
// connected players and their sessions, and applies everything the
// transport receives at tick boundaries.
package server

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/KyousabaMC/VeinMiner/internal/config"
	persistlog "github.com/KyousabaMC/VeinMiner/internal/persistence/log"
	"github.com/KyousabaMC/VeinMiner/internal/persistence/playerdb"
	"github.com/KyousabaMC/VeinMiner/internal/persistence/snapshot"
	"github.com/KyousabaMC/VeinMiner/internal/protocol"
	"github.com/KyousabaMC/VeinMiner/internal/session"
	"github.com/KyousabaMC/VeinMiner/internal/world"
)

var (
	ErrStopped       = errors.New("server: stopped")
	ErrUnknownPlayer = errors.New("server: unknown player")
)

// AuditSink receives every served vein-mine result.
type AuditSink interface {
	WriteAudit(e persistlog.AuditEntry) error
}

// SnapshotRecorder is told about every snapshot written to disk.
type SnapshotRecorder interface {
	RecordSnapshot(path string, snap snapshot.SnapshotV1)
}

type Options struct {
	Config     config.Config
	TickRateHz int
	// World overrides the world generated from Config.World.
	World  *world.World
	Store  playerdb.Store
	Audit  AuditSink
	Events session.Events
	Logger *zap.Logger
	// OutQueue bounds each connection's outbound queue.
	OutQueue int
	// SnapshotDir enables world snapshots when Config.Storage.Snapshots is
	// set. The newest one is restored by New.
	SnapshotDir string
	Snapshots   SnapshotRecorder
}

type JoinRequest struct {
	Name string
	UUID string
	Conn *Conn
	Resp chan JoinResponse
}

// JoinResponse carries either a welcome or the close code to reject with.
type JoinResponse struct {
	Welcome  *protocol.WelcomeMsg
	PlayerID uuid.UUID
	ConnID   uint64
	Code     string
	Reason   string
}

type LeaveRequest struct {
	PlayerID uuid.UUID
	ConnID   uint64
}

// Frame is one raw client frame.
type Frame struct {
	PlayerID uuid.UUID
	ConnID   uint64
	Payload  []byte
}

type call struct {
	fn   func()
	done chan struct{}
}

type Server struct {
	tickRate int
	outQueue int
	log      *zap.Logger
	store    playerdb.Store
	audit    AuditSink
	world    *world.World
	env      *session.Env
	manager  *session.Manager
	cfg      atomic.Pointer[config.Config]

	snapDir  string
	snapKeep int
	snapRec  SnapshotRecorder
	snapMu   sync.Mutex
	snapWG   sync.WaitGroup

	tick    atomic.Uint64
	sched   scheduler
	metrics counters

	stepNanos    atomic.Int64
	playerCount  atomic.Int64
	clientCount  atomic.Int64
	loadedChunks atomic.Int64
	editedChunks atomic.Int64

	join  chan JoinRequest
	leave chan LeaveRequest
	inbox chan Frame
	calls chan call

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}

	// Owned by the loop.
	players    map[uuid.UUID]*player
	nextConnID uint64
	kicks      []*player
}

func New(opts Options) (*Server, error) {
	cfg := opts.Config
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if opts.TickRateHz <= 0 {
		opts.TickRateHz = 20
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	w := opts.World
	if w == nil {
		var err error
		w, err = world.New(cfg.World.Name, genFromConfig(cfg.World))
		if err != nil {
			return nil, fmt.Errorf("world: %w", err)
		}
	}
	regs, err := BuildRegistries(cfg)
	if err != nil {
		return nil, err
	}

	s := &Server{
		tickRate: opts.TickRateHz,
		outQueue: opts.OutQueue,
		log:      log,
		store:    opts.Store,
		audit:    opts.Audit,
		world:    w,
		join:     make(chan JoinRequest, 64),
		leave:    make(chan LeaveRequest, 64),
		inbox:    make(chan Frame, 1024),
		calls:    make(chan call, 64),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
		players:  map[uuid.UUID]*player{},
	}
	if cfg.Storage.Snapshots && opts.SnapshotDir != "" {
		s.snapDir = opts.SnapshotDir
		s.snapKeep = cfg.Storage.SnapshotKeep
		s.snapRec = opts.Snapshots
		if err := s.restoreSnapshot(); err != nil {
			return nil, err
		}
	}
	s.sched.now = s.tick.Load
	s.env = &session.Env{
		Scheduler:       &s.sched,
		Events:          opts.Events,
		ProtocolVersion: protocol.Version,
		OnVeinMine:      s.recordVeinMine,
		Logger:          log.Named("session"),
	}
	s.applyLimits(cfg)
	s.env.SetRegistries(regs)
	s.cfg.Store(&cfg)
	s.manager = session.NewManager(s.env, opts.Store)
	return s, nil
}

func genFromConfig(c config.WorldConfig) world.Gen {
	g := world.DefaultGen(c.Seed)
	g.MinY = c.MinY
	g.MaxY = c.MaxY
	g.SurfaceY = c.SurfaceY
	g.SurfaceAmplitude = c.SurfaceAmplitude
	g.OrePermille = c.OrePermille
	g.TreePermille = c.TreePermille
	return g
}

func (s *Server) applyLimits(cfg config.Config) {
	s.env.RayTraceDistance = cfg.Limits.RayTraceDistance
	s.env.RequestLimit = rate.Limit(cfg.Limits.RequestsPerSecond)
	s.env.RequestBurst = cfg.Limits.RequestBurst
	if st, err := session.ParseStrategy(cfg.DefaultActivationStrategy); err == nil {
		s.env.DefaultStrategy = st
	}
}

func (s *Server) TickRateHz() int       { return s.tickRate }
func (s *Server) CurrentTick() uint64   { return s.tick.Load() }
func (s *Server) Config() config.Config { return *s.cfg.Load() }
func (s *Server) WorldName() string     { return s.world.Name() }
func (s *Server) Done() <-chan struct{} { return s.done }

func (s *Server) Stop() { s.stopOnce.Do(func() { close(s.stop) }) }

// Join submits a login and waits for the loop to accept or reject it.
func (s *Server) Join(ctx context.Context, name, id string, conn *Conn) (JoinResponse, error) {
	req := JoinRequest{Name: name, UUID: id, Conn: conn, Resp: make(chan JoinResponse, 1)}
	select {
	case s.join <- req:
	case <-ctx.Done():
		return JoinResponse{}, ctx.Err()
	case <-s.done:
		return JoinResponse{}, ErrStopped
	}
	select {
	case resp := <-req.Resp:
		return resp, nil
	case <-ctx.Done():
		// The loop may still accept the join; leave so it does not linger.
		go s.awaitAndLeave(req.Resp)
		return JoinResponse{}, ctx.Err()
	case <-s.done:
		return JoinResponse{}, ErrStopped
	}
}

func (s *Server) awaitAndLeave(resp chan JoinResponse) {
	select {
	case r := <-resp:
		if r.Welcome != nil {
			s.Leave(r.PlayerID, r.ConnID)
		}
	case <-s.done:
	}
}

// Leave removes the player if connID is still its current connection.
func (s *Server) Leave(id uuid.UUID, connID uint64) {
	select {
	case s.leave <- LeaveRequest{PlayerID: id, ConnID: connID}:
	case <-s.done:
	}
}

// Submit queues a client frame. It blocks while the inbox is full and
// reports false once the server has stopped.
func (s *Server) Submit(f Frame) bool {
	select {
	case s.inbox <- f:
		return true
	case <-s.done:
		return false
	}
}

// do runs fn on the loop at the next tick boundary and waits for it.
func (s *Server) do(ctx context.Context, fn func()) error {
	c := call{fn: fn, done: make(chan struct{})}
	select {
	case s.calls <- c:
	case <-ctx.Done():
		return ctx.Err()
	case <-s.done:
		return ErrStopped
	}
	select {
	case <-c.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-s.done:
		return ErrStopped
	}
}

func (s *Server) Run(ctx context.Context) error {
	defer close(s.done)

	interval := time.Second / time.Duration(s.tickRate)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	flush := time.NewTicker(s.Config().Storage.FlushInterval)
	defer flush.Stop()
	var snapC <-chan time.Time
	if s.snapDir != "" {
		snaps := time.NewTicker(s.Config().Storage.SnapshotInterval)
		defer snaps.Stop()
		snapC = snaps.C
	}

	var pendingJoins []JoinRequest
	var pendingLeaves []LeaveRequest
	var pendingFrames []Frame
	var pendingCalls []call

	s.log.Info("server loop started", zap.Int("tick_rate_hz", s.tickRate), zap.String("world", s.world.Name()))
	for {
		select {
		case <-ctx.Done():
			s.shutdown(pendingJoins)
			return ctx.Err()
		case <-s.stop:
			s.shutdown(pendingJoins)
			return nil
		case req := <-s.join:
			pendingJoins = append(pendingJoins, req)
		case req := <-s.leave:
			pendingLeaves = append(pendingLeaves, req)
		case f := <-s.inbox:
			s.metrics.MessagesIn.Add(1)
			pendingFrames = append(pendingFrames, f)
		case c := <-s.calls:
			pendingCalls = append(pendingCalls, c)
		case <-flush.C:
			s.flushDirty(ctx)
		case <-snapC:
			snap := s.world.ExportSnapshot(s.tick.Load())
			s.snapWG.Add(1)
			go func() {
				defer s.snapWG.Done()
				_, _ = s.writeSnapshot(snap)
			}()
		case <-ticker.C:
			s.step(ctx, pendingJoins, pendingLeaves, pendingFrames, pendingCalls)
			pendingJoins = pendingJoins[:0]
			pendingLeaves = pendingLeaves[:0]
			pendingFrames = pendingFrames[:0]
			pendingCalls = pendingCalls[:0]
		}
	}
}

// StepOnce advances one tick with the given inputs. It is meant for tests
// that drive the loop without Run.
func (s *Server) StepOnce(ctx context.Context, joins []JoinRequest, leaves []LeaveRequest, frames []Frame) uint64 {
	s.step(ctx, joins, leaves, frames, nil)
	return s.tick.Load()
}

func (s *Server) step(ctx context.Context, joins []JoinRequest, leaves []LeaveRequest, frames []Frame, calls []call) {
	start := time.Now()
	tick := s.tick.Add(1)

	for _, req := range joins {
		s.handleJoin(ctx, req)
	}
	for _, f := range frames {
		s.handleFrame(f)
	}
	for _, req := range leaves {
		if p := s.players[req.PlayerID]; p != nil && p.connID == req.ConnID {
			s.removePlayer(ctx, p)
		}
	}
	s.processKicks(ctx)
	for _, c := range calls {
		c.fn()
		close(c.done)
	}
	s.sched.runDue(tick)
	s.processKicks(ctx)

	clients := 0
	for _, sess := range s.manager.All() {
		if sess.UsingClientMod() {
			clients++
		}
	}
	s.playerCount.Store(int64(len(s.players)))
	s.clientCount.Store(int64(clients))
	s.loadedChunks.Store(int64(len(s.world.LoadedChunkKeys())))
	s.editedChunks.Store(int64(s.world.EditedChunks()))
	s.stepNanos.Store(int64(time.Since(start)))
}

func (s *Server) handleJoin(ctx context.Context, req JoinRequest) {
	resp := s.admit(ctx, req)
	if req.Resp != nil {
		req.Resp <- resp
	}
}

func (s *Server) admit(ctx context.Context, req JoinRequest) JoinResponse {
	name := strings.TrimSpace(req.Name)
	if !validName(name) {
		return JoinResponse{Code: protocol.ErrProtoBadRequest, Reason: "invalid name"}
	}
	id := offlineUUID(name)
	if strings.TrimSpace(req.UUID) != "" {
		parsed, err := uuid.Parse(strings.TrimSpace(req.UUID))
		if err != nil {
			return JoinResponse{Code: protocol.ErrProtoBadRequest, Reason: "invalid uuid"}
		}
		id = parsed
	}
	if _, ok := s.players[id]; ok {
		return JoinResponse{Code: protocol.ErrLoginTaken, Reason: "already connected"}
	}
	for _, p := range s.players {
		if strings.EqualFold(p.name, name) {
			return JoinResponse{Code: protocol.ErrLoginTaken, Reason: "name in use"}
		}
	}
	if req.Conn == nil {
		return JoinResponse{Code: protocol.ErrInternal, Reason: "no connection"}
	}

	s.nextConnID++
	p := &player{
		srv:    s,
		id:     id,
		name:   name,
		connID: s.nextConnID,
		conn:   req.Conn,
		grants: s.Config().Permissions.Grants(name),
	}
	if _, err := s.manager.Add(ctx, p); err != nil {
		s.log.Error("session add failed", zap.String("player", name), zap.Error(err))
		return JoinResponse{Code: protocol.ErrInternal, Reason: "session unavailable"}
	}
	s.players[id] = p
	s.metrics.Joins.Add(1)
	s.log.Info("player joined", zap.String("player", name), zap.String("id", id.String()))
	return JoinResponse{
		Welcome:  protocol.NewWelcome(id.String(), s.world.Name(), s.tickRate),
		PlayerID: id,
		ConnID:   p.connID,
	}
}

func validName(name string) bool {
	if len(name) < 1 || len(name) > 16 {
		return false
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
		default:
			return false
		}
	}
	return true
}

func (s *Server) handleFrame(f Frame) {
	p := s.players[f.PlayerID]
	if p == nil || p.connID != f.ConnID || p.kicked {
		s.metrics.DroppedFrames.Add(1)
		return
	}
	env, err := protocol.DecodeEnvelope(f.Payload)
	if err != nil {
		s.metrics.DroppedFrames.Add(1)
		s.log.Debug("drop malformed frame", zap.String("player", p.name), zap.Error(err))
		return
	}
	switch env.Channel {
	case protocol.Channel:
		sess, ok := s.manager.Get(p.id)
		if !ok {
			s.metrics.DroppedFrames.Add(1)
			return
		}
		sess.HandleMessage(f.Payload)
	case protocol.GameChannel:
		msg, err := protocol.DecodeGame(f.Payload)
		if err != nil {
			s.metrics.DroppedFrames.Add(1)
			s.log.Debug("drop game frame", zap.String("player", p.name), zap.Error(err))
			return
		}
		st, ok := msg.(*protocol.PlayerStateMsg)
		if !ok {
			s.metrics.DroppedFrames.Add(1)
			return
		}
		p.applyState(st)
	default:
		s.metrics.DroppedFrames.Add(1)
		s.log.Debug("drop frame on unknown channel", zap.String("player", p.name), zap.String("channel", env.Channel))
	}
}

func (s *Server) processKicks(ctx context.Context) {
	for len(s.kicks) > 0 {
		p := s.kicks[0]
		s.kicks = s.kicks[1:]
		if cur := s.players[p.id]; cur == p {
			s.removePlayer(ctx, p)
		}
	}
	s.kicks = nil
}

func (s *Server) removePlayer(ctx context.Context, p *player) {
	delete(s.players, p.id)
	sess, ok := s.manager.Remove(p.id)
	if ok {
		if err := s.manager.Flush(ctx, sess); err != nil {
			s.metrics.FlushFailures.Add(1)
			s.log.Error("save player on leave", zap.String("player", p.name), zap.Error(err))
		} else {
			s.metrics.Flushes.Add(1)
		}
	}
	s.metrics.Leaves.Add(1)
	s.log.Info("player left", zap.String("player", p.name))
}

func (s *Server) flushDirty(ctx context.Context) {
	n, err := s.manager.FlushAll(ctx)
	s.metrics.Flushes.Add(uint64(n))
	if err != nil {
		s.metrics.FlushFailures.Add(1)
		s.log.Error("flush players", zap.Error(err))
		return
	}
	if n > 0 {
		s.log.Debug("flushed players", zap.Int("records", n))
	}
}

// shutdown rejects buffered joins and kicks everyone. Buffered calls are
// abandoned; their callers observe ErrStopped.
func (s *Server) shutdown(joins []JoinRequest) {
	for _, req := range joins {
		if req.Resp != nil {
			req.Resp <- JoinResponse{Code: protocol.ErrShuttingDown, Reason: "server stopping"}
		}
	}
	for _, p := range s.players {
		p.kickWith(protocol.ErrShuttingDown, "server stopping")
	}
	// The loop context may already be cancelled; give the store its own.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.processKicks(ctx)
	if s.snapDir != "" {
		s.snapWG.Wait()
		_, _ = s.writeSnapshot(s.world.ExportSnapshot(s.tick.Load()))
	}
	s.log.Info("server loop stopped", zap.Uint64("tick", s.tick.Load()))
}

func (s *Server) recordVeinMine(r session.VeinMineRecord) {
	s.metrics.VeinMines.Add(1)
	s.metrics.VeinMineBlocks.Add(uint64(len(r.Positions)))
	if s.audit == nil {
		return
	}
	positions := make([][3]int, len(r.Positions))
	for i, p := range r.Positions {
		positions[i] = p.ToArray()
	}
	e := persistlog.AuditEntry{
		Time:      time.Now().UTC(),
		PlayerID:  r.PlayerID.String(),
		Player:    r.Player,
		World:     r.World,
		Category:  r.Category,
		Pattern:   r.Pattern.String(),
		Origin:    r.Origin.ToArray(),
		Face:      r.Face.String(),
		Positions: positions,
	}
	if err := s.audit.WriteAudit(e); err != nil {
		s.log.Error("write audit", zap.Error(err))
	}
}

func (s *Server) Metrics() Metrics {
	m := Metrics{
		Tick:           s.tick.Load(),
		Players:        int(s.playerCount.Load()),
		ClientPlayers:  int(s.clientCount.Load()),
		LoadedChunks:   int(s.loadedChunks.Load()),
		StepMS:         float64(s.stepNanos.Load()) / float64(time.Millisecond),
		Joins:          s.metrics.Joins.Load(),
		Leaves:         s.metrics.Leaves.Load(),
		Kicks:          s.metrics.Kicks.Load(),
		MessagesIn:     s.metrics.MessagesIn.Load(),
		MessagesOut:    s.metrics.MessagesOut.Load(),
		DroppedFrames:  s.metrics.DroppedFrames.Load(),
		VeinMines:      s.metrics.VeinMines.Load(),
		VeinMineBlocks: s.metrics.VeinMineBlocks.Load(),
		Reloads:        s.metrics.Reloads.Load(),
		ReloadFailures: s.metrics.ReloadFailures.Load(),
		Flushes:        s.metrics.Flushes.Load(),
		FlushFailures:  s.metrics.FlushFailures.Load(),
		Snapshots:      s.metrics.Snapshots.Load(),
		SnapFailures:   s.metrics.SnapshotFailures.Load(),
		EditedChunks:   int(s.editedChunks.Load()),
	}
	m.QueueDepths.Join = len(s.join)
	m.QueueDepths.Leave = len(s.leave)
	m.QueueDepths.Inbox = len(s.inbox)
	m.QueueDepths.Calls = len(s.calls)
	return m
}
