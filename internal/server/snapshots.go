package server

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/KyousabaMC/VeinMiner/internal/persistence/snapshot"
)

var ErrSnapshotsDisabled = errors.New("server: snapshots disabled")

// restoreSnapshot loads the newest snapshot, if any, and resumes its tick.
func (s *Server) restoreSnapshot() error {
	path := snapshot.Latest(s.snapDir)
	if path == "" {
		return nil
	}
	snap, err := snapshot.ReadSnapshot(path)
	if err != nil {
		return err
	}
	if err := s.world.ImportSnapshot(snap); err != nil {
		return err
	}
	s.tick.Store(snap.Header.Tick)
	s.log.Info("resumed from snapshot",
		zap.String("path", path),
		zap.Uint64("tick", snap.Header.Tick),
		zap.Int("chunks", len(snap.Chunks)),
	)
	return nil
}

// SaveSnapshot captures the world on the loop and writes it from the caller.
func (s *Server) SaveSnapshot(ctx context.Context) (string, error) {
	if s.snapDir == "" {
		return "", ErrSnapshotsDisabled
	}
	var snap snapshot.SnapshotV1
	if err := s.do(ctx, func() { snap = s.world.ExportSnapshot(s.tick.Load()) }); err != nil {
		return "", err
	}
	return s.writeSnapshot(snap)
}

func (s *Server) writeSnapshot(snap snapshot.SnapshotV1) (string, error) {
	s.snapMu.Lock()
	defer s.snapMu.Unlock()

	path := snapshot.PathFor(s.snapDir, snap.Header.Tick)
	if err := snapshot.WriteSnapshot(path, snap); err != nil {
		s.metrics.SnapshotFailures.Add(1)
		s.log.Error("snapshot write", zap.String("path", path), zap.Error(err))
		return "", err
	}
	s.metrics.Snapshots.Add(1)
	if s.snapRec != nil {
		s.snapRec.RecordSnapshot(path, snap)
	}
	if n, err := snapshot.Prune(s.snapDir, s.snapKeep); err != nil {
		s.log.Warn("snapshot prune", zap.Error(err))
	} else if n > 0 {
		s.log.Debug("pruned snapshots", zap.Int("removed", n))
	}
	s.log.Info("snapshot written", zap.String("path", path), zap.Int("chunks", len(snap.Chunks)))
	return path, nil
}
