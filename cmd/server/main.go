package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/KyousabaMC/VeinMiner/internal/config"
	"github.com/KyousabaMC/VeinMiner/internal/logging"
	"github.com/KyousabaMC/VeinMiner/internal/persistence/indexdb"
	persistlog "github.com/KyousabaMC/VeinMiner/internal/persistence/log"
	"github.com/KyousabaMC/VeinMiner/internal/persistence/playerdb"
	"github.com/KyousabaMC/VeinMiner/internal/persistence/r2s3"
	"github.com/KyousabaMC/VeinMiner/internal/persistence/snapshot"
	"github.com/KyousabaMC/VeinMiner/internal/server"
	"github.com/KyousabaMC/VeinMiner/internal/session"
	"github.com/KyousabaMC/VeinMiner/internal/transport/ws"
)

func main() {
	rt, err := config.ParseEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "server: %v\n", err)
		os.Exit(2)
	}
	var (
		addr        = flag.String("addr", rt.Addr, "http listen address")
		dataDir     = flag.String("data", rt.DataDir, "runtime data directory")
		configPath  = flag.String("config", rt.ConfigPath, "path to veinminer.yaml (empty for built-in defaults)")
		tickRate    = flag.Int("tick_rate", rt.TickRateHz, "game loop ticks per second")
		watchConfig = flag.Bool("watch_config", rt.WatchConfig, "reload veinminer.yaml when it changes")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "server: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "server: logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(logger, cfg, rt.Mirror, *addr, *dataDir, *configPath, *tickRate, *watchConfig); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(logger *zap.Logger, cfg config.Config, mirrorEnv config.MirrorEnv, addr, dataDir, configPath string, tickRate int, watch bool) error {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("data dir: %w", err)
	}
	store, err := playerdb.Open(cfg.Storage.Type, dataDir)
	if err != nil {
		return err
	}
	defer store.Close()

	opts := server.Options{
		Config:      cfg,
		TickRateHz:  tickRate,
		Store:       store,
		Events:      eventLogger(logger.Named("events")),
		Logger:      logger.Named("server"),
		SnapshotDir: snapshot.Dir(dataDir, cfg.World.Name),
	}
	var sinks fanoutAudit
	if cfg.Audit.Enabled {
		audit := persistlog.NewAuditLogger(dataDir)
		defer audit.Close()
		sinks = append(sinks, audit)
	}
	var recorders fanoutSnapshots
	var idx *indexdb.SQLiteIndex
	if cfg.Audit.Index {
		idx, err = indexdb.OpenSQLite(indexdb.Path(dataDir))
		if err != nil {
			return fmt.Errorf("index: %w", err)
		}
		defer idx.Close()
		sinks = append(sinks, idx)
		recorders = append(recorders, idx)
	}
	if len(sinks) > 0 {
		opts.Audit = sinks
	}
	var mirror *r2s3.Mirror
	if mirrorEnv.Enabled() {
		client, err := r2s3.New(r2s3.ClientConfig{
			Endpoint:        mirrorEnv.Endpoint,
			Bucket:          mirrorEnv.Bucket,
			Region:          mirrorEnv.Region,
			AccessKeyID:     mirrorEnv.AccessKeyID,
			SecretAccessKey: mirrorEnv.SecretAccessKey,
		})
		if err != nil {
			return fmt.Errorf("mirror: %w", err)
		}
		mirror = r2s3.NewMirror(client, r2s3.MirrorOptions{
			DataDir: dataDir,
			Prefix:  mirrorEnv.Prefix,
			Workers: mirrorEnv.Workers,
			Logger:  logger.Named("mirror"),
		})
		defer mirror.Close()
		recorders = append(recorders, mirror)
		logger.Info("mirroring snapshots", zap.String("bucket", mirrorEnv.Bucket), zap.String("prefix", mirrorEnv.Prefix))
	}
	if len(recorders) > 0 {
		opts.Snapshots = recorders
	}
	srv, err := server.New(opts)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	loopErr := make(chan error, 1)
	go func() { loopErr <- srv.Run(ctx) }()

	if watch && strings.TrimSpace(configPath) != "" {
		go func() {
			err := config.Watch(ctx, configPath, logger.Named("config"), func(next config.Config) {
				rctx, rcancel := context.WithTimeout(ctx, 5*time.Second)
				defer rcancel()
				if err := srv.Reload(rctx, next); err != nil {
					logger.Warn("config reload rejected", zap.Error(err))
				}
			})
			if err != nil {
				logger.Error("config watch stopped", zap.Error(err))
			}
		}()
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
		server.WritePrometheus(rw, srv.Metrics())
		if idx != nil {
			writeIndexMetrics(rw, idx.Stats())
		}
		if mirror != nil {
			writeMirrorMetrics(rw, mirror.Stats())
		}
	})

	enableAdminHTTP := envBool("VEINMINER_ENABLE_ADMIN_HTTP", defaultEnableAdminHTTP())
	enablePprofHTTP := envBool("VEINMINER_ENABLE_PPROF_HTTP", false)
	if enableAdminHTTP {
		a := &adminAPI{srv: srv, configPath: configPath, auditDir: persistlog.AuditDir(dataDir)}
		a.register(mux)
	} else {
		logger.Info("admin endpoints disabled (VEINMINER_ENABLE_ADMIN_HTTP=false)")
	}
	if enablePprofHTTP {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}
	mux.HandleFunc("/v1/ws", ws.NewServer(srv, logger.Named("ws")).Handler())

	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		select {
		case <-ctx.Done():
		case <-srv.Done():
		}
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = httpSrv.Shutdown(ctx2)
	}()

	logger.Info("listening",
		zap.String("addr", addr),
		zap.String("world", srv.WorldName()),
		zap.Int("tick_rate_hz", srv.TickRateHz()),
		zap.String("storage", cfg.Storage.Type),
		zap.String("data_dir", filepath.Clean(dataDir)),
	)
	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		cancel()
		<-srv.Done()
		return fmt.Errorf("listen: %w", err)
	}
	cancel()
	if err := <-loopErr; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// fanoutAudit hands each entry to every sink and reports the first error.
type fanoutAudit []server.AuditSink

func (f fanoutAudit) WriteAudit(e persistlog.AuditEntry) error {
	var first error
	for _, s := range f {
		if err := s.WriteAudit(e); err != nil && first == nil {
			first = err
		}
	}
	return first
}

type fanoutSnapshots []server.SnapshotRecorder

func (f fanoutSnapshots) RecordSnapshot(path string, snap snapshot.SnapshotV1) {
	for _, r := range f {
		r.RecordSnapshot(path, snap)
	}
}

func writeMirrorMetrics(w io.Writer, st r2s3.Stats) {
	fmt.Fprintf(w, "# TYPE veinminer_mirror_queue_depth gauge\nveinminer_mirror_queue_depth %d\n", st.QueueDepth)
	fmt.Fprintf(w, "# TYPE veinminer_mirror_dropped_total counter\nveinminer_mirror_dropped_total %d\n", st.DroppedTotal)
	fmt.Fprintf(w, "# TYPE veinminer_mirror_uploads_total counter\nveinminer_mirror_uploads_total{result=\"ok\"} %d\n", st.UploadSuccessTotal)
	fmt.Fprintf(w, "veinminer_mirror_uploads_total{result=\"error\"} %d\n", st.UploadFailTotal)
	fmt.Fprintf(w, "# TYPE veinminer_mirror_last_success_unix gauge\nveinminer_mirror_last_success_unix %d\n", st.LastSuccessUnix)
}

func writeIndexMetrics(w io.Writer, st indexdb.Stats) {
	fmt.Fprintf(w, "# TYPE veinminer_index_queue_depth gauge\nveinminer_index_queue_depth %d\n", st.QueueDepth)
	fmt.Fprintf(w, "# TYPE veinminer_index_queue_capacity gauge\nveinminer_index_queue_capacity %d\n", st.QueueCapacity)
	fmt.Fprintf(w, "# TYPE veinminer_index_written_total counter\nveinminer_index_written_total %d\n", st.WrittenTotal)
	fmt.Fprintf(w, "# TYPE veinminer_index_dropped_total counter\nveinminer_index_dropped_total{kind=\"audit\"} %d\n", st.DropAuditTotal)
	fmt.Fprintf(w, "veinminer_index_dropped_total{kind=\"snapshot\"} %d\n", st.DropSnapshotTotal)
	fmt.Fprintf(w, "# TYPE veinminer_index_write_failures_total counter\nveinminer_index_write_failures_total %d\n", st.WriteFailTotal)
}

// eventLogger records pattern and activation changes without altering them.
func eventLogger(log *zap.Logger) session.Events {
	return session.EventFuncs{
		OnPatternChange: func(ev *session.PatternChangeEvent) {
			from := ""
			if ev.OldPattern != nil {
				from = ev.OldPattern.Key().String()
			}
			log.Debug("pattern change",
				zap.String("player", ev.Player.Name()),
				zap.String("from", from),
				zap.String("to", ev.NewPattern.Key().String()),
				zap.Stringer("cause", ev.Cause),
			)
		},
		OnClientActivate: func(ev *session.ClientActivateEvent) {
			log.Debug("client activation", zap.String("player", ev.Player.Name()), zap.Bool("activated", ev.Activated))
		},
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func defaultEnableAdminHTTP() bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("DEPLOY_ENV"))) {
	case "staging", "production":
		return false
	default:
		return true
	}
}

func envBool(key string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return def
	}
}
