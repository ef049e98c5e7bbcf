package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/KyousabaMC/VeinMiner/internal/block"
	"github.com/KyousabaMC/VeinMiner/internal/config"
	persistlog "github.com/KyousabaMC/VeinMiner/internal/persistence/log"
	"github.com/KyousabaMC/VeinMiner/internal/server"
	"github.com/KyousabaMC/VeinMiner/internal/session"
)

const adminTimeout = 5 * time.Second

// adminAPI serves the local-only /admin/v1 endpoints.
type adminAPI struct {
	srv        *server.Server
	configPath string
	auditDir   string
}

func (a *adminAPI) register(mux *http.ServeMux) {
	mux.HandleFunc("/admin/v1/state", a.local(http.MethodGet, a.handleState))
	mux.HandleFunc("/admin/v1/players", a.local(http.MethodGet, a.handlePlayers))
	mux.HandleFunc("/admin/v1/reload", a.local(http.MethodPost, a.handleReload))
	mux.HandleFunc("/admin/v1/snapshot", a.local(http.MethodPost, a.handleSnapshot))
	mux.HandleFunc("/admin/v1/players/strategy", a.local(http.MethodPost, a.handleStrategy))
	mux.HandleFunc("/admin/v1/players/pattern", a.local(http.MethodPost, a.handlePattern))
	mux.HandleFunc("/admin/v1/players/category", a.local(http.MethodPost, a.handleCategory))
	mux.HandleFunc("/admin/v1/block", a.local("", a.handleBlock))
	mux.HandleFunc("/admin/v1/audit", a.local(http.MethodGet, a.handleAudit))
}

// local restricts h to loopback callers and, when method is set, one method.
func (a *adminAPI) local(method string, h func(ctx context.Context, rw http.ResponseWriter, r *http.Request)) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if method != "" && r.Method != method {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), adminTimeout)
		defer cancel()
		h(ctx, rw, r)
	}
}

func (a *adminAPI) handleState(ctx context.Context, rw http.ResponseWriter, r *http.Request) {
	cfg := a.srv.Config()
	writeJSON(rw, http.StatusOK, map[string]any{
		"world":            a.srv.WorldName(),
		"tick":             a.srv.CurrentTick(),
		"tick_rate_hz":     a.srv.TickRateHz(),
		"default_strategy": cfg.DefaultActivationStrategy,
		"default_pattern":  cfg.DefaultPattern,
		"categories":       len(cfg.Categories),
		"aliases":          len(cfg.Aliases),
		"metrics":          a.srv.Metrics(),
	})
}

func (a *adminAPI) handlePlayers(ctx context.Context, rw http.ResponseWriter, r *http.Request) {
	players, err := a.srv.Players(ctx)
	if err != nil {
		writeError(rw, err)
		return
	}
	if players == nil {
		players = []server.PlayerInfo{}
	}
	writeJSON(rw, http.StatusOK, map[string]any{"players": players})
}

// handleReload re-reads the config file from disk and applies it.
func (a *adminAPI) handleReload(ctx context.Context, rw http.ResponseWriter, r *http.Request) {
	cfg, err := config.Load(a.configPath)
	if err == nil {
		err = a.srv.Reload(ctx, cfg)
	}
	if err != nil {
		writeJSON(rw, http.StatusBadRequest, map[string]any{"ok": false, "error": err.Error()})
		return
	}
	writeJSON(rw, http.StatusOK, map[string]any{"ok": true, "tick": a.srv.CurrentTick()})
}

func (a *adminAPI) handleSnapshot(ctx context.Context, rw http.ResponseWriter, r *http.Request) {
	path, err := a.srv.SaveSnapshot(ctx)
	if err != nil {
		status := http.StatusServiceUnavailable
		if errors.Is(err, server.ErrSnapshotsDisabled) {
			status = http.StatusConflict
		}
		writeJSON(rw, status, map[string]any{"ok": false, "error": err.Error()})
		return
	}
	writeJSON(rw, http.StatusOK, map[string]any{"ok": true, "path": path, "tick": a.srv.CurrentTick()})
}

type playerCommand struct {
	Player   string `json:"player"`
	Strategy string `json:"strategy,omitempty"`
	Pattern  string `json:"pattern,omitempty"`
	Category string `json:"category,omitempty"`
	Enabled  *bool  `json:"enabled,omitempty"`
}

func decodeCommand(r *http.Request) (playerCommand, error) {
	var cmd playerCommand
	if err := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<16)).Decode(&cmd); err != nil {
		return cmd, errBadRequest{err}
	}
	if cmd.Player == "" {
		return cmd, errBadRequest{errors.New("missing player")}
	}
	return cmd, nil
}

func (a *adminAPI) handleStrategy(ctx context.Context, rw http.ResponseWriter, r *http.Request) {
	cmd, err := decodeCommand(r)
	if err == nil {
		err = a.srv.SetActivationStrategy(ctx, cmd.Player, cmd.Strategy)
	}
	writeResult(rw, err)
}

func (a *adminAPI) handlePattern(ctx context.Context, rw http.ResponseWriter, r *http.Request) {
	cmd, err := decodeCommand(r)
	if err == nil {
		err = a.srv.SelectPattern(ctx, cmd.Player, cmd.Pattern)
	}
	writeResult(rw, err)
}

func (a *adminAPI) handleCategory(ctx context.Context, rw http.ResponseWriter, r *http.Request) {
	cmd, err := decodeCommand(r)
	if err == nil && (cmd.Category == "" || cmd.Enabled == nil) {
		err = errBadRequest{errors.New("category and enabled are required")}
	}
	if err == nil {
		err = a.srv.SetCategoryEnabled(ctx, cmd.Player, cmd.Category, *cmd.Enabled)
	}
	writeResult(rw, err)
}

type blockBody struct {
	Pos   [3]int `json:"pos"`
	State string `json:"state"`
}

// handleBlock reads a block with GET ?x=&y=&z= and sets one with POST.
func (a *adminAPI) handleBlock(ctx context.Context, rw http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		var pos [3]int
		for i, k := range []string{"x", "y", "z"} {
			v, err := strconv.Atoi(r.URL.Query().Get(k))
			if err != nil {
				writeError(rw, errBadRequest{errors.New("x, y and z must be integers")})
				return
			}
			pos[i] = v
		}
		st, err := a.srv.BlockAt(ctx, block.FromArray(pos))
		if err != nil {
			writeError(rw, errBadRequest{err})
			return
		}
		writeJSON(rw, http.StatusOK, blockBody{Pos: pos, State: st})
	case http.MethodPost:
		var body blockBody
		if err := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<16)).Decode(&body); err != nil {
			writeError(rw, errBadRequest{err})
			return
		}
		err := a.srv.SetBlock(ctx, block.FromArray(body.Pos), body.State)
		if err != nil && !errors.Is(err, server.ErrStopped) && !errors.Is(err, context.DeadlineExceeded) {
			err = errBadRequest{err}
		}
		writeResult(rw, err)
	default:
		rw.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// handleAudit returns the most recent vein-mine audit entries, newest last.
func (a *adminAPI) handleAudit(ctx context.Context, rw http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(rw, errBadRequest{errors.New("limit must be a positive integer")})
			return
		}
		limit = n
	}
	entries, err := tailAudit(a.auditDir, limit)
	if err != nil {
		writeJSON(rw, http.StatusInternalServerError, map[string]any{"error": err.Error()})
		return
	}
	writeJSON(rw, http.StatusOK, map[string]any{"entries": entries})
}

func tailAudit(dir string, limit int) ([]persistlog.AuditEntry, error) {
	files, err := persistlog.ListAuditFiles(dir)
	if os.IsNotExist(err) {
		return []persistlog.AuditEntry{}, nil
	}
	if err != nil {
		return nil, err
	}
	out := []persistlog.AuditEntry{}
	for i := len(files) - 1; i >= 0 && len(out) < limit; i-- {
		var chunk []persistlog.AuditEntry
		if err := persistlog.ReadAuditFile(files[i], func(e persistlog.AuditEntry) error {
			chunk = append(chunk, e)
			return nil
		}); err != nil {
			return nil, err
		}
		if need := limit - len(out); len(chunk) > need {
			chunk = chunk[len(chunk)-need:]
		}
		out = append(chunk, out...)
	}
	return out, nil
}

type errBadRequest struct{ err error }

func (e errBadRequest) Error() string { return e.err.Error() }
func (e errBadRequest) Unwrap() error { return e.err }

func statusFor(err error) int {
	var bad errBadRequest
	switch {
	case errors.As(err, &bad):
		return http.StatusBadRequest
	case errors.Is(err, server.ErrUnknownPlayer), errors.Is(err, session.ErrUnknownCategory):
		return http.StatusNotFound
	case errors.Is(err, session.ErrUnknownStrategy), errors.Is(err, session.ErrUnknownPattern),
		errors.Is(err, session.ErrClientModRequired):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrNoPermission), errors.Is(err, session.ErrCancelled):
		return http.StatusConflict
	case errors.Is(err, server.ErrStopped), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeResult(rw http.ResponseWriter, err error) {
	if err != nil {
		writeError(rw, err)
		return
	}
	writeJSON(rw, http.StatusOK, map[string]any{"ok": true})
}

func writeError(rw http.ResponseWriter, err error) {
	writeJSON(rw, statusFor(err), map[string]any{"ok": false, "error": err.Error()})
}

func writeJSON(rw http.ResponseWriter, status int, v any) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	_ = json.NewEncoder(rw).Encode(v)
}
