package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

// httpCmd drives the server's loopback /admin/v1 endpoints.
func httpCmd(name string, args []string) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8080", "server base url")
	player := fs.String("player", "", "player name (strategy, pattern, category)")
	value := fs.String("value", "", "strategy, pattern key or category id")
	enabled := fs.Bool("enabled", true, "category state (category)")
	pos := fs.String("pos", "", "block position x,y,z (block)")
	state := fs.String("state", "", "block state to set (block; empty reads)")
	_ = fs.Parse(args)

	method, path, body, err := buildRequest(name, *player, *value, *enabled, *pos, *state)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	u := strings.TrimRight(strings.TrimSpace(*baseURL), "/") + path
	var rd io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, u, rd)
	if err != nil {
		fmt.Fprintln(os.Stderr, "request:", err)
		os.Exit(2)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	cl := &http.Client{Timeout: 10 * time.Second}
	resp, err := cl.Do(req)
	if err != nil {
		fmt.Fprintln(os.Stderr, "request:", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	fmt.Print(string(b))
	if resp.StatusCode/100 != 2 {
		os.Exit(1)
	}
}

func buildRequest(name, player, value string, enabled bool, pos, state string) (method, path string, body map[string]any, err error) {
	needPlayer := func() error {
		if strings.TrimSpace(player) == "" {
			return fmt.Errorf("%s: missing -player", name)
		}
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("%s: missing -value", name)
		}
		return nil
	}
	switch name {
	case "state":
		return http.MethodGet, "/admin/v1/state", nil, nil
	case "players":
		return http.MethodGet, "/admin/v1/players", nil, nil
	case "reload":
		return http.MethodPost, "/admin/v1/reload", nil, nil
	case "snapshot":
		return http.MethodPost, "/admin/v1/snapshot", nil, nil
	case "strategy":
		if err := needPlayer(); err != nil {
			return "", "", nil, err
		}
		return http.MethodPost, "/admin/v1/players/strategy", map[string]any{"player": player, "strategy": value}, nil
	case "pattern":
		if err := needPlayer(); err != nil {
			return "", "", nil, err
		}
		return http.MethodPost, "/admin/v1/players/pattern", map[string]any{"player": player, "pattern": value}, nil
	case "category":
		if err := needPlayer(); err != nil {
			return "", "", nil, err
		}
		return http.MethodPost, "/admin/v1/players/category", map[string]any{"player": player, "category": value, "enabled": enabled}, nil
	case "block":
		p, err := parseVec3(pos)
		if err != nil {
			return "", "", nil, fmt.Errorf("block: bad -pos: %w", err)
		}
		if strings.TrimSpace(state) == "" {
			return http.MethodGet, fmt.Sprintf("/admin/v1/block?x=%d&y=%d&z=%d", p[0], p[1], p[2]), nil, nil
		}
		return http.MethodPost, "/admin/v1/block", map[string]any{"pos": p, "state": state}, nil
	default:
		return "", "", nil, fmt.Errorf("unknown command %q", name)
	}
}

func parseVec3(s string) ([3]int, error) {
	var out [3]int
	parts := strings.Split(strings.TrimSpace(s), ",")
	if len(parts) != 3 {
		return out, fmt.Errorf("expected x,y,z")
	}
	for i := 0; i < 3; i++ {
		v, err := strconv.Atoi(strings.TrimSpace(parts[i]))
		if err != nil {
			return out, err
		}
		out[i] = v
	}
	return out, nil
}
