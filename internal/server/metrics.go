package server

import (
	"fmt"
	"io"
	"sync/atomic"
)

type counters struct {
	Joins            atomic.Uint64
	Leaves           atomic.Uint64
	Kicks            atomic.Uint64
	MessagesIn       atomic.Uint64
	MessagesOut      atomic.Uint64
	DroppedFrames    atomic.Uint64
	VeinMines        atomic.Uint64
	VeinMineBlocks   atomic.Uint64
	Reloads          atomic.Uint64
	ReloadFailures   atomic.Uint64
	Flushes          atomic.Uint64
	FlushFailures    atomic.Uint64
	Snapshots        atomic.Uint64
	SnapshotFailures atomic.Uint64
}

// Metrics is a point-in-time copy of the loop's counters and gauges.
type Metrics struct {
	Tick           uint64  `json:"tick"`
	Players        int     `json:"players"`
	ClientPlayers  int     `json:"client_players"`
	LoadedChunks   int     `json:"loaded_chunks"`
	StepMS         float64 `json:"step_ms"`
	Joins          uint64  `json:"joins"`
	Leaves         uint64  `json:"leaves"`
	Kicks          uint64  `json:"kicks"`
	MessagesIn     uint64  `json:"messages_in"`
	MessagesOut    uint64  `json:"messages_out"`
	DroppedFrames  uint64  `json:"dropped_frames"`
	VeinMines      uint64  `json:"vein_mines"`
	VeinMineBlocks uint64  `json:"vein_mine_blocks"`
	Reloads        uint64  `json:"reloads"`
	ReloadFailures uint64  `json:"reload_failures"`
	Flushes        uint64  `json:"flushes"`
	FlushFailures  uint64  `json:"flush_failures"`
	Snapshots      uint64  `json:"snapshots"`
	SnapFailures   uint64  `json:"snapshot_failures"`
	EditedChunks   int     `json:"edited_chunks"`
	QueueDepths    struct {
		Join  int `json:"join"`
		Leave int `json:"leave"`
		Inbox int `json:"inbox"`
		Calls int `json:"calls"`
	} `json:"queue_depths"`
}

// WritePrometheus renders m in the Prometheus text exposition format.
func WritePrometheus(w io.Writer, m Metrics) {
	gauge := func(name, help string, v any) {
		fmt.Fprintf(w, "# HELP veinminer_%s %s\n", name, help)
		fmt.Fprintf(w, "# TYPE veinminer_%s gauge\n", name)
		fmt.Fprintf(w, "veinminer_%s %v\n", name, v)
	}
	counter := func(name, help string, v uint64) {
		fmt.Fprintf(w, "# HELP veinminer_%s %s\n", name, help)
		fmt.Fprintf(w, "# TYPE veinminer_%s counter\n", name)
		fmt.Fprintf(w, "veinminer_%s %d\n", name, v)
	}

	gauge("tick", "Current server tick.", m.Tick)
	gauge("players", "Connected players.", m.Players)
	gauge("client_players", "Connected players using the client mod.", m.ClientPlayers)
	gauge("loaded_chunks", "Loaded chunk count.", m.LoadedChunks)
	gauge("edited_chunks", "Chunks changed since generation.", m.EditedChunks)
	gauge("step_ms", "Last tick step duration in milliseconds.", fmt.Sprintf("%.3f", m.StepMS))

	fmt.Fprintf(w, "# HELP veinminer_queue_depth Channel backlog depth.\n")
	fmt.Fprintf(w, "# TYPE veinminer_queue_depth gauge\n")
	fmt.Fprintf(w, "veinminer_queue_depth{queue=%q} %d\n", "join", m.QueueDepths.Join)
	fmt.Fprintf(w, "veinminer_queue_depth{queue=%q} %d\n", "leave", m.QueueDepths.Leave)
	fmt.Fprintf(w, "veinminer_queue_depth{queue=%q} %d\n", "inbox", m.QueueDepths.Inbox)
	fmt.Fprintf(w, "veinminer_queue_depth{queue=%q} %d\n", "calls", m.QueueDepths.Calls)

	counter("joins_total", "Accepted logins.", m.Joins)
	counter("leaves_total", "Removed players.", m.Leaves)
	counter("kicks_total", "Kicked players.", m.Kicks)
	counter("messages_in_total", "Frames received from clients.", m.MessagesIn)
	counter("messages_out_total", "Plugin messages queued to clients.", m.MessagesOut)
	counter("dropped_frames_total", "Frames dropped as malformed or unroutable.", m.DroppedFrames)
	counter("vein_mines_total", "Non-empty vein-mine results sent.", m.VeinMines)
	counter("vein_mine_blocks_total", "Blocks in sent vein-mine results.", m.VeinMineBlocks)
	counter("reloads_total", "Applied config reloads.", m.Reloads)
	counter("reload_failures_total", "Rejected config reloads.", m.ReloadFailures)
	counter("flushes_total", "Player records written.", m.Flushes)
	counter("flush_failures_total", "Failed player record writes.", m.FlushFailures)
	counter("snapshots_total", "World snapshots written.", m.Snapshots)
	counter("snapshot_failures_total", "Failed world snapshot writes.", m.SnapFailures)
}
