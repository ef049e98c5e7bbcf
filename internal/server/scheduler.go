package server

import "sort"

type task struct {
	due uint64
	seq uint64
	fn  func()
}

// scheduler runs continuations on the loop at a later tick. It is only
// touched from the loop goroutine.
type scheduler struct {
	now   func() uint64
	seq   uint64
	tasks []task
}

// RunLater schedules fn ticks from now. Anything below one tick runs on the
// next tick.
func (s *scheduler) RunLater(ticks int, fn func()) {
	if fn == nil {
		return
	}
	if ticks < 1 {
		ticks = 1
	}
	s.seq++
	s.tasks = append(s.tasks, task{due: s.now() + uint64(ticks), seq: s.seq, fn: fn})
}

// runDue runs every task due at or before tick in scheduling order. Tasks
// scheduled while running are kept for a later tick.
func (s *scheduler) runDue(tick uint64) int {
	var due, rest []task
	for _, t := range s.tasks {
		if t.due <= tick {
			due = append(due, t)
		} else {
			rest = append(rest, t)
		}
	}
	if len(due) == 0 {
		return 0
	}
	s.tasks = rest
	sort.Slice(due, func(i, j int) bool {
		if due[i].due != due[j].due {
			return due[i].due < due[j].due
		}
		return due[i].seq < due[j].seq
	})
	for _, t := range due {
		t.fn()
	}
	return len(due)
}

func (s *scheduler) pending() int { return len(s.tasks) }
