package console

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"fleetmonitor-tui/internal/logging"
)

// pollTickMsg fires once per interval. run ties the tick to the poll run that
// armed it so ticks from a stopped run are ignored and not re-armed.
type pollTickMsg struct {
	run uint64
	at  time.Time
}

// Scheduler drives live polling. Each Start begins a new run; Stop ends it
// and abandons outstanding requests so their results are dropped.
type Scheduler struct {
	interval time.Duration
	running  bool
	run      uint64

	starts int
	stops  int

	overview stream
	recent   stream
}

func NewScheduler(interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = 3 * time.Second
	}
	return &Scheduler{
		interval: interval,
		overview: newStream(StreamOverview),
		recent:   newStream(StreamRecent),
	}
}

func (s *Scheduler) Running() bool {
	return s.running
}

// Run returns the active run number, or zero while stopped.
func (s *Scheduler) Run() uint64 {
	if !s.running {
		return 0
	}
	return s.run
}

// Starts and Stops count lifecycle transitions.
func (s *Scheduler) Starts() int { return s.starts }
func (s *Scheduler) Stops() int  { return s.stops }

func (s *Scheduler) Interval() time.Duration {
	return s.interval
}

// Start begins a run and returns the command arming its first tick. It is a
// no-op while running.
func (s *Scheduler) Start() tea.Cmd {
	if s.running {
		return nil
	}
	s.running = true
	s.run++
	s.starts++
	logging.Debug().Uint64("run", s.run).Dur("interval", s.interval).Msg("Polling started")
	return s.tick()
}

// Stop ends the current run. It reports whether polling was running.
func (s *Scheduler) Stop() bool {
	if !s.running {
		return false
	}
	s.running = false
	s.stops++
	s.overview.abandon()
	s.recent.abandon()
	logging.Debug().Uint64("run", s.run).Msg("Polling stopped")
	return true
}

func (s *Scheduler) tick() tea.Cmd {
	run := s.run
	return tea.Tick(s.interval, func(at time.Time) tea.Msg {
		return pollTickMsg{run: run, at: at}
	})
}

// accept reports whether a tick belongs to the running run.
func (s *Scheduler) accept(msg pollTickMsg) bool {
	return s.running && msg.run == s.run
}
