package journal

import "time"

// RunState tracks where a recorded run sits in the daemon lifecycle.
type RunState string

const (
	RunStateRunning   RunState = "running"
	RunStateStopping  RunState = "stopping"
	RunStateStopped   RunState = "stopped"
	RunStateEscalated RunState = "escalated"
	RunStateFailed    RunState = "failed"
)

// Modes record how the process was attached when the run began.
const (
	ModeDaemon     = "daemon"
	ModeForeground = "foreground"
)

// Run is one recorded daemon lifetime.
type Run struct {
	ID        int64
	RunID     string
	PID       int
	Mode      string
	State     RunState
	StartedAt time.Time
	StoppedAt *time.Time
	LastBeat  *time.Time
	Beats     int64
	RunErrors int64
	LogPath   string
	Detail    string
}

// Finished reports whether the run reached a terminal state.
func (r *Run) Finished() bool {
	switch r.State {
	case RunStateStopped, RunStateEscalated, RunStateFailed:
		return true
	}
	return false
}

// Uptime returns how long the run lasted, measuring unfinished runs
// against now.
func (r *Run) Uptime(now time.Time) time.Duration {
	end := now
	if r.StoppedAt != nil {
		end = *r.StoppedAt
	}
	if end.Before(r.StartedAt) {
		return 0
	}
	return end.Sub(r.StartedAt)
}
