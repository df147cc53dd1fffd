package workload

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"warden/internal/logging"
)

const (
	// DefaultHeartbeatInterval spaces beats when the configured interval is
	// missing or non-positive.
	DefaultHeartbeatInterval = 30 * time.Second

	// quantum bounds how long a single iteration blocks. The daemon loop only
	// checks for shutdown between iterations, so the quantum is what keeps
	// stop latency low even with long beat intervals.
	quantum = 200 * time.Millisecond

	beatTimeout = 5 * time.Second
)

// Heartbeat emits a periodic liveness beat. It is the default workload wired
// into the daemon run loop and exists mostly so the lifecycle machinery has
// observable work to supervise.
type Heartbeat struct {
	interval time.Duration
	quantum  time.Duration
	logger   *slog.Logger
	onBeat   func(context.Context) error

	started time.Time
	last    time.Time
	count   int64
}

// NewHeartbeat builds a heartbeat workload. onBeat is invoked once per beat
// and may be nil; a beat failure is reported as the iteration error without
// stopping subsequent iterations.
func NewHeartbeat(interval time.Duration, logger *slog.Logger, onBeat func(context.Context) error) *Heartbeat {
	if interval <= 0 {
		interval = DefaultHeartbeatInterval
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Heartbeat{
		interval: interval,
		quantum:  quantum,
		logger:   logger,
		onBeat:   onBeat,
	}
}

// Run executes a single iteration: sleep one quantum, then beat if the
// interval has elapsed. The first iteration always beats so a fresh daemon
// announces liveness immediately.
func (h *Heartbeat) Run() error {
	time.Sleep(h.quantum)

	now := time.Now()
	if h.started.IsZero() {
		h.started = now
	}
	if !h.last.IsZero() && now.Sub(h.last) < h.interval {
		return nil
	}
	h.last = now
	h.count++

	h.logger.Debug("heartbeat",
		logging.Int64("beat", h.count),
		logging.Duration("uptime", now.Sub(h.started).Round(time.Millisecond)),
	)

	if h.onBeat == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), beatTimeout)
	defer cancel()
	if err := h.onBeat(ctx); err != nil {
		return fmt.Errorf("record heartbeat: %w", err)
	}
	return nil
}

// Beats reports how many beats have been emitted so far.
func (h *Heartbeat) Beats() int64 {
	return h.count
}
