package lifecycle

import (
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"warden/internal/logging"
)

// DefaultGrace bounds how long a shutdown request may take before the
// process is forced down.
const DefaultGrace = 5 * time.Second

// ShutdownOptions configure a Shutdown coordinator.
type ShutdownOptions struct {
	// Grace is the window between a shutdown request and forced termination.
	// Zero or negative values fall back to DefaultGrace.
	Grace time.Duration
	// Exit is the host exit callback, invoked at most once when shutdown is
	// requested and before the run loop observes the stop flag.
	Exit func()
	// OnEscalate runs just before forced termination, giving the host a last
	// chance to record the outcome.
	OnEscalate func()
	// ForceExit terminates the process when the grace window expires.
	// Defaults to os.Exit.
	ForceExit func(code int)

	Logger *slog.Logger
}

// Shutdown coordinates graceful daemon termination. A termination signal
// (or a direct Request call) arms the escalation deadline, runs the exit
// callback once, and flips the stop flag the run loop polls. If the loop is
// still running when the deadline expires, ForceExit tears the process down.
type Shutdown struct {
	grace      time.Duration
	exit       func()
	onEscalate func()
	forceExit  func(int)
	logger     *slog.Logger

	requested atomic.Bool
	once      sync.Once

	mu     sync.Mutex
	timer  *time.Timer
	notify chan os.Signal
	quit   chan struct{}
}

// NewShutdown builds a coordinator. Arm must be called before the
// coordinator reacts to signals.
func NewShutdown(opts ShutdownOptions) *Shutdown {
	grace := opts.Grace
	if grace <= 0 {
		grace = DefaultGrace
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	forceExit := opts.ForceExit
	if forceExit == nil {
		forceExit = os.Exit
	}
	return &Shutdown{
		grace:      grace,
		exit:       opts.Exit,
		onEscalate: opts.OnEscalate,
		forceExit:  forceExit,
		logger:     logger,
	}
}

// Arm installs the termination signal handler. Calling Arm twice is a no-op.
func (s *Shutdown) Arm() {
	s.mu.Lock()
	if s.notify != nil {
		s.mu.Unlock()
		return
	}
	s.notify = make(chan os.Signal, 1)
	s.quit = make(chan struct{})
	notify, quit := s.notify, s.quit
	s.mu.Unlock()

	signal.Notify(notify, syscall.SIGTERM)
	go func() {
		select {
		case <-notify:
			s.Request()
		case <-quit:
		}
	}()
}

// Request starts the shutdown sequence. The escalation deadline is armed
// before the exit callback runs, so a callback that blocks forever still
// cannot keep the process alive past the grace window. Subsequent calls are
// no-ops.
func (s *Shutdown) Request() {
	s.once.Do(func() {
		s.mu.Lock()
		s.timer = time.AfterFunc(s.grace, s.escalate)
		s.mu.Unlock()
		s.logger.Info("shutdown requested", logging.Duration("grace", s.grace))
		if s.exit != nil {
			s.exit()
		}
		s.requested.Store(true)
	})
}

// Requested reports whether shutdown has been requested. The run loop polls
// this between workload iterations.
func (s *Shutdown) Requested() bool {
	return s.requested.Load()
}

// Disarm cancels the escalation deadline and releases the signal handler.
// The run loop calls this after exiting cleanly within the grace window.
func (s *Shutdown) Disarm() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if s.notify != nil {
		signal.Stop(s.notify)
		close(s.quit)
		s.notify = nil
		s.quit = nil
	}
}

func (s *Shutdown) escalate() {
	logging.WarnWithContext(s.logger, "could not exit gracefully, forcing termination", "shutdown_escalated",
		logging.Duration("grace", s.grace),
		logging.String(logging.FieldImpact, "daemon terminated without final cleanup"),
		logging.String(logging.FieldErrorHint, "check for a blocked exit callback or workload iteration"))
	if s.onEscalate != nil {
		s.onEscalate()
	}
	s.forceExit(1)
}
