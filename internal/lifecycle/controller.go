package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"warden/internal/config"
	"warden/internal/daemonize"
	"warden/internal/logging"
	"warden/internal/pidfile"
)

const stopPollInterval = 500 * time.Millisecond

// Runtime bundles everything a booted daemon process runs. Launch-phase
// processes exit before a Runtime is ever assembled.
type Runtime struct {
	// Logger replaces the controller logger for the lifetime of the run.
	Logger *slog.Logger
	// Run performs one workload iteration. Required.
	Run func() error
	// Exit is invoked at most once, when shutdown is requested and before
	// the run loop observes the stop flag.
	Exit func()
	// OnEscalate runs just before forced termination.
	OnEscalate func()
	// Close releases run-scoped resources after the loop exits.
	Close func()
}

// Boot assembles the Runtime inside the final daemon process, after
// detachment has succeeded.
type Boot func(ctx context.Context) (Runtime, error)

// DetachFunc severs the process from its controlling terminal. It reports
// whether the calling process is the final daemon.
type DetachFunc func(daemonize.Config) (bool, error)

// Option configures a Controller.
type Option func(*Controller)

// WithDetach overrides terminal detachment (primarily for tests).
func WithDetach(fn DetachFunc) Option {
	return func(c *Controller) {
		if fn != nil {
			c.detach = fn
		}
	}
}

// WithChildArgs sets the argument vector the relaunched processes run while
// detaching. Without it the children repeat the parent's arguments.
func WithChildArgs(args []string) Option {
	return func(c *Controller) {
		c.childArgs = args
	}
}

// WithForceExit overrides escalation termination (primarily for tests).
func WithForceExit(fn func(code int)) Option {
	return func(c *Controller) {
		if fn != nil {
			c.forceExit = fn
		}
	}
}

// Controller drives the daemon lifecycle verbs against one configuration.
// Verb output intended for the invoking operator goes to out; everything
// else goes through the logger.
type Controller struct {
	cfg       *config.Config
	logger    *slog.Logger
	out       io.Writer
	detach    DetachFunc
	forceExit func(int)
	childArgs []string
	pollEvery time.Duration
}

// New constructs a Controller for the given configuration.
func New(cfg *config.Config, logger *slog.Logger, out io.Writer, opts ...Option) *Controller {
	if logger == nil {
		logger = logging.NewNop()
	}
	if out == nil {
		out = os.Stdout
	}
	c := &Controller{
		cfg:       cfg,
		logger:    logger,
		out:       out,
		detach:    daemonize.Detach,
		forceExit: os.Exit,
		pollEvery: stopPollInterval,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start detaches from the terminal and runs the daemon loop. An instance
// that is already running makes Start a logged no-op. In the launch-phase
// parents Start returns nil as soon as the next phase has been spawned; only
// the final daemon process boots the runtime and blocks in the loop.
func (c *Controller) Start(ctx context.Context, boot Boot) error {
	if boot == nil {
		return errors.New("boot function required")
	}
	if state, pid := pidfile.Probe(c.cfg.Daemon.PidFile); state == pidfile.StateRunning {
		logging.WarnWithContext(c.logger, "daemon already running", "daemon_already_running",
			logging.Int("pid", pid),
			logging.String(logging.FieldImpact, "start request ignored"),
			logging.String(logging.FieldErrorHint, "stop the running instance first"))
		return nil
	}
	proceed, err := c.detach(c.detachConfig())
	if err != nil {
		return fmt.Errorf("detach daemon: %w", err)
	}
	if !proceed {
		return nil
	}
	return c.runDaemon(ctx, boot)
}

// Stop signals the recorded daemon and blocks until its pid file disappears.
// A missing pid file reports "Stopped." and does nothing. A recorded pid
// that cannot be signaled is treated as a stale record: the file is removed
// and the verb returns.
func (c *Controller) Stop() error {
	path := c.cfg.Daemon.PidFile
	pid, err := pidfile.Read(path)
	if err != nil {
		if errors.Is(err, pidfile.ErrNotRecorded) {
			fmt.Fprintln(c.out, "Stopped.")
			return nil
		}
		return err
	}
	fmt.Fprint(c.out, "Stopping.")
	if err := signalProcess(pid, syscall.SIGTERM); err != nil {
		fmt.Fprintln(c.out)
		logging.WarnWithContext(c.logger, "could not signal daemon", "stale_pid_record",
			logging.Int("pid", pid),
			logging.Error(err),
			logging.String(logging.FieldImpact, "pid file removed without stopping anything"))
		if remErr := pidfile.Remove(path); remErr != nil {
			return fmt.Errorf("remove stale pid file: %w", remErr)
		}
		return nil
	}
	for pidFileExists(path) {
		fmt.Fprint(c.out, ".")
		time.Sleep(c.pollEvery)
	}
	fmt.Fprintln(c.out)
	return nil
}

// Restart stops any recorded instance, then starts a fresh one.
func (c *Controller) Restart(ctx context.Context, boot Boot) error {
	if pidFileExists(c.cfg.Daemon.PidFile) {
		if err := c.Stop(); err != nil {
			return err
		}
	}
	fmt.Fprintln(c.out, "Starting.")
	return c.Start(ctx, boot)
}

// Status reports "Running." when the recorded pid is alive and "Stopped."
// otherwise, including when the record is stale. It never modifies the pid
// file.
func (c *Controller) Status() error {
	state, _ := pidfile.Probe(c.cfg.Daemon.PidFile)
	if state == pidfile.StateRunning {
		fmt.Fprintln(c.out, "Running.")
	} else {
		fmt.Fprintln(c.out, "Stopped.")
	}
	return nil
}

// Foreground runs the workload attached to the current terminal. No pid
// file is written and no escalation deadline applies; an interrupt or
// termination signal invokes the exit callback and ends the loop.
func (c *Controller) Foreground(ctx context.Context, boot Boot) error {
	if boot == nil {
		return errors.New("boot function required")
	}
	rt, err := boot(ctx)
	if err != nil {
		return fmt.Errorf("boot runtime: %w", err)
	}
	logger := rt.Logger
	if logger == nil {
		logger = c.logger
	}
	if rt.Run == nil {
		if rt.Close != nil {
			rt.Close()
		}
		return errors.New("runtime has no workload")
	}
	if rt.Close != nil {
		defer rt.Close()
	}

	signalCtx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var stop atomic.Bool
	go func() {
		<-signalCtx.Done()
		if rt.Exit != nil {
			rt.Exit()
		}
		stop.Store(true)
	}()

	logger.Info("running attached to terminal", logging.Int("pid", os.Getpid()))
	for !stop.Load() {
		c.runIteration(logger, rt.Run)
	}
	logger.Info("exiting")
	return nil
}

func (c *Controller) runDaemon(ctx context.Context, boot Boot) error {
	rt, err := boot(ctx)
	if err != nil {
		return fmt.Errorf("boot runtime: %w", err)
	}
	logger := rt.Logger
	if logger == nil {
		logger = c.logger
	}
	if rt.Run == nil {
		if rt.Close != nil {
			rt.Close()
		}
		return errors.New("runtime has no workload")
	}
	if rt.Close != nil {
		defer rt.Close()
	}

	path := c.cfg.Daemon.PidFile
	if err := pidfile.Write(path, os.Getpid()); err != nil {
		logging.ErrorWithContext(logger, "cannot record daemon pid", "pid_write_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check permissions on the pid file directory"))
		return fmt.Errorf("write pid file: %w", err)
	}
	defer func() {
		if remErr := pidfile.Remove(path); remErr != nil {
			logging.WarnWithContext(logger, "could not remove pid file", "pid_remove_failed",
				logging.Error(remErr),
				logging.String(logging.FieldImpact, "a stale pid file remains on disk"))
		}
		logger.Info("daemon exiting")
	}()

	sd := NewShutdown(ShutdownOptions{
		Grace: time.Duration(c.cfg.Daemon.ShutdownGrace) * time.Second,
		Exit:  rt.Exit,
		OnEscalate: func() {
			if rt.OnEscalate != nil {
				rt.OnEscalate()
			}
			_ = pidfile.Remove(path)
			logger.Info("daemon exiting")
		},
		ForceExit: c.forceExit,
		Logger:    logger,
	})
	sd.Arm()
	defer sd.Disarm()

	logger.Info("daemon started", logging.Int("pid", os.Getpid()))
	for !sd.Requested() {
		c.runIteration(logger, rt.Run)
	}
	return nil
}

// runIteration invokes one workload pass. Failures are logged and swallowed
// so a transiently broken workload cannot take the daemon down.
func (c *Controller) runIteration(logger *slog.Logger, run func() error) {
	if err := invokeWorkload(run); err != nil {
		logger.Error("workload iteration failed", logging.Error(err))
	}
}

func invokeWorkload(run func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("workload panic: %v", r)
		}
	}()
	return run()
}

func (c *Controller) detachConfig() daemonize.Config {
	return daemonize.Config{
		WorkDir:   c.cfg.Daemon.WorkDir,
		Umask:     c.cfg.Daemon.Umask,
		Stdout:    c.cfg.Daemon.Stdout,
		Stderr:    c.cfg.Daemon.Stderr,
		User:      c.cfg.Daemon.User,
		ChildArgs: c.childArgs,
	}
}

func signalProcess(pid int, sig os.Signal) error {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	return proc.Signal(sig)
}

func pidFileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
