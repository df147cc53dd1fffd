//go:build unix

package lifecycle

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"warden/internal/config"
	"warden/internal/daemonize"
	"warden/internal/logging"
	"warden/internal/pidfile"
)

// deadPID is far above any real pid_max, so probing it always fails.
const deadPID = 1 << 28

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	dir := t.TempDir()
	cfg.Daemon.WorkDir = dir
	cfg.Daemon.PidFile = filepath.Join(dir, "warden.pid")
	return &cfg
}

func inProcessDetach(daemonize.Config) (bool, error) {
	return true, nil
}

func TestArmHandlesTerminationSignal(t *testing.T) {
	sd := NewShutdown(ShutdownOptions{Grace: time.Minute, Logger: logging.NewNop()})
	sd.Arm()
	defer sd.Disarm()

	if err := syscall.Kill(os.Getpid(), syscall.SIGTERM); err != nil {
		t.Fatalf("kill: %v", err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for !sd.Requested() {
		if time.Now().After(deadline) {
			t.Fatal("termination signal never flipped the stop flag")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestStatusReportsRunningForLivePid(t *testing.T) {
	cfg := testConfig(t)
	if err := pidfile.Write(cfg.Daemon.PidFile, os.Getpid()); err != nil {
		t.Fatalf("write pid file: %v", err)
	}
	var out bytes.Buffer
	ctl := New(cfg, logging.NewNop(), &out)
	if err := ctl.Status(); err != nil {
		t.Fatalf("status: %v", err)
	}
	if got := out.String(); got != "Running.\n" {
		t.Fatalf("status output = %q, want %q", got, "Running.\n")
	}
}

func TestStatusTreatsStaleRecordAsStopped(t *testing.T) {
	cfg := testConfig(t)
	if err := pidfile.Write(cfg.Daemon.PidFile, deadPID); err != nil {
		t.Fatalf("write pid file: %v", err)
	}
	var out bytes.Buffer
	ctl := New(cfg, logging.NewNop(), &out)
	if err := ctl.Status(); err != nil {
		t.Fatalf("status: %v", err)
	}
	if got := out.String(); got != "Stopped.\n" {
		t.Fatalf("status output = %q, want %q", got, "Stopped.\n")
	}
	if !pidFileExists(cfg.Daemon.PidFile) {
		t.Fatal("status must not remove the pid file")
	}
}

func TestStopWithoutRecordReportsStopped(t *testing.T) {
	cfg := testConfig(t)
	var out bytes.Buffer
	ctl := New(cfg, logging.NewNop(), &out)
	if err := ctl.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if got := out.String(); got != "Stopped.\n" {
		t.Fatalf("stop output = %q, want %q", got, "Stopped.\n")
	}
}

func TestStopHealsStaleRecord(t *testing.T) {
	cfg := testConfig(t)
	if err := pidfile.Write(cfg.Daemon.PidFile, deadPID); err != nil {
		t.Fatalf("write pid file: %v", err)
	}
	var out bytes.Buffer
	ctl := New(cfg, logging.NewNop(), &out)
	if err := ctl.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if got := out.String(); got != "Stopping.\n" {
		t.Fatalf("stop output = %q, want %q", got, "Stopping.\n")
	}
	if pidFileExists(cfg.Daemon.PidFile) {
		t.Fatal("stale pid file not removed")
	}
}

func TestStopPropagatesUnreadableRecord(t *testing.T) {
	cfg := testConfig(t)
	if err := os.WriteFile(cfg.Daemon.PidFile, []byte("not-a-pid"), 0o644); err != nil {
		t.Fatalf("seed pid file: %v", err)
	}
	var out bytes.Buffer
	ctl := New(cfg, logging.NewNop(), &out)
	if err := ctl.Stop(); err == nil {
		t.Fatal("expected an error for an unreadable pid record")
	}
	if out.Len() != 0 {
		t.Fatalf("stop printed %q before failing", out.String())
	}
}

func TestStopWaitsForDaemonExit(t *testing.T) {
	cfg := testConfig(t)
	path := cfg.Daemon.PidFile
	term := make(chan os.Signal, 1)
	signal.Notify(term, syscall.SIGTERM)
	defer signal.Stop(term)
	if err := pidfile.Write(path, os.Getpid()); err != nil {
		t.Fatalf("write pid file: %v", err)
	}
	go func() {
		<-term
		time.Sleep(50 * time.Millisecond)
		_ = pidfile.Remove(path)
	}()

	var out bytes.Buffer
	ctl := New(cfg, logging.NewNop(), &out)
	ctl.pollEvery = 10 * time.Millisecond
	if err := ctl.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	got := out.String()
	if !strings.HasPrefix(got, "Stopping.") || !strings.HasSuffix(got, "\n") {
		t.Fatalf("stop output = %q", got)
	}
	if len(got) <= len("Stopping.\n") {
		t.Fatalf("stop output %q shows no progress while waiting", got)
	}
	if pidFileExists(path) {
		t.Fatal("pid file still present after stop returned")
	}
}

func TestStartWarnsWhenAlreadyRunning(t *testing.T) {
	cfg := testConfig(t)
	if err := pidfile.Write(cfg.Daemon.PidFile, os.Getpid()); err != nil {
		t.Fatalf("write pid file: %v", err)
	}
	var logBuf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logBuf, nil))
	var detached, booted atomic.Bool
	ctl := New(cfg, logger, &bytes.Buffer{}, WithDetach(func(daemonize.Config) (bool, error) {
		detached.Store(true)
		return true, nil
	}))

	err := ctl.Start(context.Background(), func(context.Context) (Runtime, error) {
		booted.Store(true)
		return Runtime{Run: func() error { return nil }}, nil
	})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if detached.Load() || booted.Load() {
		t.Fatal("start against a running instance must not detach or boot")
	}
	if !strings.Contains(logBuf.String(), "daemon already running") {
		t.Fatalf("missing warning, log = %q", logBuf.String())
	}
}

func TestStartLaunchPhaseReturnsWithoutBooting(t *testing.T) {
	cfg := testConfig(t)
	var booted atomic.Bool
	ctl := New(cfg, logging.NewNop(), &bytes.Buffer{},
		WithDetach(func(daemonize.Config) (bool, error) { return false, nil }))

	err := ctl.Start(context.Background(), func(context.Context) (Runtime, error) {
		booted.Store(true)
		return Runtime{Run: func() error { return nil }}, nil
	})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if booted.Load() {
		t.Fatal("launch-phase parent booted the runtime")
	}
	if pidFileExists(cfg.Daemon.PidFile) {
		t.Fatal("launch-phase parent wrote a pid file")
	}
}

func TestStartRunsLoopUntilTerminationSignal(t *testing.T) {
	cfg := testConfig(t)
	path := cfg.Daemon.PidFile
	// A stale record must not block a fresh start.
	if err := pidfile.Write(path, deadPID); err != nil {
		t.Fatalf("write pid file: %v", err)
	}

	var (
		iterations  atomic.Int64
		recordedPID atomic.Int64
		exited      atomic.Bool
		closed      atomic.Bool
		forced      atomic.Bool
	)
	boot := func(context.Context) (Runtime, error) {
		return Runtime{
			Run: func() error {
				switch n := iterations.Add(1); {
				case n == 1:
					if pid, err := pidfile.Read(path); err == nil {
						recordedPID.Store(int64(pid))
					}
				case n == 3:
					return errors.New("transient workload failure")
				case n == 5:
					if err := syscall.Kill(os.Getpid(), syscall.SIGTERM); err != nil {
						return err
					}
				}
				time.Sleep(time.Millisecond)
				return nil
			},
			Exit:  func() { exited.Store(true) },
			Close: func() { closed.Store(true) },
		}, nil
	}
	ctl := New(cfg, logging.NewNop(), &bytes.Buffer{},
		WithDetach(inProcessDetach),
		WithForceExit(func(int) { forced.Store(true) }))

	if err := ctl.Start(context.Background(), boot); err != nil {
		t.Fatalf("start: %v", err)
	}
	if n := iterations.Load(); n < 4 {
		t.Fatalf("loop stopped after %d iterations, want it to survive the failing one", n)
	}
	if got := recordedPID.Load(); got != int64(os.Getpid()) {
		t.Fatalf("recorded pid = %d, want %d", got, os.Getpid())
	}
	if !exited.Load() {
		t.Fatal("exit callback not invoked")
	}
	if !closed.Load() {
		t.Fatal("runtime close not invoked")
	}
	if forced.Load() {
		t.Fatal("escalation fired during a clean shutdown")
	}
	if pidFileExists(path) {
		t.Fatal("pid file not removed on exit")
	}
}

func TestStartFailsWhenPidPathUnwritable(t *testing.T) {
	cfg := testConfig(t)
	cfg.Daemon.PidFile = filepath.Join(cfg.Daemon.WorkDir, "no-such-dir", "warden.pid")
	var closed atomic.Bool
	boot := func(context.Context) (Runtime, error) {
		return Runtime{
			Run:   func() error { return nil },
			Close: func() { closed.Store(true) },
		}, nil
	}
	ctl := New(cfg, logging.NewNop(), &bytes.Buffer{}, WithDetach(inProcessDetach))

	if err := ctl.Start(context.Background(), boot); err == nil {
		t.Fatal("expected start to fail when the pid file cannot be written")
	}
	if !closed.Load() {
		t.Fatal("runtime close not invoked on failed start")
	}
}

func TestStartRejectsRuntimeWithoutWorkload(t *testing.T) {
	cfg := testConfig(t)
	var closed atomic.Bool
	boot := func(context.Context) (Runtime, error) {
		return Runtime{Close: func() { closed.Store(true) }}, nil
	}
	ctl := New(cfg, logging.NewNop(), &bytes.Buffer{}, WithDetach(inProcessDetach))

	if err := ctl.Start(context.Background(), boot); err == nil {
		t.Fatal("expected start to reject a runtime without a workload")
	}
	if !closed.Load() {
		t.Fatal("runtime close not invoked")
	}
	if pidFileExists(cfg.Daemon.PidFile) {
		t.Fatal("pid file written for a rejected runtime")
	}
}

func TestRestartStopsRecordedInstanceFirst(t *testing.T) {
	cfg := testConfig(t)
	path := cfg.Daemon.PidFile
	term := make(chan os.Signal, 1)
	signal.Notify(term, syscall.SIGTERM)
	defer signal.Stop(term)
	if err := pidfile.Write(path, os.Getpid()); err != nil {
		t.Fatalf("write pid file: %v", err)
	}
	go func() {
		<-term
		time.Sleep(20 * time.Millisecond)
		_ = pidfile.Remove(path)
	}()

	var childArgs atomic.Value
	var booted atomic.Bool
	var out bytes.Buffer
	ctl := New(cfg, logging.NewNop(), &out,
		WithChildArgs([]string{"start", "--config", "warden.toml"}),
		WithDetach(func(dc daemonize.Config) (bool, error) {
			childArgs.Store(strings.Join(dc.ChildArgs, " "))
			return false, nil
		}))
	ctl.pollEvery = 10 * time.Millisecond

	err := ctl.Restart(context.Background(), func(context.Context) (Runtime, error) {
		booted.Store(true)
		return Runtime{Run: func() error { return nil }}, nil
	})
	if err != nil {
		t.Fatalf("restart: %v", err)
	}
	got := out.String()
	if !strings.HasPrefix(got, "Stopping.") || !strings.HasSuffix(got, "Starting.\n") {
		t.Fatalf("restart output = %q", got)
	}
	if args, _ := childArgs.Load().(string); args != "start --config warden.toml" {
		t.Fatalf("detach child args = %q", args)
	}
	if booted.Load() {
		t.Fatal("launch-phase parent booted the runtime")
	}
	if pidFileExists(path) {
		t.Fatal("old pid file survived restart")
	}
}

func TestRestartWithoutRecordSkipsStop(t *testing.T) {
	cfg := testConfig(t)
	var out bytes.Buffer
	ctl := New(cfg, logging.NewNop(), &out,
		WithDetach(func(daemonize.Config) (bool, error) { return false, nil }))

	err := ctl.Restart(context.Background(), func(context.Context) (Runtime, error) {
		return Runtime{Run: func() error { return nil }}, nil
	})
	if err != nil {
		t.Fatalf("restart: %v", err)
	}
	if got := out.String(); got != "Starting.\n" {
		t.Fatalf("restart output = %q, want %q", got, "Starting.\n")
	}
}

func TestForegroundRunsUntilInterrupt(t *testing.T) {
	cfg := testConfig(t)
	var iterations atomic.Int64
	var exited atomic.Bool
	boot := func(context.Context) (Runtime, error) {
		return Runtime{
			Run: func() error {
				if iterations.Add(1) == 3 {
					if err := syscall.Kill(os.Getpid(), syscall.SIGINT); err != nil {
						return err
					}
				}
				time.Sleep(time.Millisecond)
				return nil
			},
			Exit: func() { exited.Store(true) },
		}, nil
	}
	ctl := New(cfg, logging.NewNop(), &bytes.Buffer{})

	if err := ctl.Foreground(context.Background(), boot); err != nil {
		t.Fatalf("foreground: %v", err)
	}
	if !exited.Load() {
		t.Fatal("exit callback not invoked on interrupt")
	}
	if pidFileExists(cfg.Daemon.PidFile) {
		t.Fatal("foreground mode must not create a pid file")
	}
}
