package main

import (
	"os"
	"strings"
	"testing"

	"warden/internal/pidfile"
)

// deadPID is far above any default pid_max, so no live process can claim it.
const deadPID = 1 << 28

func TestStatusReportsStoppedWithoutRecord(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"status"}, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if out != "Stopped.\n" {
		t.Fatalf("status output = %q, want %q", out, "Stopped.\n")
	}
}

func TestStatusReportsRunningForLivePid(t *testing.T) {
	env := setupCLITestEnv(t)
	if err := pidfile.Write(env.cfg.Daemon.PidFile, os.Getpid()); err != nil {
		t.Fatalf("seed pid file: %v", err)
	}

	out, _, err := runCLI(t, []string{"status"}, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if out != "Running.\n" {
		t.Fatalf("status output = %q, want %q", out, "Running.\n")
	}
}

func TestStopWithoutRecordReportsStopped(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"stop"}, env.configPath)
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	if out != "Stopped.\n" {
		t.Fatalf("stop output = %q, want %q", out, "Stopped.\n")
	}
}

func TestStopHealsStaleRecord(t *testing.T) {
	env := setupCLITestEnv(t)
	if err := pidfile.Write(env.cfg.Daemon.PidFile, deadPID); err != nil {
		t.Fatalf("seed pid file: %v", err)
	}

	out, _, err := runCLI(t, []string{"stop"}, env.configPath)
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	if !strings.HasPrefix(out, "Stopping.") {
		t.Fatalf("stop output = %q, want Stopping. prefix", out)
	}
	if _, statErr := os.Stat(env.cfg.Daemon.PidFile); !os.IsNotExist(statErr) {
		t.Fatalf("expected stale pid file to be removed, stat err = %v", statErr)
	}
}

func TestStartIgnoredWhenAlreadyRunning(t *testing.T) {
	env := setupCLITestEnv(t)
	if err := pidfile.Write(env.cfg.Daemon.PidFile, os.Getpid()); err != nil {
		t.Fatalf("seed pid file: %v", err)
	}

	out, _, err := runCLI(t, []string{"start"}, env.configPath)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if out != "" {
		t.Fatalf("start output = %q, want none", out)
	}

	pid, err := pidfile.Read(env.cfg.Daemon.PidFile)
	if err != nil {
		t.Fatalf("read pid file: %v", err)
	}
	if pid != os.Getpid() {
		t.Fatalf("pid record = %d, want %d untouched", pid, os.Getpid())
	}
}
