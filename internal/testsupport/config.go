package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"warden/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	cfg *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	workDir := filepath.Join(base, "work")
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		t.Fatalf("mkdir work dir: %v", err)
	}

	cfgVal := config.Default()
	cfgVal.Daemon.WorkDir = workDir
	cfgVal.Daemon.PidFile = filepath.Join(workDir, "warden.pid")
	cfgVal.Daemon.Stdout = os.DevNull
	cfgVal.Daemon.Stderr = os.DevNull
	cfgVal.Journal.Path = filepath.Join(base, "state", "journal.db")
	cfgVal.Logging.Dir = filepath.Join(base, "logs")

	builder := &configBuilder{cfg: &cfgVal}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithHeartbeatInterval overrides the workload heartbeat interval in seconds.
func WithHeartbeatInterval(seconds int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Workload.HeartbeatInterval = seconds
	}
}

// WithJournalRetention overrides the journal retention window in days.
func WithJournalRetention(days int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Journal.RetentionDays = days
	}
}
