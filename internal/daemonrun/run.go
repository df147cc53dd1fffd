package daemonrun

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"warden/internal/config"
	"warden/internal/journal"
	"warden/internal/lifecycle"
	"warden/internal/logging"
	"warden/internal/workload"
)

// logStampFormat names per-run log files so they sort chronologically.
const logStampFormat = "20060102T150405.000Z"

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
	Foreground  bool
}

// NewRuntime builds the runtime for a single daemon run. It opens a fresh
// per-run log file, prunes old ones, records the run in the journal, and
// wires the heartbeat workload. The caller drives the returned runtime and
// must invoke Close exactly once when the run ends.
func NewRuntime(ctx context.Context, cfg *config.Config, opts Options) (lifecycle.Runtime, error) {
	if cfg == nil {
		return lifecycle.Runtime{}, fmt.Errorf("config is required")
	}

	runID := uuid.NewString()
	runStamp := time.Now().UTC().Format(logStampFormat)
	logPath := filepath.Join(cfg.Logging.Dir, fmt.Sprintf("warden-%s.log", runStamp))

	level := opts.LogLevel
	if level == "" {
		level = cfg.Logging.Level
	}
	logger, err := logging.New(logging.Options{
		Level:            level,
		Format:           cfg.Logging.Format,
		OutputPaths:      []string{"stdout", logPath},
		ErrorOutputPaths: []string{"stderr", logPath},
		Development:      opts.Development,
	})
	if err != nil {
		return lifecycle.Runtime{}, fmt.Errorf("init logger: %w", err)
	}
	logger = logger.With(logging.String(logging.FieldRunID, runID))

	if err := ensureCurrentLogPointer(cfg.Logging.Dir, logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update warden.log link: %v\n", err)
	}
	logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays,
		logging.RetentionTarget{Dir: cfg.Logging.Dir, Pattern: "warden-*.log", Exclude: []string{logPath}},
	)

	store, err := journal.Open(cfg)
	if err != nil {
		logger.Error("open run journal", logging.Error(err))
		return lifecycle.Runtime{}, err
	}
	if cfg.Journal.RetentionDays > 0 {
		cutoff := time.Now().AddDate(0, 0, -cfg.Journal.RetentionDays)
		if _, err := store.Prune(ctx, cutoff); err != nil {
			logger.Warn("prune run journal", logging.Error(err))
		}
	}

	mode := journal.ModeDaemon
	if opts.Foreground {
		mode = journal.ModeForeground
	}

	rec := newRecorder(store, logger, runID)
	if err := rec.begin(ctx, os.Getpid(), mode, logPath); err != nil {
		store.Close()
		return lifecycle.Runtime{}, fmt.Errorf("record run start: %w", err)
	}

	logger.Info("run journal ready",
		logging.String(logging.FieldEventType, "run_journal_ready"),
		logging.String("journal_path", store.Path()),
		logging.String("mode", mode),
		logging.String("log_path", logPath),
	)

	interval := time.Duration(cfg.Workload.HeartbeatInterval) * time.Second
	hb := workload.NewHeartbeat(interval, logger, rec.beat)

	return lifecycle.Runtime{
		Logger: logger,
		Run: func() error {
			err := hb.Run()
			if err != nil {
				rec.recordError(err)
			}
			return err
		},
		Exit:       rec.markStopping,
		OnEscalate: rec.escalated,
		Close: func() {
			rec.finish()
			store.Close()
		},
	}, nil
}

// ensureCurrentLogPointer keeps a stable warden.log pointing at the newest
// per-run log. Symlinks are preferred; filesystems without them get a hard
// link.
func ensureCurrentLogPointer(logDir, target string) error {
	if logDir == "" || target == "" {
		return nil
	}
	current := filepath.Join(logDir, "warden.log")
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, current); err == nil {
		return nil
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}
