package daemonrun

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"warden/internal/journal"
	"warden/internal/logging"
)

// journalOpTimeout bounds journal writes issued from lifecycle callbacks so a
// wedged database cannot stall signal handling.
const journalOpTimeout = 5 * time.Second

// recorder maintains one run's journal row across the lifecycle callbacks.
// After the initial insert every write is best effort; a broken journal must
// not take the daemon down with it.
type recorder struct {
	store  *journal.Store
	logger *slog.Logger
	runID  string

	mu       sync.Mutex
	stopping bool
	done     bool
}

func newRecorder(store *journal.Store, logger *slog.Logger, runID string) *recorder {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &recorder{store: store, logger: logger, runID: runID}
}

func (r *recorder) begin(ctx context.Context, pid int, mode, logPath string) error {
	_, err := r.store.Begin(ctx, r.runID, pid, mode, logPath)
	return err
}

func (r *recorder) beat(ctx context.Context) error {
	return r.store.Beat(ctx, r.runID)
}

func (r *recorder) recordError(runErr error) {
	if runErr == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), journalOpTimeout)
	defer cancel()
	if err := r.store.RecordRunError(ctx, r.runID, runErr.Error()); err != nil {
		r.logFailure("record_error", err)
	}
}

// markStopping notes that a shutdown was requested. It runs from the signal
// goroutine, so it must return promptly even when the journal misbehaves.
func (r *recorder) markStopping() {
	r.mu.Lock()
	if r.done {
		r.mu.Unlock()
		return
	}
	r.stopping = true
	r.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), journalOpTimeout)
	defer cancel()
	if err := r.store.MarkStopping(ctx, r.runID); err != nil {
		r.logFailure("mark_stopping", err)
	}
}

// escalated finalizes the row when the shutdown deadline expires. The process
// is forced down right after, so this is the row's last write.
func (r *recorder) escalated() {
	r.mu.Lock()
	if r.done {
		r.mu.Unlock()
		return
	}
	r.done = true
	r.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), journalOpTimeout)
	defer cancel()
	if err := r.store.Finish(ctx, r.runID, journal.RunStateEscalated, "shutdown deadline expired"); err != nil {
		r.logFailure("finish_escalated", err)
	}
}

// finish closes out the row. A run that ends without a shutdown request did
// not exit on purpose, so it is recorded as failed.
func (r *recorder) finish() {
	r.mu.Lock()
	if r.done {
		r.mu.Unlock()
		return
	}
	r.done = true
	stopping := r.stopping
	r.mu.Unlock()

	state := journal.RunStateStopped
	detail := ""
	if !stopping {
		state = journal.RunStateFailed
		detail = "run ended without a shutdown request"
	}

	ctx, cancel := context.WithTimeout(context.Background(), journalOpTimeout)
	defer cancel()
	if err := r.store.Finish(ctx, r.runID, state, detail); err != nil {
		r.logFailure("finish", err)
	}
}

func (r *recorder) logFailure(op string, err error) {
	r.logger.Debug("journal update failed",
		logging.String("op", op),
		logging.Error(err),
	)
}
