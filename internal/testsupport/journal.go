package testsupport

import (
	"context"
	"testing"

	"warden/internal/config"
	"warden/internal/journal"
)

// MustOpenJournal opens a journal.Store for tests and registers cleanup.
func MustOpenJournal(t testing.TB, cfg *config.Config) *journal.Store {
	t.Helper()

	store, err := journal.Open(cfg)
	if err != nil {
		t.Fatalf("journal.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// BeginRun inserts a daemon run row for tests using the provided store.
func BeginRun(t testing.TB, store *journal.Store, runID string, pid int) *journal.Run {
	t.Helper()

	run, err := store.Begin(context.Background(), runID, pid, journal.ModeDaemon, "")
	if err != nil {
		t.Fatalf("store.Begin: %v", err)
	}
	return run
}
