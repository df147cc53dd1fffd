package logs_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"warden/internal/logs"
)

func writeLog(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}
}

func TestTailLastLines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "warden.log")
	writeLog(t, path, "a\nb\nc\n")

	result, err := logs.Tail(context.Background(), path, logs.TailOptions{Offset: -1, Limit: 2})
	if err != nil {
		t.Fatalf("tail: %v", err)
	}
	if len(result.Lines) != 2 || result.Lines[0] != "b" || result.Lines[1] != "c" {
		t.Fatalf("unexpected lines: %#v", result.Lines)
	}
	if result.Offset == 0 {
		t.Fatal("expected cursor to advance")
	}
}

func TestTailZeroLimitStartsAtEnd(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "warden.log")
	writeLog(t, path, "old\n")

	result, err := logs.Tail(context.Background(), path, logs.TailOptions{Offset: -1, Limit: 0})
	if err != nil {
		t.Fatalf("tail: %v", err)
	}
	if len(result.Lines) != 0 {
		t.Fatalf("expected no history, got %#v", result.Lines)
	}

	// The cursor points past the existing content, so only new lines show.
	writeLog(t, path, "old\nnew\n")
	next, err := logs.Tail(context.Background(), path, logs.TailOptions{Offset: result.Offset})
	if err != nil {
		t.Fatalf("forward tail: %v", err)
	}
	if len(next.Lines) != 1 || next.Lines[0] != "new" {
		t.Fatalf("unexpected lines: %#v", next.Lines)
	}
}

func TestTailMissingFileIsNotAnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "warden.log")

	result, err := logs.Tail(context.Background(), path, logs.TailOptions{Offset: -1, Limit: 5})
	if err != nil {
		t.Fatalf("tail: %v", err)
	}
	if len(result.Lines) != 0 || result.Offset != 0 {
		t.Fatalf("expected empty result, got %#v", result)
	}
}

func TestTailWaitPicksUpAppendedLines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "warden.log")
	writeLog(t, path, "start\n")

	initial, err := logs.Tail(context.Background(), path, logs.TailOptions{Offset: -1, Limit: 1})
	if err != nil {
		t.Fatalf("initial tail: %v", err)
	}

	done := make(chan logs.TailResult, 1)
	go func() {
		res, err := logs.Tail(context.Background(), path, logs.TailOptions{
			Offset: initial.Offset,
			Wait:   5 * time.Second,
		})
		if err != nil {
			t.Errorf("follow tail: %v", err)
		}
		done <- res
	}()

	time.Sleep(100 * time.Millisecond)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open append: %v", err)
	}
	if _, err := f.WriteString("later\n"); err != nil {
		t.Fatalf("append: %v", err)
	}
	_ = f.Close()

	select {
	case res := <-done:
		if len(res.Lines) != 1 || res.Lines[0] != "later" {
			t.Fatalf("unexpected follow lines: %#v", res.Lines)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("follow tail did not return")
	}
}

func TestTailWaitHonorsCancellation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "warden.log")
	writeLog(t, path, "only\n")

	initial, err := logs.Tail(context.Background(), path, logs.TailOptions{Offset: -1, Limit: 1})
	if err != nil {
		t.Fatalf("initial tail: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	_, err = logs.Tail(ctx, path, logs.TailOptions{Offset: initial.Offset, Wait: 30 * time.Second})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestCurrentPathPrefersPointer(t *testing.T) {
	dir := t.TempDir()
	writeLog(t, filepath.Join(dir, "warden-20240101T000000.000Z.log"), "old\n")
	writeLog(t, filepath.Join(dir, "warden.log"), "pointer\n")

	path, err := logs.CurrentPath(dir)
	if err != nil {
		t.Fatalf("CurrentPath: %v", err)
	}
	if path != filepath.Join(dir, "warden.log") {
		t.Fatalf("CurrentPath = %q, want pointer", path)
	}
}

func TestCurrentPathFallsBackToNewestRunLog(t *testing.T) {
	dir := t.TempDir()
	writeLog(t, filepath.Join(dir, "warden-20240101T000000.000Z.log"), "old\n")
	writeLog(t, filepath.Join(dir, "warden-20240202T000000.000Z.log"), "new\n")

	path, err := logs.CurrentPath(dir)
	if err != nil {
		t.Fatalf("CurrentPath: %v", err)
	}
	if path != filepath.Join(dir, "warden-20240202T000000.000Z.log") {
		t.Fatalf("CurrentPath = %q, want newest run log", path)
	}
}

func TestCurrentPathWithoutLogs(t *testing.T) {
	_, err := logs.CurrentPath(t.TempDir())
	if !errors.Is(err, logs.ErrNoLogs) {
		t.Fatalf("expected ErrNoLogs, got %v", err)
	}
}
