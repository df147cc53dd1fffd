package workload

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func testHeartbeat(interval time.Duration, onBeat func(context.Context) error) *Heartbeat {
	hb := NewHeartbeat(interval, nil, onBeat)
	hb.quantum = 5 * time.Millisecond
	return hb
}

func TestFirstIterationBeats(t *testing.T) {
	beats := 0
	hb := testHeartbeat(time.Hour, func(context.Context) error {
		beats++
		return nil
	})

	if err := hb.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if beats != 1 {
		t.Fatalf("expected one beat on the first iteration, got %d", beats)
	}
	if hb.Beats() != 1 {
		t.Fatalf("Beats() = %d, want 1", hb.Beats())
	}
}

func TestBeatsSpacedByInterval(t *testing.T) {
	hb := testHeartbeat(40*time.Millisecond, nil)

	deadline := time.Now().Add(150 * time.Millisecond)
	for time.Now().Before(deadline) {
		if err := hb.Run(); err != nil {
			t.Fatalf("Run: %v", err)
		}
	}

	// 150ms at a 40ms interval gives roughly four beats. Allow slack for
	// scheduler jitter but reject both a beat-per-iteration bug and a
	// never-beats-again bug.
	if got := hb.Beats(); got < 2 || got > 6 {
		t.Fatalf("Beats() = %d, want between 2 and 6", got)
	}
}

func TestQuietIterationsSkipCallback(t *testing.T) {
	calls := 0
	hb := testHeartbeat(time.Hour, func(context.Context) error {
		calls++
		return nil
	})

	for i := 0; i < 5; i++ {
		if err := hb.Run(); err != nil {
			t.Fatalf("Run %d: %v", i, err)
		}
	}
	if calls != 1 {
		t.Fatalf("expected only the first iteration to invoke the callback, got %d calls", calls)
	}
}

func TestBeatFailurePropagates(t *testing.T) {
	boom := errors.New("journal closed")
	hb := testHeartbeat(time.Millisecond, func(context.Context) error {
		return boom
	})

	err := hb.Run()
	if err == nil {
		t.Fatal("expected beat failure to surface")
	}
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped callback error, got %v", err)
	}
	if !strings.Contains(err.Error(), "record heartbeat") {
		t.Fatalf("unexpected error text: %v", err)
	}
}

func TestNilCallbackBeatsQuietly(t *testing.T) {
	hb := testHeartbeat(time.Millisecond, nil)
	for i := 0; i < 3; i++ {
		if err := hb.Run(); err != nil {
			t.Fatalf("Run %d: %v", i, err)
		}
	}
	if hb.Beats() == 0 {
		t.Fatal("expected beats to accumulate without a callback")
	}
}
