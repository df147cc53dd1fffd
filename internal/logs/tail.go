package logs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// ErrNoLogs reports that no daemon run has produced a log file yet.
var ErrNoLogs = errors.New("no daemon logs recorded")

// pollInterval paces follow-mode checks for appended lines.
const pollInterval = 250 * time.Millisecond

// CurrentPath returns the log file an operator wants to read: the warden.log
// pointer when it resolves, otherwise the newest per-run log. The per-run
// stamp format sorts chronologically, so the lexicographic maximum is the
// latest run.
func CurrentPath(dir string) (string, error) {
	current := filepath.Join(dir, "warden.log")
	if info, err := os.Stat(current); err == nil && !info.IsDir() {
		return current, nil
	}

	matches, err := filepath.Glob(filepath.Join(dir, "warden-*.log"))
	if err != nil {
		return "", fmt.Errorf("scan log directory: %w", err)
	}
	if len(matches) == 0 {
		return "", ErrNoLogs
	}
	sort.Strings(matches)
	return matches[len(matches)-1], nil
}

// TailOptions shapes a single Tail call.
type TailOptions struct {
	// Offset is the resume cursor from a previous result. Negative means
	// start from the end of the file, taking at most Limit trailing lines.
	Offset int64
	// Limit caps the lines returned by a trailing read. Zero starts at the
	// end of the file without returning history.
	Limit int
	// Wait, when positive, keeps polling for appended lines until one
	// arrives or the duration elapses.
	Wait time.Duration
}

// TailResult carries the lines read and the cursor for the next call.
type TailResult struct {
	Lines  []string
	Offset int64
}

// Tail reads from path according to opts. A missing file is not an error; it
// reports no lines and a zero cursor so followers keep polling from the start
// once the file appears.
func Tail(ctx context.Context, path string, opts TailOptions) (TailResult, error) {
	result := TailResult{Offset: opts.Offset}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			result.Offset = 0
			return result, nil
		}
		return result, fmt.Errorf("stat log file: %w", err)
	}
	if info.IsDir() {
		return result, fmt.Errorf("log path %q is a directory", path)
	}

	if opts.Offset < 0 {
		lines, offset, err := lastLines(path, opts.Limit)
		if err != nil {
			return result, err
		}
		result.Lines = lines
		result.Offset = offset
	} else {
		offset := opts.Offset
		if offset > info.Size() {
			// The file was replaced or truncated under us; restart at the end.
			offset = info.Size()
		}
		lines, next, err := readForward(path, offset)
		if err != nil {
			return result, err
		}
		result.Lines = lines
		result.Offset = next
	}

	if opts.Wait > 0 && len(result.Lines) == 0 {
		return waitForLines(ctx, path, result.Offset, opts.Wait)
	}
	return result, nil
}

// lastLines returns up to limit trailing lines and the end-of-file cursor.
func lastLines(path string, limit int) ([]string, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, 0, fmt.Errorf("stat log file: %w", err)
	}
	if limit <= 0 {
		return nil, info.Size(), nil
	}

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	ring := make([]string, limit)
	count, next := 0, 0
	for scanner.Scan() {
		ring[next] = scanner.Text()
		next = (next + 1) % limit
		if count < limit {
			count++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, fmt.Errorf("read log file: %w", err)
	}

	offset, err := file.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, 0, fmt.Errorf("seek log file: %w", err)
	}

	lines := make([]string, count)
	if count == limit {
		for i := 0; i < count; i++ {
			lines[i] = ring[(next+i)%limit]
		}
	} else {
		copy(lines, ring[:count])
	}
	return lines, offset, nil
}

// readForward returns every complete line at or after offset plus the new
// cursor.
func readForward(path string, offset int64) ([]string, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return nil, 0, fmt.Errorf("seek log file: %w", err)
	}

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, fmt.Errorf("read log file: %w", err)
	}

	next, err := file.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, 0, fmt.Errorf("determine log offset: %w", err)
	}
	return lines, next, nil
}

// waitForLines polls for appended lines until some arrive, wait elapses, or
// ctx is canceled.
func waitForLines(ctx context.Context, path string, offset int64, wait time.Duration) (TailResult, error) {
	deadline := time.Now().Add(wait)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	result := TailResult{Offset: offset}
	for {
		lines, next, err := readForward(path, offset)
		if err != nil {
			return result, err
		}
		if len(lines) > 0 {
			result.Lines = lines
			result.Offset = next
			return result, nil
		}
		result.Offset = next

		if time.Now().After(deadline) {
			return result, nil
		}
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		case <-ticker.C:
		}
	}
}
