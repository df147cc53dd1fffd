package main

import (
	"io"
	"os"

	"github.com/mattn/go-isatty"

	"warden/internal/journal"
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
)

// isTerminal reports whether writer is an interactive terminal. Buffers and
// pipes always get plain output.
func isTerminal(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func colorizeState(state journal.RunState, colorize bool) string {
	if !colorize {
		return string(state)
	}
	var color string
	switch state {
	case journal.RunStateRunning:
		color = ansiGreen
	case journal.RunStateStopping, journal.RunStateEscalated:
		color = ansiYellow
	case journal.RunStateFailed:
		color = ansiRed
	default:
		return string(state)
	}
	return color + string(state) + ansiReset
}
