package daemonize

import (
	"fmt"
	"os"
	"strings"
)

// phaseEnv marks which detachment generation the current process is. An
// empty value means the attached control process, "1" the intermediate
// session leader, and "2" the final daemon process.
const phaseEnv = "WARDEN_DETACH_PHASE"

// Config describes how the detached process is set up.
type Config struct {
	// WorkDir is the directory the daemon runs in.
	WorkDir string
	// Umask is the file-creation mask adopted by the daemon.
	Umask int
	// Stdout and Stderr name the stream redirection targets, opened in
	// append mode.
	Stdout string
	Stderr string
	// User names an account to run as after detaching. Empty keeps the
	// invoking user.
	User string
	// ChildArgs is the argument vector each respawned generation runs with.
	// Nil repeats the invoking process's arguments.
	ChildArgs []string
}

func openStream(path string) (*os.File, error) {
	target := strings.TrimSpace(path)
	if target == "" {
		target = os.DevNull
	}
	file, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open stream target %q: %w", target, err)
	}
	return file, nil
}

func environWithoutPhase() []string {
	env := os.Environ()
	out := make([]string, 0, len(env))
	for _, entry := range env {
		if strings.HasPrefix(entry, phaseEnv+"=") {
			continue
		}
		out = append(out, entry)
	}
	return out
}
