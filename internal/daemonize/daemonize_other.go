//go:build !unix

package daemonize

import (
	"fmt"
	"os"
)

// Detach simulates daemon mode on platforms without sessions: switch to the
// working directory and point the standard streams at their configured
// targets, then carry on in the same process. The caller always continues.
func Detach(cfg Config) (bool, error) {
	if cfg.WorkDir != "" {
		if err := os.Chdir(cfg.WorkDir); err != nil {
			return false, fmt.Errorf("change to workdir %q: %w", cfg.WorkDir, err)
		}
	}

	stdin, err := os.Open(os.DevNull)
	if err != nil {
		return false, fmt.Errorf("open %s: %w", os.DevNull, err)
	}
	stdout, err := openStream(cfg.Stdout)
	if err != nil {
		return false, err
	}
	stderr, err := openStream(cfg.Stderr)
	if err != nil {
		return false, err
	}

	os.Stdin = stdin
	os.Stdout = stdout
	os.Stderr = stderr
	_ = os.Unsetenv(phaseEnv)
	return true, nil
}
