package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize(baseDir string) error {
	if err := c.normalizeDaemon(baseDir); err != nil {
		return err
	}
	if err := c.normalizeJournal(); err != nil {
		return err
	}
	if err := c.normalizeLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) normalizeDaemon(baseDir string) error {
	var err error
	c.Daemon.WorkDir = strings.TrimSpace(c.Daemon.WorkDir)
	if c.Daemon.WorkDir == "" {
		c.Daemon.WorkDir = defaultWorkDir
	}
	if c.Daemon.WorkDir, err = resolveAgainst(baseDir, c.Daemon.WorkDir); err != nil {
		return fmt.Errorf("daemon.workdir: %w", err)
	}
	c.Daemon.PidFile = strings.TrimSpace(c.Daemon.PidFile)
	if c.Daemon.PidFile == "" {
		c.Daemon.PidFile = defaultPidFile
	}
	if c.Daemon.PidFile, err = resolveAgainst(c.Daemon.WorkDir, c.Daemon.PidFile); err != nil {
		return fmt.Errorf("daemon.pid_file: %w", err)
	}
	c.Daemon.Stdout = strings.TrimSpace(c.Daemon.Stdout)
	if c.Daemon.Stdout == "" {
		c.Daemon.Stdout = defaultStdout
	}
	if c.Daemon.Stdout, err = resolveAgainst(c.Daemon.WorkDir, c.Daemon.Stdout); err != nil {
		return fmt.Errorf("daemon.stdout: %w", err)
	}
	c.Daemon.Stderr = strings.TrimSpace(c.Daemon.Stderr)
	if c.Daemon.Stderr == "" {
		c.Daemon.Stderr = defaultStderr
	}
	if c.Daemon.Stderr, err = resolveAgainst(c.Daemon.WorkDir, c.Daemon.Stderr); err != nil {
		return fmt.Errorf("daemon.stderr: %w", err)
	}
	c.Daemon.User = strings.TrimSpace(c.Daemon.User)
	return nil
}

func (c *Config) normalizeJournal() error {
	var err error
	if strings.TrimSpace(c.Journal.Path) == "" {
		c.Journal.Path = defaultJournalPath
	}
	if c.Journal.Path, err = expandPath(c.Journal.Path); err != nil {
		return fmt.Errorf("journal.path: %w", err)
	}
	if c.Journal.RetentionDays < 0 {
		c.Journal.RetentionDays = 0
	}
	return nil
}

func (c *Config) normalizeLogging() error {
	var err error
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if strings.TrimSpace(c.Logging.Dir) == "" {
		c.Logging.Dir = defaultLogDir
	}
	if c.Logging.Dir, err = expandPath(c.Logging.Dir); err != nil {
		return fmt.Errorf("logging.dir: %w", err)
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
	return nil
}
