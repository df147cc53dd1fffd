package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateDaemon(); err != nil {
		return err
	}
	if err := c.validateWorkload(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateDaemon() error {
	if strings.TrimSpace(c.Daemon.PidFile) == "" {
		return errors.New("daemon.pid_file must be set")
	}
	if c.Daemon.Umask < 0 || c.Daemon.Umask > 0o777 {
		return fmt.Errorf("daemon.umask must be between 0 and 0o777, got %#o", c.Daemon.Umask)
	}
	if c.Daemon.ShutdownGrace <= 0 {
		return errors.New("daemon.shutdown_grace must be positive (seconds)")
	}
	return nil
}

func (c *Config) validateWorkload() error {
	if c.Workload.HeartbeatInterval <= 0 {
		return errors.New("workload.heartbeat_interval must be positive (seconds)")
	}
	return nil
}
