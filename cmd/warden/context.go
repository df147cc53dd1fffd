package main

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"warden/internal/config"
	"warden/internal/daemonrun"
	"warden/internal/lifecycle"
	"warden/internal/logging"
)

type commandContext struct {
	configFlag   *string
	logLevelFlag *string

	configOnce   sync.Once
	config       *config.Config
	configPath   string
	configExists bool
	configErr    error
}

func newCommandContext(configFlag, logLevelFlag *string) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		logLevelFlag: logLevelFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolvedPath, exists, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolvedPath
		c.configExists = exists
	})
	return c.config, c.configErr
}

func (c *commandContext) configValue() *config.Config {
	cfg, _ := c.ensureConfig()
	return cfg
}

func (c *commandContext) logLevel() string {
	if c.logLevelFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.logLevelFlag)
}

// controller builds the lifecycle controller for one command invocation.
func (c *commandContext) controller(cmd *cobra.Command) (*lifecycle.Controller, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return lifecycle.New(cfg, logger, cmd.OutOrStdout(), lifecycle.WithChildArgs(c.childArgs())), nil
}

// childArgs reproduces the current invocation's config selection for the
// re-executed daemon phases. The detached child runs from the daemon workdir,
// so a --config flag is forwarded as the resolved absolute path.
func (c *commandContext) childArgs() []string {
	args := []string{"start"}
	if c.configFlag != nil && strings.TrimSpace(*c.configFlag) != "" && c.configPath != "" {
		args = append(args, "--config", c.configPath)
	}
	if level := c.logLevel(); level != "" {
		args = append(args, "--log-level", level)
	}
	return args
}

func (c *commandContext) daemonBoot() lifecycle.Boot {
	return func(ctx context.Context) (lifecycle.Runtime, error) {
		return daemonrun.NewRuntime(ctx, c.configValue(), daemonrun.Options{LogLevel: c.logLevel()})
	}
}

func (c *commandContext) foregroundBoot() lifecycle.Boot {
	return func(ctx context.Context) (lifecycle.Runtime, error) {
		return daemonrun.NewRuntime(ctx, c.configValue(), daemonrun.Options{
			LogLevel:   c.logLevel(),
			Foreground: true,
		})
	}
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
