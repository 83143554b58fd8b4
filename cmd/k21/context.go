package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"k21/internal/config"
	"k21/internal/logging"
)

type globalFlags struct {
	config    string
	logLevel  string
	logFormat string
	json      bool
}

type commandContext struct {
	flags *globalFlags

	configOnce   sync.Once
	config       *config.Config
	configPath   string
	configExists bool
	configErr    error

	log *slog.Logger
}

func newCommandContext(flags *globalFlags) *commandContext {
	return &commandContext{flags: flags}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		path := strings.TrimSpace(c.flags.config)
		cfg, resolved, exists, err := config.Load(path)
		if err != nil {
			c.configErr = fmt.Errorf("load config: %w", err)
			return
		}
		if level := strings.TrimSpace(c.flags.logLevel); level != "" {
			cfg.Logging.Level = level
		}
		if format := strings.TrimSpace(c.flags.logFormat); format != "" {
			cfg.Logging.Format = format
		}
		c.config = cfg
		c.configPath = resolved
		c.configExists = exists
	})
	return c.config, c.configErr
}

// logger returns the command logger, building it on first use. When the
// command's stderr has been redirected the log stream follows it.
func (c *commandContext) logger(cmd *cobra.Command) (*slog.Logger, error) {
	if c.log != nil {
		return c.log, nil
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	var logger *slog.Logger
	if errOut := cmd.ErrOrStderr(); errOut == os.Stderr {
		logger, err = logging.NewFromConfig(cfg)
	} else {
		logger, err = logging.New(logging.Options{
			Level:  cfg.Logging.Level,
			Format: cfg.Logging.Format,
			Writer: errOut,
		})
	}
	if err != nil {
		return nil, err
	}
	c.log = logger
	return logger, nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
