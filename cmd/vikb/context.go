package main

import (
	"fmt"
	"strings"
	"sync"

	"video-insights-go/internal/config"
	"video-insights-go/internal/logger"
)

type commandContext struct {
	configPath string
	logLevel   string
	workDir    string
	sets       []string

	configOnce sync.Once
	config     config.Config
	configErr  error

	logOnce sync.Once
	log     *logger.Logger
}

func newCommandContext() *commandContext {
	return &commandContext{}
}

func (c *commandContext) overrides() (map[string]string, error) {
	out := map[string]string{}
	for _, kv := range c.sets {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("invalid --set %q (want KEY=VALUE)", kv)
		}
		out[strings.ToUpper(strings.TrimSpace(key))] = value
	}
	if c.logLevel != "" {
		out["LOG_LEVEL"] = c.logLevel
	}
	if c.workDir != "" {
		out["WORK_DIR"] = c.workDir
	}
	return out, nil
}

func (c *commandContext) ensureConfig() (config.Config, error) {
	c.configOnce.Do(func() {
		overrides, err := c.overrides()
		if err != nil {
			c.configErr = err
			return
		}
		providers, err := config.DefaultProviders(strings.TrimSpace(c.configPath), overrides)
		if err != nil {
			c.configErr = err
			return
		}
		c.config, c.configErr = config.Load(providers...)
	})
	return c.config, c.configErr
}

// logger writes to stderr so command output stays clean on stdout.
func (c *commandContext) logger() *logger.Logger {
	c.logOnce.Do(func() {
		cfg, _ := c.ensureConfig()
		level := cfg.LogLevel
		if level == "" {
			level = "warn"
		}
		c.log = logger.NewWithOutput(level, "local", stderr)
	})
	return c.log
}
