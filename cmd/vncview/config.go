// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Ryan Johnson

package main

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	vnc "github.com/tenthirtyam/go-vncview"
)

// Config holds settings read from VNCVIEW_* environment variables. Command
// line flags override them.
type Config struct {
	Password    string        `env:"VNCVIEW_PASSWORD"`
	LogLevel    string        `env:"VNCVIEW_LOG_LEVEL" envDefault:"info"`
	MetricsAddr string        `env:"VNCVIEW_METRICS_ADDR"`
	DialTimeout time.Duration `env:"VNCVIEW_DIAL_TIMEOUT" envDefault:"10s"`
	InsecureTLS bool          `env:"VNCVIEW_INSECURE_TLS"`
	Shared      bool          `env:"VNCVIEW_SHARED" envDefault:"true"`
	Scale       float64       `env:"VNCVIEW_SCALE" envDefault:"1"`
}

// LoadConfig parses the environment and validates the result.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c Config) Validate() error {
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return vnc.NewVNCError("Config.Validate", vnc.ErrConfiguration,
			fmt.Sprintf("unknown log level %q", c.LogLevel), nil)
	}
	if c.DialTimeout == 0 {
		return vnc.NewVNCError("Config.Validate", vnc.ErrConfiguration, "dial timeout must be positive", nil)
	}
	if err := c.transport().Validate(); err != nil {
		return err
	}
	if c.Scale <= 0 || math.IsNaN(c.Scale) || math.IsInf(c.Scale, 0) {
		return vnc.NewVNCError("Config.Validate", vnc.ErrConfiguration,
			fmt.Sprintf("scale must be a positive number, got %v", c.Scale), nil)
	}
	return nil
}

func (c Config) transport() vnc.TransportConfig {
	return vnc.TransportConfig{DialTimeout: c.DialTimeout, InsecureTLS: c.InsecureTLS}
}
