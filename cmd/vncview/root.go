// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Ryan Johnson

package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	vnc "github.com/tenthirtyam/go-vncview"
)

// app carries the state shared by subcommands, set up in PersistentPreRunE.
type app struct {
	cfg     Config
	logger  vnc.Logger
	metrics *vnc.Metrics
	server  *http.Server
}

func newRootCmd() *cobra.Command {
	a := &app{}
	var (
		logLevel    string
		metricsAddr string
	)

	root := &cobra.Command{
		Use:           "vncview",
		Short:         "Headless VNC viewer, recorder and FBS player",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("log-level") {
				cfg.LogLevel = logLevel
			}
			if cmd.Flags().Changed("metrics-addr") {
				cfg.MetricsAddr = metricsAddr
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			a.cfg = cfg
			a.logger = vnc.NewZerologLogger(cmd.ErrOrStderr(), cfg.LogLevel)
			a.metrics = vnc.NewMetrics()
			return a.startMetrics()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.stopMetrics()
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")

	root.AddCommand(newConnectCmd(a), newPlayCmd(a), newInspectCmd(a))
	return root
}

func (a *app) startMetrics() error {
	if a.cfg.MetricsAddr == "" {
		return nil
	}
	ln, err := net.Listen("tcp", a.cfg.MetricsAddr)
	if err != nil {
		return err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", a.metrics.Handler())
	a.server = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := a.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("Metrics server failed", vnc.Field{Key: "error", Value: err})
		}
	}()
	a.logger.Info("Serving metrics", vnc.Field{Key: "address", Value: ln.Addr().String()})
	return nil
}

func (a *app) stopMetrics() error {
	if a.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return a.server.Shutdown(ctx)
}

// waitForSession blocks until lost is closed, ctx ends or the optional
// duration elapses.
func waitForSession(ctx context.Context, lost <-chan struct{}, d time.Duration) {
	var timeout <-chan time.Time
	if d > 0 {
		timer := time.NewTimer(d)
		defer timer.Stop()
		timeout = timer.C
	}
	select {
	case <-lost:
	case <-ctx.Done():
	case <-timeout:
	}
}
