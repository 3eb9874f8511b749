// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Ryan Johnson

package main

import (
	"context"
	"image"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	vnc "github.com/tenthirtyam/go-vncview"
)

type playOptions struct {
	snapshot   string
	timeOffset time.Duration
	fast       bool
}

func newPlayCmd(a *app) *cobra.Command {
	var opts playOptions
	cmd := &cobra.Command{
		Use:   "play FILE",
		Short: "Replay an FBS recording at its original pace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return a.runPlay(ctx, cmd, args[0], opts)
		},
	}
	cmd.Flags().StringVar(&opts.snapshot, "snapshot", "", "save the final screen to this PNG file")
	cmd.Flags().DurationVar(&opts.timeOffset, "time-offset", 0, "shift the replay start by this duration")
	cmd.Flags().BoolVar(&opts.fast, "fast", false, "replay without pacing")
	return cmd
}

func (a *app) runPlay(ctx context.Context, cmd *cobra.Command, path string, opts playOptions) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	fbsOpts := []vnc.FBSOption{vnc.WithTimeOffset(opts.timeOffset)}
	if opts.fast {
		fbsOpts = append(fbsOpts, vnc.WithPacing(false))
	}

	surface := vnc.NewImageSurface(image.Point{})
	rd := vnc.NewRemoteDesktop(
		vnc.WithLogger(a.logger),
		vnc.WithMetrics(a.metrics),
		vnc.WithSurface(surface),
		vnc.WithProtocolFactory(func() vnc.Protocol {
			return vnc.NewEngine(
				vnc.WithEngineLogger(a.logger),
				vnc.WithEngineMetrics(a.metrics),
				vnc.WithPlaybackOptions(fbsOpts...),
			)
		}),
	)
	defer rd.Close()

	lost := make(chan struct{})
	rd.OnConnectionLost(func() { close(lost) })

	if err := rd.ConnectStream(ctx, f); err != nil {
		return err
	}
	fb := rd.Framebuffer()
	cmd.Printf("Playing %q (%dx%d)\n", fb.DesktopName, fb.Width, fb.Height)

	waitForSession(ctx, lost, 0)
	if rd.IsConnected() {
		_ = rd.Disconnect()
	}
	_ = rd.Dispatcher().Invoke(func() {})

	cmd.Printf("Updates: %d\n", surface.Draws())
	if opts.snapshot != "" {
		return writeSnapshot(opts.snapshot, surface, rd.Transform())
	}
	return nil
}
