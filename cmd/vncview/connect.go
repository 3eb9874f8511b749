// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Ryan Johnson

package main

import (
	"context"
	"image"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	vnc "github.com/tenthirtyam/go-vncview"
)

type connectOptions struct {
	password string
	viewOnly bool
	record   string
	snapshot string
	duration time.Duration
}

func newConnectCmd(a *app) *cobra.Command {
	var opts connectOptions
	cmd := &cobra.Command{
		Use:   "connect HOST[:DISPLAY]",
		Short: "Open a live session to a VNC server",
		Long: "Open a live session to a VNC server. HOST may also be a ws:// or wss://\n" +
			"websockify URL. The session runs until the server disconnects, the\n" +
			"duration elapses or the command is interrupted.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return a.runConnect(ctx, cmd, args[0], opts)
		},
	}
	cmd.Flags().StringVar(&opts.password, "password", "", "VNC password (defaults to $VNCVIEW_PASSWORD)")
	cmd.Flags().BoolVar(&opts.viewOnly, "view-only", false, "do not send input")
	cmd.Flags().StringVar(&opts.record, "record", "", "record the session to this FBS file or directory")
	cmd.Flags().StringVar(&opts.snapshot, "snapshot", "", "save the final screen to this PNG file")
	cmd.Flags().DurationVar(&opts.duration, "duration", 0, "end the session after this long")
	return cmd
}

func (a *app) runConnect(ctx context.Context, cmd *cobra.Command, host string, opts connectOptions) error {
	password := a.cfg.Password
	if opts.password != "" {
		password = opts.password
	}

	engineOpts := []vnc.EngineOption{
		vnc.WithEngineLogger(a.logger),
		vnc.WithEngineMetrics(a.metrics),
		vnc.WithTransport(a.cfg.transport()),
		vnc.WithShared(a.cfg.Shared),
		vnc.WithConnectTimeout(a.cfg.DialTimeout),
	}
	if opts.record != "" {
		f, err := createRecording(opts.record)
		if err != nil {
			return err
		}
		defer f.Close()
		fw, err := vnc.NewFBSWriter(f)
		if err != nil {
			return err
		}
		a.logger.Info("Recording session", vnc.Field{Key: "file", Value: f.Name()})
		engineOpts = append(engineOpts, vnc.WithRecording(fw))
	}

	surface := vnc.NewImageSurface(image.Point{})
	rd := vnc.NewRemoteDesktop(
		vnc.WithLogger(a.logger),
		vnc.WithMetrics(a.metrics),
		vnc.WithSurface(surface),
		vnc.WithProtocolFactory(func() vnc.Protocol { return vnc.NewEngine(engineOpts...) }),
		vnc.WithPasswordProvider(func(context.Context, string) (string, error) {
			return password, nil
		}),
	)
	defer rd.Close()

	lost := make(chan struct{})
	rd.OnConnectionLost(func() { close(lost) })
	rd.OnClipboardChanged(func(text string) {
		a.logger.Info("Server clipboard changed", vnc.Field{Key: "length", Value: len(text)})
	})

	if _, err := rd.Connect(ctx, host, vnc.WithViewOnly(opts.viewOnly), vnc.WithScaled(a.cfg.Scale != 1)); err != nil {
		return err
	}
	fb := rd.Framebuffer()
	if a.cfg.Scale != 1 {
		surface.SetDisplaySize(image.Pt(int(float64(fb.Width)*a.cfg.Scale), int(float64(fb.Height)*a.cfg.Scale)))
		rd.SurfaceResized()
	}
	cmd.Printf("Connected to %q (%dx%d) session %s\n", fb.DesktopName, fb.Width, fb.Height, rd.SessionID())

	waitForSession(ctx, lost, opts.duration)
	if rd.IsConnected() {
		if err := rd.Disconnect(); err != nil {
			a.logger.Warn("Disconnect failed", vnc.Field{Key: "error", Value: err})
		}
	}
	// Let the dispatcher finish the teardown before reading the surface.
	_ = rd.Dispatcher().Invoke(func() {})

	cmd.Printf("Updates: %d\n", surface.Draws())
	if opts.snapshot != "" {
		return writeSnapshot(opts.snapshot, surface, rd.Transform())
	}
	return nil
}

// createRecording opens the recording file. A directory gets a file named
// after a new session id.
func createRecording(path string) (*os.File, error) {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = filepath.Join(path, uuid.NewString()+".fbs")
	}
	return os.Create(path)
}
