// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Ryan Johnson

package main

import (
	"errors"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	vnc "github.com/tenthirtyam/go-vncview"
)

func newInspectCmd(a *app) *cobra.Command {
	var quiet bool
	cmd := &cobra.Command{
		Use:   "inspect FILE",
		Short: "List the records of an FBS recording",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			fr, err := vnc.NewFBSReader(f,
				vnc.WithPacing(false),
				vnc.WithFBSLogger(a.logger),
				vnc.WithFBSMetrics(a.metrics))
			if err != nil {
				return err
			}
			h := fr.Header()
			cmd.Printf("FBS version %s.%s\n", h.Major, h.Minor)

			var total int
			var last time.Duration
			for {
				frame, err := fr.ReadFrame()
				if errors.Is(err, io.EOF) {
					break
				}
				if err != nil {
					return err
				}
				if !quiet {
					cmd.Printf("%6d %10d bytes at %s\n", fr.Frames(), len(frame.Payload), frame.Timestamp)
				}
				total += len(frame.Payload)
				last = frame.Timestamp
			}
			cmd.Printf("Frames: %d\nBytes: %d\nDuration: %s\n", fr.Frames(), total, last)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "print only the summary")
	return cmd
}
