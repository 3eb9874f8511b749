// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Ryan Johnson

package main

import (
	"fmt"
	"image/png"
	"os"

	vnc "github.com/tenthirtyam/go-vncview"
)

// writeSnapshot saves the surface as displayed with t as a PNG file.
func writeSnapshot(path string, surface *vnc.ImageSurface, t vnc.Transform) error {
	img := surface.Render(t)
	if img == nil {
		return fmt.Errorf("no framebuffer to save")
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return f.Close()
}
