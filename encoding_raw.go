// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Ryan Johnson

package vnc

import (
	"image"
	"io"
)

// RawEncoding is the uncompressed pixel encoding every server supports.
type RawEncoding struct {
	// Pixels holds the rectangle's pixels with its origin at (0, 0).
	Pixels *image.RGBA
}

// Type returns the Raw encoding type.
func (*RawEncoding) Type() int32 {
	return 0
}

// Read decodes width*height pixels in the session pixel format.
func (*RawEncoding) Read(e *Engine, rect *Rectangle, r io.Reader) (Encoding, error) {
	pr := e.pixelReader()
	img, err := pr.readImage(r, int(rect.Width), int(rect.Height))
	if err != nil {
		return nil, encodingError("RawEncoding.Read", "failed to read pixel data", err)
	}
	return &RawEncoding{Pixels: img}, nil
}
