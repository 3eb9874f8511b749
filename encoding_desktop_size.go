// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Ryan Johnson

package vnc

import (
	"io"
)

// DesktopSizePseudoEncoding announces a new framebuffer size in the width
// and height of its rectangle.
type DesktopSizePseudoEncoding struct {
	Width  uint16
	Height uint16
}

// Type returns the DesktopSize pseudo-encoding type.
func (*DesktopSizePseudoEncoding) Type() int32 {
	return -223
}

// IsPseudo implements PseudoEncoding.
func (*DesktopSizePseudoEncoding) IsPseudo() bool {
	return true
}

// Read carries no payload; the size comes from the rectangle header.
func (*DesktopSizePseudoEncoding) Read(_ *Engine, rect *Rectangle, _ io.Reader) (Encoding, error) {
	if err := newInputValidator().ValidateFramebufferDimensions(rect.Width, rect.Height); err != nil {
		return nil, validationError("DesktopSizePseudoEncoding.Read", "invalid desktop size", err)
	}
	return &DesktopSizePseudoEncoding{Width: rect.Width, Height: rect.Height}, nil
}

// Handle records the new size so later rectangles validate against it.
func (ds *DesktopSizePseudoEncoding) Handle(e *Engine, _ *Rectangle) error {
	oldWidth, oldHeight := e.frameBufferSize()
	e.setFrameBufferSize(ds.Width, ds.Height)

	e.logger.Info("Desktop size changed",
		Field{Key: "old_width", Value: oldWidth},
		Field{Key: "old_height", Value: oldHeight},
		Field{Key: "new_width", Value: ds.Width},
		Field{Key: "new_height", Value: ds.Height})
	return nil
}
