// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Ryan Johnson

package vnc

import (
	"image"
	"io"
)

// Encoding decodes the payload of one framebuffer-update rectangle. Read
// returns a new value holding the decoded data.
type Encoding interface {
	Type() int32
	Read(*Engine, *Rectangle, io.Reader) (Encoding, error)
}

// PseudoEncoding is an encoding that carries session metadata instead of
// pixels.
type PseudoEncoding interface {
	Encoding

	IsPseudo() bool
	Handle(*Engine, *Rectangle) error
}

// Rectangle is one region of a framebuffer update.
type Rectangle struct {
	X      uint16
	Y      uint16
	Width  uint16
	Height uint16
	Enc    Encoding
}

// Bounds returns the rectangle in framebuffer coordinates.
func (r Rectangle) Bounds() image.Rectangle {
	return image.Rect(int(r.X), int(r.Y), int(r.X)+int(r.Width), int(r.Y)+int(r.Height))
}

// DefaultEncodings returns the encodings advertised to servers, in order
// of preference.
func DefaultEncodings() []Encoding {
	return []Encoding{
		new(CopyRectEncoding),
		new(RREEncoding),
		new(RawEncoding),
		new(DesktopSizePseudoEncoding),
	}
}
