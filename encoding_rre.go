// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Ryan Johnson

package vnc

import (
	"encoding/binary"
	"fmt"
	"image/color"
	"io"
)

// RREEncoding is a background color plus solid subrectangles.
type RREEncoding struct {
	BackgroundColor color.RGBA
	Subrectangles   []RRESubrectangle
}

// RRESubrectangle is positioned relative to its enclosing rectangle.
type RRESubrectangle struct {
	Color  color.RGBA
	X      uint16
	Y      uint16
	Width  uint16
	Height uint16
}

// Type returns the RRE encoding type.
func (*RREEncoding) Type() int32 {
	return 2
}

// Read decodes the subrectangle list.
func (*RREEncoding) Read(e *Engine, rect *Rectangle, r io.Reader) (Encoding, error) {
	validator := newInputValidator()
	pr := e.pixelReader()

	var numSubrects uint32
	if err := binary.Read(r, binary.BigEndian, &numSubrects); err != nil {
		return nil, encodingError("RREEncoding.Read", "failed to read number of subrectangles", err)
	}

	// One subrectangle per pixel is the most a sane server can send.
	if uint64(numSubrects) > uint64(rect.Width)*uint64(rect.Height) {
		return nil, encodingError("RREEncoding.Read",
			fmt.Sprintf("too many subrectangles: %d for %dx%d", numSubrects, rect.Width, rect.Height), nil)
	}

	bg, err := pr.readColor(r)
	if err != nil {
		return nil, encodingError("RREEncoding.Read", "failed to read background color", err)
	}

	subrects := make([]RRESubrectangle, numSubrects)
	var geom [8]byte
	for i := range subrects {
		c, err := pr.readColor(r)
		if err != nil {
			return nil, encodingError("RREEncoding.Read", "failed to read subrectangle color", err)
		}
		if _, err := io.ReadFull(r, geom[:]); err != nil {
			return nil, encodingError("RREEncoding.Read", "failed to read subrectangle geometry", err)
		}
		sub := RRESubrectangle{
			Color:  c,
			X:      binary.BigEndian.Uint16(geom[0:]),
			Y:      binary.BigEndian.Uint16(geom[2:]),
			Width:  binary.BigEndian.Uint16(geom[4:]),
			Height: binary.BigEndian.Uint16(geom[6:]),
		}
		if err := validator.ValidateRectangle(sub.X, sub.Y, sub.Width, sub.Height, rect.Width, rect.Height); err != nil {
			return nil, encodingError("RREEncoding.Read", "invalid subrectangle bounds", err)
		}
		subrects[i] = sub
	}

	return &RREEncoding{BackgroundColor: bg, Subrectangles: subrects}, nil
}
