// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Ryan Johnson

package vnc

import (
	"fmt"
	"image/color"
)

// ColorMapSize is the number of entries in an indexed-color palette.
const ColorMapSize = 256

// ColorMap is the palette used when the pixel format is not true color.
type ColorMap [ColorMapSize]color.RGBA

// newGrayColorMap returns a grayscale ramp, used until the server sends
// SetColorMapEntries.
func newGrayColorMap() ColorMap {
	var cm ColorMap
	for i := range cm {
		cm[i] = color.RGBA{R: uint8(i), G: uint8(i), B: uint8(i), A: 0xff} // #nosec G115 - i < 256
	}
	return cm
}

// setRange stores colors starting at first.
func (cm *ColorMap) setRange(first uint16, colors []color.RGBA) error {
	if int(first)+len(colors) > ColorMapSize {
		return validationError("ColorMap.setRange",
			fmt.Sprintf("color range [%d:%d] exceeds color map bounds", first, int(first)+len(colors)), nil)
	}
	copy(cm[first:], colors)
	return nil
}

// rgb16 converts a 16-bit-per-channel palette entry.
func rgb16(r, g, b uint16) color.RGBA {
	return color.RGBA{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8), A: 0xff}
}

// scaleComponent maps v in [0, maxVal] to [0, 255].
func scaleComponent(v uint32, maxVal uint16) uint8 {
	if maxVal == 0 {
		return 0
	}
	if maxVal == 255 {
		return uint8(v) // #nosec G115 - v is masked by maxVal
	}
	return uint8(v * 255 / uint32(maxVal)) // #nosec G115 - v <= maxVal
}
