// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Ryan Johnson

package vnc

import (
	"encoding/binary"
	"fmt"
	"io"
)

// PixelFormat describes how pixel values are laid out on the wire
// (RFC 6143 Section 7.4).
type PixelFormat struct {
	BPP        uint8
	Depth      uint8
	BigEndian  bool
	TrueColor  bool
	RedMax     uint16
	GreenMax   uint16
	BlueMax    uint16
	RedShift   uint8
	GreenShift uint8
	BlueShift  uint8
}

// Common pixel formats.
var (
	// PixelFormat32BitRGBA is 8 bits per channel in a little-endian 32-bit word.
	// Sessions request it unless configured otherwise.
	PixelFormat32BitRGBA = &PixelFormat{
		BPP:        32,
		Depth:      24,
		TrueColor:  true,
		RedMax:     255,
		GreenMax:   255,
		BlueMax:    255,
		RedShift:   16,
		GreenShift: 8,
		BlueShift:  0,
	}

	PixelFormat16BitRGB565 = &PixelFormat{
		BPP:        16,
		Depth:      16,
		TrueColor:  true,
		RedMax:     31,
		GreenMax:   63,
		BlueMax:    31,
		RedShift:   11,
		GreenShift: 5,
		BlueShift:  0,
	}

	PixelFormat8BitIndexed = &PixelFormat{
		BPP:   8,
		Depth: 8,
	}
)

func (pf PixelFormat) String() string {
	if !pf.TrueColor {
		return fmt.Sprintf("%dbpp indexed", pf.BPP)
	}
	return fmt.Sprintf("%dbpp depth %d rgb max %d/%d/%d shift %d/%d/%d",
		pf.BPP, pf.Depth, pf.RedMax, pf.GreenMax, pf.BlueMax, pf.RedShift, pf.GreenShift, pf.BlueShift)
}

// readPixelFormat reads the 16-byte wire form, including its 3 padding bytes.
func readPixelFormat(r io.Reader, pf *PixelFormat) error {
	var raw [16]byte
	if _, err := io.ReadFull(r, raw[:]); err != nil {
		return networkError("readPixelFormat", "failed to read pixel format data", err)
	}
	*pf = PixelFormat{
		BPP:       raw[0],
		Depth:     raw[1],
		BigEndian: raw[2] != 0,
		TrueColor: raw[3] != 0,
	}
	if pf.TrueColor {
		pf.RedMax = binary.BigEndian.Uint16(raw[4:])
		pf.GreenMax = binary.BigEndian.Uint16(raw[6:])
		pf.BlueMax = binary.BigEndian.Uint16(raw[8:])
		pf.RedShift = raw[10]
		pf.GreenShift = raw[11]
		pf.BlueShift = raw[12]
	}
	return nil
}

// marshal returns the 16-byte wire form.
func (pf *PixelFormat) marshal() []byte {
	raw := make([]byte, 16)
	raw[0] = pf.BPP
	raw[1] = pf.Depth
	if pf.BigEndian {
		raw[2] = 1
	}
	if pf.TrueColor {
		raw[3] = 1
		binary.BigEndian.PutUint16(raw[4:], pf.RedMax)
		binary.BigEndian.PutUint16(raw[6:], pf.GreenMax)
		binary.BigEndian.PutUint16(raw[8:], pf.BlueMax)
		raw[10] = pf.RedShift
		raw[11] = pf.GreenShift
		raw[12] = pf.BlueShift
	}
	return raw
}
