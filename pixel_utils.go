// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Ryan Johnson

package vnc

import (
	"encoding/binary"
	"image"
	"image/color"
	"io"
)

// pixelReader decodes wire pixels in the session's pixel format.
type pixelReader struct {
	pf        PixelFormat
	colorMap  *ColorMap
	byteOrder binary.ByteOrder
	buf       [4]byte
}

func newPixelReader(pf PixelFormat, cm *ColorMap) *pixelReader {
	var order binary.ByteOrder = binary.LittleEndian
	if pf.BigEndian {
		order = binary.BigEndian
	}
	return &pixelReader{pf: pf, colorMap: cm, byteOrder: order}
}

func (pr *pixelReader) bytesPerPixel() int {
	return int(pr.pf.BPP / 8)
}

// readColor reads one pixel.
func (pr *pixelReader) readColor(r io.Reader) (color.RGBA, error) {
	b := pr.buf[:pr.bytesPerPixel()]
	if _, err := io.ReadFull(r, b); err != nil {
		return color.RGBA{}, err
	}
	return pr.toColor(b), nil
}

func (pr *pixelReader) toColor(b []byte) color.RGBA {
	var raw uint32
	switch len(b) {
	case 1:
		raw = uint32(b[0])
	case 2:
		raw = uint32(pr.byteOrder.Uint16(b))
	case 4:
		raw = pr.byteOrder.Uint32(b)
	}

	if !pr.pf.TrueColor {
		return pr.colorMap[raw&0xff]
	}
	return color.RGBA{
		R: scaleComponent((raw>>pr.pf.RedShift)&uint32(pr.pf.RedMax), pr.pf.RedMax),
		G: scaleComponent((raw>>pr.pf.GreenShift)&uint32(pr.pf.GreenMax), pr.pf.GreenMax),
		B: scaleComponent((raw>>pr.pf.BlueShift)&uint32(pr.pf.BlueMax), pr.pf.BlueMax),
		A: 0xff,
	}
}

// readImage reads w*h pixels row by row into a new image.
func (pr *pixelReader) readImage(r io.Reader, w, h int) (*image.RGBA, error) {
	bpp := pr.bytesPerPixel()
	row := make([]byte, w*bpp)
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		if _, err := io.ReadFull(r, row); err != nil {
			return nil, err
		}
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, pr.toColor(row[x*bpp:(x+1)*bpp]))
		}
	}
	return img, nil
}

// encodePixel writes c in pixel format pf. It is the inverse of toColor for
// true-color formats and is used to build recordings and test streams.
func encodePixel(pf PixelFormat, c color.RGBA) []byte {
	scale := func(v uint8, maxVal uint16) uint32 {
		return uint32(v) * uint32(maxVal) / 255
	}
	raw := scale(c.R, pf.RedMax)<<pf.RedShift |
		scale(c.G, pf.GreenMax)<<pf.GreenShift |
		scale(c.B, pf.BlueMax)<<pf.BlueShift

	var order binary.ByteOrder = binary.LittleEndian
	if pf.BigEndian {
		order = binary.BigEndian
	}
	switch pf.BPP {
	case 8:
		return []byte{uint8(raw)} // #nosec G115 - 8-bit format
	case 16:
		b := make([]byte, 2)
		order.PutUint16(b, uint16(raw)) // #nosec G115 - 16-bit format
		return b
	default:
		b := make([]byte, 4)
		order.PutUint32(b, raw)
		return b
	}
}
