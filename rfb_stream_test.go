// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Ryan Johnson

package vnc

import (
	"bytes"
	"encoding/binary"
	"image/color"
)

// rfbStream builds server-to-client byte streams for tests.
type rfbStream struct {
	bytes.Buffer
}

func (s *rfbStream) u8(v uint8) *rfbStream {
	s.WriteByte(v)
	return s
}

func (s *rfbStream) u16(v uint16) *rfbStream {
	s.Write(binary.BigEndian.AppendUint16(nil, v))
	return s
}

func (s *rfbStream) u32(v uint32) *rfbStream {
	s.Write(binary.BigEndian.AppendUint32(nil, v))
	return s
}

func (s *rfbStream) str(v string) *rfbStream {
	s.u32(uint32(len(v))) // #nosec G115 - test data
	s.WriteString(v)
	return s
}

// serverInit writes a ServerInit message.
func (s *rfbStream) serverInit(w, h uint16, pf *PixelFormat, name string) *rfbStream {
	s.u16(w).u16(h)
	s.Write(pf.marshal())
	return s.str(name)
}

// update writes a FramebufferUpdate header for n rectangles.
func (s *rfbStream) update(n uint16) *rfbStream {
	return s.u8(msgFramebufferUpdate).u8(0).u16(n)
}

// updateBody is update without the message type byte.
func (s *rfbStream) updateBody(n uint16) *rfbStream {
	return s.u8(0).u16(n)
}

func (s *rfbStream) rect(x, y, w, h uint16, enc int32) *rfbStream {
	return s.u16(x).u16(y).u16(w).u16(h).u32(uint32(enc)) // #nosec G115 - signed wire value
}

func (s *rfbStream) pixels(pf *PixelFormat, c color.RGBA, n int) *rfbStream {
	for i := 0; i < n; i++ {
		s.Write(encodePixel(*pf, c))
	}
	return s
}

// liveHandshake writes a 3.8 greeting offering only None, followed by a
// successful result and ServerInit.
func (s *rfbStream) liveHandshake(w, h uint16, name string) *rfbStream {
	s.WriteString("RFB 003.008\n")
	s.u8(1).u8(SecurityNone).u32(0)
	return s.serverInit(w, h, PixelFormat32BitRGBA, name)
}

func newTestEngine(w, h uint16, pf *PixelFormat) *Engine {
	e := NewEngine()
	e.width, e.height = w, h
	e.pixelFormat = *pf
	return e
}

var (
	red   = color.RGBA{R: 255, A: 255}
	green = color.RGBA{G: 255, A: 255}
	blue  = color.RGBA{B: 255, A: 255}
)
