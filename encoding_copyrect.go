// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Ryan Johnson

package vnc

import (
	"encoding/binary"
	"io"
)

// CopyRectEncoding moves an area already on the client's framebuffer.
type CopyRectEncoding struct {
	SrcX uint16
	SrcY uint16
}

// Type returns the CopyRect encoding type.
func (*CopyRectEncoding) Type() int32 {
	return 1
}

// Read reads the source position and checks that the source area lies in
// the framebuffer.
func (*CopyRectEncoding) Read(e *Engine, rect *Rectangle, r io.Reader) (Encoding, error) {
	var src [4]byte
	if _, err := io.ReadFull(r, src[:]); err != nil {
		return nil, encodingError("CopyRectEncoding.Read", "failed to read source position", err)
	}
	enc := &CopyRectEncoding{
		SrcX: binary.BigEndian.Uint16(src[0:]),
		SrcY: binary.BigEndian.Uint16(src[2:]),
	}

	w, h := e.frameBufferSize()
	if err := newInputValidator().ValidateRectangle(enc.SrcX, enc.SrcY, rect.Width, rect.Height, w, h); err != nil {
		return nil, encodingError("CopyRectEncoding.Read", "source rectangle outside framebuffer", err)
	}
	return enc, nil
}
