// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Ryan Johnson

package vnc

import (
	"encoding/binary"
	"fmt"
	"image/color"
	"io"

	"golang.org/x/text/encoding/charmap"
)

// ServerMessage is a message sent by the server after initialization
// (RFC 6143 Section 7.6). Read parses the body following the type byte.
type ServerMessage interface {
	Type() uint8
	Read(e *Engine, r io.Reader) (ServerMessage, error)
}

// Server message type identifiers.
const (
	msgFramebufferUpdate  uint8 = 0
	msgSetColorMapEntries uint8 = 1
	msgBell               uint8 = 2
	msgServerCutText      uint8 = 3
)

// FramebufferUpdateMessage holds the decoded rectangles of one update.
type FramebufferUpdateMessage struct {
	Rectangles []Rectangle
}

// Type returns the FramebufferUpdate message type.
func (*FramebufferUpdateMessage) Type() uint8 {
	return msgFramebufferUpdate
}

// Read decodes every rectangle. Pseudo-encodings are applied to the engine
// as they are read so that later rectangles see the new state.
func (*FramebufferUpdateMessage) Read(e *Engine, r io.Reader) (ServerMessage, error) {
	validator := newInputValidator()

	var header [3]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, networkError("FramebufferUpdateMessage.Read", "failed to read update header", err)
	}
	numRects := binary.BigEndian.Uint16(header[1:])
	if numRects > MaxRectanglesPerUpdate {
		return nil, protocolError("FramebufferUpdateMessage.Read",
			fmt.Sprintf("too many rectangles in update: %d (max %d)", numRects, MaxRectanglesPerUpdate), nil)
	}

	encMap := make(map[int32]Encoding)
	for _, enc := range e.encodings() {
		encMap[enc.Type()] = enc
	}
	// Raw is always allowed.
	encMap[0] = new(RawEncoding)

	rects := make([]Rectangle, numRects)
	var rh [12]byte
	for i := range rects {
		rect := &rects[i]
		if _, err := io.ReadFull(r, rh[:]); err != nil {
			return nil, networkError("FramebufferUpdateMessage.Read", "failed to read rectangle header", err)
		}
		rect.X = binary.BigEndian.Uint16(rh[0:])
		rect.Y = binary.BigEndian.Uint16(rh[2:])
		rect.Width = binary.BigEndian.Uint16(rh[4:])
		rect.Height = binary.BigEndian.Uint16(rh[6:])
		encodingType := int32(binary.BigEndian.Uint32(rh[8:])) // #nosec G115 - wire value is a signed 32-bit type

		if encodingType >= 0 {
			w, h := e.frameBufferSize()
			if err := validator.ValidateRectangle(rect.X, rect.Y, rect.Width, rect.Height, w, h); err != nil {
				return nil, protocolError("FramebufferUpdateMessage.Read",
					fmt.Sprintf("invalid rectangle %d", i), err)
			}
		}

		enc, ok := encMap[encodingType]
		if !ok {
			return nil, unsupportedError("FramebufferUpdateMessage.Read",
				fmt.Sprintf("unsupported encoding type: %d", encodingType), nil)
		}

		var err error
		rect.Enc, err = enc.Read(e, rect, r)
		if err != nil {
			return nil, encodingError("FramebufferUpdateMessage.Read", "failed to read rectangle encoding data", err)
		}

		if pseudo, isPseudo := rect.Enc.(PseudoEncoding); isPseudo {
			if err := pseudo.Handle(e, rect); err != nil {
				e.logger.Error("Failed to handle pseudo-encoding",
					Field{Key: "encoding_type", Value: encodingType},
					Field{Key: "error", Value: err})
			}
		}
	}

	return &FramebufferUpdateMessage{Rectangles: rects}, nil
}

// SetColorMapEntriesMessage updates part of the palette.
type SetColorMapEntriesMessage struct {
	FirstColor uint16
	Colors     []color.RGBA
}

// Type returns the SetColorMapEntries message type.
func (*SetColorMapEntriesMessage) Type() uint8 {
	return msgSetColorMapEntries
}

// Read decodes the entries and stores them in the engine's color map.
func (*SetColorMapEntriesMessage) Read(e *Engine, r io.Reader) (ServerMessage, error) {
	var header [5]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, networkError("SetColorMapEntriesMessage.Read", "failed to read header", err)
	}
	result := SetColorMapEntriesMessage{FirstColor: binary.BigEndian.Uint16(header[1:])}
	numColors := binary.BigEndian.Uint16(header[3:])

	if err := newInputValidator().ValidateColorMapEntries(result.FirstColor, numColors, ColorMapSize); err != nil {
		return nil, protocolError("SetColorMapEntriesMessage.Read", "invalid color map entries", err)
	}

	result.Colors = make([]color.RGBA, numColors)
	var entry [6]byte
	for i := range result.Colors {
		if _, err := io.ReadFull(r, entry[:]); err != nil {
			return nil, networkError("SetColorMapEntriesMessage.Read", "failed to read color data", err)
		}
		result.Colors[i] = rgb16(
			binary.BigEndian.Uint16(entry[0:]),
			binary.BigEndian.Uint16(entry[2:]),
			binary.BigEndian.Uint16(entry[4:]))
	}

	if err := e.colorMap.setRange(result.FirstColor, result.Colors); err != nil {
		return nil, protocolError("SetColorMapEntriesMessage.Read", "invalid color map entries", err)
	}
	return &result, nil
}

// BellMessage asks the client to ring its bell.
type BellMessage struct{}

// Type returns the Bell message type.
func (*BellMessage) Type() uint8 {
	return msgBell
}

// Read has nothing to read.
func (*BellMessage) Read(*Engine, io.Reader) (ServerMessage, error) {
	return new(BellMessage), nil
}

// ServerCutTextMessage carries the server's clipboard text.
type ServerCutTextMessage struct {
	Text string
}

// Type returns the ServerCutText message type.
func (*ServerCutTextMessage) Type() uint8 {
	return msgServerCutText
}

// Read decodes the Latin-1 text.
func (*ServerCutTextMessage) Read(e *Engine, r io.Reader) (ServerMessage, error) {
	var header [7]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, networkError("ServerCutTextMessage.Read", "failed to read header", err)
	}
	textLength := binary.BigEndian.Uint32(header[3:])
	if textLength > MaxServerClipboardLength {
		return nil, protocolError("ServerCutTextMessage.Read",
			fmt.Sprintf("clipboard text too long: %d", textLength), nil)
	}

	raw := make([]byte, textLength)
	if _, err := io.ReadFull(r, raw); err != nil {
		return nil, networkError("ServerCutTextMessage.Read", "failed to read text data", err)
	}

	text, err := charmap.ISO8859_1.NewDecoder().Bytes(raw)
	if err != nil {
		return nil, encodingError("ServerCutTextMessage.Read", "failed to decode clipboard text", err)
	}
	return &ServerCutTextMessage{Text: string(text)}, nil
}
