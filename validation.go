// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Ryan Johnson

package vnc

import (
	"fmt"
	"math"
	"math/bits"
	"unicode"
	"unicode/utf8"
)

// InputValidator checks values read from the server, or about to be sent
// to it, against protocol limits.
type InputValidator struct{}

func newInputValidator() *InputValidator {
	return &InputValidator{}
}

// ValidateProtocolVersion checks the 12-byte "RFB xxx.yyy\n" greeting.
func (iv *InputValidator) ValidateProtocolVersion(version string) error {
	if len(version) != 12 {
		return validationError("InputValidator.ValidateProtocolVersion",
			fmt.Sprintf("protocol version must be exactly 12 characters, got %d", len(version)), nil)
	}
	if version[:4] != "RFB " {
		return validationError("InputValidator.ValidateProtocolVersion",
			"protocol version must start with 'RFB '", nil)
	}
	if version[11] != '\n' {
		return validationError("InputValidator.ValidateProtocolVersion",
			"protocol version must end with newline", nil)
	}
	if version[7] != '.' {
		return validationError("InputValidator.ValidateProtocolVersion",
			"protocol version format must be XXX.YYY", nil)
	}
	for i := 4; i < 11; i++ {
		if i == 7 {
			continue
		}
		if version[i] < '0' || version[i] > '9' {
			return validationError("InputValidator.ValidateProtocolVersion",
				"protocol version must contain only digits and dot", nil)
		}
	}
	return nil
}

// ValidateFramebufferDimensions rejects empty or implausibly large desktops.
func (iv *InputValidator) ValidateFramebufferDimensions(width, height uint16) error {
	if width == 0 || height == 0 {
		return validationError("InputValidator.ValidateFramebufferDimensions",
			"framebuffer dimensions cannot be zero", nil)
	}
	const maxDimension = 32768
	if width > maxDimension || height > maxDimension {
		return validationError("InputValidator.ValidateFramebufferDimensions",
			fmt.Sprintf("framebuffer dimensions too large: %dx%d (max %d)", width, height, maxDimension), nil)
	}
	return nil
}

// ValidateRectangle checks that a rectangle lies within a w x h area.
func (iv *InputValidator) ValidateRectangle(x, y, width, height, fbWidth, fbHeight uint16) error {
	if x > math.MaxUint16-width || y > math.MaxUint16-height {
		return validationError("InputValidator.ValidateRectangle",
			"rectangle coordinates would cause integer overflow", nil)
	}
	if x+width > fbWidth || y+height > fbHeight {
		return validationError("InputValidator.ValidateRectangle",
			fmt.Sprintf("rectangle (%d,%d,%d,%d) exceeds framebuffer bounds (%d,%d)",
				x, y, width, height, fbWidth, fbHeight), nil)
	}
	return nil
}

// ValidatePixelFormat rejects formats the pixel decoder cannot handle.
func (iv *InputValidator) ValidatePixelFormat(pf *PixelFormat) error {
	if pf == nil {
		return validationError("InputValidator.ValidatePixelFormat", "pixel format cannot be nil", nil)
	}
	if pf.BPP != 8 && pf.BPP != 16 && pf.BPP != 32 {
		return validationError("InputValidator.ValidatePixelFormat",
			fmt.Sprintf("invalid bits per pixel: %d (must be 8, 16, or 32)", pf.BPP), nil)
	}
	if pf.Depth == 0 || pf.Depth > pf.BPP {
		return validationError("InputValidator.ValidatePixelFormat",
			fmt.Sprintf("invalid depth: %d (must be 1-%d for %d BPP)", pf.Depth, pf.BPP, pf.BPP), nil)
	}
	if !pf.TrueColor {
		return nil
	}
	if pf.RedMax == 0 || pf.GreenMax == 0 || pf.BlueMax == 0 {
		return validationError("InputValidator.ValidatePixelFormat",
			"color component maximums cannot be zero in true color format", nil)
	}
	if pf.RedShift >= pf.BPP || pf.GreenShift >= pf.BPP || pf.BlueShift >= pf.BPP {
		return validationError("InputValidator.ValidatePixelFormat",
			fmt.Sprintf("color shifts too large for %d BPP format", pf.BPP), nil)
	}
	total := bits.Len16(pf.RedMax) + bits.Len16(pf.GreenMax) + bits.Len16(pf.BlueMax)
	if total > int(pf.Depth) {
		return validationError("InputValidator.ValidatePixelFormat",
			"color component bits exceed pixel depth", nil)
	}
	return nil
}

// ValidateTextData checks clipboard and name text for length and control
// characters.
func (iv *InputValidator) ValidateTextData(text string, maxLength int) error {
	if len(text) > maxLength {
		return validationError("InputValidator.ValidateTextData",
			fmt.Sprintf("text length %d exceeds maximum %d", len(text), maxLength), nil)
	}
	if !utf8.ValidString(text) {
		return validationError("InputValidator.ValidateTextData",
			"text contains invalid UTF-8 sequences", nil)
	}
	for i, char := range text {
		if char < 32 && char != '\t' && char != '\n' && char != '\r' {
			return validationError("InputValidator.ValidateTextData",
				fmt.Sprintf("text contains invalid control character at position %d", i), nil)
		}
	}
	return nil
}

// ValidateMessageLength bounds a length field read from the server.
func (iv *InputValidator) ValidateMessageLength(length uint32, maxLength uint32) error {
	if length == 0 {
		return validationError("InputValidator.ValidateMessageLength",
			"message length cannot be zero", nil)
	}
	if length > maxLength {
		return validationError("InputValidator.ValidateMessageLength",
			fmt.Sprintf("message length %d exceeds maximum %d", length, maxLength), nil)
	}
	return nil
}

// ValidateColorMapEntries checks a SetColorMapEntries range.
func (iv *InputValidator) ValidateColorMapEntries(firstColor, numColors, maxColors uint16) error {
	if firstColor > math.MaxUint16-numColors {
		return validationError("InputValidator.ValidateColorMapEntries",
			"color map range would cause integer overflow", nil)
	}
	if firstColor+numColors > maxColors {
		return validationError("InputValidator.ValidateColorMapEntries",
			fmt.Sprintf("color map range starting at %d with %d entries exceeds maximum colors %d",
				firstColor, numColors, maxColors), nil)
	}
	return nil
}

// ValidateKeySymbol rejects keysyms outside the X11 and Unicode ranges.
func (iv *InputValidator) ValidateKeySymbol(keysym uint32) error {
	if keysym == 0 {
		return validationError("InputValidator.ValidateKeySymbol", "keysym cannot be zero", nil)
	}
	if keysym > 0x1FFFFFF {
		return validationError("InputValidator.ValidateKeySymbol",
			fmt.Sprintf("keysym value too large: 0x%X", keysym), nil)
	}
	return nil
}

// SanitizeText replaces control and unprintable characters.
func (iv *InputValidator) SanitizeText(text string) string {
	if text == "" {
		return text
	}
	sanitized := make([]rune, 0, len(text))
	for _, r := range text {
		switch {
		case r == '\t' || r == '\n' || r == '\r':
			sanitized = append(sanitized, r)
		case r < 32:
			sanitized = append(sanitized, ' ')
		case !unicode.IsPrint(r):
			sanitized = append(sanitized, '\uFFFD')
		default:
			sanitized = append(sanitized, r)
		}
	}
	return string(sanitized)
}
