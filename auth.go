// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Ryan Johnson

package vnc

import (
	"encoding/binary"
	"fmt"
	"io"
	"slices"
)

// Security types understood by the engine.
const (
	SecurityInvalid uint8 = 0
	SecurityNone    uint8 = 1
	SecurityVNCAuth uint8 = 2
)

// securityName returns a display name for a security type.
func securityName(t uint8) string {
	switch t {
	case SecurityNone:
		return "None"
	case SecurityVNCAuth:
		return "VNC Authentication"
	default:
		return fmt.Sprintf("type %d", t)
	}
}

// selectSecurity picks the security type to answer a server's list with.
// None is preferred so that no password is asked for when the server does
// not require one.
func selectSecurity(offered []uint8) (uint8, error) {
	for _, want := range []uint8{SecurityNone, SecurityVNCAuth} {
		if slices.Contains(offered, want) {
			return want, nil
		}
	}
	return SecurityInvalid, unsupportedError("selectSecurity",
		fmt.Sprintf("no supported security type offered by server: %v", offered), nil)
}

// readFailureReason reads the length-prefixed reason string that follows a
// failed security negotiation or result.
func readFailureReason(r io.Reader) string {
	validator := newInputValidator()

	var reasonLen uint32
	if err := binary.Read(r, binary.BigEndian, &reasonLen); err != nil {
		return "<failed to read error reason length>"
	}

	const maxErrorReasonLength = 64 * 1024
	if err := validator.ValidateMessageLength(reasonLen, maxErrorReasonLength); err != nil {
		return "<invalid error reason length>"
	}

	reason := make([]byte, reasonLen)
	if _, err := io.ReadFull(r, reason); err != nil {
		return "<failed to read error reason>"
	}

	text := string(reason)
	if err := validator.ValidateTextData(text, maxErrorReasonLength); err != nil {
		text = validator.SanitizeText(text)
	}
	return text
}
