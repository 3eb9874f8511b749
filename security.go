// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Ryan Johnson

package vnc

import (
	"crypto/des" // #nosec G502 - DES is required by VNC authentication (RFC 6143)
	"fmt"
	"math/bits"
)

// VNC authentication uses single DES keyed with the password. It protects
// neither the password nor the session against an active attacker; tunnel
// connections that leave a trusted network.

// VNC security constants.
const (
	VNCChallengeSize     = 16
	DESKeySize           = 8
	VNCMaxPasswordLength = 8
)

// encryptChallenge computes the VNC authentication response. The password
// is truncated or zero-padded to 8 bytes and each key byte is bit-reversed,
// as the reference implementation does.
func encryptChallenge(password string, challenge []byte) ([]byte, error) {
	if len(challenge) != VNCChallengeSize {
		return nil, validationError("encryptChallenge",
			fmt.Sprintf("challenge must be exactly %d bytes, got %d", VNCChallengeSize, len(challenge)), nil)
	}

	key := make([]byte, DESKeySize)
	defer clearBytes(key)
	for i := 0; i < DESKeySize && i < len(password); i++ {
		key[i] = bits.Reverse8(password[i])
	}

	block, err := des.NewCipher(key) // #nosec G405 - DES is required by VNC authentication
	if err != nil {
		return nil, authenticationError("encryptChallenge", "failed to create DES cipher", err)
	}

	response := make([]byte, VNCChallengeSize)
	for off := 0; off < VNCChallengeSize; off += DESKeySize {
		block.Encrypt(response[off:off+DESKeySize], challenge[off:off+DESKeySize])
	}
	return response, nil
}

// clearBytes zeroes key material once it is no longer needed.
func clearBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
