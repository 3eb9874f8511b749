// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Ryan Johnson

package vnc

import (
	"context"
	"encoding/binary"
	"io"
	"net"
	"slices"
	"sync/atomic"
)

// playbackConn replays the server side of a recording. Client messages are
// discarded.
type playbackConn struct {
	fr     *FBSReader
	src    io.Reader
	closed atomic.Bool
}

func newPlaybackConn(fr *FBSReader, src io.Reader) *playbackConn {
	return &playbackConn{fr: fr, src: src}
}

func (pc *playbackConn) Read(p []byte) (int, error) {
	if pc.closed.Load() {
		return 0, net.ErrClosed
	}
	return pc.fr.Read(p)
}

func (pc *playbackConn) Write(p []byte) (int, error) {
	if pc.closed.Load() {
		return 0, net.ErrClosed
	}
	return len(p), nil
}

// Close closes the source if it is closable.
func (pc *playbackConn) Close() error {
	if !pc.closed.CompareAndSwap(false, true) {
		return nil
	}
	if c, ok := pc.src.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// streamConn adapts a caller-supplied stream. Writes reach the stream only
// when it is an io.Writer.
type streamConn struct {
	r      io.Reader
	closed atomic.Bool
}

func newStreamConn(r io.Reader) io.ReadWriteCloser {
	if rwc, ok := r.(io.ReadWriteCloser); ok {
		return rwc
	}
	return &streamConn{r: r}
}

func (sc *streamConn) Read(p []byte) (int, error) {
	if sc.closed.Load() {
		return 0, net.ErrClosed
	}
	return sc.r.Read(p)
}

func (sc *streamConn) Write(p []byte) (int, error) {
	if sc.closed.Load() {
		return 0, net.ErrClosed
	}
	if w, ok := sc.r.(io.Writer); ok {
		return w.Write(p)
	}
	return len(p), nil
}

func (sc *streamConn) Close() error {
	if !sc.closed.CompareAndSwap(false, true) {
		return nil
	}
	if c, ok := sc.r.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// recordedSecurityChoice infers the type the recording client picked, since
// the choice itself went client to server and was not captured.
func (e *Engine) recordedSecurityChoice(offered []uint8) (uint8, error) {
	if len(offered) == 1 {
		return offered[0], nil
	}
	if !slices.Contains(offered, SecurityVNCAuth) {
		return SecurityNone, nil
	}
	if !slices.Contains(offered, SecurityNone) {
		return SecurityVNCAuth, nil
	}
	if e.minor >= 8 {
		// A None session continues with a zero SecurityResult; VNC
		// authentication continues with a random challenge.
		peek, err := e.r.Peek(4)
		if err != nil {
			return 0, ioError("handshake", "failed to read recorded security result", err)
		}
		if binary.BigEndian.Uint32(peek) != 0 {
			return SecurityVNCAuth, nil
		}
		return SecurityNone, nil
	}

	// 3.7 sends no result for None, so ServerInit follows directly.
	peek, err := e.r.Peek(serverInitPrefix)
	if err != nil {
		return 0, ioError("handshake", "failed to read recorded server init", err)
	}
	if looksLikeServerInit(peek) {
		return SecurityNone, nil
	}
	return SecurityVNCAuth, nil
}

// serverInitPrefix covers the framebuffer size and pixel format of a
// ServerInit message.
const serverInitPrefix = 20

// looksLikeServerInit reports whether b starts with a plausible ServerInit:
// a non-empty framebuffer and a pixel format with a legal bit depth, boolean
// flags and zero padding.
func looksLikeServerInit(b []byte) bool {
	if len(b) < serverInitPrefix {
		return false
	}
	if binary.BigEndian.Uint16(b[0:]) == 0 || binary.BigEndian.Uint16(b[2:]) == 0 {
		return false
	}
	switch bpp := b[4]; bpp {
	case 8, 16, 32:
		if b[5] == 0 || b[5] > bpp {
			return false
		}
	default:
		return false
	}
	return b[6] <= 1 && b[7] <= 1 && b[17] == 0 && b[18] == 0 && b[19] == 0
}

// skipRecordedAuth consumes the recorded challenge and result.
func (e *Engine) skipRecordedAuth(ctx context.Context) error {
	e.challengePending = false
	challenge := make([]byte, VNCChallengeSize)
	if err := e.readFull(ctx, challenge); err != nil {
		return ioError("playback", "failed to read recorded challenge", err)
	}
	return e.readSecurityResult(ctx)
}
