// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Ryan Johnson

package vnc

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"sync"
	"time"
)

// FBSVersion is the header written by FBSWriter.
const FBSVersion = "FBS 001.000\n"

// FBSWriter produces FBS recordings readable by FBSReader.
type FBSWriter struct {
	mu     sync.Mutex
	w      io.Writer
	frames int
}

// NewFBSWriter writes the recording header to w.
func NewFBSWriter(w io.Writer) (*FBSWriter, error) {
	if _, err := io.WriteString(w, FBSVersion); err != nil {
		return nil, networkError("NewFBSWriter", "failed to write FBS header", err)
	}
	return &FBSWriter{w: w}, nil
}

// WriteFrame appends one record. The timestamp is truncated to milliseconds
// and must fit the format's signed 32-bit range.
func (fw *FBSWriter) WriteFrame(payload []byte, ts time.Duration) error {
	ms := ts.Milliseconds()
	if ms < 0 || ms > 1<<31-1 {
		return argumentError("FBSWriter.WriteFrame", fmt.Sprintf("timestamp out of range: %v", ts))
	}
	if len(payload) > 1<<31-1 {
		return argumentError("FBSWriter.WriteFrame", "payload too large")
	}

	aligned := (len(payload) + fbsAlign - 1) &^ (fbsAlign - 1)
	buf := make([]byte, 4+aligned+4)
	binary.BigEndian.PutUint32(buf, uint32(len(payload))) // #nosec G115 - bounded above
	copy(buf[4:], payload)
	binary.BigEndian.PutUint32(buf[4+aligned:], uint32(ms)) // #nosec G115 - bounded above

	fw.mu.Lock()
	defer fw.mu.Unlock()
	if _, err := fw.w.Write(buf); err != nil {
		return networkError("FBSWriter.WriteFrame", "failed to write FBS record", err)
	}
	fw.frames++
	return nil
}

// Frames returns the number of records written.
func (fw *FBSWriter) Frames() int {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	return fw.frames
}

// recordingConn tees everything read from the server into an FBS recording,
// stamped with the time elapsed since the connection was wrapped.
type recordingConn struct {
	net.Conn
	fw     *FBSWriter
	start  time.Time
	logger Logger

	once sync.Once
}

func newRecordingConn(c net.Conn, fw *FBSWriter, logger Logger) *recordingConn {
	return &recordingConn{Conn: c, fw: fw, start: time.Now(), logger: logger}
}

func (rc *recordingConn) Read(p []byte) (int, error) {
	n, err := rc.Conn.Read(p)
	if n > 0 {
		if werr := rc.fw.WriteFrame(p[:n], time.Since(rc.start)); werr != nil {
			// The live session outlives a broken recording.
			rc.once.Do(func() {
				rc.logger.Warn("Recording stopped", Field{Key: "error", Value: werr})
			})
		}
	}
	return n, err
}
