// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Ryan Johnson

package vnc

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"time"
)

// FBS container constants.
const (
	FBSHeaderSize = 12
	// fbsAlign is the payload padding boundary.
	fbsAlign = 4
)

// FBSHeader holds the version strings of a recording, e.g. "001" and "000"
// for "FBS 001.000\n". They are exposed but not interpreted.
type FBSHeader struct {
	Major string
	Minor string
}

// FBSFrame is one playback unit of a recording. Ownership of Payload passes
// to the caller; the reader keeps no reference to it.
type FBSFrame struct {
	Payload []byte

	// Timestamp is the capture offset since the start of the recording,
	// with millisecond resolution.
	Timestamp time.Duration
}

// Clock abstracts wall-clock access for replay pacing.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

type systemClock struct{}

func (systemClock) Now() time.Time        { return time.Now() }
func (systemClock) Sleep(d time.Duration) { time.Sleep(d) }

// SystemClock returns the wall clock used by default.
func SystemClock() Clock {
	return systemClock{}
}

// FBSReader reads an FBS recording: a 12-byte "FBS 001.NNN\n" header followed by
// records of [u32 length][payload padded to 4 bytes][u32 timestamp ms].
//
// Frames are returned paced to the recording's timestamps: reading a frame blocks
// the calling goroutine until the frame's capture offset has elapsed since the
// reader was created. Run the reader on its own goroutine if the caller must stay
// responsive.
//
// The reader serves two granularities. ReadFrame returns whole records, while
// Read exposes the concatenated payloads as a byte stream for protocol parsing.
// ReadPrefix lets a caller take the first bytes of the next record directly; the
// following ReadFrame then returns only the rest of that record.
type FBSReader struct {
	r       io.Reader
	header  FBSHeader
	clock   Clock
	pacing  bool
	offset  time.Duration
	logger  Logger
	metrics *Metrics

	start time.Time

	// pendingSkip counts bytes of the next record already handed out by ReadPrefix.
	pendingSkip int
	// pendingLength is the length marker consumed by ReadPrefix, or -1.
	pendingLength int64

	waiting time.Duration
	frames  int

	// unread payload for Read
	cur []byte
}

// FBSOption configures an FBSReader.
type FBSOption func(*FBSReader)

// WithTimeOffset shifts the session start; a positive offset delays playback.
func WithTimeOffset(d time.Duration) FBSOption {
	return func(fr *FBSReader) {
		fr.offset = d
	}
}

// WithClock replaces the wall clock used for pacing.
func WithClock(c Clock) FBSOption {
	return func(fr *FBSReader) {
		fr.clock = c
	}
}

// WithPacing enables or disables replay pacing. Pacing is on by default.
func WithPacing(enabled bool) FBSOption {
	return func(fr *FBSReader) {
		fr.pacing = enabled
	}
}

// WithFBSLogger sets the reader's logger.
func WithFBSLogger(l Logger) FBSOption {
	return func(fr *FBSReader) {
		fr.logger = l
	}
}

// WithFBSMetrics records frame counts and pacing delays.
func WithFBSMetrics(m *Metrics) FBSOption {
	return func(fr *FBSReader) {
		fr.metrics = m
	}
}

// NewFBSReader reads and validates the recording header and captures the
// session start time.
func NewFBSReader(r io.Reader, opts ...FBSOption) (*FBSReader, error) {
	fr := &FBSReader{
		r:             r,
		clock:         systemClock{},
		pacing:        true,
		logger:        &NoOpLogger{},
		pendingLength: -1,
	}
	for _, opt := range opts {
		opt(fr)
	}

	header, err := readFBSHeader(r)
	if err != nil {
		return nil, err
	}
	fr.header = header
	fr.start = fr.clock.Now().Add(fr.offset)

	fr.logger.Debug("Opened FBS recording",
		Field{Key: "major", Value: header.Major},
		Field{Key: "minor", Value: header.Minor})

	return fr, nil
}

func readFBSHeader(r io.Reader) (FBSHeader, error) {
	var b [FBSHeaderSize]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return FBSHeader{}, formatError("NewFBSReader", "failed to read FBS file signature", err)
	}

	const literal = "FBS 001."
	for i := 0; i < len(literal); i++ {
		if b[i] != literal[i] {
			return FBSHeader{}, formatError("NewFBSReader",
				fmt.Sprintf("incorrect FBS file signature at byte %d", i), nil)
		}
	}
	for i := 8; i < 11; i++ {
		if b[i] < '0' || b[i] > '9' {
			return FBSHeader{}, formatError("NewFBSReader",
				fmt.Sprintf("incorrect FBS file signature at byte %d", i), nil)
		}
	}
	if b[11] != '\n' {
		return FBSHeader{}, formatError("NewFBSReader", "incorrect FBS file signature at byte 11", nil)
	}

	return FBSHeader{Major: string(b[4:7]), Minor: string(b[8:11])}, nil
}

// Header returns the recording's version header.
func (fr *FBSReader) Header() FBSHeader {
	return fr.header
}

// WaitingTime returns the pacing delay computed for the last frame. A negative
// value means playback was running behind the recording.
func (fr *FBSReader) WaitingTime() time.Duration {
	return fr.waiting
}

// Frames returns the number of records read so far.
func (fr *FBSReader) Frames() int {
	return fr.frames
}

// readUint32 returns io.EOF when the stream ends before a full word.
func (fr *FBSReader) readUint32() (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(fr.r, buf[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return 0, io.EOF
		}
		return 0, err
	}
	return binary.BigEndian.Uint32(buf[:]), nil
}

func (fr *FBSReader) nextLength() (int64, error) {
	if fr.pendingLength >= 0 {
		l := fr.pendingLength
		fr.pendingLength = -1
		return l, nil
	}

	l, err := fr.readUint32()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return 0, io.EOF
		}
		return 0, formatError("FBSReader.ReadFrame", "failed to read block length", err)
	}
	if l > math.MaxInt32 {
		return 0, formatError("FBSReader.ReadFrame", fmt.Sprintf("negative block length %d", int32(l)), nil)
	}
	return int64(l), nil
}

// ReadPrefix reads the next record's length marker and its first n payload
// bytes straight from the stream. The next ReadFrame returns the remainder
// of that record. A prefix longer than the record is an ErrFormat error.
func (fr *FBSReader) ReadPrefix(n int) ([]byte, error) {
	if n < 0 {
		return nil, argumentError("FBSReader.ReadPrefix", "prefix length must not be negative")
	}

	if fr.pendingLength < 0 {
		l, err := fr.nextLength()
		if err != nil {
			return nil, err
		}
		fr.pendingLength = l
	}
	if int64(fr.pendingSkip+n) > fr.pendingLength {
		return nil, formatError("FBSReader.ReadPrefix",
			fmt.Sprintf("prefix of %d bytes exceeds block length %d", fr.pendingSkip+n, fr.pendingLength), nil)
	}

	buf := make([]byte, n)
	if _, err := io.ReadFull(fr.r, buf); err != nil {
		return nil, formatError("FBSReader.ReadPrefix", "failed to read block prefix", err)
	}
	fr.pendingSkip += n

	return buf, nil
}

// ReadFrame reads the next record, blocking until its capture offset is due.
// It returns io.EOF at the end of the recording and an ErrFormat error for a
// malformed record, in which case no partial payload is returned.
func (fr *FBSReader) ReadFrame() (*FBSFrame, error) {
	length, err := fr.nextLength()
	if err != nil {
		return nil, err
	}

	size := length
	aligned := (length + fbsAlign - 1) &^ (fbsAlign - 1)
	if fr.pendingSkip > 0 {
		size -= int64(fr.pendingSkip)
		aligned -= int64(fr.pendingSkip)
		fr.pendingSkip = 0
	}
	if size < 0 {
		return nil, formatError("FBSReader.ReadFrame",
			fmt.Sprintf("invalid FBS file data: block size %d after continuation", size), nil)
	}

	buf := make([]byte, aligned)
	if _, err := io.ReadFull(fr.r, buf); err != nil {
		return nil, formatError("FBSReader.ReadFrame", "truncated block payload", err)
	}

	ts, err := fr.readUint32()
	if err != nil {
		return nil, formatError("FBSReader.ReadFrame", "failed to read block timestamp", err)
	}
	if ts > math.MaxInt32 {
		return nil, formatError("FBSReader.ReadFrame", fmt.Sprintf("invalid FBS file data: negative timestamp %d", int32(ts)), nil)
	}

	frame := &FBSFrame{
		Payload:   buf[:size:size],
		Timestamp: time.Duration(ts) * time.Millisecond,
	}
	fr.frames++
	fr.pace(frame.Timestamp)

	if fr.metrics != nil {
		fr.metrics.FBSFrames.Inc()
	}

	return frame, nil
}

// pace blocks until start+ts. A due time in the past does not delay.
func (fr *FBSReader) pace(ts time.Duration) {
	fr.waiting = fr.start.Add(ts).Sub(fr.clock.Now())
	if fr.metrics != nil && fr.waiting > 0 {
		fr.metrics.FBSPacingDelay.Observe(fr.waiting.Seconds())
	}
	if !fr.pacing || fr.waiting <= 0 {
		return
	}
	fr.clock.Sleep(fr.waiting)
}

// Read implements io.Reader over the concatenated payloads of all records.
func (fr *FBSReader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	for len(fr.cur) == 0 {
		frame, err := fr.ReadFrame()
		if err != nil {
			return 0, err
		}
		fr.cur = frame.Payload
	}
	n := copy(p, fr.cur)
	fr.cur = fr.cur[n:]
	return n, nil
}
