// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Ryan Johnson

package vnc

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/text/encoding/charmap"
)

// Protocol limits.
const (
	MaxClipboardLength       = 1024 * 1024
	Latin1MaxCodePoint       = 255
	MaxRectanglesPerUpdate   = 10000
	MaxServerClipboardLength = 10 * 1024 * 1024
	maxDesktopNameLength     = 1024 * 1024
)

// Engine implements Protocol over RFB 3.3, 3.7 and 3.8, either against a
// live server or replaying an FBS recording.
//
// An Engine serves a single connection. Client messages may be sent from
// any goroutine once Initialize has returned.
type Engine struct {
	logger         Logger
	metrics        *Metrics
	transport      TransportConfig
	shared         bool
	encs           []Encoding
	requestedPF    *PixelFormat
	fbsOpts        []FBSOption
	recorder       *FBSWriter
	connectTimeout time.Duration
	writeTimeout   time.Duration

	conn     io.ReadWriteCloser
	r        *bufio.Reader
	host     string
	playback bool
	minor    uint

	challengePending bool

	mu          sync.RWMutex
	width       uint16
	height      uint16
	info        FramebufferInfo
	pixelFormat PixelFormat
	colorMap    ColorMap

	hmu     sync.RWMutex
	handler ProtocolEvents

	wmu       sync.Mutex
	closed    atomic.Bool
	closeOnce sync.Once
	pumpDone  chan struct{}
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithEngineLogger sets the engine's logger.
func WithEngineLogger(logger Logger) EngineOption {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithEngineMetrics records update requests.
func WithEngineMetrics(m *Metrics) EngineOption {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithShared sets the ClientInit shared flag. Sessions are shared by default;
// an exclusive session makes the server drop other clients.
func WithShared(shared bool) EngineOption {
	return func(e *Engine) {
		e.shared = shared
	}
}

// WithEncodings replaces the advertised encodings.
func WithEncodings(encs ...Encoding) EngineOption {
	return func(e *Engine) {
		e.encs = encs
	}
}

// WithPixelFormat sets the pixel format requested from live servers. Nil
// keeps the server's native format.
func WithPixelFormat(pf *PixelFormat) EngineOption {
	return func(e *Engine) {
		e.requestedPF = pf
	}
}

// WithTransport configures dialing.
func WithTransport(cfg TransportConfig) EngineOption {
	return func(e *Engine) {
		e.transport = cfg
	}
}

// WithRecording records everything the server sends to fw.
func WithRecording(fw *FBSWriter) EngineOption {
	return func(e *Engine) {
		e.recorder = fw
	}
}

// WithPlaybackOptions passes options to the FBS reader used for playback.
func WithPlaybackOptions(opts ...FBSOption) EngineOption {
	return func(e *Engine) {
		e.fbsOpts = append(e.fbsOpts, opts...)
	}
}

// WithConnectTimeout bounds the handshake performed by Connect.
func WithConnectTimeout(d time.Duration) EngineOption {
	return func(e *Engine) {
		e.connectTimeout = d
	}
}

// WithWriteTimeout bounds each client message write on network connections.
func WithWriteTimeout(d time.Duration) EngineOption {
	return func(e *Engine) {
		e.writeTimeout = d
	}
}

// NewEngine returns an unconnected engine.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{
		logger:      &NoOpLogger{},
		shared:      true,
		encs:        DefaultEncodings(),
		requestedPF: PixelFormat32BitRGBA,
		colorMap:    newGrayColorMap(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

var _ Protocol = (*Engine)(nil)

// Connect dials t and runs the version and security handshake.
func (e *Engine) Connect(ctx context.Context, t Target) (bool, error) {
	if err := t.Validate(); err != nil {
		return false, err
	}
	if e.conn != nil {
		return false, invalidStateError("Engine.Connect", "engine already connected")
	}
	if e.connectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.connectTimeout)
		defer cancel()
	}

	e.logger.Info("Connecting", Field{Key: "address", Value: t.Address()})
	conn, err := dialTarget(ctx, t, e.transport)
	if err != nil {
		return false, err
	}
	if e.recorder != nil {
		conn = newRecordingConn(conn, e.recorder, e.logger)
	}
	e.attach(conn, t.Address(), false)

	pending, err := e.negotiate(ctx)
	if err != nil {
		e.closeConn()
		return false, err
	}
	return pending, nil
}

// ConnectStream negotiates over r. A playback stream is read through an
// FBSReader and client messages are discarded; otherwise r must also be an
// io.Writer for client messages to reach the server.
func (e *Engine) ConnectStream(ctx context.Context, r io.Reader, playback bool) error {
	if r == nil {
		return argumentError("Engine.ConnectStream", "stream must not be nil")
	}
	if e.conn != nil {
		return invalidStateError("Engine.ConnectStream", "engine already connected")
	}

	var conn io.ReadWriteCloser
	if playback {
		opts := append([]FBSOption{WithFBSLogger(e.logger), WithFBSMetrics(e.metrics)}, e.fbsOpts...)
		fr, err := NewFBSReader(r, opts...)
		if err != nil {
			return err
		}
		conn = newPlaybackConn(fr, r)
	} else {
		conn = newStreamConn(r)
	}
	e.attach(conn, "", playback)

	pending, err := e.negotiate(ctx)
	if err == nil && pending {
		if playback {
			err = e.skipRecordedAuth(ctx)
		} else {
			err = unsupportedError("Engine.ConnectStream", "password-protected streams are not supported", nil)
		}
	}
	if err != nil {
		e.closeConn()
		return err
	}
	return nil
}

func (e *Engine) attach(conn io.ReadWriteCloser, host string, playback bool) {
	e.conn = conn
	e.r = bufio.NewReaderSize(conn, 64*1024)
	e.host = host
	e.playback = playback
	e.pumpDone = make(chan struct{})
}

const pvLen = 12

func parseProtocolVersion(pv []byte) (uint, uint, error) {
	var major, minor uint
	if len(pv) < pvLen {
		return 0, 0, protocolError("parseProtocolVersion",
			fmt.Sprintf("protocol version message too short (%v < %v)", len(pv), pvLen), nil)
	}
	l, err := fmt.Sscanf(string(pv), "RFB %d.%d\n", &major, &minor)
	if l != 2 {
		return 0, 0, protocolError("parseProtocolVersion", "invalid protocol version format", nil)
	}
	if err != nil {
		return 0, 0, protocolError("parseProtocolVersion", "failed to parse protocol version", err)
	}
	return major, minor, nil
}

// negotiate runs the ProtocolVersion and security-type exchange (RFC 6143
// Sections 7.1.1 and 7.1.2). It stops before the VNC authentication
// challenge and reports whether one is pending.
func (e *Engine) negotiate(ctx context.Context) (bool, error) {
	validator := newInputValidator()

	var pv [pvLen]byte
	if err := e.readFull(ctx, pv[:]); err != nil {
		return false, ioError("handshake", "failed to read protocol version from server", err)
	}
	if err := validator.ValidateProtocolVersion(string(pv[:])); err != nil {
		return false, protocolError("handshake", "server sent invalid protocol version format", err)
	}
	major, minor, err := parseProtocolVersion(pv[:])
	if err != nil {
		return false, err
	}
	if major < 3 {
		return false, unsupportedError("handshake", fmt.Sprintf("unsupported major version, less than 3: %d", major), nil)
	}

	// Anything between 3.3 and 3.7 is treated as 3.3; newer minors as 3.8.
	switch {
	case major > 3 || minor >= 8:
		e.minor = 8
	case minor == 7:
		e.minor = 7
	default:
		e.minor = 3
	}
	e.logger.Info("Received protocol version",
		Field{Key: "server", Value: fmt.Sprintf("%d.%d", major, minor)},
		Field{Key: "using", Value: fmt.Sprintf("3.%d", e.minor)})

	if err := e.writeMsg(ctx, []byte(fmt.Sprintf("RFB 003.%03d\n", e.minor))); err != nil {
		return false, ioError("handshake", "failed to send protocol version response", err)
	}

	selected, err := e.readSecurityType(ctx)
	if err != nil {
		return false, err
	}
	e.logger.Info("Selected security type",
		Field{Key: "type", Value: selected},
		Field{Key: "method", Value: securityName(selected)})

	if selected == SecurityVNCAuth {
		e.challengePending = true
		return true, nil
	}
	if e.minor >= 8 {
		if err := e.readSecurityResult(ctx); err != nil {
			return false, err
		}
	}
	return false, nil
}

func (e *Engine) readSecurityType(ctx context.Context) (uint8, error) {
	if e.minor == 3 {
		// 3.3 servers dictate the type.
		var word [4]byte
		if err := e.readFull(ctx, word[:]); err != nil {
			return 0, ioError("handshake", "failed to read security type", err)
		}
		t := binary.BigEndian.Uint32(word[:])
		switch t {
		case uint32(SecurityInvalid):
			return 0, authenticationError("handshake", "connection failed: "+readFailureReason(e.r), nil)
		case uint32(SecurityNone), uint32(SecurityVNCAuth):
			return uint8(t), nil
		}
		return 0, unsupportedError("handshake", fmt.Sprintf("unsupported security type %d", t), nil)
	}

	var count [1]byte
	if err := e.readFull(ctx, count[:]); err != nil {
		return 0, ioError("handshake", "failed to read number of security types", err)
	}
	if count[0] == 0 {
		return 0, authenticationError("handshake", "no security types available: "+readFailureReason(e.r), nil)
	}
	offered := make([]uint8, count[0])
	if err := e.readFull(ctx, offered); err != nil {
		return 0, ioError("handshake", "failed to read security types", err)
	}

	var selected uint8
	var err error
	if e.playback {
		selected, err = e.recordedSecurityChoice(offered)
	} else {
		selected, err = selectSecurity(offered)
	}
	if err != nil {
		return 0, err
	}
	if err := e.writeMsg(ctx, []byte{selected}); err != nil {
		return 0, ioError("handshake", "failed to send selected security type", err)
	}
	return selected, nil
}

func (e *Engine) readSecurityResult(ctx context.Context) error {
	var word [4]byte
	if err := e.readFull(ctx, word[:]); err != nil {
		return ioError("handshake", "failed to read security result", err)
	}
	if binary.BigEndian.Uint32(word[:]) == 0 {
		return nil
	}
	reason := "authentication failed"
	if e.minor >= 8 {
		reason = readFailureReason(e.r)
	}
	return authenticationError("handshake", "security handshake failed: "+reason, nil)
}

// Authenticate answers the pending VNC authentication challenge.
func (e *Engine) Authenticate(ctx context.Context, password string) (bool, error) {
	if !e.challengePending {
		return false, invalidOperationError("Engine.Authenticate", "no authentication challenge is pending")
	}
	e.challengePending = false

	challenge := make([]byte, VNCChallengeSize)
	if err := e.readFull(ctx, challenge); err != nil {
		return false, ioError("Engine.Authenticate", "failed to read authentication challenge", err)
	}
	if len(password) > VNCMaxPasswordLength {
		e.logger.Warn("Password exceeds VNC maximum length and will be truncated",
			Field{Key: "password_length", Value: len(password)})
	}

	response, err := encryptChallenge(password, challenge)
	if err != nil {
		return false, err
	}
	defer clearBytes(response)
	if err := e.writeMsg(ctx, response); err != nil {
		return false, ioError("Engine.Authenticate", "failed to send encrypted password", err)
	}

	if err := e.readSecurityResult(ctx); err != nil {
		return false, err
	}
	e.logger.Info("Authentication successful")
	return true, nil
}

// Initialize exchanges ClientInit and ServerInit (RFC 6143 Section 7.3).
// Live, non-streaming sessions then request the configured pixel format
// and encodings.
func (e *Engine) Initialize(ctx context.Context, streaming bool) error {
	if e.conn == nil {
		return invalidStateError("Engine.Initialize", "engine not connected")
	}
	if e.challengePending {
		return invalidOperationError("Engine.Initialize", "authentication challenge still pending")
	}
	validator := newInputValidator()

	var shared byte
	if e.shared {
		shared = 1
	}
	if err := e.writeMsg(ctx, []byte{shared}); err != nil {
		return ioError("Engine.Initialize", "failed to send client init message", err)
	}

	var head [4]byte
	if err := e.readFull(ctx, head[:]); err != nil {
		return ioError("Engine.Initialize", "failed to read framebuffer size", err)
	}
	width := binary.BigEndian.Uint16(head[0:])
	height := binary.BigEndian.Uint16(head[2:])
	if err := validator.ValidateFramebufferDimensions(width, height); err != nil {
		return protocolError("Engine.Initialize", "server sent invalid framebuffer dimensions", err)
	}

	var pfRaw [16]byte
	if err := e.readFull(ctx, pfRaw[:]); err != nil {
		return ioError("Engine.Initialize", "failed to read pixel format", err)
	}
	var pf PixelFormat
	if err := readPixelFormat(bytes.NewReader(pfRaw[:]), &pf); err != nil {
		return protocolError("Engine.Initialize", "failed to read pixel format", err)
	}
	if err := validator.ValidatePixelFormat(&pf); err != nil {
		return protocolError("Engine.Initialize", "server sent invalid pixel format", err)
	}

	var nameLen [4]byte
	if err := e.readFull(ctx, nameLen[:]); err != nil {
		return ioError("Engine.Initialize", "failed to read desktop name length", err)
	}
	n := binary.BigEndian.Uint32(nameLen[:])
	if n > maxDesktopNameLength {
		return protocolError("Engine.Initialize", fmt.Sprintf("desktop name too long: %d", n), nil)
	}
	nameBytes := make([]byte, n)
	if err := e.readFull(ctx, nameBytes); err != nil {
		return ioError("Engine.Initialize", "failed to read desktop name", err)
	}
	name := string(nameBytes)
	if err := validator.ValidateTextData(name, maxDesktopNameLength); err != nil {
		e.logger.Warn("Invalid desktop name received from server, sanitizing", Field{Key: "error", Value: err})
		name = validator.SanitizeText(name)
	}

	e.mu.Lock()
	e.width, e.height = width, height
	e.pixelFormat = pf
	e.info = FramebufferInfo{Width: int(width), Height: int(height), DesktopName: name}
	e.mu.Unlock()

	e.logger.Info("Session initialized",
		Field{Key: "desktop_name", Value: name},
		Field{Key: "framebuffer_width", Value: width},
		Field{Key: "framebuffer_height", Value: height},
		Field{Key: "pixel_format", Value: pf.String()})

	if streaming || e.playback {
		return nil
	}
	if e.requestedPF != nil {
		if err := e.SetPixelFormat(ctx, e.requestedPF); err != nil {
			return err
		}
	}
	return e.SetEncodings(ctx, e.encs)
}

// SetPixelFormat asks the server to send pixels in pf.
func (e *Engine) SetPixelFormat(ctx context.Context, pf *PixelFormat) error {
	if err := newInputValidator().ValidatePixelFormat(pf); err != nil {
		return validationError("SetPixelFormat", "invalid pixel format", err)
	}
	msg := make([]byte, 4, 20)
	msg = append(msg, pf.marshal()...)
	if err := e.writeMsg(ctx, msg); err != nil {
		return ioError("SetPixelFormat", "failed to send pixel format message", err)
	}

	e.mu.Lock()
	e.pixelFormat = *pf
	e.mu.Unlock()
	// The palette is reset by a pixel format change.
	e.colorMap = newGrayColorMap()
	return nil
}

// SetEncodings advertises encs to the server.
func (e *Engine) SetEncodings(ctx context.Context, encs []Encoding) error {
	const maxEncodings = 100
	if len(encs) > maxEncodings {
		return validationError("SetEncodings", fmt.Sprintf("too many encodings: %d (max %d)", len(encs), maxEncodings), nil)
	}
	msg := make([]byte, 4, 4+4*len(encs))
	msg[0] = 2
	binary.BigEndian.PutUint16(msg[2:], uint16(len(encs))) // #nosec G115 - bounded by maxEncodings
	for _, enc := range encs {
		msg = binary.BigEndian.AppendUint32(msg, uint32(enc.Type())) // #nosec G115 - signed wire value
	}
	if err := e.writeMsg(ctx, msg); err != nil {
		return ioError("SetEncodings", "failed to send set encodings message", err)
	}
	e.mu.Lock()
	e.encs = encs
	e.mu.Unlock()
	return nil
}

// Framebuffer returns the desktop description from ServerInit.
func (e *Engine) Framebuffer() FramebufferInfo {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.info
}

// StartUpdates starts the pump goroutine. Non-streaming sessions also send
// the first full update request.
func (e *Engine) StartUpdates(streaming bool) error {
	if e.conn == nil {
		return invalidStateError("Engine.StartUpdates", "engine not connected")
	}
	go e.mainLoop()
	if streaming {
		return nil
	}
	return e.RequestScreenUpdate(true)
}

func (e *Engine) mainLoop() {
	defer close(e.pumpDone)
	e.logger.Info("Starting message processing loop")

	typeMap := make(map[uint8]ServerMessage)
	for _, msg := range []ServerMessage{
		new(FramebufferUpdateMessage),
		new(SetColorMapEntriesMessage),
		new(BellMessage),
		new(ServerCutTextMessage),
	} {
		typeMap[msg.Type()] = msg
	}

	var lost error
	for {
		messageType, err := e.r.ReadByte()
		if err != nil {
			lost = err
			break
		}
		msg, ok := typeMap[messageType]
		if !ok {
			lost = protocolError("mainLoop", fmt.Sprintf("unsupported message type %d", messageType), nil)
			break
		}
		parsed, err := msg.Read(e, e.r)
		if err != nil {
			lost = err
			break
		}

		switch m := parsed.(type) {
		case *FramebufferUpdateMessage:
			w, h := e.frameBufferSize()
			if handler := e.events(); handler != nil {
				handler.OnUpdate(&Update{Rectangles: m.Rectangles, Width: int(w), Height: int(h)})
			}
		case *ServerCutTextMessage:
			if handler := e.events(); handler != nil {
				handler.OnServerCutText(m.Text)
			}
		case *BellMessage:
			e.logger.Debug("Bell")
		}
	}

	if e.closed.Load() {
		e.logger.Info("Message processing loop ended")
		return
	}
	e.logger.Warn("Connection lost", Field{Key: "error", Value: lost})
	e.closeConn()
	if handler := e.events(); handler != nil {
		handler.OnConnectionLost(lost)
	}
}

// RequestScreenUpdate asks for the whole framebuffer, incrementally unless
// full is set.
func (e *Engine) RequestScreenUpdate(full bool) error {
	w, h := e.frameBufferSize()
	var msg [10]byte
	msg[0] = 3
	if !full {
		msg[1] = 1
	}
	binary.BigEndian.PutUint16(msg[6:], w)
	binary.BigEndian.PutUint16(msg[8:], h)
	if err := e.writeMsg(context.Background(), msg[:]); err != nil {
		return ioError("FramebufferUpdateRequest", "failed to send framebuffer update request", err)
	}
	e.metrics.updateRequested(full)
	return nil
}

// WritePointerEvent sends a pointer event. The position is clamped to the
// framebuffer.
func (e *Engine) WritePointerEvent(mask ButtonMask, p image.Point) error {
	w, h := e.frameBufferSize()
	p = clampToFramebuffer(p, int(w), int(h))

	var msg [6]byte
	msg[0] = 5
	msg[1] = uint8(mask)
	binary.BigEndian.PutUint16(msg[2:], uint16(p.X)) // #nosec G115 - clamped to framebuffer
	binary.BigEndian.PutUint16(msg[4:], uint16(p.Y)) // #nosec G115 - clamped to framebuffer
	if err := e.writeMsg(context.Background(), msg[:]); err != nil {
		return ioError("PointerEvent", "failed to send pointer event", err)
	}
	return nil
}

// WriteKeyboardEvent sends a key press or release.
func (e *Engine) WriteKeyboardEvent(keysym uint32, down bool) error {
	if err := newInputValidator().ValidateKeySymbol(keysym); err != nil {
		return validationError("KeyEvent", "invalid keysym value", err)
	}
	var msg [8]byte
	msg[0] = 4
	if down {
		msg[1] = 1
	}
	binary.BigEndian.PutUint32(msg[4:], keysym)
	if err := e.writeMsg(context.Background(), msg[:]); err != nil {
		return ioError("KeyEvent", "failed to send key event", err)
	}
	return nil
}

// WriteClientCutText sends clipboard text. The protocol carries Latin-1
// only; other characters are rejected.
func (e *Engine) WriteClientCutText(text string) error {
	if len(text) > MaxClipboardLength {
		return validationError("CutText", fmt.Sprintf("clipboard text too long: %d", len(text)), nil)
	}
	latin1, err := charmap.ISO8859_1.NewEncoder().String(text)
	if err != nil {
		return validationError("CutText", "clipboard text is not valid Latin-1", err)
	}

	msg := make([]byte, 8, 8+len(latin1))
	msg[0] = 6
	binary.BigEndian.PutUint32(msg[4:], uint32(len(latin1))) // #nosec G115 - bounded by MaxClipboardLength
	msg = append(msg, latin1...)
	if err := e.writeMsg(context.Background(), msg); err != nil {
		return ioError("CutText", "failed to send cut text message", err)
	}
	return nil
}

// SetEventHandler implements Protocol.
func (e *Engine) SetEventHandler(h ProtocolEvents) {
	e.hmu.Lock()
	defer e.hmu.Unlock()
	e.handler = h
}

func (e *Engine) events() ProtocolEvents {
	e.hmu.RLock()
	defer e.hmu.RUnlock()
	return e.handler
}

// Disconnect closes the connection. The pump goroutine exits without
// reporting a lost connection. It is safe to call more than once.
func (e *Engine) Disconnect() error {
	e.closed.Store(true)
	return e.closeConn()
}

func (e *Engine) closeConn() error {
	var err error
	e.closeOnce.Do(func() {
		if e.conn != nil {
			err = e.conn.Close()
		}
	})
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}

// Hostname returns the dialed address, or "" for stream sessions.
func (e *Engine) Hostname() string {
	return e.host
}

// Wait blocks until the pump goroutine has exited.
func (e *Engine) Wait() {
	if e.pumpDone != nil {
		<-e.pumpDone
	}
}

func (e *Engine) frameBufferSize() (uint16, uint16) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.width, e.height
}

func (e *Engine) setFrameBufferSize(w, h uint16) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.width, e.height = w, h
}

func (e *Engine) encodings() []Encoding {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.encs
}

// pixelReader is only used on the pump goroutine, which also owns the
// color map.
func (e *Engine) pixelReader() *pixelReader {
	e.mu.RLock()
	pf := e.pixelFormat
	e.mu.RUnlock()
	return newPixelReader(pf, &e.colorMap)
}

// readFull reads from the connection, giving up when ctx ends. The
// connection is closed on cancellation so the pending read returns.
func (e *Engine) readFull(ctx context.Context, buf []byte) error {
	done := make(chan error, 1)
	go func() {
		_, err := io.ReadFull(e.r, buf)
		done <- err
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		e.closeConn()
		return ctx.Err()
	}
}

func (e *Engine) writeMsg(ctx context.Context, data []byte) error {
	if e.conn == nil {
		return invalidStateError("write", "engine not connected")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	e.wmu.Lock()
	defer e.wmu.Unlock()
	if nc, ok := e.conn.(net.Conn); ok && e.writeTimeout > 0 {
		_ = nc.SetWriteDeadline(time.Now().Add(e.writeTimeout))
	}
	_, err := e.conn.Write(data)
	return err
}

// ioError classifies a transport failure, keeping context expiry apart from
// network errors.
func ioError(op, message string, err error) error {
	var vncErr *VNCError
	if errors.As(err, &vncErr) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return NewVNCError(op, ErrTimeout, message, err)
	}
	return networkError(op, message, err)
}
