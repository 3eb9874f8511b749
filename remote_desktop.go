// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Ryan Johnson

package vnc

import (
	"context"
	"fmt"
	"image"
	"io"
	"sync"

	"github.com/google/uuid"
)

// State is the lifecycle state of a RemoteDesktop.
type State int32

// Session states.
const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateDisconnecting
	// StateListen is reserved for reverse connections and never entered.
	StateListen
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "Disconnected"
	case StateConnecting:
		return "Connecting"
	case StateConnected:
		return "Connected"
	case StateDisconnecting:
		return "Disconnecting"
	case StateListen:
		return "Listen"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// fullRefreshInterval forces every Nth update request to be a full refresh.
const fullRefreshInterval = 24

// PasswordProvider is asked for a password when the server requires one.
// An empty password cancels the connection attempt.
type PasswordProvider func(ctx context.Context, host string) (string, error)

// RemoteDesktop drives a remote desktop session: it owns the protocol engine,
// runs the update pump into a Surface and forwards local input.
//
// Commands are issued from one goroutine while the engine's pump goroutine
// delivers updates. The surface and all observers run on the Dispatcher.
type RemoteDesktop struct {
	logger      Logger
	metrics     *Metrics
	newProtocol func() Protocol
	passwords   PasswordProvider
	surface     Surface
	localizer   Localizer
	dispatcher  *Dispatcher
	ownsDisp    bool

	mu              sync.Mutex
	state           State
	proto           Protocol
	target          Target
	streaming       bool
	viewOnly        bool
	scaled          bool
	imageScale      float64
	offset          image.Point
	passwordPending bool
	fullRefresh     bool
	updates         int
	info            FramebufferInfo
	fbSize          image.Point
	sessionID       uuid.UUID
	log             Logger

	omu       sync.Mutex
	nextObsID int
	onConnect map[int]func(FramebufferInfo)
	onLost    map[int]func()
	onClip    map[int]func(string)
}

// Option configures a RemoteDesktop.
type Option func(*RemoteDesktop)

// WithLogger sets the logger.
func WithLogger(logger Logger) Option {
	return func(rd *RemoteDesktop) {
		rd.logger = logger
	}
}

// WithMetrics records session metrics into m.
func WithMetrics(m *Metrics) Option {
	return func(rd *RemoteDesktop) {
		rd.metrics = m
	}
}

// WithPasswordProvider sets the callback used when a server asks for a
// password during Connect.
func WithPasswordProvider(p PasswordProvider) Option {
	return func(rd *RemoteDesktop) {
		rd.passwords = p
	}
}

// WithSurface sets the presentation surface. The default is an ImageSurface
// shown at native size.
func WithSurface(s Surface) Option {
	return func(rd *RemoteDesktop) {
		rd.surface = s
	}
}

// WithLocalizer sets the keyboard layout used for printable keys.
func WithLocalizer(l Localizer) Option {
	return func(rd *RemoteDesktop) {
		rd.localizer = l
	}
}

// WithDispatcher runs surface work and observers on d. The caller keeps
// ownership and must stop it.
func WithDispatcher(d *Dispatcher) Option {
	return func(rd *RemoteDesktop) {
		rd.dispatcher = d
	}
}

// WithProtocolFactory sets the constructor for the protocol engine. A new
// engine is created for every connection attempt.
func WithProtocolFactory(f func() Protocol) Option {
	return func(rd *RemoteDesktop) {
		rd.newProtocol = f
	}
}

// NewRemoteDesktop returns a disconnected session controller.
func NewRemoteDesktop(opts ...Option) *RemoteDesktop {
	rd := &RemoteDesktop{
		logger:     &NoOpLogger{},
		localizer:  USLayout,
		imageScale: 1,
		onConnect:  make(map[int]func(FramebufferInfo)),
		onLost:     make(map[int]func()),
		onClip:     make(map[int]func(string)),
	}
	for _, opt := range opts {
		opt(rd)
	}
	if rd.surface == nil {
		rd.surface = NewImageSurface(image.Point{})
	}
	if rd.dispatcher == nil {
		rd.dispatcher = NewDispatcher(rd.logger)
		rd.ownsDisp = true
	}
	if rd.newProtocol == nil {
		logger, metrics := rd.logger, rd.metrics
		rd.newProtocol = func() Protocol {
			return NewEngine(WithEngineLogger(logger), WithEngineMetrics(metrics))
		}
	}
	rd.log = rd.logger
	return rd
}

// ConnectOption configures a single Connect call.
type ConnectOption func(*connectConfig)

type connectConfig struct {
	display    int
	displaySet bool
	viewOnly   bool
	scaled     bool
}

// WithDisplay selects the display number; the TCP port is 5900+display.
// Without it the display is taken from a "host:display" argument.
func WithDisplay(display int) ConnectOption {
	return func(c *connectConfig) {
		c.display = display
		c.displaySet = true
	}
}

// WithViewOnly drops all local input for the session.
func WithViewOnly(viewOnly bool) ConnectOption {
	return func(c *connectConfig) {
		c.viewOnly = viewOnly
	}
}

// WithScaled shows the framebuffer scaled to the surface.
func WithScaled(scaled bool) ConnectOption {
	return func(c *connectConfig) {
		c.scaled = scaled
	}
}

// Connect opens a session to host. It reports true when the server wants a
// password and no PasswordProvider is configured; the session then stays
// Disconnected until Authenticate is called.
func (rd *RemoteDesktop) Connect(ctx context.Context, host string, opts ...ConnectOption) (bool, error) {
	var cfg connectConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	if host == "" {
		return false, argumentError("RemoteDesktop.Connect", "host must not be empty")
	}
	if cfg.display < 0 {
		return false, argumentError("RemoteDesktop.Connect",
			fmt.Sprintf("display number must be non-negative, got %d", cfg.display))
	}

	target, err := ParseTarget(host)
	if err != nil {
		return false, err
	}
	if cfg.displaySet {
		if target.Display != 0 && target.Display != cfg.display {
			return false, argumentError("RemoteDesktop.Connect",
				fmt.Sprintf("host %q names display %d, option names %d", host, target.Display, cfg.display))
		}
		target.Display = cfg.display
	}
	if err := target.Validate(); err != nil {
		return false, err
	}

	proto, err := rd.begin("RemoteDesktop.Connect", target, false, cfg)
	if err != nil {
		return false, err
	}

	pending, err := proto.Connect(ctx, target)
	if err != nil {
		rd.abandon(proto)
		return false, err
	}
	if !pending {
		return false, rd.initialize(ctx, proto, false)
	}

	if rd.passwords == nil {
		rd.mu.Lock()
		rd.state = StateDisconnected
		rd.passwordPending = true
		rd.mu.Unlock()
		rd.log.Info("Password required")
		return true, nil
	}

	password, err := rd.passwords(ctx, target.Address())
	if err != nil {
		rd.abandon(proto)
		return false, err
	}
	if password == "" {
		rd.abandon(proto)
		return false, canceledError("RemoteDesktop.Connect", "password entry canceled")
	}
	return false, rd.authenticate(ctx, proto, password)
}

// ConnectStream opens a session that replays an FBS recording read from r.
// Playback sessions are always scaled and never send input.
func (rd *RemoteDesktop) ConnectStream(ctx context.Context, r io.Reader) error {
	if r == nil {
		return argumentError("RemoteDesktop.ConnectStream", "stream must not be nil")
	}
	proto, err := rd.begin("RemoteDesktop.ConnectStream", Target{}, true, connectConfig{scaled: true})
	if err != nil {
		return err
	}
	if err := proto.ConnectStream(ctx, r, true); err != nil {
		rd.abandon(proto)
		return err
	}
	return rd.initialize(ctx, proto, true)
}

// begin moves a disconnected controller to Connecting with a fresh engine.
func (rd *RemoteDesktop) begin(op string, target Target, streaming bool, cfg connectConfig) (Protocol, error) {
	rd.mu.Lock()
	defer rd.mu.Unlock()
	if rd.state != StateDisconnected {
		return nil, invalidStateError(op, "RemoteDesktop must be Disconnected, is "+rd.state.String())
	}
	if rd.proto != nil {
		// A previous attempt is still waiting for its password.
		_ = rd.proto.Disconnect()
	}

	proto := rd.newProtocol()
	rd.state = StateConnecting
	rd.proto = proto
	rd.target = target
	rd.streaming = streaming
	rd.viewOnly = cfg.viewOnly || streaming
	rd.scaled = cfg.scaled
	rd.passwordPending = false
	rd.fullRefresh = false
	rd.updates = 0
	rd.info = FramebufferInfo{}
	rd.fbSize = image.Point{}
	rd.sessionID = uuid.New()
	rd.log = rd.logger.With(Field{Key: "session_id", Value: rd.sessionID.String()})
	rd.log.Info("Connecting", Field{Key: "target", Value: target.Address()}, Field{Key: "streaming", Value: streaming})
	return proto, nil
}

// abandon drops a connection attempt that never reached Connected.
func (rd *RemoteDesktop) abandon(proto Protocol) {
	proto.SetEventHandler(nil)
	if err := proto.Disconnect(); err != nil {
		rd.log.Debug("Error closing abandoned connection", Field{Key: "error", Value: err})
	}
	rd.mu.Lock()
	if rd.proto == proto {
		rd.proto = nil
		rd.state = StateDisconnected
		rd.passwordPending = false
	}
	rd.mu.Unlock()
}

// Authenticate answers the password challenge left pending by Connect. It
// may be called once per challenge.
func (rd *RemoteDesktop) Authenticate(ctx context.Context, password string) error {
	rd.mu.Lock()
	if rd.state != StateDisconnected {
		rd.mu.Unlock()
		return invalidStateError("RemoteDesktop.Authenticate", "RemoteDesktop must be Disconnected, is "+rd.state.String())
	}
	if !rd.passwordPending || rd.proto == nil {
		rd.mu.Unlock()
		return invalidOperationError("RemoteDesktop.Authenticate",
			"authentication is only possible after Connect reported a pending password")
	}
	if password == "" {
		rd.mu.Unlock()
		return argumentError("RemoteDesktop.Authenticate", "password must not be empty")
	}
	rd.passwordPending = false
	rd.state = StateConnecting
	proto := rd.proto
	rd.mu.Unlock()

	return rd.authenticate(ctx, proto, password)
}

func (rd *RemoteDesktop) authenticate(ctx context.Context, proto Protocol, password string) error {
	ok, err := proto.Authenticate(ctx, password)
	if err == nil && !ok {
		err = authenticationError("RemoteDesktop.Authenticate", "server rejected the password", nil)
	}
	if err != nil {
		rd.log.Warn("Authentication failed", Field{Key: "error", Value: err})
		rd.abandon(proto)
		rd.fireConnectionLost()
		return err
	}
	return rd.initialize(ctx, proto, false)
}

// initialize finishes the handshake, prepares the surface and starts the
// update pump. The surface is sized on the dispatcher before any
// connect-complete observer runs.
func (rd *RemoteDesktop) initialize(ctx context.Context, proto Protocol, streaming bool) error {
	if err := proto.Initialize(ctx, streaming); err != nil {
		rd.abandon(proto)
		return err
	}
	info := proto.Framebuffer()

	rd.mu.Lock()
	if rd.proto != proto {
		rd.mu.Unlock()
		_ = proto.Disconnect()
		return invalidStateError("RemoteDesktop.Connect", "connection attempt was superseded")
	}
	rd.info = info
	rd.fbSize = info.Size()
	rd.state = StateConnected
	rd.updates = 0
	rd.fullRefresh = false
	rd.mu.Unlock()

	if !rd.dispatcher.Post(func() {
		rd.surface.Resize(info.Width, info.Height)
		rd.rescale(proto, rd.surface.DisplaySize())
	}) {
		rd.abandon(proto)
		return invalidStateError("RemoteDesktop.Connect", "dispatcher stopped")
	}

	if rd.metrics != nil {
		rd.metrics.ActiveSessions.Inc()
	}
	rd.log.Info("Connected",
		Field{Key: "desktop_name", Value: info.DesktopName},
		Field{Key: "width", Value: info.Width},
		Field{Key: "height", Value: info.Height})
	rd.fireConnectComplete(info)

	proto.SetEventHandler(&sessionEvents{rd: rd, proto: proto})
	if err := proto.StartUpdates(streaming); err != nil {
		rd.handleConnectionLost(proto, err)
		return err
	}
	return nil
}

// sessionEvents routes engine events to the session that created the engine.
type sessionEvents struct {
	rd    *RemoteDesktop
	proto Protocol
}

func (s *sessionEvents) OnUpdate(u *Update)          { s.rd.handleUpdate(s.proto, u) }
func (s *sessionEvents) OnConnectionLost(err error)  { s.rd.handleConnectionLost(s.proto, err) }
func (s *sessionEvents) OnServerCutText(text string) { s.rd.handleServerCutText(s.proto, text) }

// handleUpdate draws u on the presentation context and asks for the next
// update.
func (rd *RemoteDesktop) handleUpdate(proto Protocol, u *Update) {
	size, resized := u.Resized()
	err := rd.dispatcher.Invoke(func() {
		rd.surface.Draw(u)
		if resized {
			rd.mu.Lock()
			if rd.proto == proto {
				rd.fbSize = size
			}
			rd.mu.Unlock()
			rd.rescale(proto, rd.surface.DisplaySize())
		}
	})
	if err != nil {
		rd.log.Debug("Update dropped", Field{Key: "error", Value: err})
		return
	}
	if rd.metrics != nil {
		rd.metrics.Updates.Inc()
	}

	rd.mu.Lock()
	if rd.state != StateConnected || rd.proto != proto {
		rd.mu.Unlock()
		return
	}
	full := rd.fullRefresh
	rd.fullRefresh = false
	rd.updates++
	if rd.updates >= fullRefreshInterval {
		rd.updates = 0
		full = true
	}
	rd.mu.Unlock()

	if err := proto.RequestScreenUpdate(full); err != nil {
		rd.log.Warn("Failed to request screen update", Field{Key: "error", Value: err})
	}
}

// handleConnectionLost tears the session down once, however many times
// and from however many goroutines the loss is reported.
func (rd *RemoteDesktop) handleConnectionLost(proto Protocol, err error) {
	rd.mu.Lock()
	if rd.state != StateConnected || rd.proto != proto {
		rd.mu.Unlock()
		return
	}
	rd.state = StateDisconnecting
	rd.mu.Unlock()

	rd.log.Warn("Connection lost", Field{Key: "error", Value: err})
	rd.teardown(proto)
}

func (rd *RemoteDesktop) handleServerCutText(proto Protocol, text string) {
	rd.mu.Lock()
	current := rd.proto == proto && rd.state == StateConnected
	rd.mu.Unlock()
	if current {
		rd.fireClipboardChanged(text)
	}
}

// Disconnect ends a connected session. It is a no-op while a disconnect is
// already in progress.
func (rd *RemoteDesktop) Disconnect() error {
	rd.mu.Lock()
	switch rd.state {
	case StateDisconnecting:
		rd.mu.Unlock()
		return nil
	case StateConnected:
		rd.state = StateDisconnecting
		proto := rd.proto
		rd.mu.Unlock()
		rd.log.Info("Disconnecting")
		rd.teardown(proto)
		return nil
	default:
		state := rd.state
		rd.mu.Unlock()
		return invalidStateError("RemoteDesktop.Disconnect", "RemoteDesktop must be Connected, is "+state.String())
	}
}

// teardown runs for the single winner of the Connected to Disconnecting
// transition.
func (rd *RemoteDesktop) teardown(proto Protocol) {
	proto.SetEventHandler(nil)
	if err := proto.Disconnect(); err != nil {
		rd.log.Debug("Error closing connection", Field{Key: "error", Value: err})
	}
	rd.dispatcher.Post(rd.surface.Release)

	rd.mu.Lock()
	rd.state = StateDisconnected
	rd.proto = nil
	rd.mu.Unlock()

	if rd.metrics != nil {
		rd.metrics.ActiveSessions.Dec()
		rd.metrics.ConnectionLost.Inc()
	}
	rd.fireConnectionLost()
}

// Close disconnects if needed, abandons a pending password challenge and
// stops the dispatcher if the controller created it.
func (rd *RemoteDesktop) Close() error {
	rd.mu.Lock()
	state, proto := rd.state, rd.proto
	rd.mu.Unlock()

	var err error
	switch {
	case state == StateConnected:
		err = rd.Disconnect()
	case state == StateDisconnected && proto != nil:
		rd.abandon(proto)
	}
	if rd.ownsDisp {
		rd.dispatcher.Stop()
	}
	return err
}

// FullScreenUpdate makes the next update request a full refresh.
func (rd *RemoteDesktop) FullScreenUpdate() error {
	rd.mu.Lock()
	defer rd.mu.Unlock()
	if rd.state != StateConnected {
		return invalidStateError("RemoteDesktop.FullScreenUpdate", "RemoteDesktop must be Connected, is "+rd.state.String())
	}
	rd.fullRefresh = true
	return nil
}

// inputTarget returns the engine for an input operation, or nil when the
// session is view-only.
func (rd *RemoteDesktop) inputTarget(op string) (Protocol, Transform, error) {
	rd.mu.Lock()
	defer rd.mu.Unlock()
	if rd.state != StateConnected {
		return nil, Transform{}, invalidStateError(op, "RemoteDesktop must be Connected, is "+rd.state.String())
	}
	if rd.viewOnly {
		return nil, Transform{}, nil
	}
	return rd.proto, rd.transformLocked(), nil
}

func (rd *RemoteDesktop) transformLocked() Transform {
	if !rd.scaled {
		return Transform{Scale: 1, Offset: rd.offset}
	}
	return Transform{Scale: rd.imageScale, Offset: rd.offset}
}

// PointerEvent forwards a pointer position and button state given in
// surface coordinates.
func (rd *RemoteDesktop) PointerEvent(in PointerInput) error {
	proto, t, err := rd.inputTarget("RemoteDesktop.PointerEvent")
	if err != nil || proto == nil {
		return err
	}
	return proto.WritePointerEvent(in.Mask(), t.ToFramebuffer(in.X, in.Y))
}

// WheelEvent sends one wheel button event per tick. Button state is not
// included.
func (rd *RemoteDesktop) WheelEvent(in WheelInput) error {
	proto, t, err := rd.inputTarget("RemoteDesktop.WheelEvent")
	if err != nil || proto == nil {
		return err
	}
	mask := in.Mask()
	if mask == 0 {
		return nil
	}
	ticks := in.Ticks
	if ticks < 0 {
		ticks = -ticks
	}
	p := t.ToFramebuffer(in.X, in.Y)
	for i := 0; i < ticks; i++ {
		if err := proto.WritePointerEvent(mask, p); err != nil {
			return err
		}
	}
	return nil
}

// KeyDown handles a key press. Control keys are sent as a press; printable
// keys are localized and sent as a press and release pair.
func (rd *RemoteDesktop) KeyDown(in KeyInput) error {
	proto, _, err := rd.inputTarget("RemoteDesktop.KeyDown")
	if err != nil || proto == nil {
		return err
	}
	if sym, ok := ControlKeysym(in.Key); ok {
		return proto.WriteKeyboardEvent(sym, true)
	}

	r, ok := rd.localizer.Localize(in.Key, in.Mods)
	if !ok || !printable(r) {
		return nil
	}
	sym := RuneKeysym(r)
	if err := proto.WriteKeyboardEvent(sym, true); err != nil {
		return err
	}
	return proto.WriteKeyboardEvent(sym, false)
}

// KeyUp releases control keys. Printable keys were already released by
// KeyDown.
func (rd *RemoteDesktop) KeyUp(in KeyInput) error {
	proto, _, err := rd.inputTarget("RemoteDesktop.KeyUp")
	if err != nil || proto == nil {
		return err
	}
	if sym, ok := ControlKeysym(in.Key); ok {
		return proto.WriteKeyboardEvent(sym, false)
	}
	return nil
}

// SendSpecialKeys sends a key combination. Unless release is false the keys
// are released in reverse order afterwards.
func (rd *RemoteDesktop) SendSpecialKeys(keys SpecialKeys, release bool) error {
	proto, _, err := rd.inputTarget("RemoteDesktop.SendSpecialKeys")
	if err != nil || proto == nil {
		return err
	}
	syms, err := keys.Keysyms()
	if err != nil {
		return err
	}
	return PressKeys(proto, syms, release)
}

// FillServerClipboard sends text to the server's clipboard.
func (rd *RemoteDesktop) FillServerClipboard(text string) error {
	proto, _, err := rd.inputTarget("RemoteDesktop.FillServerClipboard")
	if err != nil || proto == nil {
		return err
	}
	return proto.WriteClientCutText(text)
}

// SetInputMode switches view-only mode for the current session.
func (rd *RemoteDesktop) SetInputMode(viewOnly bool) {
	rd.mu.Lock()
	defer rd.mu.Unlock()
	if rd.streaming {
		return
	}
	rd.viewOnly = viewOnly
}

// SetScalingMode switches between scaled and native-size display.
func (rd *RemoteDesktop) SetScalingMode(scaled bool) {
	rd.mu.Lock()
	rd.scaled = scaled
	rd.mu.Unlock()
	rd.SurfaceResized()
}

// SurfaceResized recomputes the image scale and centering offset from the
// surface's display size. The work is queued on the dispatcher, so it may be
// called from an observer.
func (rd *RemoteDesktop) SurfaceResized() {
	rd.mu.Lock()
	proto := rd.proto
	connected := rd.state == StateConnected
	rd.mu.Unlock()
	if !connected {
		return
	}
	rd.dispatcher.Post(func() {
		rd.rescale(proto, rd.surface.DisplaySize())
	})
}

// rescale derives scale and offset for a surface shown at display size.
// It runs on the dispatcher.
func (rd *RemoteDesktop) rescale(proto Protocol, display image.Point) {
	rd.mu.Lock()
	defer rd.mu.Unlock()
	if rd.state != StateConnected || rd.proto != proto {
		return
	}
	fb := rd.fbSize
	if fb.X <= 0 || display.X <= 0 {
		return
	}
	if rd.scaled {
		rd.imageScale = float64(display.X) / float64(fb.X)
		scaled := image.Pt(int(float64(fb.X)*rd.imageScale), int(float64(fb.Y)*rd.imageScale))
		rd.offset = CenterOffset(display, scaled)
		return
	}
	rd.offset = CenterOffset(display, fb)
}

// ImageScale returns the displayed width over the framebuffer width.
func (rd *RemoteDesktop) ImageScale() float64 {
	rd.mu.Lock()
	defer rd.mu.Unlock()
	return rd.imageScale
}

// SetImageScale overrides the image scale until the next SurfaceResized.
func (rd *RemoteDesktop) SetImageScale(scale float64) {
	rd.mu.Lock()
	defer rd.mu.Unlock()
	rd.imageScale = scale
}

// Transform returns the current surface to framebuffer mapping.
func (rd *RemoteDesktop) Transform() Transform {
	rd.mu.Lock()
	defer rd.mu.Unlock()
	return rd.transformLocked()
}

// State returns the lifecycle state.
func (rd *RemoteDesktop) State() State {
	rd.mu.Lock()
	defer rd.mu.Unlock()
	return rd.state
}

// IsConnected reports whether the session is Connected.
func (rd *RemoteDesktop) IsConnected() bool {
	return rd.State() == StateConnected
}

// PasswordPending reports whether Authenticate is expected.
func (rd *RemoteDesktop) PasswordPending() bool {
	rd.mu.Lock()
	defer rd.mu.Unlock()
	return rd.passwordPending
}

// Hostname returns the engine's host name, or "Disconnected".
func (rd *RemoteDesktop) Hostname() string {
	rd.mu.Lock()
	defer rd.mu.Unlock()
	if rd.proto == nil {
		return "Disconnected"
	}
	if h := rd.proto.Hostname(); h != "" {
		return h
	}
	if rd.streaming {
		return "playback"
	}
	return rd.target.Address()
}

// FramebufferSize returns the current framebuffer size, which follows
// desktop-size changes announced by the server.
func (rd *RemoteDesktop) FramebufferSize() image.Point {
	rd.mu.Lock()
	defer rd.mu.Unlock()
	return rd.fbSize
}

// Framebuffer returns the desktop description of the current session.
func (rd *RemoteDesktop) Framebuffer() FramebufferInfo {
	rd.mu.Lock()
	defer rd.mu.Unlock()
	return rd.info
}

// SessionID identifies the current or most recent connection attempt.
func (rd *RemoteDesktop) SessionID() uuid.UUID {
	rd.mu.Lock()
	defer rd.mu.Unlock()
	return rd.sessionID
}

// Surface returns the presentation surface.
func (rd *RemoteDesktop) Surface() Surface {
	return rd.surface
}

// Dispatcher returns the presentation context.
func (rd *RemoteDesktop) Dispatcher() *Dispatcher {
	return rd.dispatcher
}

// OnConnectComplete registers fn to run when a session reaches Connected.
// The returned func unregisters it.
func (rd *RemoteDesktop) OnConnectComplete(fn func(FramebufferInfo)) func() {
	rd.omu.Lock()
	defer rd.omu.Unlock()
	id := rd.nextObsID
	rd.nextObsID++
	rd.onConnect[id] = fn
	return rd.unsubscribe(func() { delete(rd.onConnect, id) })
}

// OnConnectionLost registers fn to run when a session ends, whether
// locally, remotely or by a rejected password.
func (rd *RemoteDesktop) OnConnectionLost(fn func()) func() {
	rd.omu.Lock()
	defer rd.omu.Unlock()
	id := rd.nextObsID
	rd.nextObsID++
	rd.onLost[id] = fn
	return rd.unsubscribe(func() { delete(rd.onLost, id) })
}

// OnClipboardChanged registers fn to receive the server's clipboard text.
func (rd *RemoteDesktop) OnClipboardChanged(fn func(text string)) func() {
	rd.omu.Lock()
	defer rd.omu.Unlock()
	id := rd.nextObsID
	rd.nextObsID++
	rd.onClip[id] = fn
	return rd.unsubscribe(func() { delete(rd.onClip, id) })
}

func (rd *RemoteDesktop) unsubscribe(remove func()) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			rd.omu.Lock()
			defer rd.omu.Unlock()
			remove()
		})
	}
}

func (rd *RemoteDesktop) fireConnectComplete(info FramebufferInfo) {
	rd.omu.Lock()
	fns := make([]func(FramebufferInfo), 0, len(rd.onConnect))
	for _, fn := range rd.onConnect {
		fns = append(fns, fn)
	}
	rd.omu.Unlock()
	rd.dispatcher.Post(func() {
		for _, fn := range fns {
			fn(info)
		}
	})
}

func (rd *RemoteDesktop) fireConnectionLost() {
	rd.omu.Lock()
	fns := make([]func(), 0, len(rd.onLost))
	for _, fn := range rd.onLost {
		fns = append(fns, fn)
	}
	rd.omu.Unlock()
	rd.dispatcher.Post(func() {
		for _, fn := range fns {
			fn()
		}
	})
}

func (rd *RemoteDesktop) fireClipboardChanged(text string) {
	rd.omu.Lock()
	fns := make([]func(string), 0, len(rd.onClip))
	for _, fn := range rd.onClip {
		fns = append(fns, fn)
	}
	rd.omu.Unlock()
	rd.dispatcher.Post(func() {
		for _, fn := range fns {
			fn(text)
		}
	})
}
