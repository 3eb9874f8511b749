// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Ryan Johnson

package vnc

import (
	"context"
	"errors"
	"image"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pointerCall struct {
	Mask ButtonMask
	P    image.Point
}

// fakeProtocol is a scripted Protocol that records what the controller
// asks of it.
type fakeProtocol struct {
	pending    bool
	connectErr error
	authOK     bool
	authErr    error
	initErr    error
	info       FramebufferInfo

	mu          sync.Mutex
	handler     ProtocolEvents
	target      Target
	playback    bool
	password    string
	streaming   bool
	started     bool
	requests    []bool
	pointers    []pointerCall
	keys        []keyEvent
	cutTexts    []string
	disconnects int
}

func newFakeProtocol() *fakeProtocol {
	return &fakeProtocol{
		authOK: true,
		info:   FramebufferInfo{Width: 800, Height: 600, DesktopName: "fake"},
	}
}

func (f *fakeProtocol) Connect(_ context.Context, t Target) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.target = t
	return f.pending, f.connectErr
}

func (f *fakeProtocol) ConnectStream(_ context.Context, _ io.Reader, playback bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.playback = playback
	return f.connectErr
}

func (f *fakeProtocol) Authenticate(_ context.Context, password string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.password = password
	return f.authOK, f.authErr
}

func (f *fakeProtocol) Initialize(_ context.Context, streaming bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.streaming = streaming
	return f.initErr
}

func (f *fakeProtocol) Framebuffer() FramebufferInfo { return f.info }

func (f *fakeProtocol) StartUpdates(bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = true
	return nil
}

func (f *fakeProtocol) RequestScreenUpdate(full bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, full)
	return nil
}

func (f *fakeProtocol) WritePointerEvent(mask ButtonMask, p image.Point) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pointers = append(f.pointers, pointerCall{Mask: mask, P: p})
	return nil
}

func (f *fakeProtocol) WriteKeyboardEvent(keysym uint32, down bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keys = append(f.keys, keyEvent{Keysym: keysym, Down: down})
	return nil
}

func (f *fakeProtocol) WriteClientCutText(text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cutTexts = append(f.cutTexts, text)
	return nil
}

func (f *fakeProtocol) SetEventHandler(h ProtocolEvents) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handler = h
}

func (f *fakeProtocol) events() ProtocolEvents {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.handler
}

func (f *fakeProtocol) Disconnect() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disconnects++
	return nil
}

func (f *fakeProtocol) Hostname() string { return "" }

func (f *fakeProtocol) snapshot() fakeProtocol {
	f.mu.Lock()
	defer f.mu.Unlock()
	return fakeProtocol{
		target:      f.target,
		playback:    f.playback,
		password:    f.password,
		streaming:   f.streaming,
		started:     f.started,
		requests:    append([]bool(nil), f.requests...),
		pointers:    append([]pointerCall(nil), f.pointers...),
		keys:        append([]keyEvent(nil), f.keys...),
		cutTexts:    append([]string(nil), f.cutTexts...),
		disconnects: f.disconnects,
	}
}

func newTestDesktop(t *testing.T, fake *fakeProtocol, opts ...Option) *RemoteDesktop {
	t.Helper()
	opts = append([]Option{WithProtocolFactory(func() Protocol { return fake })}, opts...)
	rd := NewRemoteDesktop(opts...)
	t.Cleanup(func() { rd.Close() })
	return rd
}

// flush waits for every task already posted to the dispatcher.
func flush(t *testing.T, rd *RemoteDesktop) {
	t.Helper()
	require.NoError(t, rd.Dispatcher().Invoke(func() {}))
}

func connectDesktop(t *testing.T, rd *RemoteDesktop, opts ...ConnectOption) {
	t.Helper()
	pending, err := rd.Connect(context.Background(), "example.com", opts...)
	require.NoError(t, err)
	require.False(t, pending)
	require.Equal(t, StateConnected, rd.State())
	flush(t, rd)
}

func TestRemoteDesktop_Connect(t *testing.T) {
	fake := newFakeProtocol()
	rd := newTestDesktop(t, fake)

	var connected []FramebufferInfo
	rd.OnConnectComplete(func(fb FramebufferInfo) { connected = append(connected, fb) })

	assert.Equal(t, "Disconnected", rd.Hostname())
	connectDesktop(t, rd, WithDisplay(1))
	flush(t, rd)

	got := fake.snapshot()
	assert.Equal(t, Target{Host: "example.com", Display: 1}, got.target)
	assert.False(t, got.streaming)
	assert.True(t, got.started)
	assert.Equal(t, []FramebufferInfo{fake.info}, connected)
	assert.Equal(t, fake.info, rd.Framebuffer())
	assert.Equal(t, "example.com:5901", rd.Hostname())
	assert.Equal(t, image.Pt(800, 600), rd.Surface().DisplaySize())
	assert.InDelta(t, 1.0, rd.ImageScale(), 1e-9)
	assert.True(t, rd.IsConnected())
	assert.NotEqual(t, [16]byte{}, [16]byte(rd.SessionID()))
}

func TestRemoteDesktop_ConnectParsesDisplay(t *testing.T) {
	fake := newFakeProtocol()
	rd := newTestDesktop(t, fake)

	_, err := rd.Connect(context.Background(), "example.com:2")
	require.NoError(t, err)
	assert.Equal(t, Target{Host: "example.com", Display: 2}, fake.snapshot().target)
}

func TestRemoteDesktop_ConnectDisplayOption(t *testing.T) {
	tests := []struct {
		name    string
		host    string
		display int
		want    Target
		wantErr bool
	}{
		{name: "suffix stripped", host: "example.com:2", display: 2, want: Target{Host: "example.com", Display: 2}},
		{name: "explicit zero", host: "example.com", display: 0, want: Target{Host: "example.com"}},
		{name: "option on bare host", host: "example.com", display: 3, want: Target{Host: "example.com", Display: 3}},
		{name: "bracketed address", host: "[::1]", display: 1, want: Target{Host: "::1", Display: 1}},
		{name: "conflicting display", host: "example.com:2", display: 3, wantErr: true},
		{name: "conflicting zero", host: "example.com:2", display: 0, wantErr: true},
		{name: "malformed display", host: "example.com:x", display: 1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := newFakeProtocol()
			rd := newTestDesktop(t, fake)

			_, err := rd.Connect(context.Background(), tt.host, WithDisplay(tt.display))
			if tt.wantErr {
				assert.True(t, IsVNCError(err, ErrArgument), "got %v", err)
				assert.Equal(t, StateDisconnected, rd.State())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, fake.snapshot().target)
		})
	}
}

func TestRemoteDesktop_ConnectArguments(t *testing.T) {
	rd := newTestDesktop(t, newFakeProtocol())

	_, err := rd.Connect(context.Background(), "")
	assert.True(t, IsVNCError(err, ErrArgument))

	_, err = rd.Connect(context.Background(), "example.com", WithDisplay(-1))
	assert.True(t, IsVNCError(err, ErrArgument))
	assert.Equal(t, StateDisconnected, rd.State())

	assert.True(t, IsVNCError(rd.ConnectStream(context.Background(), nil), ErrArgument))
}

func TestRemoteDesktop_ConnectWhileConnected(t *testing.T) {
	rd := newTestDesktop(t, newFakeProtocol())
	connectDesktop(t, rd)

	_, err := rd.Connect(context.Background(), "example.com")
	assert.True(t, IsVNCError(err, ErrInvalidState))
	err = rd.ConnectStream(context.Background(), strings.NewReader(""))
	assert.True(t, IsVNCError(err, ErrInvalidState))
}

func TestRemoteDesktop_ConnectFailure(t *testing.T) {
	fake := newFakeProtocol()
	fake.connectErr = networkError("dial", "connection refused", nil)
	rd := newTestDesktop(t, fake)

	_, err := rd.Connect(context.Background(), "example.com")
	assert.True(t, IsVNCError(err, ErrNetwork))
	assert.Equal(t, StateDisconnected, rd.State())
	assert.Equal(t, 1, fake.snapshot().disconnects)
}

func TestRemoteDesktop_InitializeFailure(t *testing.T) {
	fake := newFakeProtocol()
	fake.initErr = protocolError("Engine.Initialize", "bad init", nil)
	rd := newTestDesktop(t, fake)

	_, err := rd.Connect(context.Background(), "example.com")
	assert.True(t, IsVNCError(err, ErrProtocol))
	assert.Equal(t, StateDisconnected, rd.State())
	assert.False(t, fake.snapshot().started)
}

func TestRemoteDesktop_PendingPassword(t *testing.T) {
	fake := newFakeProtocol()
	fake.pending = true
	rd := newTestDesktop(t, fake)

	assert.True(t, IsVNCError(rd.Authenticate(context.Background(), "pw"), ErrInvalidOperation))

	pending, err := rd.Connect(context.Background(), "example.com")
	require.NoError(t, err)
	assert.True(t, pending)
	assert.True(t, rd.PasswordPending())
	assert.Equal(t, StateDisconnected, rd.State())

	assert.True(t, IsVNCError(rd.Authenticate(context.Background(), ""), ErrArgument))
	assert.True(t, rd.PasswordPending())

	require.NoError(t, rd.Authenticate(context.Background(), "pw"))
	assert.Equal(t, "pw", fake.snapshot().password)
	assert.Equal(t, StateConnected, rd.State())
	assert.False(t, rd.PasswordPending())

	assert.True(t, IsVNCError(rd.Authenticate(context.Background(), "pw"), ErrInvalidState))
}

func TestRemoteDesktop_RejectedPassword(t *testing.T) {
	fake := newFakeProtocol()
	fake.pending = true
	fake.authOK = false
	rd := newTestDesktop(t, fake)

	var lost atomic.Int32
	rd.OnConnectionLost(func() { lost.Add(1) })

	_, err := rd.Connect(context.Background(), "example.com")
	require.NoError(t, err)

	err = rd.Authenticate(context.Background(), "wrong")
	assert.True(t, IsVNCError(err, ErrAuthentication))
	assert.Equal(t, StateDisconnected, rd.State())
	flush(t, rd)
	assert.Equal(t, int32(1), lost.Load())

	// The challenge was consumed.
	assert.True(t, IsVNCError(rd.Authenticate(context.Background(), "wrong"), ErrInvalidOperation))
}

func TestRemoteDesktop_PasswordProvider(t *testing.T) {
	t.Run("supplies password", func(t *testing.T) {
		fake := newFakeProtocol()
		fake.pending = true
		var asked string
		rd := newTestDesktop(t, fake, WithPasswordProvider(func(_ context.Context, host string) (string, error) {
			asked = host
			return "pw", nil
		}))

		pending, err := rd.Connect(context.Background(), "example.com")
		require.NoError(t, err)
		assert.False(t, pending)
		assert.Equal(t, "example.com:5900", asked)
		assert.Equal(t, "pw", fake.snapshot().password)
		assert.Equal(t, StateConnected, rd.State())
	})

	t.Run("empty password cancels", func(t *testing.T) {
		fake := newFakeProtocol()
		fake.pending = true
		rd := newTestDesktop(t, fake, WithPasswordProvider(func(context.Context, string) (string, error) {
			return "", nil
		}))

		_, err := rd.Connect(context.Background(), "example.com")
		assert.True(t, IsVNCError(err, ErrCanceled))
		assert.Equal(t, StateDisconnected, rd.State())
		assert.False(t, rd.PasswordPending())
		assert.Equal(t, 1, fake.snapshot().disconnects)
	})

	t.Run("provider error", func(t *testing.T) {
		fake := newFakeProtocol()
		fake.pending = true
		boom := errors.New("keyring locked")
		rd := newTestDesktop(t, fake, WithPasswordProvider(func(context.Context, string) (string, error) {
			return "", boom
		}))

		_, err := rd.Connect(context.Background(), "example.com")
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, StateDisconnected, rd.State())
	})
}

func TestRemoteDesktop_Disconnect(t *testing.T) {
	fake := newFakeProtocol()
	rd := newTestDesktop(t, fake)
	surface := rd.Surface().(*ImageSurface)

	var lost atomic.Int32
	rd.OnConnectionLost(func() { lost.Add(1) })

	assert.True(t, IsVNCError(rd.Disconnect(), ErrInvalidState))

	connectDesktop(t, rd)
	require.NoError(t, rd.Disconnect())
	flush(t, rd)

	assert.Equal(t, StateDisconnected, rd.State())
	assert.Equal(t, int32(1), lost.Load())
	assert.True(t, surface.Released())
	assert.Nil(t, fake.events())
	assert.Equal(t, 1, fake.snapshot().disconnects)
	assert.True(t, IsVNCError(rd.Disconnect(), ErrInvalidState))
}

func TestRemoteDesktop_ConcurrentConnectionLoss(t *testing.T) {
	fake := newFakeProtocol()
	rd := newTestDesktop(t, fake)

	var lost atomic.Int32
	rd.OnConnectionLost(func() { lost.Add(1) })
	connectDesktop(t, rd)
	handler := fake.events()
	require.NotNil(t, handler)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			if i%2 == 0 {
				handler.OnConnectionLost(io.EOF)
			} else {
				_ = rd.Disconnect()
			}
		}()
	}
	wg.Wait()
	flush(t, rd)

	assert.Equal(t, StateDisconnected, rd.State())
	assert.Equal(t, int32(1), lost.Load())
	assert.Equal(t, 1, fake.snapshot().disconnects)
}

func TestRemoteDesktop_UpdatePump(t *testing.T) {
	fake := newFakeProtocol()
	rd := newTestDesktop(t, fake)
	connectDesktop(t, rd)
	handler := fake.events()

	update := &Update{Width: 800, Height: 600}
	for i := 0; i < 2*fullRefreshInterval; i++ {
		handler.OnUpdate(update)
	}

	requests := fake.snapshot().requests
	require.Len(t, requests, 2*fullRefreshInterval)
	for i, full := range requests {
		assert.Equal(t, (i+1)%fullRefreshInterval == 0, full, "request %d", i)
	}

	require.NoError(t, rd.FullScreenUpdate())
	handler.OnUpdate(update)
	handler.OnUpdate(update)
	requests = fake.snapshot().requests
	assert.True(t, requests[2*fullRefreshInterval])
	assert.False(t, requests[2*fullRefreshInterval+1])

	assert.Equal(t, 2*fullRefreshInterval+2, rd.Surface().(*ImageSurface).Draws())
}

func TestRemoteDesktop_FullScreenUpdateRequiresConnection(t *testing.T) {
	rd := newTestDesktop(t, newFakeProtocol())
	assert.True(t, IsVNCError(rd.FullScreenUpdate(), ErrInvalidState))
}

func TestRemoteDesktop_UpdateAfterDisconnectIsIgnored(t *testing.T) {
	fake := newFakeProtocol()
	rd := newTestDesktop(t, fake)
	connectDesktop(t, rd)
	handler := fake.events()
	require.NoError(t, rd.Disconnect())

	handler.OnUpdate(&Update{Width: 800, Height: 600})
	assert.Empty(t, fake.snapshot().requests)
}

func TestRemoteDesktop_Resize(t *testing.T) {
	fake := newFakeProtocol()
	surface := NewImageSurface(image.Pt(400, 400))
	rd := newTestDesktop(t, fake, WithSurface(surface))
	connectDesktop(t, rd, WithScaled(true))

	assert.InDelta(t, 0.5, rd.ImageScale(), 1e-9)
	assert.Equal(t, Transform{Scale: 0.5, Offset: image.Pt(0, 50)}, rd.Transform())

	surface.SetDisplaySize(image.Pt(1600, 1200))
	rd.SurfaceResized()
	flush(t, rd)
	assert.InDelta(t, 2.0, rd.ImageScale(), 1e-9)

	rd.SetScalingMode(false)
	flush(t, rd)
	assert.Equal(t, Transform{Scale: 1, Offset: image.Pt(400, 300)}, rd.Transform())

	rd.SetImageScale(3)
	assert.InDelta(t, 3.0, rd.ImageScale(), 1e-9)
}

func desktopResize(w, h int) *Update {
	return &Update{
		Rectangles: []Rectangle{{Width: uint16(w), Height: uint16(h), Enc: &DesktopSizePseudoEncoding{Width: uint16(w), Height: uint16(h)}}},
		Width:      w,
		Height:     h,
	}
}

func TestRemoteDesktop_DesktopResize(t *testing.T) {
	t.Run("native size", func(t *testing.T) {
		fake := newFakeProtocol()
		fake.info = FramebufferInfo{Width: 100, Height: 100}
		rd := newTestDesktop(t, fake)
		connectDesktop(t, rd)

		fake.events().OnUpdate(desktopResize(200, 200))
		assert.Equal(t, image.Pt(200, 200), rd.FramebufferSize())
		assert.Equal(t, FramebufferInfo{Width: 100, Height: 100}, rd.Framebuffer())
		assert.Equal(t, Transform{Scale: 1}, rd.Transform())

		require.NoError(t, rd.PointerEvent(PointerInput{X: 150, Y: 150}))
		assert.Equal(t, []pointerCall{{P: image.Pt(150, 150)}}, fake.snapshot().pointers)
	})

	t.Run("scaled", func(t *testing.T) {
		fake := newFakeProtocol()
		fake.info = FramebufferInfo{Width: 100, Height: 100}
		surface := NewImageSurface(image.Pt(200, 200))
		rd := newTestDesktop(t, fake, WithSurface(surface))
		connectDesktop(t, rd, WithScaled(true))
		assert.InDelta(t, 2.0, rd.ImageScale(), 1e-9)

		fake.events().OnUpdate(desktopResize(200, 200))
		assert.InDelta(t, 1.0, rd.ImageScale(), 1e-9)

		require.NoError(t, rd.PointerEvent(PointerInput{X: 150, Y: 150}))
		assert.Equal(t, []pointerCall{{P: image.Pt(150, 150)}}, fake.snapshot().pointers)
	})
}

func TestRemoteDesktop_ObserverChangesScaling(t *testing.T) {
	fake := newFakeProtocol()
	surface := NewImageSurface(image.Pt(400, 300))
	rd := newTestDesktop(t, fake, WithSurface(surface))

	done := make(chan struct{})
	rd.OnConnectComplete(func(FramebufferInfo) {
		rd.SetScalingMode(true)
		rd.SurfaceResized()
		close(done)
	})
	connectDesktop(t, rd)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("observer did not return")
	}
	flush(t, rd)
	assert.InDelta(t, 0.5, rd.ImageScale(), 1e-9)

	fake.events().OnUpdate(&Update{Width: 800, Height: 600})
	assert.Len(t, fake.snapshot().requests, 1)
}

func TestRemoteDesktop_PointerEvent(t *testing.T) {
	fake := newFakeProtocol()
	surface := NewImageSurface(image.Pt(1600, 1200))
	rd := newTestDesktop(t, fake, WithSurface(surface))
	connectDesktop(t, rd, WithScaled(true))

	require.NoError(t, rd.PointerEvent(PointerInput{X: 200, Y: 100, Left: true}))
	require.NoError(t, rd.PointerEvent(PointerInput{X: 201.4, Y: 99.6, Right: true}))

	assert.Equal(t, []pointerCall{
		{Mask: ButtonLeft, P: image.Pt(100, 50)},
		{Mask: ButtonRight, P: image.Pt(100, 50)},
	}, fake.snapshot().pointers)
}

func TestRemoteDesktop_WheelEvent(t *testing.T) {
	fake := newFakeProtocol()
	rd := newTestDesktop(t, fake)
	connectDesktop(t, rd)

	require.NoError(t, rd.WheelEvent(WheelInput{X: 10, Y: 20, Ticks: -3}))
	require.NoError(t, rd.WheelEvent(WheelInput{X: 10, Y: 20, Ticks: 1}))
	require.NoError(t, rd.WheelEvent(WheelInput{X: 10, Y: 20}))

	p := image.Pt(10, 20)
	assert.Equal(t, []pointerCall{
		{Mask: Button5, P: p},
		{Mask: Button5, P: p},
		{Mask: Button5, P: p},
		{Mask: Button4, P: p},
	}, fake.snapshot().pointers)
}

func TestRemoteDesktop_Keys(t *testing.T) {
	tests := []struct {
		name string
		send func(rd *RemoteDesktop) error
		want []keyEvent
	}{
		{
			name: "control key press",
			send: func(rd *RemoteDesktop) error { return rd.KeyDown(KeyInput{Key: KeyEnter}) },
			want: []keyEvent{{Keysym: XKReturn, Down: true}},
		},
		{
			name: "control key release",
			send: func(rd *RemoteDesktop) error { return rd.KeyUp(KeyInput{Key: KeyLeftShift}) },
			want: []keyEvent{{Keysym: XKShiftL, Down: false}},
		},
		{
			name: "printable key is pressed and released",
			send: func(rd *RemoteDesktop) error { return rd.KeyDown(KeyInput{Key: KeyA, Mods: ModShift}) },
			want: []keyEvent{{Keysym: 'A', Down: true}, {Keysym: 'A', Down: false}},
		},
		{
			name: "printable key release is dropped",
			send: func(rd *RemoteDesktop) error { return rd.KeyUp(KeyInput{Key: KeyA}) },
			want: nil,
		},
		{
			name: "unmapped key is dropped",
			send: func(rd *RemoteDesktop) error { return rd.KeyDown(KeyInput{Key: KeyUnknown}) },
			want: nil,
		},
		{
			name: "function key",
			send: func(rd *RemoteDesktop) error { return rd.KeyDown(KeyInput{Key: KeyF4}) },
			want: []keyEvent{{Keysym: XKF4, Down: true}},
		},
		{
			name: "ctrl alt del",
			send: func(rd *RemoteDesktop) error { return rd.SendSpecialKeys(SpecialCtrlAltDel, true) },
			want: []keyEvent{
				{Keysym: XKControlL, Down: true},
				{Keysym: XKAltL, Down: true},
				{Keysym: XKDelete, Down: true},
				{Keysym: XKDelete, Down: false},
				{Keysym: XKAltL, Down: false},
				{Keysym: XKControlL, Down: false},
			},
		},
		{
			name: "held ctrl",
			send: func(rd *RemoteDesktop) error { return rd.SendSpecialKeys(SpecialCtrl, false) },
			want: []keyEvent{{Keysym: XKControlL, Down: true}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := newFakeProtocol()
			rd := newTestDesktop(t, fake)
			connectDesktop(t, rd)

			require.NoError(t, tt.send(rd))
			assert.Equal(t, tt.want, fake.snapshot().keys)
		})
	}
}

func TestRemoteDesktop_LocalizedWhitespace(t *testing.T) {
	fake := newFakeProtocol()
	nbsp := LocalizerFunc(func(Key, Modifiers) (rune, bool) { return '\u00a0', true })
	rd := newTestDesktop(t, fake, WithLocalizer(nbsp))
	connectDesktop(t, rd)

	require.NoError(t, rd.KeyDown(KeyInput{Key: KeySpace, Mods: ModAlt}))
	assert.Equal(t, []keyEvent{{Keysym: 0xa0, Down: true}, {Keysym: 0xa0, Down: false}}, fake.snapshot().keys)
}

func TestRemoteDesktop_UnknownSpecialKeys(t *testing.T) {
	rd := newTestDesktop(t, newFakeProtocol())
	connectDesktop(t, rd)
	assert.True(t, IsVNCError(rd.SendSpecialKeys(SpecialKeys(99), true), ErrArgument))
}

func TestRemoteDesktop_InputRequiresConnection(t *testing.T) {
	rd := newTestDesktop(t, newFakeProtocol())

	assert.True(t, IsVNCError(rd.PointerEvent(PointerInput{}), ErrInvalidState))
	assert.True(t, IsVNCError(rd.WheelEvent(WheelInput{Ticks: 1}), ErrInvalidState))
	assert.True(t, IsVNCError(rd.KeyDown(KeyInput{Key: KeyEnter}), ErrInvalidState))
	assert.True(t, IsVNCError(rd.KeyUp(KeyInput{Key: KeyEnter}), ErrInvalidState))
	assert.True(t, IsVNCError(rd.SendSpecialKeys(SpecialCtrlAltDel, true), ErrInvalidState))
	assert.True(t, IsVNCError(rd.FillServerClipboard("x"), ErrInvalidState))
}

func TestRemoteDesktop_ViewOnly(t *testing.T) {
	fake := newFakeProtocol()
	rd := newTestDesktop(t, fake)
	connectDesktop(t, rd, WithViewOnly(true))

	require.NoError(t, rd.PointerEvent(PointerInput{X: 1, Y: 1, Left: true}))
	require.NoError(t, rd.KeyDown(KeyInput{Key: KeyEnter}))
	require.NoError(t, rd.FillServerClipboard("x"))
	got := fake.snapshot()
	assert.Empty(t, got.pointers)
	assert.Empty(t, got.keys)
	assert.Empty(t, got.cutTexts)

	rd.SetInputMode(false)
	require.NoError(t, rd.KeyDown(KeyInput{Key: KeyEnter}))
	assert.Len(t, fake.snapshot().keys, 1)
}

func TestRemoteDesktop_Clipboard(t *testing.T) {
	fake := newFakeProtocol()
	rd := newTestDesktop(t, fake)
	connectDesktop(t, rd)

	var texts []string
	unsubscribe := rd.OnClipboardChanged(func(text string) { texts = append(texts, text) })

	fake.events().OnServerCutText("from server")
	flush(t, rd)
	unsubscribe()
	unsubscribe()
	fake.events().OnServerCutText("ignored")
	flush(t, rd)
	assert.Equal(t, []string{"from server"}, texts)

	require.NoError(t, rd.FillServerClipboard("to server"))
	assert.Equal(t, []string{"to server"}, fake.snapshot().cutTexts)
}

func TestRemoteDesktop_ObserverUnsubscribe(t *testing.T) {
	rd := newTestDesktop(t, newFakeProtocol())

	var connects, losses int
	stopConnect := rd.OnConnectComplete(func(FramebufferInfo) { connects++ })
	stopLost := rd.OnConnectionLost(func() { losses++ })

	connectDesktop(t, rd)
	require.NoError(t, rd.Disconnect())
	stopConnect()
	stopLost()
	connectDesktop(t, rd)
	require.NoError(t, rd.Disconnect())
	flush(t, rd)

	assert.Equal(t, 1, connects)
	assert.Equal(t, 1, losses)
}

func TestRemoteDesktop_ConnectStream(t *testing.T) {
	fake := newFakeProtocol()
	rd := newTestDesktop(t, fake)

	require.NoError(t, rd.ConnectStream(context.Background(), strings.NewReader("")))
	got := fake.snapshot()
	assert.True(t, got.playback)
	assert.True(t, got.streaming)
	assert.Equal(t, "playback", rd.Hostname())

	// Playback never sends input, whatever the input mode.
	rd.SetInputMode(false)
	require.NoError(t, rd.KeyDown(KeyInput{Key: KeyEnter}))
	assert.Empty(t, fake.snapshot().keys)
}

func TestRemoteDesktop_SessionIDPerConnection(t *testing.T) {
	rd := newTestDesktop(t, newFakeProtocol())

	connectDesktop(t, rd)
	first := rd.SessionID()
	require.NoError(t, rd.Disconnect())
	connectDesktop(t, rd)
	assert.NotEqual(t, first, rd.SessionID())
}

func TestRemoteDesktop_CloseAbandonsPendingPassword(t *testing.T) {
	fake := newFakeProtocol()
	fake.pending = true
	rd := NewRemoteDesktop(WithProtocolFactory(func() Protocol { return fake }))

	_, err := rd.Connect(context.Background(), "example.com")
	require.NoError(t, err)
	require.NoError(t, rd.Close())
	assert.Equal(t, 1, fake.snapshot().disconnects)
	assert.False(t, rd.PasswordPending())
}

func TestRemoteDesktop_Metrics(t *testing.T) {
	m := NewMetrics()
	fake := newFakeProtocol()
	rd := newTestDesktop(t, fake, WithMetrics(m))

	connectDesktop(t, rd)
	fake.events().OnUpdate(&Update{Width: 800, Height: 600})
	assert.InDelta(t, 1.0, gatheredValue(t, m, "vncview_active_sessions"), 1e-9)
	assert.InDelta(t, 1.0, gatheredValue(t, m, "vncview_updates_total"), 1e-9)

	require.NoError(t, rd.Disconnect())
	assert.InDelta(t, 0.0, gatheredValue(t, m, "vncview_active_sessions"), 1e-9)
	assert.InDelta(t, 1.0, gatheredValue(t, m, "vncview_connection_lost_total"), 1e-9)
}

func TestRemoteDesktop_LiveSession(t *testing.T) {
	srv := NewMockVNCServer()
	srv.AuthMethods = []uint8{SecurityVNCAuth}
	srv.Password = "secret"
	srv.SendUpdates = true
	srv.Start(t)

	rd := NewRemoteDesktop(WithPasswordProvider(func(context.Context, string) (string, error) {
		return "secret", nil
	}))
	defer rd.Close()

	pending, err := rd.Connect(testContext(t), srv.HostDisplay(t))
	require.NoError(t, err)
	require.False(t, pending)

	surface := rd.Surface().(*ImageSurface)
	eventually(t, func() bool { return surface.Draws() >= 3 }, "updates not drawn")
	assert.Equal(t, red, surface.At(0, 0))
	assert.Equal(t, image.Pt(800, 600), surface.DisplaySize())

	require.NoError(t, rd.KeyDown(KeyInput{Key: KeyA}))
	eventually(t, func() bool { return len(srv.Keys()) == 2 }, "keys not received")

	require.NoError(t, rd.Disconnect())
	assert.Equal(t, StateDisconnected, rd.State())
}

func TestRemoteDesktop_RemoteClose(t *testing.T) {
	srv := NewMockVNCServer()
	srv.Start(t)

	rd := NewRemoteDesktop()
	defer rd.Close()

	lost := make(chan struct{}, 1)
	rd.OnConnectionLost(func() { lost <- struct{}{} })

	_, err := rd.Connect(testContext(t), srv.HostDisplay(t))
	require.NoError(t, err)
	eventually(t, func() bool { return len(srv.Requests()) > 0 }, "no update request")

	srv.DropClients()
	eventually(t, func() bool { return rd.State() == StateDisconnected }, "loss not detected")
	<-lost
}

// gatheredValue reads a single-series counter or gauge from m's registry.
func gatheredValue(t *testing.T, m *Metrics, name string) float64 {
	t.Helper()
	families, err := m.Registry().Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		require.Len(t, mf.GetMetric(), 1)
		metric := mf.GetMetric()[0]
		if g := metric.GetGauge(); g != nil {
			return g.GetValue()
		}
		return metric.GetCounter().GetValue()
	}
	t.Fatalf("metric %s not gathered", name)
	return 0
}
