// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Ryan Johnson

package vnc

import (
	"context"
	"image"
	"io"
)

// FramebufferInfo describes the remote desktop. It is fixed for the lifetime
// of a session; desktop-size changes are carried by updates.
type FramebufferInfo struct {
	Width       int
	Height      int
	DesktopName string
}

// Size returns the framebuffer dimensions as a point.
func (fi FramebufferInfo) Size() image.Point {
	return image.Pt(fi.Width, fi.Height)
}

// Update is one decoded framebuffer update. Width and Height give the
// framebuffer size once the update has been applied.
type Update struct {
	Rectangles []Rectangle
	Width      int
	Height     int
}

// Resized reports whether the update carries a desktop-size change.
func (u *Update) Resized() (image.Point, bool) {
	for _, rect := range u.Rectangles {
		if ds, ok := rect.Enc.(*DesktopSizePseudoEncoding); ok {
			return image.Pt(int(ds.Width), int(ds.Height)), true
		}
	}
	return image.Point{}, false
}

// Target identifies a remote desktop. Host is a host name, an IP address or a
// ws:// or wss:// websockify URL; Display selects TCP port 5900+Display and is
// ignored for websocket URLs.
type Target struct {
	Host    string
	Display int
}

// ProtocolEvents receives notifications from a Protocol's pump goroutine.
type ProtocolEvents interface {
	// OnUpdate is called for every framebuffer update. The next update is
	// not read until OnUpdate returns.
	OnUpdate(u *Update)

	// OnConnectionLost is called at most once when the stream fails or ends.
	// It is not called after a local Disconnect.
	OnConnectionLost(err error)

	// OnServerCutText is called when the server publishes clipboard text.
	OnServerCutText(text string)
}

// Protocol is the wire-level collaborator driven by a RemoteDesktop. Connect
// or ConnectStream runs the version and security handshake, Authenticate
// answers a password challenge, Initialize exchanges the init messages and
// StartUpdates starts the pump goroutine that delivers ProtocolEvents.
type Protocol interface {
	// Connect opens the transport to t and negotiates security. It reports
	// whether a password challenge is pending.
	Connect(ctx context.Context, t Target) (bool, error)

	// ConnectStream negotiates over a pre-opened stream. With playback set,
	// r is an FBS recording and client messages are discarded.
	ConnectStream(ctx context.Context, r io.Reader, playback bool) error

	// Authenticate answers the pending password challenge. A rejected
	// password yields false with an ErrAuthentication error carrying the
	// server's reason.
	Authenticate(ctx context.Context, password string) (bool, error)

	Initialize(ctx context.Context, streaming bool) error
	Framebuffer() FramebufferInfo
	StartUpdates(streaming bool) error

	RequestScreenUpdate(full bool) error
	WritePointerEvent(mask ButtonMask, p image.Point) error
	WriteKeyboardEvent(keysym uint32, down bool) error
	WriteClientCutText(text string) error

	// SetEventHandler replaces the event receiver; nil unsubscribes.
	SetEventHandler(h ProtocolEvents)
	Disconnect() error
	Hostname() string
}
