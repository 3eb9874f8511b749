// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Ryan Johnson

// Package vnc implements the client side of a VNC (RFB, RFC 6143) session:
// connection lifecycle, an update pump into a presentation surface, local
// input translation and replay of FBS session recordings.
//
// # Live Sessions
//
//	rd := vnc.NewRemoteDesktop(
//		vnc.WithLogger(vnc.NewZerologLogger(os.Stderr, "info")),
//		vnc.WithPasswordProvider(func(ctx context.Context, host string) (string, error) {
//			return os.Getenv("VNC_PASSWORD"), nil
//		}),
//	)
//	defer rd.Close()
//
//	rd.OnConnectComplete(func(fb vnc.FramebufferInfo) {
//		log.Printf("connected to %q (%dx%d)", fb.DesktopName, fb.Width, fb.Height)
//	})
//	rd.OnConnectionLost(func() {
//		log.Print("connection lost")
//	})
//
//	if _, err := rd.Connect(ctx, "localhost", vnc.WithDisplay(1)); err != nil {
//		log.Fatal(err)
//	}
//
// Without a PasswordProvider, Connect reports a pending password instead and
// the caller answers with Authenticate.
//
// # Playback
//
//	f, err := os.Open("session.fbs")
//	if err != nil {
//		log.Fatal(err)
//	}
//	if err := rd.ConnectStream(ctx, f); err != nil {
//		log.Fatal(err)
//	}
//
// Recordings are replayed at their original pace. FBSReader can also be used
// on its own to read records, and FBSWriter to produce them.
//
// # Input Events
//
//	rd.PointerEvent(vnc.PointerInput{X: 200, Y: 100, Left: true})
//	rd.KeyDown(vnc.KeyInput{Key: vnc.KeyA, Mods: vnc.ModShift})
//	rd.SendSpecialKeys(vnc.SpecialCtrlAltDel, true)
//
// Pointer positions are given in surface coordinates and scaled to the
// framebuffer.
//
// # Error Handling
//
//	if vnc.IsVNCError(err, vnc.ErrInvalidState) {
//		log.Printf("not connected: %v", err)
//	}
//
// # Thread Safety
//
// RemoteDesktop methods may be called from any goroutine. Surface methods and
// observer callbacks run on the session's Dispatcher goroutine.
package vnc
