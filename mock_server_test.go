// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Ryan Johnson

package vnc

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type keyEvent struct {
	Keysym uint32
	Down   bool
}

type pointerEvent struct {
	Mask ButtonMask
	X, Y uint16
}

// MockVNCServer is a single-purpose RFB server for engine tests. It speaks
// whichever version the client answers with and records every client
// message it receives.
type MockVNCServer struct {
	listener net.Listener
	addr     string
	wg       sync.WaitGroup

	// Configuration
	Version     string
	AuthMethods []uint8
	Password    string
	FrameWidth  uint16
	FrameHeight uint16
	DesktopName string
	SendUpdates bool
	CutText     string

	mu          sync.Mutex
	conns       []net.Conn
	clientVer   string
	pixelFormat *PixelFormat
	encodings   []int32
	requests    []bool
	keys        []keyEvent
	pointers    []pointerEvent
	cutTexts    []string
}

// NewMockVNCServer returns a 3.8 server without authentication.
func NewMockVNCServer() *MockVNCServer {
	return &MockVNCServer{
		Version:     "003.008",
		AuthMethods: []uint8{SecurityNone},
		FrameWidth:  800,
		FrameHeight: 600,
		DesktopName: "Mock VNC Server",
	}
}

// Start listens on a random loopback port.
func (m *MockVNCServer) Start(t *testing.T) {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	m.listener = listener
	m.addr = listener.Addr().String()

	m.wg.Add(1)
	go m.serve()
	t.Cleanup(m.Stop)
}

// Stop closes the listener and every client connection.
func (m *MockVNCServer) Stop() {
	if m.listener != nil {
		m.listener.Close()
	}
	m.DropClients()
	m.wg.Wait()
}

// DropClients closes client connections, simulating a server going away.
func (m *MockVNCServer) DropClients() {
	m.mu.Lock()
	conns := m.conns
	m.conns = nil
	m.mu.Unlock()
	for _, c := range conns {
		c.Close()
	}
}

// Target returns the display the server listens on.
func (m *MockVNCServer) Target(t *testing.T) Target {
	t.Helper()
	host, port, err := net.SplitHostPort(m.addr)
	require.NoError(t, err)
	p, err := strconv.Atoi(port)
	require.NoError(t, err)
	if p < BasePort {
		t.Skipf("listener port %d is below %d", p, BasePort)
	}
	return Target{Host: host, Display: p - BasePort}
}

// HostDisplay returns the target in "host:display" form.
func (m *MockVNCServer) HostDisplay(t *testing.T) string {
	tg := m.Target(t)
	return fmt.Sprintf("%s:%d", tg.Host, tg.Display)
}

func (m *MockVNCServer) serve() {
	defer m.wg.Done()
	for {
		conn, err := m.listener.Accept()
		if err != nil {
			return
		}
		m.mu.Lock()
		m.conns = append(m.conns, conn)
		m.mu.Unlock()

		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			defer conn.Close()
			if err := m.handshake(conn); err != nil {
				return
			}
			m.handleMessages(conn)
		}()
	}
}

func (m *MockVNCServer) handshake(conn net.Conn) error {
	if _, err := io.WriteString(conn, "RFB "+m.Version+"\n"); err != nil {
		return err
	}
	reply := make([]byte, 12)
	if _, err := io.ReadFull(conn, reply); err != nil {
		return err
	}
	m.mu.Lock()
	m.clientVer = string(reply)
	m.mu.Unlock()

	_, minor, err := parseProtocolVersion(reply)
	if err != nil {
		return err
	}

	var selected uint8
	if minor < 7 {
		selected = m.AuthMethods[0]
		if err := binary.Write(conn, binary.BigEndian, uint32(selected)); err != nil {
			return err
		}
	} else {
		msg := append([]byte{uint8(len(m.AuthMethods))}, m.AuthMethods...) // #nosec G115 - test data
		if _, err := conn.Write(msg); err != nil {
			return err
		}
		choice := make([]byte, 1)
		if _, err := io.ReadFull(conn, choice); err != nil {
			return err
		}
		selected = choice[0]
	}

	switch selected {
	case SecurityNone:
		if minor >= 8 {
			if err := binary.Write(conn, binary.BigEndian, uint32(0)); err != nil {
				return err
			}
		}
	case SecurityVNCAuth:
		if err := m.checkPassword(conn, minor); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unexpected security type %d", selected)
	}

	clientInit := make([]byte, 1)
	if _, err := io.ReadFull(conn, clientInit); err != nil {
		return err
	}

	var init rfbStream
	init.serverInit(m.FrameWidth, m.FrameHeight, PixelFormat32BitRGBA, m.DesktopName)
	if m.CutText != "" {
		init.u8(msgServerCutText).u8(0).u16(0).str(m.CutText)
	}
	_, err = conn.Write(init.Bytes())
	return err
}

func (m *MockVNCServer) checkPassword(conn net.Conn, minor uint) error {
	challenge := []byte("0123456789abcdef")
	if _, err := conn.Write(challenge); err != nil {
		return err
	}
	response := make([]byte, VNCChallengeSize)
	if _, err := io.ReadFull(conn, response); err != nil {
		return err
	}
	expected, err := encryptChallenge(m.Password, challenge)
	if err != nil {
		return err
	}
	if bytes.Equal(response, expected) {
		return binary.Write(conn, binary.BigEndian, uint32(0))
	}

	var result rfbStream
	result.u32(1)
	if minor >= 8 {
		result.str("password mismatch")
	}
	conn.Write(result.Bytes())
	return fmt.Errorf("authentication failed")
}

func (m *MockVNCServer) handleMessages(conn net.Conn) {
	for {
		var msgType [1]byte
		if _, err := io.ReadFull(conn, msgType[:]); err != nil {
			return
		}

		switch msgType[0] {
		case 0: // SetPixelFormat
			buf := make([]byte, 19)
			if _, err := io.ReadFull(conn, buf); err != nil {
				return
			}
			var pf PixelFormat
			if err := readPixelFormat(bytes.NewReader(buf[3:]), &pf); err != nil {
				return
			}
			m.mu.Lock()
			m.pixelFormat = &pf
			m.mu.Unlock()

		case 2: // SetEncodings
			head := make([]byte, 3)
			if _, err := io.ReadFull(conn, head); err != nil {
				return
			}
			n := binary.BigEndian.Uint16(head[1:])
			body := make([]byte, 4*int(n))
			if _, err := io.ReadFull(conn, body); err != nil {
				return
			}
			encs := make([]int32, n)
			for i := range encs {
				encs[i] = int32(binary.BigEndian.Uint32(body[4*i:])) // #nosec G115 - signed wire value
			}
			m.mu.Lock()
			m.encodings = encs
			m.mu.Unlock()

		case 3: // FramebufferUpdateRequest
			buf := make([]byte, 9)
			if _, err := io.ReadFull(conn, buf); err != nil {
				return
			}
			m.mu.Lock()
			m.requests = append(m.requests, buf[0] != 0)
			pf := PixelFormat32BitRGBA
			if m.pixelFormat != nil {
				pf = m.pixelFormat
			}
			m.mu.Unlock()

			if m.SendUpdates {
				var u rfbStream
				u.update(1).rect(0, 0, 10, 10, 0).pixels(pf, red, 100)
				if _, err := conn.Write(u.Bytes()); err != nil {
					return
				}
			}

		case 4: // KeyEvent
			buf := make([]byte, 7)
			if _, err := io.ReadFull(conn, buf); err != nil {
				return
			}
			m.mu.Lock()
			m.keys = append(m.keys, keyEvent{Keysym: binary.BigEndian.Uint32(buf[3:]), Down: buf[0] != 0})
			m.mu.Unlock()

		case 5: // PointerEvent
			buf := make([]byte, 5)
			if _, err := io.ReadFull(conn, buf); err != nil {
				return
			}
			m.mu.Lock()
			m.pointers = append(m.pointers, pointerEvent{
				Mask: ButtonMask(buf[0]),
				X:    binary.BigEndian.Uint16(buf[1:]),
				Y:    binary.BigEndian.Uint16(buf[3:]),
			})
			m.mu.Unlock()

		case 6: // ClientCutText
			head := make([]byte, 7)
			if _, err := io.ReadFull(conn, head); err != nil {
				return
			}
			text := make([]byte, binary.BigEndian.Uint32(head[3:]))
			if _, err := io.ReadFull(conn, text); err != nil {
				return
			}
			m.mu.Lock()
			m.cutTexts = append(m.cutTexts, string(text))
			m.mu.Unlock()

		default:
			return
		}
	}
}

// ClientVersion returns the version string the client answered with.
func (m *MockVNCServer) ClientVersion() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.clientVer
}

// PixelFormat returns the format requested by the client, if any.
func (m *MockVNCServer) PixelFormat() *PixelFormat {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pixelFormat
}

func (m *MockVNCServer) Encodings() []int32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int32(nil), m.encodings...)
}

// Requests returns the incremental flag of every update request.
func (m *MockVNCServer) Requests() []bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]bool(nil), m.requests...)
}

func (m *MockVNCServer) Keys() []keyEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]keyEvent(nil), m.keys...)
}

func (m *MockVNCServer) Pointers() []pointerEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]pointerEvent(nil), m.pointers...)
}

func (m *MockVNCServer) CutTexts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.cutTexts...)
}

// eventually waits for cond with the timing used throughout the tests.
func eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	require.Eventually(t, cond, 5*time.Second, 10*time.Millisecond, msg)
}
