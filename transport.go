// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Ryan Johnson

package vnc

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// BasePort is the TCP port of display 0.
const BasePort = 5900

// IsWebSocket reports whether the host is a websockify URL.
func (t Target) IsWebSocket() bool {
	return strings.HasPrefix(t.Host, "ws://") || strings.HasPrefix(t.Host, "wss://")
}

// Address returns the dial address: the URL for websocket targets and
// host:5900+display otherwise.
func (t Target) Address() string {
	if t.IsWebSocket() {
		return t.Host
	}
	return net.JoinHostPort(t.Host, strconv.Itoa(BasePort+t.Display))
}

// Validate checks the target before dialing.
func (t Target) Validate() error {
	if strings.TrimSpace(t.Host) == "" {
		return argumentError("Target.Validate", "host must not be empty")
	}
	if t.Display < 0 {
		return argumentError("Target.Validate", fmt.Sprintf("display must not be negative: %d", t.Display))
	}
	if !t.IsWebSocket() && BasePort+t.Display > 65535 {
		return argumentError("Target.Validate", fmt.Sprintf("display out of range: %d", t.Display))
	}
	return nil
}

// ParseTarget parses "host", "host:display" or a ws:// / wss:// URL.
// Bracketed IPv6 literals are accepted as "[::1]:1".
func ParseTarget(s string) (Target, error) {
	if strings.HasPrefix(s, "ws://") || strings.HasPrefix(s, "wss://") {
		return Target{Host: s}, nil
	}
	host, rest := s, ""
	switch {
	case strings.HasPrefix(s, "["):
		end := strings.Index(s, "]")
		if end < 0 {
			return Target{}, argumentError("ParseTarget", fmt.Sprintf("unterminated address %q", s))
		}
		host, rest = s[1:end], s[end+1:]
		if rest != "" && !strings.HasPrefix(rest, ":") {
			return Target{}, argumentError("ParseTarget", fmt.Sprintf("unexpected %q after address", rest))
		}
		rest = strings.TrimPrefix(rest, ":")
	case strings.Count(s, ":") == 1:
		i := strings.Index(s, ":")
		host, rest = s[:i], s[i+1:]
	}

	t := Target{Host: host}
	if rest != "" {
		d, err := strconv.Atoi(rest)
		if err != nil {
			return Target{}, argumentError("ParseTarget", fmt.Sprintf("invalid display %q", rest))
		}
		t.Display = d
	}
	return t, t.Validate()
}

// TransportConfig controls how targets are dialed.
type TransportConfig struct {
	DialTimeout time.Duration
	// InsecureTLS skips certificate verification for wss:// targets.
	InsecureTLS bool
}

// Validate rejects settings no dial can honour. A zero DialTimeout selects
// the default.
func (cfg TransportConfig) Validate() error {
	if cfg.DialTimeout < 0 {
		return configurationError("TransportConfig.Validate",
			fmt.Sprintf("dial timeout must not be negative, got %s", cfg.DialTimeout), nil)
	}
	return nil
}

func dialTarget(ctx context.Context, t Target, cfg TransportConfig) (net.Conn, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	timeout := cfg.DialTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	if !t.IsWebSocket() {
		d := &net.Dialer{Timeout: timeout}
		conn, err := d.DialContext(ctx, "tcp", t.Address())
		if err != nil {
			return nil, networkError("dial", fmt.Sprintf("failed to connect to %s", t.Address()), err)
		}
		return conn, nil
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: timeout,
		NetDialContext:   (&net.Dialer{Timeout: timeout}).DialContext,
		Subprotocols:     []string{"binary"},
	}
	if strings.HasPrefix(t.Host, "wss://") && cfg.InsecureTLS {
		dialer.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} // #nosec G402 - opt-in for self-signed websockify
	}
	ws, resp, err := dialer.DialContext(ctx, t.Host, http.Header{})
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, networkError("dial", fmt.Sprintf("websocket handshake with %s failed", t.Host), err)
	}
	return newWSConn(ws), nil
}

// wsConn presents a websocket carrying binary RFB frames as a net.Conn.
type wsConn struct {
	ws *websocket.Conn

	rmu sync.Mutex
	r   io.Reader

	wmu sync.Mutex
}

func newWSConn(ws *websocket.Conn) *wsConn {
	return &wsConn{ws: ws}
}

func (c *wsConn) Read(p []byte) (int, error) {
	c.rmu.Lock()
	defer c.rmu.Unlock()
	for {
		if c.r == nil {
			mt, r, err := c.ws.NextReader()
			if err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					return 0, io.EOF
				}
				return 0, err
			}
			if mt != websocket.BinaryMessage && mt != websocket.TextMessage {
				continue
			}
			c.r = r
		}
		n, err := c.r.Read(p)
		if err == io.EOF {
			c.r = nil
			if n > 0 {
				return n, nil
			}
			continue
		}
		return n, err
	}
}

func (c *wsConn) Write(p []byte) (int, error) {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	if err := c.ws.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (c *wsConn) Close() error {
	c.wmu.Lock()
	_ = c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	c.wmu.Unlock()
	return c.ws.Close()
}

func (c *wsConn) LocalAddr() net.Addr  { return c.ws.LocalAddr() }
func (c *wsConn) RemoteAddr() net.Addr { return c.ws.RemoteAddr() }

func (c *wsConn) SetDeadline(t time.Time) error {
	if err := c.ws.SetReadDeadline(t); err != nil {
		return err
	}
	return c.ws.SetWriteDeadline(t)
}

func (c *wsConn) SetReadDeadline(t time.Time) error  { return c.ws.SetReadDeadline(t) }
func (c *wsConn) SetWriteDeadline(t time.Time) error { return c.ws.SetWriteDeadline(t) }
