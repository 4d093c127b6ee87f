// Package ddp implements a minimal client for the DDP protocol: a JSON
// message framing over websocket used by Meteor-style backends. It covers
// what the dispatcher needs — connect handshake, server pings, and method
// calls — and keeps a single long-lived connection alive with reconnects.
package ddp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// ErrNotConnected is returned when a call is attempted while the connection
// is down, reconnecting, or closing.
var ErrNotConnected = errors.New("ddp connection not available")

const (
	stateConnecting int32 = iota
	stateConnected
	stateReconnecting
	stateFailed
	stateClosing
	stateClosed
)

const handshakeTimeout = 10 * time.Second

type message struct {
	Msg     string          `json:"msg"`
	Version string          `json:"version,omitempty"`
	Support []string        `json:"support,omitempty"`
	Session string          `json:"session,omitempty"`
	ID      string          `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  []any           `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *remoteError    `json:"error,omitempty"`
}

type remoteError struct {
	Error   json.RawMessage `json:"error"`
	Reason  string          `json:"reason"`
	Message string          `json:"message"`
}

func (e *remoteError) Err() error {
	switch {
	case e.Reason != "":
		return fmt.Errorf("remote error: %s", e.Reason)
	case e.Message != "":
		return fmt.Errorf("remote error: %s", e.Message)
	default:
		return fmt.Errorf("remote error: %s", string(e.Error))
	}
}

type call struct {
	result json.RawMessage
	err    error
}

// Client is a DDP connection shared call-only across concurrent dispatches.
// Liveness is exposed through Healthy alone; callers never see connection
// internals.
type Client struct {
	url       string
	reconnect time.Duration
	log       zerolog.Logger

	state     atomic.Int32
	done      chan struct{}
	closeOnce sync.Once

	mu      sync.Mutex // guards conn, pending, nextID
	writeMu sync.Mutex // serializes websocket writes
	conn    *websocket.Conn
	pending map[string]chan call
	nextID  uint64
}

// Dial starts a client for the given ws:// URL. The connection is
// established in the background and re-established after failures, the
// original backoff starting at the configured reconnect interval. Dial
// never blocks on the network; check Healthy before calling.
func Dial(url string, reconnect time.Duration, log zerolog.Logger) *Client {
	c := &Client{
		url:       url,
		reconnect: reconnect,
		log:       log.With().Str("component", "ddp").Logger(),
		done:      make(chan struct{}),
		pending:   make(map[string]chan call),
	}
	c.state.Store(stateConnecting)
	go c.run()
	return c
}

// Healthy reports whether the connection is established and not in the
// middle of connecting, reconnecting, failing, or closing.
func (c *Client) Healthy() bool {
	return c.state.Load() == stateConnected
}

func (c *Client) Close() {
	c.closeOnce.Do(func() {
		// The state store and done close happen under mu so they serialize
		// with run() installing a freshly dialed connection: whichever side
		// wins the lock, a closed client never reports healthy.
		c.mu.Lock()
		c.state.Store(stateClosing)
		close(c.done)
		if c.conn != nil {
			c.conn.Close()
		}
		c.mu.Unlock()
		c.failPending(ErrNotConnected)
		c.state.Store(stateClosed)
	})
}

// Call invokes a named remote method and waits for its result. Cancelling
// the context abandons the call; a late result for an abandoned id is
// discarded by the reader.
func (c *Client) Call(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	if !c.Healthy() {
		return nil, ErrNotConnected
	}

	c.mu.Lock()
	c.nextID++
	id := strconv.FormatUint(c.nextID, 10)
	ch := make(chan call, 1)
	c.pending[id] = ch
	c.mu.Unlock()

	if err := c.write(message{Msg: "method", Method: method, Params: params, ID: id}); err != nil {
		c.forget(id)
		return nil, err
	}

	select {
	case <-ctx.Done():
		c.forget(id)
		return nil, ctx.Err()
	case res := <-ch:
		return res.result, res.err
	}
}

func (c *Client) run() {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.reconnect
	bo.MaxInterval = 30 * time.Second
	bo.MaxElapsedTime = 0

	reconnected := false
	for {
		select {
		case <-c.done:
			return
		default:
		}

		conn, err := c.handshake()
		if err != nil {
			c.state.Store(stateFailed)
			c.log.Error().Err(err).Str("url", c.url).Msg("ddp connect failed")
			select {
			case <-c.done:
				return
			case <-time.After(bo.NextBackOff()):
			}
			c.state.Store(stateReconnecting)
			continue
		}

		// Close may have run while the handshake was in flight; installing
		// the conn anyway would resurrect a closed client.
		c.mu.Lock()
		select {
		case <-c.done:
			c.mu.Unlock()
			conn.Close()
			return
		default:
		}
		c.conn = conn
		c.state.Store(stateConnected)
		c.mu.Unlock()
		bo.Reset()

		if reconnected {
			c.log.Warn().Str("url", c.url).Msg("reestablished ddp connection")
		} else {
			c.log.Info().Str("url", c.url).Msg("ddp connected")
			reconnected = true
		}

		c.readLoop(conn)
		conn.Close()
		c.failPending(ErrNotConnected)

		select {
		case <-c.done:
			return
		default:
		}
		c.state.Store(stateReconnecting)
		select {
		case <-c.done:
			return
		case <-time.After(bo.NextBackOff()):
		}
	}
}

func (c *Client) handshake() (*websocket.Conn, error) {
	conn, _, err := websocket.DefaultDialer.Dial(c.url, nil)
	if err != nil {
		return nil, err
	}

	hello := message{Msg: "connect", Version: "1", Support: []string{"1"}}
	if err := conn.WriteJSON(hello); err != nil {
		conn.Close()
		return nil, err
	}

	conn.SetReadDeadline(time.Now().Add(handshakeTimeout))
	for {
		var m message
		if err := conn.ReadJSON(&m); err != nil {
			conn.Close()
			return nil, err
		}
		switch m.Msg {
		case "connected":
			conn.SetReadDeadline(time.Time{})
			return conn, nil
		case "failed":
			conn.Close()
			return nil, fmt.Errorf("server rejected ddp version %q", m.Version)
		}
		// server_id and other preamble messages are skipped
	}
}

func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		var m message
		if err := conn.ReadJSON(&m); err != nil {
			if c.state.Load() != stateClosing {
				c.log.Warn().Err(err).Msg("ddp connection lost")
			}
			return
		}

		switch m.Msg {
		case "ping":
			if err := c.write(message{Msg: "pong", ID: m.ID}); err != nil {
				return
			}
		case "result":
			c.mu.Lock()
			ch, ok := c.pending[m.ID]
			if ok {
				delete(c.pending, m.ID)
			}
			c.mu.Unlock()
			if ok {
				res := call{result: m.Result}
				if m.Error != nil {
					res.err = m.Error.Err()
				}
				ch <- res
			}
		}
	}
}

func (c *Client) write(m message) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return conn.WriteJSON(m)
}

func (c *Client) forget(id string) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

func (c *Client) failPending(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn = nil
	for id, ch := range c.pending {
		ch <- call{err: err}
		delete(c.pending, id)
	}
}
