package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/haruni24/MojiNoYukue/tracking"

	"github.com/gorilla/websocket"
)

// Global debug function for relay package
var debugMsgFunc func(component, message string)

// SetDebugFunction allows the main package to provide its debug logger.
func SetDebugFunction(fn func(component, message string)) {
	debugMsgFunc = fn
}

func debugMsg(component, message string) {
	if debugMsgFunc != nil {
		debugMsgFunc(component, message)
	}
}

// Client keeps a WebSocket connection to the relay server, reconnecting
// with the standard 1/2/4/8s backoff. Events arriving from the relay
// are published into the local hub; locally sent events go both to the
// hub and, when connected, to the socket. A missing relay is an
// advisory condition, never fatal; the local hub keeps working.
type Client struct {
	url string
	hub *Hub

	mu   sync.Mutex
	conn *websocket.Conn
}

// NewClient returns a relay client for the given ws:// URL. An empty
// URL yields a hub-only client that never dials out.
func NewClient(url string, hub *Hub) *Client {
	return &Client{url: url, hub: hub}
}

// Run maintains the relay connection until ctx is cancelled. Safe to
// call with an empty URL; it then just waits for cancellation.
func (c *Client) Run(ctx context.Context) {
	if c.url == "" {
		<-ctx.Done()
		return
	}
	backoff := tracking.NewBackoff()
	for {
		dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, c.url, nil)
		cancel()
		if err != nil {
			delay := backoff.Next()
			debugMsg("RELAY", fmt.Sprintf("connect failed (%v), retry in %v", err, delay))
			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
				continue
			}
		}
		backoff.Reset()
		debugMsg("RELAY", "connected to "+c.url)
		c.setConn(conn)
		c.readLoop(ctx, conn)
		c.setConn(nil)
		conn.Close()
		if ctx.Err() != nil {
			return
		}
		debugMsg("RELAY", "connection lost")
	}
}

func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn) {
	go func() {
		<-ctx.Done()
		conn.Close()
	}()
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		ev, ok := DecodeTextEvent(raw)
		if !ok {
			continue // malformed or non-text payloads are dropped
		}
		c.hub.Publish(ev)
	}
}

func (c *Client) setConn(conn *websocket.Conn) {
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
}

// Send publishes a text event locally and forwards it to the relay
// when the socket is up.
func (c *Client) Send(ev TextEvent) {
	ev.Type = TypeText
	if ev.At == 0 {
		ev.At = float64(time.Now().UnixMilli()) / 1000
	}
	c.hub.Publish(ev)
	c.writeJSON(ev)
}

// SendStatus reports installation status toward the relay server. The
// server logs it; it is never rebroadcast to displays.
func (c *Client) SendStatus(status map[string]interface{}) {
	payload := map[string]interface{}{"type": TypeStatus}
	for k, v := range status {
		payload[k] = v
	}
	c.writeJSON(payload)
}

func (c *Client) writeJSON(v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	// gorilla allows one concurrent writer; the lock covers the write.
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return
	}
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		debugMsg("RELAY", fmt.Sprintf("write failed: %v", err))
	}
}
