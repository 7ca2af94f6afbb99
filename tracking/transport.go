package tracking

import (
	"bufio"
	"context"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// Status reflects the ingest connection lifecycle:
// idle -> connecting -> open -> error -> connecting -> ...
type Status int32

const (
	StatusIdle Status = iota
	StatusConnecting
	StatusOpen
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusConnecting:
		return "connecting"
	case StatusOpen:
		return "open"
	case StatusError:
		return "error"
	}
	return "unknown"
}

// Backoff yields the reconnect delay schedule: 1s, 2s, 4s, 8s, then 8s
// forever until Reset. A successful open resets to the first delay.
type Backoff struct {
	delays  []time.Duration
	attempt int
}

// NewBackoff returns the standard 1/2/4/8 second schedule.
func NewBackoff() *Backoff {
	return &Backoff{
		delays: []time.Duration{
			1 * time.Second,
			2 * time.Second,
			4 * time.Second,
			8 * time.Second,
		},
	}
}

// Next returns the delay for the current attempt and advances.
func (b *Backoff) Next() time.Duration {
	i := b.attempt
	if i >= len(b.delays) {
		i = len(b.delays) - 1
	}
	b.attempt++
	return b.delays[i]
}

// Reset restores the schedule to its first delay.
func (b *Backoff) Reset() {
	b.attempt = 0
}

// Stream is one live connection to the tracker. Messages carries raw
// payloads; Done is closed (after an error is delivered or the channel
// is closed) when the stream dies.
type Stream interface {
	Messages() <-chan []byte
	Done() <-chan error
	Close() error
}

// Transport is the connection strategy. A websocket transport retries
// with explicit client-side backoff inside Connect; a server-sent-event
// transport hands back a stream that owns its own reconnection and only
// dies on context cancellation.
type Transport interface {
	Connect(ctx context.Context) (Stream, error)
	Kind() string
}

// WSTransport connects to a websocket tracker endpoint with explicit
// exponential backoff.
type WSTransport struct {
	URL         string
	DialTimeout time.Duration
	backoff     *Backoff
}

// NewWSTransport returns a websocket transport for the given ws:// URL.
func NewWSTransport(url string) *WSTransport {
	return &WSTransport{
		URL:         url,
		DialTimeout: 10 * time.Second,
		backoff:     NewBackoff(),
	}
}

func (t *WSTransport) Kind() string { return "websocket" }

// Connect dials until a connection is established or ctx is cancelled,
// sleeping the backoff schedule between failed attempts.
func (t *WSTransport) Connect(ctx context.Context) (Stream, error) {
	for {
		dialCtx, cancel := context.WithTimeout(ctx, t.DialTimeout)
		conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, t.URL, nil)
		cancel()
		if err == nil {
			t.backoff.Reset()
			return newWSStream(conn), nil
		}
		delay := t.backoff.Next()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
}

type wsStream struct {
	conn      *websocket.Conn
	msgs      chan []byte
	done      chan error
	quit      chan struct{}
	closeOnce sync.Once
}

func newWSStream(conn *websocket.Conn) *wsStream {
	s := &wsStream{
		conn: conn,
		msgs: make(chan []byte, 64),
		done: make(chan error, 1),
		quit: make(chan struct{}),
	}
	go s.readLoop()
	return s
}

func (s *wsStream) readLoop() {
	defer close(s.msgs)
	for {
		_, payload, err := s.conn.ReadMessage()
		if err != nil {
			s.done <- err
			close(s.done)
			return
		}
		// The consumer may have closed the stream with the buffer
		// full; a plain send would strand this goroutine forever.
		select {
		case s.msgs <- payload:
		case <-s.quit:
			return
		}
	}
}

func (s *wsStream) Messages() <-chan []byte { return s.msgs }
func (s *wsStream) Done() <-chan error      { return s.done }

func (s *wsStream) Close() error {
	s.closeOnce.Do(func() { close(s.quit) })
	return s.conn.Close()
}

// SSETransport consumes a text/event-stream endpoint. Reconnection is
// owned by the stream itself (mirroring EventSource semantics); the
// caller only ever sees the stream end when its context is cancelled.
type SSETransport struct {
	URL        string
	Client     *http.Client
	RetryDelay time.Duration
}

// NewSSETransport returns an SSE transport for the given http:// URL.
func NewSSETransport(url string) *SSETransport {
	return &SSETransport{
		URL:        url,
		Client:     &http.Client{},
		RetryDelay: 3 * time.Second,
	}
}

func (t *SSETransport) Kind() string { return "sse" }

// Connect starts the stream immediately; dial failures are retried
// internally and are invisible to the caller.
func (t *SSETransport) Connect(ctx context.Context) (Stream, error) {
	ctx, cancel := context.WithCancel(ctx)
	s := &sseStream{
		transport: t,
		cancel:    cancel,
		msgs:      make(chan []byte, 64),
		done:      make(chan error, 1),
	}
	go s.run(ctx)
	return s, nil
}

type sseStream struct {
	transport *SSETransport
	cancel    context.CancelFunc
	msgs      chan []byte
	done      chan error
	retryNs   int64 // server-advertised retry delay, atomic
}

// retryDelay returns the server's last advertised retry interval, or
// the transport default when the server never sent one.
func (s *sseStream) retryDelay() time.Duration {
	if ns := atomic.LoadInt64(&s.retryNs); ns > 0 {
		return time.Duration(ns)
	}
	return s.transport.RetryDelay
}

func (s *sseStream) run(ctx context.Context) {
	defer close(s.msgs)
	defer close(s.done)
	for {
		s.consumeOnce(ctx)
		select {
		case <-ctx.Done():
			s.done <- ctx.Err()
			return
		case <-time.After(s.retryDelay()):
		}
	}
}

// consumeOnce runs one HTTP connection until it breaks. Transport-level
// failures are swallowed; the outer loop handles the retry pause.
func (s *sseStream) consumeOnce(ctx context.Context) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.transport.URL, nil)
	if err != nil {
		return
	}
	req.Header.Set("Accept", "text/event-stream")
	resp, err := s.transport.Client.Do(req)
	if err != nil {
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	var data strings.Builder
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			if data.Len() > 0 {
				payload := []byte(data.String())
				data.Reset()
				select {
				case s.msgs <- payload:
				case <-ctx.Done():
					return
				}
			}
			continue
		}
		if strings.HasPrefix(line, "retry:") {
			if ms, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, "retry:"))); err == nil && ms >= 0 {
				atomic.StoreInt64(&s.retryNs, int64(ms)*int64(time.Millisecond))
			}
			continue
		}
		if strings.HasPrefix(line, "data:") {
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.WriteString(strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}
	}
}

func (s *sseStream) Messages() <-chan []byte { return s.msgs }
func (s *sseStream) Done() <-chan error      { return s.done }

func (s *sseStream) Close() error {
	s.cancel()
	return nil
}
