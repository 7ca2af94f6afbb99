package tracking

import (
	"context"
	"fmt"
	"sync/atomic"
)

// Global debug function for tracking package
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

// Ingest drains a tracker transport into a Store. It reflects the
// connection lifecycle through Status but owns no retry policy of its
// own; the transport decides how reconnection happens.
type Ingest struct {
	store     *Store
	transport Transport

	status    int32
	malformed int64
	received  int64
}

// NewIngest wires a transport to a snapshot store.
func NewIngest(store *Store, transport Transport) *Ingest {
	return &Ingest{store: store, transport: transport}
}

// Run consumes the stream until ctx is cancelled. Reconnects follow the
// transport's policy; message handling never panics the loop.
func (in *Ingest) Run(ctx context.Context) {
	defer in.setStatus(StatusIdle)
	for {
		in.setStatus(StatusConnecting)
		stream, err := in.transport.Connect(ctx)
		if err != nil {
			return // only context cancellation escapes Connect
		}
		in.setStatus(StatusOpen)
		debugMsg("TRACKS", fmt.Sprintf("stream open (%s)", in.transport.Kind()))

		in.drain(ctx, stream)
		stream.Close()
		if ctx.Err() != nil {
			return
		}
		in.setStatus(StatusError)
		debugMsg("TRACKS", "stream lost, reconnecting")
	}
}

func (in *Ingest) drain(ctx context.Context, stream Stream) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-stream.Done():
			return
		case raw, ok := <-stream.Messages():
			if !ok {
				return
			}
			in.handle(raw)
		}
	}
}

// handle routes one raw payload. Malformed messages are counted and
// dropped; they are not errors.
func (in *Ingest) handle(raw []byte) {
	msg, ok := Parse(raw)
	if !ok {
		atomic.AddInt64(&in.malformed, 1)
		return
	}
	atomic.AddInt64(&in.received, 1)
	switch m := msg.(type) {
	case *Hello:
		in.store.SetRoster(m)
		debugMsg("TRACKS", fmt.Sprintf("hello: %d cameras, version %d", len(m.Cameras), m.Version))
	case *Snapshot:
		in.store.PutSnapshot(m)
	}
}

func (in *Ingest) setStatus(s Status) {
	atomic.StoreInt32(&in.status, int32(s))
}

// Status returns the current connection status.
func (in *Ingest) Status() Status {
	return Status(atomic.LoadInt32(&in.status))
}

// Counters reports received and dropped message totals.
func (in *Ingest) Counters() (received, malformed int64) {
	return atomic.LoadInt64(&in.received), atomic.LoadInt64(&in.malformed)
}
