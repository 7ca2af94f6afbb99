package relay

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeTextEvent(t *testing.T) {
	ev, ok := DecodeTextEvent([]byte(`{"type":"takeuchi-text","id":"abc","text":"ことば","hue":0.6,"yN":0.3,"at":1700000000.5}`))
	require.True(t, ok)
	assert.Equal(t, "ことば", ev.Text)
	assert.InDelta(t, 0.6, ev.Hue, 1e-9)
	assert.InDelta(t, 0.3, ev.YN, 1e-9)
}

func TestDecodeTextEventDropsJunk(t *testing.T) {
	for _, raw := range []string{
		``,
		`{`,
		`{"type":"takeuchi-status","text":"x"}`,
		`{"type":"takeuchi-text","text":""}`,
		`42`,
	} {
		_, ok := DecodeTextEvent([]byte(raw))
		assert.False(t, ok, "payload %q should be dropped", raw)
	}
}

func TestHubFanOut(t *testing.T) {
	h := NewHub()
	a, cancelA := h.Subscribe()
	b, cancelB := h.Subscribe()
	defer cancelB()

	h.Publish(TextEvent{Type: TypeText, Text: "x"})
	assert.Equal(t, "x", (<-a).Text)
	assert.Equal(t, "x", (<-b).Text)

	cancelA()
	assert.Equal(t, 1, h.Subscribers())
	h.Publish(TextEvent{Type: TypeText, Text: "y"})
	assert.Equal(t, "y", (<-b).Text)

	// Double cancel is harmless.
	cancelA()
}

func TestHubDropsWhenSubscriberStalls(t *testing.T) {
	h := NewHub()
	ch, cancel := h.Subscribe()
	defer cancel()

	// Fill the buffer past capacity; Publish must never block.
	for i := 0; i < 40; i++ {
		h.Publish(TextEvent{Type: TypeText, Text: "n"})
	}
	drained := 0
	for {
		select {
		case <-ch:
			drained++
			continue
		default:
		}
		break
	}
	assert.Equal(t, 16, drained)
}
