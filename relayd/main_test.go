package main

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func startHub(t *testing.T) (*WsHub, string) {
	t.Helper()
	hub := NewWsHub()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handleClient(hub, w, r)
	}))
	t.Cleanup(srv.Close)
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	// Every client is greeted first.
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, "relay-hello", gjson.GetBytes(raw, "type").String())
	return conn
}

func TestRelayBroadcastsTextToAllClients(t *testing.T) {
	hub, url := startHub(t)
	a := dial(t, url)
	b := dial(t, url)
	assert.Equal(t, 2, hub.count())

	payload := `{"type":"takeuchi-text","id":"x1","text":"ことば","hue":0.4,"yN":0.2}`
	require.NoError(t, a.WriteMessage(websocket.TextMessage, []byte(payload)))

	for _, conn := range []*websocket.Conn{a, b} {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, raw, err := conn.ReadMessage()
		require.NoError(t, err)
		assert.Equal(t, "ことば", gjson.GetBytes(raw, "text").String())
		// Missing timestamps are stamped by the relay.
		assert.True(t, gjson.GetBytes(raw, "at").Exists())
		assert.Greater(t, gjson.GetBytes(raw, "at").Float(), 0.0)
	}
}

func TestRelayKeepsSenderTimestamp(t *testing.T) {
	_, url := startHub(t)
	a := dial(t, url)

	payload := `{"type":"takeuchi-text","id":"x2","text":"t","at":123.5}`
	require.NoError(t, a.WriteMessage(websocket.TextMessage, []byte(payload)))

	a.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := a.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, 123.5, gjson.GetBytes(raw, "at").Float())
}

func TestRelayAbsorbsStatusAndDropsJunk(t *testing.T) {
	_, url := startHub(t)
	a := dial(t, url)
	b := dial(t, url)

	require.NoError(t, a.WriteMessage(websocket.TextMessage, []byte(`{"type":"takeuchi-status","fps":30}`)))
	require.NoError(t, a.WriteMessage(websocket.TextMessage, []byte(`{{{not json`)))
	require.NoError(t, a.WriteMessage(websocket.TextMessage, []byte(`{"type":"takeuchi-text","text":"after"}`)))

	// The only broadcast that reaches b is the text event.
	b.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := b.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, "after", gjson.GetBytes(raw, "text").String())
}
