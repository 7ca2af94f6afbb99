// relayd is the WebSocket relay hub between the main installation app
// and companion projection displays. Every connected client receives
// every relayed message; takeuchi-status reports are absorbed and
// logged instead of rebroadcast.
package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

var (
	listenAddr = flag.String("addr", ":8766", "Listen address for the relay hub")
	wsPath     = flag.String("path", "/", "WebSocket endpoint path")
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true }, // installation LAN only
}

// WsHub fans every relayed message out to all connected clients.
type WsHub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
}

func NewWsHub() *WsHub {
	return &WsHub{clients: make(map[*websocket.Conn]struct{})}
}

func (h *WsHub) register(conn *websocket.Conn) int {
	h.mu.Lock()
	h.clients[conn] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	return n
}

func (h *WsHub) unregister(conn *websocket.Conn) int {
	h.mu.Lock()
	delete(h.clients, conn)
	n := len(h.clients)
	h.mu.Unlock()
	return n
}

// broadcast sends data to every client, dropping clients whose
// connection has gone bad.
func (h *WsHub) broadcast(data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			conn.Close()
			delete(h.clients, conn)
		}
	}
}

func (h *WsHub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func handleClient(hub *WsHub, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("upgrade failed: %v", err)
		return
	}
	// Greet before registering so the hello cannot interleave with a
	// concurrent broadcast on the same connection.
	hello := fmt.Sprintf(`{"type":"relay-hello","version":1,"ts":%.3f}`, unixSeconds())
	conn.WriteMessage(websocket.TextMessage, []byte(hello))

	n := hub.register(conn)
	log.Printf("client connected  (%d total)", n)

	defer func() {
		n := hub.unregister(conn)
		conn.Close()
		log.Printf("client disconnected (%d total)", n)
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if !gjson.ValidBytes(raw) {
			continue // malformed payloads are dropped, never relayed
		}
		msg := gjson.ParseBytes(raw)
		switch msg.Get("type").String() {
		case "takeuchi-status":
			// Status is for the server's eyes only.
			log.Printf("status: %s", raw)
			continue
		case "takeuchi-text":
			if !msg.Get("at").Exists() {
				if stamped, err := sjson.SetBytes(raw, "at", unixSeconds()); err == nil {
					raw = stamped
				}
			}
		}
		hub.broadcast(raw)
	}
}

func unixSeconds() float64 {
	return float64(time.Now().UnixMilli()) / 1000
}

func main() {
	flag.Parse()
	log.SetFlags(log.Ltime)

	hub := NewWsHub()
	http.HandleFunc(*wsPath, func(w http.ResponseWriter, r *http.Request) {
		handleClient(hub, w, r)
	})

	log.Printf("relay hub listening on %s%s", *listenAddr, *wsPath)
	if err := http.ListenAndServe(*listenAddr, nil); err != nil {
		log.Fatalf("relay hub: %v", err)
	}
}
