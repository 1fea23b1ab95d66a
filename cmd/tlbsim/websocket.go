package main

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// txHub broadcasts every emitted transaction to every connected websocket
// client. A single broadcast channel - the demo has one stream (emitted
// transactions), not per-symbol orderbook subscriptions.
type txHub struct {
	clients    map[*txClient]bool
	broadcast  chan []byte
	register   chan *txClient
	unregister chan *txClient
	mu         sync.RWMutex
}

func newTxHub() *txHub {
	return &txHub{
		clients:    make(map[*txClient]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *txClient),
		unregister: make(chan *txClient),
	}
}

func (h *txHub) run() {
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			h.mu.Unlock()
		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()
		case msg := <-h.broadcast:
			h.mu.RLock()
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					close(c.send)
					delete(h.clients, c)
				}
			}
			h.mu.RUnlock()
		}
	}
}

// relay pumps values from a channel of arbitrary JSON-able payloads onto the
// hub's broadcast channel, marshaling each as it arrives.
func (h *txHub) relay(txs <-chan any) {
	for tx := range txs {
		data, err := json.Marshal(tx)
		if err != nil {
			log.Printf("[ws] marshal error: %v", err)
			continue
		}
		select {
		case h.broadcast <- data:
		default:
		}
	}
}

type txClient struct {
	conn *websocket.Conn
	send chan []byte
}

func (c *txClient) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *txClient) readPump(hub *txHub) {
	defer func() {
		hub.unregister <- c
		c.conn.Close()
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (h *txHub) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[ws] upgrade error: %v", err)
		return
	}
	client := &txClient{conn: conn, send: make(chan []byte, 256)}
	h.register <- client
	go client.writePump()
	go client.readPump(h)
}
