package ws

// Hub bertanggung jawab untuk:
// menyimpan koneksi layar monitor, menerima event dari service,
// dan broadcast event ke semua layar yang terhubung.

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Message adalah envelope yang dikirim ke layar.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
	At   int64       `json:"at"`
}

// Client mewakili koneksi WebSocket
type Client struct {
	Conn *websocket.Conn
	Send chan []byte
}

// Hub mengelola semua koneksi client
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	count      chan chan int
	done       chan struct{}
	log        zerolog.Logger
}

func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		count:      make(chan chan int),
		done:       make(chan struct{}),
		log:        log.With().Str("component", "ws_hub").Logger(),
	}
}

// Run memproses register, unregister, dan broadcast sampai ctx selesai.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				close(client.Send)
				delete(h.clients, client)
			}
			return
		case client := <-h.register:
			h.clients[client] = true
			h.log.Debug().Int("clients", len(h.clients)).Msg("client registered")
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
				h.log.Debug().Int("clients", len(h.clients)).Msg("client unregistered")
			}
		case message := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.Send <- message:
				default:
					// layar yang macet diputus, nanti reconnect dan dapat state awal lagi
					close(client.Send)
					delete(h.clients, client)
				}
			}
		case reply := <-h.count:
			reply <- len(h.clients)
		}
	}
}

// BroadcastJSON membungkus data dalam envelope {type, data, at}. Tidak memblok:
// jika antrian broadcast penuh, event dibuang.
func (h *Hub) BroadcastJSON(event string, data interface{}) error {
	payload, err := json.Marshal(Message{Type: event, Data: data, At: time.Now().UnixMilli()})
	if err != nil {
		return err
	}
	select {
	case h.broadcast <- payload:
	default:
		h.log.Warn().Str("event", event).Msg("broadcast queue full, event dropped")
	}
	return nil
}

// ClientCount hanya valid saat Run berjalan.
func (h *Hub) ClientCount(ctx context.Context) int {
	reply := make(chan int, 1)
	select {
	case h.count <- reply:
	case <-ctx.Done():
		return 0
	}
	select {
	case n := <-reply:
		return n
	case <-ctx.Done():
		return 0
	}
}
