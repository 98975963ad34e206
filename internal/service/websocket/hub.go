package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"labelcam/internal/logger"
)

const (
	KindLive   = "live"
	KindReview = "review"

	writeWait       = 5 * time.Second
	broadcastBuffer = 16
)

// Envelope is the message format sent to every viewer.
type Envelope struct {
	Kind string `json:"kind"`
	Data any    `json:"data"`
}

// HubService fans messages out to connected WebSocket viewers.
type HubService struct {
	clients    map[*websocket.Conn]bool
	broadcast  chan envelopeMsg
	reviews    chan []byte
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	latest     map[string][]byte
	done       chan struct{}
	mutex      sync.RWMutex
	logger     *logger.Logger
}

type envelopeMsg struct {
	kind    string
	payload []byte
}

func NewHubService(logger *logger.Logger) *HubService {
	return &HubService{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan envelopeMsg, broadcastBuffer),
		reviews:    make(chan []byte, 1),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		latest:     make(map[string][]byte),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run serves register, unregister and broadcast requests until ctx is done,
// then closes every client.
func (h *HubService) Run(ctx context.Context) {
	defer close(h.done)
	for {
		// Review snapshots go out before anything else queued.
		select {
		case payload := <-h.reviews:
			h.deliver(KindReview, payload)
			continue
		default:
		}

		select {
		case <-ctx.Done():
			h.mutex.Lock()
			for client := range h.clients {
				client.Close()
				delete(h.clients, client)
			}
			h.mutex.Unlock()
			return

		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.mutex.Unlock()
			h.logger.Info("Client connected. Total: %d", count)

			// A review snapshot only changes on user action, so newcomers get the last one.
			if msg, ok := h.latest[KindReview]; ok {
				h.send(client, msg)
			}

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.Close()
			}
			count := len(h.clients)
			h.mutex.Unlock()
			h.logger.Info("Client disconnected. Total: %d", count)

		case payload := <-h.reviews:
			h.deliver(KindReview, payload)

		case msg := <-h.broadcast:
			h.deliver(msg.kind, msg.payload)
		}
	}
}

func (h *HubService) deliver(kind string, payload []byte) {
	h.latest[kind] = payload
	h.mutex.RLock()
	clients := make([]*websocket.Conn, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mutex.RUnlock()
	for _, client := range clients {
		h.send(client, payload)
	}
}

func (h *HubService) send(client *websocket.Conn, payload []byte) {
	client.SetWriteDeadline(time.Now().Add(writeWait))
	if err := client.WriteMessage(websocket.TextMessage, payload); err != nil {
		h.logger.Error("Error sending message: %v", err)
		h.mutex.Lock()
		delete(h.clients, client)
		h.mutex.Unlock()
		client.Close()
	}
}

// Register adds a viewer. After the hub stopped the connection is closed instead.
func (h *HubService) Register(client *websocket.Conn) {
	select {
	case h.register <- client:
	case <-h.done:
		client.Close()
	}
}

func (h *HubService) Unregister(client *websocket.Conn) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Broadcast queues data for every viewer, wrapped in an Envelope of the
// given kind. When the queue is full the message is dropped. Review
// snapshots are never dropped: an unsent one is replaced by the newer.
func (h *HubService) Broadcast(kind string, data any) error {
	payload, err := json.Marshal(Envelope{Kind: kind, Data: data})
	if err != nil {
		return fmt.Errorf("encoding %s message: %w", kind, err)
	}
	if kind == KindReview {
		h.queueReview(payload)
		return nil
	}
	select {
	case h.broadcast <- envelopeMsg{kind: kind, payload: payload}:
	default:
		h.logger.Warning("Broadcast queue full, dropping %s message", kind)
	}
	return nil
}

func (h *HubService) queueReview(payload []byte) {
	for {
		select {
		case h.reviews <- payload:
			return
		default:
		}
		select {
		case <-h.reviews:
		default:
		}
	}
}

func (h *HubService) GetClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}
