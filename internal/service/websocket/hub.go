package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"facecam/internal/dto"
	"facecam/internal/logger"

	"github.com/gorilla/websocket"
)

const writeWait = 2 * time.Second

// Conn is the part of *websocket.Conn the hub writes to.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// HubService fans messages out to connected browser viewers.
type HubService struct {
	clients    map[Conn]bool
	broadcast  chan []byte
	notices    chan []byte
	register   chan Conn
	unregister chan Conn
	done       chan struct{}
	mutex      sync.RWMutex
	logger     *logger.Logger
}

func NewHubService(logger *logger.Logger) *HubService {
	return &HubService{
		clients:    make(map[Conn]bool),
		broadcast:  make(chan []byte, 1),
		notices:    make(chan []byte, 16),
		register:   make(chan Conn),
		unregister: make(chan Conn),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run serves registrations and broadcasts until ctx is cancelled, then closes all clients.
func (h *HubService) Run(ctx context.Context) {
	defer close(h.done)

	for {
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
			total := len(h.clients)
			h.mutex.Unlock()
			h.logger.Info("Viewer connected. Total: %d", total)

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.Close()
			}
			total := len(h.clients)
			h.mutex.Unlock()
			h.logger.Info("Viewer disconnected. Total: %d", total)

		case message := <-h.notices:
			h.send(message)

		case message := <-h.broadcast:
			h.send(message)
		}
	}
}

func (h *HubService) send(message []byte) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	for client := range h.clients {
		client.SetWriteDeadline(time.Now().Add(writeWait))
		if err := client.WriteMessage(websocket.TextMessage, message); err != nil {
			h.logger.Warning("Dropping viewer: %v", err)
			delete(h.clients, client)
			client.Close()
		}
	}
}

// Register adds a viewer. It returns false once the hub has stopped.
func (h *HubService) Register(client Conn) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *HubService) Unregister(client Conn) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Broadcast queues message for all viewers. A message still waiting to be
// sent is replaced, so slow viewers only ever get the newest one.
func (h *HubService) Broadcast(message []byte) {
	for {
		select {
		case h.broadcast <- message:
			return
		case <-h.done:
			return
		default:
		}
		select {
		case <-h.broadcast:
		default:
		}
	}
}

// BroadcastNotice sends a notice to all viewers.
func (h *HubService) BroadcastNotice(notice dto.Notice) {
	data, err := json.Marshal(dto.NoticeMessage{Type: dto.MessageNotice, Notice: notice})
	if err != nil {
		h.logger.Error("Error encoding notice: %v", err)
		return
	}
	select {
	case h.notices <- data:
	default:
		h.logger.Warning("Notice queue full, dropping %s notice", notice.Kind)
	}
}

func (h *HubService) GetClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// Done is closed when Run has returned.
func (h *HubService) Done() <-chan struct{} {
	return h.done
}
