package realtime

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/camden-git/retrocam/models"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

// event types pushed to the shell
const (
	EventPhotoCreated  = "photo.created"
	EventPhotoFrame    = "photo.frame" // entrance animation progress
	EventPhotoSettled  = "photo.settled"
	EventPhotoUpdated  = "photo.updated"
	EventDemoCleared   = "desk.demo_cleared"
	EventDeskReset     = "desk.reset"
	EventShutter       = "camera.shutter"
	EventHintShow      = "hint.show"
	EventHintHide      = "hint.hide"
	EventExportFailed  = "export.failed"
	EventCameraProblem = "camera.error"
)

// Event represents a message sent to websocket clients
type Event struct {
	Type      string                 `json:"type"`
	PhotoID   string                 `json:"photo_id,omitempty"`
	Photo     *models.PhotoRecord    `json:"photo,omitempty"`
	Error     string                 `json:"error,omitempty"`
	Extra     map[string]interface{} `json:"extra,omitempty"`
	Timestamp int64                  `json:"timestamp"`
}

type Client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub is a simple global pubsub for websocket clients
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
	stop       chan struct{}
	mu         sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 256),
		stop:       make(chan struct{}),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		case <-h.stop:
			return
		}
	}
}

// Stop ends Run. connected clients are left to time out.
func (h *Hub) Stop() {
	close(h.stop)
}

// ClientCount reports how many shells are currently connected
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast queues an event for every client. it never blocks; when the
// queue is full the event is dropped.
func (h *Hub) Broadcast(event Event) {
	if event.Timestamp == 0 {
		event.Timestamp = time.Now().UnixMilli()
	}
	encoded, err := json.Marshal(event)
	if err != nil {
		log.Printf("realtime: failed to marshal event: %v", err)
		return
	}
	select {
	case h.broadcast <- encoded:
	default:
		log.WithField("type", event.Type).Warn("realtime: dropping event, broadcast channel full")
	}
}

// Next pops the oldest queued event without a running hub. only meant for
// tests that inspect what would have been sent.
func (h *Hub) Next() (Event, bool) {
	select {
	case raw := <-h.broadcast:
		var ev Event
		if err := json.Unmarshal(raw, &ev); err != nil {
			return Event{}, false
		}
		return ev, true
	default:
		return Event{}, false
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWS upgrades the connection and registers a client
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("realtime: websocket upgrade error: %v", err)
		return
	}
	client := &Client{conn: conn, send: make(chan []byte, 256)}
	h.register <- client

	// writer
	go func() {
		for msg := range client.send {
			if err := client.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				break
			}
		}
		client.conn.Close()
	}()

	// reader (just consume pings/close)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	h.unregister <- client
}
