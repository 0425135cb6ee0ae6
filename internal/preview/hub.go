package preview

import (
	"net/http"
	"sync"
	"time"

	"central-illustration/internal/logger"

	"github.com/gorilla/websocket"
)

const (
	sendBuffer   = 16
	writeTimeout = 5 * time.Second
)

type peer struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub groups websocket peers into per-demo rooms. A message from one peer is
// forwarded to every other peer in its room.
type Hub struct {
	log      *logger.Logger
	upgrader websocket.Upgrader

	mu     sync.RWMutex
	rooms  map[string]map[*peer]struct{}
	closed bool
	wg     sync.WaitGroup
}

func NewHub(log *logger.Logger) *Hub {
	if log == nil {
		log = logger.Nop()
	}
	return &Hub{
		log: log.With("component", "preview"),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		rooms: map[string]map[*peer]struct{}{},
	}
}

// Serve upgrades the request and relays messages until the peer goes away.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, room string) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "room", room, "error", err)
		return
	}

	p := &peer{conn: conn, send: make(chan []byte, sendBuffer)}
	if !h.join(room, p) {
		conn.Close()
		return
	}

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		h.writeLoop(p)
	}()

	h.readLoop(room, p)
	h.leave(room, p)
}

func (h *Hub) join(room string, p *peer) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	if h.rooms[room] == nil {
		h.rooms[room] = map[*peer]struct{}{}
	}
	h.rooms[room][p] = struct{}{}
	h.log.Debug("peer joined", "room", room, "peers", len(h.rooms[room]))
	return true
}

func (h *Hub) leave(room string, p *peer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	peers, ok := h.rooms[room]
	if !ok {
		return
	}
	if _, ok := peers[p]; !ok {
		return
	}
	delete(peers, p)
	close(p.send)
	if len(peers) == 0 {
		delete(h.rooms, room)
	}
}

func (h *Hub) readLoop(room string, p *peer) {
	for {
		_, data, err := p.conn.ReadMessage()
		if err != nil {
			return
		}
		msg, err := Decode(data)
		if err != nil {
			h.log.Debug("dropping preview message", "room", room, "error", err)
			continue
		}
		h.relay(room, p, msg)
	}
}

func (h *Hub) writeLoop(p *peer) {
	defer p.conn.Close()
	for data := range p.send {
		p.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := p.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}
}

func (h *Hub) relay(room string, from *peer, msg Message) {
	data, err := encode(msg)
	if err != nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for p := range h.rooms[room] {
		if p == from {
			continue
		}
		select {
		case p.send <- data:
		default:
			h.log.Debug("slow preview peer, message dropped", "room", room)
		}
	}
}

// Broadcast sends msg to every peer in room.
func (h *Hub) Broadcast(room string, msg Message) {
	h.relay(room, nil, msg)
}

// Peers reports how many peers are connected to room.
func (h *Hub) Peers(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// Close disconnects every peer and waits for their writers to finish.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	for _, peers := range h.rooms {
		for p := range peers {
			p.conn.Close()
		}
	}
	h.mu.Unlock()
	h.wg.Wait()
}
