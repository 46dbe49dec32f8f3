package ws

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"coinedge/internal/bets"
	"coinedge/internal/logger"
	"coinedge/internal/session"
)

const (
	writeWait       = 5 * time.Second
	readerQueueSize = 32
)

// Message is the envelope for every frame on either channel.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

type Coordinator interface {
	PlaceBet(ctx context.Context, sessionID string, amount float64, choice string) (*bets.PlacedBet, error)
}

// Snapshotter supplies the resync payload for freshly connected observers.
type Snapshotter interface {
	Snapshot() interface{}
	RecentHistory() interface{}
}

// betConn is the writable half of a bet-channel conn.
type betConn interface {
	SetWriteDeadline(t time.Time) error
	WriteJSON(v interface{}) error
}

// bettor serializes writes to one bet-channel conn: settlement notices and
// bet results arrive from different goroutines, and the underlying conn
// does not tolerate concurrent writers.
type bettor struct {
	c  betConn
	mu sync.Mutex
}

func (b *bettor) writeJSON(v interface{}) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.c.SetWriteDeadline(time.Now().Add(writeWait))
	return b.c.WriteJSON(v)
}

// Hub owns both channel roles: an anonymous broadcast channel for round
// events, and a per-session bet channel. Broadcasts go through per-conn
// buffered queues so a stalled peer is evicted, never waited on; round
// timing is driven elsewhere and must not feel a slow connection.
type Hub struct {
	coordinator Coordinator
	snapshots   Snapshotter
	sessions    *session.Directory

	mu      sync.Mutex
	readers map[*websocket.Conn]chan []byte
	bettors map[string]*bettor
}

func NewHub(coordinator Coordinator, snapshots Snapshotter, sessions *session.Directory) *Hub {
	return &Hub{
		coordinator: coordinator,
		snapshots:   snapshots,
		sessions:    sessions,
		readers:     make(map[*websocket.Conn]chan []byte),
		bettors:     make(map[string]*bettor),
	}
}

// BroadcastEvent enqueues the frame for every reader without blocking. A
// reader whose queue is full has stopped consuming; it is dropped and can
// resync through the snapshot on reconnect.
func (h *Hub) BroadcastEvent(topic string, data interface{}) {
	raw, err := json.Marshal(Message{Type: topic, Data: data})
	if err != nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for c, q := range h.readers {
		select {
		case q <- raw:
		default:
			delete(h.readers, c)
			close(q)
		}
	}
}

// dropReader unregisters a conn. The queue is closed exactly once, under
// the lock that guards membership, so the broadcaster can never send on a
// closed queue.
func (h *Hub) dropReader(c *websocket.Conn) {
	h.mu.Lock()
	if q, ok := h.readers[c]; ok {
		delete(h.readers, c)
		close(q)
	}
	h.mu.Unlock()
}

// NotifySession delivers a per-player message on the bet channel. Nothing
// to deliver to is not an error; the client may simply be offline.
func (h *Hub) NotifySession(sessionID string, eventType string, data interface{}) {
	h.mu.Lock()
	b, ok := h.bettors[sessionID]
	h.mu.Unlock()

	if !ok {
		return
	}
	b.writeJSON(Message{Type: eventType, Data: data})
}

// HandleReader serves the broadcast channel: snapshot and history on
// connect, then phase events until the peer goes away or stops reading.
func (h *Hub) HandleReader(c *websocket.Conn) {
	c.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.WriteJSON(Message{Type: "snapshot", Data: h.snapshots.Snapshot()}); err != nil {
		c.Close()
		return
	}
	c.SetWriteDeadline(time.Now().Add(writeWait))
	c.WriteJSON(Message{Type: "history", Data: h.snapshots.RecentHistory()})

	q := make(chan []byte, readerQueueSize)
	h.mu.Lock()
	h.readers[c] = q
	h.mu.Unlock()

	// Writer drains the queue on its own goroutine; broadcasts never touch
	// the conn directly.
	go func() {
		for raw := range q {
			c.SetWriteDeadline(time.Now().Add(writeWait))
			if c.WriteMessage(websocket.TextMessage, raw) != nil {
				break
			}
		}
		h.dropReader(c)
		c.Close()
	}()

	defer h.dropReader(c)
	for {
		if _, _, err := c.ReadMessage(); err != nil {
			break
		}
	}
}

type betRequest struct {
	Amount float64 `json:"amount"`
	Choice string  `json:"choice"`
}

type betResult struct {
	Success bool            `json:"success"`
	Bet     *bets.PlacedBet `json:"bet,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// HandleBettor serves one session's bet channel. A dead or expired session
// disconnects rather than recovers.
func (h *Hub) HandleBettor(c *websocket.Conn, sessionID string) {
	b := &bettor{c: c}

	if _, err := h.sessions.Get(sessionID); err != nil {
		b.writeJSON(Message{Type: "error", Data: "unknown session"})
		c.Close()
		return
	}

	h.mu.Lock()
	h.bettors[sessionID] = b
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		if h.bettors[sessionID] == b {
			delete(h.bettors, sessionID)
		}
		h.mu.Unlock()
		c.Close()
	}()

	for {
		var req betRequest
		if err := c.ReadJSON(&req); err != nil {
			break
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		placed, err := h.coordinator.PlaceBet(ctx, sessionID, req.Amount, req.Choice)
		cancel()

		if err != nil {
			b.writeJSON(Message{Type: "bet.result", Data: betResult{Success: false, Error: err.Error()}})
			if errors.Is(err, session.ErrNotFound) {
				logger.Log.Info("disconnecting dead session", zap.String("session_id", sessionID))
				break
			}
			continue
		}

		b.writeJSON(Message{Type: "bet.result", Data: betResult{Success: true, Bet: placed}})
	}
}
