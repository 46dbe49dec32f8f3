package ws

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gofiber/websocket/v2"
)

func TestBroadcastDropsStalledReader(t *testing.T) {
	h := NewHub(nil, nil, nil)

	healthy := make(chan []byte, readerQueueSize)
	stalled := make(chan []byte, 1)
	stalled <- []byte("backlog") // peer stopped consuming, queue is full

	healthyConn := &websocket.Conn{}
	stalledConn := &websocket.Conn{}
	h.readers[healthyConn] = healthy
	h.readers[stalledConn] = stalled

	// Must return immediately even though one reader cannot take the frame.
	done := make(chan struct{})
	go func() {
		h.BroadcastEvent("round.betting", map[string]string{"round_id": "r1"})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("broadcast blocked on a stalled reader")
	}

	select {
	case raw := <-healthy:
		if len(raw) == 0 {
			t.Fatalf("healthy reader got empty frame")
		}
	default:
		t.Fatalf("healthy reader got nothing")
	}

	h.mu.Lock()
	_, still := h.readers[stalledConn]
	h.mu.Unlock()
	if still {
		t.Fatalf("stalled reader not evicted")
	}

	// Its queue is closed so the writer goroutine unwinds.
	<-stalled
	if _, open := <-stalled; open {
		t.Fatalf("stalled queue left open")
	}
}

func TestBroadcastSurvivesEvictionMidLoop(t *testing.T) {
	h := NewHub(nil, nil, nil)

	for i := 0; i < 5; i++ {
		q := make(chan []byte, 1)
		q <- []byte("backlog")
		h.readers[&websocket.Conn{}] = q
	}

	h.BroadcastEvent("round.reveal", nil)
	h.BroadcastEvent("round.finished", nil)

	h.mu.Lock()
	left := len(h.readers)
	h.mu.Unlock()
	if left != 0 {
		t.Fatalf("%d stalled readers survived eviction", left)
	}
}

type overlapConn struct {
	active   int32
	overlaps int32
	writes   int32
}

func (c *overlapConn) SetWriteDeadline(time.Time) error { return nil }

func (c *overlapConn) WriteJSON(interface{}) error {
	if atomic.AddInt32(&c.active, 1) > 1 {
		atomic.AddInt32(&c.overlaps, 1)
	}
	time.Sleep(time.Millisecond)
	atomic.AddInt32(&c.active, -1)
	atomic.AddInt32(&c.writes, 1)
	return nil
}

func TestBettorWritesAreSerialized(t *testing.T) {
	conn := &overlapConn{}
	b := &bettor{c: conn}

	h := NewHub(nil, nil, nil)
	h.bettors["sess-1"] = b

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Settlement notices and bet results race onto the same conn.
			h.NotifySession("sess-1", "round.result", map[string]bool{"won": true})
			b.writeJSON(Message{Type: "bet.result"})
		}()
	}
	wg.Wait()

	if n := atomic.LoadInt32(&conn.overlaps); n != 0 {
		t.Fatalf("%d concurrent writes reached the conn", n)
	}
	if n := atomic.LoadInt32(&conn.writes); n != 16 {
		t.Fatalf("writes = %d, want 16", n)
	}
}

func TestNotifyUnknownSessionIsNoop(t *testing.T) {
	h := NewHub(nil, nil, nil)
	h.NotifySession("missing", "round.result", nil)
}
