package session

import (
	"errors"
	"testing"
	"time"
)

func TestExpiredSessionIsNotFoundAndRemoved(t *testing.T) {
	d := NewDirectory(10 * time.Millisecond)
	s := d.Create("player-1", "EUR", "http://platform")

	if _, err := d.Get(s.ID); err != nil {
		t.Fatalf("fresh session not found: %v", err)
	}

	time.Sleep(15 * time.Millisecond)

	if _, err := d.Get(s.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expired session: %v", err)
	}

	// Removal is immediate, not deferred to the sweeper.
	d.mu.Lock()
	_, still := d.byID[s.ID]
	d.mu.Unlock()
	if still {
		t.Fatalf("expired session left in directory")
	}
}

func TestNewSessionInvalidatesPrior(t *testing.T) {
	d := NewDirectory(time.Hour)

	first := d.Create("player-1", "EUR", "http://platform")
	second := d.Create("player-1", "EUR", "http://platform")

	if _, err := d.Get(first.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("prior session survived: %v", err)
	}
	if _, err := d.Get(second.ID); err != nil {
		t.Fatalf("new session missing: %v", err)
	}

	byPlayer, err := d.GetByPlayer("player-1")
	if err != nil {
		t.Fatalf("GetByPlayer: %v", err)
	}
	if byPlayer.ID != second.ID {
		t.Fatalf("player maps to %s, want %s", byPlayer.ID, second.ID)
	}
}

func TestSweepRemovesOnlyExpired(t *testing.T) {
	d := NewDirectory(20 * time.Millisecond)

	old := d.Create("player-1", "EUR", "http://platform")
	time.Sleep(25 * time.Millisecond)
	fresh := d.Create("player-2", "EUR", "http://platform")

	if n := d.Sweep(); n != 1 {
		t.Fatalf("swept %d, want 1", n)
	}
	if _, err := d.Get(old.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expired session survived sweep")
	}
	if _, err := d.Get(fresh.ID); err != nil {
		t.Fatalf("live session swept: %v", err)
	}
}

func TestInvalidate(t *testing.T) {
	d := NewDirectory(time.Hour)
	s := d.Create("player-1", "EUR", "http://platform")

	d.Invalidate(s.ID)

	if _, err := d.Get(s.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("invalidated session found")
	}
	if _, err := d.GetByPlayer("player-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("player mapping survived invalidation")
	}
}

func TestSetBalance(t *testing.T) {
	d := NewDirectory(time.Hour)
	s := d.Create("player-1", "EUR", "http://platform")

	d.SetBalance(s.ID, 42.5)

	got, err := d.Get(s.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Balance != 42.5 {
		t.Fatalf("balance = %v", got.Balance)
	}
}
