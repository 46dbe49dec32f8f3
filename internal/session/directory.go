package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("session not found")

type Session struct {
	ID          string
	PlayerID    string
	Currency    string
	CallbackURL string
	Balance     float64
	CreatedAt   time.Time
	ExpiresAt   time.Time
}

// Directory maps opaque session ids to player identity. At most one live
// session per player; a new bootstrap invalidates the prior one. Expired
// entries behave as not found and are removed on sight.
type Directory struct {
	ttl time.Duration

	mu       sync.Mutex
	byID     map[string]*Session
	byPlayer map[string]string
}

func NewDirectory(ttl time.Duration) *Directory {
	return &Directory{
		ttl:      ttl,
		byID:     make(map[string]*Session),
		byPlayer: make(map[string]string),
	}
}

func (d *Directory) Create(playerID, currency, callbackURL string) *Session {
	d.mu.Lock()
	defer d.mu.Unlock()

	if prior, ok := d.byPlayer[playerID]; ok {
		delete(d.byID, prior)
	}

	now := time.Now()
	s := &Session{
		ID:          uuid.New().String(),
		PlayerID:    playerID,
		Currency:    currency,
		CallbackURL: callbackURL,
		CreatedAt:   now,
		ExpiresAt:   now.Add(d.ttl),
	}
	d.byID[s.ID] = s
	d.byPlayer[playerID] = s.ID
	return s
}

func (d *Directory) Get(id string) (*Session, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	s, ok := d.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	if time.Now().After(s.ExpiresAt) {
		d.remove(s)
		return nil, ErrNotFound
	}
	return s, nil
}

func (d *Directory) GetByPlayer(playerID string) (*Session, error) {
	d.mu.Lock()
	id, ok := d.byPlayer[playerID]
	d.mu.Unlock()

	if !ok {
		return nil, ErrNotFound
	}
	return d.Get(id)
}

func (d *Directory) Invalidate(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if s, ok := d.byID[id]; ok {
		d.remove(s)
	}
}

func (d *Directory) SetBalance(id string, balance float64) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if s, ok := d.byID[id]; ok {
		s.Balance = balance
	}
}

// Sweep deletes entries whose TTL elapsed. It never touches anything else.
func (d *Directory) Sweep() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := time.Now()
	removed := 0
	for _, s := range d.byID {
		if now.After(s.ExpiresAt) {
			d.remove(s)
			removed++
		}
	}
	return removed
}

// remove assumes mu is held.
func (d *Directory) remove(s *Session) {
	delete(d.byID, s.ID)
	if d.byPlayer[s.PlayerID] == s.ID {
		delete(d.byPlayer, s.PlayerID)
	}
}
