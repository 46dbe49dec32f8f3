package settlement

import (
	"sync"
	"time"
)

// Record tracks an acknowledged debit that has not reached a terminal
// state. Exactly one exists per accepted bet until the bet is credited,
// refunded, or intentionally closed as a loss.
type Record struct {
	RequestID     string    `json:"request_id"`
	Kind          string    `json:"kind"`
	PlayerID      string    `json:"player_id"`
	Amount        float64   `json:"amount"`
	RoundID       string    `json:"round_id"`
	TransactionID string    `json:"transaction_id"`
	CreatedAt     time.Time `json:"created_at"`
}

type recordStore struct {
	mu     sync.Mutex
	byTxID map[string]Record
}

func newRecordStore() *recordStore {
	return &recordStore{byTxID: make(map[string]Record)}
}

func (s *recordStore) open(r Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byTxID[r.TransactionID] = r
}

func (s *recordStore) close(txID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byTxID, txID)
}

func (s *recordStore) all() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Record, 0, len(s.byTxID))
	for _, r := range s.byTxID {
		out = append(out, r)
	}
	return out
}
