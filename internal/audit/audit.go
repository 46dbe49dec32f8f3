package audit

import (
	"database/sql"
	"time"
)

// Service keeps an append-only trail of settlement activity. The trail is
// for operators reconciling against the platform's ledger; the engine never
// reads it back.
type Service struct {
	db *sql.DB
}

func New(db *sql.DB) *Service {
	return &Service{db: db}
}

func (s *Service) Settlement(playerID, kind, roundID, txID string, amount float64, status string) {

	s.db.Exec(`
	INSERT INTO settlements(player_id, kind, round_id, tx_id, amount, status, ts)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	`, playerID, kind, roundID, txID, amount, status, time.Now().Unix())
}

// Incident records financial drift: conditions where the local view and the
// platform's ledger may disagree.
func (s *Service) Incident(playerID, roundID, detail string) {

	s.db.Exec(`
	INSERT INTO incidents(player_id, round_id, detail, ts)
	VALUES (?, ?, ?, ?)
	`, playerID, roundID, detail, time.Now().Unix())
}
