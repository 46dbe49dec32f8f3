package round

import (
	"errors"
	"time"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusBetting   Status = "betting"
	StatusRevealing Status = "revealing"
	StatusFinished  Status = "finished"
)

var (
	ErrNoActiveRound   = errors.New("no active round")
	ErrBettingClosed   = errors.New("betting closed")
	ErrDuplicateBet    = errors.New("bet already placed this round")
	ErrInvalidChoice   = errors.New("invalid choice")
	ErrRoundInProgress = errors.New("round already in progress")
	ErrBadTransition   = errors.New("illegal phase transition")
)

type Bet struct {
	PlayerID  string    `json:"player_id"`
	Amount    float64   `json:"amount"`
	Choice    string    `json:"choice"`
	PlacedAt  time.Time `json:"placed_at"`
	DebitTxID string    `json:"-"`
}

// Round is mutated only under the engine lock. The server seed and outcome
// exist from generation but leak to nothing until their phase.
type Round struct {
	ID         string
	Status     Status
	ServerSeed string
	SeedHash   string
	ClientSeed string
	Nonce      int
	Outcome    string
	StartedAt  time.Time

	order []string
	bets  map[string]*Bet

	winners []*SettledBet
	losers  []*SettledBet
}

// SettledBet is a ledger entry after the winner/loser partition, carrying
// everything settlement needs.
type SettledBet struct {
	PlayerID  string
	Amount    float64
	Choice    string
	DebitTxID string
	WinAmount float64
}

// FinishedRound is handed to the settlement side once the round is archived.
type FinishedRound struct {
	RoundID string
	Outcome string
	Winners []*SettledBet
	Losers  []*SettledBet
}

// Summary is the redacted history entry: verification inputs only, no
// player data.
type Summary struct {
	ID         string    `json:"id"`
	Outcome    string    `json:"outcome"`
	ServerSeed string    `json:"server_seed"`
	SeedHash   string    `json:"seed_hash"`
	ClientSeed string    `json:"client_seed"`
	Nonce      int       `json:"nonce"`
	Bets       int       `json:"bets"`
	FinishedAt time.Time `json:"finished_at"`
}

// Snapshot lets a late or reconnecting client reconstruct the phase without
// replaying broadcasts.
type Snapshot struct {
	RoundID    string `json:"round_id,omitempty"`
	Status     Status `json:"status"`
	SeedHash   string `json:"seed_hash,omitempty"`
	ClientSeed string `json:"client_seed,omitempty"`
	Nonce      int    `json:"nonce"`
	Outcome    string `json:"outcome,omitempty"`
	ElapsedMs  int64  `json:"elapsed_ms"`
	Bets       int    `json:"bets"`
}

// Broadcast payloads, one per phase transition.

type BettingStarted struct {
	RoundID    string `json:"round_id"`
	Commitment string `json:"commitment"`
	ClientSeed string `json:"client_seed"`
	Nonce      int    `json:"nonce"`
	DurationMs int64  `json:"duration_ms"`
}

type Revealed struct {
	RoundID  string `json:"round_id"`
	Outcome  string `json:"outcome"`
	SeedHash string `json:"seed_hash"`
}

type Finished struct {
	RoundID    string `json:"round_id"`
	Outcome    string `json:"outcome"`
	ServerSeed string `json:"server_seed"`
	SeedHash   string `json:"seed_hash"`
	ClientSeed string `json:"client_seed"`
	Nonce      int    `json:"nonce"`
}

type BetPlaced struct {
	RoundID string  `json:"round_id"`
	Amount  float64 `json:"amount"`
	Choice  string  `json:"choice"`
}
