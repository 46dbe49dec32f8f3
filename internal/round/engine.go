package round

import (
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"coinedge/internal/event"
	"coinedge/internal/fair"
)

const historyCap = 50

// Engine owns the round state machine and the bet ledger. All mutation goes
// through the mutex; nothing network-facing runs inside it. Phase events are
// published after the lock is released.
type Engine struct {
	chain     *fair.SeedChain
	table     fair.Table
	bus       *event.Bus
	precision int

	bettingDuration time.Duration

	mu      sync.Mutex
	current *Round
	history []Summary
}

func NewEngine(chain *fair.SeedChain, table fair.Table, bus *event.Bus, precision int, bettingDuration time.Duration) *Engine {
	return &Engine{
		chain:           chain,
		table:           table,
		bus:             bus,
		precision:       precision,
		bettingDuration: bettingDuration,
	}
}

// GenerateRound pulls the next seed triple and precomputes the outcome. The
// outcome is decided here, before any bet exists, and revealed only after
// betting closes.
func (e *Engine) GenerateRound() (string, error) {
	seed := e.chain.CurrentServerSeed()
	pd := e.chain.PublicData()

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.current != nil && (e.current.Status == StatusBetting || e.current.Status == StatusRevealing) {
		return "", ErrRoundInProgress
	}

	e.current = &Round{
		ID:         uuid.New().String(),
		Status:     StatusPending,
		ServerSeed: seed,
		SeedHash:   pd.Commitment,
		ClientSeed: pd.ClientSeed,
		Nonce:      pd.Nonce,
		Outcome:    fair.ComputeOutcome(seed, pd.ClientSeed, pd.Nonce, e.table),
		order:      nil,
		bets:       make(map[string]*Bet),
	}

	return e.current.ID, nil
}

func (e *Engine) StartBetting() error {
	e.mu.Lock()

	if e.current == nil || e.current.Status != StatusPending {
		e.mu.Unlock()
		return ErrBadTransition
	}

	e.current.Status = StatusBetting
	e.current.StartedAt = time.Now()

	payload := BettingStarted{
		RoundID:    e.current.ID,
		Commitment: e.current.SeedHash,
		ClientSeed: e.current.ClientSeed,
		Nonce:      e.current.Nonce,
		DurationMs: e.bettingDuration.Milliseconds(),
	}
	e.mu.Unlock()

	e.bus.Publish(event.EventRoundBetting, payload)
	return nil
}

// CanBet is the pre-debit check: cheap validation before the coordinator
// touches the platform. It does not reserve anything; AddBet revalidates
// under the same lock.
func (e *Engine) CanBet(playerID, choice string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.current == nil {
		return "", ErrNoActiveRound
	}
	if e.current.Status != StatusBetting {
		return "", ErrBettingClosed
	}
	if _, ok := e.current.bets[playerID]; ok {
		return "", ErrDuplicateBet
	}
	if !e.table.Has(choice) {
		return "", ErrInvalidChoice
	}
	return e.current.ID, nil
}

// AddBet registers an already-debited bet into the round it was validated
// and debited for. By the time a slow debit returns, that round may have
// revealed and a new one opened; the bet must never slide into a round the
// player did not see. A rejection here means the caller owns a stranded
// debit and must compensate.
func (e *Engine) AddBet(roundID, playerID string, amount float64, choice, debitTxID string) error {
	e.mu.Lock()

	if e.current == nil {
		e.mu.Unlock()
		return ErrNoActiveRound
	}
	if e.current.ID != roundID || e.current.Status != StatusBetting {
		e.mu.Unlock()
		return ErrBettingClosed
	}
	if _, ok := e.current.bets[playerID]; ok {
		e.mu.Unlock()
		return ErrDuplicateBet
	}
	if !e.table.Has(choice) {
		e.mu.Unlock()
		return ErrInvalidChoice
	}

	e.current.bets[playerID] = &Bet{
		PlayerID:  playerID,
		Amount:    amount,
		Choice:    choice,
		PlacedAt:  time.Now(),
		DebitTxID: debitTxID,
	}
	e.current.order = append(e.current.order, playerID)

	payload := BetPlaced{RoundID: e.current.ID, Amount: amount, Choice: choice}
	e.mu.Unlock()

	e.bus.Publish(event.EventBetPlaced, payload)
	return nil
}

// StartReveal closes the ledger and partitions it. Winners and losers are
// computed exactly once, here; no bet can land after this point.
func (e *Engine) StartReveal() error {
	e.mu.Lock()

	if e.current == nil || e.current.Status != StatusBetting {
		e.mu.Unlock()
		return ErrBadTransition
	}

	r := e.current
	r.Status = StatusRevealing

	for _, playerID := range r.order {
		b := r.bets[playerID]
		sb := &SettledBet{
			PlayerID:  b.PlayerID,
			Amount:    b.Amount,
			Choice:    b.Choice,
			DebitTxID: b.DebitTxID,
		}
		if b.Choice == r.Outcome {
			sb.WinAmount = payout(b.Amount, e.table.Multiplier(r.Outcome), e.precision)
			r.winners = append(r.winners, sb)
		} else {
			r.losers = append(r.losers, sb)
		}
	}

	payload := Revealed{RoundID: r.ID, Outcome: r.Outcome, SeedHash: r.SeedHash}
	e.mu.Unlock()

	e.bus.Publish(event.EventRoundReveal, payload)
	return nil
}

// Finish reveals the full verification payload, archives the round and
// advances the seed chain. The returned FinishedRound is the settlement
// side's work order.
func (e *Engine) Finish() (*FinishedRound, error) {
	e.mu.Lock()

	if e.current == nil || e.current.Status != StatusRevealing {
		e.mu.Unlock()
		return nil, ErrBadTransition
	}

	r := e.current
	r.Status = StatusFinished

	e.history = append(e.history, Summary{
		ID:         r.ID,
		Outcome:    r.Outcome,
		ServerSeed: r.ServerSeed,
		SeedHash:   r.SeedHash,
		ClientSeed: r.ClientSeed,
		Nonce:      r.Nonce,
		Bets:       len(r.bets),
		FinishedAt: time.Now(),
	})
	if len(e.history) > historyCap {
		e.history = e.history[len(e.history)-historyCap:]
	}

	fr := &FinishedRound{
		RoundID: r.ID,
		Outcome: r.Outcome,
		Winners: r.winners,
		Losers:  r.losers,
	}

	payload := Finished{
		RoundID:    r.ID,
		Outcome:    r.Outcome,
		ServerSeed: r.ServerSeed,
		SeedHash:   r.SeedHash,
		ClientSeed: r.ClientSeed,
		Nonce:      r.Nonce,
	}

	// The ledger dies with the round; nothing holds references past here.
	e.current = nil
	e.mu.Unlock()

	e.chain.Advance()
	e.bus.Publish(event.EventRoundFinished, payload)
	return fr, nil
}

func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.current == nil {
		return Snapshot{Status: StatusPending}
	}

	s := Snapshot{
		RoundID:    e.current.ID,
		Status:     e.current.Status,
		SeedHash:   e.current.SeedHash,
		ClientSeed: e.current.ClientSeed,
		Nonce:      e.current.Nonce,
		Bets:       len(e.current.bets),
	}
	if !e.current.StartedAt.IsZero() {
		s.ElapsedMs = time.Since(e.current.StartedAt).Milliseconds()
	}
	if e.current.Status == StatusRevealing || e.current.Status == StatusFinished {
		s.Outcome = e.current.Outcome
	}
	return s
}

func (e *Engine) History() []Summary {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]Summary, len(e.history))
	copy(out, e.history)
	return out
}

// payout floors to the configured currency precision so the house never
// overpays by a sub-unit.
func payout(amount, multiplier float64, precision int) float64 {
	pow := math.Pow10(precision)
	return math.Floor(amount*multiplier*pow) / pow
}
