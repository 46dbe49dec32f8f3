package bets

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"coinedge/internal/logger"
	"coinedge/internal/monitoring"
	"coinedge/internal/round"
	"coinedge/internal/session"
	"coinedge/internal/settlement"
)

var (
	ErrBetBelowMin = errors.New("bet below minimum")
	ErrBetAboveMax = errors.New("bet above maximum")
)

type Engine interface {
	CanBet(playerID, choice string) (roundID string, err error)
	AddBet(roundID, playerID string, amount float64, choice, debitTxID string) error
}

type Platform interface {
	Debit(ctx context.Context, t settlement.Target, amount float64, roundID string) settlement.Result
	Credit(ctx context.Context, t settlement.Target, betAmount, winAmount float64, roundID, originalTxID string) settlement.Result
	Refund(ctx context.Context, t settlement.Target, amount float64, roundID, originalTxID, reason string) settlement.Result
	MarkFinal(txID string)
}

// Notifier pushes per-player outcome messages; the ws hub implements it.
type Notifier interface {
	NotifySession(sessionID string, eventType string, data interface{})
}

type Audit interface {
	Settlement(playerID, kind, roundID, txID string, amount float64, status string)
	Incident(playerID, roundID, detail string)
}

type PlacedBet struct {
	RoundID       string  `json:"round_id"`
	Amount        float64 `json:"amount"`
	Choice        string  `json:"choice"`
	TransactionID string  `json:"transaction_id"`
	NewBalance    float64 `json:"new_balance"`
}

type OutcomeNotice struct {
	RoundID    string  `json:"round_id"`
	Won        bool    `json:"won"`
	BetAmount  float64 `json:"bet_amount"`
	WinAmount  float64 `json:"win_amount,omitempty"`
	NewBalance float64 `json:"new_balance,omitempty"`
}

// Coordinator bridges the round ledger and the platform's money. The one
// rule it exists to enforce: no bet is ever visible locally without an
// acknowledged external debit, and no acknowledged debit is ever left
// without a credit, a refund, or an intentional loss.
type Coordinator struct {
	engine   Engine
	platform Platform
	sessions *session.Directory
	audit    Audit
	notifier Notifier

	betMin float64
	betMax float64
}

func NewCoordinator(engine Engine, platform Platform, sessions *session.Directory, auditor Audit, notifier Notifier, betMin, betMax float64) *Coordinator {
	return &Coordinator{
		engine:   engine,
		platform: platform,
		sessions: sessions,
		audit:    auditor,
		notifier: notifier,
		betMin:   betMin,
		betMax:   betMax,
	}
}

// PlaceBet validates everything it can locally, then debits, then
// registers. The debit runs outside any engine lock; if registration loses
// the race against betting close, the debit is compensated with a refund
// and the original rejection is surfaced.
func (c *Coordinator) PlaceBet(ctx context.Context, sessionID string, amount float64, choice string) (*PlacedBet, error) {
	sess, err := c.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}

	if amount < c.betMin {
		monitoring.BetsRejected.WithLabelValues("below_min").Inc()
		return nil, ErrBetBelowMin
	}
	if amount > c.betMax {
		monitoring.BetsRejected.WithLabelValues("above_max").Inc()
		return nil, ErrBetAboveMax
	}

	roundID, err := c.engine.CanBet(sess.PlayerID, choice)
	if err != nil {
		monitoring.BetsRejected.WithLabelValues("validation").Inc()
		return nil, err
	}

	target := settlement.Target{
		BaseURL:  sess.CallbackURL,
		PlayerID: sess.PlayerID,
		Currency: sess.Currency,
	}

	res := c.platform.Debit(ctx, target, amount, roundID)
	if !res.OK() {
		monitoring.BetsRejected.WithLabelValues("debit").Inc()
		c.audit.Settlement(sess.PlayerID, "debit", roundID, "", amount, "rejected")
		return nil, res.Err()
	}
	c.audit.Settlement(sess.PlayerID, "debit", roundID, res.TransactionID, amount, "ok")

	if err := c.engine.AddBet(roundID, sess.PlayerID, amount, choice, res.TransactionID); err != nil {
		c.compensate(ctx, sess, target, amount, roundID, res.TransactionID, err)
		monitoring.BetsRejected.WithLabelValues("registration").Inc()
		return nil, err
	}

	c.sessions.SetBalance(sess.ID, res.NewBalance)
	monitoring.BetsAccepted.Inc()

	return &PlacedBet{
		RoundID:       roundID,
		Amount:        amount,
		Choice:        choice,
		TransactionID: res.TransactionID,
		NewBalance:    res.NewBalance,
	}, nil
}

// compensate refunds a debit whose bet could not be registered. A refund
// that itself fails leaves the pending record open and is escalated; it is
// the one place money can be stranded.
func (c *Coordinator) compensate(ctx context.Context, sess *session.Session, target settlement.Target, amount float64, roundID, txID string, cause error) {
	res := c.platform.Refund(ctx, target, amount, roundID, txID, "bet rejected: "+cause.Error())
	if res.OK() {
		c.audit.Settlement(sess.PlayerID, "refund", roundID, txID, amount, "ok")
		return
	}

	monitoring.CriticalIncidents.Inc()
	c.audit.Incident(sess.PlayerID, roundID, "refund failed for stranded debit "+txID+": "+res.Message)
	logger.Critical("refund failed for stranded debit",
		zap.String("player_id", sess.PlayerID),
		zap.String("round_id", roundID),
		zap.String("tx_id", txID),
		zap.String("code", res.Code))
}

// SettleRound pays winners and finalizes losers. Credit failures are
// surfaced as critical incidents, never silently dropped and never
// retried forever inline.
func (c *Coordinator) SettleRound(ctx context.Context, fr *round.FinishedRound) {
	roundID := fr.RoundID

	for _, w := range fr.Winners {
		c.settleWin(ctx, roundID, w)
	}

	for _, l := range fr.Losers {
		// The debit stands as the loss; close the record locally.
		c.platform.MarkFinal(l.DebitTxID)
		c.audit.Settlement(l.PlayerID, "loss", roundID, l.DebitTxID, l.Amount, "final")
		c.notifyPlayer(l.PlayerID, OutcomeNotice{
			RoundID:   roundID,
			Won:       false,
			BetAmount: l.Amount,
		})
	}
}

func (c *Coordinator) settleWin(ctx context.Context, roundID string, w *round.SettledBet) {
	sess, err := c.sessions.GetByPlayer(w.PlayerID)
	if err != nil {
		monitoring.CriticalIncidents.Inc()
		c.audit.Incident(w.PlayerID, roundID, "winner has no live session, cannot credit "+w.DebitTxID)
		logger.Critical("winner has no live session",
			zap.String("player_id", w.PlayerID),
			zap.String("round_id", roundID))
		return
	}

	target := settlement.Target{
		BaseURL:  sess.CallbackURL,
		PlayerID: sess.PlayerID,
		Currency: sess.Currency,
	}

	res := c.platform.Credit(ctx, target, w.Amount, w.WinAmount, roundID, w.DebitTxID)
	if !res.OK() {
		monitoring.CriticalIncidents.Inc()
		c.audit.Incident(w.PlayerID, roundID, "credit failed for win on debit "+w.DebitTxID+": "+res.Message)
		logger.Critical("winner could not be paid",
			zap.String("player_id", w.PlayerID),
			zap.String("round_id", roundID),
			zap.String("tx_id", w.DebitTxID),
			zap.Float64("win_amount", w.WinAmount),
			zap.String("code", res.Code))
		return
	}

	c.sessions.SetBalance(sess.ID, res.NewBalance)
	c.audit.Settlement(w.PlayerID, "credit", roundID, res.TransactionID, w.WinAmount, "ok")

	c.notifier.NotifySession(sess.ID, "round.result", OutcomeNotice{
		RoundID:    roundID,
		Won:        true,
		BetAmount:  w.Amount,
		WinAmount:  w.WinAmount,
		NewBalance: res.NewBalance,
	})
}

func (c *Coordinator) notifyPlayer(playerID string, notice OutcomeNotice) {
	sess, err := c.sessions.GetByPlayer(playerID)
	if err != nil {
		return
	}
	c.notifier.NotifySession(sess.ID, "round.result", notice)
}
