package bets

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"coinedge/internal/logger"
	"coinedge/internal/round"
	"coinedge/internal/session"
	"coinedge/internal/settlement"
)

func TestMain(m *testing.M) {
	logger.Init()
	os.Exit(m.Run())
}

type fakeEngine struct {
	roundID   string
	canBetErr error
	addBetErr error

	addBetCalls int
	lastRoundID string
	lastTxID    string
}

func (f *fakeEngine) CanBet(playerID, choice string) (string, error) {
	if f.canBetErr != nil {
		return "", f.canBetErr
	}
	return f.roundID, nil
}

func (f *fakeEngine) AddBet(roundID, playerID string, amount float64, choice, debitTxID string) error {
	f.addBetCalls++
	f.lastRoundID = roundID
	f.lastTxID = debitTxID
	return f.addBetErr
}

type refundCall struct {
	amount       float64
	originalTxID string
	reason       string
}

type fakePlatform struct {
	debitResult  settlement.Result
	creditResult settlement.Result
	refundResult settlement.Result

	debits  int
	credits int
	refunds []refundCall
	finals  []string
}

func (f *fakePlatform) Debit(ctx context.Context, t settlement.Target, amount float64, roundID string) settlement.Result {
	f.debits++
	return f.debitResult
}

func (f *fakePlatform) Credit(ctx context.Context, t settlement.Target, betAmount, winAmount float64, roundID, originalTxID string) settlement.Result {
	f.credits++
	return f.creditResult
}

func (f *fakePlatform) Refund(ctx context.Context, t settlement.Target, amount float64, roundID, originalTxID, reason string) settlement.Result {
	f.refunds = append(f.refunds, refundCall{amount: amount, originalTxID: originalTxID, reason: reason})
	return f.refundResult
}

func (f *fakePlatform) MarkFinal(txID string) {
	f.finals = append(f.finals, txID)
}

type nopAudit struct{ incidents int }

func (a *nopAudit) Settlement(playerID, kind, roundID, txID string, amount float64, status string) {}
func (a *nopAudit) Incident(playerID, roundID, detail string)                                     { a.incidents++ }

type recordingNotifier struct {
	notices []OutcomeNotice
}

func (n *recordingNotifier) NotifySession(sessionID, eventType string, data interface{}) {
	if notice, ok := data.(OutcomeNotice); ok {
		n.notices = append(n.notices, notice)
	}
}

func okResult(txID string, balance float64) settlement.Result {
	return settlement.Result{Status: settlement.StatusOK, TransactionID: txID, NewBalance: balance}
}

func errResult(code string) settlement.Result {
	return settlement.Result{Status: settlement.StatusError, Code: code, Message: code}
}

type fixture struct {
	engine   *fakeEngine
	platform *fakePlatform
	sessions *session.Directory
	audit    *nopAudit
	notifier *recordingNotifier
	coord    *Coordinator
	sess     *session.Session
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		engine:   &fakeEngine{roundID: "round-1"},
		platform: &fakePlatform{debitResult: okResult("tx-1", 90), creditResult: okResult("tx-2", 109.5), refundResult: okResult("tx-3", 100)},
		sessions: session.NewDirectory(time.Hour),
		audit:    &nopAudit{},
		notifier: &recordingNotifier{},
	}
	f.sess = f.sessions.Create("player-1", "EUR", "http://platform")
	f.coord = NewCoordinator(f.engine, f.platform, f.sessions, f.audit, f.notifier, 1, 100)
	return f
}

func TestPlaceBetHappyPath(t *testing.T) {
	f := newFixture(t)

	placed, err := f.coord.PlaceBet(context.Background(), f.sess.ID, 10, "heads")
	if err != nil {
		t.Fatalf("PlaceBet: %v", err)
	}

	if placed.RoundID != "round-1" || placed.TransactionID != "tx-1" || placed.NewBalance != 90 {
		t.Fatalf("bad placed bet: %+v", placed)
	}
	if f.engine.lastTxID != "tx-1" {
		t.Fatalf("ledger entry missing debit tx id")
	}
	if f.engine.lastRoundID != "round-1" {
		t.Fatalf("ledger targeted round %q, want the one the debit was stamped with", f.engine.lastRoundID)
	}
	if len(f.platform.refunds) != 0 {
		t.Fatalf("refund issued on success")
	}

	sess, _ := f.sessions.Get(f.sess.ID)
	if sess.Balance != 90 {
		t.Fatalf("cached balance = %v", sess.Balance)
	}
}

func TestPlaceBetUnknownSession(t *testing.T) {
	f := newFixture(t)

	_, err := f.coord.PlaceBet(context.Background(), "nope", 10, "heads")
	if !errors.Is(err, session.ErrNotFound) {
		t.Fatalf("err = %v", err)
	}
	if f.platform.debits != 0 {
		t.Fatalf("platform touched for unknown session")
	}
}

func TestPlaceBetAmountBounds(t *testing.T) {
	f := newFixture(t)

	if _, err := f.coord.PlaceBet(context.Background(), f.sess.ID, 0.5, "heads"); err != ErrBetBelowMin {
		t.Fatalf("below min: %v", err)
	}
	if _, err := f.coord.PlaceBet(context.Background(), f.sess.ID, 101, "heads"); err != ErrBetAboveMax {
		t.Fatalf("above max: %v", err)
	}
	if f.platform.debits != 0 {
		t.Fatalf("platform debited for out-of-bounds amounts")
	}
}

func TestPlaceBetValidationBeforeDebit(t *testing.T) {
	f := newFixture(t)
	f.engine.canBetErr = round.ErrDuplicateBet

	_, err := f.coord.PlaceBet(context.Background(), f.sess.ID, 10, "heads")
	if !errors.Is(err, round.ErrDuplicateBet) {
		t.Fatalf("err = %v", err)
	}
	if f.platform.debits != 0 {
		t.Fatalf("duplicate bet reached the platform")
	}
}

func TestDebitFailureRegistersNothing(t *testing.T) {
	f := newFixture(t)
	f.platform.debitResult = errResult("INSUFFICIENT_FUNDS")

	_, err := f.coord.PlaceBet(context.Background(), f.sess.ID, 10, "heads")

	var perr *settlement.PlatformError
	if !errors.As(err, &perr) || perr.Code != "INSUFFICIENT_FUNDS" {
		t.Fatalf("err = %v", err)
	}
	if f.engine.addBetCalls != 0 {
		t.Fatalf("bet registered despite failed debit")
	}
	if len(f.platform.refunds) != 0 {
		t.Fatalf("refund issued with nothing to compensate")
	}
}

func TestRegistrationFailureTriggersExactlyOneRefund(t *testing.T) {
	f := newFixture(t)
	f.engine.addBetErr = round.ErrBettingClosed

	_, err := f.coord.PlaceBet(context.Background(), f.sess.ID, 10, "heads")
	if !errors.Is(err, round.ErrBettingClosed) {
		t.Fatalf("original rejection not surfaced: %v", err)
	}

	if len(f.platform.refunds) != 1 {
		t.Fatalf("refunds = %d, want 1", len(f.platform.refunds))
	}
	r := f.platform.refunds[0]
	if r.originalTxID != "tx-1" {
		t.Fatalf("refund references %q, want tx-1", r.originalTxID)
	}
	if r.amount != 10 {
		t.Fatalf("refund amount = %v", r.amount)
	}
	if r.reason == "" {
		t.Fatalf("refund carries no reason")
	}
}

func TestFailedCompensationIsEscalated(t *testing.T) {
	f := newFixture(t)
	f.engine.addBetErr = round.ErrBettingClosed
	f.platform.refundResult = errResult("PLATFORM_UNREACHABLE")

	_, err := f.coord.PlaceBet(context.Background(), f.sess.ID, 10, "heads")
	if !errors.Is(err, round.ErrBettingClosed) {
		t.Fatalf("err = %v", err)
	}
	if f.audit.incidents != 1 {
		t.Fatalf("incidents = %d, want 1", f.audit.incidents)
	}
}

func TestSettleRoundCreditsWinnersAndFinalizesLosers(t *testing.T) {
	f := newFixture(t)
	f.sessions.Create("player-2", "EUR", "http://platform")

	f.coord.SettleRound(context.Background(), &round.FinishedRound{
		RoundID: "round-1",
		Outcome: "heads",
		Winners: []*round.SettledBet{
			{PlayerID: "player-1", Amount: 10, Choice: "heads", DebitTxID: "tx-w", WinAmount: 19.50},
		},
		Losers: []*round.SettledBet{
			{PlayerID: "player-2", Amount: 10, Choice: "tails", DebitTxID: "tx-l"},
		},
	})

	if f.platform.credits != 1 {
		t.Fatalf("credits = %d, want 1", f.platform.credits)
	}
	if len(f.platform.finals) != 1 || f.platform.finals[0] != "tx-l" {
		t.Fatalf("loser debit not finalized: %v", f.platform.finals)
	}

	var won, lost bool
	for _, n := range f.notifier.notices {
		if n.Won && n.WinAmount == 19.50 {
			won = true
		}
		if !n.Won && n.BetAmount == 10 {
			lost = true
		}
	}
	if !won || !lost {
		t.Fatalf("missing outcome notices: %+v", f.notifier.notices)
	}
}

func TestUnpayableWinIsCriticalNotSilent(t *testing.T) {
	f := newFixture(t)
	f.platform.creditResult = errResult("PLATFORM_UNREACHABLE")

	f.coord.SettleRound(context.Background(), &round.FinishedRound{
		RoundID: "round-1",
		Outcome: "heads",
		Winners: []*round.SettledBet{
			{PlayerID: "player-1", Amount: 10, Choice: "heads", DebitTxID: "tx-w", WinAmount: 19.50},
		},
	})

	if f.audit.incidents != 1 {
		t.Fatalf("incidents = %d, want 1", f.audit.incidents)
	}
	if len(f.notifier.notices) != 0 {
		t.Fatalf("win notice sent for an unpaid win")
	}
}
