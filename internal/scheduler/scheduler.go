package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"coinedge/internal/logger"
	"coinedge/internal/round"
)

type Engine interface {
	GenerateRound() (string, error)
	StartBetting() error
	StartReveal() error
	Finish() (*round.FinishedRound, error)
}

type Settler interface {
	SettleRound(ctx context.Context, fr *round.FinishedRound)
}

// Scheduler is the single writer driving phase transitions. One loop, one
// round at a time; client connections never influence its timing.
type Scheduler struct {
	engine  Engine
	settler Settler

	betting    time.Duration
	reveal     time.Duration
	interRound time.Duration
}

func New(engine Engine, settler Settler, betting, reveal, interRound time.Duration) *Scheduler {
	return &Scheduler{
		engine:     engine,
		settler:    settler,
		betting:    betting,
		reveal:     reveal,
		interRound: interRound,
	}
}

func (s *Scheduler) Start(ctx context.Context) {
	for ctx.Err() == nil {
		if err := s.runRound(ctx); err != nil {
			logger.Log.Error("round aborted", zap.Error(err))
			if !s.wait(ctx, s.interRound) {
				return
			}
		}
	}
}

func (s *Scheduler) runRound(ctx context.Context) error {
	roundID, err := s.engine.GenerateRound()
	if err != nil {
		return err
	}

	if err := s.engine.StartBetting(); err != nil {
		return err
	}
	logger.Log.Info("betting open", zap.String("round_id", roundID))

	if !s.wait(ctx, s.betting) {
		return ctx.Err()
	}

	// Closes the ledger and partitions winners/losers before anyone waits.
	if err := s.engine.StartReveal(); err != nil {
		return err
	}

	if !s.wait(ctx, s.reveal) {
		return ctx.Err()
	}

	fr, err := s.engine.Finish()
	if err != nil {
		return err
	}

	// Settlement happens after the engine released the round; a slow
	// platform delays payouts, never the next round's ledger.
	s.settler.SettleRound(ctx, fr)

	logger.Log.Info("round settled",
		zap.String("round_id", fr.RoundID),
		zap.String("outcome", fr.Outcome),
		zap.Int("winners", len(fr.Winners)),
		zap.Int("losers", len(fr.Losers)))

	if !s.wait(ctx, s.interRound) {
		return ctx.Err()
	}
	return nil
}

func (s *Scheduler) wait(ctx context.Context, d time.Duration) bool {
	select {
	case <-time.After(d):
		return true
	case <-ctx.Done():
		return false
	}
}
