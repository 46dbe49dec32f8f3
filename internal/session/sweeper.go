package session

import (
	"context"
	"time"

	"go.uber.org/zap"

	"coinedge/internal/logger"
)

// Sweeper runs expiry on its own timer, independent of round timing.
type Sweeper struct {
	dir      *Directory
	interval time.Duration
}

func NewSweeper(dir *Directory, interval time.Duration) *Sweeper {
	return &Sweeper{dir: dir, interval: interval}
}

func (s *Sweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.dir.Sweep(); n > 0 {
				logger.Log.Info("swept expired sessions", zap.Int("count", n))
			}
		}
	}
}
