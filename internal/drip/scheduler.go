package drip

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Scheduler invokes the sequencer's RunTick on a fixed interval until the
// context is cancelled. One tick runs at startup so a restarted process does
// not wait a full interval.
type Scheduler struct {
	seq      *Sequencer
	interval time.Duration
	log      *zap.Logger
}

func NewScheduler(seq *Sequencer, interval time.Duration, log *zap.Logger) *Scheduler {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Scheduler{seq: seq, interval: interval, log: log}
}

// Run blocks until ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.Info("drip scheduler started", zap.Duration("interval", s.interval))

	s.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			s.log.Info("drip scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	start := time.Now()
	if err := s.seq.RunTick(ctx); err != nil && ctx.Err() == nil {
		s.log.Error("drip tick failed", zap.Error(err))
		return
	}
	s.log.Debug("drip tick done", zap.Duration("took", time.Since(start)))
}
