package services

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// SessionSweeper reclaims abandoned ceremony sessions on a fixed interval,
// independent of request traffic.
type SessionSweeper struct {
	store    ISessionStore
	interval time.Duration
	logger   *zap.Logger
	stop     chan struct{}
	done     chan struct{}
}

func NewSessionSweeper(store ISessionStore, interval time.Duration, logger *zap.Logger) *SessionSweeper {
	return &SessionSweeper{
		store:    store,
		interval: interval,
		logger:   logger,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (s *SessionSweeper) Start() {
	go s.run()
}

func (s *SessionSweeper) run() {
	defer close(s.done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.sweepOnce()
		case <-s.stop:
			return
		}
	}
}

func (s *SessionSweeper) sweepOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), s.interval)
	defer cancel()

	count, err := s.store.SweepExpired(ctx)
	if err != nil {
		s.logger.Error("ceremony session sweep failed", zap.Error(err))
		return
	}
	if count > 0 {
		s.logger.Info("swept expired ceremony sessions", zap.Int("count", count))
	}
}

// Stop blocks until the sweep loop has exited.
func (s *SessionSweeper) Stop() {
	close(s.stop)
	<-s.done
}
