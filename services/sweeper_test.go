package services

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type countingSweepStore struct {
	fakeSessionStore
	sweeps atomic.Int32
}

func (c *countingSweepStore) SweepExpired(ctx context.Context) (int, error) {
	c.sweeps.Add(1)
	return 0, nil
}

func TestSessionSweeper_RunsAndStops(t *testing.T) {
	store := &countingSweepStore{}
	sweeper := NewSessionSweeper(store, 10*time.Millisecond, zap.NewNop())

	sweeper.Start()
	time.Sleep(60 * time.Millisecond)
	sweeper.Stop()

	swept := store.sweeps.Load()
	assert.Greater(t, swept, int32(0), "sweeper should have run at least once")

	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, swept, store.sweeps.Load(), "no sweeps after Stop returns")
}
