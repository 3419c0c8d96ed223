package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BruksfildServices01/clinic-scheduler/internal/lock"
	"github.com/BruksfildServices01/clinic-scheduler/internal/usecase/booking"
)

type fakeSweeper struct {
	calls atomic.Int32
	err   error
}

func (f *fakeSweeper) Execute(context.Context) (booking.SweepResult, error) {
	f.calls.Add(1)
	return booking.SweepResult{Checked: 2, Expired: 1}, f.err
}

func TestExpirySweeper(t *testing.T) {
	t.Run("Run Once", func(t *testing.T) {
		s := &fakeSweeper{}
		w := NewExpirySweeper(s, lock.NewMemoryLocker(), "@every 1m", zap.NewNop())

		w.RunOnce(context.Background())
		w.RunOnce(context.Background())

		assert.Equal(t, int32(2), s.calls.Load())
	})

	t.Run("Sweep Error Is Logged", func(t *testing.T) {
		s := &fakeSweeper{err: errors.New("db down")}
		w := NewExpirySweeper(s, lock.NewMemoryLocker(), "@every 1m", zap.NewNop())

		w.RunOnce(context.Background())

		assert.Equal(t, int32(1), s.calls.Load())
	})

	t.Run("Skips When Leader Lock Is Held", func(t *testing.T) {
		s := &fakeSweeper{}
		locker := lock.NewMemoryLocker()

		release, err := locker.Acquire(context.Background(), sweepLeaderKey, time.Minute)
		require.NoError(t, err)
		defer release()

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		w := NewExpirySweeper(s, locker, "@every 1m", zap.NewNop())
		w.RunOnce(ctx)

		assert.Equal(t, int32(0), s.calls.Load())
	})

	t.Run("Start And Stop", func(t *testing.T) {
		s := &fakeSweeper{}
		w := NewExpirySweeper(s, lock.NewMemoryLocker(), "not a cron spec", zap.NewNop())

		w.Start(context.Background())
		w.Start(context.Background())
		w.Stop()
		w.Stop()
	})
}
