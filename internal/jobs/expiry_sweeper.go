package jobs

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/BruksfildServices01/clinic-scheduler/internal/lock"
	"github.com/BruksfildServices01/clinic-scheduler/internal/usecase/booking"
)

const (
	sweepLeaderKey = "clinic:expiry-sweep:leader"
	sweepLeaderTTL = 2 * time.Minute
	fallbackSpec   = "@every 1m"
)

type Sweeper interface {
	Execute(ctx context.Context) (booking.SweepResult, error)
}

// ExpirySweeper roda a varredura de holds vencidos no cron; com Redis só
// uma instância executa por vez.
type ExpirySweeper struct {
	sweeper Sweeper
	locker  lock.Locker
	spec    string
	log     *zap.Logger

	mu     sync.Mutex
	cron   *cron.Cron
	runCtx context.Context
	cancel context.CancelFunc
}

func NewExpirySweeper(sweeper Sweeper, locker lock.Locker, spec string, log *zap.Logger) *ExpirySweeper {
	return &ExpirySweeper{
		sweeper: sweeper,
		locker:  locker,
		spec:    spec,
		log:     log,
	}
}

func (w *ExpirySweeper) Start(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.cron != nil {
		return
	}

	w.runCtx, w.cancel = context.WithCancel(ctx)

	c := cron.New()
	if _, err := c.AddFunc(w.spec, func() { w.RunOnce(w.runCtx) }); err != nil {
		w.log.Warn("expiry sweep: invalid cron spec, falling back",
			zap.String("spec", w.spec),
			zap.String("fallback", fallbackSpec),
			zap.Error(err),
		)
		c = cron.New()
		_, _ = c.AddFunc(fallbackSpec, func() { w.RunOnce(w.runCtx) })
	}
	c.Start()
	w.cron = c
}

// Stop cancela a rodada corrente e espera o job terminar.
func (w *ExpirySweeper) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.cancel != nil {
		w.cancel()
	}
	if w.cron != nil {
		<-w.cron.Stop().Done()
		w.cron = nil
	}
}

func (w *ExpirySweeper) RunOnce(ctx context.Context) {
	release, err := w.locker.Acquire(ctx, sweepLeaderKey, sweepLeaderTTL)
	if errors.Is(err, lock.ErrNotAcquired) {
		w.log.Debug("expiry sweep: another instance is running")
		return
	}
	if err != nil {
		w.log.Warn("expiry sweep: leader lock failed", zap.Error(err))
		return
	}
	defer release()

	res, err := w.sweeper.Execute(ctx)
	if err != nil {
		w.log.Error("expiry sweep failed", zap.Error(err))
		return
	}

	if res.Checked > 0 || res.Orphaned > 0 {
		w.log.Info("expiry sweep done",
			zap.Int("checked", res.Checked),
			zap.Int("expired", res.Expired),
			zap.Int("orphaned", res.Orphaned),
		)
	}
}
