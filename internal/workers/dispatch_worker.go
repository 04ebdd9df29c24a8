package workers

import (
	"context"
	"time"

	postPort "crosspost/internal/ports/post"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Dispatcher is the piece of the dispatch service the worker drives.
type Dispatcher interface {
	RunDue(ctx context.Context) (*postPort.DispatchSummaryDTO, error)
}

// DispatchWorker runs the dispatcher on a cron cadence. It is the in-process
// equivalent of the external time trigger hitting /dispatch/run; both paths
// share the same service, so running both at once is safe.
type DispatchWorker struct {
	Dispatch       Dispatcher
	PostRepo       postPort.PostRepository
	CronExpression string
	Logger         *zap.Logger
}

func NewDispatchWorker(dispatch Dispatcher, postRepo postPort.PostRepository, cronExpression string, logger *zap.Logger) *DispatchWorker {
	return &DispatchWorker{
		Dispatch:       dispatch,
		PostRepo:       postRepo,
		CronExpression: cronExpression,
		Logger:         logger,
	}
}

// Run blocks until ctx is cancelled.
func (w *DispatchWorker) Run(ctx context.Context) {
	w.Logger.Info("🚀 DispatchWorker started", zap.String("cron", w.CronExpression))

	// Rows stuck in publishing are left behind by a crashed run. There is no
	// sweeper for them; surface the count so operators notice.
	if n, err := w.PostRepo.CountStuckPublishing(ctx, time.Now().Add(-10*time.Minute)); err != nil {
		w.Logger.Error("❌ Could not count stuck publishing posts", zap.Error(err))
	} else if n > 0 {
		w.Logger.Warn("⚠️ Posts stuck in publishing state", zap.Int64("count", n))
	}

	c := cron.New()
	_, err := c.AddFunc(w.CronExpression, func() {
		summary, err := w.Dispatch.RunDue(ctx)
		if err != nil {
			w.Logger.Error("❌ Dispatch run failed", zap.Error(err))
			return
		}
		if summary.Processed > 0 {
			w.Logger.Info("➡ Dispatch tick", zap.Int("processed", summary.Processed))
		}
	})
	if err != nil {
		w.Logger.Error("❌ Invalid dispatch cron expression", zap.String("cron", w.CronExpression), zap.Error(err))
		return
	}

	c.Start()
	<-ctx.Done()

	stopCtx := c.Stop()
	<-stopCtx.Done()
	w.Logger.Info("🛑 DispatchWorker stopped")
}
