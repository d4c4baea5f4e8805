package connectors

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/bsm/redislock"
	"github.com/sirupsen/logrus"
	"github.com/tomaszgubala/car-dealer/config"
)

const scheduledImportLockKey = "import:scheduled"

// Scheduler triggers periodic import runs. Overlap is prevented twice:
// an atomic in-flight flag within the process, and a redis lock across
// instances. A tick that finds a run already in progress is skipped,
// never queued.
type Scheduler struct {
	Importer *Importer
	Interval time.Duration
	Logger   *logrus.Logger

	running atomic.Bool
}

func NewScheduler(importer *Importer) *Scheduler {
	minutes := config.IntFromEnv("IMPORT_INTERVAL_MINUTES", 30)
	return &Scheduler{
		Importer: importer,
		Interval: time.Duration(minutes) * time.Minute,
		Logger:   config.GetLogger(),
	}
}

// Run blocks, firing a tick every interval until the context ends.
func (s *Scheduler) Run(ctx context.Context) {
	s.Logger.WithField("interval", s.Interval.String()).Info("import scheduler started")
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.Logger.Info("import scheduler stopped")
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick runs one scheduled import pass. It returns the per-connector
// results and whether the pass actually ran; a skipped tick reports
// ran=false with no results.
func (s *Scheduler) Tick(ctx context.Context) ([]ImportRunResult, bool) {
	if !s.running.CompareAndSwap(false, true) {
		s.Logger.Info("previous import run still in progress, skipping tick")
		return nil, false
	}
	defer s.running.Store(false)

	if locker := config.GetRedisLock(); locker != nil {
		lock, err := locker.Obtain(ctx, scheduledImportLockKey, s.Interval, nil)
		if errors.Is(err, redislock.ErrNotObtained) {
			s.Logger.Info("another instance holds the import lock, skipping tick")
			return nil, false
		}
		if err != nil {
			config.LogError(s.Logger, moduleName, "Tick", "obtaining import lock", scheduledImportLockKey, err)
			return nil, false
		}
		defer lock.Release(ctx)
	}

	return s.Importer.Run(ctx, ""), true
}
