package bridge

import (
	"context"
	"time"

	"github.com/naturalnetworks/sungrow-bridge/logger"
)

// HeartbeatSignal is the liveness payload sent after every iteration.
const HeartbeatSignal = "alive"

// CycleRunner is one poll-build-serialize-publish attempt that never fails
// out. Implemented by Controller.
type CycleRunner interface {
	Run()
}

// Scheduler repeats the cycle at a fixed interval. The first cycle fires
// immediately, cycles never overlap, and the heartbeat is emitted after every
// iteration whether or not the cycle succeeded, since the process is alive
// and making progress either way.
type Scheduler struct {
	cycle     CycleRunner
	heartbeat HeartbeatNotifier
	interval  time.Duration
}

// NewScheduler creates a scheduler driving cycle every interval.
func NewScheduler(cycle CycleRunner, heartbeat HeartbeatNotifier, interval time.Duration) *Scheduler {
	return &Scheduler{
		cycle:     cycle,
		heartbeat: heartbeat,
		interval:  interval,
	}
}

// Run loops until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	logger.Info("scheduler started, polling every %s", s.interval)

	timer := time.NewTimer(s.interval)
	defer timer.Stop()

	for {
		s.cycle.Run()
		s.heartbeat.Notify(HeartbeatSignal)

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(s.interval)

		select {
		case <-ctx.Done():
			logger.Info("scheduler stopped")
			return
		case <-timer.C:
		}
	}
}
