package probe

import (
	"context"
	"time"
)

// Scheduler provides the suspension points of a run. Stress loops Yield at a
// fixed cadence so a host watchdog never sees a script that does not return
// control; pacing between report lines goes through Sleep.
type Scheduler interface {
	Yield(ctx context.Context) error
	Sleep(ctx context.Context, d time.Duration) error
}

// DefaultYieldQuantum is how long a yield suspends the run.
const DefaultYieldQuantum = time.Millisecond

// TimerScheduler suspends on real timers.
type TimerScheduler struct {
	Quantum time.Duration
}

func NewTimerScheduler() *TimerScheduler {
	return &TimerScheduler{Quantum: DefaultYieldQuantum}
}

func (s *TimerScheduler) Yield(ctx context.Context) error {
	return s.Sleep(ctx, s.Quantum)
}

func (s *TimerScheduler) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
