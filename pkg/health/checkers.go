package health

import (
	"context"
	"runtime"
	"runtime/debug"
	"time"

	"github.com/go-faster/errors"
)

// GoroutineCountCheck reports unhealthy once the goroutine count passes the
// given limit. Intended as a liveness check for goroutine leaks.
func GoroutineCountCheck(limit int) CheckFunc {
	return func(_ context.Context) error {
		if n := runtime.NumGoroutine(); n > limit {
			return errors.Errorf("goroutine count %d exceeds limit %d", n, limit)
		}
		return nil
	}
}

// recentPauses bounds how far back GCMaxPauseCheck looks. debug.GCStats keeps
// up to 256 pauses; inspecting all of them would pin the check unhealthy
// forever after one bad historical pause.
const recentPauses = 16

// GCMaxPauseCheck reports unhealthy when any of the most recent stop-the-world
// GC pauses exceeds the given limit. Long pauses usually mean memory pressure
// or an oversized heap.
func GCMaxPauseCheck(limit time.Duration) CheckFunc {
	return func(_ context.Context) error {
		var stats debug.GCStats
		debug.ReadGCStats(&stats)

		pauses := stats.Pause
		if len(pauses) > recentPauses {
			pauses = pauses[:recentPauses]
		}
		for _, pause := range pauses {
			if pause > limit {
				return errors.Errorf("GC pause %s exceeds limit %s", pause, limit)
			}
		}
		return nil
	}
}
