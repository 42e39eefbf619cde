// Package safego runs fire-and-forget work (audit writes, usage recording) in
// goroutines that cannot take the process down. Wait lets shutdown drain them.
package safego

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync"

	"github.com/creavibe/creavibe/internal/telemetry"
)

var inflight sync.WaitGroup

// Go runs fn in a new goroutine. A panic is recovered, logged with its stack under
// task, and counted in background_task_panics_total.
func Go(task string, fn func()) {
	inflight.Add(1)
	go func() {
		defer inflight.Done()
		defer func() {
			if r := recover(); r != nil {
				telemetry.BackgroundPanicsTotal.WithLabelValues(task).Inc()
				slog.Error("recovered panic in background task",
					"task", task,
					"panic", r,
					"stack", string(debug.Stack()),
				)
			}
		}()
		fn()
	}()
}

// Wait blocks until every task started by Go has returned, or ctx is done.
// Call it after the HTTP server has stopped accepting requests.
func Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
