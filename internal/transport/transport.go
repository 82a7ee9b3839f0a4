// Package transport coordinates the lifecycle of the long-running
// components (watch runner, ops HTTP server) using an errgroup.
package transport

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"
)

// shutdownTimeout is the maximum time allowed for graceful shutdown
// of each listener after the context is cancelled.
const shutdownTimeout = 15 * time.Second

// Listener defines a component that can be started and stopped as
// part of the process lifecycle. Start should block until the
// component finishes or ctx is cancelled. Stop performs graceful
// shutdown within the provided context deadline.
type Listener interface {
	Start(context.Context) error
	Stop(context.Context) error
}

// Serve runs all listeners concurrently and coordinates graceful
// shutdown. The first listener to return, with or without an error,
// ends the group: a watch that finishes takes the ops server down with
// it. A single goroutine waits for that moment and calls Stop on every
// listener, so Stop never runs before Start has been scheduled.
func Serve(ctx context.Context, lis ...Listener) error {
	eg, egCtx := errgroup.WithContext(ctx)
	egCtx, cancel := context.WithCancel(egCtx)
	defer cancel()

	for _, li := range lis {
		eg.Go(func() error {
			defer cancel()
			return li.Start(egCtx)
		})
	}

	// Each listener gets its own timeout so that a slow listener
	// cannot starve subsequent ones.
	eg.Go(func() error {
		<-egCtx.Done()

		var errs []error
		for _, li := range lis {
			stopCtx, stopCancel := context.WithTimeout(context.Background(), shutdownTimeout)
			if err := li.Stop(stopCtx); err != nil {
				errs = append(errs, err)
			}
			stopCancel()
		}
		return errors.Join(errs...)
	})

	return eg.Wait()
}
