package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/otterscale/kubewatch/internal/core"
)

// WatchRequest describes one watch run: the resource argument as typed
// by the user, and the target template whose GroupVersionResource is
// filled in once the argument has been resolved.
type WatchRequest struct {
	Resource string
	Target   core.WatchTarget
}

// WatchService runs watch streams and writes their events as
// newline-delimited JSON.
type WatchService struct {
	watch *core.WatchUseCase
	log   *slog.Logger
}

// NewWatchService returns a WatchService backed by the given use-case.
func NewWatchService(watch *core.WatchUseCase) *WatchService {
	return &WatchService{
		watch: watch,
		log:   slog.Default().With("component", "watch-service"),
	}
}

// Run resolves the requested resource, opens the stream and copies
// every event to out until the stream ends or ctx is cancelled. It
// returns the reason the stream halted; cancellation is not an error.
func (s *WatchService) Run(ctx context.Context, req WatchRequest, out io.Writer) error {
	gvr, err := s.watch.ResolveResource(ctx, req.Resource)
	if err != nil {
		return err
	}

	target := req.Target
	target.GroupVersionResource = gvr

	stream, err := s.watch.Watch(ctx, target)
	if err != nil {
		return err
	}
	defer stream.Close()

	enc := json.NewEncoder(out)
	for event := range stream.All(ctx) {
		if err := enc.Encode(event); err != nil {
			return fmt.Errorf("write event: %w", err)
		}
	}

	err = stream.Err()
	if errors.Is(err, context.Canceled) {
		err = nil
	}

	s.log.Info("watch finished",
		"stream", stream.ID(),
		"resource", gvr.String(),
		"resourceVersion", stream.ResourceVersion(),
		"error", err,
	)
	return err
}

// Listener adapts one watch run to transport.Listener so it can share
// a lifecycle with the ops server.
func (s *WatchService) Listener(req WatchRequest, out io.Writer) *WatchListener {
	return &WatchListener{
		service: s,
		req:     req,
		out:     out,
	}
}

// WatchListener runs a single watch between Start and Stop.
type WatchListener struct {
	service *WatchService
	req     WatchRequest
	out     io.Writer

	mu     sync.Mutex
	cancel context.CancelFunc
}

// Start blocks until the watch ends, ctx is cancelled or Stop is
// called.
func (l *WatchListener) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	l.mu.Lock()
	l.cancel = cancel
	l.mu.Unlock()

	err := l.service.Run(ctx, l.req, l.out)
	if err != nil && ctx.Err() != nil {
		// Stopped while resolving or bootstrapping.
		return nil
	}
	return err
}

// Stop cancels a running watch. The stream closes its exchange on the
// way out of Start.
func (l *WatchListener) Stop(_ context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.cancel != nil {
		l.cancel()
	}
	return nil
}
