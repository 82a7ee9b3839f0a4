package core

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"net/http"
	"time"
)

type streamState int

const (
	// stateReceiving consumes signals from the live exchange.
	stateReceiving streamState = iota
	// stateRestarting needs a fresh resource version and a new exchange.
	stateRestarting
)

// StreamConfig tunes how a stream recovers from restarts.
type StreamConfig struct {
	// RestartBackoffBase delays the second and later consecutive
	// restarts that happen without any accepted event in between.
	// Zero restarts immediately.
	RestartBackoffBase time.Duration
	RestartBackoffMax  time.Duration
}

// EventStream is a pull-based, unbounded sequence of watch events for
// one resource collection. It reconnects on idle timeouts and restarts
// from a rediscovered resource version on 410 Gone, normal stream end
// and server-reported error events. Any other failure halts it.
//
// An EventStream has a single consumer. Next and Close must not be
// called concurrently; cancel the context passed to Next to interrupt
// a blocked pull.
type EventStream struct {
	id        string
	target    WatchTarget
	versions  ResourceVersionSource
	transport WatchTransport
	decoder   *eventDecoder
	backoff   *backoff
	metrics   *streamMetrics
	log       *slog.Logger

	state           streamState
	exchange        Exchange
	resourceVersion string
	remainder       string
	// restarts counts consecutive restarts with no accepted event.
	restarts int
	halted   bool
	err      error
}

func newEventStream(
	id string,
	target WatchTarget,
	versions ResourceVersionSource,
	transport WatchTransport,
	exchange Exchange,
	resourceVersion string,
	conf StreamConfig,
	metrics *streamMetrics,
	log *slog.Logger,
) *EventStream {
	log = log.With("stream", id, "resource", target.GroupVersionResource.String(), "namespace", target.Namespace)

	return &EventStream{
		id:              id,
		target:          target,
		versions:        versions,
		transport:       transport,
		decoder:         &eventDecoder{log: log, metrics: metrics},
		backoff:         newBackoff(conf.RestartBackoffBase, conf.RestartBackoffMax),
		metrics:         metrics,
		log:             log,
		state:           stateReceiving,
		exchange:        exchange,
		resourceVersion: resourceVersion,
	}
}

// ID returns the identifier used to correlate the stream's logs.
func (s *EventStream) ID() string {
	return s.id
}

// ResourceVersion returns the current resume cursor.
func (s *EventStream) ResourceVersion() string {
	return s.resourceVersion
}

// Err returns the reason the stream halted, or nil while it is still
// running or after the consumer closed it.
func (s *EventStream) Err() error {
	return s.err
}

// Next advances the stream by one step and returns the events that
// step produced, in arrival order. The batch may be empty. The boolean
// is false once the stream has halted; no further events follow.
func (s *EventStream) Next(ctx context.Context) ([]WatchEvent, bool) {
	if s.halted {
		return nil, false
	}

	if err := ctx.Err(); err != nil {
		s.halt(err)
		return nil, false
	}

	if s.state == stateRestarting {
		s.restart(ctx)
		return nil, !s.halted
	}

	return s.receive(ctx)
}

// All returns a single-use iterator over the stream's events. The
// stream is closed when iteration ends for any reason, including the
// consumer breaking out of the loop.
func (s *EventStream) All(ctx context.Context) iter.Seq[WatchEvent] {
	return func(yield func(WatchEvent) bool) {
		defer func() { _ = s.Close() }()

		for {
			events, ok := s.Next(ctx)
			for _, event := range events {
				if !yield(event) {
					return
				}
			}
			if !ok {
				return
			}
		}
	}
}

// Close releases the live exchange and ends the stream. It is safe to
// call more than once. A failure to close the exchange is logged and
// does not prevent the stream from ending.
func (s *EventStream) Close() error {
	s.closeExchange()
	s.halted = true
	return nil
}

func (s *EventStream) receive(ctx context.Context) ([]WatchEvent, bool) {
	sig, err := s.exchange.Next(ctx)
	if err != nil {
		s.halt(err)
		return nil, false
	}

	switch sig := sig.(type) {
	case EndSignal:
		s.log.Warn("watch stream ended, restarting", "resourceVersion", s.resourceVersion)
		s.enterRestarting(ctx, "end")

	case HeadersSignal:
		s.exchange.RequestNext()

	case StatusSignal:
		switch sig.Code {
		case http.StatusOK:
			s.exchange.RequestNext()
		case http.StatusGone:
			s.log.Warn("resource version expired, restarting", "resourceVersion", s.resourceVersion)
			s.enterRestarting(ctx, "gone")
		default:
			s.log.Error("unexpected watch status, halting", "code", sig.Code)
			s.halt(&ErrUnexpectedStatus{Code: sig.Code})
		}

	case ChunkSignal:
		return s.consume(ctx, sig.Data), true

	case ErrorSignal:
		if sig.Reason == ErrorReasonTimeout {
			s.reconnect(ctx)
			break
		}
		s.log.Error("watch transport failed, halting", "error", sig.Err)
		s.halt(fmt.Errorf("watch transport: %w", sig.Err))

	default:
		s.log.Error("unrecognized watch signal, halting", "signal", fmt.Sprintf("%T", sig))
		s.halt(fmt.Errorf("unrecognized watch signal %T", sig))
	}

	return nil, !s.halted
}

// consume runs a body chunk through the line assembler and decoder.
func (s *EventStream) consume(ctx context.Context, data []byte) []WatchEvent {
	lines, remainder := assembleLines(s.remainder, data)
	s.remainder = remainder

	events, restart, rv := s.decoder.decode(ctx, lines, s.resourceVersion)
	s.resourceVersion = rv

	if len(events) > 0 {
		s.restarts = 0
		s.backoff.Reset()
		s.metrics.eventsDelivered(ctx, len(events))
	}

	if restart {
		s.enterRestarting(ctx, "error_event")
	} else {
		s.exchange.RequestNext()
	}

	return events
}

// enterRestarting abandons the current exchange right away so that
// none of its late signals can be observed after the restart.
func (s *EventStream) enterRestarting(ctx context.Context, reason string) {
	s.closeExchange()
	s.remainder = ""
	s.state = stateRestarting
	s.metrics.restart(ctx, reason)
}

func (s *EventStream) restart(ctx context.Context) {
	if s.restarts > 0 {
		if d := s.backoff.Next(); d > 0 {
			s.log.Debug("delaying watch restart", "delay", d, "restarts", s.restarts)
			if !sleepCtx(ctx, d) {
				s.halt(ctx.Err())
				return
			}
		}
	}
	s.restarts++

	rv, err := s.versions.StartingResourceVersion(ctx, s.target)
	if err != nil {
		s.log.Error("failed to rediscover resource version, halting", "error", err)
		s.halt(fmt.Errorf("rediscover resource version: %w", err))
		return
	}

	exchange, err := s.transport.OpenWatch(ctx, s.target, rv)
	if err != nil {
		s.log.Error("failed to reopen watch, halting", "resourceVersion", rv, "error", err)
		s.halt(fmt.Errorf("reopen watch: %w", err))
		return
	}

	s.log.Info("watch restarted", "resourceVersion", rv, "previous", s.resourceVersion)
	s.exchange = exchange
	s.resourceVersion = rv
	s.state = stateReceiving
}

// reconnect replaces the exchange after an idle timeout. The cursor is
// still valid, so the new exchange resumes from the same version.
func (s *EventStream) reconnect(ctx context.Context) {
	s.log.Info("watch idle timeout, reconnecting", "resourceVersion", s.resourceVersion)
	s.closeExchange()
	s.remainder = ""

	exchange, err := s.transport.OpenWatch(ctx, s.target, s.resourceVersion)
	if err != nil {
		s.log.Error("failed to reconnect watch, halting", "resourceVersion", s.resourceVersion, "error", err)
		s.halt(fmt.Errorf("reconnect watch: %w", err))
		return
	}

	s.metrics.reconnect(ctx)
	s.exchange = exchange
}

func (s *EventStream) halt(err error) {
	s.closeExchange()
	s.halted = true
	s.err = err
}

func (s *EventStream) closeExchange() {
	if s.exchange == nil {
		return
	}
	if err := s.exchange.Close(); err != nil {
		s.log.Warn("failed to close watch exchange", "error", err)
	}
	s.exchange = nil
}
