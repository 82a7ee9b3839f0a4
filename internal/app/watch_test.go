package app

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/apimachinery/pkg/version"

	"github.com/otterscale/kubewatch/internal/core"
)

var podsGVR = schema.GroupVersionResource{Version: "v1", Resource: "pods"}

type fakeDiscovery struct{}

func (fakeDiscovery) ServerVersion(context.Context) (*version.Info, error) {
	return &version.Info{GitVersion: "v1.31.0"}, nil
}

func (fakeDiscovery) ResolveResource(_ context.Context, arg string) (schema.GroupVersionResource, error) {
	if arg != "pods" {
		return schema.GroupVersionResource{}, &core.ErrInvalidInput{Field: "resource", Message: "unknown " + arg}
	}
	return podsGVR, nil
}

type fakeVersions struct{}

func (fakeVersions) StartingResourceVersion(context.Context, core.WatchTarget) (string, error) {
	return "100", nil
}

// scriptedExchange replays its signals, then blocks until closed or
// cancelled.
type scriptedExchange struct {
	signals []core.Signal
	closed  chan struct{}
	once    sync.Once
}

func newScriptedExchange(signals ...core.Signal) *scriptedExchange {
	return &scriptedExchange{signals: signals, closed: make(chan struct{})}
}

func (e *scriptedExchange) Next(ctx context.Context) (core.Signal, error) {
	if len(e.signals) > 0 {
		sig := e.signals[0]
		e.signals = e.signals[1:]
		return sig, nil
	}
	select {
	case <-e.closed:
		return nil, errors.New("exchange closed")
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (e *scriptedExchange) RequestNext() {}

func (e *scriptedExchange) Close() error {
	e.once.Do(func() { close(e.closed) })
	return nil
}

type fakeTransport struct {
	mu        sync.Mutex
	exchanges []*scriptedExchange
}

func (t *fakeTransport) OpenWatch(context.Context, core.WatchTarget, string) (core.Exchange, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.exchanges) == 0 {
		return nil, errors.New("no more exchanges")
	}
	ex := t.exchanges[0]
	t.exchanges = t.exchanges[1:]
	return ex, nil
}

func eventChunk(rvs ...string) core.ChunkSignal {
	var buf bytes.Buffer
	for _, rv := range rvs {
		fmt.Fprintf(&buf, `{"type":"ADDED","object":{"metadata":{"resourceVersion":%q}}}`+"\n", rv)
	}
	return core.ChunkSignal{Data: buf.Bytes()}
}

func newTestService(exchanges ...*scriptedExchange) *WatchService {
	uc := core.NewWatchUseCase(fakeDiscovery{}, fakeVersions{}, &fakeTransport{exchanges: exchanges}, core.StreamConfig{})
	return NewWatchService(uc)
}

func decodeOutput(t *testing.T, out *bytes.Buffer) []core.WatchEvent {
	t.Helper()

	var events []core.WatchEvent
	scanner := bufio.NewScanner(out)
	for scanner.Scan() {
		var event core.WatchEvent
		if err := json.Unmarshal(scanner.Bytes(), &event); err != nil {
			t.Fatalf("output line %q is not an event: %v", scanner.Text(), err)
		}
		events = append(events, event)
	}
	return events
}

func TestWatchService_Run(t *testing.T) {
	t.Parallel()

	svc := newTestService(
		newScriptedExchange(
			core.HeadersSignal{},
			core.StatusSignal{Code: http.StatusOK},
			eventChunk("101", "102"),
			core.EndSignal{},
		),
		newScriptedExchange(
			core.HeadersSignal{},
			core.StatusSignal{Code: http.StatusForbidden},
		),
	)

	var out bytes.Buffer
	err := svc.Run(context.Background(), WatchRequest{Resource: "pods", Target: core.WatchTarget{Namespace: "default"}}, &out)

	var status *core.ErrUnexpectedStatus
	if !errors.As(err, &status) || status.Code != http.StatusForbidden {
		t.Fatalf("Run error = %v, want unexpected status 403", err)
	}

	events := decodeOutput(t, &out)
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	for i, want := range []string{"101", "102"} {
		if events[i].Type != core.WatchEventAdded || events[i].ResourceVersion() != want {
			t.Errorf("event %d = %s@%s, want ADDED@%s", i, events[i].Type, events[i].ResourceVersion(), want)
		}
	}
}

func TestWatchService_RunUnknownResource(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	err := newTestService().Run(context.Background(), WatchRequest{Resource: "widgets"}, &out)

	var invalid *core.ErrInvalidInput
	if !errors.As(err, &invalid) {
		t.Fatalf("Run error = %v, want *core.ErrInvalidInput", err)
	}
	if out.Len() != 0 {
		t.Fatalf("unexpected output %q", out.String())
	}
}

func TestWatchListener_StopEndsWatch(t *testing.T) {
	t.Parallel()

	ex := newScriptedExchange(
		core.HeadersSignal{},
		core.StatusSignal{Code: http.StatusOK},
		eventChunk("101"),
	)
	lis := newTestService(ex).Listener(WatchRequest{Resource: "pods"}, &bytes.Buffer{})

	done := make(chan error, 1)
	go func() { done <- lis.Start(context.Background()) }()

	// Stop may race Start; retry until the watch notices.
	deadline := time.After(5 * time.Second)
	for {
		if err := lis.Stop(context.Background()); err != nil {
			t.Fatalf("Stop returned error: %v", err)
		}
		select {
		case err := <-done:
			if err != nil {
				t.Fatalf("Start returned error after Stop: %v", err)
			}
			select {
			case <-ex.closed:
			default:
				t.Fatal("exchange was not closed")
			}
			return
		case <-time.After(10 * time.Millisecond):
		case <-deadline:
			t.Fatal("Start did not return after Stop")
		}
	}
}
