package kubernetes

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/conversion/queryparams"
	"k8s.io/client-go/rest"

	"github.com/otterscale/kubewatch/internal/core"
)

// chunkSize bounds a single body read, and so a single ChunkSignal.
const chunkSize = 32 * 1024

var errExchangeClosed = errors.New("watch exchange closed")

// watchTransport implements core.WatchTransport with raw streamed GET
// requests. The dynamic client's Watch decodes the body itself, which
// hides the status, chunk and timeout signals the stream engine needs.
type watchTransport struct {
	kubernetes *Kubernetes
	log        *slog.Logger
}

// NewWatchTransport returns a core.WatchTransport that shares the
// connection's HTTP client, so authentication and TLS follow the
// loaded kubeconfig.
func NewWatchTransport(kubernetes *Kubernetes) core.WatchTransport {
	return &watchTransport{
		kubernetes: kubernetes,
		log:        slog.Default().With("component", "watch-transport"),
	}
}

var _ core.WatchTransport = (*watchTransport)(nil)

// OpenWatch starts the request in the background and returns
// immediately; the response arrives as signals on the exchange.
func (t *watchTransport) OpenWatch(ctx context.Context, target core.WatchTarget, resourceVersion string) (core.Exchange, error) {
	client, cfg, err := t.kubernetes.stream()
	if err != nil {
		return nil, err
	}

	u, err := watchURL(cfg, target, resourceVersion)
	if err != nil {
		return nil, err
	}

	reqCtx, cancel := context.WithCancel(ctx)
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, u.String(), nil)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("build watch request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	t.log.Debug("opening watch", "path", u.Path, "resourceVersion", resourceVersion)

	ex := newExchange(cancel, target.ReadTimeout)
	go ex.run(client, req)

	return ex, nil
}

// watchURL builds the collection URL with watch=true and the resume
// cursor, plus the target's selectors and tuning parameters.
func watchURL(cfg *rest.Config, target core.WatchTarget, resourceVersion string) (*url.URL, error) {
	base, _, err := rest.DefaultServerUrlFor(cfg)
	if err != nil {
		return nil, fmt.Errorf("resolve server url: %w", err)
	}
	if base.Path == "" {
		base.Path = "/"
	}

	opts := metav1.ListOptions{
		Watch:               true,
		ResourceVersion:     resourceVersion,
		LabelSelector:       target.LabelSelector,
		FieldSelector:       target.FieldSelector,
		AllowWatchBookmarks: target.AllowBookmarks,
	}
	if target.TimeoutSeconds > 0 {
		timeout := target.TimeoutSeconds
		opts.TimeoutSeconds = &timeout
	}

	query, err := queryparams.Convert(&opts)
	if err != nil {
		return nil, fmt.Errorf("encode watch options: %w", err)
	}

	u := base.JoinPath(collectionPath(target)...)
	u.RawQuery = query.Encode()
	return u, nil
}

func collectionPath(target core.WatchTarget) []string {
	gvr := target.GroupVersionResource

	var segments []string
	if gvr.Group == "" {
		segments = []string{"api", gvr.Version}
	} else {
		segments = []string{"apis", gvr.Group, gvr.Version}
	}
	if target.Namespace != "" {
		segments = append(segments, "namespaces", target.Namespace)
	}
	return append(segments, gvr.Resource)
}

// exchange is one streamed watch request. A pump goroutine performs
// the request and hands signals over an unbuffered channel, waiting
// for a credit before each one. The first credit is granted up front;
// RequestNext grants the rest.
type exchange struct {
	signals chan core.Signal
	credits chan struct{}
	done    chan struct{}
	cancel  context.CancelFunc

	readTimeout time.Duration
	timedOut    atomic.Bool
	closeOnce   sync.Once
}

func newExchange(cancel context.CancelFunc, readTimeout time.Duration) *exchange {
	e := &exchange{
		signals:     make(chan core.Signal),
		credits:     make(chan struct{}, 1),
		done:        make(chan struct{}),
		cancel:      cancel,
		readTimeout: readTimeout,
	}
	e.credits <- struct{}{}
	return e
}

var _ core.Exchange = (*exchange)(nil)

func (e *exchange) Next(ctx context.Context) (core.Signal, error) {
	select {
	case sig := <-e.signals:
		return sig, nil
	case <-e.done:
		return nil, errExchangeClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (e *exchange) RequestNext() {
	select {
	case e.credits <- struct{}{}:
	default:
	}
}

// Close cancels the request. The pump closes the body and exits on its
// own; nothing here waits for the network.
func (e *exchange) Close() error {
	e.closeOnce.Do(func() {
		close(e.done)
		e.cancel()
	})
	return nil
}

func (e *exchange) run(client *http.Client, req *http.Request) {
	defer e.cancel()

	var resp *http.Response
	err := e.withIdleTimeout(func() error {
		var err error
		resp, err = client.Do(req) //nolint:bodyclose // closed below
		return err
	})
	if err != nil {
		e.emit(e.failure(err))
		return
	}
	defer resp.Body.Close()

	if !e.emit(core.HeadersSignal{Header: resp.Header}) {
		return
	}
	if !e.emit(core.StatusSignal{Code: resp.StatusCode}) {
		return
	}
	if resp.StatusCode != http.StatusOK {
		return
	}

	buf := make([]byte, chunkSize)
	for {
		var n int
		err := e.withIdleTimeout(func() error {
			var err error
			n, err = resp.Body.Read(buf)
			return err
		})

		if n > 0 && !e.emit(core.ChunkSignal{Data: bytes.Clone(buf[:n])}) {
			return
		}

		switch {
		case errors.Is(err, io.EOF):
			e.emit(core.EndSignal{})
			return
		case err != nil:
			e.emit(e.failure(err))
			return
		}
	}
}

// withIdleTimeout aborts the request when fn has not returned within
// the read timeout. Only time spent waiting on the server counts; time
// spent waiting for the consumer to request the next signal does not.
func (e *exchange) withIdleTimeout(fn func() error) error {
	if e.readTimeout <= 0 {
		return fn()
	}

	timer := time.AfterFunc(e.readTimeout, func() {
		e.timedOut.Store(true)
		e.cancel()
	})
	defer timer.Stop()

	return fn()
}

func (e *exchange) failure(err error) core.ErrorSignal {
	var netErr net.Error
	if e.timedOut.Load() || (errors.As(err, &netErr) && netErr.Timeout()) {
		return core.ErrorSignal{Reason: core.ErrorReasonTimeout, Err: err}
	}
	return core.ErrorSignal{Reason: core.ErrorReasonTransport, Err: err}
}

// emit waits for a credit and hands sig to the consumer. It returns
// false once the exchange has been closed.
func (e *exchange) emit(sig core.Signal) bool {
	select {
	case <-e.credits:
	case <-e.done:
		return false
	}

	select {
	case e.signals <- sig:
		return true
	case <-e.done:
		return false
	}
}
