package core

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Masterminds/semver/v3"
	"github.com/google/uuid"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/apimachinery/pkg/version"
)

// minBookmarkVersion is the first Kubernetes release where watch
// bookmarks are generally available.
var minBookmarkVersion = semver.MustParse("v1.17.0")

// DiscoveryClient exposes the discovery data the watch use-case needs.
type DiscoveryClient interface {
	// ServerVersion returns the API server build information.
	ServerVersion(ctx context.Context) (*version.Info, error)
	// ResolveResource maps a resource argument such as "pods",
	// "deployments.apps" or "deployments.v1.apps" to a fully
	// qualified GroupVersionResource.
	ResolveResource(ctx context.Context, arg string) (schema.GroupVersionResource, error)
}

// WatchUseCase creates resumable watch streams.
type WatchUseCase struct {
	discovery DiscoveryClient
	versions  ResourceVersionSource
	transport WatchTransport
	conf      StreamConfig
	metrics   *streamMetrics
	log       *slog.Logger
}

func NewWatchUseCase(discovery DiscoveryClient, versions ResourceVersionSource, transport WatchTransport, conf StreamConfig) *WatchUseCase {
	return &WatchUseCase{
		discovery: discovery,
		versions:  versions,
		transport: transport,
		conf:      conf,
		metrics:   newStreamMetrics(),
		log:       slog.Default().With("component", "watch"),
	}
}

func (uc *WatchUseCase) ResolveResource(ctx context.Context, arg string) (schema.GroupVersionResource, error) {
	if arg == "" {
		return schema.GroupVersionResource{}, &ErrInvalidInput{Field: "resource", Message: "must not be empty"}
	}
	return uc.discovery.ResolveResource(ctx, arg)
}

// Watch discovers the starting resource version for target, opens the
// first watch exchange and returns the stream. It fails immediately if
// either step fails; afterwards failures only end the stream.
func (uc *WatchUseCase) Watch(ctx context.Context, target WatchTarget) (*EventStream, error) {
	if err := uc.validate(target); err != nil {
		return nil, err
	}

	if target.AllowBookmarks {
		supported, err := uc.bookmarksSupported(ctx)
		if err != nil {
			return nil, err
		}
		if !supported {
			uc.log.Warn("server does not support watch bookmarks, disabling them")
			target.AllowBookmarks = false
		}
	}

	rv, err := uc.versions.StartingResourceVersion(ctx, target)
	if err != nil {
		return nil, fmt.Errorf("discover starting resource version: %w", err)
	}

	exchange, err := uc.transport.OpenWatch(ctx, target, rv)
	if err != nil {
		return nil, fmt.Errorf("open watch: %w", err)
	}

	id := uuid.NewString()
	uc.log.Info("watch started",
		"stream", id,
		"resource", target.GroupVersionResource.String(),
		"namespace", target.Namespace,
		"resourceVersion", rv,
	)

	return newEventStream(id, target, uc.versions, uc.transport, exchange, rv, uc.conf, uc.metrics, uc.log), nil
}

func (uc *WatchUseCase) validate(target WatchTarget) error {
	gvr := target.GroupVersionResource
	if gvr.Resource == "" {
		return &ErrInvalidInput{Field: "resource", Message: "must not be empty"}
	}
	if gvr.Version == "" {
		return &ErrInvalidInput{Field: "version", Message: "must not be empty"}
	}
	if target.ReadTimeout < 0 {
		return &ErrInvalidInput{Field: "read timeout", Message: "must not be negative"}
	}
	if target.TimeoutSeconds < 0 {
		return &ErrInvalidInput{Field: "timeout seconds", Message: "must not be negative"}
	}
	return nil
}

func (uc *WatchUseCase) bookmarksSupported(ctx context.Context) (bool, error) {
	info, err := uc.discovery.ServerVersion(ctx)
	if err != nil {
		return false, err
	}

	kubeVersion, err := semver.NewVersion(info.String())
	if err != nil {
		return false, fmt.Errorf("parse server version %q: %w", info.String(), err)
	}

	return kubeVersion.GreaterThanEqual(minBookmarkVersion), nil
}
