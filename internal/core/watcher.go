package core

import (
	"context"
	"time"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
)

// WatchEventType represents the type of a resource watch event.
// This is a domain-level type that decouples the core layer from
// k8s.io/apimachinery/pkg/watch.EventType.
type WatchEventType string

const (
	WatchEventAdded    WatchEventType = "ADDED"
	WatchEventModified WatchEventType = "MODIFIED"
	WatchEventDeleted  WatchEventType = "DELETED"
	WatchEventBookmark WatchEventType = "BOOKMARK"
	WatchEventError    WatchEventType = "ERROR"
)

// WatchEvent represents a single event from a resource watch stream.
// Object carries the raw Kubernetes resource as a generic map so that
// the domain layer does not depend on unstructured.Unstructured.
type WatchEvent struct {
	Type   WatchEventType `json:"type"`
	Object map[string]any `json:"object"`
}

// ResourceVersion returns the resource version embedded in the event
// object, or "" when the object carries none.
func (e WatchEvent) ResourceVersion() string {
	rv, _, _ := unstructured.NestedString(e.Object, "metadata", "resourceVersion")
	return rv
}

// WatchTarget describes the resource collection being watched and how
// the underlying watch requests are tuned. It is copied, never mutated,
// across reconnects.
type WatchTarget struct {
	GroupVersionResource schema.GroupVersionResource
	Namespace            string
	LabelSelector        string
	FieldSelector        string

	// ReadTimeout is the longest the transport waits for body bytes
	// before reporting an idle timeout. Zero disables the idle timer.
	ReadTimeout time.Duration
	// TimeoutSeconds is passed to the server as timeoutSeconds so it
	// ends idle watches on its side. Zero leaves it to the server.
	TimeoutSeconds int64
	// AllowBookmarks requests BOOKMARK events from the server.
	AllowBookmarks bool
}

// ResourceVersionSource discovers the resource version a watch should
// start from. It is consulted for the first connection and after
// every restart.
type ResourceVersionSource interface {
	StartingResourceVersion(ctx context.Context, target WatchTarget) (string, error)
}

// WatchTransport opens streamed watch exchanges against the API server.
type WatchTransport interface {
	OpenWatch(ctx context.Context, target WatchTarget, resourceVersion string) (Exchange, error)
}

// Exchange is one in-flight streamed watch request. Signals are
// delivered in order through Next. After the first signal, the
// exchange only produces the next one once RequestNext is called.
type Exchange interface {
	// Next blocks until the next signal is available or ctx is done.
	Next(ctx context.Context) (Signal, error)
	// RequestNext allows the exchange to produce one more signal.
	RequestNext()
	// Close abandons the exchange. It never blocks on the network.
	Close() error
}
