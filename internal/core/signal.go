package core

import (
	"fmt"
	"net/http"
)

// Signal is a transport-level notification delivered by an Exchange.
// The set of implementations is closed: HeadersSignal, StatusSignal,
// ChunkSignal, EndSignal and ErrorSignal.
type Signal interface {
	signal()
}

// HeadersSignal reports that the response headers arrived.
type HeadersSignal struct {
	Header http.Header
}

// StatusSignal reports the response status code.
type StatusSignal struct {
	Code int
}

// ChunkSignal carries a piece of the response body. Chunk boundaries
// are arbitrary and may split lines.
type ChunkSignal struct {
	Data []byte
}

// EndSignal reports that the body ended without error.
type EndSignal struct{}

// ErrorReason classifies transport failures.
type ErrorReason int

const (
	// ErrorReasonTransport is any failure other than an idle timeout.
	ErrorReasonTransport ErrorReason = iota
	// ErrorReasonTimeout means no data arrived within the read timeout.
	ErrorReasonTimeout
)

func (r ErrorReason) String() string {
	switch r {
	case ErrorReasonTimeout:
		return "timeout"
	case ErrorReasonTransport:
		return "transport"
	default:
		return fmt.Sprintf("reason(%d)", int(r))
	}
}

// ErrorSignal reports that the exchange failed.
type ErrorSignal struct {
	Reason ErrorReason
	Err    error
}

func (HeadersSignal) signal() {}
func (StatusSignal) signal()  {}
func (ChunkSignal) signal()   {}
func (EndSignal) signal()     {}
func (ErrorSignal) signal()   {}
