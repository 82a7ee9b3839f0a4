package core

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"testing"
)

func newTestDecoder() *eventDecoder {
	return &eventDecoder{
		log:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		metrics: newStreamMetrics(),
	}
}

func eventLine(eventType WatchEventType, rv string) string {
	return fmt.Sprintf(`{"type":%q,"object":{"kind":"Pod","apiVersion":"v1","metadata":{"name":"pod-%s","resourceVersion":%q}}}`, eventType, rv, rv)
}

func errorLine(code int, message string) string {
	return fmt.Sprintf(`{"type":"ERROR","object":{"kind":"Status","apiVersion":"v1","status":"Failure","message":%q,"reason":"Expired","code":%d}}`, message, code)
}

func versionsOf(events []WatchEvent) []string {
	out := make([]string, 0, len(events))
	for _, e := range events {
		out = append(out, e.ResourceVersion())
	}
	return out
}

func TestDecode(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name        string
		lines       []string
		current     string
		wantRVs     []string
		wantRestart bool
		wantCursor  string
	}{
		{
			name:       "accepts events in order",
			lines:      []string{eventLine(WatchEventAdded, "101"), eventLine(WatchEventModified, "102")},
			current:    "100",
			wantRVs:    []string{"101", "102"},
			wantCursor: "102",
		},
		{
			name:       "suppresses consecutive duplicates",
			lines:      []string{eventLine(WatchEventAdded, "101"), eventLine(WatchEventAdded, "101")},
			current:    "100",
			wantRVs:    []string{"101"},
			wantCursor: "101",
		},
		{
			name:       "suppresses event at current cursor",
			lines:      []string{eventLine(WatchEventAdded, "100")},
			current:    "100",
			wantRVs:    []string{},
			wantCursor: "100",
		},
		{
			name:       "skips malformed line",
			lines:      []string{`{"type":"ADDED","object":`, eventLine(WatchEventAdded, "101")},
			current:    "100",
			wantRVs:    []string{"101"},
			wantCursor: "101",
		},
		{
			name:       "skips blank lines",
			lines:      []string{"", "   ", eventLine(WatchEventDeleted, "103")},
			current:    "100",
			wantRVs:    []string{"103"},
			wantCursor: "103",
		},
		{
			name:       "skips lines without object",
			lines:      []string{`{"type":"ADDED"}`, `[1,2,3]`},
			current:    "100",
			wantRVs:    []string{},
			wantCursor: "100",
		},
		{
			name:        "error event short-circuits the batch",
			lines:       []string{eventLine(WatchEventAdded, "101"), errorLine(410, "too old resource version"), eventLine(WatchEventAdded, "102")},
			current:     "100",
			wantRVs:     []string{"101"},
			wantRestart: true,
			wantCursor:  "101",
		},
		{
			name:        "message object without version restarts",
			lines:       []string{`{"object":{"message":"boom"}}`, eventLine(WatchEventAdded, "101")},
			current:     "100",
			wantRVs:     []string{},
			wantRestart: true,
			wantCursor:  "100",
		},
		{
			name:       "opaque versions compare by equality only",
			lines:      []string{eventLine(WatchEventAdded, "9"), eventLine(WatchEventAdded, "10"), eventLine(WatchEventAdded, "abc")},
			current:    "8",
			wantRVs:    []string{"9", "10", "abc"},
			wantCursor: "abc",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			events, restart, cursor := newTestDecoder().decode(context.Background(), tc.lines, tc.current)
			if got := versionsOf(events); !slices.Equal(got, tc.wantRVs) {
				t.Fatalf("versions = %q, want %q", got, tc.wantRVs)
			}
			if restart != tc.wantRestart {
				t.Fatalf("restart = %v, want %v", restart, tc.wantRestart)
			}
			if cursor != tc.wantCursor {
				t.Fatalf("cursor = %q, want %q", cursor, tc.wantCursor)
			}
		})
	}
}

func TestDecode_EventCarriesTypeAndObject(t *testing.T) {
	t.Parallel()

	events, _, _ := newTestDecoder().decode(context.Background(), []string{eventLine(WatchEventModified, "7")}, "")
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}

	e := events[0]
	if e.Type != WatchEventModified {
		t.Errorf("type = %q, want %q", e.Type, WatchEventModified)
	}
	if kind, _ := e.Object["kind"].(string); kind != "Pod" {
		t.Errorf("object kind = %q, want Pod", kind)
	}
}
