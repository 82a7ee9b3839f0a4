package core

import (
	"context"
	"log/slog"
	"strings"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	utiljson "k8s.io/apimachinery/pkg/util/json"
)

// eventDecoder turns complete watch lines into events. It keeps no
// state of its own; the resource version cursor is threaded through
// decode by the caller.
type eventDecoder struct {
	log     *slog.Logger
	metrics *streamMetrics
}

// decode processes lines strictly in order. It returns the accepted
// events, whether the batch asked for a restart, and the advanced
// resource version. Once a line triggers a restart the remaining lines
// of the batch are ignored.
func (d *eventDecoder) decode(ctx context.Context, lines []string, resourceVersion string) ([]WatchEvent, bool, string) {
	var events []WatchEvent

	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}

		var envelope map[string]any
		if err := utiljson.Unmarshal([]byte(line), &envelope); err != nil {
			d.log.Warn("skipping malformed watch line", "error", err, "bytes", len(line))
			d.metrics.malformedLine(ctx)
			continue
		}

		eventType, _ := envelope["type"].(string)
		object, ok := envelope["object"].(map[string]any)
		if !ok {
			d.log.Warn("skipping watch line without object", "type", eventType)
			d.metrics.malformedLine(ctx)
			continue
		}

		if WatchEventType(eventType) == WatchEventError {
			d.logStatus(object)
			return events, true, resourceVersion
		}

		rv, found, err := unstructured.NestedString(object, "metadata", "resourceVersion")
		if err == nil && found && rv != "" {
			if rv == resourceVersion {
				d.log.Debug("suppressing already seen event", "resourceVersion", rv)
				continue
			}

			events = append(events, WatchEvent{
				Type:   WatchEventType(eventType),
				Object: object,
			})
			resourceVersion = rv
			continue
		}

		if _, hasMessage := object["message"]; hasMessage {
			d.logStatus(object)
			return events, true, resourceVersion
		}

		d.log.Warn("skipping watch line without resource version", "type", eventType)
		d.metrics.malformedLine(ctx)
	}

	return events, false, resourceVersion
}

// logStatus reports a server-side error object, which is a
// metav1.Status for well-behaved API servers.
func (d *eventDecoder) logStatus(object map[string]any) {
	var status metav1.Status
	if err := runtime.DefaultUnstructuredConverter.FromUnstructured(object, &status); err != nil {
		d.log.Warn("watch error event, restarting", "object", object)
		return
	}

	d.log.Warn("watch error event, restarting",
		"code", status.Code,
		"reason", status.Reason,
		"message", status.Message,
	)
}
