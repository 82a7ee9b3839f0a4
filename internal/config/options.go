package config

import (
	"strings"
	"time"
)

// Option describes a single configuration entry: its viper key, the
// corresponding CLI flag name, the compiled default, and a
// human-readable description shown in --help output.
type Option struct {
	Key         string
	Flag        string
	Default     any
	Description string
}

// WatchOptions defines the configuration entries of the watch command.
// Each entry is registered as a viper default and a CLI flag.
var WatchOptions = []Option{
	{Key: keyWatchKubeconfig, Flag: toFlag(keyWatchKubeconfig), Default: "", Description: "Path to the kubeconfig file (defaults to in-cluster config, then $KUBECONFIG or ~/.kube/config)"},
	{Key: keyWatchContext, Flag: toFlag(keyWatchContext), Default: "", Description: "Kubeconfig context to use"},
	{Key: keyWatchNamespace, Flag: toFlag(keyWatchNamespace), Default: "", Description: "Namespace to watch (empty watches all namespaces)"},
	{Key: keyWatchLabelSelector, Flag: toFlag(keyWatchLabelSelector), Default: "", Description: "Label selector passed to the list and watch requests"},
	{Key: keyWatchFieldSelector, Flag: toFlag(keyWatchFieldSelector), Default: "", Description: "Field selector passed to the list and watch requests"},
	{Key: keyWatchReadTimeout, Flag: toFlag(keyWatchReadTimeout), Default: 5 * time.Minute, Description: "Reconnect when no data arrives for this long (0 disables)"},
	{Key: keyWatchTimeoutSeconds, Flag: toFlag(keyWatchTimeoutSeconds), Default: 0, Description: "Server-side watch timeout in seconds (0 uses the server default)"},
	{Key: keyWatchAllowBookmarks, Flag: toFlag(keyWatchAllowBookmarks), Default: false, Description: "Request BOOKMARK events"},
	{Key: keyWatchRestartBackoffBase, Flag: toFlag(keyWatchRestartBackoffBase), Default: time.Second, Description: "Base delay between consecutive restarts without events"},
	{Key: keyWatchRestartBackoffMax, Flag: toFlag(keyWatchRestartBackoffMax), Default: 30 * time.Second, Description: "Maximum delay between consecutive restarts without events"},
	{Key: keyMetricsAddress, Flag: toFlag(keyMetricsAddress), Default: "", Description: "Listen address for /metrics and /healthz (empty disables)"},
	{Key: keyMetricsAllowedOrigins, Flag: toFlag(keyMetricsAllowedOrigins), Default: []string{}, Description: "CORS origins allowed on the ops endpoints (empty allows all)"},
	{Key: keyDebugEnabled, Flag: toFlag(keyDebugEnabled), Default: false, Description: "Debug logging enabled"},
}

// toFlag converts a viper key like "watch.read_timeout" into a CLI
// flag like "read-timeout" by lower-casing, replacing dots and
// underscores with hyphens, and stripping the "watch-" prefix.
func toFlag(key string) string {
	flag := strings.ToLower(key)
	flag = strings.ReplaceAll(flag, ".", "-")
	flag = strings.ReplaceAll(flag, "_", "-")
	flag = strings.TrimPrefix(flag, "watch-")
	return flag
}
