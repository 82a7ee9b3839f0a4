// Package config provides unified configuration loading from files,
// environment variables, and CLI flags using viper and pflag.
//
// Resolution order (highest wins):
//  1. CLI flags
//  2. Environment variables (prefix KUBEWATCH_)
//  3. Config file (config.yaml in . or /etc/kubewatch/)
//  4. Compiled defaults
package config

// Viper keys for the watch connection and stream tuning.
const (
	keyWatchKubeconfig         = "watch.kubeconfig"
	keyWatchContext            = "watch.context"
	keyWatchNamespace          = "watch.namespace"
	keyWatchLabelSelector      = "watch.label_selector"
	keyWatchFieldSelector      = "watch.field_selector"
	keyWatchReadTimeout        = "watch.read_timeout"
	keyWatchTimeoutSeconds     = "watch.timeout_seconds"
	keyWatchAllowBookmarks     = "watch.allow_bookmarks"
	keyWatchRestartBackoffBase = "watch.restart_backoff_base"
	keyWatchRestartBackoffMax  = "watch.restart_backoff_max"
)

// Viper keys for the ops endpoints and diagnostics.
const (
	keyMetricsAddress        = "metrics.address"
	keyMetricsAllowedOrigins = "metrics.allowed_origins"
	keyDebugEnabled          = "debug.enabled"
)
