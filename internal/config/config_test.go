package config

import (
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func TestToFlag(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		keyWatchReadTimeout:        "read-timeout",
		keyWatchLabelSelector:      "label-selector",
		keyWatchRestartBackoffBase: "restart-backoff-base",
		keyMetricsAddress:          "metrics-address",
		keyDebugEnabled:            "debug-enabled",
	}

	for key, want := range cases {
		if got := toFlag(key); got != want {
			t.Errorf("toFlag(%q) = %q, want %q", key, got, want)
		}
	}
}

func TestBindFlags_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	conf, err := New()
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	if err := conf.BindFlags(fs, WatchOptions); err != nil {
		t.Fatalf("BindFlags returned error: %v", err)
	}

	if got := conf.WatchReadTimeout(); got != 5*time.Minute {
		t.Errorf("WatchReadTimeout = %s, want 5m", got)
	}
	if got := conf.WatchTimeoutSeconds(); got != 0 {
		t.Errorf("WatchTimeoutSeconds = %d, want 0", got)
	}
	if conf.WatchAllowBookmarks() {
		t.Error("WatchAllowBookmarks = true, want false")
	}
	if got := conf.MetricsAddress(); got != "" {
		t.Errorf("MetricsAddress = %q, want empty", got)
	}
}

func TestBindFlags_FlagsOverrideDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	conf, err := New()
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	if err := conf.BindFlags(fs, WatchOptions); err != nil {
		t.Fatalf("BindFlags returned error: %v", err)
	}

	args := []string{
		"--namespace=kube-system",
		"--label-selector=app=web",
		"--read-timeout=30s",
		"--timeout-seconds=120",
		"--allow-bookmarks",
		"--metrics-allowed-origins=https://a.example.com,https://b.example.com",
	}
	if err := fs.Parse(args); err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}

	if got := conf.WatchNamespace(); got != "kube-system" {
		t.Errorf("WatchNamespace = %q, want kube-system", got)
	}
	if got := conf.WatchLabelSelector(); got != "app=web" {
		t.Errorf("WatchLabelSelector = %q, want app=web", got)
	}
	if got := conf.WatchReadTimeout(); got != 30*time.Second {
		t.Errorf("WatchReadTimeout = %s, want 30s", got)
	}
	if got := conf.WatchTimeoutSeconds(); got != 120 {
		t.Errorf("WatchTimeoutSeconds = %d, want 120", got)
	}
	if !conf.WatchAllowBookmarks() {
		t.Error("WatchAllowBookmarks = false, want true")
	}
	if got := conf.MetricsAllowedOrigins(); len(got) != 2 || got[1] != "https://b.example.com" {
		t.Errorf("MetricsAllowedOrigins = %v, want two origins", got)
	}
}

func TestEnvironmentOverride(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("KUBEWATCH_WATCH_FIELD_SELECTOR", "status.phase=Running")

	conf, err := New()
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	if got := conf.WatchFieldSelector(); got != "status.phase=Running" {
		t.Errorf("WatchFieldSelector = %q, want status.phase=Running", got)
	}
}

func TestBindFlags_UnsupportedType(t *testing.T) {
	t.Chdir(t.TempDir())

	conf, err := New()
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	err = conf.BindFlags(fs, []Option{{Key: "watch.bogus", Flag: "bogus", Default: 1.5}})
	if err == nil {
		t.Fatal("expected error for unsupported flag type")
	}
}
