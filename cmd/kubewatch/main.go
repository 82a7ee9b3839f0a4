// Package main is the entry point for the kubewatch binary. Its single
// subcommand, watch, streams the events of one resource collection and
// keeps the watch alive across timeouts and expired resource versions.
//
// Dependencies are assembled via Google Wire; see wire.go.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/otterscale/kubewatch/internal/app"
	"github.com/otterscale/kubewatch/internal/cmd"
	"github.com/otterscale/kubewatch/internal/config"
	"github.com/otterscale/kubewatch/internal/core"
)

// version is injected at build time via -ldflags
// (e.g. -ldflags "-X main.version=v1.2.3").
var version = "devel"

func main() {
	// Cancel on SIGINT (Ctrl+C) or SIGTERM (container runtime).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		// Cobra is configured with SilenceErrors: true, so we
		// print the error here for consistent formatting.
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run wires all dependencies and executes the root Cobra command.
func run(ctx context.Context) error {
	rootCmd, cleanup, err := wireCmd()
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer cleanup()

	return rootCmd.ExecuteContext(ctx)
}

// newCmd is a Wire provider that constructs the root Cobra command and
// registers the watch subcommand. The watch service is built lazily
// by the injector closure, after flags have been parsed.
func newCmd(conf *config.Config) (*cobra.Command, error) {
	c := &cobra.Command{
		Use:           "kubewatch",
		Short:         "kubewatch: resumable Kubernetes watch streams.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	watchCmd, err := cmd.NewWatchCommand(conf, func() (*app.WatchService, func(), error) {
		return wireWatch(conf)
	})
	if err != nil {
		return nil, err
	}

	c.AddCommand(watchCmd)

	return c, nil
}

// provideStreamConfig is a Wire provider that extracts the stream
// tuning from the configuration.
func provideStreamConfig(conf *config.Config) core.StreamConfig {
	return core.StreamConfig{
		RestartBackoffBase: conf.WatchRestartBackoffBase(),
		RestartBackoffMax:  conf.WatchRestartBackoffMax(),
	}
}
