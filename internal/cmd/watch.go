// Package cmd defines the Cobra subcommands and bridges configuration,
// dependency injection, and the transport/application layers.
package cmd

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/otterscale/kubewatch/internal/app"
	"github.com/otterscale/kubewatch/internal/config"
	"github.com/otterscale/kubewatch/internal/core"
	"github.com/otterscale/kubewatch/internal/transport"
	transporthttp "github.com/otterscale/kubewatch/internal/transport/http"
)

// WatchInjector builds the watch service once configuration and
// logging are settled.
type WatchInjector func() (*app.WatchService, func(), error)

func NewWatchCommand(conf *config.Config, newWatch WatchInjector) (*cobra.Command, error) {
	cmd := &cobra.Command{
		Use:   "watch <resource>",
		Short: "Stream watch events for a resource collection as newline-delimited JSON",
		Long: "Watch a Kubernetes resource collection and print every event as one JSON object per line.\n" +
			"The watch resumes on idle timeouts and restarts from a fresh resource version when the\n" +
			"server reports that the previous one has expired.",
		Example: "kubewatch watch pods --namespace=default\n" +
			"kubewatch watch deployments.apps --label-selector=app=web --allow-bookmarks",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			setupLogging(cmd.ErrOrStderr(), conf.DebugEnabled())

			svc, cleanup, err := newWatch()
			if err != nil {
				return fmt.Errorf("failed to initialize watch: %w", err)
			}
			defer cleanup()

			req := app.WatchRequest{
				Resource: args[0],
				Target:   watchTarget(conf),
			}

			listeners := []transport.Listener{svc.Listener(req, cmd.OutOrStdout())}

			if address := conf.MetricsAddress(); address != "" {
				srv, err := transporthttp.NewServer(
					transporthttp.WithAddress(address),
					transporthttp.WithAllowedOrigins(conf.MetricsAllowedOrigins()),
					transporthttp.WithMount(transporthttp.NewOpsMount(transporthttp.NewRegistry())),
				)
				if err != nil {
					return err
				}
				listeners = append(listeners, srv)
			}

			return transport.Serve(cmd.Context(), listeners...)
		},
	}

	if err := conf.BindFlags(cmd.Flags(), config.WatchOptions); err != nil {
		return nil, err
	}

	return cmd, nil
}

// watchTarget builds the target template from configuration. The
// resource itself is resolved later from the command argument.
func watchTarget(conf *config.Config) core.WatchTarget {
	return core.WatchTarget{
		Namespace:      conf.WatchNamespace(),
		LabelSelector:  conf.WatchLabelSelector(),
		FieldSelector:  conf.WatchFieldSelector(),
		ReadTimeout:    conf.WatchReadTimeout(),
		TimeoutSeconds: conf.WatchTimeoutSeconds(),
		AllowBookmarks: conf.WatchAllowBookmarks(),
	}
}

// setupLogging installs a text handler on w as the default logger.
// Events go to stdout, so logs must not.
func setupLogging(w io.Writer, debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
}
