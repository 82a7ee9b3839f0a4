//go:build wireinject

package main

import (
	"github.com/google/wire"
	"github.com/spf13/cobra"

	"github.com/otterscale/kubewatch/internal/app"
	"github.com/otterscale/kubewatch/internal/config"
	"github.com/otterscale/kubewatch/internal/core"
	"github.com/otterscale/kubewatch/internal/providers"
)

func wireCmd() (*cobra.Command, func(), error) {
	panic(wire.Build(
		newCmd,
		config.ProviderSet,
	))
}

func wireWatch(conf *config.Config) (*app.WatchService, func(), error) {
	panic(wire.Build(
		provideStreamConfig,
		app.ProviderSet,
		core.ProviderSet,
		providers.ProviderSet,
	))
}
