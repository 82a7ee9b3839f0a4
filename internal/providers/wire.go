// Package providers aggregates all infrastructure-layer implementations
// into a single Wire provider set.
package providers

import (
	"github.com/google/wire"

	"github.com/otterscale/kubewatch/internal/providers/kubernetes"
)

// ProviderSet is the Wire provider set for all external adapters.
var ProviderSet = wire.NewSet(
	kubernetes.New,
	kubernetes.NewDiscoveryClient,
	kubernetes.NewResourceVersionSource,
	kubernetes.NewWatchTransport,
)
