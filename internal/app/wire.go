// Package app contains the application services that drive the core
// use-cases on behalf of the command line.
package app

import (
	"github.com/google/wire"
)

// ProviderSet is the Wire provider set for the application layer.
var ProviderSet = wire.NewSet(
	NewWatchService,
)
