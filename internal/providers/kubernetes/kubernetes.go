package kubernetes

import (
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"k8s.io/client-go/discovery"
	"k8s.io/client-go/discovery/cached/memory"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/restmapper"
	"k8s.io/client-go/tools/clientcmd"

	"github.com/otterscale/kubewatch/internal/config"
)

// Kubernetes holds the connection to one API server. The rest.Config
// and the HTTP client built from it are created once and shared by
// every adapter, so list, discovery and watch requests reuse the same
// connections and credentials.
type Kubernetes struct {
	load func() (*rest.Config, error)

	once       sync.Once
	restConfig *rest.Config
	httpClient *http.Client
	err        error

	mapperOnce sync.Once
	mapper     *restmapper.DeferredDiscoveryRESTMapper
	mapperErr  error
}

// New returns a Kubernetes connection configured from conf. The
// kubeconfig is resolved lazily on first use.
func New(conf *config.Config) *Kubernetes {
	return &Kubernetes{
		load: func() (*rest.Config, error) {
			return loadRESTConfig(conf.WatchKubeconfig(), conf.WatchContext())
		},
	}
}

// NewForConfig returns a Kubernetes connection for an existing
// rest.Config.
func NewForConfig(cfg *rest.Config) *Kubernetes {
	return &Kubernetes{
		load: func() (*rest.Config, error) {
			return rest.CopyConfig(cfg), nil
		},
	}
}

// loadRESTConfig prefers an explicit kubeconfig, then the in-cluster
// service account, then the default kubeconfig loading rules.
func loadRESTConfig(kubeconfig, kubeContext string) (*rest.Config, error) {
	if kubeconfig == "" && kubeContext == "" {
		cfg, err := rest.InClusterConfig()
		if err == nil {
			return cfg, nil
		}
		slog.Debug("in-cluster config not available, falling back to kubeconfig", "error", err)
	}

	rules := clientcmd.NewDefaultClientConfigLoadingRules()
	if kubeconfig != "" {
		rules.ExplicitPath = kubeconfig
	}
	overrides := &clientcmd.ConfigOverrides{CurrentContext: kubeContext}

	cfg, err := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(rules, overrides).ClientConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to build kube config: %w", err)
	}
	return cfg, nil
}

func (k *Kubernetes) init() error {
	k.once.Do(func() {
		cfg, err := k.load()
		if err != nil {
			k.err = err
			return
		}

		// Watches are long-lived; a client-wide timeout would cut
		// every exchange regardless of activity.
		cfg.Timeout = 0

		client, err := rest.HTTPClientFor(cfg)
		if err != nil {
			k.err = fmt.Errorf("failed to create http client: %w", err)
			return
		}

		k.restConfig = cfg
		k.httpClient = client
	})
	return k.err
}

func (k *Kubernetes) dynamic() (*dynamic.DynamicClient, error) {
	if err := k.init(); err != nil {
		return nil, err
	}
	return dynamic.NewForConfigAndClient(k.restConfig, k.httpClient)
}

func (k *Kubernetes) discovery() (*discovery.DiscoveryClient, error) {
	if err := k.init(); err != nil {
		return nil, err
	}
	return discovery.NewDiscoveryClientForConfigAndClient(k.restConfig, k.httpClient)
}

// restMapper returns a discovery-backed REST mapper. Discovery results
// are cached in memory for the lifetime of the process.
func (k *Kubernetes) restMapper() (*restmapper.DeferredDiscoveryRESTMapper, error) {
	k.mapperOnce.Do(func() {
		dc, err := k.discovery()
		if err != nil {
			k.mapperErr = err
			return
		}
		k.mapper = restmapper.NewDeferredDiscoveryRESTMapper(memory.NewMemCacheClient(dc))
	})
	return k.mapper, k.mapperErr
}

// stream returns the shared HTTP client and the rest.Config it was
// built from, for requests the typed clients cannot express.
func (k *Kubernetes) stream() (*http.Client, *rest.Config, error) {
	if err := k.init(); err != nil {
		return nil, nil, err
	}
	return k.httpClient, k.restConfig, nil
}
