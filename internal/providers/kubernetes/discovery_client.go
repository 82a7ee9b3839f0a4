package kubernetes

import (
	"context"
	"fmt"

	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/apimachinery/pkg/version"

	"github.com/otterscale/kubewatch/internal/core"
)

// discoveryClient implements core.DiscoveryClient by delegating to the
// Kubernetes discovery API.
type discoveryClient struct {
	kubernetes *Kubernetes
}

// NewDiscoveryClient returns a core.DiscoveryClient backed by the
// Kubernetes discovery API.
func NewDiscoveryClient(kubernetes *Kubernetes) core.DiscoveryClient {
	return &discoveryClient{
		kubernetes: kubernetes,
	}
}

var _ core.DiscoveryClient = (*discoveryClient)(nil)

// ServerVersion returns the Kubernetes version of the API server.
func (d *discoveryClient) ServerVersion(_ context.Context) (*version.Info, error) {
	client, err := d.kubernetes.discovery()
	if err != nil {
		return nil, err
	}
	info, err := client.ServerVersion()
	return info, wrapK8sError(err)
}

// ResolveResource accepts the same resource arguments as kubectl
// ("pods", "deployments.apps", "deployments.v1.apps") and returns the
// preferred fully qualified GroupVersionResource.
func (d *discoveryClient) ResolveResource(_ context.Context, arg string) (schema.GroupVersionResource, error) {
	mapper, err := d.kubernetes.restMapper()
	if err != nil {
		return schema.GroupVersionResource{}, err
	}

	fullySpecified, groupResource := schema.ParseResourceArg(arg)
	if fullySpecified != nil {
		if gvr, err := mapper.ResourceFor(*fullySpecified); err == nil {
			return gvr, nil
		}
	}

	gvr, err := mapper.ResourceFor(groupResource.WithVersion(""))
	if err != nil {
		return schema.GroupVersionResource{}, &core.ErrInvalidInput{
			Field:   "resource",
			Message: fmt.Sprintf("unable to recognize %q: %v", arg, err),
		}
	}
	return gvr, nil
}
