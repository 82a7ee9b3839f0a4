package kubernetes

import (
	"context"
	"fmt"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/otterscale/kubewatch/internal/core"
)

// resourceVersionSource implements core.ResourceVersionSource with a
// minimal list request: the list's own resourceVersion is the point in
// history the watch resumes from.
type resourceVersionSource struct {
	kubernetes *Kubernetes
}

// NewResourceVersionSource returns a core.ResourceVersionSource backed
// by the Kubernetes dynamic API.
func NewResourceVersionSource(kubernetes *Kubernetes) core.ResourceVersionSource {
	return &resourceVersionSource{
		kubernetes: kubernetes,
	}
}

var _ core.ResourceVersionSource = (*resourceVersionSource)(nil)

// StartingResourceVersion lists at most one item with the watch's
// selectors and returns the collection resource version.
func (r *resourceVersionSource) StartingResourceVersion(ctx context.Context, target core.WatchTarget) (string, error) {
	client, err := r.kubernetes.dynamic()
	if err != nil {
		return "", err
	}

	opts := metav1.ListOptions{
		LabelSelector: target.LabelSelector,
		FieldSelector: target.FieldSelector,
		Limit:         1,
	}

	list, err := client.Resource(target.GroupVersionResource).Namespace(target.Namespace).List(ctx, opts)
	if err != nil {
		return "", wrapK8sError(err)
	}

	rv := list.GetResourceVersion()
	if rv == "" {
		return "", fmt.Errorf("list %s returned no resource version", target.GroupVersionResource)
	}
	return rv, nil
}
