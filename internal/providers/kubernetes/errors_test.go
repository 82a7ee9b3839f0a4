package kubernetes

import (
	"errors"
	"testing"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/runtime/schema"

	"github.com/otterscale/kubewatch/internal/core"
)

func TestWrapK8sError(t *testing.T) {
	t.Parallel()

	pods := schema.GroupResource{Resource: "pods"}

	cases := []struct {
		name string
		err  error
		want core.ErrorCode
	}{
		{name: "forbidden", err: apierrors.NewForbidden(pods, "", errors.New("denied")), want: core.ErrorCodePermissionDenied},
		{name: "unauthorized", err: apierrors.NewUnauthorized("who are you"), want: core.ErrorCodeUnauthenticated},
		{name: "not found", err: apierrors.NewNotFound(pods, "web"), want: core.ErrorCodeNotFound},
		{name: "gone", err: apierrors.NewGone("too old"), want: core.ErrorCodeGone},
		{name: "expired", err: apierrors.NewResourceExpired("too old"), want: core.ErrorCodeGone},
		{name: "throttled", err: apierrors.NewTooManyRequests("slow down", 1), want: core.ErrorCodeResourceExhausted},
		{name: "unavailable", err: apierrors.NewServiceUnavailable("down"), want: core.ErrorCodeUnavailable},
		{name: "unknown reason", err: apierrors.NewConflict(pods, "web", errors.New("conflict")), want: core.ErrorCodeInternal},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			err := wrapK8sError(tc.err)

			var domainErr *core.DomainError
			if !errors.As(err, &domainErr) {
				t.Fatalf("error = %v, want *core.DomainError", err)
			}
			if domainErr.Code != tc.want {
				t.Errorf("code = %s, want %s", domainErr.Code, tc.want)
			}
			if !errors.Is(err, tc.err) {
				t.Error("wrapped error does not unwrap to the original")
			}
		})
	}
}

func TestWrapK8sError_PassThrough(t *testing.T) {
	t.Parallel()

	if err := wrapK8sError(nil); err != nil {
		t.Fatalf("wrapK8sError(nil) = %v, want nil", err)
	}

	plain := errors.New("dial tcp: connection refused")
	if err := wrapK8sError(plain); err != plain {
		t.Fatalf("wrapK8sError(plain) = %v, want the same error", err)
	}
}
