package kube

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
	utilruntime "k8s.io/apimachinery/pkg/util/runtime"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	clocktesting "k8s.io/utils/clock/testing"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"
	"sigs.k8s.io/controller-runtime/pkg/client/interceptor"

	"github.com/clustergate/cloudcheck/internal/checks"
	"github.com/clustergate/cloudcheck/internal/lifecycle"
	"github.com/clustergate/cloudcheck/internal/resource"
)

const testNamespace = "cloudcheck"

func kubeTestScheme() *runtime.Scheme {
	s := runtime.NewScheme()
	utilruntime.Must(clientgoscheme.AddToScheme(s))
	return s
}

func labelledPVC(id, name string, phase corev1.PersistentVolumeClaimPhase) *corev1.PersistentVolumeClaim {
	return &corev1.PersistentVolumeClaim{
		ObjectMeta: metav1.ObjectMeta{
			Name:      id,
			Namespace: testNamespace,
			Labels:    map[string]string{resource.LabelName: name},
		},
		Status: corev1.PersistentVolumeClaimStatus{Phase: phase},
	}
}

func TestClient_CreateGetDelete(t *testing.T) {
	c := fake.NewClientBuilder().WithScheme(kubeTestScheme()).Build()
	volumes := New(c, testNamespace, Volumes{})
	ctx := context.Background()

	h, err := volumes.Create(ctx, resource.Spec{Name: "monitoring-test", Size: "2", Labels: map[string]string{resource.LabelRunID: "run-1"}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !strings.HasPrefix(h.ID, "monitoring-test-") {
		t.Errorf("expected generated ID, got %q", h.ID)
	}
	if h.Name != "monitoring-test" || h.Namespace != testNamespace || h.Size != "2Gi" {
		t.Errorf("unexpected handle: %+v", h)
	}

	pvc := &corev1.PersistentVolumeClaim{}
	if err := c.Get(ctx, client.ObjectKey{Namespace: testNamespace, Name: h.ID}, pvc); err != nil {
		t.Fatalf("get created pvc: %v", err)
	}
	if pvc.Labels[resource.LabelRunID] != "run-1" || pvc.Labels[resource.LabelManagedBy] != resource.LabelManagedByValue {
		t.Errorf("unexpected labels: %v", pvc.Labels)
	}

	byName, err := volumes.Get(ctx, "monitoring-test")
	if err != nil || byName.ID != h.ID {
		t.Fatalf("get by name = %+v, %v", byName, err)
	}
	byID, err := volumes.Get(ctx, h.ID)
	if err != nil || byID.ID != h.ID {
		t.Fatalf("get by id = %+v, %v", byID, err)
	}

	status, err := volumes.Status(ctx, h)
	if err != nil || status != resource.StatusPending {
		t.Errorf("status = %q, %v; want pending", status, err)
	}

	if err := volumes.Delete(ctx, h); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := volumes.Status(ctx, h); !errors.Is(err, resource.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if err := volumes.Delete(ctx, h); !errors.Is(err, resource.ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestClient_GetNotFoundAndAmbiguous(t *testing.T) {
	c := fake.NewClientBuilder().
		WithScheme(kubeTestScheme()).
		WithObjects(
			labelledPVC("dup-aaaaa", "dup", corev1.ClaimBound),
			labelledPVC("dup-bbbbb", "dup", corev1.ClaimBound),
		).
		Build()
	volumes := New(c, testNamespace, Volumes{})

	if _, err := volumes.Get(context.Background(), "missing"); !errors.Is(err, resource.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := volumes.Get(context.Background(), "not a valid label value!"); !errors.Is(err, resource.ErrNotFound) {
		t.Errorf("expected ErrNotFound for unlabelable name, got %v", err)
	}

	_, err := volumes.Get(context.Background(), "dup")
	var ambiguous *resource.AmbiguousError
	if !errors.As(err, &ambiguous) {
		t.Fatalf("expected *AmbiguousError, got %v", err)
	}
	if ambiguous.Matches != 2 || ambiguous.Kind != KindVolume {
		t.Errorf("unexpected ambiguity: %+v", ambiguous)
	}
}

func TestClient_StatusDeleting(t *testing.T) {
	pvc := labelledPVC("held-aaaaa", "held", corev1.ClaimBound)
	pvc.Finalizers = []string{"kubernetes.io/pvc-protection"}
	c := fake.NewClientBuilder().WithScheme(kubeTestScheme()).WithObjects(pvc).Build()
	volumes := New(c, testNamespace, Volumes{})
	h := resource.Handle{ID: "held-aaaaa"}

	if status, _ := volumes.Status(context.Background(), h); status != resource.StatusAvailable {
		t.Fatalf("expected available before delete, got %q", status)
	}
	if err := volumes.Delete(context.Background(), h); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if status, _ := volumes.Status(context.Background(), h); status != resource.StatusDeleting {
		t.Errorf("expected deleting while finalizer is present, got %q", status)
	}
}

func TestClient_APIErrorsAreClientErrors(t *testing.T) {
	quota := apierrors.NewForbidden(schema.GroupResource{Resource: "persistentvolumeclaims"}, "", errors.New("exceeded quota"))
	c := fake.NewClientBuilder().
		WithScheme(kubeTestScheme()).
		WithInterceptorFuncs(interceptor.Funcs{
			Create: func(context.Context, client.WithWatch, client.Object, ...client.CreateOption) error {
				return quota
			},
			Get: func(context.Context, client.WithWatch, client.ObjectKey, client.Object, ...client.GetOption) error {
				return apierrors.NewServiceUnavailable("etcd leader changed")
			},
		}).
		Build()
	volumes := New(c, testNamespace, Volumes{})

	_, err := volumes.Create(context.Background(), resource.Spec{Name: "monitoring-test"})
	var clientErr *resource.ClientError
	if !errors.As(err, &clientErr) || clientErr.Op != "create" {
		t.Fatalf("expected create *ClientError, got %v", err)
	}
	if !apierrors.IsForbidden(err) {
		t.Errorf("expected the API error to stay inspectable, got %v", err)
	}

	if _, err := volumes.Get(context.Background(), "monitoring-test"); !errors.As(err, &clientErr) {
		t.Errorf("expected *ClientError from get, got %v", err)
	}
	if _, err := volumes.Status(context.Background(), resource.Handle{ID: "x"}); !errors.As(err, &clientErr) || clientErr.Op != "status" {
		t.Errorf("expected status *ClientError, got %v", err)
	}
	if checks.SeverityForError(err) != checks.SeverityCritical {
		t.Error("client errors must be critical")
	}
}

func TestClient_CreateRejectsInvalidName(t *testing.T) {
	c := fake.NewClientBuilder().WithScheme(kubeTestScheme()).Build()
	objects := New(c, testNamespace, Objects{})

	_, err := objects.Create(context.Background(), resource.Spec{Name: "bad name/with slash"})
	var clientErr *resource.ClientError
	if !errors.As(err, &clientErr) {
		t.Fatalf("expected *ClientError, got %v", err)
	}
}

func TestClient_List(t *testing.T) {
	c := fake.NewClientBuilder().
		WithScheme(kubeTestScheme()).
		WithObjects(
			labelledPVC("a", "a", corev1.ClaimBound),
			labelledPVC("b", "b", corev1.ClaimBound),
			labelledPVC("c", "c", corev1.ClaimPending),
		).
		Build()
	volumes := New(c, testNamespace, Volumes{})

	all, err := volumes.List(context.Background(), 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("expected 3 volumes, got %d", len(all))
	}

	one, err := volumes.List(context.Background(), 1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(one) != 1 {
		t.Errorf("expected limit to be honoured, got %d", len(one))
	}
}

func TestForKind(t *testing.T) {
	c := fake.NewClientBuilder().WithScheme(kubeTestScheme()).Build()
	for _, kind := range []string{KindVolume, KindServer, KindObject, "Volume"} {
		k, err := ForKind(kind, c, testNamespace)
		if err != nil {
			t.Errorf("ForKind(%q): %v", kind, err)
			continue
		}
		if k.Kind() != strings.ToLower(kind) {
			t.Errorf("Kind() = %q, want %q", k.Kind(), strings.ToLower(kind))
		}
	}
	if _, err := ForKind("database", c, testNamespace); err == nil {
		t.Error("expected error for unsupported kind")
	}
}

func TestProbe_AgainstObjects(t *testing.T) {
	c := fake.NewClientBuilder().WithScheme(kubeTestScheme()).Build()
	objects := New(c, testNamespace, Objects{})
	clk := clocktesting.NewFakeClock(time.Unix(0, 0))

	probe := lifecycle.New(objects, lifecycle.Config{
		Spec:          resource.Spec{Name: "monitoring-test", Size: "4KiB"},
		ReadyTimeout:  10 * time.Second,
		DeleteTimeout: 10 * time.Second,
	}, lifecycle.WithClock(clk))

	for i := 0; i < 2; i++ {
		result := probe.Run(context.Background())
		if result.Severity != checks.SeverityOK {
			t.Fatalf("run %d: expected OK, got %v: %s", i+1, result.Severity, result.Message)
		}
		if result.Message != "Successfully created and deleted object monitoring-test" {
			t.Errorf("unexpected message: %q", result.Message)
		}
	}

	left := &corev1.ConfigMapList{}
	if err := c.List(context.Background(), left, client.InNamespace(testNamespace)); err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(left.Items) != 0 {
		t.Errorf("expected no config maps left behind, got %d", len(left.Items))
	}
}

func TestProbe_AgainstVolumesNeverBound(t *testing.T) {
	c := fake.NewClientBuilder().WithScheme(kubeTestScheme()).Build()
	volumes := New(c, testNamespace, Volumes{})
	clk := clocktesting.NewFakeClock(time.Unix(0, 0))

	probe := lifecycle.New(volumes, lifecycle.Config{
		Spec:          resource.Spec{Name: "monitoring-test"},
		ReadyTimeout:  5 * time.Second,
		DeleteTimeout: 5 * time.Second,
	}, lifecycle.WithClock(clk))

	result := probe.Run(context.Background())
	if result.Severity != checks.SeverityCritical {
		t.Fatalf("expected CRITICAL, got %v", result.Severity)
	}
	if !strings.Contains(result.Message, `step "wait-ready" failed`) || !strings.HasSuffix(result.Message, "cleanup succeeded") {
		t.Errorf("unexpected message: %q", result.Message)
	}

	left := &corev1.PersistentVolumeClaimList{}
	if err := c.List(context.Background(), left); err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(left.Items) != 0 {
		t.Errorf("cleanup should have deleted the claim, %d left", len(left.Items))
	}
}

func TestLifecycle_VolumesReadyWhilePending(t *testing.T) {
	c := fake.NewClientBuilder().WithScheme(kubeTestScheme()).Build()
	volumes := New(c, testNamespace, Volumes{})
	clk := clocktesting.NewFakeClock(time.Unix(0, 0))

	lc := lifecycle.New(volumes, lifecycle.Config{
		Spec:          resource.Spec{Name: "monitoring-test", Type: "local-wffc"},
		ReadyStatus:   resource.StatusPending,
		ReadyTimeout:  5 * time.Second,
		DeleteTimeout: 5 * time.Second,
	}, lifecycle.WithClock(clk))

	result := lc.Run(context.Background())
	if result.Severity != checks.SeverityOK {
		t.Fatalf("expected OK, got %v: %s", result.Severity, result.Message)
	}
	if result.Message != "Successfully created and deleted volume monitoring-test" {
		t.Errorf("unexpected message: %q", result.Message)
	}
}
