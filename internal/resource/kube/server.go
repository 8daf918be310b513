package kube

import (
	corev1 "k8s.io/api/core/v1"
	"k8s.io/utils/ptr"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/clustergate/cloudcheck/internal/resource"
)

// DefaultServerImage is the container image used when Spec.Image is empty.
const DefaultServerImage = "registry.k8s.io/pause:3.10"

// Servers adapts Pods running a single container. Spec.Image is the image,
// Spec.Type the runtime class and Spec.Zone a node selector.
type Servers struct{}

func (Servers) Kind() string { return KindServer }

func (Servers) NewObject() client.Object { return &corev1.Pod{} }

func (Servers) NewList() client.ObjectList { return &corev1.PodList{} }

func (Servers) Build(spec resource.Spec) (client.Object, error) {
	image := spec.Image
	if image == "" {
		image = DefaultServerImage
	}

	pod := &corev1.Pod{
		Spec: corev1.PodSpec{
			RestartPolicy:                 corev1.RestartPolicyNever,
			TerminationGracePeriodSeconds: ptr.To[int64](0),
			AutomountServiceAccountToken:  ptr.To(false),
			Containers: []corev1.Container{
				{
					Name:  "probe",
					Image: image,
				},
			},
		},
	}
	if spec.Type != "" {
		pod.Spec.RuntimeClassName = ptr.To(spec.Type)
	}
	if spec.Zone != "" {
		pod.Spec.NodeSelector = map[string]string{corev1.LabelTopologyZone: spec.Zone}
	}
	return pod, nil
}

func (Servers) Status(obj client.Object) string {
	pod, ok := obj.(*corev1.Pod)
	if !ok {
		return resource.StatusError
	}
	switch pod.Status.Phase {
	case corev1.PodRunning:
		return resource.StatusAvailable
	case corev1.PodSucceeded:
		return resource.StatusStopped
	case corev1.PodFailed:
		return resource.StatusError
	default:
		return resource.StatusPending
	}
}

func (Servers) Size(client.Object) string { return "" }
