package kube

import (
	"fmt"
	"strconv"

	corev1 "k8s.io/api/core/v1"
	apiresource "k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/clustergate/cloudcheck/internal/resource"
)

// DefaultVolumeSize is the storage request used when Spec.Size is empty.
const DefaultVolumeSize = "1Gi"

// Volumes adapts PersistentVolumeClaims. Spec.Size is the storage request
// (a bare number means GiB), Spec.Type the storage class and Spec.Zone a
// topology selector.
type Volumes struct{}

func (Volumes) Kind() string { return KindVolume }

func (Volumes) NewObject() client.Object { return &corev1.PersistentVolumeClaim{} }

func (Volumes) NewList() client.ObjectList { return &corev1.PersistentVolumeClaimList{} }

func (Volumes) Build(spec resource.Spec) (client.Object, error) {
	size := spec.Size
	if size == "" {
		size = DefaultVolumeSize
	}
	if _, err := strconv.ParseFloat(size, 64); err == nil {
		size += "Gi"
	}
	quantity, err := apiresource.ParseQuantity(size)
	if err != nil {
		return nil, fmt.Errorf("invalid volume size %q: %w", spec.Size, err)
	}

	pvc := &corev1.PersistentVolumeClaim{
		Spec: corev1.PersistentVolumeClaimSpec{
			AccessModes: []corev1.PersistentVolumeAccessMode{corev1.ReadWriteOnce},
			Resources: corev1.VolumeResourceRequirements{
				Requests: corev1.ResourceList{corev1.ResourceStorage: quantity},
			},
		},
	}
	if spec.Type != "" {
		storageClass := spec.Type
		pvc.Spec.StorageClassName = &storageClass
	}
	if spec.Zone != "" {
		pvc.Spec.Selector = &metav1.LabelSelector{
			MatchLabels: map[string]string{corev1.LabelTopologyZone: spec.Zone},
		}
	}
	return pvc, nil
}

func (Volumes) Status(obj client.Object) string {
	pvc, ok := obj.(*corev1.PersistentVolumeClaim)
	if !ok {
		return resource.StatusError
	}
	switch pvc.Status.Phase {
	case corev1.ClaimBound:
		return resource.StatusAvailable
	case corev1.ClaimLost:
		return resource.StatusError
	default:
		return resource.StatusPending
	}
}

func (Volumes) Size(obj client.Object) string {
	pvc, ok := obj.(*corev1.PersistentVolumeClaim)
	if !ok {
		return ""
	}
	if capacity, ok := pvc.Status.Capacity[corev1.ResourceStorage]; ok {
		return capacity.String()
	}
	if request, ok := pvc.Spec.Resources.Requests[corev1.ResourceStorage]; ok {
		return request.String()
	}
	return ""
}
