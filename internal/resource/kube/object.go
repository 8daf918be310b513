package kube

import (
	"fmt"

	"github.com/docker/go-units"
	corev1 "k8s.io/api/core/v1"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/clustergate/cloudcheck/internal/resource"
)

const (
	// DefaultObjectSize is the payload size used when Spec.Size is empty.
	DefaultObjectSize = "1KiB"

	// maxObjectSize stays below the API server's 1MiB object limit.
	maxObjectSize = 1000 * units.KiB

	objectPayloadKey = "payload"
)

// Objects adapts ConfigMaps holding a binary payload of Spec.Size bytes.
type Objects struct{}

func (Objects) Kind() string { return KindObject }

func (Objects) NewObject() client.Object { return &corev1.ConfigMap{} }

func (Objects) NewList() client.ObjectList { return &corev1.ConfigMapList{} }

func (Objects) Build(spec resource.Spec) (client.Object, error) {
	size := spec.Size
	if size == "" {
		size = DefaultObjectSize
	}
	n, err := units.RAMInBytes(size)
	if err != nil {
		return nil, fmt.Errorf("invalid object size %q: %w", spec.Size, err)
	}
	if n < 0 || n > maxObjectSize {
		return nil, fmt.Errorf("object size %s must be between 0 and %s", size, units.BytesSize(maxObjectSize))
	}

	payload := make([]byte, n)
	for i := range payload {
		payload[i] = byte('a' + i%26)
	}
	return &corev1.ConfigMap{
		BinaryData: map[string][]byte{objectPayloadKey: payload},
	}, nil
}

func (Objects) Status(client.Object) string { return resource.StatusAvailable }

func (Objects) Size(obj client.Object) string {
	cm, ok := obj.(*corev1.ConfigMap)
	if !ok {
		return ""
	}
	n := len(cm.BinaryData[objectPayloadKey])
	for _, v := range cm.Data {
		n += len(v)
	}
	return units.BytesSize(float64(n))
}
