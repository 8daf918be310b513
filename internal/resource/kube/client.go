// Package kube implements resource.Client for Kubernetes-hosted resource
// kinds on top of a controller-runtime client.
package kube

import (
	"context"
	"fmt"
	"strings"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/api/meta"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/apimachinery/pkg/util/validation"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/clustergate/cloudcheck/internal/resource"
)

// Kinds supported by ForKind.
const (
	KindVolume = "volume"
	KindServer = "server"
	KindObject = "object"
)

// Adapter binds the generic Client to one Kubernetes object type.
type Adapter interface {
	// Kind returns the resource kind name, e.g. "volume".
	Kind() string
	// NewObject returns an empty object of the adapted type.
	NewObject() client.Object
	// NewList returns an empty list of the adapted type.
	NewList() client.ObjectList
	// Build returns an unsaved object for spec. Metadata is filled in by
	// the Client.
	Build(spec resource.Spec) (client.Object, error)
	// Status maps the object's state to a resource status string.
	Status(obj client.Object) string
	// Size reports the object's size in a human-readable form.
	Size(obj client.Object) string
}

// Client is a resource.Client and resource.Lister for one adapted kind in
// one namespace.
type Client struct {
	c         client.Client
	namespace string
	adapter   Adapter
}

var _ resource.Client = &Client{}
var _ resource.Lister = &Client{}

// New returns a Client for adapter in namespace.
func New(c client.Client, namespace string, adapter Adapter) *Client {
	return &Client{c: c, namespace: namespace, adapter: adapter}
}

// ForKind returns a Client for one of the built-in kinds.
func ForKind(kind string, c client.Client, namespace string) (*Client, error) {
	switch strings.ToLower(kind) {
	case KindVolume:
		return New(c, namespace, Volumes{}), nil
	case KindServer:
		return New(c, namespace, Servers{}), nil
	case KindObject:
		return New(c, namespace, Objects{}), nil
	default:
		return nil, fmt.Errorf("unsupported resource kind %q", kind)
	}
}

func (k *Client) Kind() string { return k.adapter.Kind() }

// Namespace returns the namespace the client operates in.
func (k *Client) Namespace() string { return k.namespace }

// Create creates an object named after spec.Name with a generated suffix.
// The display name is kept in the resource.LabelName label.
func (k *Client) Create(ctx context.Context, spec resource.Spec) (resource.Handle, error) {
	if errs := validation.IsValidLabelValue(spec.Name); len(errs) > 0 {
		return resource.Handle{}, &resource.ClientError{Op: "create", Kind: k.Kind(),
			Err: fmt.Errorf("invalid name %q: %s", spec.Name, strings.Join(errs, "; "))}
	}

	obj, err := k.adapter.Build(spec)
	if err != nil {
		return resource.Handle{}, &resource.ClientError{Op: "create", Kind: k.Kind(), Err: err}
	}

	labels := make(map[string]string, len(spec.Labels)+2)
	for key, value := range spec.Labels {
		labels[key] = value
	}
	labels[resource.LabelName] = spec.Name
	labels[resource.LabelManagedBy] = resource.LabelManagedByValue

	obj.SetGenerateName(strings.ToLower(spec.Name) + "-")
	obj.SetNamespace(k.namespace)
	obj.SetLabels(labels)

	if err := k.c.Create(ctx, obj); err != nil {
		return resource.Handle{}, &resource.ClientError{Op: "create", Kind: k.Kind(), Err: err}
	}
	log.FromContext(ctx).V(1).Info("Created resource", "kind", k.Kind(), "id", obj.GetName(), "namespace", obj.GetNamespace())
	return k.handle(obj), nil
}

// Get resolves idOrName as an object name first, then as a display name.
func (k *Client) Get(ctx context.Context, idOrName string) (resource.Handle, error) {
	obj := k.adapter.NewObject()
	err := k.c.Get(ctx, types.NamespacedName{Namespace: k.namespace, Name: idOrName}, obj)
	switch {
	case err == nil:
		return k.handle(obj), nil
	case apierrors.IsNotFound(err), apierrors.IsInvalid(err), apierrors.IsBadRequest(err):
	default:
		return resource.Handle{}, &resource.ClientError{Op: "get", Kind: k.Kind(), Err: err}
	}

	if errs := validation.IsValidLabelValue(idOrName); len(errs) > 0 {
		return resource.Handle{}, k.notFound(idOrName)
	}
	list := k.adapter.NewList()
	if err := k.c.List(ctx, list,
		client.InNamespace(k.namespace),
		client.MatchingLabels{resource.LabelName: idOrName},
	); err != nil {
		return resource.Handle{}, &resource.ClientError{Op: "list", Kind: k.Kind(), Err: err}
	}
	items, err := k.items(list)
	if err != nil {
		return resource.Handle{}, &resource.ClientError{Op: "list", Kind: k.Kind(), Err: err}
	}

	switch len(items) {
	case 0:
		return resource.Handle{}, k.notFound(idOrName)
	case 1:
		return k.handle(items[0]), nil
	default:
		return resource.Handle{}, &resource.AmbiguousError{Kind: k.Kind(), Name: idOrName, Matches: len(items)}
	}
}

// Delete deletes the object with background propagation.
func (k *Client) Delete(ctx context.Context, h resource.Handle) error {
	obj := k.adapter.NewObject()
	obj.SetName(h.ID)
	obj.SetNamespace(k.namespaceFor(h))

	err := k.c.Delete(ctx, obj, client.PropagationPolicy(metav1.DeletePropagationBackground))
	if apierrors.IsNotFound(err) {
		return k.notFound(h.ID)
	}
	if err != nil {
		return &resource.ClientError{Op: "delete", Kind: k.Kind(), Err: err}
	}
	log.FromContext(ctx).V(1).Info("Deleted resource", "kind", k.Kind(), "id", h.ID)
	return nil
}

// Status returns resource.StatusDeleting for objects being finalized and
// the adapter's mapping otherwise.
func (k *Client) Status(ctx context.Context, h resource.Handle) (string, error) {
	obj := k.adapter.NewObject()
	err := k.c.Get(ctx, types.NamespacedName{Namespace: k.namespaceFor(h), Name: h.ID}, obj)
	if apierrors.IsNotFound(err) {
		return "", k.notFound(h.ID)
	}
	if err != nil {
		return "", &resource.ClientError{Op: "status", Kind: k.Kind(), Err: err}
	}
	if obj.GetDeletionTimestamp() != nil {
		return resource.StatusDeleting, nil
	}
	return k.adapter.Status(obj), nil
}

// List returns up to limit objects in the namespace. A limit of 0 lists all.
func (k *Client) List(ctx context.Context, limit int) ([]resource.Handle, error) {
	list := k.adapter.NewList()
	opts := []client.ListOption{client.InNamespace(k.namespace)}
	if limit > 0 {
		opts = append(opts, client.Limit(int64(limit)))
	}
	if err := k.c.List(ctx, list, opts...); err != nil {
		return nil, &resource.ClientError{Op: "list", Kind: k.Kind(), Err: err}
	}
	items, err := k.items(list)
	if err != nil {
		return nil, &resource.ClientError{Op: "list", Kind: k.Kind(), Err: err}
	}
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}

	handles := make([]resource.Handle, 0, len(items))
	for _, obj := range items {
		handles = append(handles, k.handle(obj))
	}
	return handles, nil
}

func (k *Client) items(list client.ObjectList) ([]client.Object, error) {
	raw, err := meta.ExtractList(list)
	if err != nil {
		return nil, err
	}
	items := make([]client.Object, 0, len(raw))
	for _, item := range raw {
		obj, ok := item.(client.Object)
		if !ok {
			return nil, fmt.Errorf("unexpected list item %T", item)
		}
		items = append(items, obj)
	}
	return items, nil
}

func (k *Client) handle(obj client.Object) resource.Handle {
	name := obj.GetLabels()[resource.LabelName]
	if name == "" {
		name = obj.GetName()
	}
	return resource.Handle{
		ID:        obj.GetName(),
		Name:      name,
		Namespace: obj.GetNamespace(),
		Size:      k.adapter.Size(obj),
	}
}

func (k *Client) namespaceFor(h resource.Handle) string {
	if h.Namespace != "" {
		return h.Namespace
	}
	return k.namespace
}

func (k *Client) notFound(name string) error {
	return fmt.Errorf("%s %q in namespace %q: %w", k.Kind(), name, k.namespace, resource.ErrNotFound)
}
