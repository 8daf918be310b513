// Package resource defines the capability every probed resource kind
// provides, plus the fixed-interval polling wait built on top of it.
package resource

import (
	"context"
)

// Normalised status strings reported by Client.Status.
const (
	StatusAvailable = "available"
	StatusPending   = "pending"
	StatusStopped   = "stopped"
	StatusError     = "error"
	StatusDeleting  = "deleting"

	// StatusAbsent is never reported by Status. It is the wait target that
	// is satisfied when Status returns ErrNotFound.
	StatusAbsent = "absent"
)

// Spec describes a resource to create. Fields a kind does not use are
// ignored by that kind's client.
type Spec struct {
	// Name is the display name the resource is looked up by.
	Name string `json:"name" yaml:"name"`
	// Size is a kind-specific size (volume capacity, object payload).
	Size string `json:"size,omitempty" yaml:"size"`
	// Type selects a flavour, e.g. a storage or runtime class.
	Type string `json:"type,omitempty" yaml:"type"`
	// Zone pins the resource to an availability zone.
	Zone string `json:"zone,omitempty" yaml:"zone"`
	// Image is the server image.
	Image string `json:"image,omitempty" yaml:"image"`
	// Labels are extra labels applied to the created resource.
	Labels map[string]string `json:"labels,omitempty" yaml:"labels"`
}

// Handle identifies a resource returned by Create or Get.
type Handle struct {
	ID        string
	Name      string
	Namespace string
	Size      string
}

// String returns the display name, falling back to the ID.
func (h Handle) String() string {
	if h.Name != "" {
		return h.Name
	}
	return h.ID
}

// Client is the capability the lifecycle probe is written against.
type Client interface {
	// Kind returns the lower-case resource kind, e.g. "volume".
	Kind() string

	// Create provisions a resource. Failures are *ClientError.
	Create(ctx context.Context, spec Spec) (Handle, error)

	// Get resolves an ID or display name. It returns ErrNotFound when
	// nothing matches and *AmbiguousError when a name matches several.
	Get(ctx context.Context, idOrName string) (Handle, error)

	// Delete removes the resource. It returns ErrNotFound when it is
	// already gone.
	Delete(ctx context.Context, h Handle) error

	// Status returns the normalised status, or ErrNotFound when the
	// resource no longer exists.
	Status(ctx context.Context, h Handle) (string, error)
}

// Lister is implemented by clients that can enumerate resources.
type Lister interface {
	List(ctx context.Context, limit int) ([]Handle, error)
}

// Labels applied to every resource a probe creates.
const (
	// LabelName carries the display name a resource is looked up by.
	LabelName = "cloudcheck.io/name"
	// LabelRunID ties a resource to the probe run that created it.
	LabelRunID = "cloudcheck.io/run-id"
	// LabelManagedBy marks resources owned by cloudcheck.
	LabelManagedBy      = "app.kubernetes.io/managed-by"
	LabelManagedByValue = "cloudcheck"
)
