// Package resourcetest provides an in-memory resource.Client with scripted
// status transitions and failure injection.
package resourcetest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"k8s.io/utils/clock"

	"github.com/clustergate/cloudcheck/internal/resource"
)

// Operation names passed to Fake.Inject and recorded in Fake.Calls.
const (
	OpCreate = "create"
	OpGet    = "get"
	OpDelete = "delete"
	OpStatus = "status"
	OpList   = "list"
)

// Call records one invocation of the fake.
type Call struct {
	Op     string
	Arg    string
	Handle resource.Handle
}

// Fake is an in-memory resource.Client and resource.Lister.
//
// A created resource reports StatusPending for PendingPolls status queries
// and then ReadyStatus. A deleted resource reports StatusDeleting for
// DeletingPolls queries and then disappears. A negative count never ends.
type Fake struct {
	KindName      string
	PendingPolls  int
	DeletingPolls int
	ReadyStatus   string

	// Clock and CreateLatency simulate a slow create call.
	Clock         clock.Clock
	CreateLatency time.Duration

	// Inject, when set, runs before every operation. n is the 1-based
	// count of calls to op so far. A non-nil error is returned as-is.
	Inject func(op string, n int) error

	mu      sync.Mutex
	seq     int
	objects map[string]*object
	counts  map[string]int
	calls   []Call
}

type object struct {
	handle   resource.Handle
	labels   map[string]string
	pending  int
	deleting int
	deleted  bool
}

var _ resource.Client = &Fake{}
var _ resource.Lister = &Fake{}

// New returns a Fake for the given kind with immediate transitions.
func New(kind string) *Fake {
	return &Fake{KindName: kind}
}

func (f *Fake) Kind() string { return f.KindName }

// Seed adds a ready resource with the given display name.
func (f *Fake) Seed(name string) resource.Handle {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.init()
	h := f.newHandleLocked(name, "")
	f.objects[h.ID] = &object{handle: h}
	return h
}

func (f *Fake) Create(_ context.Context, spec resource.Spec) (resource.Handle, error) {
	if err := f.record(OpCreate, spec.Name, resource.Handle{}); err != nil {
		return resource.Handle{}, err
	}
	if f.Clock != nil && f.CreateLatency > 0 {
		f.Clock.Sleep(f.CreateLatency)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	h := f.newHandleLocked(spec.Name, spec.Size)
	labels := make(map[string]string, len(spec.Labels))
	for k, v := range spec.Labels {
		labels[k] = v
	}
	f.objects[h.ID] = &object{handle: h, labels: labels, pending: f.PendingPolls}
	return h, nil
}

func (f *Fake) Get(_ context.Context, idOrName string) (resource.Handle, error) {
	if err := f.record(OpGet, idOrName, resource.Handle{}); err != nil {
		return resource.Handle{}, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if obj, ok := f.objects[idOrName]; ok {
		return obj.handle, nil
	}
	var matches []resource.Handle
	for _, obj := range f.objects {
		if obj.handle.Name == idOrName {
			matches = append(matches, obj.handle)
		}
	}
	switch len(matches) {
	case 0:
		return resource.Handle{}, fmt.Errorf("%s %q: %w", f.KindName, idOrName, resource.ErrNotFound)
	case 1:
		return matches[0], nil
	default:
		return resource.Handle{}, &resource.AmbiguousError{Kind: f.KindName, Name: idOrName, Matches: len(matches)}
	}
}

func (f *Fake) Delete(_ context.Context, h resource.Handle) error {
	if err := f.record(OpDelete, h.ID, h); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	obj, ok := f.objects[h.ID]
	if !ok || obj.deleted {
		return fmt.Errorf("%s %q: %w", f.KindName, h.ID, resource.ErrNotFound)
	}
	if f.DeletingPolls == 0 {
		delete(f.objects, h.ID)
		return nil
	}
	obj.deleted = true
	obj.deleting = f.DeletingPolls
	return nil
}

func (f *Fake) Status(_ context.Context, h resource.Handle) (string, error) {
	if err := f.record(OpStatus, h.ID, h); err != nil {
		return "", err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	obj, ok := f.objects[h.ID]
	if !ok {
		return "", fmt.Errorf("%s %q: %w", f.KindName, h.ID, resource.ErrNotFound)
	}
	if obj.deleted {
		if obj.deleting == 0 {
			delete(f.objects, h.ID)
			return "", fmt.Errorf("%s %q: %w", f.KindName, h.ID, resource.ErrNotFound)
		}
		if obj.deleting > 0 {
			obj.deleting--
		}
		return resource.StatusDeleting, nil
	}
	if obj.pending != 0 {
		if obj.pending > 0 {
			obj.pending--
		}
		return resource.StatusPending, nil
	}
	if f.ReadyStatus != "" {
		return f.ReadyStatus, nil
	}
	return resource.StatusAvailable, nil
}

func (f *Fake) List(_ context.Context, limit int) ([]resource.Handle, error) {
	if err := f.record(OpList, fmt.Sprint(limit), resource.Handle{}); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]resource.Handle, 0, len(f.objects))
	for _, obj := range f.objects {
		out = append(out, obj.handle)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Live returns the number of resources that still exist.
func (f *Fake) Live() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.objects)
}

// Labels returns the labels the resource with the given ID was created with.
func (f *Fake) Labels(id string) map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if obj, ok := f.objects[id]; ok {
		return obj.labels
	}
	return nil
}

// Calls returns the recorded calls for op, or all calls when op is empty.
func (f *Fake) Calls(op string) []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Call
	for _, c := range f.calls {
		if op == "" || c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

func (f *Fake) record(op, arg string, h resource.Handle) error {
	f.mu.Lock()
	f.init()
	f.counts[op]++
	n := f.counts[op]
	f.calls = append(f.calls, Call{Op: op, Arg: arg, Handle: h})
	inject := f.Inject
	f.mu.Unlock()

	if inject != nil {
		return inject(op, n)
	}
	return nil
}

func (f *Fake) init() {
	if f.objects == nil {
		f.objects = make(map[string]*object)
	}
	if f.counts == nil {
		f.counts = make(map[string]int)
	}
}

func (f *Fake) newHandleLocked(name, size string) resource.Handle {
	f.init()
	f.seq++
	return resource.Handle{
		ID:   fmt.Sprintf("%s-%05d", name, f.seq),
		Name: name,
		Size: size,
	}
}
