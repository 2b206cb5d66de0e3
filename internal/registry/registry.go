// Package registry coordinates independently supervised bridge instances in
// one process, so a configuration reload can steer each instance's endpoint
// without duplicate connections.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

var (
	ErrInstanceExists = errors.New("registry: instance already registered")
	ErrInstanceNil    = errors.New("registry: instance is nil")
	ErrInvalidID      = errors.New("registry: invalid instance id")
)

// Lifecycle is the host-side load state of an instance. Endpoint updates are
// only applied to instances that are settled; an instance mid-unload is left
// alone.
type Lifecycle uint8

const (
	LifecycleLoaded Lifecycle = iota
	LifecycleUnloading
	LifecycleFailedUnload
)

func (l Lifecycle) String() string {
	switch l {
	case LifecycleLoaded:
		return "loaded"
	case LifecycleUnloading:
		return "unloading"
	case LifecycleFailedUnload:
		return "failed_unload"
	default:
		return "unknown"
	}
}

// Instance is one supervised transport as seen by the registry.
type Instance interface {
	ID() string
	Endpoint() string
	SetEndpoint(addr string)
	Lifecycle() Lifecycle
}

// Registry stores instances by stable identifier.
type Registry struct {
	mu    sync.Mutex
	items map[string]Instance
}

func New() *Registry {
	return &Registry{items: make(map[string]Instance)}
}

// Register adds an instance to the registry.
func (r *Registry) Register(inst Instance) error {
	if inst == nil {
		return ErrInstanceNil
	}
	id := strings.TrimSpace(inst.ID())
	if id == "" {
		return fmt.Errorf("%w: blank", ErrInvalidID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; ok {
		return fmt.Errorf("%w: %s", ErrInstanceExists, id)
	}
	r.items[id] = inst
	return nil
}

// Deregister removes an instance. Unknown ids are ignored.
func (r *Registry) Deregister(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, id)
}

// Resolve returns an instance by id.
func (r *Registry) Resolve(id string) (Instance, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inst, ok := r.items[id]
	return inst, ok
}

// IDs returns registered ids in deterministic order.
func (r *Registry) IDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.items))
	for id := range r.items {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Reconcile pushes desired endpoints onto registered instances. Only
// instances whose desired value differs from their current one are touched,
// and instances mid-unload are skipped entirely. Idempotent and safe to
// invoke repeatedly; returns the number of updates applied.
func (r *Registry) Reconcile(desired map[string]string) int {
	r.mu.Lock()
	instances := make(map[string]Instance, len(r.items))
	for id, inst := range r.items {
		instances[id] = inst
	}
	r.mu.Unlock()

	updated := 0
	for id, addr := range desired {
		inst, ok := instances[id]
		if !ok {
			continue
		}
		addr = strings.TrimSpace(addr)
		if addr == "" {
			continue
		}
		if inst.Lifecycle() == LifecycleUnloading {
			continue
		}
		if inst.Endpoint() == addr {
			continue
		}
		inst.SetEndpoint(addr)
		updated++
	}
	return updated
}
