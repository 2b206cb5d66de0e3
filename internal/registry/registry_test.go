package registry

import (
	"errors"
	"sync"
	"testing"
)

type fakeInstance struct {
	mu        sync.Mutex
	id        string
	endpoint  string
	lifecycle Lifecycle
	updates   []string
}

func (f *fakeInstance) ID() string { return f.id }

func (f *fakeInstance) Endpoint() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.endpoint
}

func (f *fakeInstance) SetEndpoint(addr string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.endpoint = addr
	f.updates = append(f.updates, addr)
}

func (f *fakeInstance) Lifecycle() Lifecycle { return f.lifecycle }

func (f *fakeInstance) updateCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.updates)
}

func TestRegisterRejectsDuplicatesAndBadInput(t *testing.T) {
	r := New()
	if err := r.Register(nil); !errors.Is(err, ErrInstanceNil) {
		t.Fatalf("Register(nil) = %v, want ErrInstanceNil", err)
	}
	if err := r.Register(&fakeInstance{id: "  "}); !errors.Is(err, ErrInvalidID) {
		t.Fatalf("Register(blank id) = %v, want ErrInvalidID", err)
	}
	if err := r.Register(&fakeInstance{id: "a"}); err != nil {
		t.Fatalf("Register(a) error: %v", err)
	}
	if err := r.Register(&fakeInstance{id: "a"}); !errors.Is(err, ErrInstanceExists) {
		t.Fatalf("Register(duplicate) = %v, want ErrInstanceExists", err)
	}
}

func TestResolveAndDeregister(t *testing.T) {
	r := New()
	inst := &fakeInstance{id: "a", endpoint: "ws://a/mcp"}
	if err := r.Register(inst); err != nil {
		t.Fatalf("Register error: %v", err)
	}
	if got, ok := r.Resolve("a"); !ok || got != Instance(inst) {
		t.Fatalf("Resolve(a) = %v, %v; want the registered instance", got, ok)
	}
	r.Deregister("a")
	r.Deregister("a") // unknown ids are ignored
	if _, ok := r.Resolve("a"); ok {
		t.Fatal("Resolve(a) found instance after Deregister")
	}
}

func TestIDsAreSorted(t *testing.T) {
	r := New()
	for _, id := range []string{"charlie", "alpha", "bravo"} {
		if err := r.Register(&fakeInstance{id: id}); err != nil {
			t.Fatalf("Register(%s) error: %v", id, err)
		}
	}
	got := r.IDs()
	want := []string{"alpha", "bravo", "charlie"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("IDs() = %v, want %v", got, want)
		}
	}
}

func TestReconcileUpdatesOnlyChangedInstances(t *testing.T) {
	r := New()
	changed := &fakeInstance{id: "changed", endpoint: "ws://old/mcp"}
	same := &fakeInstance{id: "same", endpoint: "ws://same/mcp"}
	unloading := &fakeInstance{id: "unloading", endpoint: "ws://old/mcp", lifecycle: LifecycleUnloading}
	failed := &fakeInstance{id: "failed", endpoint: "ws://old/mcp", lifecycle: LifecycleFailedUnload}
	for _, inst := range []*fakeInstance{changed, same, unloading, failed} {
		if err := r.Register(inst); err != nil {
			t.Fatalf("Register(%s) error: %v", inst.id, err)
		}
	}

	desired := map[string]string{
		"changed":   "ws://new/mcp",
		"same":      "ws://same/mcp",
		"unloading": "ws://new/mcp",
		"failed":    "ws://new/mcp",
		"unknown":   "ws://new/mcp",
		"changed2":  "",
	}
	if got := r.Reconcile(desired); got != 2 {
		t.Fatalf("Reconcile() = %d updates, want 2", got)
	}

	if changed.Endpoint() != "ws://new/mcp" {
		t.Fatalf("changed endpoint = %q, want updated", changed.Endpoint())
	}
	if same.updateCount() != 0 {
		t.Fatal("unchanged instance was touched")
	}
	if unloading.updateCount() != 0 {
		t.Fatal("mid-unload instance was touched")
	}
	if failed.Endpoint() != "ws://new/mcp" {
		t.Fatal("failed-unload instance should accept updates")
	}

	// A second pass with the same desired state is a no-op.
	if got := r.Reconcile(desired); got != 0 {
		t.Fatalf("second Reconcile() = %d updates, want 0", got)
	}
}
