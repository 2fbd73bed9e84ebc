package policy

import (
	"github.com/omnipack/omnipack/pkg/packaging"
)

// Callback inspects a resource snapshot and yields the collection context to
// commit. Returning a nil context keeps the snapshot's working context,
// including any in-place changes the callback made to it. The snapshot is
// the callback's to mutate; nothing except the yielded context ever reaches
// the canonical resource.
type Callback func(p *Policy, snap *packaging.ResourceSnapshot) (*packaging.CollectionContext, error)

type registeredCallback struct {
	name string
	fn   Callback
}

// CallbackChain is the ordered list of resource callbacks registered by a
// configuration. Registration is append-only; callbacks run in registration
// order and are never deduplicated.
type CallbackChain struct {
	callbacks []registeredCallback
}

// NewCallbackChain returns an empty chain.
func NewCallbackChain() *CallbackChain {
	return &CallbackChain{}
}

// Register appends fn under name. The only check is that fn is invokable;
// it is not executed.
func (c *CallbackChain) Register(name string, fn Callback) error {
	if fn == nil {
		return packaging.NewValidationError("register_resource_callback", name, "callback must not be nil")
	}
	if name == "" {
		name = "<anonymous>"
	}
	c.callbacks = append(c.callbacks, registeredCallback{name: name, fn: fn})
	return nil
}

// Len returns the number of registered callbacks.
func (c *CallbackChain) Len() int {
	return len(c.callbacks)
}

// Names returns the registered callback names in registration order.
func (c *CallbackChain) Names() []string {
	names := make([]string, len(c.callbacks))
	for i, cb := range c.callbacks {
		names[i] = cb.name
	}
	return names
}

// Apply runs every callback against res, strictly in registration order,
// after a default context has already been attached. Each callback gets a
// fresh snapshot of the resource (so it observes contexts committed by
// earlier callbacks) and the context it yields is cloned onto the canonical
// resource. On a callback failure the remaining callbacks are skipped and
// the resource keeps whichever context was last committed.
func (c *CallbackChain) Apply(p *Policy, res packaging.Resource) error {
	for _, cb := range c.callbacks {
		snap := packaging.TakeSnapshot(res)
		result, err := cb.fn(p, snap)
		if err != nil {
			return packaging.NewCallbackError(cb.name, err).WithResource(res.Name())
		}
		commit := result
		if commit == nil {
			commit = snap.Context
		}
		if commit == nil {
			continue
		}
		res.ReplaceCollectionContext(commit.Clone())
	}
	return nil
}

// ApplyToResource is the per-resource entry point of the engine: derive the
// default context, install it, then let the callback chain override it. A
// nil chain skips the callback stage.
func ApplyToResource(p *Policy, chain *CallbackChain, res packaging.Resource) error {
	ctx, err := DeriveContext(p, res)
	if err != nil {
		return err
	}
	res.ReplaceCollectionContext(ctx)
	if chain == nil {
		return nil
	}
	return chain.Apply(p, res)
}
