package config

import (
	"fmt"
	"sort"

	"go.starlark.net/starlark"

	"github.com/omnipack/omnipack/pkg/distribution"
	"github.com/omnipack/omnipack/pkg/packaging"
	"github.com/omnipack/omnipack/pkg/policy"
)

// PolicyValue is the Starlark face of a policy.Policy plus the callback
// chain registered against it. Every documented option is a readable,
// assignable attribute; operations that are not plain attributes are
// methods. The value freezes with the module's globals when script
// execution finishes, which closes the configuration phase: callbacks
// running during collection can read the policy but no longer change it.
type PolicyValue struct {
	policy *policy.Policy
	chain  *policy.CallbackChain
	dist   *distribution.Distribution
	frozen bool
}

var (
	_ starlark.Value       = (*PolicyValue)(nil)
	_ starlark.HasSetField = (*PolicyValue)(nil)
)

// NewPolicyValue wraps a policy and its callback chain for script use.
// A nil chain gets a fresh empty one.
func NewPolicyValue(p *policy.Policy, chain *policy.CallbackChain) *PolicyValue {
	if chain == nil {
		chain = policy.NewCallbackChain()
	}
	return &PolicyValue{policy: p, chain: chain}
}

// Policy returns the wrapped policy.
func (pv *PolicyValue) Policy() *policy.Policy {
	return pv.policy
}

// Chain returns the callback chain registered through this value.
func (pv *PolicyValue) Chain() *policy.CallbackChain {
	return pv.chain
}

// Distribution returns the distribution this policy was derived from,
// or nil when the script built the policy directly.
func (pv *PolicyValue) Distribution() *distribution.Distribution {
	return pv.dist
}

func (pv *PolicyValue) String() string {
	return "<PackagingPolicy>"
}

// Type implements starlark.Value.
func (pv *PolicyValue) Type() string { return "PackagingPolicy" }

// Freeze implements starlark.Value.
func (pv *PolicyValue) Freeze() { pv.frozen = true }

// Truth implements starlark.Value.
func (pv *PolicyValue) Truth() starlark.Bool { return starlark.True }

// Hash implements starlark.Value.
func (pv *PolicyValue) Hash() (uint32, error) {
	return 0, fmt.Errorf("unhashable type: %s", pv.Type())
}

// policyMethodNames lists the non-attribute operations.
var policyMethodNames = []string{
	"register_resource_callback",
	"set_preferred_extension_module_variant",
	"set_resource_handling_mode",
}

// Attr implements starlark.HasAttrs. Methods shadow nothing: the option
// surface and the method names are disjoint by construction.
func (pv *PolicyValue) Attr(name string) (starlark.Value, error) {
	switch name {
	case "register_resource_callback":
		return starlark.NewBuiltin(name, policyRegisterResourceCallback).BindReceiver(pv), nil
	case "set_preferred_extension_module_variant":
		return starlark.NewBuiltin(name, policySetPreferredVariant).BindReceiver(pv), nil
	case "set_resource_handling_mode":
		return starlark.NewBuiltin(name, policySetResourceHandlingMode).BindReceiver(pv), nil
	}

	v, err := pv.policy.Get(name)
	if err != nil {
		return nil, err
	}

	sv, err := optionToStarlark(v)
	if err != nil {
		return nil, err
	}
	// The variant map is handed out as a copy; freeze it so scripts
	// cannot mistake writes to the copy for configuration.
	sv.Freeze()
	return sv, nil
}

// AttrNames implements starlark.HasAttrs.
func (pv *PolicyValue) AttrNames() []string {
	names := policy.OptionNames()
	names = append(names, policyMethodNames...)
	sort.Strings(names)
	return names
}

// SetField implements starlark.HasSetField. Values are validated by the
// policy itself; nothing is committed on error.
func (pv *PolicyValue) SetField(name string, val starlark.Value) error {
	if pv.frozen {
		return fmt.Errorf("cannot modify frozen %s", pv.Type())
	}

	goVal, err := starlarkToOption(val)
	if err != nil {
		return packaging.NewValidationError(name, val.String(), "unsupported value type for option")
	}

	return pv.policy.Set(name, goVal)
}

// policyRegisterResourceCallback implements
// PackagingPolicy.register_resource_callback(func).
func policyRegisterResourceCallback(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	pv := b.Receiver().(*PolicyValue)

	var fn starlark.Callable
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "func", &fn); err != nil {
		return nil, err
	}

	if pv.frozen {
		return nil, fmt.Errorf("cannot modify frozen %s", pv.Type())
	}

	if err := pv.chain.Register(fn.Name(), starlarkCallback(fn, thread.Print)); err != nil {
		return nil, err
	}

	return starlark.None, nil
}

// policySetPreferredVariant implements
// PackagingPolicy.set_preferred_extension_module_variant(name, value).
func policySetPreferredVariant(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	pv := b.Receiver().(*PolicyValue)

	var name, value string
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "name", &name, "value", &value); err != nil {
		return nil, err
	}

	if pv.frozen {
		return nil, fmt.Errorf("cannot modify frozen %s", pv.Type())
	}

	if err := pv.policy.SetPreferredExtensionModuleVariant(name, value); err != nil {
		return nil, err
	}

	return starlark.None, nil
}

// policySetResourceHandlingMode implements
// PackagingPolicy.set_resource_handling_mode(mode).
func policySetResourceHandlingMode(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	pv := b.Receiver().(*PolicyValue)

	var mode string
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "mode", &mode); err != nil {
		return nil, err
	}

	if pv.frozen {
		return nil, fmt.Errorf("cannot modify frozen %s", pv.Type())
	}

	if err := pv.policy.SetResourceHandlingMode(mode); err != nil {
		return nil, err
	}

	return starlark.None, nil
}

// starlarkCallback adapts a Starlark callable to the native callback
// contract. The callable receives the policy (frozen) and a resource
// snapshot; it returns a CollectionContext to replace the working
// context, or None to keep it. Errors propagate with their Starlark
// cause intact so callers can still reach the backtrace.
func starlarkCallback(fn starlark.Callable, print func(*starlark.Thread, string)) policy.Callback {
	return func(p *policy.Policy, snap *packaging.ResourceSnapshot) (*packaging.CollectionContext, error) {
		thread := &starlark.Thread{
			Name:  "callback:" + fn.Name(),
			Print: print,
		}

		policyArg := &PolicyValue{policy: p, chain: policy.NewCallbackChain(), frozen: true}
		resourceArg := NewResourceValue(snap)

		result, err := starlark.Call(thread, fn, starlark.Tuple{policyArg, resourceArg}, nil)
		if err != nil {
			return nil, err
		}

		switch v := result.(type) {
		case starlark.NoneType:
			return nil, nil
		case *ContextValue:
			return v.Context(), nil
		default:
			return nil, fmt.Errorf("callback returned %s, want CollectionContext or None", result.Type())
		}
	}
}
