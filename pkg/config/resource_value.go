package config

import (
	"fmt"

	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"

	"github.com/omnipack/omnipack/pkg/packaging"
)

// ResourceValue is the Starlark face of a resource snapshot. Identity
// attributes are read-only; the collection_context attribute exposes the
// snapshot's working context for in-place mutation or wholesale
// replacement. None of it touches the canonical resource: only the
// context a callback yields is committed, by the chain.
type ResourceValue struct {
	snap   *packaging.ResourceSnapshot
	frozen bool
}

var (
	_ starlark.Value       = (*ResourceValue)(nil)
	_ starlark.HasSetField = (*ResourceValue)(nil)
)

// NewResourceValue wraps a snapshot for script use.
func NewResourceValue(snap *packaging.ResourceSnapshot) *ResourceValue {
	return &ResourceValue{snap: snap}
}

// Snapshot returns the wrapped snapshot.
func (rv *ResourceValue) Snapshot() *packaging.ResourceSnapshot {
	return rv.snap
}

func (rv *ResourceValue) String() string {
	return fmt.Sprintf("<Resource %s %s>", rv.snap.Kind, rv.snap.Name)
}

// Type implements starlark.Value.
func (rv *ResourceValue) Type() string { return "Resource" }

// Freeze implements starlark.Value.
func (rv *ResourceValue) Freeze() { rv.frozen = true }

// Truth implements starlark.Value.
func (rv *ResourceValue) Truth() starlark.Bool { return starlark.True }

// Hash implements starlark.Value.
func (rv *ResourceValue) Hash() (uint32, error) {
	return 0, fmt.Errorf("unhashable type: %s", rv.Type())
}

// resourceAttrNames is the fixed attribute surface, sorted.
var resourceAttrNames = []string{
	"collection_context",
	"default_variant",
	"is_test",
	"kind",
	"name",
	"provenance",
	"supports_in_memory_loading",
	"variants",
}

// Attr implements starlark.HasAttrs.
func (rv *ResourceValue) Attr(name string) (starlark.Value, error) {
	switch name {
	case "name":
		return starlark.String(rv.snap.Name), nil
	case "kind":
		return starlark.String(rv.snap.Kind), nil
	case "provenance":
		return starlark.String(rv.snap.Provenance), nil
	case "is_test":
		return starlark.Bool(rv.snap.Test), nil
	case "supports_in_memory_loading":
		return starlark.Bool(rv.snap.InMemoryLoadable), nil
	case "variants":
		values := make([]starlark.Value, len(rv.snap.Variants))
		for i, variant := range rv.snap.Variants {
			libraries := make([]starlark.Value, len(variant.Libraries))
			for j, lib := range variant.Libraries {
				libraries[j] = starlark.String(lib)
			}
			values[i] = starlarkstruct.FromStringDict(starlarkstruct.Default, starlark.StringDict{
				"name":      starlark.String(variant.Name),
				"required":  starlark.Bool(variant.Required),
				"libraries": starlark.NewList(libraries),
				"copyleft":  starlark.Bool(variant.Copyleft),
			})
		}
		return starlark.NewList(values), nil
	case "default_variant":
		return starlark.String(rv.snap.DefaultVariant), nil
	case "collection_context":
		if rv.snap.Context == nil {
			return starlark.None, nil
		}
		return NewContextValue(rv.snap.Context), nil
	default:
		return nil, packaging.NewUnknownAttributeError(name)
	}
}

// AttrNames implements starlark.HasAttrs.
func (rv *ResourceValue) AttrNames() []string {
	names := make([]string, len(resourceAttrNames))
	copy(names, resourceAttrNames)
	return names
}

// SetField implements starlark.HasSetField. Only the working context is
// assignable; identity attributes are fixed by the scanner.
func (rv *ResourceValue) SetField(name string, val starlark.Value) error {
	if rv.frozen {
		return fmt.Errorf("cannot modify frozen %s", rv.Type())
	}

	switch name {
	case "collection_context":
		switch v := val.(type) {
		case starlark.NoneType:
			rv.snap.Context = nil
		case *ContextValue:
			rv.snap.Context = v.Context()
		default:
			return packaging.NewValidationError(name, val.String(), "value must be a CollectionContext or None")
		}
		return nil
	case "name", "kind", "provenance", "is_test", "supports_in_memory_loading", "variants", "default_variant":
		return packaging.NewValidationError(name, val.String(), "resource identity attributes are read-only")
	default:
		return packaging.NewUnknownAttributeError(name)
	}
}
