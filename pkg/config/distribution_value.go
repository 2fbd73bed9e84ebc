package config

import (
	"fmt"

	"go.starlark.net/starlark"

	"github.com/omnipack/omnipack/pkg/distribution"
	"github.com/omnipack/omnipack/pkg/packaging"
)

// DistributionValue is the Starlark face of a catalog entry. It is
// read-only; its one method mints the distribution's default packaging
// policy.
type DistributionValue struct {
	dist distribution.Distribution
}

var _ starlark.HasAttrs = (*DistributionValue)(nil)

// NewDistributionValue wraps a catalog entry for script use.
func NewDistributionValue(dist distribution.Distribution) *DistributionValue {
	return &DistributionValue{dist: dist}
}

// Distribution returns the wrapped catalog entry.
func (dv *DistributionValue) Distribution() distribution.Distribution {
	return dv.dist
}

func (dv *DistributionValue) String() string {
	return fmt.Sprintf("<Distribution %s>", dv.dist.Key())
}

// Type implements starlark.Value.
func (dv *DistributionValue) Type() string { return "Distribution" }

// Freeze implements starlark.Value.
func (dv *DistributionValue) Freeze() {}

// Truth implements starlark.Value.
func (dv *DistributionValue) Truth() starlark.Bool { return starlark.True }

// Hash implements starlark.Value.
func (dv *DistributionValue) Hash() (uint32, error) {
	return 0, fmt.Errorf("unhashable type: %s", dv.Type())
}

// distributionAttrNames is the fixed attribute surface, sorted.
var distributionAttrNames = []string{
	"flavor",
	"in_memory_shared_library_loading",
	"make_packaging_policy",
	"name",
	"sha256",
	"supports_prebuilt_extension_modules",
	"supports_static_libraries",
	"target_triple",
	"url",
	"version",
}

// Attr implements starlark.HasAttrs.
func (dv *DistributionValue) Attr(name string) (starlark.Value, error) {
	switch name {
	case "name":
		return starlark.String(dv.dist.Name), nil
	case "version":
		return starlark.String(dv.dist.Version), nil
	case "target_triple":
		return starlark.String(dv.dist.TargetTriple), nil
	case "flavor":
		return starlark.String(dv.dist.Flavor), nil
	case "url":
		return starlark.String(dv.dist.URL), nil
	case "sha256":
		return starlark.String(dv.dist.SHA256), nil
	case "in_memory_shared_library_loading":
		return starlark.Bool(dv.dist.InMemorySharedLibraryLoading), nil
	case "supports_prebuilt_extension_modules":
		return starlark.Bool(dv.dist.SupportsPrebuiltExtensionModules), nil
	case "supports_static_libraries":
		return starlark.Bool(dv.dist.SupportsStaticLibraries), nil
	case "make_packaging_policy":
		return starlark.NewBuiltin(name, distributionMakePackagingPolicy).BindReceiver(dv), nil
	default:
		return nil, packaging.NewUnknownAttributeError(name)
	}
}

// AttrNames implements starlark.HasAttrs.
func (dv *DistributionValue) AttrNames() []string {
	names := make([]string, len(distributionAttrNames))
	copy(names, distributionAttrNames)
	return names
}

// distributionMakePackagingPolicy implements
// Distribution.make_packaging_policy().
func distributionMakePackagingPolicy(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	dv := b.Receiver().(*DistributionValue)

	if err := starlark.UnpackArgs(b.Name(), args, kwargs); err != nil {
		return nil, err
	}

	pv := NewPolicyValue(dv.dist.MakePackagingPolicy(), nil)
	pv.dist = &dv.dist

	return pv, nil
}
