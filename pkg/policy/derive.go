package policy

import (
	"fmt"

	"github.com/omnipack/omnipack/pkg/packaging"
)

// DeriveContext computes the default collection context for res under p. It
// is a pure function of its two inputs: no I/O, no hidden state, and it
// never mutates the policy or the resource's existing context. Committing
// the result onto the resource is the caller's responsibility.
//
// Excluded resources still receive a complete context (Include false,
// placement copied from the policy) so reporting can explain the decision;
// a placement conflict is only an error for resources that would otherwise
// be included.
func DeriveContext(p *Policy, res packaging.Resource) (*packaging.CollectionContext, error) {
	ctx := &packaging.CollectionContext{}

	include := includeByPolicy(p, res)

	if res.Kind() == packaging.KindExtensionModule && len(res.Variants()) > 0 {
		eligible := eligibleVariants(p.ExtensionModuleFilter, res.Variants())
		if len(eligible) == 0 {
			include = false
		} else {
			ctx.Variant = selectVariant(p, res, eligible)
		}
	}

	ctx.Include = include
	if include {
		loc, fallback, err := resolvePlacement(p, res)
		if err != nil {
			return nil, err
		}
		ctx.Location = loc
		ctx.LocationFallback = fallback
	} else {
		ctx.Location = p.ResourcesLocation
		ctx.LocationFallback = cloneLocation(p.ResourcesLocationFallback)
	}

	if res.Kind().IsModule() {
		ctx.OptimizeLevelZero = p.BytecodeOptimizeLevelZero
		ctx.OptimizeLevelOne = p.BytecodeOptimizeLevelOne
		ctx.OptimizeLevelTwo = p.BytecodeOptimizeLevelTwo
		if res.Kind() == packaging.KindModuleSource {
			ctx.IncludeSource = p.AllowFiles
		}
	}

	return ctx, nil
}

// includeByPolicy evaluates the inclusion gate: the per-kind and per-origin
// toggles, with the test flag checked on top of whichever origin toggle
// applies.
func includeByPolicy(p *Policy, res packaging.Resource) bool {
	if res.IsTest() && !p.IncludeTest {
		return false
	}
	if res.Kind() == packaging.KindFile {
		return p.AllowFiles && p.IncludeFileResources
	}
	if !p.IncludeClassifiedResources {
		return false
	}
	switch res.Provenance() {
	case packaging.ProvenanceDistributionSource:
		return p.IncludeDistributionSources
	case packaging.ProvenanceDistributionResource:
		return p.IncludeDistributionResources
	case packaging.ProvenanceNonDistribution:
		return p.IncludeNonDistributionSources
	}
	return false
}

// eligibleVariants applies the extension module filter, preserving
// declaration order.
func eligibleVariants(filter ExtensionModuleFilter, variants []packaging.Variant) []packaging.Variant {
	eligible := make([]packaging.Variant, 0, len(variants))
	for _, v := range variants {
		switch filter {
		case FilterMinimal:
			if !v.Required {
				continue
			}
		case FilterNoLibrary:
			if len(v.Libraries) > 0 {
				continue
			}
		case FilterNoCopyleft:
			if v.Copyleft {
				continue
			}
		}
		eligible = append(eligible, v)
	}
	return eligible
}

// selectVariant picks from the eligible variants: the registered preference
// when it survived the filter, else the resource's declared default when it
// did, else the first eligible variant in declaration order.
func selectVariant(p *Policy, res packaging.Resource, eligible []packaging.Variant) string {
	if preferred, ok := p.PreferredVariant(res.Name()); ok {
		for _, v := range eligible {
			if v.Name == preferred {
				return preferred
			}
		}
	}
	if def := res.DefaultVariant(); def != "" {
		for _, v := range eligible {
			if v.Name == def {
				return def
			}
		}
	}
	return eligible[0].Name
}

// resolvePlacement resolves the primary placement for res, consuming the
// policy fallback when the primary is unsupported. The returned fallback is
// what downstream collection may still retry; it is nil when the policy
// fallback was promoted to primary.
func resolvePlacement(p *Policy, res packaging.Resource) (packaging.ResourceLocation, *packaging.ResourceLocation, error) {
	primary := p.ResourcesLocation
	if placementSatisfiable(p, res, primary) {
		return primary, cloneLocation(p.ResourcesLocationFallback), nil
	}
	if p.ResourcesLocationFallback != nil && placementSatisfiable(p, res, *p.ResourcesLocationFallback) {
		return *p.ResourcesLocationFallback, nil, nil
	}
	err := packaging.NewConflictError(fmt.Sprintf(
		"%s resource %s cannot target %s and no usable fallback placement is configured",
		res.Kind(), res.Name(), primary)).WithResource(res.Name())
	return packaging.ResourceLocation{}, nil, err
}

// placementSatisfiable reports whether res can live at loc. Only native
// library kinds targeting the in-memory image are constrained: both the
// policy and the resource's platform support must allow it.
func placementSatisfiable(p *Policy, res packaging.Resource, loc packaging.ResourceLocation) bool {
	if !loc.IsInMemory() {
		return true
	}
	if !res.Kind().IsNativeLibrary() {
		return true
	}
	return p.AllowInMemorySharedLibraryLoading && res.SupportsInMemoryLoading()
}

func cloneLocation(loc *packaging.ResourceLocation) *packaging.ResourceLocation {
	if loc == nil {
		return nil
	}
	dup := *loc
	return &dup
}
