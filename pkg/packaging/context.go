package packaging

// CollectionContext is the per-resource decision record: whether the
// resource is included, where it is placed, and which representations are
// produced. Derivation always installs a fresh context on the resource;
// contexts are never patched in place.
type CollectionContext struct {
	// Include reports whether the resource is part of the final artifact.
	Include bool `json:"include"`

	// Location is the resolved primary placement.
	Location ResourceLocation `json:"location"`

	// LocationFallback is the placement downstream collection may retry
	// if the primary placement turns out unsupported. Nil when no
	// fallback applies.
	LocationFallback *ResourceLocation `json:"location_fallback,omitempty"`

	// OptimizeLevelZero requests bytecode compiled at optimization
	// level 0. The three level flags are independent.
	OptimizeLevelZero bool `json:"optimize_level_zero"`

	// OptimizeLevelOne requests bytecode compiled at optimization
	// level 1.
	OptimizeLevelOne bool `json:"optimize_level_one"`

	// OptimizeLevelTwo requests bytecode compiled at optimization
	// level 2.
	OptimizeLevelTwo bool `json:"optimize_level_two"`

	// IncludeSource requests the module's source text alongside any
	// bytecode.
	IncludeSource bool `json:"include_source"`

	// Variant is the selected build variant for multi-variant extension
	// modules, empty otherwise.
	Variant string `json:"variant,omitempty"`
}

// Clone returns an independent copy of the context.
func (c *CollectionContext) Clone() *CollectionContext {
	if c == nil {
		return nil
	}
	dup := *c
	if c.LocationFallback != nil {
		fb := *c.LocationFallback
		dup.LocationFallback = &fb
	}
	return &dup
}

// OptimizeLevels returns the requested bytecode optimization levels in
// ascending order. The result is a subset of {0, 1, 2} and may be empty.
func (c *CollectionContext) OptimizeLevels() []int {
	levels := make([]int, 0, 3)
	if c.OptimizeLevelZero {
		levels = append(levels, 0)
	}
	if c.OptimizeLevelOne {
		levels = append(levels, 1)
	}
	if c.OptimizeLevelTwo {
		levels = append(levels, 2)
	}
	return levels
}

// Equal reports whether two contexts record the same decision.
func (c *CollectionContext) Equal(other *CollectionContext) bool {
	if c == nil || other == nil {
		return c == other
	}
	if c.Include != other.Include ||
		c.Location != other.Location ||
		c.OptimizeLevelZero != other.OptimizeLevelZero ||
		c.OptimizeLevelOne != other.OptimizeLevelOne ||
		c.OptimizeLevelTwo != other.OptimizeLevelTwo ||
		c.IncludeSource != other.IncludeSource ||
		c.Variant != other.Variant {
		return false
	}
	if (c.LocationFallback == nil) != (other.LocationFallback == nil) {
		return false
	}
	if c.LocationFallback != nil && *c.LocationFallback != *other.LocationFallback {
		return false
	}
	return true
}
