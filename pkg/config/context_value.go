package config

import (
	"fmt"

	"go.starlark.net/starlark"

	"github.com/omnipack/omnipack/pkg/packaging"
)

// ContextValue is the Starlark face of a packaging.CollectionContext.
// Callbacks read and assign its attributes directly; assigning a whole
// ContextValue to a resource's collection_context (or returning one from
// a callback) replaces the working context.
type ContextValue struct {
	ctx    *packaging.CollectionContext
	frozen bool
}

var (
	_ starlark.Value       = (*ContextValue)(nil)
	_ starlark.HasSetField = (*ContextValue)(nil)
)

// NewContextValue wraps an existing context for script use.
func NewContextValue(ctx *packaging.CollectionContext) *ContextValue {
	if ctx == nil {
		ctx = &packaging.CollectionContext{}
	}
	return &ContextValue{ctx: ctx}
}

// Context returns the wrapped context.
func (cv *ContextValue) Context() *packaging.CollectionContext {
	return cv.ctx
}

func (cv *ContextValue) String() string {
	return fmt.Sprintf("<CollectionContext include=%v location=%s>", cv.ctx.Include, cv.ctx.Location)
}

// Type implements starlark.Value.
func (cv *ContextValue) Type() string { return "CollectionContext" }

// Freeze implements starlark.Value.
func (cv *ContextValue) Freeze() { cv.frozen = true }

// Truth implements starlark.Value.
func (cv *ContextValue) Truth() starlark.Bool { return starlark.True }

// Hash implements starlark.Value.
func (cv *ContextValue) Hash() (uint32, error) {
	return 0, fmt.Errorf("unhashable type: %s", cv.Type())
}

// contextAttrNames is the fixed attribute surface, sorted.
var contextAttrNames = []string{
	"include",
	"include_source",
	"location",
	"location_fallback",
	"optimize_level_one",
	"optimize_level_two",
	"optimize_level_zero",
	"optimize_levels",
	"variant",
}

// Attr implements starlark.HasAttrs.
func (cv *ContextValue) Attr(name string) (starlark.Value, error) {
	switch name {
	case "include":
		return starlark.Bool(cv.ctx.Include), nil
	case "location":
		return starlark.String(cv.ctx.Location.String()), nil
	case "location_fallback":
		if cv.ctx.LocationFallback == nil {
			return starlark.None, nil
		}
		return starlark.String(cv.ctx.LocationFallback.String()), nil
	case "optimize_level_zero":
		return starlark.Bool(cv.ctx.OptimizeLevelZero), nil
	case "optimize_level_one":
		return starlark.Bool(cv.ctx.OptimizeLevelOne), nil
	case "optimize_level_two":
		return starlark.Bool(cv.ctx.OptimizeLevelTwo), nil
	case "optimize_levels":
		levels := cv.ctx.OptimizeLevels()
		values := make([]starlark.Value, len(levels))
		for i, level := range levels {
			values[i] = starlark.MakeInt(level)
		}
		return starlark.NewList(values), nil
	case "include_source":
		return starlark.Bool(cv.ctx.IncludeSource), nil
	case "variant":
		return starlark.String(cv.ctx.Variant), nil
	default:
		return nil, packaging.NewUnknownAttributeError(name)
	}
}

// AttrNames implements starlark.HasAttrs.
func (cv *ContextValue) AttrNames() []string {
	names := make([]string, len(contextAttrNames))
	copy(names, contextAttrNames)
	return names
}

// SetField implements starlark.HasSetField.
func (cv *ContextValue) SetField(name string, val starlark.Value) error {
	if cv.frozen {
		return fmt.Errorf("cannot modify frozen %s", cv.Type())
	}

	switch name {
	case "include":
		b, ok := val.(starlark.Bool)
		if !ok {
			return packaging.NewValidationError(name, val.String(), "value must be a bool")
		}
		cv.ctx.Include = bool(b)
	case "location":
		s, ok := val.(starlark.String)
		if !ok {
			return packaging.NewValidationError(name, val.String(), "value must be a placement string")
		}
		loc, err := packaging.ParseResourceLocation(string(s))
		if err != nil {
			return packaging.NewValidationError(name, string(s), err.Error())
		}
		cv.ctx.Location = loc
	case "location_fallback":
		if _, isNone := val.(starlark.NoneType); isNone {
			cv.ctx.LocationFallback = nil
			return nil
		}
		s, ok := val.(starlark.String)
		if !ok {
			return packaging.NewValidationError(name, val.String(), "value must be a placement string or None")
		}
		loc, err := packaging.ParseResourceLocation(string(s))
		if err != nil {
			return packaging.NewValidationError(name, string(s), err.Error())
		}
		cv.ctx.LocationFallback = &loc
	case "optimize_level_zero":
		b, ok := val.(starlark.Bool)
		if !ok {
			return packaging.NewValidationError(name, val.String(), "value must be a bool")
		}
		cv.ctx.OptimizeLevelZero = bool(b)
	case "optimize_level_one":
		b, ok := val.(starlark.Bool)
		if !ok {
			return packaging.NewValidationError(name, val.String(), "value must be a bool")
		}
		cv.ctx.OptimizeLevelOne = bool(b)
	case "optimize_level_two":
		b, ok := val.(starlark.Bool)
		if !ok {
			return packaging.NewValidationError(name, val.String(), "value must be a bool")
		}
		cv.ctx.OptimizeLevelTwo = bool(b)
	case "optimize_levels":
		return packaging.NewValidationError(name, val.String(), "optimize_levels is computed; set the level toggles instead")
	case "include_source":
		b, ok := val.(starlark.Bool)
		if !ok {
			return packaging.NewValidationError(name, val.String(), "value must be a bool")
		}
		cv.ctx.IncludeSource = bool(b)
	case "variant":
		s, ok := val.(starlark.String)
		if !ok {
			return packaging.NewValidationError(name, val.String(), "value must be a string")
		}
		cv.ctx.Variant = string(s)
	default:
		return packaging.NewUnknownAttributeError(name)
	}

	return nil
}
