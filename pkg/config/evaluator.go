package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"

	"github.com/omnipack/omnipack/pkg/distribution"
	"github.com/omnipack/omnipack/pkg/policy"
)

// Evaluator executes configuration scripts. Scripts run synchronously on
// the calling goroutine; the engine defines no timeout or cancellation
// for configuration, so none is imposed here.
type Evaluator struct {
	registry *distribution.Registry
	logger   zerolog.Logger

	defaultName    string
	defaultVersion string
	defaultTarget  string
}

// NewEvaluator creates an evaluator. The registry backs the
// distribution() builtin and may be nil when scripts build policies
// without one.
func NewEvaluator(registry *distribution.Registry, logger zerolog.Logger) *Evaluator {
	return &Evaluator{
		registry: registry,
		logger:   logger.With().Str("component", "config").Logger(),
	}
}

// SetDistributionDefaults overrides what the distribution() builtin
// resolves when the script omits the corresponding arguments. Empty
// strings keep the stock defaults (cpython, latest version, host
// triple).
func (e *Evaluator) SetDistributionDefaults(name, version, target string) {
	e.defaultName = name
	e.defaultVersion = version
	e.defaultTarget = target
}

// EvalResult is what a successfully evaluated script produces.
type EvalResult struct {
	// Policy is the policy the script left in the module-global
	// "policy", frozen against further configuration.
	Policy *policy.Policy

	// Chain is the callback chain registered against the policy, in
	// registration order.
	Chain *policy.CallbackChain

	// Distribution is the catalog entry the policy was derived from,
	// or nil when the script built the policy directly.
	Distribution *distribution.Distribution

	// Globals holds the script's other exported module globals,
	// converted to plain Go values. Underscore-prefixed globals and
	// values with no plain representation (functions, bridge objects)
	// are omitted.
	Globals map[string]interface{}
}

// EvaluateFile reads and evaluates a script from disk.
func (e *Evaluator) EvaluateFile(path string) (*EvalResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read script: %w", err)
	}
	return e.Evaluate(path, string(data))
}

// Evaluate executes a script. The script must leave a PackagingPolicy in
// a module-global named "policy". Execution freezes the module's
// globals, so the returned policy can no longer be reconfigured, only
// read by callbacks during collection.
func (e *Evaluator) Evaluate(filename, script string) (*EvalResult, error) {
	thread := &starlark.Thread{
		Name: "omnipack",
		Print: func(_ *starlark.Thread, msg string) {
			e.logger.Debug().Str("script", filename).Msg(msg)
		},
	}

	predeclared := starlark.StringDict{
		"struct":                   starlark.NewBuiltin("struct", starlarkstruct.Make),
		"range":                    starlark.NewBuiltin("range", builtinRange),
		"enumerate":                starlark.NewBuiltin("enumerate", builtinEnumerate),
		"zip":                      starlark.NewBuiltin("zip", builtinZip),
		"default_packaging_policy": starlark.NewBuiltin("default_packaging_policy", builtinDefaultPackagingPolicy),
		"collection_context":       starlark.NewBuiltin("collection_context", builtinCollectionContext),
		"distribution":             starlark.NewBuiltin("distribution", e.builtinDistribution),
	}

	globals, err := starlark.ExecFile(thread, filename, script, predeclared)
	if err != nil {
		return nil, fmt.Errorf("starlark execution failed: %w", err)
	}

	policyVal, ok := globals["policy"]
	if !ok {
		return nil, fmt.Errorf("script %s does not assign a module-global named policy", filename)
	}
	pv, ok := policyVal.(*PolicyValue)
	if !ok {
		return nil, fmt.Errorf("global policy is %s, want PackagingPolicy", policyVal.Type())
	}

	output := make(map[string]interface{})
	for name, val := range globals {
		if strings.HasPrefix(name, "_") {
			continue
		}
		goVal, err := fromStarlarkValue(val)
		if err != nil {
			continue
		}
		output[name] = goVal
	}

	e.logger.Debug().
		Str("script", filename).
		Int("callbacks", pv.Chain().Len()).
		Msg("configuration evaluated")

	return &EvalResult{
		Policy:       pv.Policy(),
		Chain:        pv.Chain(),
		Distribution: pv.Distribution(),
		Globals:      output,
	}, nil
}

// builtinDefaultPackagingPolicy implements default_packaging_policy().
func builtinDefaultPackagingPolicy(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := starlark.UnpackArgs(b.Name(), args, kwargs); err != nil {
		return nil, err
	}
	return NewPolicyValue(policy.Default(), nil), nil
}

// builtinCollectionContext implements collection_context(**fields).
// Fields default to their zero values: excluded, in-memory placement,
// no fallback, no bytecode levels, no source, no variant.
func builtinCollectionContext(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var include, location, fallback, lvlZero, lvlOne, lvlTwo, includeSource, variant starlark.Value

	if err := starlark.UnpackArgs(b.Name(), args, kwargs,
		"include?", &include,
		"location?", &location,
		"location_fallback?", &fallback,
		"optimize_level_zero?", &lvlZero,
		"optimize_level_one?", &lvlOne,
		"optimize_level_two?", &lvlTwo,
		"include_source?", &includeSource,
		"variant?", &variant,
	); err != nil {
		return nil, err
	}

	cv := NewContextValue(nil)

	fields := []struct {
		name string
		val  starlark.Value
	}{
		{"include", include},
		{"location", location},
		{"location_fallback", fallback},
		{"optimize_level_zero", lvlZero},
		{"optimize_level_one", lvlOne},
		{"optimize_level_two", lvlTwo},
		{"include_source", includeSource},
		{"variant", variant},
	}
	for _, f := range fields {
		if f.val == nil {
			continue
		}
		if err := cv.SetField(f.name, f.val); err != nil {
			return nil, err
		}
	}

	return cv, nil
}

// builtinDistribution implements
// distribution(name="cpython", version="latest", target=host, flavor=any).
func (e *Evaluator) builtinDistribution(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	name := e.defaultName
	if name == "" {
		name = "cpython"
	}
	version := e.defaultVersion
	target := e.defaultTarget
	var flavor string

	if err := starlark.UnpackArgs(b.Name(), args, kwargs,
		"name?", &name,
		"version?", &version,
		"target?", &target,
		"flavor?", &flavor,
	); err != nil {
		return nil, err
	}

	if e.registry == nil {
		return nil, fmt.Errorf("no distribution registry configured")
	}

	if target == "" {
		host, err := distribution.DefaultHostTriple()
		if err != nil {
			return nil, fmt.Errorf("target is required: %w", err)
		}
		target = host
	}

	dist, err := e.registry.Find(name, version, target, distribution.Flavor(flavor))
	if err != nil {
		return nil, err
	}

	return NewDistributionValue(dist), nil
}

// Generic helper builtins available to scripts.

// builtinRange implements the range() built-in function.
func builtinRange(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var start, stop, step int64 = 0, 0, 1

	switch len(args) {
	case 1:
		if err := starlark.UnpackArgs(b.Name(), args, kwargs, "stop", &stop); err != nil {
			return nil, err
		}
	case 2:
		if err := starlark.UnpackArgs(b.Name(), args, kwargs, "start", &start, "stop", &stop); err != nil {
			return nil, err
		}
	case 3:
		if err := starlark.UnpackArgs(b.Name(), args, kwargs, "start", &start, "stop", &stop, "step", &step); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("range takes 1 to 3 arguments, got %d", len(args))
	}

	if step == 0 {
		return nil, fmt.Errorf("range step cannot be zero")
	}

	var list []starlark.Value
	if step > 0 {
		for i := start; i < stop; i += step {
			list = append(list, starlark.MakeInt64(i))
		}
	} else {
		for i := start; i > stop; i += step {
			list = append(list, starlark.MakeInt64(i))
		}
	}

	return starlark.NewList(list), nil
}

// builtinEnumerate implements the enumerate() built-in function.
func builtinEnumerate(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var iterable starlark.Iterable
	var start int64 = 0

	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "iterable", &iterable, "start?", &start); err != nil {
		return nil, err
	}

	iter := iterable.Iterate()
	defer iter.Done()

	var list []starlark.Value
	var x starlark.Value
	i := start
	for iter.Next(&x) {
		tuple := starlark.Tuple{starlark.MakeInt64(i), x}
		list = append(list, tuple)
		i++
	}

	return starlark.NewList(list), nil
}

// builtinZip implements the zip() built-in function.
func builtinZip(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if len(args) == 0 {
		return starlark.NewList(nil), nil
	}

	iters := make([]starlark.Iterator, len(args))
	for i, arg := range args {
		iterable, ok := arg.(starlark.Iterable)
		if !ok {
			return nil, fmt.Errorf("zip argument %d is not iterable", i)
		}
		iters[i] = iterable.Iterate()
		defer iters[i].Done()
	}

	var list []starlark.Value
	for {
		tuple := make(starlark.Tuple, len(iters))
		for i, iter := range iters {
			if !iter.Next(&tuple[i]) {
				return starlark.NewList(list), nil
			}
		}
		list = append(list, tuple)
	}
}
