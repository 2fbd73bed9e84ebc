// Package config exposes packaging policies to Starlark configuration
// scripts and evaluates those scripts.
//
// # Overview
//
// A configuration script builds a policy, tunes its options through
// plain attribute access, and registers resource callbacks. The script
// must leave the finished policy in a module-global named "policy";
// evaluation returns that policy together with its callback chain,
// ready to be applied to scanned resources.
//
// # Components
//
// PolicyValue: the Starlark face of a policy.Policy. Every documented
// option is a readable and assignable attribute; three methods cover
// the operations that are not plain attributes (callback registration,
// variant preferences, resource handling mode). Option validation
// happens in the policy package, so scripts get the same errors Go
// callers do.
//
// ResourceValue and ContextValue: what resource callbacks receive and
// return. A callback gets an isolated resource snapshot plus its
// working collection context; it may mutate the context in place and
// return None, or return a fresh CollectionContext to replace it.
//
// Evaluator: executes a script with the packaging builtins predeclared
// (default_packaging_policy, collection_context, distribution) and
// extracts the resulting policy. Module globals freeze once execution
// finishes, so callbacks that later try to reconfigure the policy fail
// loudly instead of racing the collection phase.
//
// # Usage Example
//
//	reg, _ := distribution.DefaultRegistry()
//	eval := config.NewEvaluator(reg, logger)
//	result, err := eval.EvaluateFile("pack.star")
//	if err != nil {
//		// syntax errors, validation failures, unknown attributes
//	}
//	for _, res := range resources {
//		policy.ApplyToResource(result.Policy, result.Chain, res)
//	}
package config
