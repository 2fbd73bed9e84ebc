// Package collector turns a resource manifest into packaging decisions.
//
// The pipeline has three stages. A manifest (YAML, validated against a CUE
// schema) declares the runtime and the resources a project ships. The
// scanner materializes those declarations as resources, honoring the
// policy's file handling toggles. The collector then walks the resources in
// manifest order, derives a collection context for each through the policy
// engine and callback chain, and records the outcome as a plan of decisions.
//
// Placement conflicts and callback failures are scoped to the resource that
// raised them. The collector records the failure on that resource's decision
// and keeps going, so one undeployable extension module never hides the
// decisions for everything else.
package collector
