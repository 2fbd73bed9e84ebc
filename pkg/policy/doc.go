// Package policy implements the packaging policy at the center of OmniPack:
// the Policy option record, the pure derivation of a per-resource
// CollectionContext, and the ordered callback chain that lets configuration
// scripts override derived decisions.
//
// A Policy is created once per build configuration, normally from Default or
// from a distribution's MakePackagingPolicy, mutated during configuration
// script evaluation, and treated as a read-only snapshot once collection
// starts. Generic option access (Get, Set) goes through a dispatch table
// that is verified at init time against the documented option list; the
// scripting bridge in pkg/config is built on that table.
//
// DeriveContext is a pure function of (Policy, Resource). Committing the
// derived context onto the resource, and running the callback chain after
// it, is the job of ApplyToResource.
package policy
