// Package packaging defines the shared vocabulary of the OmniPack policy
// engine: resource kinds and provenance classes, placement locations,
// extension-module variants, the per-resource CollectionContext decision
// record, the Resource collaborator interface, and the error taxonomy used
// at the policy and bridge boundaries.
//
// The package holds value types only. Decision logic lives in pkg/policy,
// the scripting bridge in pkg/config, and resource discovery in
// pkg/collector.
package packaging
