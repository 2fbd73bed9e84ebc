// Package distribution maintains the catalog of runtime distributions
// that packaged applications embed.
//
// A distribution is a prebuilt runtime archive for a specific target
// triple. The catalog ships inside the binary and records, for every
// entry, where the archive lives, its SHA-256 digest, and the loading
// capabilities of the runtime it contains. Capabilities feed directly
// into packaging policies: a distribution that can load shared
// libraries from memory produces a more permissive default policy than
// one that cannot.
//
// The Registry resolves catalog lookups. Callers ask for a runtime
// version and target triple and receive the best matching entry, with
// "latest matching" semantics when the version is left open.
package distribution
