package collector

import (
	"github.com/omnipack/omnipack/pkg/packaging"
)

// scannedResource is the scanner's packaging.Resource implementation. The
// read-only fields come from the manifest entry; the context slot is owned
// by the policy engine.
type scannedResource struct {
	name             string
	path             string
	kind             packaging.ResourceKind
	provenance       packaging.ProvenanceClass
	test             bool
	inMemoryLoadable bool
	variants         []packaging.Variant
	defaultVariant   string

	ctx *packaging.CollectionContext
}

var _ packaging.Resource = (*scannedResource)(nil)

func newScannedResource(entry Entry) *scannedResource {
	return &scannedResource{
		name:             entry.Name,
		path:             entry.Path,
		kind:             entry.Kind,
		provenance:       entry.Provenance,
		test:             entry.Test,
		inMemoryLoadable: entry.InMemoryLoadable,
		variants:         entry.Variants,
		defaultVariant:   entry.DefaultVariant,
	}
}

// asFile returns the raw file rendition of the resource: same name, origin,
// and test flag, but no classification, variants, or in-memory support.
func (r *scannedResource) asFile() *scannedResource {
	return &scannedResource{
		name:       r.name,
		path:       r.path,
		kind:       packaging.KindFile,
		provenance: r.provenance,
		test:       r.test,
	}
}

func (r *scannedResource) Name() string                          { return r.name }
func (r *scannedResource) Kind() packaging.ResourceKind          { return r.kind }
func (r *scannedResource) Provenance() packaging.ProvenanceClass { return r.provenance }
func (r *scannedResource) IsTest() bool                          { return r.test }
func (r *scannedResource) SupportsInMemoryLoading() bool         { return r.inMemoryLoadable }
func (r *scannedResource) Variants() []packaging.Variant         { return r.variants }
func (r *scannedResource) DefaultVariant() string                { return r.defaultVariant }

func (r *scannedResource) CollectionContext() *packaging.CollectionContext {
	return r.ctx
}

func (r *scannedResource) ReplaceCollectionContext(ctx *packaging.CollectionContext) {
	r.ctx = ctx
}

// Path returns where the resource's content lives on disk.
func (r *scannedResource) Path() string { return r.path }
