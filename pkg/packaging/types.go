package packaging

// ResourceKind identifies what a discovered resource is.
type ResourceKind string

const (
	// KindModuleSource is module source text.
	KindModuleSource ResourceKind = "module-source"

	// KindModuleBytecode is pre-compiled module bytecode.
	KindModuleBytecode ResourceKind = "module-bytecode"

	// KindDataResource is a data file owned by a package.
	KindDataResource ResourceKind = "data-resource"

	// KindExtensionModule is a compiled extension module, possibly
	// available in multiple build variants.
	KindExtensionModule ResourceKind = "extension-module"

	// KindSharedLibrary is a standalone shared library an extension
	// depends on.
	KindSharedLibrary ResourceKind = "shared-library"

	// KindFile is a raw, unclassified file.
	KindFile ResourceKind = "file"
)

// Valid reports whether k is a known resource kind.
func (k ResourceKind) Valid() bool {
	switch k {
	case KindModuleSource, KindModuleBytecode, KindDataResource,
		KindExtensionModule, KindSharedLibrary, KindFile:
		return true
	}
	return false
}

// IsModule reports whether the kind carries importable module code.
func (k ResourceKind) IsModule() bool {
	return k == KindModuleSource || k == KindModuleBytecode
}

// IsNativeLibrary reports whether the kind is machine code that must be
// loaded by the platform's library loader. Placement of these kinds is
// constrained by in-memory loading support.
func (k ResourceKind) IsNativeLibrary() bool {
	return k == KindExtensionModule || k == KindSharedLibrary
}

// IsClassified reports whether the kind is a typed resource rather than a
// raw file.
func (k ResourceKind) IsClassified() bool {
	return k != KindFile && k.Valid()
}

// ProvenanceClass classifies where a resource came from relative to the
// runtime distribution. Test resources carry an origin class too; whether a
// resource is test-only is the orthogonal Resource.IsTest flag.
type ProvenanceClass string

const (
	// ProvenanceDistributionSource is source shipped with the runtime
	// distribution (its standard library).
	ProvenanceDistributionSource ProvenanceClass = "distribution-source"

	// ProvenanceDistributionResource is a non-code data resource shipped
	// with the runtime distribution.
	ProvenanceDistributionResource ProvenanceClass = "distribution-resource"

	// ProvenanceNonDistribution is third-party code or data added on top
	// of the distribution.
	ProvenanceNonDistribution ProvenanceClass = "non-distribution"
)

// Valid reports whether p is a known provenance class.
func (p ProvenanceClass) Valid() bool {
	switch p {
	case ProvenanceDistributionSource, ProvenanceDistributionResource,
		ProvenanceNonDistribution:
		return true
	}
	return false
}

// Variant describes one build of a multi-variant extension module.
type Variant struct {
	// Name identifies the variant within its extension module.
	Name string `json:"name"`

	// Required marks variants that belong to the minimal extension set
	// the interpreter core needs.
	Required bool `json:"required,omitempty"`

	// Libraries lists link-time library dependencies of this variant.
	Libraries []string `json:"libraries,omitempty"`

	// Copyleft marks variants that link against copyleft-licensed code.
	Copyleft bool `json:"copyleft,omitempty"`
}

// Resource is a discovered unit considered for inclusion in the packaged
// artifact. Implementations are supplied by the scanner; the policy engine
// reads the capability queries and replaces the collection context slot,
// never anything else.
type Resource interface {
	// Name is the resource's fully qualified name (module path or file
	// path).
	Name() string

	// Kind identifies what the resource is.
	Kind() ResourceKind

	// Provenance classifies the resource's origin.
	Provenance() ProvenanceClass

	// IsTest reports whether the resource exists only to test other
	// resources.
	IsTest() bool

	// SupportsInMemoryLoading reports whether this resource can be
	// loaded from memory on the current platform. Only meaningful for
	// native-library kinds.
	SupportsInMemoryLoading() bool

	// Variants lists the available build variants. Empty for anything
	// that is not a multi-variant extension module.
	Variants() []Variant

	// DefaultVariant names the variant the resource declares as its
	// default. Empty when Variants is empty.
	DefaultVariant() string

	// CollectionContext returns the live decision record, or nil before
	// the first derivation.
	CollectionContext() *CollectionContext

	// ReplaceCollectionContext installs ctx as the resource's decision
	// record, discarding any previous one.
	ReplaceCollectionContext(ctx *CollectionContext)
}

// ResourceSnapshot is an isolated copy of a resource's read-only fields plus
// a working copy of its current context. Callbacks receive snapshots instead
// of the canonical resource so that the only state they can affect is the
// context they yield.
type ResourceSnapshot struct {
	// Name is the resource name.
	Name string `json:"name"`

	// Kind is the resource kind.
	Kind ResourceKind `json:"kind"`

	// Provenance is the resource's origin class.
	Provenance ProvenanceClass `json:"provenance"`

	// Test reports whether the resource is test-only.
	Test bool `json:"test,omitempty"`

	// InMemoryLoadable reports platform support for in-memory loading.
	InMemoryLoadable bool `json:"in_memory_loadable,omitempty"`

	// Variants lists the available build variants.
	Variants []Variant `json:"variants,omitempty"`

	// DefaultVariant is the declared default variant name.
	DefaultVariant string `json:"default_variant,omitempty"`

	// Context is the working copy of the resource's decision record.
	Context *CollectionContext `json:"context,omitempty"`
}

// TakeSnapshot copies r's read-only fields and clones its current context.
// Mutating the snapshot never affects the canonical resource.
func TakeSnapshot(r Resource) *ResourceSnapshot {
	variants := r.Variants()
	copied := make([]Variant, len(variants))
	for i, v := range variants {
		copied[i] = v
		copied[i].Libraries = append([]string(nil), v.Libraries...)
	}

	var ctx *CollectionContext
	if cur := r.CollectionContext(); cur != nil {
		ctx = cur.Clone()
	}

	return &ResourceSnapshot{
		Name:             r.Name(),
		Kind:             r.Kind(),
		Provenance:       r.Provenance(),
		Test:             r.IsTest(),
		InMemoryLoadable: r.SupportsInMemoryLoading(),
		Variants:         copied,
		DefaultVariant:   r.DefaultVariant(),
		Context:          ctx,
	}
}
