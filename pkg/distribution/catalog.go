package distribution

import (
	_ "embed"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var embeddedCatalog []byte

// Catalog is a parsed distribution catalog.
type Catalog struct {
	// Version is the catalog format version.
	Version int `json:"version" yaml:"version" validate:"required,eq=1"`

	// Distributions lists the known runtime archives in preference
	// order. Lookups that match several entries equally well keep the
	// earliest one, so the catalog can state platform preferences by
	// ordering (shared before static on Windows, for example).
	Distributions []Distribution `json:"distributions" yaml:"distributions" validate:"required,min=1,dive"`
}

// catalogSchema is the CUE schema embedded catalogs must satisfy.
const catalogSchema = `
#Catalog: {
	// Version is the catalog format version.
	version: 1

	// Distributions lists the known runtime archives.
	distributions: [...#Distribution] & [_, ...]
}

#Distribution: {
	// Name is the runtime implementation name.
	name: string & =~"^[a-z][a-z0-9_]*$"

	// Version is the runtime major.minor version.
	version: string & =~"^[0-9]+(\\.[0-9]+)*$"

	// TargetTriple is the platform the archive was built for.
	target_triple: string & =~"^[a-z0-9_]+-[a-z0-9_.-]+$"

	// Flavor records how the runtime was linked.
	flavor: "standalone_dynamic" | "standalone_static"

	// URL is the archive download location.
	url: string & =~"^https://"

	// SHA256 is the hex digest of the archive.
	sha256: string & =~"^[a-f0-9]{64}$"

	// Capability flags.
	in_memory_shared_library_loading:    bool
	supports_prebuilt_extension_modules: bool
	supports_static_libraries:           bool
}
`

// ParseCatalog parses and validates catalog YAML.
func ParseCatalog(data []byte) (*Catalog, error) {
	var catalog Catalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("failed to parse catalog YAML: %w", err)
	}

	if err := validateCatalogSchema(&catalog); err != nil {
		return nil, fmt.Errorf("catalog schema validation failed: %w", err)
	}

	validate := validator.New()
	if err := validate.Struct(&catalog); err != nil {
		return nil, fmt.Errorf("catalog validation failed: %w", err)
	}

	seen := make(map[string]bool, len(catalog.Distributions))
	for _, dist := range catalog.Distributions {
		key := dist.Key() + "+" + string(dist.Flavor)
		if seen[key] {
			return nil, fmt.Errorf("duplicate catalog entry %s (%s)", dist.Key(), dist.Flavor)
		}
		seen[key] = true
	}

	return &catalog, nil
}

// validateCatalogSchema validates the catalog against the CUE schema.
func validateCatalogSchema(catalog *Catalog) error {
	ctx := cuecontext.New()

	schema := ctx.CompileString(catalogSchema)
	if err := schema.Err(); err != nil {
		return fmt.Errorf("failed to compile catalog schema: %w", err)
	}

	def := schema.LookupPath(cue.ParsePath("#Catalog"))
	if err := def.Err(); err != nil {
		return fmt.Errorf("catalog schema definition not found: %w", err)
	}

	dataVal := ctx.Encode(catalog)
	if err := dataVal.Err(); err != nil {
		return fmt.Errorf("failed to encode catalog: %w", err)
	}

	unified := def.Unify(dataVal)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	return nil
}

// EmbeddedCatalog parses the catalog compiled into the binary.
func EmbeddedCatalog() (*Catalog, error) {
	return ParseCatalog(embeddedCatalog)
}
