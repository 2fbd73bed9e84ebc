package collector

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/omnipack/omnipack/pkg/packaging"
)

// Manifest declares the runtime a project packages against and the
// resources it ships.
type Manifest struct {
	// Version is the manifest format version.
	Version int `json:"version" yaml:"version" validate:"required,eq=1"`

	// Runtime selects the distribution the resources are packaged with.
	Runtime RuntimeRef `json:"runtime" yaml:"runtime" validate:"required"`

	// Resources lists the declared resources in scan order.
	Resources []Entry `json:"resources" yaml:"resources" validate:"required,min=1,dive"`
}

// RuntimeRef names a distribution from the catalog.
type RuntimeRef struct {
	// Name is the runtime implementation name.
	Name string `json:"name" yaml:"name" validate:"required"`

	// Version is the runtime major.minor version.
	Version string `json:"version" yaml:"version" validate:"required"`

	// TargetTriple is the platform to package for. Empty means the host
	// platform.
	TargetTriple string `json:"target_triple,omitempty" yaml:"target_triple,omitempty"`

	// Flavor optionally pins the link flavor.
	Flavor string `json:"flavor,omitempty" yaml:"flavor,omitempty" validate:"omitempty,oneof=standalone_dynamic standalone_static"`
}

// Entry is one declared resource.
type Entry struct {
	// Name is the resource's fully qualified name.
	Name string `json:"name" yaml:"name" validate:"required"`

	// Path is where the resource's content lives on disk.
	Path string `json:"path" yaml:"path" validate:"required"`

	// Kind identifies what the resource is.
	Kind packaging.ResourceKind `json:"kind" yaml:"kind" validate:"required"`

	// Provenance classifies the resource's origin.
	Provenance packaging.ProvenanceClass `json:"provenance" yaml:"provenance" validate:"required"`

	// Test marks resources that exist only to test other resources.
	Test bool `json:"test,omitempty" yaml:"test,omitempty"`

	// InMemoryLoadable reports platform support for loading this resource
	// from memory. Only meaningful for native-library kinds.
	InMemoryLoadable bool `json:"in_memory_loadable,omitempty" yaml:"in_memory_loadable,omitempty"`

	// DefaultVariant names the declared default build variant.
	DefaultVariant string `json:"default_variant,omitempty" yaml:"default_variant,omitempty"`

	// Variants lists the available build variants for multi-variant
	// extension modules.
	Variants []packaging.Variant `json:"variants,omitempty" yaml:"variants,omitempty"`
}

// manifestSchema is the CUE schema manifests must satisfy.
const manifestSchema = `
#Manifest: {
	// Version is the manifest format version.
	version: 1

	// Runtime selects the distribution to package with.
	runtime: #Runtime

	// Resources lists the declared resources.
	resources: [...#Entry] & [_, ...]
}

#Runtime: {
	name:           string & =~"^[a-z][a-z0-9_]*$"
	version:        string & =~"^[0-9]+(\\.[0-9]+)*$"
	target_triple?: string & =~"^[a-z0-9_]+-[a-z0-9_.-]+$"
	flavor?:        "standalone_dynamic" | "standalone_static"
}

#Entry: {
	name: string & !=""
	path: string & !=""
	kind: "module-source" | "module-bytecode" | "data-resource" |
		"extension-module" | "shared-library" | "file"
	provenance: "distribution-source" | "distribution-resource" |
		"non-distribution"
	test?:               bool
	in_memory_loadable?: bool
	default_variant?:    string & !=""
	variants?: [...#Variant]
}

#Variant: {
	name:      string & !=""
	required?: bool
	libraries?: [...string]
	copyleft?: bool
}
`

// ParseManifest parses and validates manifest YAML.
func ParseManifest(data []byte) (*Manifest, error) {
	var manifest Manifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("failed to parse manifest YAML: %w", err)
	}

	if err := validateManifestSchema(&manifest); err != nil {
		return nil, fmt.Errorf("manifest schema validation failed: %w", err)
	}

	validate := validator.New()
	if err := validate.Struct(&manifest); err != nil {
		return nil, fmt.Errorf("manifest validation failed: %w", err)
	}

	seen := make(map[string]bool, len(manifest.Resources))
	for _, entry := range manifest.Resources {
		if seen[entry.Name] {
			return nil, fmt.Errorf("duplicate resource %s in manifest", entry.Name)
		}
		seen[entry.Name] = true

		if err := validateEntryVariants(entry); err != nil {
			return nil, err
		}
	}

	return &manifest, nil
}

// LoadManifest reads and parses a manifest file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest %s: %w", path, err)
	}
	return ParseManifest(data)
}

func validateEntryVariants(entry Entry) error {
	if len(entry.Variants) == 0 {
		if entry.DefaultVariant != "" {
			return fmt.Errorf("resource %s declares default variant %s without variants", entry.Name, entry.DefaultVariant)
		}
		return nil
	}

	if entry.Kind != packaging.KindExtensionModule {
		return fmt.Errorf("resource %s is %s and cannot carry variants", entry.Name, entry.Kind)
	}

	names := make(map[string]bool, len(entry.Variants))
	for _, v := range entry.Variants {
		if names[v.Name] {
			return fmt.Errorf("resource %s declares variant %s twice", entry.Name, v.Name)
		}
		names[v.Name] = true
	}

	if entry.DefaultVariant != "" && !names[entry.DefaultVariant] {
		return fmt.Errorf("resource %s declares unknown default variant %s", entry.Name, entry.DefaultVariant)
	}

	return nil
}

// validateManifestSchema validates the manifest against the CUE schema.
func validateManifestSchema(manifest *Manifest) error {
	ctx := cuecontext.New()

	schema := ctx.CompileString(manifestSchema)
	if err := schema.Err(); err != nil {
		return fmt.Errorf("failed to compile manifest schema: %w", err)
	}

	def := schema.LookupPath(cue.ParsePath("#Manifest"))
	if err := def.Err(); err != nil {
		return fmt.Errorf("manifest schema definition not found: %w", err)
	}

	dataVal := ctx.Encode(manifest)
	if err := dataVal.Err(); err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}

	unified := def.Unify(dataVal)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	return nil
}
