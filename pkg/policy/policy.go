package policy

import (
	"github.com/omnipack/omnipack/pkg/packaging"
)

// Policy holds every toggle, enumeration, and mapping that parameterizes
// packaging decisions. Fields are independent; none implies another. Go
// callers use the fields directly, the scripting bridge goes through Get
// and Set, which validate before committing.
type Policy struct {
	// AllowFiles permits raw file resources to be included at all, and
	// drives whether module source text accompanies bytecode.
	AllowFiles bool `json:"allow_files"`

	// AllowInMemorySharedLibraryLoading permits extension modules and
	// shared libraries to target the in-memory placement.
	AllowInMemorySharedLibraryLoading bool `json:"allow_in_memory_shared_library_loading"`

	// BytecodeOptimizeLevelZero requests bytecode at optimization
	// level 0 for module resources. The three level toggles are
	// independent.
	BytecodeOptimizeLevelZero bool `json:"bytecode_optimize_level_zero"`

	// BytecodeOptimizeLevelOne requests bytecode at optimization level 1.
	BytecodeOptimizeLevelOne bool `json:"bytecode_optimize_level_one"`

	// BytecodeOptimizeLevelTwo requests bytecode at optimization level 2.
	BytecodeOptimizeLevelTwo bool `json:"bytecode_optimize_level_two"`

	// ExtensionModuleFilter narrows eligible extension-module variants.
	ExtensionModuleFilter ExtensionModuleFilter `json:"extension_module_filter"`

	// FileScannerClassifyFiles makes the scanner classify typed
	// resources out of discovered files.
	FileScannerClassifyFiles bool `json:"file_scanner_classify_files"`

	// FileScannerEmitFiles makes the scanner emit raw file resources.
	FileScannerEmitFiles bool `json:"file_scanner_emit_files"`

	// IncludeDistributionSources gates source modules shipped with the
	// runtime distribution.
	IncludeDistributionSources bool `json:"include_distribution_sources"`

	// IncludeDistributionResources gates data resources shipped with the
	// runtime distribution.
	IncludeDistributionResources bool `json:"include_distribution_resources"`

	// IncludeClassifiedResources gates every classified (non-file)
	// resource, ahead of the per-origin toggles.
	IncludeClassifiedResources bool `json:"include_classified_resources"`

	// IncludeFileResources gates raw file resources.
	IncludeFileResources bool `json:"include_file_resources"`

	// IncludeNonDistributionSources gates third-party resources layered
	// on top of the distribution.
	IncludeNonDistributionSources bool `json:"include_non_distribution_sources"`

	// IncludeTest gates resources flagged as test-only.
	IncludeTest bool `json:"include_test"`

	// PreferredExtensionModuleVariants maps extension module name to the
	// variant to prefer for it. Mutated through
	// SetPreferredExtensionModuleVariant; never assigned wholesale from
	// the scripting surface.
	PreferredExtensionModuleVariants map[string]string `json:"preferred_extension_module_variants,omitempty"`

	// ResourcesLocation is the primary placement target.
	ResourcesLocation packaging.ResourceLocation `json:"resources_location"`

	// ResourcesLocationFallback is the placement tried when the primary
	// is unsupported for a resource. Nil means no fallback.
	ResourcesLocationFallback *packaging.ResourceLocation `json:"resources_location_fallback,omitempty"`
}

// Default returns the policy a bare configuration starts from: classified
// distribution and third-party sources included, level-0 bytecode only,
// everything embedded in memory, no raw files, no test resources.
func Default() *Policy {
	return &Policy{
		BytecodeOptimizeLevelZero:        true,
		ExtensionModuleFilter:            FilterAll,
		FileScannerClassifyFiles:         true,
		IncludeDistributionSources:       true,
		IncludeClassifiedResources:       true,
		IncludeNonDistributionSources:    true,
		PreferredExtensionModuleVariants: map[string]string{},
		ResourcesLocation:                packaging.LocationInMemory(),
	}
}

// Clone returns an independent copy of the policy.
func (p *Policy) Clone() *Policy {
	dup := *p
	dup.PreferredExtensionModuleVariants = make(map[string]string, len(p.PreferredExtensionModuleVariants))
	for k, v := range p.PreferredExtensionModuleVariants {
		dup.PreferredExtensionModuleVariants[k] = v
	}
	if p.ResourcesLocationFallback != nil {
		fb := *p.ResourcesLocationFallback
		dup.ResourcesLocationFallback = &fb
	}
	return &dup
}

// Get returns the current value of the named option: bool, string, nil (an
// unset fallback), or a copy of the variant-preference map. Names outside
// the documented surface fail with an unknown-attribute error.
func (p *Policy) Get(name string) (interface{}, error) {
	entry, ok := optionTable[name]
	if !ok {
		return nil, packaging.NewUnknownAttributeError(name)
	}
	return entry.get(p), nil
}

// Set validates value for the named option and commits it only when valid;
// on failure the prior value is retained and a validation error carrying
// the attribute name and rejected value is returned. Names outside the
// documented surface fail with an unknown-attribute error. Booleans take a
// bool, enumerations their string form, and resources_location_fallback
// additionally accepts nil to clear.
func (p *Policy) Set(name string, value interface{}) error {
	entry, ok := optionTable[name]
	if !ok {
		return packaging.NewUnknownAttributeError(name)
	}
	return entry.set(p, value)
}

// SetPreferredExtensionModuleVariant records that variant should be
// selected for the named extension module when available.
func (p *Policy) SetPreferredExtensionModuleVariant(module, variant string) error {
	if module == "" {
		return packaging.NewValidationError("preferred_extension_module_variants", module, "module name must not be empty")
	}
	if variant == "" {
		return packaging.NewValidationError("preferred_extension_module_variants", variant, "variant name must not be empty")
	}
	if p.PreferredExtensionModuleVariants == nil {
		p.PreferredExtensionModuleVariants = map[string]string{}
	}
	p.PreferredExtensionModuleVariants[module] = variant
	return nil
}

// PreferredVariant reports the preferred variant for module, if one was
// registered.
func (p *Policy) PreferredVariant(module string) (string, bool) {
	v, ok := p.PreferredExtensionModuleVariants[module]
	return v, ok
}

// SetResourceHandlingMode flips the scanner and inclusion toggles as a
// group. "classify" scans files into typed resources and includes those;
// "files" skips classification and includes raw file resources instead
// (which also turns on allow_files). Any other mode is rejected and the
// policy is left unchanged.
func (p *Policy) SetResourceHandlingMode(mode string) error {
	m, err := ParseResourceHandlingMode(mode)
	if err != nil {
		return packaging.NewValidationError("resource_handling_mode", mode, err.Error())
	}
	switch m {
	case HandlingModeClassify:
		p.FileScannerClassifyFiles = true
		p.FileScannerEmitFiles = false
		p.IncludeClassifiedResources = true
		p.IncludeFileResources = false
	case HandlingModeFiles:
		p.FileScannerClassifyFiles = false
		p.FileScannerEmitFiles = true
		p.IncludeClassifiedResources = false
		p.IncludeFileResources = true
		p.AllowFiles = true
	}
	return nil
}
