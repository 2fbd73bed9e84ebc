package policy

import (
	"fmt"
	"sort"

	"github.com/omnipack/omnipack/pkg/packaging"
)

// ExtensionModuleFilter narrows which extension-module variants are eligible
// for selection.
type ExtensionModuleFilter string

const (
	// FilterAll keeps every variant eligible.
	FilterAll ExtensionModuleFilter = "all"

	// FilterMinimal keeps only variants the interpreter core requires.
	FilterMinimal ExtensionModuleFilter = "minimal"

	// FilterNoLibrary keeps only variants with no link-time library
	// dependencies.
	FilterNoLibrary ExtensionModuleFilter = "no-library"

	// FilterNoCopyleft keeps only variants that do not link against
	// copyleft-licensed code.
	FilterNoCopyleft ExtensionModuleFilter = "no-copyleft"
)

// ParseExtensionModuleFilter parses the string form of a filter.
func ParseExtensionModuleFilter(s string) (ExtensionModuleFilter, error) {
	switch f := ExtensionModuleFilter(s); f {
	case FilterAll, FilterMinimal, FilterNoLibrary, FilterNoCopyleft:
		return f, nil
	}
	return "", fmt.Errorf("unknown extension module filter %q (want all, minimal, no-library, or no-copyleft)", s)
}

// ResourceHandlingMode is the coarse two-position switch over the scanner
// and inclusion toggles, settable only through
// Policy.SetResourceHandlingMode.
type ResourceHandlingMode string

const (
	// HandlingModeClassify scans files into typed resources and includes
	// the classified resources.
	HandlingModeClassify ResourceHandlingMode = "classify"

	// HandlingModeFiles skips classification and includes raw file
	// resources instead.
	HandlingModeFiles ResourceHandlingMode = "files"
)

// ParseResourceHandlingMode parses the string form of a handling mode.
func ParseResourceHandlingMode(s string) (ResourceHandlingMode, error) {
	switch m := ResourceHandlingMode(s); m {
	case HandlingModeClassify, HandlingModeFiles:
		return m, nil
	}
	return "", fmt.Errorf("unknown resource handling mode %q (want classify or files)", s)
}

// documentedOptions is the fixed public option surface. The dispatch table
// below must cover exactly these names; init panics otherwise.
var documentedOptions = []string{
	"allow_files",
	"allow_in_memory_shared_library_loading",
	"bytecode_optimize_level_zero",
	"bytecode_optimize_level_one",
	"bytecode_optimize_level_two",
	"extension_module_filter",
	"file_scanner_classify_files",
	"file_scanner_emit_files",
	"include_distribution_sources",
	"include_distribution_resources",
	"include_classified_resources",
	"include_file_resources",
	"include_non_distribution_sources",
	"include_test",
	"preferred_extension_module_variants",
	"resources_location",
	"resources_location_fallback",
}

// optionEntry is one row of the dispatch table: a typed getter/setter pair
// for a named option. Getters normalize to bool, string, nil, or
// map[string]string so the scripting bridge has a closed set of shapes to
// convert.
type optionEntry struct {
	get func(p *Policy) interface{}
	set func(p *Policy, value interface{}) error
}

var optionTable = map[string]optionEntry{
	"allow_files": boolOption("allow_files",
		func(p *Policy) *bool { return &p.AllowFiles }),
	"allow_in_memory_shared_library_loading": boolOption("allow_in_memory_shared_library_loading",
		func(p *Policy) *bool { return &p.AllowInMemorySharedLibraryLoading }),
	"bytecode_optimize_level_zero": boolOption("bytecode_optimize_level_zero",
		func(p *Policy) *bool { return &p.BytecodeOptimizeLevelZero }),
	"bytecode_optimize_level_one": boolOption("bytecode_optimize_level_one",
		func(p *Policy) *bool { return &p.BytecodeOptimizeLevelOne }),
	"bytecode_optimize_level_two": boolOption("bytecode_optimize_level_two",
		func(p *Policy) *bool { return &p.BytecodeOptimizeLevelTwo }),
	"extension_module_filter": {
		get: func(p *Policy) interface{} { return string(p.ExtensionModuleFilter) },
		set: func(p *Policy, value interface{}) error {
			s, ok := value.(string)
			if !ok {
				return packaging.NewValidationError("extension_module_filter", value, "expected a string")
			}
			f, err := ParseExtensionModuleFilter(s)
			if err != nil {
				return packaging.NewValidationError("extension_module_filter", s, err.Error())
			}
			p.ExtensionModuleFilter = f
			return nil
		},
	},
	"file_scanner_classify_files": boolOption("file_scanner_classify_files",
		func(p *Policy) *bool { return &p.FileScannerClassifyFiles }),
	"file_scanner_emit_files": boolOption("file_scanner_emit_files",
		func(p *Policy) *bool { return &p.FileScannerEmitFiles }),
	"include_distribution_sources": boolOption("include_distribution_sources",
		func(p *Policy) *bool { return &p.IncludeDistributionSources }),
	"include_distribution_resources": boolOption("include_distribution_resources",
		func(p *Policy) *bool { return &p.IncludeDistributionResources }),
	"include_classified_resources": boolOption("include_classified_resources",
		func(p *Policy) *bool { return &p.IncludeClassifiedResources }),
	"include_file_resources": boolOption("include_file_resources",
		func(p *Policy) *bool { return &p.IncludeFileResources }),
	"include_non_distribution_sources": boolOption("include_non_distribution_sources",
		func(p *Policy) *bool { return &p.IncludeNonDistributionSources }),
	"include_test": boolOption("include_test",
		func(p *Policy) *bool { return &p.IncludeTest }),
	"preferred_extension_module_variants": {
		get: func(p *Policy) interface{} {
			dup := make(map[string]string, len(p.PreferredExtensionModuleVariants))
			for k, v := range p.PreferredExtensionModuleVariants {
				dup[k] = v
			}
			return dup
		},
		set: func(p *Policy, value interface{}) error {
			return packaging.NewValidationError("preferred_extension_module_variants", value,
				"not directly assignable; use set_preferred_extension_module_variant")
		},
	},
	"resources_location": {
		get: func(p *Policy) interface{} { return p.ResourcesLocation.String() },
		set: func(p *Policy, value interface{}) error {
			s, ok := value.(string)
			if !ok {
				return packaging.NewValidationError("resources_location", value, "expected a placement string")
			}
			loc, err := packaging.ParseResourceLocation(s)
			if err != nil {
				return packaging.NewValidationError("resources_location", s, err.Error())
			}
			p.ResourcesLocation = loc
			return nil
		},
	},
	"resources_location_fallback": {
		get: func(p *Policy) interface{} {
			if p.ResourcesLocationFallback == nil {
				return nil
			}
			return p.ResourcesLocationFallback.String()
		},
		set: func(p *Policy, value interface{}) error {
			if value == nil {
				p.ResourcesLocationFallback = nil
				return nil
			}
			s, ok := value.(string)
			if !ok {
				return packaging.NewValidationError("resources_location_fallback", value, "expected a placement string or None")
			}
			loc, err := packaging.ParseResourceLocation(s)
			if err != nil {
				return packaging.NewValidationError("resources_location_fallback", s, err.Error())
			}
			p.ResourcesLocationFallback = &loc
			return nil
		},
	},
}

func boolOption(name string, field func(p *Policy) *bool) optionEntry {
	return optionEntry{
		get: func(p *Policy) interface{} { return *field(p) },
		set: func(p *Policy, value interface{}) error {
			b, ok := value.(bool)
			if !ok {
				return packaging.NewValidationError(name, value, "expected a bool")
			}
			*field(p) = b
			return nil
		},
	}
}

// OptionNames returns the documented option names in sorted order.
func OptionNames() []string {
	names := make([]string, len(documentedOptions))
	copy(names, documentedOptions)
	sort.Strings(names)
	return names
}

func init() {
	if err := verifyOptionTable(); err != nil {
		panic(err)
	}
}

// verifyOptionTable checks the dispatch table covers exactly the documented
// option surface, so a drifting table fails at startup rather than as a
// silent missing attribute.
func verifyOptionTable() error {
	documented := make(map[string]bool, len(documentedOptions))
	for _, name := range documentedOptions {
		if documented[name] {
			return fmt.Errorf("policy: option %q documented twice", name)
		}
		documented[name] = true
		entry, ok := optionTable[name]
		if !ok {
			return fmt.Errorf("policy: documented option %q missing from dispatch table", name)
		}
		if entry.get == nil || entry.set == nil {
			return fmt.Errorf("policy: option %q has an incomplete dispatch entry", name)
		}
	}
	for name := range optionTable {
		if !documented[name] {
			return fmt.Errorf("policy: dispatch table entry %q is not a documented option", name)
		}
	}
	return nil
}
