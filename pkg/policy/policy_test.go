package policy

import (
	"testing"

	"github.com/omnipack/omnipack/pkg/packaging"
)

func TestDefaultPolicy(t *testing.T) {
	p := Default()

	boolWant := map[string]bool{
		"allow_files":                            false,
		"allow_in_memory_shared_library_loading": false,
		"bytecode_optimize_level_zero":           true,
		"bytecode_optimize_level_one":            false,
		"bytecode_optimize_level_two":            false,
		"file_scanner_classify_files":            true,
		"file_scanner_emit_files":                false,
		"include_distribution_sources":           true,
		"include_distribution_resources":         false,
		"include_classified_resources":           true,
		"include_file_resources":                 false,
		"include_non_distribution_sources":       true,
		"include_test":                           false,
	}
	for name, want := range boolWant {
		got, err := p.Get(name)
		if err != nil {
			t.Fatalf("Get(%s) failed: %v", name, err)
		}
		if got != want {
			t.Errorf("default %s = %v, want %v", name, got, want)
		}
	}

	if p.ExtensionModuleFilter != FilterAll {
		t.Errorf("default filter = %q, want %q", p.ExtensionModuleFilter, FilterAll)
	}
	if !p.ResourcesLocation.IsInMemory() {
		t.Errorf("default location = %s, want in-memory", p.ResourcesLocation)
	}
	if p.ResourcesLocationFallback != nil {
		t.Errorf("default fallback = %s, want unset", p.ResourcesLocationFallback)
	}
	if len(p.PreferredExtensionModuleVariants) != 0 {
		t.Errorf("default variant map = %v, want empty", p.PreferredExtensionModuleVariants)
	}
}

func TestPolicyClone(t *testing.T) {
	p := Default()
	fb := packaging.LocationFilesystemRelative("lib")
	p.ResourcesLocationFallback = &fb
	if err := p.SetPreferredExtensionModuleVariant("zlib", "static"); err != nil {
		t.Fatalf("SetPreferredExtensionModuleVariant failed: %v", err)
	}

	dup := p.Clone()
	dup.AllowFiles = true
	*dup.ResourcesLocationFallback = packaging.LocationFilesystemRelative("share")
	if err := dup.SetPreferredExtensionModuleVariant("zlib", "default"); err != nil {
		t.Fatalf("SetPreferredExtensionModuleVariant on clone failed: %v", err)
	}

	if p.AllowFiles {
		t.Error("mutating the clone changed AllowFiles on the original")
	}
	if *p.ResourcesLocationFallback != fb {
		t.Error("mutating the clone changed the original fallback")
	}
	if v, _ := p.PreferredVariant("zlib"); v != "static" {
		t.Errorf("mutating the clone changed the original variant map: %q", v)
	}
}

func TestSetPreferredExtensionModuleVariantValidation(t *testing.T) {
	p := Default()
	if err := p.SetPreferredExtensionModuleVariant("", "static"); !packaging.IsValidation(err) {
		t.Errorf("empty module = %v, want validation error", err)
	}
	if err := p.SetPreferredExtensionModuleVariant("zlib", ""); !packaging.IsValidation(err) {
		t.Errorf("empty variant = %v, want validation error", err)
	}
	if len(p.PreferredExtensionModuleVariants) != 0 {
		t.Errorf("rejected sets should not touch the map: %v", p.PreferredExtensionModuleVariants)
	}

	// A nil map self-heals so cloned-then-zeroed policies stay usable.
	p.PreferredExtensionModuleVariants = nil
	if err := p.SetPreferredExtensionModuleVariant("zlib", "static"); err != nil {
		t.Fatalf("SetPreferredExtensionModuleVariant with nil map failed: %v", err)
	}
	if v, ok := p.PreferredVariant("zlib"); !ok || v != "static" {
		t.Errorf("PreferredVariant = %q, %v", v, ok)
	}
}

func TestSetResourceHandlingMode(t *testing.T) {
	t.Run("invalid mode rejected, policy unchanged", func(t *testing.T) {
		p := Default()
		before := *p.Clone()
		err := p.SetResourceHandlingMode("invalid")
		if !packaging.IsValidation(err) {
			t.Fatalf("SetResourceHandlingMode(invalid) = %v, want validation error", err)
		}
		if p.FileScannerClassifyFiles != before.FileScannerClassifyFiles ||
			p.FileScannerEmitFiles != before.FileScannerEmitFiles ||
			p.IncludeClassifiedResources != before.IncludeClassifiedResources ||
			p.IncludeFileResources != before.IncludeFileResources ||
			p.AllowFiles != before.AllowFiles {
			t.Error("rejected mode changed policy state")
		}
	})

	t.Run("files", func(t *testing.T) {
		p := Default()
		if err := p.SetResourceHandlingMode("files"); err != nil {
			t.Fatalf("SetResourceHandlingMode(files) failed: %v", err)
		}
		if p.FileScannerClassifyFiles || !p.FileScannerEmitFiles {
			t.Errorf("scanner toggles = classify:%v emit:%v, want classify:false emit:true",
				p.FileScannerClassifyFiles, p.FileScannerEmitFiles)
		}
		if p.IncludeClassifiedResources || !p.IncludeFileResources {
			t.Errorf("inclusion toggles = classified:%v file:%v, want classified:false file:true",
				p.IncludeClassifiedResources, p.IncludeFileResources)
		}
		if !p.AllowFiles {
			t.Error("files mode should turn on allow_files")
		}
	})

	t.Run("classify restores classified handling", func(t *testing.T) {
		p := Default()
		if err := p.SetResourceHandlingMode("files"); err != nil {
			t.Fatalf("SetResourceHandlingMode(files) failed: %v", err)
		}
		if err := p.SetResourceHandlingMode("classify"); err != nil {
			t.Fatalf("SetResourceHandlingMode(classify) failed: %v", err)
		}
		if !p.FileScannerClassifyFiles || p.FileScannerEmitFiles {
			t.Errorf("scanner toggles = classify:%v emit:%v, want classify:true emit:false",
				p.FileScannerClassifyFiles, p.FileScannerEmitFiles)
		}
		if !p.IncludeClassifiedResources || p.IncludeFileResources {
			t.Errorf("inclusion toggles = classified:%v file:%v, want classified:true file:false",
				p.IncludeClassifiedResources, p.IncludeFileResources)
		}
	})
}
