package policy

import (
	"sort"
	"testing"

	"github.com/omnipack/omnipack/pkg/packaging"
)

func boolOptionNames() []string {
	names := make([]string, 0, len(documentedOptions))
	for _, name := range documentedOptions {
		switch name {
		case "extension_module_filter", "preferred_extension_module_variants",
			"resources_location", "resources_location_fallback":
			continue
		}
		names = append(names, name)
	}
	return names
}

func TestBoolOptionRoundTrip(t *testing.T) {
	for _, name := range boolOptionNames() {
		t.Run(name, func(t *testing.T) {
			p := Default()
			for _, want := range []bool{true, false, true} {
				if err := p.Set(name, want); err != nil {
					t.Fatalf("Set(%s, %v) failed: %v", name, want, err)
				}
				got, err := p.Get(name)
				if err != nil {
					t.Fatalf("Get(%s) failed: %v", name, err)
				}
				if got != want {
					t.Errorf("Get(%s) = %v, want %v", name, got, want)
				}
			}
		})
	}
}

func TestBoolOptionRejectsWrongType(t *testing.T) {
	p := Default()
	prior, _ := p.Get("allow_files")

	err := p.Set("allow_files", "yes")
	if !packaging.IsValidation(err) {
		t.Fatalf("Set(allow_files, string) = %v, want validation error", err)
	}
	got, _ := p.Get("allow_files")
	if got != prior {
		t.Errorf("rejected set changed the value: %v -> %v", prior, got)
	}
}

func TestExtensionModuleFilterVocabulary(t *testing.T) {
	valid := []string{"all", "minimal", "no-library", "no-copyleft"}
	for _, v := range valid {
		t.Run(v, func(t *testing.T) {
			p := Default()
			if err := p.Set("extension_module_filter", v); err != nil {
				t.Fatalf("Set(extension_module_filter, %q) failed: %v", v, err)
			}
			got, err := p.Get("extension_module_filter")
			if err != nil {
				t.Fatalf("Get failed: %v", err)
			}
			if got != v {
				t.Errorf("Get = %v, want %q", got, v)
			}
		})
	}

	p := Default()
	if err := p.Set("extension_module_filter", "minimal"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	tests := []struct {
		name  string
		value interface{}
	}{
		{name: "unknown string", value: "everything"},
		{name: "wrong type", value: true},
		{name: "empty string", value: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := p.Set("extension_module_filter", tt.value)
			if !packaging.IsValidation(err) {
				t.Fatalf("Set = %v, want validation error", err)
			}
			got, _ := p.Get("extension_module_filter")
			if got != "minimal" {
				t.Errorf("rejected set changed the value to %v", got)
			}
		})
	}
}

func TestResourcesLocationVocabulary(t *testing.T) {
	p := Default()

	for _, v := range []string{"in-memory", "filesystem-relative:lib", "filesystem-relative:share/data"} {
		if err := p.Set("resources_location", v); err != nil {
			t.Fatalf("Set(resources_location, %q) failed: %v", v, err)
		}
		got, _ := p.Get("resources_location")
		if got != v {
			t.Errorf("Get(resources_location) = %v, want %q", got, v)
		}
	}

	err := p.Set("resources_location", "carrier-pigeon")
	if !packaging.IsValidation(err) {
		t.Fatalf("Set = %v, want validation error", err)
	}
	got, _ := p.Get("resources_location")
	if got != "filesystem-relative:share/data" {
		t.Errorf("rejected set changed the value to %v", got)
	}

	if err := p.Set("resources_location", nil); !packaging.IsValidation(err) {
		t.Errorf("resources_location should not accept nil: %v", err)
	}
}

func TestResourcesLocationFallback(t *testing.T) {
	p := Default()

	got, err := p.Get("resources_location_fallback")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != nil {
		t.Fatalf("default fallback = %v, want nil", got)
	}

	if err := p.Set("resources_location_fallback", "filesystem-relative:lib"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	got, _ = p.Get("resources_location_fallback")
	if got != "filesystem-relative:lib" {
		t.Errorf("Get = %v, want filesystem-relative:lib", got)
	}

	if err := p.Set("resources_location_fallback", nil); err != nil {
		t.Fatalf("Set(nil) failed: %v", err)
	}
	got, _ = p.Get("resources_location_fallback")
	if got != nil {
		t.Errorf("fallback after clearing = %v, want nil", got)
	}

	if err := p.Set("resources_location_fallback", "nowhere"); !packaging.IsValidation(err) {
		t.Errorf("Set(nowhere) = %v, want validation error", err)
	}
}

func TestUnknownAttribute(t *testing.T) {
	p := Default()

	if _, err := p.Get("no_such_option"); !packaging.IsUnknownAttribute(err) {
		t.Errorf("Get(no_such_option) = %v, want unknown-attribute error", err)
	}
	if err := p.Set("no_such_option", true); !packaging.IsUnknownAttribute(err) {
		t.Errorf("Set(no_such_option) = %v, want unknown-attribute error", err)
	}
}

func TestPreferredVariantsNotAssignable(t *testing.T) {
	p := Default()
	err := p.Set("preferred_extension_module_variants", map[string]string{"foo": "bar"})
	if !packaging.IsValidation(err) {
		t.Fatalf("Set = %v, want validation error", err)
	}

	if err := p.SetPreferredExtensionModuleVariant("foo", "bar"); err != nil {
		t.Fatalf("SetPreferredExtensionModuleVariant failed: %v", err)
	}
	got, err := p.Get("preferred_extension_module_variants")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	m, ok := got.(map[string]string)
	if !ok {
		t.Fatalf("Get returned %T, want map[string]string", got)
	}
	if m["foo"] != "bar" {
		t.Errorf("map = %v, want foo->bar", m)
	}

	// The getter hands out a copy; writing to it must not leak back.
	m["foo"] = "mangled"
	if v, _ := p.PreferredVariant("foo"); v != "bar" {
		t.Errorf("mutating the returned map changed the policy: %q", v)
	}
}

func TestOptionTableComplete(t *testing.T) {
	if err := verifyOptionTable(); err != nil {
		t.Fatalf("verifyOptionTable failed: %v", err)
	}

	names := OptionNames()
	if len(names) != len(documentedOptions) {
		t.Fatalf("OptionNames returned %d names, want %d", len(names), len(documentedOptions))
	}
	if !sort.StringsAreSorted(names) {
		t.Error("OptionNames should be sorted")
	}
	for _, name := range names {
		if _, err := Default().Get(name); err != nil {
			t.Errorf("Get(%s) failed: %v", name, err)
		}
	}
}

func TestParseResourceHandlingMode(t *testing.T) {
	for _, v := range []string{"classify", "files"} {
		if _, err := ParseResourceHandlingMode(v); err != nil {
			t.Errorf("ParseResourceHandlingMode(%q) failed: %v", v, err)
		}
	}
	if _, err := ParseResourceHandlingMode("invalid"); err == nil {
		t.Error("ParseResourceHandlingMode(invalid) should fail")
	}
}
