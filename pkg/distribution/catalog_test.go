package distribution

import (
	"strings"
	"testing"
)

func TestEmbeddedCatalog(t *testing.T) {
	catalog, err := EmbeddedCatalog()
	if err != nil {
		t.Fatalf("EmbeddedCatalog() failed: %v", err)
	}

	if catalog.Version != 1 {
		t.Errorf("catalog version = %d, want 1", catalog.Version)
	}
	if len(catalog.Distributions) == 0 {
		t.Fatal("embedded catalog has no distributions")
	}

	for _, dist := range catalog.Distributions {
		if !dist.Flavor.Valid() {
			t.Errorf("%s: invalid flavor %q", dist.Key(), dist.Flavor)
		}
		if len(dist.SHA256) != 64 {
			t.Errorf("%s: sha256 length = %d, want 64", dist.Key(), len(dist.SHA256))
		}
		if !strings.HasPrefix(dist.URL, "https://") {
			t.Errorf("%s: url %q is not https", dist.Key(), dist.URL)
		}
	}
}

func TestEmbeddedCatalogCapabilities(t *testing.T) {
	catalog, err := EmbeddedCatalog()
	if err != nil {
		t.Fatalf("EmbeddedCatalog() failed: %v", err)
	}

	for _, dist := range catalog.Distributions {
		windows := strings.Contains(dist.TargetTriple, "-windows-")

		if dist.InMemorySharedLibraryLoading && !windows {
			t.Errorf("%s: in-memory shared library loading claimed off Windows", dist.Key())
		}
		if dist.InMemorySharedLibraryLoading && dist.Flavor != FlavorStandaloneDynamic {
			t.Errorf("%s: in-memory shared library loading claimed for %s flavor", dist.Key(), dist.Flavor)
		}
		if dist.Flavor == FlavorStandaloneStatic && dist.SupportsPrebuiltExtensionModules {
			t.Errorf("%s: static flavor cannot take prebuilt extension modules", dist.Key())
		}
	}
}

const catalogHeader = `
version: 1
distributions:
`

const validEntry = `
  - name: cpython
    version: "3.10"
    target_triple: x86_64-unknown-linux-gnu
    flavor: standalone_dynamic
    url: https://example.invalid/cpython-3.10.tar.zst
    sha256: 0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef
    in_memory_shared_library_loading: false
    supports_prebuilt_extension_modules: true
    supports_static_libraries: false
`

func TestParseCatalog(t *testing.T) {
	catalog, err := ParseCatalog([]byte(catalogHeader + validEntry))
	if err != nil {
		t.Fatalf("ParseCatalog() failed: %v", err)
	}

	if len(catalog.Distributions) != 1 {
		t.Fatalf("got %d distributions, want 1", len(catalog.Distributions))
	}

	dist := catalog.Distributions[0]
	if dist.Key() != "cpython@3.10/x86_64-unknown-linux-gnu" {
		t.Errorf("Key() = %q", dist.Key())
	}
	if dist.Flavor != FlavorStandaloneDynamic {
		t.Errorf("Flavor = %q", dist.Flavor)
	}
	if !dist.SupportsPrebuiltExtensionModules {
		t.Error("SupportsPrebuiltExtensionModules = false, want true")
	}
}

func TestParseCatalogRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{
			name: "not yaml",
			yaml: "{{{",
		},
		{
			name: "unsupported format version",
			yaml: strings.Replace(catalogHeader+validEntry, "version: 1", "version: 2", 1),
		},
		{
			name: "no distributions",
			yaml: "version: 1\ndistributions: []\n",
		},
		{
			name: "short sha256",
			yaml: strings.Replace(catalogHeader+validEntry,
				"0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef", "0123abc", 1),
		},
		{
			name: "unknown flavor",
			yaml: strings.Replace(catalogHeader+validEntry, "standalone_dynamic", "portable", 1),
		},
		{
			name: "plain http url",
			yaml: strings.Replace(catalogHeader+validEntry, "https://", "http://", 1),
		},
		{
			name: "missing runtime version",
			yaml: strings.Replace(catalogHeader+validEntry, `version: "3.10"`, `version: ""`, 1),
		},
		{
			name: "duplicate entry",
			yaml: catalogHeader + validEntry + validEntry,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseCatalog([]byte(tt.yaml)); err == nil {
				t.Error("ParseCatalog() succeeded, want error")
			}
		})
	}
}
