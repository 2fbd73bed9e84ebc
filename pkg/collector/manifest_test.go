package collector

import (
	"strings"
	"testing"

	"github.com/omnipack/omnipack/pkg/packaging"
)

const validManifest = `
version: 1
runtime:
  name: cpython
  version: "3.10"
  target_triple: x86_64-unknown-linux-gnu
resources:
  - name: os.path
    path: lib/os/path.py
    kind: module-source
    provenance: distribution-source
  - name: certifi.cacert
    path: lib/certifi/cacert.pem
    kind: data-resource
    provenance: non-distribution
  - name: ssl
    path: lib/ssl.so
    kind: extension-module
    provenance: distribution-source
    in_memory_loadable: true
    default_variant: shared
    variants:
      - name: shared
        required: true
        libraries: [openssl]
      - name: static
  - name: test_ssl
    path: lib/test/test_ssl.py
    kind: module-source
    provenance: distribution-source
    test: true
`

func TestParseManifest(t *testing.T) {
	manifest, err := ParseManifest([]byte(validManifest))
	if err != nil {
		t.Fatalf("failed to parse manifest: %v", err)
	}

	if manifest.Version != 1 {
		t.Errorf("version = %d, want 1", manifest.Version)
	}
	if manifest.Runtime.Name != "cpython" || manifest.Runtime.Version != "3.10" {
		t.Errorf("runtime = %s@%s, want cpython@3.10", manifest.Runtime.Name, manifest.Runtime.Version)
	}
	if len(manifest.Resources) != 4 {
		t.Fatalf("got %d resources, want 4", len(manifest.Resources))
	}

	ssl := manifest.Resources[2]
	if ssl.Kind != packaging.KindExtensionModule {
		t.Errorf("ssl kind = %s, want extension-module", ssl.Kind)
	}
	if len(ssl.Variants) != 2 || ssl.DefaultVariant != "shared" {
		t.Errorf("ssl variants not preserved: %+v", ssl)
	}
	if !manifest.Resources[3].Test {
		t.Error("test flag not preserved")
	}
}

func TestParseManifestRejectsInvalid(t *testing.T) {
	tests := []struct {
		name     string
		manifest string
		wantErr  string
	}{
		{
			name: "wrong version",
			manifest: `
version: 2
runtime: {name: cpython, version: "3.10"}
resources:
  - {name: a, path: a.py, kind: module-source, provenance: distribution-source}
`,
			wantErr: "schema validation failed",
		},
		{
			name: "no resources",
			manifest: `
version: 1
runtime: {name: cpython, version: "3.10"}
resources: []
`,
			wantErr: "schema validation failed",
		},
		{
			name: "unknown kind",
			manifest: `
version: 1
runtime: {name: cpython, version: "3.10"}
resources:
  - {name: a, path: a.py, kind: notebook, provenance: distribution-source}
`,
			wantErr: "schema validation failed",
		},
		{
			name: "unknown provenance",
			manifest: `
version: 1
runtime: {name: cpython, version: "3.10"}
resources:
  - {name: a, path: a.py, kind: module-source, provenance: somewhere}
`,
			wantErr: "schema validation failed",
		},
		{
			name: "bad runtime flavor",
			manifest: `
version: 1
runtime: {name: cpython, version: "3.10", flavor: portable}
resources:
  - {name: a, path: a.py, kind: module-source, provenance: distribution-source}
`,
			wantErr: "schema validation failed",
		},
		{
			name: "duplicate resource",
			manifest: `
version: 1
runtime: {name: cpython, version: "3.10"}
resources:
  - {name: a, path: a.py, kind: module-source, provenance: distribution-source}
  - {name: a, path: b.py, kind: module-source, provenance: distribution-source}
`,
			wantErr: "duplicate resource",
		},
		{
			name: "variants on non-extension",
			manifest: `
version: 1
runtime: {name: cpython, version: "3.10"}
resources:
  - name: a
    path: a.py
    kind: module-source
    provenance: distribution-source
    variants:
      - {name: shared}
`,
			wantErr: "cannot carry variants",
		},
		{
			name: "unknown default variant",
			manifest: `
version: 1
runtime: {name: cpython, version: "3.10"}
resources:
  - name: a
    path: a.so
    kind: extension-module
    provenance: distribution-source
    default_variant: static
    variants:
      - {name: shared}
`,
			wantErr: "unknown default variant",
		},
		{
			name: "default variant without variants",
			manifest: `
version: 1
runtime: {name: cpython, version: "3.10"}
resources:
  - name: a
    path: a.so
    kind: extension-module
    provenance: distribution-source
    default_variant: shared
`,
			wantErr: "without variants",
		},
		{
			name:     "not yaml",
			manifest: "{{{{",
			wantErr:  "failed to parse",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseManifest([]byte(tt.manifest))
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not contain %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestLoadManifestMissingFile(t *testing.T) {
	if _, err := LoadManifest("does/not/exist.yaml"); err == nil {
		t.Fatal("expected error for missing manifest")
	}
}
