package collector

import (
	"testing"

	"github.com/rs/zerolog"

	"github.com/omnipack/omnipack/pkg/packaging"
	"github.com/omnipack/omnipack/pkg/policy"
)

func testManifest(t *testing.T) *Manifest {
	t.Helper()
	manifest, err := ParseManifest([]byte(validManifest))
	if err != nil {
		t.Fatalf("failed to parse manifest: %v", err)
	}
	return manifest
}

func scanWith(t *testing.T, p *policy.Policy) []packaging.Resource {
	t.Helper()
	scanner := NewManifestScanner(testManifest(t), zerolog.Nop())
	return scanner.Scan(p)
}

func TestScanClassify(t *testing.T) {
	p := policy.Default()

	resources := scanWith(t, p)
	if len(resources) != 4 {
		t.Fatalf("got %d resources, want 4", len(resources))
	}

	for _, res := range resources {
		if !res.Kind().IsClassified() {
			t.Errorf("resource %s surfaced as %s under classify mode", res.Name(), res.Kind())
		}
	}
	if resources[0].Name() != "os.path" {
		t.Errorf("manifest order not preserved: first resource is %s", resources[0].Name())
	}
}

func TestScanEmitFilesOnly(t *testing.T) {
	p := policy.Default()
	if err := p.SetResourceHandlingMode("files"); err != nil {
		t.Fatalf("failed to set handling mode: %v", err)
	}

	resources := scanWith(t, p)
	if len(resources) != 4 {
		t.Fatalf("got %d resources, want 4", len(resources))
	}

	for _, res := range resources {
		if res.Kind() != packaging.KindFile {
			t.Errorf("resource %s surfaced as %s under files mode", res.Name(), res.Kind())
		}
		if len(res.Variants()) != 0 {
			t.Errorf("raw file rendition of %s kept variants", res.Name())
		}
	}
}

func TestScanBothRenditions(t *testing.T) {
	p := policy.Default()
	p.FileScannerEmitFiles = true

	resources := scanWith(t, p)
	if len(resources) != 8 {
		t.Fatalf("got %d resources, want 8 (typed plus file per entry)", len(resources))
	}

	// Each entry's typed rendition comes before its file rendition.
	if resources[0].Kind() != packaging.KindModuleSource || resources[1].Kind() != packaging.KindFile {
		t.Errorf("renditions out of order: %s then %s", resources[0].Kind(), resources[1].Kind())
	}
	if resources[0].Name() != resources[1].Name() {
		t.Errorf("renditions name mismatch: %s vs %s", resources[0].Name(), resources[1].Name())
	}
}

func TestScanSuppressed(t *testing.T) {
	p := policy.Default()
	p.FileScannerClassifyFiles = false
	p.FileScannerEmitFiles = false

	resources := scanWith(t, p)
	if len(resources) != 0 {
		t.Fatalf("got %d resources, want 0 with both toggles off", len(resources))
	}
}

func TestFileRenditionKeepsOriginAndTestFlag(t *testing.T) {
	p := policy.Default()
	p.FileScannerClassifyFiles = false
	p.FileScannerEmitFiles = true

	resources := scanWith(t, p)

	var testFile packaging.Resource
	for _, res := range resources {
		if res.Name() == "test_ssl" {
			testFile = res
		}
	}
	if testFile == nil {
		t.Fatal("test_ssl file rendition missing")
	}
	if !testFile.IsTest() {
		t.Error("file rendition dropped the test flag")
	}
	if testFile.Provenance() != packaging.ProvenanceDistributionSource {
		t.Errorf("file rendition provenance = %s", testFile.Provenance())
	}
}
