package distribution

import (
	"testing"
)

func testDistribution(version, targetTriple string, flavor Flavor) Distribution {
	return Distribution{
		Name:         "cpython",
		Version:      version,
		TargetTriple: targetTriple,
		Flavor:       flavor,
		URL:          "https://example.invalid/cpython-" + version + "-" + targetTriple + ".tar.zst",
		SHA256:       "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef",
	}
}

func TestRegistryFindExact(t *testing.T) {
	r, err := DefaultRegistry()
	if err != nil {
		t.Fatalf("DefaultRegistry() failed: %v", err)
	}

	dist, err := r.Find("cpython", "3.9", "x86_64-unknown-linux-gnu", "")
	if err != nil {
		t.Fatalf("Find() failed: %v", err)
	}

	if dist.Version != "3.9" {
		t.Errorf("Version = %q, want 3.9", dist.Version)
	}
	if dist.TargetTriple != "x86_64-unknown-linux-gnu" {
		t.Errorf("TargetTriple = %q", dist.TargetTriple)
	}
}

func TestRegistryFindLatest(t *testing.T) {
	r, err := DefaultRegistry()
	if err != nil {
		t.Fatalf("DefaultRegistry() failed: %v", err)
	}

	for _, version := range []string{"", "latest"} {
		dist, err := r.Find("cpython", version, "x86_64-unknown-linux-gnu", "")
		if err != nil {
			t.Fatalf("Find(version=%q) failed: %v", version, err)
		}

		// 3.10 beats 3.9 numerically even though it sorts lower as a string.
		if dist.Version != "3.10" {
			t.Errorf("Find(version=%q) resolved %q, want 3.10", version, dist.Version)
		}
	}
}

func TestRegistryFindFlavorPreference(t *testing.T) {
	r, err := DefaultRegistry()
	if err != nil {
		t.Fatalf("DefaultRegistry() failed: %v", err)
	}

	// Both flavors exist for this triple. The catalog lists shared
	// first, so an open flavor resolves to the dynamic build.
	dist, err := r.Find("cpython", "3.10", "x86_64-pc-windows-msvc", "")
	if err != nil {
		t.Fatalf("Find() failed: %v", err)
	}
	if dist.Flavor != FlavorStandaloneDynamic {
		t.Errorf("open flavor resolved %q, want %q", dist.Flavor, FlavorStandaloneDynamic)
	}

	dist, err = r.Find("cpython", "3.10", "x86_64-pc-windows-msvc", FlavorStandaloneStatic)
	if err != nil {
		t.Fatalf("Find(static) failed: %v", err)
	}
	if dist.Flavor != FlavorStandaloneStatic {
		t.Errorf("explicit flavor resolved %q, want %q", dist.Flavor, FlavorStandaloneStatic)
	}
}

func TestRegistryFindErrors(t *testing.T) {
	r, err := DefaultRegistry()
	if err != nil {
		t.Fatalf("DefaultRegistry() failed: %v", err)
	}

	tests := []struct {
		name         string
		distName     string
		version      string
		targetTriple string
		flavor       Flavor
	}{
		{"empty name", "", "3.10", "x86_64-unknown-linux-gnu", ""},
		{"empty triple", "cpython", "3.10", "", ""},
		{"unknown flavor", "cpython", "3.10", "x86_64-unknown-linux-gnu", "portable"},
		{"unknown runtime", "jython", "", "x86_64-unknown-linux-gnu", ""},
		{"unknown triple", "cpython", "", "riscv64-unknown-linux-gnu", ""},
		{"version not in catalog", "cpython", "2.7", "x86_64-unknown-linux-gnu", ""},
		{"flavor not built for triple", "cpython", "3.10", "x86_64-unknown-linux-gnu", FlavorStandaloneStatic},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := r.Find(tt.distName, tt.version, tt.targetTriple, tt.flavor); err == nil {
				t.Error("Find() succeeded, want error")
			}
		})
	}
}

func TestRegistryRegister(t *testing.T) {
	r := NewRegistry()

	dist := testDistribution("3.11", "x86_64-unknown-linux-gnu", FlavorStandaloneDynamic)
	if err := r.Register(dist); err != nil {
		t.Fatalf("Register() failed: %v", err)
	}

	if err := r.Register(dist); err == nil {
		t.Error("duplicate Register() succeeded, want error")
	}

	// Same key, different flavor is a distinct entry.
	static := testDistribution("3.11", "x86_64-unknown-linux-gnu", FlavorStandaloneStatic)
	if err := r.Register(static); err != nil {
		t.Errorf("Register(static) failed: %v", err)
	}

	if got := len(r.List()); got != 2 {
		t.Errorf("List() returned %d entries, want 2", got)
	}
}

func TestRegistryRegisterInvalid(t *testing.T) {
	r := NewRegistry()

	bad := testDistribution("3.11", "x86_64-unknown-linux-gnu", FlavorStandaloneDynamic)
	bad.SHA256 = "nothex"

	if err := r.Register(bad); err == nil {
		t.Error("Register() accepted a bad checksum, want error")
	}

	bad = testDistribution("3.11", "x86_64-unknown-linux-gnu", "portable")
	if err := r.Register(bad); err == nil {
		t.Error("Register() accepted an unknown flavor, want error")
	}
}

func TestRegistryTargetTriples(t *testing.T) {
	r, err := DefaultRegistry()
	if err != nil {
		t.Fatalf("DefaultRegistry() failed: %v", err)
	}

	triples := r.TargetTriples()
	if len(triples) == 0 {
		t.Fatal("TargetTriples() returned nothing")
	}

	for i := 1; i < len(triples); i++ {
		if triples[i-1] >= triples[i] {
			t.Fatalf("TargetTriples() not sorted: %q before %q", triples[i-1], triples[i])
		}
	}

	seen := false
	for _, triple := range triples {
		if triple == "x86_64-pc-windows-msvc" {
			seen = true
		}
	}
	if !seen {
		t.Error("TargetTriples() missing x86_64-pc-windows-msvc")
	}
}

func TestCompareVersions(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"3.9", "3.9", 0},
		{"3.9", "3.10", -1},
		{"3.10", "3.9", 1},
		{"3.9", "3.9.1", -1},
		{"3.9.1", "3.9", 1},
		{"4.0", "3.10", 1},
		{"3.9rc1", "3.9rc2", -1},
	}

	for _, tt := range tests {
		if got := compareVersions(tt.a, tt.b); got != tt.want {
			t.Errorf("compareVersions(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}
