package distribution

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/omnipack/omnipack/pkg/packaging"
	"github.com/omnipack/omnipack/pkg/policy"
)

// Flavor identifies how a distribution's runtime was linked.
type Flavor string

const (
	// FlavorStandaloneDynamic is a runtime built as a shared library with
	// dynamically loadable extension modules.
	FlavorStandaloneDynamic Flavor = "standalone_dynamic"

	// FlavorStandaloneStatic is a fully statically linked runtime. It
	// cannot load shared library extension modules at run time.
	FlavorStandaloneStatic Flavor = "standalone_static"
)

// Valid reports whether the flavor is a known value.
func (f Flavor) Valid() bool {
	switch f {
	case FlavorStandaloneDynamic, FlavorStandaloneStatic:
		return true
	default:
		return false
	}
}

// Distribution describes one prebuilt runtime archive in the catalog.
type Distribution struct {
	// Name is the runtime implementation name (e.g. "cpython").
	Name string `json:"name" yaml:"name" validate:"required"`

	// Version is the runtime major.minor version (e.g. "3.10").
	Version string `json:"version" yaml:"version" validate:"required"`

	// TargetTriple is the platform the archive was built for
	// (e.g. "x86_64-pc-windows-msvc").
	TargetTriple string `json:"target_triple" yaml:"target_triple" validate:"required"`

	// Flavor records how the runtime was linked.
	Flavor Flavor `json:"flavor" yaml:"flavor" validate:"required,oneof=standalone_dynamic standalone_static"`

	// URL is where the archive can be downloaded from.
	URL string `json:"url" yaml:"url" validate:"required,url"`

	// SHA256 is the hex digest of the archive contents.
	SHA256 string `json:"sha256" yaml:"sha256" validate:"required,len=64,hexadecimal"`

	// InMemorySharedLibraryLoading indicates the runtime can load shared
	// libraries directly from memory without writing them to disk.
	InMemorySharedLibraryLoading bool `json:"in_memory_shared_library_loading" yaml:"in_memory_shared_library_loading"`

	// SupportsPrebuiltExtensionModules indicates prebuilt extension
	// modules targeting this triple can be linked into the runtime.
	SupportsPrebuiltExtensionModules bool `json:"supports_prebuilt_extension_modules" yaml:"supports_prebuilt_extension_modules"`

	// SupportsStaticLibraries indicates the archive ships static library
	// artifacts suitable for relinking.
	SupportsStaticLibraries bool `json:"supports_static_libraries" yaml:"supports_static_libraries"`
}

// Key returns the unique catalog key for this distribution.
func (d Distribution) Key() string {
	return buildDistributionKey(d.Name, d.Version, d.TargetTriple)
}

// MakePackagingPolicy returns the default packaging policy for
// applications embedding this distribution. The policy starts from the
// stock defaults; when the runtime can load shared libraries from
// memory, a filesystem-relative fallback under lib/ is installed so
// resources that resist in-memory placement still have a home.
func (d Distribution) MakePackagingPolicy() *policy.Policy {
	p := policy.Default()

	if d.InMemorySharedLibraryLoading {
		fallback := packaging.LocationFilesystemRelative("lib")
		p.ResourcesLocationFallback = &fallback
	}

	return p
}

// VerifyChecksum verifies archive bytes against the catalog digest.
func (d Distribution) VerifyChecksum(archive []byte) error {
	hash := sha256.Sum256(archive)
	computed := hex.EncodeToString(hash[:])

	if computed != d.SHA256 {
		return fmt.Errorf("archive checksum mismatch for %s: expected %s, got %s",
			d.Key(), d.SHA256, computed)
	}

	return nil
}

// VerifyArchiveFile verifies a downloaded archive on disk against the
// catalog digest without reading it into memory at once.
func (d Distribution) VerifyArchiveFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer f.Close()

	hash := sha256.New()
	if _, err := io.Copy(hash, f); err != nil {
		return fmt.Errorf("failed to read archive: %w", err)
	}

	computed := hex.EncodeToString(hash.Sum(nil))
	if computed != d.SHA256 {
		return fmt.Errorf("archive checksum mismatch for %s: expected %s, got %s",
			d.Key(), d.SHA256, computed)
	}

	return nil
}

// buildDistributionKey builds a unique key for a catalog entry.
func buildDistributionKey(name, version, targetTriple string) string {
	return name + "@" + version + "/" + targetTriple
}
