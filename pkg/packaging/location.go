package packaging

import (
	"fmt"
	"strings"
)

// Placement string forms accepted by ParseResourceLocation.
const (
	locationInMemory         = "in-memory"
	locationRelativePrefix   = "filesystem-relative:"
	locationRelativeBareForm = "filesystem-relative"
)

// ResourceLocation is a resolved placement target for a resource: embedded
// in the executable's memory image, or written to a path relative to the
// final artifact. The zero value is the in-memory placement. Values are
// comparable with ==.
type ResourceLocation struct {
	relative bool
	prefix   string
}

// LocationInMemory returns the in-memory placement.
func LocationInMemory() ResourceLocation {
	return ResourceLocation{}
}

// LocationFilesystemRelative returns a placement at prefix relative to the
// built artifact.
func LocationFilesystemRelative(prefix string) ResourceLocation {
	return ResourceLocation{relative: true, prefix: prefix}
}

// ParseResourceLocation parses the string form of a placement:
// "in-memory" or "filesystem-relative:PREFIX".
func ParseResourceLocation(s string) (ResourceLocation, error) {
	if s == locationInMemory {
		return LocationInMemory(), nil
	}
	if rest, ok := strings.CutPrefix(s, locationRelativePrefix); ok {
		return LocationFilesystemRelative(rest), nil
	}
	if s == locationRelativeBareForm {
		return ResourceLocation{}, fmt.Errorf("placement %q is missing its prefix (want %q)", s, locationRelativePrefix+"PREFIX")
	}
	return ResourceLocation{}, fmt.Errorf("unknown placement %q (want %q or %q)", s, locationInMemory, locationRelativePrefix+"PREFIX")
}

// IsInMemory reports whether the placement is the in-memory image.
func (l ResourceLocation) IsInMemory() bool {
	return !l.relative
}

// IsFilesystemRelative reports whether the placement is a relative
// filesystem path.
func (l ResourceLocation) IsFilesystemRelative() bool {
	return l.relative
}

// RelativePrefix returns the filesystem prefix for relative placements and
// the empty string for in-memory.
func (l ResourceLocation) RelativePrefix() string {
	return l.prefix
}

// String returns the canonical string form.
func (l ResourceLocation) String() string {
	if l.relative {
		return locationRelativePrefix + l.prefix
	}
	return locationInMemory
}

// MarshalText implements encoding.TextMarshaler so locations serialize as
// their canonical string form in JSON and YAML.
func (l ResourceLocation) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *ResourceLocation) UnmarshalText(text []byte) error {
	parsed, err := ParseResourceLocation(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}
