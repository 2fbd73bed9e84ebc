// Package environment reports how the running binary was built and where
// its code came from. Commands use it for version output and to stamp runs
// with provenance.
package environment

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
)

// SourceKind classifies where the running binary's code came from.
type SourceKind string

const (
	// SourceRelease is a tagged release build.
	SourceRelease SourceKind = "release"

	// SourceGit is a build pinned to a specific commit.
	SourceGit SourceKind = "git"

	// SourceLocal is a build from a local checkout, possibly with
	// uncommitted changes.
	SourceLocal SourceKind = "local"
)

// Source describes the binary's code provenance.
type Source struct {
	// Kind classifies the provenance.
	Kind SourceKind `json:"kind"`

	// ModulePath is the main module path.
	ModulePath string `json:"module_path,omitempty"`

	// Version is the module version, empty for local builds.
	Version string `json:"version,omitempty"`

	// Commit is the VCS revision, when stamped.
	Commit string `json:"commit,omitempty"`

	// Modified reports uncommitted changes at build time.
	Modified bool `json:"modified,omitempty"`
}

// Environment is the resolved build environment of the running binary.
type Environment struct {
	// Version is the release version, "dev" when unstamped.
	Version string `json:"version"`

	// Commit is the short VCS revision, when known.
	Commit string `json:"commit,omitempty"`

	// BuildDate is when the binary was built, when stamped.
	BuildDate string `json:"build_date,omitempty"`

	// GoVersion is the toolchain that built the binary.
	GoVersion string `json:"go_version"`

	// Platform is the GOOS/GOARCH pair.
	Platform string `json:"platform"`

	// Source is the code provenance.
	Source Source `json:"source"`
}

// Detect resolves the build environment, preferring the ldflags-stamped
// version, commit, and date and filling the rest from the binary's embedded
// build info.
func Detect(version, commit, date string) *Environment {
	env := &Environment{
		Version:   version,
		Commit:    commit,
		BuildDate: date,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
	env.Source = detectSource(version, commit)
	return env
}

// detectSource classifies provenance from build info. A tagged module
// version means a release; a stamped revision without a tag means a pinned
// git build; everything else is a local checkout.
func detectSource(version, commit string) Source {
	source := Source{Kind: SourceLocal, Commit: commit}

	info, ok := debug.ReadBuildInfo()
	if !ok {
		if version != "" && version != "dev" {
			source.Kind = SourceRelease
			source.Version = version
		}
		return source
	}

	source.ModulePath = info.Main.Path

	var revision string
	var modified bool
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			revision = setting.Value
		case "vcs.modified":
			modified = setting.Value == "true"
		}
	}

	if source.Commit == "" {
		source.Commit = revision
	}
	source.Modified = modified

	switch {
	case info.Main.Version != "" && info.Main.Version != "(devel)":
		source.Kind = SourceRelease
		source.Version = info.Main.Version
	case version != "" && version != "dev":
		source.Kind = SourceRelease
		source.Version = version
	case source.Commit != "" && !modified:
		source.Kind = SourceGit
	default:
		source.Kind = SourceLocal
	}

	return source
}

// EmbedLocation describes how a generated embedding project should
// reference the support library matching this binary: a published
// version for releases, a pinned commit for git builds, and the latest
// published version otherwise.
type EmbedLocation struct {
	// Kind mirrors the binary's source kind.
	Kind SourceKind `json:"kind"`

	// ModulePath is the support library module path.
	ModulePath string `json:"module_path"`

	// Version is set for release builds.
	Version string `json:"version,omitempty"`

	// Commit is set for pinned git builds.
	Commit string `json:"commit,omitempty"`
}

// EmbedLocation derives the embedding-library reference from the
// binary's provenance.
func (e *Environment) EmbedLocation() EmbedLocation {
	loc := EmbedLocation{Kind: e.Source.Kind, ModulePath: e.Source.ModulePath}
	if loc.ModulePath == "" {
		loc.ModulePath = "github.com/omnipack/omnipack"
	}

	switch e.Source.Kind {
	case SourceRelease:
		loc.Version = e.Source.Version
		if loc.Version == "" {
			loc.Version = e.Version
		}
	case SourceGit:
		loc.Commit = e.Source.Commit
	}

	return loc
}

// Requirement returns the module requirement string a generated project
// should use to depend on the same embedding library.
func (l EmbedLocation) Requirement() string {
	switch l.Kind {
	case SourceRelease:
		version := l.Version
		if version != "" && !strings.HasPrefix(version, "v") {
			version = "v" + version
		}
		return l.ModulePath + "@" + version
	case SourceGit:
		return l.ModulePath + "@" + l.Commit
	default:
		return l.ModulePath + "@latest"
	}
}

// ShortCommit returns the first 12 characters of the commit, or the whole
// commit when shorter.
func (e *Environment) ShortCommit() string {
	if len(e.Commit) > 12 {
		return e.Commit[:12]
	}
	return e.Commit
}

// String returns the one-line version form.
func (e *Environment) String() string {
	if c := e.ShortCommit(); c != "" {
		return fmt.Sprintf("%s (%s)", e.Version, c)
	}
	return e.Version
}

// VersionLong returns the multi-line version report.
func (e *Environment) VersionLong() string {
	var b strings.Builder
	fmt.Fprintf(&b, "omnipack %s\n", e.Version)
	fmt.Fprintf(&b, "  source:     %s", e.Source.Kind)
	if e.Source.Kind == SourceLocal && e.Source.Modified {
		b.WriteString(" (modified)")
	}
	b.WriteString("\n")
	if c := e.ShortCommit(); c != "" {
		fmt.Fprintf(&b, "  commit:     %s\n", c)
	}
	if e.BuildDate != "" {
		fmt.Fprintf(&b, "  built:      %s\n", e.BuildDate)
	}
	fmt.Fprintf(&b, "  go version: %s\n", e.GoVersion)
	fmt.Fprintf(&b, "  platform:   %s\n", e.Platform)
	fmt.Fprintf(&b, "  embed:      %s\n", e.EmbedLocation().Requirement())
	return b.String()
}
