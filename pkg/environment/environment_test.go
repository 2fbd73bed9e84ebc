package environment

import (
	"strings"
	"testing"
)

func TestDetectStampedRelease(t *testing.T) {
	env := Detect("1.2.3", "abcdef1234567890", "2026-01-15")

	if env.Version != "1.2.3" {
		t.Errorf("version = %s", env.Version)
	}
	if env.Source.Kind != SourceRelease {
		t.Errorf("source kind = %s, want release", env.Source.Kind)
	}
	if env.GoVersion == "" || env.Platform == "" {
		t.Error("go version and platform should always be filled")
	}
}

func TestDetectDevBuild(t *testing.T) {
	env := Detect("dev", "", "")

	// Test binaries are never tagged releases.
	if env.Source.Kind == SourceRelease {
		t.Errorf("dev build classified as release: %+v", env.Source)
	}
}

func TestShortCommit(t *testing.T) {
	tests := []struct {
		commit string
		want   string
	}{
		{"", ""},
		{"abc", "abc"},
		{"0123456789abcdef", "0123456789ab"},
	}

	for _, tt := range tests {
		env := &Environment{Commit: tt.commit}
		if got := env.ShortCommit(); got != tt.want {
			t.Errorf("ShortCommit(%q) = %q, want %q", tt.commit, got, tt.want)
		}
	}
}

func TestString(t *testing.T) {
	env := &Environment{Version: "1.2.3", Commit: "0123456789abcdef"}
	if got := env.String(); got != "1.2.3 (0123456789ab)" {
		t.Errorf("String() = %q", got)
	}

	env = &Environment{Version: "dev"}
	if got := env.String(); got != "dev" {
		t.Errorf("String() = %q", got)
	}
}

func TestVersionLong(t *testing.T) {
	env := Detect("1.2.3", "abcdef1234567890", "2026-01-15")
	long := env.VersionLong()

	for _, want := range []string{"omnipack 1.2.3", "commit:", "abcdef123456", "built:", "go version:", "platform:", "embed:"} {
		if !strings.Contains(long, want) {
			t.Errorf("VersionLong() missing %q:\n%s", want, long)
		}
	}
}

func TestEmbedLocationRequirement(t *testing.T) {
	tests := []struct {
		name string
		loc  EmbedLocation
		want string
	}{
		{
			name: "release",
			loc:  EmbedLocation{Kind: SourceRelease, ModulePath: "github.com/omnipack/omnipack", Version: "1.2.3"},
			want: "github.com/omnipack/omnipack@v1.2.3",
		},
		{
			name: "release with v prefix",
			loc:  EmbedLocation{Kind: SourceRelease, ModulePath: "github.com/omnipack/omnipack", Version: "v1.2.3"},
			want: "github.com/omnipack/omnipack@v1.2.3",
		},
		{
			name: "git",
			loc:  EmbedLocation{Kind: SourceGit, ModulePath: "github.com/omnipack/omnipack", Commit: "abcdef123456"},
			want: "github.com/omnipack/omnipack@abcdef123456",
		},
		{
			name: "local",
			loc:  EmbedLocation{Kind: SourceLocal, ModulePath: "github.com/omnipack/omnipack"},
			want: "github.com/omnipack/omnipack@latest",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.loc.Requirement(); got != tt.want {
				t.Errorf("Requirement() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEmbedLocationFromEnvironment(t *testing.T) {
	env := &Environment{
		Version: "1.2.3",
		Source:  Source{Kind: SourceRelease, ModulePath: "github.com/omnipack/omnipack", Version: "1.2.3"},
	}
	loc := env.EmbedLocation()
	if loc.Kind != SourceRelease || loc.Version != "1.2.3" {
		t.Errorf("EmbedLocation() = %+v", loc)
	}

	// A missing module path falls back to the canonical one.
	env = &Environment{Source: Source{Kind: SourceLocal}}
	if got := env.EmbedLocation().ModulePath; got != "github.com/omnipack/omnipack" {
		t.Errorf("ModulePath = %q", got)
	}
}
