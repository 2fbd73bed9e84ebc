package collector

import (
	"github.com/rs/zerolog"

	"github.com/omnipack/omnipack/pkg/packaging"
	"github.com/omnipack/omnipack/pkg/policy"
)

// ManifestScanner materializes a manifest's declared resources.
type ManifestScanner struct {
	manifest *Manifest
	logger   zerolog.Logger
}

// NewManifestScanner creates a scanner over manifest.
func NewManifestScanner(manifest *Manifest, logger zerolog.Logger) *ManifestScanner {
	return &ManifestScanner{
		manifest: manifest,
		logger:   logger.With().Str("component", "scanner").Logger(),
	}
}

// Scan turns the manifest entries into resources, in manifest order,
// honoring the policy's file handling toggles. A classified entry surfaces
// as its typed resource when file_scanner_classify_files is on, and as a raw
// file resource when file_scanner_emit_files is on; both toggles on yields
// both renditions. Entries declared as raw files only surface when
// file_scanner_emit_files is on.
func (s *ManifestScanner) Scan(p *policy.Policy) []packaging.Resource {
	resources := make([]packaging.Resource, 0, len(s.manifest.Resources))

	for _, entry := range s.manifest.Resources {
		res := newScannedResource(entry)

		if res.Kind().IsClassified() {
			if p.FileScannerClassifyFiles {
				resources = append(resources, res)
			}
			if p.FileScannerEmitFiles {
				resources = append(resources, res.asFile())
			}
			if !p.FileScannerClassifyFiles && !p.FileScannerEmitFiles {
				s.logger.Debug().
					Str("resource", res.Name()).
					Str("kind", string(res.Kind())).
					Msg("entry suppressed by scanner toggles")
			}
			continue
		}

		if p.FileScannerEmitFiles {
			resources = append(resources, res)
		} else {
			s.logger.Debug().
				Str("resource", res.Name()).
				Msg("file entry suppressed, file emission is off")
		}
	}

	s.logger.Debug().
		Int("declared", len(s.manifest.Resources)).
		Int("scanned", len(resources)).
		Msg("manifest scan complete")

	return resources
}
