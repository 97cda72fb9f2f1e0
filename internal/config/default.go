package config

import (
	_ "embed"
)

//go:embed baseline.yaml
var baselineManifest []byte

// DefaultManifest returns the built-in Ubuntu workstation baseline. It is
// used when no manifest path is supplied on the command line.
func DefaultManifest() (*Manifest, error) {
	return parseManifestBytes("baseline.yaml (embedded)", baselineManifest)
}

// Load reads the manifest at path, or the embedded baseline when path is
// empty.
func Load(path string) (*Manifest, error) {
	if path == "" {
		return DefaultManifest()
	}
	return ParseManifest(path)
}
