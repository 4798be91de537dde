// Package config loads the YAML configuration shared by the
// cmd/breezescan harness: candidate-directory roots, cheat download
// URL templates, and the annotator's display mode.
package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the top-level YAML document.
type Config struct {
	// CandidateRoots lists every directory ListCandidates/LoadLatestCondition
	// should search; aliased paths to the same physical directory are
	// fine, dedup happens by filename stem.
	CandidateRoots []string `yaml:"candidate_roots"`

	// DownloadTemplates are cheat.Template URLs, tried in order.
	DownloadTemplates []string `yaml:"download_templates"`

	// AnnotatorMinimal toggles the opcode annotator's minimal vs.
	// verbose note rendering.
	AnnotatorMinimal bool `yaml:"annotator_minimal"`

	// ProductTag and Version feed the cheat-file serializer's banner
	// line (§4.5.2).
	ProductTag string `yaml:"product_tag"`
	Version    string `yaml:"version"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		CandidateRoots:   []string{"sdmc:/switch/Breeze/", "/switch/Breeze/"},
		AnnotatorMinimal: true,
		ProductTag:       "Breeze",
		Version:          "1.0",
	}
}

// Load reads and parses the YAML document at path, filling in defaults
// for any field the document omits.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
