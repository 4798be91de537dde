package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadOverridesOnlyGivenFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "breeze.yaml")
	doc := "candidate_roots:\n  - /mnt/scans\nannotator_minimal: false\n"
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.CandidateRoots) != 1 || cfg.CandidateRoots[0] != "/mnt/scans" {
		t.Errorf("CandidateRoots = %v, want overridden value", cfg.CandidateRoots)
	}
	if cfg.AnnotatorMinimal {
		t.Errorf("AnnotatorMinimal = true, want the document's false")
	}
	if cfg.ProductTag != "Breeze" {
		t.Errorf("ProductTag = %q, want the default to survive an omitted field", cfg.ProductTag)
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load("/nonexistent/path/breeze.yaml")
	if err == nil {
		t.Fatalf("expected an error for a missing config file")
	}
	if cfg.ProductTag != Default().ProductTag {
		t.Errorf("Load should still return the default config alongside the error")
	}
}
