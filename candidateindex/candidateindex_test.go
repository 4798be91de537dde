package candidateindex

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/tomvita/Breezehand-Overlay-sub000/candidate"
	"github.com/tomvita/Breezehand-Overlay-sub000/condition"
	"github.com/tomvita/Breezehand-Overlay-sub000/scantype"
)

func writeCandidate(t *testing.T, path string, mode condition.Mode, mtime time.Time) {
	t.Helper()
	h := candidate.NewHeader()
	h.Condition = condition.Condition{Mode: mode, Type: scantype.U32}
	f, err := candidate.OpenForWrite(path, h)
	if err != nil {
		t.Fatalf("OpenForWrite(%s): %v", path, err)
	}
	if err := candidate.FinalizeHeader(f, h); err != nil {
		t.Fatalf("FinalizeHeader: %v", err)
	}
	f.Close()
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatalf("Chtimes: %v", err)
	}
}

func TestListCandidatesDedupesAcrossAliasedRoots(t *testing.T) {
	rootA := t.TempDir()
	rootB := t.TempDir()

	writeCandidate(t, filepath.Join(rootA, "scan1.dat"), condition.EQ, time.Now())
	writeCandidate(t, filepath.Join(rootB, "scan1.dat"), condition.EQ, time.Now())
	writeCandidate(t, filepath.Join(rootA, "scan2.dat"), condition.EQ, time.Now())

	paths, err := ListCandidates([]string{rootA, rootB})
	if err != nil {
		t.Fatalf("ListCandidates: %v", err)
	}
	if len(paths) != 2 {
		t.Fatalf("got %d paths, want 2 (deduped by stem): %v", len(paths), paths)
	}
}

func TestLoadLatestConditionPicksNewestByModTime(t *testing.T) {
	root := t.TempDir()
	older := filepath.Join(root, "older.dat")
	newer := filepath.Join(root, "newer.dat")

	writeCandidate(t, older, condition.EQ, time.Now().Add(-time.Hour))
	writeCandidate(t, newer, condition.SAME, time.Now())

	cond, path, err := LoadLatestCondition([]string{root})
	if err != nil {
		t.Fatalf("LoadLatestCondition: %v", err)
	}
	if path != newer {
		t.Fatalf("path = %q, want %q", path, newer)
	}
	if cond.Mode != condition.SAME {
		t.Fatalf("condition.Mode = %v, want SAME", cond.Mode)
	}
}

func TestLoadLatestConditionNoCandidates(t *testing.T) {
	root := t.TempDir()
	if _, _, err := LoadLatestCondition([]string{root}); err == nil {
		t.Fatalf("expected an error when no candidate files exist")
	}
}
