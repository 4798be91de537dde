// Package candidateindex implements the candidate file index (C8):
// enumerating candidate files across one or more (possibly aliased)
// root directories and locating the most recently produced one. See
// spec §4.8.
package candidateindex

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/golang/glog"

	"github.com/tomvita/Breezehand-Overlay-sub000/breezeerr"
	"github.com/tomvita/Breezehand-Overlay-sub000/candidate"
	"github.com/tomvita/Breezehand-Overlay-sub000/condition"
)

// stem returns the filename minus its extension, used to dedupe
// aliased paths presenting the same candidate file twice.
func stem(path string) string {
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	return strings.TrimSuffix(base, ext)
}

// ListCandidates enumerates every `.dat` file across roots, sorts the
// combined list lexicographically, then deduplicates by filename stem
// (keeping the first occurrence), per §4.8.
func ListCandidates(roots []string) ([]string, error) {
	var all []string
	for _, root := range roots {
		entries, err := os.ReadDir(root)
		if err != nil {
			glog.V(1).Infof("candidateindex: skipping unreadable root %q: %v", root, err)
			continue
		}
		for _, e := range entries {
			if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".dat") {
				continue
			}
			all = append(all, filepath.Join(root, e.Name()))
		}
	}

	sort.Strings(all)

	seen := make(map[string]bool, len(all))
	out := make([]string, 0, len(all))
	for _, path := range all {
		s := stem(path)
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, path)
	}
	return out, nil
}

// LoadLatestCondition picks the most recently modified entry from the
// deduplicated candidate list, reads and validates its header, and
// returns the embedded condition alongside its source path.
func LoadLatestCondition(roots []string) (condition.Condition, string, error) {
	paths, err := ListCandidates(roots)
	if err != nil {
		return condition.Condition{}, "", err
	}
	if len(paths) == 0 {
		return condition.Condition{}, "", breezeerr.New(breezeerr.Io, "no candidate files found in any root")
	}

	var latestPath string
	var latestMod int64
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			glog.V(1).Infof("candidateindex: skipping unstattable candidate %q: %v", p, err)
			continue
		}
		if m := info.ModTime().Unix(); latestPath == "" || m > latestMod {
			latestPath, latestMod = p, m
		}
	}
	if latestPath == "" {
		return condition.Condition{}, "", breezeerr.New(breezeerr.Io, "no candidate files found in any root")
	}

	h, err := candidate.ReadHeader(latestPath)
	if err != nil {
		return condition.Condition{}, "", breezeerr.Wrap(breezeerr.Format, "latest candidate file failed validation: "+latestPath, err)
	}
	return h.Condition, latestPath, nil
}
