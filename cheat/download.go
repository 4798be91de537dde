package cheat

import (
	"context"
	"fmt"
	"strings"

	"github.com/golang/glog"
)

// maxSuffixProbe is the highest ".vN.txt" suffix probed, per §4.5.3.
const maxSuffixProbe = 15

// NetworkProvider is the thin HTTP capability the download hook
// consumes. Implementations supply the environment's own HTTP client;
// the codec never constructs one itself.
type NetworkProvider interface {
	// Get fetches url and returns its body, or an error if the request
	// did not succeed (including a non-2xx status).
	Get(ctx context.Context, url string) ([]byte, error)
}

// Template is one cheat-file download source, with placeholders
// {TID}, {BID}, {bid}, {TITLE}.
type Template struct {
	URL string
}

func (t Template) expand(titleID, buildID, titleName string) string {
	r := strings.NewReplacer(
		"{TID}", titleID,
		"{BID}", buildID,
		"{bid}", strings.ToLower(buildID),
		"{TITLE}", titleName,
	)
	return r.Replace(t.URL)
}

// FetchResult carries the downloaded cheat text and its best-effort
// sibling notes.
type FetchResult struct {
	CheatText string
	Notes     string // empty if notes.txt was not found or failed
	SourceURL string
}

// FetchCheatFile tries templates in order (§4.5.3): for each, it
// requests the base URL, and on success probes .v1.txt..v15.txt
// suffixed variants in ascending order, keeping the last one that
// succeeds. It returns the first template that yields any file at all;
// the core's contract is "try sources in order until one works", not
// "try every source".
func FetchCheatFile(ctx context.Context, net NetworkProvider, templates []Template, titleID, buildID, titleName string) (FetchResult, error) {
	for _, tmpl := range templates {
		base := tmpl.expand(titleID, buildID, titleName)

		body, err := net.Get(ctx, base)
		if err != nil {
			glog.V(1).Infof("cheat: download source %q failed: %v", base, err)
			continue
		}

		best := body
		bestURL := base
		for n := 1; n <= maxSuffixProbe; n++ {
			variant := fmt.Sprintf("%s.v%d.txt", base, n)
			v, err := net.Get(ctx, variant)
			if err != nil {
				continue
			}
			best = v
			bestURL = variant
		}

		result := FetchResult{CheatText: string(best), SourceURL: bestURL}
		if notes, err := net.Get(ctx, base+"/notes.txt"); err == nil {
			result.Notes = string(notes)
		}
		return result, nil
	}
	return FetchResult{}, fmt.Errorf("cheat: no download source yielded a file (%d tried)", len(templates))
}
