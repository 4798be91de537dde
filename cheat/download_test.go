package cheat

import (
	"context"
	"fmt"
	"testing"
)

type fakeNetwork struct {
	bodies map[string]string
}

func (n fakeNetwork) Get(ctx context.Context, url string) ([]byte, error) {
	if b, ok := n.bodies[url]; ok {
		return []byte(b), nil
	}
	return nil, fmt.Errorf("404: %s", url)
}

func TestFetchCheatFileProbesSuffixedVariants(t *testing.T) {
	net := fakeNetwork{bodies: map[string]string{
		"https://example.com/0100.45678":       "[base]\n01020304\n",
		"https://example.com/0100.45678.v1.txt": "[v1]\n01020304\n",
		"https://example.com/0100.45678.v2.txt": "[v2]\n01020304\n",
	}}
	templates := []Template{{URL: "https://example.com/{TID}"}}

	result, err := FetchCheatFile(context.Background(), net, templates, "0100.45678", "ABCDEF", "Game")
	if err != nil {
		t.Fatalf("FetchCheatFile: %v", err)
	}
	if result.CheatText != "[v2]\n01020304\n" {
		t.Fatalf("CheatText = %q, want the last successfully probed variant", result.CheatText)
	}
}

func TestFetchCheatFileFallsThroughTemplates(t *testing.T) {
	net := fakeNetwork{bodies: map[string]string{
		"https://second.example.com/0100.45678": "[ok]\n01020304\n",
	}}
	templates := []Template{
		{URL: "https://first.example.com/{TID}"},
		{URL: "https://second.example.com/{TID}"},
	}

	result, err := FetchCheatFile(context.Background(), net, templates, "0100.45678", "ABCDEF", "Game")
	if err != nil {
		t.Fatalf("FetchCheatFile: %v", err)
	}
	if result.CheatText != "[ok]\n01020304\n" {
		t.Fatalf("CheatText = %q, want the second template's body", result.CheatText)
	}
}

func TestFetchCheatFileAllSourcesFail(t *testing.T) {
	net := fakeNetwork{bodies: map[string]string{}}
	templates := []Template{{URL: "https://example.com/{TID}"}}
	if _, err := FetchCheatFile(context.Background(), net, templates, "0100.45678", "ABCDEF", "Game"); err == nil {
		t.Fatalf("expected an error when no source yields a file")
	}
}
