// Package fetch implements the engine's Source port against GitHub-hosted
// preset collections: raw content over HTTP, the contents API for listing,
// and git ls-remote for the current head commit.
package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/presetmd-dev/presetmd/internal/gitutil"
	"github.com/presetmd-dev/presetmd/internal/preset"
)

const (
	defaultRawBase = "https://raw.githubusercontent.com"
	defaultAPIBase = "https://api.github.com"
)

// GitHub fetches fragments from github.com collections. Non-GitHub hosts are
// addressed with the common /raw/ URL shape; listing is GitHub-only.
type GitHub struct {
	Client  *http.Client
	RawBase string
	APIBase string
}

func NewGitHub(client *http.Client) *GitHub {
	if client == nil {
		client = http.DefaultClient
	}
	return &GitHub{Client: client, RawBase: defaultRawBase, APIBase: defaultAPIBase}
}

func (g *GitHub) Fetch(ctx context.Context, ptr preset.Pointer) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.rawURL(ptr), nil)
	if err != nil {
		return nil, err
	}

	resp, err := g.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("fragment %s not found", ptr)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s fetching %s", resp.Status, ptr)
	}
	return io.ReadAll(resp.Body)
}

func (g *GitHub) List(ctx context.Context, host, owner, collection string) ([]string, error) {
	if host != "github.com" {
		return nil, fmt.Errorf("listing collections on %s is not supported", host)
	}

	url := fmt.Sprintf("%s/repos/%s/%s/contents", g.APIBase, owner, collection)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := g.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s listing %s/%s/%s", resp.Status, host, owner, collection)
	}

	var entries []struct {
		Name string `json:"name"`
		Type string `json:"type"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, fmt.Errorf("failed to decode collection listing: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type != "file" || !strings.HasSuffix(e.Name, ".md") {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name, ".md"))
	}
	return names, nil
}

func (g *GitHub) CurrentVersion(ctx context.Context, host, owner, collection string) (string, error) {
	_ = ctx
	return gitutil.LsRemoteHead(fmt.Sprintf("https://%s/%s/%s.git", host, owner, collection))
}

func (g *GitHub) rawURL(ptr preset.Pointer) string {
	if ptr.Host == "github.com" {
		return fmt.Sprintf("%s/%s/%s/%s/%s.md", g.RawBase, ptr.Owner, ptr.Collection, ptr.Version, ptr.Name)
	}
	return fmt.Sprintf("https://%s/%s/%s/raw/%s/%s.md", ptr.Host, ptr.Owner, ptr.Collection, ptr.Version, ptr.Name)
}
