// Package gitutil shells out to git for the two queries presetmd needs: the
// origin remote of a project and the current head commit of a collection.
package gitutil

import (
	"fmt"
	"os/exec"
	"strings"
)

// Inspector resolves project repository metadata via the git CLI.
type Inspector struct{}

// RemoteURL returns the origin remote URL of the repository containing
// projectRoot.
func (Inspector) RemoteURL(projectRoot string) (string, error) {
	out, err := exec.Command("git", "-C", projectRoot, "remote", "get-url", "origin").Output()
	if err != nil {
		return "", fmt.Errorf("failed to resolve origin remote for %s (not a git repository?)", projectRoot)
	}
	return strings.TrimSpace(string(out)), nil
}

// LsRemoteHead returns the commit the remote repository's HEAD points at.
func LsRemoteHead(remoteURL string) (string, error) {
	out, err := exec.Command("git", "ls-remote", remoteURL, "HEAD").Output()
	if err != nil {
		return "", fmt.Errorf("failed to query %s: %w", remoteURL, err)
	}
	fields := strings.Fields(string(out))
	if len(fields) == 0 {
		return "", fmt.Errorf("no HEAD ref reported by %s", remoteURL)
	}
	return fields[0], nil
}
