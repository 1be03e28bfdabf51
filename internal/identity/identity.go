// Package identity derives the stable project key from a git remote URL.
package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"
)

// KeyLength is the number of hex characters in a project key.
const KeyLength = 16

// Resolve normalizes a remote repository URL and returns the 16-character
// project key. Two URLs that address the same host/owner/repo triple always
// yield the same key, regardless of protocol, embedded credentials, or a
// trailing ".git" suffix.
func Resolve(remoteURL string) (string, error) {
	host, owner, repo, err := Normalize(remoteURL)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256([]byte(host + "/" + owner + "/" + repo))
	return hex.EncodeToString(sum[:])[:KeyLength], nil
}

// Normalize extracts the canonical {host, owner, repo} triple from any of the
// supported remote URL shapes:
//
//	https://host/owner/repo[.git]
//	ssh://git@host/owner/repo[.git]
//	git@host:owner/repo[.git]
func Normalize(remoteURL string) (host, owner, repo string, err error) {
	raw := strings.TrimSpace(remoteURL)
	if raw == "" {
		return "", "", "", fmt.Errorf("empty remote URL")
	}

	if isSCPLike(raw) {
		return normalizeSCP(raw)
	}

	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || u.Scheme == "" {
		return "", "", "", fmt.Errorf("malformed remote URL %q", remoteURL)
	}

	host = u.Hostname()
	owner, repo, err = splitOwnerRepo(u.Path)
	if err != nil {
		return "", "", "", fmt.Errorf("malformed remote URL %q: %w", remoteURL, err)
	}
	return host, owner, repo, nil
}

// isSCPLike reports whether the URL uses the git@host:owner/repo shorthand,
// which is not parseable by net/url.
func isSCPLike(raw string) bool {
	if strings.Contains(raw, "://") {
		return false
	}
	at := strings.Index(raw, "@")
	colon := strings.Index(raw, ":")
	return at > 0 && colon > at
}

func normalizeSCP(raw string) (host, owner, repo string, err error) {
	at := strings.Index(raw, "@")
	colon := strings.Index(raw, ":")
	host = raw[at+1 : colon]
	if host == "" {
		return "", "", "", fmt.Errorf("malformed remote URL %q", raw)
	}
	owner, repo, err = splitOwnerRepo(raw[colon+1:])
	if err != nil {
		return "", "", "", fmt.Errorf("malformed remote URL %q: %w", raw, err)
	}
	return host, owner, repo, nil
}

func splitOwnerRepo(path string) (owner, repo string, err error) {
	trimmed := strings.Trim(path, "/")
	parts := strings.Split(trimmed, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("expected owner/repo path, got %q", path)
	}
	repo = strings.TrimSuffix(parts[1], ".git")
	if repo == "" {
		return "", "", fmt.Errorf("expected owner/repo path, got %q", path)
	}
	return parts[0], repo, nil
}
