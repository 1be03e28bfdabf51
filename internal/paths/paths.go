// Package paths derives every on-disk location used by presetmd.
//
// Layout under the user data dir:
//
//	~/.presetmd/
//	  config.yml
//	  presets/<host>/<owner>/<collection>/<name>.md
//	  projects/<slug>/
//	    selection.json
//	    merged-preset-<version>.md
//	    vendor/<version>/<host>_<owner>_<collection>_<name>_<hash>.md
package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	DataDirName   = ".presetmd"
	ConfigFile    = "config.yml"
	PresetsDir    = "presets"
	ProjectsDir   = "projects"
	VendorDir     = "vendor"
	SelectionFile = "selection.json"
	LockFile      = ".lock"

	// AggregatePrefix is the filename prefix shared by every generated
	// merged-preset file; the version token follows it.
	AggregatePrefix = "merged-preset-"

	// LatestVersion is the sentinel version token meaning "track the
	// collection head" rather than a pinned commit.
	LatestVersion = "HEAD"
)

func DataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, DataDirName), nil
}

func ConfigPath() (string, error) {
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, ConfigFile), nil
}

func ProjectDir(slug string) (string, error) {
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, ProjectsDir, slug), nil
}

func SelectionPath(slug string) (string, error) {
	dir, err := ProjectDir(slug)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, SelectionFile), nil
}

// AggregatePath returns the merged-preset file path for one project at one
// version token ("HEAD" or a commit identifier).
func AggregatePath(slug, version string) (string, error) {
	dir, err := ProjectDir(slug)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, AggregatePrefix+version+".md"), nil
}

// VendorVersionDir returns the snapshot directory for one pinned version.
func VendorVersionDir(slug, version string) (string, error) {
	dir, err := ProjectDir(slug)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, VendorDir, version), nil
}

// FragmentCachePath returns where fetched fragment content is cached while
// the project tracks the collection head.
func FragmentCachePath(host, owner, collection, name string) (string, error) {
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, PresetsDir, host, owner, collection, name+".md"), nil
}

// HomeRelative rewrites an absolute path under the user's home directory to
// the portable ~/ form. Paths outside the home directory are returned as-is.
func HomeRelative(path string) string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return path
	}
	rel, err := filepath.Rel(home, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return "~/" + filepath.ToSlash(rel)
}

// ExpandHome reverses HomeRelative.
func ExpandHome(path string) (string, error) {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to resolve home directory: %w", err)
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
	}
	return path, nil
}
