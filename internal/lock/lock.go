// Package lock implements the pin state machine: detecting whether a project
// tracks the collection head or is pinned to one version, and materializing
// pinned fragment content into a per-version snapshot directory.
package lock

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/presetmd-dev/presetmd/internal/fileutil"
	"github.com/presetmd-dev/presetmd/internal/paths"
	"github.com/presetmd-dev/presetmd/internal/preset"
	"github.com/presetmd-dev/presetmd/internal/rootdoc"
)

// MinPinLength is the shortest version token the detector classifies as a
// pin. Shorter tokens are never produced by Lock: they would be read back as
// Tracking.
const MinPinLength = 7

// Status is the detected lock state of a project.
type Status struct {
	Pinned  bool
	Version string
}

func (s Status) String() string {
	if s.Pinned {
		return "pinned@" + s.Version
	}
	return "tracking"
}

// DetectState infers the lock state from the root document alone. There is
// no stored flag: a managed line is a pin when its version token is long
// enough to be a commit identifier or its path lies inside a snapshot
// directory. Every document maps to exactly one state.
func DetectState(doc rootdoc.State) Status {
	if doc.Import == nil {
		return Status{}
	}
	if strings.Contains(doc.Import.Path, "/"+paths.VendorDir+"/") {
		return Status{Pinned: true, Version: doc.Import.Version}
	}
	if doc.Import.Version != paths.LatestVersion && len(doc.Import.Version) >= MinPinLength {
		return Status{Pinned: true, Version: doc.Import.Version}
	}
	return Status{}
}

// Snapshot is one materialized vendor directory.
type Snapshot struct {
	Dir     string
	Version string
	Files   []string
}

// SnapshotFileName builds the vendor filename for one fragment. The readable
// underscore-joined form is kept, but an 8-hex hash of the full pointer is
// appended so fragments whose names contain the separator cannot collide.
func SnapshotFileName(p preset.Pointer) string {
	id := strings.Join([]string{p.Host, p.Owner, p.Collection, p.Name}, "\x00")
	suffix := fileutil.HashBytes([]byte(id))[:8]
	return fmt.Sprintf("%s_%s_%s_%s_%s.md", p.Host, p.Owner, p.Collection, p.Name, suffix)
}

// Materialize copies fragment content into the snapshot directory for one
// version and returns the fragments re-pointed at their snapshot paths.
// Existing snapshot directories are reused; nothing is ever deleted here.
func Materialize(slug, version string, fragments []preset.Fetched) (*Snapshot, []preset.Fetched, error) {
	dir, err := paths.VendorVersionDir(slug, version)
	if err != nil {
		return nil, nil, err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, nil, fmt.Errorf("failed to create snapshot directory %s: %w", dir, err)
	}

	relocated := make([]preset.Fetched, 0, len(fragments))
	files := make([]string, 0, len(fragments))
	for _, f := range fragments {
		content := f.Content
		if content == nil && f.LocalPath != "" {
			content, err = os.ReadFile(f.LocalPath)
			if err != nil {
				return nil, nil, fmt.Errorf("failed to read fragment %s: %w", f.LocalPath, err)
			}
		}
		if content == nil {
			// No local content anywhere; the builder will skip it.
			relocated = append(relocated, f)
			continue
		}

		name := SnapshotFileName(f.Pointer)
		target := filepath.Join(dir, name)
		if err := fileutil.WriteIfChanged(target, content); err != nil {
			return nil, nil, fmt.Errorf("failed to write snapshot file %s: %w", target, err)
		}
		files = append(files, name)
		relocated = append(relocated, preset.Fetched{Pointer: f.Pointer, LocalPath: target, Content: content})
	}

	sort.Strings(files)
	return &Snapshot{Dir: dir, Version: version, Files: files}, relocated, nil
}
