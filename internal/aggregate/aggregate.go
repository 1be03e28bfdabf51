// Package aggregate generates the merged-preset file: one import line per
// selected fragment, in selection order. The file is machine-generated and
// never hand-edited.
package aggregate

import (
	"fmt"

	"github.com/presetmd-dev/presetmd/internal/fileutil"
	"github.com/presetmd-dev/presetmd/internal/paths"
	"github.com/presetmd-dev/presetmd/internal/preset"
)

// File describes one written aggregate.
type File struct {
	Path    string
	Version string
	// Members are the fragment paths referenced by the file, as written
	// (home-relative), in input order.
	Members []string
}

// Build writes the aggregate at outputPath. Fragments without a local path
// are skipped; fragments whose local content is empty are still referenced.
// Member paths are written home-relative so the file stays portable across
// machines. Byte-idempotent: identical inputs produce identical output.
func Build(fragments []preset.Fetched, outputPath, version string) (*File, error) {
	members := make([]string, 0, len(fragments))
	content := ""
	for _, f := range fragments {
		if f.LocalPath == "" {
			continue
		}
		member := paths.HomeRelative(f.LocalPath)
		members = append(members, member)
		content += "@" + member + "\n"
	}

	if err := fileutil.WriteIfChanged(outputPath, []byte(content)); err != nil {
		return nil, fmt.Errorf("failed to write aggregate %s: %w", outputPath, err)
	}

	return &File{Path: outputPath, Version: version, Members: members}, nil
}
