// Package registry persists which fragments each project has selected. One
// record per project, keyed by the project identity; the record stores
// members at unresolved version and the caller stamps a version at read time.
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/presetmd-dev/presetmd/internal/fileutil"
	"github.com/presetmd-dev/presetmd/internal/paths"
	"github.com/presetmd-dev/presetmd/internal/preset"
)

// Member is one selected fragment, stored without a version.
type Member struct {
	SourceLocation string `json:"sourceLocation"`
	Name           string `json:"name"`
}

// Selection is the persisted per-project record.
type Selection struct {
	ProjectKey      string    `json:"projectKey"`
	SelectedMembers []Member  `json:"selectedMembers"`
	LastUpdated     time.Time `json:"lastUpdated"`
}

// Load returns the stored selection for a project, or nil when the project
// has never selected fragments. Absence is not an error; callers decide
// whether to derive a default selection or demand an explicit one.
func Load(slug string) (*Selection, error) {
	path, err := paths.SelectionPath(slug)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read selection record: %w", err)
	}

	var sel Selection
	if err := json.Unmarshal(data, &sel); err != nil {
		return nil, fmt.Errorf("failed to parse selection record %s: %w", path, err)
	}
	return &sel, nil
}

// Save replaces the project's selection record.
func Save(slug string, members []Member) (*Selection, error) {
	sel := &Selection{
		ProjectKey:      slug,
		SelectedMembers: members,
		LastUpdated:     time.Now().UTC(),
	}

	data, err := json.MarshalIndent(sel, "", "  ")
	if err != nil {
		return nil, err
	}

	path, err := paths.SelectionPath(slug)
	if err != nil {
		return nil, err
	}
	if err := fileutil.WriteIfChanged(path, append(data, '\n')); err != nil {
		return nil, fmt.Errorf("failed to write selection record: %w", err)
	}
	return sel, nil
}

// ResolvePointers stamps every member of a selection with the requested
// version, preserving selection order.
func ResolvePointers(sel *Selection, version string) ([]preset.Pointer, error) {
	if sel == nil {
		return nil, nil
	}
	if version == "" {
		version = paths.LatestVersion
	}

	pointers := make([]preset.Pointer, 0, len(sel.SelectedMembers))
	for _, m := range sel.SelectedMembers {
		host, owner, collection, err := preset.ParseSourceLocation(m.SourceLocation)
		if err != nil {
			return nil, fmt.Errorf("selection member %q: %w", m.Name, err)
		}
		pointers = append(pointers, preset.Pointer{
			Host:       host,
			Owner:      owner,
			Collection: collection,
			Name:       m.Name,
			Version:    version,
		})
	}
	return pointers, nil
}
