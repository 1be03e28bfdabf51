// Package rootdoc parses and rewrites the per-project memory document: free
// form user text plus at most one machine-managed import line, always the
// last line of the file.
package rootdoc

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/presetmd-dev/presetmd/internal/fileutil"
	"github.com/presetmd-dev/presetmd/internal/paths"
)

// managedLineRe matches "@<path>/merged-preset-<version>.md". The version
// token is either the HEAD sentinel or an opaque commit identifier.
var managedLineRe = regexp.MustCompile(`^@(.*` + paths.AggregatePrefix + `([^/]+)\.md)$`)

// ImportInfo carries the aggregate path referenced by the managed line and
// the version token embedded in that path.
type ImportInfo struct {
	Path    string
	Version string
}

// State is the parsed form of a root document. Freeform never contains the
// managed line; ManagedLine, when present, was the last line of the document.
type State struct {
	Freeform    string
	ManagedLine string
	Import      *ImportInfo
}

// Parse splits a document into free-form text and the managed import line.
// A final line that looks like a managed import but has no parseable version
// token is an error; any other final line leaves the whole text as freeform.
//
// A user-authored last line that happens to match the managed pattern is
// indistinguishable from a real managed line and is treated as one.
func Parse(text string) (State, error) {
	if text == "" {
		return State{}, nil
	}

	body := strings.TrimSuffix(text, "\n")
	lines := strings.Split(body, "\n")
	last := lines[len(lines)-1]

	m := managedLineRe.FindStringSubmatch(last)
	if m == nil {
		if strings.HasPrefix(last, "@") && strings.Contains(last, paths.AggregatePrefix) {
			return State{}, fmt.Errorf("malformed managed import line %q", last)
		}
		return State{Freeform: text}, nil
	}

	before := lines[:len(lines)-1]
	// One blank separator line belongs to the managed line, not the freeform.
	if len(before) > 0 && before[len(before)-1] == "" {
		before = before[:len(before)-1]
	}
	freeform := ""
	if len(before) > 0 {
		freeform = strings.Join(before, "\n") + "\n"
	}

	return State{
		Freeform:    freeform,
		ManagedLine: last,
		Import:      &ImportInfo{Path: m[1], Version: m[2]},
	}, nil
}

// Serialize emits the freeform text verbatim, a blank separator line when the
// freeform is non-empty, and the managed import line for aggregatePath.
func Serialize(freeform, aggregatePath string) string {
	line := "@" + aggregatePath + "\n"
	if freeform == "" {
		return line
	}
	return fileutil.EnsureTrailingNewline(freeform) + "\n" + line
}

// Load reads and parses a root document. A missing file is an empty document.
func Load(path string) (State, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return State{}, nil
	}
	if err != nil {
		return State{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return Parse(string(data))
}

// Write rewrites the document with the given freeform text and managed line.
func Write(path, freeform, aggregatePath string) error {
	return fileutil.WriteIfChanged(path, []byte(Serialize(freeform, aggregatePath)))
}
