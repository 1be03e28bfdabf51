// Package preset defines the value types shared by the registry, the
// aggregate builder, and the lock manager.
package preset

import (
	"fmt"
	"strings"

	"github.com/presetmd-dev/presetmd/internal/identity"
)

// Pointer identifies one addressable fragment of preset content at a
// specific version. Immutable value type; Version may be the "HEAD" sentinel.
type Pointer struct {
	Host       string
	Owner      string
	Collection string
	Name       string
	Version    string
}

// SourceLocation returns the host/owner/collection triple in its canonical
// string form, as persisted in selection records.
func (p Pointer) SourceLocation() string {
	return p.Host + "/" + p.Owner + "/" + p.Collection
}

func (p Pointer) String() string {
	return fmt.Sprintf("%s:%s@%s", p.SourceLocation(), p.Name, p.Version)
}

// WithVersion returns a copy of the pointer stamped with the given version.
func (p Pointer) WithVersion(version string) Pointer {
	p.Version = version
	return p
}

// ParseSourceLocation accepts either a canonical host/owner/collection triple
// or any remote URL shape the identity resolver understands.
func ParseSourceLocation(s string) (host, owner, collection string, err error) {
	if strings.Contains(s, "://") || strings.Contains(s, "@") {
		return identity.Normalize(s)
	}
	parts := strings.Split(strings.Trim(s, "/"), "/")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return "", "", "", fmt.Errorf("malformed source location %q", s)
	}
	return parts[0], parts[1], parts[2], nil
}

// Fetched couples a pointer with its retrieved content and the local file the
// content has been (or will be) written to. A Fetched with an empty LocalPath
// is skipped by the aggregate builder.
type Fetched struct {
	Pointer   Pointer
	LocalPath string
	Content   []byte
}
