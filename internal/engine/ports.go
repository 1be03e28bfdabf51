package engine

import (
	"context"

	"github.com/presetmd-dev/presetmd/internal/preset"
)

// Source retrieves fragment content and collection metadata from the remote
// host. Implementations live outside the engine; tests inject fakes.
type Source interface {
	// Fetch returns the content of one fragment at the pointer's version.
	Fetch(ctx context.Context, ptr preset.Pointer) ([]byte, error)

	// List returns the fragment names available in a collection.
	List(ctx context.Context, host, owner, collection string) ([]string, error)

	// CurrentVersion returns the collection's current head commit token.
	CurrentVersion(ctx context.Context, host, owner, collection string) (string, error)
}

// RepoInspector resolves the remote URL identifying a project repository.
type RepoInspector interface {
	RemoteURL(projectRoot string) (string, error)
}
