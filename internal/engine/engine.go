// Package engine orchestrates the sync, lock, and unlock flows over the root
// document, the selection registry, the aggregate builder, and the lock
// state machine. It is the only package that sequences writes: the root
// document's managed line is rewritten strictly after the aggregate (and any
// snapshot) has been fully written.
package engine

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/presetmd-dev/presetmd/internal/aggregate"
	"github.com/presetmd-dev/presetmd/internal/config"
	"github.com/presetmd-dev/presetmd/internal/fileutil"
	"github.com/presetmd-dev/presetmd/internal/flock"
	"github.com/presetmd-dev/presetmd/internal/identity"
	"github.com/presetmd-dev/presetmd/internal/lock"
	"github.com/presetmd-dev/presetmd/internal/paths"
	"github.com/presetmd-dev/presetmd/internal/preset"
	"github.com/presetmd-dev/presetmd/internal/registry"
	"github.com/presetmd-dev/presetmd/internal/rootdoc"
)

type Engine struct {
	cfg    config.Config
	source Source
	repo   RepoInspector
}

func New(cfg config.Config, source Source, repo RepoInspector) *Engine {
	return &Engine{cfg: cfg, source: source, repo: repo}
}

// Result reports one completed operation.
type Result struct {
	Op            string
	ProjectKey    string
	Version       string
	AggregatePath string
	Members       int
	Pinned        bool
}

// ProjectStatus is the read-only view reported by Status.
type ProjectStatus struct {
	ProjectKey    string
	RootDocument  string
	State         lock.Status
	AggregatePath string
	Members       int
}

// project bundles the per-invocation state shared by every flow.
type project struct {
	slug    string
	docPath string
	doc     rootdoc.State
	release func()
}

func (e *Engine) openProject(projectRoot string) (*project, error) {
	remote, err := e.repo.RemoteURL(projectRoot)
	if err != nil {
		return nil, errf(KindIdentity, err, "cannot identify project at %s", projectRoot)
	}
	slug, err := identity.Resolve(remote)
	if err != nil {
		return nil, errf(KindIdentity, err, "cannot identify project at %s", projectRoot)
	}

	dir, err := paths.ProjectDir(slug)
	if err != nil {
		return nil, err
	}
	release, err := flock.Acquire(dir)
	if err != nil {
		return nil, err
	}

	docPath := filepath.Join(projectRoot, e.cfg.RootDocument)
	doc, err := rootdoc.Load(docPath)
	if err != nil {
		release()
		return nil, errf(KindDocumentParse, err, "cannot parse %s", docPath)
	}

	return &project{slug: slug, docPath: docPath, doc: doc, release: release}, nil
}

// Sync regenerates the aggregate for the requested version (default HEAD)
// and rewrites the managed line. A project without a stored selection gets
// one derived from the config defaults when those yield any members.
func (e *Engine) Sync(ctx context.Context, projectRoot, version string) (*Result, error) {
	if version == "" {
		version = paths.LatestVersion
	}

	p, err := e.openProject(projectRoot)
	if err != nil {
		return nil, err
	}
	defer p.release()

	sel, err := e.selection(ctx, p.slug)
	if err != nil {
		return nil, err
	}
	res, err := e.refresh(ctx, p, sel, version)
	if err != nil {
		return nil, err
	}
	res.Op = "sync"
	return res, nil
}

// Lock pins the project to one version: fragment content is copied into the
// version's snapshot directory and the aggregate references the snapshot
// files. An empty version is resolved to the first collection's current head.
func (e *Engine) Lock(ctx context.Context, projectRoot, version string) (*Result, error) {
	p, err := e.openProject(projectRoot)
	if err != nil {
		return nil, err
	}
	defer p.release()

	sel, err := registry.Load(p.slug)
	if err != nil {
		return nil, err
	}
	pointers, err := registry.ResolvePointers(sel, version)
	if err != nil {
		return nil, errf(KindSelectionMissing, err, "cannot resolve selection for %s", p.slug)
	}
	if len(pointers) == 0 {
		return nil, errf(KindLockState, nil, "nothing to lock: no fragments selected")
	}

	if version == "" || version == paths.LatestVersion {
		first := pointers[0]
		version, err = e.source.CurrentVersion(ctx, first.Host, first.Owner, first.Collection)
		if err != nil {
			return nil, errf(KindFetchBatch, err, "cannot resolve current version of %s", first.SourceLocation())
		}
		for i := range pointers {
			pointers[i] = pointers[i].WithVersion(version)
		}
	}
	// Shorter tokens would be read back as Tracking by the detector.
	if len(version) < lock.MinPinLength {
		return nil, errf(KindLockState, nil, "version token %q is too short to pin (need at least %d characters)", version, lock.MinPinLength)
	}

	fragments, err := e.fetchAll(ctx, pointers)
	if err != nil {
		return nil, err
	}

	snap, relocated, err := lock.Materialize(p.slug, version, fragments)
	if err != nil {
		return nil, errf(KindSnapshotIO, err, "cannot materialize snapshot for %s", version)
	}

	aggPath, err := paths.AggregatePath(p.slug, version)
	if err != nil {
		return nil, err
	}
	agg, err := aggregate.Build(relocated, aggPath, version)
	if err != nil {
		return nil, errf(KindSnapshotIO, err, "cannot write aggregate for %s", version)
	}

	if err := rootdoc.Write(p.docPath, p.doc.Freeform, agg.Path); err != nil {
		return nil, err
	}

	return &Result{
		Op:            "lock",
		ProjectKey:    p.slug,
		Version:       snap.Version,
		AggregatePath: agg.Path,
		Members:       len(agg.Members),
		Pinned:        true,
	}, nil
}

// Unlock returns a pinned project to tracking: the HEAD aggregate is rebuilt
// from freshly fetched content and the managed line rewritten. Snapshot
// directories stay on disk; only the reference to them is dropped.
func (e *Engine) Unlock(ctx context.Context, projectRoot string) (*Result, error) {
	p, err := e.openProject(projectRoot)
	if err != nil {
		return nil, err
	}
	defer p.release()

	if st := lock.DetectState(p.doc); !st.Pinned {
		return nil, errf(KindLockState, nil, "not locked: project %s is already tracking", p.slug)
	}

	sel, err := e.selection(ctx, p.slug)
	if err != nil {
		return nil, err
	}
	res, err := e.refresh(ctx, p, sel, paths.LatestVersion)
	if err != nil {
		return nil, err
	}
	res.Op = "unlock"
	return res, nil
}

// Select replaces the project's fragment selection and re-syncs at HEAD.
// With fromDefaults set, the members are derived from the configured default
// collections instead of the explicit list.
func (e *Engine) Select(ctx context.Context, projectRoot string, members []registry.Member, fromDefaults bool) (*Result, error) {
	p, err := e.openProject(projectRoot)
	if err != nil {
		return nil, err
	}
	defer p.release()

	if fromDefaults {
		members, err = e.defaultMembers(ctx)
		if err != nil {
			return nil, err
		}
	}
	if len(members) == 0 {
		return nil, errf(KindSelectionMissing, nil, "no fragments to select")
	}

	sel, err := registry.Save(p.slug, members)
	if err != nil {
		return nil, err
	}
	res, err := e.refresh(ctx, p, sel, paths.LatestVersion)
	if err != nil {
		return nil, err
	}
	res.Op = "select"
	return res, nil
}

// Status inspects a project without writing anything (and without taking the
// advisory lock).
func (e *Engine) Status(projectRoot string) (*ProjectStatus, error) {
	remote, err := e.repo.RemoteURL(projectRoot)
	if err != nil {
		return nil, errf(KindIdentity, err, "cannot identify project at %s", projectRoot)
	}
	slug, err := identity.Resolve(remote)
	if err != nil {
		return nil, errf(KindIdentity, err, "cannot identify project at %s", projectRoot)
	}

	docPath := filepath.Join(projectRoot, e.cfg.RootDocument)
	doc, err := rootdoc.Load(docPath)
	if err != nil {
		return nil, errf(KindDocumentParse, err, "cannot parse %s", docPath)
	}

	sel, err := registry.Load(slug)
	if err != nil {
		return nil, err
	}

	st := &ProjectStatus{
		ProjectKey:   slug,
		RootDocument: docPath,
		State:        lock.DetectState(doc),
	}
	if doc.Import != nil {
		st.AggregatePath = doc.Import.Path
	}
	if sel != nil {
		st.Members = len(sel.SelectedMembers)
	}
	return st, nil
}

// refresh fetches the selection at one version, writes the aggregate, and
// rewrites the managed line. Shared by sync, unlock, and select.
func (e *Engine) refresh(ctx context.Context, p *project, sel *registry.Selection, version string) (*Result, error) {
	pointers, err := registry.ResolvePointers(sel, version)
	if err != nil {
		return nil, errf(KindSelectionMissing, err, "cannot resolve selection for %s", p.slug)
	}
	if len(pointers) == 0 {
		return nil, errf(KindSelectionMissing, nil, "no fragments selected for this project; run `presetmd select`")
	}

	fragments, err := e.fetchAll(ctx, pointers)
	if err != nil {
		return nil, err
	}

	aggPath, err := paths.AggregatePath(p.slug, version)
	if err != nil {
		return nil, err
	}
	agg, err := aggregate.Build(fragments, aggPath, version)
	if err != nil {
		return nil, err
	}

	if err := rootdoc.Write(p.docPath, p.doc.Freeform, agg.Path); err != nil {
		return nil, err
	}

	return &Result{
		ProjectKey:    p.slug,
		Version:       version,
		AggregatePath: agg.Path,
		Members:       len(agg.Members),
	}, nil
}

// fetchAll retrieves every fragment in parallel. All-or-nothing: any failure
// fails the batch and nothing is written to the fragment cache.
func (e *Engine) fetchAll(ctx context.Context, pointers []preset.Pointer) ([]preset.Fetched, error) {
	fragments := make([]preset.Fetched, len(pointers))
	errs := make([]error, len(pointers))

	var wg sync.WaitGroup
	for i, ptr := range pointers {
		wg.Add(1)
		go func(i int, ptr preset.Pointer) {
			defer wg.Done()
			content, err := e.source.Fetch(ctx, ptr)
			if err != nil {
				errs[i] = fmt.Errorf("%s: %w", ptr, err)
				return
			}
			fragments[i] = preset.Fetched{Pointer: ptr, Content: content}
		}(i, ptr)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, errf(KindFetchBatch, err, "fragment fetch failed")
		}
	}

	for i := range fragments {
		ptr := fragments[i].Pointer
		path, err := paths.FragmentCachePath(ptr.Host, ptr.Owner, ptr.Collection, ptr.Name)
		if err != nil {
			return nil, err
		}
		if err := fileutil.WriteIfChanged(path, fragments[i].Content); err != nil {
			return nil, fmt.Errorf("failed to cache fragment %s: %w", ptr, err)
		}
		fragments[i].LocalPath = path
	}
	return fragments, nil
}

// defaultMembers derives a selection from the configured default collections
// by listing each one and matching the default member patterns.
func (e *Engine) defaultMembers(ctx context.Context) ([]registry.Member, error) {
	var members []registry.Member
	for _, raw := range e.cfg.DefaultSourceCollections {
		host, owner, collection, err := preset.ParseSourceLocation(raw)
		if err != nil {
			return nil, fmt.Errorf("config default collection: %w", err)
		}
		names, err := e.source.List(ctx, host, owner, collection)
		if err != nil {
			return nil, errf(KindFetchBatch, err, "cannot list collection %s", raw)
		}
		matched, err := e.cfg.MatchMembers(names)
		if err != nil {
			return nil, err
		}
		location := host + "/" + owner + "/" + collection
		for _, name := range matched {
			members = append(members, registry.Member{SourceLocation: location, Name: name})
		}
	}
	return members, nil
}

// selection loads the stored selection, deriving and persisting one from the
// config defaults the first time a project syncs.
func (e *Engine) selection(ctx context.Context, slug string) (*registry.Selection, error) {
	sel, err := registry.Load(slug)
	if err != nil {
		return nil, err
	}
	if sel != nil && len(sel.SelectedMembers) > 0 {
		return sel, nil
	}

	members, err := e.defaultMembers(ctx)
	if err != nil {
		return nil, err
	}
	if len(members) == 0 {
		return sel, nil
	}
	return registry.Save(slug, members)
}
