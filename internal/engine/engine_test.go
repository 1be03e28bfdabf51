package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/presetmd-dev/presetmd/internal/config"
	"github.com/presetmd-dev/presetmd/internal/lock"
	"github.com/presetmd-dev/presetmd/internal/preset"
	"github.com/presetmd-dev/presetmd/internal/registry"
	"github.com/presetmd-dev/presetmd/internal/rootdoc"
)

type fakeSource struct {
	names     []string
	head      string
	failNames map[string]bool
}

func (f *fakeSource) Fetch(ctx context.Context, ptr preset.Pointer) ([]byte, error) {
	if f.failNames[ptr.Name] {
		return nil, fmt.Errorf("synthetic fetch failure")
	}
	return []byte(fmt.Sprintf("%s preset at %s\n", ptr.Name, ptr.Version)), nil
}

func (f *fakeSource) List(ctx context.Context, host, owner, collection string) ([]string, error) {
	return f.names, nil
}

func (f *fakeSource) CurrentVersion(ctx context.Context, host, owner, collection string) (string, error) {
	return f.head, nil
}

type fakeRepo struct {
	remote string
}

func (f fakeRepo) RemoteURL(projectRoot string) (string, error) {
	if f.remote == "" {
		return "", fmt.Errorf("no remote configured")
	}
	return f.remote, nil
}

func newTestEngine(t *testing.T, cfg config.Config, source Source) (*Engine, string) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	if cfg.RootDocument == "" {
		cfg.RootDocument = config.DefaultRootDocument
	}
	eng := New(cfg, source, fakeRepo{remote: "git@github.com:acme/demo.git"})
	return eng, t.TempDir()
}

func twoMembers() []registry.Member {
	return []registry.Member{
		{SourceLocation: "github.com/acme/presets", Name: "go"},
		{SourceLocation: "github.com/acme/presets", Name: "review"},
	}
}

func TestSelectThenSyncWritesManagedLine(t *testing.T) {
	eng, root := newTestEngine(t, config.Config{}, &fakeSource{})
	docPath := filepath.Join(root, "CLAUDE.md")
	mustWriteFile(t, docPath, "Notes\n")

	res, err := eng.Select(context.Background(), root, twoMembers(), false)
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if res.Members != 2 {
		t.Fatalf("expected 2 members, got %d", res.Members)
	}

	doc, err := rootdoc.Load(docPath)
	if err != nil {
		t.Fatalf("failed to reload document: %v", err)
	}
	if doc.Freeform != "Notes\n" {
		t.Fatalf("freeform changed: %q", doc.Freeform)
	}
	if doc.Import == nil || doc.Import.Version != "HEAD" {
		t.Fatalf("expected HEAD managed line, got %+v", doc.Import)
	}
	if st := lock.DetectState(doc); st.Pinned {
		t.Fatalf("expected tracking state, got %v", st)
	}

	data, err := os.ReadFile(res.AggregatePath)
	if err != nil {
		t.Fatalf("failed to read aggregate: %v", err)
	}
	if strings.Count(string(data), "\n") != 2 {
		t.Fatalf("expected 2 member lines, got %q", string(data))
	}
}

func TestSyncDerivesSelectionFromDefaults(t *testing.T) {
	cfg := config.Config{
		DefaultSourceCollections: []string{"https://github.com/acme/presets"},
		DefaultMembers:           []string{"go*"},
	}
	source := &fakeSource{names: []string{"go", "go-test", "ruby"}}
	eng, root := newTestEngine(t, cfg, source)

	res, err := eng.Sync(context.Background(), root, "")
	if err != nil {
		t.Fatalf("Sync failed: %v", err)
	}
	if res.Members != 2 {
		t.Fatalf("expected 2 derived members, got %d", res.Members)
	}

	sel, err := registry.Load(res.ProjectKey)
	if err != nil {
		t.Fatalf("failed to load selection: %v", err)
	}
	if sel == nil || len(sel.SelectedMembers) != 2 {
		t.Fatalf("expected derived selection to be persisted, got %+v", sel)
	}
}

func TestSyncWithoutSelectionFails(t *testing.T) {
	eng, root := newTestEngine(t, config.Config{}, &fakeSource{})

	_, err := eng.Sync(context.Background(), root, "")
	if !IsKind(err, KindSelectionMissing) {
		t.Fatalf("expected selection-missing failure, got %v", err)
	}
}

func TestSyncFetchFailureIsAllOrNothing(t *testing.T) {
	source := &fakeSource{failNames: map[string]bool{"review": true}}
	eng, root := newTestEngine(t, config.Config{}, source)

	if _, err := eng.Select(context.Background(), root, twoMembers(), false); !IsKind(err, KindFetchBatch) {
		t.Fatalf("expected fetch-batch failure, got %v", err)
	}

	docPath := filepath.Join(root, "CLAUDE.md")
	if _, err := os.Stat(docPath); !os.IsNotExist(err) {
		t.Fatal("expected no managed document to be written after a failed batch")
	}
}

func TestLockPinsAndUnlockRestoresTracking(t *testing.T) {
	eng, root := newTestEngine(t, config.Config{}, &fakeSource{head: "abc123def456abc1"})
	docPath := filepath.Join(root, "CLAUDE.md")
	mustWriteFile(t, docPath, "Notes\n")

	if _, err := eng.Select(context.Background(), root, twoMembers(), false); err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	syncRes, err := eng.Sync(context.Background(), root, "")
	if err != nil {
		t.Fatalf("Sync failed: %v", err)
	}
	trackingAggregate, err := os.ReadFile(syncRes.AggregatePath)
	if err != nil {
		t.Fatalf("failed to read aggregate: %v", err)
	}

	lockRes, err := eng.Lock(context.Background(), root, "abc123def456")
	if err != nil {
		t.Fatalf("Lock failed: %v", err)
	}
	if !lockRes.Pinned || lockRes.Version != "abc123def456" {
		t.Fatalf("unexpected lock result %+v", lockRes)
	}

	doc, err := rootdoc.Load(docPath)
	if err != nil {
		t.Fatalf("failed to reload document: %v", err)
	}
	st := lock.DetectState(doc)
	if !st.Pinned || st.Version != "abc123def456" {
		t.Fatalf("expected pinned state at abc123def456, got %v", st)
	}

	home, _ := os.UserHomeDir()
	vendorDir := filepath.Join(home, ".presetmd", "projects", lockRes.ProjectKey, "vendor", "abc123def456")
	entries, err := os.ReadDir(vendorDir)
	if err != nil {
		t.Fatalf("failed to read vendor dir: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected exactly 2 snapshot files, got %d", len(entries))
	}

	pinnedAggregate, err := os.ReadFile(lockRes.AggregatePath)
	if err != nil {
		t.Fatalf("failed to read pinned aggregate: %v", err)
	}
	if !strings.Contains(string(pinnedAggregate), "/vendor/abc123def456/") {
		t.Fatalf("expected pinned aggregate to reference snapshot paths, got %q", string(pinnedAggregate))
	}

	unlockRes, err := eng.Unlock(context.Background(), root)
	if err != nil {
		t.Fatalf("Unlock failed: %v", err)
	}
	if unlockRes.Version != "HEAD" {
		t.Fatalf("expected unlock to return to HEAD, got %q", unlockRes.Version)
	}

	doc, err = rootdoc.Load(docPath)
	if err != nil {
		t.Fatalf("failed to reload document: %v", err)
	}
	if st := lock.DetectState(doc); st.Pinned {
		t.Fatalf("expected tracking after unlock, got %v", st)
	}

	restored, err := os.ReadFile(unlockRes.AggregatePath)
	if err != nil {
		t.Fatalf("failed to read restored aggregate: %v", err)
	}
	if string(restored) != string(trackingAggregate) {
		t.Fatalf("unlock did not restore the tracking aggregate:\n%q\nvs\n%q", restored, trackingAggregate)
	}

	// Unlock only drops the reference; snapshots stay on disk.
	if _, err := os.ReadDir(vendorDir); err != nil {
		t.Fatalf("expected snapshot dir to survive unlock: %v", err)
	}
}

func TestLockResolvesCurrentVersionFromSource(t *testing.T) {
	eng, root := newTestEngine(t, config.Config{}, &fakeSource{head: "fedcba9876543210"})

	if _, err := eng.Select(context.Background(), root, twoMembers(), false); err != nil {
		t.Fatalf("Select failed: %v", err)
	}

	res, err := eng.Lock(context.Background(), root, "")
	if err != nil {
		t.Fatalf("Lock failed: %v", err)
	}
	if res.Version != "fedcba9876543210" {
		t.Fatalf("expected version resolved from source head, got %q", res.Version)
	}
}

func TestLockRejectsShortVersionToken(t *testing.T) {
	eng, root := newTestEngine(t, config.Config{}, &fakeSource{})

	if _, err := eng.Select(context.Background(), root, twoMembers(), false); err != nil {
		t.Fatalf("Select failed: %v", err)
	}

	if _, err := eng.Lock(context.Background(), root, "abc12"); !IsKind(err, KindLockState) {
		t.Fatalf("expected lock-state failure for short token, got %v", err)
	}
}

func TestLockWithoutSelectionFails(t *testing.T) {
	eng, root := newTestEngine(t, config.Config{}, &fakeSource{})

	if _, err := eng.Lock(context.Background(), root, "abc123def456"); !IsKind(err, KindLockState) {
		t.Fatalf("expected nothing-to-lock failure, got %v", err)
	}
}

func TestUnlockWhileTrackingFails(t *testing.T) {
	eng, root := newTestEngine(t, config.Config{}, &fakeSource{})

	if _, err := eng.Unlock(context.Background(), root); !IsKind(err, KindLockState) {
		t.Fatalf("expected not-locked failure, got %v", err)
	}
}

func TestRelockReplacesPin(t *testing.T) {
	eng, root := newTestEngine(t, config.Config{}, &fakeSource{})
	docPath := filepath.Join(root, "CLAUDE.md")

	if _, err := eng.Select(context.Background(), root, twoMembers(), false); err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if _, err := eng.Lock(context.Background(), root, "abc123def456"); err != nil {
		t.Fatalf("first Lock failed: %v", err)
	}
	res, err := eng.Lock(context.Background(), root, "456def123abc")
	if err != nil {
		t.Fatalf("second Lock failed: %v", err)
	}

	doc, err := rootdoc.Load(docPath)
	if err != nil {
		t.Fatalf("failed to reload document: %v", err)
	}
	st := lock.DetectState(doc)
	if !st.Pinned || st.Version != "456def123abc" {
		t.Fatalf("expected pin at 456def123abc, got %v", st)
	}

	// Old snapshots are never cleaned up.
	home, _ := os.UserHomeDir()
	oldVendor := filepath.Join(home, ".presetmd", "projects", res.ProjectKey, "vendor", "abc123def456")
	if _, err := os.ReadDir(oldVendor); err != nil {
		t.Fatalf("expected old snapshot dir to remain: %v", err)
	}
}

func TestStatusReportsStateAndSelection(t *testing.T) {
	eng, root := newTestEngine(t, config.Config{}, &fakeSource{})
	mustWriteFile(t, filepath.Join(root, "CLAUDE.md"), "Notes\n")

	st, err := eng.Status(root)
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if st.State.Pinned || st.Members != 0 {
		t.Fatalf("unexpected fresh status %+v", st)
	}

	if _, err := eng.Select(context.Background(), root, twoMembers(), false); err != nil {
		t.Fatalf("Select failed: %v", err)
	}

	st, err = eng.Status(root)
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if st.Members != 2 || st.State.Pinned {
		t.Fatalf("unexpected status after select %+v", st)
	}
	if st.AggregatePath == "" {
		t.Fatal("expected status to report the aggregate path")
	}
}

func TestIdentityFailureIsTagged(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	eng := New(config.Default(), &fakeSource{}, fakeRepo{})

	if _, err := eng.Sync(context.Background(), t.TempDir(), ""); !IsKind(err, KindIdentity) {
		t.Fatalf("expected identity failure, got %v", err)
	}
}

func mustWriteFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("failed to create directory for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}
