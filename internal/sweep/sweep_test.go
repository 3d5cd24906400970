package sweep

import (
	"errors"
	"log"
	"os"
	"path/filepath"
	"testing"
	"time"

	"dirsweep/internal/fsops"
	"dirsweep/internal/safety"
)

const day = 24 * time.Hour

// writeAged creates a file whose access and modification times lie
// ageDays in the past
func writeAged(t *testing.T, path string, ageDays int) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("Failed to create parent dirs: %v", err)
	}
	if err := os.WriteFile(path, []byte("payload"), 0o644); err != nil {
		t.Fatalf("Failed to create file %s: %v", path, err)
	}
	stamp := time.Now().Add(-time.Duration(ageDays) * day)
	if err := os.Chtimes(path, stamp, stamp); err != nil {
		t.Fatalf("Failed to age file %s: %v", path, err)
	}
}

func newTestSweeper(root string) *Sweeper {
	s := NewSweeper(log.New(os.Stderr, "", 0))
	s.SetValidator(safety.NewValidator(root, nil))
	return s
}

func kinds(events []Event) []EventKind {
	out := make([]EventKind, len(events))
	for i, ev := range events {
		out[i] = ev.Kind
	}
	return out
}

func TestStaleFileDeletedAndCounted(t *testing.T) {
	root := t.TempDir()
	stale := filepath.Join(root, "old.txt")
	fresh := filepath.Join(root, "new.txt")
	writeAged(t, stale, 400)
	writeAged(t, fresh, 1)

	res, err := newTestSweeper(root).Sweep(Config{Root: root, MaxAge: 30 * day})
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}

	if res.FilesDeleted != 1 {
		t.Errorf("Expected 1 file deleted, got %d", res.FilesDeleted)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Error("Stale file should have been removed")
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Errorf("Fresh file should have been retained: %v", err)
	}

	if len(res.Events) != 1 || res.Events[0].Kind != EventFile {
		t.Fatalf("Expected exactly one FILE event, got %v", res.Events)
	}
	if res.Events[0].AgeDays != 400 {
		t.Errorf("Expected age 400 days, got %d", res.Events[0].AgeDays)
	}
}

func TestFreshFileNeverCandidate(t *testing.T) {
	root := t.TempDir()
	writeAged(t, filepath.Join(root, "keep.txt"), 10)

	for _, dryRun := range []bool{true, false} {
		res, err := newTestSweeper(root).Sweep(Config{Root: root, MaxAge: 30 * day, DryRun: dryRun})
		if err != nil {
			t.Fatalf("Sweep failed: %v", err)
		}
		if len(res.Events) != 0 {
			t.Errorf("dryRun=%v: expected no events for fresh file, got %v", dryRun, res.Events)
		}
	}
}

// TestDryRunNeverDeletes proves the dry-run contract:
// when DryRun=true, zero delete syscalls must occur
func TestDryRunNeverDeletes(t *testing.T) {
	root := t.TempDir()
	writeAged(t, filepath.Join(root, "a", "old.txt"), 400)
	writeAged(t, filepath.Join(root, "old2.txt"), 100)

	fake := &fsops.FakeDeleter{}
	s := newTestSweeper(root)
	s.SetDeleter(fake)

	res, err := s.Sweep(Config{Root: root, MaxAge: 30 * day, DryRun: true})
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}

	if len(fake.Calls) != 0 {
		t.Errorf("DRY-RUN VIOLATION: expected 0 delete calls, got %d: %v",
			len(fake.Calls), fake.Calls)
	}
	if res.FilesDeleted != 0 || res.DirsDeleted != 0 {
		t.Errorf("Dry run must not count deletions, got files=%d dirs=%d",
			res.FilesDeleted, res.DirsDeleted)
	}

	// Candidates are still identified exactly as a live run would.
	files, dirs := res.Candidates()
	if files != 2 || dirs != 1 {
		t.Errorf("Expected 2 file and 1 dir candidates, got %d/%d", files, dirs)
	}
}

func TestDryRunEventParityWithLiveRun(t *testing.T) {
	mkTree := func(t *testing.T) string {
		root := t.TempDir()
		writeAged(t, filepath.Join(root, "a", "b", "old.txt"), 200)
		writeAged(t, filepath.Join(root, "a", "keep.txt"), 1)
		writeAged(t, filepath.Join(root, "c", "old2.txt"), 200)
		return root
	}

	dryRoot := mkTree(t)
	dry, err := newTestSweeper(dryRoot).Sweep(Config{Root: dryRoot, MaxAge: 30 * day, DryRun: true})
	if err != nil {
		t.Fatalf("Dry sweep failed: %v", err)
	}

	liveRoot := mkTree(t)
	live, err := newTestSweeper(liveRoot).Sweep(Config{Root: liveRoot, MaxAge: 30 * day})
	if err != nil {
		t.Fatalf("Live sweep failed: %v", err)
	}

	dk, lk := kinds(dry.Events), kinds(live.Events)
	if len(dk) != len(lk) {
		t.Fatalf("Event counts differ: dry=%v live=%v", dk, lk)
	}
	for i := range dk {
		if dk[i] != lk[i] {
			t.Errorf("Event %d kind differs: dry=%v live=%v", i, dk[i], lk[i])
		}
	}

	// Dry run leaves the tree untouched.
	if _, err := os.Stat(filepath.Join(dryRoot, "a", "b", "old.txt")); err != nil {
		t.Errorf("Dry run mutated the filesystem: %v", err)
	}
}

// A directory emptied by this run's deletions is removed in the same
// pass, and the emptiness cascades upward through the bottom-up order.
func TestEmptiedDirectoryChainRemovedSameRun(t *testing.T) {
	root := t.TempDir()
	writeAged(t, filepath.Join(root, "a", "b", "c", "old.txt"), 90)

	res, err := newTestSweeper(root).Sweep(Config{Root: root, MaxAge: 30 * day})
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}

	if res.FilesDeleted != 1 {
		t.Errorf("Expected 1 file deleted, got %d", res.FilesDeleted)
	}
	if res.DirsDeleted != 3 {
		t.Errorf("Expected a, b and c removed in one pass, got %d", res.DirsDeleted)
	}
	if _, err := os.Stat(filepath.Join(root, "a")); !os.IsNotExist(err) {
		t.Error("Emptied directory chain should be gone")
	}
	if _, err := os.Stat(root); err != nil {
		t.Errorf("Root itself must never be deleted: %v", err)
	}

	// Bottom-up event order: file, then c, then b, then a.
	want := []string{
		filepath.Join(root, "a", "b", "c", "old.txt"),
		filepath.Join(root, "a", "b", "c"),
		filepath.Join(root, "a", "b"),
		filepath.Join(root, "a"),
	}
	if len(res.Events) != len(want) {
		t.Fatalf("Expected %d events, got %v", len(want), res.Events)
	}
	for i, ev := range res.Events {
		if ev.Path != want[i] {
			t.Errorf("Event %d: expected path %s, got %s", i, want[i], ev.Path)
		}
	}
}

func TestDirectoryWithFreshFileRetained(t *testing.T) {
	root := t.TempDir()
	writeAged(t, filepath.Join(root, "a", "old.txt"), 90)
	writeAged(t, filepath.Join(root, "a", "new.txt"), 1)

	res, err := newTestSweeper(root).Sweep(Config{Root: root, MaxAge: 30 * day})
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}

	if res.DirsDeleted != 0 {
		t.Errorf("Directory holding a retained file must not be removed, got %d", res.DirsDeleted)
	}
	if _, err := os.Stat(filepath.Join(root, "a")); err != nil {
		t.Errorf("Directory should still exist: %v", err)
	}
}

func TestExcludedSubtreeNeverEvaluated(t *testing.T) {
	root := t.TempDir()
	writeAged(t, filepath.Join(root, "keep", "deep", "old.txt"), 400)
	writeAged(t, filepath.Join(root, "other", "old.txt"), 400)

	res, err := newTestSweeper(root).Sweep(Config{
		Root:     root,
		MaxAge:   30 * day,
		Excluded: []string{"keep"},
	})
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}

	if _, err := os.Stat(filepath.Join(root, "keep", "deep", "old.txt")); err != nil {
		t.Errorf("Excluded subtree was touched: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "other", "old.txt")); !os.IsNotExist(err) {
		t.Error("Non-excluded stale file should have been removed")
	}

	// Exactly one EXCLUDED event, for the excluded directory itself,
	// never recursively for its descendants.
	excludedEvents := 0
	for _, ev := range res.Events {
		if ev.Kind == EventExcluded {
			excludedEvents++
			if ev.Path != filepath.Join(root, "keep") {
				t.Errorf("Excluded event for wrong path: %s", ev.Path)
			}
		}
		if hasPathPrefix(ev.Path, filepath.Join(root, "keep", "deep")) {
			t.Errorf("Descendant of excluded path appeared in events: %s", ev.Path)
		}
	}
	if excludedEvents != 1 {
		t.Errorf("Expected exactly 1 EXCLUDED event, got %d", excludedEvents)
	}
}

func TestExcludePatternSkipsDirectory(t *testing.T) {
	root := t.TempDir()
	writeAged(t, filepath.Join(root, ".snapshots", "old.txt"), 400)
	writeAged(t, filepath.Join(root, "data", "old.txt"), 400)

	res, err := newTestSweeper(root).Sweep(Config{
		Root:            root,
		MaxAge:          30 * day,
		ExcludePatterns: []string{".snap*"},
	})
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}

	if _, err := os.Stat(filepath.Join(root, ".snapshots", "old.txt")); err != nil {
		t.Errorf("Pattern-excluded subtree was touched: %v", err)
	}
	if res.FilesDeleted != 1 {
		t.Errorf("Expected only the non-excluded file deleted, got %d", res.FilesDeleted)
	}
}

func TestExcludePatternRetainsFile(t *testing.T) {
	root := t.TempDir()
	writeAged(t, filepath.Join(root, "important.lock"), 400)
	writeAged(t, filepath.Join(root, "old.txt"), 400)

	res, err := newTestSweeper(root).Sweep(Config{
		Root:            root,
		MaxAge:          30 * day,
		ExcludePatterns: []string{"*.lock"},
	})
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}

	if _, err := os.Stat(filepath.Join(root, "important.lock")); err != nil {
		t.Errorf("Pattern-matched file should be retained: %v", err)
	}
	if res.FilesDeleted != 1 {
		t.Errorf("Expected 1 deletion, got %d", res.FilesDeleted)
	}
}

func TestIdempotence(t *testing.T) {
	root := t.TempDir()
	writeAged(t, filepath.Join(root, "a", "old.txt"), 400)
	writeAged(t, filepath.Join(root, "b", "keep.txt"), 1)

	cfg := Config{Root: root, MaxAge: 30 * day}

	first, err := newTestSweeper(root).Sweep(cfg)
	if err != nil {
		t.Fatalf("First sweep failed: %v", err)
	}
	if first.FilesDeleted != 1 || first.DirsDeleted != 1 {
		t.Fatalf("First run: expected 1 file + 1 dir, got %d/%d",
			first.FilesDeleted, first.DirsDeleted)
	}

	second, err := newTestSweeper(root).Sweep(cfg)
	if err != nil {
		t.Fatalf("Second sweep failed: %v", err)
	}
	if len(second.Events) != 0 {
		t.Errorf("Second run should find nothing, got %v", second.Events)
	}
}

func TestDeleteFailureLoggedNotCounted(t *testing.T) {
	root := t.TempDir()
	stale := filepath.Join(root, "old.txt")
	writeAged(t, stale, 400)

	fake := &fsops.FakeDeleter{
		FailPaths: map[string]error{stale: errors.New("permission denied")},
	}
	s := newTestSweeper(root)
	s.SetDeleter(fake)

	res, err := s.Sweep(Config{Root: root, MaxAge: 30 * day})
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}

	if res.FilesDeleted != 0 {
		t.Errorf("Failed deletions must not be counted, got %d", res.FilesDeleted)
	}
	if got := kinds(res.Events); len(got) != 2 || got[0] != EventFile || got[1] != EventDeleteError {
		t.Errorf("Expected FILE then DELETE_ERROR events, got %v", res.Events)
	}
}

func TestFailedFileDeleteKeepsParent(t *testing.T) {
	root := t.TempDir()
	stale := filepath.Join(root, "a", "old.txt")
	writeAged(t, stale, 400)

	fake := &fsops.FakeDeleter{
		FailPaths: map[string]error{stale: errors.New("busy")},
	}
	s := newTestSweeper(root)
	s.SetDeleter(fake)

	res, err := s.Sweep(Config{Root: root, MaxAge: 30 * day})
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}

	// The file still occupies its parent, so no DIR event may appear.
	for _, ev := range res.Events {
		if ev.Kind == EventDir {
			t.Errorf("Parent of undeleted file must not become a dir candidate: %v", ev)
		}
	}
	if res.DirsDeleted != 0 {
		t.Errorf("Expected no dirs deleted, got %d", res.DirsDeleted)
	}
}

func TestDirAgeCheckRetainsRecentEmptyDir(t *testing.T) {
	root := t.TempDir()
	recent := filepath.Join(root, "recent")
	old := filepath.Join(root, "ancient")
	for _, d := range []string{recent, old} {
		if err := os.Mkdir(d, 0o755); err != nil {
			t.Fatalf("Failed to create dir: %v", err)
		}
	}
	stamp := time.Now().Add(-400 * day)
	if err := os.Chtimes(old, stamp, stamp); err != nil {
		t.Fatalf("Failed to age dir: %v", err)
	}

	res, err := newTestSweeper(root).Sweep(Config{
		Root:        root,
		MaxAge:      30 * day,
		DirAgeCheck: true,
	})
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}

	if _, err := os.Stat(recent); err != nil {
		t.Errorf("Recently accessed empty dir must survive with DirAgeCheck: %v", err)
	}
	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Error("Aged empty dir should have been removed")
	}
	if res.DirsDeleted != 1 {
		t.Errorf("Expected 1 dir deleted, got %d", res.DirsDeleted)
	}
}

func TestEmptyDirRemovedUnconditionallyByDefault(t *testing.T) {
	root := t.TempDir()
	// Freshly created: atime is now. Without DirAgeCheck the empty
	// directory is removed regardless.
	if err := os.Mkdir(filepath.Join(root, "fresh-empty"), 0o755); err != nil {
		t.Fatalf("Failed to create dir: %v", err)
	}

	res, err := newTestSweeper(root).Sweep(Config{Root: root, MaxAge: 30 * day})
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	if res.DirsDeleted != 1 {
		t.Errorf("Expected empty dir removed unconditionally, got %d", res.DirsDeleted)
	}
}

func TestAccessErrorSkipsDirectoryAndContinues(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission checks do not apply to root")
	}

	root := t.TempDir()
	locked := filepath.Join(root, "locked")
	if err := os.Mkdir(locked, 0o755); err != nil {
		t.Fatalf("Failed to create dir: %v", err)
	}
	writeAged(t, filepath.Join(locked, "hidden.txt"), 400)
	writeAged(t, filepath.Join(root, "visible.txt"), 400)
	if err := os.Chmod(locked, 0o000); err != nil {
		t.Fatalf("Failed to chmod: %v", err)
	}
	t.Cleanup(func() { os.Chmod(locked, 0o755) })

	res, err := newTestSweeper(root).Sweep(Config{Root: root, MaxAge: 30 * day})
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}

	accessErrors := 0
	for _, ev := range res.Events {
		if ev.Kind == EventAccessError {
			accessErrors++
		}
	}
	if accessErrors != 1 {
		t.Errorf("Expected 1 ACCESS_ERROR event, got %d", accessErrors)
	}
	if res.FilesDeleted != 1 {
		t.Errorf("Traversal should continue past unreadable dir, got %d deletions", res.FilesDeleted)
	}
}

func TestMissingRootReportedAsAccessError(t *testing.T) {
	root := filepath.Join(t.TempDir(), "vanished")

	res, err := newTestSweeper(root).Sweep(Config{Root: root, MaxAge: 30 * day})
	if err != nil {
		t.Fatalf("Missing root must not be fatal: %v", err)
	}
	if len(res.Events) != 1 || res.Events[0].Kind != EventAccessError {
		t.Errorf("Expected single ACCESS_ERROR event, got %v", res.Events)
	}
}

func TestConfigValidation(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
	}{
		{"empty root", Config{MaxAge: day}},
		{"relative root", Config{Root: "relative/path", MaxAge: day}},
		{"negative age", Config{Root: "/tmp", MaxAge: -day}},
		{"absolute exclude", Config{Root: "/tmp", MaxAge: day, Excluded: []string{"/etc"}}},
		{"traversal exclude", Config{Root: "/tmp", MaxAge: day, Excluded: []string{"../outside"}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewSweeper(nil).Sweep(tc.cfg); err == nil {
				t.Error("Expected validation error")
			}
		})
	}
}

// Scenario from the design review: /tmp/t with a stale file under a/
// and an excluded empty directory b/, threshold 30 days
func TestReferenceScenario(t *testing.T) {
	root := t.TempDir()
	writeAged(t, filepath.Join(root, "a", "old.txt"), 400)
	if err := os.Mkdir(filepath.Join(root, "b"), 0o755); err != nil {
		t.Fatalf("Failed to create dir: %v", err)
	}

	cfg := Config{Root: root, MaxAge: 30 * day, Excluded: []string{"b"}}

	t.Run("live", func(t *testing.T) {
		liveRoot := t.TempDir()
		writeAged(t, filepath.Join(liveRoot, "a", "old.txt"), 400)
		if err := os.Mkdir(filepath.Join(liveRoot, "b"), 0o755); err != nil {
			t.Fatalf("Failed to create dir: %v", err)
		}
		res, err := newTestSweeper(liveRoot).Sweep(Config{Root: liveRoot, MaxAge: 30 * day, Excluded: []string{"b"}})
		if err != nil {
			t.Fatalf("Sweep failed: %v", err)
		}
		if res.FilesDeleted != 1 || res.DirsDeleted != 1 {
			t.Errorf("Expected 1 file + 1 dir deleted, got %d/%d", res.FilesDeleted, res.DirsDeleted)
		}
		if _, err := os.Stat(filepath.Join(liveRoot, "b")); err != nil {
			t.Errorf("Excluded dir must survive: %v", err)
		}
	})

	t.Run("dry-run", func(t *testing.T) {
		cfg.DryRun = true
		res, err := newTestSweeper(root).Sweep(cfg)
		if err != nil {
			t.Fatalf("Sweep failed: %v", err)
		}
		if res.FilesDeleted != 0 || res.DirsDeleted != 0 {
			t.Errorf("Dry run must not delete, got %d/%d", res.FilesDeleted, res.DirsDeleted)
		}
		files, dirs := res.Candidates()
		if files != 1 || dirs != 1 {
			t.Errorf("Expected 1 file + 1 dir candidate, got %d/%d", files, dirs)
		}
		if _, err := os.Stat(filepath.Join(root, "a", "old.txt")); err != nil {
			t.Errorf("Dry run mutated the tree: %v", err)
		}
	})
}
