package manager

import (
	stderrors "errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/duynguyendang/pyscope/pkg/analyzer"
	"github.com/duynguyendang/pyscope/pkg/common/errors"
)

func TestPutAndGet(t *testing.T) {
	sm := NewSourceManager(t.TempDir())

	rev, err := sm.Put("app.py", "x = 1\n")
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if rev != 1 {
		t.Errorf("first revision = %d, want 1", rev)
	}

	text, rev, err := sm.Get("app.py")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if text != "x = 1\n" || rev != 1 {
		t.Errorf("got %q rev %d", text, rev)
	}
}

func TestPutReplacesWholesale(t *testing.T) {
	sm := NewSourceManager(t.TempDir())

	sm.Put("app.py", "old\n")
	rev, _ := sm.Put("app.py", "new\n")
	if rev != 2 {
		t.Errorf("second upload revision = %d, want 2", rev)
	}

	text, _, _ := sm.Get("app.py")
	if text != "new\n" {
		t.Errorf("got %q, want replacement", text)
	}
}

func TestGetUnknownFile(t *testing.T) {
	sm := NewSourceManager(t.TempDir())

	_, _, err := sm.Get("missing.py")
	if !stderrors.Is(err, errors.ErrUnknownFile) {
		t.Fatalf("expected ErrUnknownFile, got %v", err)
	}
}

func TestGetFallsBackToDisk(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "seed.py"), []byte("seeded\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	sm := NewSourceManager(dir)
	text, rev, err := sm.Get("seed.py")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if text != "seeded\n" || rev != 1 {
		t.Errorf("got %q rev %d", text, rev)
	}
}

func TestPatch(t *testing.T) {
	sm := NewSourceManager(t.TempDir())
	sm.Put("app.py", "a\nb\nc\n")

	text, rev, err := sm.Patch("app.py", 2, 2, "B\n", 0)
	if err != nil {
		t.Fatalf("Patch failed: %v", err)
	}
	if text != "a\nB\nc\n" {
		t.Errorf("got %q", text)
	}
	if rev != 2 {
		t.Errorf("revision = %d, want 2", rev)
	}

	// Patch survives round-trip through Get.
	got, _, _ := sm.Get("app.py")
	if got != text {
		t.Errorf("Get after Patch = %q", got)
	}
}

func TestPatchInvalidRangeLeavesTextUntouched(t *testing.T) {
	sm := NewSourceManager(t.TempDir())
	sm.Put("app.py", "a\nb\n")

	_, _, err := sm.Patch("app.py", 1, 99, "x\n", 0)
	if !stderrors.Is(err, errors.ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange, got %v", err)
	}

	text, rev, _ := sm.Get("app.py")
	if text != "a\nb\n" || rev != 1 {
		t.Errorf("failed patch must not commit: %q rev %d", text, rev)
	}
}

func TestPatchUnknownFile(t *testing.T) {
	sm := NewSourceManager(t.TempDir())

	_, _, err := sm.Patch("missing.py", 1, 1, "x\n", 0)
	if !stderrors.Is(err, errors.ErrUnknownFile) {
		t.Fatalf("expected ErrUnknownFile, got %v", err)
	}
}

func TestPatchStaleRevision(t *testing.T) {
	sm := NewSourceManager(t.TempDir())
	sm.Put("app.py", "a\nb\n")
	sm.Patch("app.py", 1, 1, "A\n", 0) // now at revision 2

	_, _, err := sm.Patch("app.py", 2, 2, "x\n", 1)
	if !stderrors.Is(err, errors.ErrStaleRevision) {
		t.Fatalf("expected ErrStaleRevision, got %v", err)
	}

	// Matching revision goes through.
	_, rev, err := sm.Patch("app.py", 2, 2, "x\n", 2)
	if err != nil {
		t.Fatalf("Patch with matching revision failed: %v", err)
	}
	if rev != 3 {
		t.Errorf("revision = %d, want 3", rev)
	}
}

func TestConcurrentPatchesSerialize(t *testing.T) {
	sm := NewSourceManager(t.TempDir())
	sm.Put("app.py", "0\n")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, _, err := sm.Patch("app.py", 1, 1, "n\n", 0); err != nil {
				t.Errorf("Patch failed: %v", err)
			}
		}()
	}
	wg.Wait()

	_, rev, _ := sm.Get("app.py")
	if rev != 21 {
		t.Errorf("every patch must commit exactly once, revision = %d, want 21", rev)
	}
}

func TestList(t *testing.T) {
	sm := NewSourceManager(t.TempDir())
	sm.Put("a.py", "1\n2\n")
	sm.Put("b.py", "1\n")

	infos := sm.List()
	if len(infos) != 2 {
		t.Fatalf("expected 2 records, got %d", len(infos))
	}
	byID := map[string]FileInfo{}
	for _, info := range infos {
		byID[info.ID] = info
	}
	if byID["a.py"].Lines != 2 || byID["b.py"].Lines != 1 {
		t.Errorf("line counts wrong: %+v", infos)
	}
}

func TestAnalysisCacheKeyedByRevision(t *testing.T) {
	sm := NewSourceManager(t.TempDir())
	sm.Put("app.py", "x = 1\n")

	a := &Analysis{Tree: analyzer.NewTree(), Index: analyzer.Index{}}
	sm.StoreAnalysis("app.py", 1, a)

	if got, ok := sm.CachedAnalysis("app.py", 1); !ok || got != a {
		t.Error("cached analysis not returned for its revision")
	}

	sm.Patch("app.py", 1, 1, "x = 2\n", 0)
	if _, ok := sm.CachedAnalysis("app.py", 2); ok {
		t.Error("new revision must miss the cache")
	}
}
