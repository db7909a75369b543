package manager

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/duynguyendang/pyscope/pkg/analyzer"
	"github.com/duynguyendang/pyscope/pkg/common/errors"
	"github.com/duynguyendang/pyscope/pkg/patch"
)

// MaxCachedAnalyses bounds the analysis result cache. Keys include the
// record revision, so a patch naturally invalidates older entries.
const MaxCachedAnalyses = 64

// FileInfo is the listing view of a stored source record.
type FileInfo struct {
	ID       string `json:"id"`
	Revision int64  `json:"revision"`
	Lines    int    `json:"lines"`
}

// Analysis bundles the outputs of one pipeline run.
type Analysis struct {
	Tree  *analyzer.Tree
	Index analyzer.Index
}

// record is one file's authoritative current text. Each record has its own
// mutex so patches against the same file serialize while different files
// proceed independently.
type record struct {
	mu       sync.Mutex
	text     string
	revision int64
}

// SourceManager owns the process-wide source store: the latest full text per
// file id, persisted to disk under baseDir as the fallback copy, plus an LRU
// of analysis results.
type SourceManager struct {
	baseDir string

	mu      sync.RWMutex
	records map[string]*record

	analyses *lru.Cache[string, *Analysis]
}

// NewSourceManager creates a SourceManager rooted at baseDir. baseDir may be
// empty, in which case nothing is persisted and records live in memory only.
func NewSourceManager(baseDir string) *SourceManager {
	cache, _ := lru.New[string, *Analysis](MaxCachedAnalyses)
	return &SourceManager{
		baseDir:  baseDir,
		records:  make(map[string]*record),
		analyses: cache,
	}
}

// Put stores text as the new source record for id, replacing any previous
// record wholesale, and returns the new revision.
func (sm *SourceManager) Put(id, text string) (int64, error) {
	rec := sm.record(id)

	rec.mu.Lock()
	defer rec.mu.Unlock()

	if err := sm.persist(id, text); err != nil {
		return 0, err
	}
	rec.text = text
	rec.revision++
	return rec.revision, nil
}

// Get returns the current text and revision for id. When the record is not
// in memory it falls back to the persisted copy on disk; with neither,
// errors.ErrUnknownFile.
func (sm *SourceManager) Get(id string) (string, int64, error) {
	rec := sm.record(id)

	rec.mu.Lock()
	defer rec.mu.Unlock()

	if rec.revision == 0 {
		text, err := sm.load(id)
		if err != nil {
			return "", 0, err
		}
		rec.text = text
		rec.revision = 1
	}
	return rec.text, rec.revision, nil
}

// Patch atomically replaces lines [start, end] of the record for id. When
// expectedRevision is non-zero it must match the stored revision, otherwise
// errors.ErrStaleRevision — the caller computed its line numbers from an
// older text and must re-analyze. On any failure the stored text is left
// untouched.
func (sm *SourceManager) Patch(id string, start, end int, replacement string, expectedRevision int64) (string, int64, error) {
	rec := sm.record(id)

	rec.mu.Lock()
	defer rec.mu.Unlock()

	if rec.revision == 0 {
		text, err := sm.load(id)
		if err != nil {
			return "", 0, err
		}
		rec.text = text
		rec.revision = 1
	}

	if expectedRevision != 0 && expectedRevision != rec.revision {
		return "", 0, fmt.Errorf("%w: have revision %d, stored revision is %d",
			errors.ErrStaleRevision, expectedRevision, rec.revision)
	}

	newText, err := patch.Apply(rec.text, start, end, replacement)
	if err != nil {
		return "", 0, err
	}
	if err := sm.persist(id, newText); err != nil {
		return "", 0, err
	}

	rec.text = newText
	rec.revision++
	return newText, rec.revision, nil
}

// List returns every record currently known in memory.
func (sm *SourceManager) List() []FileInfo {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	infos := make([]FileInfo, 0, len(sm.records))
	for id, rec := range sm.records {
		rec.mu.Lock()
		if rec.revision > 0 {
			infos = append(infos, FileInfo{ID: id, Revision: rec.revision, Lines: patch.LineCount(rec.text)})
		}
		rec.mu.Unlock()
	}
	return infos
}

// CachedAnalysis returns a prior analysis for this id+revision, if any.
func (sm *SourceManager) CachedAnalysis(id string, revision int64) (*Analysis, bool) {
	return sm.analyses.Get(analysisKey(id, revision))
}

// StoreAnalysis caches an analysis result for this id+revision.
func (sm *SourceManager) StoreAnalysis(id string, revision int64, a *Analysis) {
	sm.analyses.Add(analysisKey(id, revision), a)
}

func analysisKey(id string, revision int64) string {
	return fmt.Sprintf("%s@%d", id, revision)
}

// record returns the entry for id, creating it under the map lock if needed.
func (sm *SourceManager) record(id string) *record {
	sm.mu.RLock()
	rec, ok := sm.records[id]
	sm.mu.RUnlock()
	if ok {
		return rec
	}

	sm.mu.Lock()
	defer sm.mu.Unlock()
	if rec, ok = sm.records[id]; ok {
		return rec
	}
	rec = &record{}
	sm.records[id] = rec
	return rec
}

func (sm *SourceManager) persist(id, text string) error {
	if sm.baseDir == "" {
		return nil
	}
	if err := os.MkdirAll(sm.baseDir, 0o755); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}
	path := sm.recordPath(id)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(text), 0o644); err != nil {
		return fmt.Errorf("failed to persist %s: %w", id, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to persist %s: %w", id, err)
	}
	return nil
}

func (sm *SourceManager) load(id string) (string, error) {
	if sm.baseDir == "" {
		return "", fmt.Errorf("%w: %s", errors.ErrUnknownFile, id)
	}
	data, err := os.ReadFile(sm.recordPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", errors.ErrUnknownFile, id)
		}
		return "", fmt.Errorf("failed to read persisted copy of %s: %w", id, err)
	}
	return string(data), nil
}

// recordPath maps a file id to a flat on-disk name; ids may contain path
// separators, so they are escaped rather than joined.
func (sm *SourceManager) recordPath(id string) string {
	return filepath.Join(sm.baseDir, url.PathEscape(id))
}
