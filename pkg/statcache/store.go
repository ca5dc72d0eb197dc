// Package statcache memoizes expensive per-revision and per-blob counts
// across runs. Keys are content-addressed git object ids, so entries never
// go stale and a cache file from any earlier run is a valid starting point.
package statcache

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"slices"

	"github.com/littlematchboy/gitstats/pkg/persist"
)

// Namespace selects one of the cache's independent key spaces.
type Namespace string

const (
	// FilesInTree maps a revision snapshot (tree id) to its file count.
	FilesInTree Namespace = "files_in_tree"
	// LinesInBlob maps a blob id to its line count.
	LinesInBlob Namespace = "lines_in_blob"
)

// SchemaVersion is written into every cache file.
const SchemaVersion = 2

// ErrUnsupportedVersion is returned for cache files written by a newer schema.
var ErrUnsupportedVersion = errors.New("unsupported cache schema version")

// record is the on-disk representation of the current format.
type record struct {
	Version     int
	FilesInTree map[string]int
	LinesInBlob map[string]int
}

// legacyRecord is the uncompressed format of earlier releases.
type legacyRecord map[string]map[string]int

// NamespaceStats counts lookups against one namespace.
type NamespaceStats struct {
	Hits   int64
	Misses int64
}

// Store is an in-memory cache with two typed namespaces. It is not safe for
// concurrent use: only the controlling goroutine reads and writes it.
type Store struct {
	filesInTree map[string]int
	linesInBlob map[string]int
	stats       map[Namespace]*NamespaceStats
}

// New creates an empty store.
func New() *Store {
	return &Store{
		filesInTree: map[string]int{},
		linesInBlob: map[string]int{},
		stats: map[Namespace]*NamespaceStats{
			FilesInTree: {},
			LinesInBlob: {},
		},
	}
}

func (s *Store) namespace(ns Namespace) map[string]int {
	switch ns {
	case FilesInTree:
		return s.filesInTree
	case LinesInBlob:
		return s.linesInBlob
	default:
		return nil
	}
}

// Get returns the cached value for key and records a hit or a miss.
func (s *Store) Get(ns Namespace, key string) (int, bool) {
	value, ok := s.namespace(ns)[key]

	if st := s.stats[ns]; st != nil {
		if ok {
			st.Hits++
		} else {
			st.Misses++
		}
	}

	return value, ok
}

// Put stores value under key. Unknown namespaces are ignored.
func (s *Store) Put(ns Namespace, key string, value int) {
	m := s.namespace(ns)
	if m == nil {
		return
	}

	m[key] = value
}

// Len returns the number of entries in the namespace.
func (s *Store) Len(ns Namespace) int {
	return len(s.namespace(ns))
}

// Keys returns the sorted keys of the namespace.
func (s *Store) Keys(ns Namespace) []string {
	return slices.Sorted(maps.Keys(s.namespace(ns)))
}

// Merge adds every entry of other that s does not have yet. Values already in
// s win; both sides describe the same immutable objects anyway.
func (s *Store) Merge(other *Store) {
	if other == nil {
		return
	}

	mergeMissing(s.filesInTree, other.filesInTree)
	mergeMissing(s.linesInBlob, other.linesInBlob)
}

func mergeMissing(dst, src map[string]int) {
	for k, v := range src {
		if _, ok := dst[k]; !ok {
			dst[k] = v
		}
	}
}

// Stats returns a copy of the lookup counters of a namespace.
func (s *Store) Stats(ns Namespace) NamespaceStats {
	if st := s.stats[ns]; st != nil {
		return *st
	}

	return NamespaceStats{}
}

func (s *Store) toRecord() *record {
	return &record{
		Version:     SchemaVersion,
		FilesInTree: maps.Clone(s.filesInTree),
		LinesInBlob: maps.Clone(s.linesInBlob),
	}
}

func (s *Store) restore(rec *record) {
	maps.Copy(s.filesInTree, rec.FilesInTree)
	maps.Copy(s.linesInBlob, rec.LinesInBlob)
}

func codec() persist.Codec {
	return persist.NewLZ4Codec(persist.NewGobCodec())
}

// Load reads the cache file at path. It never fails: a missing or unreadable
// file yields an empty store. A file in the legacy uncompressed format is
// tried once before giving up.
func Load(path string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	store, err := read(path)
	if err == nil {
		logger.Debug("cache loaded", "path", path,
			"files_in_tree", store.Len(FilesInTree), "lines_in_blob", store.Len(LinesInBlob))

		return store
	}

	if errors.Is(err, os.ErrNotExist) {
		logger.Debug("no cache file, starting empty", "path", path)

		return New()
	}

	legacy, legacyErr := readLegacy(path)
	if legacyErr == nil {
		logger.Info("cache loaded from legacy format", "path", path)

		return legacy
	}

	logger.Warn("cache file unreadable, starting empty", "path", path, "error", errors.Join(err, legacyErr))

	return New()
}

func read(path string) (*Store, error) {
	var rec record

	err := persist.ReadFile(path, codec(), &rec)
	if err != nil {
		return nil, err
	}

	if rec.Version > SchemaVersion || rec.Version <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, rec.Version)
	}

	store := New()
	store.restore(&rec)

	return store, nil
}

func readLegacy(path string) (*Store, error) {
	var legacy legacyRecord

	err := persist.ReadFile(path, persist.NewGobCodec(), &legacy)
	if err != nil {
		return nil, fmt.Errorf("legacy format: %w", err)
	}

	store := New()
	store.restore(&record{
		FilesInTree: legacy[string(FilesInTree)],
		LinesInBlob: legacy[string(LinesInBlob)],
	})

	return store, nil
}

// Save persists the store to path. Entries already present in the file on
// disk are kept, so saving never loses anything cached before.
func (s *Store) Save(path string) error {
	merged := New()
	merged.Merge(s)

	if onDisk, err := read(path); err == nil {
		merged.Merge(onDisk)
	} else if legacy, legacyErr := readLegacy(path); legacyErr == nil {
		merged.Merge(legacy)
	}

	p := persist.NewPersister[record](path, codec())

	err := p.Save(merged.toRecord)
	if err != nil {
		return fmt.Errorf("save cache %s: %w", path, err)
	}

	return nil
}
