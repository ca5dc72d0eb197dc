package statcache

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/littlematchboy/gitstats/pkg/persist"
)

func TestStore_GetPutAndStats(t *testing.T) {
	t.Parallel()

	s := New()

	_, ok := s.Get(FilesInTree, "tree1")
	assert.False(t, ok)

	s.Put(FilesInTree, "tree1", 12)
	s.Put(LinesInBlob, "blob1", 300)
	s.Put(Namespace("bogus"), "x", 1)

	v, ok := s.Get(FilesInTree, "tree1")
	require.True(t, ok)
	assert.Equal(t, 12, v)

	_, ok = s.Get(LinesInBlob, "tree1")
	assert.False(t, ok, "namespaces are independent")

	assert.Equal(t, NamespaceStats{Hits: 1, Misses: 1}, s.Stats(FilesInTree))
	assert.Equal(t, NamespaceStats{Misses: 1}, s.Stats(LinesInBlob))
	assert.Equal(t, 1, s.Len(FilesInTree))
	assert.Equal(t, 1, s.Len(LinesInBlob))
}

func TestStore_MergeKeepsExistingValues(t *testing.T) {
	t.Parallel()

	a := New()
	a.Put(LinesInBlob, "b1", 10)

	b := New()
	b.Put(LinesInBlob, "b1", 99)
	b.Put(LinesInBlob, "b2", 20)
	b.Put(FilesInTree, "t1", 3)

	a.Merge(b)
	a.Merge(nil)

	v, _ := a.Get(LinesInBlob, "b1")
	assert.Equal(t, 10, v)

	v, _ = a.Get(LinesInBlob, "b2")
	assert.Equal(t, 20, v)
	assert.Equal(t, []string{"t1"}, a.Keys(FilesInTree))
}

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "gitstats.cache")

	s := New()
	s.Put(FilesInTree, "t1", 1)
	s.Put(FilesInTree, "t2", 2)
	s.Put(LinesInBlob, "b1", 100)

	require.NoError(t, s.Save(path))

	loaded := Load(path, nil)

	assert.Equal(t, s.Keys(FilesInTree), loaded.Keys(FilesInTree))
	assert.Equal(t, s.Keys(LinesInBlob), loaded.Keys(LinesInBlob))

	for _, ns := range []Namespace{FilesInTree, LinesInBlob} {
		for _, k := range s.Keys(ns) {
			want, _ := s.Get(ns, k)
			got, ok := loaded.Get(ns, k)
			require.True(t, ok)
			assert.Equal(t, want, got)
		}
	}
}

func TestStore_SaveIsAdditive(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "gitstats.cache")

	first := New()
	first.Put(LinesInBlob, "old", 7)
	require.NoError(t, first.Save(path))

	// A store that never loaded the file must not drop its entries.
	second := New()
	second.Put(LinesInBlob, "new", 8)
	require.NoError(t, second.Save(path))

	loaded := Load(path, nil)
	assert.Equal(t, []string{"new", "old"}, loaded.Keys(LinesInBlob))
}

func TestLoad_MissingFileYieldsEmptyStore(t *testing.T) {
	t.Parallel()

	s := Load(filepath.Join(t.TempDir(), "absent.cache"), nil)

	require.NotNil(t, s)
	assert.Zero(t, s.Len(FilesInTree))
	assert.Zero(t, s.Len(LinesInBlob))
}

func TestLoad_CorruptFileYieldsEmptyStore(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "gitstats.cache")
	require.NoError(t, os.WriteFile(path, []byte("definitely not a cache"), 0o600))

	s := Load(path, nil)

	require.NotNil(t, s)
	assert.Zero(t, s.Len(FilesInTree))
	assert.Zero(t, s.Len(LinesInBlob))
}

func TestLoad_LegacyUncompressedFormat(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "gitstats.cache")

	legacy := legacyRecord{
		"files_in_tree": {"t1": 5},
		"lines_in_blob": {"b1": 50, "b2": 60},
	}

	var buf bytes.Buffer
	require.NoError(t, persist.NewGobCodec().Encode(&buf, legacy))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))

	s := Load(path, nil)

	v, ok := s.Get(FilesInTree, "t1")
	require.True(t, ok)
	assert.Equal(t, 5, v)
	assert.Equal(t, 2, s.Len(LinesInBlob))

	// Saving upgrades the file to the compressed format.
	require.NoError(t, s.Save(path))

	upgraded, err := read(path)
	require.NoError(t, err)
	assert.Equal(t, 2, upgraded.Len(LinesInBlob))
}

func TestLoad_NewerSchemaIsRejected(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "gitstats.cache")

	rec := record{Version: SchemaVersion + 1, FilesInTree: map[string]int{"t": 1}}
	require.NoError(t, persist.WriteFile(path, codec(), &rec))

	_, err := read(path)
	require.ErrorIs(t, err, ErrUnsupportedVersion)

	s := Load(path, nil)
	assert.Zero(t, s.Len(FilesInTree))
}
