package docstore

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fulmenhq/apexcat/pkg/catalog"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, fsys billy.Filesystem, p, content string) {
	t.Helper()
	require.NoError(t, fsys.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, util.WriteFile(fsys, p, []byte(content), 0o644))
}

func TestLoad_NotFound(t *testing.T) {
	s := New(memfs.New())

	_, err := s.Load("/src/catalog.json")
	require.Error(t, err)
	assert.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestLoad_ParseErrors(t *testing.T) {
	fsys := memfs.New()
	writeFile(t, fsys, "/src/broken.json", `{"title": `)
	writeFile(t, fsys, "/src/array.json", `[1, 2]`)
	s := New(fsys)

	_, err := s.Load("/src/broken.json")
	assert.ErrorIs(t, err, catalog.ErrParse)

	_, err = s.Load("/src/array.json")
	assert.ErrorIs(t, err, catalog.ErrParse)
}

func TestSave_CreatesParentsAndIndents(t *testing.T) {
	fsys := memfs.New()
	s := New(fsys)

	doc, err := catalog.ParseDocument([]byte(`{"type":"Catalog","title":"T","links":[]}`))
	require.NoError(t, err)
	require.NoError(t, s.Save("/out/projects/catalog.json", doc))

	data, err := util.ReadFile(fsys, "/out/projects/catalog.json")
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"type\": \"Catalog\",\n  \"title\": \"T\",\n  \"links\": []\n}\n", string(data))
}

func TestSave_CompactWhenIndentEmpty(t *testing.T) {
	fsys := memfs.New()
	s := New(fsys, WithIndent(""))

	doc, err := catalog.ParseDocument([]byte("{\n  \"title\": \"T\"\n}"))
	require.NoError(t, err)
	require.NoError(t, s.Save("/out/catalog.json", doc))

	data, err := util.ReadFile(fsys, "/out/catalog.json")
	require.NoError(t, err)
	assert.Equal(t, "{\"title\":\"T\"}\n", string(data))
}

func TestSaveLoad_RoundTripIsStable(t *testing.T) {
	fsys := memfs.New()
	s := New(fsys)
	src := `{"z": 1, "title": "P1", "extent": {"spatial": [1.5, 2]}, "links": [{"rel": "via", "href": "x", "type": "text/html"}]}` + "\n"
	writeFile(t, fsys, "/src/p.json", src)

	doc, err := s.Load("/src/p.json")
	require.NoError(t, err)
	require.NoError(t, s.Save("/out/p.json", doc))
	first, err := util.ReadFile(fsys, "/out/p.json")
	require.NoError(t, err)

	again, err := s.Load("/out/p.json")
	require.NoError(t, err)
	require.NoError(t, s.Save("/out/p.json", again))
	second, err := util.ReadFile(fsys, "/out/p.json")
	require.NoError(t, err)

	assert.Equal(t, string(first), string(second))
	assert.Contains(t, string(first), "\"type\": \"text/html\"")
	assert.True(t, strings.HasSuffix(string(first), "}\n") && !strings.HasSuffix(string(first), "\n\n"))
}

func TestExists(t *testing.T) {
	fsys := memfs.New()
	writeFile(t, fsys, "/src/themes/land/catalog.json", `{}`)
	s := New(fsys)

	assert.True(t, s.Exists("/src/themes/land"))
	assert.True(t, s.Exists("/src/themes/land/catalog.json"))
	assert.False(t, s.Exists("/src/themes/ocean"))
}

func TestResetDirectory_ExistingNonEmpty(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "some_dir")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "nested"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "file"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "nested", "file"), []byte("y"), 0o644))

	s := NewOS()
	require.NoError(t, s.ResetDirectory(filepath.ToSlash(dir)))

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestResetDirectory_Missing(t *testing.T) {
	fsys := memfs.New()
	s := New(fsys)

	require.NoError(t, s.ResetDirectory("/out/themes"))
	assert.True(t, s.Exists("/out/themes"))
}

func TestCopySubtree(t *testing.T) {
	fsys := memfs.New()
	writeFile(t, fsys, "/src/themes/land/catalog.json", `{"title":"Land"}`)
	writeFile(t, fsys, "/src/themes/land/assets/logo.svg", `<svg/>`)
	writeFile(t, fsys, "/src/themes/land/notes.tmp", `scratch`)
	s := New(fsys, WithSkipPatterns([]string{"*.tmp"}))

	require.NoError(t, s.CopySubtree("/src/themes/land", "/out/themes/land"))

	data, err := util.ReadFile(fsys, "/out/themes/land/catalog.json")
	require.NoError(t, err)
	assert.Equal(t, `{"title":"Land"}`, string(data), "copy must be verbatim")

	data, err = util.ReadFile(fsys, "/out/themes/land/assets/logo.svg")
	require.NoError(t, err)
	assert.Equal(t, `<svg/>`, string(data))

	assert.False(t, s.Exists("/out/themes/land/notes.tmp"))
}

func TestCopySubtree_MissingSource(t *testing.T) {
	s := New(memfs.New())

	err := s.CopySubtree("/src/themes/ocean", "/out/themes/ocean")
	assert.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestValidatePatterns(t *testing.T) {
	assert.NoError(t, ValidatePatterns([]string{"**/*.tmp", ".git/**"}))
	assert.Error(t, ValidatePatterns([]string{"[unclosed"}))
}
