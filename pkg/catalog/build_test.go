package catalog_test

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"sync"
	"testing"

	"github.com/fulmenhq/apexcat/pkg/catalog"
	"github.com/fulmenhq/apexcat/pkg/docstore"
	"github.com/fulmenhq/apexcat/pkg/logger"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingObserver struct {
	mu    sync.Mutex
	warns []string
}

func (r *recordingObserver) Debug(string, ...logger.Field) {}
func (r *recordingObserver) Info(string, ...logger.Field) {}
func (r *recordingObserver) Warn(msg string, fields ...logger.Field) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, f := range fields {
		msg += fmt.Sprintf(" %s=%v", f.Key, f.Value)
	}
	r.warns = append(r.warns, msg)
}

func writeFile(t *testing.T, fs billy.Filesystem, p, content string) {
	t.Helper()
	require.NoError(t, fs.MkdirAll(path.Dir(p), 0o755))
	require.NoError(t, util.WriteFile(fs, p, []byte(content), 0o644))
}

func readFile(t *testing.T, fs billy.Filesystem, p string) string {
	t.Helper()
	data, err := util.ReadFile(fs, p)
	require.NoError(t, err)
	return string(data)
}

// seedSource lays out a minimal open-science-catalog tree under /src.
func seedSource(t *testing.T, fs billy.Filesystem) {
	t.Helper()
	writeFile(t, fs, "/src/catalog.json", `{
  "type": "Catalog",
  "id": "osc",
  "title": "Open Science Catalog",
  "links": [
    {"rel": "root", "href": "./catalog.json"},
    {"rel": "child", "href": "./projects/catalog.json", "title": "Projects"},
    {"rel": "child", "href": "./themes/catalog.json", "title": "Themes"},
    {"rel": "child", "href": "./variables/catalog.json", "title": "Variables"},
    {"rel": "self", "href": "https://example.org/catalog.json"}
  ]
}`)
	writeFile(t, fs, "/src/projects/catalog.json", `{
  "id": "projects",
  "title": "Projects",
  "links": [
    {"rel": "root", "href": "../catalog.json"},
    {"rel": "child", "href": "./project-1/collection.json", "title": "P1"},
    {"rel": "child", "href": "./project-2/collection.json", "title": "P2"},
    {"rel": "parent", "href": "../catalog.json"}
  ]
}`)
	writeFile(t, fs, "/src/projects/project-1/collection.json", `{
  "type": "Collection",
  "id": "project-1",
  "title": "P1",
  "license": "public",
  "links": [
    {"rel": "root", "href": "../../catalog.json"},
    {"rel": "related", "href": "../../themes/atmosphere/catalog.json", "title": "Theme: Atmosphere"},
    {"rel": "related", "href": "../../products/p/collection.json", "title": "Experiment: Run A"},
    {"rel": "via", "href": "https://example.org/p1"}
  ]
}
`)
	writeFile(t, fs, "/src/projects/project-2/collection.json", `{
  "type": "Collection",
  "id": "project-2",
  "title": "P2",
  "license": "proprietary",
  "links": [
    {"rel": "related", "href": "../../themes/land/catalog.json", "title": "Theme: Land"}
  ]
}`)
	writeFile(t, fs, "/src/themes/catalog.json", `{
  "id": "themes",
  "title": "Themes",
  "links": [
    {"rel": "root", "href": "../catalog.json"},
    {"rel": "child", "href": "./atmosphere/catalog.json", "title": "Atmosphere"},
    {"rel": "child", "href": "./land/catalog.json", "title": "Land"}
  ]
}`)
	writeFile(t, fs, "/src/themes/atmosphere/catalog.json", `{
  "id": "atmosphere",
  "title": "Atmosphere",
  "links": [
    {"rel": "root", "href": "../../catalog.json"},
    {"rel": "parent", "href": "../catalog.json"},
    {"rel": "child", "href": "../../projects/stale/collection.json", "title": "Stale"}
  ]
}
`)
	writeFile(t, fs, "/src/themes/atmosphere/image.png", "png")
	writeFile(t, fs, "/src/themes/land/catalog.json", `{"id": "land", "title": "Land", "links": []}`)
}

func assertSingleTrailingNewline(t *testing.T, content string) {
	t.Helper()
	assert.True(t, strings.HasSuffix(content, "}\n"), "output should end with a newline: %q", content)
	assert.False(t, strings.HasSuffix(content, "\n\n"), "output should end with exactly one newline: %q", content)
}

func buildAll(t *testing.T, b *catalog.Builder) *catalog.ProjectsResult {
	t.Helper()
	res, err := b.BuildProjects(context.Background(), "/src/projects", "/out", catalog.KeepPredicateConfig{LicenseSentinel: "proprietary"})
	require.NoError(t, err)
	require.NoError(t, b.BuildThemes(res.Themes, "/src/themes", "/out", "/out/projects"))
	require.NoError(t, b.BuildMainCatalogue("/src/catalog.json", "/out/catalog.json", ""))
	return res
}

func TestBuildProjects_LicenseScenario(t *testing.T) {
	fs := memfs.New()
	seedSource(t, fs)
	b := catalog.NewBuilder(docstore.New(fs))

	res, err := b.BuildProjects(context.Background(), "/src/projects", "/out", catalog.KeepPredicateConfig{LicenseSentinel: "proprietary"})
	require.NoError(t, err)

	assert.Equal(t, []string{"./project-1/collection.json"}, res.KeptRefs)
	assert.Equal(t, []string{"atmosphere"}, res.Themes.IDs())
	assert.Equal(t, []catalog.ProjectRef{{ID: "project-1", Title: "P1", Href: "./project-1/collection.json"}}, res.Themes.Projects("atmosphere"))
	assert.Equal(t, []string{"project-2"}, res.Dropped)
	assert.Empty(t, res.Missing)

	_, err = fs.Stat("/out/projects/project-2")
	assert.Error(t, err, "dropped project must not be written")

	project, err := catalog.ParseDocument([]byte(readFile(t, fs, "/out/projects/project-1/collection.json")))
	require.NoError(t, err)
	assert.Equal(t, []string{"../../catalog.json", "../../themes/atmosphere/catalog.json", "https://example.org/p1"}, hrefs(project.Links()))
	assert.Equal(t, "public", project.License())
	assertSingleTrailingNewline(t, readFile(t, fs, "/out/projects/project-1/collection.json"))

	assert.Equal(t, []string{"./project-1/collection.json"}, hrefs(res.Catalogue.Links()))
	written, err := catalog.ParseDocument([]byte(readFile(t, fs, "/out/projects/catalog.json")))
	require.NoError(t, err)
	assert.Equal(t, hrefs(res.Catalogue.Links()), hrefs(written.Links()))
}

func TestBuildProjects_ResetsTarget(t *testing.T) {
	fs := memfs.New()
	seedSource(t, fs)
	writeFile(t, fs, "/out/projects/leftover/collection.json", `{}`)

	_, err := catalog.NewBuilder(docstore.New(fs)).BuildProjects(context.Background(), "/src/projects", "/out", catalog.KeepPredicateConfig{})
	require.NoError(t, err)

	_, err = fs.Stat("/out/projects/leftover")
	assert.Error(t, err)
}

func TestBuildProjects_MissingProjectWarns(t *testing.T) {
	fs := memfs.New()
	seedSource(t, fs)
	require.NoError(t, util.RemoveAll(fs, "/src/projects/project-1"))
	obs := &recordingObserver{}

	res, err := catalog.NewBuilder(docstore.New(fs), catalog.WithObserver(obs)).
		BuildProjects(context.Background(), "/src/projects", "/out", catalog.KeepPredicateConfig{})
	require.NoError(t, err)

	assert.Empty(t, res.KeptRefs)
	assert.Equal(t, []string{"./project-1/collection.json"}, res.Missing)
	require.Len(t, obs.warns, 1)
	assert.Contains(t, obs.warns[0], "/src/projects/project-1/collection.json")
	assert.Empty(t, res.Catalogue.Links())
}

func TestBuildProjects_MissingCatalogueIsFatal(t *testing.T) {
	fs := memfs.New()

	_, err := catalog.NewBuilder(docstore.New(fs)).BuildProjects(context.Background(), "/src/projects", "/out", catalog.KeepPredicateConfig{})
	assert.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestBuildProjects_MalformedProjectIsFatal(t *testing.T) {
	fs := memfs.New()
	seedSource(t, fs)
	writeFile(t, fs, "/src/projects/project-2/collection.json", `{"title": `)

	_, err := catalog.NewBuilder(docstore.New(fs)).BuildProjects(context.Background(), "/src/projects", "/out", catalog.KeepPredicateConfig{})
	assert.ErrorIs(t, err, catalog.ErrParse)
}

func TestBuildProjects_EscapingHrefIsConsistencyError(t *testing.T) {
	fs := memfs.New()
	writeFile(t, fs, "/src/projects/catalog.json", `{"links": [{"rel": "child", "href": "../../etc/collection.json"}]}`)

	_, err := catalog.NewBuilder(docstore.New(fs)).BuildProjects(context.Background(), "/src/projects", "/out", catalog.KeepPredicateConfig{})
	assert.ErrorIs(t, err, catalog.ErrConsistency)
}

func TestBuildProjects_PredicateError(t *testing.T) {
	fs := memfs.New()
	seedSource(t, fs)
	boom := errors.New("policy unavailable")
	keep := catalog.KeepPredicateConfig{Policy: catalog.KeepFunc(func(context.Context, catalog.Document) (bool, error) {
		return false, boom
	})}

	_, err := catalog.NewBuilder(docstore.New(fs)).BuildProjects(context.Background(), "/src/projects", "/out", keep)
	assert.ErrorIs(t, err, boom)
}

func TestBuildThemes(t *testing.T) {
	fs := memfs.New()
	seedSource(t, fs)
	b := catalog.NewBuilder(docstore.New(fs))
	res, err := b.BuildProjects(context.Background(), "/src/projects", "/out", catalog.KeepPredicateConfig{})
	require.NoError(t, err)

	require.NoError(t, b.BuildThemes(res.Themes, "/src/themes", "/out", "/out/projects"))

	assert.Equal(t, "png", readFile(t, fs, "/out/themes/atmosphere/image.png"))
	_, err = fs.Stat("/out/themes/land")
	assert.Error(t, err, "themes without kept projects are not copied")

	theme, err := catalog.ParseDocument([]byte(readFile(t, fs, "/out/themes/atmosphere/catalog.json")))
	require.NoError(t, err)
	links := theme.Links()
	require.Len(t, links, 2)
	assert.Equal(t, "parent", links[0].Rel())
	assert.Equal(t, "child", links[1].Rel())
	assert.Equal(t, "../../projects/project-1/collection.json", links[1].Href())
	assert.Equal(t, "P1", links[1].Title())
	assertSingleTrailingNewline(t, readFile(t, fs, "/out/themes/atmosphere/catalog.json"))

	tree, err := catalog.ParseDocument([]byte(readFile(t, fs, "/out/themes/catalog.json")))
	require.NoError(t, err)
	assert.Equal(t, []string{"./atmosphere/catalog.json"}, hrefs(tree.Links()))
}

func TestBuildThemes_MissingThemeSource(t *testing.T) {
	fs := memfs.New()
	seedSource(t, fs)
	index := catalog.NewThemeIndex()
	index.Add("ocean", catalog.ProjectRef{ID: "project-1", Title: "P1"})

	err := catalog.NewBuilder(docstore.New(fs)).BuildThemes(index, "/src/themes", "/out", "/out/projects")
	assert.ErrorIs(t, err, catalog.ErrConsistency)
}

func TestBuildThemes_MissingThemeCatalogue(t *testing.T) {
	fs := memfs.New()
	seedSource(t, fs)
	require.NoError(t, fs.Remove("/src/themes/atmosphere/catalog.json"))
	index := catalog.NewThemeIndex()
	index.Add("atmosphere", catalog.ProjectRef{ID: "project-1", Title: "P1"})

	err := catalog.NewBuilder(docstore.New(fs)).BuildThemes(index, "/src/themes", "/out", "/out/projects")
	assert.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestBuildThemes_RefWithoutHref(t *testing.T) {
	fs := memfs.New()
	seedSource(t, fs)
	index := catalog.NewThemeIndex()
	index.Add("land", catalog.ProjectRef{ID: "project-9", Title: "P9"})

	require.NoError(t, catalog.NewBuilder(docstore.New(fs)).BuildThemes(index, "/src/themes", "/out", "/out/projects"))

	theme, err := catalog.ParseDocument([]byte(readFile(t, fs, "/out/themes/land/catalog.json")))
	require.NoError(t, err)
	assert.Equal(t, []string{"../../projects/project-9/collection.json"}, hrefs(theme.Links()))
}

func TestBuildMainCatalogue(t *testing.T) {
	fs := memfs.New()
	seedSource(t, fs)

	require.NoError(t, catalog.NewBuilder(docstore.New(fs)).BuildMainCatalogue("/src/catalog.json", "/out/catalog.json", ""))

	root, err := catalog.ParseDocument([]byte(readFile(t, fs, "/out/catalog.json")))
	require.NoError(t, err)
	assert.Equal(t, catalog.DefaultTitle, root.Title())
	assert.Equal(t, "osc", root.Get("id").String())
	assert.Equal(t, []string{"./projects/catalog.json", "./themes/catalog.json", "https://example.org/catalog.json"}, hrefs(root.Links()))
}

func TestBuildMainCatalogue_CustomTitleAndMissingSource(t *testing.T) {
	fs := memfs.New()
	seedSource(t, fs)
	b := catalog.NewBuilder(docstore.New(fs))

	require.NoError(t, b.BuildMainCatalogue("/src/catalog.json", "/out/catalog.json", "Mirror"))
	root, err := catalog.ParseDocument([]byte(readFile(t, fs, "/out/catalog.json")))
	require.NoError(t, err)
	assert.Equal(t, "Mirror", root.Title())

	err = b.BuildMainCatalogue("/src/nope.json", "/out/catalog.json", "")
	assert.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestBuild_OutputLinksResolve(t *testing.T) {
	fs := memfs.New()
	seedSource(t, fs)
	buildAll(t, catalog.NewBuilder(docstore.New(fs)))

	// every child link in the rebuilt theme and project catalogues points at a written document
	for _, p := range []string{"/out/projects/catalog.json", "/out/themes/catalog.json", "/out/themes/atmosphere/catalog.json"} {
		doc, err := catalog.ParseDocument([]byte(readFile(t, fs, p)))
		require.NoError(t, err)
		for _, l := range doc.Links() {
			if l.Rel() != catalog.RelChild {
				continue
			}
			_, err := fs.Stat(path.Join(path.Dir(p), l.Href()))
			assert.NoError(t, err, "%s -> %s", p, l.Href())
		}
	}
}

func TestBuild_Idempotent(t *testing.T) {
	fs := memfs.New()
	seedSource(t, fs)
	b := catalog.NewBuilder(docstore.New(fs))

	files := []string{
		"/out/catalog.json",
		"/out/projects/catalog.json",
		"/out/projects/project-1/collection.json",
		"/out/themes/catalog.json",
		"/out/themes/atmosphere/catalog.json",
	}

	buildAll(t, b)
	first := make(map[string]string, len(files))
	for _, f := range files {
		first[f] = readFile(t, fs, f)
	}

	buildAll(t, b)
	for _, f := range files {
		assert.Equal(t, first[f], readFile(t, fs, f), f)
	}
}
