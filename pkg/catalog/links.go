package catalog

import (
	"fmt"
	"path"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Link relations the builder acts on.
const (
	RelRoot  = "root"
	RelChild = "child"
)

// Title markers identifying what a link points at. Matching is a lowercase
// substring test, the convention used by the upstream metadata tree.
const (
	themeMarker      = "theme: "
	experimentMarker = "experiment: "
	workflowMarker   = "workflow: "
)

// Titles of the two top-level groupings kept in the root catalogue.
var topLevelTitles = map[string]bool{
	"themes":   true,
	"projects": true,
}

func lower(s string) string {
	return cases.Lower(language.Und).String(s)
}

// FilterProjectLinks drops links whose title marks them as experiment or
// workflow references. Untitled links are always kept.
func FilterProjectLinks(links []Link) []Link {
	out := make([]Link, 0, len(links))
	for _, l := range links {
		t := lower(l.Title())
		if strings.Contains(t, experimentMarker) || strings.Contains(t, workflowMarker) {
			continue
		}
		out = append(out, l)
	}
	return out
}

// ExtractThemeIDs returns, in link order, the theme id referenced by every
// link titled "Theme: ...". The id is the path segment following "themes" in
// the link target. A themed link without such a segment is reported as a
// consistency error.
func ExtractThemeIDs(links []Link) ([]string, error) {
	var ids []string
	for _, l := range links {
		if !strings.Contains(lower(l.Title()), themeMarker) {
			continue
		}
		id, ok := themeSegment(l.Href())
		if !ok {
			return nil, ConsistencyError(l.Href(), fmt.Errorf("theme link %q has no themes/<id> segment", l.Title()))
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func themeSegment(href string) (string, bool) {
	segs := strings.Split(href, "/")
	for i := 0; i+1 < len(segs); i++ {
		if segs[i] == "themes" && segs[i+1] != "" {
			return segs[i+1], true
		}
	}
	return "", false
}

// FilterThemeCatalogueLinks drops root and child links from a theme's local
// catalogue. The caller appends fresh child links for the surviving projects.
func FilterThemeCatalogueLinks(links []Link) []Link {
	out := make([]Link, 0, len(links))
	for _, l := range links {
		if l.Rel() == RelRoot || l.Rel() == RelChild {
			continue
		}
		out = append(out, l)
	}
	return out
}

// FilterThemeTreeLinks keeps the theme-tree catalogue links that point at a
// theme present in index. Root links are dropped.
func FilterThemeTreeLinks(links []Link, index *ThemeIndex) []Link {
	out := make([]Link, 0, len(links))
	for _, l := range links {
		if l.Rel() == RelRoot {
			continue
		}
		if id := CollectionID(l.Href()); id != "" && index.Has(id) {
			out = append(out, l)
		}
	}
	return out
}

// FilterRootLinks keeps non-child links plus the child links for the two
// top-level groupings ("themes" and "projects", any case). Root links are
// dropped like everywhere else in the rebuilt tree.
func FilterRootLinks(links []Link) []Link {
	out := make([]Link, 0, len(links))
	for _, l := range links {
		switch l.Rel() {
		case RelRoot:
			continue
		case RelChild:
			if !topLevelTitles[lower(l.Title())] {
				continue
			}
		}
		out = append(out, l)
	}
	return out
}

// CollectionID derives a project or theme id from the href of its document:
// the name of the directory holding it. "./project-1/collection.json" and
// "projects/project-1/collection.json" both yield "project-1". It returns ""
// when the href names no directory.
func CollectionID(href string) string {
	dir := path.Dir(path.Clean(href))
	base := path.Base(dir)
	switch base {
	case ".", "..", "/", "":
		return ""
	}
	return base
}
