package catalog

import (
	"context"
	"errors"
	"fmt"
	"path"

	"github.com/fulmenhq/apexcat/pkg/logger"
	"github.com/fulmenhq/apexcat/pkg/safeio"
)

// Layout of the metadata tree, shared by source and output.
const (
	CatalogueFile  = "catalog.json"
	CollectionFile = "collection.json"
	ProjectsDir    = "projects"
	ThemesDir      = "themes"
)

// ProjectsResult is the hand-off from project selection to the theme stage.
type ProjectsResult struct {
	// KeptRefs are the catalogue hrefs of published projects, in catalogue order.
	KeptRefs []string
	// Themes maps theme ids to the kept projects referencing them.
	Themes *ThemeIndex
	// Catalogue is the projects catalogue as written to the output.
	Catalogue Document
	// Dropped lists ids rejected by the keep predicate.
	Dropped []string
	// Missing lists hrefs whose collection document did not exist.
	Missing []string
}

// BuildProjects selects the projects under sourceDir that pass the keep
// predicate and writes them, with experiment and workflow links removed, to
// targetDir/projects. That directory is cleared first. Missing project
// documents are reported to the observer and skipped; every other failure
// aborts the build.
func (b *Builder) BuildProjects(ctx context.Context, sourceDir, targetDir string, keep KeepPredicateConfig) (*ProjectsResult, error) {
	projectsTarget := path.Join(targetDir, ProjectsDir)
	if err := b.store.ResetDirectory(projectsTarget); err != nil {
		return nil, fmt.Errorf("failed to reset %s: %w", projectsTarget, err)
	}

	cataloguePath := path.Join(sourceDir, CatalogueFile)
	catalogue, err := b.store.Load(cataloguePath)
	if err != nil {
		return nil, err
	}

	predicate := keep.Predicate()
	result := &ProjectsResult{Themes: NewThemeIndex()}
	kept := make(map[string]bool)

	for _, link := range catalogue.Links() {
		if link.Rel() != RelChild {
			continue
		}

		href := link.Href()
		id := CollectionID(href)
		if id == "" {
			return nil, ConsistencyError(cataloguePath, fmt.Errorf("child link %q does not name a project directory", href))
		}
		src, err := safeio.JoinContained(sourceDir, href)
		if err != nil {
			return nil, ConsistencyError(cataloguePath, err)
		}
		dst, err := safeio.JoinContained(projectsTarget, href)
		if err != nil {
			return nil, ConsistencyError(cataloguePath, err)
		}

		doc, err := b.store.Load(src)
		if errors.Is(err, ErrNotFound) {
			b.obs.Warn("Missing project collection", logger.String("path", src))
			result.Missing = append(result.Missing, href)
			continue
		}
		if err != nil {
			return nil, err
		}

		ok, err := predicate.Keep(ctx, doc)
		if err != nil {
			return nil, fmt.Errorf("keep predicate failed for project %s: %w", id, err)
		}
		if !ok {
			b.obs.Debug("Skipping project", logger.String("project", id))
			result.Dropped = append(result.Dropped, id)
			continue
		}

		b.obs.Debug("Copying project", logger.String("project", id))
		filtered, err := doc.WithLinks(FilterProjectLinks(doc.Links()))
		if err != nil {
			return nil, fmt.Errorf("project %s: %w", id, err)
		}
		if err := b.store.Save(dst, filtered); err != nil {
			return nil, err
		}

		result.KeptRefs = append(result.KeptRefs, href)
		kept[href] = true

		ref := ProjectRef{ID: id, Title: doc.Title(), Href: href}
		if _, err := RecordProjectThemes(result.Themes, ref, doc); err != nil {
			return nil, fmt.Errorf("project %s: %w", id, err)
		}
	}

	links := make([]Link, 0, len(kept))
	for _, l := range catalogue.Links() {
		if l.Rel() != RelRoot && kept[l.Href()] {
			links = append(links, l)
		}
	}
	filteredCatalogue, err := catalogue.WithLinks(links)
	if err != nil {
		return nil, fmt.Errorf("projects catalogue: %w", err)
	}
	if err := b.store.Save(path.Join(projectsTarget, CatalogueFile), filteredCatalogue); err != nil {
		return nil, err
	}
	result.Catalogue = filteredCatalogue

	return result, nil
}
