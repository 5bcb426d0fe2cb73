package catalog

import (
	"fmt"
	"path"
	"path/filepath"

	"github.com/fulmenhq/apexcat/pkg/logger"
	"github.com/fulmenhq/apexcat/pkg/safeio"
)

// BuildThemes copies every theme in index from themeSourceDir to
// targetDir/themes and rewrites its catalogue so its child links are exactly
// the kept projects, addressed relative to projectsTargetDir. The theme-tree
// catalogue is then rebuilt to list only those themes. A theme in the index
// without a source directory is a consistency error.
func (b *Builder) BuildThemes(index *ThemeIndex, themeSourceDir, targetDir, projectsTargetDir string) error {
	themesTarget := path.Join(targetDir, ThemesDir)
	if err := b.store.ResetDirectory(themesTarget); err != nil {
		return fmt.Errorf("failed to reset %s: %w", themesTarget, err)
	}

	for _, id := range index.IDs() {
		src, err := safeio.JoinContained(themeSourceDir, id)
		if err != nil {
			return ConsistencyError(themeSourceDir, err)
		}
		if !b.store.Exists(src) {
			return ConsistencyError(src, fmt.Errorf("theme %q is referenced by kept projects but has no source directory", id))
		}
		dst := path.Join(themesTarget, id)

		b.obs.Debug("Copying theme", logger.String("theme", id))
		if err := b.store.CopySubtree(src, dst); err != nil {
			return fmt.Errorf("failed to copy theme %s: %w", id, err)
		}

		cataloguePath := path.Join(dst, CatalogueFile)
		theme, err := b.store.Load(cataloguePath)
		if err != nil {
			return err
		}

		links := FilterThemeCatalogueLinks(theme.Links())
		for _, ref := range index.Projects(id) {
			href, err := relativeHref(dst, projectLocation(projectsTargetDir, ref))
			if err != nil {
				return fmt.Errorf("theme %s: %w", id, err)
			}
			links = append(links, NewLink(RelChild, href, ref.Title))
		}

		theme, err = theme.WithLinks(links)
		if err != nil {
			return fmt.Errorf("theme %s: %w", id, err)
		}
		if err := b.store.Save(cataloguePath, theme); err != nil {
			return err
		}
	}

	catalogue, err := b.store.Load(path.Join(themeSourceDir, CatalogueFile))
	if err != nil {
		return err
	}
	catalogue, err = catalogue.WithLinks(FilterThemeTreeLinks(catalogue.Links(), index))
	if err != nil {
		return fmt.Errorf("themes catalogue: %w", err)
	}
	return b.store.Save(path.Join(themesTarget, CatalogueFile), catalogue)
}

// projectLocation is where BuildProjects wrote ref's collection document.
func projectLocation(projectsTargetDir string, ref ProjectRef) string {
	if ref.Href == "" {
		return path.Join(projectsTargetDir, ref.ID, CollectionFile)
	}
	return path.Join(projectsTargetDir, ref.Href)
}

func relativeHref(fromDir, to string) (string, error) {
	rel, err := filepath.Rel(filepath.FromSlash(fromDir), filepath.FromSlash(to))
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}
