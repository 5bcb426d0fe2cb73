// Package pipeline runs a full catalogue rebuild: project selection, theme
// regrouping and the root catalogue.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/fulmenhq/apexcat/pkg/catalog"
	"github.com/fulmenhq/apexcat/pkg/docstore"
	"github.com/fulmenhq/apexcat/pkg/logger"
	"github.com/fulmenhq/apexcat/pkg/safeio"
	"github.com/google/uuid"
)

// ErrOverlap is returned when the target tree would be written inside the
// source tree or vice versa.
var ErrOverlap = errors.New("source and target directories overlap")

// Options configures a run.
type Options struct {
	SourceDir string
	TargetDir string
	// Title of the published root catalogue; catalog.DefaultTitle when empty.
	Title string
	Keep  catalog.KeepPredicateConfig
	// Store defaults to the host filesystem with default formatting.
	Store catalog.Store
	Log   *logger.Logger
}

// ThemeSummary lists the projects published under one theme.
type ThemeSummary struct {
	ID       string               `json:"id"`
	Projects []catalog.ProjectRef `json:"projects"`
}

// Summary describes a completed run.
type Summary struct {
	RunID     string         `json:"run_id"`
	StartedAt time.Time      `json:"started_at"`
	Duration  time.Duration  `json:"duration"`
	SourceDir string         `json:"source_dir"`
	TargetDir string         `json:"target_dir"`
	Projects  []string       `json:"projects"`
	Dropped   []string       `json:"dropped"`
	Missing   []string       `json:"missing"`
	Themes    []ThemeSummary `json:"themes"`
}

// Run rebuilds opts.TargetDir from opts.SourceDir. The target is removed and
// recreated first. A fatal document error aborts the run; it is wrapped with
// the failing stage and still matches the catalog sentinels.
func Run(ctx context.Context, opts Options) (*Summary, error) {
	log := opts.Log
	if log == nil {
		log = logger.Default()
	}
	store := opts.Store
	if store == nil {
		store = docstore.NewOS()
	}

	sourceDir, err := safeio.AbsSlash(opts.SourceDir)
	if err != nil {
		return nil, err
	}
	targetDir, err := safeio.AbsSlash(opts.TargetDir)
	if err != nil {
		return nil, err
	}
	if safeio.Within(sourceDir, targetDir) || safeio.Within(targetDir, sourceDir) {
		return nil, fmt.Errorf("%w: %s and %s", ErrOverlap, sourceDir, targetDir)
	}

	summary := &Summary{
		RunID:     uuid.NewString(),
		StartedAt: time.Now().UTC(),
		SourceDir: sourceDir,
		TargetDir: targetDir,
	}
	log.Debug("Starting build", logger.String("run_id", summary.RunID), logger.String("source", sourceDir), logger.String("target", targetDir))

	if err := store.ResetDirectory(targetDir); err != nil {
		return nil, err
	}

	builder := catalog.NewBuilder(store, catalog.WithObserver(log))

	projects, err := builder.BuildProjects(ctx, path.Join(sourceDir, catalog.ProjectsDir), targetDir, opts.Keep)
	if err != nil {
		return nil, fmt.Errorf("projects: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	projectsTarget := path.Join(targetDir, catalog.ProjectsDir)
	if err := builder.BuildThemes(projects.Themes, path.Join(sourceDir, catalog.ThemesDir), targetDir, projectsTarget); err != nil {
		return nil, fmt.Errorf("themes: %w", err)
	}

	if err := builder.BuildMainCatalogue(path.Join(sourceDir, catalog.CatalogueFile), path.Join(targetDir, catalog.CatalogueFile), opts.Title); err != nil {
		return nil, fmt.Errorf("main catalogue: %w", err)
	}

	summary.Projects = projects.KeptRefs
	summary.Dropped = projects.Dropped
	summary.Missing = projects.Missing
	for _, id := range projects.Themes.IDs() {
		summary.Themes = append(summary.Themes, ThemeSummary{ID: id, Projects: projects.Themes.Projects(id)})
	}
	summary.Duration = time.Since(summary.StartedAt)

	log.Info(fmt.Sprintf("Copied %d projects and %d themes", len(summary.Projects), len(summary.Themes)),
		logger.String("run_id", summary.RunID))
	return summary, nil
}
