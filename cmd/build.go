/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/fulmenhq/apexcat/internal/pipeline"
	"github.com/fulmenhq/apexcat/internal/report"
	"github.com/fulmenhq/apexcat/pkg/ascii"
	"github.com/fulmenhq/apexcat/pkg/catalog"
	"github.com/fulmenhq/apexcat/pkg/config"
	"github.com/fulmenhq/apexcat/pkg/docstore"
	"github.com/fulmenhq/apexcat/pkg/logger"
	"github.com/fulmenhq/apexcat/pkg/policy"
	"github.com/fulmenhq/apexcat/pkg/source"
	"github.com/spf13/cobra"
)

// buildFlagKeys binds build flags to their config keys.
var buildFlagKeys = map[string]string{
	"source.dir":              "source",
	"source.repo":             "repo",
	"source.ref":              "ref",
	"target.dir":              "target",
	"filter.license_sentinel": "license-sentinel",
	"filter.policy":           "policy",
	"output.title":            "title",
	"output.indent":           "indent",
	"copy.skip":               "skip",
	"report.path":             "report",
}

func newBuildCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Rebuild the published catalogue from the source tree",
		Long: `Build resets the target directory and writes:

  <target>/projects   kept project collections and their catalogue
  <target>/themes     themes referenced by kept projects, relinked to them
  <target>/catalog.json

Projects are kept when their license differs from --license-sentinel, or,
with --policy, when the policy's data.apexcat.filter.keep rule is true.`,
		Args: cobra.NoArgs,
		RunE: runBuild,
	}

	defaults := config.Default()
	cmd.Flags().String("source", defaults.Source.Dir, "Source metadata tree")
	cmd.Flags().String("repo", defaults.Source.Repo, "Clone the source tree from this git repo (owner/name or URL)")
	cmd.Flags().String("ref", defaults.Source.Ref, "Git ref to check out with --repo")
	cmd.Flags().String("target", defaults.Target.Dir, "Output directory (replaced on every run)")
	cmd.Flags().String("license-sentinel", defaults.Filter.LicenseSentinel, "Drop projects with this license (case-insensitive)")
	cmd.Flags().String("policy", defaults.Filter.Policy, "Keep policy file (.rego, .yaml or .yml)")
	cmd.Flags().String("title", defaults.Output.Title, "Title of the published root catalogue")
	cmd.Flags().String("indent", defaults.Output.Indent, "JSON indent for written documents (empty for compact)")
	cmd.Flags().StringSlice("skip", defaults.Copy.Skip, "Glob of theme files to leave out of the copy (repeatable)")
	cmd.Flags().String("report", defaults.Report.Path, "Write a markdown run report to this path")
	return cmd
}

func runBuild(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	log := logger.Default()

	cfg, err := loadConfig(cmd, buildFlagKeys)
	if err != nil {
		return err
	}

	sourceDir, revision, err := resolveSource(ctx, cfg, log)
	if err != nil {
		return err
	}

	keep, err := keepConfig(ctx, cfg)
	if err != nil {
		return err
	}

	store := docstore.NewOS(docstore.WithIndent(cfg.Output.Indent), docstore.WithSkipPatterns(cfg.Copy.Skip))
	summary, err := pipeline.Run(ctx, pipeline.Options{
		SourceDir: sourceDir,
		TargetDir: cfg.Target.Dir,
		Title:     cfg.Output.Title,
		Keep:      keep,
		Store:     store,
		Log:       log,
	})
	if err != nil {
		return err
	}

	if cfg.Report.Path != "" {
		if err := report.Write(cfg.Report.Path, summary, report.Options{Title: cfg.Output.Title, Revision: revision}); err != nil {
			return err
		}
		log.Info("Wrote build report", logger.String("path", cfg.Report.Path))
	}

	jsonOut, _ := cmd.Flags().GetBool("json")
	if jsonOut {
		data, err := json.MarshalIndent(summary, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to format JSON: %w", err)
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return err
	}
	return ascii.DrawBox(cmd.OutOrStdout(), summaryLines(summary, revision))
}

// resolveSource returns the source directory to build from, cloning it first
// when a repo is configured. revision is empty for local sources.
func resolveSource(ctx context.Context, cfg *config.Config, log *logger.Logger) (dir, revision string, err error) {
	if cfg.Source.Repo == "" {
		return cfg.Source.Dir, "", nil
	}
	checkout, err := source.Fetch(ctx, cfg.Source.Repo, cfg.Source.Ref, log)
	if err != nil {
		return "", "", err
	}
	log.Debug("Using source checkout", logger.String("path", checkout.Path), logger.String("revision", checkout.Revision))
	return checkout.Path, checkout.Revision, nil
}

// keepConfig builds the keep predicate configuration, loading the policy file
// when one is configured.
func keepConfig(ctx context.Context, cfg *config.Config) (catalog.KeepPredicateConfig, error) {
	keep := catalog.KeepPredicateConfig{LicenseSentinel: cfg.Filter.LicenseSentinel}
	if cfg.Filter.Policy == "" {
		return keep, nil
	}
	p, err := policy.LoadPredicate(ctx, cfg.Filter.Policy)
	if err != nil {
		return keep, err
	}
	keep.Policy = p
	return keep, nil
}

func summaryLines(s *pipeline.Summary, revision string) []string {
	pairs := []ascii.Pair{
		{Key: "Run", Value: s.RunID},
		{Key: "Source", Value: s.SourceDir},
	}
	if revision != "" {
		pairs = append(pairs, ascii.Pair{Key: "Revision", Value: revision})
	}
	pairs = append(pairs,
		ascii.Pair{Key: "Target", Value: s.TargetDir},
		ascii.Pair{Key: "Projects", Value: strconv.Itoa(len(s.Projects))},
		ascii.Pair{Key: "Excluded", Value: strconv.Itoa(len(s.Dropped))},
		ascii.Pair{Key: "Missing", Value: strconv.Itoa(len(s.Missing))},
		ascii.Pair{Key: "Themes", Value: strconv.Itoa(len(s.Themes))},
		ascii.Pair{Key: "Duration", Value: s.Duration.String()},
	)
	return append([]string{"apexcat build", ""}, ascii.KeyValues(pairs, 60)...)
}
