/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/fulmenhq/apexcat/pkg/config"
	"github.com/fulmenhq/apexcat/pkg/logger"
	"github.com/fulmenhq/apexcat/pkg/source"
	"github.com/spf13/cobra"
)

func newFetchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Clone or update the source metadata repository",
		Long: `Fetch checks out the source repository into $APEXCAT_HOME/cache/sources and
prints the checkout path. Without --repo or source.repo in config, the
upstream ` + source.DefaultRepo + ` repository is used.`,
		Args: cobra.NoArgs,
		RunE: runFetch,
	}
	defaults := config.Default()
	cmd.Flags().String("repo", defaults.Source.Repo, "Git repo (owner/name or URL)")
	cmd.Flags().String("ref", defaults.Source.Ref, "Git ref to check out")
	return cmd
}

func runFetch(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := loadConfig(cmd, map[string]string{"source.repo": "repo", "source.ref": "ref"})
	if err != nil {
		return err
	}
	repo := cfg.Source.Repo
	if repo == "" {
		repo = source.DefaultRepo
	}

	checkout, err := source.Fetch(ctx, repo, cfg.Source.Ref, logger.Default())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	jsonOut, _ := cmd.Flags().GetBool("json")
	if jsonOut {
		data, err := json.MarshalIndent(map[string]interface{}{
			"repo":     repo,
			"ref":      cfg.Source.Ref,
			"path":     checkout.Path,
			"revision": checkout.Revision,
			"cached":   checkout.Cached,
		}, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to format JSON: %w", err)
		}
		_, err = fmt.Fprintln(out, string(data))
		return err
	}

	_, err = fmt.Fprintf(out, "%s\n%s@%s\n", checkout.Path, repo, checkout.Revision)
	return err
}
