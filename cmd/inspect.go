/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fulmenhq/apexcat/pkg/catalog"
	"github.com/fulmenhq/apexcat/pkg/config"
	"github.com/fulmenhq/apexcat/pkg/docstore"
	"github.com/fulmenhq/apexcat/pkg/safeio"
	"github.com/spf13/cobra"
)

type inspectLink struct {
	Rel   string `json:"rel,omitempty"`
	Href  string `json:"href"`
	Title string `json:"title,omitempty"`
}

type inspectResult struct {
	Path         string        `json:"path"`
	Title        string        `json:"title"`
	License      string        `json:"license"`
	Keep         bool          `json:"keep"`
	Themes       []string      `json:"themes"`
	DroppedLinks []inspectLink `json:"dropped_links"`
}

func newInspectCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect <collection.json>",
		Short: "Show how build would treat one project collection",
		Long: `Inspect loads a project collection and reports whether the configured keep
condition publishes it, which themes it would be listed under and which of its
links build would remove.`,
		Args: cobra.ExactArgs(1),
		RunE: runInspect,
	}
	defaults := config.Default()
	cmd.Flags().String("license-sentinel", defaults.Filter.LicenseSentinel, "Drop projects with this license (case-insensitive)")
	cmd.Flags().String("policy", defaults.Filter.Policy, "Keep policy file (.rego, .yaml or .yml)")
	return cmd
}

func runInspect(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := loadConfig(cmd, map[string]string{
		"filter.license_sentinel": "license-sentinel",
		"filter.policy":           "policy",
	})
	if err != nil {
		return err
	}

	path, err := safeio.AbsSlash(args[0])
	if err != nil {
		return err
	}
	doc, err := docstore.NewOS().Load(path)
	if err != nil {
		return err
	}

	result, err := inspectDocument(ctx, cfg, doc)
	if err != nil {
		return err
	}
	result.Path = path

	out := cmd.OutOrStdout()
	jsonOut, _ := cmd.Flags().GetBool("json")
	if jsonOut {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to format JSON: %w", err)
		}
		_, err = fmt.Fprintln(out, string(data))
		return err
	}

	decision := "keep"
	if !result.Keep {
		decision = "drop"
	}
	fmt.Fprintf(out, "Document: %s\n", result.Path)
	fmt.Fprintf(out, "Title:    %s\n", result.Title)
	fmt.Fprintf(out, "License:  %s\n", result.License)
	fmt.Fprintf(out, "Decision: %s\n", decision)
	if len(result.Themes) == 0 {
		fmt.Fprintln(out, "Themes:   (none)")
	} else {
		fmt.Fprintf(out, "Themes:   %s\n", strings.Join(result.Themes, ", "))
	}
	if len(result.DroppedLinks) == 0 {
		fmt.Fprintln(out, "Dropped links: (none)")
		return nil
	}
	fmt.Fprintln(out, "Dropped links:")
	for _, l := range result.DroppedLinks {
		fmt.Fprintf(out, "  - %s %q\n", l.Href, l.Title)
	}
	return nil
}

func inspectDocument(ctx context.Context, cfg *config.Config, doc catalog.Document) (*inspectResult, error) {
	keep, err := keepConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	ok, err := keep.Predicate().Keep(ctx, doc)
	if err != nil {
		return nil, err
	}
	themes, err := catalog.ExtractThemeIDs(doc.Links())
	if err != nil {
		return nil, err
	}

	result := &inspectResult{
		Title:        doc.Title(),
		License:      doc.License(),
		Keep:         ok,
		Themes:       themes,
		DroppedLinks: []inspectLink{},
	}
	if result.Themes == nil {
		result.Themes = []string{}
	}

	// FilterProjectLinks preserves order, so a single walk finds the removed links.
	kept := catalog.FilterProjectLinks(doc.Links())
	i := 0
	for _, l := range doc.Links() {
		if i < len(kept) && kept[i].String() == l.String() {
			i++
			continue
		}
		result.DroppedLinks = append(result.DroppedLinks, inspectLink{Rel: l.Rel(), Href: l.Href(), Title: l.Title()})
	}
	return result, nil
}
