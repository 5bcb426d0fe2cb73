/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/fulmenhq/apexcat/pkg/buildinfo"
	"github.com/spf13/cobra"
)

func newVersionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show apexcat version information",
		Args:  cobra.NoArgs,
		RunE:  runVersion,
	}
	cmd.Flags().Bool("extended", false, "Show detailed build information")
	return cmd
}

func runVersion(cmd *cobra.Command, _ []string) error {
	extended, _ := cmd.Flags().GetBool("extended")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	out := cmd.OutOrStdout()
	info := buildinfo.Collect()

	if jsonOutput {
		if !extended {
			info.ModuleVersion = ""
			info.Revision = ""
		}
		jsonData, err := json.MarshalIndent(info, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to format JSON: %w", err)
		}
		fmt.Fprintln(out, string(jsonData))
		return nil
	}

	fmt.Fprintf(out, "apexcat %s\n", info.Version)
	if extended {
		if info.ModuleVersion != "" {
			fmt.Fprintf(out, "Module version: %s\n", info.ModuleVersion)
		}
		revision := info.Revision
		if len(revision) >= 8 {
			revision = revision[:8] // Short commit hash
		}
		if revision == "" {
			revision = "unknown"
		}
		fmt.Fprintf(out, "Git commit: %s\n", revision)
	}
	fmt.Fprintf(out, "Go version: %s\n", info.GoVersion)
	fmt.Fprintf(out, "Platform: %s\n", info.Platform)
	return nil
}
