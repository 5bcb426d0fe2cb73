/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package cmd

import (
	"os"

	"github.com/fulmenhq/apexcat/internal/ops"
	"github.com/fulmenhq/apexcat/pkg/buildinfo"
	"github.com/fulmenhq/apexcat/pkg/config"
	"github.com/fulmenhq/apexcat/pkg/exitcode"
	"github.com/fulmenhq/apexcat/pkg/logger"
	"github.com/spf13/cobra"
)

// newRootCommand creates a fresh root command instance.
// This factory pattern allows tests to create isolated command trees without shared state.
func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apexcat",
		Short: "Publish the APEx subset of the open science catalogue",
		Long: `apexcat filters the open-science-catalog-metadata tree down to the projects
that pass a keep condition (by default: not proprietary), regroups them under
their themes and writes a smaller, self-consistent catalogue.

Examples:
   apexcat build                                  # open-science-catalog-metadata -> catalog
   apexcat build --source ./osc --target ./public
   apexcat build --repo ESA-EarthCODE/open-science-catalog-metadata --ref main
   apexcat inspect projects/foo/collection.json   # show themes and filtered links
   apexcat version --extended`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			initializeLogger(cmd)
			return nil
		},
	}

	// Add global flags
	cmd.PersistentFlags().String("config", "", "Config file (default: apexcat.yaml in ., $HOME or $APEXCAT_HOME/config)")
	cmd.PersistentFlags().String("log-level", "info", "Set log level (trace|debug|info|warn|error)")
	cmd.PersistentFlags().Bool("json", false, "Output logs and results in JSON format")
	cmd.PersistentFlags().Bool("no-color", false, "Disable colored output")

	// Wire Cobra's built-in --version using apexcat's binary version
	cmd.Version = buildinfo.BinaryVersion
	cmd.SetVersionTemplate("apexcat {{.Version}}\n")

	return cmd
}

// registerSubcommands adds all subcommands to the root command and files them
// under their help groups in reg.
// This is called from init() for production and can be called explicitly in tests.
func registerSubcommands(root *cobra.Command, reg *ops.Registry) {
	subcommands := []struct {
		cmd   *cobra.Command
		group ops.CommandGroup
	}{
		{newBuildCommand(), ops.GroupBuild},
		{newFetchCommand(), ops.GroupBuild},
		{newInspectCommand(), ops.GroupBuild},
		{newVersionCommand(), ops.GroupSupport},
	}
	for _, sc := range subcommands {
		root.AddCommand(sc.cmd)
		if err := reg.Register(sc.cmd.Name(), sc.group, sc.cmd, sc.cmd.Short); err != nil {
			panic(err)
		}
	}
	reg.ApplyGroups(root)
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = newRootCommand()

// Execute runs the root command and exits with the code matching the error.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		code := exitCodeFor(err)
		logger.Debug("Command execution failed", logger.Err(err), logger.String("exit", exitcode.String(code)))
		os.Exit(code)
	}
}

func init() {
	// Register all subcommands with the production rootCmd
	registerSubcommands(rootCmd, ops.GetRegistry())
}

// initializeLogger sets up the logger based on command flags
func initializeLogger(cmd *cobra.Command) {
	logLevelStr, _ := cmd.Flags().GetString("log-level")
	jsonLogs, _ := cmd.Flags().GetBool("json")
	noColor, _ := cmd.Flags().GetBool("no-color")

	cfg := logger.Config{
		Level:     logger.ParseLevel(logLevelStr),
		UseColor:  !noColor,
		JSON:      jsonLogs,
		Component: "apexcat",
	}

	if err := logger.Initialize(cfg); err != nil {
		// Fallback to stderr
		_, _ = os.Stderr.WriteString("Failed to initialize logger: " + err.Error() + "\n")
		os.Exit(exitcode.ConfigError)
	}
	logger.SetOutput(cmd.ErrOrStderr())
}

// loadConfig reads configuration for cmd, binding the flags named in keys
// (config key -> flag name) on top of file and environment values.
func loadConfig(cmd *cobra.Command, keys map[string]string) (*config.Config, error) {
	file, _ := cmd.Flags().GetString("config")
	return config.LoadConfig(config.LoadOptions{
		ConfigFile: file,
		Flags:      cmd.Flags(),
		FlagKeys:   keys,
	})
}
