// SPDX-License-Identifier: MPL-2.0

// Package cmd contains all CLI commands for strata.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"strata-cli/internal/config"
	"strata-cli/internal/issue"
	"strata-cli/internal/workspace"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"

	// verbose enables debug-level logging
	verbose bool
	// cfgFile allows specifying a custom config file
	cfgFile string
	// workspaceRoot selects the workspace directory
	workspaceRoot string

	// rootCmd represents the base command when called without any subcommands
	rootCmd = &cobra.Command{
		Use:   "strata",
		Short: "A layered document composition engine",
		Long: TitleStyle.Render("strata") + SubtitleStyle.Render(" - A layered document composition engine") + `

strata composes agent, validator, and guideline documents from three
layers: a Core baseline, reusable Packs, and a Project overlay. Layers
are merged with include resolution, pack-conditional content, section
splicing, and cross-layer duplication analysis.

Workspace settings live in 'strata.cue' at the workspace root; packs
declare their dependencies in 'pack.cue' or 'pack.toml'.

` + SubtitleStyle.Render("Quick Start:") + `
  1. Run 'strata init' to scaffold a workspace
  2. Add overlays under core/, packs/<name>/, and project/
  3. Compose with: strata compose agent <name>

` + SubtitleStyle.Render("Examples:") + `
  strata compose agent reviewer    Compose one agent document
  strata compose guideline --all   Compose every guideline
  strata packs resolve             Resolve pack load order and versions
  strata config show               Show effective configuration`,
	}
)

func init() {
	cobra.OnInitialize(initLogging)

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is <workspace>/strata.cue)")
	rootCmd.PersistentFlags().StringVarP(&workspaceRoot, "workspace", "C", ".", "workspace root directory")

	rootCmd.AddCommand(composeCmd)
	rootCmd.AddCommand(packsCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(initCmd)
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		os.Exit(1)
	}
}

// initLogging routes slog through a charmbracelet logger so internal
// packages keep plain slog call sites.
func initLogging() {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		Prefix: "strata",
	})
	if verbose {
		logger.SetLevel(log.DebugLevel)
	}
	slog.SetDefault(slog.New(logger))
}

// openWorkspace resolves the --workspace flag into a Workspace.
func openWorkspace() (*workspace.Workspace, error) {
	ws, err := workspace.New(workspaceRoot)
	if err != nil {
		return nil, issue.WorkspaceOpen(err, workspaceRoot)
	}
	return ws, nil
}

// loadConfig loads the effective configuration for the selected workspace.
func loadConfig(ctx context.Context, ws *workspace.Workspace) (*config.Config, error) {
	return config.NewProvider().Load(ctx, config.LoadOptions{
		ConfigFilePath: cfgFile,
		WorkspaceRoot:  ws.Root(),
	})
}

// formatErrorForDisplay formats an error for user display.
// If the error is an ActionableError, it uses the Format method.
// In verbose mode, shows the full error chain.
func formatErrorForDisplay(err error, verboseMode bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verboseMode)
	}
	return err.Error()
}
