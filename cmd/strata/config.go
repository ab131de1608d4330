// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var (
	// configCmd groups configuration commands.
	configCmd = &cobra.Command{
		Use:   "config",
		Short: "Manage strata configuration",
		Long: `Manage strata configuration.

Configuration is read from 'strata.cue' at the workspace root and can be
overridden with STRATA_* environment variables (STRATA_COMPOSE_MAX_DEPTH,
STRATA_PACKS_CONFLICT_STRATEGY, ...).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	// configShowCmd prints the effective configuration.
	configShowCmd = &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		RunE:  runConfigShow,
	}

	// configPathCmd prints the configuration file path.
	configPathCmd = &cobra.Command{
		Use:   "path",
		Short: "Show the configuration file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := openWorkspace()
			if err != nil {
				return err
			}
			fmt.Println(ws.ConfigPath())
			return nil
		},
	}
)

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configPathCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	ws, err := openWorkspace()
	if err != nil {
		return err
	}
	cfg, err := loadConfig(cmd.Context(), ws)
	if err != nil {
		return err
	}

	fmt.Println(TitleStyle.Render("Workspace"))
	fmt.Printf("  root:         %s\n", ws.Root())
	fmt.Printf("  config:       %s\n", ws.ConfigPath())
	cacheDir := cfg.CacheDir
	if cacheDir == "" {
		cacheDir = ws.CacheDir()
	}
	fmt.Printf("  cache:        %s\n", cacheDir)

	fmt.Println(TitleStyle.Render("Packs"))
	if len(cfg.ActivePacks) == 0 {
		fmt.Println("  active:       " + SubtitleStyle.Render("(none)"))
	} else {
		fmt.Printf("  active:       %s\n", strings.Join(cfg.ActivePacks, ", "))
	}
	fmt.Printf("  conflicts:    %s\n", cfg.Packs.ConflictStrategy)

	fmt.Println(TitleStyle.Render("Compose"))
	fmt.Printf("  shingle size: %d\n", cfg.Compose.ShingleSize)
	fmt.Printf("  min shingles: %d\n", cfg.Compose.MinShingles)
	fmt.Printf("  max depth:    %d\n", cfg.Compose.MaxDepth)
	fmt.Printf("  duplication:  %s\n", cfg.Compose.DuplicationPolicy)
	fmt.Printf("  keep markers: %t\n", cfg.Compose.KeepSectionMarkers)
	return nil
}
