// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"strata-cli/internal/workspace"

	"github.com/spf13/cobra"
)

var (
	initForce bool

	// initCmd scaffolds a new strata workspace.
	initCmd = &cobra.Command{
		Use:   "init",
		Short: "Scaffold a strata workspace in the current directory",
		Long: `Scaffold a strata workspace in the current directory.

Creates strata.cue plus the core/, packs/, and project/ layer
directories with a starter guideline to compose.`,
		RunE: runInit,
	}
)

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "overwrite an existing strata.cue")
}

const starterConfig = `// strata workspace configuration
active_packs: []

compose: {
	shingle_size:  12
	min_shingles:  2
	max_depth:     10
	duplication_policy: "fatal"
}

packs: {
	conflict_strategy: "latest-wins"
}
`

const starterGuideline = `Write small, focused documents. Each guideline file covers one topic and
composes with pack and project overlays at build time.

{{include-optional:shared/house-rules.md}}
`

func runInit(cmd *cobra.Command, args []string) error {
	root, err := filepath.Abs(workspaceRoot)
	if err != nil {
		return err
	}

	configPath := filepath.Join(root, workspace.ConfigFileName)
	if _, err := os.Stat(configPath); err == nil && !initForce {
		return fmt.Errorf("'%s' already exists. Use --force to overwrite", configPath)
	}

	if err := os.MkdirAll(root, 0o755); err != nil {
		return err
	}
	ws, err := workspace.New(root)
	if err != nil {
		return err
	}

	files := map[string]string{
		configPath: starterConfig,
		ws.CoreEntity("guidelines", "style"): starterGuideline,
	}
	for path, content := range files {
		if err := ws.WriteText(path, content); err != nil {
			return err
		}
	}
	for _, dir := range []string{
		filepath.Join(root, workspace.PacksDirName),
		filepath.Join(root, workspace.ProjectDirName, "guidelines"),
		filepath.Join(root, workspace.CoreDirName, "agents"),
		filepath.Join(root, workspace.CoreDirName, "validators"),
		filepath.Join(root, workspace.CoreDirName, workspace.SharedDirName),
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	fmt.Printf("%s Created workspace at %s\n", SuccessStyle.Render("✓"), root)
	fmt.Println()
	fmt.Println(SubtitleStyle.Render("Next steps:"))
	fmt.Println("  1. Add pack overlays under packs/<name>/")
	fmt.Println("  2. Activate them via active_packs in strata.cue")
	fmt.Println("  3. Run 'strata compose guideline --all'")
	return nil
}
