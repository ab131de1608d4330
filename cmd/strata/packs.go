// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"sort"
	"strings"

	"strata-cli/internal/packs"

	"github.com/spf13/cobra"
)

var (
	// packsCmd groups pack inspection and resolution commands.
	packsCmd = &cobra.Command{
		Use:   "packs",
		Short: "Inspect and resolve workspace packs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	// packsResolveCmd resolves the pack dependency graph.
	packsResolveCmd = &cobra.Command{
		Use:   "resolve [pack...]",
		Short: "Resolve pack load order and merged dependencies",
		Long: `Resolve pack load order and merged dependencies.

Without arguments the active packs from the workspace configuration are
resolved. Selection order matters: it breaks load-order ties and decides
which pack wins script-name collisions.`,
		RunE: runPacksResolve,
	}

	// packsListCmd lists the packs present in the workspace.
	packsListCmd = &cobra.Command{
		Use:   "list",
		Short: "List packs available in the workspace",
		RunE:  runPacksList,
	}
)

func init() {
	packsCmd.AddCommand(packsResolveCmd)
	packsCmd.AddCommand(packsListCmd)
}

func runPacksResolve(cmd *cobra.Command, args []string) error {
	ws, err := openWorkspace()
	if err != nil {
		return err
	}
	cfg, err := loadConfig(cmd.Context(), ws)
	if err != nil {
		return err
	}

	selected := args
	if len(selected) == 0 {
		selected = cfg.ActivePacks
	}
	if len(selected) == 0 {
		fmt.Println(SubtitleStyle.Render("no packs selected; set active_packs in strata.cue or pass pack names"))
		return nil
	}

	composer := packs.NewComposer(packs.NewLoader(ws), cfg.Packs.ConflictStrategy)
	result, err := composer.Compose(selected)
	if err != nil {
		return err
	}

	fmt.Println(TitleStyle.Render("Load order"))
	for i, pack := range result.LoadOrder {
		fmt.Printf("  %d. %s\n", i+1, EntityStyle.Render(pack))
	}

	printVersionMap("Dependencies", result.Dependencies)
	printVersionMap("Dev dependencies", result.DevDependencies)
	printVersionMap("Scripts", result.Scripts)
	printConflicts(result.Conflicts)
	return nil
}

func printVersionMap(title string, entries map[string]string) {
	if len(entries) == 0 {
		return
	}
	fmt.Println(TitleStyle.Render(title))
	keys := make([]string, 0, len(entries))
	for key := range entries {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		fmt.Printf("  %s: %s\n", key, entries[key])
	}
}

func printConflicts(conflicts packs.ConflictSet) {
	records := make([]packs.ConflictRecord, 0,
		len(conflicts.Dependencies)+len(conflicts.DevDependencies)+len(conflicts.Scripts))
	records = append(records, conflicts.Dependencies...)
	records = append(records, conflicts.DevDependencies...)
	records = append(records, conflicts.Scripts...)
	if len(records) == 0 {
		return
	}

	fmt.Println(WarningStyle.Render("Conflicts"))
	for _, record := range records {
		fmt.Printf("  %s %q: %s=%q vs %s=%q -> %s\n",
			WarningStyle.Render("!"), record.Key,
			record.FirstPack, record.FirstValue,
			record.SecondPack, record.SecondValue,
			record.Resolution)
	}
}

func runPacksList(cmd *cobra.Command, args []string) error {
	ws, err := openWorkspace()
	if err != nil {
		return err
	}
	cfg, err := loadConfig(cmd.Context(), ws)
	if err != nil {
		return err
	}

	names, err := ws.ListPacks()
	if err != nil {
		return err
	}
	if len(names) == 0 {
		fmt.Println(SubtitleStyle.Render("no packs in this workspace"))
		return nil
	}

	active := make(map[string]bool, len(cfg.ActivePacks))
	for _, pack := range cfg.ActivePacks {
		active[pack] = true
	}

	loader := packs.NewLoader(ws)
	for _, name := range names {
		marker := " "
		if active[name] {
			marker = SuccessStyle.Render("*")
		}
		manifest, err := loader.Load(name)
		if err != nil {
			fmt.Printf("%s %s %s\n", marker, EntityStyle.Render(name),
				ErrorStyle.Render("(manifest error: "+err.Error()+")"))
			continue
		}
		var notes []string
		if len(manifest.RequiredPacks) > 0 {
			notes = append(notes, "requires "+strings.Join(manifest.RequiredPacks, ", "))
		}
		if len(manifest.Scripts) > 0 {
			notes = append(notes, fmt.Sprintf("%d scripts", len(manifest.Scripts)))
		}
		suffix := ""
		if len(notes) > 0 {
			suffix = SubtitleStyle.Render("(" + strings.Join(notes, "; ") + ")")
		}
		fmt.Printf("%s %s %s\n", marker, EntityStyle.Render(name), suffix)
	}
	return nil
}
