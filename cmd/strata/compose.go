// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"os"
	"sort"

	"strata-cli/internal/compose"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
)

var (
	composeAll bool

	// composeCmd composes entity documents from the workspace layers.
	composeCmd = &cobra.Command{
		Use:   "compose <kind> [name...]",
		Short: "Compose entity documents from Core, Pack, and Project layers",
		Long: `Compose entity documents from Core, Pack, and Project layers.

<kind> is one of: agent, validator, guideline. Composed documents and
their dependency sidecars are written to the content cache; duplication
reports land under the cache reports directory.

In a batch run, one failing entity never blocks the others.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runCompose,
	}

	// composeShowCmd composes a single entity and renders it to the terminal.
	composeShowCmd = &cobra.Command{
		Use:   "show <kind> <name>",
		Short: "Compose one entity and render it to the terminal",
		Args:  cobra.ExactArgs(2),
		RunE:  runComposeShow,
	}
)

func init() {
	composeCmd.Flags().BoolVar(&composeAll, "all", false, "compose every discovered entity of the kind")
	composeCmd.AddCommand(composeShowCmd)
}

// newComposer builds a Composer for the current workspace and config.
func newComposer(cmd *cobra.Command) (*compose.Composer, error) {
	ws, err := openWorkspace()
	if err != nil {
		return nil, err
	}
	cfg, err := loadConfig(cmd.Context(), ws)
	if err != nil {
		return nil, err
	}
	return compose.NewComposer(ws, cfg), nil
}

func runCompose(cmd *cobra.Command, args []string) error {
	kind, err := compose.KindByName(args[0])
	if err != nil {
		return err
	}
	composer, err := newComposer(cmd)
	if err != nil {
		return err
	}

	names := args[1:]
	if composeAll {
		if len(names) > 0 {
			return fmt.Errorf("--all cannot be combined with explicit names")
		}
		return composeBatch(composer, kind)
	}
	if len(names) == 0 {
		return fmt.Errorf("provide entity names or --all")
	}

	for _, name := range names {
		result, err := composer.Compose(kind, name)
		if err != nil {
			return err
		}
		printComposed(result)
	}
	return nil
}

// composeBatch composes every discovered entity, reporting per-entity
// outcomes and failing the command only after the whole batch ran.
func composeBatch(composer *compose.Composer, kind compose.Kind) error {
	results, failures := composer.ComposeAll(kind)

	names := make([]string, 0, len(results))
	for name := range results {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		printComposed(results[name])
	}

	if len(failures) == 0 {
		return nil
	}
	failed := make([]string, 0, len(failures))
	for name := range failures {
		failed = append(failed, name)
	}
	sort.Strings(failed)
	for _, name := range failed {
		fmt.Fprintf(os.Stderr, "%s %s: %s\n",
			ErrorStyle.Render("✗"), EntityStyle.Render(name),
			formatErrorForDisplay(failures[name], verbose))
	}
	return fmt.Errorf("%d of %d %ss failed to compose", len(failures), len(failures)+len(results), kind.Name)
}

func printComposed(result *compose.Result) {
	fmt.Printf("%s %s %s\n",
		SuccessStyle.Render("✓"),
		EntityStyle.Render(result.Kind.Name+"/"+result.Name),
		SubtitleStyle.Render(result.CachePath))
	if result.Report.HasViolations() {
		for _, violation := range result.Report.Violations {
			fmt.Printf("  %s %s\n", WarningStyle.Render("!"), violation.String())
		}
	}
}

func runComposeShow(cmd *cobra.Command, args []string) error {
	kind, err := compose.KindByName(args[0])
	if err != nil {
		return err
	}
	composer, err := newComposer(cmd)
	if err != nil {
		return err
	}
	result, err := composer.Compose(kind, args[1])
	if err != nil {
		return err
	}

	renderer, err := glamour.NewTermRenderer(glamour.WithAutoStyle())
	if err != nil {
		return err
	}
	rendered, err := renderer.Render(result.Text)
	if err != nil {
		return err
	}
	fmt.Print(rendered)
	return nil
}
