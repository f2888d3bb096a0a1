package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/sift/internal/ui"
)

func newSearchCmd(root *rootOptions) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "search <name> <query...>",
		Short: "Search an index",
		Long: `Search the named index. Punctuation becomes whitespace before matching,
and every remaining term must appear in a document. With the sqlite backend,
uppercase AND, OR and NOT are search operators.`,
		Example: `  sift search books dune
  sift search books "frank herbert" --json`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			registry, release, err := openRegistry(ctx, cfg)
			if err != nil {
				return err
			}
			defer func() { _ = release() }()

			name := args[0]
			result, err := registry.Search(ctx, name, strings.Join(args[1:], " "))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOutput {
				return ui.NewStatusRenderer(out, true).RenderJSON(result)
			}

			var columns []string
			if idx, ok := registry.Lookup(name); ok {
				columns = idx.Schema()
			}
			ui.NewResultsRenderer(out, ui.NoColorFor(out)).Render(result.Query, result.Hits, columns)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the search result as JSON")

	return cmd
}
