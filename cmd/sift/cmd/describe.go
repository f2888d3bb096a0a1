package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Aman-CERP/sift/internal/ui"
)

func newDescribeCmd(root *rootOptions) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "describe <name>",
		Short: "Show an index's schema and metadata",
		Args:  cobra.ExactArgs(1),
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

			desc, err := registry.Describe(ctx, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			r := ui.NewStatusRenderer(out, ui.NoColorFor(out))
			if jsonOutput {
				return r.RenderJSON(desc)
			}
			return r.RenderIndex(indexInfo(desc))
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func newListCmd(root *rootOptions) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List indexes in the data directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
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

			descs := registry.DescribeAll(ctx)

			out := cmd.OutOrStdout()
			r := ui.NewStatusRenderer(out, ui.NoColorFor(out))
			if jsonOutput {
				return r.RenderJSON(descs)
			}
			infos := make([]ui.IndexInfo, 0, len(descs))
			for _, d := range descs {
				infos = append(infos, indexInfo(d))
			}
			return r.RenderList(infos)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}
