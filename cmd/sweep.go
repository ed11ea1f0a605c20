package cmd

import (
	"encoding/json"
	"fmt"

	"classportal/db"

	"github.com/spf13/cobra"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Remove documents, kolles and progressions of deleted classes",
	Long: `Removes records left behind when a class deletion was interrupted, together with
their uploaded files. With --prune-chapters, progression entries whose chapter is no
longer in the catalog are dropped too and the remaining ones renumbered.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		var opts db.SweepOptions
		opts.DryRun, _ = cmd.Flags().GetBool("dry-run")
		opts.PruneChapters, _ = cmd.Flags().GetBool("prune-chapters")

		p, err := openPortal(cmd)
		if err != nil {
			return err
		}
		defer p.Close()

		report, err := p.database.Sweep(cmd.Context(), opts)
		if err != nil {
			return fmt.Errorf("sweep failed: %w", err)
		}
		out, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	},
}

func init() {
	sweepCmd.Flags().Bool("dry-run", false, "Report what would be removed without writing anything")
	sweepCmd.Flags().Bool("prune-chapters", false, "Also drop progression chapters missing from the catalog")
}
