package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/yargnad/The-Crystalizer/internal/controller"
	"github.com/yargnad/The-Crystalizer/internal/merge"
)

func mergeCmd() *cobra.Command {
	var strategy string

	cmd := &cobra.Command{
		Use:   "merge",
		Short: "Merge the queued personas into a new working set (step 3)",
		Long: `Merge the queued personas' exchanges into the working set. Strategies:
  chronological  all exchanges ordered by timestamp (default)
  manual         queue order, each persona's exchanges in their own order
  platform       grouped by platform, chronological within each group

Merging replaces the working set and selects every exchange again.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := merge.ParseStrategy(strategy)
			if err != nil {
				return err
			}
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			n, err := a.ctrl.ExecuteMerge(cmd.Context(), st)
			if err != nil {
				return err
			}
			if _, err := a.ctrl.Goto(cmd.Context(), controller.StepPrune); err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "Merged %d exchanges (%s). Prune with 'crys prune'.\n", n, st)
			return nil
		},
	}

	cmd.Flags().StringVarP(&strategy, "strategy", "s", string(merge.Chronological), "chronological, manual or platform")
	return cmd
}
