package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yargnad/The-Crystalizer/internal/render"
)

func previewCmd() *cobra.Command {
	var focus, width int
	var query string
	var workingSet bool

	cmd := &cobra.Command{
		Use:   "preview [personaId]",
		Short: "Print a persona (or the working set) with role labels and highlighting",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if workingSet == (len(args) == 1) {
				return fmt.Errorf("give a persona id or --working-set")
			}
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			opts := render.Options{
				Focus: focus - 1,
				Width: width,
				Query: query,
			}
			var out string
			if workingSet {
				opts.Marks = true
				out, _ = render.Exchanges(a.ctrl.WorkingSet(), opts)
			} else {
				p, ok := a.ctrl.Library().Get(args[0])
				if !ok {
					return fmt.Errorf("persona not found: %s", args[0])
				}
				out, _ = render.Persona(p, opts)
			}
			fmt.Print(out)
			return nil
		},
	}

	cmd.Flags().IntVar(&focus, "focus", 0, "Exchange position to mark (1-based)")
	cmd.Flags().IntVar(&width, "width", 0, "Wrap width (0 = no wrap)")
	cmd.Flags().StringVar(&query, "query", "", "Search query for keyword highlighting")
	cmd.Flags().BoolVar(&workingSet, "working-set", false, "Preview the working set instead of a persona")

	return cmd
}
