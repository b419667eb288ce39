package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/yargnad/The-Crystalizer/internal/merge"
)

func queueCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Manage the merge queue (step 2)",
		Long:  `The merge queue orders the personas that will be merged. Queue position sets each persona's color.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			printQueue(a)
			return nil
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "add <id>...",
		Short: "Append personas to the merge queue",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			for _, id := range args {
				n, err := a.ctrl.Enqueue(cmd.Context(), id)
				if err != nil {
					return err
				}
				printNotices(*n)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:     "rm <id>...",
		Aliases: []string{"remove"},
		Short:   "Remove personas from the merge queue",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			for _, id := range args {
				if err := a.ctrl.Dequeue(cmd.Context(), id); err != nil {
					return err
				}
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "up <position>",
		Short: "Move a queue entry one place earlier",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			i, err := position(args[0])
			if err != nil {
				return err
			}
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.ctrl.MoveUp(cmd.Context(), i); err != nil {
				return err
			}
			printQueue(a)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down <position>",
		Short: "Move a queue entry one place later",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			i, err := position(args[0])
			if err != nil {
				return err
			}
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.ctrl.MoveDown(cmd.Context(), i); err != nil {
				return err
			}
			printQueue(a)
			return nil
		},
	})

	return cmd
}

// printQueue prints the legend: position, color, id and name per entry.
func printQueue(a *app) {
	legend := merge.BuildLegend(a.ctrl.Queue(), a.ctrl.Library())
	if len(legend) == 0 {
		fmt.Fprintln(os.Stderr, "Merge queue is empty. Add personas with 'crys queue add <id>'.")
		return
	}
	for i, l := range legend {
		fmt.Printf("%d\t%s\t%s\t%s\n", i+1, l.Color, l.PersonaID, l.Name)
	}
}
