package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/yargnad/The-Crystalizer/internal/controller"
)

func stepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "step [n]",
		Short: "Show the current step, or go to step n (1-4)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			if len(args) == 1 {
				n, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("invalid step %q", args[0])
				}
				notice, err := a.ctrl.Goto(cmd.Context(), controller.Step(n))
				if err != nil {
					return err
				}
				if notice != nil {
					printNotices(*notice)
				}
			}
			s := a.ctrl.Step()
			fmt.Printf("%d\t%s\n", int(s), s)
			return nil
		},
	}
}

func resetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Return to step 1, keeping personas, queue and working set",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			return a.ctrl.Reset(cmd.Context())
		},
	}
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Summarize the saved workflow state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			snap := a.ctrl.Snapshot()
			fmt.Printf("Step:        %d (%s)\n", int(snap.Step), snap.Step)
			fmt.Printf("Personas:    %d\n", len(snap.Personas))
			fmt.Printf("Queue:       %d\n", len(snap.Queue))
			for i, l := range snap.Legend {
				fmt.Printf("  %d. %s %s\n", i+1, l.Name, l.Color)
			}
			fmt.Printf("Working set: %d exchanges, %d selected\n", len(snap.WorkingSet), snap.SelectedCount)
			if snap.LastScraped != nil {
				fmt.Printf("Pending:     %d messages from %s (save with 'crys persona save <name>')\n",
					len(snap.LastScraped.Exchanges), snap.LastScraped.PlatformName)
			}
			fmt.Printf("Export:      %s / %s\n", snap.ExportTarget, snap.Mode)
			if snap.DriveURL != "" {
				fmt.Printf("Drive URL:   %s\n", snap.DriveURL)
			}
			if len(snap.Queue) > len(snap.Legend) {
				fmt.Fprintf(os.Stderr, "%d queued personas no longer exist and are skipped.\n", len(snap.Queue)-len(snap.Legend))
			}
			return nil
		},
	}
}
