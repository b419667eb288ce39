package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/yargnad/The-Crystalizer/internal/controller"
	"github.com/yargnad/The-Crystalizer/internal/render"
	"github.com/yargnad/The-Crystalizer/internal/tui"
)

func pruneCmd() *cobra.Command {
	var width int

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Choose which exchanges to keep (step 3)",
		Long: `Open the prune screen on the working set. With a single queued persona the
working set is loaded directly; with several, run 'crys merge' first.

When stdout is not a terminal the working set is printed with its selection
marks instead; use the subcommands to change it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := enterPrune(ctx, a); err != nil {
				return err
			}

			if term.IsTerminal(int(os.Stdout.Fd())) {
				return tui.Run(ctx, a.ctrl)
			}
			out, _ := render.Exchanges(a.ctrl.WorkingSet(), render.Options{
				Focus:   -1,
				Width:   width,
				Preview: 100,
				Marks:   true,
			})
			fmt.Print(out)
			return nil
		},
	}
	cmd.Flags().IntVar(&width, "width", 0, "Wrap width for printed output (0 = no wrap)")

	cmd.AddCommand(pruneIndexCmd("toggle", "Keep or drop exchanges by position",
		func(c *controller.Controller, ctx context.Context, i int) error { return c.ToggleSelection(ctx, i) }))
	cmd.AddCommand(pruneIndexCmd("expand", "Expand or collapse exchanges by position",
		func(c *controller.Controller, ctx context.Context, i int) error { return c.ToggleExpanded(ctx, i) }))
	cmd.AddCommand(pruneAllCmd("all", "Keep every exchange",
		func(c *controller.Controller, ctx context.Context) error { return c.SelectAll(ctx) }))
	cmd.AddCommand(pruneAllCmd("none", "Drop every exchange",
		func(c *controller.Controller, ctx context.Context) error { return c.DeselectAll(ctx) }))

	return cmd
}

// enterPrune navigates to step 3. A redirect or a pending merge is reported
// as an error so scripts notice.
func enterPrune(ctx context.Context, a *app) error {
	n, err := a.ctrl.Goto(ctx, controller.StepPrune)
	if err != nil {
		return err
	}
	if n != nil {
		printNotices(*n)
		return fmt.Errorf("cannot prune yet")
	}
	return nil
}

func pruneIndexCmd(use, short string, op func(*controller.Controller, context.Context, int) error) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <position>...",
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()
			if err := enterPrune(ctx, a); err != nil {
				return err
			}

			for _, arg := range args {
				i, err := position(arg)
				if err != nil {
					return err
				}
				if err := op(a.ctrl, ctx, i); err != nil {
					return err
				}
			}
			fmt.Fprintf(os.Stderr, "%d of %d exchanges selected.\n", a.ctrl.SelectedCount(), len(a.ctrl.WorkingSet()))
			return nil
		},
	}
}

func pruneAllCmd(use, short string, op func(*controller.Controller, context.Context) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()
			if err := enterPrune(ctx, a); err != nil {
				return err
			}
			if err := op(a.ctrl, ctx); err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "%d of %d exchanges selected.\n", a.ctrl.SelectedCount(), len(a.ctrl.WorkingSet()))
			return nil
		},
	}
}
