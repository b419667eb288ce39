package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/yargnad/The-Crystalizer/internal/controller"
	"github.com/yargnad/The-Crystalizer/internal/export"
	"github.com/yargnad/The-Crystalizer/internal/open"
)

func exportCmd() *cobra.Command {
	var target, mode, driveURL, outDir string
	var openDoc, stdout bool

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the transcript and copy the hand-off prompt (step 4)",
		Long: `Write the selected exchanges as a markdown transcript to export_dir and copy
the target platform's preamble to the clipboard. Upload the transcript (for
example to Google Drive) and paste the prompt into the new chat.

--target, --mode and --drive-url are remembered for the next export.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			n, err := a.ctrl.Goto(ctx, controller.StepExport)
			if err != nil {
				return err
			}
			if n != nil {
				printNotices(*n)
				return fmt.Errorf("nothing to export")
			}

			if cmd.Flags().Changed("target") || cmd.Flags().Changed("mode") {
				snap := a.ctrl.Snapshot()
				t, m := snap.ExportTarget, snap.Mode
				if target != "" {
					t = target
				}
				if mode != "" {
					if m, err = export.ParseMode(mode); err != nil {
						return err
					}
				}
				if err := a.ctrl.SetExportTarget(ctx, t, m); err != nil {
					return err
				}
			}
			if cmd.Flags().Changed("drive-url") {
				if err := a.ctrl.SetDriveURL(ctx, driveURL); err != nil {
					return err
				}
			}

			out, err := a.ctrl.Export()
			if err != nil {
				return err
			}

			if stdout {
				fmt.Print(out.Document)
				return nil
			}

			if outDir == "" {
				outDir = a.cfg.ExportDir
			}
			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return err
			}
			path := filepath.Join(outDir, out.Filename)
			if err := os.WriteFile(path, []byte(out.Document), 0o644); err != nil {
				return fmt.Errorf("write transcript: %w", err)
			}
			fmt.Fprintf(os.Stderr, "Wrote %d exchanges to %s\n", out.Count, path)

			if err := clipboard.WriteAll(out.Clipboard); err != nil || !term.IsTerminal(int(os.Stdout.Fd())) {
				fmt.Print(out.Clipboard)
			} else {
				fmt.Fprintln(os.Stderr, "Copied the hand-off prompt to the clipboard.")
			}

			if openDoc {
				return open.File(cmd.Context(), path, 1)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&target, "target", "t", "", "Platform id whose preamble is used (see 'crys platform list')")
	cmd.Flags().StringVarP(&mode, "mode", "m", "", "TRANSFER or CONTINUITY")
	cmd.Flags().StringVar(&driveURL, "drive-url", "", "Link to the uploaded transcript, inserted into the preamble")
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "Output directory (default export_dir)")
	cmd.Flags().BoolVar(&openDoc, "open", false, "Open the transcript in $EDITOR")
	cmd.Flags().BoolVar(&stdout, "stdout", false, "Print the transcript instead of writing a file")

	return cmd
}
