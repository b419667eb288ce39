package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/yargnad/The-Crystalizer/internal/parse"
	"github.com/yargnad/The-Crystalizer/internal/scan"
)

func personaCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "persona",
		Aliases: []string{"personas"},
		Short:   "Manage the persona library (step 1)",
	}
	cmd.AddCommand(personaListCmd())
	cmd.AddCommand(personaSaveCmd())
	cmd.AddCommand(personaDiscardCmd())
	cmd.AddCommand(personaDeleteCmd())
	cmd.AddCommand(personaImportCmd())
	cmd.AddCommand(personaExportCmd())
	cmd.AddCommand(personaSaveMergeCmd())
	return cmd
}

func personaListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved personas (TSV: id, queued, platform, exchanges, saved, name)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			queued := make(map[string]bool)
			for _, id := range a.ctrl.Queue() {
				queued[id] = true
			}
			personas := a.ctrl.Library().All()
			if len(personas) == 0 {
				fmt.Fprintln(os.Stderr, "No personas saved yet. Run 'crys scrape' first.")
				return nil
			}
			for _, p := range personas {
				mark := "-"
				if queued[p.ID] {
					mark = "queued"
				}
				saved := "-"
				if p.Timestamp > 0 {
					saved = time.UnixMilli(p.Timestamp).Format("2006-01-02 15:04")
				}
				fmt.Printf("%s\t%s\t%s\t%d\t%s\t%s\n", p.ID, mark, p.PlatformName, len(p.Exchanges), saved, p.Name)
			}
			return nil
		},
	}
}

func personaSaveCmd() *cobra.Command {
	var queue bool
	cmd := &cobra.Command{
		Use:   "save <name>",
		Short: "Save the last scrape as a persona",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			p, err := a.ctrl.SavePersona(cmd.Context(), args[0], queue)
			if err != nil {
				return err
			}
			fmt.Printf("%s\t%d exchanges\n", p.ID, len(p.Exchanges))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&queue, "queue", "q", false, "Also add the persona to the merge queue")
	return cmd
}

func personaDiscardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "discard",
		Short: "Drop the last scrape without saving it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			return a.ctrl.DiscardScrape(cmd.Context())
		},
	}
}

func personaDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>...",
		Short: "Delete personas and drop them from the merge queue",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			for _, id := range args {
				if err := a.ctrl.DeletePersona(cmd.Context(), id); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func personaImportCmd() *cobra.Command {
	var queue bool
	cmd := &cobra.Command{
		Use:   "import <file-or-dir>...",
		Short: "Import persona JSON exports and Claude Code / Codex session logs",
		Long: `Import personas from files or directories. Directories are walked for
persona exports (*.json) and agent session logs (*.jsonl); subagent logs and
session indexes are skipped. Each log becomes one persona named after the file.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			files, err := scan.Roots(args...)
			if err != nil {
				return fmt.Errorf("scan: %w", err)
			}
			if len(files) == 0 {
				return fmt.Errorf("no .json or .jsonl files found")
			}

			imported, failed := 0, 0
			for _, f := range files {
				var ids []string
				switch f.Kind {
				case scan.KindPersona:
					data, err := os.ReadFile(f.Path)
					if err == nil {
						ps, ierr := a.ctrl.ImportPersonas(ctx, data)
						err = ierr
						for _, p := range ps {
							ids = append(ids, p.ID)
						}
					}
					if err != nil {
						fmt.Fprintf(os.Stderr, "  skip %s: %v\n", f.Path, err)
						failed++
						continue
					}
				case scan.KindAgentLog:
					res, err := parse.ParseAgentLog(f.Path)
					if err == nil && len(res.Exchanges) == 0 {
						err = fmt.Errorf("no messages")
					}
					if err == nil {
						_, err = a.ctrl.IngestScrape(ctx, res)
					}
					if err == nil {
						p, serr := a.ctrl.SavePersona(ctx, parse.LogName(f.Path), false)
						err = serr
						ids = append(ids, p.ID)
					}
					if err != nil {
						fmt.Fprintf(os.Stderr, "  skip %s: %v\n", f.Path, err)
						failed++
						continue
					}
				}
				imported += len(ids)
				if queue {
					for _, id := range ids {
						n, err := a.ctrl.Enqueue(ctx, id)
						if err != nil {
							return err
						}
						printNotices(*n)
					}
				}
			}

			fmt.Fprintf(os.Stderr, "Done. imported=%d failed=%d\n", imported, failed)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&queue, "queue", "q", false, "Add imported personas to the merge queue")
	return cmd
}

func personaExportCmd() *cobra.Command {
	var all bool
	var outDir string
	cmd := &cobra.Command{
		Use:   "export [id]",
		Short: "Write a persona (or the whole library with --all) as JSON",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if all == (len(args) == 1) {
				return fmt.Errorf("give a persona id or --all")
			}
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			var data []byte
			var name string
			if all {
				data, name, err = a.ctrl.ExportLibrary()
			} else {
				data, name, err = a.ctrl.ExportPersona(args[0])
			}
			if err != nil {
				return err
			}

			if outDir == "" {
				outDir = a.cfg.ExportDir
			}
			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return err
			}
			path := filepath.Join(outDir, name)
			if err := os.WriteFile(path, data, 0o644); err != nil {
				return err
			}
			fmt.Println(path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Export the whole library")
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "Output directory (default export_dir)")
	return cmd
}

func personaSaveMergeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "save-merge <name>",
		Short: "Save the selected exchanges of the working set as a new persona",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			p, err := a.ctrl.SaveMergeAsPersona(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Printf("%s\t%d exchanges\n", p.ID, len(p.Exchanges))
			return nil
		},
	}
}
