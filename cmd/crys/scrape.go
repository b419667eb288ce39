package main

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/yargnad/The-Crystalizer/internal/controller"
	"github.com/yargnad/The-Crystalizer/internal/parse"
)

func scrapeCmd() *cobra.Command {
	var url, file, name string
	var queue bool

	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Capture a chat from the browser or a file (step 2)",
		Long: `Capture the messages of an open chat tab through Chrome's DevTools endpoint
(start Chrome with --remote-debugging-port=9222 and set debugger_url), or
ingest a scrape result JSON saved by the browser extension with --file.
Claude Code and Codex session logs (*.jsonl) are accepted as well.

The capture is held until it is saved with --name or 'crys persona save'.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			var notice controller.Notice
			if file != "" {
				res, err := readCapture(file)
				if err != nil {
					return err
				}
				notice, err = a.ctrl.IngestScrape(ctx, res)
				if err != nil {
					return err
				}
			} else {
				notice, err = a.ctrl.Scrape(ctx, url)
				if err != nil {
					printNotices(notice)
					return errors.New("scrape failed")
				}
			}
			printNotices(notice)

			if name != "" && a.ctrl.LastScraped() != nil {
				p, err := a.ctrl.SavePersona(ctx, name, queue)
				if err != nil {
					return err
				}
				fmt.Printf("%s\t%d exchanges\n", p.ID, len(p.Exchanges))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&url, "url", "", "Tab URL to scrape (default: first tab matching a platform)")
	cmd.Flags().StringVarP(&file, "file", "f", "", "Ingest a saved scrape result or agent session log")
	cmd.Flags().StringVarP(&name, "name", "n", "", "Save the capture as a persona with this name")
	cmd.Flags().BoolVarP(&queue, "queue", "q", false, "With --name, also add the persona to the merge queue")

	return cmd
}

func readCapture(path string) (*parse.ScrapeResult, error) {
	if filepath.Ext(path) == ".jsonl" {
		return parse.ParseAgentLog(path)
	}
	return parse.ReadScrapeFile(path)
}
