package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yargnad/The-Crystalizer/internal/search"
	"github.com/yargnad/The-Crystalizer/internal/store"
)

const (
	sColorReset   = "\033[0m"
	sColorBoldRed = "\033[1;31m"
	sColorBlue    = "\033[1;34m"
	sColorGreen   = "\033[1;32m"
	sColorDim     = "\033[2m"
)

func colorizeRole(role string) string {
	switch role {
	case "user":
		return sColorBlue + role + sColorReset
	case "assistant":
		return sColorGreen + role + sColorReset
	default:
		return role
	}
}

func colorizeSnippet(snippet string) string {
	snippet = strings.ReplaceAll(snippet, ">>>", sColorBoldRed)
	snippet = strings.ReplaceAll(snippet, "<<<", sColorReset)
	return snippet
}

func flatten(s string) string {
	s = strings.ReplaceAll(s, "\t", " ")
	return strings.ReplaceAll(s, "\n", " ")
}

func searchCmd() *cobra.Command {
	var platform, role, since string
	var limit int

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Full-text search across archived personas",
		Long: `Search every saved persona using FTS5 (CJK queries fall back to substring
matching). Output is TSV for fzf integration, one best hit per persona:
  personaId, pairIndex, savedAt, platform, role, name, snippet

Recommended shell function (add to .zshrc):
  crysf() {
    crys search "$*" | fzf \
      --ansi \
      --delimiter='\t' --with-nth=3.. \
      --preview 'crys preview {1} --focus {2} --query {q}' \
      --preview-window=right:60%:wrap
  }`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			results, err := search.Search(cmd.Context(), a.db, search.Options{
				Query:    args[0],
				Platform: platform,
				Role:     role,
				Since:    since,
				Limit:    limit,
			})
			if err != nil {
				return err
			}
			if len(results) == 0 {
				fmt.Fprintln(os.Stderr, "No results found.")
				return nil
			}

			for _, r := range results {
				// first two fields stay plain for fzf {1} {2}
				fmt.Printf("%s\t%d\t%s%s%s\t%s\t%s\t%s\t%s\n",
					r.PersonaID,
					r.PairIndex+1,
					sColorDim, r.CreatedAt, sColorReset,
					r.PlatformName,
					colorizeRole(r.Role),
					flatten(r.Name),
					colorizeSnippet(flatten(r.Snippet)),
				)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&platform, "platform", "", "Filter by platform id")
	cmd.Flags().StringVar(&role, "role", "", "Filter by role (user/assistant)")
	cmd.Flags().StringVar(&since, "since", "", "Filter personas saved since date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&limit, "limit", 100, "Max results")

	return cmd
}

func reindexCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "reindex",
		Aliases: []string{"index"},
		Short:   "Rebuild the search archive from the persona library",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			fmt.Fprintf(os.Stderr, "Indexing %d personas...\n", a.ctrl.Library().Len())
			stats, err := store.Reindex(cmd.Context(), a.db, a.ctrl.Library().All())
			if err != nil {
				return fmt.Errorf("reindex: %w", err)
			}
			fmt.Fprintf(os.Stderr, "Done. %s\n", stats)
			return nil
		},
	}
}

func archiveCmd() *cobra.Command {
	var platform string
	var limit int

	cmd := &cobra.Command{
		Use:   "archive",
		Short: "List archived personas, newest first (TSV: id, saved, platform, turns, name)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			rows, err := search.ListAll(cmd.Context(), a.db, platform, limit)
			if err != nil {
				return err
			}
			if len(rows) == 0 {
				fmt.Fprintln(os.Stderr, "Archive is empty. Run 'crys reindex' to build it from the library.")
				return nil
			}
			for _, r := range rows {
				fmt.Printf("%s\t%s%s%s\t%s\t%s\t%s\n",
					r.PersonaID, sColorDim, r.CreatedAt, sColorReset, r.PlatformName, r.Snippet, flatten(r.Name))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&platform, "platform", "", "Filter by platform id")
	cmd.Flags().IntVar(&limit, "limit", 100, "Max rows")

	return cmd
}
