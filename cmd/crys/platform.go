package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yargnad/The-Crystalizer/internal/config"
)

func platformCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "platform",
		Short: "Show and edit platform definitions (selectors, URL patterns, preambles)",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List configured platforms",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}
			for _, p := range cfg.Platforms {
				scraper := "off"
				if p.ScraperActive {
					scraper = "on"
				}
				fmt.Printf("%s\t%s\t%s\tscraper=%s\n", p.ID, p.Name, p.URLPattern, scraper)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "get <id> <field>",
		Short: "Print one field of a platform",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}
			p, field, err := platformField(cfg, args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Println(p.Get(field))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set <id> <field> <value>",
		Short: "Change one field of a platform and save the config",
		Long: `Change one field of a platform definition. Fields:
  ` + strings.Join(fieldList(), "\n  ") + `

Use "-" as the value to read it from stdin (handy for multi-line preambles).`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}
			p, field, err := platformField(cfg, args[0], args[1])
			if err != nil {
				return err
			}
			value := args[2]
			if value == "-" {
				data, err := io.ReadAll(os.Stdin)
				if err != nil {
					return err
				}
				value = strings.TrimRight(string(data), "\n")
			}
			if err := p.Set(field, value); err != nil {
				return err
			}
			if err := cfg.Save(); err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "Saved %s.%s to %s\n", p.ID, field, cfg.Path)
			return nil
		},
	})

	return cmd
}

func platformField(cfg *config.Config, id, name string) (*config.Platform, config.PlatformField, error) {
	p, ok := cfg.Platform(id)
	if !ok {
		return nil, 0, fmt.Errorf("no platform %q", id)
	}
	field, err := config.ParsePlatformField(name)
	if err != nil {
		return nil, 0, err
	}
	return p, field, nil
}

func fieldList() []string {
	var out []string
	for f := config.FieldName; f <= config.FieldPreambleContinuity; f++ {
		out = append(out, f.String())
	}
	return out
}
