package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/yargnad/The-Crystalizer/internal/controller"
	"github.com/yargnad/The-Crystalizer/internal/scrape"
	"github.com/yargnad/The-Crystalizer/internal/store"
)

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Self-check: verify config, DB, stored state, archive and browser endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, _, err := loadConfig()
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}

			fmt.Println("=== Config ===")
			if _, err := os.Stat(cfg.Path); err != nil {
				fmt.Printf("  Path: %s (NOT FOUND, using defaults)\n", cfg.Path)
			} else {
				fmt.Printf("  Path: %s (OK)\n", cfg.Path)
			}
			fmt.Printf("  Platforms: %d\n", len(cfg.Platforms))
			checkDir("Export dir", cfg.ExportDir)

			fmt.Println("\n=== Database ===")
			fmt.Printf("  Path: %s\n", cfg.DBPath)
			if _, err := os.Stat(cfg.DBPath); os.IsNotExist(err) {
				fmt.Println("  Status: NOT FOUND (created on first use)")
			} else {
				db, err := store.OpenDB(cfg.DBPath)
				if err != nil {
					return fmt.Errorf("open db: %w", err)
				}
				defer db.Close()
				if err := checkDB(ctx, db); err != nil {
					return err
				}
			}

			fmt.Println("\n=== Browser ===")
			pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			if ws, err := scrape.Ping(pingCtx, cfg.DebuggerURL); err != nil {
				fmt.Printf("  Endpoint: %q (%v)\n", cfg.DebuggerURL, err)
			} else {
				fmt.Printf("  Endpoint: %s (OK)\n", ws)
			}

			if info, err := os.Stat(cfg.DBPath); err == nil {
				sizeMB := float64(info.Size()) / 1024 / 1024
				fmt.Printf("\n=== DB Size: %.1f MB ===\n", sizeMB)
			}
			return nil
		},
	}
}

func checkDB(ctx context.Context, db *store.DB) error {
	keys, err := db.Keys(ctx)
	if err != nil {
		return fmt.Errorf("list keys: %w", err)
	}
	present := make(map[string]bool, len(keys))
	for _, k := range keys {
		present[k] = true
	}
	for _, k := range controller.AllKeys {
		status := "-"
		if present[k] {
			status = "stored"
		}
		fmt.Printf("  %-16s %s\n", k, status)
	}

	personaCount, err := db.PersonaCount(ctx)
	if err != nil {
		return fmt.Errorf("count personas: %w", err)
	}
	turnCount, err := db.TurnCount(ctx)
	if err != nil {
		return fmt.Errorf("count turns: %w", err)
	}
	fmt.Printf("  Archived personas: %d\n", personaCount)
	fmt.Printf("  Archived turns:    %d\n", turnCount)

	fmt.Println("\n=== FTS5 ===")
	ftsCount, err := db.FTSCount(ctx)
	if err != nil {
		fmt.Printf("  FTS5 error: %v\n", err)
		return nil
	}
	fmt.Printf("  FTS5 entries: %d\n", ftsCount)
	if ftsCount == turnCount {
		fmt.Println("  Status: OK (synced)")
	} else {
		fmt.Printf("  Status: MISMATCH (turns=%d, fts=%d)\n", turnCount, ftsCount)
	}
	return nil
}

func checkDir(name, path string) {
	if info, err := os.Stat(path); err != nil {
		fmt.Printf("  %s: %s (NOT FOUND)\n", name, path)
	} else if !info.IsDir() {
		fmt.Printf("  %s: %s (NOT A DIRECTORY)\n", name, path)
	} else {
		fmt.Printf("  %s: %s (OK)\n", name, path)
	}
}
