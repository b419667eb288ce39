package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"go.uber.org/zap"

	"github.com/yargnad/The-Crystalizer/internal/config"
	"github.com/yargnad/The-Crystalizer/internal/controller"
	"github.com/yargnad/The-Crystalizer/internal/logging"
	"github.com/yargnad/The-Crystalizer/internal/scrape"
	"github.com/yargnad/The-Crystalizer/internal/store"
)

// app is everything a command needs: config, logger, the database and a
// controller restored from it.
type app struct {
	cfg  *config.Config
	log  *zap.Logger
	db   *store.DB
	ctrl *controller.Controller
}

func loadConfig() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	log, err := logging.New(cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

func openApp(ctx context.Context) (*app, error) {
	cfg, log, err := loadConfig()
	if err != nil {
		return nil, err
	}

	db, err := store.OpenDB(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	ctrl := controller.New(controller.Options{
		KV:        db,
		Archive:   db,
		Scraper:   scrape.New(cfg, log),
		Platforms: cfg.Platforms,
		DriveURL:  cfg.DriveURL,
		Logger:    log,
	})
	notices, err := ctrl.Init(ctx)
	if err != nil {
		db.Close()
		return nil, err
	}
	printNotices(notices...)

	return &app{cfg: cfg, log: log, db: db, ctrl: ctrl}, nil
}

func (a *app) Close() {
	if err := a.db.Close(); err != nil {
		a.log.Warn("close db", zap.Error(err))
	}
	_ = a.log.Sync()
}

func printNotices(notices ...controller.Notice) {
	for _, n := range notices {
		fmt.Fprintln(os.Stderr, n)
	}
}

// position parses a 1-based position as shown by the list commands.
func position(arg string) (int, error) {
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid position %q (want 1 or more)", arg)
	}
	return n - 1, nil
}
