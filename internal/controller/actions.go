package controller

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/yargnad/The-Crystalizer/internal/export"
	"github.com/yargnad/The-Crystalizer/internal/merge"
	"github.com/yargnad/The-Crystalizer/internal/parse"
	"github.com/yargnad/The-Crystalizer/internal/persona"
	"github.com/yargnad/The-Crystalizer/internal/prune"
	"github.com/yargnad/The-Crystalizer/internal/scrape"
)

// Scrape asks the browser for the current chat and holds the result until
// it is saved or discarded.
func (c *Controller) Scrape(ctx context.Context, targetURL string) (Notice, error) {
	if c.scraper == nil {
		return Notice{LevelWarning, "Scraping is not available: no browser endpoint configured."},
			fmt.Errorf("%w: no scraper", scrape.ErrUnavailable)
	}
	res, err := c.scraper.Scrape(ctx, targetURL)
	switch {
	case errors.Is(err, scrape.ErrUnavailable):
		c.log.Warn("scraper unavailable", zap.Error(err))
		return Notice{LevelWarning, "Browser endpoint not available. Start Chrome with --remote-debugging-port and check debugger_url."}, err
	case errors.Is(err, scrape.ErrNoPlatform):
		return Notice{LevelError, "No matching platform configuration found for this page."}, err
	case err != nil:
		return Notice{LevelError, "Scraping failed: " + err.Error()}, err
	}
	return c.IngestScrape(ctx, res)
}

// IngestScrape stores a scrape result produced elsewhere (the extension's
// content script, a saved file, an agent log). A result without messages is
// reported and not kept.
func (c *Controller) IngestScrape(ctx context.Context, res *parse.ScrapeResult) (Notice, error) {
	if res == nil {
		return Notice{}, invalid("no scrape result")
	}
	if len(res.Exchanges) == 0 {
		return Notice{LevelWarning, "Scraper found 0 blocks. Check selectors or refresh the page."}, nil
	}

	c.lastScraped = res
	if err := c.persist(ctx, map[string]any{KeyLastScraped: res}); err != nil {
		return Notice{}, err
	}
	name := res.PlatformName
	if name == "" {
		name = res.PlatformID
	}
	msg := fmt.Sprintf("Scraped %d messages from %s. Name it to save as a persona.", len(res.Exchanges), name)

	// unknown-speaker blocks never reach a persona; say so rather than drop them quietly
	if skipped := len(res.Exchanges) - parse.CountSpeakers(res.Exchanges); skipped > 0 {
		c.log.Warn("scrape has messages without a side",
			zap.String("platform", res.PlatformID), zap.Int("skipped", skipped))
		return Notice{LevelWarning, msg + fmt.Sprintf(" %d blank or unattributed message(s) will be skipped; check the platform's user/model selectors.", skipped)}, nil
	}
	return Notice{LevelSuccess, msg}, nil
}

func (c *Controller) DiscardScrape(ctx context.Context) error {
	c.lastScraped = nil
	return c.persist(ctx, map[string]any{KeyLastScraped: nil})
}

// SavePersona pairs the held scrape into a new persona.
func (c *Controller) SavePersona(ctx context.Context, name string, addToQueue bool) (persona.Persona, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return persona.Persona{}, invalid("persona name is required")
	}
	if c.lastScraped == nil {
		return persona.Persona{}, invalid("no scraped data to save")
	}

	p := persona.FromScrape(name, c.lastScraped)
	c.library.Add(p)
	if addToQueue {
		_ = c.queue.Enqueue(p.ID) // fresh id, cannot already be queued
	}
	c.lastScraped = nil

	if err := c.persist(ctx, map[string]any{
		KeyPersonas:    c.library,
		KeyMergeQueue:  c.queue,
		KeyLastScraped: nil,
	}); err != nil {
		return p, err
	}
	c.archivePersona(ctx, p)
	c.log.Info("persona saved", zap.String("persona_id", p.ID), zap.Int("exchanges", len(p.Exchanges)))
	return p, nil
}

func (c *Controller) DeletePersona(ctx context.Context, id string) error {
	if !c.library.Remove(id) {
		return invalid("no persona %s", id)
	}
	c.queue.Remove(id)

	if err := c.persist(ctx, map[string]any{
		KeyPersonas:   c.library,
		KeyMergeQueue: c.queue,
	}); err != nil {
		return err
	}
	if c.archive != nil {
		if err := c.archive.DeletePersona(ctx, id); err != nil {
			c.log.Warn("archive delete failed", zap.String("persona_id", id), zap.Error(err))
		}
	}
	return nil
}

// ImportPersonas adds personas from an exported JSON file. Invalid input is
// rejected as a whole and leaves the library untouched.
func (c *Controller) ImportPersonas(ctx context.Context, data []byte) ([]persona.Persona, error) {
	imported, err := persona.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	for _, p := range imported {
		c.library.Add(p)
	}
	if err := c.persist(ctx, map[string]any{KeyPersonas: c.library}); err != nil {
		return imported, err
	}
	for _, p := range imported {
		c.archivePersona(ctx, p)
	}
	return imported, nil
}

// ExportPersona returns the persona as pretty JSON plus its file name.
func (c *Controller) ExportPersona(id string) ([]byte, string, error) {
	p, ok := c.library.Get(id)
	if !ok {
		return nil, "", invalid("no persona %s", id)
	}
	data, err := persona.Marshal(p)
	if err != nil {
		return nil, "", err
	}
	return data, persona.FileName(p), nil
}

func (c *Controller) ExportLibrary() ([]byte, string, error) {
	if c.library.Len() == 0 {
		return nil, "", invalid("no personas to export")
	}
	data, err := persona.Marshal(c.library)
	if err != nil {
		return nil, "", err
	}
	return data, persona.LibraryFileName(c.now().UnixMilli()), nil
}

// SaveMergeAsPersona stores the selected part of the working set as a new
// persona.
func (c *Controller) SaveMergeAsPersona(ctx context.Context, name string) (persona.Persona, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return persona.Persona{}, invalid("persona name is required")
	}
	pairs := merge.Pairs(c.prune.Exchanges())
	if len(pairs) == 0 {
		return persona.Persona{}, invalid("no selected exchanges to save")
	}

	p := persona.Persona{
		ID:           persona.NewID(),
		Name:         name,
		PlatformID:   strings.ToLower(persona.MergedPlatform),
		PlatformName: persona.MergedPlatform,
		Timestamp:    c.now().UnixMilli(),
		Exchanges:    pairs,
	}
	c.library.Add(p)
	if err := c.persist(ctx, map[string]any{KeyPersonas: c.library}); err != nil {
		return p, err
	}
	c.archivePersona(ctx, p)
	return p, nil
}

func (c *Controller) archivePersona(ctx context.Context, p persona.Persona) {
	if c.archive == nil {
		return
	}
	if err := c.archive.IndexPersona(ctx, p); err != nil {
		c.log.Warn("archive index failed", zap.String("persona_id", p.ID), zap.Error(err))
	}
}

// Enqueue adds a persona to the merge queue. Queuing it twice is a warning.
func (c *Controller) Enqueue(ctx context.Context, id string) (*Notice, error) {
	p, ok := c.library.Get(id)
	if !ok {
		return nil, invalid("no persona %s", id)
	}
	if err := c.queue.Enqueue(id); errors.Is(err, persona.ErrAlreadyQueued) {
		return &Notice{LevelWarning, p.Name + " is already in the merge queue."}, nil
	}
	if err := c.persist(ctx, map[string]any{KeyMergeQueue: c.queue}); err != nil {
		return nil, err
	}
	return &Notice{LevelSuccess, "Added " + p.Name + " to the merge queue."}, nil
}

func (c *Controller) Dequeue(ctx context.Context, id string) error {
	if !c.queue.Remove(id) {
		return invalid("%s is not queued", id)
	}
	return c.persist(ctx, map[string]any{KeyMergeQueue: c.queue})
}

func (c *Controller) MoveUp(ctx context.Context, i int) error {
	if !c.queue.MoveUp(i) {
		return invalid("cannot move queue entry %d up", i)
	}
	return c.persist(ctx, map[string]any{KeyMergeQueue: c.queue})
}

func (c *Controller) MoveDown(ctx context.Context, i int) error {
	if !c.queue.MoveDown(i) {
		return invalid("cannot move queue entry %d down", i)
	}
	return c.persist(ctx, map[string]any{KeyMergeQueue: c.queue})
}

// ExecuteMerge replaces the working set with a fresh merge of the queue.
func (c *Controller) ExecuteMerge(ctx context.Context, strategy merge.Strategy) (int, error) {
	if len(c.queue) == 0 {
		return 0, invalid("merge queue is empty")
	}
	res := merge.Merge(c.queue, c.library, strategy)
	for _, id := range res.Missing {
		c.log.Warn("skipping missing persona in merge queue", zap.String("persona_id", id))
	}
	if err := c.prune.Replace(ctx, res.Exchanges); err != nil {
		return 0, err
	}
	c.log.Info("merged", zap.String("strategy", string(strategy)), zap.Int("exchanges", len(res.Exchanges)))
	return len(res.Exchanges), nil
}

func (c *Controller) ToggleSelection(ctx context.Context, i int) error {
	return c.pruneErr(c.prune.ToggleSelection(ctx, i))
}

func (c *Controller) ToggleExpanded(ctx context.Context, i int) error {
	return c.pruneErr(c.prune.ToggleExpanded(ctx, i))
}

func (c *Controller) SelectAll(ctx context.Context) error {
	return c.prune.SelectAll(ctx)
}

func (c *Controller) DeselectAll(ctx context.Context) error {
	return c.prune.DeselectAll(ctx)
}

func (c *Controller) pruneErr(err error) error {
	if errors.Is(err, prune.ErrIndexOutOfRange) {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}
	return err
}

// SetExportTarget picks the platform and mode whose preamble is used.
func (c *Controller) SetExportTarget(ctx context.Context, platformID string, mode export.Mode) error {
	found := false
	for _, p := range c.platforms {
		if p.ID == platformID {
			found = true
			break
		}
	}
	if !found {
		return invalid("no platform %q", platformID)
	}
	if _, err := export.ParseMode(string(mode)); err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}

	c.exportTarget = platformID
	c.mode = mode
	return c.persist(ctx, map[string]any{
		KeyExportTarget: c.exportTarget,
		KeyTransferMode: c.mode,
	})
}

func (c *Controller) SetDriveURL(ctx context.Context, url string) error {
	c.driveURL = strings.TrimSpace(url)
	return c.persist(ctx, map[string]any{KeyDriveURL: c.driveURL})
}

// Export renders the selected exchanges. Nothing is persisted.
func (c *Controller) Export() (export.Output, error) {
	preamble, err := export.Preamble(c.platforms, c.exportTarget, c.mode, c.driveURL)
	if err != nil {
		return export.Output{}, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	out, err := export.FormatSelected(c.prune.Exchanges(), preamble, c.now())
	if err != nil {
		return export.Output{}, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	return out, nil
}
