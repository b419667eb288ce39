package controller

import (
	"context"

	"go.uber.org/zap"

	"github.com/yargnad/The-Crystalizer/internal/merge"
)

type Step int

const (
	StepPersonas Step = 1 + iota // manage personas
	StepScrape                   // scrape and select
	StepPrune                    // merge and prune
	StepExport                   // export
)

func (s Step) Valid() bool {
	return s >= StepPersonas && s <= StepExport
}

func (s Step) String() string {
	switch s {
	case StepPersonas:
		return "personas"
	case StepScrape:
		return "scrape"
	case StepPrune:
		return "prune"
	case StepExport:
		return "export"
	}
	return "unknown"
}

// requirement is what a step needs from the state before it can be entered.
type requirement struct {
	met     func(c *Controller) bool
	message string
}

func hasQueue(c *Controller) bool {
	return len(c.queue) > 0
}

// requirements is consulted both when restoring the saved step and on every
// navigation. Steps without an entry can always be entered.
var requirements = map[Step]requirement{
	StepPrune:  {hasQueue, "Add at least one persona to the merge queue before pruning."},
	StepExport: {hasQueue, "Add at least one persona to the merge queue before exporting."},
}

func (c *Controller) allowed(s Step) bool {
	req, ok := requirements[s]
	return !ok || req.met(c)
}

func requirementMessage(s Step) string {
	if req, ok := requirements[s]; ok {
		return req.message
	}
	return ""
}

// Goto moves to step s. A step whose requirement fails redirects to step 1
// with a warning; that is a notice, not an error.
func (c *Controller) Goto(ctx context.Context, s Step) (*Notice, error) {
	if !s.Valid() {
		return nil, invalid("no step %d", int(s))
	}

	if !c.allowed(s) {
		c.log.Info("navigation blocked by precondition", zap.Int("step", int(s)))
		c.step = StepPersonas
		if err := c.persist(ctx, map[string]any{KeyStep: c.step}); err != nil {
			return nil, err
		}
		return &Notice{LevelWarning, requirementMessage(s)}, nil
	}

	c.step = s
	if err := c.persist(ctx, map[string]any{KeyStep: c.step}); err != nil {
		return nil, err
	}

	if s == StepPrune {
		view, err := c.PreparePruning(ctx)
		if err != nil {
			return nil, err
		}
		if view == PruneNeedsMerge {
			return &Notice{LevelInfo, "Choose a merge strategy and run the merge to start pruning."}, nil
		}
	}
	return nil, nil
}

// Reset returns to step 1 and keeps all data.
func (c *Controller) Reset(ctx context.Context) error {
	c.step = StepPersonas
	return c.persist(ctx, map[string]any{KeyStep: c.step})
}

type PruneView string

const (
	PruneEmpty      PruneView = "empty"       // nothing queued
	PruneNeedsMerge PruneView = "needs-merge" // several queued, not merged yet
	PruneReady      PruneView = "ready"
)

// PreparePruning sets up the working set on entering step 3. A single queued
// persona is loaded directly, unless the working set already holds it.
func (c *Controller) PreparePruning(ctx context.Context) (PruneView, error) {
	personas, missing := merge.Resolve(c.queue, c.library)
	for _, id := range missing {
		c.log.Warn("skipping missing persona in merge queue", zap.String("persona_id", id))
	}

	switch len(personas) {
	case 0:
		return PruneEmpty, nil
	case 1:
		p := personas[0]
		if c.prune.SourcedFrom(p.ID) {
			return PruneReady, nil
		}
		c.log.Debug("auto-loading single persona", zap.String("persona_id", p.ID))
		if err := c.prune.Replace(ctx, merge.Single(p)); err != nil {
			return "", err
		}
		return PruneReady, nil
	}

	if c.prune.Empty() || !c.workingSetFromQueue() {
		return PruneNeedsMerge, nil
	}
	return PruneReady, nil
}

func (c *Controller) workingSetFromQueue() bool {
	for _, x := range c.prune.Exchanges() {
		if !c.queue.Contains(x.SourcePersonaID) {
			return false
		}
	}
	return true
}
