package controller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/yargnad/The-Crystalizer/internal/config"
	"github.com/yargnad/The-Crystalizer/internal/export"
	"github.com/yargnad/The-Crystalizer/internal/merge"
	"github.com/yargnad/The-Crystalizer/internal/parse"
	"github.com/yargnad/The-Crystalizer/internal/persona"
	"github.com/yargnad/The-Crystalizer/internal/prune"
	"github.com/yargnad/The-Crystalizer/internal/store"
)

// Storage keys. Together they are the durable schema.
const (
	KeyPersonas     = "storedPersonas"
	KeyMergeQueue   = "mergeQueue"
	KeyWorkingSet   = "prunedExchanges"
	KeyStep         = "currentStep"
	KeyLastScraped  = "lastScrapedData"
	KeyExportTarget = "lastConfigId"
	KeyTransferMode = "transferMode"
	KeyDriveURL     = "googleDriveUrl"
)

var AllKeys = []string{
	KeyPersonas, KeyMergeQueue, KeyWorkingSet, KeyStep,
	KeyLastScraped, KeyExportTarget, KeyTransferMode, KeyDriveURL,
}

// ErrValidation marks a user error: the operation was refused and nothing
// changed.
var ErrValidation = errors.New("validation failed")

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notice is a status line for the user.
type Notice struct {
	Level   Level  `json:"level"`
	Message string `json:"message"`
}

func (n Notice) String() string {
	return fmt.Sprintf("[%s] %s", n.Level, n.Message)
}

// Archive mirrors personas into the searchable archive. *store.DB satisfies it.
type Archive interface {
	IndexPersona(ctx context.Context, p persona.Persona) error
	DeletePersona(ctx context.Context, personaID string) error
}

// Scraper fetches a transcript from the browser. *scrape.Scraper satisfies it.
type Scraper interface {
	Scrape(ctx context.Context, targetURL string) (*parse.ScrapeResult, error)
}

type Options struct {
	KV        store.KV
	Archive   Archive // optional
	Scraper   Scraper // optional
	Platforms []config.Platform
	DriveURL  string // used until one is stored
	Logger    *zap.Logger
}

// Controller owns the application state and is the only writer of it.
// It is not safe for concurrent use; callers serialize access.
type Controller struct {
	kv        store.KV
	archive   Archive
	scraper   Scraper
	platforms []config.Platform
	log       *zap.Logger
	now       func() time.Time

	library      *persona.Library
	queue        persona.Queue
	prune        *prune.State
	step         Step
	lastScraped  *parse.ScrapeResult
	exportTarget string
	mode         export.Mode
	driveURL     string
}

func New(opts Options) *Controller {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	c := &Controller{
		kv:        opts.KV,
		archive:   opts.Archive,
		scraper:   opts.Scraper,
		platforms: opts.Platforms,
		log:       log.Named("controller"),
		now:       time.Now,
		library:   persona.NewLibrary(),
		step:      StepPersonas,
		mode:      export.ModeTransfer,
		driveURL:  opts.DriveURL,
	}
	if len(opts.Platforms) > 0 {
		c.exportTarget = opts.Platforms[0].ID
	}
	c.prune = prune.New(nil, c)
	return c
}

// Init loads persisted state and restores the step the user was on,
// falling back to step 1 when its precondition no longer holds.
func (c *Controller) Init(ctx context.Context) ([]Notice, error) {
	raw, err := c.kv.Get(ctx, AllKeys...)
	if err != nil {
		return nil, fmt.Errorf("load state: %w", err)
	}

	var lib persona.Library
	if c.decode(raw, KeyPersonas, &lib) {
		c.library = &lib
	}
	var queue persona.Queue
	if c.decode(raw, KeyMergeQueue, &queue) {
		c.queue = queue
	}
	var set []merge.Exchange
	c.decode(raw, KeyWorkingSet, &set)
	var step Step
	if c.decode(raw, KeyStep, &step) && step.Valid() {
		c.step = step
	}
	var scraped *parse.ScrapeResult
	if c.decode(raw, KeyLastScraped, &scraped) {
		c.lastScraped = scraped
	}
	var target string
	if c.decode(raw, KeyExportTarget, &target) && target != "" {
		c.exportTarget = target
	}
	var mode export.Mode
	if c.decode(raw, KeyTransferMode, &mode) {
		if m, err := export.ParseMode(string(mode)); err == nil {
			c.mode = m
		}
	}
	var drive string
	if c.decode(raw, KeyDriveURL, &drive) {
		c.driveURL = drive
	}

	for _, id := range c.queue {
		if _, ok := c.library.Get(id); !ok {
			c.log.Warn("merge queue references missing persona", zap.String("persona_id", id))
		}
	}

	// restore verbatim; nothing is recomputed here
	c.prune = prune.New(set, c)

	var notices []Notice
	if !c.allowed(c.step) {
		c.log.Info("restored step fails its precondition, falling back",
			zap.Int("step", int(c.step)))
		notices = append(notices, Notice{LevelWarning, requirementMessage(c.step)})
		c.step = StepPersonas
		if err := c.persist(ctx, map[string]any{KeyStep: c.step}); err != nil {
			return notices, err
		}
		return notices, nil
	}

	if c.step == StepPrune && c.prune.Empty() {
		view, err := c.PreparePruning(ctx)
		if err != nil {
			return notices, err
		}
		if view == PruneNeedsMerge {
			notices = append(notices, Notice{LevelInfo, "Choose a merge strategy and run the merge to start pruning."})
		}
	}
	return notices, nil
}

// decode unmarshals one stored key into dst. It reports false when the key
// is absent or unreadable; dst is then left untouched.
func (c *Controller) decode(raw map[string]json.RawMessage, key string, dst any) bool {
	v, ok := raw[key]
	if !ok || len(v) == 0 {
		return false
	}
	if err := json.Unmarshal(v, dst); err != nil {
		c.log.Warn("ignoring unreadable stored value", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

func (c *Controller) persist(ctx context.Context, items map[string]any) error {
	if err := c.kv.Set(ctx, items); err != nil {
		return fmt.Errorf("persist: %w", err)
	}
	return nil
}

// SaveWorkingSet persists the working set together with the current step.
// The prune state calls it after every mutation.
func (c *Controller) SaveWorkingSet(ctx context.Context, set []merge.Exchange) error {
	if set == nil {
		set = []merge.Exchange{}
	}
	return c.persist(ctx, map[string]any{
		KeyWorkingSet: set,
		KeyStep:       c.step,
	})
}

// Snapshot is a read-only view of the whole state.
type Snapshot struct {
	Step          Step                `json:"step"`
	Personas      []persona.Persona   `json:"personas"`
	Queue         []string            `json:"queue"`
	Legend        []merge.Legend      `json:"legend"`
	WorkingSet    []merge.Exchange    `json:"workingSet"`
	SelectedCount int                 `json:"selectedCount"`
	LastScraped   *parse.ScrapeResult `json:"lastScraped"`
	ExportTarget  string              `json:"exportTarget"`
	Mode          export.Mode         `json:"mode"`
	DriveURL      string              `json:"driveUrl"`
}

func (c *Controller) Snapshot() Snapshot {
	personas := c.library.All()
	if personas == nil {
		personas = []persona.Persona{}
	}
	set := c.prune.Exchanges()
	if set == nil {
		set = []merge.Exchange{}
	}
	return Snapshot{
		Step:          c.step,
		Personas:      personas,
		Queue:         append([]string{}, c.queue...),
		Legend:        merge.BuildLegend(c.queue, c.library),
		WorkingSet:    set,
		SelectedCount: c.prune.SelectedCount(),
		LastScraped:   c.lastScraped,
		ExportTarget:  c.exportTarget,
		Mode:          c.mode,
		DriveURL:      c.driveURL,
	}
}

func (c *Controller) Step() Step                       { return c.step }
func (c *Controller) Library() *persona.Library        { return c.library }
func (c *Controller) Queue() []string                  { return append([]string(nil), c.queue...) }
func (c *Controller) WorkingSet() []merge.Exchange     { return c.prune.Exchanges() }
func (c *Controller) SelectedCount() int               { return c.prune.SelectedCount() }
func (c *Controller) LastScraped() *parse.ScrapeResult { return c.lastScraped }
