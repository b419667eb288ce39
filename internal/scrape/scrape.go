package scrape

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"go.uber.org/zap"

	"github.com/yargnad/The-Crystalizer/internal/config"
	"github.com/yargnad/The-Crystalizer/internal/parse"
)

var (
	ErrUnavailable = errors.New("browser endpoint not available")
	ErrNoPlatform  = errors.New("no configured platform matches this page")
)

// MatchURL reports whether url matches an extension-style pattern where
// `*` is a wildcard and everything else is literal.
func MatchURL(url, pattern string) bool {
	if url == "" || pattern == "" {
		return false
	}
	expr := strings.ReplaceAll(regexp.QuoteMeta(pattern), `\*`, `.*`)
	re, err := regexp.Compile("(?i)^" + expr + "$")
	if err != nil {
		return false
	}
	return re.MatchString(url)
}

// FindPlatform returns the first scraper-enabled platform whose pattern
// matches url.
func FindPlatform(platforms []config.Platform, url string) (*config.Platform, bool) {
	for i := range platforms {
		p := &platforms[i]
		if p.ScraperActive && MatchURL(url, p.URLPattern) {
			return p, true
		}
	}
	return nil, false
}

// block is one element matched by the platform's messages selector.
type block interface {
	Matches(selector string) (bool, error)
	// Text returns the text of the first textSelector descendant, or the
	// block's own text when none matches.
	Text(textSelector string) (string, error)
}

// Extract classifies blocks into raw messages. Blocks with no text are
// dropped; timestamps are start plus the block's page index so order
// survives sorting.
func Extract(blocks []block, sel config.Selectors, start int64) []parse.RawMessage {
	var out []parse.RawMessage
	for i, b := range blocks {
		text, err := b.Text(sel.Text)
		if err != nil {
			continue
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}

		speaker := parse.SpeakerUnknown
		if ok, _ := b.Matches(sel.User); ok && sel.User != "" {
			speaker = parse.SpeakerUser
		} else if ok, _ := b.Matches(sel.Model); ok && sel.Model != "" {
			speaker = parse.SpeakerModel
		}

		out = append(out, parse.RawMessage{
			Speaker:   speaker,
			Text:      text,
			Timestamp: start + int64(i),
			Index:     i,
		})
	}
	return out
}

// Scraper reads chat transcripts out of a running Chrome over the DevTools
// protocol.
type Scraper struct {
	debuggerURL string
	timeout     time.Duration
	platforms   []config.Platform
	log         *zap.Logger
	now         func() time.Time
}

func New(cfg *config.Config, log *zap.Logger) *Scraper {
	timeout := time.Duration(cfg.ScrapeTimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Scraper{
		debuggerURL: cfg.DebuggerURL,
		timeout:     timeout,
		platforms:   cfg.Platforms,
		log:         log.Named("scrape"),
		now:         time.Now,
	}
}

// Scrape connects to the browser, picks the tab (targetURL, or the first tab
// a platform matches) and extracts its messages. A page with no message
// blocks yields a result with zero exchanges and no error.
func (s *Scraper) Scrape(ctx context.Context, targetURL string) (*parse.ScrapeResult, error) {
	if s.debuggerURL == "" {
		return nil, fmt.Errorf("%w: no debugger_url configured", ErrUnavailable)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel() // also drops the DevTools connection; the browser stays open

	controlURL, err := launcher.ResolveURL(s.debuggerURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	page, platform, pageURL, err := s.findPage(browser, targetURL)
	if err != nil {
		return nil, err
	}
	s.log.Debug("scraping page", zap.String("platform", platform.ID), zap.String("url", pageURL))

	start := s.now().UnixMilli()
	elems, err := page.Elements(platform.Selectors.Messages)
	if err != nil {
		return nil, fmt.Errorf("query %q: %w", platform.Selectors.Messages, err)
	}

	blocks := make([]block, len(elems))
	for i, el := range elems {
		blocks[i] = rodBlock{el}
	}
	messages := Extract(blocks, platform.Selectors, start)
	if len(elems) == 0 {
		s.log.Warn("no message blocks found; selectors may be stale or the page not loaded",
			zap.String("platform", platform.ID), zap.String("selector", platform.Selectors.Messages))
	}

	return &parse.ScrapeResult{
		ChatID:       pageURL,
		PlatformID:   platform.ID,
		PlatformName: platform.Name,
		URL:          pageURL,
		Timestamp:    start,
		Exchanges:    messages,
	}, nil
}

func (s *Scraper) findPage(browser *rod.Browser, targetURL string) (*rod.Page, *config.Platform, string, error) {
	pages, err := browser.Pages()
	if err != nil {
		return nil, nil, "", fmt.Errorf("list tabs: %w", err)
	}

	for _, page := range pages {
		info, err := page.Info()
		if err != nil {
			continue
		}
		if targetURL != "" && info.URL != targetURL {
			continue
		}
		platform, ok := FindPlatform(s.platforms, info.URL)
		if !ok {
			if targetURL != "" {
				return nil, nil, "", fmt.Errorf("%w: %s", ErrNoPlatform, info.URL)
			}
			continue
		}
		return page, platform, info.URL, nil
	}

	if targetURL != "" {
		return nil, nil, "", fmt.Errorf("no open tab at %s", targetURL)
	}
	return nil, nil, "", ErrNoPlatform
}

type rodBlock struct {
	el *rod.Element
}

func (b rodBlock) Matches(selector string) (bool, error) {
	if selector == "" {
		return false, nil
	}
	return b.el.Matches(selector)
}

func (b rodBlock) Text(textSelector string) (string, error) {
	if textSelector != "" {
		children, err := b.el.Elements(textSelector)
		if err == nil && len(children) > 0 {
			if t, err := children[0].Text(); err == nil && strings.TrimSpace(t) != "" {
				return t, nil
			}
		}
	}
	return b.el.Text()
}

// Ping checks that the DevTools endpoint answers and returns the resolved
// websocket URL. It does not attach to any tab.
func Ping(ctx context.Context, debuggerURL string) (string, error) {
	if debuggerURL == "" {
		return "", fmt.Errorf("%w: no debugger_url configured", ErrUnavailable)
	}
	type result struct {
		url string
		err error
	}
	done := make(chan result, 1)
	go func() {
		u, err := launcher.ResolveURL(debuggerURL)
		done <- result{u, err}
	}()
	select {
	case r := <-done:
		if r.err != nil {
			return "", fmt.Errorf("%w: %v", ErrUnavailable, r.err)
		}
		return r.url, nil
	case <-ctx.Done():
		return "", fmt.Errorf("%w: %v", ErrUnavailable, ctx.Err())
	}
}
