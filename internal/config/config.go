package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

type Config struct {
	DBPath           string     `toml:"db_path"`
	ExportDir        string     `toml:"export_dir"`
	LogLevel         string     `toml:"log_level"`
	DebuggerURL      string     `toml:"debugger_url"`
	ScrapeTimeoutSec int        `toml:"scrape_timeout_sec"`
	ListenAddr       string     `toml:"listen_addr"`
	DriveURL         string     `toml:"drive_url"`
	Platforms        []Platform `toml:"platform"`

	// Path is the file the config was read from, and where Save writes.
	Path string `toml:"-"`
}

type Selectors struct {
	Messages string `toml:"messages"`
	User     string `toml:"user"`
	Model    string `toml:"model"`
	Text     string `toml:"text"`
}

type Preamble struct {
	Transfer   string `toml:"TRANSFER"`
	Continuity string `toml:"CONTINUITY"`
}

type Platform struct {
	ID            string    `toml:"id"`
	Name          string    `toml:"name"`
	URLPattern    string    `toml:"url_pattern"`
	ScraperActive bool      `toml:"scraper_active"`
	Selectors     Selectors `toml:"selectors"`
	Preamble      Preamble  `toml:"preamble"`
}

func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "crys", "config.toml"), nil
}

// Load reads the config at path (or the default location when empty). A
// missing file is not an error.
func Load(path string) (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		DBPath:           filepath.Join(home, ".config", "crys", "crys.db"),
		ExportDir:        ".",
		LogLevel:         "info",
		ScrapeTimeoutSec: 15,
		ListenAddr:       "127.0.0.1:8765",
	}

	if path == "" {
		path = filepath.Join(home, ".config", "crys", "config.toml")
	}
	cfg.Path = path

	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if len(cfg.Platforms) == 0 {
		cfg.Platforms = DefaultPlatforms()
	}

	// expand ~ in paths
	cfg.DBPath = expandHome(cfg.DBPath, home)
	cfg.ExportDir = expandHome(cfg.ExportDir, home)

	return cfg, nil
}

// Save writes the config back to Path as TOML.
func (c *Config) Save() error {
	if c.Path == "" {
		return fmt.Errorf("save config: no path")
	}
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(c.Path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	return os.WriteFile(c.Path, buf.Bytes(), 0o644)
}

func (c *Config) Platform(id string) (*Platform, bool) {
	for i := range c.Platforms {
		if c.Platforms[i].ID == id {
			return &c.Platforms[i], true
		}
	}
	return nil, false
}

// DefaultPlatformID is the export target used before the user picks one.
func (c *Config) DefaultPlatformID() string {
	if len(c.Platforms) == 0 {
		return ""
	}
	return c.Platforms[0].ID
}

func expandHome(path, home string) string {
	if len(path) > 1 && path[0] == '~' && path[1] == '/' {
		return filepath.Join(home, path[2:])
	}
	return path
}

// PlatformField names one editable platform setting.
type PlatformField int

const (
	FieldName PlatformField = iota
	FieldURLPattern
	FieldSelectorMessages
	FieldSelectorUser
	FieldSelectorModel
	FieldSelectorText
	FieldPreambleTransfer
	FieldPreambleContinuity
)

var fieldNames = map[PlatformField]string{
	FieldName:               "name",
	FieldURLPattern:         "url_pattern",
	FieldSelectorMessages:   "selectors.messages",
	FieldSelectorUser:       "selectors.user",
	FieldSelectorModel:      "selectors.model",
	FieldSelectorText:       "selectors.text",
	FieldPreambleTransfer:   "preamble.TRANSFER",
	FieldPreambleContinuity: "preamble.CONTINUITY",
}

func (f PlatformField) String() string {
	if s, ok := fieldNames[f]; ok {
		return s
	}
	return fmt.Sprintf("PlatformField(%d)", int(f))
}

func ParsePlatformField(s string) (PlatformField, error) {
	for f, name := range fieldNames {
		if strings.EqualFold(name, s) {
			return f, nil
		}
	}
	return 0, fmt.Errorf("unknown platform field %q", s)
}

func (p *Platform) Set(field PlatformField, value string) error {
	switch field {
	case FieldName:
		p.Name = value
	case FieldURLPattern:
		p.URLPattern = value
	case FieldSelectorMessages:
		p.Selectors.Messages = value
	case FieldSelectorUser:
		p.Selectors.User = value
	case FieldSelectorModel:
		p.Selectors.Model = value
	case FieldSelectorText:
		p.Selectors.Text = value
	case FieldPreambleTransfer:
		p.Preamble.Transfer = value
	case FieldPreambleContinuity:
		p.Preamble.Continuity = value
	default:
		return fmt.Errorf("unknown platform field %v", field)
	}
	return nil
}

func (p *Platform) Get(field PlatformField) string {
	switch field {
	case FieldName:
		return p.Name
	case FieldURLPattern:
		return p.URLPattern
	case FieldSelectorMessages:
		return p.Selectors.Messages
	case FieldSelectorUser:
		return p.Selectors.User
	case FieldSelectorModel:
		return p.Selectors.Model
	case FieldSelectorText:
		return p.Selectors.Text
	case FieldPreambleTransfer:
		return p.Preamble.Transfer
	case FieldPreambleContinuity:
		return p.Preamble.Continuity
	}
	return ""
}

func DefaultPlatforms() []Platform {
	return []Platform{
		{
			ID:            "gemini",
			Name:          "Google Gemini",
			URLPattern:    "*://*.google.com/share/*",
			ScraperActive: true,
			Selectors: Selectors{
				Messages: "user-query, response-container",
				User:     "user-query",
				Model:    "response-container",
				Text:     "user-query-content, response-container",
			},
			Preamble: Preamble{
				Transfer:   "## CRITICAL INSTRUCTION: SYSTEM STATE TRANSFER\n\nThis transcript, originating from the Gemini platform, represents your authoritative, clean working memory. You are to assume this entire history as if you generated it natively, without referencing the source. Immediately adopt the role of the 'Affinitive' partner and continue the project from the last line.",
				Continuity: "## INSTRUCTION: PROJECT CONTINUITY\n\nThis clean transcript is provided for context. Continue the conversation seamlessly as the 'Affinitive' partner, focusing only on the factual content and avoiding stylistic contamination.",
			},
		},
		{
			ID:            "claude",
			Name:          "Anthropic Claude",
			URLPattern:    "https://claude.ai/chat/*",
			ScraperActive: true,
			Selectors: Selectors{
				Messages: "div.text-container",
				User:     "div.user-label",
				Model:    "div.claude-label",
				Text:     "p, span",
			},
			Preamble: Preamble{
				Transfer:   "## CRITICAL INSTRUCTION: CROSS-PLATFORM SYSTEM TRANSFER\n\nThis project history originated on the Anthropic Claude platform. You must immediately adopt this entire history as your native memory. Do NOT adopt the 'Claude' tone, but strictly adhere to the project's internal logic and goals. You are now the 'Affinitive' partner.",
				Continuity: "## INSTRUCTION: PROJECT CONTINUITY\n\nThis clean, external transcript is provided for reference. Continue the conversation seamlessly, focusing only on the factual content and avoiding stylistic contamination.",
			},
		},
	}
}
