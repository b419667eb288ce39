package parse

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const maxLineSize = 10 * 1024 * 1024 // 10MB

const (
	PlatformClaudeCode = "claude-code"
	PlatformCodex      = "codex"
)

// lineDecoder turns one JSONL record into a chat message. ok is false for
// records that are not transcript (meta, tool output, reasoning).
type lineDecoder func(line []byte) (msg RawMessage, ok bool)

type logFormat struct {
	platformID   string
	platformName string
	decode       lineDecoder
}

var (
	claudeFormat = logFormat{PlatformClaudeCode, "Claude Code", decodeClaudeLine}
	codexFormat  = logFormat{PlatformCodex, "Codex", decodeCodexLine}
)

// ParseAgentLog reads a coding-agent session log (JSONL) as if it had been
// scraped from a chat page. The format is picked from the first JSON
// record: Codex records carry a "payload", Claude Code records do not.
func ParseAgentLog(filePath string) (*ScrapeResult, error) {
	return readLog(filePath, nil)
}

func ParseClaudeLog(filePath string) (*ScrapeResult, error) {
	return readLog(filePath, &claudeFormat)
}

func ParseCodexLog(filePath string) (*ScrapeResult, error) {
	return readLog(filePath, &codexFormat)
}

func readLog(filePath string, format *logFormat) (*ScrapeResult, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	res := &ScrapeResult{
		ChatID:    LogName(filePath),
		URL:       "file://" + filePath,
		Timestamp: time.Now().UnixMilli(),
	}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		if format == nil {
			format = detectFormat(line)
			if format == nil {
				continue
			}
		}
		msg, ok := format.decode(line)
		if !ok {
			continue
		}
		msg.Index = len(res.Exchanges)
		res.Exchanges = append(res.Exchanges, msg)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", filePath, err)
	}

	if format == nil {
		format = &claudeFormat
	}
	res.PlatformID = format.platformID
	res.PlatformName = format.platformName
	return res, nil
}

func detectFormat(line []byte) *logFormat {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(line, &probe); err != nil {
		return nil
	}
	if _, ok := probe["payload"]; ok {
		return &codexFormat
	}
	return &claudeFormat
}

// parseTimestamp returns unix ms, or 0 when the value is missing or unparseable.
func parseTimestamp(s string) int64 {
	if s == "" {
		return 0
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UnixMilli()
		}
	}
	return 0
}

// LogName derives a default persona name from a log file path.
func LogName(filePath string) string {
	return strings.TrimSuffix(filepath.Base(filePath), filepath.Ext(filePath))
}

func joinText(parts []string) string {
	return strings.TrimSpace(strings.Join(parts, "\n"))
}
