package parse

import (
	"encoding/json"
	"strings"
)

type claudeRecord struct {
	Type      string `json:"type"`
	IsMeta    bool   `json:"isMeta"`
	Timestamp string `json:"timestamp"`
	Message   struct {
		Content json.RawMessage `json:"content"`
	} `json:"message"`
}

type claudeBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// decodeClaudeLine keeps user and assistant text. Thinking blocks are
// dropped and a user record carrying a tool_result is skipped entirely.
func decodeClaudeLine(line []byte) (RawMessage, bool) {
	var rec claudeRecord
	if err := json.Unmarshal(line, &rec); err != nil || rec.IsMeta {
		return RawMessage{}, false
	}

	var speaker Speaker
	switch rec.Type {
	case "user":
		speaker = SpeakerUser
	case "assistant":
		speaker = SpeakerModel
	default:
		return RawMessage{}, false
	}

	text := claudeText(rec.Message.Content)
	if text == "" {
		return RawMessage{}, false
	}
	return RawMessage{Speaker: speaker, Text: text, Timestamp: parseTimestamp(rec.Timestamp)}, true
}

// claudeText accepts content as a plain string or as a block list.
func claudeText(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}

	var blocks []claudeBlock
	if err := json.Unmarshal(raw, &blocks); err != nil {
		return ""
	}
	var parts []string
	for _, b := range blocks {
		switch {
		case b.Type == "tool_result":
			return ""
		case b.Type == "text" && b.Text != "":
			parts = append(parts, b.Text)
		}
	}
	return joinText(parts)
}
