package parse

import "encoding/json"

type codexRecord struct {
	Timestamp string `json:"timestamp"`
	Type      string `json:"type"`
	Payload   struct {
		Type    string `json:"type"`
		Role    string `json:"role"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	} `json:"payload"`
}

var codexTextTypes = map[string]bool{"input_text": true, "output_text": true, "text": true}

// decodeCodexLine keeps response_item messages only. event_msg records
// repeat them, and developer or system prompts are not conversation.
func decodeCodexLine(line []byte) (RawMessage, bool) {
	var rec codexRecord
	if err := json.Unmarshal(line, &rec); err != nil {
		return RawMessage{}, false
	}
	item := rec.Payload
	if rec.Type != "response_item" || item.Type != "message" {
		return RawMessage{}, false
	}

	var speaker Speaker
	switch item.Role {
	case "user":
		speaker = SpeakerUser
	case "assistant", "":
		speaker = SpeakerModel
	default:
		return RawMessage{}, false
	}

	var parts []string
	for _, c := range item.Content {
		if codexTextTypes[c.Type] && c.Text != "" {
			parts = append(parts, c.Text)
		}
	}
	text := joinText(parts)
	if text == "" {
		return RawMessage{}, false
	}
	return RawMessage{Speaker: speaker, Text: text, Timestamp: parseTimestamp(rec.Timestamp)}, true
}
