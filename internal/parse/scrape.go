package parse

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// ReadScrapeFile loads a ScrapeResult written by the page content script.
// Both the bare result and the {"data": ...} envelope the script replies
// with are accepted.
func ReadScrapeFile(path string) (*ScrapeResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return DecodeScrape(data)
}

func DecodeScrape(data []byte) (*ScrapeResult, error) {
	var envelope struct {
		Data *ScrapeResult `json:"data"`
	}
	if err := json.Unmarshal(data, &envelope); err == nil && envelope.Data != nil {
		return envelope.Data, nil
	}

	var res ScrapeResult
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("decode scrape result: %w", err)
	}
	return &res, nil
}

// CountSpeakers returns how many messages are attributable to a side, i.e.
// everything the pairer will keep.
func CountSpeakers(messages []RawMessage) int {
	n := 0
	for _, m := range messages {
		if strings.TrimSpace(m.Text) == "" {
			continue
		}
		if m.Speaker == SpeakerUser || m.Speaker == SpeakerModel {
			n++
		}
	}
	return n
}
