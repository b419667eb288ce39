package parse

type Speaker string

const (
	SpeakerUser    Speaker = "user"
	SpeakerModel   Speaker = "model"
	SpeakerUnknown Speaker = "unknown"
)

// RawMessage is one scraped chat block, in page order.
type RawMessage struct {
	Speaker   Speaker `json:"speaker"`
	Text      string  `json:"text"`
	Timestamp int64   `json:"timestamp"` // unix ms
	Index     int     `json:"index"`
}

// TurnPair is a user message and the assistant reply to it. One side may be
// empty for an orphaned or incomplete turn, never both.
type TurnPair struct {
	UserText      string `json:"user"`
	AssistantText string `json:"assistant"`
	Timestamp     int64  `json:"timestamp"` // unix ms
}

// ScrapeResult is what the page scraper hands back for one chat.
type ScrapeResult struct {
	ChatID       string       `json:"chatId"`
	PlatformID   string       `json:"platformId"`
	PlatformName string       `json:"platformName"`
	URL          string       `json:"url,omitempty"`
	Timestamp    int64        `json:"timestamp"`
	Exchanges    []RawMessage `json:"exchanges"`
}
