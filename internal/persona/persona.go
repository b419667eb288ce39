package persona

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/yargnad/The-Crystalizer/internal/parse"
)

var ErrInvalidPersona = errors.New("invalid persona")

// MergedPlatform is the platform name given to personas saved from a merge.
const MergedPlatform = "Merged"

// Persona is a named conversation record. Field names match the layout the
// browser extension persists, so its export files import unchanged.
type Persona struct {
	ID           string           `json:"id"`
	Name         string           `json:"name"`
	PlatformID   string           `json:"platformId"`
	PlatformName string           `json:"platformName"`
	URL          string           `json:"url,omitempty"`
	Timestamp    int64            `json:"timestamp"`
	Exchanges    []parse.TurnPair `json:"exchanges"`
}

func NewID() string {
	return "persona-" + uuid.NewString()
}

// FromScrape pairs the scraped messages and wraps them in a new persona.
func FromScrape(name string, res *parse.ScrapeResult) Persona {
	return Persona{
		ID:           NewID(),
		Name:         name,
		PlatformID:   res.PlatformID,
		PlatformName: res.PlatformName,
		URL:          res.URL,
		Timestamp:    res.Timestamp,
		Exchanges:    parse.Pair(res.Exchanges),
	}
}

// Decode validates persona JSON from an untrusted file. The input may hold a
// single persona or an array of them (a library export). Every persona gets
// a fresh id; on any failure nothing is returned.
func Decode(data []byte) ([]Persona, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrInvalidPersona)
	}

	var raws []json.RawMessage
	if data[0] == '[' {
		if err := json.Unmarshal(data, &raws); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPersona, err)
		}
	} else {
		raws = []json.RawMessage{data}
	}

	out := make([]Persona, 0, len(raws))
	for i, raw := range raws {
		p, err := decodeOne(raw)
		if err != nil {
			if len(raws) > 1 {
				return nil, fmt.Errorf("entry %d: %w", i, err)
			}
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func decodeOne(raw json.RawMessage) (Persona, error) {
	var check struct {
		ID        string          `json:"id"`
		Name      string          `json:"name"`
		Exchanges json.RawMessage `json:"exchanges"`
	}
	if err := json.Unmarshal(raw, &check); err != nil {
		return Persona{}, fmt.Errorf("%w: %v", ErrInvalidPersona, err)
	}
	switch {
	case check.ID == "":
		return Persona{}, fmt.Errorf("%w: missing id", ErrInvalidPersona)
	case check.Name == "":
		return Persona{}, fmt.Errorf("%w: missing name", ErrInvalidPersona)
	case len(check.Exchanges) == 0 || string(check.Exchanges) == "null":
		return Persona{}, fmt.Errorf("%w: missing exchanges", ErrInvalidPersona)
	}

	var p Persona
	if err := json.Unmarshal(raw, &p); err != nil {
		return Persona{}, fmt.Errorf("%w: %v", ErrInvalidPersona, err)
	}
	p.ID = NewID()
	return p, nil
}

// Marshal renders personas the way the extension exports them (2-space JSON).
func Marshal(v any) ([]byte, error) {
	return json.MarshalIndent(v, "", "  ")
}

var whitespaceRe = regexp.MustCompile(`\s+`)

func FileName(p Persona) string {
	return "persona_" + whitespaceRe.ReplaceAllString(strings.TrimSpace(p.Name), "_") + ".json"
}

func LibraryFileName(nowMillis int64) string {
	return fmt.Sprintf("crystalizer_personas_%d.json", nowMillis)
}
