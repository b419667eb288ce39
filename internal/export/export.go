package export

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yargnad/The-Crystalizer/internal/config"
	"github.com/yargnad/The-Crystalizer/internal/merge"
)

var (
	ErrNothingSelected = errors.New("no exchanges selected for export")
	ErrTemplateMissing = errors.New("no preamble template for export target")
)

type Mode string

const (
	ModeTransfer   Mode = "TRANSFER"
	ModeContinuity Mode = "CONTINUITY"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToUpper(strings.TrimSpace(s))) {
	case ModeTransfer:
		return ModeTransfer, nil
	case ModeContinuity:
		return ModeContinuity, nil
	}
	return "", fmt.Errorf("unknown transfer mode %q (want TRANSFER or CONTINUITY)", s)
}

const (
	fileURLVar          = "${fileUrl}"
	driveURLPlaceholder = "[PASTE GOOGLE DRIVE URL HERE]"
)

// Preamble returns the platform's template for mode with the drive link
// filled in.
func Preamble(platforms []config.Platform, platformID string, mode Mode, driveURL string) (string, error) {
	var tmpl string
	found := false
	for _, p := range platforms {
		if p.ID != platformID {
			continue
		}
		found = true
		if mode == ModeContinuity {
			tmpl = p.Preamble.Continuity
		} else {
			tmpl = p.Preamble.Transfer
		}
	}
	if !found {
		return "", fmt.Errorf("%w: unknown platform %q", ErrTemplateMissing, platformID)
	}
	if strings.TrimSpace(tmpl) == "" {
		return "", fmt.Errorf("%w: %s has no %s template", ErrTemplateMissing, platformID, mode)
	}

	link := strings.TrimSpace(driveURL)
	if link == "" {
		link = driveURLPlaceholder
	}
	return strings.ReplaceAll(tmpl, fileURLVar, link), nil
}

type Output struct {
	Document  string `json:"document"`
	Clipboard string `json:"clipboard"`
	Count     int    `json:"count"`
	Filename  string `json:"filename"`
}

const timestampLayout = "Jan 2, 2006 3:04:05 PM"

// FormatSelected renders the selected exchanges as a markdown transcript and
// builds the clipboard payload that accompanies it. The clipboard text never
// contains the transcript itself.
func FormatSelected(set []merge.Exchange, preamble string, now time.Time) (Output, error) {
	var selected []merge.Exchange
	for _, x := range set {
		if x.Selected {
			selected = append(selected, x)
		}
	}
	if len(selected) == 0 {
		return Output{}, ErrNothingSelected
	}

	var b strings.Builder
	b.WriteString("# Crystalizer Transcript\n\n")
	fmt.Fprintf(&b, "**Generated:** %s  \n", now.Format(timestampLayout))
	fmt.Fprintf(&b, "**Total Exchanges:** %d\n\n", len(selected))
	b.WriteString("---\n\n")

	for i, x := range selected {
		fmt.Fprintf(&b, "## Exchange %d\n\n", i+1)
		fmt.Fprintf(&b, "*%s*", formatTimestamp(x.Timestamp))
		if x.SourcePersonaName != "" {
			fmt.Fprintf(&b, " · %s (%s)", x.SourcePersonaName, x.SourcePlatform)
		}
		b.WriteString("\n\n")
		if x.UserText != "" {
			fmt.Fprintf(&b, "### User\n\n%s\n\n", x.UserText)
		}
		if x.AssistantText != "" {
			fmt.Fprintf(&b, "### Assistant\n\n%s\n\n", x.AssistantText)
		}
		b.WriteString("---\n\n")
	}

	var c strings.Builder
	c.WriteString(strings.TrimSpace(preamble))
	c.WriteString("\n\n---\n\n")
	fmt.Fprintf(&c, "The attached transcript file contains %d exchange%s. ", len(selected), plural(len(selected)))
	c.WriteString("Upload or attach it to this conversation, then send this message.\n")

	return Output{
		Document:  b.String(),
		Clipboard: c.String(),
		Count:     len(selected),
		Filename:  FileName(now),
	}, nil
}

func FileName(now time.Time) string {
	return "crystalizer_transcript_" + now.Format("20060102-150405") + ".md"
}

func formatTimestamp(ms int64) string {
	if ms <= 0 {
		return "No timestamp"
	}
	return time.UnixMilli(ms).Format(timestampLayout)
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
