package render

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/mattn/go-runewidth"

	"github.com/yargnad/The-Crystalizer/internal/merge"
	"github.com/yargnad/The-Crystalizer/internal/persona"
)

const (
	colorReset   = "\033[0m"
	colorUser    = "\033[1;34m" // bold blue
	colorAssist  = "\033[1;32m" // bold green
	colorDim     = "\033[2m"
	colorHit     = "\033[43m"   // yellow background
	colorBoldRed = "\033[1;31m" // bold red for keyword highlights
)

type Options struct {
	Focus   int    // exchange to mark, -1 for none
	Width   int    // wrap width (0 = no wrap)
	Query   string // search query for keyword highlighting
	Preview int    // visible width of collapsed exchanges (0 = show everything)
	Marks   bool   // prefix each exchange with its selection state
}

// fts5Operators are FTS5 operators that should not be highlighted as keywords.
var fts5Operators = map[string]bool{
	"AND": true, "OR": true, "NOT": true, "NEAR": true,
	"and": true, "or": true, "not": true, "near": true,
}

// highlightKeywords wraps case-insensitive matches of query terms in bold red ANSI codes.
func highlightKeywords(text, query string) string {
	if query == "" {
		return text
	}
	var filtered []string
	for _, t := range strings.Fields(query) {
		if !fts5Operators[t] {
			filtered = append(filtered, strings.Trim(t, `"*`))
		}
	}
	for _, term := range filtered {
		if term == "" {
			continue
		}
		lower := strings.ToLower(term)
		i := 0
		for i < len(text) {
			idx := strings.Index(strings.ToLower(text[i:]), lower)
			if idx < 0 {
				break
			}
			pos := i + idx
			orig := text[pos : pos+len(term)]
			replacement := colorBoldRed + orig + colorReset
			text = text[:pos] + replacement + text[pos+len(term):]
			i = pos + len(replacement)
		}
	}
	return text
}

func indentLines(text, prefix string) string {
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n")
}

// wrapLine breaks a single line into multiple lines that fit within maxWidth
// visible columns, skipping ANSI escape sequences when measuring width.
func wrapLine(line string, maxWidth int) []string {
	if maxWidth <= 0 {
		return []string{line}
	}

	var result []string
	var cur strings.Builder
	visW := 0

	i := 0
	for i < len(line) {
		// ANSI escape sequence: ESC[ ... m
		if i+1 < len(line) && line[i] == '\033' && line[i+1] == '[' {
			j := i + 2
			for j < len(line) && line[j] != 'm' {
				j++
			}
			if j < len(line) {
				j++
			}
			cur.WriteString(line[i:j])
			i = j
			continue
		}

		r, size := utf8.DecodeRuneInString(line[i:])
		rw := runewidth.RuneWidth(r)

		if visW+rw > maxWidth {
			result = append(result, cur.String())
			cur.Reset()
			visW = 0
		}

		cur.WriteRune(r)
		visW += rw
		i += size
	}

	if cur.Len() > 0 {
		result = append(result, cur.String())
	}
	if len(result) == 0 {
		return []string{""}
	}
	return result
}

// ansiColor turns a "#rrggbb" palette entry into a 24-bit foreground code.
func ansiColor(hex string) string {
	hex = strings.TrimPrefix(hex, "#")
	if len(hex) != 6 {
		return colorDim
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return colorDim
	}
	return fmt.Sprintf("\033[38;2;%d;%d;%dm", v>>16&0xff, v>>8&0xff, v&0xff)
}

// collapse flattens text to one line and truncates it to width columns.
func collapse(text string, width int) string {
	text = strings.Join(strings.Fields(text), " ")
	if runewidth.StringWidth(text) <= width {
		return text
	}
	return runewidth.Truncate(text, width, "...")
}

// Exchanges renders a working set and returns the content plus the 0-based
// line of the focused exchange header (-1 if none).
func Exchanges(xs []merge.Exchange, opts Options) (string, int) {
	if len(xs) == 0 {
		return "(no exchanges)", -1
	}

	var b strings.Builder
	focusLine := -1
	lineCount := 0
	separator := colorDim + strings.Repeat("-", 50) + colorReset

	writeLine := func(s string) {
		for _, wl := range wrapLine(s, opts.Width) {
			b.WriteString(wl)
			b.WriteString("\n")
			lineCount++
		}
	}

	for i, x := range xs {
		if i > 0 {
			writeLine(separator)
		}
		if i == opts.Focus {
			focusLine = lineCount
		}

		header := fmt.Sprintf("#%d %s%s%s %s(%s) %s%s",
			i+1,
			ansiColor(merge.Color(x.ColorIndex)), x.SourcePersonaName, colorReset,
			colorDim, x.SourcePlatform, timestamp(x.Timestamp), colorReset)
		if opts.Marks {
			mark := "[ ]"
			if x.Selected {
				mark = "[x]"
			}
			header = mark + " " + header
		}
		if i == opts.Focus {
			header = colorHit + ">>" + colorReset + " " + header
		}
		writeLine(header)

		writeTurn := func(label, color, text string) {
			if text == "" {
				return
			}
			if opts.Preview > 0 && !x.Expanded {
				text = collapse(text, opts.Preview)
			}
			writeLine(color + label + " >" + colorReset)
			text = indentLines(highlightKeywords(text, opts.Query), "  ")
			for _, tl := range strings.Split(text, "\n") {
				writeLine(tl)
			}
		}
		writeTurn("USER", colorUser, x.UserText)
		writeTurn("ASST", colorAssist, x.AssistantText)
		writeLine("")
	}

	return b.String(), focusLine
}

// Persona renders one persona with a header line.
func Persona(p persona.Persona, opts Options) (string, int) {
	header := fmt.Sprintf("%s--- %s [%s] %d exchanges ---%s", colorDim, p.Name, p.PlatformName, len(p.Exchanges), colorReset)
	body, focus := Exchanges(merge.Single(p), opts)
	if focus >= 0 {
		focus += len(wrapLine(header, opts.Width))
	}
	var b strings.Builder
	for _, l := range wrapLine(header, opts.Width) {
		b.WriteString(l)
		b.WriteString("\n")
	}
	b.WriteString(body)
	return b.String(), focus
}

func timestamp(ms int64) string {
	if ms <= 0 {
		return "no timestamp"
	}
	return time.UnixMilli(ms).Format("2006-01-02 15:04")
}
