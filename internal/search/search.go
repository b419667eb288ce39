package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/yargnad/The-Crystalizer/internal/store"
)

var ErrEmptyQuery = errors.New("empty query")

// Result is one archived turn half that matched, or one archived persona
// when listing (TurnID is -1 then).
type Result struct {
	PersonaID    string
	TurnID       int
	PairIndex    int
	CreatedAt    string
	PlatformID   string
	PlatformName string
	Name         string
	Snippet      string
	Role         string
	Rank         float64
}

type Options struct {
	Query    string
	Platform string // platform id, "" = all
	Role     string // "user" or "assistant", "" = both
	Since    string // YYYY-MM-DD
	Limit    int
}

const defaultLimit = 100

// overfetch compensates for hits collapsed by bestPerPersona.
const overfetch = 3

const hitColumns = `t.persona_id, t.turn_id, t.pair_index, p.created_at,
	p.platform_id, p.platform_name, p.name`

// plan is one SELECT over turns joined to their persona.
type plan struct {
	columns string // selected after hitColumns: snippet-or-text, role, rank
	from    string
	where   []string
	args    []any
	order   string
}

func (p plan) build(opts Options, limit int) (string, []any) {
	where := append([]string{}, p.where...)
	args := append([]any{}, p.args...)
	if opts.Platform != "" {
		where = append(where, "p.platform_id = ?")
		args = append(args, opts.Platform)
	}
	if opts.Role != "" {
		where = append(where, "t.role = ?")
		args = append(args, opts.Role)
	}
	if opts.Since != "" {
		where = append(where, "t.ts >= ?")
		args = append(args, opts.Since)
	}
	q := fmt.Sprintf("SELECT %s, %s FROM %s WHERE %s ORDER BY %s LIMIT ?",
		hitColumns, p.columns, p.from, strings.Join(where, " AND "), p.order)
	return q, append(args, limit)
}

func ftsPlan(query string) plan {
	return plan{
		columns: `snippet(turns_fts, 0, '>>>', '<<<', '...', 40), t.role, bm25(turns_fts, 1.0) AS rank`,
		from: `turns_fts
			JOIN turns t ON turns_fts.rowid = t.rowid
			JOIN personas p ON t.persona_id = p.persona_id`,
		where: []string{"turns_fts MATCH ?"},
		args:  []any{query},
		order: "rank",
	}
}

// likePlan is the substring fallback for scripts unicode61 does not split
// into words. The full text is returned and cut down by makeSnippet.
func likePlan(query string) plan {
	return plan{
		columns: "t.text, t.role, 0.0",
		from:    "turns t JOIN personas p ON t.persona_id = p.persona_id",
		where:   []string{"t.text LIKE ?"},
		args:    []any{"%" + query + "%"},
		order:   "p.created_at DESC, t.turn_id",
	}
}

// Search finds archived turns matching the query and keeps the best hit per
// persona.
func Search(ctx context.Context, db *store.DB, opts Options) ([]Result, error) {
	if strings.TrimSpace(opts.Query) == "" {
		return nil, ErrEmptyQuery
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultLimit
	}

	p := ftsPlan(opts.Query)
	substring := hasHan(opts.Query)
	if substring {
		p = likePlan(opts.Query)
	}
	q, args := p.build(opts, limit*overfetch)

	rows, err := db.Raw().QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("search query: %w", err)
	}
	defer rows.Close()

	var hits []Result
	for rows.Next() {
		var r Result
		if err := rows.Scan(
			&r.PersonaID, &r.TurnID, &r.PairIndex, &r.CreatedAt,
			&r.PlatformID, &r.PlatformName, &r.Name,
			&r.Snippet, &r.Role, &r.Rank,
		); err != nil {
			return nil, fmt.Errorf("scan hit: %w", err)
		}
		if substring {
			r.Snippet = makeSnippet(r.Snippet, opts.Query, 30)
		}
		hits = append(hits, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return bestPerPersona(hits, limit), nil
}

// bestPerPersona keeps the first (best ranked) hit of each persona.
func bestPerPersona(hits []Result, limit int) []Result {
	seen := make(map[string]struct{}, len(hits))
	var out []Result
	for _, r := range hits {
		if _, ok := seen[r.PersonaID]; ok {
			continue
		}
		seen[r.PersonaID] = struct{}{}
		out = append(out, r)
		if len(out) == limit {
			break
		}
	}
	return out
}

func hasHan(s string) bool {
	for _, r := range s {
		if unicode.Is(unicode.Han, r) {
			return true
		}
	}
	return false
}

// makeSnippet cuts width runes of context on each side of the first
// case-insensitive match and marks the match with >>> <<<. Without a match
// it returns the head of text.
func makeSnippet(text, query string, width int) string {
	runes := []rune(text)
	q := []rune(query)
	at := indexFold(runes, q)
	if at < 0 {
		if len(runes) > width*2 {
			return string(runes[:width*2]) + "..."
		}
		return text
	}

	start := max(at-width, 0)
	end := min(at+len(q)+width, len(runes))
	var b strings.Builder
	if start > 0 {
		b.WriteString("...")
	}
	b.WriteString(string(runes[start:at]))
	b.WriteString(">>>")
	b.WriteString(string(runes[at : at+len(q)]))
	b.WriteString("<<<")
	b.WriteString(string(runes[at+len(q) : end]))
	if end < len(runes) {
		b.WriteString("...")
	}
	return b.String()
}

func indexFold(s, sub []rune) int {
	if len(sub) == 0 {
		return -1
	}
	needle := string(sub)
	for i := 0; i+len(sub) <= len(s); i++ {
		if strings.EqualFold(string(s[i:i+len(sub)]), needle) {
			return i
		}
	}
	return -1
}

// ListAll returns archived personas, newest first.
func ListAll(ctx context.Context, db *store.DB, platform string, limit int) ([]Result, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	q := "SELECT persona_id, created_at, platform_id, platform_name, name, turn_count FROM personas"
	var args []any
	if platform != "" {
		q += " WHERE platform_id = ?"
		args = append(args, platform)
	}
	q += " ORDER BY created_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := db.Raw().QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list query: %w", err)
	}
	defer rows.Close()

	var out []Result
	for rows.Next() {
		r := Result{TurnID: -1}
		var turns int
		if err := rows.Scan(&r.PersonaID, &r.CreatedAt, &r.PlatformID, &r.PlatformName, &r.Name, &turns); err != nil {
			return nil, err
		}
		r.Snippet = fmt.Sprintf("%d turns", turns)
		out = append(out, r)
	}
	return out, rows.Err()
}
