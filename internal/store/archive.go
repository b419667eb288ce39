package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/yargnad/The-Crystalizer/internal/persona"
)

const tsLayout = "2006-01-02T15:04:05Z"

type Stats struct {
	Scanned int
	Updated int
	Skipped int
	Pruned  int
	Errors  int
}

func (s Stats) String() string {
	return fmt.Sprintf("scanned=%d updated=%d skipped=%d pruned=%d errors=%d",
		s.Scanned, s.Updated, s.Skipped, s.Pruned, s.Errors)
}

type PersonaRow struct {
	PersonaID    string
	Name         string
	PlatformID   string
	PlatformName string
	URL          string
	CreatedAt    string
	TurnCount    int
}

type TurnRow struct {
	PersonaID string
	TurnID    int
	PairIndex int
	Ts        string
	Role      string
	Text      string
}

// Reindex reconciles the archive with the persona library: changed personas
// are rewritten, unchanged ones skipped, and archived personas no longer in
// the library are pruned.
func Reindex(ctx context.Context, db *DB, personas []persona.Persona) (Stats, error) {
	var stats Stats
	stats.Scanned = len(personas)

	seen := make(map[string]struct{}, len(personas))
	for _, p := range personas {
		seen[p.ID] = struct{}{}

		digest, err := Digest(p)
		if err != nil {
			stats.Errors++
			continue
		}
		current, err := db.personaDigest(ctx, p.ID)
		if err != nil {
			stats.Errors++
			continue
		}
		if current == digest {
			stats.Skipped++
			continue
		}
		if err := db.indexPersona(ctx, p, digest); err != nil {
			stats.Errors++
			continue
		}
		stats.Updated++
	}

	pruned, err := pruneArchive(ctx, db, seen)
	if err != nil {
		return stats, fmt.Errorf("prune: %w", err)
	}
	stats.Pruned = pruned

	return stats, nil
}

// IndexPersona archives one persona, replacing any previous copy.
func (d *DB) IndexPersona(ctx context.Context, p persona.Persona) error {
	digest, err := Digest(p)
	if err != nil {
		return err
	}
	return d.indexPersona(ctx, p, digest)
}

func (d *DB) indexPersona(ctx context.Context, p persona.Persona, digest string) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// delete old data first
	if err := deletePersona(ctx, tx, p.ID); err != nil {
		return err
	}

	turns := 0
	for _, tp := range p.Exchanges {
		if tp.UserText != "" {
			turns++
		}
		if tp.AssistantText != "" {
			turns++
		}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO personas (persona_id, name, platform_id, platform_name, url, created_at, digest, turn_count)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.PlatformID, p.PlatformName, p.URL,
		formatMillis(p.Timestamp), digest, turns,
	)
	if err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO turns (persona_id, turn_id, pair_index, ts, role, text)
		 VALUES (?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	turnID := 0
	for i, tp := range p.Exchanges {
		ts := formatMillis(tp.Timestamp)
		for _, half := range []struct{ role, text string }{
			{"user", tp.UserText},
			{"assistant", tp.AssistantText},
		} {
			if half.text == "" {
				continue
			}
			if _, err := stmt.ExecContext(ctx, p.ID, turnID, i, ts, half.role, half.text); err != nil {
				return err
			}
			turnID++
		}
	}

	return tx.Commit()
}

func (d *DB) DeletePersona(ctx context.Context, personaID string) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := deletePersona(ctx, tx, personaID); err != nil {
		return err
	}
	return tx.Commit()
}

func deletePersona(ctx context.Context, tx *sql.Tx, personaID string) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM turns WHERE persona_id = ?", personaID); err != nil {
		return err
	}
	_, err := tx.ExecContext(ctx, "DELETE FROM personas WHERE persona_id = ?", personaID)
	return err
}

func (d *DB) personaDigest(ctx context.Context, personaID string) (string, error) {
	var digest string
	err := d.db.QueryRowContext(ctx, "SELECT digest FROM personas WHERE persona_id = ?", personaID).Scan(&digest)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return digest, err
}

func (d *DB) AllPersonaIDs(ctx context.Context) (map[string]struct{}, error) {
	rows, err := d.db.QueryContext(ctx, "SELECT persona_id FROM personas")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids[id] = struct{}{}
	}
	return ids, rows.Err()
}

func (d *DB) GetPersonaRow(ctx context.Context, personaID string) (*PersonaRow, error) {
	var r PersonaRow
	err := d.db.QueryRowContext(ctx,
		"SELECT persona_id, name, platform_id, platform_name, url, created_at, turn_count FROM personas WHERE persona_id = ?",
		personaID,
	).Scan(&r.PersonaID, &r.Name, &r.PlatformID, &r.PlatformName, &r.URL, &r.CreatedAt, &r.TurnCount)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (d *DB) GetTurns(ctx context.Context, personaID string) ([]TurnRow, error) {
	rows, err := d.db.QueryContext(ctx,
		"SELECT persona_id, turn_id, pair_index, ts, role, text FROM turns WHERE persona_id = ? ORDER BY turn_id",
		personaID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var turns []TurnRow
	for rows.Next() {
		var t TurnRow
		if err := rows.Scan(&t.PersonaID, &t.TurnID, &t.PairIndex, &t.Ts, &t.Role, &t.Text); err != nil {
			return nil, err
		}
		turns = append(turns, t)
	}
	return turns, rows.Err()
}

func (d *DB) PersonaCount(ctx context.Context) (int, error) {
	return d.count(ctx, "SELECT COUNT(*) FROM personas")
}

func (d *DB) TurnCount(ctx context.Context) (int, error) {
	return d.count(ctx, "SELECT COUNT(*) FROM turns")
}

func (d *DB) FTSCount(ctx context.Context) (int, error) {
	return d.count(ctx, "SELECT COUNT(*) FROM turns_fts")
}

func (d *DB) count(ctx context.Context, q string) (int, error) {
	var n int
	err := d.db.QueryRowContext(ctx, q).Scan(&n)
	return n, err
}

func pruneArchive(ctx context.Context, db *DB, seen map[string]struct{}) (int, error) {
	all, err := db.AllPersonaIDs(ctx)
	if err != nil {
		return 0, err
	}

	pruned := 0
	for id := range all {
		if _, ok := seen[id]; !ok {
			if err := db.DeletePersona(ctx, id); err != nil {
				return pruned, err
			}
			pruned++
		}
	}
	return pruned, nil
}

// Digest fingerprints a persona so Reindex can skip unchanged ones.
func Digest(p persona.Persona) (string, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}

func formatMillis(ms int64) string {
	if ms <= 0 {
		return ""
	}
	return time.UnixMilli(ms).UTC().Format(tsLayout)
}
