package scan

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string, mtime time.Time) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o644))
	require.NoError(t, os.Chtimes(path, mtime, mtime))
}

func TestRoots(t *testing.T) {
	dir := t.TempDir()
	base := time.Unix(1_700_000_000, 0)
	touch(t, filepath.Join(dir, "b", "persona_B.json"), base.Add(2*time.Hour))
	touch(t, filepath.Join(dir, "a", "persona_A.json"), base)
	touch(t, filepath.Join(dir, "proj", "session.jsonl"), base.Add(time.Hour))
	touch(t, filepath.Join(dir, "proj", "subagents", "agent.jsonl"), base)
	touch(t, filepath.Join(dir, "proj", "sessions-index.jsonl"), base)
	touch(t, filepath.Join(dir, ".git", "config.json"), base)
	touch(t, filepath.Join(dir, "notes.md"), base)

	files, err := Roots(dir, filepath.Join(dir, "missing"), "")
	require.NoError(t, err)

	var got []string
	for _, f := range files {
		rel, _ := filepath.Rel(dir, f.Path)
		got = append(got, string(f.Kind)+":"+rel)
	}
	assert.Equal(t, []string{
		"persona:" + filepath.Join("a", "persona_A.json"),
		"agent-log:" + filepath.Join("proj", "session.jsonl"),
		"persona:" + filepath.Join("b", "persona_B.json"),
	}, got)
}

func TestRootsSingleFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lib.json")
	touch(t, path, time.Now())

	files, err := Roots(path)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, KindPersona, files[0].Kind)
	assert.Equal(t, int64(2), files[0].Size)
}
