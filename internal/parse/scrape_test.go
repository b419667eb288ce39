package parse

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeScrape(t *testing.T) {
	bare := `{"chatId":"c1","platformId":"claude","platformName":"Claude","timestamp":5,
		"exchanges":[{"speaker":"user","text":"hi","timestamp":5,"index":0}]}`
	envelope := `{"success":true,"data":` + bare + `}`

	for name, input := range map[string]string{"bare": bare, "envelope": envelope} {
		t.Run(name, func(t *testing.T) {
			res, err := DecodeScrape([]byte(input))
			require.NoError(t, err)
			assert.Equal(t, "claude", res.PlatformID)
			require.Len(t, res.Exchanges, 1)
			assert.Equal(t, SpeakerUser, res.Exchanges[0].Speaker)
		})
	}

	_, err := DecodeScrape([]byte("not json"))
	assert.Error(t, err)
}

func writeLines(t *testing.T, name string, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644))
	return path
}

func TestParseClaudeLog(t *testing.T) {
	path := writeLines(t, "abc.jsonl",
		`{"type":"user","timestamp":"2026-01-02T03:04:05Z","message":{"role":"user","content":"fix the bug"}}`,
		`{"type":"assistant","timestamp":"2026-01-02T03:04:06Z","message":{"role":"assistant","content":[{"type":"thinking","thinking":"hmm"},{"type":"text","text":"done"}]}}`,
		`{"type":"user","isMeta":true,"message":{"role":"user","content":"meta"}}`,
		`{"type":"user","message":{"role":"user","content":[{"type":"tool_result","content":"x"}]}}`,
		`{"type":"summary","summary":"s"}`,
		`garbage`,
	)

	res, err := ParseAgentLog(path)
	require.NoError(t, err)
	assert.Equal(t, PlatformClaudeCode, res.PlatformID)
	assert.Equal(t, "abc", res.ChatID)
	require.Len(t, res.Exchanges, 2)
	assert.Equal(t, SpeakerUser, res.Exchanges[0].Speaker)
	assert.Equal(t, "fix the bug", res.Exchanges[0].Text)
	assert.Equal(t, SpeakerModel, res.Exchanges[1].Speaker)
	assert.Equal(t, "done", res.Exchanges[1].Text)
	assert.Equal(t, int64(1767323045000), res.Exchanges[0].Timestamp)

	pairs := Pair(res.Exchanges)
	require.Len(t, pairs, 1)
	assert.Equal(t, "done", pairs[0].AssistantText)
}

func TestParseCodexLog(t *testing.T) {
	path := writeLines(t, "rollout.jsonl",
		`{"timestamp":"2026-01-02T03:04:05Z","type":"session_meta","payload":{"cwd":"/tmp"}}`,
		`{"timestamp":"2026-01-02T03:04:06Z","type":"response_item","payload":{"type":"message","role":"developer","content":[{"type":"input_text","text":"sys"}]}}`,
		`{"timestamp":"2026-01-02T03:04:07Z","type":"response_item","payload":{"type":"message","role":"user","content":[{"type":"input_text","text":"list files"}]}}`,
		`{"timestamp":"2026-01-02T03:04:08Z","type":"response_item","payload":{"type":"reasoning","summary":[]}}`,
		`{"timestamp":"2026-01-02T03:04:09Z","type":"response_item","payload":{"type":"message","role":"assistant","content":[{"type":"output_text","text":"a.go b.go"}]}}`,
		`{"timestamp":"2026-01-02T03:04:09Z","type":"event_msg","payload":{"type":"agent_message","message":"a.go b.go"}}`,
	)

	res, err := ParseAgentLog(path)
	require.NoError(t, err)
	assert.Equal(t, PlatformCodex, res.PlatformID)
	require.Len(t, res.Exchanges, 2)
	assert.Equal(t, "list files", res.Exchanges[0].Text)
	assert.Equal(t, "a.go b.go", res.Exchanges[1].Text)
	assert.Equal(t, 1, res.Exchanges[1].Index)
}

func TestParseAgentLogDetection(t *testing.T) {
	codexLine := `{"timestamp":"2026-01-02T03:04:07.250Z","type":"response_item","payload":{"type":"message","role":"user","content":[{"type":"input_text","text":"hi"}]}}`

	t.Run("leading garbage is skipped before detection", func(t *testing.T) {
		res, err := ParseAgentLog(writeLines(t, "r.jsonl", "not json", codexLine))
		require.NoError(t, err)
		assert.Equal(t, PlatformCodex, res.PlatformID)
		require.Len(t, res.Exchanges, 1)
		assert.Equal(t, int64(1767323047250), res.Exchanges[0].Timestamp)
	})

	t.Run("forced format ignores foreign records", func(t *testing.T) {
		res, err := ParseClaudeLog(writeLines(t, "r.jsonl", codexLine))
		require.NoError(t, err)
		assert.Equal(t, PlatformClaudeCode, res.PlatformID)
		assert.Empty(t, res.Exchanges)
	})

	t.Run("empty log", func(t *testing.T) {
		res, err := ParseAgentLog(writeLines(t, "empty.jsonl"))
		require.NoError(t, err)
		assert.Equal(t, PlatformClaudeCode, res.PlatformID)
		assert.Empty(t, res.Exchanges)
		assert.Equal(t, "empty", res.ChatID)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := ParseCodexLog(filepath.Join(t.TempDir(), "nope.jsonl"))
		assert.Error(t, err)
	})
}
