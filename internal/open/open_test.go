package open

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEditorArgs(t *testing.T) {
	tests := []struct {
		editor string
		want   []string
	}{
		{"nvim", []string{"nvim", "+12", "/tmp/t.md"}},
		{"/usr/bin/vim", []string{"/usr/bin/vim", "+12", "/tmp/t.md"}},
		{"code -w", []string{"code", "-w", "--goto", "/tmp/t.md:12"}},
		{"subl", []string{"subl", "/tmp/t.md:12"}},
		{"less", []string{"less", "+12", "/tmp/t.md"}},
		{"", []string{"less", "+12", "/tmp/t.md"}},
		{"gedit", []string{"gedit", "/tmp/t.md"}},
	}
	for _, tt := range tests {
		t.Run(tt.editor, func(t *testing.T) {
			assert.Equal(t, tt.want, editorArgs(tt.editor, "/tmp/t.md", 12))
		})
	}
}

func TestFileMissing(t *testing.T) {
	err := File(context.Background(), "/nonexistent/crystalizer.md", 1)
	assert.ErrorContains(t, err, "file not found")
}
