package open

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

const fallbackEditor = "less"

// File opens path in $EDITOR (less when unset), positioned at line. $EDITOR
// may carry its own flags, e.g. "code -w".
func File(ctx context.Context, path string, line int) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("file not found: %s", path)
	}
	argv := editorArgs(os.Getenv("EDITOR"), path, max(line, 1))

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s: %w", argv[0], err)
	}
	return nil
}

// editorArgs builds the command line, adding the jump-to-line syntax of the
// editors that have one.
func editorArgs(editor, path string, line int) []string {
	argv := strings.Fields(editor)
	if len(argv) == 0 {
		argv = []string{fallbackEditor}
	}
	n := strconv.Itoa(line)

	switch name := filepath.Base(argv[0]); {
	case strings.Contains(name, "vim"), name == "less", name == "nano", name == "emacs":
		return append(argv, "+"+n, path)
	case name == "code", name == "cursor":
		return append(argv, "--goto", path+":"+n)
	case name == "subl":
		return append(argv, path+":"+n)
	}
	return append(argv, path)
}
