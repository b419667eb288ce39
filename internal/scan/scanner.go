package scan

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

type Kind string

const (
	KindPersona  Kind = "persona"   // exported persona or library JSON
	KindAgentLog Kind = "agent-log" // Claude Code or Codex session JSONL
)

type FileInfo struct {
	Path  string
	Kind  Kind
	Mtime int64
	Size  int64
}

// Roots walks every root and returns the importable files, oldest first.
// Missing roots are skipped.
func Roots(roots ...string) ([]FileInfo, error) {
	var files []FileInfo
	for _, root := range roots {
		if root == "" {
			continue
		}
		found, err := walk(root)
		if err != nil && !os.IsNotExist(err) {
			return nil, err
		}
		files = append(files, found...)
	}
	sort.SliceStable(files, func(i, j int) bool { return files[i].Mtime < files[j].Mtime })
	return files, nil
}

func walk(root string) ([]FileInfo, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		if k, ok := classify(root); ok {
			return []FileInfo{fileInfo(root, k, info)}, nil
		}
		return nil, nil
	}

	var files []FileInfo
	err = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // skip unreadable dirs
		}
		if info.IsDir() {
			base := filepath.Base(path)
			if base == "subagents" || (path != root && strings.HasPrefix(base, ".")) {
				return filepath.SkipDir
			}
			return nil
		}
		if k, ok := classify(path); ok {
			files = append(files, fileInfo(path, k, info))
		}
		return nil
	})
	return files, err
}

func classify(path string) (Kind, bool) {
	switch filepath.Ext(path) {
	case ".json":
		return KindPersona, true
	case ".jsonl":
		if strings.Contains(filepath.Base(path), "sessions-index") {
			return "", false
		}
		return KindAgentLog, true
	}
	return "", false
}

func fileInfo(path string, k Kind, info os.FileInfo) FileInfo {
	return FileInfo{
		Path:  path,
		Kind:  k,
		Mtime: info.ModTime().Unix(),
		Size:  info.Size(),
	}
}
