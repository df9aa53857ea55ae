package dispatch

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// List returns the tools under repoRoot/mcp_tools whose executable is built.
func List(repoRoot string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(repoRoot, ToolsDir))
	if errors.Is(err, os.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("os.ReadDir: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() || !validName(e.Name()) {
			continue
		}
		info, err := os.Stat(ExecutablePath(repoRoot, e.Name()))
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}
