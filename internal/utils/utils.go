package utils

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
)

const appName = "mcp-pyrevit"

type ConfigDir struct {
	Home string
	Work string
	Dirs []string
}

// GetConfigDir resolves the per-user and per-project config directories.
// MCP_PYREVIT_CONFIG replaces the per-user base when set.
func GetConfigDir(sub ...string) (*ConfigDir, error) {
	home := os.Getenv("MCP_PYREVIT_CONFIG")
	if home == "" {
		userHome, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("os.UserHomeDir: %w", err)
		}
		home = filepath.Join(userHome, ".config", appName)
	}

	workDir, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("os.Getwd: %w", err)
	}
	work := filepath.Join(workDir, ".config", appName)

	parts := append([]string{}, sub...)
	home = filepath.Join(append([]string{home}, parts...)...)
	work = filepath.Join(append([]string{work}, parts...)...)

	return &ConfigDir{
		Home: home,
		Work: work,
		Dirs: []string{work, home},
	}, nil
}

// POST sends body as JSON and returns the raw response body with its status.
// A non-2xx status is not an error here; callers decide.
func POST(ctx context.Context, client *http.Client, api string, header map[string]string, body any) ([]byte, int, error) {
	if client == nil {
		client = &http.Client{}
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, 0, fmt.Errorf("json.Marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, api, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, 0, fmt.Errorf("http.NewRequestWithContext: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	for k, v := range header {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("io.ReadAll: %w", err)
	}
	return data, resp.StatusCode, nil
}
