// Package form holds the state and actions of the prompt dialog, independent
// of how the dialog is drawn.
package form

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/pardnchiu/mcp-pyrevit/internal/keychain"
	"github.com/pardnchiu/mcp-pyrevit/internal/pipeline"
	"github.com/pardnchiu/mcp-pyrevit/internal/types"
)

type Store interface {
	Get(key string) string
	Set(key, value string) error
}

type Runner interface {
	Run(ctx context.Context, req pipeline.Request, events chan<- types.Event) (*pipeline.Outcome, error)
}

type Fields struct {
	Prompt string
	APIKey string
	// MCPUser and MCPPassword are collected but not sent anywhere yet.
	MCPUser     string
	MCPPassword string
}

type Controller struct {
	Fields Fields
	Files  []string

	store  Store
	runner Runner
	logger *slog.Logger
	closed bool
}

func New(store Store, runner Runner, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		store:  store,
		runner: runner,
		logger: logger,
	}
}

// Open fills the API key field from the settings store.
func (c *Controller) Open() {
	c.Fields.APIKey = c.store.Get(keychain.APIKey)
	c.closed = false
}

// Browse replaces the selected reference files and returns the label text.
func (c *Controller) Browse(paths []string) (string, error) {
	files := make([]string, 0, len(paths))
	for _, p := range paths {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		abs, err := filepath.Abs(p)
		if err != nil {
			return "", fmt.Errorf("filepath.Abs: %w", err)
		}
		files = append(files, abs)
	}
	c.Files = files
	c.logger.Debug("reference files selected",
		slog.String("files", strings.Join(files, ", ")))
	return Label(len(files)), nil
}

func Label(n int) string {
	return fmt.Sprintf("%d files selected", n)
}

func (c *Controller) Closed() bool {
	return c.closed
}

// Run saves the API key, then runs the prompt. The form is closed
// afterwards whatever the result.
func (c *Controller) Run(ctx context.Context, events chan<- types.Event) (*pipeline.Outcome, error) {
	defer func() { c.closed = true }()

	if err := c.store.Set(keychain.APIKey, c.Fields.APIKey); err != nil {
		c.logger.Warn("failed to save API key",
			slog.String("error", err.Error()))
	}

	if events != nil {
		for _, line := range c.Summary() {
			events <- types.Event{Type: types.EventText, Text: line}
		}
	}

	return c.runner.Run(ctx, pipeline.Request{
		Prompt: c.Fields.Prompt,
		APIKey: c.Fields.APIKey,
	}, events)
}

// Summary describes the run without revealing secrets.
func (c *Controller) Summary() []string {
	return []string{
		"Prompt: " + c.Fields.Prompt,
		fmt.Sprintf("API Key set: %t", c.Fields.APIKey != ""),
		"MCP User: " + c.Fields.MCPUser,
		fmt.Sprintf("MCP Password set: %t", c.Fields.MCPPassword != ""),
		"Reference Files: " + strings.Join(c.Files, ", "),
	}
}
