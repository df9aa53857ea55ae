package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/pardnchiu/mcp-pyrevit/internal/completion"
	"github.com/pardnchiu/mcp-pyrevit/internal/dispatch"
	"github.com/pardnchiu/mcp-pyrevit/internal/form"
	"github.com/pardnchiu/mcp-pyrevit/internal/keychain"
	"github.com/pardnchiu/mcp-pyrevit/internal/pipeline"
	"github.com/pardnchiu/mcp-pyrevit/internal/types"
)

type runOptions struct {
	prompt string
	files  string
	yes    bool
}

func newRunCmd() *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Fill in the prompt form and run the selected tool",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runForm(cmd.Context(), opts)
		},
	}
	cmd.Flags().StringVarP(&opts.prompt, "prompt", "p", "", "prompt text (asked interactively when empty)")
	cmd.Flags().StringVarP(&opts.files, "files", "f", "", "comma separated reference files or globs")
	cmd.Flags().BoolVarP(&opts.yes, "yes", "y", false, "run without the confirmation step")
	return cmd
}

func runForm(ctx context.Context, opts *runOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, logger, err := setup()
	if err != nil {
		return fmt.Errorf("setup: %w", err)
	}

	store, err := keychain.New()
	if err != nil {
		return fmt.Errorf("keychain.New: %w", err)
	}

	runner := pipeline.New(
		completion.New(cfg.Endpoint, cfg.Model, cfg.HTTPTimeout),
		dispatch.New(cfg.RepoRoot),
		logger,
	)
	ctrl := form.New(store, runner, logger)
	ctrl.Open()

	if err := fillForm(ctrl, opts); err != nil {
		return err
	}

	if !opts.yes {
		selector := promptui.Select{
			Label:        "Run automation?",
			Items:        []string{"Run", "Cancel"},
			Size:         2,
			HideSelected: true,
		}
		idx, _, err := selector.Run()
		if err != nil || idx == 1 {
			fmt.Println("[x] Cancelled")
			return nil
		}
	}

	fmt.Println("--- Running MCP Automation ---")
	return runWithEvents(func(ch chan<- types.Event) error {
		_, err := ctrl.Run(ctx, ch)
		return err
	})
}

func fillForm(ctrl *form.Controller, opts *runOptions) error {
	prompt := strings.TrimSpace(opts.prompt)
	if prompt == "" {
		promptInput := promptui.Prompt{
			Label: "Prompt",
			Validate: func(s string) error {
				if strings.TrimSpace(s) == "" {
					return fmt.Errorf("prompt cannot be empty")
				}
				return nil
			},
		}
		value, err := promptInput.Run()
		if err != nil {
			return fmt.Errorf("promptInput.Run: %w", err)
		}
		prompt = strings.TrimSpace(value)
	}
	ctrl.Fields.Prompt = prompt

	apiKeyLabel := "API Key"
	if ctrl.Fields.APIKey != "" {
		apiKeyLabel = "API Key (leave empty to keep saved key)"
	}
	apiKeyInput := promptui.Prompt{
		Label: apiKeyLabel,
		Mask:  '*',
	}
	apiKey, err := apiKeyInput.Run()
	if err != nil {
		return fmt.Errorf("apiKeyInput.Run: %w", err)
	}
	if apiKey = strings.TrimSpace(apiKey); apiKey != "" {
		ctrl.Fields.APIKey = apiKey
	}

	userInput := promptui.Prompt{
		Label: "MCP User (optional)",
	}
	if ctrl.Fields.MCPUser, err = userInput.Run(); err != nil {
		return fmt.Errorf("userInput.Run: %w", err)
	}

	passInput := promptui.Prompt{
		Label: "MCP Password (optional)",
		Mask:  '*',
	}
	if ctrl.Fields.MCPPassword, err = passInput.Run(); err != nil {
		return fmt.Errorf("passInput.Run: %w", err)
	}

	patterns := opts.files
	if patterns == "" {
		filesInput := promptui.Prompt{
			Label: "Reference files (comma separated, globs allowed, optional)",
		}
		if patterns, err = filesInput.Run(); err != nil {
			return fmt.Errorf("filesInput.Run: %w", err)
		}
	}
	files, err := expandFiles(patterns)
	if err != nil {
		return err
	}
	label, err := ctrl.Browse(files)
	if err != nil {
		return fmt.Errorf("ctrl.Browse: %w", err)
	}
	fmt.Printf("[*] %s\n", label)
	return nil
}

// expandFiles resolves comma separated globs to existing files.
func expandFiles(patterns string) ([]string, error) {
	var files []string
	seen := make(map[string]struct{})
	for pattern := range strings.SplitSeq(patterns, ",") {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("filepath.Glob: %w", err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("no file matches %q", pattern)
		}
		for _, m := range matches {
			info, err := os.Stat(m)
			if err != nil || info.IsDir() {
				continue
			}
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			files = append(files, m)
		}
	}
	return files, nil
}

func runWithEvents(fn func(chan<- types.Event) error) error {
	start := time.Now()
	ch := make(chan types.Event, 16)
	var execErr error

	go func() {
		defer close(ch)
		execErr = fn(ch)
	}()

	for ev := range ch {
		printEvent(ev, start)
	}

	if execErr != nil {
		if hint := errorHint(execErr); hint != "" {
			fmt.Fprintf(os.Stderr, "[!] %s\n", hint)
		}
		return &reportedError{err: execErr}
	}
	return nil
}

// reportedError is a run failure already printed by printEvent.
type reportedError struct {
	err error
}

func (e *reportedError) Error() string {
	return e.err.Error()
}

func (e *reportedError) Unwrap() error {
	return e.err
}

func printEvent(ev types.Event, start time.Time) {
	switch ev.Type {
	case types.EventText:
		fmt.Printf("[*] %s\n", ev.Text)

	case types.EventCompletion:
		fmt.Printf("[*] Completion — \033[90m%s\033[0m\n", ev.Text)

	case types.EventDirective:
		fmt.Printf("[*] Directive — \033[36m%s\033[0m \033[33m%s\033[0m\n", ev.ToolName, ev.ToolArgs)

	case types.EventToolCall:
		fmt.Printf("[*] Run Tool — \033[32m%s\033[0m\n", ev.ToolName)

	case types.EventToolResult:
		fmt.Print("\033[90m──────────────────────────────────────────────────\n")
		fmt.Printf("%s\n", strings.TrimSpace(ev.Result))
		if s := strings.TrimSpace(ev.Stderr); s != "" {
			fmt.Print("--- stderr ---\n")
			fmt.Printf("%s\n", s)
		}
		fmt.Print("──────────────────────────────────────────────────\033[0m\n")
		fmt.Printf("[*] Exit status: %d\n", ev.ExitStatus)

	case types.EventError:
		if ev.Err != nil {
			fmt.Fprintf(os.Stderr, "[!] %s failed: %v\n", ev.Text, ev.Err)
		}

	case types.EventDone:
		fmt.Printf("[*] Done (%s)\n", time.Since(start).Round(time.Millisecond))
	}
}

// errorHint suggests what to check after a failed run; "" when there is nothing to add.
func errorHint(err error) string {
	var te *completion.TransportError
	var de *dispatch.DispatchError
	switch {
	case errors.As(err, &te):
		return "model request failed: check the API key and the configured endpoint"
	case errors.As(err, &de) && de.Kind == dispatch.NotFound:
		return "tool not available: run `mcp-pyrevit tools` to list built tools"
	default:
		return ""
	}
}
