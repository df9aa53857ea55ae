// Package pipeline runs one prompt through completion, parsing and dispatch.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/pardnchiu/mcp-pyrevit/internal/completion"
	"github.com/pardnchiu/mcp-pyrevit/internal/directive"
	"github.com/pardnchiu/mcp-pyrevit/internal/dispatch"
	"github.com/pardnchiu/mcp-pyrevit/internal/types"
)

type Completer interface {
	Complete(ctx context.Context, prompt, apiKey string) (*completion.Result, error)
}

type Dispatcher interface {
	Resolve(dir directive.Directive) (string, error)
	Dispatch(ctx context.Context, dir directive.Directive) (*dispatch.Invocation, error)
}

type Request struct {
	Prompt string
	APIKey string
}

// Outcome holds whatever stages completed; later fields stay empty after a failure.
type Outcome struct {
	RunID      string
	Completion *completion.Result
	Directive  directive.Directive
	Invocation *dispatch.Invocation
}

type Runner struct {
	completer  Completer
	dispatcher Dispatcher
	logger     *slog.Logger
}

func New(completer Completer, dispatcher Dispatcher, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		completer:  completer,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// Run is linear: the first failing stage ends the run and its error is
// returned as is. events may be nil.
func (r *Runner) Run(ctx context.Context, req Request, events chan<- types.Event) (*Outcome, error) {
	out := &Outcome{RunID: uuid.NewString()}
	logger := r.logger.With(slog.String("run_id", out.RunID))
	emit := func(ev types.Event) {
		if events == nil {
			return
		}
		ev.RunID = out.RunID
		events <- ev
	}
	fail := func(stage string, err error) (*Outcome, error) {
		logger.Error("run aborted",
			slog.String("stage", stage),
			slog.String("error", err.Error()))
		emit(types.Event{Type: types.EventError, Text: stage, Err: err})
		emit(types.Event{Type: types.EventDone})
		return out, err
	}

	emit(types.Event{Type: types.EventText, Text: "Requesting completion"})
	result, err := r.completer.Complete(ctx, req.Prompt, req.APIKey)
	if err != nil {
		return fail("completion", err)
	}
	out.Completion = result
	logger.Debug("completion received", slog.Int("status", result.Status))
	emit(types.Event{Type: types.EventCompletion, Text: fmt.Sprintf("HTTP %d", result.Status)})

	dir, err := directive.Parse(result.Body)
	if err != nil {
		return fail("parse", err)
	}
	out.Directive = dir
	logger.Info("directive parsed",
		slog.String("tool", dir.Tool),
		slog.String("file_path", dir.FilePath))
	emit(types.Event{Type: types.EventDirective, ToolName: dir.Tool, ToolArgs: dir.FilePath})

	path, err := r.dispatcher.Resolve(dir)
	if err != nil {
		return fail("dispatch", err)
	}
	emit(types.Event{Type: types.EventToolCall, ToolName: dir.Tool, ToolArgs: dir.FilePath, Text: path})
	inv, err := r.dispatcher.Dispatch(ctx, dir)
	if err != nil {
		return fail("dispatch", err)
	}
	out.Invocation = inv
	logger.Info("tool finished",
		slog.String("tool", dir.Tool),
		slog.String("path", inv.ExecutablePath),
		slog.Int("exit_status", inv.ExitStatus))
	emit(types.Event{
		Type:       types.EventToolResult,
		ToolName:   dir.Tool,
		ToolArgs:   dir.FilePath,
		Result:     inv.Stdout,
		Stderr:     inv.Stderr,
		ExitStatus: inv.ExitStatus,
	})
	emit(types.Event{Type: types.EventDone})
	return out, nil
}
