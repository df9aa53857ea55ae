package pipeline

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pardnchiu/mcp-pyrevit/internal/completion"
	"github.com/pardnchiu/mcp-pyrevit/internal/directive"
	"github.com/pardnchiu/mcp-pyrevit/internal/dispatch"
	"github.com/pardnchiu/mcp-pyrevit/internal/types"
)

type countingDispatcher struct {
	calls int
	next  Dispatcher
}

func (c *countingDispatcher) Resolve(dir directive.Directive) (string, error) {
	if c.next == nil {
		return "", nil
	}
	return c.next.Resolve(dir)
}

func (c *countingDispatcher) Dispatch(ctx context.Context, dir directive.Directive) (*dispatch.Invocation, error) {
	c.calls++
	if c.next == nil {
		return &dispatch.Invocation{}, nil
	}
	return c.next.Dispatch(ctx, dir)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func completionServer(t *testing.T, status int, content string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		if status != http.StatusOK {
			w.Write([]byte(`{"error":{"message":"invalid api key"}}`))
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{map[string]any{"message": map[string]any{"content": content}}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func installTool(t *testing.T, root, name string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell-script tools need a Unix host")
	}
	path := dispatch.ExecutablePath(root, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\nprintf 'renamed walls in %s\\n' \"$1\"\n"), 0755))
}

func drain(events chan types.Event) []types.Event {
	close(events)
	var out []types.Event
	for ev := range events {
		out = append(out, ev)
	}
	return out
}

func TestRun_RenameWalls(t *testing.T) {
	root := t.TempDir()
	installTool(t, root, "RenameWalls")
	srv := completionServer(t, http.StatusOK, `{"tool":"RenameWalls","file_path":"C:\\model.rvt"}`)

	disp := &countingDispatcher{next: dispatch.New(root)}
	r := New(completion.New(srv.URL, "m", 5*time.Second), disp, quietLogger())

	events := make(chan types.Event, 32)
	out, err := r.Run(context.Background(), Request{Prompt: "rename all walls", APIKey: "k"}, events)
	require.NoError(t, err)

	assert.NotEmpty(t, out.RunID)
	assert.Equal(t, directive.Directive{Tool: "RenameWalls", FilePath: `C:\model.rvt`}, out.Directive)
	require.NotNil(t, out.Invocation)
	assert.Equal(t, `C:\model.rvt`, out.Invocation.Arg)
	assert.Equal(t, "renamed walls in C:\\model.rvt\n", out.Invocation.Stdout)
	assert.Equal(t, 1, disp.calls)

	evs := drain(events)
	require.NotEmpty(t, evs)
	assert.Equal(t, types.EventDone, evs[len(evs)-1].Type)
	var call, result *types.Event
	for i := range evs {
		assert.Equal(t, out.RunID, evs[i].RunID)
		switch evs[i].Type {
		case types.EventToolCall:
			call = &evs[i]
		case types.EventToolResult:
			result = &evs[i]
		}
	}
	require.NotNil(t, call)
	assert.Equal(t, "RenameWalls", call.ToolName)
	assert.Equal(t, out.Invocation.ExecutablePath, call.Text)
	require.NotNil(t, result)
	assert.Equal(t, out.Invocation.Stdout, result.Result)
}

func TestRun_Unauthorized(t *testing.T) {
	srv := completionServer(t, http.StatusUnauthorized, "")
	disp := &countingDispatcher{}
	r := New(completion.New(srv.URL, "m", 5*time.Second), disp, quietLogger())

	events := make(chan types.Event, 32)
	out, err := r.Run(context.Background(), Request{Prompt: "rename all walls", APIKey: "bad"}, events)

	var te *completion.TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, http.StatusUnauthorized, te.Status)
	assert.Equal(t, 0, disp.calls)
	assert.Nil(t, out.Completion)
	assert.Nil(t, out.Invocation)

	evs := drain(events)
	require.GreaterOrEqual(t, len(evs), 2)
	assert.Equal(t, types.EventError, evs[len(evs)-2].Type)
	assert.Equal(t, "completion", evs[len(evs)-2].Text)
	assert.Equal(t, types.EventDone, evs[len(evs)-1].Type)
}

func TestRun_RejectedDirective(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		wantKind dispatch.Kind
		want     directive.Directive
	}{
		{"empty tool", `{"tool":"","file_path":"C:\\model.rvt"}`, dispatch.MissingField, directive.Directive{FilePath: `C:\model.rvt`}},
		{"unknown tool", `{"tool":"DeleteEverything","file_path":"C:\\model.rvt"}`, dispatch.NotFound, directive.Directive{Tool: "DeleteEverything", FilePath: `C:\model.rvt`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			installTool(t, root, "RenameWalls")
			srv := completionServer(t, http.StatusOK, tt.content)

			disp := &countingDispatcher{next: dispatch.New(root)}
			r := New(completion.New(srv.URL, "m", 5*time.Second), disp, quietLogger())
			events := make(chan types.Event, 32)
			out, err := r.Run(context.Background(), Request{Prompt: "rename all walls", APIKey: "k"}, events)

			var de *dispatch.DispatchError
			require.ErrorAs(t, err, &de)
			assert.Equal(t, tt.wantKind, de.Kind)
			assert.Equal(t, tt.want, out.Directive)
			assert.Nil(t, out.Invocation)
			assert.Equal(t, 0, disp.calls)

			for _, ev := range drain(events) {
				assert.NotEqual(t, types.EventToolCall, ev.Type, "no tool call announced for a rejected directive")
				assert.NotEqual(t, types.EventToolResult, ev.Type)
			}
		})
	}
}

func TestRun_MalformedContent(t *testing.T) {
	srv := completionServer(t, http.StatusOK, "I would use RenameWalls")
	disp := &countingDispatcher{}
	r := New(completion.New(srv.URL, "m", 5*time.Second), disp, quietLogger())

	out, err := r.Run(context.Background(), Request{Prompt: "rename all walls", APIKey: "k"}, nil)

	var pe *directive.ParseError
	require.ErrorAs(t, err, &pe)
	assert.Contains(t, pe.Body, "I would use RenameWalls")
	assert.Equal(t, 0, disp.calls)
	require.NotNil(t, out.Completion)
	assert.Equal(t, directive.Directive{}, out.Directive)
}
